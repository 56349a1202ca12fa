package randomize

import (
	"reflect"
	"testing"
)

func TestOptionSeed(t *testing.T) {
	if got := OptionSeed(7, 2003); got != 7003 {
		t.Errorf("OptionSeed(7, 2003) = %d, want 7003", got)
	}
	if got := OptionSeed(12, 5999); got != 12999 {
		t.Errorf("OptionSeed(12, 5999) = %d, want 12999", got)
	}
}

func TestRandomizeOptionsGolden(t *testing.T) {
	options := map[string]string{"A": "x", "B": "y", "C": "z", "D": "w"}
	res := RandomizeOptions(options, "B", 7, 2003)

	wantMapping := map[string]string{"A": "C", "B": "B", "C": "D", "D": "A"}
	if !reflect.DeepEqual(res.Mapping, wantMapping) {
		t.Fatalf("mapping = %v, want %v", res.Mapping, wantMapping)
	}
	wantOptions := map[string]string{"C": "x", "B": "y", "D": "z", "A": "w"}
	if !reflect.DeepEqual(res.Options, wantOptions) {
		t.Fatalf("options = %v, want %v", res.Options, wantOptions)
	}
	if res.Correct != "B" {
		t.Fatalf("correct = %q, want B", res.Correct)
	}
}

func TestRandomizeOptionsFewerThanFour(t *testing.T) {
	options := map[string]string{"A": "uno", "B": "dos", "C": "tres"}
	res := RandomizeOptions(options, "C", 7, 2003)

	want := map[string]string{"A": "B", "B": "C", "C": "A"}
	if !reflect.DeepEqual(res.Mapping, want) {
		t.Fatalf("mapping = %v, want %v", res.Mapping, want)
	}
	if res.Correct != "A" {
		t.Fatalf("correct = %q, want A", res.Correct)
	}
	if _, ok := res.Options["D"]; ok {
		t.Fatalf("three options must not use label D: %v", res.Options)
	}
}

func TestRandomizeOptionsBijection(t *testing.T) {
	sets := []map[string]string{
		{},
		{"A": "solo"},
		{"A": "1", "B": "2"},
		{"A": "1", "B": "2", "C": "3", "D": "4"},
		{"A": "1", "B": "2", "C": "3", "D": "4", "E": "5"},
	}
	for _, options := range sets {
		for qid := 1; qid < 40; qid++ {
			for _, sid := range []int{1, 999, 1000, 2003, 77777} {
				res := RandomizeOptions(options, "A", qid, sid)
				if len(res.Mapping) != len(options) || len(res.Options) != len(options) {
					t.Fatalf("q=%d s=%d: sizes mapping=%d options=%d want %d", qid, sid, len(res.Mapping), len(res.Options), len(options))
				}
				inverse := make(map[string]string)
				for orig, presented := range res.Mapping {
					if _, dup := inverse[presented]; dup {
						t.Fatalf("q=%d s=%d: presented label %q used twice", qid, sid, presented)
					}
					inverse[presented] = orig
					if res.Options[presented] != options[orig] {
						t.Fatalf("q=%d s=%d: text for %q moved to the wrong label", qid, sid, orig)
					}
				}
				if _, ok := options["A"]; ok {
					if res.Mapping["A"] != res.Correct || inverse[res.Correct] != "A" {
						t.Fatalf("q=%d s=%d: correct label round trip failed", qid, sid)
					}
				}
			}
		}
	}
}

func TestRandomizeOptionsStable(t *testing.T) {
	options := map[string]string{"A": "1", "B": "2", "C": "3", "D": "4"}
	first := RandomizeOptions(options, "D", 31, 4512)
	for i := 0; i < 10; i++ {
		again := RandomizeOptions(options, "D", 31, 4512)
		if !reflect.DeepEqual(first, again) {
			t.Fatalf("run %d differs: %v vs %v", i, first, again)
		}
	}
}

func TestRandomizeOptionsMissingCorrectPassesThrough(t *testing.T) {
	res := RandomizeOptions(map[string]string{"A": "1", "B": "2"}, "Z", 3, 10)
	if res.Correct != "Z" {
		t.Fatalf("correct = %q, want Z echoed back", res.Correct)
	}
}
