package randomize

import (
	"sort"
	"strconv"
)

// presentedLabels is the destination label alphabet; a question with n options
// uses the first n entries.
const presentedLabels = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// OptionResult is the relabelled option set of one question for one session
type OptionResult struct {
	Options map[string]string // presented label -> original text
	Correct string            // correct label in presented space
	Mapping map[string]string // original label -> presented label
}

// OptionSeed derives the per-question, per-session seed.
// Sessions whose ids agree modulo 1000 share option layouts.
func OptionSeed(questionID, sessionID int) int64 {
	return int64(questionID)*1000 + int64(sessionID)%1000
}

// RandomizeOptions relabels a question's options for a session. Original labels
// are taken in sorted order and receive the shuffled destination labels
// positionally. A correct label that is not among the options is echoed back.
func RandomizeOptions(options map[string]string, correct string, questionID, sessionID int) OptionResult {
	originals := make([]string, 0, len(options))
	for label := range options {
		originals = append(originals, label)
	}
	sort.Strings(originals)

	destinations := destinationLabels(len(originals))
	shuffled := Shuffle(destinations, OptionSeed(questionID, sessionID))

	result := OptionResult{
		Options: make(map[string]string, len(originals)),
		Mapping: make(map[string]string, len(originals)),
	}
	for i, orig := range originals {
		result.Options[shuffled[i]] = options[orig]
		result.Mapping[orig] = shuffled[i]
	}

	result.Correct = correct
	if mapped, ok := result.Mapping[correct]; ok {
		result.Correct = mapped
	}
	return result
}

func destinationLabels(n int) []string {
	labels := make([]string, n)
	for i := 0; i < n; i++ {
		if i < len(presentedLabels) {
			labels[i] = string(presentedLabels[i])
		} else {
			// beyond Z: A1, B1, ... keeps labels unique
			labels[i] = string(presentedLabels[i%len(presentedLabels)]) + strconv.Itoa(i/len(presentedLabels))
		}
	}
	return labels
}
