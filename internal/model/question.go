package model

// Difficulty is the difficulty tier assigned to a question by the question bank
type Difficulty string

const (
	DifficultyEasy   Difficulty = "facil"
	DifficultyMedium Difficulty = "media"
	DifficultyHard   Difficulty = "dificil"
)

// Question is a question in canonical form, as the session service knows it
type Question struct {
	ID                   int               `json:"id" bson:"id"`
	Prompt               string            `json:"prompt" bson:"prompt"`
	Context              string            `json:"context,omitempty" bson:"context,omitempty"`
	ImageURL             string            `json:"imageUrl,omitempty" bson:"imageUrl,omitempty"`
	Options              map[string]string `json:"options" bson:"options"`             // label -> text, unordered
	CorrectAnswer        string            `json:"correctAnswer" bson:"correctAnswer"` // canonical label
	Difficulty           Difficulty        `json:"difficulty,omitempty" bson:"difficulty,omitempty"`
	EstimatedTimeSeconds int               `json:"estimatedTimeSeconds" bson:"estimatedTimeSeconds"`
	Tags                 []string          `json:"tags,omitempty" bson:"tags,omitempty"`
	Explanation          string            `json:"explanation,omitempty" bson:"explanation,omitempty"`
	Feedback             string            `json:"feedback,omitempty" bson:"feedback,omitempty"`
}

// RandomizedQuestion is a question relabelled for one session.
// PresentedOptions and PresentedCorrect live in the presented label space;
// Mapping translates canonical labels into it.
type RandomizedQuestion struct {
	Question
	PresentedOptions map[string]string `json:"presentedOptions"`
	PresentedCorrect string            `json:"presentedCorrect"`
	Mapping          LabelMapping      `json:"-"`
}

// ToCanonical translates a presented label back to the canonical label.
// Unknown labels pass through unchanged.
func (q *RandomizedQuestion) ToCanonical(presented string) string {
	if orig, ok := q.Mapping.Invert(presented); ok {
		return orig
	}
	return presented
}

// ToPresented translates a canonical label into the presented label space.
func (q *RandomizedQuestion) ToPresented(canonical string) string {
	return q.Mapping.Apply(canonical)
}

// LabelMapping maps original option labels to presented labels for one
// (question, session) pair. It is a bijection.
type LabelMapping map[string]string

// Apply returns the presented label for an original label, or the label
// itself when it is not part of the mapping.
func (m LabelMapping) Apply(original string) string {
	if presented, ok := m[original]; ok {
		return presented
	}
	return original
}

// Invert finds the original label that maps to presented.
func (m LabelMapping) Invert(presented string) (string, bool) {
	for orig, p := range m {
		if p == presented {
			return orig, true
		}
	}
	return "", false
}

// Inverse builds the presented -> original mapping
func (m LabelMapping) Inverse() LabelMapping {
	inv := make(LabelMapping, len(m))
	for orig, p := range m {
		inv[p] = orig
	}
	return inv
}

// IsBijection reports whether no two original labels share a presented label
func (m LabelMapping) IsBijection() bool {
	return len(m.Inverse()) == len(m)
}
