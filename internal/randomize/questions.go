package randomize

import "examsim/internal/model"

// RandomizeQuestions returns the session's question order. The session id is
// the seed, so order varies per session but not per question.
func RandomizeQuestions[T any](questions []T, sessionID int) []T {
	return Shuffle(questions, int64(sessionID))
}

// PrepareQuestions relabels the options of every question for a session,
// keeping the given order.
func PrepareQuestions(questions []model.Question, sessionID int) []model.RandomizedQuestion {
	out := make([]model.RandomizedQuestion, len(questions))
	for i, q := range questions {
		res := RandomizeOptions(q.Options, q.CorrectAnswer, q.ID, sessionID)
		out[i] = model.RandomizedQuestion{
			Question:         q,
			PresentedOptions: res.Options,
			PresentedCorrect: res.Correct,
			Mapping:          model.LabelMapping(res.Mapping),
		}
	}
	return out
}
