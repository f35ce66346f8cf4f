package app

import (
	"fmt"
	"math"

	"tenant-quiz-service/internal/domain"
)

// ScoreAnswers resolves each answer against the question at the same
// position and returns the resolved copies with their stats. Answers that
// already carry QuestionText or IsCorrect keep those values.
//
// Matching is positional: a question set reordered after responses were
// recorded will mis-score those responses, since questions carry no stable id.
// Answers past the last question are incorrect and get a "Question N" label.
func ScoreAnswers(questions []domain.Question, answers []domain.Answer) ([]domain.Answer, domain.ScoreStats) {
	resolved := make([]domain.Answer, len(answers))
	correct := 0
	for i, a := range answers {
		var q *domain.Question
		if i < len(questions) {
			q = &questions[i]
		}
		if a.QuestionText == "" {
			a.QuestionText = questionLabel(q, i)
		}
		if a.IsCorrect == nil {
			ok := optionIsCorrect(q, a.SelectedOption)
			a.IsCorrect = &ok
		} else {
			v := *a.IsCorrect
			a.IsCorrect = &v
		}
		if *a.IsCorrect {
			correct++
		}
		resolved[i] = a
	}
	return resolved, domain.ScoreStats{
		CorrectCount:    correct,
		TotalQuestions:  len(answers),
		ScorePercentage: Percentage(correct, len(answers)),
	}
}

func questionLabel(q *domain.Question, i int) string {
	if q != nil {
		return q.Text
	}
	return fmt.Sprintf("Question %d", i+1)
}

func optionIsCorrect(q *domain.Question, selected string) bool {
	if q == nil {
		return false
	}
	for _, opt := range q.Options {
		if opt.Text == selected {
			return opt.IsCorrect
		}
	}
	return false
}

// Percentage returns part/total*100 rounded to one decimal, and 0 when total is 0.
func Percentage(part, total int) float64 {
	if total <= 0 {
		return 0
	}
	return roundTenth(float64(part) / float64(total) * 100)
}

func roundTenth(v float64) float64 {
	return math.Round(v*10) / 10
}
