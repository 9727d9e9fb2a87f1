// Package grading scores submitted answers against an exam's answer keys.
package grading

import (
	"strings"

	"github.com/examhall/examhall/internal/model"
)

// Result is the outcome of grading one submission.
type Result struct {
	Answers []model.GradedAnswer
	Total   int
}

// strategy decides whether value matches the question's key.
type strategy func(key, value string) bool

// strategies routes by question type. A type without an entry is left
// ungraded for manual review.
var strategies = map[model.QuestionType]strategy{
	model.SingleChoice:   exactMatch,
	model.TrueFalse:      exactMatch,
	model.MultipleChoice: exactMatch,
	model.ShortAnswer:    containsKeyword,
}

// Grade grades answers against questions. Answers whose question id is not
// in questions are dropped. The returned answers keep the input order and
// carry no ids; persistence assigns those.
func Grade(questions []model.Question, answers []model.Answer) Result {
	byID := make(map[string]model.Question, len(questions))
	for _, q := range questions {
		byID[q.ID] = q
	}

	var res Result
	for _, a := range answers {
		q, ok := byID[a.QuestionID]
		if !ok {
			continue
		}
		ga := GradeOne(q, a.AnswerValue)
		if ga.ScoreObtained != nil {
			res.Total += *ga.ScoreObtained
		}
		res.Answers = append(res.Answers, ga)
	}
	return res
}

// GradeOne grades a single answer value for q.
func GradeOne(q model.Question, value string) model.GradedAnswer {
	ga := model.GradedAnswer{QuestionID: q.ID, AnswerValue: value}
	match, ok := strategies[q.Type]
	if !ok {
		return ga
	}
	key := ""
	if q.CorrectAnswer != nil {
		key = *q.CorrectAnswer
	}
	correct := match(normalize(key), normalize(value))
	score := 0
	if correct {
		score = q.Points
	}
	ga.IsCorrect = &correct
	ga.ScoreObtained = &score
	return ga
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func exactMatch(key, value string) bool {
	return key != "" && key == value
}

func containsKeyword(key, value string) bool {
	return key != "" && strings.Contains(value, key)
}
