package grading

import (
	"testing"

	"github.com/examhall/examhall/internal/model"
)

func question(id string, typ model.QuestionType, points int, key string) model.Question {
	q := model.Question{ID: id, Type: typ, Points: points}
	if key != "" {
		q.CorrectAnswer = model.StringPtr(key)
	}
	return q
}

func TestGradeOne(t *testing.T) {
	tests := []struct {
		name        string
		q           model.Question
		value       string
		wantCorrect bool
		wantScore   int
	}{
		{"single correct", question("q", model.SingleChoice, 2, "A"), "A", true, 2},
		{"single case and space", question("q", model.SingleChoice, 2, "A"), "  a ", true, 2},
		{"single wrong", question("q", model.SingleChoice, 2, "A"), "B", false, 0},
		{"single empty answer", question("q", model.SingleChoice, 2, "A"), "", false, 0},
		{"single empty key", question("q", model.SingleChoice, 2, ""), "", false, 0},
		{"true false", question("q", model.TrueFalse, 3, "√"), "√", true, 3},
		{"true false wrong", question("q", model.TrueFalse, 3, "√"), "×", false, 0},
		{"multi exact", question("q", model.MultipleChoice, 4, "ABC"), "abc", true, 4},
		{"multi subset", question("q", model.MultipleChoice, 4, "ABC"), "AB", false, 0},
		{"multi unsorted", question("q", model.MultipleChoice, 4, "ABC"), "CBA", false, 0},
		{"short no keyword", question("q", model.ShortAnswer, 4, "int"), "abc", false, 0},
		{"short contains keyword", question("q", model.ShortAnswer, 4, "int"), "please use int here", true, 4},
		{"short case insensitive", question("q", model.ShortAnswer, 4, " INT "), "PrintInt", true, 4},
		{"short empty key", question("q", model.ShortAnswer, 4, ""), "anything", false, 0},
		{"zero points", question("q", model.SingleChoice, 0, "A"), "A", true, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ga := GradeOne(tt.q, tt.value)
			if ga.IsCorrect == nil || ga.ScoreObtained == nil {
				t.Fatalf("expected graded answer, got nil fields")
			}
			if *ga.IsCorrect != tt.wantCorrect {
				t.Errorf("IsCorrect = %v, want %v", *ga.IsCorrect, tt.wantCorrect)
			}
			if *ga.ScoreObtained != tt.wantScore {
				t.Errorf("ScoreObtained = %d, want %d", *ga.ScoreObtained, tt.wantScore)
			}
			if ga.AnswerValue != tt.value {
				t.Errorf("AnswerValue = %q, want %q", ga.AnswerValue, tt.value)
			}
		})
	}
}

func TestGradeOneUnknownTypeLeftForReview(t *testing.T) {
	ga := GradeOne(question("q", model.QuestionType("ESSAY"), 10, "x"), "x")
	if ga.IsCorrect != nil || ga.ScoreObtained != nil {
		t.Errorf("expected ungraded answer, got %+v", ga)
	}
}

func TestGradeIsDeterministic(t *testing.T) {
	qs := []model.Question{
		question("1", model.SingleChoice, 2, "B"),
		question("2", model.TrueFalse, 2, "×"),
		question("3", model.MultipleChoice, 2, "AD"),
	}
	answers := []model.Answer{{QuestionID: "1", AnswerValue: "b"}, {QuestionID: "2", AnswerValue: "√"}, {QuestionID: "3", AnswerValue: "AD"}}
	first := Grade(qs, answers)
	second := Grade(qs, answers)
	if first.Total != second.Total {
		t.Fatalf("totals differ: %d vs %d", first.Total, second.Total)
	}
	for i := range first.Answers {
		a, b := first.Answers[i], second.Answers[i]
		if *a.IsCorrect != *b.IsCorrect || *a.ScoreObtained != *b.ScoreObtained {
			t.Errorf("answer %d differs between runs", i)
		}
	}
}

func TestGradeTotalsAndDropsUnknown(t *testing.T) {
	qs := []model.Question{
		question("1", model.SingleChoice, 2, "A"),
		question("2", model.ShortAnswer, 4, "scanf"),
		question("3", model.QuestionType("ESSAY"), 10, ""),
		question("4", model.TrueFalse, 2, "√"),
	}
	answers := []model.Answer{
		{QuestionID: "1", AnswerValue: "A"},
		{QuestionID: "ghost", AnswerValue: "A"},
		{QuestionID: "2", AnswerValue: "use scanf()"},
		{QuestionID: "3", AnswerValue: "long text"},
		{QuestionID: "4", AnswerValue: ""},
	}
	res := Grade(qs, answers)
	if len(res.Answers) != 4 {
		t.Fatalf("expected 4 graded answers, got %d", len(res.Answers))
	}
	if res.Total != 6 {
		t.Errorf("Total = %d, want 6", res.Total)
	}
	sum := 0
	for _, a := range res.Answers {
		if a.QuestionID == "ghost" {
			t.Errorf("answer for unknown question was kept")
		}
		if a.ScoreObtained != nil {
			sum += *a.ScoreObtained
		}
	}
	if sum != res.Total {
		t.Errorf("sum of scores %d != total %d", sum, res.Total)
	}
	if res.Answers[2].QuestionID != "3" || res.Answers[2].IsCorrect != nil {
		t.Errorf("expected ungraded answer for question 3, got %+v", res.Answers[2])
	}
}

func TestGradeEmpty(t *testing.T) {
	res := Grade(nil, nil)
	if res.Total != 0 || len(res.Answers) != 0 {
		t.Errorf("expected empty result, got %+v", res)
	}
}
