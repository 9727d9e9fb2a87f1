package stats

import (
	"testing"

	"github.com/examhall/examhall/internal/model"
)

func scored(score int, cohort *model.CohortRef, answers ...model.GradedAnswer) model.Submission {
	return model.Submission{Score: model.IntPtr(score), Status: model.StatusSubmitted, Cohort: cohort, Answers: answers}
}

func graded(questionID string, correct bool, score int) model.GradedAnswer {
	return model.GradedAnswer{QuestionID: questionID, IsCorrect: model.BoolPtr(correct), ScoreObtained: model.IntPtr(score)}
}

func TestAggregateSummaryAndDistribution(t *testing.T) {
	exam := &model.Exam{ID: "e1", Title: "Midterm", TotalScore: 100}
	subs := []model.Submission{
		scored(90, nil),
		scored(55, nil),
		scored(60, nil),
		scored(30, nil),
	}
	got := Aggregate(exam, subs)

	want := model.ScoreSummary{Total: 4, Average: 59, Max: 90, Min: 30, PassRate: 50}
	if got.Summary != want {
		t.Errorf("summary = %+v, want %+v", got.Summary, want)
	}

	wantBuckets := map[string]int{"0-59": 2, "60-69": 1, "70-79": 0, "80-89": 0, "90-100": 1}
	if len(got.ScoreDistribution) != 5 {
		t.Fatalf("expected 5 buckets, got %d", len(got.ScoreDistribution))
	}
	for _, b := range got.ScoreDistribution {
		if b.Count != wantBuckets[b.Range] {
			t.Errorf("bucket %s = %d, want %d", b.Range, b.Count, wantBuckets[b.Range])
		}
	}
	if got.Exam.ID != "e1" || got.Exam.TotalScore != 100 {
		t.Errorf("unexpected exam ref %+v", got.Exam)
	}
}

func TestAggregateBucketBoundaries(t *testing.T) {
	exam := &model.Exam{TotalScore: 50}
	// 29/50 = 58%, 30/50 = 60%, 45/50 = 90%, 50/50 = 100%
	subs := []model.Submission{scored(29, nil), scored(30, nil), scored(45, nil), scored(50, nil)}
	got := Aggregate(exam, subs)
	counts := []int{1, 1, 0, 0, 2}
	for i, b := range got.ScoreDistribution {
		if b.Count != counts[i] {
			t.Errorf("bucket %s = %d, want %d", b.Range, b.Count, counts[i])
		}
	}
	if got.Summary.PassRate != 75 {
		t.Errorf("pass rate = %d, want 75", got.Summary.PassRate)
	}
}

func TestAggregateEmpty(t *testing.T) {
	exam := &model.Exam{ID: "e1", TotalScore: 100, Questions: []model.Question{{ID: "q1", Order: 1}}}
	unscored := model.Submission{ID: "s1"}
	for _, subs := range [][]model.Submission{nil, {unscored}} {
		got := Aggregate(exam, subs)
		if got.Summary != (model.ScoreSummary{}) {
			t.Errorf("expected zero summary, got %+v", got.Summary)
		}
		if len(got.ScoreDistribution) != 0 || len(got.CohortPerformance) != 0 || len(got.QuestionAnalysis) != 0 {
			t.Errorf("expected empty lists, got %+v", got)
		}
		if got.ScoreDistribution == nil || got.CohortPerformance == nil || got.QuestionAnalysis == nil {
			t.Errorf("expected non-nil empty lists for JSON output")
		}
	}
}

func TestAggregateCohorts(t *testing.T) {
	a := &model.CohortRef{ID: "c1", Name: "Class A"}
	b := &model.CohortRef{ID: "c2", Name: "Class B"}
	exam := &model.Exam{TotalScore: 10}
	subs := []model.Submission{
		scored(9, b),
		scored(4, a),
		scored(7, nil),
		scored(6, b),
		scored(5, a),
	}
	got := Aggregate(exam, subs)

	want := []model.CohortScore{
		{ID: "c2", Name: "Class B", Count: 2, Average: 8, Rate: 75},
		{ID: "c1", Name: "Class A", Count: 2, Average: 5, Rate: 45},
		{ID: UnclassifiedCohortID, Name: UnclassifiedCohortID, Count: 1, Average: 7, Rate: 70},
	}
	if len(got.CohortPerformance) != len(want) {
		t.Fatalf("expected %d cohorts, got %+v", len(want), got.CohortPerformance)
	}
	for i, w := range want {
		if got.CohortPerformance[i] != w {
			t.Errorf("cohort %d = %+v, want %+v", i, got.CohortPerformance[i], w)
		}
	}
}

func TestAggregateQuestionAnalysis(t *testing.T) {
	exam := &model.Exam{
		TotalScore: 6,
		Questions: []model.Question{
			{ID: "q1", Order: 1, Type: model.SingleChoice, Points: 2},
			{ID: "q2", Order: 2, Type: model.ShortAnswer, Points: 4},
		},
	}
	subs := []model.Submission{
		scored(6, nil, graded("q1", true, 2), graded("q2", true, 4)),
		scored(2, nil, graded("q1", true, 2), graded("q2", false, 0)),
		// No row for q2: counts as zero but stays in the denominator.
		scored(0, nil, graded("q1", false, 0)),
	}
	got := Aggregate(exam, subs)
	if len(got.QuestionAnalysis) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(got.QuestionAnalysis))
	}

	q1 := got.QuestionAnalysis[0]
	if q1.ID != "q1" || q1.Order != 1 || q1.CorrectRate != 67 || q1.AverageScore != 1.3 {
		t.Errorf("q1 = %+v", q1)
	}
	q2 := got.QuestionAnalysis[1]
	if q2.CorrectRate != 33 || q2.AverageScore != 1.3 || q2.Points != 4 {
		t.Errorf("q2 = %+v", q2)
	}
}

func TestAggregateUngradedAnswersCountAsZero(t *testing.T) {
	exam := &model.Exam{TotalScore: 4, Questions: []model.Question{{ID: "q1", Order: 1, Points: 4}}}
	subs := []model.Submission{
		scored(0, nil, model.GradedAnswer{QuestionID: "q1", AnswerValue: "essay"}),
		scored(4, nil, graded("q1", true, 4)),
	}
	got := Aggregate(exam, subs)
	row := got.QuestionAnalysis[0]
	if row.CorrectRate != 50 || row.AverageScore != 2 {
		t.Errorf("row = %+v", row)
	}
}

func TestRoundDivHalfAwayFromZero(t *testing.T) {
	tests := []struct {
		num, den float64
		want     int
	}{
		{1, 2, 1},
		{5, 2, 3},
		{235, 4, 59},
		{250, 4, 63},
		{0, 3, 0},
	}
	for _, tt := range tests {
		if got := roundDiv(tt.num, tt.den); got != tt.want {
			t.Errorf("roundDiv(%v, %v) = %d, want %d", tt.num, tt.den, got, tt.want)
		}
	}
}
