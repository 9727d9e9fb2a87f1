// Package stats computes exam analytics from graded submissions.
package stats

import (
	"math"

	"github.com/examhall/examhall/internal/model"
)

// UnclassifiedCohortID groups submissions from students without a cohort.
// Callers that render reports replace its name with a localised label.
const UnclassifiedCohortID = "unclassified"

// passFraction is the share of the total score needed to pass.
const passFraction = 0.6

var buckets = []struct {
	label string
	upper float64 // exclusive, except the last bucket which takes the rest
}{
	{"0-59", 60},
	{"60-69", 70},
	{"70-79", 80},
	{"80-89", 90},
	{"90-100", math.Inf(1)},
}

// Aggregate builds the analytics report for exam over submissions.
// Submissions without a score are ignored. With no scored submissions the
// report has zero summary values and empty lists.
func Aggregate(exam *model.Exam, submissions []model.Submission) model.ExamStats {
	out := model.ExamStats{
		Exam:              model.ExamRef{ID: exam.ID, Title: exam.Title, TotalScore: exam.TotalScore},
		ScoreDistribution: []model.ScoreBucket{},
		CohortPerformance: []model.CohortScore{},
		QuestionAnalysis:  []model.QuestionStat{},
	}

	scored := make([]model.Submission, 0, len(submissions))
	for _, s := range submissions {
		if s.Score != nil {
			scored = append(scored, s)
		}
	}
	if len(scored) == 0 || exam.TotalScore <= 0 {
		return out
	}

	out.Summary = summarize(scored, exam.TotalScore)
	out.ScoreDistribution = distribute(scored, exam.TotalScore)
	out.CohortPerformance = byCohort(scored, exam.TotalScore)
	out.QuestionAnalysis = perQuestion(exam.Questions, scored)
	return out
}

func summarize(subs []model.Submission, totalScore int) model.ScoreSummary {
	threshold := float64(totalScore) * passFraction
	n := len(subs)
	sum, passed := 0, 0
	lo, hi := *subs[0].Score, *subs[0].Score
	for _, s := range subs {
		v := *s.Score
		sum += v
		lo = min(lo, v)
		hi = max(hi, v)
		if float64(v) >= threshold {
			passed++
		}
	}
	return model.ScoreSummary{
		Total:    n,
		Average:  roundDiv(float64(sum), float64(n)),
		Max:      hi,
		Min:      lo,
		PassRate: roundDiv(100*float64(passed), float64(n)),
	}
}

func distribute(subs []model.Submission, totalScore int) []model.ScoreBucket {
	out := make([]model.ScoreBucket, len(buckets))
	for i, b := range buckets {
		out[i].Range = b.label
	}
	for _, s := range subs {
		pct := 100 * float64(*s.Score) / float64(totalScore)
		for i, b := range buckets {
			if pct < b.upper {
				out[i].Count++
				break
			}
		}
	}
	return out
}

func byCohort(subs []model.Submission, totalScore int) []model.CohortScore {
	type acc struct {
		name       string
		sum, count int
	}
	var order []string
	groups := make(map[string]*acc)
	for _, s := range subs {
		id, name := UnclassifiedCohortID, UnclassifiedCohortID
		if s.Cohort != nil {
			id, name = s.Cohort.ID, s.Cohort.Name
		}
		g, ok := groups[id]
		if !ok {
			g = &acc{name: name}
			groups[id] = g
			order = append(order, id)
		}
		g.sum += *s.Score
		g.count++
	}

	out := make([]model.CohortScore, 0, len(order))
	for _, id := range order {
		g := groups[id]
		out = append(out, model.CohortScore{
			ID:      id,
			Name:    g.name,
			Count:   g.count,
			Average: roundDiv(float64(g.sum), float64(g.count)),
			Rate:    roundDiv(100*float64(g.sum), float64(g.count*totalScore)),
		})
	}
	return out
}

func perQuestion(questions []model.Question, subs []model.Submission) []model.QuestionStat {
	n := float64(len(subs))
	out := make([]model.QuestionStat, 0, len(questions))
	for _, q := range questions {
		correct, points := 0, 0
		for _, s := range subs {
			a := findAnswer(s.Answers, q.ID)
			if a == nil {
				continue
			}
			if a.IsCorrect != nil && *a.IsCorrect {
				correct++
			}
			if a.ScoreObtained != nil {
				points += *a.ScoreObtained
			}
		}
		out = append(out, model.QuestionStat{
			ID:           q.ID,
			Order:        q.Order,
			Type:         q.Type,
			Points:       q.Points,
			CorrectRate:  roundDiv(100*float64(correct), n),
			AverageScore: math.Round(float64(points)/n*10) / 10,
		})
	}
	return out
}

func findAnswer(answers []model.GradedAnswer, questionID string) *model.GradedAnswer {
	for i := range answers {
		if answers[i].QuestionID == questionID {
			return &answers[i]
		}
	}
	return nil
}

// roundDiv rounds num/den half away from zero.
func roundDiv(num, den float64) int {
	return int(math.Round(num / den))
}
