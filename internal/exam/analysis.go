package exam

import (
	"context"

	"github.com/examhall/examhall/internal/model"
	"github.com/examhall/examhall/internal/stats"
)

// AnalysisRepository reads what the statistics report needs.
type AnalysisRepository interface {
	GetExam(ctx context.Context, id string) (*model.Exam, error)
	ListScoredSubmissions(ctx context.Context, examID string) ([]model.Submission, error)
}

// Analysis produces exam statistics.
type Analysis struct {
	repo AnalysisRepository
}

func NewAnalysis(repo AnalysisRepository) *Analysis {
	return &Analysis{repo: repo}
}

// ForExam computes the statistics report for examID.
func (a *Analysis) ForExam(ctx context.Context, examID string) (model.ExamStats, error) {
	e, err := a.repo.GetExam(ctx, examID)
	if err != nil {
		return model.ExamStats{}, err
	}
	subs, err := a.repo.ListScoredSubmissions(ctx, examID)
	if err != nil {
		return model.ExamStats{}, err
	}
	return stats.Aggregate(e, subs), nil
}
