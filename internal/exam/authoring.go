// Package exam holds the authoring, submission and analytics workflows
// that sit between the HTTP layer and persistence.
package exam

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/examhall/examhall/internal/importer"
	"github.com/examhall/examhall/internal/model"
)

// AllowedExtensions lists the accepted exam paper formats.
var AllowedExtensions = []string{".pdf", ".docx"}

// FileStore saves an uploaded exam paper and returns its reference.
type FileStore interface {
	Put(ctx context.Context, filename string, r io.Reader) (string, error)
}

// ExamRepository persists exams.
type ExamRepository interface {
	CreateExam(ctx context.Context, e *model.Exam) error
	GetExam(ctx context.Context, id string) (*model.Exam, error)
}

// CreateExamInput is everything needed to author an exam.
type CreateExamInput struct {
	Title           string               `json:"title" validate:"required"`
	DurationMinutes int                  `json:"duration_minutes" validate:"gt=0"`
	TotalScore      int                  `json:"total_score" validate:"gt=0"`
	FileName        string               `json:"file" validate:"required"`
	File            io.Reader            `json:"-" validate:"-"`
	Questions       []model.QuestionSpec `json:"questions" validate:"min=1,dive"`
}

// PointsAdvice compares the sum of question points with the exam's total
// score. It is informational only.
type PointsAdvice struct {
	Sum        int `json:"sum"`
	TotalScore int `json:"total_score"`
	// Delta is TotalScore minus Sum: positive when points are missing.
	Delta int `json:"delta"`
}

// Balanced reports whether the question points add up to the total score.
func (a PointsAdvice) Balanced() bool { return a.Delta == 0 }

// Advise computes the points advice for specs against totalScore.
func Advise(specs []model.QuestionSpec, totalScore int) PointsAdvice {
	sum := 0
	for _, s := range specs {
		sum += s.Points
	}
	return PointsAdvice{Sum: sum, TotalScore: totalScore, Delta: totalScore - sum}
}

// CreateExamResult is the persisted exam with the points advice.
type CreateExamResult struct {
	Exam   *model.Exam  `json:"exam"`
	Advice PointsAdvice `json:"advice"`
}

// Authoring validates and persists new exams.
type Authoring struct {
	repo     ExamRepository
	files    FileStore
	validate *validator.Validate
}

// NewAuthoring returns an authoring workflow backed by repo and files.
func NewAuthoring(repo ExamRepository, files FileStore) *Authoring {
	return &Authoring{repo: repo, files: files, validate: NewValidator()}
}

// Validate checks in without touching storage.
func (a *Authoring) Validate(in CreateExamInput) error {
	in.Title = strings.TrimSpace(in.Title)
	if err := CheckStruct(a.validate, in); err != nil {
		return err
	}
	ext := strings.ToLower(filepath.Ext(in.FileName))
	if !slices.Contains(AllowedExtensions, ext) {
		return invalid("file", "extension", strings.Join(AllowedExtensions, " "))
	}
	seen := make(map[int]bool, len(in.Questions))
	for i, q := range in.Questions {
		if seen[q.Order] {
			return invalid(fmt.Sprintf("questions[%d].order", i), "unique", strconv.Itoa(q.Order))
		}
		seen[q.Order] = true
	}
	return nil
}

// Create validates in, stores the paper and persists the exam with its
// questions. Orders are stored as given. A points mismatch with the total
// score never blocks creation; it is reported in the result.
func (a *Authoring) Create(ctx context.Context, in CreateExamInput) (*CreateExamResult, error) {
	if err := a.Validate(in); err != nil {
		return nil, err
	}
	if in.File == nil {
		return nil, invalid("file", "required", "")
	}

	ref, err := a.files.Put(ctx, in.FileName, in.File)
	if err != nil {
		return nil, fmt.Errorf("store exam file: %w", err)
	}

	e := &model.Exam{
		Title:           strings.TrimSpace(in.Title),
		DurationMinutes: in.DurationMinutes,
		TotalScore:      in.TotalScore,
		FilePath:        ref,
		Questions:       make([]model.Question, 0, len(in.Questions)),
	}
	for _, q := range in.Questions {
		e.Questions = append(e.Questions, model.Question{
			Order:         q.Order,
			Type:          q.Type,
			Points:        q.Points,
			Content:       q.Content,
			CorrectAnswer: q.CorrectAnswer,
		})
	}
	if err := a.repo.CreateExam(ctx, e); err != nil {
		return nil, fmt.Errorf("create exam: %w", err)
	}

	advice := Advise(in.Questions, in.TotalScore)
	if !advice.Balanced() {
		slog.Warn("exam points do not match total score",
			"exam", e.ID, "sum", advice.Sum, "total_score", advice.TotalScore)
	}
	return &CreateExamResult{Exam: e, Advice: advice}, nil
}

// Preview parses batch import text into question specs numbered after
// existing questions. It fails with ErrNoQuestionsRecognized when nothing
// in text matches a known format.
func (a *Authoring) Preview(text string, existing int) ([]model.QuestionSpec, error) {
	specs := importer.Parse(text, existing)
	if len(specs) == 0 {
		return nil, ErrNoQuestionsRecognized
	}
	return specs, nil
}

// Renumber returns a copy of specs sorted by order with orders rewritten to
// 1..N. Editors call it after removing questions.
func Renumber(specs []model.QuestionSpec) []model.QuestionSpec {
	out := slices.Clone(specs)
	slices.SortStableFunc(out, func(a, b model.QuestionSpec) int { return a.Order - b.Order })
	for i := range out {
		out[i].Order = i + 1
	}
	return out
}
