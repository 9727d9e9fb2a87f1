package exam

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/examhall/examhall/internal/grading"
	"github.com/examhall/examhall/internal/model"
)

// SubmissionRepository persists submissions and reads the exams they belong to.
type SubmissionRepository interface {
	GetExam(ctx context.Context, id string) (*model.Exam, error)
	FindSubmission(ctx context.Context, examID, userID string) (*model.Submission, error)
	CreateSubmission(ctx context.Context, sub *model.Submission) error
	GetSubmission(ctx context.Context, id string) (*model.Submission, error)
	ListSubmissions(ctx context.Context, examID string) ([]model.Submission, error)
	ApplyRegrade(ctx context.Context, submissionID string, updates []model.AnswerScore) (*model.Submission, error)
}

// Submissions grades and records student attempts and manual reviews.
type Submissions struct {
	repo SubmissionRepository
}

// NewSubmissions returns a submission workflow backed by repo.
func NewSubmissions(repo SubmissionRepository) *Submissions {
	return &Submissions{repo: repo}
}

// Submit grades answers for userID's attempt at examID and stores the
// result. A student gets one submission per exam: a second attempt fails
// with ErrAlreadySubmitted and nothing is written.
func (w *Submissions) Submit(ctx context.Context, examID, userID string, answers []model.Answer) (*model.Submission, error) {
	existing, err := w.repo.FindSubmission(ctx, examID, userID)
	if err != nil {
		return nil, fmt.Errorf("find submission: %w", err)
	}
	if existing != nil {
		return nil, ErrAlreadySubmitted
	}

	e, err := w.repo.GetExam(ctx, examID)
	if err != nil {
		return nil, err
	}

	res := grading.Grade(e.Questions, oneAnswerPerQuestion(e.Questions, answers))
	sub := &model.Submission{
		ExamID:  examID,
		UserID:  userID,
		Status:  model.StatusSubmitted,
		Score:   &res.Total,
		Answers: res.Answers,
	}
	if err := w.repo.CreateSubmission(ctx, sub); err != nil {
		if errors.Is(err, model.ErrDuplicateSubmission) {
			return nil, ErrAlreadySubmitted
		}
		return nil, fmt.Errorf("create submission: %w", err)
	}
	slog.Info("graded submission", "id", sub.ID, "exam", examID, "user", userID, "score", res.Total)
	return sub, nil
}

// oneAnswerPerQuestion lines answers up with questions: the first answer
// for each question wins, unanswered questions get an empty value and
// answers for unknown questions are dropped.
func oneAnswerPerQuestion(questions []model.Question, answers []model.Answer) []model.Answer {
	given := make(map[string]string, len(answers))
	for _, a := range answers {
		if _, dup := given[a.QuestionID]; !dup {
			given[a.QuestionID] = a.AnswerValue
		}
	}
	out := make([]model.Answer, 0, len(questions))
	for _, q := range questions {
		out = append(out, model.Answer{QuestionID: q.ID, AnswerValue: given[q.ID]})
	}
	return out
}

// Regrade applies manual scores to answers of one submission, recomputes
// its score and marks it graded. Scores are not capped at the question's
// points. Updates naming answers of other submissions are ignored; if none
// remain the call fails validation. An unknown submission is reported as
// model.ErrNotFound before the updates are checked.
func (w *Submissions) Regrade(ctx context.Context, submissionID string, updates []model.AnswerScore) (*model.Submission, error) {
	sub, err := w.repo.GetSubmission(ctx, submissionID)
	if err != nil {
		return nil, err
	}
	if len(updates) == 0 {
		return nil, invalid("answers", "required", "")
	}
	for i, u := range updates {
		if u.ScoreObtained < 0 {
			return nil, invalid(fmt.Sprintf("answers[%d].score_obtained", i), "min", "0")
		}
	}

	owned := make(map[string]bool, len(sub.Answers))
	for _, a := range sub.Answers {
		owned[a.ID] = true
	}
	kept := make([]model.AnswerScore, 0, len(updates))
	for _, u := range updates {
		if owned[u.AnswerID] {
			kept = append(kept, u)
		}
	}
	if len(kept) == 0 {
		return nil, invalid("answers", "oneof", "submission answers")
	}

	return w.repo.ApplyRegrade(ctx, submissionID, kept)
}

// Get returns one submission with its answers.
func (w *Submissions) Get(ctx context.Context, id string) (*model.Submission, error) {
	return w.repo.GetSubmission(ctx, id)
}

// ListForExam returns all submissions of an exam.
func (w *Submissions) ListForExam(ctx context.Context, examID string) ([]model.Submission, error) {
	if _, err := w.repo.GetExam(ctx, examID); err != nil {
		return nil, err
	}
	return w.repo.ListSubmissions(ctx, examID)
}

// ForUser returns userID's submission for examID, or model.ErrNotFound.
func (w *Submissions) ForUser(ctx context.Context, examID, userID string) (*model.Submission, error) {
	sub, err := w.repo.FindSubmission(ctx, examID, userID)
	if err != nil {
		return nil, err
	}
	if sub == nil {
		return nil, model.ErrNotFound
	}
	return sub, nil
}
