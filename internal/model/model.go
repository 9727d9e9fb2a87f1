package model

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned by the store when a referenced record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrDuplicateSubmission is returned when a (exam, user) pair already has a submission.
	ErrDuplicateSubmission = errors.New("duplicate submission")
)

// Role represents a user's access level.
type Role string

const (
	// RoleAdmin authors exams, reviews submissions and reads analytics.
	RoleAdmin Role = "ADMIN"
	// RoleStudent takes exams.
	RoleStudent Role = "STUDENT"
)

// User represents a system user.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Name         string    `json:"name"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	CohortID     *string   `json:"cohort_id,omitempty"`
	Active       bool      `json:"active"`
	CreatedAt    time.Time `json:"created_at"`
}

// Cohort is the class or section a student belongs to.
type Cohort struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Disabled  bool      `json:"disabled"`
	CreatedAt time.Time `json:"created_at"`
}

// CohortRef is the cohort attached to a submission for analytics.
type CohortRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Identity is the current actor as supplied by the identity layer.
type Identity struct {
	UserID   string
	Role     Role
	CohortID string
}

type identityCtxKey struct{}

// ContextWithIdentity stores the authenticated actor in the request context.
func ContextWithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityCtxKey{}, id)
}

// IdentityFromContext retrieves the authenticated actor from context.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityCtxKey{}).(Identity)
	return id, ok
}

// QuestionType determines how an answer is graded.
type QuestionType string

const (
	SingleChoice   QuestionType = "SINGLE_CHOICE"
	MultipleChoice QuestionType = "MULTIPLE_CHOICE"
	TrueFalse      QuestionType = "TRUE_FALSE"
	ShortAnswer    QuestionType = "SHORT_ANSWER"
)

// Valid reports whether t is one of the known question types.
func (t QuestionType) Valid() bool {
	switch t {
	case SingleChoice, MultipleChoice, TrueFalse, ShortAnswer:
		return true
	}
	return false
}

// QuestionSpec is a question before it belongs to a persisted exam.
// The batch importer produces these and exam authoring consumes them.
type QuestionSpec struct {
	Order         int          `json:"order" validate:"min=1"`
	Type          QuestionType `json:"type" validate:"required,oneof=SINGLE_CHOICE MULTIPLE_CHOICE TRUE_FALSE SHORT_ANSWER"`
	Points        int          `json:"points" validate:"min=0"`
	Content       *string      `json:"content,omitempty"`
	CorrectAnswer *string      `json:"correct_answer,omitempty"`
}

// Question is one graded item of an exam.
type Question struct {
	ID            string       `json:"id"`
	ExamID        string       `json:"exam_id"`
	Order         int          `json:"order"`
	Type          QuestionType `json:"type"`
	Points        int          `json:"points"`
	Content       *string      `json:"content,omitempty"`
	CorrectAnswer *string      `json:"correct_answer,omitempty"`
}

// Exam is an assessment with an attached paper file and ordered questions.
type Exam struct {
	ID              string     `json:"id"`
	Title           string     `json:"title"`
	DurationMinutes int        `json:"duration_minutes"`
	TotalScore      int        `json:"total_score"`
	FilePath        string     `json:"file_path"`
	CreatedAt       time.Time  `json:"created_at"`
	Questions       []Question `json:"questions,omitempty"`
}

// ExamSummary is the list view of an exam.
type ExamSummary struct {
	ID              string    `json:"id"`
	Title           string    `json:"title"`
	DurationMinutes int       `json:"duration_minutes"`
	TotalScore      int       `json:"total_score"`
	QuestionCount   int       `json:"question_count"`
	CreatedAt       time.Time `json:"created_at"`
}

// Answer is raw student input for one question. An empty value means unanswered.
type Answer struct {
	QuestionID  string `json:"question_id"`
	AnswerValue string `json:"answer_value"`
}

// GradedAnswer is a stored answer with its grading outcome.
// IsCorrect and ScoreObtained are nil while the answer awaits manual review.
type GradedAnswer struct {
	ID             string  `json:"id"`
	SubmissionID   string  `json:"submission_id"`
	QuestionID     string  `json:"question_id"`
	AnswerValue    string  `json:"answer_value"`
	IsCorrect      *bool   `json:"is_correct"`
	ScoreObtained  *int    `json:"score_obtained"`
	TeacherComment *string `json:"teacher_comment,omitempty"`
}

// SubmissionStatus represents the review state of a submission.
type SubmissionStatus string

const (
	StatusSubmitted SubmissionStatus = "SUBMITTED"
	StatusGraded    SubmissionStatus = "GRADED"
)

// Submission is one student's complete attempt at an exam.
type Submission struct {
	ID          string           `json:"id"`
	ExamID      string           `json:"exam_id"`
	UserID      string           `json:"user_id"`
	Status      SubmissionStatus `json:"status"`
	Score       *int             `json:"score"`
	SubmittedAt time.Time        `json:"submitted_at"`
	Answers     []GradedAnswer   `json:"answers,omitempty"`
	Cohort      *CohortRef       `json:"cohort,omitempty"`
}

// AnswerScore is one manual score adjustment applied during review.
type AnswerScore struct {
	AnswerID      string  `json:"answer_id"`
	ScoreObtained int     `json:"score_obtained"`
	Comment       *string `json:"teacher_comment,omitempty"`
}

// IntPtr returns a pointer to v.
func IntPtr(v int) *int { return &v }

// BoolPtr returns a pointer to v.
func BoolPtr(v bool) *bool { return &v }

// StringPtr returns a pointer to v.
func StringPtr(v string) *string { return &v }
