package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/examhall/examhall/internal/model"
)

const submissionColumns = `s.id, s.exam_id, s.user_id, s.status, s.score, s.submitted_at, c.id, c.name`

const submissionFrom = `
	FROM submissions s
	JOIN users u ON u.id = s.user_id
	LEFT JOIN cohorts c ON c.id = u.cohort_id`

// CreateSubmission inserts a submission with its graded answers in one
// transaction. A second submission for the same exam and user fails with
// model.ErrDuplicateSubmission.
func (s *Store) CreateSubmission(ctx context.Context, sub *model.Submission) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	sub.ID = uuid.NewString()
	sub.SubmittedAt = time.Now().UTC()
	_, err = s.exec(ctx, tx,
		`INSERT INTO submissions (id, exam_id, user_id, status, score, submitted_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		sub.ID, sub.ExamID, sub.UserID, sub.Status, nullInt(sub.Score), sub.SubmittedAt,
	)
	if isUniqueViolation(err) {
		return model.ErrDuplicateSubmission
	}
	if err != nil {
		return fmt.Errorf("insert submission: %w", err)
	}

	for i := range sub.Answers {
		a := &sub.Answers[i]
		a.ID = uuid.NewString()
		a.SubmissionID = sub.ID
		_, err := s.exec(ctx, tx,
			`INSERT INTO graded_answers (id, submission_id, question_id, answer_value, is_correct, score_obtained, teacher_comment)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			a.ID, a.SubmissionID, a.QuestionID, a.AnswerValue,
			nullBool(a.IsCorrect), nullInt(a.ScoreObtained), nullString(a.TeacherComment),
		)
		if err != nil {
			return fmt.Errorf("insert answer for question %s: %w", a.QuestionID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		if isUniqueViolation(err) {
			return model.ErrDuplicateSubmission
		}
		return err
	}
	slog.Info("created submission", "id", sub.ID, "exam", sub.ExamID, "user", sub.UserID, "score", sub.Score)
	return nil
}

// FindSubmission returns the submission of userID for examID, or nil if the
// user has not submitted.
func (s *Store) FindSubmission(ctx context.Context, examID, userID string) (*model.Submission, error) {
	sub, err := s.scanSubmission(s.queryRow(ctx, s.db,
		`SELECT `+submissionColumns+submissionFrom+` WHERE s.exam_id = ? AND s.user_id = ?`,
		examID, userID,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if sub.Answers, err = s.listAnswers(ctx, s.db, sub.ID); err != nil {
		return nil, err
	}
	return sub, nil
}

// GetSubmission returns a submission with its answers and the student's cohort.
func (s *Store) GetSubmission(ctx context.Context, id string) (*model.Submission, error) {
	return s.getSubmission(ctx, s.db, id)
}

func (s *Store) getSubmission(ctx context.Context, q querier, id string) (*model.Submission, error) {
	sub, err := s.scanSubmission(s.queryRow(ctx, q,
		`SELECT `+submissionColumns+submissionFrom+` WHERE s.id = ?`, id,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if sub.Answers, err = s.listAnswers(ctx, q, sub.ID); err != nil {
		return nil, err
	}
	return sub, nil
}

// ListSubmissions returns every submission for an exam with answers, oldest first.
func (s *Store) ListSubmissions(ctx context.Context, examID string) ([]model.Submission, error) {
	return s.listSubmissions(ctx, examID, false)
}

// ListScoredSubmissions returns the submissions for an exam that have a
// score, with answers and cohort, as needed for analytics.
func (s *Store) ListScoredSubmissions(ctx context.Context, examID string) ([]model.Submission, error) {
	return s.listSubmissions(ctx, examID, true)
}

func (s *Store) listSubmissions(ctx context.Context, examID string, scoredOnly bool) ([]model.Submission, error) {
	query := `SELECT ` + submissionColumns + submissionFrom + ` WHERE s.exam_id = ?`
	if scoredOnly {
		query += ` AND s.score IS NOT NULL`
	}
	query += ` ORDER BY s.submitted_at, s.id`

	rows, err := s.query(ctx, s.db, query, examID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	subs := []model.Submission{}
	index := make(map[string]int)
	for rows.Next() {
		sub, err := s.scanSubmission(rows)
		if err != nil {
			return nil, err
		}
		index[sub.ID] = len(subs)
		subs = append(subs, *sub)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(subs) == 0 {
		return subs, nil
	}

	// One query for all answers of the exam instead of one per submission.
	arows, err := s.query(ctx, s.db,
		`SELECT a.id, a.submission_id, a.question_id, a.answer_value, a.is_correct, a.score_obtained, a.teacher_comment
		 FROM graded_answers a
		 JOIN submissions s ON s.id = a.submission_id
		 JOIN questions q ON q.id = a.question_id
		 WHERE s.exam_id = ?
		 ORDER BY q.question_order`, examID,
	)
	if err != nil {
		return nil, err
	}
	defer arows.Close()
	for arows.Next() {
		a, err := scanAnswer(arows)
		if err != nil {
			return nil, err
		}
		if i, ok := index[a.SubmissionID]; ok {
			subs[i].Answers = append(subs[i].Answers, a)
		}
	}
	return subs, arows.Err()
}

// ApplyRegrade writes manual scores and comments for answers of one
// submission, recomputes the submission score as the sum of all answer
// scores and marks it graded. Everything happens in one transaction.
// Updates for answers of other submissions are ignored.
func (s *Store) ApplyRegrade(ctx context.Context, submissionID string, updates []model.AnswerScore) (*model.Submission, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	for _, u := range updates {
		_, err := s.exec(ctx, tx,
			`UPDATE graded_answers SET score_obtained = ?, teacher_comment = ?
			 WHERE id = ? AND submission_id = ?`,
			u.ScoreObtained, nullString(u.Comment), u.AnswerID, submissionID,
		)
		if err != nil {
			return nil, fmt.Errorf("update answer %s: %w", u.AnswerID, err)
		}
	}

	var total int
	err = s.queryRow(ctx, tx,
		`SELECT COALESCE(SUM(score_obtained), 0) FROM graded_answers WHERE submission_id = ?`, submissionID,
	).Scan(&total)
	if err != nil {
		return nil, fmt.Errorf("sum scores: %w", err)
	}

	res, err := s.exec(ctx, tx,
		`UPDATE submissions SET score = ?, status = ? WHERE id = ?`,
		total, model.StatusGraded, submissionID,
	)
	if err != nil {
		return nil, fmt.Errorf("update submission: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return nil, model.ErrNotFound
	}

	sub, err := s.getSubmission(ctx, tx, submissionID)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	slog.Info("regraded submission", "id", submissionID, "updates", len(updates), "score", total)
	return sub, nil
}

func (s *Store) listAnswers(ctx context.Context, q querier, submissionID string) ([]model.GradedAnswer, error) {
	rows, err := s.query(ctx, q,
		`SELECT a.id, a.submission_id, a.question_id, a.answer_value, a.is_correct, a.score_obtained, a.teacher_comment
		 FROM graded_answers a
		 JOIN questions q ON q.id = a.question_id
		 WHERE a.submission_id = ?
		 ORDER BY q.question_order`, submissionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var answers []model.GradedAnswer
	for rows.Next() {
		a, err := scanAnswer(rows)
		if err != nil {
			return nil, err
		}
		answers = append(answers, a)
	}
	return answers, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func (s *Store) scanSubmission(row scanner) (*model.Submission, error) {
	var sub model.Submission
	var score sql.NullInt64
	var cohortID, cohortName sql.NullString
	if err := row.Scan(&sub.ID, &sub.ExamID, &sub.UserID, &sub.Status, &score, &sub.SubmittedAt, &cohortID, &cohortName); err != nil {
		return nil, err
	}
	sub.Score = intPtr(score)
	if cohortID.Valid {
		sub.Cohort = &model.CohortRef{ID: cohortID.String, Name: cohortName.String}
	}
	return &sub, nil
}

func scanAnswer(row scanner) (model.GradedAnswer, error) {
	var a model.GradedAnswer
	var correct sql.NullBool
	var score sql.NullInt64
	var comment sql.NullString
	if err := row.Scan(&a.ID, &a.SubmissionID, &a.QuestionID, &a.AnswerValue, &correct, &score, &comment); err != nil {
		return a, err
	}
	a.IsCorrect = boolPtr(correct)
	a.ScoreObtained = intPtr(score)
	a.TeacherComment = stringPtr(comment)
	return a, nil
}
