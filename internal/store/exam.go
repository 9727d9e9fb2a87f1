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

// CreateExam inserts an exam and its questions in one transaction. It
// assigns ids and the creation time on e and its questions.
func (s *Store) CreateExam(ctx context.Context, e *model.Exam) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	e.ID = uuid.NewString()
	e.CreatedAt = time.Now().UTC()
	_, err = s.exec(ctx, tx,
		`INSERT INTO exams (id, title, duration_minutes, total_score, file_path, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		e.ID, e.Title, e.DurationMinutes, e.TotalScore, e.FilePath, e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert exam: %w", err)
	}

	for i := range e.Questions {
		q := &e.Questions[i]
		q.ID = uuid.NewString()
		q.ExamID = e.ID
		_, err := s.exec(ctx, tx,
			`INSERT INTO questions (id, exam_id, question_order, type, points, content, correct_answer)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			q.ID, q.ExamID, q.Order, q.Type, q.Points, nullString(q.Content), nullString(q.CorrectAnswer),
		)
		if err != nil {
			return fmt.Errorf("insert question %d: %w", q.Order, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	slog.Info("created exam", "id", e.ID, "title", e.Title, "questions", len(e.Questions))
	return nil
}

// GetExam returns an exam with its questions in order.
func (s *Store) GetExam(ctx context.Context, id string) (*model.Exam, error) {
	var e model.Exam
	err := s.queryRow(ctx, s.db,
		`SELECT id, title, duration_minutes, total_score, file_path, created_at
		 FROM exams WHERE id = ?`, id,
	).Scan(&e.ID, &e.Title, &e.DurationMinutes, &e.TotalScore, &e.FilePath, &e.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	e.Questions, err = s.listQuestions(ctx, id)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (s *Store) listQuestions(ctx context.Context, examID string) ([]model.Question, error) {
	rows, err := s.query(ctx, s.db,
		`SELECT id, exam_id, question_order, type, points, content, correct_answer
		 FROM questions WHERE exam_id = ? ORDER BY question_order`, examID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var questions []model.Question
	for rows.Next() {
		var q model.Question
		var content, answer sql.NullString
		if err := rows.Scan(&q.ID, &q.ExamID, &q.Order, &q.Type, &q.Points, &content, &answer); err != nil {
			return nil, err
		}
		q.Content = stringPtr(content)
		q.CorrectAnswer = stringPtr(answer)
		questions = append(questions, q)
	}
	return questions, rows.Err()
}

// ListExams returns all exams, newest first.
func (s *Store) ListExams(ctx context.Context) ([]model.ExamSummary, error) {
	rows, err := s.query(ctx, s.db,
		`SELECT e.id, e.title, e.duration_minutes, e.total_score, e.created_at,
		        (SELECT COUNT(*) FROM questions q WHERE q.exam_id = e.id)
		 FROM exams e ORDER BY e.created_at DESC, e.id`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	exams := []model.ExamSummary{}
	for rows.Next() {
		var e model.ExamSummary
		if err := rows.Scan(&e.ID, &e.Title, &e.DurationMinutes, &e.TotalScore, &e.CreatedAt, &e.QuestionCount); err != nil {
			return nil, err
		}
		exams = append(exams, e)
	}
	return exams, rows.Err()
}

// DeleteExam removes an exam with its questions, submissions and graded
// answers.
func (s *Store) DeleteExam(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmts := []string{
		`DELETE FROM graded_answers WHERE submission_id IN (SELECT id FROM submissions WHERE exam_id = ?)`,
		`DELETE FROM submissions WHERE exam_id = ?`,
		`DELETE FROM questions WHERE exam_id = ?`,
	}
	for _, q := range stmts {
		if _, err := s.exec(ctx, tx, q, id); err != nil {
			return fmt.Errorf("delete exam %s: %w", id, err)
		}
	}
	res, err := s.exec(ctx, tx, `DELETE FROM exams WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete exam %s: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return model.ErrNotFound
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	slog.Info("deleted exam", "id", id)
	return nil
}
