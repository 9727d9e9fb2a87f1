package exam

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/examhall/examhall/internal/model"
	"github.com/examhall/examhall/internal/storage"
	"github.com/examhall/examhall/internal/store"
)

type fixture struct {
	store       *store.Store
	files       *storage.FS
	authoring   *Authoring
	submissions *Submissions
	analysis    *Analysis
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	s, err := store.New(store.DriverSQLite, ":memory:")
	if err != nil {
		t.Fatalf("store.New: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	fs, err := storage.NewFS(t.TempDir())
	if err != nil {
		t.Fatalf("storage.NewFS: %v", err)
	}
	return &fixture{
		store:       s,
		files:       fs,
		authoring:   NewAuthoring(s, fs),
		submissions: NewSubmissions(s),
		analysis:    NewAnalysis(s),
	}
}

func (f *fixture) student(t *testing.T, username string, cohortID *string) string {
	t.Helper()
	id, err := f.store.CreateUser(context.Background(), model.User{
		Username: username, PasswordHash: "x", Role: model.RoleStudent, CohortID: cohortID, Active: true,
	})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	return id
}

func validInput(questions ...model.QuestionSpec) CreateExamInput {
	if len(questions) == 0 {
		questions = []model.QuestionSpec{
			{Order: 1, Type: model.SingleChoice, Points: 2, CorrectAnswer: model.StringPtr("A")},
			{Order: 2, Type: model.TrueFalse, Points: 2, CorrectAnswer: model.StringPtr("√")},
			{Order: 3, Type: model.ShortAnswer, Points: 6, CorrectAnswer: model.StringPtr("int")},
		}
	}
	return CreateExamInput{
		Title:           "Final",
		DurationMinutes: 90,
		TotalScore:      10,
		FileName:        "final.PDF",
		File:            strings.NewReader("%PDF"),
		Questions:       questions,
	}
}

func (f *fixture) createExam(t *testing.T) *model.Exam {
	t.Helper()
	res, err := f.authoring.Create(context.Background(), validInput())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	return res.Exam
}

func TestCreateExam(t *testing.T) {
	f := newFixture(t)
	res, err := f.authoring.Create(context.Background(), validInput())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if !res.Advice.Balanced() || res.Advice.Sum != 10 {
		t.Errorf("unexpected advice %+v", res.Advice)
	}
	if !strings.HasPrefix(res.Exam.FilePath, "/uploads/final-") {
		t.Errorf("unexpected file path %q", res.Exam.FilePath)
	}
	name := strings.TrimPrefix(res.Exam.FilePath, "/uploads/")
	if _, err := os.Stat(filepath.Join(f.files.Dir(), name)); err != nil {
		t.Errorf("paper not stored: %v", err)
	}

	got, err := f.store.GetExam(context.Background(), res.Exam.ID)
	if err != nil {
		t.Fatalf("GetExam: %v", err)
	}
	if len(got.Questions) != 3 || got.Questions[2].Type != model.ShortAnswer {
		t.Errorf("unexpected questions %+v", got.Questions)
	}
}

func TestCreateExamPointsMismatchIsAdvisory(t *testing.T) {
	f := newFixture(t)
	in := validInput(model.QuestionSpec{Order: 1, Type: model.SingleChoice, Points: 3, CorrectAnswer: model.StringPtr("B")})
	res, err := f.authoring.Create(context.Background(), in)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if res.Advice.Balanced() || res.Advice.Delta != 7 {
		t.Errorf("expected delta 7, got %+v", res.Advice)
	}
}

func TestCreateExamValidation(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*CreateExamInput)
		wantField string
		wantTag   string
	}{
		{"blank title", func(in *CreateExamInput) { in.Title = "   " }, "title", "required"},
		{"zero duration", func(in *CreateExamInput) { in.DurationMinutes = 0 }, "duration_minutes", "gt"},
		{"negative total", func(in *CreateExamInput) { in.TotalScore = -5 }, "total_score", "gt"},
		{"no questions", func(in *CreateExamInput) { in.Questions = nil }, "questions", "min"},
		{"missing file", func(in *CreateExamInput) { in.FileName = "" }, "file", "required"},
		{"bad extension", func(in *CreateExamInput) { in.FileName = "paper.txt" }, "file", "extension"},
		{"order zero", func(in *CreateExamInput) { in.Questions[0].Order = 0 }, "questions[0].order", "min"},
		{"negative points", func(in *CreateExamInput) { in.Questions[1].Points = -1 }, "questions[1].points", "min"},
		{"unknown type", func(in *CreateExamInput) { in.Questions[2].Type = "ESSAY" }, "questions[2].type", "oneof"},
		{"duplicate order", func(in *CreateExamInput) { in.Questions[2].Order = 1 }, "questions[2].order", "unique"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			in := validInput()
			tt.mutate(&in)
			_, err := f.authoring.Create(context.Background(), in)
			var ve *ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if ve.Field != tt.wantField || ve.Reason != tt.wantTag {
				t.Errorf("got %s/%s, want %s/%s", ve.Field, ve.Reason, tt.wantField, tt.wantTag)
			}
			list, err := f.store.ListExams(context.Background())
			if err != nil {
				t.Fatalf("ListExams: %v", err)
			}
			if len(list) != 0 {
				t.Errorf("exam persisted despite validation failure")
			}
			entries, _ := os.ReadDir(f.files.Dir())
			if len(entries) != 0 {
				t.Errorf("file stored despite validation failure")
			}
		})
	}
}

func TestPreview(t *testing.T) {
	f := newFixture(t)
	specs, err := f.authoring.Preview("1.A | 2.B | 3.√", 2)
	if err != nil {
		t.Fatalf("Preview: %v", err)
	}
	if len(specs) != 3 || specs[0].Order != 3 || specs[2].Order != 5 {
		t.Errorf("unexpected specs %+v", specs)
	}
	if _, err := f.authoring.Preview("nothing to see", 0); !errors.Is(err, ErrNoQuestionsRecognized) {
		t.Errorf("expected ErrNoQuestionsRecognized, got %v", err)
	}
}

func TestRenumberAndAdvise(t *testing.T) {
	in := []model.QuestionSpec{
		{Order: 4, Points: 1},
		{Order: 1, Points: 2},
		{Order: 7, Points: 3},
	}
	out := Renumber(in)
	for i, s := range out {
		if s.Order != i+1 {
			t.Errorf("out[%d].Order = %d", i, s.Order)
		}
	}
	if out[0].Points != 2 || out[2].Points != 3 {
		t.Errorf("renumber did not keep relative order: %+v", out)
	}
	if in[0].Order != 4 {
		t.Error("Renumber modified its input")
	}

	adv := Advise(in, 5)
	if adv.Sum != 6 || adv.Delta != -1 || adv.Balanced() {
		t.Errorf("unexpected advice %+v", adv)
	}
}

func TestSubmitGradesAndFillsMissingAnswers(t *testing.T) {
	f := newFixture(t)
	e := f.createExam(t)
	user := f.student(t, "alice", nil)
	q := e.Questions

	sub, err := f.submissions.Submit(context.Background(), e.ID, user, []model.Answer{
		{QuestionID: q[0].ID, AnswerValue: "a"},
		{QuestionID: q[0].ID, AnswerValue: "B"},
		{QuestionID: "stale", AnswerValue: "A"},
		{QuestionID: q[2].ID, AnswerValue: "declare an INT"},
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if sub.Status != model.StatusSubmitted || sub.Score == nil || *sub.Score != 8 {
		t.Errorf("unexpected submission %+v", sub)
	}
	if len(sub.Answers) != 3 {
		t.Fatalf("expected one answer per question, got %d", len(sub.Answers))
	}
	if sub.Answers[1].QuestionID != q[1].ID || sub.Answers[1].AnswerValue != "" || *sub.Answers[1].IsCorrect {
		t.Errorf("expected empty wrong answer for question 2, got %+v", sub.Answers[1])
	}

	stored, err := f.submissions.Get(context.Background(), sub.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	sum := 0
	for _, a := range stored.Answers {
		if a.ScoreObtained != nil {
			sum += *a.ScoreObtained
		}
	}
	if stored.Score == nil || *stored.Score != sum {
		t.Errorf("score %v does not match answer sum %d", stored.Score, sum)
	}
}

func TestSubmitTwiceConflicts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	e := f.createExam(t)
	user := f.student(t, "bob", nil)

	first, err := f.submissions.Submit(ctx, e.ID, user, []model.Answer{{QuestionID: e.Questions[0].ID, AnswerValue: "A"}})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	_, err = f.submissions.Submit(ctx, e.ID, user, []model.Answer{{QuestionID: e.Questions[0].ID, AnswerValue: "C"}})
	if !errors.Is(err, ErrAlreadySubmitted) {
		t.Fatalf("expected ErrAlreadySubmitted, got %v", err)
	}

	subs, err := f.submissions.ListForExam(ctx, e.ID)
	if err != nil {
		t.Fatalf("ListForExam: %v", err)
	}
	if len(subs) != 1 || subs[0].ID != first.ID || *subs[0].Score != *first.Score {
		t.Errorf("second attempt changed stored submissions: %+v", subs)
	}
	if len(subs[0].Answers) != 3 || subs[0].Answers[0].AnswerValue != "A" {
		t.Errorf("answers changed: %+v", subs[0].Answers)
	}
}

// racingRepo hides the existing submission from the pre-check so the
// unique constraint is what rejects the second insert.
type racingRepo struct {
	*store.Store
}

func (racingRepo) FindSubmission(context.Context, string, string) (*model.Submission, error) {
	return nil, nil
}

func TestSubmitRaceMapsToConflict(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	e := f.createExam(t)
	user := f.student(t, "carol", nil)

	w := NewSubmissions(racingRepo{f.store})
	if _, err := w.Submit(ctx, e.ID, user, nil); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if _, err := w.Submit(ctx, e.ID, user, nil); !errors.Is(err, ErrAlreadySubmitted) {
		t.Fatalf("expected ErrAlreadySubmitted, got %v", err)
	}
}

func TestSubmitUnknownExam(t *testing.T) {
	f := newFixture(t)
	user := f.student(t, "dan", nil)
	if _, err := f.submissions.Submit(context.Background(), "missing", user, nil); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if _, err := f.submissions.ListForExam(context.Background(), "missing"); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if _, err := f.submissions.ForUser(context.Background(), "missing", user); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestRegrade(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	e := f.createExam(t)
	alice := f.student(t, "alice", nil)
	bob := f.student(t, "bob", nil)

	sub, err := f.submissions.Submit(ctx, e.ID, alice, []model.Answer{
		{QuestionID: e.Questions[0].ID, AnswerValue: "A"},
		{QuestionID: e.Questions[2].ID, AnswerValue: "integer"},
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	other, err := f.submissions.Submit(ctx, e.ID, bob, nil)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	shortID := sub.Answers[2].ID

	t.Run("validation", func(t *testing.T) {
		cases := [][]model.AnswerScore{
			nil,
			{{AnswerID: shortID, ScoreObtained: -1}},
			{{AnswerID: other.Answers[0].ID, ScoreObtained: 2}},
		}
		for i, updates := range cases {
			_, err := f.submissions.Regrade(ctx, sub.ID, updates)
			var ve *ValidationError
			if !errors.As(err, &ve) {
				t.Errorf("case %d: expected ValidationError, got %v", i, err)
			}
		}
		got, _ := f.submissions.Get(ctx, sub.ID)
		if got.Status != model.StatusSubmitted {
			t.Errorf("rejected regrade changed status to %s", got.Status)
		}
	})

	t.Run("not found", func(t *testing.T) {
		cases := [][]model.AnswerScore{
			{{AnswerID: shortID, ScoreObtained: 1}},
			nil,
			{{AnswerID: shortID, ScoreObtained: -1}},
		}
		for i, updates := range cases {
			_, err := f.submissions.Regrade(ctx, "missing", updates)
			if !errors.Is(err, model.ErrNotFound) {
				t.Errorf("case %d: expected ErrNotFound, got %v", i, err)
			}
		}
	})

	t.Run("applies and recomputes", func(t *testing.T) {
		got, err := f.submissions.Regrade(ctx, sub.ID, []model.AnswerScore{
			// Above the question's 6 points: accepted.
			{AnswerID: shortID, ScoreObtained: 7, Comment: model.StringPtr("bonus")},
			{AnswerID: other.Answers[0].ID, ScoreObtained: 2},
		})
		if err != nil {
			t.Fatalf("Regrade: %v", err)
		}
		if got.Status != model.StatusGraded {
			t.Errorf("expected GRADED, got %s", got.Status)
		}
		if got.Score == nil || *got.Score != 9 {
			t.Errorf("expected score 9, got %v", got.Score)
		}
		o, _ := f.submissions.Get(ctx, other.ID)
		if *o.Score != 0 || *o.Answers[0].ScoreObtained != 0 {
			t.Errorf("other submission changed: %+v", o)
		}
	})
}

func TestAnalysisForExam(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	cohort, err := f.store.CreateCohort(ctx, "Class 1")
	if err != nil {
		t.Fatalf("CreateCohort: %v", err)
	}
	e := f.createExam(t)

	empty, err := f.analysis.ForExam(ctx, e.ID)
	if err != nil {
		t.Fatalf("ForExam: %v", err)
	}
	if empty.Summary.Total != 0 || len(empty.QuestionAnalysis) != 0 {
		t.Errorf("expected empty report, got %+v", empty)
	}

	answers := map[string][]string{
		"s1": {"A", "√", "int"},
		"s2": {"B", "√", ""},
	}
	for _, name := range []string{"s1", "s2"} {
		var cid *string
		if name == "s1" {
			cid = &cohort.ID
		}
		uid := f.student(t, name, cid)
		var in []model.Answer
		for i, v := range answers[name] {
			in = append(in, model.Answer{QuestionID: e.Questions[i].ID, AnswerValue: v})
		}
		if _, err := f.submissions.Submit(ctx, e.ID, uid, in); err != nil {
			t.Fatalf("Submit %s: %v", name, err)
		}
	}

	report, err := f.analysis.ForExam(ctx, e.ID)
	if err != nil {
		t.Fatalf("ForExam: %v", err)
	}
	if report.Summary.Total != 2 || report.Summary.Max != 10 || report.Summary.Min != 2 || report.Summary.Average != 6 {
		t.Errorf("unexpected summary %+v", report.Summary)
	}
	if report.Summary.PassRate != 50 {
		t.Errorf("pass rate = %d, want 50", report.Summary.PassRate)
	}
	if len(report.CohortPerformance) != 2 {
		t.Fatalf("expected 2 cohorts, got %+v", report.CohortPerformance)
	}
	if len(report.QuestionAnalysis) != 3 || report.QuestionAnalysis[1].CorrectRate != 100 || report.QuestionAnalysis[0].CorrectRate != 50 {
		t.Errorf("unexpected question analysis %+v", report.QuestionAnalysis)
	}

	if _, err := f.analysis.ForExam(ctx, "missing"); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
