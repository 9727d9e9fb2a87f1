package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/examhall/examhall/internal/exam"
	"github.com/examhall/examhall/internal/model"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	return executeWithInput(t, "", args...)
}

func executeWithInput(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := rootCmd()
	var out bytes.Buffer
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestImportCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keys.txt")
	if err := os.WriteFile(path, []byte("3 | 1-3: A B C\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	out, err := execute(t, "import", path, "--start", "2", "--log-level", "error")
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	var specs []model.QuestionSpec
	if err := json.Unmarshal([]byte(out), &specs); err != nil {
		t.Fatalf("decode output %q: %v", out, err)
	}
	if len(specs) != 3 {
		t.Fatalf("expected 3 questions, got %d", len(specs))
	}
	if specs[0].Order != 3 || specs[2].Order != 5 || specs[1].Points != 3 {
		t.Errorf("unexpected specs: %+v", specs)
	}
}

func TestImportCommandStdin(t *testing.T) {
	out, err := executeWithInput(t, "1.A | 2.B\n3.对\n", "import", "-", "--log-level", "error")
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	var specs []model.QuestionSpec
	if err := json.Unmarshal([]byte(out), &specs); err != nil {
		t.Fatalf("decode output %q: %v", out, err)
	}
	if len(specs) != 3 {
		t.Fatalf("expected 3 questions, got %d", len(specs))
	}
	if specs[2].Type != model.TrueFalse || specs[2].CorrectAnswer == nil || *specs[2].CorrectAnswer != "√" {
		t.Errorf("unexpected specs: %+v", specs)
	}
}

func TestImportCommandRejectsUnknownFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.txt")
	if err := os.WriteFile(path, []byte("bring a pencil\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := execute(t, "import", path, "--log-level", "error")
	if !errors.Is(err, exam.ErrNoQuestionsRecognized) {
		t.Fatalf("expected ErrNoQuestionsRecognized, got %v", err)
	}
	if !strings.Contains(err.Error(), "format not recognized") {
		t.Errorf("error = %q", err)
	}
}

func TestCohortAndUserCommands(t *testing.T) {
	db := filepath.Join(t.TempDir(), "examhall.db")

	cohortID, err := execute(t, "cohort", "add", "Class A", "--db", db, "--log-level", "error")
	if err != nil {
		t.Fatalf("cohort add: %v", err)
	}
	if strings.TrimSpace(cohortID) == "" {
		t.Fatal("cohort add printed no id")
	}

	args := []string{"user", "add", "--db", db, "--username", "dave", "--password", "pw123456", "--cohort", "Class A", "--log-level", "error"}
	if _, err := execute(t, args...); err != nil {
		t.Fatalf("user add: %v", err)
	}
	if _, err := execute(t, args...); err == nil || !strings.Contains(err.Error(), "already taken") {
		t.Errorf("second user add: %v", err)
	}

	_, err = execute(t, "user", "add", "--db", db, "--username", "erin", "--password", "pw", "--role", "TEACHER", "--log-level", "error")
	if err == nil {
		t.Error("expected error for unknown role")
	}
}

func TestStatsCommandUnknownExam(t *testing.T) {
	db := filepath.Join(t.TempDir(), "examhall.db")
	_, err := execute(t, "stats", "--db", db, "--exam-id", "missing", "--log-level", "error")
	if !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
