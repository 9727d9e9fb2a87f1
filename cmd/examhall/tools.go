package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"

	"github.com/examhall/examhall/internal/exam"
	appI18n "github.com/examhall/examhall/internal/i18n"
	"github.com/examhall/examhall/internal/importer"
	"github.com/examhall/examhall/internal/model"
	"github.com/examhall/examhall/internal/stats"
	"github.com/examhall/examhall/internal/store"
)

func importCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import FILE",
		Short: "Parse batch answer-key text and print the questions as JSON",
		Long: "Parse batch answer-key text (one entry per line, - for stdin) and print\n" +
			"the recognized questions as JSON. Nothing is written to the database.",
		Args: cobra.ExactArgs(1),
		RunE: runImport,
	}
	f := cmd.Flags()
	f.Int("start", 0, "Number of questions already in the exam; new questions are numbered after them")
	f.Int("total-score", 0, "Exam total score to compare question points against")
	addLogFlags(f)
	return cmd
}

func runImport(cmd *cobra.Command, args []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	text, err := readInput(cmd.InOrStdin(), args[0])
	if err != nil {
		return err
	}
	specs := importer.Parse(text, v.GetInt("start"))
	if len(specs) == 0 {
		return exam.ErrNoQuestionsRecognized
	}
	slog.Info("recognized questions", "count", len(specs))

	if total := v.GetInt("total-score"); total > 0 {
		if advice := exam.Advise(specs, total); !advice.Balanced() {
			slog.Warn("question points do not match total score",
				"sum", advice.Sum, "total_score", advice.TotalScore, "delta", advice.Delta)
		}
	}
	return writeJSONTo(cmd.OutOrStdout(), "-", specs)
}

// readInput reads path, or in when path is "-".
func readInput(in io.Reader, path string) (string, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(in)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	return string(data), nil
}

func statsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Print score statistics for an exam as JSON",
		RunE:  runStats,
	}
	f := cmd.Flags()
	addStoreFlags(f)
	f.String("exam-id", "", "Exam identifier (required)")
	f.StringP("output", "o", "-", "Output file path (- for stdout)")
	f.StringP("lang", "l", "en", "Language for labels (en, zh)")
	addLogFlags(f)

	_ = cmd.MarkFlagRequired("exam-id")

	return cmd
}

func runStats(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	if err := appI18n.Init(v.GetString("lang")); err != nil {
		return fmt.Errorf("init i18n: %w", err)
	}
	db, err := openStore(v)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx := cmd.Context()
	report, err := exam.NewAnalysis(db).ForExam(ctx, v.GetString("exam-id"))
	if err != nil {
		return fmt.Errorf("compute statistics: %w", err)
	}
	for i, c := range report.CohortPerformance {
		if c.ID == stats.UnclassifiedCohortID {
			report.CohortPerformance[i].Name = appI18n.T(ctx, "CohortUnclassified")
		}
	}
	return writeJSONTo(cmd.OutOrStdout(), v.GetString("output"), report)
}

// writeJSONTo writes v as indented JSON to outPath, or to stdout when
// outPath is empty or "-".
func writeJSONTo(stdout io.Writer, outPath string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal JSON: %w", err)
	}

	w := stdout
	if outPath != "" && outPath != "-" {
		f, err := os.Create(outPath)
		if err != nil {
			return fmt.Errorf("create output file: %w", err)
		}
		defer f.Close()
		w = f
	}

	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	// Ensure trailing newline.
	_, _ = fmt.Fprintln(w)
	return nil
}

func cohortCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cohort",
		Short: "Manage classes",
	}
	add := &cobra.Command{
		Use:   "add NAME",
		Short: "Create a class",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			setupLogging(cmd)
			db, err := openStore(viperForCmd(cmd))
			if err != nil {
				return err
			}
			defer db.Close()

			c, err := db.CreateCohort(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("create cohort: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), c.ID)
			return nil
		},
	}
	addStoreFlags(add.Flags())
	addLogFlags(add.Flags())
	cmd.AddCommand(add)
	return cmd
}

func userCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage accounts",
	}
	add := &cobra.Command{
		Use:   "add",
		Short: "Create an active account",
		RunE:  runUserAdd,
	}
	f := add.Flags()
	addStoreFlags(f)
	f.String("username", "", "Login name (required)")
	f.String("password", "", "Password (required)")
	f.String("name", "", "Display name (defaults to the username)")
	f.String("role", string(model.RoleStudent), "Role (ADMIN, STUDENT)")
	f.String("cohort", "", "Class name or id")
	addLogFlags(f)

	_ = add.MarkFlagRequired("username")
	_ = add.MarkFlagRequired("password")

	cmd.AddCommand(add)
	return cmd
}

func runUserAdd(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)
	ctx := cmd.Context()

	role := model.Role(v.GetString("role"))
	if role != model.RoleAdmin && role != model.RoleStudent {
		return fmt.Errorf("unknown role %q", role)
	}

	db, err := openStore(v)
	if err != nil {
		return err
	}
	defer db.Close()

	var cohortID *string
	if ref := v.GetString("cohort"); ref != "" {
		c, err := db.GetCohortByName(ctx, ref)
		if errors.Is(err, model.ErrNotFound) {
			c, err = db.GetCohort(ctx, ref)
		}
		if err != nil {
			return fmt.Errorf("find cohort %q: %w", ref, err)
		}
		cohortID = &c.ID
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(v.GetString("password")), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	name := v.GetString("name")
	if name == "" {
		name = v.GetString("username")
	}
	id, err := db.CreateUser(ctx, model.User{
		Username:     v.GetString("username"),
		Name:         name,
		PasswordHash: string(hash),
		Role:         role,
		CohortID:     cohortID,
		Active:       true,
	})
	if errors.Is(err, store.ErrUsernameTaken) {
		return fmt.Errorf("username %q is already taken", v.GetString("username"))
	}
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), id)
	return nil
}
