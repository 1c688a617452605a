package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/pavelanni/examcoach/internal/bank"
	"github.com/pavelanni/examcoach/internal/exam"
	"github.com/pavelanni/examcoach/internal/feedback"
	"github.com/pavelanni/examcoach/internal/handler"
	appI18n "github.com/pavelanni/examcoach/internal/i18n"
	"github.com/pavelanni/examcoach/internal/llm"
	"github.com/pavelanni/examcoach/internal/model"
	"github.com/pavelanni/examcoach/internal/store"
)

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the exam JSON API",
		RunE:  runServe,
	}
	f := cmd.Flags()
	f.StringP("addr", "a", "127.0.0.1:8080", "HTTP listen address")
	f.String("db", "", "SQLite grading journal path (empty disables the journal)")
	f.Bool("require-topic", true, "Refuse to finalize until an essay topic is chosen")
	f.Duration("settle-delay", 150*time.Millisecond, "Pause between adopting a correction and grading it")
	f.Duration("reset-delay", 800*time.Millisecond, "Pause before a reset is applied")
	addGradingFlags(f)
	addLogFlags(f)
	return cmd
}

func gradeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "grade [essay-file]",
		Short: "Grade one essay and print the feedback",
		Long:  "Grade one essay read from a file, or from stdin when the file is omitted or '-'.",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runGrade,
	}
	f := cmd.Flags()
	f.StringP("topic", "t", "", "Essay topic text included in the prompt")
	f.Bool("json", false, "Print the result as JSON")
	addGradingFlags(f)
	addLogFlags(f)
	return cmd
}

func bankCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bank",
		Short: "Validate and summarise a question bank",
		RunE:  runBank,
	}
	f := cmd.Flags()
	f.String("bank", "", "Question bank file (.json, .yaml); empty uses the built-in bank")
	f.String("dump", "", "Write the whole bank to stdout in this format (json, yaml)")
	addLogFlags(f)
	return cmd
}

func exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the grading journal as JSON",
		RunE:  runExport,
	}
	f := cmd.Flags()
	f.String("db", "examcoach.db", "SQLite grading journal path")
	f.StringP("output", "o", "-", "Output file path (- for stdout)")
	addLogFlags(f)
	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	b, err := bank.Load(v.GetString("bank"))
	if err != nil {
		return fmt.Errorf("load bank: %w", err)
	}

	lang := v.GetString("lang")
	if err := appI18n.Init(lang); err != nil {
		return fmt.Errorf("init i18n: %w", err)
	}

	examCfg := examConfig(v)
	grader, err := newGrader(v, examCfg)
	if err != nil {
		return err
	}

	// A nil *store.Store must not reach the controller as a non-nil Recorder.
	var (
		db       *store.Store
		recorder exam.Recorder
	)
	if path := v.GetString("db"); path != "" {
		db, err = store.New(path)
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer db.Close()
		if err := db.SetExamInfo(model.ExamInfo{
			BankID:        b.ID,
			Title:         b.Title,
			Backend:       examCfg.Backend,
			PromptVariant: examCfg.PromptVariant,
			NumQuestions:  b.TotalQuestions(),
		}); err != nil {
			return fmt.Errorf("record exam info: %w", err)
		}
		recorder = db
	}

	ctrl := exam.NewController(b, examCfg, grader, recorder)
	h := handler.New(ctrl, db, examCfg)

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(appI18n.Middleware(lang))
	h.Routes(r)

	addr := v.GetString("addr")
	slog.Info("starting server",
		"addr", addr,
		"bank", b.ID,
		"backend", examCfg.Backend,
		"backends", grader.Backends(),
		"prompt_variant", examCfg.PromptVariant,
		"lang", lang,
		"journal", v.GetString("db"),
	)
	return http.ListenAndServe(addr, r)
}

type gradeResult struct {
	Backend    string                         `json:"backend"`
	Variant    string                         `json:"variant"`
	Diagnostic bool                           `json:"diagnostic"`
	Display    string                         `json:"display"`
	Fields     map[model.FeedbackField]string `json:"fields,omitempty"`
}

func runGrade(cmd *cobra.Command, args []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	essay, err := readEssay(cmd, args)
	if err != nil {
		return err
	}
	examCfg := examConfig(v)
	if n := utf8.RuneCountInString(strings.TrimSpace(essay)); n < examCfg.MinEssayChars {
		return fmt.Errorf("essay too short: %d characters, need at least %d", n, examCfg.MinEssayChars)
	}

	if err := appI18n.Init(v.GetString("lang")); err != nil {
		return fmt.Errorf("init i18n: %w", err)
	}
	grader, err := newGrader(v, examCfg)
	if err != nil {
		return err
	}

	rep := grader.Grade(context.Background(), llm.Request{Essay: essay, Topic: v.GetString("topic")})
	res := feedback.Parse(rep.Text, grader.Tags())

	out := cmd.OutOrStdout()
	if v.GetBool("json") {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(gradeResult{
			Backend:    rep.Backend,
			Variant:    string(grader.Variant()),
			Diagnostic: rep.Diagnostic,
			Display:    res.Display,
			Fields:     res.Fields,
		}); err != nil {
			return fmt.Errorf("write output: %w", err)
		}
	} else {
		fmt.Fprintf(out, "backend: %s, rubric: %s\n\n", rep.Backend, grader.Variant())
		fmt.Fprintln(out, res.Display)
		for _, tag := range grader.Tags() {
			if text, ok := res.Fields[tag]; ok {
				fmt.Fprintf(out, "\n== %s ==\n%s\n", tag, text)
			}
		}
	}

	if rep.Diagnostic {
		return errors.New("grading backend reported a failure")
	}
	return nil
}

func readEssay(cmd *cobra.Command, args []string) (string, error) {
	if len(args) == 0 || args[0] == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return "", fmt.Errorf("read essay: %w", err)
	}
	return string(data), nil
}

func runBank(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	b, err := bank.Load(v.GetString("bank"))
	if err != nil {
		return fmt.Errorf("load bank: %w", err)
	}
	out := cmd.OutOrStdout()

	switch strings.ToLower(v.GetString("dump")) {
	case "":
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(b)
	case "yaml", "yml":
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(b)
	default:
		return fmt.Errorf("unsupported dump format %q", v.GetString("dump"))
	}

	fmt.Fprintf(out, "%s (%s)\n", b.Title, b.ID)
	for _, s := range b.Sections {
		n := 0
		for _, p := range s.Parts {
			n += len(p.Questions)
		}
		fmt.Fprintf(out, "  %-12s %-40s parts=%d questions=%d\n", s.ID, s.Title, len(s.Parts), n)
	}
	fmt.Fprintf(out, "questions: %d\nobjective marks: %g\ntotal marks: %g\n",
		b.TotalQuestions(), b.ObjectiveMarks(), b.TotalMarks())
	if q, _, ok := b.EssayQuestion(); ok {
		fmt.Fprintf(out, "essay %s topics:\n", q.ID)
		for i, t := range q.Topics {
			fmt.Fprintf(out, "  %d. %s\n", i+1, t)
		}
	}
	return nil
}

func runExport(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	dbPath := v.GetString("db")
	// store.New would create an empty journal for a missing path.
	if _, err := os.Stat(dbPath); err != nil {
		return fmt.Errorf("no grading journal at %s: %w", dbPath, err)
	}
	db, err := store.New(dbPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	export, err := db.ExportAllSessions()
	if err != nil {
		return fmt.Errorf("export sessions: %w", err)
	}

	data, err := json.MarshalIndent(export, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal JSON: %w", err)
	}

	outPath := v.GetString("output")
	var w io.Writer
	if outPath == "" || outPath == "-" {
		w = cmd.OutOrStdout()
	} else {
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

	slog.Info("exported journal", "sessions", len(export.Results), "output", outPath)
	return nil
}
