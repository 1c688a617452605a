package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/pavelanni/examcoach/internal/feedback"
	appI18n "github.com/pavelanni/examcoach/internal/i18n"
	"github.com/pavelanni/examcoach/internal/llm/prompts"
)

var errPrompt = errors.New("build prompt")

// Request is one essay grading request.
type Request struct {
	Essay string
	Topic string
	// Backend overrides the grader's default backend when set.
	Backend string
}

// Report is the text to show for a grading request. Diagnostic is set when
// Text explains a failure instead of carrying the model's verdict.
type Report struct {
	Text       string
	Backend    string
	Variant    prompts.PromptVariant
	Diagnostic bool
}

// Grader builds grading prompts and dispatches them to one backend.
type Grader struct {
	registry *Registry
	backend  string
	variant  prompts.PromptVariant
}

// NewGrader creates a grader using the named default backend.
func NewGrader(registry *Registry, backend string, variant prompts.PromptVariant) *Grader {
	return &Grader{registry: registry, backend: backend, variant: variant}
}

// Tags returns the tag vocabulary of the configured rubric.
func (g *Grader) Tags() feedback.Tags {
	return prompts.Tags(g.variant)
}

// Variant returns the configured rubric variant.
func (g *Grader) Variant() prompts.PromptVariant {
	return g.variant
}

// Backends lists the selectable backend names.
func (g *Grader) Backends() []string {
	return g.registry.Names()
}

// Grade makes a single attempt and always returns text. Failures come back
// as a localised diagnostic.
func (g *Grader) Grade(ctx context.Context, req Request) Report {
	name := req.Backend
	if name == "" {
		name = g.backend
	}
	rep := Report{Backend: name, Variant: g.variant}

	prompt, err := prompts.BuildGradePrompt(g.variant, prompts.GradeData{Essay: req.Essay, Topic: req.Topic})
	if err != nil {
		slog.Error("build grading prompt", "error", err)
		return g.diagnose(ctx, rep, fmt.Errorf("%w: %v", errPrompt, err))
	}

	backend, err := g.registry.Get(name)
	if err != nil {
		slog.Warn("grading backend not available", "backend", name, "error", err)
		return g.diagnose(ctx, rep, err)
	}

	start := time.Now()
	text, err := backend.Generate(ctx, prompt)
	if err != nil {
		slog.Error("grading failed", "backend", name, "error", err, "elapsed", time.Since(start))
		return g.diagnose(ctx, rep, err)
	}
	slog.Info("grading finished", "backend", name, "variant", g.variant, "chars", len(text), "elapsed", time.Since(start))

	rep.Text = text
	return rep
}

func (g *Grader) diagnose(ctx context.Context, rep Report, err error) Report {
	rep.Diagnostic = true
	data := map[string]any{"Backend": rep.Backend}

	var statusErr *StatusError
	switch {
	case errors.Is(err, ErrMissingCredential):
		rep.Text = appI18n.Td(ctx, "DiagMissingCredential", data)
	case errors.Is(err, ErrUnknownBackend):
		rep.Text = appI18n.Td(ctx, "DiagUnknownBackend", data)
	case errors.Is(err, ErrEmptyResponse):
		rep.Text = appI18n.T(ctx, "DiagEmptyResponse")
	case errors.As(err, &statusErr):
		data["Status"] = statusErr.Code
		rep.Text = appI18n.Td(ctx, "DiagBackendStatus", data)
	case errors.Is(err, errPrompt):
		rep.Text = appI18n.T(ctx, "DiagPromptFailed")
	default:
		rep.Text = appI18n.T(ctx, "DiagConnectionFailed")
	}
	return rep
}
