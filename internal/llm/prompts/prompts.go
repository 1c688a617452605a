package prompts

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"text/template"
	"unicode/utf8"

	"github.com/pavelanni/examcoach/internal/feedback"
)

//go:embed templates/*.txt
var templateFS embed.FS

var (
	studentEssayRegex = regexp.MustCompile(`(?i)</?\s*student-essay\b[^>]*>`)
	tagMarkerRegex    = regexp.MustCompile(`(?i)\[/?\s*(CORRECTED_VERSION|CHINESE_TRANSLATION|MODEL_ESSAY|COMPARISON)\s*\]`)
)

const maxEssayRunes = 10000

// PromptVariant represents a grading rubric variant.
type PromptVariant string

const (
	// PromptLadder is the seven-step rubric emitting all four tagged sections.
	PromptLadder PromptVariant = "ladder"
	// PromptBasic is the short rubric emitting the correction and its translation.
	PromptBasic PromptVariant = "basic"
)

var variantTags = map[PromptVariant]feedback.Tags{
	PromptLadder: feedback.Full,
	PromptBasic:  feedback.Basic,
}

var (
	loadOnce       sync.Once
	loadErr        error
	gradeTemplates map[PromptVariant]*template.Template
)

// IsValidVariant checks if a prompt variant name is valid.
func IsValidVariant(v string) bool {
	_, ok := variantTags[PromptVariant(v)]
	return ok
}

// Tags returns the tag vocabulary a variant asks the model to emit.
func Tags(v PromptVariant) feedback.Tags {
	if t, ok := variantTags[v]; ok {
		return t
	}
	return feedback.Full
}

// GradeData holds template data for grading prompts.
type GradeData struct {
	Essay string
	Topic string
}

// Load parses the embedded prompt templates once.
func Load() error {
	loadOnce.Do(func() {
		gradeTemplates = make(map[PromptVariant]*template.Template)
		for v := range variantTags {
			file := "templates/" + string(v) + ".txt"
			content, err := templateFS.ReadFile(file)
			if err != nil {
				loadErr = errors.New("failed to read prompt file " + file + ": " + err.Error())
				return
			}
			tmpl, err := template.New(string(v)).Parse(string(content))
			if err != nil {
				loadErr = errors.New("failed to parse prompt template " + file + ": " + err.Error())
				return
			}
			gradeTemplates[v] = tmpl
		}
	})
	return loadErr
}

// BuildGradePrompt renders the grading prompt for an essay.
func BuildGradePrompt(variant PromptVariant, data GradeData) (string, error) {
	if err := Load(); err != nil {
		return "", fmt.Errorf("templates load failed: %w", err)
	}
	tmpl, ok := gradeTemplates[variant]
	if !ok {
		return "", errors.New("invalid prompt variant: " + string(variant))
	}

	data.Essay = sanitizeEssay(data.Essay)
	data.Topic = strings.TrimSpace(data.Topic)

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func sanitizeEssay(essay string) string {
	essay = studentEssayRegex.ReplaceAllString(essay, "")
	essay = tagMarkerRegex.ReplaceAllString(essay, "")
	essay = strings.TrimSpace(essay)

	if essay == "" {
		return "[No essay provided]"
	}

	if utf8.RuneCountInString(essay) > maxEssayRunes {
		runes := []rune(essay)
		essay = string(runes[:maxEssayRunes]) + "\n\n[Essay truncated due to length]"
	}
	return essay
}
