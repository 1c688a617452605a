// Package bank provides question banks: the built-in paper and bank files.
package bank

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/pavelanni/examcoach/internal/model"
)

// ErrInvalid is returned when a bank breaks a structural rule.
var ErrInvalid = errors.New("invalid question bank")

var validate = validator.New(validator.WithRequiredStructEnabled())

// Load reads a bank from a JSON or YAML file and validates it.
// An empty path returns the built-in bank.
func Load(path string) (model.Bank, error) {
	if path == "" {
		return JAE2025(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return model.Bank{}, fmt.Errorf("read %s: %w", path, err)
	}

	b, err := Parse(data, filepath.Ext(path))
	if err != nil {
		return model.Bank{}, fmt.Errorf("parse %s: %w", path, err)
	}
	slog.Info("loaded question bank", "path", path, "id", b.ID, "questions", b.TotalQuestions())
	return b, nil
}

// Parse decodes bank data. ext selects the format (".json", ".yaml", ".yml").
func Parse(data []byte, ext string) (model.Bank, error) {
	var b model.Bank
	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &b); err != nil {
			return b, err
		}
	case ".json", "":
		if err := json.Unmarshal(data, &b); err != nil {
			return b, err
		}
	default:
		return b, fmt.Errorf("unsupported bank format %q", ext)
	}
	if err := Validate(b); err != nil {
		return b, err
	}
	return b, nil
}

// Validate checks the struct rules and the per-kind invariants of a bank.
func Validate(b model.Bank) error {
	if err := validate.Struct(b); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}

	seen := make(map[string]bool)
	for _, s := range b.Sections {
		for _, p := range s.Parts {
			for _, q := range p.Questions {
				if seen[q.ID] {
					return fmt.Errorf("%w: duplicate question id %q", ErrInvalid, q.ID)
				}
				seen[q.ID] = true
				if err := validateQuestion(q); err != nil {
					return fmt.Errorf("%w: question %q: %v", ErrInvalid, q.ID, err)
				}
			}
		}
	}
	return nil
}

func validateQuestion(q model.Question) error {
	switch q.Kind {
	case model.KindMultipleChoice:
		if len(q.Options) == 0 {
			return errors.New("multiple-choice question has no options")
		}
		labels := make(map[string]bool, len(q.Options))
		for _, o := range q.Options {
			key := strings.ToLower(o.Label)
			if labels[key] {
				return fmt.Errorf("duplicate option label %q", o.Label)
			}
			labels[key] = true
		}
		if q.Answer != "" && !labels[strings.ToLower(strings.TrimSpace(q.Answer))] {
			return fmt.Errorf("answer %q is not an option label", q.Answer)
		}
		if len(q.Topics) > 0 {
			return errors.New("only essay questions carry topics")
		}
	case model.KindFillIn:
		if len(q.Options) > 0 {
			return errors.New("fill-in question has options")
		}
		if len(q.Topics) > 0 {
			return errors.New("only essay questions carry topics")
		}
	case model.KindEssay:
		if q.Answer != "" {
			return errors.New("essay question has a canonical answer")
		}
		if len(q.Options) > 0 {
			return errors.New("essay question has options")
		}
	default:
		return fmt.Errorf("unknown kind %q", q.Kind)
	}
	return nil
}
