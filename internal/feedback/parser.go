// Package feedback extracts tagged sections from free-text grading output.
package feedback

import (
	"regexp"
	"strings"

	"github.com/pavelanni/examcoach/internal/model"
)

// Tags is an ordered tag vocabulary.
type Tags []model.FeedbackField

var (
	// Full is the vocabulary of the ladder rubric.
	Full = Tags{
		model.FieldCorrectedVersion,
		model.FieldChineseTranslation,
		model.FieldModelEssay,
		model.FieldComparison,
	}
	// Basic is the vocabulary of the short rubric.
	Basic = Tags{
		model.FieldCorrectedVersion,
		model.FieldChineseTranslation,
	}
)

// Result is the outcome of parsing one response.
type Result struct {
	Display string
	Fields  map[model.FeedbackField]string
}

type tagPattern struct {
	field model.FeedbackField
	re    *regexp.Regexp
}

var patternCache = make(map[model.FeedbackField]*regexp.Regexp)

func init() {
	for _, f := range Full {
		patternCache[f] = compile(f)
	}
}

func compile(f model.FeedbackField) *regexp.Regexp {
	name := regexp.QuoteMeta(string(f))
	return regexp.MustCompile(`(?is)\[` + name + `\](.*?)\[/` + name + `\]`)
}

func (t Tags) patterns() []tagPattern {
	out := make([]tagPattern, 0, len(t))
	for _, f := range t {
		re, ok := patternCache[f]
		if !ok {
			re = compile(f)
		}
		out = append(out, tagPattern{field: f, re: re})
	}
	return out
}

// Parse pulls every recognized block out of raw. The first occurrence of a
// tag supplies its value; all occurrences are removed from the display text.
// Fields whose tag is absent are left out of the map.
func Parse(raw string, tags Tags) Result {
	res := Result{Fields: make(map[model.FeedbackField]string)}
	text := raw
	for _, p := range tags.patterns() {
		m := p.re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		res.Fields[p.field] = strings.TrimSpace(m[1])
		text = p.re.ReplaceAllLiteralString(text, "")
	}
	res.Display = strings.TrimSpace(text)
	return res
}
