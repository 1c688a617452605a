package model

import (
	"strings"
	"time"
)

// Kind tags the variant of a question.
type Kind string

const (
	KindMultipleChoice Kind = "multiple-choice"
	KindFillIn         Kind = "fill-in"
	KindEssay          Kind = "essay"
)

// Option is one labeled choice of a multiple-choice question.
type Option struct {
	Label string `json:"label" yaml:"label" validate:"required"`
	Text  string `json:"text" yaml:"text" validate:"required"`
}

// Question represents a single exam question.
type Question struct {
	ID      string   `json:"id" yaml:"id" validate:"required"`
	Number  int      `json:"number" yaml:"number" validate:"gte=1"`
	Kind    Kind     `json:"kind" yaml:"kind" validate:"oneof=multiple-choice fill-in essay"`
	Prompt  string   `json:"prompt,omitempty" yaml:"prompt,omitempty"`
	Options []Option `json:"options,omitempty" yaml:"options,omitempty" validate:"dive"`
	// Answer is an option label for multiple-choice and a literal for fill-in.
	Answer string   `json:"answer,omitempty" yaml:"answer,omitempty"`
	Marks  float64  `json:"marks" yaml:"marks" validate:"gte=0"`
	Topics []string `json:"topics,omitempty" yaml:"topics,omitempty" validate:"dive,required"`
}

// Graded reports whether the question contributes to the objective score.
func (q Question) Graded() bool {
	return q.Kind != KindEssay && q.Answer != ""
}

// Check compares an answer with the canonical one. The second result is
// false when the question is not machine-graded.
func (q Question) Check(answer string) (correct bool, graded bool) {
	switch q.Kind {
	case KindMultipleChoice, KindFillIn:
		if q.Answer == "" {
			return false, false
		}
		return normalize(answer) == normalize(q.Answer), true
	case KindEssay:
		return false, false
	default:
		return false, false
	}
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Part groups questions that share a passage.
type Part struct {
	ID          string     `json:"id" yaml:"id" validate:"required"`
	Title       string     `json:"title" yaml:"title" validate:"required"`
	Description string     `json:"description,omitempty" yaml:"description,omitempty"`
	Passage     string     `json:"passage,omitempty" yaml:"passage,omitempty"`
	Questions   []Question `json:"questions" yaml:"questions" validate:"min=1,dive"`
}

// Section is a top-level division of the exam.
type Section struct {
	ID       string `json:"id" yaml:"id" validate:"required"`
	Title    string `json:"title" yaml:"title" validate:"required"`
	Subtitle string `json:"subtitle,omitempty" yaml:"subtitle,omitempty"`
	Parts    []Part `json:"parts" yaml:"parts" validate:"min=1,dive"`
}

// Bank is the immutable question catalog of an exam.
type Bank struct {
	ID       string    `json:"id" yaml:"id" validate:"required"`
	Title    string    `json:"title" yaml:"title"`
	Sections []Section `json:"sections" yaml:"sections" validate:"min=1,dive"`
}

// Position locates a question inside a bank.
type Position struct {
	Section int
	Part    int
}

// TotalQuestions counts every question in the bank.
func (b Bank) TotalQuestions() int {
	n := 0
	for _, s := range b.Sections {
		for _, p := range s.Parts {
			n += len(p.Questions)
		}
	}
	return n
}

// TotalMarks sums the marks of every question, essays included.
func (b Bank) TotalMarks() float64 {
	var total float64
	b.each(func(q Question, _ Position) bool {
		total += q.Marks
		return true
	})
	return total
}

// ObjectiveMarks sums the marks of the machine-graded questions.
func (b Bank) ObjectiveMarks() float64 {
	var total float64
	b.each(func(q Question, _ Position) bool {
		if q.Graded() {
			total += q.Marks
		}
		return true
	})
	return total
}

// EssayQuestion returns the first essay question and where it lives.
func (b Bank) EssayQuestion() (Question, Position, bool) {
	var (
		found Question
		pos   Position
		ok    bool
	)
	b.each(func(q Question, p Position) bool {
		if q.Kind == KindEssay {
			found, pos, ok = q, p, true
			return false
		}
		return true
	})
	return found, pos, ok
}

// Question looks a question up by ID.
func (b Bank) Question(id string) (Question, bool) {
	var (
		found Question
		ok    bool
	)
	b.each(func(q Question, _ Position) bool {
		if q.ID == id {
			found, ok = q, true
			return false
		}
		return true
	})
	return found, ok
}

// Part returns the part at the given position, or nil when out of range.
func (b Bank) Part(pos Position) *Part {
	if pos.Section < 0 || pos.Section >= len(b.Sections) {
		return nil
	}
	s := b.Sections[pos.Section]
	if pos.Part < 0 || pos.Part >= len(s.Parts) {
		return nil
	}
	return &s.Parts[pos.Part]
}

func (b Bank) each(fn func(Question, Position) bool) {
	for i, s := range b.Sections {
		for j, p := range s.Parts {
			for _, q := range p.Questions {
				if !fn(q, Position{Section: i, Part: j}) {
					return
				}
			}
		}
	}
}

// FeedbackField names one tagged block of a grading response.
type FeedbackField string

const (
	FieldCorrectedVersion   FeedbackField = "CORRECTED_VERSION"
	FieldChineseTranslation FeedbackField = "CHINESE_TRANSLATION"
	FieldModelEssay         FeedbackField = "MODEL_ESSAY"
	FieldComparison         FeedbackField = "COMPARISON"
)

// FeedbackStatus tracks the essay-feedback lifecycle.
type FeedbackStatus string

const (
	FeedbackIdle       FeedbackStatus = "idle"
	FeedbackRequesting FeedbackStatus = "requesting"
	FeedbackParsed     FeedbackStatus = "parsed"
	FeedbackErrored    FeedbackStatus = "errored"
)

// Feedback is the parsed result of the latest grading pass.
type Feedback struct {
	Status  FeedbackStatus           `json:"status"`
	Display string                   `json:"display"`
	Fields  map[FeedbackField]string `json:"fields,omitempty"`
	Backend string                   `json:"backend,omitempty"`
	// Diagnostic is set when Display explains a grading failure.
	Diagnostic bool `json:"diagnostic,omitempty"`
}

// Field returns an extracted field and whether it is present.
func (f Feedback) Field(name FeedbackField) (string, bool) {
	v, ok := f.Fields[name]
	return v, ok
}

// SessionState is the mutable record of one exam attempt.
type SessionState struct {
	ID            string            `json:"id"`
	SectionIndex  int               `json:"section_index"`
	PartIndex     int               `json:"part_index"`
	Answers       map[string]string `json:"answers"`
	SelectedTopic *int              `json:"selected_topic,omitempty"`
	Submitted     bool              `json:"submitted"`
	StartedAt     time.Time         `json:"started_at"`
}

// ExamConfig holds runtime exam parameters set via CLI flags.
type ExamConfig struct {
	Backend       string        // grading backend name
	PromptVariant string        // grading rubric variant (ladder, basic)
	MinEssayChars int           // finalize threshold on the trimmed essay
	RequireTopic  bool          // finalize needs a selected topic when the essay offers topics
	SettleDelay   time.Duration // pause between adopting a correction and re-grading
	ResetDelay    time.Duration // cosmetic pause before a reset is applied
}
