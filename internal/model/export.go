package model

import "time"

// GradingTrigger records what started a grading pass.
type GradingTrigger string

const (
	TriggerFinalize  GradingTrigger = "finalize"
	TriggerReanalyze GradingTrigger = "reanalyze"
	TriggerAdopt     GradingTrigger = "adopt"
)

// SessionSummary is the journal row for one exam session.
type SessionSummary struct {
	ID             string     `json:"id"`
	BankID         string     `json:"bank_id"`
	StartedAt      time.Time  `json:"started_at"`
	SubmittedAt    *time.Time `json:"submitted_at,omitempty"`
	Score          float64    `json:"score"`
	ObjectiveMarks float64    `json:"objective_marks"`
	Progress       float64    `json:"progress"`
}

// GradingAttempt is the journal row for one completed grading pass.
type GradingAttempt struct {
	ID         int64                    `json:"id"`
	SessionID  string                   `json:"session_id"`
	Trigger    GradingTrigger           `json:"trigger"`
	Backend    string                   `json:"backend"`
	Variant    string                   `json:"variant"`
	Essay      string                   `json:"essay"`
	Topic      string                   `json:"topic,omitempty"`
	Display    string                   `json:"display"`
	Fields     map[FeedbackField]string `json:"fields,omitempty"`
	Diagnostic bool                     `json:"diagnostic"`
	CreatedAt  time.Time                `json:"created_at"`
}

// ExamInfo describes the bank and grading setup a journal was written with.
type ExamInfo struct {
	BankID        string `json:"bank_id"`
	Title         string `json:"title"`
	Backend       string `json:"backend"`
	PromptVariant string `json:"prompt_variant"`
	NumQuestions  int    `json:"num_questions"`
}

// ExamExport is the top-level JSON structure for journal export.
type ExamExport struct {
	Exam    ExamInfo        `json:"exam"`
	Results []SessionResult `json:"results"`
}

// SessionResult holds one session and its grading history for export.
type SessionResult struct {
	Session  SessionSummary   `json:"session"`
	Attempts []GradingAttempt `json:"attempts"`
}
