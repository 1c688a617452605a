package exam

import (
	"context"
	"errors"
	"log/slog"
	"maps"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/pavelanni/examcoach/internal/feedback"
	"github.com/pavelanni/examcoach/internal/llm"
	"github.com/pavelanni/examcoach/internal/model"
)

// Rejections. A rejected operation leaves every piece of state untouched.
var (
	ErrNotStarted      = errors.New("exam not started")
	ErrStarted         = errors.New("exam already started")
	ErrBusy            = errors.New("another operation is in progress")
	ErrSubmitted       = errors.New("exam already submitted")
	ErrNotSubmitted    = errors.New("exam not submitted")
	ErrEssayTooShort   = errors.New("essay too short")
	ErrTopicRequired   = errors.New("essay topic not selected")
	ErrNoCorrection    = errors.New("no corrected version to adopt")
	ErrNotCorrecting   = errors.New("not in correction mode")
	ErrNoEssay         = errors.New("bank has no essay question")
	ErrUnknownQuestion = errors.New("unknown question")
	ErrInvalidTopic    = errors.New("invalid topic")
	ErrBoundary        = errors.New("no further part in that direction")
)

// Grader produces essay feedback text. It never fails: errors come back as
// diagnostic text.
type Grader interface {
	Grade(ctx context.Context, req llm.Request) llm.Report
	Tags() feedback.Tags
}

// Recorder keeps a journal of sessions and grading attempts.
type Recorder interface {
	UpsertSession(ctx context.Context, s model.SessionSummary) error
	RecordAttempt(ctx context.Context, a model.GradingAttempt) error
}

// Snapshot is a copy of the controller state for rendering.
type Snapshot struct {
	Started        bool               `json:"started"`
	EssayOnly      bool               `json:"essay_only"`
	State          model.SessionState `json:"state"`
	CorrectionMode bool               `json:"correction_mode"`
	Processing     bool               `json:"processing"`
	Reanalyzing    bool               `json:"reanalyzing"`
	Resetting      bool               `json:"resetting"`
	Feedback       model.Feedback     `json:"feedback"`
	Report         Report             `json:"report"`
	CanFinalize    bool               `json:"can_finalize"`
	CanAdopt       bool               `json:"can_adopt"`
}

// Controller owns one exam session. All methods are safe for concurrent use;
// callers are serialised on an internal mutex.
type Controller struct {
	bank     model.Bank
	cfg      model.ExamConfig
	grader   Grader
	recorder Recorder

	mu          sync.Mutex
	wg          sync.WaitGroup
	epoch       uint64
	started     bool
	essayOnly   bool
	state       model.SessionState
	correction  bool
	processing  bool
	reanalyzing bool
	resetting   bool
	feedback    model.Feedback
}

// NewController creates a controller for bank. rec may be nil.
func NewController(bank model.Bank, cfg model.ExamConfig, grader Grader, rec Recorder) *Controller {
	c := &Controller{bank: bank, cfg: cfg, grader: grader, recorder: rec}
	c.clearLocked()
	return c
}

// Bank returns the question bank.
func (c *Controller) Bank() model.Bank {
	return c.bank
}

// Start opens a new session. With essayOnly the cursor starts at the essay
// and navigation stays inside the essay section.
func (c *Controller) Start(essayOnly bool) error {
	c.mu.Lock()
	if c.busy() {
		c.mu.Unlock()
		return ErrBusy
	}
	if c.started {
		c.mu.Unlock()
		return ErrStarted
	}
	_, pos, hasEssay := c.bank.EssayQuestion()
	if essayOnly && !hasEssay {
		c.mu.Unlock()
		return ErrNoEssay
	}

	c.clearLocked()
	c.epoch++
	c.started = true
	c.essayOnly = essayOnly
	c.state.ID = uuid.NewString()
	c.state.StartedAt = time.Now().UTC()
	if essayOnly {
		c.state.SectionIndex, c.state.PartIndex = pos.Section, pos.Part
	}
	summary := c.summaryLocked(nil)
	c.mu.Unlock()

	slog.Info("exam started", "session", summary.ID, "bank", c.bank.ID, "essay_only", essayOnly)
	c.recordSession(summary)
	return nil
}

// Answer sets the answer of a question. After submission only the essay can
// be edited, and only in correction mode.
func (c *Controller) Answer(questionID, text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.started {
		return ErrNotStarted
	}
	if c.busy() {
		return ErrBusy
	}
	q, ok := c.bank.Question(questionID)
	if !ok {
		return ErrUnknownQuestion
	}
	if c.state.Submitted && (!c.correction || q.Kind != model.KindEssay) {
		return ErrSubmitted
	}
	c.state.Answers[questionID] = text
	return nil
}

// SelectTopic chooses one of the essay topics by index.
func (c *Controller) SelectTopic(index int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.started {
		return ErrNotStarted
	}
	if c.busy() {
		return ErrBusy
	}
	if c.state.Submitted && !c.correction {
		return ErrSubmitted
	}
	essay, _, ok := c.bank.EssayQuestion()
	if !ok {
		return ErrNoEssay
	}
	if index < 0 || index >= len(essay.Topics) {
		return ErrInvalidTopic
	}
	c.state.SelectedTopic = &index
	return nil
}

// Advance moves to the next part, rolling into the next section.
func (c *Controller) Advance() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.navigable(); err != nil {
		return err
	}
	sec := c.bank.Sections[c.state.SectionIndex]
	switch {
	case c.state.PartIndex+1 < len(sec.Parts):
		c.state.PartIndex++
	case !c.confined() && c.state.SectionIndex+1 < len(c.bank.Sections):
		c.state.SectionIndex++
		c.state.PartIndex = 0
	default:
		return ErrBoundary
	}
	return nil
}

// Retreat moves to the previous part, rolling into the last part of the
// previous section.
func (c *Controller) Retreat() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.navigable(); err != nil {
		return err
	}
	switch {
	case c.state.PartIndex > 0:
		c.state.PartIndex--
	case !c.confined() && c.state.SectionIndex > 0:
		c.state.SectionIndex--
		c.state.PartIndex = len(c.bank.Sections[c.state.SectionIndex].Parts) - 1
	default:
		return ErrBoundary
	}
	return nil
}

// Finalize submits the exam and requests essay feedback in the background.
// A bank without an essay is submitted without grading.
func (c *Controller) Finalize() error {
	c.mu.Lock()
	if err := c.finalizeCheck(); err != nil {
		c.mu.Unlock()
		return err
	}

	now := time.Now().UTC()
	c.state.Submitted = true
	c.correction = false
	summary := c.summaryLocked(&now)

	_, _, hasEssay := c.bank.EssayQuestion()
	if hasEssay {
		c.processing = true
		c.startGradingLocked(model.TriggerFinalize, 0)
	}
	c.mu.Unlock()

	slog.Info("exam submitted", "session", summary.ID, "score", summary.Score, "progress", summary.Progress)
	c.recordSession(summary)
	return nil
}

// EnterCorrectionMode reopens the essay for editing and moves the cursor to it.
func (c *Controller) EnterCorrectionMode() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.started {
		return ErrNotStarted
	}
	if c.processing || c.resetting {
		return ErrBusy
	}
	if !c.state.Submitted {
		return ErrNotSubmitted
	}
	_, pos, ok := c.bank.EssayQuestion()
	if !ok {
		return ErrNoEssay
	}
	c.correction = true
	c.state.SectionIndex, c.state.PartIndex = pos.Section, pos.Part
	return nil
}

// ExitCorrectionMode leaves correction mode. The cursor stays where it is.
func (c *Controller) ExitCorrectionMode() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.resetting {
		return ErrBusy
	}
	if !c.correction {
		return ErrNotCorrecting
	}
	c.correction = false
	return nil
}

// Reanalyze re-grades the current essay while in correction mode.
func (c *Controller) Reanalyze() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.started {
		return ErrNotStarted
	}
	if c.busy() {
		return ErrBusy
	}
	if !c.correction {
		return ErrNotCorrecting
	}
	if err := c.essayCheck(); err != nil {
		return err
	}
	c.reanalyzing = true
	c.startGradingLocked(model.TriggerReanalyze, 0)
	return nil
}

// Adopt replaces the essay with the extracted corrected version and grades
// it again after the settle delay. A submitted exam must be in correction
// mode.
func (c *Controller) Adopt() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.adoptCheck(); err != nil {
		return err
	}
	essay, _, _ := c.bank.EssayQuestion()
	corrected, _ := c.feedback.Field(model.FieldCorrectedVersion)
	c.state.Answers[essay.ID] = corrected
	c.reanalyzing = true
	c.startGradingLocked(model.TriggerAdopt, c.cfg.SettleDelay)
	slog.Info("corrected version adopted", "session", c.state.ID, "chars", utf8.RuneCountInString(corrected))
	return nil
}

// Reset restores the initial state after the reset delay. Results of any
// grading still in flight are discarded.
func (c *Controller) Reset() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.resetting {
		return ErrBusy
	}
	c.epoch++
	c.resetting = true
	epoch := c.epoch
	delay := c.cfg.ResetDelay

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		if delay > 0 {
			time.Sleep(delay)
		}
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.epoch != epoch {
			return
		}
		slog.Info("exam reset", "session", c.state.ID)
		c.clearLocked()
	}()
	return nil
}

// Snapshot returns a copy of the current state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	st := c.state
	st.Answers = maps.Clone(c.state.Answers)
	if c.state.SelectedTopic != nil {
		idx := *c.state.SelectedTopic
		st.SelectedTopic = &idx
	}
	fb := c.feedback
	fb.Fields = maps.Clone(c.feedback.Fields)

	return Snapshot{
		Started:        c.started,
		EssayOnly:      c.essayOnly,
		State:          st,
		CorrectionMode: c.correction,
		Processing:     c.processing,
		Reanalyzing:    c.reanalyzing,
		Resetting:      c.resetting,
		Feedback:       fb,
		Report:         Summarize(c.bank, c.state.Answers),
		CanFinalize:    c.finalizeCheck() == nil,
		CanAdopt:       c.adoptCheck() == nil,
	}
}

// Wait blocks until every pending grading call and reset has been applied.
func (c *Controller) Wait() {
	c.wg.Wait()
}

func (c *Controller) busy() bool {
	return c.processing || c.reanalyzing || c.resetting
}

func (c *Controller) confined() bool {
	return c.correction || c.essayOnly
}

func (c *Controller) navigable() error {
	if !c.started {
		return ErrNotStarted
	}
	if c.resetting {
		return ErrBusy
	}
	return nil
}

func (c *Controller) finalizeCheck() error {
	if !c.started {
		return ErrNotStarted
	}
	if c.busy() {
		return ErrBusy
	}
	if c.state.Submitted && !c.correction {
		return ErrSubmitted
	}
	if _, _, ok := c.bank.EssayQuestion(); !ok {
		return nil
	}
	return c.essayCheck()
}

func (c *Controller) essayCheck() error {
	essay, _, ok := c.bank.EssayQuestion()
	if !ok {
		return ErrNoEssay
	}
	if utf8.RuneCountInString(strings.TrimSpace(c.state.Answers[essay.ID])) < c.cfg.MinEssayChars {
		return ErrEssayTooShort
	}
	if c.cfg.RequireTopic && len(essay.Topics) > 0 && c.state.SelectedTopic == nil {
		return ErrTopicRequired
	}
	return nil
}

func (c *Controller) adoptCheck() error {
	if !c.started {
		return ErrNotStarted
	}
	if c.busy() {
		return ErrBusy
	}
	// A submitted essay only changes in correction mode.
	if c.state.Submitted && !c.correction {
		return ErrNotCorrecting
	}
	if v, ok := c.feedback.Field(model.FieldCorrectedVersion); !ok || v == "" {
		return ErrNoCorrection
	}
	return nil
}

func (c *Controller) clearLocked() {
	c.started = false
	c.essayOnly = false
	c.state = model.SessionState{Answers: make(map[string]string)}
	c.correction = false
	c.processing = false
	c.reanalyzing = false
	c.resetting = false
	c.feedback = model.Feedback{Status: model.FeedbackIdle}
}

func (c *Controller) summaryLocked(submittedAt *time.Time) model.SessionSummary {
	return model.SessionSummary{
		ID:             c.state.ID,
		BankID:         c.bank.ID,
		StartedAt:      c.state.StartedAt,
		SubmittedAt:    submittedAt,
		Score:          Score(c.bank, c.state.Answers),
		ObjectiveMarks: c.bank.ObjectiveMarks(),
		Progress:       Progress(c.bank, c.state.Answers),
	}
}

func (c *Controller) topicLocked(essay model.Question) string {
	if c.state.SelectedTopic == nil {
		return ""
	}
	idx := *c.state.SelectedTopic
	if idx < 0 || idx >= len(essay.Topics) {
		return ""
	}
	return essay.Topics[idx]
}

// startGradingLocked clears the feedback and dispatches one grading call.
// The caller has set the processing or reanalyzing gate.
func (c *Controller) startGradingLocked(trigger model.GradingTrigger, delay time.Duration) {
	essay, _, _ := c.bank.EssayQuestion()
	req := llm.Request{
		Essay:   c.state.Answers[essay.ID],
		Topic:   c.topicLocked(essay),
		Backend: c.cfg.Backend,
	}
	c.feedback = model.Feedback{Status: model.FeedbackRequesting}

	epoch, sessionID := c.epoch, c.state.ID
	c.wg.Add(1)
	go c.grade(epoch, sessionID, trigger, delay, req)
}

func (c *Controller) grade(epoch uint64, sessionID string, trigger model.GradingTrigger, delay time.Duration, req llm.Request) {
	defer c.wg.Done()

	if delay > 0 {
		time.Sleep(delay)
		if !c.current(epoch) {
			return
		}
	}

	rep := c.grader.Grade(context.Background(), req)
	res := feedback.Parse(rep.Text, c.grader.Tags())

	c.mu.Lock()
	if c.epoch != epoch {
		c.mu.Unlock()
		slog.Debug("discarding stale grading result", "session", sessionID, "trigger", trigger)
		return
	}
	status := model.FeedbackParsed
	if rep.Diagnostic {
		status = model.FeedbackErrored
	}
	c.feedback = model.Feedback{
		Status:     status,
		Display:    res.Display,
		Fields:     res.Fields,
		Backend:    rep.Backend,
		Diagnostic: rep.Diagnostic,
	}
	c.processing = false
	c.reanalyzing = false
	c.mu.Unlock()

	slog.Info("essay feedback applied", "session", sessionID, "trigger", trigger, "status", status, "fields", len(res.Fields))

	c.recordAttempt(model.GradingAttempt{
		SessionID:  sessionID,
		Trigger:    trigger,
		Backend:    rep.Backend,
		Variant:    string(rep.Variant),
		Essay:      req.Essay,
		Topic:      req.Topic,
		Display:    res.Display,
		Fields:     res.Fields,
		Diagnostic: rep.Diagnostic,
		CreatedAt:  time.Now().UTC(),
	})
}

func (c *Controller) current(epoch uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.epoch == epoch
}

func (c *Controller) recordSession(s model.SessionSummary) {
	if c.recorder == nil {
		return
	}
	if err := c.recorder.UpsertSession(context.Background(), s); err != nil {
		slog.Error("failed to record session", "session", s.ID, "error", err)
	}
}

func (c *Controller) recordAttempt(a model.GradingAttempt) {
	if c.recorder == nil {
		return
	}
	if err := c.recorder.RecordAttempt(context.Background(), a); err != nil {
		slog.Error("failed to record grading attempt", "session", a.SessionID, "error", err)
	}
}
