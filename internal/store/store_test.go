package store

import (
	"context"
	"testing"
	"time"

	"github.com/pavelanni/examcoach/internal/exam"
	"github.com/pavelanni/examcoach/internal/model"
)

var _ exam.Recorder = (*Store)(nil)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(":memory:")
	if err != nil {
		t.Fatalf("newTestStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func insertTestSession(t *testing.T, s *Store, id string, started time.Time) model.SessionSummary {
	t.Helper()
	sess := model.SessionSummary{
		ID:             id,
		BankID:         "jae-english-2025",
		StartedAt:      started,
		ObjectiveMarks: 26.5,
	}
	if err := s.UpsertSession(context.Background(), sess); err != nil {
		t.Fatalf("insertTestSession: %v", err)
	}
	return sess
}

func TestSessionLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	started := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

	sess := insertTestSession(t, s, "s-1", started)

	got, err := s.GetSession("s-1")
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	if got.SubmittedAt != nil {
		t.Errorf("expected no submitted_at, got %v", got.SubmittedAt)
	}
	if !got.StartedAt.Equal(started) {
		t.Errorf("StartedAt = %v, want %v", got.StartedAt, started)
	}

	// Submitting updates the same row.
	submitted := started.Add(40 * time.Minute)
	sess.SubmittedAt = &submitted
	sess.Score = 12.5
	sess.Progress = 90
	if err := s.UpsertSession(ctx, sess); err != nil {
		t.Fatalf("UpsertSession: %v", err)
	}

	got, err = s.GetSession("s-1")
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	if got.SubmittedAt == nil || !got.SubmittedAt.Equal(submitted) {
		t.Errorf("SubmittedAt = %v, want %v", got.SubmittedAt, submitted)
	}
	if got.Score != 12.5 || got.Progress != 90 {
		t.Errorf("score/progress = %v/%v, want 12.5/90", got.Score, got.Progress)
	}

	list, err := s.ListSessions()
	if err != nil {
		t.Fatalf("ListSessions: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("expected 1 session, got %d", len(list))
	}
}

func TestListSessionsNewestFirst(t *testing.T) {
	s := newTestStore(t)
	base := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	insertTestSession(t, s, "old", base)
	insertTestSession(t, s, "new", base.Add(time.Hour))

	list, err := s.ListSessions()
	if err != nil {
		t.Fatalf("ListSessions: %v", err)
	}
	if len(list) != 2 || list[0].ID != "new" || list[1].ID != "old" {
		t.Errorf("unexpected order: %+v", list)
	}
}

func TestAttempts(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	insertTestSession(t, s, "s-1", time.Now().UTC())

	first := model.GradingAttempt{
		SessionID: "s-1",
		Trigger:   model.TriggerFinalize,
		Backend:   "gemini",
		Variant:   "ladder",
		Essay:     "I like exam.",
		Topic:     "Exams",
		Display:   "Step 1: B",
		Fields: map[model.FeedbackField]string{
			model.FieldCorrectedVersion: "I like exams.",
			model.FieldComparison:       "",
		},
	}
	second := model.GradingAttempt{
		SessionID:  "s-1",
		Trigger:    model.TriggerAdopt,
		Backend:    "gemini",
		Essay:      "I like exams.",
		Display:    "Connection to the grading service failed.",
		Diagnostic: true,
	}
	for _, a := range []model.GradingAttempt{first, second} {
		if err := s.RecordAttempt(ctx, a); err != nil {
			t.Fatalf("RecordAttempt: %v", err)
		}
	}

	attempts, err := s.ListAttempts("s-1")
	if err != nil {
		t.Fatalf("ListAttempts: %v", err)
	}
	if len(attempts) != 2 {
		t.Fatalf("expected 2 attempts, got %d", len(attempts))
	}

	a := attempts[0]
	if a.Trigger != model.TriggerFinalize || a.Topic != "Exams" || a.Diagnostic {
		t.Errorf("unexpected first attempt: %+v", a)
	}
	if a.CreatedAt.IsZero() {
		t.Error("expected created_at to be set")
	}
	if v, ok := a.Fields[model.FieldCorrectedVersion]; !ok || v != "I like exams." {
		t.Errorf("corrected version = %q, %v", v, ok)
	}
	if v, ok := a.Fields[model.FieldComparison]; !ok || v != "" {
		t.Errorf("empty comparison should be present, got %q, %v", v, ok)
	}
	if _, ok := a.Fields[model.FieldModelEssay]; ok {
		t.Error("absent model essay should stay absent")
	}

	b := attempts[1]
	if !b.Diagnostic || b.Trigger != model.TriggerAdopt || len(b.Fields) != 0 {
		t.Errorf("unexpected second attempt: %+v", b)
	}

	count, err := s.AttemptCount()
	if err != nil {
		t.Fatalf("AttemptCount: %v", err)
	}
	if count != 2 {
		t.Errorf("AttemptCount = %d, want 2", count)
	}

	none, err := s.ListAttempts("missing")
	if err != nil {
		t.Fatalf("ListAttempts: %v", err)
	}
	if len(none) != 0 {
		t.Errorf("expected no attempts, got %d", len(none))
	}
}

func TestMetadata(t *testing.T) {
	s := newTestStore(t)

	v, err := s.GetMetadata("missing")
	if err != nil || v != "" {
		t.Fatalf("GetMetadata(missing) = %q, %v", v, err)
	}

	if err := s.SetMetadata("k", "one"); err != nil {
		t.Fatalf("SetMetadata: %v", err)
	}
	if err := s.SetMetadata("k", "two"); err != nil {
		t.Fatalf("SetMetadata: %v", err)
	}
	if v, _ := s.GetMetadata("k"); v != "two" {
		t.Errorf("GetMetadata(k) = %q, want two", v)
	}

	info := model.ExamInfo{BankID: "jae-english-2025", Title: "JAE", Backend: "gemini", PromptVariant: "ladder", NumQuestions: 22}
	if err := s.SetExamInfo(info); err != nil {
		t.Fatalf("SetExamInfo: %v", err)
	}
	got, err := s.GetExamInfo()
	if err != nil {
		t.Fatalf("GetExamInfo: %v", err)
	}
	if got != info {
		t.Errorf("GetExamInfo() = %+v, want %+v", got, info)
	}
}

func TestExportAllSessions(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

	if err := s.SetExamInfo(model.ExamInfo{BankID: "b", PromptVariant: "basic", NumQuestions: 3}); err != nil {
		t.Fatalf("SetExamInfo: %v", err)
	}
	insertTestSession(t, s, "a", base)
	insertTestSession(t, s, "b", base.Add(time.Minute))
	if err := s.RecordAttempt(ctx, model.GradingAttempt{SessionID: "a", Trigger: model.TriggerFinalize, Display: "ok"}); err != nil {
		t.Fatalf("RecordAttempt: %v", err)
	}

	exp, err := s.ExportAllSessions()
	if err != nil {
		t.Fatalf("ExportAllSessions: %v", err)
	}
	if exp.Exam.PromptVariant != "basic" || exp.Exam.NumQuestions != 3 {
		t.Errorf("unexpected exam info: %+v", exp.Exam)
	}
	if len(exp.Results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(exp.Results))
	}
	if exp.Results[0].Session.ID != "b" || len(exp.Results[0].Attempts) != 0 {
		t.Errorf("unexpected first result: %+v", exp.Results[0])
	}
	if exp.Results[0].Attempts == nil {
		t.Error("attempts should export as an empty list, not null")
	}
	if len(exp.Results[1].Attempts) != 1 || exp.Results[1].Attempts[0].Display != "ok" {
		t.Errorf("unexpected second result: %+v", exp.Results[1])
	}
}

func TestRecorderWithController(t *testing.T) {
	s := newTestStore(t)
	c := exam.NewController(testBank(), model.ExamConfig{MinEssayChars: 5}, stubGrader{}, s)

	if err := c.Start(false); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := c.Answer("w1", "An essay about travel."); err != nil {
		t.Fatalf("Answer: %v", err)
	}
	if err := c.Finalize(); err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	c.Wait()

	id := c.Snapshot().State.ID
	sess, err := s.GetSession(id)
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	if sess.SubmittedAt == nil {
		t.Error("expected the session to be submitted")
	}
	attempts, err := s.ListAttempts(id)
	if err != nil {
		t.Fatalf("ListAttempts: %v", err)
	}
	if len(attempts) != 1 || attempts[0].Fields[model.FieldCorrectedVersion] != "Fixed." {
		t.Errorf("unexpected attempts: %+v", attempts)
	}
}
