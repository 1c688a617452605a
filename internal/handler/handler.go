// Package handler exposes the exam session as a JSON API.
package handler

import (
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/pavelanni/examcoach/internal/exam"
	appI18n "github.com/pavelanni/examcoach/internal/i18n"
	"github.com/pavelanni/examcoach/internal/model"
	"github.com/pavelanni/examcoach/internal/store"
)

// Handler holds shared dependencies for HTTP handlers.
type Handler struct {
	ctrl     *exam.Controller
	store    *store.Store
	config   model.ExamConfig
	validate *validator.Validate
}

// New creates a new Handler. s may be nil when the journal is disabled.
func New(ctrl *exam.Controller, s *store.Store, cfg model.ExamConfig) *Handler {
	return &Handler{
		ctrl:     ctrl,
		store:    s,
		config:   cfg,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

type startRequest struct {
	EssayOnly bool `json:"essay_only"`
}

type answerRequest struct {
	Answer string `json:"answer"`
}

type topicRequest struct {
	Index *int `json:"index" validate:"required,gte=0"`
}

type errorResponse struct {
	Error   string         `json:"error"`
	Session *exam.Snapshot `json:"session,omitempty"`
}

// Routes registers all HTTP routes.
func (h *Handler) Routes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Get("/bank", h.handleBank)

		r.Route("/session", func(r chi.Router) {
			r.Get("/", h.handleSnapshot)
			r.Get("/status", h.handleStatus)
			r.Get("/part", h.handlePart)
			r.Post("/start", h.handleStart)
			r.Put("/answers/{questionID}", h.handleAnswer)
			r.Put("/topic", h.handleTopic)
			r.Post("/advance", h.action(h.ctrl.Advance))
			r.Post("/retreat", h.action(h.ctrl.Retreat))
			r.Post("/finalize", h.action(h.ctrl.Finalize))
			r.Post("/correction", h.action(h.ctrl.EnterCorrectionMode))
			r.Delete("/correction", h.action(h.ctrl.ExitCorrectionMode))
			r.Post("/reanalyze", h.action(h.ctrl.Reanalyze))
			r.Post("/adopt", h.action(h.ctrl.Adopt))
			r.Post("/reset", h.action(h.ctrl.Reset))
		})

		r.Get("/journal", h.handleJournal)
		r.Get("/journal/{sessionID}", h.handleJournalSession)
	})
}

func (h *Handler) handleBank(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.ctrl.Bank())
}

func (h *Handler) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.ctrl.Snapshot())
}

// handlePart returns the part under the session cursor.
func (h *Handler) handlePart(w http.ResponseWriter, r *http.Request) {
	snap := h.ctrl.Snapshot()
	if !snap.Started {
		writeJSON(w, http.StatusConflict, errorResponse{Error: appI18n.T(r.Context(), "SessionNotStarted"), Session: &snap})
		return
	}
	p := h.ctrl.Bank().Part(model.Position{Section: snap.State.SectionIndex, Part: snap.State.PartIndex})
	if p == nil {
		http.Error(w, "cursor out of range", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

type statusResponse struct {
	Answered string `json:"answered"`
	Feedback string `json:"feedback,omitempty"`
}

// handleStatus returns localised status lines for the session header.
func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	snap := h.ctrl.Snapshot()
	resp := statusResponse{Answered: appI18n.Tp(r.Context(), "QuestionsAnswered", snap.Report.Answered)}
	if snap.Feedback.Status == model.FeedbackRequesting {
		resp.Feedback = appI18n.T(r.Context(), "FeedbackPending")
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleStart(w http.ResponseWriter, r *http.Request) {
	var req startRequest
	if !h.decode(w, r, &req) {
		return
	}
	h.respond(w, r, h.ctrl.Start(req.EssayOnly), nil)
}

func (h *Handler) handleAnswer(w http.ResponseWriter, r *http.Request) {
	questionID := chi.URLParam(r, "questionID")
	var req answerRequest
	if !h.decode(w, r, &req) {
		return
	}
	h.respond(w, r, h.ctrl.Answer(questionID, req.Answer), map[string]any{"ID": questionID})
}

func (h *Handler) handleTopic(w http.ResponseWriter, r *http.Request) {
	var req topicRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: appI18n.T(r.Context(), "BadRequest")})
		return
	}
	h.respond(w, r, h.ctrl.SelectTopic(*req.Index), map[string]any{"Index": *req.Index})
}

// action adapts a parameterless controller operation to a handler.
func (h *Handler) action(op func() error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.respond(w, r, op(), nil)
	}
}

func (h *Handler) handleJournal(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: appI18n.T(r.Context(), "JournalDisabled")})
		return
	}
	sessions, err := h.store.ListSessions()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if sessions == nil {
		sessions = []model.SessionSummary{}
	}
	writeJSON(w, http.StatusOK, sessions)
}

func (h *Handler) handleJournalSession(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: appI18n.T(r.Context(), "JournalDisabled")})
		return
	}
	sessionID := chi.URLParam(r, "sessionID")
	sess, err := h.store.GetSession(sessionID)
	if errors.Is(err, sql.ErrNoRows) {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: appI18n.T(r.Context(), "SessionNotFound")})
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	attempts, err := h.store.ListAttempts(sessionID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if attempts == nil {
		attempts = []model.GradingAttempt{}
	}
	writeJSON(w, http.StatusOK, model.SessionResult{Session: sess, Attempts: attempts})
}

// decode reads an optional JSON body. An empty body leaves dst untouched.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	err := json.NewDecoder(r.Body).Decode(dst)
	if err == nil || errors.Is(err, io.EOF) {
		return true
	}
	slog.Debug("bad request body", "path", r.URL.Path, "error", err)
	writeJSON(w, http.StatusBadRequest, errorResponse{Error: appI18n.T(r.Context(), "BadRequest")})
	return false
}

// respond writes the snapshot, with 409 and a localised reason when the
// controller rejected the operation.
func (h *Handler) respond(w http.ResponseWriter, r *http.Request, err error, data map[string]any) {
	snap := h.ctrl.Snapshot()
	if err == nil {
		writeJSON(w, http.StatusOK, snap)
		return
	}
	slog.Debug("action rejected", "path", r.URL.Path, "reason", err)
	writeJSON(w, http.StatusConflict, errorResponse{
		Error:   h.rejectionMessage(r, err, data),
		Session: &snap,
	})
}

func (h *Handler) rejectionMessage(r *http.Request, err error, data map[string]any) string {
	ctx := r.Context()
	switch {
	case errors.Is(err, exam.ErrBusy):
		return appI18n.T(ctx, "SessionBusy")
	case errors.Is(err, exam.ErrNotStarted):
		return appI18n.T(ctx, "SessionNotStarted")
	case errors.Is(err, exam.ErrStarted):
		return appI18n.T(ctx, "SessionStarted")
	case errors.Is(err, exam.ErrSubmitted):
		return appI18n.T(ctx, "SessionSubmitted")
	case errors.Is(err, exam.ErrNotSubmitted):
		return appI18n.T(ctx, "SessionNotSubmitted")
	case errors.Is(err, exam.ErrEssayTooShort):
		return appI18n.Td(ctx, "EssayTooShort", map[string]any{"Min": h.config.MinEssayChars})
	case errors.Is(err, exam.ErrTopicRequired):
		return appI18n.T(ctx, "TopicRequired")
	case errors.Is(err, exam.ErrNoCorrection):
		return appI18n.T(ctx, "NoCorrection")
	case errors.Is(err, exam.ErrNotCorrecting):
		return appI18n.T(ctx, "NotInCorrectionMode")
	case errors.Is(err, exam.ErrNoEssay):
		return appI18n.T(ctx, "NoEssay")
	case errors.Is(err, exam.ErrUnknownQuestion):
		return appI18n.Td(ctx, "UnknownQuestion", data)
	case errors.Is(err, exam.ErrInvalidTopic):
		return appI18n.Td(ctx, "InvalidTopic", data)
	case errors.Is(err, exam.ErrBoundary):
		return appI18n.T(ctx, "NoFurtherPart")
	default:
		return appI18n.T(ctx, "ActionRejected")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response", "error", err)
	}
}
