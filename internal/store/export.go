package store

import (
	"fmt"

	"github.com/pavelanni/examcoach/internal/model"
)

// ExportAllSessions builds the export document from the whole journal.
func (s *Store) ExportAllSessions() (model.ExamExport, error) {
	var out model.ExamExport

	info, err := s.GetExamInfo()
	if err != nil {
		return out, fmt.Errorf("get exam info: %w", err)
	}
	out.Exam = info

	sessions, err := s.ListSessions()
	if err != nil {
		return out, fmt.Errorf("list sessions: %w", err)
	}

	out.Results = make([]model.SessionResult, 0, len(sessions))
	for _, sess := range sessions {
		attempts, err := s.ListAttempts(sess.ID)
		if err != nil {
			return out, fmt.Errorf("list attempts for %s: %w", sess.ID, err)
		}
		if attempts == nil {
			attempts = []model.GradingAttempt{}
		}
		out.Results = append(out.Results, model.SessionResult{
			Session:  sess,
			Attempts: attempts,
		})
	}
	return out, nil
}
