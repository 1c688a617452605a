package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	"github.com/pavelanni/examcoach/internal/model"
)

const upsertMetadata = `INSERT INTO exam_metadata (key, value) VALUES (?, ?)
	ON CONFLICT(key) DO UPDATE SET value = excluded.value`

// SetMetadata stores one journal-level setting.
func (s *Store) SetMetadata(key, value string) error {
	_, err := s.db.Exec(upsertMetadata, key, value)
	return err
}

// GetMetadata returns "" for a key that was never set.
func (s *Store) GetMetadata(key string) (string, error) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM exam_metadata WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return value, err
}

// SetExamInfo records which bank and grading setup the journal belongs to.
func (s *Store) SetExamInfo(info model.ExamInfo) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	for k, v := range map[string]string{
		"bank_id":        info.BankID,
		"title":          info.Title,
		"backend":        info.Backend,
		"prompt_variant": info.PromptVariant,
		"num_questions":  strconv.Itoa(info.NumQuestions),
	} {
		if _, err := tx.Exec(upsertMetadata, k, v); err != nil {
			return fmt.Errorf("set %s: %w", k, err)
		}
	}
	return tx.Commit()
}

// GetExamInfo returns the zero ExamInfo for a journal that has none.
func (s *Store) GetExamInfo() (model.ExamInfo, error) {
	rows, err := s.db.Query(`SELECT key, value FROM exam_metadata`)
	if err != nil {
		return model.ExamInfo{}, err
	}
	defer rows.Close()

	var info model.ExamInfo
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return info, err
		}
		switch k {
		case "bank_id":
			info.BankID = v
		case "title":
			info.Title = v
		case "backend":
			info.Backend = v
		case "prompt_variant":
			info.PromptVariant = v
		case "num_questions":
			if info.NumQuestions, err = strconv.Atoi(v); err != nil {
				return info, fmt.Errorf("num_questions: %w", err)
			}
		}
	}
	return info, rows.Err()
}
