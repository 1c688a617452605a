// Package exam runs an exam session: navigation, answers, scoring and the
// essay grading loop.
package exam

import (
	"strings"

	"github.com/pavelanni/examcoach/internal/model"
)

// SectionScore is the objective result of one section.
type SectionScore struct {
	ID       string  `json:"id"`
	Title    string  `json:"title"`
	Score    float64 `json:"score"`
	Marks    float64 `json:"marks"`
	Answered int     `json:"answered"`
	Total    int     `json:"total"`
}

// Report summarises a set of answers against a bank.
type Report struct {
	Score          float64        `json:"score"`
	ObjectiveMarks float64        `json:"objective_marks"`
	TotalMarks     float64        `json:"total_marks"`
	Progress       float64        `json:"progress"`
	Answered       int            `json:"answered"`
	Total          int            `json:"total"`
	EssayWords     int            `json:"essay_words"`
	Sections       []SectionScore `json:"sections"`
}

// Score sums the marks of every machine-graded question answered correctly.
func Score(b model.Bank, answers map[string]string) float64 {
	var score float64
	for _, s := range b.Sections {
		score += sectionScore(s, answers).Score
	}
	return score
}

// Progress returns the percentage of questions with a non-blank answer.
// An empty bank has 0% progress.
func Progress(b model.Bank, answers map[string]string) float64 {
	total := b.TotalQuestions()
	if total == 0 {
		return 0
	}
	return float64(countAnswered(b, answers)) / float64(total) * 100
}

// WordCount counts whitespace-separated words.
func WordCount(text string) int {
	return len(strings.Fields(text))
}

// Summarize computes the full report for the given answers.
func Summarize(b model.Bank, answers map[string]string) Report {
	r := Report{
		ObjectiveMarks: b.ObjectiveMarks(),
		TotalMarks:     b.TotalMarks(),
		Progress:       Progress(b, answers),
		Answered:       countAnswered(b, answers),
		Total:          b.TotalQuestions(),
		Sections:       make([]SectionScore, 0, len(b.Sections)),
	}
	for _, s := range b.Sections {
		ss := sectionScore(s, answers)
		r.Score += ss.Score
		r.Sections = append(r.Sections, ss)
	}
	if q, _, ok := b.EssayQuestion(); ok {
		r.EssayWords = WordCount(answers[q.ID])
	}
	return r
}

func sectionScore(s model.Section, answers map[string]string) SectionScore {
	ss := SectionScore{ID: s.ID, Title: s.Title}
	for _, p := range s.Parts {
		for _, q := range p.Questions {
			ss.Total++
			ans := answers[q.ID]
			if strings.TrimSpace(ans) != "" {
				ss.Answered++
			}
			if !q.Graded() {
				continue
			}
			ss.Marks += q.Marks
			if correct, _ := q.Check(ans); correct {
				ss.Score += q.Marks
			}
		}
	}
	return ss
}

func countAnswered(b model.Bank, answers map[string]string) int {
	n := 0
	for _, s := range b.Sections {
		for _, p := range s.Parts {
			for _, q := range p.Questions {
				if strings.TrimSpace(answers[q.ID]) != "" {
					n++
				}
			}
		}
	}
	return n
}
