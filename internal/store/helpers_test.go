package store

import (
	"context"

	"github.com/pavelanni/examcoach/internal/feedback"
	"github.com/pavelanni/examcoach/internal/llm"
	"github.com/pavelanni/examcoach/internal/model"
)

type stubGrader struct{}

func (stubGrader) Grade(context.Context, llm.Request) llm.Report {
	return llm.Report{Text: "Good.\n[CORRECTED_VERSION]Fixed.[/CORRECTED_VERSION]", Backend: "stub"}
}

func (stubGrader) Tags() feedback.Tags { return feedback.Basic }

func testBank() model.Bank {
	return model.Bank{ID: "mini", Sections: []model.Section{{ID: "s", Title: "S", Parts: []model.Part{{
		ID: "p", Title: "P", Questions: []model.Question{
			{ID: "w1", Number: 1, Kind: model.KindEssay, Marks: 10},
		},
	}}}}}
}
