package service

import (
	"testing"

	"github.com/google/uuid"

	"github.com/edukit/paperflow-backend/internal/layout"
	"github.com/edukit/paperflow-backend/internal/model"
)

func TestAssemblePaper_InterleavesProblemsAndChunks(t *testing.T) {
	exam := &model.Exam{ID: uuid.New(), Title: "Algebra", DurationMinutes: 45}
	p1 := model.Problem{
		ID:       uuid.New(),
		Text:     "Solve for x.",
		Kind:     model.ProblemFreeText,
		Solution: "Isolate x on the left.\n\nDivide both sides by two.",
	}
	p2 := model.Problem{
		ID:   uuid.New(),
		Text: "Pick the prime.",
		Kind: model.ProblemSingleSelect,
	}

	paper := AssemblePaper(exam, []model.Problem{p1, p2})

	// p1, its two solution chunks, then p2.
	if len(paper.Items) != 4 {
		t.Fatalf("got %d items, want 4", len(paper.Items))
	}
	if paper.Items[0].ID != p1.ID.String() || paper.Items[0].Kind != string(layout.KindProblem) {
		t.Errorf("item 0 = %+v, want problem %s first", paper.Items[0], p1.ID)
	}
	for i := 1; i <= 2; i++ {
		if paper.Items[i].Kind != string(layout.KindChunk) {
			t.Errorf("item %d kind %s, want chunk", i, paper.Items[i].Kind)
		}
		if paper.Items[i].ParentID != p1.ID.String() {
			t.Errorf("item %d parent %s, want %s", i, paper.Items[i].ParentID, p1.ID)
		}
	}
	if paper.Items[3].ID != p2.ID.String() {
		t.Errorf("item 3 = %s, want %s", paper.Items[3].ID, p2.ID)
	}
}

func TestAssemblePaper_StripsCanonicalAnswers(t *testing.T) {
	exam := &model.Exam{ID: uuid.New(), Title: "Quiz", DurationMinutes: 10}
	p := model.Problem{
		ID:             uuid.New(),
		Text:           "2 + 2 = ?",
		Kind:           model.ProblemFreeText,
		CorrectText:    "4",
		CorrectAnswers: []string{"4"},
	}

	paper := AssemblePaper(exam, []model.Problem{p})

	item := paper.Items[0]
	if item.Text != p.Text {
		t.Errorf("item text %q, want statement preserved", item.Text)
	}
	// PaperItem has no answer fields at all; assert the statement is
	// the only textual content carried over.
	if item.AnswerKind != p.Kind {
		t.Errorf("answer kind %s, want %s", item.AnswerKind, p.Kind)
	}
}
