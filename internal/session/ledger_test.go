package session

import (
	"reflect"
	"testing"
)

func TestLedger_SelectableChangeDetectionIsOrderInsensitive(t *testing.T) {
	l := NewLedger()

	l.SelectAnswer("q1", []string{"2", "4"})
	l.SnapshotCommit("q1")

	// Same membership, different order: no change.
	l.SelectAnswer("q1", []string{"4", "2"})
	if l.HasChangedSinceCommit("q1") {
		t.Error("reordered equal set reported as changed")
	}

	// Subset: changed.
	l.SelectAnswer("q1", []string{"2"})
	if !l.HasChangedSinceCommit("q1") {
		t.Error("smaller set not reported as changed")
	}

	// Same size, different membership: changed.
	l.SelectAnswer("q1", []string{"2", "5"})
	if !l.HasChangedSinceCommit("q1") {
		t.Error("different membership not reported as changed")
	}
}

func TestLedger_FreeTextChangeDetectionTrims(t *testing.T) {
	l := NewLedger()

	l.SetText("q2", "x = 42")
	l.SnapshotCommit("q2")

	l.SetText("q2", "  x = 42  ")
	if l.HasChangedSinceCommit("q2") {
		t.Error("whitespace-only difference reported as changed")
	}

	l.SetText("q2", "x = 43")
	if !l.HasChangedSinceCommit("q2") {
		t.Error("text change not reported")
	}
}

func TestLedger_HistoryIsAppendOnly(t *testing.T) {
	l := NewLedger()

	l.SelectAnswer("q1", []string{"a"})
	l.SelectAnswer("q1", []string{"b"})
	l.SelectAnswer("q1", []string{"a", "b"})

	hist := l.History("q1")
	if len(hist) != 3 {
		t.Fatalf("history has %d entries, want 3", len(hist))
	}
	if !reflect.DeepEqual(hist[0].Values, []string{"a"}) {
		t.Errorf("first entry %v", hist[0].Values)
	}
	if !reflect.DeepEqual(hist[2].Values, []string{"a", "b"}) {
		t.Errorf("last entry %v", hist[2].Values)
	}
}

func TestLedger_HasAnswer(t *testing.T) {
	l := NewLedger()

	if l.HasAnswer("q1") {
		t.Error("untouched item reports an answer")
	}

	l.SetText("q1", "   ")
	if l.HasAnswer("q1") {
		t.Error("whitespace-only text counts as an answer")
	}

	l.SetText("q1", "some work")
	if !l.HasAnswer("q1") {
		t.Error("free text not counted as an answer")
	}

	l.SelectAnswer("q2", []string{"c"})
	if !l.HasAnswer("q2") {
		t.Error("selection not counted as an answer")
	}
}

func TestLedger_SkipTagIndependentOfAnswers(t *testing.T) {
	l := NewLedger()

	l.MarkSkipped("q3")
	if !l.IsSkipped("q3") {
		t.Error("skip tag not recorded")
	}
	if l.HasAnswer("q3") {
		t.Error("skip tag must not count as an answer")
	}
	if l.IsSkipped("q4") {
		t.Error("unvisited item reports skipped")
	}
}
