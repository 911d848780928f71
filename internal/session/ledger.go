package session

import (
	"sort"
	"strings"
	"time"
)

// AnswerKind distinguishes how an item is answered.
type AnswerKind string

const (
	// AnswerSelect covers single- and multi-select items; the answer is
	// a set of option IDs.
	AnswerSelect AnswerKind = "SELECT"
	// AnswerText covers free-text and open-response items.
	AnswerText AnswerKind = "TEXT"
)

// AnswerEvent is one entry in an item's append-only answer history.
// The history exists for audit and analytics, not for undo.
type AnswerEvent struct {
	Values []string  `json:"values,omitempty"`
	Text   string    `json:"text,omitempty"`
	At     time.Time `json:"at"`
}

type answerRecord struct {
	kind              AnswerKind
	selected          map[string]struct{}
	text              string
	committedSelected map[string]struct{}
	committedText     string
	skipped           bool
	history           []AnswerEvent
}

// Ledger owns per-item answer values, the explicit-skip tag, and the
// full assignment history. The stopwatch consults it, and only it,
// to decide whether leaving a committed item requires a re-commit.
//
// The Ledger is not safe for concurrent use; the owning Controller
// serializes access.
type Ledger struct {
	now   func() time.Time
	items map[string]*answerRecord
}

// NewLedger creates an empty Ledger.
func NewLedger() *Ledger {
	return &Ledger{
		now:   time.Now,
		items: make(map[string]*answerRecord),
	}
}

func (l *Ledger) record(itemID string) *answerRecord {
	rec, ok := l.items[itemID]
	if !ok {
		rec = &answerRecord{}
		l.items[itemID] = rec
	}
	return rec
}

// SelectAnswer replaces the item's selected option set and appends to
// its history.
func (l *Ledger) SelectAnswer(itemID string, values []string) {
	rec := l.record(itemID)
	rec.kind = AnswerSelect
	rec.selected = make(map[string]struct{}, len(values))
	for _, v := range values {
		rec.selected[v] = struct{}{}
	}
	rec.history = append(rec.history, AnswerEvent{Values: sortedValues(rec.selected), At: l.now()})
}

// SetText replaces the item's free-text answer and appends to its
// history.
func (l *Ledger) SetText(itemID, text string) {
	rec := l.record(itemID)
	rec.kind = AnswerText
	rec.text = text
	rec.history = append(rec.history, AnswerEvent{Text: text, At: l.now()})
}

// MarkSkipped tags the item as deliberately deferred. The tag is
// independent of status and does not touch any clock; it only lets the
// navigation UI distinguish "never opened" from "opened and skipped".
func (l *Ledger) MarkSkipped(itemID string) {
	l.record(itemID).skipped = true
}

// IsSkipped reports the explicit-skip tag.
func (l *Ledger) IsSkipped(itemID string) bool {
	rec, ok := l.items[itemID]
	return ok && rec.skipped
}

// HasAnswer reports whether the item has any answer value at all.
func (l *Ledger) HasAnswer(itemID string) bool {
	rec, ok := l.items[itemID]
	if !ok {
		return false
	}
	if rec.kind == AnswerText {
		return strings.TrimSpace(rec.text) != ""
	}
	return len(rec.selected) > 0
}

// HasChangedSinceCommit reports whether the item's current answer
// differs from the last committed snapshot. Selectable answers compare
// as sets (size and membership, order-insensitive); free text compares
// trimmed strings for exact equality.
func (l *Ledger) HasChangedSinceCommit(itemID string) bool {
	rec, ok := l.items[itemID]
	if !ok {
		return false
	}
	if rec.kind == AnswerText {
		return strings.TrimSpace(rec.text) != strings.TrimSpace(rec.committedText)
	}
	if len(rec.selected) != len(rec.committedSelected) {
		return true
	}
	for v := range rec.selected {
		if _, ok := rec.committedSelected[v]; !ok {
			return true
		}
	}
	return false
}

// SnapshotCommit overwrites the committed answer snapshot with the
// current value.
func (l *Ledger) SnapshotCommit(itemID string) {
	rec := l.record(itemID)
	rec.committedText = rec.text
	rec.committedSelected = make(map[string]struct{}, len(rec.selected))
	for v := range rec.selected {
		rec.committedSelected[v] = struct{}{}
	}
}

// Selected returns the item's current answer set, sorted.
func (l *Ledger) Selected(itemID string) []string {
	rec, ok := l.items[itemID]
	if !ok {
		return nil
	}
	return sortedValues(rec.selected)
}

// Text returns the item's current free-text answer.
func (l *Ledger) Text(itemID string) string {
	rec, ok := l.items[itemID]
	if !ok {
		return ""
	}
	return rec.text
}

// History returns the item's answer history in assignment order.
func (l *Ledger) History(itemID string) []AnswerEvent {
	rec, ok := l.items[itemID]
	if !ok {
		return nil
	}
	return rec.history
}

func sortedValues(set map[string]struct{}) []string {
	if len(set) == 0 {
		return nil
	}
	out := make([]string, 0, len(set))
	for v := range set {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}
