package layout

import (
	"fmt"
	"strings"
)

// ItemKind distinguishes primary problems from derived solution chunks.
type ItemKind string

const (
	KindProblem ItemKind = "PROBLEM"
	KindChunk   ItemKind = "CHUNK"
)

// Item is a single layout unit. A problem is an independent item; a
// chunk is a fragment of its parent problem's solution text and is
// never rendered without the parent having been placed first.
// Identity is stable across recomputation.
type Item struct {
	ID       string   `json:"id"`
	Kind     ItemKind `json:"kind"`
	ParentID string   `json:"parent_id,omitempty"`
	Text     string   `json:"text,omitempty"`
}

// IsChunk reports whether the item is a derived solution chunk.
func (it Item) IsChunk() bool {
	return it.Kind == KindChunk
}

// SplitSolution splits a problem's solution text on blank-line
// boundaries into independently paginatable chunks. Chunk IDs derive
// from the parent ID and the chunk index, so the same input always
// yields the same identities.
func SplitSolution(parentID, text string) []Item {
	normalized := strings.ReplaceAll(text, "\r\n", "\n")

	var chunks []Item
	var current []string

	flush := func() {
		body := strings.TrimSpace(strings.Join(current, "\n"))
		current = current[:0]
		if body == "" {
			return
		}
		chunks = append(chunks, Item{
			ID:       fmt.Sprintf("%s/chunk-%d", parentID, len(chunks)),
			Kind:     KindChunk,
			ParentID: parentID,
			Text:     body,
		})
	}

	for _, line := range strings.Split(normalized, "\n") {
		if strings.TrimSpace(line) == "" {
			flush()
			continue
		}
		current = append(current, line)
	}
	flush()

	return chunks
}
