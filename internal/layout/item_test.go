package layout

import "testing"

func TestSplitSolution_BlankLineBoundaries(t *testing.T) {
	text := "Step one: expand the brackets.\nCollect terms.\n\nStep two: divide both sides.\n\n\nStep three: check the result."

	chunks := SplitSolution("p1", text)

	if len(chunks) != 3 {
		t.Fatalf("got %d chunks, want 3", len(chunks))
	}
	if chunks[0].Text != "Step one: expand the brackets.\nCollect terms." {
		t.Errorf("chunk 0 text %q", chunks[0].Text)
	}
	if chunks[1].Text != "Step two: divide both sides." {
		t.Errorf("chunk 1 text %q", chunks[1].Text)
	}
	for i, ch := range chunks {
		if ch.Kind != KindChunk {
			t.Errorf("chunk %d kind %s", i, ch.Kind)
		}
		if ch.ParentID != "p1" {
			t.Errorf("chunk %d parent %q", i, ch.ParentID)
		}
	}
}

func TestSplitSolution_StableIdentity(t *testing.T) {
	text := "First part.\n\nSecond part."

	a := SplitSolution("p7", text)
	b := SplitSolution("p7", text)

	if len(a) != len(b) {
		t.Fatalf("chunk counts differ: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i].ID != b[i].ID {
			t.Errorf("chunk %d identity unstable: %q vs %q", i, a[i].ID, b[i].ID)
		}
	}
	if a[0].ID == a[1].ID {
		t.Error("sibling chunks share an ID")
	}
}

func TestSplitSolution_WindowsLineEndings(t *testing.T) {
	chunks := SplitSolution("p1", "alpha\r\n\r\nbeta")
	if len(chunks) != 2 {
		t.Fatalf("got %d chunks, want 2", len(chunks))
	}
	if chunks[1].Text != "beta" {
		t.Errorf("chunk 1 text %q", chunks[1].Text)
	}
}

func TestSplitSolution_EmptyAndWhitespaceOnly(t *testing.T) {
	if got := SplitSolution("p1", ""); len(got) != 0 {
		t.Errorf("empty text produced %d chunks", len(got))
	}
	if got := SplitSolution("p1", "  \n\n\t\n"); len(got) != 0 {
		t.Errorf("whitespace-only text produced %d chunks", len(got))
	}
}

func TestHeightCache_LastWriteWinsAndPrune(t *testing.T) {
	c := NewHeightCache()
	c.Set("a", 100)
	c.Set("a", 250)
	c.Set("b", 80)

	if h, _ := c.Get("a"); h != 250 {
		t.Errorf("got %v, want the last written 250", h)
	}
	if got := c.HeightOr("missing", 64); got != 64 {
		t.Errorf("HeightOr returned %v, want fallback 64", got)
	}

	c.Prune(map[string]struct{}{"b": {}})
	if _, ok := c.Get("a"); ok {
		t.Error("pruned entry still present")
	}
	if c.Len() != 1 {
		t.Errorf("cache holds %d entries, want 1", c.Len())
	}
}
