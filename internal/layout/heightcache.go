package layout

// HeightCache maps an item ID to its last observed rendered height in
// layout units. It is a plain last-write-wins side table: measurements
// arrive far more often than recomputes, and only the most recent value
// per item matters. Entries survive recalculation of the same selection
// and are pruned when the selection set changes.
//
// The cache is not safe for concurrent use; the owning Coordinator
// serializes access.
type HeightCache struct {
	heights map[string]float64
}

// NewHeightCache creates an empty HeightCache.
func NewHeightCache() *HeightCache {
	return &HeightCache{heights: make(map[string]float64)}
}

// Set records the latest measured height for an item, overwriting any
// previous value.
func (c *HeightCache) Set(itemID string, height float64) {
	c.heights[itemID] = height
}

// Get returns the last measured height for an item, if any.
func (c *HeightCache) Get(itemID string) (float64, bool) {
	h, ok := c.heights[itemID]
	return h, ok
}

// HeightOr returns the measured height for an item, or fallback when no
// measurement has arrived yet.
func (c *HeightCache) HeightOr(itemID string, fallback float64) float64 {
	if h, ok := c.heights[itemID]; ok {
		return h
	}
	return fallback
}

// Prune drops every entry whose ID is not in keep.
func (c *HeightCache) Prune(keep map[string]struct{}) {
	for id := range c.heights {
		if _, ok := keep[id]; !ok {
			delete(c.heights, id)
		}
	}
}

// Len returns the number of cached measurements.
func (c *HeightCache) Len() int {
	return len(c.heights)
}
