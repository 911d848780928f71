package layout

// Placement locates an item on the paginated document. Pages and
// columns are 1-based; a page has at most two columns.
type Placement struct {
	Page   int `json:"page"`
	Column int `json:"column"`
}

// Page is an ordered list of items assigned to one physical page.
type Page struct {
	Number int    `json:"number"`
	Items  []Item `json:"items"`
}

// Result is the output of Paginate: the ordered page list plus a
// per-item placement map.
type Result struct {
	Pages     []Page               `json:"pages"`
	Placement map[string]Placement `json:"placement"`
}

// LimitFunc returns the column height budget for a page number. Page 1
// usually has a smaller budget than later pages (reserved header space).
type LimitFunc func(page int) float64

// Paginate assigns the given items, in document order, to pages and
// columns. Heights come from the cache with fallback for unmeasured
// items. The function is pure and deterministic: identical inputs
// always produce identical output, regardless of call history.
//
// It runs two passes. The grouping pass accumulates consecutive items
// into groups bounded by the conservative limit min(limit(1), limit(2)),
// so a group formed now stays valid on whichever page it lands. An item
// taller than the conservative limit becomes a singleton group: a
// single item is never split, it is placed alone and allowed to
// overflow. The placement pass then walks groups through columns and
// pages using the actual per-page budget.
func Paginate(items []Item, heights *HeightCache, fallback float64, limit LimitFunc) Result {
	groups := groupItems(items, heights, fallback, limit)
	return placeGroups(groups, limit)
}

type itemGroup struct {
	items  []Item
	height float64
}

func groupItems(items []Item, heights *HeightCache, fallback float64, limit LimitFunc) []itemGroup {
	conservative := min(limit(1), limit(2))

	var groups []itemGroup
	var current itemGroup

	flush := func() {
		if len(current.items) > 0 {
			groups = append(groups, current)
			current = itemGroup{}
		}
	}

	for _, it := range items {
		h := heights.HeightOr(it.ID, fallback)

		if h > conservative {
			// Oversized item: always alone, never merged.
			flush()
			groups = append(groups, itemGroup{items: []Item{it}, height: h})
			continue
		}

		if len(current.items) > 0 && current.height+h > conservative {
			flush()
		}
		current.items = append(current.items, it)
		current.height += h
	}
	flush()

	return groups
}

func placeGroups(groups []itemGroup, limit LimitFunc) Result {
	res := Result{Placement: make(map[string]Placement, len(groups))}

	page, column := 1, 1
	columnHeight := 0.0
	var pageItems []Item

	for _, g := range groups {
		if columnHeight > 0 && columnHeight+g.height > limit(page) {
			column++
			columnHeight = 0
			if column > 2 {
				res.Pages = append(res.Pages, Page{Number: page, Items: pageItems})
				pageItems = nil
				page++
				column = 1
			}
		}

		for _, it := range g.items {
			res.Placement[it.ID] = Placement{Page: page, Column: column}
		}
		pageItems = append(pageItems, g.items...)
		columnHeight += g.height
	}

	if len(pageItems) > 0 {
		res.Pages = append(res.Pages, Page{Number: page, Items: pageItems})
	}

	return res
}
