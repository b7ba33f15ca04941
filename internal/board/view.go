// ABOUTME: The rendered view snapshot and the pure merge of page plus overlay.
// ABOUTME: Merge hides deleted records, applies edits, and prepends creations on page 1.
package board

import (
	"github.com/2389-research/adboard/internal/models"
)

// View is an immutable snapshot of everything a renderer needs.
type View struct {
	Items      []models.Ad
	Loading    bool
	Page       int
	PageSize   int
	TotalCount int
	TotalPages int
	Query      Query
	Err        *ErrorState
	// SearchPending is true while a typed search term waits out the
	// debounce window.
	SearchPending bool
}

// Merge combines the authoritative page with the overlay into the sequence
// actually shown on currentPage, the page the query is on now. That can
// differ from page.Page while a request for the new page is in flight.
// It is a pure function of its inputs.
func Merge(page models.PagedResult, currentPage int, ov OverlayState) []models.Ad {
	base := make([]models.Ad, 0, len(page.Items)+len(ov.Created))
	seen := make(map[string]struct{}, len(page.Items))
	for _, item := range page.Items {
		if _, hidden := ov.Hidden[item.ID]; hidden {
			continue
		}
		if p, ok := ov.Fields[item.ID]; ok {
			item = p.Apply(item)
		}
		base = append(base, item)
		seen[item.ID] = struct{}{}
	}

	// Locally created records are assumed to sort first, so they only
	// belong on page 1.
	if currentPage != 1 || len(ov.Created) == 0 {
		return base
	}

	merged := make([]models.Ad, 0, len(ov.Created)+len(base))
	for _, c := range ov.Created {
		if _, hidden := ov.Hidden[c.ID]; hidden {
			continue
		}
		if _, dup := seen[c.ID]; dup {
			continue
		}
		if p, ok := ov.Fields[c.ID]; ok {
			c = p.Apply(c)
		}
		merged = append(merged, c)
	}
	return append(merged, base...)
}

// TotalPages is ceil(totalCount/pageSize), never below 1.
func TotalPages(totalCount, pageSize int) int {
	if pageSize <= 0 || totalCount <= 0 {
		return 1
	}
	return (totalCount + pageSize - 1) / pageSize
}
