// ABOUTME: Tests for the pure merge of an authoritative page with the local overlay.
// ABOUTME: Also covers page-count math and overlay bookkeeping helpers.
package board

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/2389-research/adboard/internal/models"
)

func TestMerge(t *testing.T) {
	a, b, c := ad("a", "A"), ad("b", "B"), ad("c", "C")
	n1, n2 := ad("n1", "N1"), ad("n2", "N2")

	tests := []struct {
		name    string
		page    models.PagedResult
		current int // query page; defaults to page.Page
		state   OverlayState
		want    []string
	}{
		{
			name: "no overlay",
			page: pageOf(1, 3, a, b, c),
			want: []string{"a", "b", "c"},
		},
		{
			name:  "hidden records are excluded",
			page:  pageOf(1, 3, a, b, c),
			state: OverlayState{Hidden: map[string]struct{}{"b": {}}},
			want:  []string{"a", "c"},
		},
		{
			name:  "created records lead page one",
			page:  pageOf(1, 2, a, b),
			state: OverlayState{Created: []models.Ad{n2, n1}},
			want:  []string{"n2", "n1", "a", "b"},
		},
		{
			name:  "created records skip later pages",
			page:  pageOf(2, 30, a, b),
			state: OverlayState{Created: []models.Ad{n1}},
			want:  []string{"a", "b"},
		},
		{
			name:    "created records follow the query page, not the stale result",
			page:    pageOf(2, 30, a, b),
			current: 1,
			state:   OverlayState{Created: []models.Ad{n1}},
			want:    []string{"n1", "a", "b"},
		},
		{
			name:    "created records hidden once the query leaves page one",
			page:    pageOf(1, 30, a, b),
			current: 2,
			state:   OverlayState{Created: []models.Ad{n1}},
			want:    []string{"a", "b"},
		},
		{
			name:  "created record already listed appears once",
			page:  pageOf(1, 2, n1, a),
			state: OverlayState{Created: []models.Ad{n1}},
			want:  []string{"n1", "a"},
		},
		{
			name: "hidden created record is excluded",
			page: pageOf(1, 1, a),
			state: OverlayState{
				Hidden:  map[string]struct{}{"n1": {}},
				Created: []models.Ad{n1, n2},
			},
			want: []string{"n2", "a"},
		},
		{
			name:  "empty page with creations",
			page:  pageOf(1, 0),
			state: OverlayState{Created: []models.Ad{n1}},
			want:  []string{"n1"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			current := tt.current
			if current == 0 {
				current = tt.page.Page
			}
			assert.Equal(t, tt.want, ids(Merge(tt.page, current, tt.state)))
		})
	}
}

func TestMergeAppliesFieldOverlays(t *testing.T) {
	page := pageOf(1, 2, ad("a", "A"), ad("b", "B"))
	state := OverlayState{
		Fields: map[string]models.AdPatch{
			"a":  {Title: models.String("A edited"), Location: models.String("Shelbyville")},
			"n1": {Category: models.String("Cars")},
		},
		Created: []models.Ad{ad("n1", "N1")},
	}

	got := Merge(page, page.Page, state)
	assert.Equal(t, []string{"n1", "a", "b"}, ids(got))
	assert.Equal(t, "Cars", got[0].Category)
	assert.Equal(t, "A edited", got[1].Title)
	assert.Equal(t, "Shelbyville", got[1].Location)
	assert.Equal(t, "A description", got[1].ShortDescription)
	assert.Equal(t, "B", got[2].Title)
}

func TestMergeDoesNotTouchInputs(t *testing.T) {
	page := pageOf(1, 1, ad("a", "A"))
	state := OverlayState{Fields: map[string]models.AdPatch{"a": {Title: models.String("X")}}}

	Merge(page, page.Page, state)
	Merge(page, page.Page, state)
	assert.Equal(t, "A", page.Items[0].Title)
	assert.Equal(t, "X", *state.Fields["a"].Title)
}

func TestTotalPages(t *testing.T) {
	tests := []struct {
		total, size, want int
	}{
		{0, 20, 1},
		{1, 20, 1},
		{20, 20, 1},
		{21, 20, 2},
		{45, 20, 3},
		{100, 10, 10},
		{5, 0, 1},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, TotalPages(tt.total, tt.size), "total=%d size=%d", tt.total, tt.size)
	}
}

func TestOverlayFieldMergeAndState(t *testing.T) {
	ov := NewOverlay()
	ov.ApplyFieldOverlay("a", models.AdPatch{Title: models.String("One")})
	ov.ApplyFieldOverlay("a", models.AdPatch{Category: models.String("Cars")})

	p, ok := ov.FieldOverlay("a")
	assert.True(t, ok)
	assert.Equal(t, models.AdPatch{Title: models.String("One"), Category: models.String("Cars")}, p)

	// State is a copy; later edits do not leak into it.
	st := ov.State()
	ov.ReplaceFieldOverlay("a", models.AdPatch{Title: models.String("Two")})
	ov.Hide("a")
	assert.Equal(t, "One", *st.Fields["a"].Title)
	assert.Empty(t, st.Hidden)
}

func TestOverlayCreatedList(t *testing.T) {
	ov := NewOverlay()
	ov.PrependCreated(ad("n1", "N1"))
	ov.PrependCreated(ad("n2", "N2"))
	ov.PrependCreated(ad("n1", "N1 again"))
	assert.Equal(t, []string{"n1", "n2"}, ids(ov.State().Created))
	assert.Equal(t, "N1 again", ov.State().Created[0].Title)

	ov.PatchCreated("n2", models.AdPatch{Title: models.String("N2 edited")})
	assert.Equal(t, "N2 edited", ov.State().Created[1].Title)

	ov.RemoveCreated("n1")
	assert.Equal(t, []string{"n2"}, ids(ov.State().Created))
}

func TestOverlayHideUnhide(t *testing.T) {
	ov := NewOverlay()
	ov.Hide("a")
	assert.True(t, ov.IsHidden("a"))
	ov.Unhide("a")
	assert.False(t, ov.IsHidden("a"))
}
