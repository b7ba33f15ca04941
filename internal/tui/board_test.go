// ABOUTME: Unit tests for the listings browser bubbletea model.
// ABOUTME: Drives a real engine over an in-memory API with synthetic key messages.
package tui

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/2389-research/adboard/internal/board"
	"github.com/2389-research/adboard/internal/models"
)

type stubAPI struct {
	mu      sync.Mutex
	ads     []models.Ad
	sigs    []models.QuerySignature
	deleted []string
	delErr  error
}

func (s *stubAPI) ListAds(ctx context.Context, sig models.QuerySignature) (models.PagedResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sigs = append(s.sigs, sig)

	var hits []models.Ad
	for _, ad := range s.ads {
		if sig.Search == "" || strings.Contains(strings.ToLower(ad.Title), strings.ToLower(sig.Search)) {
			hits = append(hits, ad)
		}
	}
	start := min((sig.Page-1)*sig.PageSize, len(hits))
	end := min(start+sig.PageSize, len(hits))
	return models.PagedResult{Items: hits[start:end], TotalCount: len(hits), Page: sig.Page, PageSize: sig.PageSize}, nil
}

func (s *stubAPI) CreateAd(ctx context.Context, in models.AdCreate) (models.Ad, error) {
	return models.Ad{}, errors.New("not supported")
}

func (s *stubAPI) UpdateAd(ctx context.Context, id string, in models.AdUpdate) (models.AdPatch, error) {
	return models.AdPatch{}, errors.New("not supported")
}

func (s *stubAPI) DeleteAd(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.delErr != nil {
		return s.delErr
	}
	s.deleted = append(s.deleted, id)
	for i, ad := range s.ads {
		if ad.ID == id {
			s.ads = append(s.ads[:i], s.ads[i+1:]...)
			break
		}
	}
	return nil
}

func (s *stubAPI) lastSig() models.QuerySignature {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sigs[len(s.sigs)-1]
}

type fixedLocator struct{}

func (fixedLocator) Locate(ctx context.Context) (float64, float64, error) {
	return 53.9, 27.56, nil
}

func newBoardModel(t *testing.T, opts ...BoardOption) (BoardModel, *board.Engine, *stubAPI) {
	t.Helper()
	api := &stubAPI{ads: []models.Ad{
		{ID: "a1", Title: "Oak desk", Category: "Home", UserName: "alice"},
		{ID: "a2", Title: "Road bike", Category: "Sport"},
		{ID: "a3", Title: "Desk lamp", Location: "Minsk"},
	}}
	engine := board.New(api, board.WithPageSize(2), board.WithDebounce(time.Hour))
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(func() {
		cancel()
		engine.Close()
	})
	engine.Start(ctx)
	settleEngine(t, engine)

	m := NewBoardModel(ctx, engine, opts...)
	m = feedLatest(t, m)
	return m, engine, api
}

func settleEngine(t *testing.T, e *board.Engine) board.View {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	v, err := e.Settled(ctx)
	if err != nil {
		t.Fatalf("engine did not settle: %v", err)
	}
	return v
}

// feedLatest delivers the engine's current view to the model.
func feedLatest(t *testing.T, m BoardModel) BoardModel {
	t.Helper()
	updated, _ := m.Update(viewMsg(settleEngine(t, m.engine)))
	return updated.(BoardModel)
}

func key(r rune) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}}
}

func press(m BoardModel, msgs ...tea.Msg) (BoardModel, tea.Cmd) {
	var cmd tea.Cmd
	for _, msg := range msgs {
		var updated tea.Model
		updated, cmd = m.Update(msg)
		m = updated.(BoardModel)
	}
	return m, cmd
}

func TestBoardModel_RendersFirstPage(t *testing.T) {
	m, _, _ := newBoardModel(t)

	view := m.View()
	if !strings.Contains(view, "ADBOARD") {
		t.Error("expected branding in view")
	}
	if !strings.Contains(view, "▸ Oak desk") {
		t.Errorf("expected cursor on first listing, got:\n%s", view)
	}
	if !strings.Contains(view, "Road bike") {
		t.Error("expected second listing")
	}
	if strings.Contains(view, "Desk lamp") {
		t.Error("third listing belongs on page 2")
	}
	if !strings.Contains(view, "Page 1 of 2 · 3 listings") {
		t.Errorf("expected footer, got:\n%s", view)
	}
	if !strings.Contains(view, "Home · by alice") {
		t.Errorf("expected listing metadata, got:\n%s", view)
	}
}

func TestBoardModel_CursorMovement(t *testing.T) {
	m, _, _ := newBoardModel(t)

	m, _ = press(m, key('j'))
	if ad, _ := m.Selected(); ad.ID != "a2" {
		t.Errorf("expected a2 selected, got %s", ad.ID)
	}

	// Clamped at the last row.
	m, _ = press(m, key('j'), tea.KeyMsg{Type: tea.KeyDown})
	if ad, _ := m.Selected(); ad.ID != "a2" {
		t.Errorf("expected cursor clamped on a2, got %s", ad.ID)
	}

	m, _ = press(m, tea.KeyMsg{Type: tea.KeyUp}, key('k'))
	if ad, _ := m.Selected(); ad.ID != "a1" {
		t.Errorf("expected a1 selected, got %s", ad.ID)
	}
}

func TestBoardModel_Paging(t *testing.T) {
	m, engine, api := newBoardModel(t)

	m, _ = press(m, key('j'), key('n'))
	m = feedLatest(t, m)
	if api.lastSig().Page != 2 {
		t.Errorf("expected page 2 request, got %+v", api.lastSig())
	}
	if !strings.Contains(m.View(), "Desk lamp") {
		t.Errorf("expected page 2 listing, got:\n%s", m.View())
	}
	if ad, _ := m.Selected(); ad.ID != "a3" {
		t.Errorf("expected cursor clamped onto a3, got %s", ad.ID)
	}

	// Already on the last page.
	m, _ = press(m, key('n'))
	if engine.Snapshot().Page != 2 {
		t.Errorf("expected to stay on page 2, got %d", engine.Snapshot().Page)
	}

	m, _ = press(m, tea.KeyMsg{Type: tea.KeyLeft})
	settleEngine(t, engine)
	if api.lastSig().Page != 1 {
		t.Errorf("expected page 1 request, got %+v", api.lastSig())
	}
}

func TestBoardModel_SearchFlow(t *testing.T) {
	m, engine, api := newBoardModel(t)

	m, cmd := press(m, key('/'))
	if !m.searching {
		t.Fatal("expected search mode after '/'")
	}
	if cmd == nil {
		t.Error("expected blink cmd when focusing search")
	}

	m, _ = press(m, key('d'), key('e'), key('s'), key('k'))
	if !m.searching {
		t.Fatal("letters must not leave search mode")
	}
	snap := engine.Snapshot()
	if snap.Query.Search != "desk" || !snap.SearchPending {
		t.Errorf("expected pending search 'desk', got %q pending=%v", snap.Query.Search, snap.SearchPending)
	}
	m, _ = press(m, viewMsg(snap))
	if !strings.Contains(m.View(), "(typing)") {
		t.Errorf("expected pending marker, got:\n%s", m.View())
	}

	m, _ = press(m, tea.KeyMsg{Type: tea.KeyEnter})
	if m.searching {
		t.Error("expected Enter to leave search mode")
	}
	m = feedLatest(t, m)
	if api.lastSig().Search != "desk" {
		t.Errorf("expected committed search, got %+v", api.lastSig())
	}
	view := m.View()
	if !strings.Contains(view, "Oak desk") || !strings.Contains(view, "Desk lamp") || strings.Contains(view, "Road bike") {
		t.Errorf("unexpected search results:\n%s", view)
	}
}

func TestBoardModel_EscapeLeavesSearchWithoutQuitting(t *testing.T) {
	m, _, _ := newBoardModel(t)

	m, _ = press(m, key('/'), key('q'), tea.KeyMsg{Type: tea.KeyEscape})
	if m.searching {
		t.Error("expected Escape to leave search mode")
	}
	if m.quitting {
		t.Error("typing 'q' in search must not quit")
	}
}

func TestBoardModel_DeleteSelected(t *testing.T) {
	m, engine, api := newBoardModel(t)

	m, cmd := press(m, key('j'), key('d'))
	if cmd == nil {
		t.Fatal("expected delete cmd")
	}
	msg := cmd()
	done, ok := msg.(actionDoneMsg)
	if !ok {
		t.Fatalf("expected actionDoneMsg, got %T", msg)
	}
	if done.err != nil {
		t.Fatalf("unexpected delete error: %v", done.err)
	}
	if len(api.deleted) != 1 || api.deleted[0] != "a2" {
		t.Errorf("expected a2 deleted, got %v", api.deleted)
	}

	m, _ = press(m, done)
	m = feedLatest(t, m)
	view := m.View()
	if strings.Contains(view, "Road bike") {
		t.Errorf("deleted listing still shown:\n%s", view)
	}
	if !strings.Contains(view, `Deleted "Road bike"`) {
		t.Errorf("expected status line, got:\n%s", view)
	}
	if engine.Snapshot().TotalCount != 2 {
		t.Errorf("expected two listings left, got %d", engine.Snapshot().TotalCount)
	}
}

func TestBoardModel_DeleteFailureShowsError(t *testing.T) {
	m, _, api := newBoardModel(t)
	api.delErr = errors.New("boom")

	m, cmd := press(m, key('d'))
	m, _ = press(m, cmd())
	m = feedLatest(t, m)

	view := m.View()
	if !strings.Contains(view, "delete: operation failed") {
		t.Errorf("expected error line, got:\n%s", view)
	}
	if !strings.Contains(view, "Oak desk") {
		t.Errorf("expected rolled-back listing, got:\n%s", view)
	}

	m, _ = press(m, key('x'))
	m = feedLatest(t, m)
	if strings.Contains(m.View(), "operation failed") {
		t.Error("expected error dismissed")
	}
}

func TestBoardModel_GeoToggle(t *testing.T) {
	m, engine, api := newBoardModel(t, WithLocator(fixedLocator{}, 5))

	if !strings.Contains(m.View(), "[g]eo") {
		t.Error("expected geo key in help")
	}

	m, _ = press(m, key('g'))
	deadline := time.Now().Add(2 * time.Second)
	for engine.Snapshot().Query.Geo == nil && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	m = feedLatest(t, m)
	sig := api.lastSig()
	if !sig.HasGeo || sig.RadiusKm != 5 {
		t.Errorf("expected geo request, got %+v", sig)
	}
	if !strings.Contains(m.View(), "within 5 km") {
		t.Errorf("expected geo filter shown, got:\n%s", m.View())
	}

	m, _ = press(m, key('g'))
	settleEngine(t, engine)
	if api.lastSig().HasGeo {
		t.Error("expected geo cleared")
	}
}

func TestBoardModel_GeoWithoutLocatorIgnored(t *testing.T) {
	m, engine, _ := newBoardModel(t)

	m, _ = press(m, key('g'))
	if engine.Snapshot().Query.Geo != nil {
		t.Error("expected no geo filter without a locator")
	}
	if strings.Contains(m.View(), "[g]eo") {
		t.Error("geo key should not be advertised")
	}
}

func TestBoardModel_Quit(t *testing.T) {
	for _, msg := range []tea.KeyMsg{key('q'), {Type: tea.KeyCtrlC}, {Type: tea.KeyEscape}} {
		m, _, _ := newBoardModel(t)
		m, cmd := press(m, msg)
		if !m.quitting {
			t.Errorf("expected quitting after %v", msg)
		}
		if cmd == nil {
			t.Errorf("expected quit cmd after %v", msg)
		}
		if m.View() != "" {
			t.Error("expected empty view when quitting")
		}
	}
}

func TestBoardModel_WatchClosedQuits(t *testing.T) {
	m, engine, _ := newBoardModel(t)

	engine.Close()
	msg := m.waitForView()()
	// A buffered view may still arrive before the close is observed.
	for {
		if _, ok := msg.(watchClosedMsg); ok {
			break
		}
		msg = m.waitForView()()
	}
	m, cmd := press(m, msg)
	if !m.quitting || cmd == nil {
		t.Error("expected quit when the engine closes")
	}
}

func TestBoardModel_EmptyBoard(t *testing.T) {
	m, _, _ := newBoardModel(t)
	m, _ = press(m, viewMsg(board.View{Page: 1}))
	if !strings.Contains(m.View(), "No listings found") {
		t.Errorf("expected empty message, got:\n%s", m.View())
	}
	if _, ok := m.Selected(); ok {
		t.Error("expected no selection on an empty board")
	}
	if _, cmd := press(m, key('d')); cmd != nil {
		t.Error("expected no delete cmd without a selection")
	}
}
