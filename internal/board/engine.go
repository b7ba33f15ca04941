// ABOUTME: The listings engine: filter state, debounced search, superseding list requests.
// ABOUTME: All transitions run under one mutex; remote calls run outside it and report back.
package board

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/2389-research/adboard/internal/models"
)

const (
	// DefaultPageSize is the page size used when none is configured.
	DefaultPageSize = 20
	// DefaultDebounce is how long a typed search term must stay unchanged
	// before it is sent.
	DefaultDebounce = 300 * time.Millisecond
)

var (
	ErrNotStarted = errors.New("board engine not started")
	ErrClosed     = errors.New("board engine closed")
)

// API is the remote board as the engine sees it.
type API interface {
	ListAds(ctx context.Context, sig models.QuerySignature) (models.PagedResult, error)
	CreateAd(ctx context.Context, in models.AdCreate) (models.Ad, error)
	UpdateAd(ctx context.Context, id string, in models.AdUpdate) (models.AdPatch, error)
	DeleteAd(ctx context.Context, id string) error
}

// Locator resolves the device's current position.
type Locator interface {
	Locate(ctx context.Context) (lat, lng float64, err error)
}

// Option configures an Engine.
type Option func(*Engine)

// WithPageSize sets the fixed page size for the session.
func WithPageSize(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.query.PageSize = n
		}
	}
}

// WithClock replaces the wall clock used for the search debounce.
func WithClock(c Clock) Option {
	return func(e *Engine) { e.clock = c }
}

// WithDebounce overrides the search debounce window.
func WithDebounce(d time.Duration) Option {
	return func(e *Engine) { e.debounce = d }
}

// WithLogger sets the engine's logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithInitialSearch seeds the search term so the first request already
// carries it.
func WithInitialSearch(term string) Option {
	return func(e *Engine) {
		e.query.Search = term
		e.search = strings.TrimSpace(term)
	}
}

// Engine reconciles the authoritative listing page with local optimistic
// edits and exposes the merged result as a stream of Views.
type Engine struct {
	api      API
	clock    Clock
	debounce time.Duration
	logger   *slog.Logger

	mu      sync.Mutex
	ctx     context.Context
	stop    context.CancelFunc
	done    chan struct{}
	started bool
	closed  bool

	query  Query
	search string // committed (debounced) search term

	searchSeq   uint64
	searchTimer Timer

	gen         uint64
	cancelFetch context.CancelFunc
	issued      models.QuerySignature
	hasIssued   bool
	loading     bool
	result      models.PagedResult

	overlay  *Overlay
	inflight map[string]int
	err      *ErrorState

	watchers map[chan View]struct{}
}

// New creates an engine over api. Nothing is requested until Start.
func New(api API, opts ...Option) *Engine {
	e := &Engine{
		api:      api,
		clock:    RealClock,
		debounce: DefaultDebounce,
		logger:   slog.Default(),
		done:     make(chan struct{}),
		query:    Query{Page: 1, PageSize: DefaultPageSize},
		overlay:  NewOverlay(),
		inflight: make(map[string]int),
		watchers: make(map[chan View]struct{}),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.result = models.EmptyPage(e.query.Page, e.query.PageSize)
	return e
}

// Start issues the first list request immediately. Requests made later are
// bound to ctx; cancelling it has the same effect as Close.
func (e *Engine) Start(ctx context.Context) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.started || e.closed {
		return
	}
	e.started = true
	e.ctx, e.stop = context.WithCancel(ctx)
	e.issueLocked()
	e.notifyLocked()

	go func() {
		select {
		case <-e.ctx.Done():
			e.Close()
		case <-e.done:
		}
	}()
}

// Close cancels the pending debounce and any in-flight request and closes
// every watch channel. Late results are dropped.
func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	e.closed = true
	if e.searchTimer != nil {
		e.searchTimer.Stop()
		e.searchTimer = nil
	}
	if e.cancelFetch != nil {
		e.cancelFetch()
		e.cancelFetch = nil
	}
	if e.stop != nil {
		e.stop()
	}
	for ch := range e.watchers {
		delete(e.watchers, ch)
		close(ch)
	}
	close(e.done)
}

// SetSearch records the raw search text and resets to page 1. The term is
// sent once it has stayed unchanged for the debounce window.
func (e *Engine) SetSearch(term string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	e.query.Search = term
	e.query.Page = 1
	if !e.started {
		e.search = strings.TrimSpace(term)
		return
	}

	e.searchSeq++
	seq := e.searchSeq
	if e.searchTimer != nil {
		e.searchTimer.Stop()
	}
	e.searchTimer = e.clock.AfterFunc(e.debounce, func() { e.commitSearch(seq) })
	e.notifyLocked()
}

// FlushSearch commits the pending search term without waiting for the
// debounce window.
func (e *Engine) FlushSearch() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed || e.searchTimer == nil {
		return
	}
	e.searchTimer.Stop()
	e.searchSeq++
	e.commitSearchLocked()
}

func (e *Engine) commitSearch(seq uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	// A timer that lost the race with Stop still fires; its sequence number
	// no longer matches.
	if e.closed || seq != e.searchSeq {
		return
	}
	e.commitSearchLocked()
}

func (e *Engine) commitSearchLocked() {
	e.searchTimer = nil
	e.search = strings.TrimSpace(e.query.Search)
	e.issueIfChangedLocked()
	e.notifyLocked()
}

// SetPage moves to page p (clamped to at least 1).
func (e *Engine) SetPage(p int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if p < 1 {
		p = 1
	}
	e.query.Page = p
	e.issueIfChangedLocked()
	e.notifyLocked()
}

// NextPage advances one page unless already on the last one.
func (e *Engine) NextPage() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.query.Page >= TotalPages(e.result.TotalCount, e.query.PageSize) {
		return
	}
	e.query.Page++
	e.issueIfChangedLocked()
	e.notifyLocked()
}

// PrevPage goes back one page unless already on page 1.
func (e *Engine) PrevPage() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.query.Page <= 1 {
		return
	}
	e.query.Page--
	e.issueIfChangedLocked()
	e.notifyLocked()
}

// SetCategory filters by category. Blank clears the filter.
func (e *Engine) SetCategory(category string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.query.Category = normalizeFilter(category)
	e.query.Page = 1
	e.issueIfChangedLocked()
	e.notifyLocked()
}

// SetLocation filters by location text. Blank clears the filter.
func (e *Engine) SetLocation(location string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.query.Location = normalizeFilter(location)
	e.query.Page = 1
	e.issueIfChangedLocked()
	e.notifyLocked()
}

// SetGeo replaces the point and radius in one transition, so a request never
// sees a half-updated triple. A nil radius keeps the point but disables the
// geo filter.
func (e *Engine) SetGeo(lat, lng float64, radiusKm *float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	g := &GeoFilter{Lat: lat, Lng: lng}
	if radiusKm != nil {
		r := *radiusKm
		g.RadiusKm = &r
	}
	e.query.Geo = g
	e.query.Page = 1
	e.issueIfChangedLocked()
	e.notifyLocked()
}

// ClearGeo removes the point and radius.
func (e *Engine) ClearGeo() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.query.Geo = nil
	e.query.Page = 1
	e.issueIfChangedLocked()
	e.notifyLocked()
}

// Locate asks loc for the current position in the background and, if it
// answers, applies it as the geo filter with radiusKm. Failures are ignored.
func (e *Engine) Locate(ctx context.Context, loc Locator, radiusKm *float64) {
	go func() {
		lat, lng, err := loc.Locate(ctx)
		if err != nil {
			e.logger.Debug("location unavailable", "error", err)
			return
		}
		e.SetGeo(lat, lng, radiusKm)
	}()
}

// Refresh re-issues the current query even if nothing changed.
func (e *Engine) Refresh() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.refreshLocked()
	e.notifyLocked()
}

// DismissError clears the visible error.
func (e *Engine) DismissError() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.err = nil
	e.notifyLocked()
}

// Snapshot returns the current View.
func (e *Engine) Snapshot() View {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.viewLocked()
}

// OverlayState returns a copy of the local overlay.
func (e *Engine) OverlayState() OverlayState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.overlay.State()
}

// Watch returns a channel carrying the latest View. The current View is
// delivered at once; a slow reader only ever sees the newest value. The
// channel closes when ctx ends or the engine closes.
func (e *Engine) Watch(ctx context.Context) <-chan View {
	ch := make(chan View, 1)

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		close(ch)
		return ch
	}
	e.watchers[ch] = struct{}{}
	ch <- e.viewLocked()
	e.mu.Unlock()

	go func() {
		select {
		case <-ctx.Done():
		case <-e.done:
		}
		e.mu.Lock()
		defer e.mu.Unlock()
		if _, ok := e.watchers[ch]; ok {
			delete(e.watchers, ch)
			close(ch)
		}
	}()
	return ch
}

// Settled blocks until no request is in flight and no search term is
// waiting on the debounce, then returns that View.
func (e *Engine) Settled(ctx context.Context) (View, error) {
	e.mu.Lock()
	started := e.started
	e.mu.Unlock()
	if !started {
		return View{}, ErrNotStarted
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	views := e.Watch(ctx)
	for {
		select {
		case v, ok := <-views:
			if !ok {
				if ctx.Err() != nil {
					return View{}, ctx.Err()
				}
				return View{}, ErrClosed
			}
			if !v.Loading && !v.SearchPending {
				return v, nil
			}
		case <-ctx.Done():
			return View{}, ctx.Err()
		}
	}
}

func (e *Engine) issueIfChangedLocked() {
	if !e.started || e.closed {
		return
	}
	sig := e.query.signature(e.search)
	if e.hasIssued && sig == e.issued {
		return
	}
	e.issueLocked()
}

func (e *Engine) refreshLocked() {
	if !e.started || e.closed {
		return
	}
	e.issueLocked()
}

// issueLocked sends a list request for the current signature and supersedes
// whatever request was in flight.
func (e *Engine) issueLocked() {
	sig := e.query.signature(e.search)
	if e.cancelFetch != nil {
		e.cancelFetch()
	}
	e.gen++
	token := e.gen
	ctx, cancel := context.WithCancel(e.ctx)
	e.cancelFetch = cancel
	e.issued, e.hasIssued = sig, true
	e.loading = true

	e.logger.Debug("listing request issued",
		"gen", token, "page", sig.Page, "search", sig.Search,
		"category", sig.Category, "location", sig.Location, "geo", sig.HasGeo)
	go e.fetch(ctx, cancel, token, sig)
}

func (e *Engine) fetch(ctx context.Context, cancel context.CancelFunc, token uint64, sig models.QuerySignature) {
	defer cancel()
	page, err := e.api.ListAds(ctx, sig)

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed || token != e.gen {
		e.logger.Debug("superseded listing result dropped", "gen", token, "current", e.gen)
		return
	}
	e.cancelFetch = nil
	e.loading = false

	if err != nil {
		e.result = models.EmptyPage(e.query.Page, e.query.PageSize)
		e.err = classifyFetch(err)
		e.logger.Warn("listing request failed", "gen", token, "kind", e.err.Kind.String(), "error", err)
		e.notifyLocked()
		return
	}

	if page.Items == nil {
		page.Items = []models.Ad{}
	}
	if page.Page < 1 {
		page.Page = sig.Page
	}
	if page.PageSize < 1 {
		page.PageSize = sig.PageSize
	}
	e.result = page
	e.clearErrLocked(OpFetch)
	e.pruneOverlayLocked()
	e.logger.Debug("listing page received", "gen", token, "items", len(page.Items), "total", page.TotalCount)
	e.notifyLocked()
}

// pruneOverlayLocked drops field overlays for records that fell off the
// current page, keeping pending creations and records with an update in
// flight.
func (e *Engine) pruneOverlayLocked() {
	present := make(map[string]struct{}, len(e.result.Items))
	for _, item := range e.result.Items {
		present[item.ID] = struct{}{}
	}
	e.overlay.retainFields(func(id string) bool {
		if _, ok := present[id]; ok {
			return true
		}
		return e.inflight[id] > 0 || e.overlay.isCreated(id)
	})
}

func (e *Engine) clearErrLocked(op Op) {
	if e.err != nil && e.err.Op == op {
		e.err = nil
	}
}

func (e *Engine) viewLocked() View {
	var errState *ErrorState
	if e.err != nil {
		cp := *e.err
		errState = &cp
	}
	return View{
		Items:         Merge(e.result, e.query.Page, e.overlay.State()),
		Loading:       e.loading,
		Page:          e.query.Page,
		PageSize:      e.query.PageSize,
		TotalCount:    e.result.TotalCount,
		TotalPages:    TotalPages(e.result.TotalCount, e.query.PageSize),
		Query:         e.query.clone(),
		Err:           errState,
		SearchPending: e.searchTimer != nil,
	}
}

// notifyLocked publishes the current View to every watcher, replacing any
// value the watcher has not read yet.
func (e *Engine) notifyLocked() {
	if len(e.watchers) == 0 {
		return
	}
	v := e.viewLocked()
	for ch := range e.watchers {
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- v:
		default:
		}
	}
}
