// ABOUTME: Test doubles for the engine: a hand-fired clock and a remote API whose calls block.
// ABOUTME: Each list call waits for the test to reply, so ordering is under test control.
package board

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/2389-research/adboard/internal/models"
)

type fakeClock struct {
	mu     sync.Mutex
	timers []*fakeTimer
}

type fakeTimer struct {
	clock   *fakeClock
	d       time.Duration
	f       func()
	stopped bool
	fired   bool
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{clock: c, d: d, f: f}
	c.timers = append(c.timers, t)
	return t
}

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}

// fire runs every live timer and returns how many ran.
func (c *fakeClock) fire() int {
	c.mu.Lock()
	var live []*fakeTimer
	for _, t := range c.timers {
		if !t.stopped && !t.fired {
			t.fired = true
			live = append(live, t)
		}
	}
	c.timers = nil
	c.mu.Unlock()

	for _, t := range live {
		t.f()
	}
	return len(live)
}

func (c *fakeClock) lastDelay() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.timers) == 0 {
		return 0
	}
	return c.timers[len(c.timers)-1].d
}

type listReply struct {
	page models.PagedResult
	err  error
}

type listCall struct {
	ctx   context.Context
	sig   models.QuerySignature
	reply chan listReply
}

func (c *listCall) ok(page models.PagedResult) {
	c.reply <- listReply{page: page}
}

func (c *listCall) fail(err error) {
	c.reply <- listReply{err: err}
}

type fakeAPI struct {
	lists chan *listCall
	// ignoreCancel makes ListAds wait for a reply even after its context
	// is cancelled, like a server that answers anyway.
	ignoreCancel bool

	create func(ctx context.Context, in models.AdCreate) (models.Ad, error)
	update func(ctx context.Context, id string, in models.AdUpdate) (models.AdPatch, error)
	del    func(ctx context.Context, id string) error
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{lists: make(chan *listCall, 64)}
}

func (f *fakeAPI) ListAds(ctx context.Context, sig models.QuerySignature) (models.PagedResult, error) {
	call := &listCall{ctx: ctx, sig: sig, reply: make(chan listReply, 1)}
	f.lists <- call
	if f.ignoreCancel {
		r := <-call.reply
		return r.page, r.err
	}
	select {
	case r := <-call.reply:
		return r.page, r.err
	case <-ctx.Done():
		return models.PagedResult{}, ctx.Err()
	}
}

func (f *fakeAPI) CreateAd(ctx context.Context, in models.AdCreate) (models.Ad, error) {
	return f.create(ctx, in)
}

func (f *fakeAPI) UpdateAd(ctx context.Context, id string, in models.AdUpdate) (models.AdPatch, error) {
	return f.update(ctx, id, in)
}

func (f *fakeAPI) DeleteAd(ctx context.Context, id string) error {
	return f.del(ctx, id)
}

func (f *fakeAPI) nextList(t *testing.T) *listCall {
	t.Helper()
	select {
	case c := <-f.lists:
		return c
	case <-time.After(2 * time.Second):
		t.Fatal("expected a list request")
		return nil
	}
}

func (f *fakeAPI) noList(t *testing.T) {
	t.Helper()
	select {
	case c := <-f.lists:
		t.Fatalf("unexpected list request: %+v", c.sig)
	case <-time.After(50 * time.Millisecond):
	}
}

func newTestEngine(t *testing.T, api *fakeAPI, opts ...Option) (*Engine, *fakeClock) {
	t.Helper()
	clock := &fakeClock{}
	opts = append([]Option{WithClock(clock), WithLogger(slog.New(slog.DiscardHandler))}, opts...)
	e := New(api, opts...)
	t.Cleanup(e.Close)
	return e, clock
}

// startWith starts the engine and answers the first request with page.
func startWith(t *testing.T, e *Engine, api *fakeAPI, page models.PagedResult) View {
	t.Helper()
	e.Start(context.Background())
	api.nextList(t).ok(page)
	return settle(t, e)
}

func settle(t *testing.T, e *Engine) View {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	v, err := e.Settled(ctx)
	require.NoError(t, err)
	return v
}

func ad(id, title string) models.Ad {
	return models.Ad{
		ID:               id,
		Title:            title,
		ShortDescription: title + " description",
		Category:         "General",
		Location:         "Springfield",
		CreatedAt:        time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}
}

func pageOf(page, total int, items ...models.Ad) models.PagedResult {
	if items == nil {
		items = []models.Ad{}
	}
	return models.PagedResult{Items: items, TotalCount: total, Page: page, PageSize: DefaultPageSize}
}

func ids(items []models.Ad) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, it.ID)
	}
	return out
}
