// ABOUTME: End-to-end tests: the board engine driving the real remote client against the dev server.
// ABOUTME: Exercises login, optimistic mutations, role errors, and retry through injected faults.
package devserver_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/2389-research/adboard/internal/board"
	"github.com/2389-research/adboard/internal/devserver"
	"github.com/2389-research/adboard/internal/models"
	"github.com/2389-research/adboard/internal/session"
	"github.com/2389-research/adboard/internal/storage"
)

type stack struct {
	srv    *devserver.Server
	client *storage.RemoteClient
	sess   *session.Holder
	engine *board.Engine
}

func newStack(t *testing.T) *stack {
	t.Helper()
	srv, err := devserver.New(devserver.Options{Secret: "e2e", HashCost: bcrypt.MinCost})
	require.NoError(t, err)
	require.NoError(t, srv.Users().Add("alice", "pw", devserver.RoleUser))
	require.NoError(t, srv.Users().Add("bob", "pw", devserver.RoleUser))
	srv.Seed("bob")

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	retry := storage.NewRetrier()
	retry.Sleep = func(context.Context, time.Duration) error { return nil }

	sess := session.New(storage.NewSessionFile(t.TempDir()))
	client := storage.NewRemoteClient(ts.URL+"/api/", storage.WithTokenSource(sess.Token), storage.WithRetrier(retry))
	engine := board.New(client, board.WithPageSize(3), board.WithDebounce(time.Millisecond))
	t.Cleanup(engine.Close)

	return &stack{srv: srv, client: client, sess: sess, engine: engine}
}

func (s *stack) signIn(t *testing.T, user string) {
	t.Helper()
	res, err := s.client.Login(context.Background(), user, "pw")
	require.NoError(t, err)
	require.NoError(t, s.sess.Set(res))
}

func settled(t *testing.T, e *board.Engine) board.View {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	v, err := e.Settled(ctx)
	require.NoError(t, err)
	return v
}

func TestEngineAgainstDevServer(t *testing.T) {
	s := newStack(t)
	s.engine.Start(context.Background())

	v := settled(t, s.engine)
	require.Nil(t, v.Err)
	assert.Len(t, v.Items, 3)
	assert.Equal(t, 5, v.TotalCount)
	assert.Equal(t, 2, v.TotalPages)

	s.engine.NextPage()
	v = settled(t, s.engine)
	assert.Len(t, v.Items, 2)
	assert.Equal(t, 2, v.Page)

	s.engine.SetSearch("oak")
	s.engine.FlushSearch()
	v = settled(t, s.engine)
	require.Len(t, v.Items, 1)
	assert.Equal(t, "Oak writing desk", v.Items[0].Title)
	assert.Equal(t, 1, v.Page)
}

func TestCreateRequiresSignIn(t *testing.T) {
	s := newStack(t)
	s.engine.Start(context.Background())
	settled(t, s.engine)

	_, err := s.engine.Create(context.Background(), models.AdCreate{Title: "Guitar"})
	var es *board.ErrorState
	require.ErrorAs(t, err, &es)
	assert.Equal(t, board.ErrUnauthorized, es.Kind)
	assert.Equal(t, http.StatusUnauthorized, storage.StatusCode(err))

	s.signIn(t, "alice")
	ad, err := s.engine.Create(context.Background(), models.AdCreate{Title: "Guitar", Description: "acoustic"})
	require.NoError(t, err)

	v := settled(t, s.engine)
	assert.Nil(t, v.Err)
	require.NotEmpty(t, v.Items)
	assert.Equal(t, ad.ID, v.Items[0].ID)
	count := 0
	for _, it := range v.Items {
		if it.ID == ad.ID {
			count++
		}
	}
	assert.Equal(t, 1, count)
}

func TestForeignListingEditIsRolledBack(t *testing.T) {
	s := newStack(t)
	s.signIn(t, "alice")
	s.engine.Start(context.Background())
	v := settled(t, s.engine)
	target := v.Items[0]

	_, err := s.engine.Update(context.Background(), target.ID, models.AdUpdate{Title: models.String("Mine now")})
	var es *board.ErrorState
	require.ErrorAs(t, err, &es)
	assert.Equal(t, board.ErrForbidden, es.Kind)

	v = s.engine.Snapshot()
	assert.Equal(t, target.Title, v.Items[0].Title)
	assert.Empty(t, s.engine.OverlayState().Fields)

	err = s.engine.Delete(context.Background(), target.ID)
	require.ErrorAs(t, err, &es)
	assert.Equal(t, board.ErrForbidden, es.Kind)
	assert.Equal(t, target.ID, s.engine.Snapshot().Items[0].ID)
}

func TestOwnListingEditAndDelete(t *testing.T) {
	s := newStack(t)
	s.signIn(t, "bob")
	s.engine.Start(context.Background())
	v := settled(t, s.engine)
	target := v.Items[0]

	patch, err := s.engine.Update(context.Background(), target.ID, models.AdUpdate{Title: models.String("Kitten found a home")})
	require.NoError(t, err)
	assert.Equal(t, "Kitten found a home", *patch.Title)
	v = settled(t, s.engine)
	assert.Equal(t, "Kitten found a home", v.Items[0].Title)

	require.NoError(t, s.engine.Delete(context.Background(), target.ID))
	v = settled(t, s.engine)
	assert.Equal(t, 4, v.TotalCount)
	for _, it := range v.Items {
		assert.NotEqual(t, target.ID, it.ID)
	}
}

func TestTransientFaultsAreRetried(t *testing.T) {
	s := newStack(t)
	s.srv.FailNext(2, http.StatusServiceUnavailable)
	s.engine.Start(context.Background())

	v := settled(t, s.engine)
	assert.Nil(t, v.Err)
	assert.Len(t, v.Items, 3)
}

func TestPersistentFaultSurfacesTransientError(t *testing.T) {
	s := newStack(t)
	s.srv.FailNext(10, http.StatusBadGateway)
	s.engine.Start(context.Background())

	v := settled(t, s.engine)
	require.NotNil(t, v.Err)
	assert.Equal(t, board.ErrTransient, v.Err.Kind)
	assert.Empty(t, v.Items)

	s.srv.FailNext(0, 0)
	s.engine.Refresh()
	v = settled(t, s.engine)
	assert.Nil(t, v.Err)
	assert.Len(t, v.Items, 3)
}
