package app

import (
	"context"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mmeshcher/freight-storefront/internal/apiclient"
	"github.com/mmeshcher/freight-storefront/internal/config"
	"github.com/mmeshcher/freight-storefront/internal/model"
	"github.com/mmeshcher/freight-storefront/internal/storage"
	"github.com/mmeshcher/freight-storefront/internal/stubbackend"
	"github.com/mmeshcher/freight-storefront/internal/validation"
)

func newStubServer(t *testing.T) (*stubbackend.Backend, *httptest.Server) {
	t.Helper()
	b := stubbackend.New("test-secret")
	srv := httptest.NewServer(stubbackend.NewHandler(b, zap.NewNop()).SetupRouter())
	t.Cleanup(srv.Close)
	return b, srv
}

func testConfig(origin, path string) *config.Config {
	return &config.Config{
		Origin:         origin,
		Mode:           config.ModeWeb,
		Storage:        config.StorageFile,
		StoragePath:    path,
		PollInterval:   time.Second,
		RequestTimeout: 2 * time.Second,
	}
}

func TestNew_RestoresSessionBeforeReturn(t *testing.T) {
	ctx := context.Background()
	_, srv := newStubServer(t)
	cfg := testConfig(srv.URL, filepath.Join(t.TempDir(), "session.json"))

	first, err := New(ctx, cfg, nil, nil)
	require.NoError(t, err)
	assert.False(t, first.Store.Auth.Snapshot().IsAuthenticated)

	require.NoError(t, first.Store.Auth.Register(ctx, validation.RegistrationForm{
		Login:           "alice",
		Email:           "alice@example.com",
		Name:            "Alice",
		Password:        "secret1",
		PasswordConfirm: "secret1",
	}))
	_, err = first.Store.Cart.AddToCart(ctx, 1)
	require.NoError(t, err)
	require.NoError(t, first.Close())

	second, err := New(ctx, cfg, nil, nil)
	require.NoError(t, err)
	defer second.Close()

	auth := second.Store.Auth.Snapshot()
	require.True(t, auth.IsAuthenticated)
	assert.Equal(t, "alice", auth.User.Login)

	ok, err := second.Badge.Refresh(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 1, second.Store.Cart.Snapshot().Count)
}

func TestNew_DesktopModeUsesStoredServerAddress(t *testing.T) {
	ctx := context.Background()
	_, srv := newStubServer(t)

	st := storage.NewMemory()
	cfg := testConfig("http://127.0.0.1:1", "")
	cfg.Mode = config.ModeDesktop
	cfg.RemoteHost = "http://127.0.0.1:1"
	cfg.Storage = config.StorageMemory

	a, err := NewWithStorage(ctx, cfg, st, nil, nil)
	require.NoError(t, err)
	defer a.Close()

	listing := a.Catalog.List(ctx, model.ServiceFilters{})
	assert.True(t, listing.Degraded)

	require.NoError(t, a.Sessions.SetServerAddress(ctx, srv.URL))

	listing = a.Catalog.List(ctx, model.ServiceFilters{Search: "авиа"})
	require.False(t, listing.Degraded, "%v", listing.Err)
	require.Len(t, listing.Services, 1)
	assert.Equal(t, int64(3), listing.Services[0].ID)
}

func TestNew_CatalogFallsBackToSample(t *testing.T) {
	ctx := context.Background()
	_, srv := newStubServer(t)
	srv.Close()

	cfg := testConfig(srv.URL, "")
	cfg.Storage = config.StorageMemory
	a, err := New(ctx, cfg, nil, nil)
	require.NoError(t, err)
	defer a.Close()

	listing := a.Catalog.List(ctx, model.ServiceFilters{})
	assert.True(t, listing.Degraded)
	assert.Len(t, listing.Services, 6)
	assert.Error(t, listing.Err)
}

func TestNew_UnauthorizedNavigatesToLogin(t *testing.T) {
	ctx := context.Background()
	b, srv := newStubServer(t)

	var navigated atomic.Int32
	cfg := testConfig(srv.URL, "")
	cfg.Storage = config.StorageMemory
	a, err := New(ctx, cfg, nil, apiclient.NavigatorFunc(func() { navigated.Add(1) }))
	require.NoError(t, err)
	defer a.Close()

	require.NoError(t, a.Store.Auth.Register(ctx, validation.RegistrationForm{
		Login:           "bob",
		Email:           "bob@example.com",
		Name:            "Bob",
		Password:        "secret1",
		PasswordConfirm: "secret1",
	}))
	b.Tokens().Revoke(a.Store.Auth.Snapshot().AccessToken)

	require.Error(t, a.Store.Auth.FetchProfile(ctx))
	assert.EqualValues(t, 1, navigated.Load())
	assert.False(t, a.Store.Auth.Snapshot().IsAuthenticated)
}

func TestOpenStorage(t *testing.T) {
	st, err := OpenStorage(&config.Config{Storage: config.StorageMemory})
	require.NoError(t, err)
	assert.IsType(t, &storage.Memory{}, st)

	st, err = OpenStorage(&config.Config{Storage: config.StorageFile, StoragePath: filepath.Join(t.TempDir(), "s.json")})
	require.NoError(t, err)
	assert.IsType(t, &storage.File{}, st)

	_, err = OpenStorage(&config.Config{Storage: "floppy"})
	assert.Error(t, err)
}
