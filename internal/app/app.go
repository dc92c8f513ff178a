// Package app собирает клиент: хранилище, сессию, HTTP-адаптер, модули API,
// каталог, стор и обновлятель значка корзины.
package app

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/mmeshcher/freight-storefront/internal/api"
	"github.com/mmeshcher/freight-storefront/internal/apiclient"
	"github.com/mmeshcher/freight-storefront/internal/badge"
	"github.com/mmeshcher/freight-storefront/internal/catalog"
	"github.com/mmeshcher/freight-storefront/internal/config"
	"github.com/mmeshcher/freight-storefront/internal/session"
	"github.com/mmeshcher/freight-storefront/internal/storage"
	"github.com/mmeshcher/freight-storefront/internal/store"
)

// App содержит собранные компоненты клиента.
type App struct {
	Config   *config.Config
	Storage  storage.Storage
	Sessions *session.Manager
	Client   *apiclient.Client

	Auth     *api.Auth
	Services *api.Services
	Cart     *api.Cart
	Orders   *api.Orders

	Catalog *catalog.Catalog
	Store   *store.Store
	Badge   *badge.Refresher

	logger *zap.Logger
}

// New собирает клиент и восстанавливает сессию из хранилища до возврата,
// чтобы ни одно представление не увидело состояние «не авторизован» после перезапуска.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger, nav apiclient.Navigator) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	st, err := OpenStorage(cfg)
	if err != nil {
		return nil, err
	}
	return NewWithStorage(ctx, cfg, st, logger, nav)
}

// NewWithStorage собирает клиент поверх готового хранилища. App владеет хранилищем.
func NewWithStorage(ctx context.Context, cfg *config.Config, st storage.Storage, logger *zap.Logger, nav apiclient.Navigator) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	sessions := session.NewManager(st, logger)
	client := apiclient.NewClient(sessions, apiclient.Options{
		Origin:     cfg.Origin,
		Mode:       cfg.Mode,
		RemoteHost: cfg.RemoteHost,
		Timeout:    cfg.RequestTimeout,
		Navigator:  nav,
		Logger:     logger,
	})

	a := &App{
		Config:   cfg,
		Storage:  st,
		Sessions: sessions,
		Client:   client,
		Auth:     api.NewAuth(client),
		Services: api.NewServices(client, cfg.ServicesPath, cfg.AssetHost),
		Cart:     api.NewCart(client, cfg.AssetHost),
		Orders:   api.NewOrders(client, cfg.AssetHost),
		logger:   logger,
	}
	a.Catalog = catalog.New(a.Services, logger)
	a.Store = store.New(store.Deps{
		Auth:     a.Auth,
		Cart:     a.Cart,
		Orders:   a.Orders,
		Sessions: sessions,
		Events:   client,
		Logger:   logger,
	})
	a.Badge = badge.NewRefresher(a.Store.Cart, cfg.PollInterval, cfg.MinRefreshInterval, logger)

	if err := a.Store.Auth.RestoreAuth(ctx); err != nil {
		return nil, errors.Join(err, st.Close())
	}

	auth := a.Store.Auth.Snapshot()
	if auth.IsAuthenticated {
		logger.Info("session restored", zap.String("login", auth.User.Login))
	}
	return a, nil
}

// OpenStorage открывает хранилище сессии, выбранное в конфигурации.
func OpenStorage(cfg *config.Config) (storage.Storage, error) {
	switch cfg.Storage {
	case config.StorageMemory:
		return storage.NewMemory(), nil
	case config.StorageFile:
		s, err := storage.NewFile(cfg.StoragePath)
		if err != nil {
			return nil, fmt.Errorf("open file storage: %w", err)
		}
		return s, nil
	case config.StorageRedis:
		prefix := ""
		if cfg.Namespace != "" {
			prefix = "freightctl:" + cfg.Namespace + ":"
		}
		s, err := storage.NewRedis(cfg.RedisAddr, prefix)
		if err != nil {
			return nil, fmt.Errorf("open redis storage: %w", err)
		}
		return s, nil
	case config.StoragePostgres:
		s, err := storage.NewPostgres(cfg.DatabaseURI, cfg.Namespace)
		if err != nil {
			return nil, fmt.Errorf("open postgres storage: %w", err)
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown storage %q", cfg.Storage)
	}
}

// Close освобождает хранилище.
func (a *App) Close() error {
	return a.Storage.Close()
}
