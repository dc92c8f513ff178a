// Package apiclient реализует HTTP-адаптер для обращения к API сервиса грузоперевозок.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-cleanhttp"
	"go.uber.org/zap"
)

const (
	modeDesktop     = "desktop"
	maxErrorBodyLen = 1 << 20
)

// Session описывает доступ адаптера к данным сессии.
type Session interface {
	AccessToken(ctx context.Context) (string, error)
	ServerAddress(ctx context.Context) (string, error)
	Clear(ctx context.Context) error
}

// Navigator переводит пользователя на экран входа.
type Navigator interface {
	ToLogin()
}

// NavigatorFunc позволяет использовать функцию как Navigator.
type NavigatorFunc func()

// ToLogin вызывает f.
func (f NavigatorFunc) ToLogin() { f() }

// Doer выполняет запрос к API. Реализуется *Client.
type Doer interface {
	Do(ctx context.Context, req Request, out any) error
}

// Request описывает один запрос к API.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	Body   any
}

// Options задаёт параметры адаптера.
type Options struct {
	// Origin используется в web-режиме: относительные пути идут через него.
	Origin string
	// Mode: "web" или "desktop".
	Mode string
	// RemoteHost используется в desktop-режиме, если адрес не сохранён в хранилище.
	RemoteHost string
	Timeout    time.Duration
	HTTPClient *http.Client
	Navigator  Navigator
	Logger     *zap.Logger
}

// Client инкапсулирует HTTP-взаимодействие с бэкендом.
type Client struct {
	origin     string
	mode       string
	remoteHost string
	httpClient *http.Client
	session    Session
	navigator  Navigator
	logger     *zap.Logger

	mu    sync.RWMutex
	hooks []func()
}

// NewClient создаёт HTTP-адаптер.
func NewClient(s Session, opts Options) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = cleanhttp.DefaultPooledClient()
		httpClient.Timeout = opts.Timeout
		if httpClient.Timeout == 0 {
			httpClient.Timeout = 10 * time.Second
		}
	}

	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	navigator := opts.Navigator
	if navigator == nil {
		navigator = NavigatorFunc(func() {})
	}

	return &Client{
		origin:     normalizeBase(opts.Origin),
		mode:       opts.Mode,
		remoteHost: normalizeBase(opts.RemoteHost),
		httpClient: httpClient,
		session:    s,
		navigator:  navigator,
		logger:     logger,
	}
}

func normalizeBase(base string) string {
	base = strings.TrimRight(base, "/")
	if base == "" {
		return ""
	}
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		base = "http://" + base
	}
	return base
}

// OnUnauthorized регистрирует обработчик, вызываемый после очистки сессии на ответ 401.
func (c *Client) OnUnauthorized(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.hooks = append(c.hooks, fn)
}

// ResolveURL превращает путь API в абсолютный URL.
// Абсолютные URL не меняются. В desktop-режиме используется адрес удалённого
// сервера (сохранённый адрес важнее конфигурации), иначе origin.
func (c *Client) ResolveURL(ctx context.Context, path string) (string, error) {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path, nil
	}

	base := c.origin
	if c.mode == modeDesktop {
		remote := c.remoteHost
		if c.session != nil {
			saved, err := c.session.ServerAddress(ctx)
			if err != nil {
				return "", err
			}
			if saved != "" {
				remote = normalizeBase(saved)
			}
		}
		if remote != "" {
			base = remote
		}
	}

	if base == "" {
		return "", fmt.Errorf("no base address for %s", path)
	}
	return base + path, nil
}

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// Do выполняет запрос и декодирует JSON-ответ в out (если out не nil).
func (c *Client) Do(ctx context.Context, r Request, out any) error {
	target, err := c.ResolveURL(ctx, r.Path)
	if err != nil {
		return &NetworkError{Method: r.Method, Path: r.Path, Err: err}
	}
	if len(r.Query) > 0 {
		target += "?" + r.Query.Encode()
	}

	var body io.Reader
	if r.Body != nil {
		raw, err := json.Marshal(r.Body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, r.Method, target, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("X-Request-ID", uuid.NewString())

	if c.session != nil {
		token, err := c.session.AccessToken(ctx)
		if err != nil {
			return fmt.Errorf("read access token: %w", err)
		}
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Debug("request failed", zap.String("method", r.Method), zap.String("path", r.Path), zap.Error(err))
		return &NetworkError{Method: r.Method, Path: r.Path, Err: err}
	}
	defer resp.Body.Close()

	c.logger.Debug("request completed",
		zap.String("method", r.Method),
		zap.String("path", r.Path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)),
	)

	if resp.StatusCode == http.StatusUnauthorized {
		msg := readErrorMessage(resp.Body)
		c.handleUnauthorized(ctx, r.Path)
		return &AuthError{Method: r.Method, Path: r.Path, Message: msg}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &NetworkError{
			Method:  r.Method,
			Path:    r.Path,
			Status:  resp.StatusCode,
			Message: readErrorMessage(resp.Body),
		}
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return &NetworkError{Method: r.Method, Path: r.Path, Status: resp.StatusCode, Err: err}
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode response %s %s: %w", r.Method, r.Path, err)
	}
	return nil
}

func readErrorMessage(r io.Reader) string {
	raw, err := io.ReadAll(io.LimitReader(r, maxErrorBodyLen))
	if err != nil || len(raw) == 0 {
		return ""
	}
	var eb errorBody
	if err := json.Unmarshal(raw, &eb); err != nil {
		return ""
	}
	if eb.Error != "" {
		return eb.Error
	}
	return eb.Message
}

// handleUnauthorized очищает сессию, оповещает подписчиков и переводит на вход
// независимо от того, какая операция получила 401.
func (c *Client) handleUnauthorized(ctx context.Context, path string) {
	c.logger.Warn("unauthorized response, clearing session", zap.String("path", path))

	if c.session != nil {
		if err := c.session.Clear(context.WithoutCancel(ctx)); err != nil {
			c.logger.Error("clear session error", zap.Error(err))
		}
	}

	c.mu.RLock()
	hooks := make([]func(), len(c.hooks))
	copy(hooks, c.hooks)
	c.mu.RUnlock()

	for _, fn := range hooks {
		fn()
	}

	c.navigator.ToLogin()
}
