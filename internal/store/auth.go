package store

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/mmeshcher/freight-storefront/internal/model"
	"github.com/mmeshcher/freight-storefront/internal/validation"
)

// AuthState описывает состояние авторизации.
type AuthState struct {
	User            *model.User
	AccessToken     string
	RefreshToken    string
	IsAuthenticated bool
	Status

	// userSeq хранит номер последней операции, менявшей пользователя.
	// Более старые ответы профиля не применяются и не сохраняются.
	userSeq uint64
}

// AuthSlice управляет сессией пользователя.
type AuthSlice struct {
	obs      *observable[AuthState]
	api      AuthAPI
	sessions Sessions
	logger   *zap.Logger
	onLogout func()
}

func newAuthSlice(a AuthAPI, s Sessions, logger *zap.Logger, onLogout func()) *AuthSlice {
	return &AuthSlice{
		obs:      newObservable(AuthState{}, func(s *AuthState) *Status { return &s.Status }),
		api:      a,
		sessions: s,
		logger:   logger,
		onLogout: onLogout,
	}
}

// Snapshot возвращает текущее состояние.
func (a *AuthSlice) Snapshot() AuthState {
	return a.obs.snapshot()
}

// Subscribe подписывает fn на изменения состояния.
func (a *AuthSlice) Subscribe(fn func(AuthState)) (unsubscribe func()) {
	return a.obs.subscribe(fn)
}

func authenticated(s *AuthState, seq uint64, sess model.Session) {
	if seq > s.userSeq {
		s.userSeq = seq
	}
	u := sess.User
	s.User = &u
	s.AccessToken = sess.AccessToken
	s.RefreshToken = sess.RefreshToken
	s.IsAuthenticated = true
}

func (a *AuthSlice) signIn(ctx context.Context, call func() (model.Session, error), fallback string) error {
	seq := a.obs.begin()

	sess, err := call()
	if err == nil && alive(ctx) {
		if saveErr := a.sessions.Save(ctx, sess); saveErr != nil {
			err = fmt.Errorf("persist session: %w", saveErr)
		}
	}

	if !alive(ctx) {
		a.obs.finish(seq, nil)
		return ctx.Err()
	}
	if err != nil {
		a.obs.finish(seq, func(s *AuthState, _ uint64) {
			s.Error = errorMessage(err, fallback)
		})
		return err
	}

	a.obs.finish(seq, func(s *AuthState, seq uint64) {
		authenticated(s, seq, sess)
	})
	a.logger.Info("user signed in", zap.Int64("user_id", sess.User.ID), zap.String("login", sess.User.Login))
	return nil
}

// Login выполняет вход и сохраняет сессию в хранилище.
func (a *AuthSlice) Login(ctx context.Context, c model.Credentials) error {
	return a.signIn(ctx, func() (model.Session, error) {
		return a.api.Login(ctx, c)
	}, "Ошибка входа")
}

// Register проверяет форму регистрации, регистрирует пользователя и сохраняет сессию.
func (a *AuthSlice) Register(ctx context.Context, f validation.RegistrationForm) error {
	return a.signIn(ctx, func() (model.Session, error) {
		if err := validation.Registration(f); err != nil {
			return model.Session{}, err
		}
		return a.api.Register(ctx, f.Request())
	}, "Ошибка регистрации")
}

// Logout сообщает бэкенду о выходе и всегда очищает локальную сессию,
// даже если бэкенд недоступен.
func (a *AuthSlice) Logout(ctx context.Context) error {
	seq := a.obs.begin()
	a.obs.update(signedOut)

	if err := a.api.Logout(ctx); err != nil {
		a.logger.Warn("backend logout failed, clearing local session anyway", zap.Error(err))
	}

	clearErr := a.sessions.Clear(context.WithoutCancel(ctx))
	if clearErr != nil {
		a.logger.Error("clear session error", zap.Error(clearErr))
	}

	a.obs.finish(seq, signedOut)
	if a.onLogout != nil {
		a.onLogout()
	}
	return clearErr
}

// FetchProfile перечитывает профиль и сохраняет его в хранилище.
func (a *AuthSlice) FetchProfile(ctx context.Context) error {
	return a.refreshUser(ctx, func() (model.User, error) {
		return a.api.Profile(ctx)
	}, "Ошибка загрузки профиля")
}

// UpdateProfile обновляет профиль. При ошибке прежний профиль сохраняется.
func (a *AuthSlice) UpdateProfile(ctx context.Context, p model.ProfileUpdate) error {
	return a.refreshUser(ctx, func() (model.User, error) {
		if err := validation.Profile(p); err != nil {
			return model.User{}, err
		}
		return a.api.UpdateProfile(ctx, p)
	}, "Ошибка обновления профиля")
}

func (a *AuthSlice) refreshUser(ctx context.Context, call func() (model.User, error), fallback string) error {
	seq := a.obs.begin()

	u, err := call()
	if !alive(ctx) {
		a.obs.finish(seq, nil)
		return ctx.Err()
	}
	if err != nil {
		a.obs.finish(seq, func(s *AuthState, _ uint64) {
			s.Error = errorMessage(err, fallback)
		})
		return err
	}

	a.obs.finish(seq, func(s *AuthState, seq uint64) {
		if seq < s.userSeq {
			a.logger.Debug("discarding stale profile response", zap.Int64("user_id", u.ID))
			return
		}
		if err := a.sessions.SaveUser(ctx, u); err != nil {
			a.logger.Warn("persist user error", zap.Error(err))
		}
		s.userSeq = seq
		s.User = &u
	})
	return nil
}

// RestoreAuth восстанавливает сессию из хранилища. Вызывается при старте
// до отображения защищённых экранов; повторный вызов даёт то же состояние.
func (a *AuthSlice) RestoreAuth(ctx context.Context) error {
	sess, ok, err := a.sessions.Load(ctx)
	if err != nil {
		return fmt.Errorf("restore session: %w", err)
	}

	a.obs.update(func(s *AuthState, _ uint64) {
		if !ok {
			signedOut(s, 0)
			return
		}
		authenticated(s, 0, sess)
	})
	return nil
}

// ClearError сбрасывает текст ошибки.
func (a *AuthSlice) ClearError() {
	a.obs.update(func(s *AuthState, _ uint64) {
		s.Error = ""
	})
}

func (a *AuthSlice) reset() {
	a.obs.update(signedOut)
}

// signedOut сбрасывает сессию, сохраняя признак загрузки.
// Ответы профиля, запрошенные до этого момента, отбрасываются.
func signedOut(s *AuthState, seq uint64) {
	userSeq := s.userSeq
	if seq > userSeq {
		userSeq = seq
	}
	*s = AuthState{Status: Status{IsLoading: s.IsLoading}, userSeq: userSeq}
}
