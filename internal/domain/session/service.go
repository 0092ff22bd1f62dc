package session

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"zetta/internal/domain/auth"
	"zetta/internal/domain/notification"
)

// Identity is the backend side of a dashboard session.
type Identity interface {
	Me(ctx context.Context) (*auth.User, error)
	Logout(ctx context.Context) error
}

// TokenHolder carries the bearer token used for backend calls.
type TokenHolder interface {
	SetToken(token string)
	Token() string
}

type tokenIssuer interface {
	GenerateToken(userID string, role string) (string, error)
}

type Config struct {
	// DefaultToken is used when a login brings no token of its own.
	DefaultToken         string
	ResetClearsReadState bool
}

type LoginResult struct {
	User        *auth.User
	AccessToken string
	Subscribed  bool
	// SyncError is set when the first fetch failed. The session is still open.
	SyncError string
}

// Service wires one dashboard user into the notification store: identity,
// read-state, realtime subscription and the first fetch.
type Service struct {
	tokens    TokenHolder
	identity  Identity
	store     *notification.Store
	presenter *notification.Presenter
	ingestor  *notification.Ingestor
	jwt       tokenIssuer
	cfg       Config
	log       *zap.Logger

	mu      sync.Mutex
	current *auth.User
}

func NewService(
	tokens TokenHolder,
	identity Identity,
	store *notification.Store,
	presenter *notification.Presenter,
	ingestor *notification.Ingestor,
	jwt tokenIssuer,
	cfg Config,
	log *zap.Logger,
) *Service {
	return &Service{
		tokens:    tokens,
		identity:  identity,
		store:     store,
		presenter: presenter,
		ingestor:  ingestor,
		jwt:       jwt,
		cfg:       cfg,
		log:       log,
	}
}

// Login opens a session for the owner of token. Only identity and token
// failures are returned; subscription and fetch trouble is reported in
// the result.
func (s *Service) Login(ctx context.Context, token string) (*LoginResult, error) {
	if token == "" {
		token = s.cfg.DefaultToken
	}
	if token == "" {
		return nil, ErrTokenRequired
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	previous := s.tokens.Token()
	s.tokens.SetToken(token)
	user, err := s.identity.Me(ctx)
	if err != nil {
		s.tokens.SetToken(previous)
		return nil, err
	}
	log := s.log.With(zap.String("user_id", user.ID), zap.String("role", string(user.Role)))

	if s.current != nil && s.current.ID != user.ID {
		log.Info("replacing session", zap.String("previous_user_id", s.current.ID))
		s.teardown(ctx)
	}

	if err := s.store.Hydrate(ctx, user.ID); err != nil {
		log.Warn("read-state not restored", zap.Error(err))
	}
	s.presenter.SetRole(string(user.Role))
	s.presenter.PrepareSound()

	res := &LoginResult{User: user}
	if err := s.ingestor.Subscribe(ctx); err == nil {
		res.Subscribed = true
	}
	if err := s.store.FetchAll(ctx); err != nil {
		log.Warn("initial fetch failed", zap.Error(err))
		res.SyncError = err.Error()
	}

	res.AccessToken, err = s.jwt.GenerateToken(user.ID, string(user.Role))
	if err != nil {
		return nil, err
	}
	s.current = user
	log.Info("session opened", zap.Int("unread", s.store.UnreadCount()))
	return res, nil
}

// Logout closes the current session. A failed backend logout is logged;
// the local session ends regardless.
func (s *Service) Logout(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current == nil {
		return ErrNoSession
	}
	if err := s.identity.Logout(ctx); err != nil {
		s.log.Warn("backend logout failed", zap.String("user_id", s.current.ID), zap.Error(err))
	}
	s.teardown(ctx)
	s.tokens.SetToken(s.cfg.DefaultToken)
	s.log.Info("session closed", zap.String("user_id", s.current.ID))
	s.current = nil
	return nil
}

// Current returns the signed-in user, if any.
func (s *Service) Current() (*auth.User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current, s.current != nil
}

func (s *Service) teardown(ctx context.Context) {
	s.ingestor.Unsubscribe()
	if err := s.store.Reset(ctx, s.cfg.ResetClearsReadState); err != nil {
		s.log.Warn("reset read-state failed", zap.Error(err))
	}
	s.presenter.SetRole("")
}
