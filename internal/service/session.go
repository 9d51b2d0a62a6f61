package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"

	"github.com/golang-jwt/jwt/v5"
	"github.com/kube-rca/soc-console/internal/clock"
	"github.com/kube-rca/soc-console/internal/model"
)

// authAPI - SessionService가 사용하는 원격 호출
type authAPI interface {
	Login(ctx context.Context, username, password string) (*model.LoginResponse, error)
	Logout(ctx context.Context) error
	SetCredential(token string)
	ClearCredential()
}

// sessionStore - 세션 영속화
type sessionStore interface {
	Load() (*model.Session, error)
	Save(session *model.Session) error
	Clear() error
}

// SessionService owns the authentication state. The credential attached
// to outgoing requests and the in-memory session are each swapped
// atomically: on login the credential is attached before the session
// becomes visible, on logout the session disappears before the
// credential is detached.
type SessionService struct {
	api     authAPI
	store   sessionStore
	clock   clock.Clock
	logger  *slog.Logger
	current atomic.Pointer[model.Session]
}

func NewSessionService(api authAPI, store sessionStore, clk clock.Clock, logger *slog.Logger) *SessionService {
	return &SessionService{
		api:    api,
		store:  store,
		clock:  clk,
		logger: logger.With("component", "session"),
	}
}

// Restore loads the persisted session. It returns false, leaving the
// session unauthenticated, when nothing usable is stored.
func (s *SessionService) Restore() bool {
	session, err := s.store.Load()
	if err != nil {
		s.logger.Debug("no stored session", "error", err)
		return false
	}
	if err := s.validate(session); err != nil {
		s.logger.Debug("discarding stored session", "error", err)
		return false
	}

	s.api.SetCredential(session.Token)
	s.current.Store(session)
	s.logger.Info("session restored", "username", session.Identity.Username)
	return true
}

func (s *SessionService) validate(session *model.Session) error {
	if session == nil || strings.TrimSpace(session.Token) == "" {
		return errors.New("missing token")
	}
	if strings.TrimSpace(session.Identity.Username) == "" {
		return errors.New("missing identity")
	}
	if strings.Count(session.Token, ".") != 2 {
		return nil
	}

	// JWT credentials are checked for expiry; the signature is the
	// server's business.
	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(session.Token, &claims); err != nil {
		return fmt.Errorf("malformed token: %w", err)
	}
	if claims.ExpiresAt != nil && !claims.ExpiresAt.After(s.clock.Now()) {
		return errors.New("token expired")
	}
	return nil
}

// Login authenticates against the SOC service. On success the session is
// persisted, attached and returned as nil error; on failure nothing is
// stored and the error is one of ErrAuthFailure, ErrNetworkFailure or
// ErrValidation.
func (s *SessionService) Login(ctx context.Context, username, password string) error {
	if strings.TrimSpace(username) == "" || password == "" {
		return fmt.Errorf("%w: username and password are required", ErrValidation)
	}

	resp, err := s.api.Login(ctx, username, password)
	if err != nil {
		s.logger.Warn("login failed", "username", username, "error", err)
		return classifyLogin(err)
	}

	session := &model.Session{Token: resp.Token, Identity: resp.Identity}
	if err := s.validate(session); err != nil {
		return fmt.Errorf("%w: %v", ErrAuthFailure, err)
	}
	if err := s.store.Save(session); err != nil {
		return fmt.Errorf("persist session: %w", err)
	}

	s.api.SetCredential(session.Token)
	s.current.Store(session)
	s.logger.Info("logged in", "username", session.Identity.Username, "analyst_id", session.Identity.AnalystID)
	return nil
}

// Logout notifies the service best-effort and then always clears the
// local session, the attached credential and the session file.
func (s *SessionService) Logout(ctx context.Context) {
	if s.current.Load() != nil {
		if err := s.api.Logout(ctx); err != nil {
			s.logger.Warn("remote logout failed", "error", err)
		}
	}
	s.Invalidate()
}

// Invalidate drops the session locally without contacting the service.
func (s *SessionService) Invalidate() {
	s.current.Store(nil)
	s.api.ClearCredential()
	if err := s.store.Clear(); err != nil {
		s.logger.Warn("failed to clear session file", "error", err)
	}
}

func (s *SessionService) Current() *model.Session {
	return s.current.Load()
}

func (s *SessionService) Authenticated() bool {
	return s.current.Load() != nil
}

// Identity implements identityProvider.
func (s *SessionService) Identity() (model.Identity, bool) {
	session := s.current.Load()
	if session == nil {
		return model.Identity{}, false
	}
	return session.Identity, true
}
