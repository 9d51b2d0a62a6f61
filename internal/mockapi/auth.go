package mockapi

import (
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/kube-rca/soc-console/internal/clock"
	"github.com/kube-rca/soc-console/internal/config"
	"github.com/kube-rca/soc-console/internal/model"
	"golang.org/x/crypto/bcrypt"
)

// LoginFailedMessage is returned for every rejected login so that wrong
// passwords and unapproved accounts are indistinguishable.
const LoginFailedMessage = "Invalid credentials or account not approved"

// AuthUser - access token에서 복원한 요청 주체
type AuthUser struct {
	Username  string
	AnalystID string
	Roles     []string
	TokenID   string
	ExpiresAt time.Time
}

type authClaims struct {
	AnalystID string   `json:"analystId,omitempty"`
	Roles     []string `json:"roles"`
	jwt.RegisteredClaims
}

// AuthService issues and verifies HS256 access tokens for the users in
// the store.
type AuthService struct {
	store     *Store
	jwtSecret []byte
	tokenTTL  time.Duration
	clock     clock.Clock
	logger    *slog.Logger

	mu      sync.Mutex
	revoked map[string]time.Time
}

func NewAuthService(store *Store, cfg config.MockConfig, clk clock.Clock, logger *slog.Logger) (*AuthService, error) {
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("%w: SOC_MOCK_JWT_SECRET is required", ErrMisconfigured)
	}
	if cfg.TokenTTL <= 0 {
		return nil, fmt.Errorf("%w: SOC_MOCK_TOKEN_TTL must be positive", ErrMisconfigured)
	}
	return &AuthService{
		store:     store,
		jwtSecret: []byte(cfg.JWTSecret),
		tokenTTL:  cfg.TokenTTL,
		clock:     clk,
		logger:    logger.With("component", "mock-auth"),
		revoked:   make(map[string]time.Time),
	}, nil
}

// EnsureUser creates an approved user unless the username exists.
func (s *AuthService) EnsureUser(username, email, password string, roles []string) error {
	if strings.TrimSpace(username) == "" || password == "" {
		return fmt.Errorf("%w: username and password are required", ErrMisconfigured)
	}
	if _, err := s.store.UserByUsername(username); err == nil {
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		return err
	}
	_, err = s.store.CreateUser(username, email, string(hash), roles, true)
	return err
}

// Login checks the password and issues an access token.
func (s *AuthService) Login(username, password string) (*model.LoginResponse, error) {
	user, err := s.store.UserByUsername(strings.TrimSpace(username))
	if err != nil {
		return nil, fail(ErrUnauthorized, LoginFailedMessage)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil || !user.Approved {
		return nil, fail(ErrUnauthorized, LoginFailedMessage)
	}

	token, err := s.generateAccessToken(user)
	if err != nil {
		return nil, err
	}
	s.logger.Info("user logged in", "username", user.Username)
	return &model.LoginResponse{
		Token: token,
		Identity: model.Identity{
			Username:  user.Username,
			Roles:     user.Roles,
			AnalystID: user.AnalystID,
		},
	}, nil
}

// Logout revokes the token until it would have expired anyway.
func (s *AuthService) Logout(user *AuthUser) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	for id, exp := range s.revoked {
		if !exp.After(now) {
			delete(s.revoked, id)
		}
	}
	s.revoked[user.TokenID] = user.ExpiresAt
}

func (s *AuthService) ParseAccessToken(tokenStr string) (*AuthUser, error) {
	claims := &authClaims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrUnauthorized
		}
		return s.jwtSecret, nil
	}, jwt.WithTimeFunc(s.clock.Now), jwt.WithExpirationRequired())
	if err != nil || !token.Valid {
		return nil, ErrUnauthorized
	}

	s.mu.Lock()
	_, revoked := s.revoked[claims.ID]
	s.mu.Unlock()
	if revoked {
		return nil, ErrUnauthorized
	}

	return &AuthUser{
		Username:  claims.Subject,
		AnalystID: claims.AnalystID,
		Roles:     claims.Roles,
		TokenID:   claims.ID,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

func (s *AuthService) generateAccessToken(user *User) (string, error) {
	now := s.clock.Now()
	claims := authClaims{
		AnalystID: user.AnalystID,
		Roles:     user.Roles,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   user.Username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.jwtSecret)
}

// ============================================================================
// 계정 신청 / 등록
// ============================================================================

// RequestAccess records a pending account and returns its registration
// token. An admin would mail the token out; here it is logged.
func (s *AuthService) RequestAccess(req model.AccessRequest) (string, error) {
	if addr, err := mail.ParseAddress(req.Email); err != nil || addr.Address != req.Email {
		return "", fail(ErrInvalidInput, "Invalid email address")
	}
	if req.Role != model.RoleAnalyst && req.Role != model.RoleAdmin {
		return "", fail(ErrInvalidInput, "Role must be Analyst or Admin")
	}

	token, err := s.store.CreatePendingUser(req.Email, req.Role)
	if err != nil {
		return "", err
	}
	s.logger.Info("access request recorded", "email", req.Email, "role", req.Role, "registration_token", token)
	return token, nil
}

// Register completes the registration identified by token.
func (s *AuthService) Register(token string, req model.RegistrationRequest) error {
	if strings.TrimSpace(req.Username) == "" || req.Password == "" {
		return fail(ErrInvalidInput, "Username and password are required")
	}
	if req.Password != req.ConfirmPassword {
		return fail(ErrInvalidInput, "Passwords do not match.")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	user, err := s.store.CompleteRegistration(token, strings.TrimSpace(req.Username), string(hash))
	if err != nil {
		return err
	}
	s.logger.Info("registration completed", "username", user.Username, "analyst_id", user.AnalystID)
	return nil
}
