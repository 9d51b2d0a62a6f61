package service

import (
	"context"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"

	"github.com/kube-rca/soc-console/internal/model"
)

// accountAPI - 계정 신청/등록 원격 호출 (인증 불필요)
type accountAPI interface {
	RequestAccess(ctx context.Context, req model.AccessRequest) (string, error)
	Register(ctx context.Context, token string, req model.RegistrationRequest) error
}

// AccountService handles onboarding: requesting access and completing a
// registration with the token an admin sent out.
type AccountService struct {
	api    accountAPI
	logger *slog.Logger
}

func NewAccountService(api accountAPI, logger *slog.Logger) *AccountService {
	return &AccountService{api: api, logger: logger.With("component", "account")}
}

// RequestAccess asks for an account with role. It returns the service's
// confirmation message.
func (s *AccountService) RequestAccess(ctx context.Context, email, role string) (string, error) {
	email = strings.TrimSpace(email)
	// "Name <addr>" 형식은 거부, 주소만 허용
	if addr, err := mail.ParseAddress(email); err != nil || addr.Address != email {
		return "", fmt.Errorf("%w: invalid email address %q", ErrValidation, email)
	}
	if role != model.RoleAnalyst && role != model.RoleAdmin {
		return "", fmt.Errorf("%w: role must be %s or %s", ErrValidation, model.RoleAnalyst, model.RoleAdmin)
	}

	msg, err := s.api.RequestAccess(ctx, model.AccessRequest{Email: email, Role: role})
	if err != nil {
		return "", classify(err)
	}
	s.logger.Info("access requested", "email", email, "role", role)
	return msg, nil
}

// Register completes a pending registration.
func (s *AccountService) Register(ctx context.Context, token, username, password, confirmPassword string) error {
	switch {
	case strings.TrimSpace(token) == "":
		return fmt.Errorf("%w: registration token is required", ErrValidation)
	case strings.TrimSpace(username) == "":
		return fmt.Errorf("%w: username is required", ErrValidation)
	case password == "":
		return fmt.Errorf("%w: password is required", ErrValidation)
	case password != confirmPassword:
		return fmt.Errorf("%w: passwords do not match", ErrValidation)
	}

	req := model.RegistrationRequest{Username: username, Password: password, ConfirmPassword: confirmPassword}
	if err := s.api.Register(ctx, token, req); err != nil {
		return classify(err)
	}
	s.logger.Info("registration completed", "username", username)
	return nil
}
