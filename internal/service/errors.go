package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/kube-rca/soc-console/internal/client"
)

var (
	// ErrAuthFailure: bad credentials, unapproved account or a rejected
	// credential (401). The session stays (or becomes) unauthenticated.
	ErrAuthFailure = errors.New("authentication failed")
	// ErrNetworkFailure: the service could not be reached or failed
	// internally. Cached data is retained and nothing is retried.
	ErrNetworkFailure = errors.New("soc service unavailable")
	// ErrValidation: the input was rejected, locally before any request
	// or by the service.
	ErrValidation = errors.New("invalid input")
	// ErrConflict: the service rejected a transition because the ticket
	// changed concurrently.
	ErrConflict = errors.New("conflict")
	// ErrForbidden: the credential is valid but the caller may not act on
	// this resource (403), e.g. a ticket assigned to someone else.
	ErrForbidden = errors.New("forbidden")

	ErrNotAuthenticated     = errors.New("not authenticated")
	ErrNotFound             = errors.New("not found")
	ErrTransitionNotAllowed = errors.New("transition not allowed")
	// ErrSuperseded: a newer fetch was issued before this one completed,
	// so its result was discarded.
	ErrSuperseded = errors.New("superseded by a newer fetch")
)

// classify maps a client error onto the error taxonomy. The server's
// message is kept verbatim.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	if errors.Is(err, client.ErrNoCredential) {
		return ErrNotAuthenticated
	}

	var apiErr *client.APIError
	if !errors.As(err, &apiErr) {
		return fmt.Errorf("%w: %w", ErrNetworkFailure, err)
	}

	switch {
	case apiErr.StatusCode == http.StatusUnauthorized:
		return fmt.Errorf("%w: %s", ErrAuthFailure, apiErr.Message)
	case apiErr.StatusCode == http.StatusForbidden:
		return fmt.Errorf("%w: %s", ErrForbidden, apiErr.Message)
	case apiErr.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%w: %s", ErrNotFound, apiErr.Message)
	case apiErr.StatusCode == http.StatusConflict, apiErr.StatusCode == http.StatusPreconditionFailed:
		return fmt.Errorf("%w: %s", ErrConflict, apiErr.Message)
	case apiErr.StatusCode == http.StatusBadRequest, apiErr.StatusCode == http.StatusUnprocessableEntity:
		return fmt.Errorf("%w: %s", ErrValidation, apiErr.Message)
	default:
		return fmt.Errorf("%w: %s", ErrNetworkFailure, apiErr.Message)
	}
}

// classifyLogin treats every 4xx from the login endpoint as an
// authentication failure.
func classifyLogin(err error) error {
	var apiErr *client.APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode >= 400 && apiErr.StatusCode < 500 {
		return fmt.Errorf("%w: %s", ErrAuthFailure, apiErr.Message)
	}
	return classify(err)
}
