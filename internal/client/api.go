// SOC 서비스와 HTTP 통신하는 클라이언트 정의
//
// 인증이 필요한 요청은 oauth2.Transport가 현재 부착된 credential을
// Authorization 헤더로 붙인다. credential이 없으면 네트워크 호출 없이
// ErrNoCredential로 실패한다.
//
// login / access-requests / registrations 는 인증 없이 호출한다.

package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/kube-rca/soc-console/internal/config"
	"github.com/kube-rca/soc-console/internal/model"
	"golang.org/x/oauth2"
)

// ErrNoCredential is returned for authenticated calls made while no
// credential is attached.
var ErrNoCredential = errors.New("no credential attached")

// APIError is a non-2xx response from the SOC service. Message holds the
// server's error text verbatim when the body carried one.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("soc api returned status %d: %s", e.StatusCode, e.Message)
}

// APIClient 구조체 정의
type APIClient struct {
	baseURL    string
	scheme     string
	credential atomic.Pointer[oauth2.Token]

	authClient *http.Client
	anonClient *http.Client
}

// APIClient 객체 생성
func NewAPIClient(cfg config.APIConfig) *APIClient {
	return NewAPIClientWithTransport(cfg, http.DefaultTransport)
}

// NewAPIClientWithTransport is NewAPIClient with an explicit base
// transport.
func NewAPIClientWithTransport(cfg config.APIConfig, base http.RoundTripper) *APIClient {
	scheme := strings.TrimSpace(cfg.AuthScheme)
	if scheme == "" {
		scheme = "Bearer"
	}

	c := &APIClient{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		scheme:  scheme,
	}
	c.authClient = &http.Client{
		Timeout: cfg.Timeout,
		Transport: &oauth2.Transport{
			Source: credentialSource{c},
			Base:   base,
		},
	}
	c.anonClient = &http.Client{
		Timeout:   cfg.Timeout,
		Transport: base,
	}
	return c
}

// SetCredential attaches token to every subsequent authenticated request.
func (c *APIClient) SetCredential(token string) {
	c.credential.Store(&oauth2.Token{AccessToken: token, TokenType: c.scheme})
}

// ClearCredential detaches the credential.
func (c *APIClient) ClearCredential() {
	c.credential.Store(nil)
}

func (c *APIClient) HasCredential() bool {
	return c.credential.Load() != nil
}

type credentialSource struct {
	c *APIClient
}

func (s credentialSource) Token() (*oauth2.Token, error) {
	tok := s.c.credential.Load()
	if tok == nil {
		return nil, ErrNoCredential
	}
	return tok, nil
}

// ============================================================================
// Auth / 계정
// ============================================================================

// POST /auth/login
func (c *APIClient) Login(ctx context.Context, username, password string) (*model.LoginResponse, error) {
	var resp model.LoginResponse
	req := model.LoginRequest{Username: username, Password: password}
	if err := c.do(ctx, c.anonClient, http.MethodPost, "/auth/login", nil, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// POST /auth/logout
func (c *APIClient) Logout(ctx context.Context) error {
	return c.do(ctx, c.authClient, http.MethodPost, "/auth/logout", nil, nil, nil)
}

// POST /access-requests - 서버 메시지 반환
func (c *APIClient) RequestAccess(ctx context.Context, req model.AccessRequest) (string, error) {
	var resp model.MessageResponse
	if err := c.do(ctx, c.anonClient, http.MethodPost, "/access-requests", nil, req, &resp); err != nil {
		return "", err
	}
	return resp.Message, nil
}

// POST /registrations/{token}
func (c *APIClient) Register(ctx context.Context, token string, req model.RegistrationRequest) error {
	return c.do(ctx, c.anonClient, http.MethodPost, "/registrations/"+url.PathEscape(token), nil, req, nil)
}

// ============================================================================
// 조회
// ============================================================================

// GET /incidents
func (c *APIClient) ListIncidents(ctx context.Context, filters model.FilterSet) ([]model.Incident, error) {
	var incidents []model.Incident
	if err := c.do(ctx, c.authClient, http.MethodGet, "/incidents", filters.Query(), nil, &incidents); err != nil {
		return nil, err
	}
	return incidents, nil
}

// GET /incidents/{id}
func (c *APIClient) GetIncident(ctx context.Context, id string) (*model.Incident, error) {
	var incident model.Incident
	if err := c.do(ctx, c.authClient, http.MethodGet, "/incidents/"+url.PathEscape(id), nil, nil, &incident); err != nil {
		return nil, err
	}
	return &incident, nil
}

// GET /analysts
func (c *APIClient) ListAnalysts(ctx context.Context) ([]model.Analyst, error) {
	var analysts []model.Analyst
	if err := c.do(ctx, c.authClient, http.MethodGet, "/analysts", nil, nil, &analysts); err != nil {
		return nil, err
	}
	return analysts, nil
}

// GET /playbooks?incidentType=
func (c *APIClient) ListPlaybooks(ctx context.Context, incidentType string) ([]model.Playbook, error) {
	q := url.Values{}
	if incidentType != "" {
		q.Set("incidentType", incidentType)
	}
	var playbooks []model.Playbook
	if err := c.do(ctx, c.authClient, http.MethodGet, "/playbooks", q, nil, &playbooks); err != nil {
		return nil, err
	}
	return playbooks, nil
}

// ============================================================================
// Ticket lifecycle
// ============================================================================

func (c *APIClient) AssignTicket(ctx context.Context, ticketID string) error {
	return c.ticketAction(ctx, ticketID, "assign", nil)
}

func (c *APIClient) StartTicket(ctx context.Context, ticketID string) error {
	return c.ticketAction(ctx, ticketID, "start", nil)
}

func (c *APIClient) PauseTicket(ctx context.Context, ticketID string) error {
	return c.ticketAction(ctx, ticketID, "pause", nil)
}

func (c *APIClient) CompleteTicket(ctx context.Context, ticketID string, req model.CompleteTicketRequest) error {
	return c.ticketAction(ctx, ticketID, "complete", req)
}

func (c *APIClient) ticketAction(ctx context.Context, ticketID, action string, body any) error {
	path := "/tickets/" + url.PathEscape(ticketID) + "/" + action
	return c.do(ctx, c.authClient, http.MethodPost, path, nil, body, nil)
}

// ============================================================================
// 공통 요청 처리
// ============================================================================

func (c *APIClient) do(ctx context.Context, hc *http.Client, method, path string, query url.Values, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())

	resp, err := hc.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{StatusCode: resp.StatusCode, Message: errorMessage(resp.StatusCode, data)}
	}

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

// errorMessage extracts the server's error text from {"error"},
// {"message"} or {"detail"} bodies.
func errorMessage(status int, data []byte) string {
	var body struct {
		Error   string `json:"error"`
		Message string `json:"message"`
		Detail  string `json:"detail"`
	}
	if err := json.Unmarshal(data, &body); err == nil {
		for _, msg := range []string{body.Error, body.Message, body.Detail} {
			if msg != "" {
				return msg
			}
		}
	}
	if text := strings.TrimSpace(string(data)); text != "" && len(text) < 256 {
		return text
	}
	return http.StatusText(status)
}
