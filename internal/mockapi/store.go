// 참조용 SOC 서비스의 in-memory 저장소
//
// 콘솔 개발/테스트용으로 SOC 서비스의 HTTP 계약을 그대로 구현한다.
// 모든 변경은 하나의 mutex 아래에서 원자적으로 수행되므로 동시에 들어온
// assign 요청 중 하나만 성공한다.

package mockapi

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/kube-rca/soc-console/internal/clock"
	"github.com/kube-rca/soc-console/internal/model"
)

var (
	ErrInvalidInput  = errors.New("invalid input")
	ErrUnauthorized  = errors.New("unauthorized")
	ErrForbidden     = errors.New("forbidden")
	ErrNotFound      = errors.New("not found")
	ErrConflict      = errors.New("conflict")
	ErrMisconfigured = errors.New("mock config invalid")
)

// Error carries a client-facing message for one of the sentinel errors.
type Error struct {
	Kind    error
	Message string
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.Kind }

func fail(kind error, message string) error {
	return &Error{Kind: kind, Message: message}
}

// SLAFor returns the resolution window for a severity.
func SLAFor(severity model.Severity) time.Duration {
	switch severity {
	case model.SeverityHigh:
		return 4 * time.Hour
	case model.SeverityMedium:
		return 12 * time.Hour
	default:
		return 24 * time.Hour
	}
}

// User - 로그인 가능한 계정
type User struct {
	ID           int64
	Username     string
	Email        string
	PasswordHash string
	Approved     bool
	Roles        []string
	AnalystID    string
}

type pendingUser struct {
	Email string
	Role  string
	Token string
}

type ticketRecord struct {
	ID        string
	Status    model.TicketStatus
	Analysts  []string
	CreatedAt time.Time
	Deadline  time.Time
}

type incidentRecord struct {
	ID        string
	Type      string
	Severity  model.Severity
	Analyses  []model.Analysis
	Ticket    *ticketRecord
	CreatedAt time.Time
}

// Store 구조체 정의
type Store struct {
	clock clock.Clock

	mu         sync.RWMutex
	nextUserID int64
	nextSeq    int
	users      map[string]*User
	pending    map[string]*pendingUser
	incidents  map[string]*incidentRecord
	tickets    map[string]*incidentRecord
	playbooks  []model.Playbook
}

// Store 객체 생성
func NewStore(clk clock.Clock) *Store {
	return &Store{
		clock:     clk,
		users:     make(map[string]*User),
		pending:   make(map[string]*pendingUser),
		incidents: make(map[string]*incidentRecord),
		tickets:   make(map[string]*incidentRecord),
	}
}

// ============================================================================
// 계정
// ============================================================================

// CreateUser stores a user. Analysts get an analyst id.
func (s *Store) CreateUser(username, email, passwordHash string, roles []string, approved bool) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.createUserLocked(username, email, passwordHash, roles, approved)
}

func (s *Store) createUserLocked(username, email, passwordHash string, roles []string, approved bool) (*User, error) {
	if _, ok := s.users[username]; ok {
		return nil, fail(ErrConflict, fmt.Sprintf("Username %q is taken", username))
	}
	s.nextUserID++
	user := &User{
		ID:           s.nextUserID,
		Username:     username,
		Email:        email,
		PasswordHash: passwordHash,
		Approved:     approved,
		Roles:        roles,
	}
	for _, role := range roles {
		if role == model.RoleAnalyst {
			user.AnalystID = fmt.Sprintf("A-%d", user.ID)
		}
	}
	s.users[username] = user
	return user, nil
}

func (s *Store) UserByUsername(username string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	user, ok := s.users[username]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *user
	return &copied, nil
}

// CreatePendingUser records an access request and returns its
// registration token.
func (s *Store) CreatePendingUser(email, role string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, user := range s.users {
		if strings.EqualFold(user.Email, email) {
			return "", fail(ErrConflict, "This email is already registered.")
		}
	}
	for _, p := range s.pending {
		if strings.EqualFold(p.Email, email) {
			return "", fail(ErrConflict, "An access request is already pending for this email.")
		}
	}

	token := uuid.NewString()
	s.pending[token] = &pendingUser{Email: email, Role: role, Token: token}
	return token, nil
}

// CompleteRegistration turns a pending access request into an approved
// user.
func (s *Store) CompleteRegistration(token, username, passwordHash string) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.pending[token]
	if !ok {
		return nil, fail(ErrNotFound, "Invalid registration token")
	}
	user, err := s.createUserLocked(username, p.Email, passwordHash, []string{p.Role}, true)
	if err != nil {
		return nil, err
	}
	delete(s.pending, token)
	copied := *user
	return &copied, nil
}

func (s *Store) Analysts() []model.Analyst {
	s.mu.RLock()
	defer s.mu.RUnlock()

	analysts := make([]model.Analyst, 0, len(s.users))
	for _, user := range s.users {
		if user.AnalystID != "" {
			analysts = append(analysts, model.Analyst{ID: user.AnalystID, Username: user.Username})
		}
	}
	sort.Slice(analysts, func(i, j int) bool { return analysts[i].Username < analysts[j].Username })
	return analysts
}

// ============================================================================
// Incident / Ticket
// ============================================================================

// CreateIncident opens an incident with a NEW ticket whose deadline is
// derived from the severity.
func (s *Store) CreateIncident(incidentType string, severity model.Severity) model.Incident {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextSeq++
	now := s.clock.Now()
	rec := &incidentRecord{
		ID:        fmt.Sprintf("INC-%04d", s.nextSeq),
		Type:      incidentType,
		Severity:  severity,
		CreatedAt: now,
		Ticket: &ticketRecord{
			ID:        fmt.Sprintf("TKT-%04d", s.nextSeq),
			Status:    model.TicketNew,
			CreatedAt: now,
			Deadline:  now.Add(SLAFor(severity)),
		},
	}
	s.incidents[rec.ID] = rec
	s.tickets[rec.Ticket.ID] = rec
	return s.viewLocked(rec)
}

// ListIncidents returns incidents matching filters, ordered by id.
func (s *Store) ListIncidents(filters model.FilterSet) []model.Incident {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.Incident, 0, len(s.incidents))
	for _, rec := range s.incidents {
		inc := s.viewLocked(rec)
		if s.matchesLocked(inc, filters) {
			out = append(out, inc)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *Store) matchesLocked(inc model.Incident, f model.FilterSet) bool {
	if v := strings.TrimSpace(f.Status); v != "" && !strings.EqualFold(string(inc.Status), v) {
		return false
	}
	if v := strings.TrimSpace(f.Severity); v != "" && !strings.EqualFold(string(inc.Severity), v) {
		return false
	}
	if v := strings.TrimSpace(f.Analyst); v != "" {
		analystID := v
		if user, ok := s.users[v]; ok {
			analystID = user.AnalystID
		}
		if !inc.Ticket.AssignedTo(analystID) {
			return false
		}
	}
	if v := strings.ToLower(strings.TrimSpace(f.Search)); v != "" {
		if !strings.Contains(strings.ToLower(inc.ID), v) && !strings.Contains(strings.ToLower(inc.IncidentType), v) {
			return false
		}
	}
	return true
}

func (s *Store) Incident(id string) (model.Incident, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.incidents[id]
	if !ok {
		return model.Incident{}, fail(ErrNotFound, "Incident not found")
	}
	return s.viewLocked(rec), nil
}

// viewLocked renders the wire representation. The incident status
// mirrors its ticket and sla_remaining is computed at read time, except
// for closed tickets where it is always zero.
func (s *Store) viewLocked(rec *incidentRecord) model.Incident {
	inc := model.Incident{
		ID:           rec.ID,
		IncidentType: rec.Type,
		Severity:     rec.Severity,
		Status:       model.IncidentOpen,
		Analyses:     append([]model.Analysis{}, rec.Analyses...),
	}
	if t := rec.Ticket; t != nil {
		remaining := t.Deadline.Sub(s.clock.Now())
		if remaining < 0 || t.Status == model.TicketClosed {
			remaining = 0
		}
		inc.Ticket = &model.Ticket{
			ID:                  t.ID,
			Status:              t.Status,
			AssignedAnalysts:    append([]string{}, t.Analysts...),
			DeadlineTimestamp:   t.Deadline,
			SLARemainingSeconds: int64(remaining / time.Second),
		}
		switch t.Status {
		case model.TicketAssigned:
			inc.Status = model.IncidentAssigned
		case model.TicketInProgress:
			inc.Status = model.IncidentInProgress
		case model.TicketClosed:
			inc.Status = model.IncidentClosed
		}
	}
	return inc
}

func (s *Store) ticketLocked(ticketID string) (*incidentRecord, error) {
	rec, ok := s.tickets[ticketID]
	if !ok {
		return nil, fail(ErrNotFound, "Ticket not found")
	}
	return rec, nil
}

// Assign claims a NEW ticket for analystID.
func (s *Store) Assign(ticketID, analystID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, err := s.ticketLocked(ticketID)
	if err != nil {
		return err
	}
	t := rec.Ticket
	if t.Status != model.TicketNew {
		return fail(ErrConflict, fmt.Sprintf("Ticket is already %s", strings.ToLower(string(t.Status))))
	}
	t.Analysts = append(t.Analysts, analystID)
	t.Status = model.TicketAssigned
	return nil
}

// Start moves an ASSIGNED ticket to IN_PROGRESS.
func (s *Store) Start(ticketID, analystID string) error {
	return s.advance(ticketID, analystID, model.TicketAssigned, model.TicketInProgress)
}

// Pause returns an IN_PROGRESS ticket to ASSIGNED.
func (s *Store) Pause(ticketID, analystID string) error {
	return s.advance(ticketID, analystID, model.TicketInProgress, model.TicketAssigned)
}

func (s *Store) advance(ticketID, analystID string, from, to model.TicketStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, err := s.ticketLocked(ticketID)
	if err != nil {
		return err
	}
	t := rec.Ticket
	if t.Status != from {
		return fail(ErrConflict, fmt.Sprintf("Ticket is %s", strings.ToLower(string(t.Status))))
	}
	if !containsString(t.Analysts, analystID) {
		return fail(ErrForbidden, "Ticket is not assigned to you")
	}
	t.Status = to
	return nil
}

// Complete closes an IN_PROGRESS ticket and records the analysis.
func (s *Store) Complete(ticketID, analystID, username string, req model.CompleteTicketRequest) (model.Analysis, error) {
	if !req.Classification.Valid() {
		return model.Analysis{}, fail(ErrInvalidInput, "Invalid classification")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, err := s.ticketLocked(ticketID)
	if err != nil {
		return model.Analysis{}, err
	}
	t := rec.Ticket
	if t.Status != model.TicketInProgress {
		return model.Analysis{}, fail(ErrConflict, fmt.Sprintf("Ticket is %s", strings.ToLower(string(t.Status))))
	}
	if !containsString(t.Analysts, analystID) {
		return model.Analysis{}, fail(ErrForbidden, "Ticket is not assigned to you")
	}

	analysis := model.Analysis{
		ID:             uuid.NewString(),
		Notes:          req.Notes,
		Classification: req.Classification,
		Analyst:        username,
		Timestamp:      s.clock.Now(),
	}
	rec.Analyses = append(rec.Analyses, analysis)
	t.Status = model.TicketClosed
	return analysis, nil
}

// ============================================================================
// Playbook
// ============================================================================

func (s *Store) AddPlaybook(name, incidentType string) model.Playbook {
	s.mu.Lock()
	defer s.mu.Unlock()
	pb := model.Playbook{ID: fmt.Sprintf("PB-%d", len(s.playbooks)+1), Name: name, IncidentType: incidentType}
	s.playbooks = append(s.playbooks, pb)
	return pb
}

// Playbooks returns the playbooks for incidentType, or all of them when
// incidentType is empty.
func (s *Store) Playbooks(incidentType string) []model.Playbook {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Playbook, 0, len(s.playbooks))
	for _, pb := range s.playbooks {
		if incidentType == "" || strings.EqualFold(pb.IncidentType, incidentType) {
			out = append(out, pb)
		}
	}
	return out
}

func containsString(values []string, want string) bool {
	for _, v := range values {
		if v == want {
			return true
		}
	}
	return false
}
