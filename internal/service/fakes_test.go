package service

import (
	"context"
	"sync"
	"time"

	"github.com/kube-rca/soc-console/internal/model"
)

var epoch = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

// fakeAPI implements every consumer-side API interface of the package.
type fakeAPI struct {
	mu sync.Mutex

	loginResp   *model.LoginResponse
	loginErr    error
	loginCalls  int
	logoutErr   error
	logoutCalls int
	credential  string

	listFn func(ctx context.Context, filters model.FilterSet) ([]model.Incident, error)
	getFn  func(ctx context.Context, id string) (*model.Incident, error)

	playbooks     []model.Playbook
	playbooksErr  error
	playbookCalls int
	analysts      []model.Analyst

	transitionErr error
	transitions   []string
	completeReq   model.CompleteTicketRequest

	accessMsg    string
	accountErr   error
	accountCalls int
}

func (f *fakeAPI) Login(ctx context.Context, username, password string) (*model.LoginResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loginCalls++
	return f.loginResp, f.loginErr
}

func (f *fakeAPI) Logout(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logoutCalls++
	return f.logoutErr
}

func (f *fakeAPI) SetCredential(token string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.credential = token
}

func (f *fakeAPI) ClearCredential() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.credential = ""
}

func (f *fakeAPI) Credential() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.credential
}

func (f *fakeAPI) ListIncidents(ctx context.Context, filters model.FilterSet) ([]model.Incident, error) {
	return f.listFn(ctx, filters)
}

func (f *fakeAPI) GetIncident(ctx context.Context, id string) (*model.Incident, error) {
	return f.getFn(ctx, id)
}

func (f *fakeAPI) ListPlaybooks(ctx context.Context, incidentType string) ([]model.Playbook, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.playbookCalls++
	return f.playbooks, f.playbooksErr
}

func (f *fakeAPI) ListAnalysts(ctx context.Context) ([]model.Analyst, error) {
	return f.analysts, nil
}

func (f *fakeAPI) record(action string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.transitions = append(f.transitions, action)
	return f.transitionErr
}

func (f *fakeAPI) AssignTicket(ctx context.Context, ticketID string) error {
	return f.record("assign " + ticketID)
}

func (f *fakeAPI) StartTicket(ctx context.Context, ticketID string) error {
	return f.record("start " + ticketID)
}

func (f *fakeAPI) PauseTicket(ctx context.Context, ticketID string) error {
	return f.record("pause " + ticketID)
}

func (f *fakeAPI) CompleteTicket(ctx context.Context, ticketID string, req model.CompleteTicketRequest) error {
	f.mu.Lock()
	f.completeReq = req
	f.mu.Unlock()
	return f.record("complete " + ticketID)
}

func (f *fakeAPI) Transitions() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.transitions...)
}

func (f *fakeAPI) RequestAccess(ctx context.Context, req model.AccessRequest) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.accountCalls++
	return f.accessMsg, f.accountErr
}

func (f *fakeAPI) Register(ctx context.Context, token string, req model.RegistrationRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.accountCalls++
	return f.accountErr
}

// staticIdentity implements identityProvider.
type staticIdentity struct {
	identity model.Identity
	ok       bool
}

func (s staticIdentity) Identity() (model.Identity, bool) { return s.identity, s.ok }

func analyst(id string) staticIdentity {
	return staticIdentity{identity: model.Identity{Username: "user-" + id, AnalystID: id}, ok: true}
}

func incidentWithTicket(id string, status model.TicketStatus, analysts ...string) model.Incident {
	return model.Incident{
		ID:           id,
		IncidentType: "phishing",
		Status:       model.IncidentOpen,
		Severity:     model.SeverityHigh,
		Ticket: &model.Ticket{
			ID:                "T-" + id,
			Status:            status,
			AssignedAnalysts:  analysts,
			DeadlineTimestamp: epoch.Add(4 * time.Hour),
		},
	}
}
