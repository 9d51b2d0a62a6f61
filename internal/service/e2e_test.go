package service_test

import (
	"context"
	"errors"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kube-rca/soc-console/internal/client"
	"github.com/kube-rca/soc-console/internal/clock"
	"github.com/kube-rca/soc-console/internal/config"
	"github.com/kube-rca/soc-console/internal/handler"
	"github.com/kube-rca/soc-console/internal/logging"
	"github.com/kube-rca/soc-console/internal/mockapi"
	"github.com/kube-rca/soc-console/internal/model"
	"github.com/kube-rca/soc-console/internal/service"
)

type console struct {
	api      *client.APIClient
	session  *service.SessionService
	accounts *service.AccountService
	repo     *service.IncidentRepository
	tickets  *service.TicketController
}

func startSOC(t *testing.T) (*httptest.Server, *mockapi.AuthService) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := mockapi.NewStore(clock.Real())
	auth, err := mockapi.NewAuthService(store, config.MockConfig{JWTSecret: "e2e-secret", TokenTTL: time.Hour}, clock.Real(), logging.Discard())
	if err != nil {
		t.Fatal(err)
	}
	if err := mockapi.Seed(auth, store); err != nil {
		t.Fatal(err)
	}
	srv := httptest.NewServer(handler.NewRouter(auth, store, logging.Discard(), nil))
	t.Cleanup(srv.Close)
	return srv, auth
}

func newConsole(t *testing.T, baseURL string) *console {
	t.Helper()
	logger := logging.Discard()
	api := client.NewAPIClient(config.APIConfig{BaseURL: baseURL, Timeout: 5 * time.Second})
	session := service.NewSessionService(api, service.NewSessionFile(filepath.Join(t.TempDir(), "session.json")), clock.Real(), logger)
	repo := service.NewIncidentRepository(api, session, clock.Real(), logger)
	return &console{
		api:      api,
		session:  session,
		accounts: service.NewAccountService(api, logger),
		repo:     repo,
		tickets:  service.NewTicketController(api, repo, logger),
	}
}

func (c *console) login(t *testing.T, username string) {
	t.Helper()
	if err := c.session.Login(context.Background(), username, username+"-password"); err != nil {
		t.Fatalf("login %s: %v", username, err)
	}
}

func TestLifecycleEndToEnd(t *testing.T) {
	srv, _ := startSOC(t)
	ctx := context.Background()
	alice := newConsole(t, srv.URL)
	alice.login(t, "alice")

	inc, err := alice.repo.FetchIncident(ctx, "INC-0001")
	if err != nil {
		t.Fatalf("FetchIncident: %v", err)
	}
	if got := alice.tickets.Allowed(inc); len(got) != 1 || got[0] != service.ActionAssign {
		t.Fatalf("Allowed(NEW) = %v", got)
	}

	res, err := alice.tickets.Assign(ctx, inc)
	if err != nil {
		t.Fatalf("Assign: %v", err)
	}
	if res.Incident.Ticket.Status != model.TicketAssigned || res.Incident.Status != model.IncidentAssigned {
		t.Fatalf("after assign: %s / %s", res.Incident.Ticket.Status, res.Incident.Status)
	}

	res, err = alice.tickets.Start(ctx, res.Incident)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if res.Incident.Ticket.Status != model.TicketInProgress {
		t.Fatalf("after start: %s", res.Incident.Ticket.Status)
	}

	alice.tickets.SetDraft(inc.ID, "spoofed sender, credential harvesting link")
	res, err = alice.tickets.Classify(ctx, res.Incident, model.TruePositivePhishing, "")
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}

	closed := res.Incident
	if closed.Ticket.Status != model.TicketClosed || closed.Status != model.IncidentClosed {
		t.Fatalf("after classify: %s / %s", closed.Ticket.Status, closed.Status)
	}
	if len(closed.Analyses) != 1 {
		t.Fatalf("analyses = %+v", closed.Analyses)
	}
	if a := closed.Analyses[0]; a.Notes != "spoofed sender, credential harvesting link" || a.Analyst != "alice" {
		t.Fatalf("analysis = %+v", a)
	}
	if got := alice.tickets.Allowed(closed); len(got) != 0 {
		t.Fatalf("Allowed(CLOSED) = %v", got)
	}
	if _, err := alice.tickets.Start(ctx, closed); !errors.Is(err, service.ErrTransitionNotAllowed) {
		t.Fatalf("Start on CLOSED: %v", err)
	}
}

func TestConcurrentAssignEndToEnd(t *testing.T) {
	srv, _ := startSOC(t)
	ctx := context.Background()
	alice, bob := newConsole(t, srv.URL), newConsole(t, srv.URL)
	alice.login(t, "alice")
	bob.login(t, "bob")

	incA, err := alice.repo.FetchIncident(ctx, "INC-0002")
	if err != nil {
		t.Fatal(err)
	}
	incB, err := bob.repo.FetchIncident(ctx, "INC-0002")
	if err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	errs := make([]error, 2)
	results := make([]service.TransitionResult, 2)
	wg.Add(2)
	go func() { defer wg.Done(); results[0], errs[0] = alice.tickets.Assign(ctx, incA) }()
	go func() { defer wg.Done(); results[1], errs[1] = bob.tickets.Assign(ctx, incB) }()
	wg.Wait()

	wins, conflicts, loser := 0, 0, -1
	for i, err := range errs {
		switch {
		case err == nil:
			wins++
		case errors.Is(err, service.ErrConflict):
			conflicts++
			loser = i
			if results[i].Incident == nil {
				t.Fatal("conflict did not refetch the incident")
			}
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if wins != 1 || conflicts != 1 {
		t.Fatalf("wins = %d, conflicts = %d", wins, conflicts)
	}

	final, err := alice.repo.FetchIncident(ctx, "INC-0002")
	if err != nil {
		t.Fatal(err)
	}
	if n := len(final.Ticket.AssignedAnalysts); n != 1 {
		t.Fatalf("assigned analysts = %v, want exactly one", final.Ticket.AssignedAnalysts)
	}

	// the loser may not start a ticket assigned to someone else
	other := []*console{alice, bob}[loser]
	res, err := other.tickets.Start(ctx, results[loser].Incident)
	if !errors.Is(err, service.ErrForbidden) || errors.Is(err, service.ErrAuthFailure) {
		t.Fatalf("start on another analyst's ticket: %v", err)
	}
	if res.Incident == nil || res.Incident.Ticket.Status != model.TicketAssigned {
		t.Fatalf("forbidden start did not refetch: %+v", res)
	}
	if !other.session.Authenticated() {
		t.Fatal("session dropped after a forbidden transition")
	}
}

func TestMineEndToEnd(t *testing.T) {
	srv, _ := startSOC(t)
	ctx := context.Background()
	alice := newConsole(t, srv.URL)
	alice.login(t, "alice")

	inc, err := alice.repo.FetchIncident(ctx, "INC-0003")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := alice.tickets.Assign(ctx, inc); err != nil {
		t.Fatal(err)
	}

	snap, err := alice.repo.FetchIncidents(ctx, model.FilterSet{})
	if err != nil {
		t.Fatal(err)
	}
	if len(snap.Incidents) != 5 || len(snap.Mine) != 1 || snap.Mine[0].ID != "INC-0003" {
		t.Fatalf("incidents = %d, mine = %+v", len(snap.Incidents), snap.Mine)
	}

	snap, err = alice.repo.FetchIncidents(ctx, model.FilterSet{Severity: "HIGH", Status: "OPEN"})
	if err != nil {
		t.Fatal(err)
	}
	if len(snap.Incidents) != 1 || snap.Incidents[0].ID != "INC-0001" {
		t.Fatalf("filtered incidents = %+v", snap.Incidents)
	}

	if pbs := alice.repo.FetchPlaybooks(ctx, "phishing"); len(pbs) != 2 {
		t.Fatalf("playbooks = %+v", pbs)
	}
}

func TestAuthenticationEndToEnd(t *testing.T) {
	srv, _ := startSOC(t)
	ctx := context.Background()
	c := newConsole(t, srv.URL)

	if _, err := c.repo.FetchIncidents(ctx, model.FilterSet{}); !errors.Is(err, service.ErrNotAuthenticated) {
		t.Fatalf("unauthenticated fetch: %v", err)
	}

	err := c.session.Login(ctx, "alice", "wrong")
	if !errors.Is(err, service.ErrAuthFailure) {
		t.Fatalf("bad login: %v", err)
	}
	if err.Error() != "authentication failed: "+mockapi.LoginFailedMessage {
		t.Fatalf("server message not kept: %q", err.Error())
	}

	c.login(t, "alice")
	if _, err := c.repo.FetchIncidents(ctx, model.FilterSet{}); err != nil {
		t.Fatalf("fetch after login: %v", err)
	}

	c.session.Logout(ctx)
	if c.api.HasCredential() {
		t.Fatal("credential attached after logout")
	}
	if _, err := c.repo.FetchIncidents(ctx, model.FilterSet{}); !errors.Is(err, service.ErrNotAuthenticated) {
		t.Fatalf("fetch after logout: %v", err)
	}
}

func TestOnboardingEndToEnd(t *testing.T) {
	srv, auth := startSOC(t)
	ctx := context.Background()
	c := newConsole(t, srv.URL)

	if _, err := c.accounts.RequestAccess(ctx, "frank@soc.example", model.RoleAnalyst); err != nil {
		t.Fatalf("RequestAccess: %v", err)
	}
	if _, err := c.accounts.RequestAccess(ctx, "frank@soc.example", model.RoleAnalyst); !errors.Is(err, service.ErrConflict) {
		t.Fatalf("duplicate request: %v", err)
	}

	token, err := auth.RequestAccess(model.AccessRequest{Email: "grace@soc.example", Role: model.RoleAnalyst})
	if err != nil {
		t.Fatal(err)
	}
	if err := c.accounts.Register(ctx, "bogus", "grace", "grace-password", "grace-password"); !errors.Is(err, service.ErrNotFound) {
		t.Fatalf("unknown token: %v", err)
	}
	if err := c.accounts.Register(ctx, token, "grace", "grace-password", "grace-password"); err != nil {
		t.Fatalf("Register: %v", err)
	}
	c.login(t, "grace")
	if id, _ := c.session.Identity(); id.AnalystID == "" {
		t.Fatalf("registered analyst has no analyst id: %+v", id)
	}
}
