package service

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kube-rca/soc-console/internal/clock"
	"github.com/kube-rca/soc-console/internal/logging"
	"github.com/kube-rca/soc-console/internal/model"
)

func TestPollerFetchesOnStartTickAndTrigger(t *testing.T) {
	clk := clock.Fake(epoch)
	calls := make(chan struct{}, 8)
	p := NewPoller("test", time.Minute, func(context.Context) error {
		calls <- struct{}{}
		return errors.New("boom")
	}, clk, logging.Discard())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()

	<-calls
	clk.WaitForTimers(1)
	clk.Advance(time.Minute)
	<-calls // polling continues after a failed fetch
	p.Trigger()
	<-calls

	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Fatalf("Run() = %v, want context.Canceled", err)
	}
	if n := clk.PendingCount(); n != 0 {
		t.Fatalf("ticker left running: %d pending", n)
	}
}

func TestPollerTriggerOnly(t *testing.T) {
	clk := clock.Fake(epoch)
	calls := make(chan struct{}, 8)
	p := NewPoller("manual", 0, func(context.Context) error {
		calls <- struct{}{}
		return nil
	}, clk, logging.Discard())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go p.Run(ctx)

	<-calls
	if n := clk.PendingCount(); n != 0 {
		t.Fatalf("trigger-only poller registered %d timers", n)
	}
	p.Trigger()
	<-calls
}

func TestDashboardViewFetchesOnFilterChange(t *testing.T) {
	api := &fakeAPI{listFn: func(ctx context.Context, filters model.FilterSet) ([]model.Incident, error) {
		return []model.Incident{{ID: "1"}}, nil
	}}
	repo := newTestRepository(api, staticIdentity{})
	updates := make(chan *Snapshot, 4)
	view := NewDashboardView(repo, 0, clock.Fake(epoch), logging.Discard(), func(s *Snapshot) { updates <- s })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go view.Run(ctx)

	if snap := <-updates; !snap.Filters.IsZero() {
		t.Fatalf("initial filters = %+v", snap.Filters)
	}
	view.SetFilters(model.FilterSet{Status: "OPEN"})
	if snap := <-updates; snap.Filters.Status != "OPEN" {
		t.Fatalf("filters after change = %+v", snap.Filters)
	}
	view.Refresh()
	<-updates
	if view.Snapshot() == nil {
		t.Fatal("no snapshot")
	}
}

func TestDetailViewSeedsTimerAndStopsOnTeardown(t *testing.T) {
	clk := clock.Fake(epoch)
	deadline := epoch.Add(3 * time.Second)
	api := &fakeAPI{getFn: func(ctx context.Context, id string) (*model.Incident, error) {
		inc := incidentWithTicket(id, model.TicketInProgress, "a-1")
		inc.Ticket.DeadlineTimestamp = deadline
		return &inc, nil
	}}
	repo := newTestRepository(api, analyst("a-1"))

	updates := make(chan *model.Incident, 4)
	ticks := make(chan time.Duration, 8)
	view := NewDetailView(repo, "42", 30*time.Second, clk, logging.Discard(),
		func(inc *model.Incident) { updates <- inc },
		func(d time.Duration) { ticks <- d })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- view.Run(ctx) }()

	if inc := <-updates; inc.ID != "42" {
		t.Fatalf("incident = %s", inc.ID)
	}
	if !view.Timer().Deadline().Equal(deadline) || !view.Timer().Running() {
		t.Fatal("SLA timer not seeded from the ticket deadline")
	}
	clk.WaitForTimers(2)
	clk.Advance(time.Second)
	if d := <-ticks; d != 2*time.Second {
		t.Fatalf("tick = %v, want 2s", d)
	}

	cancel()
	<-done
	if view.Timer().Running() {
		t.Fatal("SLA timer survived teardown")
	}
	if n := clk.PendingCount(); n != 0 {
		t.Fatalf("%d timers pending after teardown", n)
	}
	if _, ok := view.Incident(); !ok {
		t.Fatal("incident not cached")
	}
}

func TestDetailViewStopsTimerWhenTicketCloses(t *testing.T) {
	clk := clock.Fake(epoch)
	var closed atomic.Bool
	api := &fakeAPI{getFn: func(ctx context.Context, id string) (*model.Incident, error) {
		status := model.TicketInProgress
		if closed.Load() {
			status = model.TicketClosed
		}
		inc := incidentWithTicket(id, status, "a-1")
		return &inc, nil
	}}
	repo := newTestRepository(api, analyst("a-1"))

	updates := make(chan *model.Incident, 4)
	ticks := make(chan time.Duration, 8)
	view := NewDetailView(repo, "7", 30*time.Second, clk, logging.Discard(),
		func(inc *model.Incident) { updates <- inc },
		func(d time.Duration) { ticks <- d })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- view.Run(ctx) }()

	<-updates
	if !view.Timer().Running() {
		t.Fatal("SLA timer not running for an IN_PROGRESS ticket")
	}

	closed.Store(true)
	view.Refresh()
	if inc := <-updates; inc.Ticket.Status != model.TicketClosed {
		t.Fatalf("status = %s, want CLOSED", inc.Ticket.Status)
	}
	if view.Timer().Running() || !view.Timer().Deadline().IsZero() {
		t.Fatal("SLA timer still counting for a CLOSED ticket")
	}

	clk.Advance(time.Second)
	select {
	case d := <-ticks:
		t.Fatalf("tick %v after the ticket closed", d)
	default:
	}

	cancel()
	<-done
}
