package mockapi

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/kube-rca/soc-console/internal/clock"
	"github.com/kube-rca/soc-console/internal/model"
)

var epoch = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func TestSLAFor(t *testing.T) {
	tests := map[model.Severity]time.Duration{
		model.SeverityLow:    24 * time.Hour,
		model.SeverityMedium: 12 * time.Hour,
		model.SeverityHigh:   4 * time.Hour,
	}
	for severity, want := range tests {
		if got := SLAFor(severity); got != want {
			t.Errorf("SLAFor(%s) = %v, want %v", severity, got, want)
		}
	}
}

func TestConcurrentAssignHasOneWinner(t *testing.T) {
	store := NewStore(clock.Fake(epoch))
	inc := store.CreateIncident("phishing", model.SeverityHigh)

	const analysts = 8
	var wg sync.WaitGroup
	errs := make(chan error, analysts)
	for i := 0; i < analysts; i++ {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			errs <- store.Assign(inc.Ticket.ID, id)
		}(fmt.Sprintf("A-%d", i))
	}
	wg.Wait()
	close(errs)

	wins, conflicts := 0, 0
	for err := range errs {
		switch {
		case err == nil:
			wins++
		case errors.Is(err, ErrConflict):
			conflicts++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if wins != 1 || conflicts != analysts-1 {
		t.Fatalf("wins = %d, conflicts = %d", wins, conflicts)
	}

	got, _ := store.Incident(inc.ID)
	if len(got.Ticket.AssignedAnalysts) != 1 {
		t.Fatalf("assigned analysts = %v", got.Ticket.AssignedAnalysts)
	}
}

func TestIncidentStatusMirrorsTicket(t *testing.T) {
	store := NewStore(clock.Fake(epoch))
	inc := store.CreateIncident("malware", model.SeverityLow)
	id, ticketID := inc.ID, inc.Ticket.ID

	steps := []struct {
		apply func() error
		want  model.IncidentStatus
	}{
		{func() error { return nil }, model.IncidentOpen},
		{func() error { return store.Assign(ticketID, "A-1") }, model.IncidentAssigned},
		{func() error { return store.Start(ticketID, "A-1") }, model.IncidentInProgress},
		{func() error { return store.Pause(ticketID, "A-1") }, model.IncidentAssigned},
		{func() error { return store.Start(ticketID, "A-1") }, model.IncidentInProgress},
		{func() error {
			_, err := store.Complete(ticketID, "A-1", "alice", model.CompleteTicketRequest{Classification: model.TruePositivePhishing})
			return err
		}, model.IncidentClosed},
	}
	for i, step := range steps {
		if err := step.apply(); err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
		got, _ := store.Incident(id)
		if got.Status != step.want {
			t.Fatalf("step %d: status = %s, want %s", i, got.Status, step.want)
		}
	}
}

func TestSLARemainingClampedAtZero(t *testing.T) {
	clk := clock.Fake(epoch)
	store := NewStore(clk)
	inc := store.CreateIncident("phishing", model.SeverityHigh)

	clk.Advance(5 * time.Hour)
	got, _ := store.Incident(inc.ID)
	if got.Ticket.SLARemainingSeconds != 0 {
		t.Fatalf("sla_remaining = %d, want 0", got.Ticket.SLARemainingSeconds)
	}
}

func TestSLARemainingZeroOnceClosed(t *testing.T) {
	clk := clock.Fake(epoch)
	store := NewStore(clk)
	inc := store.CreateIncident("phishing", model.SeverityLow)
	ticketID := inc.Ticket.ID

	for _, apply := range []func() error{
		func() error { return store.Assign(ticketID, "A-1") },
		func() error { return store.Start(ticketID, "A-1") },
		func() error {
			_, err := store.Complete(ticketID, "A-1", "alice", model.CompleteTicketRequest{Classification: model.FalsePositive})
			return err
		},
	} {
		if err := apply(); err != nil {
			t.Fatal(err)
		}
	}

	clk.Advance(time.Hour)
	got, _ := store.Incident(inc.ID)
	if got.Ticket.Status != model.TicketClosed || got.Ticket.SLARemainingSeconds != 0 {
		t.Fatalf("closed ticket: status = %s, sla_remaining = %d", got.Ticket.Status, got.Ticket.SLARemainingSeconds)
	}
	if !got.Ticket.DeadlineTimestamp.Equal(epoch.Add(24 * time.Hour)) {
		t.Fatalf("deadline = %v", got.Ticket.DeadlineTimestamp)
	}
}

func TestErrorMessage(t *testing.T) {
	store := NewStore(clock.Fake(epoch))
	_, err := store.Incident("missing")

	var apiErr *Error
	if !errors.As(err, &apiErr) || !errors.Is(err, ErrNotFound) {
		t.Fatalf("error = %#v", err)
	}
	if err.Error() != "Incident not found" {
		t.Fatalf("message = %q", err.Error())
	}
}
