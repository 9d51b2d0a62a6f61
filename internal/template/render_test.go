package template

import (
	"testing"
	"time"

	"github.com/kube-rca/soc-console/internal/model"
)

func TestRender(t *testing.T) {
	inc := &model.Incident{
		ID:           "INC-0001",
		IncidentType: "phishing",
		Status:       model.IncidentInProgress,
		Severity:     model.SeverityHigh,
		Ticket: &model.Ticket{
			ID:                "TKT-0001",
			Status:            model.TicketInProgress,
			AssignedAnalysts:  []string{"A-1", "A-2"},
			DeadlineTimestamp: time.Date(2026, 3, 1, 13, 0, 0, 0, time.UTC),
		},
	}
	data := IncidentDataFromModel(inc)
	sla := &SLAData{Remaining: "3h 59m 10s", Level: "normal"}

	tests := []struct {
		name   string
		body   string
		ticket *TicketData
		want   string
	}{
		{
			name:   "incident line",
			body:   DefaultIncidentLine,
			ticket: TicketDataFromModel(inc.Ticket),
			want:   "INC-0001\tHIGH\tIN_PROGRESS\tphishing\tA-1,A-2\t3h 59m 10s",
		},
		{
			name:   "ticket fields",
			body:   "{{ticket.id}} {{ticket.status}} {{ticket.deadline}}",
			ticket: TicketDataFromModel(inc.Ticket),
			want:   "TKT-0001 IN_PROGRESS 2026-03-01T13:00:00Z",
		},
		{
			name: "no ticket",
			body: "{{incident.id}} [{{ticket.id}}] {{ticket.analysts}}",
			want: "INC-0001 [] -",
		},
		{
			name: "unknown placeholders are kept",
			body: "{{incident.id}} {{incident.owner}}",
			want: "INC-0001 {{incident.owner}}",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Render(tt.body, &data, tt.ticket, sla); got != tt.want {
				t.Fatalf("Render() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRenderNil(t *testing.T) {
	if got := Render("{{incident.id}}|{{sla.level}}", nil, nil, nil); got != "|" {
		t.Fatalf("Render() = %q", got)
	}
	if TicketDataFromModel(nil) != nil {
		t.Fatal("TicketDataFromModel(nil) != nil")
	}
}
