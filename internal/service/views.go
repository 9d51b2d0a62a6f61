package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/kube-rca/soc-console/internal/clock"
	"github.com/kube-rca/soc-console/internal/model"
)

// DashboardView keeps the incident list fresh: on every filter change, on
// manual refresh and, when interval is positive, periodically.
type DashboardView struct {
	repo     *IncidentRepository
	poller   *Poller
	onUpdate func(*Snapshot)
}

func NewDashboardView(repo *IncidentRepository, interval time.Duration, clk clock.Clock, logger *slog.Logger, onUpdate func(*Snapshot)) *DashboardView {
	v := &DashboardView{repo: repo, onUpdate: onUpdate}
	v.poller = NewPoller("dashboard", interval, v.fetch, clk, logger)
	return v
}

func (v *DashboardView) fetch(ctx context.Context) error {
	snap, err := v.repo.Refresh(ctx)
	if err != nil {
		return err
	}
	if v.onUpdate != nil {
		v.onUpdate(snap)
	}
	return nil
}

// Run polls until ctx is done.
func (v *DashboardView) Run(ctx context.Context) error {
	return v.poller.Run(ctx)
}

func (v *DashboardView) Refresh() {
	v.poller.Trigger()
}

// SetFilters replaces the filter and fetches with it.
func (v *DashboardView) SetFilters(filters model.FilterSet) {
	v.repo.SetFilters(filters)
	v.poller.Trigger()
}

func (v *DashboardView) Snapshot() *Snapshot {
	return v.repo.Snapshot()
}

// DetailView polls a single incident and keeps an SLA countdown seeded
// from the latest ticket deadline. Cancelling Run's context stops both.
type DetailView struct {
	repo       *IncidentRepository
	incidentID string
	poller     *Poller
	timer      *SLATimer
	onUpdate   func(*model.Incident)
}

// NewDetailView builds a view of one incident. onTick receives SLA
// countdown ticks; both callbacks may be nil.
func NewDetailView(repo *IncidentRepository, incidentID string, interval time.Duration, clk clock.Clock, logger *slog.Logger, onUpdate func(*model.Incident), onTick func(time.Duration)) *DetailView {
	v := &DetailView{
		repo:       repo,
		incidentID: incidentID,
		timer:      NewSLATimer(clk, onTick),
		onUpdate:   onUpdate,
	}
	v.poller = NewPoller("detail", interval, v.fetch, clk, logger.With("incident_id", incidentID))
	return v
}

func (v *DetailView) fetch(ctx context.Context) error {
	incident, err := v.repo.FetchIncident(ctx, v.incidentID)
	if err != nil {
		return err
	}
	// 종료된 ticket은 SLA 카운트다운 대상이 아님
	if t := incident.Ticket; t != nil && t.Status != model.TicketClosed {
		v.timer.Seed(t.DeadlineTimestamp)
	} else {
		v.timer.Seed(time.Time{})
	}
	if v.onUpdate != nil {
		v.onUpdate(incident)
	}
	return nil
}

// Run polls until ctx is done, then stops the SLA countdown.
func (v *DetailView) Run(ctx context.Context) error {
	defer v.timer.Stop()
	return v.poller.Run(ctx)
}

func (v *DetailView) Refresh() {
	v.poller.Trigger()
}

func (v *DetailView) Timer() *SLATimer {
	return v.timer
}

func (v *DetailView) Incident() (*model.Incident, bool) {
	return v.repo.Incident(v.incidentID)
}
