package service

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kube-rca/soc-console/internal/clock"
	"github.com/kube-rca/soc-console/internal/model"
)

// incidentAPI - 조회 전용 원격 호출
type incidentAPI interface {
	ListIncidents(ctx context.Context, filters model.FilterSet) ([]model.Incident, error)
	GetIncident(ctx context.Context, id string) (*model.Incident, error)
	ListPlaybooks(ctx context.Context, incidentType string) ([]model.Playbook, error)
	ListAnalysts(ctx context.Context) ([]model.Analyst, error)
}

// identityProvider - 현재 로그인한 analyst 조회
type identityProvider interface {
	Identity() (model.Identity, bool)
}

// Snapshot is an immutable view of the incident list. It is replaced
// wholesale on every applied fetch.
type Snapshot struct {
	Incidents []model.Incident
	// Mine holds the incidents whose ticket is assigned to the current
	// analyst.
	Mine      []model.Incident
	Filters   model.FilterSet
	Seq       uint64
	FetchedAt time.Time
}

type detailEntry struct {
	issued   uint64
	incident atomic.Pointer[model.Incident]
}

// IncidentRepository caches incidents fetched from the SOC service.
//
// Every fetch takes a sequence number when issued. A response is applied
// only if no newer fetch of the same kind was issued meanwhile and its
// context is still live; otherwise it is discarded. Failed fetches keep
// the previous data.
type IncidentRepository struct {
	api      incidentAPI
	identity identityProvider
	clock    clock.Clock
	logger   *slog.Logger

	mu         sync.Mutex
	listIssued uint64
	filters    model.FilterSet
	details    map[string]*detailEntry
	playbooks  map[string][]model.Playbook

	snapshot atomic.Pointer[Snapshot]
}

func NewIncidentRepository(api incidentAPI, identity identityProvider, clk clock.Clock, logger *slog.Logger) *IncidentRepository {
	return &IncidentRepository{
		api:       api,
		identity:  identity,
		clock:     clk,
		logger:    logger.With("component", "incidents"),
		details:   make(map[string]*detailEntry),
		playbooks: make(map[string][]model.Playbook),
	}
}

// FetchIncidents queries the incident list with filters and, unless
// superseded, replaces the snapshot.
func (r *IncidentRepository) FetchIncidents(ctx context.Context, filters model.FilterSet) (*Snapshot, error) {
	r.mu.Lock()
	r.listIssued++
	seq := r.listIssued
	r.mu.Unlock()

	incidents, err := r.api.ListIncidents(ctx, filters)
	if err != nil {
		err = classify(err)
		r.logger.Warn("incident list fetch failed, keeping previous snapshot", "seq", seq, "error", err)
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if seq != r.listIssued {
		r.logger.Debug("discarding stale incident list", "seq", seq, "latest", r.listIssued)
		return nil, ErrSuperseded
	}

	snap := &Snapshot{
		Incidents: incidents,
		Mine:      r.partitionMine(incidents),
		Filters:   filters,
		Seq:       seq,
		FetchedAt: r.clock.Now(),
	}
	r.snapshot.Store(snap)
	return snap, nil
}

func (r *IncidentRepository) partitionMine(incidents []model.Incident) []model.Incident {
	identity, ok := r.identity.Identity()
	if !ok || identity.AnalystID == "" {
		return nil
	}
	var mine []model.Incident
	for _, inc := range incidents {
		if inc.Ticket.AssignedTo(identity.AnalystID) {
			mine = append(mine, inc)
		}
	}
	return mine
}

// FetchIncident fetches one incident with its ticket and analyses.
func (r *IncidentRepository) FetchIncident(ctx context.Context, id string) (*model.Incident, error) {
	r.mu.Lock()
	entry, ok := r.details[id]
	if !ok {
		entry = &detailEntry{}
		r.details[id] = entry
	}
	entry.issued++
	seq := entry.issued
	r.mu.Unlock()

	incident, err := r.api.GetIncident(ctx, id)
	if err != nil {
		err = classify(err)
		r.logger.Warn("incident fetch failed, keeping cached copy", "incident_id", id, "error", err)
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if seq != entry.issued || r.details[id] != entry {
		return nil, ErrSuperseded
	}
	entry.incident.Store(incident)
	return incident, nil
}

// Incident returns the cached copy of an incident, if any.
func (r *IncidentRepository) Incident(id string) (*model.Incident, bool) {
	r.mu.Lock()
	entry, ok := r.details[id]
	r.mu.Unlock()
	if !ok {
		return nil, false
	}
	inc := entry.incident.Load()
	return inc, inc != nil
}

// FetchPlaybooks returns the playbooks for an incident type. Playbooks
// are advisory: failures are logged and yield an empty result.
func (r *IncidentRepository) FetchPlaybooks(ctx context.Context, incidentType string) []model.Playbook {
	r.mu.Lock()
	cached, ok := r.playbooks[incidentType]
	r.mu.Unlock()
	if ok {
		return cached
	}

	playbooks, err := r.api.ListPlaybooks(ctx, incidentType)
	if err != nil {
		r.logger.Warn("playbook lookup failed", "incident_type", incidentType, "error", err)
		return []model.Playbook{}
	}
	if playbooks == nil {
		playbooks = []model.Playbook{}
	}

	r.mu.Lock()
	r.playbooks[incidentType] = playbooks
	r.mu.Unlock()
	return playbooks
}

// Analysts lists analyst identities, e.g. for the analyst filter.
func (r *IncidentRepository) Analysts(ctx context.Context) ([]model.Analyst, error) {
	analysts, err := r.api.ListAnalysts(ctx)
	if err != nil {
		return nil, classify(err)
	}
	return analysts, nil
}

func (r *IncidentRepository) SetFilters(filters model.FilterSet) {
	r.mu.Lock()
	r.filters = filters
	r.mu.Unlock()
}

func (r *IncidentRepository) Filters() model.FilterSet {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.filters
}

// Refresh fetches the incident list with the current filters.
func (r *IncidentRepository) Refresh(ctx context.Context) (*Snapshot, error) {
	return r.FetchIncidents(ctx, r.Filters())
}

// Snapshot returns the last applied incident list, or nil before the
// first successful fetch.
func (r *IncidentRepository) Snapshot() *Snapshot {
	return r.snapshot.Load()
}

// Reset drops every cached record. Fetches in flight are discarded when
// they complete.
func (r *IncidentRepository) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listIssued++
	r.filters = model.FilterSet{}
	r.details = make(map[string]*detailEntry)
	r.playbooks = make(map[string][]model.Playbook)
	r.snapshot.Store(nil)
}
