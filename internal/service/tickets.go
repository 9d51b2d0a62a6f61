package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/kube-rca/soc-console/internal/model"
)

// Action is a ticket lifecycle transition requested by an analyst.
type Action string

const (
	ActionAssign   Action = "assign"
	ActionStart    Action = "start"
	ActionPause    Action = "pause"
	ActionClassify Action = "classify"
)

// ticketAPI - lifecycle 변경 원격 호출
type ticketAPI interface {
	AssignTicket(ctx context.Context, ticketID string) error
	StartTicket(ctx context.Context, ticketID string) error
	PauseTicket(ctx context.Context, ticketID string) error
	CompleteTicket(ctx context.Context, ticketID string, req model.CompleteTicketRequest) error
}

// incidentFetcher - 전이 후 재조회
type incidentFetcher interface {
	FetchIncident(ctx context.Context, id string) (*model.Incident, error)
	Incident(id string) (*model.Incident, bool)
}

// TransitionResult is what a lifecycle action resolved to. Incident is
// the refetched record, nil when the refetch failed with RefreshErr.
type TransitionResult struct {
	Action     Action
	Incident   *model.Incident
	RefreshErr error
}

// requiredStatus maps each action onto the ticket status it starts from.
var requiredStatus = map[Action]model.TicketStatus{
	ActionAssign:   model.TicketNew,
	ActionStart:    model.TicketAssigned,
	ActionPause:    model.TicketInProgress,
	ActionClassify: model.TicketInProgress,
}

// TicketController validates lifecycle actions against the local copy of
// the ticket, asks the service to apply them and refetches the incident.
// It never changes a ticket status locally.
type TicketController struct {
	api     ticketAPI
	fetcher incidentFetcher
	logger  *slog.Logger

	mu     sync.Mutex
	drafts map[string]string
}

func NewTicketController(api ticketAPI, fetcher incidentFetcher, logger *slog.Logger) *TicketController {
	return &TicketController{
		api:     api,
		fetcher: fetcher,
		logger:  logger.With("component", "tickets"),
		drafts:  make(map[string]string),
	}
}

// Allowed returns the actions whose precondition holds for incident.
func (c *TicketController) Allowed(incident *model.Incident) []Action {
	if incident == nil || incident.Ticket == nil {
		return nil
	}
	var actions []Action
	for _, action := range []Action{ActionAssign, ActionStart, ActionPause, ActionClassify} {
		if requiredStatus[action] == incident.Ticket.Status {
			actions = append(actions, action)
		}
	}
	return actions
}

func (c *TicketController) Assign(ctx context.Context, incident *model.Incident) (TransitionResult, error) {
	return c.transition(ctx, incident, ActionAssign, c.api.AssignTicket)
}

func (c *TicketController) Start(ctx context.Context, incident *model.Incident) (TransitionResult, error) {
	return c.transition(ctx, incident, ActionStart, c.api.StartTicket)
}

// Pause asks the service to pause work. The resulting status comes from
// the refetch.
func (c *TicketController) Pause(ctx context.Context, incident *model.Incident) (TransitionResult, error) {
	return c.transition(ctx, incident, ActionPause, c.api.PauseTicket)
}

// Classify completes the ticket with a verdict. Empty notes fall back to
// the incident's saved draft; the draft is cleared once the service
// accepts the analysis.
func (c *TicketController) Classify(ctx context.Context, incident *model.Incident, classification model.Classification, notes string) (TransitionResult, error) {
	if !classification.Valid() {
		return TransitionResult{Action: ActionClassify}, fmt.Errorf("%w: unknown classification %q", ErrValidation, classification)
	}
	if strings.TrimSpace(notes) == "" && incident != nil {
		notes = c.Draft(incident.ID)
	}

	req := model.CompleteTicketRequest{Classification: classification, Notes: notes}
	result, err := c.transition(ctx, incident, ActionClassify, func(ctx context.Context, ticketID string) error {
		return c.api.CompleteTicket(ctx, ticketID, req)
	})
	if err == nil {
		c.ClearDraft(incident.ID)
	}
	return result, err
}

func (c *TicketController) transition(ctx context.Context, incident *model.Incident, action Action, call func(context.Context, string) error) (TransitionResult, error) {
	result := TransitionResult{Action: action}
	if incident == nil || incident.Ticket == nil {
		return result, fmt.Errorf("%w: incident has no ticket", ErrTransitionNotAllowed)
	}
	ticket := incident.Ticket
	if want := requiredStatus[action]; ticket.Status != want {
		return result, fmt.Errorf("%w: cannot %s a ticket in status %s", ErrTransitionNotAllowed, action, ticket.Status)
	}

	logger := c.logger.With("action", string(action), "incident_id", incident.ID, "ticket_id", ticket.ID)
	if err := call(ctx, ticket.ID); err != nil {
		err = classify(err)
		if errors.Is(err, ErrConflict) || errors.Is(err, ErrForbidden) {
			logger.Warn("transition rejected by the service, refetching", "error", err)
			result.Incident, result.RefreshErr = c.refetch(ctx, incident.ID)
			return result, err
		}
		logger.Warn("transition failed", "error", err)
		return result, err
	}

	logger.Info("transition accepted")
	result.Incident, result.RefreshErr = c.refetch(ctx, incident.ID)
	if result.RefreshErr != nil {
		logger.Warn("refetch after transition failed", "error", result.RefreshErr)
	}
	return result, nil
}

// refetch reloads an incident after a transition. Losing to a concurrent
// poller fetch is not a failure: the winner already holds a state at least
// as new, so one more fetch is tried and then the cached copy is used.
func (c *TicketController) refetch(ctx context.Context, id string) (*model.Incident, error) {
	incident, err := c.fetcher.FetchIncident(ctx, id)
	if !errors.Is(err, ErrSuperseded) {
		return incident, err
	}
	if incident, err = c.fetcher.FetchIncident(ctx, id); !errors.Is(err, ErrSuperseded) {
		return incident, err
	}
	if cached, ok := c.fetcher.Incident(id); ok {
		return cached, nil
	}
	return nil, err
}

// SetDraft stores free-text analysis notes for an incident.
func (c *TicketController) SetDraft(incidentID, notes string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if notes == "" {
		delete(c.drafts, incidentID)
		return
	}
	c.drafts[incidentID] = notes
}

func (c *TicketController) Draft(incidentID string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.drafts[incidentID]
}

func (c *TicketController) ClearDraft(incidentID string) {
	c.SetDraft(incidentID, "")
}
