package model

import (
	"net/url"
	"strings"
	"time"
)

// ============================================================================
// Enum 타입
// ============================================================================

type Severity string

const (
	SeverityLow    Severity = "LOW"
	SeverityMedium Severity = "MEDIUM"
	SeverityHigh   Severity = "HIGH"
)

func (s *Severity) UnmarshalText(b []byte) error {
	*s = Severity(strings.ToUpper(strings.TrimSpace(string(b))))
	return nil
}

type IncidentStatus string

const (
	IncidentOpen       IncidentStatus = "OPEN"
	IncidentAssigned   IncidentStatus = "ASSIGNED"
	IncidentInProgress IncidentStatus = "IN_PROGRESS"
	IncidentClosed     IncidentStatus = "CLOSED"
)

func (s *IncidentStatus) UnmarshalText(b []byte) error {
	*s = IncidentStatus(strings.ToUpper(strings.TrimSpace(string(b))))
	return nil
}

// TicketStatus is the lifecycle state of a ticket. Values are decoded
// case-insensitively; the legacy "paused" and "completed" values map onto
// ASSIGNED and CLOSED.
type TicketStatus string

const (
	TicketNew        TicketStatus = "NEW"
	TicketAssigned   TicketStatus = "ASSIGNED"
	TicketInProgress TicketStatus = "IN_PROGRESS"
	TicketClosed     TicketStatus = "CLOSED"
)

func (s *TicketStatus) UnmarshalText(b []byte) error {
	switch v := strings.ToUpper(strings.TrimSpace(string(b))); v {
	case "PAUSED":
		*s = TicketAssigned
	case "COMPLETED":
		*s = TicketClosed
	default:
		*s = TicketStatus(v)
	}
	return nil
}

type Classification string

const (
	FalsePositive          Classification = "false_positive"
	TruePositiveLegitimate Classification = "true_positive_legitimate"
	TruePositivePhishing   Classification = "true_positive_phishing"
)

// Valid reports whether c is one of the verdicts accepted by the ticket
// complete endpoint.
func (c Classification) Valid() bool {
	switch c {
	case FalsePositive, TruePositiveLegitimate, TruePositivePhishing:
		return true
	}
	return false
}

// ============================================================================
// Incident / Ticket 모델
// ============================================================================

// Incident - 보안 이벤트 단위. Ticket은 없을 수 있음
type Incident struct {
	ID           string         `json:"id"`
	IncidentType string         `json:"incident_type"`
	Status       IncidentStatus `json:"status"`
	Severity     Severity       `json:"severity"`
	Analyses     []Analysis     `json:"analyses"`
	Ticket       *Ticket        `json:"ticket"`
}

// Ticket - Incident에 붙는 작업 단위 (lifecycle + SLA deadline)
type Ticket struct {
	ID                string       `json:"id"`
	Status            TicketStatus `json:"status"`
	AssignedAnalysts  []string     `json:"assigned_analysts"`
	DeadlineTimestamp time.Time    `json:"deadline_timestamp"`
	// 서버가 계산한 남은 시간(초). 표시용이며 카운트다운은 deadline으로 계산
	SLARemainingSeconds int64 `json:"sla_remaining"`
}

// SLARemaining returns the server-computed remaining SLA time.
func (t *Ticket) SLARemaining() time.Duration {
	return time.Duration(t.SLARemainingSeconds) * time.Second
}

// AssignedTo reports whether analystID is among the ticket's assignees.
func (t *Ticket) AssignedTo(analystID string) bool {
	if t == nil || analystID == "" {
		return false
	}
	for _, id := range t.AssignedAnalysts {
		if id == analystID {
			return true
		}
	}
	return false
}

// Analysis - classify 성공 시 서버가 생성하는 분석 기록 (append-only)
type Analysis struct {
	ID             string         `json:"id"`
	Notes          string         `json:"notes"`
	Classification Classification `json:"classification,omitempty"`
	Analyst        string         `json:"analyst"`
	Timestamp      time.Time      `json:"timestamp"`
}

// Playbook - incident type별 대응 가이드 (읽기 전용)
type Playbook struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	IncidentType string `json:"incident_type"`
}

// Analyst - GET /analysts 응답 항목
type Analyst struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// CompleteTicketRequest - POST /tickets/{id}/complete 요청 본문
type CompleteTicketRequest struct {
	Classification Classification `json:"classification"`
	Notes          string         `json:"notes"`
}

// ============================================================================
// FilterSet
// ============================================================================

// FilterSet narrows the incident list query. It is local state and is
// never persisted.
type FilterSet struct {
	Status   string
	Severity string
	Analyst  string
	Search   string
}

// Query serializes the filter as query parameters. Empty values are
// omitted rather than sent as empty strings.
func (f FilterSet) Query() url.Values {
	q := url.Values{}
	set := func(key, value string) {
		if v := strings.TrimSpace(value); v != "" {
			q.Set(key, v)
		}
	}
	set("status", f.Status)
	set("severity", f.Severity)
	set("analyst", f.Analyst)
	set("search", f.Search)
	return q
}

// IsZero reports whether no filter is set.
func (f FilterSet) IsZero() bool {
	return len(f.Query()) == 0
}
