// Package template provides console output line rendering.
//
// 지원하는 변수 형식:
//
//	{{incident.id}}, {{incident.type}}, {{incident.status}}, {{incident.severity}}
//
//	{{ticket.id}}, {{ticket.status}}, {{ticket.analysts}}, {{ticket.deadline}}
//
//	{{sla.remaining}}, {{sla.level}}
package template

import (
	"strings"
	"time"

	"github.com/kube-rca/soc-console/internal/model"
)

// 기본 출력 형식
const (
	DefaultIncidentLine = "{{incident.id}}\t{{incident.severity}}\t{{incident.status}}\t{{incident.type}}\t{{ticket.analysts}}\t{{sla.remaining}}"
	DefaultDetail       = "Incident {{incident.id}} ({{incident.type}})\n" +
		"  severity: {{incident.severity}}\n" +
		"  status:   {{incident.status}}\n" +
		"  ticket:   {{ticket.id}} {{ticket.status}}\n" +
		"  analysts: {{ticket.analysts}}\n" +
		"  deadline: {{ticket.deadline}}\n" +
		"  SLA:      {{sla.remaining}} ({{sla.level}})"
	DefaultSLATick = "{{incident.id}} SLA {{sla.remaining}} ({{sla.level}})"
)

// IncidentData - 템플릿 렌더링에 사용할 Incident 데이터
type IncidentData struct {
	ID       string
	Type     string
	Status   string
	Severity string
}

// TicketData - 템플릿 렌더링에 사용할 Ticket 데이터
type TicketData struct {
	ID       string
	Status   string
	Analysts []string
	Deadline time.Time
}

// SLAData - 이미 포맷된 SLA 표시값
type SLAData struct {
	Remaining string
	Level     string
}

// IncidentDataFromModel - model.Incident에서 IncidentData 생성
func IncidentDataFromModel(inc *model.Incident) IncidentData {
	return IncidentData{
		ID:       inc.ID,
		Type:     inc.IncidentType,
		Status:   string(inc.Status),
		Severity: string(inc.Severity),
	}
}

// TicketDataFromModel - model.Ticket에서 TicketData 생성. ticket이 없으면 nil
func TicketDataFromModel(t *model.Ticket) *TicketData {
	if t == nil {
		return nil
	}
	return &TicketData{
		ID:       t.ID,
		Status:   string(t.Status),
		Analysts: t.AssignedAnalysts,
		Deadline: t.DeadlineTimestamp,
	}
}

// Render - 출력 템플릿의 변수를 실제 값으로 치환
//
// nil로 전달된 항목의 변수는 빈 문자열("-" for analysts)로 치환됩니다.
func Render(body string, incident *IncidentData, ticket *TicketData, sla *SLAData) string {
	pairs := make([]string, 0, 20)

	// --- Incident 변수 ---
	if incident != nil {
		pairs = append(pairs,
			"{{incident.id}}", incident.ID,
			"{{incident.type}}", incident.Type,
			"{{incident.status}}", incident.Status,
			"{{incident.severity}}", incident.Severity,
		)
	} else {
		pairs = append(pairs,
			"{{incident.id}}", "",
			"{{incident.type}}", "",
			"{{incident.status}}", "",
			"{{incident.severity}}", "",
		)
	}

	// --- Ticket 변수 ---
	if ticket != nil {
		analysts := "-"
		if len(ticket.Analysts) > 0 {
			analysts = strings.Join(ticket.Analysts, ",")
		}
		deadline := ""
		if !ticket.Deadline.IsZero() {
			deadline = ticket.Deadline.Format(time.RFC3339)
		}
		pairs = append(pairs,
			"{{ticket.id}}", ticket.ID,
			"{{ticket.status}}", ticket.Status,
			"{{ticket.analysts}}", analysts,
			"{{ticket.deadline}}", deadline,
		)
	} else {
		pairs = append(pairs,
			"{{ticket.id}}", "",
			"{{ticket.status}}", "",
			"{{ticket.analysts}}", "-",
			"{{ticket.deadline}}", "",
		)
	}

	// --- SLA 변수 ---
	if sla != nil {
		pairs = append(pairs,
			"{{sla.remaining}}", sla.Remaining,
			"{{sla.level}}", sla.Level,
		)
	} else {
		pairs = append(pairs,
			"{{sla.remaining}}", "",
			"{{sla.level}}", "",
		)
	}

	return strings.NewReplacer(pairs...).Replace(body)
}
