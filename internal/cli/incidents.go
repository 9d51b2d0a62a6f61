package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/kube-rca/soc-console/internal/model"
	"github.com/kube-rca/soc-console/internal/service"
	"github.com/kube-rca/soc-console/internal/template"
	"github.com/spf13/pflag"
)

// filterFlags binds the incident list filters.
type filterFlags struct {
	filters model.FilterSet
	mine    bool
	format  string
}

func (f *filterFlags) register(fs *pflag.FlagSet) {
	fs.StringVar(&f.filters.Status, "status", "", "incident status (OPEN, ASSIGNED, IN_PROGRESS, CLOSED)")
	fs.StringVar(&f.filters.Severity, "severity", "", "severity (LOW, MEDIUM, HIGH)")
	fs.StringVar(&f.filters.Analyst, "analyst", "", "assigned analyst username or id")
	fs.StringVar(&f.filters.Search, "search", "", "substring of the incident id or type")
	fs.BoolVar(&f.mine, "mine", false, "only incidents assigned to you")
	fs.StringVar(&f.format, "format", template.DefaultIncidentLine, "line template")
}

func (a *App) incidentsCommand() *Command {
	var ff filterFlags
	return &Command{
		Name:    "incidents",
		Summary: "List incidents",
		Flags: func() *pflag.FlagSet {
			fs := pflag.NewFlagSet("incidents", pflag.ContinueOnError)
			ff.register(fs)
			return fs
		},
		Run: func(ctx context.Context, args []string) error {
			if err := exactArgs(args); err != nil {
				return err
			}
			a.repo.SetFilters(ff.filters)
			snap, err := a.repo.Refresh(ctx)
			if err != nil {
				return err
			}
			a.writeIncidents(a.streams.Out, snap, ff)
			return nil
		},
	}
}

func (a *App) analystsCommand() *Command {
	return &Command{
		Name:    "analysts",
		Summary: "List analysts",
		Run: func(ctx context.Context, args []string) error {
			if err := exactArgs(args); err != nil {
				return err
			}
			analysts, err := a.repo.Analysts(ctx)
			if err != nil {
				return err
			}
			for _, an := range analysts {
				fmt.Fprintf(a.streams.Out, "%s\t%s\n", an.ID, an.Username)
			}
			return nil
		},
	}
}

func (a *App) showCommand() *Command {
	return &Command{
		Name:    "show",
		Summary: "Show an incident with its analyses and playbooks",
		Usage:   "soc-console show <incident-id>",
		Run: func(ctx context.Context, args []string) error {
			if err := exactArgs(args, "incident-id"); err != nil {
				return err
			}
			inc, err := a.repo.FetchIncident(ctx, args[0])
			if err != nil {
				return err
			}
			a.writeDetail(a.streams.Out, inc)

			playbooks := a.repo.FetchPlaybooks(ctx, inc.IncidentType)
			if len(playbooks) > 0 {
				fmt.Fprintln(a.streams.Out, "  playbooks:")
				for _, pb := range playbooks {
					fmt.Fprintf(a.streams.Out, "    %s %s\n", pb.ID, pb.Name)
				}
			}
			return nil
		},
	}
}

func (a *App) watchCommand() *Command {
	var interval time.Duration
	return &Command{
		Name:    "watch",
		Summary: "Follow an incident and its SLA countdown until interrupted",
		Usage:   "soc-console watch <incident-id> [--interval 30s]",
		Flags: func() *pflag.FlagSet {
			fs := pflag.NewFlagSet("watch", pflag.ContinueOnError)
			fs.DurationVar(&interval, "interval", a.cfg.Poll.DetailInterval, "polling interval (0 disables polling)")
			return fs
		},
		Run: func(ctx context.Context, args []string) error {
			if err := exactArgs(args, "incident-id"); err != nil {
				return err
			}
			id := args[0]
			out := &lockedWriter{w: a.streams.Out}

			view := service.NewDetailView(a.repo, id, interval, a.clock, a.logger,
				func(inc *model.Incident) { a.writeDetail(out, inc) },
				func(remaining time.Duration) {
					data := template.IncidentData{ID: id}
					fmt.Fprintln(out, template.Render(template.DefaultSLATick, &data, nil, slaData(remaining)))
				},
			)
			return ignoreCancel(view.Run(ctx))
		},
	}
}

func (a *App) dashboardCommand() *Command {
	var (
		ff       filterFlags
		interval time.Duration
	)
	return &Command{
		Name:    "dashboard",
		Summary: "Keep the incident list refreshed until interrupted",
		Flags: func() *pflag.FlagSet {
			fs := pflag.NewFlagSet("dashboard", pflag.ContinueOnError)
			ff.register(fs)
			fs.DurationVar(&interval, "interval", a.cfg.Poll.DashboardInterval, "polling interval (0 disables polling)")
			return fs
		},
		Run: func(ctx context.Context, args []string) error {
			if err := exactArgs(args); err != nil {
				return err
			}
			a.repo.SetFilters(ff.filters)
			view := service.NewDashboardView(a.repo, interval, a.clock, a.logger, func(snap *service.Snapshot) {
				fmt.Fprintf(a.streams.Out, "--- %s (%d incidents, %d mine)\n",
					snap.FetchedAt.Format(time.RFC3339), len(snap.Incidents), len(snap.Mine))
				a.writeIncidents(a.streams.Out, snap, ff)
			})
			return ignoreCancel(view.Run(ctx))
		},
	}
}

func (a *App) writeIncidents(w io.Writer, snap *service.Snapshot, ff filterFlags) {
	incidents := snap.Incidents
	if ff.mine {
		incidents = snap.Mine
	}
	now := a.clock.Now()
	for i := range incidents {
		inc := &incidents[i]
		data := template.IncidentDataFromModel(inc)
		fmt.Fprintln(w, template.Render(ff.format, &data, template.TicketDataFromModel(inc.Ticket), ticketSLA(inc.Ticket, now)))
	}
}

func (a *App) writeDetail(w io.Writer, inc *model.Incident) {
	data := template.IncidentDataFromModel(inc)
	fmt.Fprintln(w, template.Render(template.DefaultDetail, &data, template.TicketDataFromModel(inc.Ticket), ticketSLA(inc.Ticket, a.clock.Now())))

	if actions := a.tickets.Allowed(inc); len(actions) > 0 {
		names := make([]string, len(actions))
		for i, action := range actions {
			names[i] = string(action)
		}
		fmt.Fprintf(w, "  actions:  %s\n", strings.Join(names, ", "))
	}
	for _, an := range inc.Analyses {
		fmt.Fprintf(w, "  analysis %s by %s at %s: %s\n", an.Classification, an.Analyst, an.Timestamp.Format(time.RFC3339), an.Notes)
	}
}

func ticketSLA(t *model.Ticket, now time.Time) *template.SLAData {
	if t == nil || t.DeadlineTimestamp.IsZero() {
		return nil
	}
	if t.Status == model.TicketClosed {
		return &template.SLAData{Remaining: "-", Level: "closed"}
	}
	return slaData(t.DeadlineTimestamp.Sub(now))
}

func slaData(remaining time.Duration) *template.SLAData {
	return &template.SLAData{
		Remaining: service.FormatRemaining(remaining),
		Level:     string(service.ClassifyRemaining(remaining)),
	}
}

// ignoreCancel treats an interrupted long-running command as success.
func ignoreCancel(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil
	}
	return err
}

// lockedWriter serializes writes from the poller and SLA goroutines.
type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}
