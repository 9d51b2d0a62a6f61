package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/kube-rca/soc-console/internal/model"
	"github.com/kube-rca/soc-console/internal/service"
	"github.com/spf13/pflag"
)

var transitions = map[service.Action]func(*service.TicketController, context.Context, *model.Incident) (service.TransitionResult, error){
	service.ActionAssign: (*service.TicketController).Assign,
	service.ActionStart:  (*service.TicketController).Start,
	service.ActionPause:  (*service.TicketController).Pause,
}

var classifications = strings.Join([]string{
	string(model.FalsePositive),
	string(model.TruePositiveLegitimate),
	string(model.TruePositivePhishing),
}, ", ")

// transitionCommand builds assign, start and pause. The incident is
// fetched first so the local precondition check sees fresh state.
func (a *App) transitionCommand(action service.Action, summary string) *Command {
	name := string(action)
	return &Command{
		Name:    name,
		Summary: summary,
		Usage:   fmt.Sprintf("soc-console %s <incident-id>", name),
		Run: func(ctx context.Context, args []string) error {
			if err := exactArgs(args, "incident-id"); err != nil {
				return err
			}
			inc, err := a.repo.FetchIncident(ctx, args[0])
			if err != nil {
				return err
			}
			result, err := transitions[action](a.tickets, ctx, inc)
			return a.reportTransition(result, err)
		},
	}
}

func (a *App) classifyCommand() *Command {
	var notes, notesFile string
	return &Command{
		Name:    "classify",
		Summary: "Close an IN_PROGRESS ticket with a verdict",
		Usage: "soc-console classify <incident-id> <classification> [flags]\n\n" +
			"Classifications: " + classifications,
		Flags: func() *pflag.FlagSet {
			fs := pflag.NewFlagSet("classify", pflag.ContinueOnError)
			fs.StringVar(&notes, "notes", "", "analysis notes")
			fs.StringVar(&notesFile, "notes-file", "", "read analysis notes from a file")
			return fs
		},
		Run: func(ctx context.Context, args []string) error {
			if err := exactArgs(args, "incident-id", "classification"); err != nil {
				return err
			}
			inc, err := a.repo.FetchIncident(ctx, args[0])
			if err != nil {
				return err
			}
			if notesFile != "" {
				data, err := os.ReadFile(notesFile)
				if err != nil {
					return fmt.Errorf("read notes file: %w", err)
				}
				a.tickets.SetDraft(inc.ID, strings.TrimSpace(string(data)))
			}
			result, err := a.tickets.Classify(ctx, inc, model.Classification(args[1]), notes)
			return a.reportTransition(result, err)
		},
	}
}

// reportTransition prints the refetched state. After a conflict the
// current state is printed too, so the analyst sees what won.
func (a *App) reportTransition(result service.TransitionResult, err error) error {
	if result.Incident != nil {
		if t := result.Incident.Ticket; t != nil {
			fmt.Fprintf(a.streams.Out, "%s %s: ticket %s is %s\n", result.Incident.ID, result.Action, t.ID, t.Status)
		}
	} else if result.RefreshErr != nil {
		a.logger.Warn("could not refresh incident", "error", result.RefreshErr)
	}
	return err
}
