// Package cli is the soc-console command line front end.
//
// App 구성 순서:
//  1. config.Load (기본값 → YAML → 환경변수)
//  2. logger / API client / 세션 복원
//  3. repository, ticket controller, account service 생성
//
// 모든 컴포넌트는 App이 한 번 만들어 명령에 주입합니다.
package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/kube-rca/soc-console/internal/client"
	"github.com/kube-rca/soc-console/internal/clock"
	"github.com/kube-rca/soc-console/internal/config"
	"github.com/kube-rca/soc-console/internal/logging"
	"github.com/kube-rca/soc-console/internal/service"
	"golang.org/x/term"
)

// Exit codes
const (
	ExitOK       = 0
	ExitError    = 1
	ExitUsage    = 2
	ExitAuth     = 3
	ExitConflict = 4
)

// Streams are the process's standard streams.
type Streams struct {
	In  io.Reader
	Out io.Writer
	Err io.Writer
}

// App holds every component a command needs.
type App struct {
	cfg     config.Config
	logger  *slog.Logger
	clock   clock.Clock
	streams Streams
	stdin   *bufio.Reader

	api      *client.APIClient
	session  *service.SessionService
	repo     *service.IncidentRepository
	tickets  *service.TicketController
	accounts *service.AccountService
}

// NewApp wires the components and restores the persisted session.
func NewApp(cfg config.Config, logger *slog.Logger, clk clock.Clock, streams Streams) *App {
	api := client.NewAPIClient(cfg.API)
	session := service.NewSessionService(api, service.NewSessionFile(cfg.Session.FilePath), clk, logger)
	session.Restore()
	repo := service.NewIncidentRepository(api, session, clk, logger)

	return &App{
		cfg:      cfg,
		logger:   logger,
		clock:    clk,
		streams:  streams,
		api:      api,
		session:  session,
		repo:     repo,
		tickets:  service.NewTicketController(api, repo, logger),
		accounts: service.NewAccountService(api, logger),
	}
}

// Main runs the CLI on the process streams and returns the exit code.
func Main(ctx context.Context, args []string) int {
	return Run(ctx, args, Streams{In: os.Stdin, Out: os.Stdout, Err: os.Stderr})
}

// Run loads the configuration, executes args and maps the outcome onto
// an exit code. Errors are printed to streams.Err.
func Run(ctx context.Context, args []string, streams Streams) int {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(streams.Err, "error: %v\n", err)
		return ExitError
	}
	logger := logging.NewWithWriter(cfg.Log, streams.Err, isTerminal(streams.Err))

	app := NewApp(cfg, logger, clock.Real(), streams)
	err = app.Root().Execute(ctx, args, streams.Err)
	if err == nil || errors.Is(err, errHelp) {
		return ExitOK
	}
	fmt.Fprintf(streams.Err, "error: %v\n", err)
	return exitCode(err)
}

func exitCode(err error) int {
	var usage *UsageError
	switch {
	case errors.As(err, &usage), errors.Is(err, service.ErrValidation):
		return ExitUsage
	case errors.Is(err, service.ErrNotAuthenticated), errors.Is(err, service.ErrAuthFailure):
		return ExitAuth
	case errors.Is(err, service.ErrConflict), errors.Is(err, service.ErrForbidden),
		errors.Is(err, service.ErrTransitionNotAllowed):
		return ExitConflict
	default:
		return ExitError
	}
}

// Root returns the command tree.
func (a *App) Root() *Command {
	return &Command{
		Name:    "soc-console",
		Summary: "Work SOC incidents and tickets from the terminal",
		Subcommands: []*Command{
			a.loginCommand(),
			a.logoutCommand(),
			a.whoamiCommand(),
			a.requestAccessCommand(),
			a.registerCommand(),
			a.incidentsCommand(),
			a.analystsCommand(),
			a.showCommand(),
			a.transitionCommand(service.ActionAssign, "Assign a NEW ticket to yourself"),
			a.transitionCommand(service.ActionStart, "Start working an ASSIGNED ticket"),
			a.transitionCommand(service.ActionPause, "Pause an IN_PROGRESS ticket"),
			a.classifyCommand(),
			a.watchCommand(),
			a.dashboardCommand(),
			a.mockServerCommand(),
		},
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
