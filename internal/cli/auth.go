package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/kube-rca/soc-console/internal/model"
	"github.com/kube-rca/soc-console/internal/service"
	"github.com/spf13/pflag"
	"golang.org/x/term"
)

// passwordFlags selects where a password comes from. The default is an
// interactive prompt with echo disabled.
type passwordFlags struct {
	file  string
	stdin bool
}

func (p *passwordFlags) register(fs *pflag.FlagSet) {
	fs.StringVar(&p.file, "password-file", "", "read the password from a file")
	fs.BoolVar(&p.stdin, "password-stdin", false, "read the password (and confirmation) from stdin lines")
}

// readPassword returns the password. With --password-stdin each call consumes
// one line.
func (a *App) readPassword(p passwordFlags, prompt string) (string, error) {
	switch {
	case p.file != "":
		data, err := os.ReadFile(p.file)
		if err != nil {
			return "", fmt.Errorf("read password file: %w", err)
		}
		return strings.TrimRight(string(data), "\r\n"), nil
	case p.stdin:
		return a.readLine()
	}

	f, ok := a.streams.In.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return "", usagef("no terminal available for password prompt (use --password-file or --password-stdin)")
	}
	fmt.Fprint(a.streams.Err, prompt)
	password, err := term.ReadPassword(int(f.Fd()))
	fmt.Fprintln(a.streams.Err)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	return string(password), nil
}

func (a *App) readLine() (string, error) {
	if a.stdin == nil {
		a.stdin = bufio.NewReader(a.streams.In)
	}
	line, err := a.stdin.ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("read stdin: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func (a *App) loginCommand() *Command {
	var pw passwordFlags
	return &Command{
		Name:    "login",
		Summary: "Log in and save the session",
		Usage:   "soc-console login <username> [flags]",
		Flags: func() *pflag.FlagSet {
			fs := pflag.NewFlagSet("login", pflag.ContinueOnError)
			pw.register(fs)
			return fs
		},
		Run: func(ctx context.Context, args []string) error {
			if err := exactArgs(args, "username"); err != nil {
				return err
			}
			password, err := a.readPassword(pw, "Password: ")
			if err != nil {
				return err
			}
			if err := a.session.Login(ctx, args[0], password); err != nil {
				return err
			}
			id, _ := a.session.Identity()
			fmt.Fprintf(a.streams.Out, "Logged in as %s\n", describeIdentity(id))
			fmt.Fprintf(a.streams.Out, "Session saved to %s\n", a.cfg.Session.FilePath)
			return nil
		},
	}
}

func (a *App) logoutCommand() *Command {
	return &Command{
		Name:    "logout",
		Summary: "Log out and forget the saved session",
		Run: func(ctx context.Context, args []string) error {
			if err := exactArgs(args); err != nil {
				return err
			}
			a.session.Logout(ctx)
			a.repo.Reset()
			fmt.Fprintln(a.streams.Out, "Logged out")
			return nil
		},
	}
}

func (a *App) whoamiCommand() *Command {
	return &Command{
		Name:    "whoami",
		Summary: "Show the logged in identity",
		Run: func(_ context.Context, args []string) error {
			if err := exactArgs(args); err != nil {
				return err
			}
			id, ok := a.session.Identity()
			if !ok {
				return service.ErrNotAuthenticated
			}
			fmt.Fprintln(a.streams.Out, describeIdentity(id))
			return nil
		},
	}
}

func (a *App) requestAccessCommand() *Command {
	var role string
	return &Command{
		Name:    "request-access",
		Summary: "Ask an admin for an account",
		Usage:   "soc-console request-access <email> [--role Analyst|Admin]",
		Flags: func() *pflag.FlagSet {
			fs := pflag.NewFlagSet("request-access", pflag.ContinueOnError)
			fs.StringVar(&role, "role", model.RoleAnalyst, "requested role (Analyst or Admin)")
			return fs
		},
		Run: func(ctx context.Context, args []string) error {
			if err := exactArgs(args, "email"); err != nil {
				return err
			}
			msg, err := a.accounts.RequestAccess(ctx, args[0], role)
			if err != nil {
				return err
			}
			fmt.Fprintln(a.streams.Out, msg)
			return nil
		},
	}
}

func (a *App) registerCommand() *Command {
	var pw passwordFlags
	return &Command{
		Name:    "register",
		Summary: "Complete a registration with the emailed token",
		Usage:   "soc-console register <token> <username> [flags]",
		Flags: func() *pflag.FlagSet {
			fs := pflag.NewFlagSet("register", pflag.ContinueOnError)
			pw.register(fs)
			return fs
		},
		Run: func(ctx context.Context, args []string) error {
			if err := exactArgs(args, "token", "username"); err != nil {
				return err
			}
			password, err := a.readPassword(pw, "Password: ")
			if err != nil {
				return err
			}
			confirm := password
			if pw.file == "" {
				if confirm, err = a.readPassword(pw, "Confirm password: "); err != nil {
					return err
				}
			}
			if err := a.accounts.Register(ctx, args[0], args[1], password, confirm); err != nil {
				return err
			}
			fmt.Fprintf(a.streams.Out, "Registered %s. You can now log in.\n", args[1])
			return nil
		},
	}
}

func describeIdentity(id model.Identity) string {
	s := fmt.Sprintf("%s [%s]", id.Username, strings.Join(id.Roles, ","))
	if id.AnalystID != "" {
		s += " analyst " + id.AnalystID
	}
	return s
}
