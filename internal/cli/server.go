package cli

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kube-rca/soc-console/internal/handler"
	"github.com/kube-rca/soc-console/internal/mockapi"
	"github.com/spf13/pflag"
)

const shutdownTimeout = 5 * time.Second

// mockServerCommand runs the in-memory SOC service, seeded with demo
// users and incidents, until interrupted.
func (a *App) mockServerCommand() *Command {
	var (
		addr    string
		noSeed  bool
		release bool
	)
	return &Command{
		Name:    "mock-server",
		Summary: "Run an in-memory SOC service for local use",
		Flags: func() *pflag.FlagSet {
			fs := pflag.NewFlagSet("mock-server", pflag.ContinueOnError)
			fs.StringVar(&addr, "addr", a.cfg.Mock.Addr, "listen address")
			fs.BoolVar(&noSeed, "no-seed", false, "start without demo users and incidents")
			fs.BoolVar(&release, "release", false, "run gin in release mode")
			return fs
		},
		Run: func(ctx context.Context, args []string) error {
			if err := exactArgs(args); err != nil {
				return err
			}
			if release {
				gin.SetMode(gin.ReleaseMode)
			}
			ln, err := net.Listen("tcp", addr)
			if err != nil {
				return fmt.Errorf("listen %s: %w", addr, err)
			}
			return a.serveMock(ctx, ln, !noSeed)
		},
	}
}

func (a *App) serveMock(ctx context.Context, ln net.Listener, seed bool) error {
	logger := a.logger.With("component", "mock-server")

	store := mockapi.NewStore(a.clock)
	auth, err := mockapi.NewAuthService(store, a.cfg.Mock, a.clock, logger)
	if err != nil {
		ln.Close()
		return err
	}
	if seed {
		if err := mockapi.Seed(auth, store); err != nil {
			ln.Close()
			return fmt.Errorf("seed: %w", err)
		}
	}

	srv := &http.Server{
		Handler:      handler.NewRouter(auth, store, logger, a.cfg.Mock.AllowedOrigins),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", ln.Addr().String(), "seeded", seed)
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
