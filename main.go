package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/kube-rca/soc-console/internal/cli"
)

func main() {
	// Ctrl-C 로 watch / dashboard / mock-server 종료
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := cli.Main(ctx, os.Args[1:])
	stop()
	os.Exit(code)
}
