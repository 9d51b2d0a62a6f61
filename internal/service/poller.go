package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/kube-rca/soc-console/internal/clock"
)

// Poller re-invokes fetch immediately, on every interval tick and on
// every Trigger. Fetch errors are logged and polling continues; there is
// no backoff beyond the next tick.
type Poller struct {
	name     string
	interval time.Duration
	fetch    func(context.Context) error
	clock    clock.Clock
	logger   *slog.Logger
	trigger  chan struct{}
}

// NewPoller builds a poller. An interval of zero or less disables the
// ticker so that only Trigger causes fetches.
func NewPoller(name string, interval time.Duration, fetch func(context.Context) error, clk clock.Clock, logger *slog.Logger) *Poller {
	return &Poller{
		name:     name,
		interval: interval,
		fetch:    fetch,
		clock:    clk,
		logger:   logger.With("component", "poller", "poller", name),
		trigger:  make(chan struct{}, 1),
	}
}

// Trigger requests an out-of-band fetch. Requests made while one is
// already pending are coalesced.
func (p *Poller) Trigger() {
	select {
	case p.trigger <- struct{}{}:
	default:
	}
}

// Run polls until ctx is done and returns ctx.Err().
func (p *Poller) Run(ctx context.Context) error {
	var tick <-chan time.Time
	if p.interval > 0 {
		ticker := p.clock.NewTicker(p.interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	p.poll(ctx)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-tick:
			p.poll(ctx)
		case <-p.trigger:
			p.poll(ctx)
		}
	}
}

func (p *Poller) poll(ctx context.Context) {
	err := p.fetch(ctx)
	switch {
	case err == nil:
	case ctx.Err() != nil, errors.Is(err, ErrSuperseded):
		p.logger.Debug("fetch discarded", "error", err)
	default:
		p.logger.Warn("fetch failed, will retry on next tick", "error", err)
	}
}
