package kiosk

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	appLog "kioskgrid/internal/log"
)

// tickSpec drives day rollover and the current-slot highlight.
const tickSpec = "@every 1m"

// Runner schedules feed refreshes and minute ticks for a Screen.
type Runner struct {
	screen  *Screen
	spec    string
	loc     *time.Location
	timeout time.Duration

	cron   *cron.Cron
	runCtx context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewRunner creates a runner refreshing screen on the cron spec, evaluated
// in loc.
func NewRunner(screen *Screen, spec string, loc *time.Location) *Runner {
	if loc == nil {
		loc = time.Local
	}
	return &Runner{screen: screen, spec: spec, loc: loc, timeout: time.Minute}
}

// Start runs one refresh right away and then begins the periodic loop.
func (r *Runner) Start(ctx context.Context) error {
	r.runCtx, r.cancel = context.WithCancel(ctx)

	c := cron.New(cron.WithLocation(r.loc), cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	if _, err := c.AddFunc(r.spec, r.refresh); err != nil {
		r.cancel()
		return fmt.Errorf("kiosk: refresh schedule %q: %w", r.spec, err)
	}
	if _, err := c.AddFunc(tickSpec, r.tick); err != nil {
		r.cancel()
		return fmt.Errorf("kiosk: tick schedule: %w", err)
	}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		r.refresh()
	}()

	c.Start()
	r.cron = c
	appLog.Info("runner started", "refresh", r.spec, "timezone", r.loc.String())
	return nil
}

// Stop cancels in-flight refreshes and waits for running jobs, including
// the initial refresh started by Start.
func (r *Runner) Stop() {
	if r.cancel != nil {
		r.cancel()
	}
	if r.cron != nil {
		ctx := r.cron.Stop()
		<-ctx.Done()
	}
	r.wg.Wait()
}

func (r *Runner) refresh() {
	ctx, cancel := context.WithTimeout(r.runCtx, r.timeout)
	defer cancel()
	// Errors are logged and counted inside Refresh.
	_, _ = r.screen.Refresh(ctx)
}

func (r *Runner) tick() {
	if _, err := r.screen.Tick(); err != nil {
		appLog.Error("tick failed", err)
	}
}
