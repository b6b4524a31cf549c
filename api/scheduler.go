/*
scheduler.go - Periodic generation trigger

PURPOSE:
  Drives the recurring task generator: one run immediately at startup, then
  one every interval (24 hours by default). Each firing runs the full
  orchestration synchronously.

SINGLE-FLIGHT:
  The duplicate check inside the generator is read-then-write, so two
  overlapping firings could race. A firing that starts while another is
  still running is skipped entirely; the storage-level uniqueness index is
  the second line of defense for multi-process deployments.

USAGE:
  scheduler := NewGenerationScheduler(generator)
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - compliance/generator.go: What each firing runs
  - handlers.go: Manual trigger endpoints for the same runs
*/
package api

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/warp/compliance-engine/compliance"
)

// GenerationScheduler fires the generator on a fixed cadence.
type GenerationScheduler struct {
	Generator *compliance.Generator
	Interval  time.Duration
	Enabled   bool

	cron    *cron.Cron
	running chan struct{}
}

// NewGenerationScheduler creates a scheduler with the default 24-hour cadence.
func NewGenerationScheduler(generator *compliance.Generator) *GenerationScheduler {
	return &GenerationScheduler{
		Generator: generator,
		Interval:  24 * time.Hour,
		Enabled:   true,
		running:   make(chan struct{}, 1),
	}
}

// Start registers the periodic job and fires once immediately.
func (gs *GenerationScheduler) Start() {
	if !gs.Enabled {
		log.Println("[Scheduler] Disabled, not starting")
		return
	}

	gs.cron = cron.New()
	spec := fmt.Sprintf("@every %s", gs.Interval)
	if _, err := gs.cron.AddFunc(spec, gs.fire); err != nil {
		log.Printf("[Scheduler] Failed to register job: %v", err)
		return
	}
	gs.cron.Start()

	// Run immediately on start.
	go gs.fire()

	log.Printf("[Scheduler] Started with interval: %v", gs.Interval)
}

// Stop stops the scheduler and waits for any queued job to finish.
func (gs *GenerationScheduler) Stop() {
	if gs.cron == nil {
		return
	}
	ctx := gs.cron.Stop()
	<-ctx.Done()
	log.Println("[Scheduler] Stopped")
}

// RunNow triggers an immediate firing (for testing/admin).
func (gs *GenerationScheduler) RunNow() {
	gs.fire()
}

// fire runs one generation pass unless another is still in flight.
func (gs *GenerationScheduler) fire() {
	select {
	case gs.running <- struct{}{}:
		defer func() { <-gs.running }()
	default:
		log.Println("[Scheduler] Previous firing still running, skipping")
		return
	}

	start := time.Now()
	summary := gs.Generator.GenerateUpcoming(context.Background())
	log.Printf("[Scheduler] Completed in %v: %d tenants, %d created, %d skipped, %d failed",
		time.Since(start).Round(time.Millisecond),
		summary.Tenants, summary.Created, summary.Skipped, summary.Failed)
}
