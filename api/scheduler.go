/*
scheduler.go - Automated reconciliation scheduler

PURPOSE:
  Periodically runs the attendance reconciliation over the default
  lookback window so rest-day records stay consistent without manual
  triggers.

DESIGN:
  - Runs a background goroutine with configurable check interval
  - Delegates to Handler.RunNow, which serializes against HTTP-triggered
    runs on the same mutex
  - A failed run is logged and retried at the next tick

CONFIGURATION:
  - CheckInterval: How often to run (default: 24 hours)
  - Enabled: Whether scheduler is active (default: true)

USAGE:
  scheduler := NewScheduler(handler)
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - handlers.go: TriggerRun endpoint (manual reconciliation)
  - reconcile/run.go: The run orchestration itself
*/
package api

import (
	"context"
	"log"
	"sync"
	"time"
)

// Scheduler handles automated periodic reconciliation.
type Scheduler struct {
	Handler       *Handler
	CheckInterval time.Duration
	Enabled       bool

	ticker *time.Ticker
	stop   chan bool
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewScheduler creates a new scheduler.
func NewScheduler(handler *Handler) *Scheduler {
	return &Scheduler{
		Handler:       handler,
		CheckInterval: 24 * time.Hour,
		Enabled:       true,
		stop:          make(chan bool),
	}
}

// Start begins the scheduler.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.Enabled {
		log.Println("[Scheduler] Disabled, not starting")
		return
	}

	s.ticker = time.NewTicker(s.CheckInterval)
	s.wg.Add(1)

	go s.run()

	log.Printf("[Scheduler] Started with check interval: %v", s.CheckInterval)
}

// Stop stops the scheduler.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ticker != nil {
		s.ticker.Stop()
		close(s.stop)
		s.wg.Wait()
		log.Println("[Scheduler] Stopped")
	}
}

func (s *Scheduler) run() {
	defer s.wg.Done()

	// Run immediately on start
	s.reconcile()

	for {
		select {
		case <-s.ticker.C:
			s.reconcile()
		case <-s.stop:
			return
		}
	}
}

func (s *Scheduler) reconcile() {
	ctx := context.Background()
	log.Printf("[Scheduler] Starting scheduled reconciliation at %v", time.Now().Format(time.RFC3339))

	// Zero window selects the default lookback ending today.
	report, err := s.Handler.RunNow(ctx, time.Time{}, time.Time{})
	if err != nil {
		log.Printf("[Scheduler] Run failed: %v", err)
		return
	}

	log.Printf("[Scheduler] Run complete: %d dates, %d issues found, %d fixed",
		report.DatesChecked, report.IssuesFound(), report.Committed)
}
