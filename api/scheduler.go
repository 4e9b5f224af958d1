/*
scheduler.go - Automated occurrence materialization

PURPOSE:
  Periodically materializes duty occurrences over a rolling window so
  the roster always has rows for the near future, without anyone
  calling the ensure endpoint by hand.

DESIGN:
  - Runs a background goroutine with configurable check interval
  - Each tick fills [today, today + horizon] for all active templates
  - The fill is insert-if-absent, so overlapping windows and repeated
    ticks never duplicate or reset rows

CONFIGURATION:
  - CheckInterval: How often to fill (default: 1 hour)
  - HorizonDays:   How far ahead to materialize (default: 14)
  - Enabled:       Whether scheduler is active (default: true)

USAGE:
  scheduler := NewFillScheduler(ledger)
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - handlers.go: EnsureOccurrences endpoint (manual fill)
  - schedule/ledger.go: EnsureOccurrencesInRange
*/
package api

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/opsduty/duty-engine/schedule"
)

// FillScheduler keeps the occurrence table materialized ahead of time.
type FillScheduler struct {
	Ledger        *schedule.OccurrenceLedger
	CheckInterval time.Duration
	HorizonDays   int
	Enabled       bool

	ticker *time.Ticker
	stop   chan bool
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewFillScheduler creates a new scheduler over the ledger.
func NewFillScheduler(ledger *schedule.OccurrenceLedger) *FillScheduler {
	return &FillScheduler{
		Ledger:        ledger,
		CheckInterval: 1 * time.Hour,
		HorizonDays:   14,
		Enabled:       true,
		stop:          make(chan bool),
	}
}

// Start begins the scheduler.
func (fs *FillScheduler) Start() {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	if !fs.Enabled {
		log.Println("[Scheduler] Disabled, not starting")
		return
	}

	fs.ticker = time.NewTicker(fs.CheckInterval)
	fs.wg.Add(1)

	go fs.run()

	log.Printf("[Scheduler] Started with check interval: %v, horizon: %d days", fs.CheckInterval, fs.HorizonDays)
}

// Stop stops the scheduler.
func (fs *FillScheduler) Stop() {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	if fs.ticker != nil {
		fs.ticker.Stop()
		close(fs.stop)
		fs.wg.Wait()
		log.Println("[Scheduler] Stopped")
	}
}

func (fs *FillScheduler) run() {
	defer fs.wg.Done()

	// Run immediately on start
	fs.fillWindow()

	for {
		select {
		case <-fs.ticker.C:
			fs.fillWindow()
		case <-fs.stop:
			return
		}
	}
}

func (fs *FillScheduler) fillWindow() {
	ctx := context.Background()
	start := schedule.Today()
	end := start.AddDays(fs.HorizonDays)

	inserted, err := fs.Ledger.EnsureOccurrencesInRange(ctx, start, end, nil)
	if err != nil {
		log.Printf("[Scheduler] Error filling %s..%s: %v", start, end, err)
		return
	}
	if inserted > 0 {
		log.Printf("[Scheduler] Filled %s..%s: %d new occurrences", start, end, inserted)
	}
}

// RunNow triggers an immediate fill (for testing/admin).
func (fs *FillScheduler) RunNow() {
	fs.fillWindow()
}

// GetNextRunTime returns when the next scheduled fill will occur.
func (fs *FillScheduler) GetNextRunTime() time.Time {
	return time.Now().Add(fs.CheckInterval)
}
