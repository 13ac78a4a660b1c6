// Package scheduler owns the reference data lifecycle: the initial load before the server
// starts, an optional cron-style reload and background monitoring of the loaded data.
package scheduler

import (
	"fmt"
	"sync"
	"time"

	"github.com/giygas/rxscan-api/interfaces"
	"github.com/giygas/rxscan-api/logging"
	"github.com/giygas/rxscan-api/metrics"
	"github.com/giygas/rxscan-api/reference"
	"github.com/giygas/rxscan-api/validation"
	"github.com/go-co-op/gocron"
)

// Compile-time check to ensure Scheduler implements Scheduler interface
var _ interfaces.Scheduler = (*Scheduler)(nil)

const (
	defaultMonitorInterval = 1 * time.Hour
	staleAfter             = 25 * time.Hour
)

// Scheduler loads reference data into a DataStore and optionally reloads it
type Scheduler struct {
	dataStore interfaces.DataStore
	loader    interfaces.ReferenceLoader
	reloadAt  string
	scheduler *gocron.Scheduler

	monitorInterval time.Duration
	stop            chan struct{}
	stopOnce        sync.Once
}

// NewScheduler creates a scheduler. reloadAt is a gocron At spec such as "06:00;18:00";
// an empty value loads the data once and never reloads it.
func NewScheduler(dataStore interfaces.DataStore, loader interfaces.ReferenceLoader, reloadAt string) *Scheduler {
	return &Scheduler{
		dataStore:       dataStore,
		loader:          loader,
		reloadAt:        reloadAt,
		scheduler:       gocron.NewScheduler(time.Local),
		monitorInterval: defaultMonitorInterval,
		stop:            make(chan struct{}),
	}
}

// ReloadEnabled reports whether a periodic reload is configured
func (s *Scheduler) ReloadEnabled() bool {
	return s.reloadAt != ""
}

// Start performs the initial load, schedules reloads when enabled and starts monitoring
func (s *Scheduler) Start() error {
	// Initial load
	s.Reload()

	if s.ReloadEnabled() {
		_, err := s.scheduler.Every(1).Days().At(s.reloadAt).Do(s.Reload)
		if err != nil {
			logging.Error("Failed to schedule reference reload", "error", err, "at", s.reloadAt)
			return fmt.Errorf("failed to schedule reference reload: %w", err)
		}
		s.scheduler.StartAsync()
		logging.Info("Reference reload scheduled", "at", s.reloadAt)
	}

	s.startHealthMonitoring()

	return nil
}

// Stop stops reloads and monitoring. It is safe to call more than once.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		close(s.stop)
		s.scheduler.Stop()
	})
}

// NextRun returns the next scheduled reload, zero when reloads are disabled or not yet scheduled
func (s *Scheduler) NextRun() time.Time {
	if !s.ReloadEnabled() {
		return time.Time{}
	}
	_, next := s.scheduler.NextRun()
	return next
}

// Reload builds a fresh store and swaps it in. A reload already in progress makes it a no-op.
func (s *Scheduler) Reload() {
	// Prevent concurrent updates
	if !s.dataStore.BeginUpdate() {
		logging.Info("Reference reload already in progress, skipping...")
		return
	}
	defer s.dataStore.EndUpdate()

	start := time.Now()
	logging.Info("Starting reference data load", "started_at", start.Format(time.RFC3339))

	store := s.loader.Load()
	if store == nil {
		store = reference.Empty()
	}
	s.dataStore.UpdateStore(store)

	metrics.SetReferenceSizes(store.DrugCount(), store.AliasCount(), store.InteractionCount(), store.InfoCount())

	report := validation.ReportDataQuality(store)
	if report.InteractionsWithUnknownDrugs > 0 {
		logging.Warn("Interactions reference drugs missing from the vocabulary",
			"count", report.InteractionsWithUnknownDrugs,
			"drugs", report.UnknownInteractionDrugs,
		)
	}
	if report.OrphanInfoRows > 0 {
		logging.Warn("Drug info rows without a matching drug",
			"count", report.OrphanInfoRows,
			"names", report.OrphanInfoNames,
		)
	}
	if report.DrugsWithoutInfo > 0 {
		logging.Debug("Drugs without reference details", "count", report.DrugsWithoutInfo)
	}

	logging.Info("Reference data swapped", "duration", time.Since(start).String())
}

// startHealthMonitoring periodically checks the loaded data until Stop is called
func (s *Scheduler) startHealthMonitoring() {
	go func() {
		ticker := time.NewTicker(s.monitorInterval)
		defer ticker.Stop()

		for {
			select {
			case <-s.stop:
				return
			case <-ticker.C:
				s.checkData()
			}
		}
	}()
}

// checkData logs a warning for empty or stale reference data and returns whether it found a problem
func (s *Scheduler) checkData() bool {
	if s.dataStore.GetStore().IsEmpty() {
		logging.Warn("Reference data is empty; names pass through unresolved and no interactions are reported")
		return true
	}
	if s.ReloadEnabled() {
		if age := time.Since(s.dataStore.GetLastUpdated()); age > staleAfter {
			logging.Warn("Reference data hasn't been reloaded in over 25 hours", "age", age.Round(time.Minute).String())
			return true
		}
	}
	return false
}
