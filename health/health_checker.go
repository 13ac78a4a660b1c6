// Package health reports whether the service has usable reference data.
package health

import (
	"math"
	"net/http"
	"time"

	"github.com/giygas/rxscan-api/interfaces"
)

const (
	StatusHealthy  = "healthy"
	StatusDegraded = "degraded"

	staleAfter = 25 * time.Hour
)

// ReloadSchedule exposes the reference reload schedule
type ReloadSchedule interface {
	ReloadEnabled() bool
	NextRun() time.Time
}

// HealthCheckerImpl implements the interfaces.HealthChecker interface
type HealthCheckerImpl struct {
	dataStore interfaces.DataStore
	schedule  ReloadSchedule
}

// NewHealthChecker creates a health checker. schedule may be nil when reloads are not used.
func NewHealthChecker(dataStore interfaces.DataStore, schedule ReloadSchedule) interfaces.HealthChecker {
	return &HealthCheckerImpl{
		dataStore: dataStore,
		schedule:  schedule,
	}
}

// HealthCheck reports degraded, never unavailable: an empty or stale store still serves
// requests, names simply pass through unresolved.
func (h *HealthCheckerImpl) HealthCheck() (status string, data map[string]any, httpStatus int) {
	store := h.dataStore.GetStore()
	lastUpdate := h.dataStore.GetLastUpdated()
	isUpdating := h.dataStore.IsUpdating()
	reloadEnabled := h.reloadEnabled()

	var dataAge time.Duration
	if !lastUpdate.IsZero() {
		dataAge = time.Since(lastUpdate)
	}

	switch {
	case store.IsEmpty():
		status = StatusDegraded
	case reloadEnabled && dataAge > staleAfter:
		status = StatusDegraded
	default:
		status = StatusHealthy
	}
	httpStatus = http.StatusOK

	data = map[string]any{
		"drugs":          store.DrugCount(),
		"aliases":        store.AliasCount(),
		"interactions":   store.InteractionCount(),
		"drug_info":      store.InfoCount(),
		"data_age_hours": math.Round(dataAge.Hours()*10) / 10,
		"is_updating":    isUpdating,
		"reload_enabled": reloadEnabled,
	}
	if !lastUpdate.IsZero() {
		data["last_update"] = lastUpdate.Format(time.RFC3339)
	}
	if next := h.CalculateNextUpdate(); !next.IsZero() {
		data["next_update"] = next.Format(time.RFC3339)
	}

	return status, data, httpStatus
}

// CalculateNextUpdate returns the next scheduled reload, zero when reloads are disabled
func (h *HealthCheckerImpl) CalculateNextUpdate() time.Time {
	if !h.reloadEnabled() {
		return time.Time{}
	}
	return h.schedule.NextRun()
}

func (h *HealthCheckerImpl) reloadEnabled() bool {
	return h.schedule != nil && h.schedule.ReloadEnabled()
}
