// Package data holds the reference store snapshot shared by every request, with
// atomic swaps so a reload never blocks or mixes readers.
package data

import (
	"sync/atomic"
	"time"

	"github.com/giygas/rxscan-api/interfaces"
	"github.com/giygas/rxscan-api/reference"
)

// Compile-time check to ensure DataContainer implements DataStore
var _ interfaces.DataStore = (*DataContainer)(nil)

// DataContainer holds the current store behind an atomic pointer
type DataContainer struct {
	store           atomic.Pointer[reference.Store]
	lastUpdated     atomic.Pointer[time.Time]
	updating        atomic.Bool
	serverStartTime atomic.Pointer[time.Time]
}

// NewDataContainer creates a container holding the empty store
func NewDataContainer() *DataContainer {
	dc := &DataContainer{}
	dc.store.Store(reference.Empty())
	return dc
}

// GetStore returns the current snapshot. It is never nil.
func (dc *DataContainer) GetStore() *reference.Store {
	if s := dc.store.Load(); s != nil {
		return s
	}
	return reference.Empty()
}

// GetLastUpdated returns when the current store was installed, zero before the first load
func (dc *DataContainer) GetLastUpdated() time.Time {
	if t := dc.lastUpdated.Load(); t != nil {
		return *t
	}
	return time.Time{}
}

// IsUpdating returns true while a reload is in progress
func (dc *DataContainer) IsUpdating() bool {
	return dc.updating.Load()
}

// SetServerStartTime sets the server start time
func (dc *DataContainer) SetServerStartTime(startTime time.Time) {
	dc.serverStartTime.Store(&startTime)
}

// GetServerStartTime returns the server start time
func (dc *DataContainer) GetServerStartTime() time.Time {
	if t := dc.serverStartTime.Load(); t != nil {
		return *t
	}
	return time.Time{}
}

// UpdateStore atomically replaces the store. A nil store installs the empty one.
func (dc *DataContainer) UpdateStore(store *reference.Store) {
	if store == nil {
		store = reference.Empty()
	}
	now := time.Now()
	dc.store.Store(store)
	dc.lastUpdated.Store(&now)
}

// BeginUpdate marks the start of a reload.
// Returns true if the reload can proceed, false if another one is in progress
func (dc *DataContainer) BeginUpdate() bool {
	return dc.updating.CompareAndSwap(false, true)
}

// EndUpdate marks the end of a reload
func (dc *DataContainer) EndUpdate() {
	dc.updating.Store(false)
}
