package data

import (
	"sync"
	"testing"
	"time"

	"github.com/giygas/rxscan-api/reference"
)

func testStore(names ...string) *reference.Store {
	drugs := make([]reference.Drug, 0, len(names))
	for _, n := range names {
		drugs = append(drugs, reference.Drug{Name: n})
	}
	return reference.New(drugs, nil, nil)
}

func TestNewDataContainer(t *testing.T) {
	dc := NewDataContainer()

	if dc.IsUpdating() {
		t.Error("NewDataContainer should not be updating")
	}
	if !dc.GetLastUpdated().IsZero() {
		t.Error("NewDataContainer should have zero lastUpdated time")
	}
	if store := dc.GetStore(); store == nil || !store.IsEmpty() {
		t.Error("NewDataContainer should hold the empty store")
	}
	if !dc.GetServerStartTime().IsZero() {
		t.Error("NewDataContainer should have zero server start time")
	}
}

func TestZeroValueContainer(t *testing.T) {
	var dc DataContainer
	if dc.GetStore() == nil {
		t.Error("GetStore should never return nil")
	}
}

func TestUpdateStore(t *testing.T) {
	dc := NewDataContainer()
	before := time.Now()

	dc.UpdateStore(testStore("Aspirin", "Warfarin"))

	if got := dc.GetStore().DrugCount(); got != 2 {
		t.Errorf("Expected 2 drugs, got %d", got)
	}
	if dc.GetLastUpdated().Before(before) {
		t.Error("Expected lastUpdated to be set")
	}

	dc.UpdateStore(nil)
	if !dc.GetStore().IsEmpty() {
		t.Error("Expected nil update to install the empty store")
	}
}

func TestSnapshotSurvivesSwap(t *testing.T) {
	dc := NewDataContainer()
	dc.UpdateStore(testStore("Aspirin"))

	snapshot := dc.GetStore()
	dc.UpdateStore(testStore("Warfarin", "Ibuprofen"))

	if _, ok := snapshot.ResolveExact("aspirin"); !ok {
		t.Error("Expected the old snapshot to stay intact after a swap")
	}
	if dc.GetStore().DrugCount() != 2 {
		t.Error("Expected the container to serve the new store")
	}
}

func TestBeginEndUpdate(t *testing.T) {
	dc := NewDataContainer()

	if !dc.BeginUpdate() {
		t.Fatal("Expected first BeginUpdate to succeed")
	}
	if !dc.IsUpdating() {
		t.Error("Expected IsUpdating during update")
	}
	if dc.BeginUpdate() {
		t.Error("Expected concurrent BeginUpdate to fail")
	}

	dc.EndUpdate()
	if dc.IsUpdating() {
		t.Error("Expected IsUpdating false after EndUpdate")
	}
	if !dc.BeginUpdate() {
		t.Error("Expected BeginUpdate to succeed after EndUpdate")
	}
}

func TestServerStartTime(t *testing.T) {
	dc := NewDataContainer()
	start := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	dc.SetServerStartTime(start)

	if !dc.GetServerStartTime().Equal(start) {
		t.Errorf("Expected %v, got %v", start, dc.GetServerStartTime())
	}
}

func TestConcurrentReadsDuringUpdates(t *testing.T) {
	dc := NewDataContainer()
	var wg sync.WaitGroup

	for range 10 {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for range 100 {
				_ = dc.GetStore().Names()
			}
		}()
		go func() {
			defer wg.Done()
			dc.UpdateStore(testStore("Drug", "Other"))
		}()
	}
	wg.Wait()

	if dc.GetStore().DrugCount() != 2 {
		t.Errorf("Expected 2 drugs after updates, got %d", dc.GetStore().DrugCount())
	}
}
