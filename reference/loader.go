package reference

import (
	"context"
	"time"

	"github.com/giygas/rxscan-api/logging"
)

// fetchTimeout bounds the refresh of all remote reference files
const fetchTimeout = 5 * time.Minute

// Loader builds a Store from the three reference files on disk. Files with a URL are
// refreshed from it first.
type Loader struct {
	DrugsPath        string
	InteractionsPath string
	InfoPath         string

	DrugsURL        string
	InteractionsURL string
	InfoURL         string
	Fetcher         *Fetcher
}

// Sources lists the three tables with their local path and URL
func (l Loader) Sources() []Source {
	return []Source{
		{Table: "drugs", Path: l.DrugsPath, URL: l.DrugsURL, Required: [][]string{nameColumns}},
		{Table: "interactions", Path: l.InteractionsPath, URL: l.InteractionsURL, Required: [][]string{drugAColumns, drugBColumns}},
		{Table: "drug_info", Path: l.InfoPath, URL: l.InfoURL, Required: [][]string{nameColumns}},
	}
}

// Load reads every table and builds a new Store. It never fails; missing tables
// simply leave the corresponding part of the store empty, and failed downloads fall
// back to the files already on disk.
func (l Loader) Load() *Store {
	start := time.Now()

	if l.hasRemote() {
		fetcher := l.Fetcher
		if fetcher == nil {
			fetcher = NewFetcher(fetchTimeout)
		}
		ctx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
		if err := fetcher.FetchAll(ctx, l.Sources()); err != nil {
			logging.Warn("Reference download failed, using local files", "error", err)
		}
		cancel()
	}

	store := New(
		LoadDrugsFile(l.DrugsPath),
		LoadInteractionsFile(l.InteractionsPath),
		LoadDrugInfoFile(l.InfoPath),
	)

	if store.IsEmpty() {
		logging.Warn("Reference data is empty: names pass through unresolved and no interactions are reported")
	}

	logging.Info("Reference data loaded",
		"duration", time.Since(start).String(),
		"drugs", store.DrugCount(),
		"aliases", store.AliasCount(),
		"interactions", store.InteractionCount(),
		"drug_info", store.InfoCount(),
	)
	return store
}

func (l Loader) hasRemote() bool {
	return l.DrugsURL != "" || l.InteractionsURL != "" || l.InfoURL != ""
}
