package reference

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/giygas/rxscan-api/logging"
)

// maxDownloadSize caps a single reference file download
const maxDownloadSize = 64 << 20

// Source is a local reference file refreshed from a remote URL. Required lists the
// columns a download must have, each as its accepted header spellings.
type Source struct {
	Table    string
	Path     string
	URL      string
	Required [][]string
}

// Fetcher downloads reference files before they are loaded
type Fetcher struct {
	Client *http.Client
}

// NewFetcher creates a fetcher with a download timeout
func NewFetcher(timeout time.Duration) *Fetcher {
	return &Fetcher{Client: &http.Client{Timeout: timeout}}
}

// FetchAll downloads every source with a URL concurrently. A failed download leaves the
// existing local file in place; the returned error joins every failure.
func (f *Fetcher) FetchAll(ctx context.Context, sources []Source) error {
	var wg sync.WaitGroup
	var mu sync.Mutex
	var errs []error

	for _, src := range sources {
		if src.URL == "" {
			continue
		}
		wg.Add(1)
		go func(src Source) {
			defer wg.Done()
			if err := f.fetch(ctx, src); err != nil {
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
			}
		}(src)
	}
	wg.Wait()

	return errors.Join(errs...)
}

// fetch downloads one source and swaps it into place. The body must parse as a reference
// CSV with the table's required columns and at least one row, so an error page never
// replaces a usable file.
func (f *Fetcher) fetch(ctx context.Context, src Source) error {
	if src.Path == "" {
		return fmt.Errorf("%s: no local path to store %s", src.Table, src.URL)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src.URL, nil)
	if err != nil {
		return fmt.Errorf("%s: invalid url: %w", src.Table, err)
	}

	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("%s: failed to download %s: %w", src.Table, src.URL, err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			logging.Warn("Failed to close response body", "error", err)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s: download %s returned %s", src.Table, src.URL, resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxDownloadSize+1))
	if err != nil {
		return fmt.Errorf("%s: failed to read response body: %w", src.Table, err)
	}
	if len(body) > maxDownloadSize {
		return fmt.Errorf("%s: download exceeds %d bytes", src.Table, maxDownloadSize)
	}

	t, err := readTable(bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%s: downloaded file is not usable: %w", src.Table, err)
	}
	for _, names := range src.Required {
		if t.column(names) < 0 {
			return fmt.Errorf("%s: downloaded file has no %s column", src.Table, names[0])
		}
	}
	if len(t.rows) == 0 {
		return fmt.Errorf("%s: downloaded file has no rows", src.Table)
	}

	if err := writeAtomic(src.Path, body); err != nil {
		return fmt.Errorf("%s: %w", src.Table, err)
	}

	logging.Debug("Reference file downloaded", "table", src.Table, "path", src.Path, "bytes", len(body), "rows", len(t.rows))
	return nil
}

// writeAtomic writes data next to path and renames it over path
func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to write %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to close %s: %w", tmpName, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}
