package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

const (
	filePrefix         = "rxscan-"
	defaultMaxFileSize = 100 * 1024 * 1024
	cleanupInterval    = 24 * time.Hour
)

var numberedFileRegex = regexp.MustCompile(`^` + filePrefix + `\d{4}-W\d{2}_(\d{2})\.log$`)

// RotatingLogger is an io.Writer over weekly log files. A week's file is split into
// numbered parts once it reaches maxFileSize, and files older than the retention
// period are removed by a background sweep.
type RotatingLogger struct {
	logDir      string
	currentFile *os.File
	currentWeek string
	retention   time.Duration
	maxFileSize int64
	currentSize atomic.Int64
	mu          sync.Mutex

	stop        chan struct{}
	cleanupDone chan struct{}
	startOnce   sync.Once
	closeOnce   sync.Once
	started     atomic.Bool
}

// NewRotatingLogger creates a rotating logger with the default 100MB file size limit
func NewRotatingLogger(logDir string, retentionWeeks int) *RotatingLogger {
	return NewRotatingLoggerWithSizeLimit(logDir, retentionWeeks, defaultMaxFileSize)
}

// NewRotatingLoggerWithSizeLimit creates a rotating logger with a custom size limit. Zero disables size rotation.
func NewRotatingLoggerWithSizeLimit(logDir string, retentionWeeks int, maxFileSize int64) *RotatingLogger {
	return &RotatingLogger{
		logDir:      logDir,
		retention:   time.Duration(retentionWeeks) * 7 * 24 * time.Hour,
		maxFileSize: maxFileSize,
		stop:        make(chan struct{}),
		cleanupDone: make(chan struct{}),
	}
}

// getWeekKey returns the ISO week key in YYYY-Www format
func getWeekKey(t time.Time) string {
	year, week := t.ISOWeek()
	return fmt.Sprintf("%d-W%02d", year, week)
}

// open opens the file for the current week. Used once at startup so configuration
// problems surface before the first write.
func (rl *RotatingLogger) open() error {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return rl.doRotate(getWeekKey(time.Now()))
}

// doRotate switches to the right file for targetWeek (caller must hold the lock)
func (rl *RotatingLogger) doRotate(targetWeek string) error {
	if rl.currentFile != nil {
		_ = rl.currentFile.Close()
		rl.currentFile = nil
	}

	sizeRotation := rl.maxFileSize > 0 && rl.currentSize.Load() >= rl.maxFileSize
	fileName, fresh := rl.pickFile(targetWeek, sizeRotation)

	logPath := filepath.Join(rl.logDir, fileName)
	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open log file %s: %w", logPath, err)
	}

	rl.currentFile = file
	rl.currentWeek = targetWeek

	if fresh {
		rl.currentSize.Store(0)
	} else if info, statErr := file.Stat(); statErr == nil {
		rl.currentSize.Store(info.Size())
	}
	return nil
}

// pickFile chooses the base file of the week or its next numbered part. fresh reports
// that the chosen file is new and its size starts at zero.
func (rl *RotatingLogger) pickFile(week string, sizeRotation bool) (string, bool) {
	base := filePrefix + week + ".log"

	if !sizeRotation {
		info, err := os.Stat(filepath.Join(rl.logDir, base))
		if err != nil || rl.maxFileSize == 0 || info.Size() < rl.maxFileSize {
			return base, false
		}
	}

	highest, lastPath, lastSize := rl.lastNumberedPart(week)
	if lastPath != "" && lastSize < rl.maxFileSize {
		return filepath.Base(lastPath), false
	}
	return fmt.Sprintf("%s%s_%02d.log", filePrefix, week, highest+1), true
}

// lastNumberedPart returns the highest part number of week with its path and size
func (rl *RotatingLogger) lastNumberedPart(week string) (int, string, int64) {
	matches, _ := filepath.Glob(filepath.Join(rl.logDir, filePrefix+week+"_??.log"))

	highest := 0
	var lastPath string
	var lastSize int64
	for _, path := range matches {
		sub := numberedFileRegex.FindStringSubmatch(filepath.Base(path))
		if len(sub) < 2 {
			continue
		}
		num, _ := strconv.Atoi(sub[1])
		if num <= highest {
			continue
		}
		highest, lastPath, lastSize = num, path, 0
		if info, err := os.Stat(path); err == nil {
			lastSize = info.Size()
		}
	}
	return highest, lastPath, lastSize
}

// Write writes p to the current file, rotating first on a week change or when p
// would push the file past its size limit.
func (rl *RotatingLogger) Write(p []byte) (int, error) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	week := getWeekKey(time.Now())
	rotate := rl.currentFile == nil || rl.currentWeek != week

	if !rotate && rl.maxFileSize > 0 {
		size := rl.currentSize.Load()
		if size > 0 && size+int64(len(p)) > rl.maxFileSize {
			rotate = true
			rl.currentSize.Store(rl.maxFileSize)
		}
	}

	if rotate {
		if err := rl.doRotate(week); err != nil {
			return 0, err
		}
	}

	n, err := rl.currentFile.Write(p)
	rl.currentSize.Add(int64(n))
	return n, err
}

// cleanupOldLogs removes log files last modified before the retention period
func (rl *RotatingLogger) cleanupOldLogs() (int, error) {
	entries, err := os.ReadDir(rl.logDir)
	if err != nil {
		return 0, fmt.Errorf("failed to read log directory: %w", err)
	}

	cutoff := time.Now().Add(-rl.retention)
	deleted := 0
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, filePrefix) || !strings.HasSuffix(name, ".log") {
			continue
		}
		info, err := entry.Info()
		if err != nil || !info.ModTime().Before(cutoff) {
			continue
		}
		if os.Remove(filepath.Join(rl.logDir, name)) == nil {
			deleted++
		}
	}
	return deleted, nil
}

// startCleanup runs the retention sweep every interval until Close
func (rl *RotatingLogger) startCleanup(interval time.Duration) {
	rl.startOnce.Do(func() {
		rl.started.Store(true)
		go func() {
			defer close(rl.cleanupDone)
			ticker := time.NewTicker(interval)
			defer ticker.Stop()

			for {
				select {
				case <-rl.stop:
					return
				case <-ticker.C:
					// Console only: writing through slog here would re-enter Write.
					if deleted, err := rl.cleanupOldLogs(); err != nil {
						fmt.Fprintf(os.Stderr, "log cleanup failed: %v\n", err)
					} else if deleted > 0 {
						fmt.Fprintf(os.Stderr, "cleaned up %d old log files\n", deleted)
					}
				}
			}
		}()
	})
}

// Close stops the background sweep and closes the current file
func (rl *RotatingLogger) Close() error {
	var err error
	rl.closeOnce.Do(func() {
		close(rl.stop)
		if rl.started.Load() {
			<-rl.cleanupDone
		}

		rl.mu.Lock()
		defer rl.mu.Unlock()
		if rl.currentFile != nil {
			err = rl.currentFile.Close()
			rl.currentFile = nil
		}
	})
	return err
}
