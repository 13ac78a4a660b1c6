package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/giygas/rxscan-api/config"
)

// Options controls where and how verbosely the service logs
type Options struct {
	Dir            string // empty logs to the console only
	Env            config.Environment
	Level          string
	RetentionWeeks int
	MaxFileSize    int64
	Verbose        bool      // keeps console output in the test environment
	Output         io.Writer // console destination, stdout when nil
}

type LoggingService struct {
	Logger   *slog.Logger
	rotating *RotatingLogger
}

var (
	DefaultLoggingService *LoggingService

	fallbackOnce   sync.Once
	fallbackLogger *slog.Logger
)

// InitLogger initializes the global logger with development defaults
func InitLogger(logDir string) {
	InitLoggerWithOptions(Options{
		Dir:            logDir,
		Env:            config.EnvDevelopment,
		RetentionWeeks: 4,
		MaxFileSize:    defaultMaxFileSize,
	})
}

// InitLoggerFromConfig initializes the global logger from the service configuration
func InitLoggerFromConfig(cfg *config.Config) {
	InitLoggerWithOptions(Options{
		Dir:            cfg.LogDir,
		Env:            cfg.Env,
		Level:          cfg.LogLevel,
		RetentionWeeks: cfg.LogRetentionWeeks,
		MaxFileSize:    cfg.MaxLogFileSize,
	})
}

// InitLoggerWithOptions replaces the global logger. A previously installed file logger is closed.
func InitLoggerWithOptions(opts Options) {
	_ = Close()

	service := newLoggingService(opts)
	DefaultLoggingService = service
	slog.SetDefault(service.Logger)
}

func newLoggingService(opts Options) *LoggingService {
	out := opts.Output
	if out == nil {
		out = os.Stdout
	}
	console := slog.NewTextHandler(out, &slog.HandlerOptions{
		Level: GetConsoleLogLevel(opts.Env, opts.Level, opts.Verbose),
	})

	if opts.Dir == "" {
		return &LoggingService{Logger: slog.New(console)}
	}

	rotating, err := openRotatingLogger(opts)
	if err != nil {
		logger := slog.New(console)
		logger.Error("File logging disabled, continuing on console", "dir", opts.Dir, "error", err)
		return &LoggingService{Logger: logger}
	}

	file := slog.NewJSONHandler(rotating, &slog.HandlerOptions{Level: GetFileLogLevel()})
	return &LoggingService{
		Logger:   slog.New(newMultiHandler(console, file)),
		rotating: rotating,
	}
}

func openRotatingLogger(opts Options) (*RotatingLogger, error) {
	if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	retention := opts.RetentionWeeks
	if retention <= 0 {
		retention = 4
	}
	rotating := NewRotatingLoggerWithSizeLimit(opts.Dir, retention, opts.MaxFileSize)
	if err := rotating.open(); err != nil {
		return nil, err
	}
	rotating.startCleanup(cleanupInterval)
	return rotating, nil
}

// Close flushes and closes the file logger, if any
func Close() error {
	if DefaultLoggingService == nil || DefaultLoggingService.rotating == nil {
		return nil
	}
	err := DefaultLoggingService.rotating.Close()
	DefaultLoggingService.rotating = nil
	return err
}

// parseLogLevel maps a level name to slog, defaulting to info
func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// GetConsoleLogLevel picks the console level. Tests stay quiet unless verbose;
// otherwise an explicit level wins over the environment default.
func GetConsoleLogLevel(env config.Environment, level string, verbose bool) slog.Level {
	if env == config.EnvTest {
		if verbose {
			return slog.LevelInfo
		}
		return slog.LevelError
	}
	if level != "" {
		return parseLogLevel(level)
	}
	if env == config.EnvProduction || env == config.EnvStaging {
		return slog.LevelWarn
	}
	return slog.LevelInfo
}

// GetFileLogLevel returns the file level; the file always keeps debug detail
func GetFileLogLevel() slog.Level {
	return slog.LevelDebug
}

// Logger returns the global logger, or a console fallback when uninitialized
func Logger() *slog.Logger {
	if DefaultLoggingService != nil && DefaultLoggingService.Logger != nil {
		return DefaultLoggingService.Logger
	}
	fallbackOnce.Do(func() {
		fallbackLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		}))
	})
	return fallbackLogger
}

// Package-level functions for direct access

func Info(msg string, args ...any) {
	Logger().Info(msg, args...)
}

func Error(msg string, args ...any) {
	Logger().Error(msg, args...)
}

func Warn(msg string, args ...any) {
	Logger().Warn(msg, args...)
}

func Debug(msg string, args ...any) {
	Logger().Debug(msg, args...)
}
