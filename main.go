package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/giygas/rxscan-api/analysis"
	"github.com/giygas/rxscan-api/config"
	"github.com/giygas/rxscan-api/data"
	"github.com/giygas/rxscan-api/extraction"
	"github.com/giygas/rxscan-api/health"
	"github.com/giygas/rxscan-api/interfaces"
	"github.com/giygas/rxscan-api/llm"
	"github.com/giygas/rxscan-api/logging"
	"github.com/giygas/rxscan-api/mcpserver"
	"github.com/giygas/rxscan-api/narrative"
	"github.com/giygas/rxscan-api/prompts"
	"github.com/giygas/rxscan-api/reference"
	"github.com/giygas/rxscan-api/scheduler"
	"github.com/giygas/rxscan-api/server"
	"github.com/giygas/rxscan-api/speech"
	"github.com/giygas/rxscan-api/validation"
	"github.com/joho/godotenv"
)

const version = "1.0.0"

// collaborators are the optional model-backed stages of the pipeline
type collaborators struct {
	extractor  interfaces.Extractor
	explainer  interfaces.Explainer
	translator interfaces.Translator
	speaker    interfaces.Speaker
	closers    []io.Closer
}

func (c *collaborators) Close() {
	for _, closer := range c.closers {
		if err := closer.Close(); err != nil {
			logging.Warn("Failed to close collaborator client", "error", err)
		}
	}
}

// buildCollaborators creates every collaborator the configuration allows. Missing keys
// disable the matching stage instead of failing startup.
func buildCollaborators(ctx context.Context, cfg *config.Config, p *prompts.Prompts) *collaborators {
	c := &collaborators{}

	if cfg.GeminiAPIKey != "" {
		extractor, err := extraction.NewGemini(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, p)
		if err != nil {
			logging.Error("Image extraction disabled", "error", err)
		} else {
			c.extractor = extractor
			c.closers = append(c.closers, extractor)
		}
	} else {
		logging.Warn("GEMINI_API_KEY not set, image analysis is disabled")
	}

	client, err := llm.NewClient(ctx, llm.ConfigFrom(cfg))
	if err != nil {
		logging.Warn("Text model unavailable, explanations stay composed and in English",
			"provider", cfg.LLMProvider, "error", err)
	} else {
		if closer, ok := client.(io.Closer); ok {
			c.closers = append(c.closers, closer)
		}
		if cfg.AIExplanation {
			c.explainer = narrative.NewExplainer(client, p)
		}
		c.translator = narrative.NewTranslator(client, p)
	}

	if cfg.OpenAIAPIKey != "" {
		speaker, err := speech.NewOpenAI(cfg.OpenAIAPIKey, cfg.TTSVoice, cfg.OpenAIBaseURL)
		if err != nil {
			logging.Error("Speech synthesis disabled", "error", err)
		} else {
			c.speaker = speaker
		}
	} else {
		logging.Info("OPENAI_API_KEY not set, speech synthesis is disabled")
	}

	return c
}

// newAnalysisService wires the pipeline over the data container
func newAnalysisService(cfg *config.Config, dc interfaces.DataStore, c *collaborators) *analysis.Service {
	opts := []analysis.Option{analysis.WithThresholds(cfg.FuzzyThreshold, cfg.TextScanThreshold)}
	if c.extractor != nil {
		opts = append(opts, analysis.WithExtractor(c.extractor))
	}
	if c.explainer != nil {
		opts = append(opts, analysis.WithExplainer(c.explainer))
	}
	if c.translator != nil {
		opts = append(opts, analysis.WithTranslator(c.translator))
	}
	return analysis.NewService(dc, opts...)
}

func loadEnv() {
	if err := godotenv.Load(); err == nil {
		return
	}

	// Fall back to a .env next to the executable
	ex, err := os.Executable()
	if err != nil {
		return
	}
	if err := godotenv.Load(filepath.Join(filepath.Dir(ex), ".env")); err != nil {
		fmt.Fprintln(os.Stderr, "No .env file found, using environment variables only")
	}
}

func main() {
	loadEnv()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		os.Exit(1)
	}

	logging.InitLoggerFromConfig(cfg)
	defer func() {
		if err := logging.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to close logger: %v\n", err)
		}
	}()

	p, err := prompts.Load(cfg.PromptsFile)
	if err != nil {
		logging.Error("Failed to load prompts", "error", err)
		os.Exit(1)
	}

	dataContainer := data.NewDataContainer()
	dataContainer.SetServerStartTime(time.Now())

	loader := reference.Loader{
		DrugsPath:        cfg.DrugsCSV,
		InteractionsPath: cfg.InteractionsCSV,
		InfoPath:         cfg.DrugInfoCSV,
		DrugsURL:         cfg.DrugsURL,
		InteractionsURL:  cfg.InteractionsURL,
		InfoURL:          cfg.DrugInfoURL,
	}
	sched := scheduler.NewScheduler(dataContainer, loader, cfg.ReferenceReload)
	if err := sched.Start(); err != nil {
		logging.Error("Failed to start scheduler", "error", err)
		os.Exit(1)
	}
	defer sched.Stop()

	ctx := context.Background()
	collab := buildCollaborators(ctx, cfg, p)
	defer collab.Close()

	service := newAnalysisService(cfg, dataContainer, collab)
	validator := validation.NewInputValidator()

	deps := server.Dependencies{
		Analyzer:      service,
		Validator:     validator,
		Speaker:       collab.speaker,
		HealthChecker: health.NewHealthChecker(dataContainer, sched),
	}
	if cfg.MCPEnabled {
		deps.MCP = mcpserver.NewServer(service, validator, version).Handler()
	}

	srv := server.NewServer(cfg, dataContainer, deps)
	logging.Info("Service ready", "version", version, "health", srv.GetHealthData())

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serverErr := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case <-quit:
	case err := <-serverErr:
		logging.Error("Server failed to start", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logging.Error("Server shutdown failed", "error", err)
	}
}
