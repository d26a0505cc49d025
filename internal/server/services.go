package server

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackzampolin/ieltsmeta/internal/batch"
	"github.com/jackzampolin/ieltsmeta/internal/config"
	"github.com/jackzampolin/ieltsmeta/internal/extract"
	"github.com/jackzampolin/ieltsmeta/internal/images"
	"github.com/jackzampolin/ieltsmeta/internal/inference"
	"github.com/jackzampolin/ieltsmeta/internal/llmcall"
	"github.com/jackzampolin/ieltsmeta/internal/prompts"
	"github.com/jackzampolin/ieltsmeta/internal/prompts/task1"
	"github.com/jackzampolin/ieltsmeta/internal/providers"
	"github.com/jackzampolin/ieltsmeta/internal/schema"
	"github.com/jackzampolin/ieltsmeta/internal/svcctx"
)

// ServicesConfig configures NewServices.
type ServicesConfig struct {
	ConfigManager *config.Manager

	// Registry is built from the config when nil.
	Registry *providers.Registry

	Logger *slog.Logger
}

// NewServices wires the extraction stack from configuration. The engine is
// returned closed; callers Open it before extracting.
func NewServices(cfg ServicesConfig) (*svcctx.Services, error) {
	if cfg.ConfigManager == nil {
		return nil, errors.New("config manager is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	logger := cfg.Logger
	c := cfg.ConfigManager.Get()

	registry := cfg.Registry
	if registry == nil {
		registry = providers.NewRegistry()
		registry.SetLogger(logger)
		registry.Reload(c.ToProviderRegistryConfig())
	}

	store := llmcall.NewStore(c.LLMCalls.Capacity)

	engine, err := inference.NewEngine(inference.Config{
		Provider: c.Model.Provider,
		Replicas: c.Model.Replicas,
		RPS:      c.Model.RateLimit,
		Registry: registry,
		Recorder: llmcall.NewRecorder(store),
		Logger:   logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create inference engine: %w", err)
	}

	schemaReg, err := schema.NewRegistry()
	if err != nil {
		return nil, fmt.Errorf("failed to load schema: %w", err)
	}

	promptReg := prompts.NewRegistry(logger)
	task1.RegisterPrompts(promptReg)

	fetcher := images.NewFetcher(images.FetcherConfig{
		Timeout:  time.Duration(c.Images.FetchTimeoutSeconds) * time.Second,
		Attempts: uint(max(c.Images.FetchAttempts, 0)),
		MaxBytes: c.Images.MaxBytes,
		Logger:   logger,
	})

	pipeline, err := extract.New(extract.Config{
		Engine:         engine,
		Schema:         schemaReg,
		Fetcher:        fetcher,
		Logger:         logger,
		Timeout:        c.Model.Timeout(),
		InlineRemote:   c.Images.InlineRemote,
		MaxImageBytes:  c.Images.MaxBytes,
		MaxImagePixels: c.Images.MaxPixels,
		MaxTokens:      c.Model.MaxTokens,
		Temperature:    c.Model.Temperature,
		Model:          c.Model.Name,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create pipeline: %w", err)
	}

	coordinator, err := batch.NewCoordinator(batch.Config{
		Extractor:   pipeline,
		Concurrency: c.Batch.Concurrency,
		Logger:      logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create batch coordinator: %w", err)
	}

	return &svcctx.Services{
		Registry:      registry,
		Engine:        engine,
		Pipeline:      pipeline,
		Batch:         coordinator,
		Schema:        schemaReg,
		Prompts:       promptReg,
		LLMCallStore:  store,
		ConfigManager: cfg.ConfigManager,
		Logger:        logger,
	}, nil
}
