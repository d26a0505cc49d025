// Package inference owns the handle to the vision model. The Engine is opened
// once at startup, closed at shutdown and bounds how many inferences run
// against the model at the same time.
package inference

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/semaphore"

	"github.com/jackzampolin/ieltsmeta/internal/llmcall"
	"github.com/jackzampolin/ieltsmeta/internal/providers"
)

var (
	// ErrNotLoaded is returned by Chat before Open or after Close.
	ErrNotLoaded = errors.New("inference engine is not loaded")
)

// Config configures an Engine.
type Config struct {
	// Provider is the registry name of the LLM client to use.
	Provider string

	// Replicas is the number of inferences allowed in flight (default: 1).
	Replicas int

	// RPS overrides the provider's requests-per-second limit when > 0.
	RPS float64

	Registry *providers.Registry
	Recorder *llmcall.Recorder
	Logger   *slog.Logger
}

// Engine serializes access to the configured LLM client.
type Engine struct {
	provider string
	replicas int
	rps      float64
	registry *providers.Registry
	recorder *llmcall.Recorder
	logger   *slog.Logger

	mu      sync.RWMutex
	loaded  bool
	sem     *semaphore.Weighted
	limiter *providers.RateLimiter

	inFlight atomic.Int64
	total    atomic.Int64
	failed   atomic.Int64
}

// Status reports the engine state.
type Status struct {
	Provider    string                       `json:"provider"`
	Loaded      bool                         `json:"loaded"`
	Replicas    int                          `json:"replicas"`
	InFlight    int64                        `json:"in_flight"`
	Total       int64                        `json:"total"`
	Failed      int64                        `json:"failed"`
	RateLimiter *providers.RateLimiterStatus `json:"rate_limiter,omitempty"`
}

// NewEngine creates an unopened Engine.
func NewEngine(cfg Config) (*Engine, error) {
	if cfg.Registry == nil {
		return nil, fmt.Errorf("registry is required")
	}
	if cfg.Provider == "" {
		return nil, fmt.Errorf("provider is required")
	}
	if cfg.Replicas <= 0 {
		cfg.Replicas = 1
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Engine{
		provider: cfg.Provider,
		replicas: cfg.Replicas,
		rps:      cfg.RPS,
		registry: cfg.Registry,
		recorder: cfg.Recorder,
		logger:   logger.With("component", "inference", "provider", cfg.Provider),
	}, nil
}

// rateProvider is implemented by clients that advertise their own limit.
type rateProvider interface {
	RequestsPerSecond() float64
}

// Open resolves the provider and prepares the engine for use. Calling Open
// on an open engine is a no-op.
func (e *Engine) Open(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.loaded {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	client, err := e.registry.GetLLM(e.provider)
	if err != nil {
		return fmt.Errorf("failed to open inference engine: %w", err)
	}

	rps := e.rps
	if rps <= 0 {
		if rp, ok := client.(rateProvider); ok {
			rps = rp.RequestsPerSecond()
		}
	}

	e.sem = semaphore.NewWeighted(int64(e.replicas))
	e.limiter = providers.NewRateLimiter(rps)
	e.loaded = true
	e.logger.Info("inference engine opened", "client", client.Name(), "replicas", e.replicas, "rps", rps)
	return nil
}

// Close waits for in-flight inferences to finish and releases the engine.
// ctx bounds the wait.
func (e *Engine) Close(ctx context.Context) error {
	e.mu.Lock()
	if !e.loaded {
		e.mu.Unlock()
		return nil
	}
	e.loaded = false
	sem := e.sem
	e.mu.Unlock()

	if err := sem.Acquire(ctx, int64(e.replicas)); err != nil {
		return fmt.Errorf("inference engine closed with %d calls in flight: %w", e.inFlight.Load(), err)
	}
	sem.Release(int64(e.replicas))

	e.logger.Info("inference engine closed", "total", e.total.Load(), "failed", e.failed.Load())
	return nil
}

// Loaded reports whether the engine is open and its provider is registered.
func (e *Engine) Loaded() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.loaded && e.registry.HasLLM(e.provider)
}

// Chat runs one inference. It blocks until a replica slot and a rate limit
// token are available, then calls the provider registered under the
// engine's name. The provider is looked up per call so registry reloads take
// effect without reopening the engine.
func (e *Engine) Chat(ctx context.Context, req *providers.ChatRequest, opts llmcall.RecordOptions) (*providers.ChatResult, error) {
	e.mu.RLock()
	loaded, sem, limiter := e.loaded, e.sem, e.limiter
	e.mu.RUnlock()
	if !loaded {
		return nil, ErrNotLoaded
	}

	client, err := e.registry.GetLLM(e.provider)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotLoaded, err)
	}

	if err := sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer sem.Release(1)

	if err := limiter.Wait(ctx); err != nil {
		return nil, err
	}

	e.inFlight.Add(1)
	defer e.inFlight.Add(-1)
	e.total.Add(1)

	result, err := client.Chat(ctx, req)
	if err != nil {
		e.failed.Add(1)
		if rle, ok := providers.IsRateLimitError(err); ok {
			limiter.Record429(rle.RetryAfter)
		}
	}

	if result == nil && err != nil {
		result = &providers.ChatResult{
			Provider:     client.Name(),
			RequestID:    req.RequestID,
			ErrorType:    "transport_error",
			ErrorMessage: err.Error(),
		}
	}
	opts.Err = err
	if call := e.recorder.Record(result, opts); call != nil {
		e.logger.Debug("inference recorded",
			"call_id", call.ID,
			"model", call.Model,
			"latency_ms", call.LatencyMs,
			"success", call.Success)
	}

	return result, err
}

// Status returns the engine state.
func (e *Engine) Status() Status {
	e.mu.RLock()
	limiter := e.limiter
	loaded := e.loaded
	e.mu.RUnlock()

	s := Status{
		Provider: e.provider,
		Loaded:   loaded && e.registry.HasLLM(e.provider),
		Replicas: e.replicas,
		InFlight: e.inFlight.Load(),
		Total:    e.total.Load(),
		Failed:   e.failed.Load(),
	}
	if limiter != nil {
		rl := limiter.Status()
		s.RateLimiter = &rl
	}
	return s
}
