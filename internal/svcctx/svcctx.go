// Package svcctx provides service context for dependency injection via context.
// This package is separate from server to avoid import cycles with endpoints.
package svcctx

import (
	"context"
	"log/slog"

	"github.com/jackzampolin/ieltsmeta/internal/batch"
	"github.com/jackzampolin/ieltsmeta/internal/config"
	"github.com/jackzampolin/ieltsmeta/internal/extract"
	"github.com/jackzampolin/ieltsmeta/internal/inference"
	"github.com/jackzampolin/ieltsmeta/internal/llmcall"
	"github.com/jackzampolin/ieltsmeta/internal/prompts"
	"github.com/jackzampolin/ieltsmeta/internal/providers"
	"github.com/jackzampolin/ieltsmeta/internal/schema"
)

// Services holds all core services that flow through context.
// Components extract what they need via the individual extractors.
type Services struct {
	Registry      *providers.Registry
	Engine        *inference.Engine
	Pipeline      *extract.Pipeline
	Batch         *batch.Coordinator
	Schema        *schema.Registry
	Prompts       *prompts.Registry
	LLMCallStore  *llmcall.Store
	ConfigManager *config.Manager
	Logger        *slog.Logger
}

type servicesKey struct{}

// WithServices returns a new context with services attached.
func WithServices(ctx context.Context, s *Services) context.Context {
	return context.WithValue(ctx, servicesKey{}, s)
}

// ServicesFrom extracts the full Services struct from context.
// Returns nil if not present.
func ServicesFrom(ctx context.Context) *Services {
	s, _ := ctx.Value(servicesKey{}).(*Services)
	return s
}

// RegistryFrom extracts the provider registry from context.
func RegistryFrom(ctx context.Context) *providers.Registry {
	if s := ServicesFrom(ctx); s != nil {
		return s.Registry
	}
	return nil
}

// EngineFrom extracts the inference engine from context.
func EngineFrom(ctx context.Context) *inference.Engine {
	if s := ServicesFrom(ctx); s != nil {
		return s.Engine
	}
	return nil
}

// PipelineFrom extracts the extraction pipeline from context.
func PipelineFrom(ctx context.Context) *extract.Pipeline {
	if s := ServicesFrom(ctx); s != nil {
		return s.Pipeline
	}
	return nil
}

// BatchFrom extracts the batch coordinator from context.
func BatchFrom(ctx context.Context) *batch.Coordinator {
	if s := ServicesFrom(ctx); s != nil {
		return s.Batch
	}
	return nil
}

// SchemaFrom extracts the schema registry from context.
func SchemaFrom(ctx context.Context) *schema.Registry {
	if s := ServicesFrom(ctx); s != nil {
		return s.Schema
	}
	return nil
}

// PromptsFrom extracts the prompt registry from context.
func PromptsFrom(ctx context.Context) *prompts.Registry {
	if s := ServicesFrom(ctx); s != nil {
		return s.Prompts
	}
	return nil
}

// LLMCallStoreFrom extracts the LLM call store from context.
func LLMCallStoreFrom(ctx context.Context) *llmcall.Store {
	if s := ServicesFrom(ctx); s != nil {
		return s.LLMCallStore
	}
	return nil
}

// ConfigFrom returns the current configuration, or nil without a manager.
func ConfigFrom(ctx context.Context) *config.Config {
	if s := ServicesFrom(ctx); s != nil && s.ConfigManager != nil {
		return s.ConfigManager.Get()
	}
	return nil
}

// LoggerFrom extracts the logger from context.
func LoggerFrom(ctx context.Context) *slog.Logger {
	if s := ServicesFrom(ctx); s != nil {
		return s.Logger
	}
	return nil
}
