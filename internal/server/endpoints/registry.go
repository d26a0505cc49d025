package endpoints

import (
	"github.com/jackzampolin/ieltsmeta/internal/api"
)

// All returns all endpoint instances.
func All() []api.Endpoint {
	return []api.Endpoint{
		// Service info and health
		&RootEndpoint{},
		&HealthEndpoint{},
		&StatusEndpoint{},

		// Extraction
		&ExtractURLEndpoint{},
		&ExtractFileEndpoint{},
		&ExtractBatchEndpoint{},

		// Schema and prompts
		&SchemaEndpoint{},
		&ListPromptsEndpoint{},
		&GetPromptEndpoint{},

		// LLM call history
		&ListLLMCallsEndpoint{},
		&LLMCallCountsEndpoint{},
		&GetLLMCallEndpoint{},

		// Swagger/OpenAPI
		&SwaggerEndpoint{},
		&SwaggerUIEndpoint{},
	}
}
