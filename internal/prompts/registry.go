package prompts

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"
)

// Registry holds the embedded prompts by key.
type Registry struct {
	mu       sync.RWMutex
	embedded map[string]EmbeddedPrompt
	logger   *slog.Logger
}

// NewRegistry creates an empty prompt registry.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		embedded: make(map[string]EmbeddedPrompt),
		logger:   logger,
	}
}

// Register adds an embedded prompt, filling in its hash and variables.
func (r *Registry) Register(prompt EmbeddedPrompt) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if prompt.Hash == "" {
		prompt.Hash = HashText(prompt.Text)
	}
	if prompt.Variables == nil {
		prompt.Variables = ExtractVariables(prompt.Template)
	}

	r.embedded[prompt.Key] = prompt
	r.logger.Debug("registered embedded prompt", "key", prompt.Key, "hash", prompt.Hash)
}

// Get returns a registered prompt by key.
func (r *Registry) Get(key string) (EmbeddedPrompt, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.embedded[key]
	if !ok {
		return EmbeddedPrompt{}, fmt.Errorf("prompt not found: %s", key)
	}
	return p, nil
}

// List returns every registered prompt ordered by key.
func (r *Registry) List() []EmbeddedPrompt {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]EmbeddedPrompt, 0, len(r.embedded))
	for _, p := range r.embedded {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}
