package providers

import (
	"fmt"
	"log/slog"
	"sync"
)

// Registry holds references to named LLM clients.
// Thread-safe so config reloads can swap clients under running pipelines.
type Registry struct {
	mu         sync.RWMutex
	llmClients map[string]LLMClient
	logger     *slog.Logger
}

// NewRegistry creates a new empty provider registry.
func NewRegistry() *Registry {
	return &Registry{
		llmClients: make(map[string]LLMClient),
		logger:     slog.Default(),
	}
}

// SetLogger sets the logger for the registry.
func (r *Registry) SetLogger(logger *slog.Logger) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logger = logger
}

// RegisterLLM registers an LLM client by name.
func (r *Registry) RegisterLLM(name string, client LLMClient) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.llmClients[name] = client
	if r.logger != nil {
		r.logger.Info("registered LLM client", "name", name)
	}
}

// LLM returns the LLM client registered under name.
func (r *Registry) LLM(name string) (LLMClient, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	client, ok := r.llmClients[name]
	if !ok {
		return nil, fmt.Errorf("no LLM client registered under %q", name)
	}
	return client, nil
}

// Names returns the registered client names.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.llmClients))
	for name := range r.llmClients {
		names = append(names, name)
	}
	return names
}
