// Package llm sends grading prompts to text-generation backends.
package llm

import (
	"context"
	"errors"
	"fmt"
	"sort"
)

var (
	// ErrMissingCredential is returned by a backend that has no API key configured.
	ErrMissingCredential = errors.New("missing credential")
	// ErrUnknownBackend is returned when no backend is registered under a name.
	ErrUnknownBackend = errors.New("unknown backend")
	// ErrEmptyResponse is returned when a backend answers without any text.
	ErrEmptyResponse = errors.New("empty response")
)

// Backend generates text for a single prompt.
type Backend interface {
	Name() string
	Generate(ctx context.Context, prompt string) (string, error)
}

// StatusError reports a non-success HTTP answer from a backend.
type StatusError struct {
	Backend string
	Code    int
	Body    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: status %d: %s", e.Backend, e.Code, e.Body)
}

// ProviderConfig configures one backend.
type ProviderConfig struct {
	Name  string
	URL   string
	Key   string
	Model string
}

// Registry holds the configured backends by name.
type Registry struct {
	backends map[string]Backend
}

// NewRegistry creates a registry with the given backends.
func NewRegistry(backends ...Backend) *Registry {
	r := &Registry{backends: make(map[string]Backend)}
	for _, b := range backends {
		r.Register(b)
	}
	return r
}

// NewRegistryFromConfig builds the known providers. A provider without a key
// is still registered so that selecting it yields a credential diagnostic.
func NewRegistryFromConfig(cfgs []ProviderConfig) (*Registry, error) {
	r := NewRegistry()
	for _, c := range cfgs {
		if c.Key == "" {
			r.Register(unavailable{name: c.Name})
			continue
		}
		switch c.Name {
		case "openai":
			r.Register(NewOpenAI(c.URL, c.Key, c.Model))
		case "gemini":
			r.Register(NewGemini(c.URL, c.Key, c.Model))
		default:
			return nil, fmt.Errorf("%w: %s", ErrUnknownBackend, c.Name)
		}
	}
	return r, nil
}

// Register adds or replaces a backend.
func (r *Registry) Register(b Backend) {
	r.backends[b.Name()] = b
}

// Get returns the backend registered under name.
func (r *Registry) Get(name string) (Backend, error) {
	b, ok := r.backends[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownBackend, name)
	}
	return b, nil
}

// Names lists the registered backends in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.backends))
	for n := range r.backends {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

type unavailable struct {
	name string
}

func (u unavailable) Name() string { return u.name }

func (u unavailable) Generate(context.Context, string) (string, error) {
	return "", fmt.Errorf("%w: %s", ErrMissingCredential, u.name)
}
