package llm

import (
	"context"
	"fmt"
	"sort"
)

// Service routes generation calls to the provider owning the requested
// model. Providers whose credential is absent are simply not registered;
// resolving a model for such a provider yields ErrProviderNotInitialized.
type Service struct {
	providers map[string]Provider
}

// NewService creates an empty registry.
func NewService() *Service {
	return &Service{providers: map[string]Provider{}}
}

// Register adds a provider under the given name.
func (s *Service) Register(name string, p Provider) {
	s.providers[name] = p
}

// Resolve maps a model name to its registered provider.
func (s *Service) Resolve(model string) (Provider, error) {
	name, ok := providerForModel(model)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedModel, model)
	}
	p, ok := s.providers[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s (model %s)", ErrProviderNotInitialized, name, model)
	}
	return p, nil
}

// StreamChat opens a completion stream on the provider owning model.
func (s *Service) StreamChat(ctx context.Context, model string, messages []Message, opts Options) (Stream, error) {
	p, err := s.Resolve(model)
	if err != nil {
		return nil, err
	}
	return p.StreamChat(ctx, model, messages, opts)
}

// ChatCompletion returns the full completion text by draining the stream.
func (s *Service) ChatCompletion(ctx context.Context, model string, messages []Message, opts Options) (string, error) {
	stream, err := s.StreamChat(ctx, model, messages, opts)
	if err != nil {
		return "", err
	}
	return drainStream(stream)
}

// AvailableModels returns the known models of each initialized provider.
func (s *Service) AvailableModels() map[string][]string {
	available := map[string][]string{}
	for name := range s.providers {
		var models []string
		for model, provider := range modelProviders {
			if provider == name {
				models = append(models, model)
			}
		}
		sort.Strings(models)
		available[name] = models
	}
	return available
}

// DefaultModels returns the default model of each initialized provider.
func (s *Service) DefaultModels() map[string]string {
	defaults := map[string]string{}
	for name := range s.providers {
		if model, ok := defaultModels[name]; ok {
			defaults[name] = model
		}
	}
	return defaults
}

// HasProvider reports whether the named provider is initialized.
func (s *Service) HasProvider(name string) bool {
	_, ok := s.providers[name]
	return ok
}
