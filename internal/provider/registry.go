package provider

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"quoteflow/internal/domain"
	"quoteflow/internal/port"
)

// Factory builds one provider. A factory that fails leaves its provider
// unavailable; selecting it later yields a configuration error carrying the cause.
type Factory struct {
	Name domain.ProviderName
	New  func(ctx context.Context) (port.ExtractionProvider, error)
}

// Registry maps provider names to ready providers. It is read-only once built
// and safe for concurrent use.
type Registry struct {
	providers   map[domain.ProviderName]port.ExtractionProvider
	unavailable map[domain.ProviderName]error
}

// NewRegistry builds a registry from already-constructed providers.
func NewRegistry(providers ...port.ExtractionProvider) *Registry {
	r := &Registry{
		providers:   make(map[domain.ProviderName]port.ExtractionProvider, len(providers)),
		unavailable: map[domain.ProviderName]error{},
	}
	for _, p := range providers {
		r.providers[p.Name()] = p
	}
	return r
}

// BuildRegistry runs every factory once. Construction failures are logged and
// remembered rather than aborting startup.
func BuildRegistry(ctx context.Context, logger *zap.Logger, factories ...Factory) *Registry {
	r := NewRegistry()
	for _, f := range factories {
		p, err := f.New(ctx)
		if err != nil {
			logger.Warn("provider.unavailable", zap.String("provider", string(f.Name)), zap.Error(err))
			r.unavailable[f.Name] = err
			continue
		}
		r.providers[f.Name] = p
		logger.Info("provider.registered", zap.String("provider", string(f.Name)))
	}
	return r
}

// Lookup returns the provider registered under name, or a configuration error.
func (r *Registry) Lookup(name domain.ProviderName) (port.ExtractionProvider, error) {
	if p, ok := r.providers[name]; ok {
		return p, nil
	}
	if cause, ok := r.unavailable[name]; ok {
		return nil, &domain.ExtractionError{
			Kind:     domain.KindConfiguration,
			Provider: string(name),
			Message:  "provider is not configured",
			Err:      cause,
		}
	}
	return nil, domain.NewConfigError(string(name), fmt.Sprintf("unknown extraction provider %q", name))
}

// Names lists registered providers in declaration order.
func (r *Registry) Names() []domain.ProviderName {
	out := make([]domain.ProviderName, 0, len(r.providers))
	for _, n := range domain.KnownProviders {
		if _, ok := r.providers[n]; ok {
			out = append(out, n)
		}
	}
	return out
}

// Unavailable returns the construction error of every provider that failed to build.
func (r *Registry) Unavailable() map[domain.ProviderName]error {
	out := make(map[domain.ProviderName]error, len(r.unavailable))
	for k, v := range r.unavailable {
		out[k] = v
	}
	return out
}
