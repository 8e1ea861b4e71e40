package providers

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/haasonsaas/opencode/internal/config"
	"github.com/haasonsaas/opencode/pkg/models"
)

// Registry holds the configured providers and resolves defaults.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]Provider
}

func NewRegistry() *Registry {
	return &Registry{providers: make(map[string]Provider)}
}

// Register adds a provider keyed by its info ID.
func (r *Registry) Register(p Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[p.Info().ID] = p
}

// Get returns a provider by ID.
func (r *Registry) Get(id string) (Provider, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.providers[id]
	return p, ok
}

// List returns all providers sorted by ID.
func (r *Registry) List() []Provider {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Provider, 0, len(r.providers))
	for _, p := range r.providers {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Info().ID < out[j].Info().ID })
	return out
}

// ParseModel splits a "provider/model" reference. A bare model id yields
// an empty provider.
func ParseModel(ref string) (providerID, modelID string) {
	if idx := strings.Index(ref, "/"); idx >= 0 {
		return ref[:idx], ref[idx+1:]
	}
	return "", ref
}

// DefaultModel resolves the provider and model for a turn: the configured
// default when set, otherwise the first authenticated provider's first
// model, otherwise openai/gpt-4.
func (r *Registry) DefaultModel(ctx context.Context, cfg *config.Config) (providerID, modelID string) {
	if cfg != nil && cfg.DefaultProvider != "" {
		providerID = cfg.DefaultProvider
		modelID = cfg.DefaultModel
		if modelID == "" {
			if p, ok := r.Get(providerID); ok {
				if ms := p.Info().Models; len(ms) > 0 {
					modelID = ms[0].ID
				}
			}
		}
		if modelID != "" {
			return providerID, modelID
		}
	}
	for _, p := range r.List() {
		info := p.Info()
		if len(info.Models) == 0 {
			continue
		}
		if p.IsAuthenticated(ctx) {
			return info.ID, info.Models[0].ID
		}
	}
	return "openai", "gpt-4"
}

// Resolve returns the provider for a "provider/model" reference, filling
// in defaults for missing pieces. A provider given without a model gets
// that provider's first model, never the global default, so the pair
// always matches.
func (r *Registry) Resolve(ctx context.Context, cfg *config.Config, ref string) (Provider, string, error) {
	providerID, modelID := ParseModel(ref)
	if providerID == "" {
		if modelID == "" {
			providerID, modelID = r.DefaultModel(ctx, cfg)
		} else {
			providerID, _ = r.DefaultModel(ctx, cfg)
		}
	}
	p, ok := r.Get(providerID)
	if !ok {
		return nil, "", fmt.Errorf("unknown provider %q", providerID)
	}
	if modelID == "" {
		info := p.Info()
		if len(info.Models) == 0 {
			return nil, "", fmt.Errorf("provider %q has no models", providerID)
		}
		modelID = info.Models[0].ID
	}
	return p, modelID, nil
}

// InfoList returns provider metadata for display.
func (r *Registry) InfoList() []models.ProviderInfo {
	ps := r.List()
	out := make([]models.ProviderInfo, len(ps))
	for i, p := range ps {
		out[i] = p.Info()
	}
	return out
}
