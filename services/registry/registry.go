package registry

import (
	"sync"

	"go.uber.org/zap"

	"github.com/nodegate/nodegate/services"
	"github.com/nodegate/nodegate/services/providers"
	"github.com/nodegate/nodegate/utils"
)

// Provider is the immutable metadata a provider is registered with.
type Provider struct {
	// Name is the unique key for the provider.
	Name string `validate:"required"`

	// Endpoint is the connection target.
	Endpoint string `validate:"required,url"`

	// Priority is the tie-break rank; lower is preferred.
	Priority int `validate:"gte=0"`

	// RateLimit is an advisory requests/sec budget. Not enforced.
	RateLimit int `validate:"gte=0"`

	// FeeBps is the fee markup in basis points, used by the cost policy.
	FeeBps int `validate:"gte=0,lte=10000"`

	// Capabilities lists the request kinds the provider serves.
	Capabilities []providers.Capability `validate:"min=1"`
}

// Entry is a registered provider: metadata, its adapter, and its ordinal
// (registration position, the deterministic tie-break key).
type Entry struct {
	Provider
	Ordinal int
	Adapter providers.Adapter
}

// Supports reports whether the entry serves the given request kind.
func (e *Entry) Supports(kind providers.Capability) bool {
	for _, c := range e.Capabilities {
		if c == kind {
			return true
		}
	}
	return false
}

// Registry holds the candidate providers. Providers are registered once at
// startup and never removed; registration order is preserved.
type Registry struct {
	mu      sync.RWMutex
	entries []*Entry
	byName  map[string]*Entry
	logger  *zap.Logger
}

// NewRegistry creates an empty provider registry
func NewRegistry(logger *zap.Logger) *Registry {
	return &Registry{
		byName: make(map[string]*Entry),
		logger: logger,
	}
}

// Register adds a provider and its adapter. It fails with a conflict error
// when the name is already present and a validation error when the metadata
// is malformed.
func (r *Registry) Register(p Provider, adapter providers.Adapter) error {
	if err := utils.ValidateStruct(p); err != nil {
		return services.NewDomainError(services.ErrorTypeValidation, "invalid provider configuration", err).
			WithDetail("provider", p.Name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byName[p.Name]; exists {
		return services.NewDomainError(services.ErrorTypeConflict, "provider already registered", nil).
			WithDetail("provider", p.Name)
	}

	entry := &Entry{
		Provider: p,
		Ordinal:  len(r.entries),
		Adapter:  adapter,
	}
	r.entries = append(r.entries, entry)
	r.byName[p.Name] = entry

	r.logger.Info("provider registered",
		zap.String("provider", p.Name),
		zap.String("endpoint", p.Endpoint),
		zap.Int("priority", p.Priority),
		zap.Any("capabilities", p.Capabilities))

	return nil
}

// Get retrieves a provider entry by name
func (r *Registry) Get(name string) (*Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, ok := r.byName[name]
	return entry, ok
}

// List returns all entries in registration order
func (r *Registry) List() []*Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Entry, len(r.entries))
	copy(out, r.entries)
	return out
}

// ListByCapability returns entries serving the given kind, in registration order
func (r *Registry) ListByCapability(kind providers.Capability) []*Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*Entry
	for _, e := range r.entries {
		if e.Supports(kind) {
			out = append(out, e)
		}
	}
	return out
}

// Names returns all provider names in registration order
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, len(r.entries))
	for i, e := range r.entries {
		names[i] = e.Name
	}
	return names
}

// Count returns the number of registered providers
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.entries)
}
