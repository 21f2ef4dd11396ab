package nodetype

import (
	"sync"

	"github.com/matzehuels/pipewright/pkg/errors"
)

// Registry maps type keys to their configurations.
//
// Registration happens at startup; after [Registry.Seal] the registry is
// read-only and safe for concurrent readers.
type Registry struct {
	mu     sync.RWMutex
	types  map[string]Config
	order  []string
	sealed bool
}

// NewRegistry creates an empty, unsealed registry.
func NewRegistry() *Registry {
	return &Registry{types: make(map[string]Config)}
}

// Register adds the configuration for key.
//
// It fails if the registry is sealed, key is already registered or malformed,
// or the config declares an invalid or repeated field key.
func (r *Registry) Register(key string, cfg Config) error {
	if err := errors.ValidateTypeKey(key); err != nil {
		return err
	}
	if err := validateConfig(key, cfg); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sealed {
		return errors.New(errors.ErrCodeInvalidInput, "registry is sealed, cannot register %q", key)
	}
	if _, exists := r.types[key]; exists {
		return errors.New(errors.ErrCodeInvalidInput, "node type %q already registered", key)
	}

	cfg.Key = key
	if cfg.Handles == nil {
		cfg.Handles = StaticHandles(nil)
	}
	r.types[key] = cfg
	r.order = append(r.order, key)
	return nil
}

// Get returns the configuration for key, or an UNKNOWN_NODE_TYPE error.
func (r *Registry) Get(key string) (Config, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cfg, ok := r.types[key]
	if !ok {
		return Config{}, errors.New(errors.ErrCodeUnknownNodeType, "unknown node type %q", key)
	}
	return cfg, nil
}

// Has reports whether key is registered.
func (r *Registry) Has(key string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.types[key]
	return ok
}

// Seal makes the registry read-only.
func (r *Registry) Seal() {
	r.mu.Lock()
	r.sealed = true
	r.mu.Unlock()
}

// Sealed reports whether Seal has been called.
func (r *Registry) Sealed() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sealed
}

// Types returns the registered keys in registration order.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Len returns the number of registered types.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

func validateConfig(key string, cfg Config) error {
	seen := make(map[string]bool, len(cfg.Fields))
	for _, f := range cfg.Fields {
		if err := errors.ValidateFieldKey(f.Key); err != nil {
			return errors.Wrap(errors.ErrCodeInvalidInput, err, "node type %q", key)
		}
		if f.Key == "" {
			continue
		}
		if seen[f.Key] {
			return errors.New(errors.ErrCodeInvalidInput, "node type %q: duplicate field key %q", key, f.Key)
		}
		seen[f.Key] = true
		if f.Input == nil {
			return errors.New(errors.ErrCodeInvalidInput, "node type %q: field %q has no input", key, f.Key)
		}
		if sel, ok := f.Input.(SelectInput); ok && len(sel.Options) == 0 {
			return errors.New(errors.ErrCodeInvalidInput, "node type %q: select field %q has no options", key, f.Key)
		}
	}

	if static, ok := cfg.Handles.(StaticHandles); ok {
		suffixes := make(map[string]bool, len(static))
		for _, h := range static {
			if !h.Direction.Valid() {
				return errors.New(errors.ErrCodeInvalidInput, "node type %q: handle %q has invalid direction %q", key, h.IDSuffix, h.Direction)
			}
			if suffixes[h.IDSuffix] {
				return errors.New(errors.ErrCodeInvalidInput, "node type %q: duplicate handle suffix %q", key, h.IDSuffix)
			}
			suffixes[h.IDSuffix] = true
		}
	}
	return nil
}
