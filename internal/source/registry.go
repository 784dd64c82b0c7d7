package source

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// RegistryEvent reports a source joining or leaving the registry.
type RegistryEvent struct {
	Source Source
	Added  bool
}

// Registry holds the currently available sources keyed by uuid.
//
// Hidden sources can be resolved with Get but are never listed and never
// announced to subscribers; they serve internal lookups such as metadata
// resolvers.
type Registry struct {
	mu      sync.RWMutex
	sources map[string]Source
	hidden  map[string]bool
	subs    []func(RegistryEvent)
}

func NewRegistry(hidden ...string) *Registry {
	r := &Registry{
		sources: make(map[string]Source),
		hidden:  make(map[string]bool, len(hidden)),
	}
	for _, h := range hidden {
		r.hidden[h] = true
	}
	return r
}

// Add registers s and notifies subscribers.
func (r *Registry) Add(s Source) error {
	r.mu.Lock()
	if _, exists := r.sources[s.UUID()]; exists {
		r.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrDuplicateSource, s.UUID())
	}
	r.sources[s.UUID()] = s
	hidden := r.hidden[s.UUID()]
	subs := append([]func(RegistryEvent){}, r.subs...)
	r.mu.Unlock()

	if !hidden {
		for _, fn := range subs {
			fn(RegistryEvent{Source: s, Added: true})
		}
	}
	return nil
}

// Remove unregisters the source with the given uuid and notifies
// subscribers. It returns false if no such source was registered.
func (r *Registry) Remove(uuid string) (Source, bool) {
	r.mu.Lock()
	s, ok := r.sources[uuid]
	if ok {
		delete(r.sources, uuid)
	}
	hidden := r.hidden[uuid]
	subs := append([]func(RegistryEvent){}, r.subs...)
	r.mu.Unlock()

	if ok && !hidden {
		for _, fn := range subs {
			fn(RegistryEvent{Source: s, Added: false})
		}
	}
	return s, ok
}

// Get resolves a source by uuid.
func (r *Registry) Get(uuid string) (Source, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sources[uuid]
	return s, ok
}

// Hidden reports whether uuid is excluded from listings.
func (r *Registry) Hidden(uuid string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.hidden[uuid]
}

// Sources returns the visible sources sorted by name.
func (r *Registry) Sources() []Source {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Source, 0, len(r.sources))
	for uuid, s := range r.sources {
		if r.hidden[uuid] {
			continue
		}
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name() != out[j].Name() {
			return out[i].Name() < out[j].Name()
		}
		return out[i].UUID() < out[j].UUID()
	})
	return out
}

// Subscribe registers fn for add/remove notifications. fn runs on the
// goroutine that called Add or Remove.
func (r *Registry) Subscribe(fn func(RegistryEvent)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.subs = append(r.subs, fn)
}

// WatchAll starts change notifications on every watchable source.
func (r *Registry) WatchAll(fn func(Change)) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var errs []error
	for _, s := range r.sources {
		if w, ok := s.(Watchable); ok {
			if err := w.Watch(fn); err != nil {
				errs = append(errs, fmt.Errorf("watching %s: %w", s.Name(), err))
			}
		}
	}
	return errors.Join(errs...)
}

// Close releases watchable sources.
func (r *Registry) Close() error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var errs []error
	for _, s := range r.sources {
		if w, ok := s.(Watchable); ok {
			if err := w.Close(); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}
