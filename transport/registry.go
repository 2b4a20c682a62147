// Copyright (C) 2019-2025, NewsGate Authors. All rights reserved.
// See the file LICENSE for licensing terms.

package transport

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"
)

// Builder collects factories during bootstrap. Registration happens once,
// before the process accepts calls; Freeze ends it.
type Builder struct {
	mu        sync.Mutex
	factories map[string]Factory
	frozen    bool
}

// NewBuilder returns an empty Builder.
func NewBuilder() *Builder {
	return &Builder{factories: make(map[string]Factory)}
}

// Register adds a factory under id. A second registration of the same id
// fails with ErrDuplicateType; use Override to replace deliberately.
func (b *Builder) Register(id string, factory Factory) error {
	return b.put(id, factory, false)
}

// Override registers factory under id, replacing any earlier factory.
func (b *Builder) Override(id string, factory Factory) error {
	return b.put(id, factory, true)
}

func (b *Builder) put(id string, factory Factory, replace bool) error {
	if id == "" {
		return errors.New("transport: empty wire type identifier")
	}
	if factory == nil {
		return fmt.Errorf("transport: nil factory for %s", id)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.frozen {
		return fmt.Errorf("%s: %w", id, ErrRegistryFrozen)
	}
	if _, ok := b.factories[id]; ok && !replace {
		return fmt.Errorf("%s: %w", id, ErrDuplicateType)
	}
	b.factories[id] = factory
	return nil
}

// Freeze ends registration and returns the read-only Registry. Later
// Register calls on b fail with ErrRegistryFrozen.
func (b *Builder) Freeze() *Registry {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.frozen = true
	return &Registry{factories: maps.Clone(b.factories)}
}

// Registry resolves wire type identifiers to factories. It is immutable,
// so any number of goroutines may use it without synchronization.
type Registry struct {
	factories map[string]Factory
}

// Resolve returns the factory registered under id.
func (r *Registry) Resolve(id string) (Factory, error) {
	factory, ok := r.factories[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, id)
	}
	return factory, nil
}

// New returns an empty entity for id.
func (r *Registry) New(id string) (Entity, error) {
	factory, err := r.Resolve(id)
	if err != nil {
		return nil, err
	}
	return factory(), nil
}

// Decode builds an entity for id and populates it from data. Nothing is
// returned unless decoding fully succeeds.
func (r *Registry) Decode(id string, data []byte) (Entity, error) {
	entity, err := r.New(id)
	if err != nil {
		return nil, err
	}
	if err := entity.UnmarshalBinary(data); err != nil {
		return nil, err
	}
	return entity, nil
}

// Has reports whether id is registered.
func (r *Registry) Has(id string) bool {
	_, ok := r.factories[id]
	return ok
}

// IDs returns every registered identifier, sorted.
func (r *Registry) IDs() []string {
	return slices.Sorted(maps.Keys(r.factories))
}

func (r *Registry) Len() int { return len(r.factories) }

// Registrar is one domain area's registration routine.
type Registrar func(b *Builder) error

// Initialize runs every registrar against a fresh Builder and freezes
// it. The first failing registrar aborts bootstrap.
func Initialize(registrars ...Registrar) (*Registry, error) {
	b := NewBuilder()
	for _, register := range registrars {
		if err := register(b); err != nil {
			return nil, fmt.Errorf("transport: bootstrap: %w", err)
		}
	}
	return b.Freeze(), nil
}

// RegisterAll registers each type with b, stopping at the first error.
// Domain areas use it to implement their Registrar.
func RegisterAll(b *Builder, types ...interface{ Register(*Builder) error }) error {
	for _, t := range types {
		if err := t.Register(b); err != nil {
			return err
		}
	}
	return nil
}
