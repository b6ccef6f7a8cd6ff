package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/soundprediction/sifter/pkg/types"
)

// Engine builds field registries for entities. It holds only its
// collaborators and is safe for concurrent use.
type Engine struct {
	schema   Schema
	resolver *Resolver
	logger   *slog.Logger
}

// NewEngine creates an engine. options may be nil.
func NewEngine(schema Schema, options OptionSource, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		schema:   schema,
		resolver: NewResolver(schema, options),
		logger:   logger,
	}
}

// Registry resolves every searchable path of entity. Paths that do not
// resolve are skipped; declaration order is kept.
func (e *Engine) Registry(ctx context.Context, entity string) (*Registry, error) {
	paths, err := e.schema.SearchPaths(entity)
	if err != nil {
		return nil, fmt.Errorf("search paths of %s: %w", entity, err)
	}

	reg := &Registry{entity: entity, fields: make([]*FieldDescriptor, 0, len(paths))}
	for _, path := range paths {
		d, err := e.resolver.Resolve(ctx, path, entity)
		if err != nil {
			if errors.Is(err, types.ErrUnresolvedField) {
				e.logger.Debug("skipping unresolved search field",
					"entity", entity,
					"field", path,
					"error", err)
				continue
			}
			return nil, err
		}
		reg.fields = append(reg.fields, d)
	}
	return reg, nil
}

// Registry is the ordered set of field descriptors of one entity.
type Registry struct {
	entity string
	fields []*FieldDescriptor
}

// NewRegistry builds a registry from already resolved descriptors.
func NewRegistry(entity string, fields ...*FieldDescriptor) *Registry {
	return &Registry{entity: entity, fields: fields}
}

// Entity returns the entity the registry describes.
func (r *Registry) Entity() string { return r.entity }

// Fields returns the descriptors in declaration order.
func (r *Registry) Fields() []*FieldDescriptor { return r.fields }

// Lookup finds a descriptor by its field name.
func (r *Registry) Lookup(name string) (*FieldDescriptor, bool) {
	for _, d := range r.fields {
		if d.Name == name {
			return d, true
		}
	}
	return nil, false
}
