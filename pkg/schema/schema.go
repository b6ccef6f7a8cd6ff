// Package schema loads entity definitions from YAML and serves them as the
// field metadata and searchable paths of the search engine.
package schema

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/soundprediction/sifter/pkg/types"
)

// Document is the top-level YAML layout of a schema file.
type Document struct {
	Entities map[string]*Entity `yaml:"entities"`
}

// Entity declares one record type. Display names the field whose value is
// shown for an instance; Search lists the searchable field paths in display
// order.
type Entity struct {
	Name    string   `yaml:"-"`
	Label   string   `yaml:"label"`
	Plural  string   `yaml:"plural"`
	Display string   `yaml:"display"`
	Fields  []*Field `yaml:"fields"`
	Search  []string `yaml:"search"`

	byName map[string]*Field
}

// Field declares one field of an entity. A field with a Relation is a link to
// instances of that entity.
type Field struct {
	Name     string           `yaml:"name"`
	Label    string           `yaml:"label"`
	Kind     types.ScalarKind `yaml:"kind"`
	Relation string           `yaml:"relation"`
	Multiple bool             `yaml:"multiple"`
	Choices  []types.Option   `yaml:"choices"`
	Bounds   *types.Bounds    `yaml:"bounds"`
}

// Schema is a validated set of entities. It is immutable once loaded and safe
// for concurrent use.
type Schema struct {
	entities map[string]*Entity
	names    []string
}

// Load reads and parses a schema file.
func Load(path string) (*Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read schema file: %w", err)
	}
	s, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("schema %s: %w", path, err)
	}
	return s, nil
}

// Parse parses and validates a YAML schema document.
func Parse(data []byte) (*Schema, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse schema: %w", err)
	}
	return New(doc)
}

// reserved names are the record identity properties a graph store keeps
// next to the field values.
var reserved = map[string]bool{"id": true, "entity": true, "display": true}

// New validates a schema document.
func New(doc Document) (*Schema, error) {
	s := &Schema{entities: make(map[string]*Entity, len(doc.Entities))}
	for name, e := range doc.Entities {
		if e == nil {
			e = &Entity{}
		}
		e.Name = name
		if e.Label == "" {
			e.Label = titleCase(name)
		}
		if e.Plural == "" {
			e.Plural = e.Label + "s"
		}
		e.byName = make(map[string]*Field, len(e.Fields))
		for _, f := range e.Fields {
			if f.Name == "" {
				return nil, fmt.Errorf("entity %s: field without a name", name)
			}
			if reserved[f.Name] {
				return nil, fmt.Errorf("entity %s: field name %s is reserved", name, f.Name)
			}
			if _, dup := e.byName[f.Name]; dup {
				return nil, fmt.Errorf("entity %s: duplicate field %s", name, f.Name)
			}
			if f.Label == "" {
				f.Label = titleCase(f.Name)
			}
			if f.Relation == "" && f.Kind == "" {
				f.Kind = types.KindText
			}
			e.byName[f.Name] = f
		}
		s.entities[name] = e
		s.names = append(s.names, name)
	}
	sort.Strings(s.names)

	for _, name := range s.names {
		e := s.entities[name]
		for _, f := range e.Fields {
			if f.Relation != "" {
				if _, ok := s.entities[f.Relation]; !ok {
					return nil, fmt.Errorf("entity %s: field %s relates to %w %q", name, f.Name, types.ErrUnknownEntity, f.Relation)
				}
			}
		}
		if e.Display != "" {
			if _, ok := e.byName[e.Display]; !ok {
				return nil, fmt.Errorf("entity %s: display field %s is not declared", name, e.Display)
			}
		}
	}
	return s, nil
}

// Entities returns the declared entity names in sorted order.
func (s *Schema) Entities() []string {
	return append([]string(nil), s.names...)
}

// Entity returns an entity definition.
func (s *Schema) Entity(name string) (*Entity, error) {
	e, ok := s.entities[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", types.ErrUnknownEntity, name)
	}
	return e, nil
}

// Field returns a field of the entity.
func (e *Entity) Field(name string) (*Field, bool) {
	f, ok := e.byName[name]
	return f, ok
}

// SearchPaths returns the searchable paths declared for entity.
func (s *Schema) SearchPaths(entity string) ([]string, error) {
	e, err := s.Entity(entity)
	if err != nil {
		return nil, err
	}
	return append([]string(nil), e.Search...), nil
}

// ResolveField describes one path segment of entity. A segment ending in
// "_set" names the entity whose relation field points at entity.
func (s *Schema) ResolveField(entity, segment string) (types.FieldMeta, error) {
	e, err := s.Entity(entity)
	if err != nil {
		return types.FieldMeta{}, err
	}

	if related, ok := strings.CutSuffix(segment, reverseSuffix); ok {
		return s.resolveReverse(e, related)
	}

	f, ok := e.byName[segment]
	if !ok {
		return types.FieldMeta{}, fmt.Errorf("%w: %s has no field %q", types.ErrUnresolvedField, entity, segment)
	}
	meta := types.FieldMeta{
		StorageName: f.Name,
		Label:       f.Label,
		Kind:        f.Kind,
		Choices:     f.Choices,
		Bounds:      f.Bounds,
	}
	if f.Relation != "" {
		meta.IsRelation = true
		meta.IsMultiValued = f.Multiple
		meta.RelatedEntity = f.Relation
		meta.Kind = ""
	}
	return meta, nil
}

const reverseSuffix = "_set"

func (s *Schema) resolveReverse(e *Entity, related string) (types.FieldMeta, error) {
	other, ok := s.entities[related]
	if !ok {
		return types.FieldMeta{}, fmt.Errorf("%w: no entity %q relates to %s", types.ErrUnresolvedField, related, e.Name)
	}
	for _, f := range other.Fields {
		if f.Relation == e.Name {
			return types.FieldMeta{
				StorageName:   other.Name,
				Label:         other.Plural,
				IsRelation:    true,
				IsMultiValued: true,
				IsReverse:     true,
				RelatedEntity: other.Name,
				ReverseField:  f.Name,
			}, nil
		}
	}
	return types.FieldMeta{}, fmt.Errorf("%w: %s has no relation to %s", types.ErrUnresolvedField, related, e.Name)
}

// DisplayValue returns the display text of a record of this entity.
func (e *Entity) DisplayValue(r *types.Record) string {
	if e.Display != "" {
		if v, ok := r.Values[e.Display]; ok && v != nil {
			return fmt.Sprint(v)
		}
	}
	return fmt.Sprintf("%s #%d", e.Label, r.ID)
}

func titleCase(name string) string {
	words := strings.Fields(strings.ReplaceAll(name, "_", " "))
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
