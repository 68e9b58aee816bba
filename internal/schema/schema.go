// Package schema declares entity types and their field kinds.
//
// A Schema is a data-driven table mapping entity-type names to ordered
// field specs. It is built once at startup (in Go code or compiled from
// CUE declarations) and never mutated afterward; redefinition of a type
// is rejected rather than merged.
package schema

import "fmt"

// Field pairs a field name with its spec. Order is declaration order and
// is preserved through serialization.
type Field struct {
	Name string
	Spec FieldSpec
}

// Entity is a named type describing the field kinds of its instances.
// Entities may extend a base entity; fields of the base chain are visible
// through Field lookups and IsA.
type Entity struct {
	name   string
	base   *Entity
	fields []Field
	byName map[string]FieldSpec
}

// Name returns the entity type name.
func (e *Entity) Name() string { return e.name }

// Base returns the base entity, or nil.
func (e *Entity) Base() *Entity { return e.base }

// IsA reports whether the entity is the named type or extends it.
func (e *Entity) IsA(name string) bool {
	for t := e; t != nil; t = t.base {
		if t.name == name {
			return true
		}
	}
	return false
}

// Field returns the spec for the named field, searching the base chain.
func (e *Entity) Field(name string) (FieldSpec, bool) {
	for t := e; t != nil; t = t.base {
		if spec, ok := t.byName[name]; ok {
			return spec, true
		}
	}
	return nil, false
}

// Fields returns the full ordered field list, base fields first.
func (e *Entity) Fields() []Field {
	var out []Field
	if e.base != nil {
		out = e.base.Fields()
	}
	return append(out, e.fields...)
}

// Schema is the entity-type table. Lookups are O(1); definitions are
// write-once per name.
type Schema struct {
	entities map[string]*Entity
}

// New creates an empty schema.
func New() *Schema {
	return &Schema{entities: make(map[string]*Entity)}
}

// Define registers an entity type. The base name, if non-empty, must
// already be defined. Redefining a name is an error.
func (s *Schema) Define(name string, baseName string, fields []Field) (*Entity, error) {
	if name == "" {
		return nil, &Error{Message: "entity name must not be empty"}
	}
	if _, exists := s.entities[name]; exists {
		return nil, &Error{Entity: name, Message: "entity type already defined"}
	}
	var base *Entity
	if baseName != "" {
		b, ok := s.entities[baseName]
		if !ok {
			return nil, &Error{Entity: name, Message: fmt.Sprintf("unknown base entity type %q", baseName)}
		}
		base = b
	}
	e := &Entity{
		name:   name,
		base:   base,
		fields: append([]Field(nil), fields...),
		byName: make(map[string]FieldSpec, len(fields)),
	}
	for _, f := range fields {
		if _, dup := e.byName[f.Name]; dup {
			return nil, &Error{Entity: name, Field: f.Name, Message: "duplicate field"}
		}
		if _, shadowed := e.Field(f.Name); shadowed && base != nil {
			return nil, &Error{Entity: name, Field: f.Name, Message: "field shadows base field"}
		}
		e.byName[f.Name] = f.Spec
	}
	s.entities[name] = e
	return e, nil
}

// MustDefine is Define panicking on error; for built-in declarations.
func (s *Schema) MustDefine(name string, baseName string, fields []Field) *Entity {
	e, err := s.Define(name, baseName, fields)
	if err != nil {
		panic(err)
	}
	return e
}

// Lookup returns the named entity type.
func (s *Schema) Lookup(name string) (*Entity, bool) {
	e, ok := s.entities[name]
	return e, ok
}

// Names returns the defined entity type names in unspecified order.
func (s *Schema) Names() []string {
	out := make([]string, 0, len(s.entities))
	for name := range s.entities {
		out = append(out, name)
	}
	return out
}
