// Package connect implements live bindings between persistent objects.
//
// A connection is itself a persistent object, so it serializes with the
// document it belongs to; on disk it holds only the specifiers of its
// endpoints. At runtime it watches the registry through ItemReferences
// and binds lazily: a connection whose endpoints are not yet registered
// is dormant, activates when they appear, tears its listeners down when
// either endpoint leaves scope, and re-activates on re-registration
// (load, undo, deletion all reduce to that cycle).
//
// The two kinds are a closed set dispatched on the persisted type
// discriminator: property connections bind two scalar properties
// bidirectionally, interval-list connections project a display's
// interval graphics into a descriptor list one way.
package connect

import (
	"github.com/lumascope/entgraph/internal/schema"
)

// Kind discriminates the connection variants; it is the persisted entity
// type name.
type Kind string

const (
	// KindProperty binds a source property and a target property
	// bidirectionally.
	KindProperty Kind = "property_connection"

	// KindIntervalList projects interval graphics owned by a source
	// display into an interval_descriptors list on the target.
	KindIntervalList Kind = "interval_list_connection"
)

// Field and entity names the interval-list variant relies on. Schemas
// that participate declare these names; DefineEntities only declares the
// connection types themselves.
const (
	// GraphicsKey is the array-of-component field on the source display
	// whose elements are projected.
	GraphicsKey = "graphics"

	// IntervalGraphicType is the entity type (or base type) of graphics
	// that project into descriptors.
	IntervalGraphicType = "interval_graphic"

	// IntervalStartKey and IntervalEndKey are the scalar fields of an
	// interval graphic.
	IntervalStartKey = "interval_start"
	IntervalEndKey   = "interval_end"

	// IntervalDescriptorsKey is the list field assigned on the target.
	IntervalDescriptorsKey = "interval_descriptors"
)

// intervalColor is the fixed color attached to every projected interval.
const intervalColor = "#F00"

// Specifier fields serialize under *_uuid keys for compatibility with
// the historical record shape.
const (
	fieldParentSpecifier = "parent_specifier"
	fieldSourceSpecifier = "source_specifier"
	fieldSourceProperty  = "source_property"
	fieldTargetSpecifier = "target_specifier"
	fieldTargetProperty  = "target_property"
)

// DefineEntities declares the connection entity types. Call once per
// schema, before any document using connections is created or loaded.
func DefineEntities(s *schema.Schema) error {
	if _, err := s.Define("connection", "", []schema.Field{
		{Name: fieldParentSpecifier, Spec: schema.PropKeyed(schema.String, nil, "parent_uuid")},
	}); err != nil {
		return err
	}
	if _, err := s.Define(string(KindProperty), "connection", []schema.Field{
		{Name: fieldSourceSpecifier, Spec: schema.PropKeyed(schema.String, nil, "source_uuid")},
		{Name: fieldSourceProperty, Spec: schema.Prop(schema.String, nil)},
		{Name: fieldTargetSpecifier, Spec: schema.PropKeyed(schema.String, nil, "target_uuid")},
		{Name: fieldTargetProperty, Spec: schema.Prop(schema.String, nil)},
	}); err != nil {
		return err
	}
	if _, err := s.Define(string(KindIntervalList), "connection", []schema.Field{
		{Name: fieldSourceSpecifier, Spec: schema.PropKeyed(schema.String, nil, "source_uuid")},
		{Name: fieldTargetSpecifier, Spec: schema.PropKeyed(schema.String, nil, "target_uuid")},
	}); err != nil {
		return err
	}
	return nil
}
