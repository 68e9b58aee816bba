package schema

import "fmt"

// ScalarType enumerates the value types a scalar field may hold.
//
// Map and List cover loosely-typed property bags (for example the
// interval descriptor lists assigned by connections); their contents are
// plain JSON-shaped values and are not validated field by field.
type ScalarType int

const (
	Bool ScalarType = iota + 1
	Int
	Float
	String
	Timestamp
	Map
	List
)

// String returns the schema-file spelling of the scalar type.
func (t ScalarType) String() string {
	switch t {
	case Bool:
		return "bool"
	case Int:
		return "int"
	case Float:
		return "float"
	case String:
		return "string"
	case Timestamp:
		return "timestamp"
	case Map:
		return "map"
	case List:
		return "list"
	default:
		return fmt.Sprintf("ScalarType(%d)", int(t))
	}
}

// ScalarTypeByName maps a schema-file spelling back to its ScalarType.
func ScalarTypeByName(name string) (ScalarType, bool) {
	for _, t := range []ScalarType{Bool, Int, Float, String, Timestamp, Map, List} {
		if t.String() == name {
			return t, true
		}
	}
	return 0, false
}

// FieldSpec is a sealed interface over the four field kinds.
// Only ScalarSpec, ReferenceSpec, ComponentSpec, and ArraySpec implement it.
type FieldSpec interface {
	fieldSpec()
}

// ScalarSpec declares a scalar field: a literal value of a declared type.
//
// Key, when non-empty, overrides the field name as the serialization key
// (e.g. a "source_specifier" field stored under "source_uuid").
type ScalarSpec struct {
	Type    ScalarType
	Default any
	Key     string
}

func (ScalarSpec) fieldSpec() {}

// ReferenceSpec declares a non-owning, identifier-based link to another
// entity. Only the specifier is serialized, never the referenced content.
type ReferenceSpec struct {
	EntityType string
}

func (ReferenceSpec) fieldSpec() {}

// ComponentSpec declares exclusive ownership of a nested entity.
// The owner is the unique container; serialization recurses.
type ComponentSpec struct {
	EntityType string
}

func (ComponentSpec) fieldSpec() {}

// ArraySpec declares an ordered sequence of component or reference values.
// Elem must be a ComponentSpec or ReferenceSpec.
type ArraySpec struct {
	Elem FieldSpec
}

func (ArraySpec) fieldSpec() {}

// Prop builds a scalar field spec with a default value.
func Prop(t ScalarType, def any) ScalarSpec {
	return ScalarSpec{Type: t, Default: def}
}

// PropKeyed builds a scalar field spec serialized under an explicit key.
func PropKeyed(t ScalarType, def any, key string) ScalarSpec {
	return ScalarSpec{Type: t, Default: def, Key: key}
}

// Reference builds a reference field spec targeting the named entity type.
func Reference(entityType string) ReferenceSpec {
	return ReferenceSpec{EntityType: entityType}
}

// Component builds a component field spec targeting the named entity type.
func Component(entityType string) ComponentSpec {
	return ComponentSpec{EntityType: entityType}
}

// Array builds an array field spec. The element spec must be a reference
// or component spec; arrays of scalars use the List scalar type instead.
func Array(elem FieldSpec) ArraySpec {
	switch elem.(type) {
	case ReferenceSpec, ComponentSpec:
	default:
		panic(fmt.Sprintf("schema: array element must be reference or component, got %T", elem))
	}
	return ArraySpec{Elem: elem}
}
