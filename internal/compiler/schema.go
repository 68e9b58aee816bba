// Package compiler translates CUE entity declarations into a schema.
// Uses the CUE SDK's Go API directly (not CLI subprocess).
//
// A schema file declares entity types under the "entity" struct:
//
//	entity: graphic: {
//		base: "item"
//		field: label: {type: "string", default: ""}
//		field: start: {type: "float", default: 0.0}
//		reference: source: "item"
//		component: calibration: "calibration"
//		array: graphics: {component: "graphic"}
//	}
//
// Field groups compile in a fixed order (field, reference, component,
// array) so serialization key order is stable regardless of CUE source
// formatting.
package compiler

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/token"

	"github.com/lumascope/entgraph/internal/schema"
)

// entityDecl is an entity declaration parsed from CUE but not yet
// registered, pending base-order resolution.
type entityDecl struct {
	name   string
	base   string
	fields []schema.Field
	pos    token.Pos
}

// CompileSchema parses the "entity" declarations of a CUE value into a
// fresh schema containing only the declared types.
func CompileSchema(v cue.Value) (*schema.Schema, error) {
	s := schema.New()
	if err := CompileInto(s, v); err != nil {
		return nil, err
	}
	return s, nil
}

// CompileInto parses the "entity" declarations of a CUE value and
// registers them on an existing schema. Declared types may extend types
// already present in the schema, so built-in entities (items, documents,
// connections) can be defined first and extended from CUE.
func CompileInto(s *schema.Schema, v cue.Value) error {
	if err := v.Err(); err != nil {
		return formatCUEError(err)
	}

	entityVal := v.LookupPath(cue.ParsePath("entity"))
	if !entityVal.Exists() {
		return &CompileError{
			Entity:  "entity",
			Message: "no entity declarations found",
			Pos:     v.Pos(),
		}
	}

	iter, err := entityVal.Fields()
	if err != nil {
		return formatCUEError(err)
	}

	var decls []entityDecl
	for iter.Next() {
		decl, err := parseEntity(iter.Label(), iter.Value())
		if err != nil {
			return err
		}
		decls = append(decls, decl)
	}

	ordered, err := orderByBase(s, decls)
	if err != nil {
		return err
	}
	for _, decl := range ordered {
		if _, err := s.Define(decl.name, decl.base, decl.fields); err != nil {
			return &CompileError{
				Entity:  decl.name,
				Message: err.Error(),
				Pos:     decl.pos,
			}
		}
	}
	return nil
}

// orderByBase sorts declarations so every base is defined before its
// extensions. Bases already present in the schema count as satisfied.
// Reports unknown bases and base cycles.
func orderByBase(s *schema.Schema, decls []entityDecl) ([]entityDecl, error) {
	declared := make(map[string]*entityDecl, len(decls))
	for i := range decls {
		declared[decls[i].name] = &decls[i]
	}

	const (
		unvisited = 0
		visiting  = 1
		done      = 2
	)
	state := make(map[string]int, len(decls))
	ordered := make([]entityDecl, 0, len(decls))

	var visit func(d *entityDecl) error
	visit = func(d *entityDecl) error {
		switch state[d.name] {
		case done:
			return nil
		case visiting:
			return &CompileError{
				Entity:  d.name,
				Field:   "base",
				Message: fmt.Sprintf("base cycle through %q", d.base),
				Pos:     d.pos,
			}
		}
		state[d.name] = visiting
		if d.base != "" {
			if baseDecl, ok := declared[d.base]; ok {
				if err := visit(baseDecl); err != nil {
					return err
				}
			} else if _, ok := s.Lookup(d.base); !ok {
				return &CompileError{
					Entity:  d.name,
					Field:   "base",
					Message: fmt.Sprintf("unknown base entity type %q", d.base),
					Pos:     d.pos,
				}
			}
		}
		state[d.name] = done
		ordered = append(ordered, *d)
		return nil
	}

	for i := range decls {
		if err := visit(&decls[i]); err != nil {
			return nil, err
		}
	}
	return ordered, nil
}

func parseEntity(name string, v cue.Value) (entityDecl, error) {
	decl := entityDecl{name: name, pos: v.Pos()}

	baseVal := v.LookupPath(cue.ParsePath("base"))
	if baseVal.Exists() {
		base, err := baseVal.String()
		if err != nil {
			return decl, formatCUEError(err)
		}
		decl.base = base
	}

	// Group order is fixed; see the package comment.
	scalars, err := parseScalarFields(name, v)
	if err != nil {
		return decl, err
	}
	decl.fields = append(decl.fields, scalars...)

	refs, err := parseTypedFields(name, v, "reference")
	if err != nil {
		return decl, err
	}
	decl.fields = append(decl.fields, refs...)

	components, err := parseTypedFields(name, v, "component")
	if err != nil {
		return decl, err
	}
	decl.fields = append(decl.fields, components...)

	arrays, err := parseArrayFields(name, v)
	if err != nil {
		return decl, err
	}
	decl.fields = append(decl.fields, arrays...)

	return decl, nil
}

// parseScalarFields parses the "field" group: named scalar declarations
// with a type, an optional default, and an optional serialization key.
func parseScalarFields(entity string, v cue.Value) ([]schema.Field, error) {
	fieldVal := v.LookupPath(cue.ParsePath("field"))
	if !fieldVal.Exists() {
		return nil, nil
	}
	iter, err := fieldVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var fields []schema.Field
	for iter.Next() {
		fieldName := iter.Label()
		fieldValue := iter.Value()

		typeVal := fieldValue.LookupPath(cue.ParsePath("type"))
		if !typeVal.Exists() {
			return nil, &CompileError{
				Entity:  entity,
				Field:   fieldName,
				Message: "field type is required",
				Pos:     fieldValue.Pos(),
			}
		}
		typeName, err := typeVal.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		scalarType, ok := schema.ScalarTypeByName(typeName)
		if !ok {
			return nil, &CompileError{
				Entity:  entity,
				Field:   fieldName,
				Message: fmt.Sprintf("unsupported field type %q", typeName),
				Pos:     typeVal.Pos(),
			}
		}

		var def any
		defVal := fieldValue.LookupPath(cue.ParsePath("default"))
		if defVal.Exists() {
			def, err = decodeDefault(entity, fieldName, scalarType, defVal)
			if err != nil {
				return nil, err
			}
		}

		key := ""
		keyVal := fieldValue.LookupPath(cue.ParsePath("key"))
		if keyVal.Exists() {
			key, err = keyVal.String()
			if err != nil {
				return nil, formatCUEError(err)
			}
		}

		fields = append(fields, schema.Field{
			Name: fieldName,
			Spec: schema.ScalarSpec{Type: scalarType, Default: def, Key: key},
		})
	}
	return fields, nil
}

// decodeDefault converts a CUE default into the Go value the declared
// scalar type stores.
func decodeDefault(entity, field string, t schema.ScalarType, v cue.Value) (any, error) {
	badDefault := func(err error) error {
		return &CompileError{
			Entity:  entity,
			Field:   field,
			Message: fmt.Sprintf("default does not match type %s: %v", t, err),
			Pos:     v.Pos(),
		}
	}
	switch t {
	case schema.Bool:
		b, err := v.Bool()
		if err != nil {
			return nil, badDefault(err)
		}
		return b, nil
	case schema.Int:
		n, err := v.Int64()
		if err != nil {
			return nil, badDefault(err)
		}
		return n, nil
	case schema.Float:
		f, err := v.Float64()
		if err != nil {
			return nil, badDefault(err)
		}
		return f, nil
	case schema.String, schema.Timestamp:
		s, err := v.String()
		if err != nil {
			return nil, badDefault(err)
		}
		return s, nil
	case schema.Map:
		var m map[string]any
		if err := v.Decode(&m); err != nil {
			return nil, badDefault(err)
		}
		return m, nil
	case schema.List:
		var l []any
		if err := v.Decode(&l); err != nil {
			return nil, badDefault(err)
		}
		return l, nil
	default:
		return nil, &CompileError{
			Entity:  entity,
			Field:   field,
			Message: fmt.Sprintf("unsupported default for type %s", t),
			Pos:     v.Pos(),
		}
	}
}

// parseTypedFields parses the "reference" or "component" group: a flat
// mapping of field name to target entity type name.
func parseTypedFields(entity string, v cue.Value, group string) ([]schema.Field, error) {
	groupVal := v.LookupPath(cue.ParsePath(group))
	if !groupVal.Exists() {
		return nil, nil
	}
	iter, err := groupVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var fields []schema.Field
	for iter.Next() {
		fieldName := iter.Label()
		target, err := iter.Value().String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		var spec schema.FieldSpec
		switch group {
		case "reference":
			spec = schema.Reference(target)
		case "component":
			spec = schema.Component(target)
		}
		fields = append(fields, schema.Field{Name: fieldName, Spec: spec})
	}
	return fields, nil
}

// parseArrayFields parses the "array" group: each entry names exactly one
// of "reference" or "component" as its element kind.
func parseArrayFields(entity string, v cue.Value) ([]schema.Field, error) {
	arrayVal := v.LookupPath(cue.ParsePath("array"))
	if !arrayVal.Exists() {
		return nil, nil
	}
	iter, err := arrayVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var fields []schema.Field
	for iter.Next() {
		fieldName := iter.Label()
		arrayValue := iter.Value()

		refVal := arrayValue.LookupPath(cue.ParsePath("reference"))
		compVal := arrayValue.LookupPath(cue.ParsePath("component"))
		if refVal.Exists() == compVal.Exists() {
			return nil, &CompileError{
				Entity:  entity,
				Field:   fieldName,
				Message: "array element must declare exactly one of reference or component",
				Pos:     arrayValue.Pos(),
			}
		}

		var elem schema.FieldSpec
		if refVal.Exists() {
			target, err := refVal.String()
			if err != nil {
				return nil, formatCUEError(err)
			}
			elem = schema.Reference(target)
		} else {
			target, err := compVal.String()
			if err != nil {
				return nil, formatCUEError(err)
			}
			elem = schema.Component(target)
		}
		fields = append(fields, schema.Field{Name: fieldName, Spec: schema.Array(elem)})
	}
	return fields, nil
}
