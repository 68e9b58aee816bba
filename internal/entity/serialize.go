package entity

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/lumascope/entgraph/internal/record"
	"github.com/lumascope/entgraph/internal/schema"
)

// storageKey returns the serialization key for a field: the scalar spec's
// Key override when present, the field name otherwise.
func storageKey(f schema.Field) string {
	if s, ok := f.Spec.(schema.ScalarSpec); ok && s.Key != "" {
		return s.Key
	}
	return f.Name
}

// WriteToRecord serializes the instance: type, uuid, modified, every
// scalar field's literal value, components recursively, and references as
// specifier strings only, never the referenced object's content.
func (o *Object) WriteToRecord() record.Record {
	rec := record.Record{
		record.KeyType:     o.typ.Name(),
		record.KeyUUID:     o.id.String(),
		record.KeyModified: o.modified.UTC().Format(record.TimeFormat),
	}
	for _, f := range o.typ.Fields() {
		key := storageKey(f)
		fv := o.values[f.Name]
		switch spec := f.Spec.(type) {
		case schema.ScalarSpec:
			if fv.scalar != nil {
				rec[key] = deepCopyValue(fv.scalar)
			}
		case schema.ReferenceSpec:
			if !fv.ref.spec.IsZero() {
				rec[key] = fv.ref.spec.String()
			}
		case schema.ComponentSpec:
			if fv.component != nil {
				rec[key] = map[string]any(fv.component.WriteToRecord())
			}
		case schema.ArraySpec:
			_, owned := spec.Elem.(schema.ComponentSpec)
			elems := make([]any, len(fv.items))
			for i, it := range fv.items {
				if owned {
					elems[i] = map[string]any(it.obj.WriteToRecord())
				} else {
					elems[i] = it.spec.String()
				}
			}
			rec[key] = elems
		}
	}
	return rec
}

// Build reconstructs an instance from a serialized record: scalars and
// components hydrate recursively, references stay unresolved specifiers
// until the context registers their targets. The caller registers the
// result when it enters document scope.
func Build(c *Context, rec record.Record) (*Object, error) {
	typeName, err := rec.Type()
	if err != nil {
		return nil, err
	}
	typ, ok := c.schema.Lookup(typeName)
	if !ok {
		return nil, &schema.Error{Entity: typeName, Message: "unknown entity type"}
	}
	o := newObject(c, typ)
	if err := o.ReadFromRecord(rec); err != nil {
		return nil, err
	}
	return o, nil
}

// ReadFromRecord hydrates the instance from a record of its own type.
// The record's uuid and modified replace the instance's; absent field
// keys leave declared defaults in place. Hydration fires no events.
func (o *Object) ReadFromRecord(rec record.Record) error {
	o.assertOpen()
	typeName, err := rec.Type()
	if err != nil {
		return err
	}
	if typeName != o.typ.Name() {
		return &record.ReadError{Key: record.KeyType, Message: fmt.Sprintf("record type %q does not match %q", typeName, o.typ.Name())}
	}
	uuidStr, err := rec.UUID()
	if err != nil {
		return err
	}
	id, err := uuid.Parse(uuidStr)
	if err != nil {
		return &record.ReadError{Key: record.KeyUUID, Message: fmt.Sprintf("malformed uuid %q", uuidStr)}
	}
	modified, err := rec.Modified()
	if err != nil {
		return err
	}
	o.id = id
	o.modified = modified
	for _, f := range o.typ.Fields() {
		v, present := rec[storageKey(f)]
		if !present || v == nil {
			continue
		}
		if err := o.readField(f, v); err != nil {
			return err
		}
	}
	return nil
}

func (o *Object) readField(f schema.Field, v any) error {
	fv := o.values[f.Name]
	switch spec := f.Spec.(type) {
	case schema.ScalarSpec:
		fv.scalar = v
	case schema.ReferenceSpec:
		s, ok := v.(string)
		if !ok {
			return &record.ReadError{Key: storageKey(f), Message: fmt.Sprintf("expected specifier string, got %T", v)}
		}
		ref, err := ParseSpecifier(s)
		if err != nil {
			return err
		}
		fv.ref = refValue{spec: ref}
	case schema.ComponentSpec:
		child, err := o.readComponent(f.Name, spec.EntityType, v)
		if err != nil {
			return err
		}
		fv.component = child
	case schema.ArraySpec:
		elems, ok := v.([]any)
		if !ok {
			return &record.ReadError{Key: storageKey(f), Message: fmt.Sprintf("expected array, got %T", v)}
		}
		fv.items = make([]arrayItem, 0, len(elems))
		for _, elem := range elems {
			switch elemSpec := spec.Elem.(type) {
			case schema.ComponentSpec:
				child, err := o.readComponent(f.Name, elemSpec.EntityType, elem)
				if err != nil {
					return err
				}
				fv.items = append(fv.items, arrayItem{owned: true, obj: child})
			case schema.ReferenceSpec:
				s, ok := elem.(string)
				if !ok {
					return &record.ReadError{Key: storageKey(f), Message: fmt.Sprintf("expected specifier string, got %T", elem)}
				}
				ref, err := ParseSpecifier(s)
				if err != nil {
					return err
				}
				fv.items = append(fv.items, arrayItem{spec: ref})
			}
		}
	}
	return nil
}

// readComponent hydrates an owned child and takes ownership of it. The
// nested record may carry any entity type extending the declared target.
func (o *Object) readComponent(fieldName, declaredType string, v any) (*Object, error) {
	childRec, ok := record.AsRecord(v)
	if !ok {
		return nil, &record.ReadError{Key: fieldName, Message: fmt.Sprintf("expected nested record, got %T", v)}
	}
	child, err := Build(o.ctx, childRec)
	if err != nil {
		return nil, err
	}
	if !child.typ.IsA(declaredType) {
		return nil, &schema.Error{
			Entity:  o.typ.Name(),
			Field:   fieldName,
			Message: fmt.Sprintf("component type %q is not a %q", child.typ.Name(), declaredType),
		}
	}
	child.container = o
	return child, nil
}
