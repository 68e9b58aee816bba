package entity

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/lumascope/entgraph/internal/schema"
)

// refValue is the stored form of a reference field: always the specifier,
// plus the object pointer when the reference was set directly. Hydrated
// references carry only the specifier and resolve lazily against the
// registry.
type refValue struct {
	spec Specifier
	obj  *Object
}

func (rv refValue) resolve(ctx *Context) *Object {
	if rv.obj != nil {
		return rv.obj
	}
	if rv.spec.IsZero() {
		return nil
	}
	o, _ := ctx.Get(rv.spec.id)
	return o
}

// arrayItem is one element of an array field: an owned component or a
// non-owning reference.
type arrayItem struct {
	owned bool
	obj   *Object
	spec  Specifier
}

func (it arrayItem) resolve(ctx *Context) *Object {
	if it.owned {
		return it.obj
	}
	return refValue{spec: it.spec, obj: it.obj}.resolve(ctx)
}

type fieldValue struct {
	scalar    any
	component *Object
	ref       refValue
	items     []arrayItem
}

// Object is a persistent entity instance: an identity, a strictly
// increasing modification timestamp, a container back-pointer, and one
// value per schema-declared field. Mutations route through typed setters
// that update the timestamp and fire change events synchronously.
type Object struct {
	ctx        *Context
	typ        *schema.Entity
	id         uuid.UUID
	modified   time.Time
	container  *Object
	registered bool
	closed     bool

	values       map[string]*fieldValue
	changedFuncs map[string]func(any)

	propertyChanged signal[func(name string)]
	itemInserted    signal[func(key string, value *Object, index int)]
	itemRemoved     signal[func(key string, value *Object, index int)]
}

func newObject(c *Context, typ *schema.Entity) *Object {
	o := &Object{
		ctx:      c,
		typ:      typ,
		id:       c.idGen.NewUUID(),
		modified: c.now(),
		values:   make(map[string]*fieldValue),
	}
	for _, f := range typ.Fields() {
		fv := &fieldValue{}
		if s, ok := f.Spec.(schema.ScalarSpec); ok {
			fv.scalar = deepCopyValue(s.Default)
		}
		o.values[f.Name] = fv
	}
	return o
}

// Type returns the entity type this instance was created from.
func (o *Object) Type() *schema.Entity { return o.typ }

// UUID returns the identity, assigned once at creation.
func (o *Object) UUID() uuid.UUID { return o.id }

// Specifier returns the specifier denoting this instance.
func (o *Object) Specifier() Specifier { return Specifier{id: o.id} }

// Modified returns the modification timestamp. It strictly increases on
// every field mutation of this instance; it does not propagate upward.
func (o *Object) Modified() time.Time { return o.modified }

// Container returns the owning parent, or nil. It is non-nil for exactly
// the objects currently held by a component field or an element of an
// array-of-component field.
func (o *Object) Container() *Object { return o.container }

// Context returns the owning registry scope.
func (o *Object) Context() *Context { return o.ctx }

// Registered reports whether the instance is present in its context.
func (o *Object) Registered() bool { return o.registered }

// Closed reports whether Close has been called.
func (o *Object) Closed() bool { return o.closed }

// assertOpen catches use-after-close defects fail-fast rather than
// letting them no-op silently.
func (o *Object) assertOpen() {
	if o.closed {
		panic(fmt.Sprintf("entity: %s %s used after close", o.typ.Name(), o.id))
	}
}

func (o *Object) fieldSpec(name string) schema.FieldSpec {
	spec, ok := o.typ.Field(name)
	if !ok {
		panic(&schema.Error{Entity: o.typ.Name(), Field: name, Message: "unknown field"})
	}
	return spec
}

// touch advances the modification timestamp, strictly.
func (o *Object) touch() {
	now := o.ctx.now()
	if !now.After(o.modified) {
		now = o.modified.Add(time.Nanosecond)
	}
	o.modified = now
}

// Field returns the current value of a field: the literal value for a
// scalar, the resolved object (or nil) for a reference, the owned child
// (or nil) for a component, and the resolved element slice for an array.
func (o *Object) Field(name string) any {
	spec := o.fieldSpec(name)
	fv := o.values[name]
	switch spec.(type) {
	case schema.ScalarSpec:
		return fv.scalar
	case schema.ReferenceSpec:
		if item := fv.ref.resolve(o.ctx); item != nil {
			return item
		}
		return nil
	case schema.ComponentSpec:
		if fv.component != nil {
			return fv.component
		}
		return nil
	case schema.ArraySpec:
		return o.Items(name)
	default:
		return nil
	}
}

// ReferenceSpecifier returns the stored specifier of a reference field,
// regardless of whether it currently resolves.
func (o *Object) ReferenceSpecifier(name string) Specifier {
	if _, ok := o.fieldSpec(name).(schema.ReferenceSpec); !ok {
		panic(&schema.Error{Entity: o.typ.Name(), Field: name, Message: "not a reference field"})
	}
	return o.values[name].ref.spec
}

// SetField assigns a scalar, reference, or component field. Scalar fields
// accept their literal value; reference fields accept *Object, Specifier,
// or nil; component fields accept *Object or nil. Every call advances the
// modification timestamp and fires property_changed exactly once.
func (o *Object) SetField(name string, value any) {
	o.assertOpen()
	spec := o.fieldSpec(name)
	fv := o.values[name]
	switch spec.(type) {
	case schema.ScalarSpec:
		fv.scalar = value
		o.touch()
		if fn := o.changedFuncs[name]; fn != nil {
			fn(value)
		}
	case schema.ReferenceSpec:
		fv.ref = toRefValue(value, o.typ.Name(), name)
		o.touch()
	case schema.ComponentSpec:
		o.setComponent(fv, value, name)
		o.touch()
	default:
		panic(&schema.Error{Entity: o.typ.Name(), Field: name, Message: "array fields mutate via InsertItem/RemoveItem"})
	}
	o.propertyChanged.fire(func(fn func(string)) { fn(name) })
}

func toRefValue(value any, entityName, fieldName string) refValue {
	switch v := value.(type) {
	case nil:
		return refValue{}
	case *Object:
		if v == nil {
			return refValue{}
		}
		return refValue{spec: v.Specifier(), obj: v}
	case Specifier:
		return refValue{spec: v}
	default:
		panic(&schema.Error{Entity: entityName, Field: fieldName, Message: fmt.Sprintf("cannot set reference from %T", value)})
	}
}

func (o *Object) setComponent(fv *fieldValue, value any, name string) {
	var child *Object
	switch v := value.(type) {
	case nil:
	case *Object:
		child = v
	default:
		panic(&schema.Error{Entity: o.typ.Name(), Field: name, Message: fmt.Sprintf("cannot set component from %T", value)})
	}
	if old := fv.component; old != nil && old != child {
		o.detachChild(old)
	}
	fv.component = child
	if child != nil {
		o.attachChild(child)
	}
}

// attachChild takes ownership of child. A child may have at most one
// owning container; moving an object means remove-then-insert.
func (o *Object) attachChild(child *Object) {
	if child.container == o {
		return
	}
	if child.container != nil {
		panic(fmt.Sprintf("entity: %s %s already has a container", child.typ.Name(), child.id))
	}
	for p := o; p != nil; p = p.container {
		if p == child {
			panic(fmt.Sprintf("entity: %s %s would own one of its ancestors", o.typ.Name(), o.id))
		}
	}
	child.container = o
	if o.registered {
		if err := o.ctx.RegisterTree(child); err != nil {
			panic(err)
		}
	}
}

// detachChild releases ownership: the child's container clears and its
// subtree leaves the registry scope. The child is not closed; externally
// owned listeners (connections) react to the unregistration instead.
func (o *Object) detachChild(child *Object) {
	child.container = nil
	if child.registered {
		o.ctx.UnregisterTree(child)
	}
}

func (o *Object) ownedComponents() []*Object {
	var out []*Object
	for _, f := range o.typ.Fields() {
		fv := o.values[f.Name]
		switch spec := f.Spec.(type) {
		case schema.ComponentSpec:
			if fv.component != nil {
				out = append(out, fv.component)
			}
		case schema.ArraySpec:
			if _, ok := spec.Elem.(schema.ComponentSpec); ok {
				for _, it := range fv.items {
					out = append(out, it.obj)
				}
			}
		}
	}
	return out
}

func (o *Object) arrayField(key string) (*fieldValue, schema.ArraySpec) {
	spec, ok := o.fieldSpec(key).(schema.ArraySpec)
	if !ok {
		panic(&schema.Error{Entity: o.typ.Name(), Field: key, Message: "not an array field"})
	}
	return o.values[key], spec
}

// ItemCount returns the number of elements in an array field.
func (o *Object) ItemCount(key string) int {
	fv, _ := o.arrayField(key)
	return len(fv.items)
}

// ItemAt returns the element at index, resolved for reference arrays.
func (o *Object) ItemAt(key string, index int) *Object {
	fv, _ := o.arrayField(key)
	return fv.items[index].resolve(o.ctx)
}

// Items returns the resolved elements of an array field. Dangling
// reference elements appear as nil.
func (o *Object) Items(key string) []*Object {
	fv, _ := o.arrayField(key)
	out := make([]*Object, len(fv.items))
	for i, it := range fv.items {
		out[i] = it.resolve(o.ctx)
	}
	return out
}

// InsertItem inserts value before index in an array field. Component
// arrays take ownership of the value; reference arrays store only its
// specifier. item_inserted fires once, after the value is present.
func (o *Object) InsertItem(key string, index int, value *Object) {
	o.assertOpen()
	fv, spec := o.arrayField(key)
	if index < 0 || index > len(fv.items) {
		panic(fmt.Sprintf("entity: %s.%s index %d out of range [0,%d]", o.typ.Name(), key, index, len(fv.items)))
	}
	var it arrayItem
	if _, owned := spec.Elem.(schema.ComponentSpec); owned {
		it = arrayItem{owned: true, obj: value}
	} else {
		it = arrayItem{spec: value.Specifier(), obj: value}
	}
	fv.items = append(fv.items, arrayItem{})
	copy(fv.items[index+1:], fv.items[index:])
	fv.items[index] = it
	if it.owned {
		o.attachChild(value)
	}
	o.touch()
	o.itemInserted.fire(func(fn func(string, *Object, int)) { fn(key, value, index) })
}

// AppendItem inserts value at the end of an array field.
func (o *Object) AppendItem(key string, value *Object) {
	o.InsertItem(key, o.ItemCount(key), value)
}

// RemoveItem removes value from an array field. Removing a component
// clears its container; removing an object that is not an element is a
// programmer error. item_removed fires once, after the removal.
func (o *Object) RemoveItem(key string, value *Object) {
	o.assertOpen()
	fv, _ := o.arrayField(key)
	index := -1
	for i, it := range fv.items {
		if it.resolve(o.ctx) == value || (!it.owned && it.spec == value.Specifier()) {
			index = i
			break
		}
	}
	if index < 0 {
		panic(fmt.Sprintf("entity: %s.%s does not contain %s", o.typ.Name(), key, value.id))
	}
	it := fv.items[index]
	fv.items = append(fv.items[:index], fv.items[index+1:]...)
	if it.owned {
		o.detachChild(it.obj)
	}
	o.touch()
	o.itemRemoved.fire(func(fn func(string, *Object, int)) { fn(key, value, index) })
}

// SetFieldChangedFunc installs a per-field callback invoked on every set
// of the named scalar field, before property_changed fires. Runtime-only
// state: it is not persisted and is dropped on Close.
func (o *Object) SetFieldChangedFunc(name string, fn func(value any)) {
	if _, ok := o.fieldSpec(name).(schema.ScalarSpec); !ok {
		panic(&schema.Error{Entity: o.typ.Name(), Field: name, Message: "changed funcs attach to scalar fields"})
	}
	if o.changedFuncs == nil {
		o.changedFuncs = make(map[string]func(any))
	}
	o.changedFuncs[name] = fn
}

// ListenPropertyChanged subscribes to property_changed events.
func (o *Object) ListenPropertyChanged(fn func(name string)) *Listener {
	return o.propertyChanged.listen(fn)
}

// ListenItemInserted subscribes to item_inserted events.
func (o *Object) ListenItemInserted(fn func(key string, value *Object, index int)) *Listener {
	return o.itemInserted.listen(fn)
}

// ListenItemRemoved subscribes to item_removed events.
func (o *Object) ListenItemRemoved(fn func(key string, value *Object, index int)) *Listener {
	return o.itemRemoved.listen(fn)
}

// Close tears the instance down: owned components close recursively, all
// listeners release, and the instance leaves the registry. Close is
// idempotent and synchronous; no event fires after it returns. Further
// mutation of a closed instance panics.
func (o *Object) Close() {
	if o.closed {
		return
	}
	o.closed = true
	for _, child := range o.ownedComponents() {
		child.Close()
	}
	if o.registered {
		o.ctx.Unregister(o)
	}
	o.container = nil
	o.changedFuncs = nil
	o.propertyChanged.clear()
	o.itemInserted.clear()
	o.itemRemoved.clear()
}

func deepCopyValue(v any) any {
	switch val := v.(type) {
	case []any:
		out := make([]any, len(val))
		for i, e := range val {
			out[i] = deepCopyValue(e)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, e := range val {
			out[k] = deepCopyValue(e)
		}
		return out
	default:
		return v
	}
}
