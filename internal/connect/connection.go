package connect

import (
	"fmt"

	"github.com/lumascope/entgraph/internal/entity"
)

// Connection is a persisted live binding between two objects' properties,
// dispatched on its kind discriminator. The persistent state is the
// underlying object's specifier fields; everything else (references,
// listeners, the suppress guard) is runtime-only and rebuilt on load.
type Connection struct {
	obj  *entity.Object
	kind Kind

	parentRef *entity.ItemReference
	sourceRef *entity.ItemReference
	targetRef *entity.ItemReference

	// property kind
	suppress       bool
	sourceListener *entity.Listener
	targetListener *entity.Listener

	// interval-list kind
	insertedListener  *entity.Listener
	removedListener   *entity.Listener
	intervalListeners []*entity.Listener

	closed bool
}

// Object returns the underlying persistent object; serializing it
// persists the connection.
func (c *Connection) Object() *entity.Object { return c.obj }

// Kind returns the connection discriminator.
func (c *Connection) Kind() Kind { return c.kind }

// Parent returns the resolved parent object, or nil.
func (c *Connection) Parent() *entity.Object { return c.parentRef.Item() }

// SetParent rebinds the parent specifier.
func (c *Connection) SetParent(parent *entity.Object) {
	c.obj.SetField(fieldParentSpecifier, specifierFieldValue(parent))
}

// Source returns the currently resolved source object, or nil.
func (c *Connection) Source() *entity.Object { return c.sourceRef.Item() }

// Target returns the currently resolved target object, or nil.
func (c *Connection) Target() *entity.Object { return c.targetRef.Item() }

// ConnectedItems returns the resolved endpoints; unresolved ends are nil.
func (c *Connection) ConnectedItems() []*entity.Object {
	return []*entity.Object{c.Source(), c.Target()}
}

// Close releases every listener the connection holds, the top-level
// source/target listeners and any accumulated per-interval listeners,
// then closes the underlying object. Synchronous and idempotent; no
// propagation fires after Close returns.
func (c *Connection) Close() {
	if c.closed {
		return
	}
	c.closed = true
	c.releaseBinding()
	c.releaseIntervalSource()
	c.parentRef.Close()
	c.sourceRef.Close()
	c.targetRef.Close()
	c.obj.Close()
}

// FromObject rebuilds the runtime side of a loaded connection object,
// dispatching on its type discriminator. The returned connection adopts
// the object's current specifier fields and activates lazily as the
// endpoints register.
func FromObject(obj *entity.Object) (*Connection, error) {
	switch Kind(obj.Type().Name()) {
	case KindProperty:
		return wireProperty(obj), nil
	case KindIntervalList:
		return wireIntervalList(obj), nil
	default:
		return nil, fmt.Errorf("connect: %q is not a connection type", obj.Type().Name())
	}
}

// newConnection wires the state shared by both kinds: the parent
// reference and the specifier field plumbing that keeps each
// ItemReference in sync with its persisted field.
func newConnection(obj *entity.Object, kind Kind) *Connection {
	ctx := obj.Context()
	c := &Connection{
		obj:       obj,
		kind:      kind,
		parentRef: ctx.NewItemReference(nil),
		sourceRef: ctx.NewItemReference(nil),
		targetRef: ctx.NewItemReference(nil),
	}
	obj.SetFieldChangedFunc(fieldParentSpecifier, func(v any) {
		c.parentRef.SetSpecifier(parseSpecifierField(v))
	})
	obj.SetFieldChangedFunc(fieldSourceSpecifier, func(v any) {
		c.sourceRef.SetSpecifier(parseSpecifierField(v))
	})
	obj.SetFieldChangedFunc(fieldTargetSpecifier, func(v any) {
		c.targetRef.SetSpecifier(parseSpecifierField(v))
	})
	return c
}

// adoptSpecifiers folds the object's current specifier fields into the
// references; used when wiring a loaded object whose fields were
// hydrated before the changed funcs existed.
func (c *Connection) adoptSpecifiers() {
	c.parentRef.SetSpecifier(parseSpecifierField(c.obj.Field(fieldParentSpecifier)))
	c.sourceRef.SetSpecifier(parseSpecifierField(c.obj.Field(fieldSourceSpecifier)))
	c.targetRef.SetSpecifier(parseSpecifierField(c.obj.Field(fieldTargetSpecifier)))
}

func parseSpecifierField(v any) entity.Specifier {
	s, _ := v.(string)
	spec, err := entity.ParseSpecifier(s)
	if err != nil {
		// A malformed specifier in a live field is a programmer error;
		// records reject it at read time.
		panic(err)
	}
	return spec
}

func specifierFieldValue(o *entity.Object) any {
	if o == nil {
		return nil
	}
	return o.Specifier().String()
}
