package connect

import (
	"github.com/lumascope/entgraph/internal/entity"
)

// NewProperty creates a bidirectional property connection: when the
// source property changes, the target property is set to match, and vice
// versa. Either endpoint may be nil or unregistered at construction; the
// connection stays dormant until both endpoints are registered, then
// pushes the source value to the target and begins propagating.
func NewProperty(ctx *entity.Context, source *entity.Object, sourceProperty string, target *entity.Object, targetProperty string) (*Connection, error) {
	obj, err := ctx.Create(string(KindProperty))
	if err != nil {
		return nil, err
	}
	c := newConnection(obj, KindProperty)
	c.installPropertyCallbacks()
	obj.SetField(fieldSourceProperty, sourceProperty)
	obj.SetField(fieldTargetProperty, targetProperty)
	obj.SetField(fieldSourceSpecifier, specifierFieldValue(source))
	obj.SetField(fieldTargetSpecifier, specifierFieldValue(target))
	return c, nil
}

// wireProperty rebuilds the runtime side of a loaded property connection.
func wireProperty(obj *entity.Object) *Connection {
	c := newConnection(obj, KindProperty)
	c.installPropertyCallbacks()
	c.adoptSpecifiers()
	return c
}

func (c *Connection) installPropertyCallbacks() {
	c.sourceRef.OnItemRegistered = func(*entity.Object) { c.configureBinding() }
	c.sourceRef.OnItemUnregistered = func(*entity.Object) { c.releaseBinding() }
	c.targetRef.OnItemRegistered = func(*entity.Object) { c.configureBinding() }
	c.targetRef.OnItemUnregistered = func(*entity.Object) { c.releaseBinding() }
}

// configureBinding establishes the two property listeners once both
// endpoints are resolved, then pushes the current source value across.
// While reading a document the target may not be connected yet; the
// binding re-establishes when a later registration completes the pair.
func (c *Connection) configureBinding() {
	source := c.sourceRef.Item()
	target := c.targetRef.Item()
	if source == nil || target == nil || c.sourceListener != nil {
		return
	}
	sourceProperty, _ := c.obj.Field(fieldSourceProperty).(string)
	targetProperty, _ := c.obj.Field(fieldTargetProperty).(string)
	c.sourceListener = source.ListenPropertyChanged(func(name string) {
		if name == sourceProperty {
			c.setTargetFromSource()
		}
	})
	c.targetListener = target.ListenPropertyChanged(func(name string) {
		if name == targetProperty {
			c.setSourceFromTarget()
		}
	})
	c.setTargetFromSource()
}

// releaseBinding tears the property listeners down. The references stay
// watching, so a later re-registration re-establishes the binding.
func (c *Connection) releaseBinding() {
	if c.sourceListener != nil {
		c.sourceListener.Close()
		c.sourceListener = nil
	}
	if c.targetListener != nil {
		c.targetListener.Close()
		c.targetListener = nil
	}
}

// setTargetFromSource propagates source -> target under the single-flight
// guard: a propagation triggered by the opposite direction is suppressed
// rather than allowed to recurse.
func (c *Connection) setTargetFromSource() {
	if c.suppress {
		return
	}
	source := c.sourceRef.Item()
	target := c.targetRef.Item()
	if source == nil || target == nil {
		return
	}
	sourceProperty, _ := c.obj.Field(fieldSourceProperty).(string)
	targetProperty, _ := c.obj.Field(fieldTargetProperty).(string)
	c.suppress = true
	defer func() { c.suppress = false }()
	target.SetField(targetProperty, source.Field(sourceProperty))
}

func (c *Connection) setSourceFromTarget() {
	if c.suppress {
		return
	}
	source := c.sourceRef.Item()
	target := c.targetRef.Item()
	if source == nil || target == nil {
		return
	}
	sourceProperty, _ := c.obj.Field(fieldSourceProperty).(string)
	targetProperty, _ := c.obj.Field(fieldTargetProperty).(string)
	c.suppress = true
	defer func() { c.suppress = false }()
	source.SetField(sourceProperty, target.Field(targetProperty))
}
