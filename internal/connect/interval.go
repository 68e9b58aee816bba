package connect

import (
	"github.com/lumascope/entgraph/internal/entity"
	"github.com/lumascope/entgraph/internal/record"
)

// NewIntervalList creates the one-directional aggregation from a display
// to a line profile: every interval graphic owned by the display projects
// into the target's interval_descriptors list. The projection recomputes
// when the display's graphics collection gains or loses a member and when
// any tracked interval graphic mutates.
func NewIntervalList(ctx *entity.Context, display *entity.Object, lineProfile *entity.Object) (*Connection, error) {
	obj, err := ctx.Create(string(KindIntervalList))
	if err != nil {
		return nil, err
	}
	c := newConnection(obj, KindIntervalList)
	c.installIntervalCallbacks()
	obj.SetField(fieldSourceSpecifier, specifierFieldValue(display))
	obj.SetField(fieldTargetSpecifier, specifierFieldValue(lineProfile))
	return c, nil
}

// wireIntervalList rebuilds the runtime side of a loaded connection.
func wireIntervalList(obj *entity.Object) *Connection {
	c := newConnection(obj, KindIntervalList)
	c.installIntervalCallbacks()
	c.adoptSpecifiers()
	return c
}

func (c *Connection) installIntervalCallbacks() {
	c.sourceRef.OnItemRegistered = func(*entity.Object) { c.attachIntervalSource() }
	c.sourceRef.OnItemUnregistered = func(*entity.Object) { c.releaseIntervalSource() }
	c.targetRef.OnItemRegistered = func(*entity.Object) { c.recomputeIntervals() }
	c.targetRef.OnItemUnregistered = func(*entity.Object) { c.releaseIntervalSource() }
}

// attachIntervalSource listens for membership changes on the display's
// graphics collection and computes the initial projection.
func (c *Connection) attachIntervalSource() {
	source := c.sourceRef.Item()
	if source != nil && c.insertedListener == nil {
		c.insertedListener = source.ListenItemInserted(func(key string, value *entity.Object, index int) {
			if key == GraphicsKey && c.targetRef.Item() != nil {
				c.recomputeIntervals()
			}
		})
		c.removedListener = source.ListenItemRemoved(func(key string, value *entity.Object, index int) {
			if key == GraphicsKey && c.targetRef.Item() != nil {
				c.recomputeIntervals()
			}
		})
	}
	c.recomputeIntervals()
}

// releaseIntervalSource drops the membership listeners and every
// per-interval listener accumulated by recomputation.
func (c *Connection) releaseIntervalSource() {
	if c.insertedListener != nil {
		c.insertedListener.Close()
		c.insertedListener = nil
	}
	if c.removedListener != nil {
		c.removedListener.Close()
		c.removedListener = nil
	}
	c.detachIntervalListeners()
}

func (c *Connection) detachIntervalListeners() {
	for _, l := range c.intervalListeners {
		l.Close()
	}
	c.intervalListeners = nil
}

// recomputeIntervals rebuilds the descriptor list from the display's
// current interval graphics, re-subscribes to each one, and assigns the
// result onto the target only when the content actually differs.
func (c *Connection) recomputeIntervals() {
	c.detachIntervalListeners()
	descriptors := []any{}
	if source := c.sourceRef.Item(); source != nil {
		for _, graphic := range source.Items(GraphicsKey) {
			if graphic == nil || !graphic.Type().IsA(IntervalGraphicType) {
				continue
			}
			descriptors = append(descriptors, map[string]any{
				"interval": []any{graphic.Field(IntervalStartKey), graphic.Field(IntervalEndKey)},
				"color":    intervalColor,
			})
			c.intervalListeners = append(c.intervalListeners,
				graphic.ListenPropertyChanged(func(string) { c.recomputeIntervals() }))
		}
	}
	if target := c.targetRef.Item(); target != nil {
		if !record.Equal(target.Field(IntervalDescriptorsKey), descriptors) {
			target.SetField(IntervalDescriptorsKey, descriptors)
		}
	}
}
