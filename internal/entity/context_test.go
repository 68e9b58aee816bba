package entity

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumascope/entgraph/internal/schema"
)

var fixedNow = time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)

// testSchema declares the entity types the package tests share: a
// polymorphic item base, interval graphics, and a display owning graphics
// and referencing a source item.
func testSchema(t *testing.T) *schema.Schema {
	t.Helper()
	s := schema.New()
	s.MustDefine("item", "", []schema.Field{
		{Name: "label", Spec: schema.Prop(schema.String, "")},
	})
	s.MustDefine("calibration", "", []schema.Field{
		{Name: "offset", Spec: schema.Prop(schema.Float, 0.0)},
	})
	s.MustDefine("interval_graphic", "item", []schema.Field{
		{Name: "interval_start", Spec: schema.Prop(schema.Float, 0.0)},
		{Name: "interval_end", Spec: schema.Prop(schema.Float, 1.0)},
	})
	s.MustDefine("display", "item", []schema.Field{
		{Name: "title", Spec: schema.Prop(schema.String, "")},
		{Name: "source", Spec: schema.Reference("item")},
		{Name: "calibration", Spec: schema.Component("calibration")},
		{Name: "graphics", Spec: schema.Array(schema.Component("item"))},
		{Name: "related", Spec: schema.Array(schema.Reference("item"))},
	})
	return s
}

func testContext(t *testing.T, ids ...string) *Context {
	t.Helper()
	opts := []ContextOption{WithNow(func() time.Time { return fixedNow })}
	if len(ids) > 0 {
		opts = append(opts, WithIDGenerator(NewFixedGenerator(ids...)))
	}
	return NewContext(testSchema(t), opts...)
}

func TestCreateAssignsIdentity(t *testing.T) {
	ctx := testContext(t, "11111111-1111-1111-1111-111111111111")

	o, err := ctx.Create("display")
	require.NoError(t, err)
	assert.Equal(t, uuid.MustParse("11111111-1111-1111-1111-111111111111"), o.UUID())
	assert.Equal(t, fixedNow, o.Modified())
	assert.False(t, o.Registered())
	assert.Nil(t, o.Container())
}

func TestCreateUnknownType(t *testing.T) {
	ctx := testContext(t)
	_, err := ctx.Create("nonexistent")
	require.Error(t, err)
	assert.True(t, schema.IsSchemaError(err))
}

func TestRegisterAndGet(t *testing.T) {
	ctx := testContext(t)
	o := ctx.MustCreate("item")

	_, ok := ctx.Get(o.UUID())
	assert.False(t, ok)

	require.NoError(t, ctx.Register(o))
	assert.True(t, o.Registered())
	got, ok := ctx.Get(o.UUID())
	require.True(t, ok)
	assert.Same(t, o, got)

	ctx.Unregister(o)
	assert.False(t, o.Registered())
	_, ok = ctx.Get(o.UUID())
	assert.False(t, ok)
}

func TestRegisterDuplicate(t *testing.T) {
	ctx := testContext(t)
	o := ctx.MustCreate("item")
	require.NoError(t, ctx.Register(o))

	err := ctx.Register(o)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already registered")
}

func TestUnregisterUnknownIsNoop(t *testing.T) {
	ctx := testContext(t)
	o := ctx.MustCreate("item")
	assert.NotPanics(t, func() { ctx.Unregister(o) })
}

func TestRegisterTree(t *testing.T) {
	ctx := testContext(t)
	display := ctx.MustCreate("display")
	cal := ctx.MustCreate("calibration")
	graphic := ctx.MustCreate("interval_graphic")
	display.SetField("calibration", cal)
	display.AppendItem("graphics", graphic)

	require.NoError(t, ctx.RegisterTree(display))
	assert.True(t, display.Registered())
	assert.True(t, cal.Registered())
	assert.True(t, graphic.Registered())

	ctx.UnregisterTree(display)
	assert.False(t, display.Registered())
	assert.False(t, cal.Registered())
	assert.False(t, graphic.Registered())
}

func TestFixedGeneratorExhaustion(t *testing.T) {
	g := NewFixedGenerator("11111111-1111-1111-1111-111111111111")
	g.NewUUID()
	assert.Panics(t, func() { g.NewUUID() })
}
