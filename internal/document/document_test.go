package document

import (
	"testing"
	"time"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumascope/entgraph/internal/connect"
	"github.com/lumascope/entgraph/internal/entity"
	"github.com/lumascope/entgraph/internal/record"
	"github.com/lumascope/entgraph/internal/schema"
)

var fixedNow = time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)

// testSchema declares the built-in document entities plus two application
// item types used across the package tests.
func testSchema(t *testing.T) *schema.Schema {
	t.Helper()
	s := schema.New()
	require.NoError(t, DefineEntities(s))
	s.MustDefine("note", ItemBaseType, []schema.Field{
		{Name: "text", Spec: schema.Prop(schema.String, "")},
	})
	s.MustDefine("display", ItemBaseType, []schema.Field{
		{Name: "value", Spec: schema.Prop(schema.Float, 0.0)},
		{Name: "shadow", Spec: schema.Prop(schema.Float, 0.0)},
	})
	return s
}

func testContext(t *testing.T, ids ...string) *entity.Context {
	t.Helper()
	opts := []entity.ContextOption{entity.WithNow(func() time.Time { return fixedNow })}
	if len(ids) > 0 {
		opts = append(opts, entity.WithIDGenerator(entity.NewFixedGenerator(ids...)))
	}
	return entity.NewContext(testSchema(t), opts...)
}

func TestNewDocument(t *testing.T) {
	ctx := testContext(t)
	doc, err := New(ctx)
	require.NoError(t, err)
	defer doc.Close()

	assert.Equal(t, DocumentType, doc.Root().Type().Name())
	assert.True(t, doc.Root().Registered())
	assert.Empty(t, doc.Items())
	assert.Empty(t, doc.Connections())
}

func TestAddRemoveItem(t *testing.T) {
	ctx := testContext(t)
	doc, err := New(ctx)
	require.NoError(t, err)
	defer doc.Close()

	note := ctx.MustCreate("note")
	doc.AddItem(note)
	assert.True(t, note.Registered(), "items register on attach")
	assert.Same(t, doc.Root(), note.Container())
	assert.Equal(t, []*entity.Object{note}, doc.Items())

	doc.RemoveItem(note)
	assert.True(t, note.Closed())
	assert.Empty(t, doc.Items())
}

func TestAddRemoveConnection(t *testing.T) {
	ctx := testContext(t)
	doc, err := New(ctx)
	require.NoError(t, err)
	defer doc.Close()

	a := ctx.MustCreate("display")
	b := ctx.MustCreate("display")
	doc.AddItem(a)
	doc.AddItem(b)

	conn, err := connect.NewProperty(ctx, a, "value", b, "shadow")
	require.NoError(t, err)
	doc.AddConnection(conn)
	assert.Len(t, doc.Connections(), 1)
	assert.True(t, conn.Object().Registered())

	a.SetField("value", 1.5)
	assert.Equal(t, 1.5, b.Field("shadow"))

	doc.RemoveConnection(conn)
	assert.Empty(t, doc.Connections())
	assert.True(t, conn.Object().Closed())
	a.SetField("value", 2.5)
	assert.Equal(t, 1.5, b.Field("shadow"))
}

func TestRemovedItemDisconnectsConnection(t *testing.T) {
	ctx := testContext(t)
	doc, err := New(ctx)
	require.NoError(t, err)
	defer doc.Close()

	a := ctx.MustCreate("display")
	b := ctx.MustCreate("display")
	doc.AddItem(a)
	doc.AddItem(b)
	conn, err := connect.NewProperty(ctx, a, "value", b, "shadow")
	require.NoError(t, err)
	doc.AddConnection(conn)

	// Removing an endpoint unregisters it; the connection goes dormant
	// rather than erroring.
	doc.RemoveItem(b)
	assert.NotPanics(t, func() { a.SetField("value", 3.0) })
	assert.Nil(t, conn.Target())
}

func TestWriteToRecordGolden(t *testing.T) {
	ctx := testContext(t,
		"11111111-1111-1111-1111-111111111111",
		"22222222-2222-2222-2222-222222222222",
	)
	doc, err := New(ctx)
	require.NoError(t, err)
	defer doc.Close()

	doc.Root().SetField(FieldTitle, "Session 12")
	note := ctx.MustCreate("note")
	note.SetField("text", "baseline")
	doc.AddItem(note)

	data, err := record.MarshalCanonical(doc.WriteToRecord())
	require.NoError(t, err)

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "document_record", data)
}

func TestReadRoundTrip(t *testing.T) {
	ctx := testContext(t)
	doc, err := New(ctx)
	require.NoError(t, err)

	doc.Root().SetField(FieldTitle, "Line Profiles")
	a := ctx.MustCreate("display")
	b := ctx.MustCreate("display")
	a.SetField("value", 0.5)
	doc.AddItem(a)
	doc.AddItem(b)
	conn, err := connect.NewProperty(ctx, a, "value", b, "shadow")
	require.NoError(t, err)
	doc.AddConnection(conn)

	rec := doc.WriteToRecord()
	doc.Close()

	ctx2 := testContext(t)
	loaded, err := Read(ctx2, rec)
	require.NoError(t, err)
	defer loaded.Close()

	assert.Equal(t, "Line Profiles", loaded.Root().Field(FieldTitle))
	require.Len(t, loaded.Items(), 2)
	require.Len(t, loaded.Connections(), 1)
	assert.Equal(t, doc.Root().UUID(), loaded.Root().UUID())
	assert.Equal(t, a.UUID(), loaded.Items()[0].UUID())

	// The loaded connection reactivated against the loaded items; note
	// the reactivation already pushed the source value across.
	la, lb := loaded.Items()[0], loaded.Items()[1]
	assert.Equal(t, 0.5, lb.Field("shadow"))
	la.SetField("value", 8.0)
	assert.Equal(t, 8.0, lb.Field("shadow"))
}

func TestReadRoundTripRecordIdentity(t *testing.T) {
	// Without connections, hydration has no side effects and the record
	// round-trips byte-identically.
	ctx := testContext(t)
	doc, err := New(ctx)
	require.NoError(t, err)
	doc.Root().SetField(FieldTitle, "Notes")
	note := ctx.MustCreate("note")
	note.SetField("text", "baseline")
	doc.AddItem(note)

	rec := doc.WriteToRecord()
	doc.Close()

	loaded, err := Read(testContext(t), rec)
	require.NoError(t, err)
	defer loaded.Close()
	assert.True(t, record.Equal(rec, loaded.WriteToRecord()))

	first, err := record.MarshalCanonical(rec)
	require.NoError(t, err)
	second, err := record.MarshalCanonical(loaded.WriteToRecord())
	require.NoError(t, err)
	assert.Equal(t, string(first), string(second))
}

func TestReadRejectsOtherTypes(t *testing.T) {
	ctx := testContext(t)
	note := ctx.MustCreate("note")
	_, err := Read(testContext(t), note.WriteToRecord())
	require.Error(t, err)
	assert.True(t, record.IsReadError(err))
}

func TestCloseClosesConnectionsFirst(t *testing.T) {
	ctx := testContext(t)
	doc, err := New(ctx)
	require.NoError(t, err)

	a := ctx.MustCreate("display")
	b := ctx.MustCreate("display")
	doc.AddItem(a)
	doc.AddItem(b)
	conn, err := connect.NewProperty(ctx, a, "value", b, "shadow")
	require.NoError(t, err)
	doc.AddConnection(conn)

	doc.Close()
	assert.True(t, conn.Object().Closed())
	assert.True(t, doc.Root().Closed())
	assert.True(t, a.Closed())
	assert.NotPanics(t, doc.Close)
}
