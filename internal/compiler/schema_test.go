package compiler

import (
	"testing"

	"cuelang.org/go/cue/cuecontext"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumascope/entgraph/internal/schema"
)

func TestCompileSchemaBasic(t *testing.T) {
	ctx := cuecontext.New()
	v := ctx.CompileString(`
		entity: calibration: {
			field: offset: {type: "float", default: 0.0}
			field: scale: {type: "float", default: 1.0}
			field: units: {type: "string", default: ""}
		}
		entity: graphic: {
			field: label: {type: "string", default: ""}
			component: calibration: "calibration"
		}
	`)
	require.NoError(t, v.Err())

	s, err := CompileSchema(v)
	require.NoError(t, err)

	graphic, ok := s.Lookup("graphic")
	require.True(t, ok)
	assert.Equal(t, "graphic", graphic.Name())

	label, ok := graphic.Field("label")
	require.True(t, ok)
	assert.Equal(t, schema.ScalarSpec{Type: schema.String, Default: ""}, label)

	cal, ok := graphic.Field("calibration")
	require.True(t, ok)
	assert.Equal(t, schema.Component("calibration"), cal)
}

func TestCompileSchemaGroupOrder(t *testing.T) {
	ctx := cuecontext.New()
	v := ctx.CompileString(`
		entity: target: {}
		entity: thing: {
			array: parts: {component: "target"}
			component: detail: "target"
			reference: source: "target"
			field: label: {type: "string", default: ""}
		}
	`)
	require.NoError(t, v.Err())

	s, err := CompileSchema(v)
	require.NoError(t, err)

	thing, ok := s.Lookup("thing")
	require.True(t, ok)

	names := make([]string, 0, 4)
	for _, f := range thing.Fields() {
		names = append(names, f.Name)
	}
	// Scalars, then references, then components, then arrays.
	assert.Equal(t, []string{"label", "source", "detail", "parts"}, names)
}

func TestCompileSchemaBaseOrdering(t *testing.T) {
	ctx := cuecontext.New()
	// "annotation" extends "graphic" but sorts before it lexically;
	// compilation must order by base dependency, not declaration order.
	v := ctx.CompileString(`
		entity: annotation: {
			base: "graphic"
			field: text: {type: "string", default: ""}
		}
		entity: graphic: {
			field: label: {type: "string", default: ""}
		}
	`)
	require.NoError(t, v.Err())

	s, err := CompileSchema(v)
	require.NoError(t, err)

	annotation, ok := s.Lookup("annotation")
	require.True(t, ok)
	assert.True(t, annotation.IsA("graphic"))

	_, ok = annotation.Field("label")
	assert.True(t, ok, "base field visible through extension")
}

func TestCompileIntoExtendsExisting(t *testing.T) {
	base := schema.New()
	base.MustDefine("item", "", nil)

	ctx := cuecontext.New()
	v := ctx.CompileString(`
		entity: interval_graphic: {
			base: "item"
			field: start: {type: "float", default: 0.0}
			field: end: {type: "float", default: 1.0}
		}
	`)
	require.NoError(t, v.Err())

	require.NoError(t, CompileInto(base, v))

	interval, ok := base.Lookup("interval_graphic")
	require.True(t, ok)
	assert.True(t, interval.IsA("item"))
}

func TestCompileSchemaUnknownBase(t *testing.T) {
	ctx := cuecontext.New()
	v := ctx.CompileString(`
		entity: orphan: {
			base: "nonexistent"
		}
	`)
	require.NoError(t, v.Err())

	_, err := CompileSchema(v)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown base")
	assert.Contains(t, err.Error(), "nonexistent")
}

func TestCompileSchemaBaseCycle(t *testing.T) {
	ctx := cuecontext.New()
	v := ctx.CompileString(`
		entity: a: {base: "b"}
		entity: b: {base: "a"}
	`)
	require.NoError(t, v.Err())

	_, err := CompileSchema(v)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cycle")
}

func TestCompileSchemaMissingFieldType(t *testing.T) {
	ctx := cuecontext.New()
	v := ctx.CompileString(`
		entity: bad: {
			field: label: {default: ""}
		}
	`)
	require.NoError(t, v.Err())

	_, err := CompileSchema(v)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "type is required")
}

func TestCompileSchemaUnsupportedFieldType(t *testing.T) {
	ctx := cuecontext.New()
	v := ctx.CompileString(`
		entity: bad: {
			field: blob: {type: "bytes"}
		}
	`)
	require.NoError(t, v.Err())

	_, err := CompileSchema(v)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unsupported field type "bytes"`)
}

func TestCompileSchemaDefaultTypeMismatch(t *testing.T) {
	ctx := cuecontext.New()
	v := ctx.CompileString(`
		entity: bad: {
			field: count: {type: "int", default: "nope"}
		}
	`)
	require.NoError(t, v.Err())

	_, err := CompileSchema(v)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "default does not match type int")
}

func TestCompileSchemaSerializationKey(t *testing.T) {
	ctx := cuecontext.New()
	v := ctx.CompileString(`
		entity: link: {
			field: source_specifier: {type: "string", default: "", key: "source_uuid"}
		}
	`)
	require.NoError(t, v.Err())

	s, err := CompileSchema(v)
	require.NoError(t, err)

	link, ok := s.Lookup("link")
	require.True(t, ok)
	spec, ok := link.Field("source_specifier")
	require.True(t, ok)
	assert.Equal(t, "source_uuid", spec.(schema.ScalarSpec).Key)
}

func TestCompileSchemaArrayElementKind(t *testing.T) {
	ctx := cuecontext.New()
	v := ctx.CompileString(`
		entity: bad: {
			array: things: {}
		}
	`)
	require.NoError(t, v.Err())

	_, err := CompileSchema(v)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exactly one of reference or component")
}

func TestCompileSchemaNoEntities(t *testing.T) {
	ctx := cuecontext.New()
	v := ctx.CompileString(`other: {}`)
	require.NoError(t, v.Err())

	_, err := CompileSchema(v)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no entity declarations")
}
