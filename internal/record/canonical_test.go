package record

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalCanonicalValues(t *testing.T) {
	tests := []struct {
		name  string
		value any
		want  string
	}{
		{"nil", nil, `null`},
		{"true", true, `true`},
		{"false", false, `false`},
		{"string", "hello", `"hello"`},
		{"no html escaping", "<a>&</a>", `"<a>&</a>"`},
		{"int", 42, `42`},
		{"int64", int64(-7), `-7`},
		{"integral float", 3.0, `3`},
		{"fractional float", 0.25, `0.25`},
		{"negative fraction", -1.5, `-1.5`},
		{"empty array", []any{}, `[]`},
		{"array", []any{1, "two", nil}, `[1,"two",null]`},
		{"empty object", map[string]any{}, `{}`},
		{"nested", map[string]any{"b": []any{true}, "a": 1}, `{"a":1,"b":[true]}`},
		{"record", Record{"type": "graphic", "label": "x"}, `{"label":"x","type":"graphic"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := MarshalCanonical(tt.value)
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(got))
		})
	}
}

func TestMarshalCanonicalKeyOrderUTF16(t *testing.T) {
	// U+FF01 (FULLWIDTH !) is a single UTF-16 code unit 0xFF01;
	// U+10000 encodes as the surrogate pair 0xD800 0xDC00, which sorts
	// before it in UTF-16 order even though its UTF-8 bytes sort after.
	obj := map[string]any{
		"！":     1,
		"\U00010000": 2,
	}
	got, err := MarshalCanonical(obj)
	require.NoError(t, err)
	assert.Equal(t, "{\"\U00010000\":2,\"！\":1}", string(got))
}

func TestMarshalCanonicalNFC(t *testing.T) {
	// "é" as e + combining acute normalizes to the precomposed form.
	got, err := MarshalCanonical("é")
	require.NoError(t, err)
	assert.Equal(t, `"`+"é"+`"`, string(got))
}

func TestMarshalCanonicalRejectsNonFinite(t *testing.T) {
	for _, f := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		_, err := MarshalCanonical(f)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "non-finite")
	}
}

func TestMarshalCanonicalRejectsUnknownType(t *testing.T) {
	_, err := MarshalCanonical(struct{}{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot canonicalize")
}

func TestUnmarshalRecordNumbers(t *testing.T) {
	rec, err := UnmarshalRecord([]byte(`{"count":3,"ratio":0.5,"big":9007199254740993}`))
	require.NoError(t, err)
	assert.Equal(t, int64(3), rec["count"])
	assert.Equal(t, 0.5, rec["ratio"])
	assert.Equal(t, int64(9007199254740993), rec["big"])
}

func TestUnmarshalRecordMalformed(t *testing.T) {
	_, err := UnmarshalRecord([]byte(`{`))
	require.Error(t, err)
	assert.True(t, IsReadError(err))
}

func TestCanonicalRoundTrip(t *testing.T) {
	rec := Record{
		"type":     "interval_graphic",
		"uuid":     "11111111-1111-1111-1111-111111111111",
		"modified": "2025-01-02T03:04:05.000000001Z",
		"start":    0.25,
		"end":      1.0,
		"tags":     []any{"a", "b"},
	}
	first, err := MarshalCanonical(rec)
	require.NoError(t, err)

	decoded, err := UnmarshalRecord(first)
	require.NoError(t, err)
	second, err := MarshalCanonical(decoded)
	require.NoError(t, err)

	// Byte-stable across a decode/encode cycle.
	assert.Equal(t, string(first), string(second))
}

func TestRecordAccessors(t *testing.T) {
	rec := Record{
		"type":     "graphic",
		"uuid":     "11111111-1111-1111-1111-111111111111",
		"modified": "2025-01-02T03:04:05Z",
	}

	typ, err := rec.Type()
	require.NoError(t, err)
	assert.Equal(t, "graphic", typ)

	id, err := rec.UUID()
	require.NoError(t, err)
	assert.Equal(t, "11111111-1111-1111-1111-111111111111", id)

	mod, err := rec.Modified()
	require.NoError(t, err)
	assert.Equal(t, "2025-01-02T03:04:05Z", mod.UTC().Format(TimeFormat))

	_, err = Record{}.Type()
	require.Error(t, err)
	assert.True(t, IsReadError(err))

	_, err = Record{"modified": "yesterday"}.Modified()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad timestamp")
}
