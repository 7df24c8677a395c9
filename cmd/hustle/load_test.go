package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hustledb/hustle/internal/types"
)

func TestParseSchemaFixedAndStringColumns(t *testing.T) {
	schema, err := parseSchema("id:int64,name:string,flag:uint8")
	require.NoError(t, err)
	require.Len(t, schema.Fields, 3)

	assert.Equal(t, "id", schema.Fields[0].Name)
	assert.Equal(t, types.KindInt64, schema.Fields[0].Kind)
	assert.Equal(t, types.KindString, schema.Fields[1].Kind)
	assert.Equal(t, types.KindUint8, schema.Fields[2].Kind)
}

func TestParseSchemaFixedBinaryRequiresWidth(t *testing.T) {
	_, err := parseSchema("blob:fixed_binary")
	assert.Error(t, err)

	schema, err := parseSchema("blob:fixed_binary:16")
	require.NoError(t, err)
	assert.Equal(t, 16, schema.Fields[0].BinaryWidth)
}

func TestParseSchemaRejectsMalformedColumn(t *testing.T) {
	_, err := parseSchema("justaname")
	assert.Error(t, err)
}

func TestParseSchemaRejectsUnknownKind(t *testing.T) {
	_, err := parseSchema("x:nonsense")
	assert.Error(t, err)
}

func TestParseKindCoversAllNumericKinds(t *testing.T) {
	cases := map[string]types.Kind{
		"int8":    types.KindInt8,
		"int16":   types.KindInt16,
		"int32":   types.KindInt32,
		"int64":   types.KindInt64,
		"uint8":   types.KindUint8,
		"uint16":  types.KindUint16,
		"uint32":  types.KindUint32,
		"uint64":  types.KindUint64,
		"float64": types.KindFloat64,
	}
	for name, want := range cases {
		got, err := parseKind(name)
		require.NoErrorf(t, err, "kind %q", name)
		assert.Equalf(t, want, got, "kind %q", name)
	}
}
