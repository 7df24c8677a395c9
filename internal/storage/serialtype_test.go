package storage_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hustledb/hustle/internal/storage"
)

func TestDecodeSerialTypesFixedAndSentinels(t *testing.T) {
	// codes: 6 (8-byte fixed int), 8 (sentinel zero), 9 (sentinel one)
	buf := []byte{6, 8, 9}
	fields, pos, err := storage.DecodeSerialTypes(buf, 3)
	require.NoError(t, err)
	assert.Equal(t, 3, pos)
	assert.Equal(t, 8, fields[0].FixedWidth)
	assert.True(t, fields[1].SentinelZero)
	assert.True(t, fields[2].SentinelOne)
}

func TestDecodeSerialTypesStringCode(t *testing.T) {
	// code 19 = 13 + 2*3, a 3-byte string
	buf := []byte{19}
	fields, pos, err := storage.DecodeSerialTypes(buf, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, pos)
	assert.True(t, fields[0].IsString)
	assert.Equal(t, 3, fields[0].VarLen)
}

func TestDecodeSerialTypesRejectsUnknownCode(t *testing.T) {
	buf := []byte{10}
	_, _, err := storage.DecodeSerialTypes(buf, 1)
	assert.Error(t, err)
}

func TestDecodeRecordReversesFixedWidthAndCopiesString(t *testing.T) {
	// field 0: code 6 (8-byte fixed, big-endian on the wire)
	// field 1: code 19 (3-byte string)
	buf := []byte{6, 19}
	buf = append(buf, 0x11, 0x22, 0x33, 0x44, 0x55, 0x66, 0x77, 0x88)
	buf = append(buf, []byte("abc")...)

	out, err := storage.DecodeRecord(buf, []int{8, 0}, []bool{false, true})
	require.NoError(t, err)
	require.Len(t, out, 2)

	assert.Equal(t, []byte{0x88, 0x77, 0x66, 0x55, 0x44, 0x33, 0x22, 0x11}, out[0].Raw)
	assert.Equal(t, "abc", string(out[1].Raw))
}

func TestDecodeRecordSentinelAndNull(t *testing.T) {
	buf := []byte{0, 9} // field 0: null, field 1: sentinel one
	out, err := storage.DecodeRecord(buf, []int{4, 2}, []bool{false, false})
	require.NoError(t, err)
	assert.Equal(t, []byte{0, 0, 0, 0}, out[0].Raw)
	assert.Equal(t, []byte{1, 0}, out[1].Raw)
}
