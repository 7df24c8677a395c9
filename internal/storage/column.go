package storage

import (
	"encoding/binary"
	"math"

	"github.com/hustledb/hustle/internal/buffer"
	"github.com/hustledb/hustle/internal/types"
)

// column is one physical column of one block. Fixed-width kinds store a
// single native-endian value buffer; KindString stores the offsets+data
// pair. This is the sum-type encoding spec.md §9 calls for in place of an
// open column-type hierarchy: every switch over a column's Kind is
// exhaustive.
type column struct {
	kind  types.Kind
	width int // byte width for fixed-width kinds; 0 for string

	fixed *buffer.Buffer
	str   *buffer.StringColumn
}

func newColumn(f types.Field) *column {
	c := &column{kind: f.Kind, width: f.Width()}
	if f.Kind.IsVariableWidth() {
		c.str = buffer.NewStringColumn()
	} else {
		c.fixed = buffer.NewBuffer(0)
	}
	return c
}

// Len returns the number of values stored in the column.
func (c *column) Len() int {
	if c.str != nil {
		return c.str.Len()
	}
	return c.fixed.Size() / c.width
}

// appendFixed appends one native-width value given as little-endian raw
// bytes of exactly c.width length.
func (c *column) appendFixed(raw []byte) {
	old := c.fixed.Size()
	c.fixed.Resize(old+c.width, true)
	copy(c.fixed.MutableBytes()[old:old+c.width], raw)
}

// appendString appends one string value.
func (c *column) appendString(v []byte) {
	c.str.Append(v)
}

// getFixed returns the raw little-endian bytes for row i.
func (c *column) getFixed(i int) []byte {
	return c.fixed.MutableBytes()[i*c.width : i*c.width+c.width]
}

// setFixed overwrites row i in place with raw little-endian bytes; if
// len(raw) < c.width the value is zero-extended (spec §4.1).
func (c *column) setFixed(i int, raw []byte, byteWidth int) {
	dst := c.fixed.MutableBytes()[i*c.width : i*c.width+c.width]
	for j := range dst {
		dst[j] = 0
	}
	n := byteWidth
	if n > c.width {
		n = c.width
	}
	copy(dst[:n], raw[:n])
}

func (c *column) getString(i int) []byte {
	return c.str.Get(i)
}

func (c *column) truncate() {
	if c.str != nil {
		c.str.Truncate()
	} else {
		c.fixed.Truncate()
	}
}

// int64At reinterprets row i as a signed integer, widening from the
// column's native width. Used by SMA min/max and numeric predicate scans.
func (c *column) int64At(i int) int64 {
	raw := c.getFixed(i)
	switch c.width {
	case 1:
		if c.kind.IsSigned() {
			return int64(int8(raw[0]))
		}
		return int64(raw[0])
	case 2:
		v := binary.LittleEndian.Uint16(raw)
		if c.kind.IsSigned() {
			return int64(int16(v))
		}
		return int64(v)
	case 4:
		v := binary.LittleEndian.Uint32(raw)
		if c.kind.IsSigned() {
			return int64(int32(v))
		}
		return int64(v)
	default:
		v := binary.LittleEndian.Uint64(raw)
		if c.kind.IsSigned() {
			return int64(v)
		}
		// uint64 > max-int64 will wrap; acceptable for comparison use,
		// matching the source's use of plain machine comparison.
		return int64(v)
	}
}

func (c *column) float64At(i int) float64 {
	raw := c.getFixed(i)
	bits := binary.LittleEndian.Uint64(raw)
	return math.Float64frombits(bits)
}

func (c *column) putInt64(i int, v int64) {
	raw := make([]byte, c.width)
	switch c.width {
	case 1:
		raw[0] = byte(v)
	case 2:
		binary.LittleEndian.PutUint16(raw, uint16(v))
	case 4:
		binary.LittleEndian.PutUint32(raw, uint32(v))
	default:
		binary.LittleEndian.PutUint64(raw, uint64(v))
	}
	c.setFixed(i, raw, c.width)
}

func (c *column) putFloat64(i int, v float64) {
	raw := make([]byte, 8)
	binary.LittleEndian.PutUint64(raw, math.Float64bits(v))
	c.setFixed(i, raw, 8)
}
