package buffer

import "encoding/binary"

// offsetWidth is the byte width of one int32 offset entry.
const offsetWidth = 4

// StringColumn is the offsets+data buffer pair backing one variable-width
// string column of a block. The offsets buffer holds N+1 monotonically
// non-decreasing int32 byte offsets for N values; the data buffer holds
// the concatenated raw bytes.
type StringColumn struct {
	offsets *Buffer
	data    *Buffer
}

// NewStringColumn returns an empty string column (one offset entry: 0).
func NewStringColumn() *StringColumn {
	sc := &StringColumn{
		offsets: NewBuffer(offsetWidth),
		data:    NewBuffer(0),
	}
	sc.offsets.Resize(offsetWidth, false)
	binary.LittleEndian.PutUint32(sc.offsets.data[0:4], 0)
	return sc
}

// Len returns the number of values (N, not N+1).
func (sc *StringColumn) Len() int {
	return sc.offsets.Size()/offsetWidth - 1
}

func (sc *StringColumn) offsetAt(i int) int32 {
	return int32(binary.LittleEndian.Uint32(sc.offsets.data[i*offsetWidth : i*offsetWidth+4]))
}

// Append adds one value to the end of the column.
func (sc *StringColumn) Append(v []byte) {
	tail := sc.offsetAt(sc.Len())
	newDataSize := int(tail) + len(v)
	sc.data.Resize(newDataSize, true)
	copy(sc.data.data[tail:newDataSize], v)

	oldOffSize := sc.offsets.Size()
	sc.offsets.Resize(oldOffSize+offsetWidth, true)
	binary.LittleEndian.PutUint32(sc.offsets.data[oldOffSize:oldOffSize+4], uint32(newDataSize))
}

// Get returns the value at row i.
func (sc *StringColumn) Get(i int) []byte {
	lo := sc.offsetAt(i)
	hi := sc.offsetAt(i + 1)
	return sc.data.data[lo:hi]
}

// ByteLen returns the total length of the data buffer (offsets[N]).
func (sc *StringColumn) ByteLen() int {
	return int(sc.offsetAt(sc.Len()))
}

// Truncate shrinks both backing buffers to their used size.
func (sc *StringColumn) Truncate() {
	sc.offsets.Truncate()
	sc.data.Truncate()
}

// OffsetsBytes and DataBytes expose the raw buffers, e.g. for the IPC
// writer or for validating the N+1/offsets[N] invariants in tests.
func (sc *StringColumn) OffsetsBytes() []byte { return sc.offsets.Bytes() }
func (sc *StringColumn) DataBytes() []byte    { return sc.data.Bytes() }

// Values returns all N values as a slice of byte slices (for bulk reads;
// gather/materialize paths use this).
func (sc *StringColumn) Values() [][]byte {
	n := sc.Len()
	out := make([][]byte, n)
	for i := 0; i < n; i++ {
		out[i] = sc.Get(i)
	}
	return out
}
