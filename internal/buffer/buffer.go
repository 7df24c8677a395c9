// Package buffer implements the resizable byte buffers that back block
// columns: a plain growable buffer, a packed valid-bitmap, and the
// offsets+data pair used for variable-width strings.
package buffer

// Buffer is a resizable contiguous byte region with a capacity and a
// logical size. Growth always reallocates to at least the requested size;
// data below min(oldSize, newSize) is preserved only when asked.
type Buffer struct {
	data []byte
	size int
}

// NewBuffer returns an empty buffer with the given initial capacity.
func NewBuffer(capacity int) *Buffer {
	return &Buffer{data: make([]byte, capacity)}
}

// Capacity returns the buffer's allocated capacity in bytes.
func (b *Buffer) Capacity() int { return len(b.data) }

// Size returns the buffer's logical size in bytes.
func (b *Buffer) Size() int { return b.size }

// Resize grows or shrinks the logical size. If newSize exceeds the current
// capacity, the backing array is reallocated to at least newSize bytes. If
// preserveData is true, bytes below min(oldSize, newSize) survive the
// reallocation; otherwise the buffer's old contents are undefined after a
// reallocating resize.
func (b *Buffer) Resize(newSize int, preserveData bool) {
	if newSize <= len(b.data) {
		if newSize > b.size && !preserveData {
			zero(b.data[b.size:newSize])
		}
		b.size = newSize
		return
	}

	next := make([]byte, newSize)
	if preserveData {
		copy(next, b.data[:b.size])
	}
	b.data = next
	b.size = newSize
}

// Bytes returns the logical (used) portion of the buffer.
func (b *Buffer) Bytes() []byte { return b.data[:b.size] }

// MutableBytes returns the logical portion of the buffer for in-place
// writes.
func (b *Buffer) MutableBytes() []byte { return b.data[:b.size] }

// ZeroPad zeroes every byte between the logical size and the allocated
// capacity, without changing the logical size. Used before truncation or
// persistence to avoid leaking stale bytes in the slack region.
func (b *Buffer) ZeroPad() {
	zero(b.data[b.size:])
}

// Truncate shrinks the allocated capacity down to the logical size,
// preserving data. Used by Block.TruncateBuffers before a block is
// flushed to disk.
func (b *Buffer) Truncate() {
	if len(b.data) == b.size {
		return
	}
	next := make([]byte, b.size)
	copy(next, b.data[:b.size])
	b.data = next
}

func zero(p []byte) {
	for i := range p {
		p[i] = 0
	}
}
