// Package pool provides sync.Pool backed buffers shared by the pty readers
// and the renderer.
package pool

import (
	"strings"
	"sync"
)

// ByteSliceSize is the length of slices handed out by GetByteSlice.
const ByteSliceSize = 32 * 1024

var byteSlicePool = sync.Pool{
	New: func() any {
		b := make([]byte, ByteSliceSize)
		return &b
	},
}

var stringBuilderPool = sync.Pool{
	New: func() any {
		return new(strings.Builder)
	},
}

// GetByteSlice returns a ByteSliceSize buffer from the pool.
func GetByteSlice() *[]byte {
	return byteSlicePool.Get().(*[]byte)
}

// PutByteSlice returns a buffer to the pool. Buffers that were resliced
// below ByteSliceSize are dropped.
func PutByteSlice(b *[]byte) {
	if b == nil || cap(*b) < ByteSliceSize {
		return
	}
	*b = (*b)[:ByteSliceSize]
	byteSlicePool.Put(b)
}

// GetStringBuilder returns an empty builder from the pool.
func GetStringBuilder() *strings.Builder {
	return stringBuilderPool.Get().(*strings.Builder)
}

// PutStringBuilder resets sb and returns it to the pool.
func PutStringBuilder(sb *strings.Builder) {
	if sb == nil {
		return
	}
	sb.Reset()
	stringBuilderPool.Put(sb)
}
