// File: pool/bytepool.go
// Author: momentics <momentics@gmail.com>

package pool

import "sync"

// BytePool hands out fixed-size byte slices. Safe for concurrent use.
type BytePool struct {
	p    sync.Pool
	size int
}

// NewBytePool returns a pool of size-byte buffers. size must be positive.
func NewBytePool(size int) *BytePool {
	if size <= 0 {
		panic("pool: non-positive buffer size")
	}
	b := &BytePool{size: size}
	b.p.New = func() any {
		buf := make([]byte, size)
		return &buf
	}
	return b
}

// Size reports the length of every buffer handed out.
func (b *BytePool) Size() int { return b.size }

// GetBuffer returns a buffer of exactly Size bytes. Contents are undefined.
func (b *BytePool) GetBuffer() []byte {
	return *(b.p.Get().(*[]byte))
}

// PutBuffer returns buf to the pool. Buffers of a foreign size are dropped.
func (b *BytePool) PutBuffer(buf []byte) {
	if cap(buf) != b.size {
		return
	}
	buf = buf[:b.size]
	b.p.Put(&buf)
}
