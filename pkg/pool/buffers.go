// Package pool holds typed wrappers around sync.Pool.
package pool

import (
	"bytes"
	"sync"
)

// Buffers recycles the buffers payloads are encoded into.
type Buffers struct {
	p sync.Pool
}

func NewBuffers() *Buffers {
	return &Buffers{
		p: sync.Pool{
			New: func() interface{} {
				return &bytes.Buffer{}
			},
		},
	}
}

// Get returns an empty buffer.
func (b *Buffers) Get() *bytes.Buffer {
	buf := b.p.Get().(*bytes.Buffer)
	buf.Reset()
	return buf
}

// Put returns buf to the pool. buf must not be used afterwards, including slices of its
// contents.
func (b *Buffers) Put(buf *bytes.Buffer) {
	b.p.Put(buf)
}
