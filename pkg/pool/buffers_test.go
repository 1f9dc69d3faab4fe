package pool

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBuffersGetIsEmpty(t *testing.T) {
	t.Parallel()

	b := NewBuffers()
	for i := 0; i < 3; i++ {
		buf := b.Get()
		require.Zero(t, buf.Len())
		buf.WriteString("payload")
		b.Put(buf)
	}
}
