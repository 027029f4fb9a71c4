package presence

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ridwanf/dmrelay/pkg/model"
)

type stubConn struct {
	name string
}

func (c *stubConn) Deliver(ev model.Event) bool { return true }

func TestRegisterAndLookup(t *testing.T) {
	r := NewRegistry()
	conn := &stubConn{name: "a"}

	_, ok := r.Lookup(1)
	assert.False(t, ok)

	r.Register(1, conn)
	got, ok := r.Lookup(1)
	require.True(t, ok)
	assert.Same(t, conn, got.(*stubConn))
}

func TestRegisterLastWriterWins(t *testing.T) {
	r := NewRegistry()
	first := &stubConn{name: "first"}
	second := &stubConn{name: "second"}

	r.Register(1, first)
	r.Register(1, second)

	got, ok := r.Lookup(1)
	require.True(t, ok)
	assert.Same(t, second, got.(*stubConn))
}

func TestUnregisterSupersededIsNoOp(t *testing.T) {
	r := NewRegistry()
	first := &stubConn{name: "first"}
	second := &stubConn{name: "second"}

	r.Register(1, first)
	r.Register(1, second)

	// The first connection's late close must not evict the second.
	removed := r.Unregister(1, first)
	assert.False(t, removed)

	got, ok := r.Lookup(1)
	require.True(t, ok)
	assert.Same(t, second, got.(*stubConn))

	removed = r.Unregister(1, second)
	assert.True(t, removed)
	_, ok = r.Lookup(1)
	assert.False(t, ok)
}

func TestUnregisterUnknownUser(t *testing.T) {
	r := NewRegistry()
	assert.False(t, r.Unregister(42, &stubConn{}))
}

func TestOnline(t *testing.T) {
	r := NewRegistry()
	assert.Empty(t, r.Online())

	r.Register(3, &stubConn{})
	r.Register(1, &stubConn{})
	r.Register(2, &stubConn{})
	assert.Equal(t, []int64{1, 2, 3}, r.Online())
}

func TestConcurrentAccess(t *testing.T) {
	r := NewRegistry()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		userID := int64(i % 4)
		wg.Add(1)
		go func() {
			defer wg.Done()
			conn := &stubConn{}
			for j := 0; j < 500; j++ {
				r.Register(userID, conn)
				r.Lookup(userID)
				r.Unregister(userID, conn)
			}
		}()
	}
	wg.Wait()
}
