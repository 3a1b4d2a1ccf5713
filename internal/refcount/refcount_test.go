package refcount

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCounterPromoteRelease(t *testing.T) {
	var c Counter
	c.Bump()

	ref, ok := c.Promote()
	require.True(t, ok)
	require.True(t, ref.Valid())
	require.EqualValues(t, 2, c.Load())

	zero := ref.Release()
	require.False(t, zero)
	require.EqualValues(t, 1, c.Load())

	// Release is idempotent.
	zero = ref.Release()
	require.False(t, zero)
	require.EqualValues(t, 1, c.Load())
}

func TestCounterPromoteFailsAtZero(t *testing.T) {
	var c Counter
	_, ok := c.Promote()
	require.False(t, ok)
}

func TestCounterReleaseReportsZero(t *testing.T) {
	var c Counter
	c.Bump()
	require.True(t, c.Release())
}

type agedStub struct {
	age uint32
}

func (a *agedStub) CurrentAge() uint32 { return a.age }

func TestWeakRefExpiry(t *testing.T) {
	target := &agedStub{age: 1}
	ref := WeakRef[agedStub]{Ptr: target, AgeAtRef: 1}
	require.False(t, ref.Expired())
	require.False(t, ref.Zero())

	target.age = 2
	require.True(t, ref.Expired())
}

func TestWeakRefZeroValue(t *testing.T) {
	var ref WeakRef[agedStub]
	require.True(t, ref.Zero())
	require.True(t, ref.Expired())
}

func TestCounterConcurrentPromoteRelease(t *testing.T) {
	var c Counter
	c.Bump()

	const n = 64
	done := make(chan bool, n)
	for i := 0; i < n; i++ {
		go func() {
			ref, ok := c.Promote()
			if ok {
				ref.Release()
			}
			done <- ok
		}()
	}
	succeeded := 0
	for i := 0; i < n; i++ {
		if <-done {
			succeeded++
		}
	}
	require.Greater(t, succeeded, 0)
	require.EqualValues(t, 1, c.Load())
}
