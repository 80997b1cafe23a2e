package callcore

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLazyPromise_ResolveBeforeAwait(t *testing.T) {
	p := newLazyPromise[int]()
	p.Resolve(42)
	assert.True(t, p.Resolved())

	v, ok := p.Peek()
	require.True(t, ok)
	assert.Equal(t, 42, v)

	select {
	case got := <-p.Await():
		assert.Equal(t, 42, got)
	default:
		t.Fatal("expected already-resolved value to be immediately available")
	}
}

func TestLazyPromise_AwaitBeforeResolve(t *testing.T) {
	p := newLazyPromise[string]()
	ch := p.Await()

	_, ok := p.Peek()
	assert.False(t, ok)

	p.Resolve("hello")

	select {
	case got := <-ch:
		assert.Equal(t, "hello", got)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for resolve")
	}
}

func TestLazyPromise_SingleAssignment(t *testing.T) {
	p := newLazyPromise[int]()
	p.Resolve(1)
	p.Resolve(2)
	v, _ := p.Peek()
	assert.Equal(t, 1, v, "second Resolve must be ignored")
}

func TestSignal_Fire(t *testing.T) {
	s := newSignal()
	assert.False(t, s.Resolved())
	s.Fire()
	assert.True(t, s.Resolved())
}
