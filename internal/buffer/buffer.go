// Package buffer provides the write buffer a call's transport uses to hold
// outgoing parts until the underlying stream becomes available.
//
// Buffer assumes single-threaded access from its owning executor goroutine,
// the same assumption the original HalfStream buffering this is adapted
// from made: no mutexes, no atomics, correctness comes from never being
// touched off the executor.
package buffer

// entry pairs a buffered value with an optional callback invoked when the
// value is removed from the buffer by [Buffer.Drain] or [Buffer.DrainOne].
// Callers that don't need that notification pass a nil onFlush.
type entry[T any] struct {
	value   T
	onFlush func()
}

// Buffer is a FIFO queue of T with a "mark" concept: a caller can record
// the current length as a mark, then later ask how many entries have
// accumulated since that mark. The transport uses this to report how many
// buffered writes an activation drained onto the stream.
type Buffer[T any] struct {
	entries []entry[T]
	drained int // count of entries permanently removed via Drain or DrainOne, for mark accounting
}

// Push appends value to the tail of the buffer. onFlush, if non-nil, is
// invoked (once) when value is handed to [Buffer.Drain].
func (b *Buffer[T]) Push(value T, onFlush func()) {
	b.entries = append(b.entries, entry[T]{value: value, onFlush: onFlush})
}

// Len reports the number of entries currently queued.
func (b *Buffer[T]) Len() int {
	return len(b.entries)
}

// Mark returns an opaque position usable with [Buffer.Since].
func (b *Buffer[T]) Mark() int {
	return b.drained + len(b.entries)
}

// Since reports how many entries have been pushed since mark was taken.
func (b *Buffer[T]) Since(mark int) int {
	return b.drained + len(b.entries) - mark
}

// Drain removes and returns every queued entry's value, in FIFO order,
// firing each entry's onFlush callback as it is removed. The buffer is
// empty after Drain returns.
func (b *Buffer[T]) Drain() []T {
	if len(b.entries) == 0 {
		return nil
	}
	out := make([]T, len(b.entries))
	for i, e := range b.entries {
		out[i] = e.value
		if e.onFlush != nil {
			e.onFlush()
		}
	}
	b.drained += len(b.entries)
	b.entries = nil
	return out
}

// DrainOne removes and returns the single oldest entry, firing its onFlush
// callback. ok is false if the buffer was empty.
func (b *Buffer[T]) DrainOne() (value T, ok bool) {
	if len(b.entries) == 0 {
		return value, false
	}
	e := b.entries[0]
	b.entries[0] = entry[T]{}
	b.entries = b.entries[1:]
	b.drained++
	if e.onFlush != nil {
		e.onFlush()
	}
	return e.value, true
}
