package callcore

import "errors"

// ErrExecutorTerminated is returned by [Executor.Submit] when the executor
// has been shut down and can no longer accept work.
var ErrExecutorTerminated = errors.New("callcore: executor terminated")

// Executor is the single-threaded cooperative scheduler a [Call] and its
// [Pipeline]/[Transport]/[ResponseParts] run on. Spec §5: "Each call is
// bound to one executor (typically one thread pinned to one I/O reactor).
// All state transitions ... execute serially on that executor; no internal
// locks are required."
//
// This mirrors the Loop interface the teacher package required of an
// github.com/joeycumines/go-eventloop Loop: Submit for ordinary work,
// SubmitInternal for work that must be prioritized ahead of it (used here
// only by the deadline timer, so a fired timer is observed before any
// already-queued user work that might otherwise race it).
type Executor interface {
	// Submit enqueues fn for execution on the executor goroutine. Submit
	// is safe to call from any goroutine. Returns [ErrExecutorTerminated]
	// if the executor is no longer running.
	Submit(fn func()) error

	// SubmitInternal enqueues fn ahead of tasks submitted via Submit.
	SubmitInternal(fn func()) error

	// OnExecutor reports whether the calling goroutine is already the
	// executor goroutine, letting callers run inline rather than via
	// Submit. Implementations that cannot answer this precisely may
	// always return false, at the cost of an extra hop through the
	// queue.
	OnExecutor() bool
}

// runOnExecutor runs fn inline if the caller is already on ex, otherwise
// submits it and blocks until it has actually run. This is the "any thread"
// contract spec §4.1 requires of [Call]'s public methods: safe to call from
// any goroutine, not merely non-panicking — a caller reading state fn
// captured (e.g. an invalid-state [Status]) must see it reflect fn's
// effects once runOnExecutor returns, not a stale zero value from before fn
// was even scheduled.
func runOnExecutor(ex Executor, fn func()) error {
	if ex.OnExecutor() {
		fn()
		return nil
	}
	done := make(chan struct{})
	err := ex.Submit(func() {
		fn()
		close(done)
	})
	if err != nil {
		return err
	}
	<-done
	return nil
}
