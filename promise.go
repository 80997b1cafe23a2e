package callcore

// promiseState is one of the four lazy-slot states from spec §4.4: "idle
// (nothing observed or supplied yet), resolved-value (a value arrived
// before anyone asked), unresolved-promise (someone asked before a value
// arrived), or resolved-future (both happened and the promise has since
// been completed)."
type promiseState int

const (
	promiseIdle promiseState = iota
	promiseResolvedValue
	promiseUnresolvedPromise
	promiseResolvedFuture
)

// lazyPromise is a single-assignment lazy slot for a value of type T. It is
// "lazy" in that no channel or waiter is allocated until something actually
// calls Await; a Resolve that beats every Await simply stashes the value.
//
// This is not safe for concurrent use from multiple goroutines; a
// lazyPromise belongs to one [Executor] and every method is called from
// that executor's goroutine, matching spec §5's "no internal locks are
// required" model. (The teacher's event-loop Promise type is the shape this
// is modeled on — State()/Result()/ToChannel() — adapted here to avoid
// allocating its wait channel until first observed.)
type lazyPromise[T any] struct {
	state promiseState
	value T
	ch    chan T
}

// newLazyPromise constructs an idle lazyPromise.
func newLazyPromise[T any]() *lazyPromise[T] {
	return &lazyPromise[T]{}
}

// Resolve supplies value, completing the promise. Calling Resolve more than
// once is a bug in the caller; only the first call has any effect, matching
// spec §4.4's single-assignment contract.
func (p *lazyPromise[T]) Resolve(value T) {
	switch p.state {
	case promiseIdle:
		p.value = value
		p.state = promiseResolvedValue
	case promiseUnresolvedPromise:
		p.value = value
		p.state = promiseResolvedFuture
		if p.ch != nil {
			p.ch <- value
			close(p.ch)
		}
	default:
		// already resolved; single-assignment, ignore.
	}
}

// Resolved reports whether Resolve has already been called.
func (p *lazyPromise[T]) Resolved() bool {
	return p.state == promiseResolvedValue || p.state == promiseResolvedFuture
}

// Peek returns the resolved value and true if the promise has already been
// resolved, without allocating a wait channel.
func (p *lazyPromise[T]) Peek() (T, bool) {
	if p.state == promiseResolvedValue || p.state == promiseResolvedFuture {
		return p.value, true
	}
	var zero T
	return zero, false
}

// Await returns a channel that yields the resolved value exactly once. If
// the value is already available the channel is pre-loaded and closed
// immediately; otherwise a channel is allocated lazily (moving the slot
// into the unresolved-promise state) and fed by the eventual Resolve call.
//
// Await must be called from the owning executor's goroutine, like every
// other method on lazyPromise; the returned channel is safe to read from
// any goroutine.
func (p *lazyPromise[T]) Await() <-chan T {
	switch p.state {
	case promiseResolvedValue:
		ch := make(chan T, 1)
		ch <- p.value
		close(ch)
		return ch
	case promiseResolvedFuture:
		// already delivered to the channel allocated the first time this
		// was reached; callers needing the value again should use Peek.
		ch := make(chan T, 1)
		ch <- p.value
		close(ch)
		return ch
	default:
		if p.ch == nil {
			p.ch = make(chan T, 1)
			p.state = promiseUnresolvedPromise
		}
		return p.ch
	}
}

// signal is a lazyPromise[struct{}] used as a completion latch (e.g. "call
// has been invoked", "pipeline has closed") where no payload is needed.
type signal = lazyPromise[struct{}]

func newSignal() *signal { return newLazyPromise[struct{}]() }

func (p *signal) Fire() { p.Resolve(struct{}{}) }
