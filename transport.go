package callcore

import (
	"fmt"
	"time"

	"google.golang.org/grpc/codes"

	"github.com/rpcframe/callcore/internal/buffer"
)

// TransportState is one of the six states spec §4.3 names for a call's
// transport: "idle, awaiting transport, activating transport, active,
// closing, closed." Transitions only ever move forward except that closing
// and closed are reachable from any earlier state (cancellation, deadline,
// or a terminal response part can all force an early close).
type TransportState int

const (
	TransportIdle TransportState = iota
	TransportAwaitingTransport
	TransportActivatingTransport
	TransportActive
	TransportClosing
	TransportClosed
)

func (s TransportState) String() string {
	switch s {
	case TransportIdle:
		return "idle"
	case TransportAwaitingTransport:
		return "awaiting_transport"
	case TransportActivatingTransport:
		return "activating_transport"
	case TransportActive:
		return "active"
	case TransportClosing:
		return "closing"
	case TransportClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Stream is the live, already-established transport this engine writes
// request parts to and reads response parts from. It stands in for the
// real HTTP/2 stream; spec §1 treats the multiplexer/stream itself as an
// external collaborator, so this engine only needs the narrow interface
// below.
type Stream interface {
	// WritePart sends one request part on the wire. Called only after the
	// stream has become active.
	WritePart(part RequestPart) error
	// CloseSend half-closes the write side.
	CloseSend() error
	// Peer identifies who is on the other end of the connection. May
	// return nil if the underlying transport has none to report.
	Peer() *PeerInfo
}

// StreamFactory lazily establishes a [Stream] for one call. It is invoked
// at most once per [Transport], the first time a write needs an active
// stream. A nil, error return aborts call setup with that error.
type StreamFactory func() (Stream, error)

// Transport is the per-call state machine from spec §4.3: it owns a write
// buffer that accumulates request parts while no [Stream] exists yet, the
// transition through activatingTransport while [StreamFactory] runs, and
// the deadline timer. One Transport is used by exactly one [Call]; all
// methods run on that call's [Executor].
type Transport struct {
	executor Executor
	factory  StreamFactory
	codec    Codec
	logger   *throttledLogger

	state  TransportState
	stream Stream
	peer   *PeerInfo

	writes     buffer.Buffer[RequestPart]
	bufferMark int // Mark() taken when the write buffer starts accumulating, for the coalesced-flush log in activate

	deadline    time.Time
	timerActive bool
	cancelTimer func()

	onClosed func(*Status) // invoked once, when the transport reaches closed

	metadataFlushed bool // unary flush policy: leading metadata written eagerly
}

// NewTransport constructs an idle [Transport] bound to executor and
// factory. codec marshals outgoing message parts before they reach the
// stream (nil skips marshaling, leaving [RequestPart.Message] as the only
// payload a [Stream] implementation sees); logger receives this
// transport's dropped-write, marshal-error and stream-write-error warnings
// and its activation debug line, nil discarding them.
func NewTransport(executor Executor, factory StreamFactory, codec Codec, logger *throttledLogger) *Transport {
	return &Transport{executor: executor, factory: factory, codec: codec, logger: logger}
}

// State returns the current [TransportState].
func (t *Transport) State() TransportState { return t.state }

// SetDeadline arms the deadline timer. Per spec §4.3, the timer is
// scheduled via the [Executor] (so its firing is itself a serialized
// state transition) and cancelled the moment the pipeline closes for any
// other reason.
func (t *Transport) SetDeadline(deadline time.Time, onExpired func()) {
	if t.state >= TransportClosing {
		return
	}
	t.deadline = deadline
	d := time.Until(deadline)
	if d <= 0 {
		onExpired()
		return
	}
	timer := time.AfterFunc(d, func() {
		_ = t.executor.SubmitInternal(func() {
			if t.state < TransportClosing {
				onExpired()
			}
		})
	})
	t.timerActive = true
	t.cancelTimer = func() { timer.Stop() }
}

// cancelDeadline stops the deadline timer if armed, idempotently.
func (t *Transport) cancelDeadline() {
	if t.timerActive {
		t.cancelTimer()
		t.timerActive = false
	}
}

// Write enqueues a request part. If the transport is idle, this triggers
// the idle -> awaitingTransport -> activatingTransport progression: the
// [StreamFactory] runs, and once it resolves, buffered writes from the
// awaiting-transport window drain onto the stream via [Transport.activate].
//
// If the transport is already active, the part is written straight
// through (still subject to the flush policy below). Writing to a closing
// or closed transport is a no-op returning an invalid-state status.
func (t *Transport) Write(part RequestPart) *Status {
	switch t.state {
	case TransportClosing, TransportClosed:
		t.logger.Warn("dropped_write", "callcore: dropped write of kind %v: transport already closed", part.Kind)
		return invalidStateStatus("write after transport closed")

	case TransportIdle:
		t.bufferMark = t.writes.Mark()
		t.state = TransportAwaitingTransport
		t.writes.Push(part, nil)
		t.beginActivation()
		return nil

	case TransportAwaitingTransport, TransportActivatingTransport:
		t.writes.Push(part, nil)
		return nil

	case TransportActive:
		return t.writeThrough(part)
	}
	return nil
}

// beginActivation calls the [StreamFactory] and, once it returns, drains
// the write buffer onto the resulting stream.
func (t *Transport) beginActivation() {
	t.state = TransportActivatingTransport
	stream, err := t.factory()
	if err != nil {
		t.fail(FromError(err))
		return
	}
	t.activate(stream)
}

// activate installs stream as the live stream and drains any writes
// buffered while the transport was idle, awaiting, or activating. It drains
// one entry at a time via [buffer.Buffer.DrainOne] rather than snapshotting
// the whole buffer, because draining can itself enqueue new writes (a
// caller reacting synchronously to a write's completion callback); re-
// checking after each entry picks those up without a nested loop. Once the
// buffer is genuinely empty, [buffer.Buffer.Since] against the mark taken
// when buffering began reports how many writes this activation coalesced
// into one flush, for the (non-rate-limited) debug log line.
func (t *Transport) activate(stream Stream) {
	t.stream = stream
	t.peer = stream.Peer()
	for t.state == TransportActivatingTransport {
		part, ok := t.writes.DrainOne()
		if !ok {
			t.state = TransportActive
			break
		}
		if st := t.writeThrough(part); st != nil {
			return
		}
	}
	if n := t.writes.Since(t.bufferMark); n > 0 {
		t.logger.Debugf("callcore: transport activation flushed %d buffered write(s)", n)
	}
}

// writeThrough marshals part (if it carries a message and a [Codec] is
// configured) and writes it directly to the live stream. Every part is
// handed to [Stream.WritePart] as soon as it gets here; there is no
// separate flush step, and [MessageOptions.Flush] is not consulted.
func (t *Transport) writeThrough(part RequestPart) *Status {
	if part.Kind == RequestMessage && t.codec != nil {
		payload, err := t.codec.Marshal(part.Message)
		if err != nil {
			st := New(codes.Internal, fmt.Sprintf("callcore: failed to marshal request message: %v", err))
			t.logger.Warn("marshal_error", "callcore: %v", st.Message())
			t.fail(st)
			return st
		}
		part.Payload = payload
	}
	if err := t.stream.WritePart(part); err != nil {
		st := FromError(err)
		t.logger.Warn("write_error", "callcore: stream write failed: %v", st.Message())
		t.fail(st)
		return st
	}
	if part.Kind == RequestMetadata {
		t.metadataFlushed = true
	}
	if part.Kind == RequestEnd {
		_ = t.stream.CloseSend()
	}
	return nil
}

// Cancel forces the transport into closing, then closed, regardless of its
// current state. Idempotent.
func (t *Transport) Cancel(st *Status) {
	t.fail(st)
}

// fail transitions to closing then closed, invoking onClosed once with st.
func (t *Transport) fail(st *Status) {
	if t.state >= TransportClosing {
		return
	}
	t.state = TransportClosing
	t.cancelDeadline()
	t.state = TransportClosed
	if t.onClosed != nil {
		cb := t.onClosed
		t.onClosed = nil
		cb(st)
	}
}

// Close gracefully closes the transport (e.g. after a successful end).
func (t *Transport) Close() {
	t.fail(OK)
}

// OnClosed registers the callback invoked exactly once when the transport
// reaches the closed state, for any reason (graceful end, cancellation,
// deadline, or stream error).
func (t *Transport) OnClosed(fn func(*Status)) {
	t.onClosed = fn
}
