// Package callcore implements the client-side call engine of a
// gRPC-over-HTTP/2 framework: the state machine that drives a single RPC
// from invocation through completion, together with the bidirectional
// interceptor pipeline that frames it.
//
// # Architecture
//
// Four components cooperate per RPC:
//
//   - [Call] is the user-facing facade: four type-safe entry points
//     (unary, server-streaming, client-streaming, bidirectional), a lazy
//     transport factory, and invoke/send/cancel scheduled onto an
//     [Executor].
//   - [Pipeline] is the ordered chain of [Interceptor] contexts between a
//     head (adjacent to the transport) and a tail (adjacent to the call).
//   - [Transport] is the state machine (idle -> awaitingTransport ->
//     activatingTransport -> active -> closing -> closed) that buffers
//     writes until a [Stream] becomes available and drives the deadline
//     timer.
//   - [ResponseParts] is the lazy-promise container for initial metadata,
//     trailing metadata, status, and either a unary response promise or a
//     streaming callback.
//
// Dependency order (leaves first): framing codec, [ResponseParts],
// [Transport], [Pipeline], [Call].
//
// # Concurrency
//
// Every [Call] is bound to a single [Executor] (typically one goroutine
// pinned to one I/O reactor, such as an eventloop.Loop). All state
// transitions, buffer operations, promise completions and interceptor
// invocations execute serially on that executor; no internal locks are
// required by the core itself. Methods that may be called from other
// goroutines detect the absence of executor affinity, submit the work to
// the executor, and block the calling goroutine until it completes, so a
// caller off the executor still observes a consistent result rather than
// a value read before the submitted work ran.
//
// # Request head
//
// [Call.Invoke] assembles the gRPC request head (content-type, te,
// user-agent, method, and a grpc-timeout value when a deadline applies)
// and merges it into the outgoing metadata ahead of the pipeline.
//
// # Logging
//
// Structured logging uses github.com/joeycumines/logiface. Supply a
// logger via [WithLogger]; without it a disabled logger is used, and
// passing a nil logger to [WithLogger] is rejected with an error.
// Typical construction, wiring a github.com/joeycumines/logiface-slog
// backend:
//
//	handler := slog.NewJSONHandler(os.Stdout, nil)
//	base := logiface.New[*islog.Event](islog.NewLogger(handler))
//	opts, err := callcore.NewCallOptions(callcore.WithLogger(base.Logger()))
//
// # Out of scope
//
// The HTTP/2 connection, stream multiplexing and TLS handshake; wire
// serialization of individual messages (a pluggable [Codec]); server-side
// handlers; code generation; CLI/build tooling. These are referenced only
// via the narrow contracts this package requires ([Stream], [StreamFactory],
// [Codec]).
package callcore
