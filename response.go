package callcore

import (
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
)

// unaryResult is the payload of a unary call's response promise: either a
// single message (status implicitly OK) or, when the call terminated before
// any message arrived, the terminal status (OK or not) with no message.
type unaryResult struct {
	message any
	status  *Status
}

// InitialMetadataResult is the resolved value of the initial-metadata
// promise. MD is populated on a normal leading-metadata delivery; Status is
// populated instead (MD left nil) when the call terminated with a non-OK
// status before any leading metadata arrived. A call that ends OK without
// leading metadata leaves both MD and Status nil. Spec §4.4: "a trailers-only
// response ... the initial-metadata promise fails with the status." A
// consumer that only cares about the happy path can ignore Status; one that
// needs to tell a PERMISSION_DENIED trailers-only response apart from an
// empty-but-successful one must check it.
type InitialMetadataResult struct {
	MD     metadata.MD
	Status *Status
}

// StreamHandler receives each [ResponsePart] of a streaming call as it
// arrives, in order. It is invoked on the owning [Executor]'s goroutine.
type StreamHandler func(ResponsePart)

// ResponseParts is the lazy-promise container spec §4.4 describes: "initial
// metadata, trailing metadata, status, and either a unary response promise
// or a streaming callback." Exactly one of unary or streaming mode applies
// to a given ResponseParts, fixed at construction to match the [Call]
// entry point used (unary/client-streaming results are unary-shaped;
// server-streaming/bidirectional results are streaming-shaped).
type ResponseParts struct {
	initialMetadata  *lazyPromise[InitialMetadataResult]
	trailingMetadata *lazyPromise[metadata.MD]
	status           *lazyPromise[*Status]

	streaming bool
	unary     *lazyPromise[unaryResult]
	handler   StreamHandler

	messageReceived bool // unary mode: has the single message already arrived?
}

// NewUnaryResponseParts constructs a [ResponseParts] for a call whose
// response is a single message (unary or client-streaming).
func NewUnaryResponseParts() *ResponseParts {
	return &ResponseParts{
		initialMetadata:  newLazyPromise[InitialMetadataResult](),
		trailingMetadata: newLazyPromise[metadata.MD](),
		status:           newLazyPromise[*Status](),
		unary:            newLazyPromise[unaryResult](),
	}
}

// NewStreamingResponseParts constructs a [ResponseParts] for a call whose
// response is a sequence of messages (server-streaming or bidirectional),
// delivered to handler as they arrive.
func NewStreamingResponseParts(handler StreamHandler) *ResponseParts {
	return &ResponseParts{
		initialMetadata:  newLazyPromise[InitialMetadataResult](),
		trailingMetadata: newLazyPromise[metadata.MD](),
		status:           newLazyPromise[*Status](),
		streaming:        true,
		handler:          handler,
	}
}

// InitialMetadata returns a channel yielding the initial metadata once
// received, or a failure [Status] in its place if the call terminated
// before any arrived (see [ResponseParts.terminate]).
func (r *ResponseParts) InitialMetadata() <-chan InitialMetadataResult {
	return r.initialMetadata.Await()
}

// TrailingMetadata returns a channel yielding the trailing metadata once
// the call has terminated.
func (r *ResponseParts) TrailingMetadata() <-chan metadata.MD {
	return r.trailingMetadata.Await()
}

// StatusChan returns a channel yielding the final [Status]. Spec §4.4: "the
// status promise never fails" — it always resolves, whether the RPC
// succeeded, was rejected with a non-OK status, or aborted with an error.
func (r *ResponseParts) StatusChan() <-chan *Status {
	return r.status.Await()
}

// Response returns a channel yielding the unary response. Valid only in
// unary mode; calling it in streaming mode returns a channel that is never
// fed.
func (r *ResponseParts) Response() <-chan unaryResult {
	if r.unary == nil {
		return make(chan unaryResult)
	}
	return r.unary.Await()
}

// Receive applies one incoming [ResponsePart], per spec §4.4's delivery
// rules.
func (r *ResponseParts) Receive(part ResponsePart) {
	switch part.Kind {
	case ResponseMetadata:
		r.initialMetadata.Resolve(InitialMetadataResult{MD: part.Metadata})

	case ResponseMessage:
		if r.streaming {
			if r.handler != nil {
				r.handler(part)
			}
			return
		}
		if r.messageReceived {
			// Protocol violation: more than one message delivered for a
			// unary-shaped call. Treat as an internal error rather than
			// silently dropping it.
			r.fail(New(codes.Internal, "callcore: more than one message delivered for a unary response"))
			return
		}
		r.messageReceived = true
		r.unary.Resolve(unaryResult{message: part.Message})

	case ResponseEnd:
		r.terminate(part.Status, part.Trailers, part)

	case ResponseError:
		r.terminate(FromError(part.Err), nil, part)
	}
}

// terminate applies the shared tail of ResponseEnd/ResponseError handling:
// fail any promise that has not yet been satisfied with st, resolve
// trailing metadata, and always resolve the status promise — even on
// success, since spec §4.4 says the status promise "never fails", only
// ever resolves. In streaming mode the terminal part itself (End or Error)
// is handed to the handler.
func (r *ResponseParts) terminate(st *Status, trailers metadata.MD, terminal ResponsePart) {
	if !r.initialMetadata.Resolved() {
		if st.OK() {
			// Trailers-only success: no leading metadata was ever sent,
			// but nothing went wrong either, so resolve to empty rather
			// than a failure.
			r.initialMetadata.Resolve(InitialMetadataResult{})
		} else {
			// Trailers-only error (spec §4.4): the initial-metadata promise
			// fails with the status rather than resolving to empty MD, so
			// a caller can tell a rejected call apart from one that simply
			// returned no headers.
			r.initialMetadata.Resolve(InitialMetadataResult{Status: st})
		}
	}
	if r.streaming {
		if r.handler != nil {
			r.handler(terminal)
		}
	} else if !r.messageReceived {
		r.unary.Resolve(unaryResult{status: st})
	}
	r.trailingMetadata.Resolve(trailers)
	r.status.Resolve(st)
}

// fail is the unary-mode protocol-violation escape hatch: it behaves as if
// the call had ended with st.
func (r *ResponseParts) fail(st *Status) {
	r.terminate(st, nil, NewResponseErrorPart(st.Err()))
}
