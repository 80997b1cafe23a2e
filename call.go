package callcore

import (
	"context"
	"fmt"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
)

// CallKind identifies which of the four type-safe entry points constructed
// a [Call], fixing whether its response is unary-shaped or streaming-shaped
// and whether more than one request message is permitted.
type CallKind int

const (
	CallUnary CallKind = iota
	CallServerStreaming
	CallClientStreaming
	CallBidirectional
)

func (k CallKind) streamingResponse() bool {
	return k == CallServerStreaming || k == CallBidirectional
}

func (k CallKind) streamingRequest() bool {
	return k == CallClientStreaming || k == CallBidirectional
}

// Call is the user-facing facade spec §4.1 describes: four type-safe entry
// points, a lazy [StreamFactory], and invoke/send/cancel scheduled onto an
// [Executor]. Every exported method is safe to call from any goroutine;
// internally it either runs inline (already on the executor) or is
// submitted, per [runOnExecutor].
type Call struct {
	executor Executor
	opts     *CallOptions
	method   string
	kind     CallKind

	pipeline  *Pipeline
	transport *Transport
	resp      *ResponseParts
	reader    *FrameReader
	throttled *throttledLogger

	invoked bool
	ended   bool

	statsCtx context.Context
}

func newCall(executor Executor, method string, kind CallKind, factory StreamFactory, interceptors []Interceptor, opts *CallOptions, handler StreamHandler) *Call {
	c := &Call{
		executor:  executor,
		opts:      opts,
		method:    method,
		kind:      kind,
		reader:    NewFrameReader(opts.MaxReceiveMessageLength()),
		throttled: opts.throttledLogger(),
	}
	if kind.streamingResponse() {
		c.resp = NewStreamingResponseParts(handler)
	} else {
		c.resp = NewUnaryResponseParts()
	}
	c.transport = NewTransport(executor, factory, opts.Codec(), c.throttled)
	c.transport.OnClosed(func(st *Status) {
		if !st.OK() {
			c.resp.Receive(NewResponseErrorPart(st.Err()))
		}
	})
	c.pipeline = NewPipeline(method, interceptors, func(part RequestPart) {
		if st := c.transport.Write(part); st != nil {
			c.resp.Receive(NewResponseErrorPart(st.Err()))
		}
	}, func(part ResponsePart) {
		if part.IsTerminal() {
			c.transport.cancelDeadline()
		}
		c.resp.Receive(part)
	})
	return c
}

// NewUnaryCall constructs a [Call] for a single request, single response
// RPC.
func NewUnaryCall(executor Executor, method string, factory StreamFactory, interceptors []Interceptor, opts *CallOptions) *Call {
	return newCall(executor, method, CallUnary, factory, interceptors, opts, nil)
}

// NewServerStreamingCall constructs a [Call] for a single request, multiple
// response RPC. handler receives each response part as it arrives.
func NewServerStreamingCall(executor Executor, method string, factory StreamFactory, interceptors []Interceptor, opts *CallOptions, handler StreamHandler) *Call {
	return newCall(executor, method, CallServerStreaming, factory, interceptors, opts, handler)
}

// NewClientStreamingCall constructs a [Call] for multiple request messages,
// single response RPC.
func NewClientStreamingCall(executor Executor, method string, factory StreamFactory, interceptors []Interceptor, opts *CallOptions) *Call {
	return newCall(executor, method, CallClientStreaming, factory, interceptors, opts, nil)
}

// NewBidirectionalCall constructs a [Call] for multiple request messages,
// multiple response messages, both directions independent of each other.
func NewBidirectionalCall(executor Executor, method string, factory StreamFactory, interceptors []Interceptor, opts *CallOptions, handler StreamHandler) *Call {
	return newCall(executor, method, CallBidirectional, factory, interceptors, opts, handler)
}

// Invoke begins the RPC: it sends the leading request metadata (merged
// from ctx's outgoing metadata and [CallOptions.CustomMetadata]) and arms
// the deadline timer if one was configured. Invoking a call a second time
// is an invalid-state error that does not otherwise affect the call.
func (c *Call) Invoke(ctx context.Context) *Status {
	var result *Status
	err := runOnExecutor(c.executor, func() {
		if c.invoked {
			result = invalidStateStatus("Invoke called more than once")
			return
		}
		c.invoked = true

		sh := c.opts.stats()
		c.statsCtx = sh.tagRPC(ctx, c.method)
		sh.begin(c.statsCtx, c.kind.streamingRequest(), c.kind.streamingResponse())

		deadline, hasDeadline := c.opts.Deadline()
		if !hasDeadline {
			deadline, hasDeadline = ctx.Deadline()
		}

		head := buildRequestHead(c.opts.cacheableOption(), c.kind.streamingRequest(), c.opts.Codec(), deadline, hasDeadline)

		md, _ := metadata.FromOutgoingContext(ctx)
		md = metadata.Join(md, head.Metadata(), c.opts.CustomMetadata())
		requestID := c.opts.requestID()
		if requestID != "" {
			md = metadata.Join(md, metadata.Pairs(requestIDMetadataKey, requestID))
		}
		logEvent := c.opts.Logger().Debug()
		if requestID != "" {
			logEvent = logEvent.Str("request_id", requestID)
		}
		logEvent.Str("method", c.method).Str("http_method", head.Method).Log("invoking call")
		sh.outHeader(c.statsCtx, md)

		if hasDeadline {
			c.transport.SetDeadline(deadline, func() {
				c.cancelLocked(New(codes.DeadlineExceeded, "callcore: deadline exceeded"))
			})
		}

		c.pipeline.Send(NewMetadataPart(md))

		go func() {
			<-ctx.Done()
			_ = c.executor.Submit(func() {
				c.cancelLocked(FromError(ctx.Err()))
			})
		}()
	})
	if err != nil {
		return FromError(err)
	}
	return result
}

// Send writes one request message. Sending before Invoke, or after End, is
// an invalid-state error.
func (c *Call) Send(msg any, opts MessageOptions) *Status {
	var result *Status
	err := runOnExecutor(c.executor, func() {
		if !c.invoked {
			result = invalidStateStatus("Send called before Invoke")
			return
		}
		if c.ended {
			result = invalidStateStatus("Send called after End")
			return
		}
		c.pipeline.Send(NewMessagePart(msg, opts))
		c.opts.stats().outPayload(c.statsCtx, msg)
	})
	if err != nil {
		return FromError(err)
	}
	return result
}

// End closes the request stream. Idempotent past the first call.
func (c *Call) End() *Status {
	var result *Status
	err := runOnExecutor(c.executor, func() {
		if !c.invoked {
			result = invalidStateStatus("End called before Invoke")
			return
		}
		if c.ended {
			return
		}
		c.ended = true
		c.pipeline.Send(EndPart)
	})
	if err != nil {
		return FromError(err)
	}
	return result
}

// Cancel aborts the call with the given status, tearing down the pipeline
// and transport. Safe to call at any point in the call's lifecycle,
// including before Invoke.
func (c *Call) Cancel(st *Status) {
	_ = runOnExecutor(c.executor, func() {
		c.cancelLocked(st)
	})
}

func (c *Call) cancelLocked(st *Status) {
	if c.ended && c.transport.State() == TransportClosed {
		return
	}
	c.ended = true
	c.pipeline.Cancel()
	c.transport.Cancel(st)
	c.opts.stats().end(c.statsCtx, st.Err())
}

// DeliverResponsePart feeds one incoming [ResponsePart] into the call's
// pipeline. The caller driving the underlying [Stream]'s read side invokes
// this as parts are decoded off the wire; it is safe to call from any
// goroutine.
func (c *Call) DeliverResponsePart(part ResponsePart) {
	_ = runOnExecutor(c.executor, func() {
		sh := c.opts.stats()
		switch part.Kind {
		case ResponseMetadata:
			sh.inHeader(c.statsCtx, part.Metadata, c.method)
		case ResponseMessage:
			sh.inPayload(c.statsCtx, part.Message)
		case ResponseEnd:
			sh.inTrailer(c.statsCtx, part.Trailers)
			sh.end(c.statsCtx, part.Status.Err())
		case ResponseError:
			sh.end(c.statsCtx, part.Err)
		}
		c.pipeline.Receive(part)
	})
}

// Response returns the unary response container. Valid for [CallUnary] and
// [CallClientStreaming] calls.
func (c *Call) Response() *ResponseParts {
	return c.resp
}

// InvokeUnaryRequest is a convenience wrapper: Invoke, send the single
// request message, then End, in one call.
func (c *Call) InvokeUnaryRequest(ctx context.Context, msg any) *Status {
	if st := c.Invoke(ctx); st != nil {
		return st
	}
	if st := c.Send(msg, c.opts.defaultMessageOptions()); st != nil {
		return st
	}
	return c.End()
}

// InvokeStreamingRequests is a convenience wrapper: Invoke, send every
// message in msgs in order, then End.
func (c *Call) InvokeStreamingRequests(ctx context.Context, msgs []any) *Status {
	if st := c.Invoke(ctx); st != nil {
		return st
	}
	for _, msg := range msgs {
		if st := c.Send(msg, c.opts.defaultMessageOptions()); st != nil {
			return st
		}
	}
	return c.End()
}

// DeliverResponseBytes decodes newly-arrived wire bytes into response
// message parts and feeds them into the call's pipeline, for a [Stream]
// that hands off raw framed bytes rather than already-decoded messages.
// Each decoded message is delivered as a []byte payload (pair with
// [Call.DecodeInto] to unmarshal it into a concrete type); oversize frames
// — per [CallOptions.MaxReceiveMessageLength] — are surfaced as a
// RESOURCE_EXHAUSTED [ResponseError] and logged at most once per rate-limit
// window rather than once per rejected frame.
func (c *Call) DeliverResponseBytes(p []byte) {
	_ = runOnExecutor(c.executor, func() {
		c.reader.Feed(p)
		for {
			payload, _, ok, err := c.reader.Next()
			if err != nil {
				st := FromError(err)
				c.throttled.Warn("oversize_message", "callcore: %s: rejected oversize frame: %s", c.method, st.Message())
				c.pipeline.Receive(NewResponseErrorPart(st.Err()))
				return
			}
			if !ok {
				return
			}
			c.pipeline.Receive(NewResponseMessagePart(payload))
		}
	})
}

// DecodeInto unmarshals a raw response message — as delivered by
// [Call.DeliverResponseBytes], or by any [Stream] that hands off undecoded
// wire bytes rather than typed messages — into dst, using the call's
// configured [Codec]. Streams that already deliver typed messages directly
// to [Call.DeliverResponsePart] have no use for this.
func (c *Call) DecodeInto(raw any, dst any) *Status {
	data, ok := raw.([]byte)
	if !ok {
		return New(codes.Internal, fmt.Sprintf("callcore: DecodeInto requires a []byte payload, got %T", raw))
	}
	if err := c.opts.Codec().Unmarshal(data, dst); err != nil {
		return New(codes.Internal, fmt.Sprintf("callcore: failed to unmarshal response message: %v", err))
	}
	return nil
}
