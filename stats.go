package callcore

import (
	"context"
	"time"

	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/stats"
)

// statsHook wraps a client-side [stats.Handler], giving [Call] convenience
// methods for reporting each lifecycle event at the point it already
// occurs. Adapted from the teacher's statsHandlerHelper: isClient is no
// longer a field since this engine is client-only, and WireLength/Length
// stay zero, same as the teacher's in-process rationale, because framing
// and wire-length accounting belong to the [Stream] implementation, not
// this layer.
type statsHook struct {
	handler stats.Handler
}

func (sh *statsHook) tagRPC(ctx context.Context, method string) context.Context {
	if sh == nil {
		return ctx
	}
	return sh.handler.TagRPC(ctx, &stats.RPCTagInfo{FullMethodName: method})
}

func (sh *statsHook) begin(ctx context.Context, isClientStream, isServerStream bool) {
	if sh == nil {
		return
	}
	sh.handler.HandleRPC(ctx, &stats.Begin{
		Client:         true,
		BeginTime:      time.Now(),
		IsClientStream: isClientStream,
		IsServerStream: isServerStream,
	})
}

func (sh *statsHook) end(ctx context.Context, err error) {
	if sh == nil {
		return
	}
	sh.handler.HandleRPC(ctx, &stats.End{
		Client:  true,
		EndTime: time.Now(),
		Error:   err,
	})
}

func (sh *statsHook) outHeader(ctx context.Context, md metadata.MD) {
	if sh == nil {
		return
	}
	sh.handler.HandleRPC(ctx, &stats.OutHeader{Client: true, Header: md})
}

func (sh *statsHook) outPayload(ctx context.Context, payload any) {
	if sh == nil {
		return
	}
	sh.handler.HandleRPC(ctx, &stats.OutPayload{Client: true, Payload: payload, SentTime: time.Now()})
}

func (sh *statsHook) inHeader(ctx context.Context, md metadata.MD, method string) {
	if sh == nil {
		return
	}
	sh.handler.HandleRPC(ctx, &stats.InHeader{Client: true, FullMethod: method, Header: md})
}

func (sh *statsHook) inPayload(ctx context.Context, payload any) {
	if sh == nil {
		return
	}
	sh.handler.HandleRPC(ctx, &stats.InPayload{Client: true, Payload: payload, RecvTime: time.Now()})
}

func (sh *statsHook) inTrailer(ctx context.Context, md metadata.MD) {
	if sh == nil {
		return
	}
	sh.handler.HandleRPC(ctx, &stats.InTrailer{Client: true, Trailer: md})
}
