package callcore

// Interceptor observes and may rewrite the request/response parts flowing
// through one position in a [Pipeline]. All four methods have a default,
// pass-through behavior; an interceptor overrides only the hooks it cares
// about by embedding [PassthroughInterceptor] and defining the rest.
//
// Spec §4.2: "the pipeline is a bidirectional chain of interceptor
// contexts between a head (adjacent to the transport) and a tail (adjacent
// to the call)." Request parts travel tail-to-head; response parts travel
// head-to-tail.
type Interceptor interface {
	// Send is invoked for each outgoing [RequestPart] travelling toward
	// the transport. Implementations call next(part) to forward
	// (possibly after rewriting part), or omit the call to suppress it.
	Send(ctx *InterceptorContext, part RequestPart, next func(RequestPart))

	// Receive is invoked for each incoming [ResponsePart] travelling
	// toward the call.
	Receive(ctx *InterceptorContext, part ResponsePart, next func(ResponsePart))

	// ErrorCaught is invoked when a part lower in the chain (closer to
	// the transport) produced an error outside the normal response-part
	// flow (e.g. a framing violation). Implementations may recover by
	// calling next with a synthesized part, or propagate by calling next
	// with a [ResponseError] part.
	ErrorCaught(ctx *InterceptorContext, err error, next func(ResponsePart))

	// Cancel is invoked when the call is cancelled, once per interceptor,
	// head to tail then tail to head is not guaranteed; only that every
	// interceptor observes it exactly once.
	Cancel(ctx *InterceptorContext, next func())
}

// PassthroughInterceptor implements [Interceptor] by forwarding every hook
// unchanged. Embed it to implement only the hooks an interceptor needs to
// observe or rewrite.
type PassthroughInterceptor struct{}

func (PassthroughInterceptor) Send(_ *InterceptorContext, part RequestPart, next func(RequestPart)) {
	next(part)
}

func (PassthroughInterceptor) Receive(_ *InterceptorContext, part ResponsePart, next func(ResponsePart)) {
	next(part)
}

func (PassthroughInterceptor) ErrorCaught(_ *InterceptorContext, err error, next func(ResponsePart)) {
	next(NewResponseErrorPart(err))
}

func (PassthroughInterceptor) Cancel(_ *InterceptorContext, next func()) {
	next()
}

// InterceptorContext identifies one interceptor's fixed position in a
// [Pipeline] and carries the method name / call-scoped values an
// interceptor might want to inspect.
type InterceptorContext struct {
	Method string
	index  int
	p      *Pipeline
}

// Pipeline is the ordered chain of interceptors between a head sentinel
// (adjacent to the [Transport]) and a tail sentinel (adjacent to the
// [Call]). Spec §4.2: interceptors are addressed by a stable index fixed
// at construction; routing a part to "the next interceptor" means index-1
// toward the head for sends, index+1 toward the tail for receives.
type Pipeline struct {
	method       string
	interceptors []Interceptor
	contexts     []*InterceptorContext

	// toTransport is called by the head sentinel with the fully-processed
	// outgoing part.
	toTransport func(RequestPart)
	// toCall is called by the tail sentinel with the fully-processed
	// incoming part.
	toCall func(ResponsePart)

	cancelled bool
}

// NewPipeline builds a [Pipeline] for method with interceptors ordered
// head-first (the order a [Call] was configured with): interceptors[0] sits
// next to the transport and the last one next to the call. It wires toTransport
// and toCall as the head/tail sentinels' forwarding targets.
func NewPipeline(method string, interceptors []Interceptor, toTransport func(RequestPart), toCall func(ResponsePart)) *Pipeline {
	p := &Pipeline{
		method:       method,
		interceptors: interceptors,
		toTransport:  toTransport,
		toCall:       toCall,
	}
	p.contexts = make([]*InterceptorContext, len(interceptors))
	for i := range interceptors {
		p.contexts[i] = &InterceptorContext{Method: method, index: i, p: p}
	}
	return p
}

// Send starts part at the tail (index len-1) and routes it toward the
// head; index -1 reaching the head sentinel means forward to the
// transport.
func (p *Pipeline) Send(part RequestPart) {
	if p.cancelled {
		return
	}
	p.sendFrom(len(p.interceptors)-1, part)
}

func (p *Pipeline) sendFrom(index int, part RequestPart) {
	if index < 0 {
		p.toTransport(part)
		return
	}
	p.interceptors[index].Send(p.contexts[index], part, func(rewritten RequestPart) {
		p.sendFrom(index-1, rewritten)
	})
}

// Receive starts part at the head (index 0) and routes it toward the
// tail; index len reaching the tail sentinel means deliver to the call.
func (p *Pipeline) Receive(part ResponsePart) {
	if p.cancelled {
		return
	}
	p.receiveFrom(0, part)
}

func (p *Pipeline) receiveFrom(index int, part ResponsePart) {
	if index >= len(p.interceptors) {
		p.toCall(part)
		return
	}
	p.interceptors[index].Receive(p.contexts[index], part, func(rewritten ResponsePart) {
		p.receiveFrom(index+1, rewritten)
	})
}

// ErrorCaught starts err at the head and routes it toward the tail,
// converting it into a response part along the way (or at the sentinel,
// if no interceptor recovers it).
func (p *Pipeline) ErrorCaught(err error) {
	if p.cancelled {
		return
	}
	p.errorFrom(0, err)
}

func (p *Pipeline) errorFrom(index int, err error) {
	if index >= len(p.interceptors) {
		p.toCall(NewResponseErrorPart(err))
		return
	}
	p.interceptors[index].ErrorCaught(p.contexts[index], err, func(part ResponsePart) {
		p.receiveFrom(index+1, part)
	})
}

// Cancel notifies every interceptor exactly once, in tail-to-head order,
// then stops further routing through the pipeline. Idempotent.
func (p *Pipeline) Cancel() {
	if p.cancelled {
		return
	}
	p.cancelled = true
	p.cancelFrom(len(p.interceptors) - 1)
}

func (p *Pipeline) cancelFrom(index int) {
	if index < 0 {
		return
	}
	p.interceptors[index].Cancel(p.contexts[index], func() {
		p.cancelFrom(index - 1)
	})
}
