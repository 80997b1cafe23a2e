package callcore

import (
	"errors"
	"time"

	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/stats"
)

// RequestIDProvider generates a request identifier attached to a call's
// structured log lines, letting a caller correlate engine log output with
// its own tracing. Returning "" opts a call out of the field entirely.
type RequestIDProvider func() string

// CallOptions configures one [Call]. Construct with [NewCallOptions] and
// the With* functions below.
type CallOptions struct {
	deadline                time.Time
	hasDeadline             bool
	customMetadata          metadata.MD
	defaultCompress         bool
	cacheable               bool
	requestIDProvider       RequestIDProvider
	logger                  Logger
	maxReceiveMessageLength int
	codec                   Codec
	statsHandler            stats.Handler
}

// CallOption configures a [CallOptions] instance.
type CallOption interface {
	applyCallOption(*CallOptions) error
}

type callOptionImpl struct {
	fn func(*CallOptions) error
}

func (o *callOptionImpl) applyCallOption(opts *CallOptions) error {
	return o.fn(opts)
}

// WithDeadline sets the absolute deadline for the call's transport timer.
func WithDeadline(deadline time.Time) CallOption {
	return &callOptionImpl{fn: func(opts *CallOptions) error {
		opts.deadline = deadline
		opts.hasDeadline = true
		return nil
	}}
}

// WithTimeout sets the deadline relative to when the option is resolved.
func WithTimeout(d time.Duration) CallOption {
	return &callOptionImpl{fn: func(opts *CallOptions) error {
		opts.deadline = time.Now().Add(d)
		opts.hasDeadline = true
		return nil
	}}
}

// WithCustomMetadata attaches additional outgoing request metadata, merged
// with (and not overriding) any metadata already present on the call's
// context.
func WithCustomMetadata(md metadata.MD) CallOption {
	return &callOptionImpl{fn: func(opts *CallOptions) error {
		opts.customMetadata = metadata.Join(opts.customMetadata, md)
		return nil
	}}
}

// WithDefaultCompression sets the per-message compression flag used when a
// caller does not specify one explicitly via [MessageOptions.Compress].
func WithDefaultCompression(compress bool) CallOption {
	return &callOptionImpl{fn: func(opts *CallOptions) error {
		opts.defaultCompress = compress
		return nil
	}}
}

// WithCacheable marks the call as safe to retry/cache at a layer above
// this engine (an idempotent read, typically).
func WithCacheable(cacheable bool) CallOption {
	return &callOptionImpl{fn: func(opts *CallOptions) error {
		opts.cacheable = cacheable
		return nil
	}}
}

// WithRequestIDProvider configures how request IDs are generated for log
// correlation.
func WithRequestIDProvider(p RequestIDProvider) CallOption {
	return &callOptionImpl{fn: func(opts *CallOptions) error {
		opts.requestIDProvider = p
		return nil
	}}
}

// WithLogger configures the structured logger used for this call. A nil
// logger is rejected; omit [WithLogger] entirely to get the default
// discard logger.
func WithLogger(logger Logger) CallOption {
	return &callOptionImpl{fn: func(opts *CallOptions) error {
		if logger == nil {
			return errors.New("callcore: logger must not be nil")
		}
		opts.logger = logger
		return nil
	}}
}

// WithMaxReceiveMessageLength bounds the largest message this call's
// [FrameReader] will accept before failing with RESOURCE_EXHAUSTED.
func WithMaxReceiveMessageLength(n int) CallOption {
	return &callOptionImpl{fn: func(opts *CallOptions) error {
		opts.maxReceiveMessageLength = n
		return nil
	}}
}

// WithCodec overrides the default [ProtoCodec] used to marshal/unmarshal
// messages.
func WithCodec(codec Codec) CallOption {
	return &callOptionImpl{fn: func(opts *CallOptions) error {
		if codec == nil {
			return errors.New("callcore: codec must not be nil")
		}
		opts.codec = codec
		return nil
	}}
}

// WithStatsHandler configures a [stats.Handler] to receive this call's
// lifecycle events (Begin/End, headers, payloads, trailers).
func WithStatsHandler(h stats.Handler) CallOption {
	return &callOptionImpl{fn: func(opts *CallOptions) error {
		if h == nil {
			return errors.New("callcore: stats handler must not be nil")
		}
		opts.statsHandler = h
		return nil
	}}
}

// NewCallOptions resolves opts into a [CallOptions], applying defaults for
// anything left unset.
func NewCallOptions(opts ...CallOption) (*CallOptions, error) {
	cfg := &CallOptions{
		logger: discardLogger(),
		codec:  ProtoCodec{},
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt.applyCallOption(cfg); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// Deadline returns the configured deadline and whether one was set.
func (c *CallOptions) Deadline() (time.Time, bool) {
	return c.deadline, c.hasDeadline
}

// requestIDMetadataKey is the outgoing metadata key a generated request ID
// is attached under.
const requestIDMetadataKey = "x-request-id"

// requestID invokes the configured [RequestIDProvider], returning "" if
// none was configured or it returned "".
func (c *CallOptions) requestID() string {
	if c.requestIDProvider == nil {
		return ""
	}
	return c.requestIDProvider()
}

// CustomMetadata returns the additional outgoing metadata configured via
// [WithCustomMetadata].
func (c *CallOptions) CustomMetadata() metadata.MD {
	return c.customMetadata
}

// Logger returns the configured logger.
func (c *CallOptions) Logger() Logger {
	return c.logger
}

// Codec returns the configured codec.
func (c *CallOptions) Codec() Codec {
	return c.codec
}

// MaxReceiveMessageLength returns the configured receive cap (0 means
// unbounded).
func (c *CallOptions) MaxReceiveMessageLength() int {
	return c.maxReceiveMessageLength
}

// stats returns a [statsHook] over the configured handler, or nil if none
// was configured; every statsHook method tolerates a nil receiver.
func (c *CallOptions) stats() *statsHook {
	if c.statsHandler == nil {
		return nil
	}
	return &statsHook{handler: c.statsHandler}
}

// defaultLogThrottleRates bounds how often transport.go/call.go log a given
// noisy category (dropped writes, marshal/protocol errors, oversize
// messages): at most once per second per category, so a peer that keeps
// tripping the same failure can't turn logging itself into a resource
// drain. Grounded on catrate.Limiter's sliding-window semantics.
var defaultLogThrottleRates = map[time.Duration]int{time.Second: 1}

// throttledLogger builds a rate-limited logger over this call's configured
// Logger, backing the [Transport]'s and [Call]'s noisy-event logging.
func (c *CallOptions) throttledLogger() *throttledLogger {
	return newThrottledLogger(c.logger, defaultLogThrottleRates)
}

// cacheableOption reports whether this call was marked [WithCacheable].
func (c *CallOptions) cacheableOption() bool {
	return c.cacheable
}

// defaultMessageOptions returns the [MessageOptions] a convenience wrapper
// (e.g. [Call.InvokeUnaryRequest]) should use when the caller didn't supply
// any explicit per-message options: the configured default compression
// flag, nothing else.
func (c *CallOptions) defaultMessageOptions() MessageOptions {
	return MessageOptions{Compress: c.defaultCompress}
}
