package callcore

import (
	"fmt"
	"time"

	"google.golang.org/grpc/metadata"
)

// requestHead is the small set of request headers spec §2's "request head"
// helper assembles ahead of the leading application metadata: the HTTP
// method, content type, transfer encoding, user agent, and (if a deadline
// applies) the grpc-timeout header.
type requestHead struct {
	Method      string // "POST" or "GET", per spec §6
	ContentType string
	TE          string
	UserAgent   string
	Timeout     string // grpc-timeout value; "" if no deadline applies
}

const (
	defaultContentType = "application/grpc+proto"
	defaultTE          = "trailers"
	defaultUserAgent   = "callcore/1.0"
)

// buildRequestHead assembles the request head for one invocation. Spec §6:
// a call marked cacheable (idempotent, safe to retry at a layer above this
// engine) uses GET instead of POST, but only when it has no more than the
// single request message a GET can carry as a query parameter — a
// streaming request always needs POST regardless of the cacheable flag.
func buildRequestHead(cacheable, streamingRequest bool, codec Codec, deadline time.Time, hasDeadline bool) requestHead {
	method := "POST"
	if cacheable && !streamingRequest {
		method = "GET"
	}
	h := requestHead{
		Method:      method,
		ContentType: defaultContentType,
		TE:          defaultTE,
		UserAgent:   defaultUserAgent,
	}
	if codec != nil && codec.Name() != "" && codec.Name() != "proto" {
		h.ContentType = "application/grpc+" + codec.Name()
	}
	if hasDeadline {
		h.Timeout = encodeGRPCTimeout(time.Until(deadline))
	}
	return h
}

// Metadata renders the request head as outgoing metadata pairs. :method is
// a pseudo-header carried out of band by the real HTTP/2 stream
// implementation, not gRPC metadata, so it is not included here; callers
// that need it read [requestHead.Method] directly.
func (h requestHead) Metadata() metadata.MD {
	md := metadata.Pairs(
		"content-type", h.ContentType,
		"te", h.TE,
		"user-agent", h.UserAgent,
	)
	if h.Timeout != "" {
		md.Set("grpc-timeout", h.Timeout)
	}
	return md
}

// grpcTimeoutUnits are the ASCII unit suffixes grpc-timeout supports, in
// smallest-to-largest order so [encodeGRPCTimeout] can pick the finest
// (most precise) unit that still fits within the wire format's 8-digit
// limit.
var grpcTimeoutUnits = []struct {
	suffix byte
	unit   time.Duration
}{
	{'n', time.Nanosecond},
	{'u', time.Microsecond},
	{'m', time.Millisecond},
	{'S', time.Second},
	{'M', time.Minute},
	{'H', time.Hour},
}

// maxGRPCTimeoutDigits is the wire format's limit on grpc-timeout's digit
// count (spec §8: "grpc-timeout with exactly 8 digits accepted; 9 digits
// rejected").
const maxGRPCTimeoutDigits = 8

const maxGRPCTimeoutValue = 99999999 // 10^maxGRPCTimeoutDigits - 1

// encodeGRPCTimeout renders d as a grpc-timeout header value: up to 8 ASCII
// digits followed by a unit suffix. A non-positive duration (already
// expired, or a caller-supplied zero) is clamped to one nanosecond so a
// deadline that is technically already past is still communicated as "as
// soon as possible" rather than omitted.
func encodeGRPCTimeout(d time.Duration) string {
	if d <= 0 {
		d = time.Nanosecond
	}
	for _, u := range grpcTimeoutUnits {
		value := d / u.unit
		if value > 0 && value <= maxGRPCTimeoutValue {
			return fmt.Sprintf("%d%c", value, u.suffix)
		}
	}
	largest := grpcTimeoutUnits[len(grpcTimeoutUnits)-1]
	return fmt.Sprintf("%d%c", maxGRPCTimeoutValue, largest.suffix)
}

// decodeGRPCTimeout parses a grpc-timeout header value back into a
// [time.Duration]. Spec §8's boundary property: exactly 1-8 digits are
// accepted, 9 or more digits (or zero digits) are rejected, as is any
// unrecognized unit suffix.
func decodeGRPCTimeout(value string) (time.Duration, error) {
	if len(value) < 2 {
		return 0, fmt.Errorf("callcore: grpc-timeout value %q too short", value)
	}
	digits := value[:len(value)-1]
	suffix := value[len(value)-1]
	if len(digits) == 0 || len(digits) > maxGRPCTimeoutDigits {
		return 0, fmt.Errorf("callcore: grpc-timeout value %q has invalid digit count %d (must be 1-%d)", value, len(digits), maxGRPCTimeoutDigits)
	}
	var n int64
	for _, c := range digits {
		if c < '0' || c > '9' {
			return 0, fmt.Errorf("callcore: grpc-timeout value %q contains a non-digit", value)
		}
		n = n*10 + int64(c-'0')
	}
	for _, u := range grpcTimeoutUnits {
		if u.suffix == suffix {
			return time.Duration(n) * u.unit, nil
		}
	}
	return 0, fmt.Errorf("callcore: grpc-timeout value %q has unrecognized unit %q", value, string(suffix))
}
