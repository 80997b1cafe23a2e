package callcore

import (
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/rpcframe/callcore/internal/grpcutil"
)

// Code is the fixed status code enumeration, reusing
// [google.golang.org/grpc/codes] rather than a hand-rolled enum, since the
// wire representation (a decimal grpc-status trailer) is defined by that
// package's Code type.
type Code = codes.Code

// Status is a structured error kind holding a code, an optional message,
// and trailing metadata. It wraps [status.Status]; the core never invents
// its own status representation since [google.golang.org/grpc/status] is
// already the status/code vocabulary used throughout the example pack this
// engine draws from.
type Status struct {
	s        *status.Status
	trailers metadata.MD
}

// New constructs a [Status] from a code and a formatted message.
func New(code Code, msg string) *Status {
	return &Status{s: status.New(code, msg)}
}

// OK is the canonical successful [Status].
var OK = New(codes.OK, "")

// FromError derives a [Status] from err. Errors that already carry a gRPC
// status (via errors.As) keep their code; context.Canceled and
// context.DeadlineExceeded map to codes.Canceled and
// codes.DeadlineExceeded; anything else maps to codes.Unknown, matching
// spec §4.4's "error(err) -> ... code Unknown if no explicit mapping".
func FromError(err error) *Status {
	if err == nil {
		return OK
	}
	if s, ok := status.FromError(err); ok {
		return &Status{s: s}
	}
	var wrapped interface{ GRPCStatus() *status.Status }
	if errors.As(err, &wrapped) {
		return &Status{s: wrapped.GRPCStatus()}
	}
	if translated := grpcutil.TranslateContextError(err); translated != err {
		if s, ok := status.FromError(translated); ok {
			return &Status{s: s}
		}
	}
	return New(codes.Unknown, err.Error())
}

// Code returns the status code.
func (s *Status) Code() Code {
	if s == nil {
		return codes.OK
	}
	return s.s.Code()
}

// Message returns the status message.
func (s *Status) Message() string {
	if s == nil {
		return ""
	}
	return s.s.Message()
}

// Trailers returns the trailing metadata associated with this status, if
// any (set by [Status.WithTrailers]).
func (s *Status) Trailers() metadata.MD {
	if s == nil {
		return nil
	}
	return s.trailers
}

// WithTrailers returns a copy of s carrying the given trailing metadata.
func (s *Status) WithTrailers(md metadata.MD) *Status {
	if s == nil {
		s = OK
	}
	return &Status{s: s.s, trailers: md}
}

// OK reports whether the code is codes.OK.
func (s *Status) OK() bool {
	return s.Code() == codes.OK
}

// Err returns an error representation of the status, or nil if OK.
func (s *Status) Err() error {
	if s == nil || s.OK() {
		return nil
	}
	return s.s.Err()
}

func (s *Status) Error() string {
	if s == nil {
		return OK.Error()
	}
	return s.s.Err().Error()
}

// invalidStateStatus reports an INVALID_STATE-style error for misuse of the
// Call facade (send before invoke, invoke twice, send after end). Spec §7
// calls these "invalid-state errors": reported to the caller's completion
// only, never affecting overall RPC state.
func invalidStateStatus(msg string) *Status {
	return New(codes.FailedPrecondition, "invalid state: "+msg)
}
