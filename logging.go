package callcore

import (
	"fmt"
	"time"

	"github.com/joeycumines/go-catrate"
	"github.com/joeycumines/logiface"
)

// Logger is the type-erased logiface logger this engine accepts. Using
// logiface.Event (rather than a concrete event type parameter) lets
// [CallOptions] hold one logger value regardless of which backend produced
// it, the same way sql/export.Exporter.Logger does elsewhere in this
// dependency's monorepo, via the erasure [*logiface.Logger[E]).Logger]
// itself provides.
type Logger = *logiface.Logger[logiface.Event]

// discardLogger is the default used when no [WithLogger] option is
// supplied: a logger with nothing attached, so every level check is false
// and nothing is ever formatted.
func discardLogger() Logger {
	return logiface.New[logiface.Event]()
}

// throttledLogger rate-limits a noisy category of log line (protocol
// errors, oversize-message rejections, dropped writes) so that a
// misbehaving peer can't turn the log into a denial-of-service vector
// against the process hosting this engine. Grounded on catrate.Limiter,
// the sliding-window limiter used the same way by the sibling packages in
// this module's dependency set.
type throttledLogger struct {
	log     Logger
	limiter *catrate.Limiter
}

// newThrottledLogger builds a throttledLogger over log, allowing at most
// the given rates per category (e.g. {time.Second: 5, time.Minute: 60}).
func newThrottledLogger(log Logger, rates map[time.Duration]int) *throttledLogger {
	return &throttledLogger{log: log, limiter: catrate.NewLimiter(rates)}
}

// Warn logs a warning under category, subject to the configured rate
// limit; suppressed occurrences are silently dropped (not buffered,
// not counted into the next allowed line) matching catrate's semantics.
func (t *throttledLogger) Warn(category string, format string, args ...any) {
	if t == nil || t.log == nil {
		return
	}
	if _, ok := t.limiter.Allow(category); !ok {
		return
	}
	t.log.Warning().Log(fmt.Sprintf(format, args...))
}

// Debugf logs a debug-level line unconditionally — not subject to the rate
// limit, unlike Warn — for routine lifecycle events such as a coalesced
// buffer flush that are useful to trace but never noisy enough on their own
// to need throttling.
func (t *throttledLogger) Debugf(format string, args ...any) {
	if t == nil || t.log == nil {
		return
	}
	t.log.Debug().Log(fmt.Sprintf(format, args...))
}
