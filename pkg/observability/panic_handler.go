package observability

import (
	"fmt"
	"runtime/debug"
)

// RecoverPanic logs a recovered panic with its stack trace. Deferred
// around background work, reconciliation jobs for example, so one
// panicking task cannot take the process down:
//
//	defer observability.RecoverPanic(logger, "usage reconciliation")
//
// The panic is swallowed after logging and the surrounding function
// returns normally. State touched by the panicking code may be
// inconsistent afterwards; only defer this where the task can be safely
// abandoned.
func RecoverPanic(logger *Logger, context string) {
	if r := recover(); r != nil {
		logger.WithField("panic", r).
			WithField("stack", string(debug.Stack())).
			WithField("context", context).
			Error("panic recovered")
	}
}

// RecoverPanicWithCallback logs a recovered panic and then runs a
// cleanup callback, for work that must release something on the way
// out, such as closing a result channel so readers unblock. The
// callback only runs when a panic actually occurred.
func RecoverPanicWithCallback(logger *Logger, context string, callback func()) {
	if r := recover(); r != nil {
		logger.WithField("panic", r).
			WithField("stack", string(debug.Stack())).
			WithField("context", context).
			Error("panic recovered")
		if callback != nil {
			callback()
		}
	}
}

// MustRecover converts a recover() value into an error:
//
//	defer func() { err = observability.MustRecover(recover()) }()
//
// Returns nil when no panic occurred. The stack trace is not carried in
// the error; use RecoverPanic where it needs to be logged.
func MustRecover(r interface{}) error {
	if r != nil {
		return fmt.Errorf("panic: %v", r)
	}
	return nil
}
