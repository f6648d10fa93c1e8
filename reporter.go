package ceed

// ErrorHandler decides what a failing call does once its *Error has been
// recorded on the Ceed. A non-nil result is what the call returns; a nil
// result only swallows the report, the call still fails with the *Error.
type ErrorHandler func(e *Error) error

// ErrorReturn returns the error to the caller. It is the default handler.
func ErrorReturn(e *Error) error { return e }

// ErrorPanic panics with the error. Useful in tests and in programs that
// treat any runtime misuse as fatal.
func ErrorPanic(e *Error) error { panic(e) }

// ErrorReporter holds the last failure of one Ceed. It is a single slot,
// not a queue: each failure overwrites the previous record.
type ErrorReporter struct {
	last *Error
}

// Last returns the last recorded error, or nil.
func (r *ErrorReporter) Last() *Error {
	return r.last
}

// Clear forgets the last recorded error.
func (r *ErrorReporter) Clear() {
	r.last = nil
}

func (r *ErrorReporter) record(e *Error) {
	r.last = e
}
