package utils

import (
	"fmt"
	"log/slog"
	"runtime/debug"
)

// PanicError wraps a panic value as an error
type PanicError struct {
	Value      any
	StackTrace string
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

func newPanicError(r any) *PanicError {
	stack := string(debug.Stack())
	slog.Error("Recovered from panic", "panic", r, "stack", stack)
	return &PanicError{Value: r, StackTrace: stack}
}

// RecoverWithCallback recovers from a panic and passes it to callback as a
// *PanicError. It must be deferred directly.
//
//	defer RecoverWithCallback(func(err error) { results[i] = err })
func RecoverWithCallback(callback func(error)) {
	if r := recover(); r != nil {
		err := newPanicError(r)
		if callback != nil {
			callback(err)
		}
	}
}

// SafeGo runs fn in a goroutine. A panic is logged and passed to onError.
func SafeGo(fn func(), onError func(error)) {
	go func() {
		defer RecoverWithCallback(onError)
		fn()
	}()
}

// SafeGoWithResult runs fn in a goroutine and delivers its error, or the
// recovered panic, on the returned channel. The channel is closed when fn
// returns.
func SafeGoWithResult(fn func() error) <-chan error {
	errCh := make(chan error, 1)
	go func() {
		defer close(errCh)
		defer RecoverWithCallback(func(err error) { errCh <- err })
		if err := fn(); err != nil {
			errCh <- err
		}
	}()
	return errCh
}
