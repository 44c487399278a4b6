// recover.go provides the Recover helper for standalone panic recovery.
// Use this in HTTP handlers, goroutines, or other code outside of Runner.

package squash

import (
	"context"
	"fmt"
	"runtime"
	"strings"
)

// PanicLogMessage is the log message of entries recorded for recovered panics.
const PanicLogMessage = "panic"

// maxPanicFrames bounds the stack captured for a recovered panic.
const maxPanicFrames = 64

// PanicError is an error built from a recovered panic value. It carries the
// stack of the panicking goroutine as it was when the panic was recovered.
type PanicError struct {
	// Value is the value passed to panic.
	Value any

	stack []uintptr
}

// NewPanicError wraps a recovered value. It must be called from the deferred
// function that called recover; skip is the number of additional callers
// between that function and NewPanicError. Runtime panic machinery frames are
// dropped so the stack starts at the panicking function.
func NewPanicError(value any, skip int) *PanicError {
	pcs := make([]uintptr, maxPanicFrames)
	n := runtime.Callers(skip+2, pcs)
	return &PanicError{Value: value, stack: trimPanicFrames(pcs[:n])}
}

// Error returns the recovered value as text.
func (e *PanicError) Error() string {
	return formatRecovered(e.Value)
}

// Unwrap returns the recovered value when it is an error.
func (e *PanicError) Unwrap() error {
	err, _ := e.Value.(error)
	return err
}

// StackTrace returns the program counters captured at recovery.
func (e *PanicError) StackTrace() []uintptr {
	return e.stack
}

// Fields reports the recovered value and its type.
func (e *PanicError) Fields() map[string]any {
	return map[string]any{
		"value":      formatRecovered(e.Value),
		"value_type": fmt.Sprintf("%T", e.Value),
	}
}

// trimPanicFrames drops frames up to and including runtime.gopanic, along
// with the runtime's own panic helpers (sigpanic, panicmem, ...).
func trimPanicFrames(pcs []uintptr) []uintptr {
	for i, pc := range pcs {
		if funcName(pc) != "runtime.gopanic" {
			continue
		}
		rest := pcs[i+1:]
		for len(rest) > 0 && isRuntimePanicFrame(funcName(rest[0])) {
			rest = rest[1:]
		}
		return rest
	}
	return pcs
}

func isRuntimePanicFrame(name string) bool {
	return name == "runtime.sigpanic" || strings.HasPrefix(name, "runtime.panic")
}

func funcName(pc uintptr) string {
	if fn := runtime.FuncForPC(pc - 1); fn != nil {
		return fn.Name()
	}
	return ""
}

// Recover captures a panic, records it to the collector, and returns the recovered value.
// Unlike WrappedRunner, Recover does NOT re-panic after recording.
//
// Use in defer:
//
//	func handler(ctx context.Context) {
//	    defer squash.Recover(ctx, collector)
//	    // code that might panic
//	}
func Recover(ctx context.Context, collector Collector) any {
	r := recover()
	if r == nil {
		return nil
	}

	// Record the panic (ignore errors - we don't want to affect caller)
	_ = collector.Notify(ctx, PanicLogMessage, NewPanicError(r, 0))

	return r
}

// formatRecovered formats a recovered panic value as a string.
func formatRecovered(recovered any) string {
	if recovered == nil {
		return "<nil>"
	}
	if err, ok := recovered.(error); ok {
		return err.Error()
	}
	return fmt.Sprintf("%v", recovered)
}
