// backtrace.go converts the stack an error carries into Squash backtraces.

package squash

import (
	"bytes"
	"runtime"
)

// FrameType is the fixed "type" marker on every frame. Squash uses it to
// reconcile frames against symbol tables and source control, since Go frames
// carry build paths rather than repository-relative ones.
const FrameType = "obfuscated"

// StackFrame is a single call site.
type StackFrame struct {
	// Type is always FrameType.
	Type string `json:"type"`

	// File is the source file reported by the runtime. Nil when unknown.
	File *string `json:"file,omitempty"`

	Line int `json:"line"`

	// Symbol is the function or method name, without package or receiver.
	Symbol string `json:"symbol"`

	// ClassName is the package path, qualified by the receiver type for methods.
	ClassName string `json:"class_name"`
}

// ThreadBacktrace is the stack capture for one thread of execution.
type ThreadBacktrace struct {
	Name      string       `json:"name"`
	Faulted   bool         `json:"faulted"`
	Backtrace []StackFrame `json:"backtrace"`
}

// Backtraces returns the backtraces for err, or nil when err is nil.
//
// Only the goroutine performing the extraction is reported, and it is always
// marked as faulted. Its frames come from the stack snapshot err carries (see
// Frames), not from the live stack of the caller.
func Backtraces(err error) []ThreadBacktrace {
	if err == nil {
		return nil
	}
	return []ThreadBacktrace{{
		Name:      currentGoroutineName(),
		Faulted:   true,
		Backtrace: Frames(err),
	}}
}

// Frames converts the stack snapshot carried by err into Squash frames,
// innermost first and in the order the runtime recorded them. An error with
// no snapshot yields an empty, non-nil slice.
func Frames(err error) []StackFrame {
	native := nativeFrames(err)
	frames := make([]StackFrame, 0, len(native))
	for _, fr := range native {
		frames = append(frames, newStackFrame(fr))
	}
	return frames
}

func newStackFrame(fr runtime.Frame) StackFrame {
	className, symbol := splitFunction(fr.Function)
	frame := StackFrame{
		Type:      FrameType,
		Line:      fr.Line,
		Symbol:    symbol,
		ClassName: className,
	}
	if fr.File != "" {
		file := fr.File
		frame.File = &file
	}
	return frame
}

// currentGoroutineName returns "goroutine <id>" for the calling goroutine.
func currentGoroutineName() string {
	buf := make([]byte, 64)
	buf = buf[:runtime.Stack(buf, false)]

	// Header looks like "goroutine 18 [running]:"
	if i := bytes.IndexByte(buf, '['); i > 0 {
		return string(bytes.TrimSpace(buf[:i]))
	}
	return "goroutine"
}
