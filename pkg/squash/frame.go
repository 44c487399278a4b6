// frame.go reads the stack snapshot attached to an error when it was created
// and names Go functions in Squash's class/symbol terms.

package squash

import (
	"runtime"
	"strings"

	"github.com/pkg/errors"
)

// FrameTracer is implemented by errors that carry resolved frames captured
// when the error was created.
type FrameTracer interface {
	StackTrace() []runtime.Frame
}

// PCTracer is implemented by errors that carry the program counters returned
// by runtime.Callers when the error was created.
type PCTracer interface {
	StackTrace() []uintptr
}

// pkgErrorsTracer matches errors built by github.com/pkg/errors
// (New, Errorf, Wrap, WithStack).
type pkgErrorsTracer interface {
	StackTrace() errors.StackTrace
}

// nativeFrames returns the frames err carries, or nil if it carries none.
func nativeFrames(err error) (frames []runtime.Frame) {
	// A typed-nil receiver may panic inside StackTrace.
	defer func() {
		if recover() != nil {
			frames = nil
		}
	}()

	switch t := err.(type) {
	case nil:
		return nil
	case FrameTracer:
		return t.StackTrace()
	case PCTracer:
		return resolvePCs(t.StackTrace())
	case pkgErrorsTracer:
		st := t.StackTrace()
		pcs := make([]uintptr, len(st))
		for i, f := range st {
			pcs[i] = uintptr(f)
		}
		return resolvePCs(pcs)
	}
	return nil
}

// resolvePCs resolves return program counters into frames. CallersFrames
// expands inlined calls, so the result may be longer than pcs.
func resolvePCs(pcs []uintptr) []runtime.Frame {
	if len(pcs) == 0 {
		return nil
	}

	frames := runtime.CallersFrames(pcs)
	out := make([]runtime.Frame, 0, len(pcs))
	for {
		fr, more := frames.Next()
		out = append(out, fr)
		if !more {
			break
		}
	}
	return out
}

// splitFunction splits a runtime function name into a class name and symbol:
//
//	example.com/pkg.(*Server).Serve  -> "example.com/pkg.Server", "Serve"
//	example.com/pkg.Server.String    -> "example.com/pkg.Server", "String"
//	example.com/pkg.Run.func1        -> "example.com/pkg", "Run.func1"
//	main.main                        -> "main", "main"
func splitFunction(name string) (className, symbol string) {
	if name == "" {
		return "", ""
	}

	pkgStart := 0
	if i := strings.LastIndexByte(name, '/'); i >= 0 {
		pkgStart = i + 1
	}

	// Pointer receivers are unambiguous even when the last path element has dots (yaml.v3).
	if i := strings.Index(name[pkgStart:], ".("); i >= 0 {
		pkg := name[:pkgStart+i]
		rest := name[pkgStart+i+1:]
		if end := strings.Index(rest, ")."); end > 0 {
			recv := strings.TrimPrefix(rest[1:end], "*")
			return pkg + "." + recv, rest[end+2:]
		}
	}

	dot := strings.IndexByte(name[pkgStart:], '.')
	if dot < 0 {
		return "", name
	}
	pkg := name[:pkgStart+dot]
	rest := name[pkgStart+dot+1:]

	recv, method, ok := cutSymbol(rest)
	if !ok || isClosureSegment(method) {
		return pkg, rest
	}
	return pkg + "." + recv, method
}

// cutSymbol cuts s around the first dot outside generic brackets ("Map[...]").
func cutSymbol(s string) (before, after string, found bool) {
	depth := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '[':
			depth++
		case ']':
			depth--
		case '.':
			if depth == 0 {
				return s[:i], s[i+1:], true
			}
		}
	}
	return s, "", false
}

// isClosureSegment reports whether the first element of s names a closure
// ("func1") or a numbered init function ("0").
func isClosureSegment(s string) bool {
	seg, _, _ := strings.Cut(s, ".")
	if seg == "" {
		return false
	}
	if strings.HasPrefix(seg, "func") && len(seg) > len("func") {
		seg = seg[len("func"):]
	}
	for i := 0; i < len(seg); i++ {
		if seg[i] < '0' || seg[i] > '9' {
			return false
		}
	}
	return true
}
