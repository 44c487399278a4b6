// nested.go walks an error's chain of causes into Squash "parent_exceptions".

package squash

import "reflect"

// maxCauseDepth bounds traversal for cause chains whose links cannot be
// compared for identity.
const maxCauseDepth = 1 << 10

// NestedException describes one cause in an error's chain.
type NestedException struct {
	ClassName string `json:"class_name"`

	// Message is nil, and omitted on the wire, when the cause's Error()
	// returns an empty string.
	Message    *string           `json:"message,omitempty"`
	Backtraces []ThreadBacktrace `json:"backtraces"`
	Ivars      map[string]any    `json:"ivars"`
}

// NestedExceptions returns a NestedException for every cause of err,
// outermost first. The result is empty, never nil.
func NestedExceptions(err error) []NestedException {
	nested := []NestedException{}
	PopulateNestedExceptions(&nested, err)
	return nested
}

// PopulateNestedExceptions appends a NestedException to nested for each cause
// of err, outermost first. The error itself is not appended.
//
// A cause is found through Unwrap() error or, failing that, Cause() error.
// Errors joined with errors.Join (Unwrap() []error) are not followed.
// Traversal stops at the first nil cause or at a cause already visited in
// this chain, which covers an error that is its own cause as well as longer
// cycles (A -> B -> A).
func PopulateNestedExceptions(nested *[]NestedException, err error) {
	if nested == nil || err == nil {
		return
	}

	seen := make(map[error]struct{})
	markVisited(seen, err)

	for depth := 0; depth < maxCauseDepth; depth++ {
		cause := causeOf(err)
		if cause == nil || !markVisited(seen, cause) {
			return
		}
		*nested = append(*nested, newNestedException(cause))
		err = cause
	}
}

func newNestedException(err error) NestedException {
	return NestedException{
		ClassName:  ClassName(err),
		Message:    Message(err),
		Backtraces: Backtraces(err),
		Ivars:      Ivars(err),
	}
}

// causeOf returns the error wrapped by err, or nil.
func causeOf(err error) (cause error) {
	defer func() {
		if recover() != nil {
			cause = nil
		}
	}()

	switch e := err.(type) {
	case interface{ Unwrap() error }:
		return e.Unwrap()
	case interface{ Cause() error }:
		return e.Cause()
	}
	return nil
}

// markVisited records err in seen and reports whether it was not there yet.
// Pointer errors compare by address and other comparable errors by value.
// Errors that cannot be map keys are never reported as visited.
func markVisited(seen map[error]struct{}, err error) bool {
	if !reflect.ValueOf(err).Comparable() {
		return true
	}
	if _, ok := seen[err]; ok {
		return false
	}
	seen[err] = struct{}{}
	return true
}
