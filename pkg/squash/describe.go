// describe.go derives an error's class name and message.

package squash

import (
	"reflect"
	"strings"
)

// ClassName returns the fully qualified name of err's dynamic type, such as
// "*github.com/pkg/errors.fundamental". Pointer types keep their leading '*'.
// Returns "" for a nil error.
func ClassName(err error) string {
	if err == nil {
		return ""
	}

	t := reflect.TypeOf(err)
	base := t
	stars := 0
	for base.Kind() == reflect.Pointer {
		base = base.Elem()
		stars++
	}
	if base.Name() == "" || base.PkgPath() == "" {
		return t.String()
	}
	return strings.Repeat("*", stars) + base.PkgPath() + "." + base.Name()
}

// Message returns err's message, or nil when err is nil, its message is empty,
// or Error panics (typically on a typed-nil receiver).
func Message(err error) (msg *string) {
	if err == nil {
		return nil
	}
	defer func() {
		if recover() != nil {
			msg = nil
		}
	}()

	s := err.Error()
	if s == "" {
		return nil
	}
	return &s
}
