// ivars.go collects an error's own field values for the Squash "ivars" map.

package squash

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
	"unsafe"
)

// FieldReporter is implemented by errors that report their own diagnostic
// state. When an error implements it, Ivars uses the reported map instead of
// reading struct fields by reflection.
type FieldReporter interface {
	Fields() map[string]any
}

const (
	// ignoredFieldPrefix marks fields generated by mocking and proxy tooling.
	ignoredFieldPrefix = "CGLIB"

	// fieldAccessErrorPrefix starts the value stored for a field that could not be read.
	fieldAccessErrorPrefix = "Exception accessing field: "

	// fieldTagKey is the struct tag consulted for exclusions: `squash:"-"`.
	fieldTagKey = "squash"
)

// Ivars returns err's own fields keyed by name, or nil when err is nil.
//
// Only fields declared directly on err's struct type are reported: embedded
// structs, blank fields, fields tagged `squash:"-"` and names starting with
// "CGLIB" are skipped. Unexported fields are read as well. A field that cannot
// be read is reported as "Exception accessing field: <detail>" and does not
// stop the remaining fields from being collected. Values that cannot be
// encoded as JSON (funcs, channels, complex numbers) are stored as their %v
// rendering, and error values as their message. Values returned by Fields
// are converted the same way.
//
// The result is never nil for a non-nil error.
func Ivars(err error) map[string]any {
	if err == nil {
		return nil
	}

	ivars := make(map[string]any)
	if reporter, ok := err.(FieldReporter); ok {
		for name, val := range reportedFields(reporter) {
			if strings.HasPrefix(name, ignoredFieldPrefix) {
				continue
			}
			converted, convErr := reportedValue(val)
			if convErr != nil {
				ivars[name] = fieldAccessErrorPrefix + convErr.Error()
				continue
			}
			ivars[name] = converted
		}
		return ivars
	}

	v := reflect.ValueOf(err)
	for v.Kind() == reflect.Pointer || v.Kind() == reflect.Interface {
		if v.IsNil() {
			return ivars
		}
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return ivars
	}

	// Unexported fields can only be read through an address.
	if !v.CanAddr() {
		addressable := reflect.New(v.Type()).Elem()
		addressable.Set(v)
		v = addressable
	}

	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if skipField(field) {
			continue
		}
		val, readErr := readField(v, i)
		if readErr != nil {
			ivars[field.Name] = fieldAccessErrorPrefix + readErr.Error()
			continue
		}
		ivars[field.Name] = val
	}
	return ivars
}

func skipField(field reflect.StructField) bool {
	return field.Name == "_" ||
		field.Anonymous ||
		field.Tag.Get(fieldTagKey) == "-" ||
		strings.HasPrefix(field.Name, ignoredFieldPrefix)
}

// readField reads field i of the addressable struct v, bypassing export rules.
// Panics raised by reflection are returned as errors.
func readField(v reflect.Value, i int) (val any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%v", r)
		}
	}()

	fv := v.Field(i)
	if !fv.CanInterface() {
		fv = reflect.NewAt(fv.Type(), unsafe.Pointer(fv.UnsafeAddr())).Elem()
	}
	return diagnosticValue(fv), nil
}

// reportedValue converts a value returned by Fields the same way struct
// field values are converted.
func reportedValue(val any) (out any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%v", r)
		}
	}()

	if val == nil {
		return nil, nil
	}
	return diagnosticValue(reflect.ValueOf(val)), nil
}

// diagnosticValue returns a JSON-encodable form of fv.
func diagnosticValue(fv reflect.Value) any {
	if fv.Kind() == reflect.Interface && fv.IsNil() {
		return nil
	}

	val := fv.Interface()
	if e, ok := val.(error); ok {
		if msg := Message(e); msg != nil {
			return *msg
		}
		return nil
	}
	if _, err := json.Marshal(val); err != nil {
		return fmt.Sprintf("%v", val)
	}
	return val
}

// reportedFields calls Fields, treating a panic as an empty report.
func reportedFields(reporter FieldReporter) (fields map[string]any) {
	defer func() {
		if recover() != nil {
			fields = nil
		}
	}()
	return reporter.Fields()
}
