package mustache

import (
	"iter"
	"reflect"
	"strings"
)

// TruthyCheck is a custom truthiness predicate. It returns ok=false when it
// has no opinion about value.
type TruthyCheck func(value interface{}) (truthy bool, ok bool)

// EnumerationConverter turns a value into something Enumerate understands,
// e.g. a custom collection into a slice.
type EnumerationConverter func(value interface{}) interface{}

// IsTruthy applies checks in order, the first one with an opinion wins,
// then the built-in rules:
//
//	nil and nil pointers, maps, slices, funcs  false
//	bool                                       itself
//	string                                     "1" true, "0" false, "true"/"false" in any case,
//	                                           otherwise non-empty after trimming
//	slices, arrays, sequences, maps            true when they have an element
//	anything else                              true
//
// An iter.Seq is probed by pulling its first element. A sequence that can
// only be iterated once loses that element.
func IsTruthy(value interface{}, checks ...TruthyCheck) bool {
	for _, check := range checks {
		if truthy, ok := check(value); ok {
			return truthy
		}
	}
	return isTruthy(value)
}

func isTruthy(value interface{}) bool {
	if value == nil {
		return false
	}

	switch v := value.(type) {
	case bool:
		return v
	case string:
		return stringTruthy(v)
	case iter.Seq[interface{}]:
		return seqHasElement(v)
	case func(func(interface{}) bool):
		return seqHasElement(v)
	}

	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return false
		}
		return isTruthy(rv.Elem().Interface())
	case reflect.Func, reflect.Chan:
		return !rv.IsNil()
	case reflect.Bool:
		return rv.Bool()
	case reflect.String:
		return stringTruthy(rv.String())
	case reflect.Slice, reflect.Map:
		return !rv.IsNil() && rv.Len() > 0
	case reflect.Array:
		return rv.Len() > 0
	}
	return true
}

func stringTruthy(s string) bool {
	s = strings.TrimSpace(s)
	switch {
	case s == "1":
		return true
	case s == "0":
		return false
	case strings.EqualFold(s, "true"):
		return true
	case strings.EqualFold(s, "false"):
		return false
	}
	return s != ""
}

func seqHasElement(seq func(func(interface{}) bool)) bool {
	for range seq {
		return true
	}
	return false
}

// Enumerate returns an element sequence for slices, arrays and iter.Seq
// values. Strings and maps are not enumerable; a map section renders once
// with the map as its scope.
func Enumerate(value interface{}) (iter.Seq[interface{}], bool) {
	switch v := value.(type) {
	case nil, string:
		return nil, false
	case iter.Seq[interface{}]:
		return v, true
	case func(func(interface{}) bool):
		return v, true
	case []interface{}:
		return func(yield func(interface{}) bool) {
			for _, item := range v {
				if !yield(item) {
					return
				}
			}
		}, true
	}

	rv := reflect.ValueOf(value)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil, false
		}
		rv = rv.Elem()
	}
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		return func(yield func(interface{}) bool) {
			for i := 0; i < rv.Len(); i++ {
				if !yield(rv.Index(i).Interface()) {
					return
				}
			}
		}, true
	}
	return nil, false
}
