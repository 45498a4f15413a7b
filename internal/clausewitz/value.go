// Package clausewitz reads and writes the key=value tree format used by
// the game's save and design files.
package clausewitz

import (
	"errors"
	"strings"
)

var (
	// ErrNoValue is returned by Get when the key is absent.
	ErrNoValue = errors.New("no value for key")
	// ErrMultipleValues is returned by Get when the key appears more than once.
	ErrMultipleValues = errors.New("multiple values for key")
)

// Kind identifies what a Value holds.
type Kind uint8

const (
	KindString Kind = iota
	KindBool
	KindObject
)

// Value is a leaf string, a yes/no flag, or a nested object.
type Value struct {
	Kind Kind
	Str  string
	Bool bool
	Obj  Object
}

func StringValue(s string) Value { return Value{Kind: KindString, Str: s} }
func BoolValue(b bool) Value     { return Value{Kind: KindBool, Bool: b} }
func ObjectValue(o Object) Value { return Value{Kind: KindObject, Obj: o} }

// Entry is one line of an object: either `key=value` or a bare literal
// (Bare set, Key empty) such as the items of a civics list.
type Entry struct {
	Key   string
	Bare  bool
	Value Value
}

// Object is an ordered list of entries. Keys may repeat.
type Object []Entry

// Values returns every value stored under key, in order.
func (o Object) Values(key string) []Value {
	var out []Value
	for _, e := range o {
		if !e.Bare && e.Key == key {
			out = append(out, e.Value)
		}
	}
	return out
}

// Has reports whether key appears exactly once.
func (o Object) Has(key string) bool {
	return len(o.Values(key)) == 1
}

// Get returns the single value under key.
func (o Object) Get(key string) (Value, error) {
	vals := o.Values(key)
	switch len(vals) {
	case 0:
		return Value{}, ErrNoValue
	case 1:
		return vals[0], nil
	default:
		return Value{}, ErrMultipleValues
	}
}

// GetString returns the single string under key, or "" when there is none.
func (o Object) GetString(key string) string {
	v, err := o.Get(key)
	if err != nil || v.Kind != KindString {
		return ""
	}
	return v.Str
}

// GetObject returns the single nested object under key, or nil.
func (o Object) GetObject(key string) Object {
	v, err := o.Get(key)
	if err != nil || v.Kind != KindObject {
		return nil
	}
	return v.Obj
}

// Add appends key=v.
func (o *Object) Add(key string, v Value) {
	*o = append(*o, Entry{Key: key, Value: v})
}

// Remove drops every entry stored under key.
func (o *Object) Remove(key string) {
	kept := (*o)[:0]
	for _, e := range *o {
		if !e.Bare && e.Key == key {
			continue
		}
		kept = append(kept, e)
	}
	*o = kept
}

// Set replaces every entry under key with a single key=v at the end.
func (o *Object) Set(key string, v Value) {
	o.Remove(key)
	o.Add(key, v)
}

// requiredEmpireKeys must each appear exactly once in a usable empire design.
var requiredEmpireKeys = []string{
	"key",
	"origin",
	"empire_flag",
	"ruler",
	"civics",
	"spawn_enabled",
	"spawn_as_fallen",
}

// IsValidEmpire reports whether obj carries every field the game needs to
// spawn the design.
func IsValidEmpire(obj Object) bool {
	for _, key := range requiredEmpireKeys {
		if !obj.Has(key) {
			return false
		}
	}
	return true
}

// EthicTags returns the ethic values of an empire design in display form:
// "ethic_fanatic_xenophile" becomes "fanatic xenophile".
func EthicTags(obj Object) []string {
	tags := []string{}
	for _, v := range obj.Values("ethic") {
		if v.Kind != KindString {
			continue
		}
		tag := strings.ReplaceAll(v.Str, "ethic_", "")
		tags = append(tags, strings.ReplaceAll(tag, "_", " "))
	}
	return tags
}
