package mustache

import (
	"reflect"
	"strconv"
	"strings"
	"sync"
)

// ValueGetter resolves a single key against a value. A false second result is a miss.
type ValueGetter func(value interface{}, key string, ignoreCase bool) (interface{}, bool)

// MemberGetter lets a type resolve its own members without reflection.
type MemberGetter interface {
	GetMember(name string) (interface{}, bool)
}

var memberGetterType = reflect.TypeOf((*MemberGetter)(nil)).Elem()

type getterEntry struct {
	typ    reflect.Type
	getter ValueGetter
}

func (e getterEntry) matches(t reflect.Type) bool {
	if e.typ == t {
		return true
	}
	return e.typ.Kind() == reflect.Interface && t.Implements(e.typ)
}

// ValueGetters is the ordered list of getters consulted for one lookup step.
// Getters registered for a concrete type come first, then getters for
// interfaces, then the built-ins: MemberGetter, sequences by index, maps with
// string keys and finally exported fields and methods. Getters are tried in
// that order until one hits.
type ValueGetters struct {
	mu         sync.RWMutex
	exact      []getterEntry
	assignable []getterEntry
	members    *MemberCache
}

// NewValueGetters creates a getter list backed by the given member cache.
// A nil cache means DefaultMemberCache().
func NewValueGetters(members *MemberCache) *ValueGetters {
	if members == nil {
		members = DefaultMemberCache()
	}
	return &ValueGetters{members: members}
}

// Register adds a getter for values of type t. When t is an interface the
// getter applies to every type implementing it.
func (g *ValueGetters) Register(t reflect.Type, getter ValueGetter) {
	if t == nil || getter == nil {
		return
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	entry := getterEntry{typ: t, getter: getter}
	if t.Kind() == reflect.Interface {
		g.assignable = append(g.assignable, entry)
		return
	}
	g.exact = append(g.exact, entry)
}

// Members returns the reflection cache used by the object fallback.
func (g *ValueGetters) Members() *MemberCache {
	return g.members
}

// Get resolves key against value.
func (g *ValueGetters) Get(value interface{}, key string, ignoreCase bool) (interface{}, bool) {
	if value == nil {
		return nil, false
	}
	rv := reflect.ValueOf(value)
	t := rv.Type()

	g.mu.RLock()
	custom := make([]getterEntry, 0, len(g.exact)+len(g.assignable))
	custom = append(custom, g.exact...)
	custom = append(custom, g.assignable...)
	g.mu.RUnlock()

	for _, e := range custom {
		if !e.matches(t) {
			continue
		}
		if v, ok := e.getter(value, key, ignoreCase); ok {
			return v, true
		}
	}

	if t.Implements(memberGetterType) {
		if v, ok := value.(MemberGetter).GetMember(key); ok {
			return v, true
		}
	}

	base := rv
	for base.Kind() == reflect.Pointer || base.Kind() == reflect.Interface {
		if base.IsNil() {
			return nil, false
		}
		base = base.Elem()
	}

	switch base.Kind() {
	case reflect.Slice, reflect.Array:
		if v, ok := sequenceGet(base, key); ok {
			return v, true
		}
	case reflect.Map:
		if v, ok := mapGet(base, key, ignoreCase); ok {
			return v, true
		}
	}

	return g.members.Lookup(rv, key, ignoreCase)
}

// sequenceGet reads element key of a slice or array when key is a
// non-negative integer in range.
func sequenceGet(seq reflect.Value, key string) (interface{}, bool) {
	idx, err := strconv.Atoi(key)
	if err != nil || idx < 0 || idx >= seq.Len() {
		return nil, false
	}
	return seq.Index(idx).Interface(), true
}

// mapGet reads a map whose key kind is string.
func mapGet(m reflect.Value, key string, ignoreCase bool) (interface{}, bool) {
	keyType := m.Type().Key()
	if keyType.Kind() != reflect.String {
		return nil, false
	}
	if m.IsNil() {
		return nil, false
	}

	if v := m.MapIndex(reflect.ValueOf(key).Convert(keyType)); v.IsValid() {
		return v.Interface(), true
	}
	if !ignoreCase {
		return nil, false
	}

	iter := m.MapRange()
	for iter.Next() {
		if strings.EqualFold(iter.Key().String(), key) {
			return iter.Value().Interface(), true
		}
	}
	return nil, false
}
