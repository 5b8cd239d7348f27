package mustache

import (
	"reflect"
	"strings"
	"sync"
)

var errorType = reflect.TypeOf((*error)(nil)).Elem()

type memberAccessor func(v reflect.Value) (interface{}, bool)

type memberTable struct {
	exact  map[string]memberAccessor
	folded map[string]memberAccessor
}

// MemberCache holds, per concrete type, the table of exported fields and
// zero-argument methods that templates may read. A table is built on first
// use and shared by all renders.
type MemberCache struct {
	mu     sync.RWMutex
	tables map[reflect.Type]*memberTable
}

// NewMemberCache creates an empty cache.
func NewMemberCache() *MemberCache {
	return &MemberCache{
		tables: make(map[reflect.Type]*memberTable),
	}
}

var (
	defaultMemberCacheOnce sync.Once
	defaultMemberCache     *MemberCache
)

// DefaultMemberCache returns the process-wide cache used when none is injected.
func DefaultMemberCache() *MemberCache {
	defaultMemberCacheOnce.Do(func() {
		defaultMemberCache = NewMemberCache()
	})
	return defaultMemberCache
}

// Lookup reads the member called name from v.
func (c *MemberCache) Lookup(v reflect.Value, name string, ignoreCase bool) (interface{}, bool) {
	if !v.IsValid() {
		return nil, false
	}
	table := c.table(v.Type())
	acc, ok := table.exact[name]
	if !ok && ignoreCase {
		acc, ok = table.folded[strings.ToLower(name)]
	}
	if !ok {
		return nil, false
	}
	return acc(v)
}

// Len returns the number of types with a built table.
func (c *MemberCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.tables)
}

func (c *MemberCache) table(t reflect.Type) *memberTable {
	c.mu.RLock()
	table, ok := c.tables[t]
	c.mu.RUnlock()
	if ok {
		return table
	}

	// Two goroutines may build the same table; both results are equal.
	table = buildMemberTable(t)
	c.mu.Lock()
	c.tables[t] = table
	c.mu.Unlock()
	return table
}

func buildMemberTable(t reflect.Type) *memberTable {
	table := &memberTable{
		exact:  make(map[string]memberAccessor),
		folded: make(map[string]memberAccessor),
	}
	add := func(name string, acc memberAccessor) {
		table.exact[name] = acc
		lower := strings.ToLower(name)
		if _, taken := table.folded[lower]; !taken {
			table.folded[lower] = acc
		}
	}

	st := t
	if st.Kind() == reflect.Pointer {
		st = st.Elem()
	}
	if st.Kind() == reflect.Struct {
		for _, f := range reflect.VisibleFields(st) {
			if !f.IsExported() {
				continue
			}
			add(f.Name, fieldAccessor(f.Index))
		}
	}

	// Methods win over promoted fields of the same name.
	for i := 0; i < t.NumMethod(); i++ {
		m := t.Method(i)
		if !m.IsExported() || !isGetterMethod(m.Type) {
			continue
		}
		add(m.Name, methodAccessor(i))
	}

	return table
}

// isGetterMethod accepts func(recv) T and func(recv) (T, error).
func isGetterMethod(mt reflect.Type) bool {
	if mt.NumIn() != 1 || mt.IsVariadic() {
		return false
	}
	switch mt.NumOut() {
	case 1:
		return true
	case 2:
		return mt.Out(1) == errorType
	default:
		return false
	}
}

func fieldAccessor(index []int) memberAccessor {
	return func(v reflect.Value) (interface{}, bool) {
		if v.Kind() == reflect.Pointer {
			if v.IsNil() {
				return nil, false
			}
			v = v.Elem()
		}
		fv, err := v.FieldByIndexErr(index)
		if err != nil {
			return nil, false
		}
		return fv.Interface(), true
	}
}

func methodAccessor(i int) memberAccessor {
	return func(v reflect.Value) (result interface{}, ok bool) {
		defer func() {
			if r := recover(); r != nil {
				GetLogger().WithField("panic", r).Warn("member method panicked")
				result, ok = nil, false
			}
		}()
		out := v.Method(i).Call(nil)
		if len(out) == 2 && !out[1].IsNil() {
			return nil, false
		}
		return out[0].Interface(), true
	}
}
