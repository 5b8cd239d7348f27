package mustache

import (
	"iter"
	"reflect"
	"strings"
	"sync"
)

// ContextSettings are the lookup rules shared by every scope of a render.
type ContextSettings struct {
	// IgnoreCase makes map key and member lookups case-insensitive.
	IgnoreCase bool
	// SkipRecursiveLookup stops plain names from falling back to parent scopes.
	SkipRecursiveLookup bool
	// ThrowOnDataMiss turns misses into *DataMissError.
	ThrowOnDataMiss bool

	Getters      *ValueGetters
	TruthyChecks []TruthyCheck

	mu          sync.RWMutex
	enumerators map[reflect.Type]EnumerationConverter
}

// NewContextSettings returns settings with the default getters.
func NewContextSettings() *ContextSettings {
	return &ContextSettings{
		Getters:     NewValueGetters(nil),
		enumerators: make(map[reflect.Type]EnumerationConverter),
	}
}

// AddTruthyCheck appends a custom truthiness predicate.
func (s *ContextSettings) AddTruthyCheck(check TruthyCheck) {
	if check != nil {
		s.TruthyChecks = append(s.TruthyChecks, check)
	}
}

// AddEnumerationConverter registers a converter for values of type t.
func (s *ContextSettings) AddEnumerationConverter(t reflect.Type, conv EnumerationConverter) {
	if t == nil || conv == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.enumerators == nil {
		s.enumerators = make(map[reflect.Type]EnumerationConverter)
	}
	s.enumerators[t] = conv
}

// convert applies the enumeration converter registered for value's type.
func (s *ContextSettings) convert(value interface{}) interface{} {
	if value == nil {
		return nil
	}
	s.mu.RLock()
	conv, ok := s.enumerators[reflect.TypeOf(value)]
	s.mu.RUnlock()
	if !ok {
		return value
	}
	return conv(value)
}

func (s *ContextSettings) get(value interface{}, key string) (interface{}, bool) {
	getters := s.Getters
	if getters == nil {
		getters = NewValueGetters(nil)
	}
	return getters.Get(value, key, s.IgnoreCase)
}

type lookupResult struct {
	value interface{}
	found bool
}

// Context is one scope of the data chain. A render owns its contexts; they
// must not be shared between goroutines.
type Context struct {
	value    interface{}
	parent   *Context
	settings *ContextSettings
	cache    map[string]lookupResult
}

// NewContext creates a root scope. Nil settings means NewContextSettings().
func NewContext(value interface{}, settings *ContextSettings) *Context {
	if settings == nil {
		settings = NewContextSettings()
	}
	return &Context{
		value:    settings.convert(value),
		settings: settings,
	}
}

// Push returns a child scope for value.
func (c *Context) Push(value interface{}) *Context {
	return &Context{
		value:    c.settings.convert(value),
		parent:   c,
		settings: c.settings,
	}
}

// Parent returns the enclosing scope, nil for the root.
func (c *Context) Parent() *Context { return c.parent }

// Value returns this scope's own value, what {{.}} renders.
func (c *Context) Value() interface{} { return c.value }

// Settings returns the lookup rules of the chain.
func (c *Context) Settings() *ContextSettings { return c.settings }

// Resolve looks name up and reports whether it was found.
//
// A plain name is tried against this scope and then each parent in turn,
// unless SkipRecursiveLookup is set. In a dotted name only the first segment
// takes part in that walk; each further segment is read from the previous
// segment's value and a miss anywhere misses the whole name.
func (c *Context) Resolve(name string) (interface{}, bool) {
	if name == "." {
		return c.value, true
	}
	if r, ok := c.cache[name]; ok {
		return r.value, r.found
	}

	var value interface{}
	var found bool
	if i := strings.IndexByte(name, '.'); i > 0 {
		segments := strings.Split(name, ".")
		value, found = c.resolveFirst(segments[0])
		for _, seg := range segments[1:] {
			if !found {
				break
			}
			value, found = c.settings.get(value, seg)
		}
	} else {
		value, found = c.resolveFirst(name)
	}
	if !found {
		value = nil
	}

	if c.cache == nil {
		c.cache = make(map[string]lookupResult)
	}
	c.cache[name] = lookupResult{value: value, found: found}
	return value, found
}

func (c *Context) resolveFirst(name string) (interface{}, bool) {
	for ctx := c; ctx != nil; ctx = ctx.parent {
		if v, ok := c.settings.get(ctx.value, name); ok {
			return v, true
		}
		if c.settings.SkipRecursiveLookup {
			break
		}
	}
	return nil, false
}

// Lookup resolves name. A miss yields nil, or a *DataMissError when
// ThrowOnDataMiss is set.
func (c *Context) Lookup(name string) (interface{}, error) {
	value, found := c.Resolve(name)
	if !found && c.settings.ThrowOnDataMiss {
		logger := GetLogger()
		if logger.IsDebugMode() {
			logger.WithField("name", name).Debug("Data miss")
		}
		return nil, &DataMissError{Name: name, SkipRecursiveLookup: c.settings.SkipRecursiveLookup}
	}
	return value, nil
}

// SectionValue is Lookup with the enumeration converters applied, which is
// what a section iterates over.
func (c *Context) SectionValue(name string) (interface{}, error) {
	value, err := c.Lookup(name)
	if err != nil {
		return nil, err
	}
	return c.settings.convert(value), nil
}

// IsTruthy applies the chain's truthy checks and the built-in rules.
func (c *Context) IsTruthy(value interface{}) bool {
	return IsTruthy(value, c.settings.TruthyChecks...)
}

// Enumerate returns the elements of value if it is a sequence.
func (c *Context) Enumerate(value interface{}) (iter.Seq[interface{}], bool) {
	return Enumerate(value)
}
