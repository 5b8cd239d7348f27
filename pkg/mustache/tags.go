package mustache

import (
	"container/list"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"
)

// DefaultDelimiterCacheSize is the number of delimiter pairs whose compiled
// matchers are kept by a new MatcherCache.
const DefaultDelimiterCacheSize = 4

// Pseudo sigils for the two untagged token kinds.
const (
	SigilName = "name"
	SigilText = "text"
)

// ErrReservedSigil is returned when registering one of the structural sigils.
var ErrReservedSigil = errors.New("sigil is reserved")

// structuralSigils drive block matching and delimiter switching and cannot be remapped.
var structuralSigils = []string{"/", "=", "{", "!"}

// TokenFactory builds an empty token shell for a tag. The parser fills in
// name, positions and children.
type TokenFactory func(sigil string, d Delimiters) *Token

func sectionFactory(_ string, d Delimiters) *Token {
	return &Token{Type: TokenSection, Delimiters: d}
}

func invertedSectionFactory(_ string, d Delimiters) *Token {
	return &Token{Type: TokenInvertedSection, Delimiters: d}
}

func partialFactory(_ string, _ Delimiters) *Token {
	return &Token{Type: TokenPartial}
}

func escapedFactory(_ string, _ Delimiters) *Token {
	return &Token{Type: TokenInterpolation, Escape: true}
}

func unescapedFactory(_ string, _ Delimiters) *Token {
	return &Token{Type: TokenInterpolation}
}

func commentFactory(_ string, _ Delimiters) *Token {
	return &Token{Type: TokenComment}
}

func delimiterFactory(_ string, _ Delimiters) *Token {
	return &Token{Type: TokenDelimiterChange}
}

func literalFactory(_ string, _ Delimiters) *Token {
	return &Token{Type: TokenLiteral}
}

// Matchers are the compiled expressions for one delimiter pair.
type Matchers struct {
	Delimiters Delimiters
	// Open matches the open tag and any whitespace after it.
	Open *regexp.Regexp
	// Close matches optional whitespace and the close tag.
	Close *regexp.Regexp
	// TripleClose matches optional whitespace, "}" and the close tag.
	TripleClose *regexp.Regexp
	// SetClose matches optional whitespace, "=" and the close tag.
	SetClose *regexp.Regexp
}

func compileMatchers(d Delimiters) *Matchers {
	open := regexp.QuoteMeta(d.Open)
	closeTag := regexp.QuoteMeta(d.Close)
	return &Matchers{
		Delimiters:  d,
		Open:        regexp.MustCompile(open + `\s*`),
		Close:       regexp.MustCompile(`\s*` + closeTag),
		TripleClose: regexp.MustCompile(`\s*\}` + closeTag),
		SetClose:    regexp.MustCompile(`\s*=` + closeTag),
	}
}

// MatcherCache keeps compiled Matchers for a bounded number of delimiter
// pairs. When full, the entry inserted first is evicted.
type MatcherCache struct {
	mu      sync.RWMutex
	entries map[string]*list.Element
	order   *list.List
	maxSize int
}

type matcherEntry struct {
	key      string
	matchers *Matchers
}

// NewMatcherCache creates a cache holding at most size pairs.
// A size of 0 or less disables caching.
func NewMatcherCache(size int) *MatcherCache {
	return &MatcherCache{
		entries: make(map[string]*list.Element),
		order:   list.New(),
		maxSize: size,
	}
}

// Get returns the matchers for d, compiling them on a miss.
func (c *MatcherCache) Get(d Delimiters) *Matchers {
	key := d.String()

	c.mu.RLock()
	el, ok := c.entries[key]
	c.mu.RUnlock()
	if ok {
		return el.Value.(*matcherEntry).matchers
	}

	m := compileMatchers(d)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.maxSize <= 0 {
		return m
	}
	if el, ok := c.entries[key]; ok {
		return el.Value.(*matcherEntry).matchers
	}
	c.evictLocked(c.maxSize - 1)
	c.entries[key] = c.order.PushBack(&matcherEntry{key: key, matchers: m})
	return m
}

// Resize changes the bound, evicting the oldest entries if needed.
func (c *MatcherCache) Resize(size int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.maxSize = size
	if size < 0 {
		size = 0
	}
	c.evictLocked(size)
}

// Size returns the configured bound.
func (c *MatcherCache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.maxSize
}

// Len returns the number of cached pairs.
func (c *MatcherCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.order.Len()
}

func (c *MatcherCache) evictLocked(keep int) {
	for c.order.Len() > keep {
		oldest := c.order.Front()
		if oldest == nil {
			return
		}
		delete(c.entries, oldest.Value.(*matcherEntry).key)
		c.order.Remove(oldest)
	}
}

// TagRegistry maps tag sigils to token factories and owns the matcher cache.
type TagRegistry struct {
	mu        sync.RWMutex
	factories map[string]TokenFactory
	sigils    *regexp.Regexp
	matchers  *MatcherCache
}

// NewTagRegistry creates a registry with the standard Mustache sigils.
// A nil cache gets a new one of DefaultDelimiterCacheSize.
func NewTagRegistry(matchers *MatcherCache) *TagRegistry {
	if matchers == nil {
		matchers = NewMatcherCache(DefaultDelimiterCacheSize)
	}
	r := &TagRegistry{
		factories: map[string]TokenFactory{
			"#":       sectionFactory,
			"^":       invertedSectionFactory,
			">":       partialFactory,
			"&":       unescapedFactory,
			"{":       unescapedFactory,
			"!":       commentFactory,
			"=":       delimiterFactory,
			SigilName: escapedFactory,
			SigilText: literalFactory,
		},
		matchers: matchers,
	}
	r.compileSigilsLocked()
	return r
}

var (
	defaultRegistryOnce sync.Once
	defaultRegistry     *TagRegistry
)

// DefaultTagRegistry returns the process-wide registry used when none is injected.
func DefaultTagRegistry() *TagRegistry {
	defaultRegistryOnce.Do(func() {
		defaultRegistry = NewTagRegistry(nil)
	})
	return defaultRegistry
}

// Register maps a one or two character sigil (or the "name"/"text"
// pseudo sigils) to a factory. The structural sigils / = { ! are refused.
func (r *TagRegistry) Register(sigil string, factory TokenFactory) error {
	if factory == nil {
		return fmt.Errorf("tag %q: factory cannot be nil", sigil)
	}
	for _, s := range structuralSigils {
		if sigil == s {
			return fmt.Errorf("tag %q: %w", sigil, ErrReservedSigil)
		}
	}
	if sigil != SigilName && sigil != SigilText {
		if n := len([]rune(sigil)); n < 1 || n > 2 {
			return fmt.Errorf("tag %q: sigil must be one or two characters", sigil)
		}
		if strings.TrimSpace(sigil) != sigil {
			return fmt.Errorf("tag %q: sigil cannot contain whitespace", sigil)
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[sigil] = factory
	r.compileSigilsLocked()
	return nil
}

// Alias makes sigil behave like an already registered sigil.
func (r *TagRegistry) Alias(sigil, existing string) error {
	factory, ok := r.Factory(existing)
	if !ok {
		return fmt.Errorf("tag %q: no sigil %q to alias", sigil, existing)
	}
	return r.Register(sigil, factory)
}

// Factory returns the factory registered for sigil.
func (r *TagRegistry) Factory(sigil string) (TokenFactory, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.factories[sigil]
	return f, ok
}

// NewToken builds a shell for sigil, falling back to an escaped interpolation.
func (r *TagRegistry) NewToken(sigil string, d Delimiters) *Token {
	if f, ok := r.Factory(sigil); ok {
		if tok := f(sigil, d); tok != nil {
			return tok
		}
	}
	return escapedFactory(sigil, d)
}

// SigilPattern matches any registered sigil at the scan position.
func (r *TagRegistry) SigilPattern() *regexp.Regexp {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sigils
}

// Matchers returns the compiled matchers for d from the registry's cache.
func (r *TagRegistry) Matchers(d Delimiters) *Matchers {
	return r.matchers.Get(d)
}

// MatcherCache exposes the delimiter cache, e.g. to resize it.
func (r *TagRegistry) MatcherCache() *MatcherCache {
	return r.matchers
}

func (r *TagRegistry) compileSigilsLocked() {
	seen := make(map[string]bool)
	var sigils []string
	add := func(s string) {
		if !seen[s] {
			seen[s] = true
			sigils = append(sigils, s)
		}
	}
	for _, s := range structuralSigils {
		add(s)
	}
	for s := range r.factories {
		if s != SigilName && s != SigilText {
			add(s)
		}
	}
	// Two character sigils must be tried before their one character prefixes.
	sort.Slice(sigils, func(i, j int) bool {
		if len(sigils[i]) != len(sigils[j]) {
			return len(sigils[i]) > len(sigils[j])
		}
		return sigils[i] < sigils[j]
	})
	quoted := make([]string, len(sigils))
	for i, s := range sigils {
		quoted[i] = regexp.QuoteMeta(s)
	}
	r.sigils = regexp.MustCompile(`^(?:` + strings.Join(quoted, "|") + `)`)
}
