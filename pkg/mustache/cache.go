package mustache

import (
	"container/list"
	"sync"
	"time"
)

// CacheConfig contains configuration options for the template cache
type CacheConfig struct {
	// MaxSize is the maximum number of templates to cache. 0 disables caching.
	MaxSize int
	// TTL is the time-to-live for cached templates. 0 means no expiration.
	TTL time.Duration
}

// TemplateCache keeps parsed templates keyed by their text, starting
// delimiters and indent. When full, the entry inserted first is evicted;
// hits do not refresh an entry's position.
type TemplateCache struct {
	mu     sync.RWMutex
	cache  map[string]*cacheEntry
	order  *list.List
	config CacheConfig
}

type cacheEntry struct {
	key      string
	template *Template
	expiry   time.Time
	element  *list.Element
}

// NewTemplateCache creates a new template cache sized from the global configuration
func NewTemplateCache() *TemplateCache {
	config := GetGlobalConfig()
	return NewTemplateCacheWithConfig(CacheConfig{
		MaxSize: config.CacheMaxSize,
		TTL:     config.CacheTTL,
	})
}

// NewTemplateCacheWithConfig creates a new template cache with the given configuration
func NewTemplateCacheWithConfig(config CacheConfig) *TemplateCache {
	return &TemplateCache{
		cache:  make(map[string]*cacheEntry),
		order:  list.New(),
		config: config,
	}
}

// CacheKey identifies a parse of text that starts with delimiters d and is
// indented by indent.
func CacheKey(text string, d Delimiters, indent string) string {
	return d.String() + "\x00" + indent + "\x00" + text
}

// GetOrParse returns the cached parse of text under opts or parses and
// caches it. Parse errors are returned and never cached.
func (tc *TemplateCache) GetOrParse(text string, opts ParseOptions) (*Template, error) {
	if opts.Delimiters == (Delimiters{}) {
		opts.Delimiters = DefaultDelimiters
	}
	key := CacheKey(text, opts.Delimiters, opts.Indent)

	if tmpl, ok := tc.Get(key); ok {
		return tmpl, nil
	}

	tmpl, err := ParseWithOptions(text, opts)
	if err != nil {
		return nil, err
	}

	tc.Set(key, tmpl)
	return tmpl, nil
}

// Get retrieves a template from cache without parsing a new one
func (tc *TemplateCache) Get(key string) (*Template, bool) {
	tc.mu.RLock()
	entry, exists := tc.cache[key]
	var (
		template *Template
		expiry   time.Time
	)
	if exists {
		template, expiry = entry.template, entry.expiry
	}
	tc.mu.RUnlock()

	if !exists {
		return nil, false
	}

	if tc.config.TTL > 0 && time.Now().After(expiry) {
		tc.Remove(key)
		return nil, false
	}

	return template, true
}

// Set adds a template to the cache
func (tc *TemplateCache) Set(key string, template *Template) {
	if tc.config.MaxSize <= 0 || template == nil {
		return
	}

	tc.mu.Lock()
	defer tc.mu.Unlock()

	expiry := time.Time{}
	if tc.config.TTL > 0 {
		expiry = time.Now().Add(tc.config.TTL)
	}

	// A racing parse of the same key produced an equal template.
	if existing, exists := tc.cache[key]; exists {
		existing.template = template
		existing.expiry = expiry
		return
	}

	for tc.order.Len() >= tc.config.MaxSize {
		oldest := tc.order.Front()
		if oldest == nil {
			break
		}
		oldEntry := oldest.Value.(*cacheEntry)
		delete(tc.cache, oldEntry.key)
		tc.order.Remove(oldest)

		logger := GetLogger()
		if logger.IsDebugMode() {
			logger.WithField("size", tc.order.Len()).Debug("Evicted cached template")
		}
	}

	entry := &cacheEntry{
		key:      key,
		template: template,
		expiry:   expiry,
	}
	entry.element = tc.order.PushBack(entry)
	tc.cache[key] = entry
}

// Remove removes a template from the cache
func (tc *TemplateCache) Remove(key string) {
	tc.mu.Lock()
	defer tc.mu.Unlock()

	entry, exists := tc.cache[key]
	if !exists {
		return
	}

	delete(tc.cache, key)
	tc.order.Remove(entry.element)
}

// Clear removes all templates from the cache
func (tc *TemplateCache) Clear() {
	tc.mu.Lock()
	defer tc.mu.Unlock()

	tc.cache = make(map[string]*cacheEntry)
	tc.order = list.New()
}

// Size returns the current number of cached templates
func (tc *TemplateCache) Size() int {
	tc.mu.RLock()
	defer tc.mu.RUnlock()
	return len(tc.cache)
}

// Config returns the cache bounds.
func (tc *TemplateCache) Config() CacheConfig {
	return tc.config
}
