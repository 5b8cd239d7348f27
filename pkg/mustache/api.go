package mustache

import (
	"io"
	"reflect"
)

// Engine parses and renders templates. It is safe for concurrent use once
// built; options are applied by NewWithOptions only.
type Engine struct {
	config    *Config
	cache     *TemplateCache
	tags      *TagRegistry
	members   *MemberCache
	settings  *ContextSettings
	escape    Escaper
	partials  TemplateLoader
	templates TemplateLoader

	truthyChecks []TruthyCheck
	getters      []getterRegistration
	enumerators  []enumeratorRegistration
}

type getterRegistration struct {
	typ    reflect.Type
	getter ValueGetter
}

type enumeratorRegistration struct {
	typ  reflect.Type
	conv EnumerationConverter
}

// New creates a new engine from the global configuration.
func New() *Engine {
	return NewWithOptions()
}

// NewWithConfig creates a new engine with a custom configuration. Unset
// fields take their defaults.
func NewWithConfig(config *Config) *Engine {
	return NewWithOptions(WithConfig(config))
}

// NewWithOptions creates a new engine with the specified options.
func NewWithOptions(opts ...Option) *Engine {
	engine := &Engine{
		config: GetGlobalConfig(),
		escape: HTMLEscape,
	}
	for _, opt := range opts {
		opt(engine)
	}
	engine.build()
	return engine
}

// build wires the collaborators that options did not supply.
func (e *Engine) build() {
	e.config = NewConfigWithDefaults(e.config)
	if err := e.config.Validate(); err != nil {
		GetLogger().WithField("error", err).Warn("Invalid engine configuration")
	}

	if e.tags == nil {
		e.tags = NewTagRegistry(NewMatcherCache(e.config.DelimiterCacheSize))
	}
	if e.cache == nil {
		e.cache = NewTemplateCacheWithConfig(CacheConfig{
			MaxSize: e.config.CacheMaxSize,
			TTL:     e.config.CacheTTL,
		})
	}
	if e.members == nil {
		e.members = DefaultMemberCache()
	}
	if e.escape == nil {
		e.escape = NoEscape
	}

	settings := e.config.contextSettings()
	settings.Getters = NewValueGetters(e.members)
	for _, g := range e.getters {
		settings.Getters.Register(g.typ, g.getter)
	}
	for _, check := range e.truthyChecks {
		settings.AddTruthyCheck(check)
	}
	for _, en := range e.enumerators {
		settings.AddEnumerationConverter(en.typ, en.conv)
	}
	e.settings = settings
}

// Parse returns the token tree for text, from the cache when possible.
func (e *Engine) Parse(text string) (*Template, error) {
	return e.parse(text, "", e.config.StartDelimiters)
}

func (e *Engine) parse(text, indent string, d Delimiters) (*Template, error) {
	return e.cache.GetOrParse(text, ParseOptions{
		Delimiters: d,
		Indent:     indent,
		Tags:       e.tags,
	})
}

// Render parses template and renders it against data. partials take
// precedence over the engine's partial loader and may be nil.
func (e *Engine) Render(template string, data interface{}, partials map[string]string) (string, error) {
	tmpl, err := e.Parse(template)
	if err != nil {
		return "", err
	}
	return e.RenderParsed(tmpl, data, partials)
}

// RenderParsed renders an already parsed template.
func (e *Engine) RenderParsed(tmpl *Template, data interface{}, partials map[string]string) (string, error) {
	buf := getBuffer()
	defer putBuffer(buf)
	if err := e.RenderTo(buf, tmpl, data, partials); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// RenderTo writes the rendering of tmpl to w. Output already written is not
// rolled back when rendering fails.
func (e *Engine) RenderTo(w io.Writer, tmpl *Template, data interface{}, partials map[string]string) error {
	logger := GetLogger()
	if logger.IsDebugMode() {
		logger.DebugTemplate(tmpl.Source, data)
	}

	state := e.newRenderState(partials)
	ctx := NewContext(data, e.settings)
	return state.render(w, tmpl, tmpl.Tokens, ctx)
}

// RenderTemplate loads the named template through the template loader and
// renders it.
func (e *Engine) RenderTemplate(name string, data interface{}, partials map[string]string) (string, error) {
	tmpl, err := e.loadTemplate(name)
	if err != nil {
		return "", err
	}
	return e.RenderParsed(tmpl, data, partials)
}

func (e *Engine) loadTemplate(name string) (*Template, error) {
	if e.templates == nil {
		return nil, &UnknownTemplateError{Name: name}
	}
	text, ok, err := e.templates.Load(name)
	if err != nil {
		return nil, WithContext(err, "load template", map[string]interface{}{"name": name})
	}
	if !ok {
		return nil, &UnknownTemplateError{Name: name}
	}
	tmpl, err := e.Parse(text)
	if err != nil {
		return nil, WithContext(err, "parse template", map[string]interface{}{"name": name})
	}
	return tmpl, nil
}

// Precompile loads and parses the named templates into the cache. Every
// name is tried; the failures are returned together.
func (e *Engine) Precompile(names ...string) error {
	errs := NewMultiError()
	for _, name := range names {
		if _, err := e.loadTemplate(name); err != nil {
			errs.Add(err)
		}
	}
	if errs.Len() > 0 {
		logger := GetLogger()
		logger.WithField("failed", errs.Len()).Warn("Precompile finished with errors")
	}
	return errs.Err()
}

// Config returns the engine's configuration.
func (e *Engine) Config() *Config {
	return e.config
}

// Cache returns the engine's template cache.
func (e *Engine) Cache() *TemplateCache {
	return e.cache
}

// Tags returns the engine's tag registry.
func (e *Engine) Tags() *TagRegistry {
	return e.tags
}

// SetDelimiterCacheSize resizes the compiled matcher cache.
func (e *Engine) SetDelimiterCacheSize(size int) {
	e.tags.MatcherCache().Resize(size)
}

// ClearCache removes all templates from the cache.
func (e *Engine) ClearCache() {
	if e.cache != nil {
		e.cache.Clear()
	}
}

// Option represents a configuration option for the engine.
type Option func(*Engine)

// WithConfig returns an option that sets the engine configuration.
func WithConfig(config *Config) Option {
	return func(e *Engine) {
		if config != nil {
			c := *config
			e.config = &c
		}
	}
}

// WithCache returns an option that sets the cache size (0 disables caching).
func WithCache(maxSize int) Option {
	return func(e *Engine) {
		e.config.CacheMaxSize = maxSize
	}
}

// WithDelimiters returns an option that sets the starting delimiters.
func WithDelimiters(d Delimiters) Option {
	return func(e *Engine) {
		e.config.StartDelimiters = d
	}
}

// WithStrict returns an option that makes unresolved names fail the render.
func WithStrict(strict bool) Option {
	return func(e *Engine) {
		e.config.ThrowOnDataMiss = strict
	}
}

// WithTruthyCheck returns an option that adds a truthiness predicate,
// consulted before the built-in rules in registration order.
func WithTruthyCheck(check TruthyCheck) Option {
	return func(e *Engine) {
		e.truthyChecks = append(e.truthyChecks, check)
	}
}

// WithValueGetter returns an option that adds a getter for values of type t.
func WithValueGetter(t reflect.Type, getter ValueGetter) Option {
	return func(e *Engine) {
		e.getters = append(e.getters, getterRegistration{typ: t, getter: getter})
	}
}

// WithEnumerationConverter returns an option that converts values of type t
// before they are used as section values.
func WithEnumerationConverter(t reflect.Type, conv EnumerationConverter) Option {
	return func(e *Engine) {
		e.enumerators = append(e.enumerators, enumeratorRegistration{typ: t, conv: conv})
	}
}

// WithEscaper returns an option that replaces HTML escaping. Nil disables escaping.
func WithEscaper(escape Escaper) Option {
	return func(e *Engine) {
		e.escape = escape
	}
}

// WithPartialLoader returns an option that sets where partials are loaded from.
func WithPartialLoader(loader TemplateLoader) Option {
	return func(e *Engine) {
		e.partials = loader
	}
}

// WithTemplateLoader returns an option that sets where named templates are loaded from.
func WithTemplateLoader(loader TemplateLoader) Option {
	return func(e *Engine) {
		e.templates = loader
	}
}

// WithTemplateCache returns an option that shares a template cache between engines.
func WithTemplateCache(cache *TemplateCache) Option {
	return func(e *Engine) {
		e.cache = cache
	}
}

// WithMemberCache returns an option that sets the reflection member cache.
func WithMemberCache(members *MemberCache) Option {
	return func(e *Engine) {
		e.members = members
	}
}

// WithTagRegistry returns an option that sets the tag registry, e.g. one with
// custom sigils.
func WithTagRegistry(tags *TagRegistry) Option {
	return func(e *Engine) {
		e.tags = tags
	}
}

// DefaultEngine is the engine used by the package level functions.
var DefaultEngine = New()

// Render renders template against data using the default engine.
func Render(template string, data interface{}) (string, error) {
	return DefaultEngine.Render(template, data, nil)
}

// RenderWithPartials renders template against data with the given partials
// using the default engine.
func RenderWithPartials(template string, data interface{}, partials map[string]string) (string, error) {
	return DefaultEngine.Render(template, data, partials)
}

// ClearCache clears the default engine's template cache.
func ClearCache() {
	DefaultEngine.ClearCache()
}
