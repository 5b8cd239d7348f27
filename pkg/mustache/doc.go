// Package mustache implements Mustache text templates.
//
// A template string is parsed once into a tree of tokens and rendered any
// number of times against Go data: maps with string keys, structs (exported
// fields and zero-argument methods), slices, arrays and iter.Seq values.
//
// # Quick Start
//
//	out, err := mustache.Render("Hello {{name}}!", map[string]interface{}{
//	    "name": "World",
//	})
//
// Engines carry configuration and caches:
//
//	engine := mustache.NewWithOptions(
//	    mustache.WithStrict(true),
//	    mustache.WithPartialLoader(mustache.NewFileLoader("templates", ".mustache")),
//	)
//	out, err := engine.Render("{{> header}}{{#items}}- {{name}}\n{{/items}}", data, nil)
//
// # Template Syntax
//
//	{{name}}            escaped interpolation
//	{{{name}}} {{&name}} unescaped interpolation
//	{{a.b.c}}           dotted name
//	{{.}}               the current scope
//	{{#name}}..{{/name}} section
//	{{^name}}..{{/name}} inverted section
//	{{> name}}          partial
//	{{! text }}         comment
//	{{=<% %>=}}         change delimiters
//
// A line holding nothing but whitespace and one or more section, partial,
// comment or delimiter tags is standalone: the whitespace and the line
// break are removed from the output. A standalone partial indents every
// line of its text by the whitespace that preceded it.
//
// # Lookup
//
// A plain name is looked up in the current scope and then in each enclosing
// scope. For a dotted name only the first part is looked up that way; the
// rest are read from the value found, and a miss anywhere yields nothing.
// Config.SkipRecursiveLookup restricts lookups to the current scope,
// Config.ThrowOnDataMiss turns misses into *DataMissError and
// Config.IgnoreCaseOnKeyLookup compares keys without regard to case.
//
// # Configuration
//
// The global configuration is read from MUSTACHE_* environment variables at
// start up, see ConfigFromEnvironment.
package mustache
