package mustache

import (
	"bytes"
	"io"
	"sync"
)

var bufPool = sync.Pool{New: func() interface{} { return new(bytes.Buffer) }}

func getBuffer() *bytes.Buffer {
	buf := bufPool.Get().(*bytes.Buffer)
	buf.Reset()
	return buf
}

func putBuffer(buf *bytes.Buffer) {
	bufPool.Put(buf)
}

// renderState belongs to one Render call. depth counts the sections and
// partials currently entered and starts at zero for every call.
type renderState struct {
	engine   *Engine
	partials map[string]string
	depth    int
}

func (e *Engine) newRenderState(partials map[string]string) *renderState {
	return &renderState{engine: e, partials: partials}
}

func (s *renderState) enter() error {
	s.depth++
	if limit := s.engine.config.MaxRecursionDepth; s.depth > limit {
		logger := GetLogger()
		if logger.IsDebugMode() {
			logger.WithField("limit", limit).Debug("Recursion limit reached")
		}
		return &RecursionLimitError{Limit: limit}
	}
	return nil
}

func (s *renderState) leave() {
	s.depth--
}

func (s *renderState) render(w io.Writer, tmpl *Template, tokens []*Token, ctx *Context) error {
	for _, tok := range tokens {
		var err error
		switch tok.Type {
		case TokenLiteral:
			_, err = io.WriteString(w, tok.Value)
		case TokenInterpolation:
			err = s.renderInterpolation(w, tok, ctx)
		case TokenSection:
			err = s.renderSection(w, tmpl, tok, ctx)
		case TokenInvertedSection:
			err = s.renderInverted(w, tmpl, tok, ctx)
		case TokenPartial:
			err = s.renderPartial(w, tok, ctx)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *renderState) renderInterpolation(w io.Writer, tok *Token, ctx *Context) error {
	value, err := ctx.Lookup(tok.Name)
	if err != nil {
		return err
	}

	var text string
	switch fn := value.(type) {
	case func() string:
		text, err = s.renderLambdaResult(fn(), s.engine.config.StartDelimiters, ctx)
	case func() interface{}:
		text, err = s.renderLambdaResult(FormatValue(fn()), s.engine.config.StartDelimiters, ctx)
	default:
		text = FormatValue(value)
	}
	if err != nil {
		return err
	}

	if tok.Escape {
		text = s.engine.escape(text)
	}
	_, err = io.WriteString(w, text)
	return err
}

func (s *renderState) renderSection(w io.Writer, tmpl *Template, tok *Token, ctx *Context) error {
	value, err := ctx.SectionValue(tok.Name)
	if err != nil {
		return err
	}

	if lambda, ok := value.(func(string) string); ok {
		raw := ""
		if tok.End <= tok.SectionEnd && tok.SectionEnd <= len(tmpl.Source) {
			raw = tmpl.Source[tok.End:tok.SectionEnd]
		}
		text, err := s.renderLambdaResult(lambda(raw), tok.Delimiters, ctx)
		if err != nil {
			return err
		}
		_, err = io.WriteString(w, text)
		return err
	}

	if !ctx.IsTruthy(value) {
		return nil
	}

	if err := s.enter(); err != nil {
		return err
	}
	defer s.leave()

	if items, ok := ctx.Enumerate(value); ok {
		for item := range items {
			if err := s.render(w, tmpl, tok.Children, ctx.Push(item)); err != nil {
				return err
			}
		}
		return nil
	}

	return s.render(w, tmpl, tok.Children, ctx.Push(value))
}

func (s *renderState) renderInverted(w io.Writer, tmpl *Template, tok *Token, ctx *Context) error {
	value, err := ctx.SectionValue(tok.Name)
	if err != nil {
		return err
	}
	if ctx.IsTruthy(value) {
		return nil
	}

	if err := s.enter(); err != nil {
		return err
	}
	defer s.leave()
	return s.render(w, tmpl, tok.Children, ctx)
}

func (s *renderState) renderPartial(w io.Writer, tok *Token, ctx *Context) error {
	text, found, err := s.loadPartial(tok.Name)
	if err != nil {
		return err
	}
	if !found {
		logger := GetLogger()
		if logger.IsDebugMode() {
			logger.WithField("name", tok.Name).Debug("Partial not found, rendering empty")
		}
		return nil
	}

	if err := s.enter(); err != nil {
		return err
	}
	defer s.leave()

	partial, err := s.engine.parse(text, tok.LineIndent, s.engine.config.StartDelimiters)
	if err != nil {
		return WithContext(err, "parse partial", map[string]interface{}{"name": tok.Name})
	}
	return s.render(w, partial, partial.Tokens, ctx)
}

// loadPartial asks the per-call partials first, then the engine's loader.
func (s *renderState) loadPartial(name string) (string, bool, error) {
	if text, ok := s.partials[name]; ok {
		return text, true, nil
	}
	if s.engine.partials == nil {
		return "", false, nil
	}
	text, ok, err := s.engine.partials.Load(name)
	if err != nil {
		return "", false, WithContext(err, "load partial", map[string]interface{}{"name": name})
	}
	return text, ok, nil
}

// renderLambdaResult renders the text returned by a lambda as a template
// against the current scope.
func (s *renderState) renderLambdaResult(text string, d Delimiters, ctx *Context) (string, error) {
	tmpl, err := s.engine.parse(text, "", d)
	if err != nil {
		return "", err
	}

	buf := getBuffer()
	defer putBuffer(buf)
	if err := s.render(buf, tmpl, tmpl.Tokens, ctx); err != nil {
		return "", err
	}
	return buf.String(), nil
}
