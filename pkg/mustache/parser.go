package mustache

import (
	"regexp"
	"strings"

	"github.com/benjaminschreck/go-mustache/pkg/mustache/scanner"
)

// tokenBlockClose marks a {{/name}} tag in the flat token stream. It never
// appears in a finished tree.
const tokenBlockClose TokenType = -1

var tagWhitespace = regexp.MustCompile(`^\s+`)

// ParseOptions controls a single parse.
type ParseOptions struct {
	// Delimiters in effect at the start of the text. Zero means {{ }}.
	Delimiters Delimiters
	// Indent is prepended to every line. It is set when a
	// standalone partial is parsed for an indented reference.
	Indent string
	// Tags is the sigil registry. Nil means DefaultTagRegistry().
	Tags *TagRegistry
}

// Template is a parsed token tree together with the text it came from.
// It is never modified after parsing and may be rendered concurrently.
type Template struct {
	Source     string
	Delimiters Delimiters
	Indent     string
	Tokens     []*Token
}

// Parse parses text with the default delimiters.
func Parse(text string) (*Template, error) {
	return ParseWithOptions(text, ParseOptions{})
}

// ParseWithOptions parses text into a token tree. Any syntax error aborts the
// parse and no partial tree is returned.
func ParseWithOptions(text string, opts ParseOptions) (*Template, error) {
	if opts.Delimiters == (Delimiters{}) {
		opts.Delimiters = DefaultDelimiters
	}
	if err := opts.Delimiters.Validate(); err != nil {
		return nil, err
	}
	if opts.Tags == nil {
		opts.Tags = DefaultTagRegistry()
	}

	logger := GetLogger()
	if logger.IsDebugMode() {
		logger.WithFields(Fields{
			"input_length": len(text),
			"delimiters":   opts.Delimiters.String(),
		}).Debug("Starting parse")
	}

	p := newParser(text, opts)
	tokens, err := p.parse()
	if err != nil {
		if logger.IsDebugMode() {
			logger.WithField("error", err).Debug("Parse failed")
		}
		return nil, err
	}

	if logger.IsDebugMode() {
		logger.WithField("token_count", len(tokens)).Debug("Parse complete")
	}

	return &Template{
		Source:     text,
		Delimiters: opts.Delimiters,
		Indent:     opts.Indent,
		Tokens:     tokens,
	}, nil
}

type parser struct {
	s      *scanner.Scanner
	tags   *TagRegistry
	delims Delimiters
	m      *Matchers
	indent string

	out []*Token

	// Tokens of the current physical line, held back until the line ends so
	// that standalone tags can drop the whitespace around them.
	line           []*Token
	lineHasTag     bool
	lineHasContent bool
	atLineStart    bool

	open []*Token
}

func newParser(text string, opts ParseOptions) *parser {
	return &parser{
		s:           scanner.New(text),
		tags:        opts.Tags,
		delims:      opts.Delimiters,
		m:           opts.Tags.Matchers(opts.Delimiters),
		indent:      opts.Indent,
		atLineStart: true,
	}
}

func (p *parser) parse() ([]*Token, error) {
	for !p.s.AtEnd() {
		start := p.s.Pos()
		if text := p.s.ScanUntil(p.m.Open); text != "" {
			p.addText(text, start)
		}
		if p.s.AtEnd() {
			break
		}
		if err := p.parseTag(); err != nil {
			return nil, err
		}
	}
	p.flushLine()

	if n := len(p.open); n > 0 {
		return nil, newParseError(UnclosedBlock, p.open[n-1].Name, p.s.Pos())
	}

	return nest(squish(p.out)), nil
}

// parseTag consumes one tag starting at the open delimiter.
func (p *parser) parseTag() error {
	tagStart := p.s.Pos()
	p.s.Scan(p.m.Open)

	sigil := p.s.Scan(p.tags.SigilPattern())
	if sigil != "" {
		p.s.Scan(tagWhitespace)
	}

	switch sigil {
	case "/":
		name, err := p.scanTagBody(p.m.Close)
		if err != nil {
			return err
		}
		return p.closeBlock(name, tagStart)

	case "=":
		body, err := p.scanTagBody(p.m.SetClose)
		if err != nil {
			return err
		}
		d, err := ParseDelimiters(body)
		if err != nil {
			return &ParseError{Kind: InvalidDelimiters, Position: tagStart}
		}
		tok := p.tags.NewToken(sigil, p.delims)
		tok.Delimiters = d
		p.addTag(tok, tagStart)
		p.setDelimiters(d)
		return nil

	case "!":
		body := p.s.ScanUntilString(p.delims.Close)
		if p.s.ScanString(p.delims.Close) == "" {
			return newParseError(UnclosedTag, "", p.s.Pos())
		}
		tok := p.tags.NewToken(sigil, p.delims)
		tok.Value = body
		p.addTag(tok, tagStart)
		return nil

	case "{":
		name, err := p.scanTagBody(p.m.TripleClose)
		if err != nil {
			return err
		}
		tok := p.tags.NewToken(sigil, p.delims)
		tok.Name = name
		p.addTag(tok, tagStart)
		return nil
	}

	if sigil == "" {
		sigil = SigilName
	}
	tok := p.tags.NewToken(sigil, p.delims)
	body, err := p.scanTagBody(p.m.Close)
	if err != nil {
		return err
	}

	switch tok.Type {
	case TokenLiteral:
		tok.Value = body
		tok.IsWhitespace = strings.TrimSpace(body) == ""
	case TokenComment:
		tok.Value = body
	case TokenDelimiterChange:
		d, err := ParseDelimiters(strings.TrimSuffix(body, "="))
		if err != nil {
			return &ParseError{Kind: InvalidDelimiters, Position: tagStart}
		}
		tok.Delimiters = d
		p.addTag(tok, tagStart)
		p.setDelimiters(d)
		return nil
	default:
		tok.Name = body
	}

	p.addTag(tok, tagStart)
	if tok.IsBlock() {
		p.open = append(p.open, tok)
	}
	return nil
}

// scanTagBody returns the trimmed text up to closer and consumes closer.
func (p *parser) scanTagBody(closer *regexp.Regexp) (string, error) {
	body := p.s.ScanUntil(closer)
	if p.s.Scan(closer) == "" {
		return "", newParseError(UnclosedTag, "", p.s.Pos())
	}
	return strings.TrimSpace(body), nil
}

func (p *parser) closeBlock(name string, tagStart int) error {
	n := len(p.open)
	if n == 0 {
		return newParseError(UnopenedBlock, name, tagStart)
	}
	if top := p.open[n-1]; top.Name != name {
		return &ParseError{
			Kind:     MismatchedBlockClose,
			Name:     name,
			Expected: top.Name,
			Position: tagStart,
		}
	}
	p.open = p.open[:n-1]
	p.addTag(&Token{Type: tokenBlockClose, Name: name}, tagStart)
	return nil
}

func (p *parser) setDelimiters(d Delimiters) {
	p.delims = d
	p.m = p.tags.Matchers(d)
}

// addText splits literal text into per-line fragments.
func (p *parser) addText(text string, start int) {
	for text != "" {
		piece := text
		if i := strings.IndexByte(text, '\n'); i >= 0 {
			piece = text[:i+1]
		}
		p.beginLine(start)
		tok := &Token{
			Type:         TokenLiteral,
			Start:        start,
			End:          start + len(piece),
			Value:        piece,
			IsWhitespace: strings.TrimSpace(piece) == "",
		}
		if !tok.IsWhitespace {
			p.lineHasContent = true
		}
		p.line = append(p.line, tok)

		start += len(piece)
		text = text[len(piece):]
		if strings.HasSuffix(piece, "\n") {
			p.flushLine()
		}
	}
}

// addTag records a tag that ends at the scanner position. Interpolations count
// as line content, every other tag may be standalone.
func (p *parser) addTag(tok *Token, start int) {
	p.beginLine(start)
	tok.Start = start
	tok.End = p.s.Pos()
	if tok.Type == TokenInterpolation {
		p.lineHasContent = true
	} else {
		p.lineHasTag = true
	}
	p.line = append(p.line, tok)
}

// beginLine emits the partial indent before the first token of a line.
func (p *parser) beginLine(pos int) {
	if !p.atLineStart {
		return
	}
	p.atLineStart = false
	if p.indent != "" {
		p.line = append(p.line, &Token{
			Type:         TokenLiteral,
			Start:        pos,
			End:          pos,
			Value:        p.indent,
			IsWhitespace: true,
		})
	}
}

// flushLine moves the pending line to the output. A line holding only
// whitespace and non-interpolation tags is standalone: its literals are
// dropped and its leading whitespace becomes the tags' indent.
func (p *parser) flushLine() {
	if p.lineHasTag && !p.lineHasContent {
		var lead strings.Builder
		for _, t := range p.line {
			if t.Type != TokenLiteral {
				break
			}
			lead.WriteString(t.Value)
		}
		indent := lead.String()
		for _, t := range p.line {
			if t.Type == TokenLiteral {
				continue
			}
			t.Indent = indent
			if t.Type == TokenPartial {
				t.LineIndent = indent
			}
			p.out = append(p.out, t)
		}
	} else {
		p.out = append(p.out, p.line...)
	}

	p.line = p.line[:0]
	p.lineHasTag = false
	p.lineHasContent = false
	p.atLineStart = true
}

// squish merges neighbouring literals that belong to the same physical line.
func squish(tokens []*Token) []*Token {
	out := make([]*Token, 0, len(tokens))
	for _, t := range tokens {
		if t.Type == TokenLiteral && len(out) > 0 {
			prev := out[len(out)-1]
			if prev.Type == TokenLiteral && prev.End == t.Start && !strings.HasSuffix(prev.Value, "\n") {
				prev.Value += t.Value
				prev.End = t.End
				prev.IsWhitespace = prev.IsWhitespace && t.IsWhitespace
				continue
			}
		}
		out = append(out, t)
	}
	return out
}

// nest turns the flat stream into a tree, recording where each section closes.
func nest(tokens []*Token) []*Token {
	root := make([]*Token, 0, len(tokens))
	var stack []*Token

	appendTo := func(t *Token) {
		if n := len(stack); n > 0 {
			stack[n-1].Children = append(stack[n-1].Children, t)
			return
		}
		root = append(root, t)
	}

	for _, t := range tokens {
		if t.Type == tokenBlockClose {
			n := len(stack)
			stack[n-1].SectionEnd = t.Start
			stack = stack[:n-1]
			continue
		}
		appendTo(t)
		if t.IsBlock() {
			stack = append(stack, t)
		}
	}
	return root
}
