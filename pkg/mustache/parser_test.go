package mustache

import (
	"errors"
	"reflect"
	"strings"
	"testing"
)

func summarize(tokens []*Token) string {
	parts := make([]string, len(tokens))
	for i, t := range tokens {
		parts[i] = t.String()
	}
	return strings.Join(parts, " ")
}

func TestParse(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "plain text",
			input:    "Hello World",
			expected: `Literal("Hello World")`,
		},
		{
			name:     "interpolation",
			input:    "Hello {{name}}!",
			expected: `Literal("Hello ") Interpolation(name) Literal("!")`,
		},
		{
			name:     "whitespace inside tag",
			input:    "{{  name  }}",
			expected: `Interpolation(name)`,
		},
		{
			name:     "dotted name",
			input:    "{{a.b.c}}",
			expected: `Interpolation(a.b.c)`,
		},
		{
			name:     "triple mustache",
			input:    "{{{name}}}",
			expected: `Interpolation(&name)`,
		},
		{
			name:     "ampersand",
			input:    "{{& name }}",
			expected: `Interpolation(&name)`,
		},
		{
			name:     "section",
			input:    "{{#a}}x{{/a}}",
			expected: `Section(a)[Literal("x")]`,
		},
		{
			name:     "inverted section",
			input:    "{{^a}}x{{/a}}",
			expected: `InvertedSection(a)[Literal("x")]`,
		},
		{
			name:     "nested sections",
			input:    "{{#a}}{{#b}}{{c}}{{/b}}{{/a}}",
			expected: `Section(a)[Section(b)[Interpolation(c)]]`,
		},
		{
			name:     "partial",
			input:    "{{> user }}",
			expected: `Partial(user)`,
		},
		{
			name:     "comment",
			input:    "{{! hi }}",
			expected: `Comment("hi ")`,
		},
		{
			name:     "delimiter change",
			input:    "{{=<% %>=}}<%name%>",
			expected: `DelimiterChange(<% %>) Interpolation(name)`,
		},
		{
			name:     "delimiter change with spaces",
			input:    "{{= | | =}}|# a||b||/ a|",
			expected: `DelimiterChange(| |) Section(a)[Interpolation(b)]`,
		},
		{
			name:     "old delimiters are text after a change",
			input:    "{{=<% %>=}}{{name}}",
			expected: `DelimiterChange(<% %>) Literal("{{name}}")`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmpl, err := Parse(tt.input)
			if err != nil {
				t.Fatalf("Parse() error = %v", err)
			}
			if got := summarize(tmpl.Tokens); got != tt.expected {
				t.Errorf("Parse() = %s, want %s", got, tt.expected)
			}
		})
	}
}

func TestParseStandaloneLines(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "standalone comment",
			input:    "Begin.\n{{! comment }}\nEnd.\n",
			expected: `Literal("Begin.\n") Comment("comment ") Literal("End.\n")`,
		},
		{
			name:     "indented standalone section",
			input:    "  {{#a}}\n  x\n  {{/a}}\n",
			expected: `Section(a)[Literal("  x\n")]`,
		},
		{
			name:     "trailing whitespace after tag",
			input:    "{{#a}}  \nx\n{{/a}}",
			expected: `Section(a)[Literal("x\n")]`,
		},
		{
			name:     "two tags on one line",
			input:    "{{#a}}{{/a}}\n",
			expected: `Section(a)[]`,
		},
		{
			name:     "crlf line endings",
			input:    "a\r\n{{! c }}\r\nb",
			expected: `Literal("a\r\n") Comment("c ") Literal("b")`,
		},
		{
			name:     "interpolation is never standalone",
			input:    "  {{x}}\n",
			expected: `Literal("  ") Interpolation(x) Literal("\n")`,
		},
		{
			name:     "text on the line keeps whitespace",
			input:    "| {{#a}}\n| {{/a}}\n",
			expected: `Literal("| ") Section(a)[Literal("\n") Literal("| ")] Literal("\n")`,
		},
		{
			name:     "standalone delimiter change",
			input:    "a\n  {{=<% %>=}}\n<%b%>",
			expected: `Literal("a\n") DelimiterChange(<% %>) Interpolation(b)`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmpl, err := Parse(tt.input)
			if err != nil {
				t.Fatalf("Parse() error = %v", err)
			}
			if got := summarize(tmpl.Tokens); got != tt.expected {
				t.Errorf("Parse() = %s, want %s", got, tt.expected)
			}
		})
	}
}

func TestParseIndent(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		indent   string
		expected string
	}{
		{
			name:     "every line is indented",
			input:    "a\nb\n",
			indent:   "  ",
			expected: `Literal("  a\n") Literal("  b\n")`,
		},
		{
			name:     "standalone lines lose the indent",
			input:    "a\n{{#s}}\nb\n{{/s}}\n",
			indent:   "  ",
			expected: `Literal("  a\n") Section(s)[Literal("  b\n")]`,
		},
		{
			name:     "indent before a tag",
			input:    "{{x}}\n",
			indent:   "\t",
			expected: `Literal("\t") Interpolation(x) Literal("\n")`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmpl, err := ParseWithOptions(tt.input, ParseOptions{Indent: tt.indent})
			if err != nil {
				t.Fatalf("ParseWithOptions() error = %v", err)
			}
			if got := summarize(tmpl.Tokens); got != tt.expected {
				t.Errorf("ParseWithOptions() = %s, want %s", got, tt.expected)
			}
		})
	}
}

func TestParsePartialLineIndent(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"  {{> p}}\n", "  "},
		{"\t{{>p}}", "\t"},
		{"x {{> p}}\n", ""},
		{"{{> p}} x\n", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			tmpl, err := Parse(tt.input)
			if err != nil {
				t.Fatalf("Parse() error = %v", err)
			}
			var partial *Token
			Walk(tmpl.Tokens, func(tok *Token) bool {
				if tok.Type == TokenPartial {
					partial = tok
					return false
				}
				return true
			})
			if partial == nil {
				t.Fatal("no partial token found")
			}
			if partial.LineIndent != tt.expected {
				t.Errorf("LineIndent = %q, want %q", partial.LineIndent, tt.expected)
			}
		})
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		kind     ParseErrorKind
		sentinel error
		message  string
	}{
		{
			name:     "unclosed tag",
			input:    "My name is {{name",
			kind:     UnclosedTag,
			sentinel: ErrUnclosedTag,
			message:  "Unclosed Tag at 17",
		},
		{
			name:     "unclosed triple mustache",
			input:    "{{{name}}",
			kind:     UnclosedTag,
			sentinel: ErrUnclosedTag,
			message:  "Unclosed Tag at 9",
		},
		{
			name:     "unclosed comment",
			input:    "{{! never closed",
			kind:     UnclosedTag,
			sentinel: ErrUnclosedTag,
			message:  "Unclosed Tag at 16",
		},
		{
			name:     "unclosed block",
			input:    "A list: {{#people}}{{name}}",
			kind:     UnclosedBlock,
			sentinel: ErrUnclosedBlock,
			message:  "Unclosed Block 'people' at 27",
		},
		{
			name:     "innermost block is reported",
			input:    "{{#a}}{{#b}}",
			kind:     UnclosedBlock,
			sentinel: ErrUnclosedBlock,
			message:  "Unclosed Block 'b' at 12",
		},
		{
			name:     "unopened block",
			input:    "The end of the list! {{/people}}",
			kind:     UnopenedBlock,
			sentinel: ErrUnopenedBlock,
			message:  "Unopened Block 'people' at 21",
		},
		{
			name:     "mismatched close",
			input:    "{{#a}}{{#b}}{{/a}}",
			kind:     MismatchedBlockClose,
			sentinel: ErrMismatchedBlockClose,
			message:  "Cannot close Block 'a' at 12. There is already an unclosed Block 'b'",
		},
		{
			name:     "one part delimiter",
			input:    "{{=<%=}}",
			kind:     InvalidDelimiters,
			sentinel: ErrInvalidDelimiters,
			message:  "Invalid Tags",
		},
		{
			name:     "three part delimiter",
			input:    "{{=< % >=}}",
			kind:     InvalidDelimiters,
			sentinel: ErrInvalidDelimiters,
			message:  "Invalid Tags",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmpl, err := Parse(tt.input)
			if err == nil {
				t.Fatalf("Parse() = %v, want error", tmpl)
			}
			if tmpl != nil {
				t.Error("Parse() returned a template together with an error")
			}

			var pe *ParseError
			if !errors.As(err, &pe) {
				t.Fatalf("error %T is not a *ParseError", err)
			}
			if pe.Kind != tt.kind {
				t.Errorf("Kind = %v, want %v", pe.Kind, tt.kind)
			}
			if !errors.Is(err, tt.sentinel) {
				t.Errorf("errors.Is(err, %v) = false", tt.sentinel)
			}
			if err.Error() != tt.message {
				t.Errorf("Error() = %q, want %q", err.Error(), tt.message)
			}
		})
	}
}

func TestParseIsIdempotent(t *testing.T) {
	inputs := []string{
		"Hello {{name}}!",
		"{{#list}}\n  {{> item}}\n{{/list}}\n{{^list}}none{{/list}}",
		"{{=<% %>=}}<%#a%><%b%><%/a%>",
	}

	for _, input := range inputs {
		first, err := Parse(input)
		if err != nil {
			t.Fatalf("Parse(%q) error = %v", input, err)
		}
		second, err := Parse(input)
		if err != nil {
			t.Fatalf("Parse(%q) error = %v", input, err)
		}
		if !reflect.DeepEqual(first.Tokens, second.Tokens) {
			t.Errorf("Parse(%q) is not deterministic:\n%s\n%s", input, summarize(first.Tokens), summarize(second.Tokens))
		}
	}
}

func TestParsePositions(t *testing.T) {
	inputs := []string{
		"Begin.\n{{! comment }}\nEnd.\n",
		"{{#a}}\n  {{#b}}\n    {{c}} and {{{d}}}\n  {{/b}}\n{{/a}}\n",
		"x{{=| |=}}|#s| |.| |/s|y",
		"  {{> p}}\n{{^q}}{{& r}}{{/q}}",
	}

	for _, input := range inputs {
		tmpl, err := Parse(input)
		if err != nil {
			t.Fatalf("Parse(%q) error = %v", input, err)
		}

		var check func(tokens []*Token, lo, hi int)
		check = func(tokens []*Token, lo, hi int) {
			for _, tok := range tokens {
				if tok.Start < lo || tok.Start > tok.End || tok.End > hi {
					t.Errorf("%q: %s spans [%d,%d], outside [%d,%d]", input, tok, tok.Start, tok.End, lo, hi)
				}
				if tok.IsBlock() {
					if tok.SectionEnd < tok.End {
						t.Errorf("%q: %s ends at %d before its open tag ends at %d", input, tok, tok.SectionEnd, tok.End)
					}
					check(tok.Children, tok.Start, tok.SectionEnd)
				}
			}
		}
		check(tmpl.Tokens, 0, len(input))
	}
}

func TestParseSectionRawText(t *testing.T) {
	input := "{{#wrap}}Hi {{name}}.{{/wrap}}"
	tmpl, err := Parse(input)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	section := tmpl.Tokens[0]
	if got := input[section.End:section.SectionEnd]; got != "Hi {{name}}." {
		t.Errorf("raw section text = %q, want %q", got, "Hi {{name}}.")
	}
	if section.Delimiters != DefaultDelimiters {
		t.Errorf("section delimiters = %v, want %v", section.Delimiters, DefaultDelimiters)
	}
}

func TestParseDelimiterCacheBound(t *testing.T) {
	tags := NewTagRegistry(NewMatcherCache(4))
	input := "{{=<% %>=}}<%=[[ ]]=%>[[=(( ))=]]((=<< >>=))<<x>>"

	tmpl, err := ParseWithOptions(input, ParseOptions{Tags: tags})
	if err != nil {
		t.Fatalf("ParseWithOptions() error = %v", err)
	}
	if got := FindTemplateTokens(tmpl.Tokens); len(got) != 5 {
		t.Errorf("got %d tags, want 5: %s", len(got), summarize(got))
	}
	if n := tags.MatcherCache().Len(); n > 4 {
		t.Errorf("matcher cache holds %d pairs, want at most 4", n)
	}
}

func TestParseWithStartDelimiters(t *testing.T) {
	tmpl, err := ParseWithOptions("<%name%> {{name}}", ParseOptions{
		Delimiters: Delimiters{Open: "<%", Close: "%>"},
	})
	if err != nil {
		t.Fatalf("ParseWithOptions() error = %v", err)
	}
	expected := `Interpolation(name) Literal(" {{name}}")`
	if got := summarize(tmpl.Tokens); got != expected {
		t.Errorf("ParseWithOptions() = %s, want %s", got, expected)
	}

	if _, err := ParseWithOptions("x", ParseOptions{Delimiters: Delimiters{Open: "<%"}}); !errors.Is(err, ErrInvalidDelimiters) {
		t.Errorf("empty close delimiter: error = %v, want %v", err, ErrInvalidDelimiters)
	}
}
