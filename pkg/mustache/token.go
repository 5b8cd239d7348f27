package mustache

import (
	"fmt"
	"strings"
)

// TokenType represents the type of a template token
type TokenType int

const (
	TokenLiteral TokenType = iota
	TokenInterpolation
	TokenSection
	TokenInvertedSection
	TokenPartial
	TokenComment
	TokenDelimiterChange
)

func (t TokenType) String() string {
	switch t {
	case TokenLiteral:
		return "Literal"
	case TokenInterpolation:
		return "Interpolation"
	case TokenSection:
		return "Section"
	case TokenInvertedSection:
		return "InvertedSection"
	case TokenPartial:
		return "Partial"
	case TokenComment:
		return "Comment"
	case TokenDelimiterChange:
		return "DelimiterChange"
	default:
		return "Unknown"
	}
}

// Token is one node of a parsed template.
//
// Start and End are byte offsets into the source the token was parsed from.
// Which of the remaining fields are set depends on Type:
//
//	Literal          Value, IsWhitespace
//	Interpolation    Name, Escape
//	Section          Name, Children, SectionEnd, Delimiters
//	InvertedSection  Name, Children, SectionEnd, Delimiters
//	Partial          Name, LineIndent
//	Comment          Value
//	DelimiterChange  Delimiters
//
// Indent holds the leading whitespace of a standalone tag's line.
// Tokens are not modified after Parse returns.
type Token struct {
	Type  TokenType
	Start int
	End   int

	Indent string

	Name  string
	Value string

	Escape       bool
	IsWhitespace bool

	Children   []*Token
	SectionEnd int

	LineIndent string
	Delimiters Delimiters
}

// IsBlock reports whether the token opens a section.
func (t *Token) IsBlock() bool {
	return t.Type == TokenSection || t.Type == TokenInvertedSection
}

func (t *Token) String() string {
	switch t.Type {
	case TokenLiteral:
		return fmt.Sprintf("Literal(%q)", t.Value)
	case TokenInterpolation:
		if t.Escape {
			return fmt.Sprintf("Interpolation(%s)", t.Name)
		}
		return fmt.Sprintf("Interpolation(&%s)", t.Name)
	case TokenSection, TokenInvertedSection:
		children := make([]string, len(t.Children))
		for i, c := range t.Children {
			children[i] = c.String()
		}
		return fmt.Sprintf("%s(%s)[%s]", t.Type, t.Name, strings.Join(children, " "))
	case TokenPartial:
		return fmt.Sprintf("Partial(%s)", t.Name)
	case TokenComment:
		return fmt.Sprintf("Comment(%q)", t.Value)
	case TokenDelimiterChange:
		return fmt.Sprintf("DelimiterChange(%s)", t.Delimiters)
	default:
		return "Unknown"
	}
}

// Walk visits tokens depth-first in source order until fn returns false.
func Walk(tokens []*Token, fn func(*Token) bool) bool {
	for _, t := range tokens {
		if !fn(t) {
			return false
		}
		if !Walk(t.Children, fn) {
			return false
		}
	}
	return true
}

// FindTemplateTokens returns a flat, depth-first list of the non-literal
// tokens in a tree. This is a utility function for debugging and analysis.
func FindTemplateTokens(tokens []*Token) []*Token {
	var found []*Token
	Walk(tokens, func(t *Token) bool {
		if t.Type != TokenLiteral {
			found = append(found, t)
		}
		return true
	})
	return found
}
