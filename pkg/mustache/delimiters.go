package mustache

import (
	"strings"
	"unicode"
)

// Delimiters is an open/close tag pair such as {{ and }}.
// It is comparable and is used as a cache key.
type Delimiters struct {
	Open  string
	Close string
}

// DefaultDelimiters is the standard Mustache pair.
var DefaultDelimiters = Delimiters{Open: "{{", Close: "}}"}

// String returns the pair in the same "open close" form accepted by ParseDelimiters.
func (d Delimiters) String() string {
	return d.Open + " " + d.Close
}

// IsDefault reports whether d is the {{ }} pair.
func (d Delimiters) IsDefault() bool {
	return d == DefaultDelimiters
}

// Validate checks that both tags are non-empty and contain no whitespace.
func (d Delimiters) Validate() error {
	if !validTag(d.Open) || !validTag(d.Close) {
		return newParseError(InvalidDelimiters, "", 0)
	}
	return nil
}

// NewDelimiters builds a validated pair.
func NewDelimiters(open, close string) (Delimiters, error) {
	d := Delimiters{Open: open, Close: close}
	if err := d.Validate(); err != nil {
		return Delimiters{}, err
	}
	return d, nil
}

// ParseDelimiters parses the "open close" form, e.g. "<% %>".
// Anything other than exactly two non-empty parts is an InvalidDelimiters error.
func ParseDelimiters(s string) (Delimiters, error) {
	parts := strings.Fields(s)
	if len(parts) != 2 {
		return Delimiters{}, newParseError(InvalidDelimiters, "", 0)
	}
	return NewDelimiters(parts[0], parts[1])
}

func validTag(tag string) bool {
	return tag != "" && strings.IndexFunc(tag, unicode.IsSpace) < 0
}
