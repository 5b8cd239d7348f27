// Package scanner provides a forward-only cursor over a template string.
//
// The scanner knows nothing about Mustache tags. It only keeps a byte position
// and advances it over regular expression or fixed-string matches, which is all
// the parser in the mustache package needs to walk a template in a single pass.
//
// A failed match is never an error: Scan returns an empty string and leaves the
// position untouched, ScanUntil consumes the remainder of the input.
package scanner

import (
	"regexp"
	"strings"
)

// Scanner is a cursor over a string.
type Scanner struct {
	src string
	pos int
}

// New returns a scanner positioned at the start of src.
func New(src string) *Scanner {
	return &Scanner{src: src}
}

// Source returns the full text being scanned.
func (s *Scanner) Source() string { return s.src }

// Pos returns the current byte offset.
func (s *Scanner) Pos() int { return s.pos }

// SetPos moves the cursor. Offsets outside the source are clamped.
func (s *Scanner) SetPos(pos int) {
	switch {
	case pos < 0:
		s.pos = 0
	case pos > len(s.src):
		s.pos = len(s.src)
	default:
		s.pos = pos
	}
}

// AtEnd reports whether the whole source has been consumed.
func (s *Scanner) AtEnd() bool { return s.pos >= len(s.src) }

// Rest returns the unconsumed text.
func (s *Scanner) Rest() string { return s.src[s.pos:] }

// Scan advances past re if it matches exactly at the current position and
// returns the matched text. Otherwise it returns "" and does not move.
func (s *Scanner) Scan(re *regexp.Regexp) string {
	if re == nil || s.AtEnd() {
		return ""
	}
	loc := re.FindStringIndex(s.src[s.pos:])
	if loc == nil || loc[0] != 0 {
		return ""
	}
	match := s.src[s.pos : s.pos+loc[1]]
	s.pos += loc[1]
	return match
}

// ScanUntil returns the text between the current position and the start of
// the next match of re, moving the cursor to that match. When re does not
// match the rest of the input is returned and the cursor moves to the end.
func (s *Scanner) ScanUntil(re *regexp.Regexp) string {
	if s.AtEnd() {
		return ""
	}
	if re == nil {
		return s.consumeRest()
	}
	loc := re.FindStringIndex(s.src[s.pos:])
	if loc == nil {
		return s.consumeRest()
	}
	text := s.src[s.pos : s.pos+loc[0]]
	s.pos += loc[0]
	return text
}

// ScanString is Scan for a fixed string.
func (s *Scanner) ScanString(lit string) string {
	if lit == "" || !strings.HasPrefix(s.src[s.pos:], lit) {
		return ""
	}
	s.pos += len(lit)
	return lit
}

// ScanUntilString is ScanUntil for a fixed string.
func (s *Scanner) ScanUntilString(lit string) string {
	if s.AtEnd() {
		return ""
	}
	if lit == "" {
		return s.consumeRest()
	}
	i := strings.Index(s.src[s.pos:], lit)
	if i < 0 {
		return s.consumeRest()
	}
	text := s.src[s.pos : s.pos+i]
	s.pos += i
	return text
}

func (s *Scanner) consumeRest() string {
	text := s.src[s.pos:]
	s.pos = len(s.src)
	return text
}
