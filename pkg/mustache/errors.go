package mustache

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ParseErrorKind classifies a template parse failure.
type ParseErrorKind int

const (
	UnclosedTag ParseErrorKind = iota
	UnclosedBlock
	UnopenedBlock
	MismatchedBlockClose
	InvalidDelimiters
)

func (k ParseErrorKind) String() string {
	switch k {
	case UnclosedTag:
		return "UnclosedTag"
	case UnclosedBlock:
		return "UnclosedBlock"
	case UnopenedBlock:
		return "UnopenedBlock"
	case MismatchedBlockClose:
		return "MismatchedBlockClose"
	case InvalidDelimiters:
		return "InvalidDelimiters"
	default:
		return "Unknown"
	}
}

// Sentinel errors matched by errors.Is against a *ParseError of the same kind.
var (
	ErrUnclosedTag          = errors.New("unclosed tag")
	ErrUnclosedBlock        = errors.New("unclosed block")
	ErrUnopenedBlock        = errors.New("unopened block")
	ErrMismatchedBlockClose = errors.New("mismatched block close")
	ErrInvalidDelimiters    = errors.New("invalid delimiters")
)

var parseErrorSentinels = map[ParseErrorKind]error{
	UnclosedTag:          ErrUnclosedTag,
	UnclosedBlock:        ErrUnclosedBlock,
	UnopenedBlock:        ErrUnopenedBlock,
	MismatchedBlockClose: ErrMismatchedBlockClose,
	InvalidDelimiters:    ErrInvalidDelimiters,
}

// ParseError represents an error during template parsing. Position is the
// 0-based byte offset at which the problem was detected.
type ParseError struct {
	Kind     ParseErrorKind
	Name     string
	Expected string
	Position int
}

func (e *ParseError) Error() string {
	switch e.Kind {
	case UnclosedTag:
		return fmt.Sprintf("Unclosed Tag at %d", e.Position)
	case UnclosedBlock:
		return fmt.Sprintf("Unclosed Block '%s' at %d", e.Name, e.Position)
	case UnopenedBlock:
		return fmt.Sprintf("Unopened Block '%s' at %d", e.Name, e.Position)
	case MismatchedBlockClose:
		return fmt.Sprintf("Cannot close Block '%s' at %d. There is already an unclosed Block '%s'", e.Name, e.Position, e.Expected)
	default:
		return "Invalid Tags"
	}
}

// Is makes errors.Is(err, ErrUnclosedTag) and friends work.
func (e *ParseError) Is(target error) bool {
	return parseErrorSentinels[e.Kind] == target
}

func newParseError(kind ParseErrorKind, name string, pos int) *ParseError {
	return &ParseError{Kind: kind, Name: name, Position: pos}
}

// DataMissError is returned in strict mode when a name cannot be resolved.
type DataMissError struct {
	Name                string
	SkipRecursiveLookup bool
}

func (e *DataMissError) Error() string {
	if e.SkipRecursiveLookup {
		return fmt.Sprintf("data miss: '%s' not found in current scope (recursive lookup disabled)", e.Name)
	}
	return fmt.Sprintf("data miss: '%s' not found in any scope", e.Name)
}

// RecursionLimitError is returned when nested sections and partials go deeper
// than the configured maximum.
type RecursionLimitError struct {
	Limit int
}

func (e *RecursionLimitError) Error() string {
	return fmt.Sprintf("Exceeded maximum recursion depth of %d", e.Limit)
}

// UnknownTemplateError is returned when a named template cannot be loaded.
type UnknownTemplateError struct {
	Name string
}

func (e *UnknownTemplateError) Error() string {
	return fmt.Sprintf("No template was found with the name '%s'", e.Name)
}

// MultiError collects multiple errors
type MultiError struct {
	errors []error
}

// NewMultiError creates a new multi-error collector
func NewMultiError() *MultiError {
	return &MultiError{
		errors: make([]error, 0),
	}
}

// Add adds an error to the collection (ignores nil errors)
func (m *MultiError) Add(err error) {
	if err != nil {
		m.errors = append(m.errors, err)
	}
}

// Len returns the number of errors
func (m *MultiError) Len() int {
	return len(m.errors)
}

// Errors returns the collected errors.
func (m *MultiError) Errors() []error {
	return m.errors
}

// Err returns the multi-error or nil if empty
func (m *MultiError) Err() error {
	if len(m.errors) == 0 {
		return nil
	}
	if len(m.errors) == 1 {
		return m.errors[0]
	}
	return m
}

func (m *MultiError) Error() string {
	if len(m.errors) == 0 {
		return "no errors"
	}

	if len(m.errors) == 1 {
		return m.errors[0].Error()
	}

	var parts []string
	parts = append(parts, fmt.Sprintf("%d errors occurred:", len(m.errors)))
	for i, err := range m.errors {
		parts = append(parts, fmt.Sprintf("  [%d] %v", i+1, err))
	}
	return strings.Join(parts, "\n")
}

// Unwrap exposes the collected errors to errors.Is and errors.As.
func (m *MultiError) Unwrap() []error {
	return m.errors
}

// ContextError adds context to an existing error
type ContextError struct {
	Operation string
	Context   map[string]interface{}
	Cause     error
}

func (e *ContextError) Error() string {
	keys := make([]string, 0, len(e.Context))
	for k := range e.Context {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	contextParts := make([]string, 0, len(keys))
	for _, k := range keys {
		contextParts = append(contextParts, fmt.Sprintf("%s=%v", k, e.Context[k]))
	}

	if len(contextParts) > 0 {
		return fmt.Sprintf("%s [%s]: %v", e.Operation, strings.Join(contextParts, ", "), e.Cause)
	}
	return fmt.Sprintf("%s: %v", e.Operation, e.Cause)
}

func (e *ContextError) Unwrap() error {
	return e.Cause
}

// WithContext wraps an error with additional context
func WithContext(err error, operation string, context map[string]interface{}) error {
	if err == nil {
		return nil
	}
	return &ContextError{
		Operation: operation,
		Context:   context,
		Cause:     err,
	}
}

// IsParseError checks if an error is a parse error
func IsParseError(err error) bool {
	var pe *ParseError
	return errors.As(err, &pe)
}

// IsDataMissError checks if an error is a strict-mode data miss
func IsDataMissError(err error) bool {
	var de *DataMissError
	return errors.As(err, &de)
}

// IsRecursionLimitError checks if an error is a recursion limit error
func IsRecursionLimitError(err error) bool {
	var re *RecursionLimitError
	return errors.As(err, &re)
}

// IsUnknownTemplateError checks if an error is an unknown template error
func IsUnknownTemplateError(err error) bool {
	var ue *UnknownTemplateError
	return errors.As(err, &ue)
}
