package mustache

import (
	"fmt"
	"html"
	"strconv"
)

// Escaper transforms interpolated text for {{name}} tags.
type Escaper func(string) string

// HTMLEscape is the default escaper.
func HTMLEscape(s string) string {
	return html.EscapeString(s)
}

// NoEscape leaves text untouched, for non-HTML output.
func NoEscape(s string) string {
	return s
}

// FormatValue converts a resolved value to the text an interpolation emits.
func FormatValue(value interface{}) string {
	if value == nil {
		return ""
	}

	switch v := value.(type) {
	case string:
		return v
	case []byte:
		return string(v)
	case int:
		return strconv.Itoa(v)
	case int8, int16, int32, int64:
		return fmt.Sprintf("%d", v)
	case uint, uint8, uint16, uint32, uint64:
		return fmt.Sprintf("%d", v)
	case float32:
		return strconv.FormatFloat(float64(v), 'g', 10, 32)
	case float64:
		return strconv.FormatFloat(v, 'g', 15, 64)
	case bool:
		return strconv.FormatBool(v)
	case fmt.Stringer:
		return v.String()
	case error:
		return v.Error()
	default:
		return fmt.Sprintf("%v", v)
	}
}
