package scanner

import (
	"regexp"
	"testing"
)

func TestScan(t *testing.T) {
	tests := []struct {
		name    string
		src     string
		start   int
		pattern string
		want    string
		wantPos int
	}{
		{
			name:    "match at position",
			src:     "{{name}}",
			pattern: `\{\{\s*`,
			want:    "{{",
			wantPos: 2,
		},
		{
			name:    "match later is ignored",
			src:     "Hello {{name}}",
			pattern: `\{\{`,
			want:    "",
			wantPos: 0,
		},
		{
			name:    "match from offset",
			src:     "Hello {{ name}}",
			start:   6,
			pattern: `\{\{\s*`,
			want:    "{{ ",
			wantPos: 9,
		},
		{
			name:    "empty match does not move",
			src:     "abc",
			pattern: `\s*`,
			want:    "",
			wantPos: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New(tt.src)
			s.SetPos(tt.start)
			got := s.Scan(regexp.MustCompile(tt.pattern))
			if got != tt.want {
				t.Errorf("Scan() = %q, want %q", got, tt.want)
			}
			if s.Pos() != tt.wantPos {
				t.Errorf("Pos() = %d, want %d", s.Pos(), tt.wantPos)
			}
		})
	}
}

func TestScanUntil(t *testing.T) {
	tests := []struct {
		name    string
		src     string
		pattern string
		want    string
		wantPos int
		wantEnd bool
	}{
		{
			name:    "text before tag",
			src:     "Hello {{name}}",
			pattern: `\{\{`,
			want:    "Hello ",
			wantPos: 6,
		},
		{
			name:    "no match consumes rest",
			src:     "Hello world",
			pattern: `\{\{`,
			want:    "Hello world",
			wantPos: 11,
			wantEnd: true,
		},
		{
			name:    "match at position returns empty",
			src:     "{{name}}",
			pattern: `\{\{`,
			want:    "",
			wantPos: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New(tt.src)
			got := s.ScanUntil(regexp.MustCompile(tt.pattern))
			if got != tt.want {
				t.Errorf("ScanUntil() = %q, want %q", got, tt.want)
			}
			if s.Pos() != tt.wantPos {
				t.Errorf("Pos() = %d, want %d", s.Pos(), tt.wantPos)
			}
			if s.AtEnd() != tt.wantEnd {
				t.Errorf("AtEnd() = %v, want %v", s.AtEnd(), tt.wantEnd)
			}
		})
	}
}

func TestScanString(t *testing.T) {
	s := New("<%name%>")
	if got := s.ScanString("{{"); got != "" {
		t.Errorf("ScanString({{) = %q, want empty", got)
	}
	if got := s.ScanString("<%"); got != "<%" {
		t.Errorf("ScanString(<%%) = %q, want <%%", got)
	}
	if got := s.ScanUntilString("%>"); got != "name" {
		t.Errorf("ScanUntilString() = %q, want name", got)
	}
	if got := s.Rest(); got != "%>" {
		t.Errorf("Rest() = %q, want %%>", got)
	}
	if got := s.ScanUntilString("}}"); got != "%>" {
		t.Errorf("ScanUntilString(no match) = %q, want %%>", got)
	}
	if !s.AtEnd() {
		t.Error("expected scanner at end")
	}
}

func TestNilPattern(t *testing.T) {
	s := New("abc")
	if got := s.Scan(nil); got != "" {
		t.Errorf("Scan(nil) = %q, want empty", got)
	}
	if got := s.ScanUntil(nil); got != "abc" {
		t.Errorf("ScanUntil(nil) = %q, want abc", got)
	}
	if got := s.ScanUntil(nil); got != "" {
		t.Errorf("ScanUntil at end = %q, want empty", got)
	}
}

func TestSetPosClamps(t *testing.T) {
	s := New("abc")
	s.SetPos(-3)
	if s.Pos() != 0 {
		t.Errorf("Pos() = %d, want 0", s.Pos())
	}
	s.SetPos(10)
	if s.Pos() != 3 {
		t.Errorf("Pos() = %d, want 3", s.Pos())
	}
}
