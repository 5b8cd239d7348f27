package mustache

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeTemplate(t *testing.T, path, text string, modTime time.Time) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.Chtimes(path, modTime, modTime); err != nil {
		t.Fatal(err)
	}
}

func TestMapLoader(t *testing.T) {
	loader := MapLoader{"header": "<h1>{{title}}</h1>"}

	text, found, err := loader.Load("header")
	if err != nil || !found || text != "<h1>{{title}}</h1>" {
		t.Errorf("Load(header) = %q, %v, %v", text, found, err)
	}
	if _, found, err := loader.Load("footer"); found || err != nil {
		t.Errorf("Load(footer) found = %v, err = %v, want a clean miss", found, err)
	}
}

func TestNewFileLoaderExtension(t *testing.T) {
	tests := []struct {
		ext  string
		want string
	}{
		{"", ".mustache"},
		{"html", ".html"},
		{".txt", ".txt"},
	}

	for _, tt := range tests {
		if got := NewFileLoader("dir", tt.ext).Ext; got != tt.want {
			t.Errorf("NewFileLoader(%q).Ext = %q, want %q", tt.ext, got, tt.want)
		}
	}
}

func TestFileLoader(t *testing.T) {
	dir := t.TempDir()
	base := time.Now().Add(-time.Hour).Truncate(time.Second)
	writeTemplate(t, filepath.Join(dir, "page.mustache"), "v1", base)
	writeTemplate(t, filepath.Join(dir, "partials", "row.mustache"), "<tr>", base)
	writeTemplate(t, filepath.Join(dir, "notes.txt"), "ignored", base)
	if err := os.Mkdir(filepath.Join(dir, "folder.mustache"), 0o755); err != nil {
		t.Fatal(err)
	}

	loader := NewFileLoader(dir, "")

	tests := []struct {
		name  string
		want  string
		found bool
	}{
		{"page", "v1", true},
		{"partials/row", "<tr>", true},
		{"missing", "", false},
		{"notes", "", false},
		{"folder", "", false},
		{"../page", "", false},
		{"/etc/passwd", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text, found, err := loader.Load(tt.name)
			if err != nil {
				t.Fatalf("Load(%q) error = %v", tt.name, err)
			}
			if found != tt.found || text != tt.want {
				t.Errorf("Load(%q) = %q, %v, want %q, %v", tt.name, text, found, tt.want, tt.found)
			}
		})
	}
}

func TestFileLoaderReload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "page.mustache")
	base := time.Now().Add(-time.Hour).Truncate(time.Second)
	writeTemplate(t, path, "first", base)

	loader := NewFileLoader(dir, ".mustache")
	if text, _, _ := loader.Load("page"); text != "first" {
		t.Fatalf("Load() = %q, want first", text)
	}

	// Same modification time: the kept text is served.
	writeTemplate(t, path, "second", base)
	if text, _, _ := loader.Load("page"); text != "first" {
		t.Errorf("Load() = %q, want the kept text while the mod time is unchanged", text)
	}

	writeTemplate(t, path, "third", base.Add(time.Minute))
	if text, _, _ := loader.Load("page"); text != "third" {
		t.Errorf("Load() = %q, want third after the file changed", text)
	}

	if err := os.Remove(path); err != nil {
		t.Fatal(err)
	}
	if _, found, err := loader.Load("page"); found || err != nil {
		t.Errorf("Load() of a removed file found = %v, err = %v", found, err)
	}
}

type failingLoader struct{}

func (failingLoader) Load(string) (string, bool, error) {
	return "", false, errors.New("backend unavailable")
}

func TestCompositeLoader(t *testing.T) {
	loader := CompositeLoader{
		nil,
		MapLoader{"a": "first a"},
		MapLoader{"a": "second a", "b": "second b"},
	}

	tests := []struct {
		name  string
		want  string
		found bool
	}{
		{"a", "first a", true},
		{"b", "second b", true},
		{"c", "", false},
	}
	for _, tt := range tests {
		text, found, err := loader.Load(tt.name)
		if err != nil || found != tt.found || text != tt.want {
			t.Errorf("Load(%q) = %q, %v, %v", tt.name, text, found, err)
		}
	}

	broken := CompositeLoader{MapLoader{}, failingLoader{}, MapLoader{"c": "never"}}
	if _, _, err := broken.Load("c"); err == nil {
		t.Error("expected the error of a failing loader to propagate")
	}
	if text, found, err := broken.Load(""); err == nil {
		t.Errorf("Load() = %q, %v, want the failing loader's error", text, found)
	}
}
