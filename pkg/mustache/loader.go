package mustache

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// TemplateLoader supplies template text by name. A missing template is
// reported as found=false with a nil error.
type TemplateLoader interface {
	Load(name string) (text string, found bool, err error)
}

// MapLoader serves templates from memory.
type MapLoader map[string]string

func (m MapLoader) Load(name string) (string, bool, error) {
	text, ok := m[name]
	return text, ok, nil
}

// FileLoader reads name+Ext from Dir. File contents are kept and reread only
// when the file's modification time changes.
type FileLoader struct {
	Dir string
	Ext string

	mu    sync.RWMutex
	files map[string]loadedFile
}

type loadedFile struct {
	modTime time.Time
	text    string
}

// NewFileLoader creates a loader for dir. An empty ext means ".mustache".
func NewFileLoader(dir, ext string) *FileLoader {
	if ext == "" {
		ext = ".mustache"
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return &FileLoader{
		Dir:   dir,
		Ext:   ext,
		files: make(map[string]loadedFile),
	}
}

func (l *FileLoader) Load(name string) (string, bool, error) {
	path, ok := l.path(name)
	if !ok {
		return "", false, nil
	}

	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", false, nil
		}
		return "", false, WithContext(err, "stat template", map[string]interface{}{"name": name, "path": path})
	}
	if info.IsDir() {
		return "", false, nil
	}

	l.mu.RLock()
	cached, hit := l.files[path]
	l.mu.RUnlock()
	if hit && cached.modTime.Equal(info.ModTime()) {
		return cached.text, true, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", false, WithContext(err, "read template", map[string]interface{}{"name": name, "path": path})
	}

	logger := GetLogger()
	if logger.IsDebugMode() {
		logger.WithFields(Fields{"name": name, "path": path, "reload": hit}).Debug("Loaded template file")
	}

	text := string(data)
	l.mu.Lock()
	if l.files == nil {
		l.files = make(map[string]loadedFile)
	}
	l.files[path] = loadedFile{modTime: info.ModTime(), text: text}
	l.mu.Unlock()
	return text, true, nil
}

// path maps a template name to a file below Dir. Names escaping Dir are
// treated as missing.
func (l *FileLoader) path(name string) (string, bool) {
	if name == "" {
		return "", false
	}
	rel := filepath.FromSlash(name + l.Ext)
	if !filepath.IsLocal(rel) {
		return "", false
	}
	return filepath.Join(l.Dir, rel), true
}

// CompositeLoader asks each loader in turn; the first hit wins.
type CompositeLoader []TemplateLoader

func (c CompositeLoader) Load(name string) (string, bool, error) {
	for _, l := range c {
		if l == nil {
			continue
		}
		text, ok, err := l.Load(name)
		if err != nil {
			return "", false, err
		}
		if ok {
			return text, true, nil
		}
	}
	return "", false, nil
}
