// Package prompt renders the text templates sent to the language model.
package prompt

import (
	"bytes"
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"text/template"
	"time"
)

//go:embed templates/*.tmpl
var builtin embed.FS

// Template wraps a text/template loaded from disk or from the built-in set.
type Template struct {
	name  string
	path  string
	funcs template.FuncMap

	mu   sync.RWMutex
	tmpl *template.Template
	hash string
}

// NewTemplate parses the template at path. funcs extend DefaultFuncs.
func NewTemplate(path string, funcs template.FuncMap) (*Template, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("prompt template path is empty")
	}
	t := &Template{name: filepath.Base(path), path: path, funcs: merge(funcs)}
	if err := t.reload(); err != nil {
		return nil, err
	}
	return t, nil
}

// Builtin parses one of the embedded templates by file name.
func Builtin(name string) (*Template, error) {
	data, err := builtin.ReadFile("templates/" + name)
	if err != nil {
		return nil, fmt.Errorf("builtin prompt template %q: %w", name, err)
	}
	t := &Template{name: name, funcs: merge(nil)}
	if err := t.parse(data); err != nil {
		return nil, err
	}
	return t, nil
}

// Load returns the template at path, or the builtin template when path is empty.
func Load(path, builtinName string) (*Template, error) {
	if strings.TrimSpace(path) == "" {
		return Builtin(builtinName)
	}
	return NewTemplate(path, nil)
}

// Render executes the template with data.
func (t *Template) Render(data any) (string, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if t.tmpl == nil {
		return "", fmt.Errorf("prompt template %q not parsed", t.name)
	}
	var buf bytes.Buffer
	if err := t.tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("execute prompt template %q: %w", t.name, err)
	}
	return strings.TrimSpace(buf.String()), nil
}

// Reload reparses a disk-backed template. Builtin templates are immutable.
func (t *Template) Reload() error {
	if t.path == "" {
		return nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.reload()
}

// Digest returns the sha256 hash of the template source.
func (t *Template) Digest() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.hash
}

func (t *Template) reload() error {
	data, err := os.ReadFile(t.path)
	if err != nil {
		return fmt.Errorf("read prompt template %q: %w", t.path, err)
	}
	return t.parse(data)
}

func (t *Template) parse(data []byte) error {
	tmpl, err := template.New(t.name).Option("missingkey=error").Funcs(t.funcs).Parse(string(data))
	if err != nil {
		return fmt.Errorf("parse prompt template %q: %w", t.name, err)
	}
	t.tmpl = tmpl
	t.hash = computeDigest(data)
	return nil
}

// DefaultFuncs are available to every template.
func DefaultFuncs() template.FuncMap {
	return template.FuncMap{
		"inc":   func(i int) int { return i + 1 },
		"join":  strings.Join,
		"upper": strings.ToUpper,
		"date": func(t time.Time) string {
			if t.IsZero() {
				return "undated"
			}
			return t.UTC().Format("2006-01-02")
		},
		"truncate": func(s string, n int) string {
			r := []rune(strings.TrimSpace(s))
			if len(r) <= n {
				return string(r)
			}
			return strings.TrimSpace(string(r[:n])) + "…"
		},
	}
}

func merge(extra template.FuncMap) template.FuncMap {
	funcs := DefaultFuncs()
	for k, v := range extra {
		funcs[k] = v
	}
	return funcs
}
