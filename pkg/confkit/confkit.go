// Package confkit holds the helpers shared by the per-module config loaders:
// section files referenced from the main config, project root discovery,
// .env loading and env-expanded values.
package confkit

import (
	"fmt"
	"path/filepath"
	"strings"
)

// ResolvePath expands ${VAR} references in file and anchors relative results
// at base.
func ResolvePath(base, file string) string {
	file = Expand(file)
	if file == "" || filepath.IsAbs(file) {
		return file
	}
	return filepath.Join(base, file)
}

// BaseDir returns the directory holding the main config file.
func BaseDir(mainPath string) string {
	return filepath.Dir(mainPath)
}

// Section points at a module config file relative to the main config.
type Section[T any] struct {
	File  string `json:",optional"`
	Value *T     `json:"-"`
}

// Hydrate loads File through loader. An empty File leaves the section unset.
func (s *Section[T]) Hydrate(base string, loader func(string) (*T, error)) error {
	if strings.TrimSpace(s.File) == "" {
		return nil
	}
	p := ResolvePath(base, s.File)
	v, err := loader(p)
	if err != nil {
		return err
	}
	s.File, s.Value = p, v
	return nil
}

// Loaded reports whether Hydrate produced a value.
func (s *Section[T]) Loaded() bool {
	return s != nil && s.Value != nil
}

// Require returns the hydrated value or an error naming the missing section.
func (s *Section[T]) Require(name string) (*T, error) {
	if !s.Loaded() {
		return nil, fmt.Errorf("config: %s section is required", name)
	}
	return s.Value, nil
}
