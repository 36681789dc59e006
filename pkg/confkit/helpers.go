package confkit

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"
)

// maxRootDepth bounds the upward search for the project root.
const maxRootDepth = 8

func fileExists(p string) bool {
	if p == "" {
		return false
	}
	_, err := os.Stat(p)
	return err == nil
}

func isRoot(dir string) bool {
	return fileExists(filepath.Join(dir, "go.mod")) || fileExists(filepath.Join(dir, ".git"))
}

// walkUp calls visit for this source file's directory and each parent until
// visit returns true or the depth limit is hit. It reports whether visit
// stopped the walk.
func walkUp(visit func(dir string) bool) bool {
	_, file, _, ok := runtime.Caller(0)
	if !ok {
		return false
	}
	dir := filepath.Dir(file)
	for i := 0; i < maxRootDepth; i++ {
		if visit(dir) {
			return true
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return false
}

// ProjectRoot locates the directory holding go.mod or .git, falling back to
// the working directory.
func ProjectRoot() (string, error) {
	var root string
	if walkUp(func(dir string) bool {
		if isRoot(dir) {
			root = dir
			return true
		}
		return false
	}) {
		return root, nil
	}
	wd, err := os.Getwd()
	if err != nil {
		return ".", fmt.Errorf("getwd: %w", err)
	}
	return wd, nil
}

// MustProjectPath joins rel onto the project root and panics when the root
// cannot be determined.
func MustProjectPath(rel string) string {
	root, err := ProjectRoot()
	if err != nil {
		panic(err)
	}
	return filepath.Join(root, rel)
}

// Expand trims s after expanding ${VAR} references.
func Expand(s string) string {
	return strings.TrimSpace(os.ExpandEnv(s))
}

// ParseDuration parses an optional positive duration string. Empty input
// yields zero. owner and field only shape the error message.
func ParseDuration(owner, field, raw string) (time.Duration, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid %s %q: %w", owner, field, raw, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s: %s must be positive, got %s", owner, field, d)
	}
	return d, nil
}
