package confkit

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/joho/godotenv"
)

var dotenvOnce sync.Once

// LoadDotenvOnce loads .env files once per process. TICKERLENS_ENV_FILE names
// an explicit file; otherwise every .env between this package and the project
// root is read, nearest first. Set TICKERLENS_NO_DOTENV=1 to skip loading and
// TICKERLENS_DOTENV_OVERLOAD=1 to let files override the environment.
func LoadDotenvOnce() {
	dotenvOnce.Do(loadDotenv)
}

func loadDotenv() {
	if os.Getenv("TICKERLENS_NO_DOTENV") == "1" {
		return
	}
	load := godotenv.Load
	if os.Getenv("TICKERLENS_DOTENV_OVERLOAD") == "1" {
		load = godotenv.Overload
	}
	if envFile := os.Getenv("TICKERLENS_ENV_FILE"); envFile != "" {
		_ = load(envFile)
		return
	}
	if !walkUp(func(dir string) bool {
		if p := filepath.Join(dir, ".env"); fileExists(p) {
			_ = load(p)
		}
		return isRoot(dir)
	}) {
		_ = load(".env")
	}
}
