// Package config reads ngmixer-build settings from the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	LogLevel string
	// Manifest overrides manifest discovery when set.
	Manifest string
	// Revision pins the stamp instead of asking git, e.g. in CI checkouts
	// without history. A trailing -dirty marks the tree as modified.
	Revision         string
	IncludeUntracked bool
}

// Load reads <dir>/.env if present, then the process environment.
// Variables already set in the environment are not overridden by .env.
func Load(dir string) (Config, error) {
	path := filepath.Join(dir, ".env")
	if _, err := os.Stat(path); err == nil {
		if err := godotenv.Load(path); err != nil {
			return Config{}, fmt.Errorf("config: load %s: %w", path, err)
		}
	} else if !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("config: stat %s: %w", path, err)
	}
	return FromEnv(), nil
}

func FromEnv() Config {
	return Config{
		LogLevel:         getEnv("NGMIXER_LOG_LEVEL", "info"),
		Manifest:         getEnv("NGMIXER_MANIFEST", ""),
		Revision:         getEnv("NGMIXER_REVISION", ""),
		IncludeUntracked: getEnvBool("NGMIXER_INCLUDE_UNTRACKED"),
	}
}

func getEnv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getEnvBool(key string) bool {
	switch strings.ToLower(os.Getenv(key)) {
	case "1", "true", "yes":
		return true
	}
	return false
}
