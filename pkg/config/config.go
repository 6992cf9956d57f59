// Package config loads process configuration from the environment and a local .env file.
package config

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config is shared by the API server and the command line tools.
type Config struct {
	Port              string        `env:"PORT" envDefault:"8081"`
	DBDSN             string        `env:"DB_DSN"`
	DBAutoMigrate     bool          `env:"DB_AUTO_MIGRATE" envDefault:"true"`
	JWTSecret         string        `env:"JWT_SECRET" envDefault:"dev-insecure-secret-change"`
	LiveSearchURL     string        `env:"LIVE_SEARCH_URL"`
	LiveSearchTimeout time.Duration `env:"LIVE_SEARCH_TIMEOUT" envDefault:"5s"`
	UploadBase        string        `env:"UPLOAD_BASE" envDefault:"uploads"`
	MaxLookups        int           `env:"MAX_LOOKUPS" envDefault:"4"`
	LogLevel          string        `env:"LOG_LEVEL" envDefault:"info"`
}

// Load reads ./.env (without overriding variables already set) and parses the environment.
func Load() (Config, error) {
	LoadDotEnv(".env")
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// LoadDotEnv loads key=value pairs from path into the environment without overwriting
// variables that are already set. Lines starting with # are ignored.
func LoadDotEnv(path string) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return // no .env file
	}
	defer f.Close()
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		// split on first '='
		if eq := strings.IndexByte(line, '='); eq > 0 {
			key := strings.TrimSpace(line[:eq])
			val := strings.Trim(strings.TrimSpace(line[eq+1:]), `"'`)
			if _, exists := os.LookupEnv(key); !exists {
				_ = os.Setenv(key, val)
			}
		}
	}
}
