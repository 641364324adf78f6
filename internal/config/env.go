package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Env holds process settings read from the environment and <workspace>/.env.
type Env struct {
	// RemoteDatabaseURL points at the Postgres mirror. Empty disables it.
	RemoteDatabaseURL string `env:"AKMS_REMOTE_DATABASE_URL"`
	RemoteMaxConns    int    `env:"AKMS_REMOTE_MAX_CONNS" envDefault:"5"`
	OwnerID           string `env:"AKMS_OWNER_ID"`
	JWTSecret         string `env:"AKMS_JWT_SECRET"`
	AllowUserHeader   bool   `env:"AKMS_ALLOW_USER_HEADER" envDefault:"true"`
	LogLevel          string `env:"AKMS_LOG_LEVEL" envDefault:"info"`
	LogFormat         string `env:"AKMS_LOG_FORMAT" envDefault:"text"`
}

// EnvPath returns the .env path for a workspace.
func EnvPath(workspace string) string {
	if workspace == "" {
		workspace = "."
	}
	return filepath.Join(workspace, ".env")
}

// LoadEnv loads <workspace>/.env (if present) without overriding variables
// already set, then parses Env.
func LoadEnv(workspace string) (Env, error) {
	if err := godotenv.Load(EnvPath(workspace)); err != nil {
		var pathErr *os.PathError
		if !errors.As(err, &pathErr) {
			return Env{}, fmt.Errorf("load .env file: %w", err)
		}
	}
	var e Env
	if err := env.Parse(&e); err != nil {
		return e, fmt.Errorf("parse env: %w", err)
	}
	return e, nil
}

// RemoteConfigured reports whether a usable remote URL is set.
// Placeholder values copied from sample files count as unset.
func (e Env) RemoteConfigured() bool {
	u := strings.TrimSpace(e.RemoteDatabaseURL)
	if u == "" {
		return false
	}
	lower := strings.ToLower(u)
	for _, marker := range []string{"your-", "your_", "<", "example.com", "changeme"} {
		if strings.Contains(lower, marker) {
			return false
		}
	}
	return strings.HasPrefix(lower, "postgres://") || strings.HasPrefix(lower, "postgresql://") || strings.Contains(lower, "host=")
}

// SetEnvValue writes key=value into the workspace .env, keeping other keys.
func SetEnvValue(workspace, key, value string) error {
	path := EnvPath(workspace)
	values := map[string]string{}
	if existing, err := godotenv.Read(path); err == nil {
		values = existing
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("read %s: %w", path, err)
	}
	values[key] = value
	if err := godotenv.Write(values, path); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return os.Setenv(key, value)
}
