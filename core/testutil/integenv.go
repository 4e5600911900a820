// Package testutil provides shared helpers for tests that talk to real services.
package testutil

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

var (
	integEnvOnce sync.Once
	integEnvVars map[string]string
)

// IntegEnvFile returns the path of the optional file holding integration settings.
func IntegEnvFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "todosync", ".env.integ-test")
}

func loadIntegEnvFile() map[string]string {
	integEnvOnce.Do(func() {
		integEnvVars = parseEnvFile(IntegEnvFile())
	})
	return integEnvVars
}

func parseEnvFile(path string) map[string]string {
	vars := map[string]string{}
	if path == "" {
		return vars
	}
	f, err := os.Open(path)
	if err != nil {
		return vars
	}
	defer func() { _ = f.Close() }()
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimPrefix(line, "export ")
		if k, v, ok := strings.Cut(line, "="); ok {
			vars[strings.TrimSpace(k)] = strings.Trim(strings.TrimSpace(v), `"'`)
		}
	}
	return vars
}

// IntegEnv returns key from the environment, falling back to IntegEnvFile.
func IntegEnv(key string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return loadIntegEnvFile()[key]
}

// IntegEnvOrSkip returns the values of keys or skips t when any is missing or -short is set.
func IntegEnvOrSkip(t *testing.T, keys ...string) map[string]string {
	t.Helper()
	if testing.Short() {
		t.Skip("integration test")
	}
	vals := make(map[string]string, len(keys))
	for _, k := range keys {
		v := IntegEnv(k)
		if v == "" {
			t.Skipf("%s required (env var or %s)", k, IntegEnvFile())
		}
		vals[k] = v
	}
	return vals
}
