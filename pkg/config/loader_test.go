package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func TestLoadConfigBaseOnly(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "base.yaml", "db:\n  host: localhost\n  port: 5432\n")

	cfg, err := LoadConfig("local", dir)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	db, ok := cfg["db"].(map[string]interface{})
	if !ok {
		t.Fatalf("db section missing: %v", cfg)
	}
	if db["host"] != "localhost" {
		t.Fatalf("host = %v, want localhost", db["host"])
	}
}

func TestLoadConfigEnvOverlay(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "base.yaml", "db:\n  host: localhost\n  port: 5432\nserver:\n  port: \"8080\"\n")
	writeFile(t, dir, "production.yaml", "db:\n  host: db.internal\n")

	cfg, err := LoadConfig("production", dir)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	db := cfg["db"].(map[string]interface{})
	if db["host"] != "db.internal" {
		t.Fatalf("host = %v, want db.internal", db["host"])
	}
	// Untouched keys survive the merge.
	if db["port"] != 5432 {
		t.Fatalf("port = %v, want 5432", db["port"])
	}
	server := cfg["server"].(map[string]interface{})
	if server["port"] != "8080" {
		t.Fatalf("server port = %v, want 8080", server["port"])
	}
}

func TestLoadConfigSecretsSubstitution(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "base.yaml", "jwt:\n  secret: ${JWT_SECRET}\n")
	writeFile(t, dir, "secrets.env", "# comment line\nJWT_SECRET=\"super-secret\"\n")

	cfg, err := LoadConfig("local", dir)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	jwt := cfg["jwt"].(map[string]interface{})
	if jwt["secret"] != "super-secret" {
		t.Fatalf("secret = %v, want super-secret", jwt["secret"])
	}
}

func TestLoadConfigMissingBaseFails(t *testing.T) {
	if _, err := LoadConfig("local", t.TempDir()); err == nil {
		t.Fatal("expected error for missing base.yaml")
	}
}

func TestLoadConfigMissingEnvOverlayIsFine(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "base.yaml", "mq:\n  url: amqp://localhost\n")

	if _, err := LoadConfig("staging", dir); err != nil {
		t.Fatalf("load: %v", err)
	}
}

func TestOverrideDBFromEnv(t *testing.T) {
	t.Setenv("DB_HOST", "override-host")
	t.Setenv("DB_PORT", "6543")

	cfg := DBConfig{Host: "localhost", Port: 5432, Name: "renomarket"}
	OverrideDBFromEnv(&cfg)

	if cfg.Host != "override-host" {
		t.Fatalf("host = %q, want override-host", cfg.Host)
	}
	if cfg.Port != 6543 {
		t.Fatalf("port = %d, want 6543", cfg.Port)
	}
	if cfg.Name != "renomarket" {
		t.Fatalf("name = %q changed without env var", cfg.Name)
	}
}

func TestGetConfigEnvDefault(t *testing.T) {
	t.Setenv("CONFIG_ENV", "")
	if got := GetConfigEnv(); got != "local" {
		t.Fatalf("env = %q, want local", got)
	}
}
