package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"PORT", "STORE_DRIVER", "STORE_DSN", "REDIS_ADDR", "REDIS_PASSWORD", "EVENTS_DRIVER", "RABBITMQ_URL", "LOG_LEVEL", "LOG_FORMAT", EnvConfigPath} {
		t.Setenv(key, "")
	}
}

func TestLoadYAML(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, t.TempDir(), "taskpager.yaml", `
server:
  address: ":9000"
storage:
  driver: MySQL
  mysql:
    dsn: "user:pass@tcp(localhost:3306)/tasks"
    max_open_conns: 5
log:
  level: debug
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Address != ":9000" {
		t.Fatalf("unexpected address: %s", cfg.Server.Address)
	}
	if cfg.Storage.Driver != "mysql" || cfg.Storage.MySQL.MaxOpenConns != 5 {
		t.Fatalf("unexpected storage: %+v", cfg.Storage)
	}
	if cfg.Log.Level != "debug" || cfg.Log.Format != "json" {
		t.Fatalf("unexpected log config: %+v", cfg.Log)
	}
	if cfg.Events.Driver != "memory" || cfg.Events.BufferSize != 1024 {
		t.Fatalf("unexpected events defaults: %+v", cfg.Events)
	}
}

func TestLoadJSONWithEnvOverrides(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, t.TempDir(), "taskpager.json", `{"storage":{"driver":"memory"}}`)
	t.Setenv("PORT", "4100")
	t.Setenv("STORE_DRIVER", "redis")
	t.Setenv("REDIS_ADDR", "127.0.0.1:6379")
	t.Setenv("EVENTS_DRIVER", "redis")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Address != ":4100" {
		t.Fatalf("PORT override ignored: %s", cfg.Server.Address)
	}
	if cfg.Storage.Driver != "redis" || cfg.Storage.Redis.Address != "127.0.0.1:6379" {
		t.Fatalf("unexpected storage: %+v", cfg.Storage)
	}
	if cfg.Events.RedisKey != "taskpager:events" {
		t.Fatalf("unexpected redis key: %s", cfg.Events.RedisKey)
	}
}

func TestLoadRejectsInvalidCombinations(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	cases := map[string]string{
		"mysql_without_dsn.json":   `{"storage":{"driver":"mysql"}}`,
		"unknown_driver.json":      `{"storage":{"driver":"mongo"}}`,
		"rabbit_without_url.json":  `{"events":{"driver":"rabbitmq"}}`,
		"redis_events_no_addr.yml": "events:\n  driver: redis\n",
		"broken.json":              `{"storage":`,
	}
	for name, content := range cases {
		path := writeFile(t, dir, name, content)
		if _, err := Load(path); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
	if _, err := Load(""); err == nil {
		t.Fatalf("expected error for empty path")
	}
	if _, err := Load(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestLoadRejectsInvalidPort(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, t.TempDir(), "c.json", `{}`)
	t.Setenv("PORT", "http")
	if _, err := Load(path); err == nil {
		t.Fatalf("expected error for invalid PORT")
	}
}

func TestLoadFromEnvDefaults(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })

	writeFile(t, dir, ".env", "LOG_FORMAT=text\n")
	t.Setenv("LOG_FORMAT", "")
	os.Unsetenv("LOG_FORMAT")

	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("load from env: %v", err)
	}
	if cfg.Server.Address != ":4000" || cfg.Storage.Driver != "memory" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.Log.Format != "text" {
		t.Fatalf(".env value not applied: %+v", cfg.Log)
	}
}

func TestLoadFromEnvUsesConfigPath(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, t.TempDir(), "custom.yaml", "server:\n  address: \":7000\"\n")
	t.Setenv(EnvConfigPath, path)

	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("load from env: %v", err)
	}
	if cfg.Server.Address != ":7000" {
		t.Fatalf("unexpected address: %s", cfg.Server.Address)
	}
	if cfg.Server.ShutdownTimeout().Seconds() != 5 {
		t.Fatalf("unexpected shutdown timeout: %v", cfg.Server.ShutdownTimeout())
	}
}
