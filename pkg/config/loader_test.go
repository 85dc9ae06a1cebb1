package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

type testConfig struct {
	DB     DBConfig     `yaml:"db"`
	MQ     MQConfig     `yaml:"mq"`
	JWT    JWTConfig    `yaml:"jwt"`
	Server ServerConfig `yaml:"server"`
	Outbox OutboxConfig `yaml:"outbox"`
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
}

func TestLoadInto_LayersAndPlaceholders(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "base.yaml", `
server:
  port: ":8080"
db:
  host: localhost
  port: 5432
  password: ${PF_TEST_DB_PASSWORD}
jwt:
  secret: ${PF_TEST_JWT_SECRET}
`)
	writeFile(t, dir, "staging.yaml", `
db:
  host: postgres
mq:
  enabled: true
outbox:
  interval: 2s
`)
	writeFile(t, dir, "secrets.env", "PF_TEST_JWT_SECRET=from-secrets\nPF_TEST_DB_PASSWORD=from-secrets\n")
	t.Setenv("PF_TEST_DB_PASSWORD", "from-env")
	t.Cleanup(func() { os.Unsetenv("PF_TEST_JWT_SECRET") })

	var cfg testConfig
	if err := LoadInto("staging", dir, &cfg); err != nil {
		t.Fatalf("LoadInto() error = %v", err)
	}

	if cfg.DB.Host != "postgres" || cfg.DB.Port != 5432 {
		t.Errorf("db = %+v, want host overridden and port kept", cfg.DB)
	}
	if !cfg.MQ.Enabled || cfg.Server.Port != ":8080" {
		t.Errorf("mq=%+v server=%+v", cfg.MQ, cfg.Server)
	}
	if cfg.Outbox.Interval != 2*time.Second {
		t.Errorf("outbox interval = %v", cfg.Outbox.Interval)
	}
	if cfg.JWT.Secret != "from-secrets" {
		t.Errorf("jwt secret = %q", cfg.JWT.Secret)
	}
	if cfg.DB.Password != "from-env" {
		t.Errorf("process env should win over secrets.env, got %q", cfg.DB.Password)
	}
}

func TestLoadInto_MissingOptionalFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "base.yaml", "server:\n  port: \":9000\"\n")

	var cfg testConfig
	if err := LoadInto("local", dir, &cfg); err != nil {
		t.Fatalf("LoadInto() error = %v", err)
	}
	if cfg.Server.Port != ":9000" {
		t.Errorf("port = %q", cfg.Server.Port)
	}
}

func TestLoadInto_MissingBase(t *testing.T) {
	var cfg testConfig
	if err := LoadInto("local", t.TempDir(), &cfg); err == nil {
		t.Error("expected error without base.yaml")
	}
}
