package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// LoadInto decodes the layered configuration into out:
// secrets.env -> base.yaml -> {env}.yaml. Later files only override the keys
// they set. ${VAR} placeholders are expanded from the process environment.
func LoadInto(env, configDir string, out any) error {
	if configDir == "" {
		configDir = "config"
	}

	// secrets.env 写入进程环境（已存在的变量不会被覆盖）
	secretsFile := filepath.Join(configDir, "secrets.env")
	if err := godotenv.Load(secretsFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to load secrets.env: %w", err)
	}

	if err := decodeFile(filepath.Join(configDir, "base.yaml"), out); err != nil {
		return fmt.Errorf("failed to load base.yaml: %w", err)
	}

	if env == "" || env == "base" {
		return nil
	}
	err := decodeFile(filepath.Join(configDir, env+".yaml"), out)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to load %s.yaml: %w", env, err)
	}
	return nil
}

func decodeFile(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	expanded := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expanded), out); err != nil {
		return fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	return nil
}

// GetEnv 获取环境变量，如果未设置则返回默认值
func GetEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// GetConfigEnv 获取配置环境（从环境变量 CONFIG_ENV，默认为 local）
func GetConfigEnv() string {
	return GetEnv("CONFIG_ENV", "local")
}
