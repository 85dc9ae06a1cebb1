package config

import (
	"time"

	pkgconfig "projectflow/pkg/config"
)

type Config struct {
	DB     pkgconfig.DBConfig     `yaml:"db"`
	MQ     pkgconfig.MQConfig     `yaml:"mq"`
	Redis  pkgconfig.RedisConfig  `yaml:"redis"`
	JWT    pkgconfig.JWTConfig    `yaml:"jwt"`
	Server pkgconfig.ServerConfig `yaml:"server"`
	Log    pkgconfig.LogConfig    `yaml:"log"`
	Otel   pkgconfig.OtelConfig   `yaml:"otel"`
	Outbox pkgconfig.OutboxConfig `yaml:"outbox"`
}

// Load reads config/base.yaml plus the environment overlay, then applies
// environment variable overrides (生产环境使用).
func Load(env, dir string) (*Config, error) {
	var cfg Config
	if err := pkgconfig.LoadInto(env, dir, &cfg); err != nil {
		return nil, err
	}
	overrideFromEnv(&cfg)
	applyDefaults(&cfg)
	return &cfg, nil
}

func overrideFromEnv(cfg *Config) {
	pkgconfig.OverrideDBFromEnv(&cfg.DB)
	pkgconfig.OverrideMQFromEnv(&cfg.MQ)
	pkgconfig.OverrideRedisFromEnv(&cfg.Redis)
	pkgconfig.OverrideJWTFromEnv(&cfg.JWT)
	pkgconfig.OverrideServerFromEnv(&cfg.Server)
	pkgconfig.OverrideLogFromEnv(&cfg.Log)
	pkgconfig.OverrideOtelFromEnv(&cfg.Otel)
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Port == "" {
		cfg.Server.Port = ":8080"
	}
	if cfg.Outbox.Interval <= 0 {
		cfg.Outbox.Interval = time.Second
	}
	if cfg.Outbox.MaxRetries <= 0 {
		cfg.Outbox.MaxRetries = 5
	}
	if cfg.Outbox.BatchSize <= 0 {
		cfg.Outbox.BatchSize = 100
	}
	if cfg.Otel.ServiceName == "" {
		cfg.Otel.ServiceName = "projectflow"
	}
}
