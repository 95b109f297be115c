package config

import (
	"errors"
	"io/fs"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		TTL      string `yaml:"ttl"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	AMQP struct {
		URL      string `yaml:"url"`
		Exchange string `yaml:"exchange"`
	} `yaml:"amqp"`
	Auth struct {
		Secret   string `yaml:"secret"`
		TokenTTL string `yaml:"tokenTtl"`
	} `yaml:"auth"`
	Quiz struct {
		Mode               string `yaml:"mode"`
		SecondsPerQuestion int    `yaml:"secondsPerQuestion"`
		TotalQuestions     int    `yaml:"totalQuestions"`
		AnswerTTL          string `yaml:"answerTtl"`
		ReportTimeout      string `yaml:"reportTimeout"`
	} `yaml:"quiz"`
	Source struct {
		Server string `yaml:"server"`
		Token  string `yaml:"token"`
		Judge  string `yaml:"judge"`
	} `yaml:"source"`
}

// Default returns the settings used when no file is present.
func Default() Config {
	cfg := Config{}
	cfg.Server.Port = "8080"
	cfg.Auth.Secret = "dev-secret-change-me"
	cfg.Auth.TokenTTL = "24h"
	cfg.Quiz.Mode = "assignment"
	cfg.Quiz.SecondsPerQuestion = 10
	cfg.Quiz.TotalQuestions = 10
	cfg.Quiz.AnswerTTL = "30m"
	cfg.Quiz.ReportTimeout = "5s"
	cfg.Source.Server = "http://localhost:8080"
	cfg.Source.Judge = "server"
	return cfg
}

// Load reads YAML config from path on top of Default.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// LoadOptional is Load, except a missing file yields Default.
func LoadOptional(path string) (Config, error) {
	cfg, err := Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Default(), nil
	}
	return cfg, err
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
