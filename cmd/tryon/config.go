package main

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"outfitlens/internal/i18n"
	"outfitlens/internal/wizard"
)

// Config is read from a YAML file; OUTFITLENS_* variables override it.
//
//	server: http://localhost:8080
//	email: ana@example.com
//	password: correct-horse
//	locale: id
//	poll_interval: 2s
type Config struct {
	Server       string `yaml:"server"`
	Email        string `yaml:"email"`
	Password     string `yaml:"password"`
	FullName     string `yaml:"full_name"`
	Locale       string `yaml:"locale"`
	PollInterval string `yaml:"poll_interval"`
	Timeout      string `yaml:"timeout"`
}

// Settings is the validated form of Config.
type Settings struct {
	Server       string
	Email        string
	Password     string
	FullName     string
	Locale       string
	PollInterval time.Duration
	Timeout      time.Duration
}

func loadConfig(path string) (Settings, error) {
	var cfg Config
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return Settings{}, fmt.Errorf("failed to parse YAML: %w", err)
			}
		case errors.Is(err, os.ErrNotExist) && path == defaultConfigPath:
			// the default file is optional
		default:
			return Settings{}, err
		}
	}
	cfg.applyEnv()
	return cfg.settings()
}

func (c *Config) applyEnv() {
	override := func(dst *string, key string) {
		if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
			*dst = v
		}
	}
	override(&c.Server, "OUTFITLENS_SERVER")
	override(&c.Email, "OUTFITLENS_EMAIL")
	override(&c.Password, "OUTFITLENS_PASSWORD")
	override(&c.FullName, "OUTFITLENS_FULL_NAME")
	override(&c.Locale, "OUTFITLENS_LOCALE")
	override(&c.PollInterval, "OUTFITLENS_POLL_INTERVAL")
	override(&c.Timeout, "OUTFITLENS_TIMEOUT")
}

func (c Config) settings() (Settings, error) {
	s := Settings{
		Server:       strings.TrimRight(strings.TrimSpace(c.Server), "/"),
		Email:        strings.TrimSpace(c.Email),
		Password:     c.Password,
		FullName:     strings.TrimSpace(c.FullName),
		Locale:       i18n.Normalize(c.Locale),
		PollInterval: wizard.DefaultPollInterval,
		Timeout:      5 * time.Minute,
	}
	if s.Server == "" {
		s.Server = "http://localhost:8080"
	}
	if c.PollInterval != "" {
		d, err := time.ParseDuration(c.PollInterval)
		if err != nil || d <= 0 {
			return Settings{}, fmt.Errorf("invalid poll_interval %q", c.PollInterval)
		}
		s.PollInterval = d
	}
	if c.Timeout != "" {
		d, err := time.ParseDuration(c.Timeout)
		if err != nil || d <= 0 {
			return Settings{}, fmt.Errorf("invalid timeout %q", c.Timeout)
		}
		s.Timeout = d
	}
	return s, nil
}
