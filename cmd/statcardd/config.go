package main

import (
	"statcard-backend/lib/configuration"
)

type TelegramConfig struct {
	Token string `json:"token"`
}

type FetcherConfig struct {
	// defaults to https://faceitanalyser.com
	BaseUrl string `json:"base_url"`
	// per-fetch navigation + readiness budget, defaults to 30
	TimeoutSeconds int `json:"timeout_seconds"`
	// concurrent browser pages, defaults to 2
	MaxSessions int `json:"max_sessions"`
	// path to a system chromium, leave empty to use the driver-managed one
	ChromiumPath string `json:"chromium_path"`
}

type RedisConfig struct {
	Addr     string `json:"addr"`
	Password string `json:"password"`
	DB       int    `json:"db"`
}

type CacheConfig struct {
	// "memory", "sqlite" or "redis", defaults to memory
	Backend string `json:"backend"`
	// how long a fetched record stays servable, defaults to 120
	WindowSeconds int         `json:"window_seconds"`
	Redis         RedisConfig `json:"redis"`
}

type Config struct {
	Telegram TelegramConfig         `json:"telegram"`
	Database configuration.Database `json:"database"`
	Fetcher  FetcherConfig          `json:"fetcher"`
	Cache    CacheConfig            `json:"cache"`
	// directory holding template.png and the card fonts
	AssetsDir string `json:"assets_dir"`
	// http port for the card endpoint, defaults to 9280
	Port  int  `json:"port"`
	Debug bool `json:"debug"`
}

func (c *Config) applyDefaults() {
	if c.Fetcher.BaseUrl == "" {
		c.Fetcher.BaseUrl = "https://faceitanalyser.com"
	}
	if c.Fetcher.TimeoutSeconds <= 0 {
		c.Fetcher.TimeoutSeconds = 30
	}
	if c.Fetcher.MaxSessions <= 0 {
		c.Fetcher.MaxSessions = 2
	}
	if c.Cache.Backend == "" {
		c.Cache.Backend = "memory"
	}
	if c.Cache.WindowSeconds <= 0 {
		c.Cache.WindowSeconds = 120
	}
	if c.AssetsDir == "" {
		c.AssetsDir = "assets"
	}
	if c.Port <= 0 {
		c.Port = 9280
	}
}
