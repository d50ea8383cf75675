package config

import (
	"fmt"
	"net/url"
)

// Validate checks the configuration for invalid values.
func Validate(cfg *Config) error {
	if cfg.Engine.Threads < 0 {
		return fmt.Errorf("engine.threads must be >= 0 (0 means runtime.NumCPU()), got %d", cfg.Engine.Threads)
	}
	if cfg.Engine.QueueFactor < 1 {
		return fmt.Errorf("engine.queue_factor must be >= 1, got %d", cfg.Engine.QueueFactor)
	}
	if cfg.Engine.Retries < 0 {
		return fmt.Errorf("engine.retries must be >= 0, got %d", cfg.Engine.Retries)
	}

	if cfg.Fetcher.Timeout <= 0 {
		return fmt.Errorf("fetcher.timeout must be > 0")
	}

	validBackends := map[string]bool{"memory": true, "sqlite": true, "redis": true}
	if !validBackends[cfg.Store.Backend] {
		return fmt.Errorf("store.backend must be one of memory/sqlite/redis, got %q", cfg.Store.Backend)
	}
	if cfg.Store.Backend == "sqlite" && cfg.Store.SQLitePath == "" {
		return fmt.Errorf("store.sqlite_path is required when store.backend is sqlite")
	}
	if cfg.Store.Backend == "redis" && cfg.Store.RedisAddr == "" {
		return fmt.Errorf("store.redis_addr is required when store.backend is redis")
	}

	for _, site := range cfg.Sites {
		if site.Host == "" {
			return fmt.Errorf("sites: host must not be empty")
		}
		if site.Proxy != "" {
			if _, err := url.Parse(site.Proxy); err != nil {
				return fmt.Errorf("sites[%s]: invalid proxy URL %q: %w", site.Host, site.Proxy, err)
			}
		}
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[cfg.Logging.Level] {
		return fmt.Errorf("logging.level must be debug/info/warn/error, got %q", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "text" && cfg.Logging.Format != "json" {
		return fmt.Errorf("logging.format must be 'text' or 'json', got %q", cfg.Logging.Format)
	}

	return nil
}

// ValidateURL checks if a URL string is valid for crawling.
func ValidateURL(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("URL scheme must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("URL must have a host")
	}
	return nil
}
