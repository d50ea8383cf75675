package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Load reads configuration from file and environment over the defaults.
// Priority (highest to lowest): env vars > config file > defaults. CLI flags
// are not read here; cmd/webstalk applies its flag overrides after Load.
func Load(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	v := viper.New()
	v.SetConfigType("yaml")

	setDefaults(v, cfg)

	v.SetEnvPrefix("WEBSTALK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("webstalk")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		home, err := os.UserHomeDir()
		if err == nil {
			v.AddConfigPath(filepath.Join(home, ".webstalk"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && configPath != "" {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return cfg, nil
}

// LoadFromFile reads configuration from a specific file path.
func LoadFromFile(path string) (*Config, error) {
	return Load(path)
}

func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("engine.threads", cfg.Engine.Threads)
	v.SetDefault("engine.queue_factor", cfg.Engine.QueueFactor)
	v.SetDefault("engine.retries", cfg.Engine.Retries)

	v.SetDefault("fetcher.timeout", cfg.Fetcher.Timeout)
	v.SetDefault("fetcher.user_agents", cfg.Fetcher.UserAgents)

	v.SetDefault("store.backend", cfg.Store.Backend)
	v.SetDefault("store.sqlite_table", cfg.Store.SQLiteTable)
	v.SetDefault("store.redis_prefix", cfg.Store.RedisPrefix)
	v.SetDefault("store.dial_timeout", cfg.Store.DialTimeout)

	v.SetDefault("collector.log", cfg.Collector.Log)
	v.SetDefault("collector.excel_sheet", cfg.Collector.ExcelSheet)
	v.SetDefault("collector.excel_flush", cfg.Collector.ExcelFlush)

	v.SetDefault("logging.level", cfg.Logging.Level)
	v.SetDefault("logging.format", cfg.Logging.Format)
	v.SetDefault("logging.output", cfg.Logging.Output)
}
