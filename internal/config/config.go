package config

import "time"

// Version is set at build time via ldflags.
var Version = "dev"

// Config is the root configuration consumed by cmd/webstalk and by backend
// constructors (§2.1) — the Engine core itself is never configured from
// this struct directly, only via functional options / explicit fields.
type Config struct {
	Engine    EngineConfig    `mapstructure:"engine"    yaml:"engine"`
	Fetcher   FetcherConfig   `mapstructure:"fetcher"   yaml:"fetcher"`
	Store     StoreConfig     `mapstructure:"store"     yaml:"store"`
	Sites     []SiteConfig    `mapstructure:"sites"     yaml:"sites"`
	Collector CollectorConfig `mapstructure:"collector" yaml:"collector"`
	Logging   LoggingConfig   `mapstructure:"logging"   yaml:"logging"`
}

// EngineConfig controls the dispatcher/worker pool (§4.9, §6).
type EngineConfig struct {
	Threads     int `mapstructure:"threads"      yaml:"threads"`
	QueueFactor int `mapstructure:"queue_factor"  yaml:"queue_factor"`
	Retries     int `mapstructure:"retries"      yaml:"retries"`
}

// FetcherConfig controls the HTTPDownloader (§4.8).
type FetcherConfig struct {
	// Timeout is validated and printed by the config command, but it is not
	// passed to the HTTPDownloader, which uses each Site's timeout or 30s.
	Timeout        time.Duration     `mapstructure:"timeout"         yaml:"timeout"`
	UserAgents     []string          `mapstructure:"user_agents"     yaml:"user_agents"`
	DefaultHeaders map[string]string `mapstructure:"default_headers" yaml:"default_headers"`
}

// StoreConfig selects and configures one Store backend (§4.3).
type StoreConfig struct {
	Backend     string        `mapstructure:"backend"      yaml:"backend"` // memory | sqlite | redis
	SQLitePath  string        `mapstructure:"sqlite_path"  yaml:"sqlite_path"`
	SQLiteTable string        `mapstructure:"sqlite_table" yaml:"sqlite_table"`
	RedisAddr   string        `mapstructure:"redis_addr"   yaml:"redis_addr"`
	RedisPrefix string        `mapstructure:"redis_prefix" yaml:"redis_prefix"`
	RedisDB     int           `mapstructure:"redis_db"     yaml:"redis_db"`
	DialTimeout time.Duration `mapstructure:"dial_timeout" yaml:"dial_timeout"`
}

// SiteConfig configures one host pattern's politeness settings (§3).
type SiteConfig struct {
	Host             string            `mapstructure:"host"               yaml:"host"`
	Proxy            string            `mapstructure:"proxy"              yaml:"proxy"`
	Encoding         string            `mapstructure:"encoding"           yaml:"encoding"`
	Timeout          time.Duration     `mapstructure:"timeout"            yaml:"timeout"`
	Headers          map[string]string `mapstructure:"headers"            yaml:"headers"`
	RateInterval     time.Duration     `mapstructure:"rate_interval"      yaml:"rate_interval"`
	RateCapacity     int               `mapstructure:"rate_capacity"      yaml:"rate_capacity"`
}

// CollectorConfig configures the optional external sinks (§L10, §2.3).
type CollectorConfig struct {
	Log          bool   `mapstructure:"log"           yaml:"log"`
	ExcelPath    string `mapstructure:"excel_path"    yaml:"excel_path"`
	ExcelSheet   string `mapstructure:"excel_sheet"   yaml:"excel_sheet"`
	ExcelFlush   int    `mapstructure:"excel_flush"   yaml:"excel_flush"`
	MongoURI     string `mapstructure:"mongo_uri"     yaml:"mongo_uri"`
	MongoDB      string `mapstructure:"mongo_db"      yaml:"mongo_db"`
	MongoColl    string `mapstructure:"mongo_coll"    yaml:"mongo_coll"`
}

// LoggingConfig holds slog handler settings (§2.1). Validate checks Level and
// Format, but cmd/webstalk does not read them: its logger is always a text
// handler on stderr, at debug level with --verbose and info otherwise.
type LoggingConfig struct {
	Level  string `mapstructure:"level"  yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"` // text | json
	Output string `mapstructure:"output" yaml:"output"` // stdout | stderr
}

// DefaultConfig returns a Config with sensible defaults: in-memory store,
// runtime.NumCPU() threads (left at 0 here — Engine.New fills it in),
// queueFactor 2, retries 1, 30s fetch timeout.
func DefaultConfig() *Config {
	return &Config{
		Engine: EngineConfig{
			Threads:     0,
			QueueFactor: 2,
			Retries:     1,
		},
		Fetcher: FetcherConfig{
			Timeout: 30 * time.Second,
			UserAgents: []string{
				"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
				"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
			},
		},
		Store: StoreConfig{
			Backend:     "memory",
			SQLiteTable: "webstalk_frontier",
			RedisPrefix: "webstalk",
			DialTimeout: 5 * time.Second,
		},
		Collector: CollectorConfig{
			Log:        true,
			ExcelSheet: "Sheet1",
			ExcelFlush: 50,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stderr",
		},
	}
}
