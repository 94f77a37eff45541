// Package config loads and validates scanner configuration via Viper.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// DefaultUserAgent mimics a desktop browser so career pages serve full markup.
const DefaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 " +
	"(KHTML, like Gecko) Chrome/127.0.0.0 Safari/537.36"

// Storage drivers accepted by storage.driver.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Config captures all scanner configuration knobs loaded via Viper.
type Config struct {
	Logging   LoggingConfig   `mapstructure:"logging"`
	Fetch     FetchConfig     `mapstructure:"fetch"`
	Scan      ScanConfig      `mapstructure:"scan"`
	Discovery DiscoveryConfig `mapstructure:"discovery"`
	Lever     LeverConfig     `mapstructure:"lever"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Export    ExportConfig    `mapstructure:"export"`
	Notify    NotifyConfig    `mapstructure:"notify"`
	Server    ServerConfig    `mapstructure:"server"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// FetchConfig controls the outbound HTTP client.
type FetchConfig struct {
	UserAgent     string        `mapstructure:"user_agent"`
	Timeout       time.Duration `mapstructure:"timeout"`
	MinInterval   time.Duration `mapstructure:"min_interval"`
	RespectRobots bool          `mapstructure:"respect_robots"`
}

// ScanConfig governs matching and fan-out of a scan run.
type ScanConfig struct {
	Keywords    []string `mapstructure:"keywords"`
	BonusTerms  []string `mapstructure:"bonus_terms"`
	SeedURLs    []string `mapstructure:"seed_urls"`
	MaxInFlight int      `mapstructure:"max_in_flight"`
	Schedule    string   `mapstructure:"schedule"`
}

// DiscoveryConfig configures the search API used to find candidate URLs.
type DiscoveryConfig struct {
	SerpAPIKey      string        `mapstructure:"serpapi_key"`
	SerpAPIURL      string        `mapstructure:"serpapi_url"`
	Sites           []string      `mapstructure:"sites"`
	ResultsPerQuery int           `mapstructure:"results_per_query"`
	RedisURL        string        `mapstructure:"redis_url"`
	CacheTTL        time.Duration `mapstructure:"cache_ttl"`
}

// LeverConfig points at the Lever postings API.
type LeverConfig struct {
	APIBase string `mapstructure:"api_base"`
}

// StorageConfig selects and configures the posting store.
type StorageConfig struct {
	Driver      string `mapstructure:"driver"`
	SQLitePath  string `mapstructure:"sqlite_path"`
	PostgresDSN string `mapstructure:"postgres_dsn"`
	Table       string `mapstructure:"table"`
}

// ExportConfig sets the CSV destination and optional GCS upload.
type ExportConfig struct {
	CSVPath   string `mapstructure:"csv_path"`
	GCSBucket string `mapstructure:"gcs_bucket"`
	GCSPrefix string `mapstructure:"gcs_prefix"`
}

// NotifyConfig holds the optional notification channels.
type NotifyConfig struct {
	SlackWebhookURL string       `mapstructure:"slack_webhook_url"`
	SMTP            SMTPConfig   `mapstructure:"smtp"`
	PubSub          PubSubConfig `mapstructure:"pubsub"`
}

// SMTPConfig configures the email digest.
type SMTPConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	User string `mapstructure:"user"`
	Pass string `mapstructure:"pass"`
	From string `mapstructure:"from"`
	To   string `mapstructure:"to"`
}

// Enabled reports whether enough is set to attempt delivery.
func (c SMTPConfig) Enabled() bool {
	return c.Host != "" && c.To != ""
}

// PubSubConfig holds metadata for publish-subscribe notifications.
type PubSubConfig struct {
	ProjectID string `mapstructure:"project_id"`
	Topic     string `mapstructure:"topic"`
}

// ServerConfig controls HTTP server behavior in serve mode.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// legacyEnv maps config keys to the bare environment names operators already use.
var legacyEnv = map[string]string{
	"discovery.serpapi_key":    "SERPAPI_KEY",
	"discovery.redis_url":      "REDIS_URL",
	"storage.postgres_dsn":     "DATABASE_URL",
	"notify.slack_webhook_url": "SLACK_WEBHOOK_URL",
	"notify.smtp.host":         "SMTP_HOST",
	"notify.smtp.port":         "SMTP_PORT",
	"notify.smtp.user":         "SMTP_USER",
	"notify.smtp.pass":         "SMTP_PASS",
	"notify.smtp.to":           "SMTP_TO",
}

// Load builds a Config from disk/environment. A .env file next to the
// working directory is read first when present.
func Load(path string) (Config, error) {
	if err := loadDotEnv(".env"); err != nil {
		return Config{}, err
	}

	v := viper.New()
	v.SetEnvPrefix("SCANNER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, env := range legacyEnv {
		if err := v.BindEnv(key, "SCANNER_"+strings.ToUpper(strings.ReplaceAll(key, ".", "_")), env); err != nil {
			return Config{}, fmt.Errorf("bind env %s: %w", env, err)
		}
	}

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func loadDotEnv(path string) error {
	err := godotenv.Load(filepath.Clean(path))
	if err == nil || errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("load %s: %w", path, err)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("logging.development", true)
	v.SetDefault("fetch.user_agent", DefaultUserAgent)
	v.SetDefault("fetch.timeout", 20*time.Second)
	v.SetDefault("fetch.min_interval", time.Second)
	v.SetDefault("fetch.respect_robots", false)
	v.SetDefault("scan.keywords", DefaultKeywords)
	v.SetDefault("scan.bonus_terms", DefaultBonusTerms)
	v.SetDefault("scan.seed_urls", []string{})
	v.SetDefault("scan.max_in_flight", 0)
	v.SetDefault("scan.schedule", "@every 24h")
	v.SetDefault("discovery.serpapi_url", "https://serpapi.com/search.json")
	v.SetDefault("discovery.sites", DefaultSites)
	v.SetDefault("discovery.results_per_query", 10)
	v.SetDefault("discovery.cache_ttl", 6*time.Hour)
	v.SetDefault("lever.api_base", "https://api.lever.co")
	v.SetDefault("storage.driver", DriverSQLite)
	v.SetDefault("storage.sqlite_path", "jobs.db")
	v.SetDefault("storage.table", "jobs")
	v.SetDefault("export.csv_path", "jobs.csv")
	v.SetDefault("export.gcs_prefix", "exports")
	v.SetDefault("notify.smtp.port", 587)
	v.SetDefault("server.port", 8080)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Fetch.Timeout <= 0 {
		return fmt.Errorf("fetch.timeout must be > 0")
	}
	if c.Fetch.MinInterval < 0 {
		return fmt.Errorf("fetch.min_interval must be >= 0")
	}
	if len(c.Scan.Keywords) == 0 {
		return fmt.Errorf("scan.keywords must not be empty")
	}
	if c.Scan.MaxInFlight < 0 {
		return fmt.Errorf("scan.max_in_flight must be >= 0")
	}
	switch c.Storage.Driver {
	case DriverSQLite:
		if c.Storage.SQLitePath == "" {
			return fmt.Errorf("storage.sqlite_path is required for the sqlite driver")
		}
	case DriverPostgres:
		if c.Storage.PostgresDSN == "" {
			return fmt.Errorf("storage.postgres_dsn is required for the postgres driver")
		}
	case DriverMemory:
	default:
		return fmt.Errorf("storage.driver %q is not supported", c.Storage.Driver)
	}
	if c.Lever.APIBase != "" {
		if _, err := url.ParseRequestURI(c.Lever.APIBase); err != nil {
			return fmt.Errorf("lever.api_base is not a valid URL: %w", err)
		}
	}
	if c.Export.CSVPath == "" {
		return fmt.Errorf("export.csv_path is required")
	}
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	return nil
}

// DatabaseLabel names the configured store for summaries and logs.
func (c Config) DatabaseLabel() string {
	switch c.Storage.Driver {
	case DriverSQLite:
		return c.Storage.SQLitePath
	case DriverPostgres:
		return "postgres:" + c.Storage.Table
	default:
		return c.Storage.Driver
	}
}
