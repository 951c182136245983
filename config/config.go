package config

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config holds the full application configuration.
type Config struct {
	Log   LogConfig   `yaml:"log" mapstructure:"log"`
	Fetch FetchConfig `yaml:"fetch" mapstructure:"fetch"`
	Crawl CrawlConfig `yaml:"crawl" mapstructure:"crawl"`
	Paths PathsConfig `yaml:"paths" mapstructure:"paths"`
}

// LogConfig configures the zap logger.
type LogConfig struct {
	Level     string `yaml:"level" mapstructure:"level"`
	Format    string `yaml:"format" mapstructure:"format"` // console or json
	File      string `yaml:"file" mapstructure:"file"`     // optional rotating log file
	FileLevel string `yaml:"file_level" mapstructure:"file_level"`
	MaxSizeMB int    `yaml:"max_size_mb" mapstructure:"max_size_mb"`
}

// FetchConfig configures the page fetcher.
type FetchConfig struct {
	TimeoutSecs int      `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	UserAgent   string   `yaml:"user_agent" mapstructure:"user_agent"`
	RatePerSec  float64  `yaml:"rate_per_sec" mapstructure:"rate_per_sec"`
	Proxies     []string `yaml:"proxies" mapstructure:"proxies"`
}

func (f FetchConfig) Timeout() time.Duration {
	return time.Duration(f.TimeoutSecs) * time.Second
}

// CrawlConfig bounds the roster crawl.
type CrawlConfig struct {
	MaxPages int `yaml:"max_pages" mapstructure:"max_pages"`
}

// PathsConfig locates input and output files.
type PathsConfig struct {
	Links    string `yaml:"links" mapstructure:"links"`
	PageDir  string `yaml:"pagedir" mapstructure:"pagedir"`
	ParseDir string `yaml:"parsedir" mapstructure:"parsedir"`
}

// flagKeys maps command-line flags onto config keys.
var flagKeys = map[string]string{
	"links":     "paths.links",
	"pagedir":   "paths.pagedir",
	"outdir":    "paths.pagedir",
	"parsedir":  "paths.parsedir",
	"max-pages": "crawl.max_pages",
	"timeout":   "fetch.timeout_secs",
	"log-file":  "log.file",
}

// Load reads configuration from defaults, an optional .env file, the config
// file, environment variables and finally any flags the user set.
func Load(configFile string, flags *pflag.FlagSet) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, eris.Wrap(err, "config: load .env")
	}

	v := viper.New()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("rostercrawl")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("ROSTERCRAWL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("log.level", "error")
	v.SetDefault("log.format", "console")
	v.SetDefault("log.file", "")
	v.SetDefault("log.file_level", "debug")
	v.SetDefault("log.max_size_mb", 10)
	v.SetDefault("fetch.timeout_secs", 30)
	v.SetDefault("fetch.user_agent", "")
	v.SetDefault("fetch.rate_per_sec", 0)
	v.SetDefault("fetch.proxies", []string{})
	v.SetDefault("crawl.max_pages", 25)
	v.SetDefault("paths.links", "data/faculty_page_links.json")
	v.SetDefault("paths.pagedir", "data/faculty_page")
	v.SetDefault("paths.parsedir", "data/faculty_names")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	if flags != nil {
		var bindErr error
		flags.Visit(func(f *pflag.Flag) {
			if key, ok := flagKeys[f.Name]; ok && bindErr == nil {
				bindErr = v.BindPFlag(key, f)
			}
		})
		if bindErr != nil {
			return nil, eris.Wrap(bindErr, "config: bind flags")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values that would otherwise fail late in a run.
func (c *Config) Validate() error {
	if c.Fetch.TimeoutSecs <= 0 {
		return eris.Errorf("config: fetch.timeout_secs must be positive, got %d", c.Fetch.TimeoutSecs)
	}
	if c.Crawl.MaxPages <= 0 {
		return eris.Errorf("config: crawl.max_pages must be positive, got %d", c.Crawl.MaxPages)
	}
	if c.Fetch.RatePerSec < 0 {
		return eris.Errorf("config: fetch.rate_per_sec must not be negative, got %v", c.Fetch.RatePerSec)
	}
	return nil
}
