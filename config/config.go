package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the report service
type Config struct {
	General   GeneralConfig   `mapstructure:"general"`
	Server    ServerConfig    `mapstructure:"server"`
	Browser   BrowserConfig   `mapstructure:"browser"`
	LLM       LLMConfig       `mapstructure:"llm"`
	News      NewsConfig      `mapstructure:"news"`
	Video     VideoConfig     `mapstructure:"video"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Watchlist WatchlistConfig `mapstructure:"watchlist"`
}

// GeneralConfig contains general application settings
type GeneralConfig struct {
	Debug    bool   `mapstructure:"debug"`
	LogLevel string `mapstructure:"log_level"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Address       string        `mapstructure:"address"`
	StreamTimeout time.Duration `mapstructure:"stream_timeout"`
}

// BrowserConfig controls the shared headless browser session
type BrowserConfig struct {
	Headless       bool          `mapstructure:"headless"`
	UserAgent      string        `mapstructure:"user_agent"`
	ViewportWidth  int           `mapstructure:"viewport_width"`
	ViewportHeight int           `mapstructure:"viewport_height"`
	Timeout        time.Duration `mapstructure:"timeout"`
}

// LLMConfig contains the synthesis model settings
type LLMConfig struct {
	APIKey      string        `mapstructure:"api_key"`
	Model       string        `mapstructure:"model"`
	Temperature float64       `mapstructure:"temperature"`
	MaxTokens   int           `mapstructure:"max_tokens"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

func (l LLMConfig) Validate() error {
	if strings.TrimSpace(l.APIKey) == "" {
		return fmt.Errorf("llm.api_key is required (OPENAI_API_KEY / TICKERBRIEF_LLM_API_KEY)")
	}
	return nil
}

// NewsConfig contains news acquisition settings
type NewsConfig struct {
	MaxRetries       int `mapstructure:"max_retries"`
	DetailedArticles int `mapstructure:"detailed_articles"`
}

// VideoConfig contains video ranking settings
type VideoConfig struct {
	MaxResults int    `mapstructure:"max_results"`
	SearchMode string `mapstructure:"search_mode"`
}

func (v VideoConfig) Validate() error {
	switch v.SearchMode {
	case "recent", "relevant", "popular", "balanced":
		return nil
	}
	return fmt.Errorf("video.search_mode must be one of recent|relevant|popular|balanced, got %q", v.SearchMode)
}

// CacheConfig contains the Redis-backed cache settings
type CacheConfig struct {
	Redis RedisConfig   `mapstructure:"redis"`
	TTL   time.Duration `mapstructure:"ttl"`
}

// RedisConfig contains Redis connection settings
type RedisConfig struct {
	Host     string        `mapstructure:"host"`
	Port     string        `mapstructure:"port"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

func (r RedisConfig) Validate() error {
	if strings.TrimSpace(r.Host) == "" {
		return fmt.Errorf("cache.redis.host required")
	}
	if strings.TrimSpace(r.Port) == "" {
		return fmt.Errorf("cache.redis.port required")
	}
	return nil
}

// WatchlistConfig drives the background refresher that keeps reports warm
type WatchlistConfig struct {
	Enabled  bool     `mapstructure:"enabled"`
	Tickers  []string `mapstructure:"tickers"`
	CronSpec string   `mapstructure:"cron_spec"`
}

func (w WatchlistConfig) Validate() error {
	if w.Enabled && len(w.Tickers) == 0 {
		return fmt.Errorf("watchlist.tickers required when watchlist is enabled")
	}
	return nil
}

// LoadConfig loads config from file and TICKERBRIEF_* environment overrides
func LoadConfig(path string) (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("json")

	viper.SetDefault("general.log_level", "info")
	viper.SetDefault("server.address", ":8000")
	viper.SetDefault("server.stream_timeout", 30*time.Second)
	viper.SetDefault("browser.headless", true)
	viper.SetDefault("browser.user_agent",
		"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36")
	viper.SetDefault("browser.viewport_width", 1920)
	viper.SetDefault("browser.viewport_height", 1080)
	viper.SetDefault("browser.timeout", 30*time.Second)
	viper.SetDefault("llm.model", "gpt-4o-mini")
	viper.SetDefault("llm.temperature", 0.2)
	viper.SetDefault("llm.max_tokens", 2000)
	viper.SetDefault("llm.timeout", 60*time.Second)
	viper.SetDefault("news.max_retries", 3)
	viper.SetDefault("news.detailed_articles", 3)
	viper.SetDefault("video.max_results", 5)
	viper.SetDefault("video.search_mode", "balanced")
	viper.SetDefault("cache.ttl", 10*time.Minute)
	viper.SetDefault("cache.redis.host", "localhost")
	viper.SetDefault("cache.redis.port", "6379")
	viper.SetDefault("cache.redis.timeout", 5*time.Second)
	viper.SetDefault("watchlist.cron_spec", "0 * * * *")

	if path == "" {
		viper.AddConfigPath("./config")
		viper.AddConfigPath(".")
		exe, _ := os.Executable()
		exeDir := filepath.Dir(exe)
		viper.AddConfigPath(exeDir)
		viper.AddConfigPath(filepath.Join(exeDir, ".."))
	} else {
		viper.SetConfigFile(path)
	}

	viper.SetEnvPrefix("TICKERBRIEF")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		// Config file is optional; env and defaults can carry the whole config.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	if cfg.LLM.APIKey == "" {
		cfg.LLM.APIKey = os.Getenv("OPENAI_API_KEY")
	}

	if err := cfg.LLM.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Video.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Cache.Redis.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Watchlist.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
