package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Config holds the service-level configuration for FinAgent. It is loaded
// from ~/.finagent/config.yaml and can be overridden by FINAGENT_-prefixed
// environment variables. Credentials live in Settings, not here.
type Config struct {
	Server  ServerConfig  `mapstructure:"server" yaml:"server"`
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`
	LLM     LLMConfig     `mapstructure:"llm" yaml:"llm"`
	Market  MarketConfig  `mapstructure:"market" yaml:"market"`
	News    NewsConfig    `mapstructure:"news" yaml:"news"`
	History HistoryConfig `mapstructure:"history" yaml:"history"`
}

// ServerConfig contains HTTP listener settings.
type ServerConfig struct {
	// Host is the interface to bind; empty binds all interfaces.
	Host string `mapstructure:"host" yaml:"host"`
	// Port is the TCP port for the API.
	Port int `mapstructure:"port" yaml:"port"`
	// ReadTimeoutSec and WriteTimeoutSec bound request handling. Write must
	// accommodate a full LLM round trip.
	ReadTimeoutSec  int `mapstructure:"read_timeout_sec" yaml:"read_timeout_sec"`
	WriteTimeoutSec int `mapstructure:"write_timeout_sec" yaml:"write_timeout_sec"`
	// ShutdownTimeoutSec is how long graceful shutdown waits for in-flight
	// requests.
	ShutdownTimeoutSec int `mapstructure:"shutdown_timeout_sec" yaml:"shutdown_timeout_sec"`
}

// Addr returns the host:port listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// LoggingConfig contains configuration for application logging.
type LoggingConfig struct {
	// Level is the log level ("debug", "info", "warn", "error")
	Level string `mapstructure:"level" yaml:"level"`
	// File is the path to the log file
	File string `mapstructure:"file" yaml:"file"`
}

// LLMConfig contains tunables for the Anthropic client. The model id,
// temperature and API key come from Settings.
type LLMConfig struct {
	// Endpoint is the API base URL.
	Endpoint string `mapstructure:"endpoint" yaml:"endpoint"`
	// MaxTokens caps response length.
	MaxTokens int `mapstructure:"max_tokens" yaml:"max_tokens"`
	// TimeoutSec bounds a single completion call.
	TimeoutSec int `mapstructure:"timeout_sec" yaml:"timeout_sec"`
}

// MarketConfig lists the symbols the dashboard tracks.
type MarketConfig struct {
	// Indices maps display names to index symbols.
	Indices map[string]string `mapstructure:"indices" yaml:"indices"`
	// Trending is the fixed watchlist used for gainers/losers.
	Trending []string `mapstructure:"trending" yaml:"trending"`
	// Benchmark is the symbol used for beta calculation.
	Benchmark string `mapstructure:"benchmark" yaml:"benchmark"`
	// TimeoutSec bounds a single market data fetch.
	TimeoutSec int `mapstructure:"timeout_sec" yaml:"timeout_sec"`
}

// NewsConfig contains limits for the news endpoints.
type NewsConfig struct {
	DefaultLimit int `mapstructure:"default_limit" yaml:"default_limit"`
	MaxLimit     int `mapstructure:"max_limit" yaml:"max_limit"`
	// TimeoutSec bounds a single provider request.
	TimeoutSec int `mapstructure:"timeout_sec" yaml:"timeout_sec"`
}

// HistoryConfig contains settings for the analysis history store.
type HistoryConfig struct {
	// Enabled controls whether analyses are recorded.
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
	// DBPath is the path to the SQLite history database.
	DBPath string `mapstructure:"db_path" yaml:"db_path"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	homeDir, _ := os.UserHomeDir()
	dataDir := filepath.Join(homeDir, ".finagent")

	return &Config{
		Server: ServerConfig{
			Host:               "",
			Port:               8000,
			ReadTimeoutSec:     15,
			WriteTimeoutSec:    180,
			ShutdownTimeoutSec: 10,
		},
		Logging: LoggingConfig{
			Level: "info",
			File:  filepath.Join(dataDir, "logs", "finagent.log"),
		},
		LLM: LLMConfig{
			Endpoint:   "https://api.anthropic.com",
			MaxTokens:  4096,
			TimeoutSec: 120,
		},
		Market: MarketConfig{
			Indices: map[string]string{
				"S&P 500":   "^GSPC",
				"NASDAQ":    "^IXIC",
				"Dow Jones": "^DJI",
				"Nifty 50":  "^NSEI",
				"Sensex":    "^BSESN",
			},
			Trending:   []string{"TSLA", "NVDA", "AAPL", "MSFT", "META", "AMZN", "GOOGL"},
			Benchmark:  "^GSPC",
			TimeoutSec: 15,
		},
		News: NewsConfig{
			DefaultLimit: 10,
			MaxLimit:     50,
			TimeoutSec:   15,
		},
		History: HistoryConfig{
			Enabled: true,
			DBPath:  filepath.Join(dataDir, "history.db"),
		},
	}
}

// Load reads configuration from the default location (~/.finagent/config.yaml)
// and merges with environment variables. If no config file exists, it creates
// one with default values.
func Load() (*Config, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get home directory: %w", err)
	}

	configPath := filepath.Join(homeDir, ".finagent", "config.yaml")
	return LoadFromPath(configPath)
}

// LoadFromPath reads configuration from a specific file path and merges with
// environment variables. If the file doesn't exist, it creates one with
// default values.
func LoadFromPath(path string) (*Config, error) {
	path = expandPath(path)

	configDir := filepath.Dir(path)
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		cfg := Default()
		if err := writeConfigFile(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to write default config: %w", err)
		}
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	// Enable environment variable overrides.
	// Example: FINAGENT_SERVER_PORT=9000
	v.SetEnvPrefix("FINAGENT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.Logging.File = expandPath(cfg.Logging.File)
	cfg.History.DBPath = expandPath(cfg.History.DBPath)

	return &cfg, nil
}

// SaveToPath writes the current configuration to a specific file path.
func (c *Config) SaveToPath(path string) error {
	path = expandPath(path)

	configDir := filepath.Dir(path)
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	return writeConfigFile(path, c)
}

// EnsureDirectories creates the directories the service writes to (logs and
// the history database).
func (c *Config) EnsureDirectories() error {
	dirs := []string{
		filepath.Dir(c.Logging.File),
		filepath.Dir(c.History.DBPath),
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	return nil
}

// Validate checks the configuration for common errors and inconsistencies.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535")
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level '%s', must be one of: debug, info, warn, error", c.Logging.Level)
	}

	if c.LLM.MaxTokens <= 0 {
		return fmt.Errorf("llm.max_tokens must be positive")
	}

	if c.Market.Benchmark == "" {
		return fmt.Errorf("market.benchmark cannot be empty")
	}
	if len(c.Market.Trending) == 0 {
		return fmt.Errorf("market.trending cannot be empty")
	}

	if c.News.DefaultLimit < 1 || c.News.DefaultLimit > c.News.MaxLimit {
		return fmt.Errorf("news.default_limit must be between 1 and news.max_limit (%d)", c.News.MaxLimit)
	}

	return nil
}

// writeConfigFile writes a Config struct to a YAML file.
// Uses gopkg.in/yaml.v3 directly to ensure proper tag-based serialization.
func writeConfigFile(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// expandPath expands ~ to the user's home directory in a path string.
func expandPath(path string) string {
	if strings.HasPrefix(path, "~") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(homeDir, path[1:])
	}
	return path
}
