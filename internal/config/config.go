package config

import (
	"fmt"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Storage    StorageConfig    `yaml:"storage"`
	Retention  RetentionConfig  `yaml:"retention"`
	Download   DownloadConfig   `yaml:"download"`
	Gemini     GeminiConfig     `yaml:"gemini"`
	Perplexity PerplexityConfig `yaml:"perplexity"`
	Sheets     SheetsConfig     `yaml:"sheets"`
	Generation GenerationConfig `yaml:"generation"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host         string        `yaml:"host" envconfig:"SERVER_HOST" default:"0.0.0.0"`
	Port         int           `yaml:"port" envconfig:"SERVER_PORT" default:"5000"`
	APIKey       string        `yaml:"api_key" envconfig:"API_KEY"`
	ReadTimeout  time.Duration `yaml:"read_timeout" envconfig:"SERVER_READ_TIMEOUT" default:"30s"`
	WriteTimeout time.Duration `yaml:"write_timeout" envconfig:"SERVER_WRITE_TIMEOUT" default:"10m"`
}

// StorageConfig holds filesystem storage configuration.
type StorageConfig struct {
	VideoPath string `yaml:"video_path" envconfig:"STORAGE_VIDEO_PATH" default:"/data/video_files"`
	AudioPath string `yaml:"audio_path" envconfig:"STORAGE_AUDIO_PATH" default:"/data/audio_files"`
	TempPath  string `yaml:"temp_path" envconfig:"STORAGE_TEMP_PATH" default:"/data/temp"`
}

// RetentionConfig controls how long stored artifacts live.
type RetentionConfig struct {
	MaxAge        time.Duration `yaml:"max_age" envconfig:"RETENTION_MAX_AGE" default:"1h"`
	SweepInterval time.Duration `yaml:"sweep_interval" envconfig:"RETENTION_SWEEP_INTERVAL" default:"15m"`
}

// DownloadConfig holds yt-dlp download configuration.
type DownloadConfig struct {
	BinaryPath string        `yaml:"binary_path" envconfig:"YTDLP_PATH"`
	Timeout    time.Duration `yaml:"timeout" envconfig:"DOWNLOAD_TIMEOUT" default:"5m"`
}

// GeminiConfig holds Gemini API configuration. The API key itself is
// supplied per request by the caller, not by the server.
type GeminiConfig struct {
	BaseURL    string        `yaml:"base_url" envconfig:"GEMINI_BASE_URL" default:"https://generativelanguage.googleapis.com/v1beta"`
	Model      string        `yaml:"model" envconfig:"GEMINI_MODEL" default:"gemini-2.5-flash"`
	TextModel  string        `yaml:"text_model" envconfig:"GEMINI_TEXT_MODEL" default:"gemini-2.0-flash"`
	ImageModel string        `yaml:"image_model" envconfig:"GEMINI_IMAGE_MODEL" default:"gemini-2.5-flash-image"`
	VideoModel string        `yaml:"video_model" envconfig:"GEMINI_VIDEO_MODEL" default:"veo-3.0-fast-generate-001"`
	Timeout    time.Duration `yaml:"timeout" envconfig:"GEMINI_TIMEOUT" default:"2m"`
}

// PerplexityConfig holds fact-check provider configuration.
type PerplexityConfig struct {
	BaseURL string        `yaml:"base_url" envconfig:"PERPLEXITY_BASE_URL" default:"https://api.perplexity.ai"`
	Model   string        `yaml:"model" envconfig:"PERPLEXITY_MODEL" default:"sonar"`
	Timeout time.Duration `yaml:"timeout" envconfig:"PERPLEXITY_TIMEOUT" default:"60s"`
}

// SheetsConfig holds the optional Google Sheets export configuration.
// Export is disabled when SpreadsheetID or AccessToken is empty.
type SheetsConfig struct {
	BaseURL       string        `yaml:"base_url" envconfig:"SHEETS_BASE_URL" default:"https://sheets.googleapis.com/v4"`
	SpreadsheetID string        `yaml:"spreadsheet_id" envconfig:"SHEETS_SPREADSHEET_ID"`
	SheetName     string        `yaml:"sheet_name" envconfig:"SHEETS_SHEET_NAME" default:"Transcripts"`
	AccessToken   string        `yaml:"access_token" envconfig:"SHEETS_ACCESS_TOKEN"`
	Timeout       time.Duration `yaml:"timeout" envconfig:"SHEETS_TIMEOUT" default:"30s"`
}

// GenerationConfig bounds the long-running generation poller.
type GenerationConfig struct {
	PollInterval    time.Duration `yaml:"poll_interval" envconfig:"GENERATION_POLL_INTERVAL" default:"20s"`
	MaxWait         time.Duration `yaml:"max_wait" envconfig:"GENERATION_MAX_WAIT" default:"5m"`
	MaxAttempts     int           `yaml:"max_attempts" envconfig:"GENERATION_MAX_ATTEMPTS" default:"3"`
	OverloadBackoff time.Duration `yaml:"overload_backoff" envconfig:"GENERATION_OVERLOAD_BACKOFF" default:"10s"`
}

// Load reads configuration from file and environment variables.
// Environment variables override file values.
func Load(configPath string) (*Config, error) {
	cfg := &Config{}

	// Load from YAML file if provided
	if configPath != "" {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	// Override with environment variables
	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("process environment: %w", err)
	}

	// Validate
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// Validate checks that required configuration values are set.
func (c *Config) Validate() error {
	if c.Storage.VideoPath == "" {
		return fmt.Errorf("STORAGE_VIDEO_PATH is required")
	}
	if c.Storage.AudioPath == "" {
		return fmt.Errorf("STORAGE_AUDIO_PATH is required")
	}
	if c.Storage.TempPath == "" {
		return fmt.Errorf("STORAGE_TEMP_PATH is required")
	}
	if c.Retention.MaxAge <= 0 {
		return fmt.Errorf("RETENTION_MAX_AGE must be positive")
	}
	if c.Retention.SweepInterval <= 0 {
		return fmt.Errorf("RETENTION_SWEEP_INTERVAL must be positive")
	}
	return nil
}

// Address returns the server address in host:port format.
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
