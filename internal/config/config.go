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
	Server   ServerConfig   `yaml:"server"`
	Resolver ResolverConfig `yaml:"resolver"`
	ASR      ASRConfig      `yaml:"asr"`
	OSS      OSSConfig      `yaml:"oss"`
	LLM      LLMConfig      `yaml:"llm"`
	Pipeline PipelineConfig `yaml:"pipeline"`
	History  HistoryConfig  `yaml:"history"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host         string        `yaml:"host" envconfig:"SERVER_HOST" default:"0.0.0.0"`
	Port         int           `yaml:"port" envconfig:"SERVER_PORT" default:"8090"`
	APIKey       string        `yaml:"api_key" envconfig:"API_KEY"`
	ReadTimeout  time.Duration `yaml:"read_timeout" envconfig:"SERVER_READ_TIMEOUT" default:"30s"`
	WriteTimeout time.Duration `yaml:"write_timeout" envconfig:"SERVER_WRITE_TIMEOUT" default:"5m"`
}

// ResolverConfig holds share-link resolution configuration.
type ResolverConfig struct {
	Timeout    time.Duration `yaml:"timeout" envconfig:"RESOLVER_TIMEOUT" default:"10s"`
	UserAgent  string        `yaml:"user_agent" envconfig:"RESOLVER_USER_AGENT" default:"Mozilla/5.0 (iPhone; CPU iPhone OS 17_2 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Mobile/15E148 Safari/604.1"`
	XHSAPIBase string        `yaml:"xhs_api_base" envconfig:"RESOLVER_XHS_API_BASE"`
}

// ASRConfig holds the file-transcription service configuration.
type ASRConfig struct {
	BaseURL         string        `yaml:"base_url" envconfig:"ASR_BASE_URL" default:"https://filetrans.cn-shanghai.aliyuncs.com"`
	AccessKeyID     string        `yaml:"access_key_id" envconfig:"ASR_ACCESS_KEY_ID"`
	AccessKeySecret string        `yaml:"access_key_secret" envconfig:"ASR_ACCESS_KEY_SECRET"`
	AppKey          string        `yaml:"app_key" envconfig:"ASR_APP_KEY"`
	Timeout         time.Duration `yaml:"timeout" envconfig:"ASR_TIMEOUT" default:"2m"`
	PollInterval    time.Duration `yaml:"poll_interval" envconfig:"ASR_POLL_INTERVAL" default:"3s"`
	TechHotwordID   string        `yaml:"tech_hotword_id" envconfig:"ASR_TECH_HOTWORD_ID"`
}

// OSSConfig holds object-store upload configuration.
type OSSConfig struct {
	Endpoint        string        `yaml:"endpoint" envconfig:"OSS_ENDPOINT" default:"https://oss-cn-beijing.aliyuncs.com"`
	Bucket          string        `yaml:"bucket" envconfig:"OSS_BUCKET_NAME" default:"scriptparser-audio"`
	AccessKeyID     string        `yaml:"access_key_id" envconfig:"OSS_ACCESS_KEY_ID"`
	AccessKeySecret string        `yaml:"access_key_secret" envconfig:"OSS_ACCESS_KEY_SECRET"`
	Timeout         time.Duration `yaml:"timeout" envconfig:"OSS_UPLOAD_TIMEOUT" default:"1m"`
}

// ProviderConfig holds one chat-completion provider.
type ProviderConfig struct {
	Name    string        `yaml:"name"`
	APIKey  string        `yaml:"api_key"`
	BaseURL string        `yaml:"base_url"`
	Model   string        `yaml:"model"`
	Timeout time.Duration `yaml:"timeout"`
}

// LLMConfig holds the primary/fallback chat-completion providers and the
// prompt template directory.
type LLMConfig struct {
	PromptsDir      string        `yaml:"prompts_dir" envconfig:"LLM_PROMPTS_DIR" default:"prompts"`
	Timeout         time.Duration `yaml:"timeout" envconfig:"LLM_TIMEOUT" default:"30s"`
	PrimaryName     string        `yaml:"primary_name" envconfig:"LLM_PRIMARY_NAME" default:"deepseek"`
	PrimaryAPIKey   string        `yaml:"primary_api_key" envconfig:"DEEPSEEK_API_KEY"`
	PrimaryBaseURL  string        `yaml:"primary_base_url" envconfig:"LLM_PRIMARY_BASE_URL" default:"https://api.deepseek.com/v1"`
	PrimaryModel    string        `yaml:"primary_model" envconfig:"LLM_PRIMARY_MODEL" default:"deepseek-chat"`
	FallbackName    string        `yaml:"fallback_name" envconfig:"LLM_FALLBACK_NAME" default:"kimi"`
	FallbackAPIKey  string        `yaml:"fallback_api_key" envconfig:"KIMI_API_KEY"`
	FallbackBaseURL string        `yaml:"fallback_base_url" envconfig:"LLM_FALLBACK_BASE_URL" default:"https://api.moonshot.cn/v1"`
	FallbackModel   string        `yaml:"fallback_model" envconfig:"LLM_FALLBACK_MODEL" default:"moonshot-v1-8k"`
}

// Primary returns the primary provider as a ProviderConfig.
func (c *LLMConfig) Primary() ProviderConfig {
	return ProviderConfig{
		Name:    c.PrimaryName,
		APIKey:  c.PrimaryAPIKey,
		BaseURL: c.PrimaryBaseURL,
		Model:   c.PrimaryModel,
		Timeout: c.Timeout,
	}
}

// Fallback returns the fallback provider as a ProviderConfig.
func (c *LLMConfig) Fallback() ProviderConfig {
	return ProviderConfig{
		Name:    c.FallbackName,
		APIKey:  c.FallbackAPIKey,
		BaseURL: c.FallbackBaseURL,
		Model:   c.FallbackModel,
		Timeout: c.Timeout,
	}
}

// PipelineConfig holds pipeline-wide settings.
type PipelineConfig struct {
	// TotalTarget is the soft time budget for one run. Exceeding it flags
	// the run as degraded for observability; it never fails the request.
	TotalTarget time.Duration `yaml:"total_target" envconfig:"TOTAL_PROCESSING_TARGET" default:"50s"`
	TempDir     string        `yaml:"temp_dir" envconfig:"PIPELINE_TEMP_DIR" default:"/tmp/scriptparser"`
	MaxFileSize int64         `yaml:"max_file_size" envconfig:"MAX_FILE_SIZE" default:"104857600"` // 100MB
}

// HistoryConfig holds run-history persistence settings.
type HistoryConfig struct {
	Enabled    bool   `yaml:"enabled" envconfig:"HISTORY_ENABLED" default:"true"`
	SQLitePath string `yaml:"sqlite_path" envconfig:"HISTORY_SQLITE_PATH" default:"/data/scriptparser/runs.db"`
}

// Load reads configuration from file and environment variables.
// Environment variables override file values.
func Load(configPath string) (*Config, error) {
	cfg := &Config{}

	if configPath != "" {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("process environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// Validate checks that required configuration values are set.
func (c *Config) Validate() error {
	if c.ASR.AccessKeyID == "" || c.ASR.AccessKeySecret == "" {
		return fmt.Errorf("ASR_ACCESS_KEY_ID and ASR_ACCESS_KEY_SECRET are required")
	}
	if c.ASR.AppKey == "" {
		return fmt.Errorf("ASR_APP_KEY is required")
	}
	if c.LLM.PrimaryAPIKey == "" {
		return fmt.Errorf("DEEPSEEK_API_KEY is required")
	}
	if c.LLM.FallbackAPIKey == "" {
		return fmt.Errorf("KIMI_API_KEY is required")
	}
	if c.Pipeline.TempDir == "" {
		return fmt.Errorf("PIPELINE_TEMP_DIR is required")
	}
	return nil
}

// Address returns the server address in host:port format.
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
