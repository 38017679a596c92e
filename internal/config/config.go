package config

import (
	"os"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Mistral   MistralConfig   `mapstructure:"mistral"`
	Assistant AssistantConfig `mapstructure:"assistant"`
	CORS      CORSConfig      `mapstructure:"cors"`
	Log       LogConfig       `mapstructure:"log"`
	Storage   StorageConfig   `mapstructure:"storage"`
}

type ServerConfig struct {
	Port           int           `mapstructure:"port"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	MaxHeaderBytes int           `mapstructure:"max_header_bytes"`
}

type MistralConfig struct {
	APIKey      string        `mapstructure:"api_key"`
	BaseURL     string        `mapstructure:"base_url"`
	Model       string        `mapstructure:"model"`
	OptionModel string        `mapstructure:"option_model"`
	MaxTokens   int           `mapstructure:"max_tokens"`
	Temperature float32       `mapstructure:"temperature"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

type AssistantConfig struct {
	// 选项点击后延迟发送的时间（模拟点击反馈）
	OptionClickDelay time.Duration `mapstructure:"option_click_delay"`
	// 单条消息最多提取的快捷回复数量
	MaxOptions int `mapstructure:"max_options"`
}

type CORSConfig struct {
	AllowedOrigins   []string `mapstructure:"allowed_origins"`
	AllowedMethods   []string `mapstructure:"allowed_methods"`
	AllowedHeaders   []string `mapstructure:"allowed_headers"`
	ExposedHeaders   []string `mapstructure:"exposed_headers"`
	AllowCredentials bool     `mapstructure:"allow_credentials"`
	MaxAge           int      `mapstructure:"max_age"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type StorageConfig struct {
	Type    string `mapstructure:"type"`
	DataDir string `mapstructure:"data_dir"`
}

var cfg *Config

func Load(configPath string) (*Config, error) {
	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")

	viper.AutomaticEnv()
	viper.SetEnvPrefix("SAGE")

	if err := viper.ReadInConfig(); err != nil {
		return nil, err
	}

	cfg = &Config{}
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, err
	}

	// 配置文件优先，没有设置时退回环境变量
	if cfg.Mistral.APIKey == "" {
		if apiKey := os.Getenv("MISTRAL_API_KEY"); apiKey != "" {
			cfg.Mistral.APIKey = apiKey
		}
	}

	applyDefaults(cfg)

	return cfg, nil
}

func applyDefaults(c *Config) {
	if c.Mistral.BaseURL == "" {
		c.Mistral.BaseURL = "https://api.mistral.ai/v1"
	}
	if c.Mistral.Model == "" {
		c.Mistral.Model = "mistral-small-2506"
	}
	if c.Mistral.OptionModel == "" {
		c.Mistral.OptionModel = "open-mistral-7b"
	}
	if c.Mistral.MaxTokens == 0 {
		c.Mistral.MaxTokens = 1000
	}
	if c.Mistral.Temperature == 0 {
		c.Mistral.Temperature = 0.7
	}
	if c.Mistral.Timeout == 0 {
		c.Mistral.Timeout = 30 * time.Second
	}
	if c.Assistant.OptionClickDelay == 0 {
		c.Assistant.OptionClickDelay = 150 * time.Millisecond
	}
	if c.Assistant.MaxOptions == 0 {
		c.Assistant.MaxOptions = 4
	}
	if c.Storage.Type == "" {
		c.Storage.Type = "disk"
	}
	if c.Storage.DataDir == "" {
		c.Storage.DataDir = "./data"
	}
}

func Get() *Config {
	return cfg
}
