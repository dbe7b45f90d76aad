package config

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Config holds all application configuration, for both the askdb client and
// the bundled agentd daemon.
type Config struct {
	Client  ClientConfig  `mapstructure:"client"`
	Agent   AgentConfig   `mapstructure:"agent"`
	LLM     LLMConfig     `mapstructure:"llm"`
	Redis   RedisConfig   `mapstructure:"redis"`
	Logging LoggingConfig `mapstructure:"logging"`
}

type ClientConfig struct {
	AgentURL       string        `mapstructure:"agent_url" validate:"required,url"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	ExportDir      string        `mapstructure:"export_dir"`
}

type AgentConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port" validate:"min=1,max=65535"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	DataDir         string        `mapstructure:"data_dir"`
	MaxRows         int           `mapstructure:"max_rows" validate:"min=1"`
	MemoryBackend   string        `mapstructure:"memory_backend" validate:"oneof=in-memory redis"`
}

func (c AgentConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

type LLMConfig struct {
	Provider string       `mapstructure:"provider" validate:"oneof=gemini static"`
	Gemini   GeminiConfig `mapstructure:"gemini"`
}

type GeminiConfig struct {
	APIKey string `mapstructure:"api_key"`
	Model  string `mapstructure:"model"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

type LoggingConfig struct {
	Level string `mapstructure:"level"`
	File  string `mapstructure:"file"`
}

// Load reads configuration from file and environment variables
func Load() (*Config, error) {
	v := viper.New()

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./configs/config.yaml"
	}

	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
		// Config file not found, use defaults and env vars
	}

	v.AutomaticEnv()
	bindEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	// Client
	v.SetDefault("client.agent_url", "http://localhost:8080")
	v.SetDefault("client.request_timeout", "60s")
	v.SetDefault("client.export_dir", ".")

	// Agent
	v.SetDefault("agent.host", "0.0.0.0")
	v.SetDefault("agent.port", 8080)
	v.SetDefault("agent.read_timeout", "30s")
	v.SetDefault("agent.write_timeout", "60s")
	v.SetDefault("agent.shutdown_timeout", "10s")
	v.SetDefault("agent.data_dir", "./data")
	v.SetDefault("agent.max_rows", 1000)
	v.SetDefault("agent.memory_backend", "in-memory")

	// LLM
	v.SetDefault("llm.provider", "static")
	v.SetDefault("llm.gemini.model", "gemini-2.5-flash")

	// Redis
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.db", 0)

	// Logging
	v.SetDefault("logging.level", "info")
}

func bindEnvVars(v *viper.Viper) {
	v.BindEnv("client.agent_url", "ASKDB_AGENT_URL")

	v.BindEnv("agent.port", "AGENT_PORT")
	v.BindEnv("agent.data_dir", "AGENT_DATA_DIR")
	v.BindEnv("agent.memory_backend", "MEMORY_BACKEND")

	v.BindEnv("llm.provider", "LLM_PROVIDER")
	v.BindEnv("llm.gemini.api_key", "GEMINI_API_KEY")

	v.BindEnv("redis.host", "REDIS_HOST")
	v.BindEnv("redis.password", "REDIS_PASSWORD")

	v.BindEnv("logging.level", "LOG_LEVEL")
	v.BindEnv("logging.file", "LOG_FILE")
}
