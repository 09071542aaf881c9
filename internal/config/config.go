// Package config loads process configuration from defaults, an optional
// config.yaml, a .env file and the environment, in rising precedence.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/Vovarama1992/restaurant-assistant-bridge/internal/ai"
)

const (
	ProviderReal = "real"
	ProviderMock = "mock"

	StorePostgres = "postgres"
	StoreMemory   = "memory"

	DefaultAppName = "restaurant-assistant"
)

// Config is the whole process configuration.
type Config struct {
	Environment    string        `mapstructure:"environment"`
	Provider       string        `mapstructure:"provider"`
	TimeoutMS      int           `mapstructure:"timeout_ms"`
	DegradeTable   []DegradeRule `mapstructure:"degrade_table"`
	DegradeDefault string        `mapstructure:"degrade_default"`

	HTTP   HTTPConfig   `mapstructure:"http"`
	Store  StoreConfig  `mapstructure:"store"`
	OpenAI OpenAIConfig `mapstructure:"openai"`
	Twilio TwilioConfig `mapstructure:"twilio"`
	Voice  VoiceConfig  `mapstructure:"voice"`
	Log    LogConfig    `mapstructure:"log"`
}

// DegradeRule is one row of the local reply table: the first rule with a
// keyword contained in the user text wins.
type DegradeRule struct {
	Keywords []string `mapstructure:"keywords"`
	Reply    string   `mapstructure:"reply"`
}

type HTTPConfig struct {
	Port           string   `mapstructure:"port"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type StoreConfig struct {
	Driver string `mapstructure:"driver"` // "postgres" or "memory"
	DSN    string `mapstructure:"dsn"`
}

type OpenAIConfig struct {
	APIKey             string `mapstructure:"api_key"`
	BaseURL            string `mapstructure:"base_url"`
	Model              string `mapstructure:"model"`
	TranscriptionModel string `mapstructure:"transcription_model"`
}

type TwilioConfig struct {
	AccountSID string `mapstructure:"account_sid"`
	AuthToken  string `mapstructure:"auth_token"`
}

type VoiceConfig struct {
	RestaurantID   string `mapstructure:"restaurant_id"`
	RecordTimeoutS int    `mapstructure:"record_timeout_s"`
	ActionPath     string `mapstructure:"action_path"`
	Voice          string `mapstructure:"voice"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Pretty bool   `mapstructure:"pretty"`
}

// Timeout is the per-call provider bound.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.TimeoutMS) * time.Millisecond
}

// Rules converts the configured table for the keyword replier.
func (c *Config) Rules() []ai.Rule {
	rules := make([]ai.Rule, 0, len(c.DegradeTable))
	for _, r := range c.DegradeTable {
		rules = append(rules, ai.Rule{Keywords: r.Keywords, Reply: r.Reply})
	}
	return rules
}

// Load reads configuration. configPath may be empty, in which case
// config.yaml is searched for in the usual places and may be absent.
func Load(configPath string) (*Config, error) {
	// a missing .env is normal outside development
	_ = godotenv.Load()

	v := viper.New()
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.AddConfigPath(".")
		v.AddConfigPath("..")
		v.AddConfigPath("/etc/" + DefaultAppName)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	setDefaults(v)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// the conventional platform variable names
	_ = v.BindEnv("http.port", "PORT")
	_ = v.BindEnv("http.allowed_origins", "FRONTEND_URL", "HTTP_ALLOWED_ORIGINS")
	_ = v.BindEnv("store.dsn", "DATABASE_URL", "STORE_DSN")
	_ = v.BindEnv("openai.api_key", "OPENAI_API_KEY")
	_ = v.BindEnv("twilio.account_sid", "TWILIO_ACCOUNT_SID")
	_ = v.BindEnv("twilio.auth_token", "TWILIO_AUTH_TOKEN")
	_ = v.BindEnv("environment", "NODE_ENV", "ENVIRONMENT")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configPath != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.HTTP.AllowedOrigins = splitList(cfg.HTTP.AllowedOrigins)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")
	v.SetDefault("provider", ProviderReal)
	v.SetDefault("timeout_ms", 15000)

	table := make([]map[string]any, 0, len(ai.DefaultRules()))
	for _, r := range ai.DefaultRules() {
		table = append(table, map[string]any{"keywords": r.Keywords, "reply": r.Reply})
	}
	v.SetDefault("degrade_table", table)
	v.SetDefault("degrade_default", ai.HelpReply)

	v.SetDefault("http.port", "8080")
	v.SetDefault("http.allowed_origins", []string{"http://localhost:3000"})

	v.SetDefault("store.driver", StorePostgres)
	v.SetDefault("store.dsn", "")

	v.SetDefault("openai.api_key", "")
	v.SetDefault("openai.base_url", "")
	v.SetDefault("openai.model", ai.DefaultModel)
	v.SetDefault("openai.transcription_model", ai.DefaultTranscriptionModel)

	v.SetDefault("twilio.account_sid", "")
	v.SetDefault("twilio.auth_token", "")

	v.SetDefault("voice.restaurant_id", "default")
	v.SetDefault("voice.record_timeout_s", 10)
	v.SetDefault("voice.action_path", "/twilio/voice/process")
	v.SetDefault("voice.voice", "alice")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)
}

func (c *Config) validate() error {
	switch c.Provider {
	case ProviderReal, ProviderMock:
	default:
		return fmt.Errorf("config: provider must be %q or %q, got %q", ProviderReal, ProviderMock, c.Provider)
	}
	switch c.Store.Driver {
	case StorePostgres, StoreMemory:
	default:
		return fmt.Errorf("config: store.driver must be %q or %q, got %q", StorePostgres, StoreMemory, c.Store.Driver)
	}
	if c.TimeoutMS <= 0 {
		return fmt.Errorf("config: timeout_ms must be positive, got %d", c.TimeoutMS)
	}
	for i, r := range c.DegradeTable {
		if len(r.Keywords) == 0 || strings.TrimSpace(r.Reply) == "" {
			return fmt.Errorf("config: degrade_table[%d] needs keywords and a reply", i)
		}
	}
	return nil
}

// splitList accepts both a YAML list and a comma separated env value.
func splitList(in []string) []string {
	var out []string
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
