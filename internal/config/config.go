package config

import (
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Provider is one candidate AI provider, in priority order within Config.Insight.Providers.
type Provider struct {
	Name        string  `yaml:"name"`
	Model       string  `yaml:"model"`
	BaseURL     string  `yaml:"base_url"`
	APIKey      string  `yaml:"api_key"`
	APIKeyEnv   string  `yaml:"api_key_env"`
	MaxTokens   int     `yaml:"max_tokens"`
	Temperature float64 `yaml:"temperature"`
}

// ResolvedAPIKey prefers the inline key and falls back to the named environment variable.
func (p Provider) ResolvedAPIKey() string {
	if p.APIKey != "" {
		return p.APIKey
	}
	if p.APIKeyEnv != "" {
		return strings.TrimSpace(os.Getenv(p.APIKeyEnv))
	}
	return ""
}

type Config struct {
	Server struct {
		Port string `yaml:"port"`
		Mode string `yaml:"mode"`
	} `yaml:"server"`
	Log struct {
		Mode string `yaml:"mode"`
	} `yaml:"log"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		TTL      string `yaml:"ttl"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	Catalog struct {
		TTL string `yaml:"ttl"`
	} `yaml:"catalog"`
	Quiz struct {
		QuestionsPerGift int    `yaml:"questions_per_gift"`
		Locale           string `yaml:"locale"`
		StatePath        string `yaml:"state_path"`
		StateMaxAge      string `yaml:"state_max_age"`
	} `yaml:"quiz"`
	Auth struct {
		JWTSecret string `yaml:"jwt_secret"`
		TokenTTL  string `yaml:"token_ttl"`
	} `yaml:"auth"`
	Insight struct {
		TopN            int        `yaml:"top_n"`
		ProviderTimeout string     `yaml:"provider_timeout"`
		ServerURL       string     `yaml:"server_url"`
		ServerTimeout   string     `yaml:"server_timeout"`
		CacheSize       int        `yaml:"cache_size"`
		CacheTTL        string     `yaml:"cache_ttl"`
		Providers       []Provider `yaml:"providers"`
	} `yaml:"insight"`
	Tracing struct {
		Enabled     bool    `yaml:"enabled"`
		SampleRatio float64 `yaml:"sample_ratio"`
	} `yaml:"tracing"`
}

// Default returns the configuration used when no file is present.
func Default() Config {
	cfg := Config{}
	cfg.Server.Port = "8080"
	cfg.Quiz.QuestionsPerGift = 5
	cfg.Quiz.Locale = "en"
	cfg.Quiz.StatePath = "gifts-assessment.db"
	cfg.Insight.TopN = 3
	cfg.Insight.ProviderTimeout = "30s"
	cfg.Insight.ServerTimeout = "45s"
	cfg.Insight.CacheSize = 512
	cfg.Insight.Providers = []Provider{
		{Name: "openai", Model: "gpt-4o-mini", APIKeyEnv: "OPENAI_API_KEY", MaxTokens: 1500, Temperature: 0.7},
		{Name: "anthropic", Model: "claude-3-5-haiku-latest", APIKeyEnv: "ANTHROPIC_API_KEY", MaxTokens: 1500, Temperature: 0.7},
		{Name: "gemini", Model: "gemini-1.5-flash", APIKeyEnv: "GEMINI_API_KEY", MaxTokens: 1500, Temperature: 0.7},
	}
	return cfg
}

// Load reads YAML config from path on top of Default and applies environment overrides.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	applyEnv(&cfg)
	return cfg, nil
}

// LoadOrDefault behaves like Load but tolerates a missing file.
func LoadOrDefault(path string) (Config, error) {
	cfg, err := Load(path)
	if err != nil && os.IsNotExist(err) {
		cfg = Default()
		applyEnv(&cfg)
		return cfg, nil
	}
	return cfg, err
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("JWT_SECRET"); v != "" {
		cfg.Auth.JWTSecret = v
	}
	if v := os.Getenv("POSTGRES_URL"); v != "" {
		cfg.Postgres.URL = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("INSIGHT_SERVER_URL"); v != "" {
		cfg.Insight.ServerURL = v
	}
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
