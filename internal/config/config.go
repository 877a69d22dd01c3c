package config

import (
	"log"
	"os"

	"gopkg.in/yaml.v3"
)

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type ScraperConfig struct {
	UserAgent      string `yaml:"userAgent"`
	AcceptLanguage string `yaml:"acceptLanguage"`
	TimeoutMs      int    `yaml:"timeoutMs"`
}

// RendererConfig controls the rod-based browser fallback used for
// block-prone pages. It is a latency/cost tradeoff, so it is off by default.
type RendererConfig struct {
	Enabled    bool   `yaml:"enabled"`
	BrowserURL string `yaml:"browserURL"`
	TimeoutMs  int    `yaml:"timeoutMs"`
}

type RobotsConfig struct {
	Respect bool `yaml:"respect"`
}

type DatabaseConfig struct {
	DSN string `yaml:"dsn"`
}

type RedisConfig struct {
	URL string `yaml:"url"`
}

type RateLimitConfig struct {
	DefaultPerMinute int `yaml:"defaultPerMinute"`
}

// QuotaConfig caps how many analyses a single user may run per local day.
// The check is advisory: it reads a row count before inserting, so two
// concurrent requests from the same user can both pass.
type QuotaConfig struct {
	DailyLimit int `yaml:"dailyLimit"`
}

type OpenAIConfig struct {
	APIKey  string `yaml:"apiKey"`
	BaseURL string `yaml:"baseURL"`
	Model   string `yaml:"model"`
}

type LLMConfig struct {
	OpenAI OpenAIConfig `yaml:"openai"`
}

// AliExpressConfig holds the optional product API endpoint used to skip
// HTML scraping entirely for recognized AliExpress item URLs.
type AliExpressConfig struct {
	APIBaseURL string `yaml:"apiBaseURL"`
}

type MarketplacesConfig struct {
	AliExpress AliExpressConfig `yaml:"aliexpress"`
}

// RetentionConfig controls TTL-like deletion of old analyses so that the
// database does not grow without bound over time.
type RetentionConfig struct {
	Enabled                bool `yaml:"enabled"`
	CleanupIntervalMinutes int  `yaml:"cleanupIntervalMinutes"`
	AnalysesDays           int  `yaml:"analysesDays"`
}

type Config struct {
	Server       ServerConfig       `yaml:"server"`
	Scraper      ScraperConfig      `yaml:"scraper"`
	Renderer     RendererConfig     `yaml:"renderer"`
	Robots       RobotsConfig       `yaml:"robots"`
	Database     DatabaseConfig     `yaml:"database"`
	Redis        RedisConfig        `yaml:"redis"`
	RateLimit    RateLimitConfig    `yaml:"ratelimit"`
	Quota        QuotaConfig        `yaml:"quota"`
	LLM          LLMConfig          `yaml:"llm"`
	Marketplaces MarketplacesConfig `yaml:"marketplaces"`
	Retention    RetentionConfig    `yaml:"retention"`
}

func Load(path string) *Config {
	f, err := os.Open(path)
	if err != nil {
		log.Fatalf("failed to open config file: %v", err)
	}
	defer f.Close()

	var cfg Config
	if err := yaml.NewDecoder(f).Decode(&cfg); err != nil {
		log.Fatalf("failed to decode config: %v", err)
	}

	cfg.applyEnvOverrides()
	cfg.applyDefaults()

	return &cfg
}

// applyEnvOverrides lets secrets come from the environment (or a .env file
// loaded by main) instead of the config file.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		c.LLM.OpenAI.APIKey = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		c.Database.DSN = v
	}
	if v := os.Getenv("REDIS_URL"); v != "" {
		c.Redis.URL = v
	}
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Scraper.TimeoutMs <= 0 {
		c.Scraper.TimeoutMs = 15000
	}
	if c.Renderer.TimeoutMs <= 0 {
		c.Renderer.TimeoutMs = 30000
	}
	if c.Quota.DailyLimit <= 0 {
		c.Quota.DailyLimit = 5
	}
	if c.LLM.OpenAI.Model == "" {
		c.LLM.OpenAI.Model = "gpt-4o-mini"
	}
}
