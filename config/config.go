// Package config loads the brokerfeed configuration from a YAML file and the
// environment, and builds the API client and history log it describes.
package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/etnz/brokerfeed"
	"github.com/etnz/brokerfeed/api"
	"github.com/etnz/brokerfeed/history"
	"github.com/etnz/brokerfeed/logger"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"
	"gopkg.in/yaml.v3"
)

// Environment variables overriding the configuration file.
const (
	EnvClientID    = "BROKERFEED_CLIENT_ID"
	EnvConsumerKey = "BROKERFEED_CONSUMER_KEY"
	EnvUserID      = "BROKERFEED_USER_ID"
	EnvUserSecret  = "BROKERFEED_USER_SECRET"
	EnvDB          = "BROKERFEED_DB"
)

type Config struct {
	API         APIConfig         `yaml:"api"`
	Credentials CredentialsConfig `yaml:"credentials"`
	Fetch       FetchConfig       `yaml:"fetch"`
	History     HistoryConfig     `yaml:"history"`
	Report      ReportConfig      `yaml:"report"`
	Logging     LoggingConfig     `yaml:"logging"`
}

type APIConfig struct {
	BaseURL           string        `yaml:"base_url"`
	Timeout           time.Duration `yaml:"timeout"`
	MaxAttempts       int           `yaml:"max_attempts"`
	BaseDelay         time.Duration `yaml:"base_delay"`
	MaxDelay          time.Duration `yaml:"max_delay"`
	RequestsPerSecond float64       `yaml:"requests_per_second"`
	Burst             int           `yaml:"burst"`
}

// CredentialsConfig is usually left empty in the file, and set through the
// environment or a .env file.
type CredentialsConfig struct {
	ClientID    string `yaml:"client_id"`
	ConsumerKey string `yaml:"consumer_key"`
	UserID      string `yaml:"user_id"`
	UserSecret  string `yaml:"user_secret"`
}

type FetchConfig struct {
	BatchSize int           `yaml:"batch_size"`
	Budget    time.Duration `yaml:"budget"`
}

// HistoryConfig selects the history log: PostgreSQL when Postgres is set,
// the JSONL File otherwise.
type HistoryConfig struct {
	File     string `yaml:"file"`
	Postgres string `yaml:"postgres"`
}

type ReportConfig struct {
	Currency string `yaml:"currency"`
	// Rates is the value of one unit of each currency in Currency.
	Rates map[string]string `yaml:"rates"`
}

type LoggingConfig struct {
	Level     string `yaml:"level"`
	File      string `yaml:"file"`
	MaxSizeMB int    `yaml:"max_size_mb"`
	Text      bool   `yaml:"text"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		API: APIConfig{
			BaseURL:     api.DefaultBaseURL,
			Timeout:     30 * time.Second,
			MaxAttempts: 3,
			BaseDelay:   time.Second,
			MaxDelay:    time.Minute,
		},
		Fetch: FetchConfig{
			BatchSize: 100,
			Budget:    6 * time.Minute,
		},
		History: HistoryConfig{File: "history.jsonl"},
		Logging: LoggingConfig{Text: true},
		Report:  ReportConfig{Currency: brokerfeed.DefaultCurrency},
	}
}

// Load reads the configuration file at path on top of the defaults, then
// applies the environment. An empty path reads no file.
//
// A .env file in the current directory, if any, is loaded in the environment
// first. Variables already set are not overridden.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}

func (c *Config) applyEnv() {
	override := func(dst *string, key string) {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			*dst = v
		}
	}
	override(&c.Credentials.ClientID, EnvClientID)
	override(&c.Credentials.ConsumerKey, EnvConsumerKey)
	override(&c.Credentials.UserID, EnvUserID)
	override(&c.Credentials.UserSecret, EnvUserSecret)
	override(&c.History.Postgres, EnvDB)
}

// Validate checks the values that have no sensible fallback.
// Credentials are checked when a client is built.
func (c *Config) Validate() error {
	if c.API.MaxAttempts < 1 {
		return fmt.Errorf("api.max_attempts must be at least 1")
	}
	if c.API.RequestsPerSecond < 0 {
		return fmt.Errorf("api.requests_per_second must not be negative")
	}
	if c.Fetch.BatchSize < 0 {
		return fmt.Errorf("fetch.batch_size must not be negative")
	}
	if c.History.File == "" && c.History.Postgres == "" {
		return fmt.Errorf("history.file or history.postgres is required")
	}
	if _, err := c.Rates(); err != nil {
		return err
	}
	return nil
}

// APICredentials returns the credentials, all of them being required.
func (c *Config) APICredentials() (api.StaticCredentials, error) {
	creds := api.StaticCredentials{
		ClientID:       c.Credentials.ClientID,
		ConsumerSecret: c.Credentials.ConsumerKey,
		UserID:         c.Credentials.UserID,
		UserSecret:     c.Credentials.UserSecret,
	}
	var missing []string
	for env, v := range map[string]string{
		EnvClientID:    creds.ClientID,
		EnvConsumerKey: creds.ConsumerSecret,
		EnvUserID:      creds.UserID,
		EnvUserSecret:  creds.UserSecret,
	} {
		if v == "" {
			missing = append(missing, env)
		}
	}
	if len(missing) > 0 {
		slices.Sort(missing)
		return creds, fmt.Errorf("missing credentials, set %s", strings.Join(missing, ", "))
	}
	return creds, nil
}

// NewClient returns the API client described by the configuration.
func (c *Config) NewClient() (*api.Client, error) {
	creds, err := c.APICredentials()
	if err != nil {
		return nil, err
	}
	client := api.NewClient(creds)
	client.BaseURL = c.API.BaseURL
	client.HTTP.Timeout = c.API.Timeout
	client.MaxAttempts = c.API.MaxAttempts
	client.BaseDelay = c.API.BaseDelay
	client.MaxDelay = c.API.MaxDelay
	if c.API.RequestsPerSecond > 0 {
		burst := c.API.Burst
		if burst < 1 {
			burst = 1
		}
		client.Limiter = rate.NewLimiter(rate.Limit(c.API.RequestsPerSecond), burst)
	}
	return client, nil
}

// OpenHistory opens the configured history log. The returned function
// releases it.
func (c *Config) OpenHistory(ctx context.Context) (brokerfeed.HistoryLog, func() error, error) {
	if c.History.Postgres != "" {
		l, err := history.OpenPostgres(ctx, c.History.Postgres)
		if err != nil {
			return nil, nil, err
		}
		return l, l.Close, nil
	}
	return history.NewFileLog(c.History.File), func() error { return nil }, nil
}

// Rates returns the exchange rates of the report section.
func (c *Config) Rates() (StaticRates, error) {
	r := StaticRates{Base: c.Report.Currency, Values: make(map[string]decimal.Decimal)}
	for cur, s := range c.Report.Rates {
		v, err := decimal.NewFromString(s)
		if err != nil {
			return r, fmt.Errorf("report.rates.%s: %w", cur, err)
		}
		if !v.IsPositive() {
			return r, fmt.Errorf("report.rates.%s must be positive", cur)
		}
		r.Values[strings.ToUpper(cur)] = v
	}
	return r, nil
}

// LoggerOptions returns the logger options of the logging section.
func (c *Config) LoggerOptions() logger.Options {
	return logger.Options{
		Level:     c.Logging.Level,
		File:      c.Logging.File,
		MaxSizeMB: c.Logging.MaxSizeMB,
		Text:      c.Logging.Text,
	}
}
