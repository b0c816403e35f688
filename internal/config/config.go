package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog"
	"github.com/seanblong/ragconsole/internal/ragapi"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

type Specification struct {
	BaseURL       string           `yaml:"baseURL" envconfig:"BASE_URL"`
	APIKey        string           `yaml:"geminiApiKey" envconfig:"GEMINI_API_KEY"`
	Timeout       time.Duration    `yaml:"timeout"`
	SkipTLSVerify bool             `yaml:"skipTLSVerify" envconfig:"SKIP_TLS_VERIFY"`
	LogLevel      string           `yaml:"logLevel" split_words:"true"`
	Port          int              `yaml:"port" split_words:"true"`
	Endpoints     ragapi.Endpoints `yaml:"endpoints"`

	flags *pflag.FlagSet `ignored:"true"`
}

const envPrefix = "RAGCONSOLE"

func (s *Specification) Usage() {
	fmt.Fprint(os.Stderr, s.flags.FlagUsages())
}

// ClientConfig derives the API client settings.
func (s Specification) ClientConfig() *ragapi.ClientConfig {
	return &ragapi.ClientConfig{
		BaseURL:       s.BaseURL,
		Endpoints:     s.Endpoints,
		Timeout:       s.Timeout,
		SkipTLSVerify: s.SkipTLSVerify,
	}
}

// Load => defaults < YAML < .env/env < flags.
// configPath may be ""; if so we auto-discover. args excludes the program name.
// Callers may register their own flags on fs before calling Load; positional
// arguments are left in fs.Args().
func Load(configPath string, fs *pflag.FlagSet, args []string) (Specification, error) {
	var cfg Specification

	// set defaults (lowest precedence)
	setDefaults(&cfg)
	bindFlags(fs, &cfg)

	// config file
	path := configPath
	if path == "" {
		path = flagConfigPath(args)
	}
	if path == "" {
		if v := os.Getenv(envPrefix + "_CONFIG"); v != "" {
			path = v
		} else {
			for _, cand := range []string{
				"config/ragconsole.yaml",
				"config/config.yaml",
				"./ragconsole.yaml",
				"./config.yaml",
			} {
				if fileExists(cand) {
					path = cand
					break
				}
			}
		}
	}

	if path != "" {
		if !fileExists(path) {
			return Specification{}, fmt.Errorf("config file not found: %s", path)
		}
		if err := loadYAML(path, &cfg); err != nil {
			return Specification{}, fmt.Errorf("load yaml %s: %w", path, err)
		}
	}

	// .env never overrides variables already set in the process environment
	if fileExists(".env") {
		if err := godotenv.Load(".env"); err != nil {
			return Specification{}, fmt.Errorf("load .env: %w", err)
		}
	}

	// env overrides config file
	if err := envconfig.Process(envPrefix, &cfg); err != nil {
		return Specification{}, fmt.Errorf("env override: %w", err)
	}

	// flags override everything
	if err := fs.Parse(args); err != nil {
		return Specification{}, err
	}
	applyChangedFlags(fs, &cfg)

	if err := validate(&cfg); err != nil {
		return Specification{}, err
	}
	return cfg, nil
}

func validate(cfg *Specification) error {
	cfg.BaseURL = strings.TrimSpace(cfg.BaseURL)
	if cfg.BaseURL == "" {
		return fmt.Errorf("%s_BASE_URL is required (env/file/flag)", envPrefix)
	}
	u, err := url.Parse(cfg.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("base URL must be an absolute http(s) URL, got %q", cfg.BaseURL)
	}
	if strings.TrimSpace(cfg.LogLevel) == "" {
		cfg.LogLevel = "info"
	}
	if _, err := zerolog.ParseLevel(cfg.LogLevel); err != nil {
		return fmt.Errorf("invalid log level %q: %w", cfg.LogLevel, err)
	}
	if cfg.Timeout < 0 {
		return fmt.Errorf("timeout must not be negative, got %s", cfg.Timeout)
	}
	if cfg.Port <= 0 || cfg.Port > 65535 {
		return fmt.Errorf("port out of range: %d", cfg.Port)
	}
	return nil
}

// ---------- helpers ----------

func loadYAML(path string, into any) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(b, into)
}

func fileExists(p string) bool {
	fi, err := os.Stat(p)
	return err == nil && !fi.IsDir()
}

// flagConfigPath captures --config before flags are parsed so config
// discovery can use it.
func flagConfigPath(args []string) string {
	for i, a := range args {
		if a == "--config" {
			if i+1 < len(args) && !strings.HasPrefix(args[i+1], "-") {
				return args[i+1]
			}
		} else if strings.HasPrefix(a, "--config=") {
			return strings.SplitN(a, "=", 2)[1]
		}
	}
	return ""
}

func bindFlags(fs *pflag.FlagSet, c *Specification) {
	fs.String("config", "", "Path to config file")

	fs.String("base-url", c.BaseURL, "RAG API base URL")
	fs.String("api-key", c.APIKey, "Gemini API key forwarded in request bodies")
	fs.Duration("timeout", c.Timeout, "HTTP timeout for API calls (0 = none)")
	fs.Bool("skip-tls-verify", c.SkipTLSVerify, "Skip TLS certificate verification")

	fs.String("endpoint-answer", c.Endpoints.Answer, "Answer endpoint path")
	fs.String("endpoint-retrieve", c.Endpoints.Retrieve, "Retrieve endpoint path (empty disables search)")
	fs.String("endpoint-list-documents", c.Endpoints.ListDocuments, "Document listing endpoint path")
	fs.String("endpoint-summary", c.Endpoints.Summary, "Summary endpoint path")
	fs.String("endpoint-statistics", c.Endpoints.Statistics, "Statistics endpoint path")

	fs.String("log-level", c.LogLevel, "Log level (debug|info|warn|error)")
	fs.Int("port", c.Port, "Web UI port")

	// Used later for usage/help
	copied := pflag.NewFlagSet("temp", pflag.ContinueOnError)
	*copied = *fs
	c.flags = copied
}

func applyChangedFlags(fs *pflag.FlagSet, c *Specification) {
	setStr := func(name string, dst *string) {
		if fs.Changed(name) {
			v, _ := fs.GetString(name)
			*dst = v
		}
	}
	setInt := func(name string, dst *int) {
		if fs.Changed(name) {
			v, _ := fs.GetInt(name)
			*dst = v
		}
	}
	setBool := func(name string, dst *bool) {
		if fs.Changed(name) {
			v, _ := fs.GetBool(name)
			*dst = v
		}
	}
	setDur := func(name string, dst *time.Duration) {
		if fs.Changed(name) {
			v, _ := fs.GetDuration(name)
			*dst = v
		}
	}

	// (We ignore --config here; it's for discovery.)
	setStr("base-url", &c.BaseURL)
	setStr("api-key", &c.APIKey)
	setDur("timeout", &c.Timeout)
	setBool("skip-tls-verify", &c.SkipTLSVerify)

	setStr("endpoint-answer", &c.Endpoints.Answer)
	setStr("endpoint-retrieve", &c.Endpoints.Retrieve)
	setStr("endpoint-list-documents", &c.Endpoints.ListDocuments)
	setStr("endpoint-summary", &c.Endpoints.Summary)
	setStr("endpoint-statistics", &c.Endpoints.Statistics)

	setStr("log-level", &c.LogLevel)
	setInt("port", &c.Port)
}

func setDefaults(c *Specification) {
	c.BaseURL = "http://localhost:8000"
	c.LogLevel = "info"
	c.Port = 8501
	c.Timeout = 0
	c.Endpoints = ragapi.DefaultEndpoints()
}
