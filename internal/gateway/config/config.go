package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"zentra/internal/apperr"
)

type Config struct {
	Port          string
	Env           string
	DatabaseURL   string
	UserCacheSize int
	Catalog       CatalogConfig
	LLM           LLMConfig
	Auth          AuthConfig
	Log           LogConfig
	CORSOrigins   []string
}

type CatalogConfig struct {
	Path string
	S3   S3Config
}

type S3Config struct {
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	Bucket    string
	Key       string
	UseSSL    bool
}

// UseS3 reports whether the catalog is read from object storage instead of
// the local file.
func (c CatalogConfig) UseS3() bool {
	return strings.TrimSpace(c.S3.Endpoint) != ""
}

type LLMConfig struct {
	Provider string
	APIKey   string
	Model    string
	Timeout  time.Duration
	RPS      float64
	Burst    int
}

type AuthConfig struct {
	JWTSecret string
}

type LogConfig struct {
	Level  string
	Format string
}

// Load reads .env (if present), the -port flag and the environment.
func Load() (*Config, error) {
	_ = godotenv.Load()
	fs := flag.NewFlagSet(os.Args[0], flag.ContinueOnError)
	return load(fs, os.Args[1:], os.Getenv)
}

func load(fs *flag.FlagSet, args []string, getenv func(string) string) (*Config, error) {
	env := func(key string) string { return strings.TrimSpace(getenv(key)) }

	port := fs.String("port", ":8000", "server port")
	if err := fs.Parse(args); err != nil {
		return nil, apperr.Configuration("invalid flags", err)
	}
	if envPort := env("PORT"); envPort != "" {
		if strings.HasPrefix(envPort, ":") {
			*port = envPort
		} else {
			*port = ":" + envPort
		}
	}

	appEnv := firstNonEmpty(env("APP_ENV"), "local")
	var p parser
	cfg := &Config{
		Port:          *port,
		Env:           appEnv,
		DatabaseURL:   env("DATABASE_URL"),
		UserCacheSize: p.intVal("USER_CACHE_SIZE", env("USER_CACHE_SIZE"), 1024),
		Catalog: CatalogConfig{
			Path: firstNonEmpty(env("CARD_CATALOG_PATH"), "credit_cards.json"),
			S3: S3Config{
				Endpoint:  env("CARD_CATALOG_S3_ENDPOINT"),
				Region:    firstNonEmpty(env("CARD_CATALOG_S3_REGION"), "us-east-1"),
				AccessKey: env("CARD_CATALOG_S3_ACCESS_KEY"),
				SecretKey: env("CARD_CATALOG_S3_SECRET_KEY"),
				Bucket:    env("CARD_CATALOG_S3_BUCKET"),
				Key:       firstNonEmpty(env("CARD_CATALOG_S3_KEY"), "credit_cards.json"),
				UseSSL:    p.boolVal("CARD_CATALOG_S3_USE_SSL", env("CARD_CATALOG_S3_USE_SSL"), true),
			},
		},
		LLM: LLMConfig{
			Provider: strings.ToLower(env("LLM_PROVIDER")),
			APIKey:   env("GEMINI_API_KEY"),
			Model:    firstNonEmpty(env("GEMINI_MODEL"), "gemini-2.5-flash"),
			Timeout:  p.durationVal("LLM_TIMEOUT", env("LLM_TIMEOUT"), 45*time.Second),
			RPS:      p.floatVal("LLM_RPS", env("LLM_RPS"), 0),
			Burst:    p.intVal("LLM_BURST", env("LLM_BURST"), 1),
		},
		Auth: AuthConfig{JWTSecret: env("AUTH_JWT_SECRET")},
		Log: LogConfig{
			Level:  firstNonEmpty(env("LOG_LEVEL"), "info"),
			Format: env("LOG_FORMAT"),
		},
		CORSOrigins: splitList(env("CORS_ALLOWED_ORIGINS")),
	}
	if isLocal(appEnv) {
		applyLocalDefaults(cfg)
	} else {
		cfg.LLM.Provider = firstNonEmpty(cfg.LLM.Provider, "gemini")
		cfg.Log.Format = firstNonEmpty(cfg.Log.Format, "json")
	}
	if err := p.err(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports settings that would keep the service from serving.
func (c *Config) Validate() error {
	var errs []error
	switch c.LLM.Provider {
	case "gemini":
		if c.LLM.APIKey == "" {
			errs = append(errs, errors.New("GEMINI_API_KEY is required for the gemini provider"))
		}
	case "fake":
	default:
		errs = append(errs, fmt.Errorf("LLM_PROVIDER %q is not supported", c.LLM.Provider))
	}
	if c.LLM.Timeout <= 0 {
		errs = append(errs, errors.New("LLM_TIMEOUT must be positive"))
	}
	if c.LLM.RPS < 0 || c.LLM.Burst < 0 {
		errs = append(errs, errors.New("LLM_RPS and LLM_BURST must not be negative"))
	}
	if c.UserCacheSize <= 0 {
		errs = append(errs, errors.New("USER_CACHE_SIZE must be positive"))
	}
	if c.Catalog.UseS3() {
		s3 := c.Catalog.S3
		if s3.AccessKey == "" || s3.SecretKey == "" || s3.Bucket == "" || s3.Key == "" {
			errs = append(errs, errors.New("CARD_CATALOG_S3_ENDPOINT is set but access key, secret key, bucket or key is missing"))
		}
	} else if c.Catalog.Path == "" {
		errs = append(errs, errors.New("CARD_CATALOG_PATH is required"))
	}
	if err := errors.Join(errs...); err != nil {
		return apperr.Configuration("invalid configuration", err)
	}
	return nil
}

type parser struct {
	errs []error
}

func (p *parser) intVal(key, raw string, def int) int {
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return v
}

func (p *parser) floatVal(key, raw string, def float64) float64 {
	if raw == "" {
		return def
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return v
}

func (p *parser) boolVal(key, raw string, def bool) bool {
	if raw == "" {
		return def
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return v
}

func (p *parser) durationVal(key, raw string, def time.Duration) time.Duration {
	if raw == "" {
		return def
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return v
}

func (p *parser) err() error {
	if err := errors.Join(p.errs...); err != nil {
		return apperr.Configuration("invalid configuration", err)
	}
	return nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if v := strings.TrimSpace(part); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
