package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	HTTPAddr string `yaml:"http_addr"`

	DBDriver string `yaml:"db_driver"` // sqlite|postgres
	DBDSN    string `yaml:"db_dsn"`
	SiteID   string `yaml:"site_id"`

	BlobBasePath string `yaml:"blob_base_path"` // rendered snapshots

	// ReferenceFile is a YAML term -> score table replacing the built-in
	// one. It is watched for changes when set.
	ReferenceFile string `yaml:"reference_file"`
	Locale        string `yaml:"locale"` // page language flag, "en" or "nb"
	RenderWidth   int    `yaml:"render_width"`
	RenderHeight  int    `yaml:"render_height"`

	// Live widgets are kept in memory; the registry is bounded by count
	// and idle time.
	WidgetCapacity int           `yaml:"widget_capacity"`
	WidgetIdleTTL  time.Duration `yaml:"widget_idle_ttl"`

	EnableLocalAuth bool   `yaml:"enable_local_auth"`
	AdminUser       string `yaml:"admin_user"`
	AdminPassHash   string `yaml:"admin_pass_hash"` // bcrypt
	AuthHMACSecret  string `yaml:"auth_hmac_secret"`

	CORSOrigins []string `yaml:"cors_origins"`

	LogLevel  string `yaml:"log_level"`  // debug|info|warn|error
	LogFormat string `yaml:"log_format"` // json|text
}

const devSecret = "supersecret-dev-key"

func Default() Config {
	return Config{
		HTTPAddr:        ":8080",
		DBDriver:        "sqlite",
		SiteID:          "local",
		BlobBasePath:    "./data",
		RenderWidth:     800,
		RenderHeight:    400,
		WidgetCapacity:  1000,
		WidgetIdleTTL:   30 * time.Minute,
		EnableLocalAuth: true,
		AdminUser:       "admin",
		// bcrypt("admin"), development only
		AdminPassHash:  "$2b$10$EcQlfQOCFaAfogl5aZAeM.vxpu8.yJwmQDdLxiMVoDziGATX38Ob6",
		AuthHMACSecret: devSecret,
		CORSOrigins:    []string{"http://localhost:3000"},
		LogLevel:       "info",
		LogFormat:      "json",
	}
}

// FromEnv applies environment overrides on top of the defaults.
func FromEnv() Config {
	return applyEnv(Default())
}

// Load reads the defaults, then CONFIG_FILE when set, then the environment,
// and validates the result.
func Load() (Config, error) {
	cfg := Default()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := LoadFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}
	cfg = applyEnv(cfg)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadFile overlays the YAML file at path onto cfg. Keys missing from the
// file keep their current value.
func LoadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func applyEnv(c Config) Config {
	c.HTTPAddr = envOr("HTTP_ADDR", c.HTTPAddr)
	c.DBDriver = envOr("DB_DRIVER", c.DBDriver)
	c.DBDSN = envOr("DB_DSN", c.DBDSN)
	c.SiteID = envOr("SITE_ID", c.SiteID)
	c.BlobBasePath = envOr("BLOB_BASE_PATH", c.BlobBasePath)
	c.ReferenceFile = envOr("REFERENCE_FILE", c.ReferenceFile)
	c.Locale = envOr("LOCALE", c.Locale)
	c.RenderWidth = envInt("RENDER_WIDTH", c.RenderWidth)
	c.RenderHeight = envInt("RENDER_HEIGHT", c.RenderHeight)
	c.WidgetCapacity = envInt("WIDGET_CAPACITY", c.WidgetCapacity)
	c.WidgetIdleTTL = envDuration("WIDGET_IDLE_TTL", c.WidgetIdleTTL)
	c.EnableLocalAuth = envBool("ENABLE_LOCAL_AUTH", c.EnableLocalAuth)
	c.AdminUser = envOr("ADMIN_USER", c.AdminUser)
	c.AdminPassHash = envOr("ADMIN_PASS_HASH", c.AdminPassHash)
	c.AuthHMACSecret = envOr("AUTH_HMAC_SECRET", c.AuthHMACSecret)
	c.CORSOrigins = csvOr("CORS_ORIGINS", strings.Join(c.CORSOrigins, ","))
	c.LogLevel = envOr("LOG_LEVEL", c.LogLevel)
	c.LogFormat = envOr("LOG_FORMAT", c.LogFormat)
	return c
}

func (c Config) Validate() error {
	var errs []error
	switch c.DBDriver {
	case "sqlite", "postgres":
	default:
		errs = append(errs, fmt.Errorf("db_driver: unsupported %q", c.DBDriver))
	}
	if c.HTTPAddr == "" {
		errs = append(errs, errors.New("http_addr: required"))
	}
	if c.RenderWidth <= 0 || c.RenderHeight <= 0 {
		errs = append(errs, fmt.Errorf("render size: %dx%d", c.RenderWidth, c.RenderHeight))
	}
	if c.WidgetCapacity <= 0 {
		errs = append(errs, fmt.Errorf("widget_capacity: must be positive, got %d", c.WidgetCapacity))
	}
	if c.WidgetIdleTTL <= 0 {
		errs = append(errs, fmt.Errorf("widget_idle_ttl: must be positive, got %s", c.WidgetIdleTTL))
	}
	if c.EnableLocalAuth && (c.AdminUser == "" || c.AdminPassHash == "") {
		errs = append(errs, errors.New("local auth needs admin_user and admin_pass_hash"))
	}
	if c.AuthHMACSecret == "" {
		errs = append(errs, errors.New("auth_hmac_secret: required"))
	}
	if _, err := c.SlogLevel(); err != nil {
		errs = append(errs, err)
	}
	switch c.LogFormat {
	case "json", "text":
	default:
		errs = append(errs, fmt.Errorf("log_format: unsupported %q", c.LogFormat))
	}
	return errors.Join(errs...)
}

// DevSecret reports whether the JWT secret is still the built-in one.
func (c Config) DevSecret() bool { return c.AuthHMACSecret == devSecret }

func (c Config) SlogLevel() (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo, fmt.Errorf("log_level: %w", err)
	}
	return l, nil
}

func envOr(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}
func envBool(k string, def bool) bool {
	switch os.Getenv(k) {
	case "1", "true", "TRUE", "yes", "YES":
		return true
	case "0", "false", "FALSE", "no", "NO":
		return false
	default:
		return def
	}
}
func envInt(k string, def int) int {
	n, err := strconv.Atoi(os.Getenv(k))
	if err != nil {
		return def
	}
	return n
}
func envDuration(k string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(os.Getenv(k))
	if err != nil {
		return def
	}
	return d
}
func csvOr(k, def string) []string {
	v := envOr(k, def)
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
