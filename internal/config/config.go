package config

import (
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	gomysql "github.com/go-sql-driver/mysql"
	"gopkg.in/yaml.v3"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// DevBackendURL is used when no backend origin is configured. It only makes
// sense for a backend running next to the server during development.
const DevBackendURL = "https://127.0.0.1:8443"

const (
	defaultTimeout          = 7 * time.Minute
	defaultMaxResponseBytes = 32 << 20
	devSessionSecret        = "habit-coach-dev-secret"
)

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Log      LogConfig      `yaml:"log"`
	Backend  BackendConfig  `yaml:"backend"`
	Client   ClientConfig   `yaml:"client"`
	Session  SessionConfig  `yaml:"session"`
	Database DatabaseConfig `yaml:"database"`
}

type LogConfig struct {
	Level      string `yaml:"level"`
	Format     string `yaml:"format"`
	File       string `yaml:"file"`
	Console    bool   `yaml:"console"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

type ServerConfig struct {
	Port int `yaml:"port"`
}

// BackendConfig describes the recommendation service behind the relay.
// AllowSelfSigned turns off certificate verification for the outbound TLS
// connection; it exists for a fixed backend that serves a self-signed cert.
type BackendConfig struct {
	BaseURL          string        `yaml:"base_url"`
	AllowSelfSigned  bool          `yaml:"allow_self_signed"`
	Timeout          time.Duration `yaml:"timeout"`
	MaxResponseBytes int64         `yaml:"max_response_bytes"`
}

// ClientConfig tells the onboarding flow where the relay lives. A relative
// APIBaseURL is resolved against the server's own loopback address.
type ClientConfig struct {
	APIBaseURL string        `yaml:"api_base_url"`
	Timeout    time.Duration `yaml:"timeout"`
}

type SessionConfig struct {
	Secret string        `yaml:"secret"`
	TTL    time.Duration `yaml:"ttl"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
}

func Default() *Config {
	return &Config{
		Server: ServerConfig{Port: 9871},
		Log:    LogConfig{Level: "info", Format: "json", Console: true, MaxSizeMB: 100, MaxBackups: 3, MaxAgeDays: 30},
		Backend: BackendConfig{
			Timeout:          defaultTimeout,
			MaxResponseBytes: defaultMaxResponseBytes,
		},
		Client:   ClientConfig{APIBaseURL: "/api", Timeout: defaultTimeout},
		Session:  SessionConfig{TTL: 14 * 24 * time.Hour},
		Database: DatabaseConfig{Port: 3306, Name: "habit_coach"},
	}
}

// Load reads the first config file found and layers environment variables on
// top. An explicit configFile that cannot be read or parsed is an error.
func Load(configFile string) (*Config, error) {
	c := Default()

	paths := []string{"etc/config-dev.yaml", "/etc/habit-coach/config.yaml"}
	if configFile != "" {
		paths = []string{configFile}
	}
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			if configFile != "" {
				return nil, fmt.Errorf("read config %s: %w", path, err)
			}
			continue
		}
		if err := yaml.Unmarshal(data, c); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
		break
	}

	c.applyEnvOverrides()

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return c, nil
}

func (c *Config) applyEnvOverrides() {
	envOverride(&c.Backend.BaseURL, "BACKEND_API_URL")
	envOverrideBool(&c.Backend.AllowSelfSigned, "BACKEND_ALLOW_SELF_SIGNED")
	envOverrideDuration(&c.Backend.Timeout, "BACKEND_TIMEOUT")
	envOverride(&c.Client.APIBaseURL, "PUBLIC_API_URL")
	envOverrideDuration(&c.Client.Timeout, "CLIENT_TIMEOUT")
	envOverride(&c.Session.Secret, "SESSION_SECRET")
	envOverride(&c.Database.Host, "DB_HOST")
	envOverride(&c.Database.User, "DB_USER")
	envOverride(&c.Database.Password, "DB_PASS")
	envOverride(&c.Database.Name, "DB_NAME")
	envOverride(&c.Log.Level, "LOG_LEVEL")
	envOverride(&c.Log.File, "LOG_FILE")
	envOverride(&c.Log.Format, "LOG_FORMAT")
	envOverrideInt(&c.Server.Port, "PORT")
	envOverrideInt(&c.Database.Port, "DB_PORT")
}

func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server port %d out of range", c.Server.Port)
	}
	if c.Backend.BaseURL != "" {
		u, err := url.Parse(c.Backend.BaseURL)
		if err != nil || u.Host == "" {
			return fmt.Errorf("backend base_url %q is not an absolute URL", c.Backend.BaseURL)
		}
	}
	if c.Backend.Timeout <= 0 {
		return fmt.Errorf("backend timeout must be > 0")
	}
	if c.Client.Timeout <= 0 {
		return fmt.Errorf("client timeout must be > 0")
	}
	if c.Backend.MaxResponseBytes <= 0 {
		return fmt.Errorf("backend max_response_bytes must be > 0")
	}
	if c.Session.TTL <= 0 {
		return fmt.Errorf("session ttl must be > 0")
	}
	return nil
}

func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Server.Port)
}

// BackendURL returns the configured origin, or DevBackendURL and false when
// nothing was configured.
func (c *Config) BackendURL() (string, bool) {
	if c.Backend.BaseURL == "" {
		return DevBackendURL, false
	}
	return c.Backend.BaseURL, true
}

// ClientBaseURL resolves Client.APIBaseURL to an absolute URL.
func (c *Config) ClientBaseURL() string {
	base := strings.TrimRight(c.Client.APIBaseURL, "/")
	if strings.HasPrefix(base, "http://") || strings.HasPrefix(base, "https://") {
		return base
	}
	if !strings.HasPrefix(base, "/") {
		base = "/" + base
	}
	return fmt.Sprintf("http://127.0.0.1:%d%s", c.Server.Port, base)
}

// SessionSecret returns the token signing key and whether it was configured.
func (c *Config) SessionSecret() ([]byte, bool) {
	if c.Session.Secret == "" {
		return []byte(devSessionSecret), false
	}
	return []byte(c.Session.Secret), true
}

// DatabaseEnabled reports whether a MySQL host is configured.
func (c *Config) DatabaseEnabled() bool {
	return c.Database.Host != ""
}

func (c *Config) OpenGormDB() (*gorm.DB, error) {
	cfg := gomysql.NewConfig()
	cfg.User = c.Database.User
	cfg.Passwd = c.Database.Password
	cfg.Net = "tcp"
	cfg.Addr = fmt.Sprintf("%s:%d", c.Database.Host, c.Database.Port)
	cfg.DBName = c.Database.Name
	cfg.ParseTime = true

	connector, err := gomysql.NewConnector(cfg)
	if err != nil {
		return nil, fmt.Errorf("create connector: %w", err)
	}
	sqlDB := sql.OpenDB(connector)
	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("ping db: %w", err)
	}

	return gorm.Open(mysql.New(mysql.Config{Conn: sqlDB}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
}

func envOverride(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func envOverrideInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func envOverrideBool(dst *bool, key string) {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(key))) {
	case "1", "true", "yes", "on":
		*dst = true
	case "0", "false", "no", "off":
		*dst = false
	}
}

// envOverrideDuration accepts Go durations ("90s", "7m") or plain seconds.
func envOverrideDuration(dst *time.Duration, key string) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return
	}
	if d, err := time.ParseDuration(v); err == nil {
		*dst = d
		return
	}
	if n, err := strconv.Atoi(v); err == nil {
		*dst = time.Duration(n) * time.Second
	}
}
