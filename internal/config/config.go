package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/vadimbarashkov/shortlink/internal/codegen"
	"gopkg.in/yaml.v3"
)

const (
	EnvDev   = "dev"
	EnvStage = "stage"
	EnvProd  = "prod"
)

type Config struct {
	Env            string    `yaml:"env"`
	BaseURL        string    `yaml:"base_url"`
	MaxURLLength   int       `yaml:"max_url_length"`
	MigrationsPath string    `yaml:"migrations_path"`
	ShortCode      ShortCode `yaml:"short_code"`
	HTTPServer     `yaml:"http_server"`
	Postgres       `yaml:"postgres"`
	Redis          Redis     `yaml:"redis"`
	Cache          Cache     `yaml:"cache"`
	RateLimit      RateLimit `yaml:"rate_limit"`
	Cleanup        Cleanup   `yaml:"cleanup"`
	Worker         Worker    `yaml:"worker"`
	Admin          Admin     `yaml:"admin"`
	Log            Log       `yaml:"log"`
}

type ShortCode struct {
	Length     int `yaml:"length"`
	MaxRetries int `yaml:"max_retries"`
}

var defaultShortCode = ShortCode{
	Length:     6,
	MaxRetries: 5,
}

type HTTPServer struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	MaxHeaderBytes  int           `yaml:"max_header_bytes"`
	CertFile        string        `yaml:"cert_file"`
	KeyFile         string        `yaml:"key_file"`
}

var defaultHTTPServer = HTTPServer{
	Port:            8080,
	ReadTimeout:     5 * time.Second,
	WriteTimeout:    10 * time.Second,
	IdleTimeout:     time.Minute,
	ShutdownTimeout: 15 * time.Second,
	MaxHeaderBytes:  1 << 20,
}

func (s *HTTPServer) Addr() string {
	return fmt.Sprintf(":%d", s.Port)
}

type Postgres struct {
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	DB              string        `yaml:"db"`
	SSLMode         string        `yaml:"sslmode"`
	ConnMaxIdleTime time.Duration `yaml:"conn_max_idle_time"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
}

var defaultPostgres = Postgres{
	Host:            "localhost",
	Port:            5432,
	SSLMode:         "disable",
	ConnMaxIdleTime: 5 * time.Minute,
	ConnMaxLifetime: 30 * time.Minute,
	MaxIdleConns:    5,
	MaxOpenConns:    25,
}

func (p *Postgres) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		p.User, p.Password, p.Host, p.Port, p.DB, p.SSLMode)
}

type Redis struct {
	URL          string        `yaml:"url"`
	Addr         string        `yaml:"addr"`
	Password     string        `yaml:"password"`
	DB           int           `yaml:"db"`
	PoolSize     int           `yaml:"pool_size"`
	DialTimeout  time.Duration `yaml:"dial_timeout"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

var defaultRedis = Redis{
	Addr:         "localhost:6379",
	PoolSize:     10,
	DialTimeout:  5 * time.Second,
	ReadTimeout:  3 * time.Second,
	WriteTimeout: 3 * time.Second,
}

type Cache struct {
	URLTTL   time.Duration `yaml:"url_ttl"`
	StatsTTL time.Duration `yaml:"stats_ttl"`
}

var defaultCache = Cache{
	URLTTL:   time.Hour,
	StatsTTL: 5 * time.Minute,
}

// Bucket is a token bucket: RequestsPerSecond refill rate, Burst capacity.
type Bucket struct {
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	Burst             int     `yaml:"burst"`
}

type RateLimit struct {
	SweepInterval time.Duration `yaml:"sweep_interval"`
	IdleTimeout   time.Duration `yaml:"idle_timeout"`
	Redirect      Bucket        `yaml:"redirect"`
	Shorten       Bucket        `yaml:"shorten"`
}

var defaultRateLimit = RateLimit{
	SweepInterval: time.Minute,
	IdleTimeout:   3 * time.Minute,
	Redirect:      Bucket{RequestsPerSecond: 20, Burst: 40},
	Shorten:       Bucket{RequestsPerSecond: 1, Burst: 5},
}

// Cleanup is disabled while MaxAge is zero.
type Cleanup struct {
	Interval time.Duration `yaml:"interval"`
	MaxAge   time.Duration `yaml:"max_age"`
}

var defaultCleanup = Cleanup{
	Interval: time.Hour,
}

type Worker struct {
	Workers     int           `yaml:"workers"`
	QueueSize   int           `yaml:"queue_size"`
	TaskTimeout time.Duration `yaml:"task_timeout"`
}

var defaultWorker = Worker{
	Workers:     4,
	QueueSize:   1024,
	TaskTimeout: 2 * time.Second,
}

type Admin struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// Credentials returns nil when no admin user is configured.
func (a *Admin) Credentials() map[string]string {
	if a.Username == "" {
		return nil
	}
	return map[string]string{a.Username: a.Password}
}

type Log struct {
	Level   string `yaml:"level"`
	JSON    bool   `yaml:"json"`
	Concise bool   `yaml:"concise"`
}

func (l *Log) SlogLevel() slog.Level {
	switch strings.ToLower(l.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func Load(path string) (*Config, error) {
	const op = "config.Load"

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to open config file: %w", op, err)
	}
	defer f.Close()

	var cfg Config
	setDefaults(&cfg)

	if err := yaml.NewDecoder(f).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("%s: failed to decode config file: %w", op, err)
	}

	if cfg.BaseURL == "" {
		cfg.BaseURL = fmt.Sprintf("http://localhost:%d", cfg.HTTPServer.Port)
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	switch {
	case c.ShortCode.Length <= 0 || c.ShortCode.Length > codegen.MaxLength:
		return fmt.Errorf("short_code.length must be in [1, %d], got %d", codegen.MaxLength, c.ShortCode.Length)
	case c.ShortCode.MaxRetries <= 0:
		return fmt.Errorf("short_code.max_retries must be positive, got %d", c.ShortCode.MaxRetries)
	case c.MaxURLLength <= 0:
		return fmt.Errorf("max_url_length must be positive, got %d", c.MaxURLLength)
	case c.Cache.URLTTL <= 0:
		return fmt.Errorf("cache.url_ttl must be positive, got %s", c.Cache.URLTTL)
	case c.Worker.Workers <= 0 || c.Worker.QueueSize <= 0:
		return fmt.Errorf("worker.workers and worker.queue_size must be positive")
	}
	return nil
}

func setDefaults(cfg *Config) {
	cfg.Env = EnvDev
	cfg.MaxURLLength = 2048
	cfg.MigrationsPath = "file://migrations"
	cfg.ShortCode = defaultShortCode
	cfg.HTTPServer = defaultHTTPServer
	cfg.Postgres = defaultPostgres
	cfg.Redis = defaultRedis
	cfg.Cache = defaultCache
	cfg.RateLimit = defaultRateLimit
	cfg.Cleanup = defaultCleanup
	cfg.Worker = defaultWorker
	cfg.Log = Log{Level: "info", JSON: true, Concise: true}
}
