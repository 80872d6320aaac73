package configuration

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/iota-uz/utils/fs"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/iota-uz/greeting-store/pkg/logging"
)

const Production = "production"

var singleton = sync.OnceValue(func() *Configuration {
	c := &Configuration{}
	if err := c.load([]string{".env", ".env.local"}); err != nil {
		c.Unload()
		panic(err)
	}
	return c
})

func LoadEnv(envFiles []string) (int, error) {
	existingFiles := make([]string, 0, len(envFiles))
	for _, file := range envFiles {
		if fs.FileExists(file) {
			existingFiles = append(existingFiles, file)
		}
	}

	if len(existingFiles) == 0 {
		return 0, nil
	}

	return len(existingFiles), godotenv.Load(existingFiles...)
}

type DatabaseOptions struct {
	Opts            string        `env:"-"`
	Name            string        `env:"DB_NAME" envDefault:"greeting"`
	Host            string        `env:"DB_HOST" envDefault:"localhost"`
	Port            string        `env:"DB_PORT" envDefault:"5432"`
	User            string        `env:"DB_USER" envDefault:"postgres"`
	Password        string        `env:"DB_PASSWORD" envDefault:"postgres"`
	MaxConns        int32         `env:"DB_MAX_CONNS" envDefault:"10"`
	MinConns        int32         `env:"DB_MIN_CONNS" envDefault:"0"`
	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" envDefault:"1h"`
	MaxConnIdleTime time.Duration `env:"DB_MAX_CONN_IDLE_TIME" envDefault:"30m"`
	ConnectTimeout  time.Duration `env:"DB_CONNECT_TIMEOUT" envDefault:"5s"`
}

func (d *DatabaseOptions) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s dbname=%s password=%s sslmode=disable",
		d.Host, d.Port, d.User, d.Name, d.Password,
	)
}

// URL is the lib/pq form used by the migration runner.
func (d *DatabaseOptions) URL() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=disable",
		d.User, d.Password, d.Host, d.Port, d.Name,
	)
}

func (d *DatabaseOptions) Validate() error {
	if d.MaxConns <= 0 {
		return fmt.Errorf("DB_MAX_CONNS must be positive, got %d", d.MaxConns)
	}
	if d.MinConns < 0 || d.MinConns > d.MaxConns {
		return fmt.Errorf("DB_MIN_CONNS must be within [0, %d], got %d", d.MaxConns, d.MinConns)
	}
	if d.ConnectTimeout <= 0 {
		return fmt.Errorf("DB_CONNECT_TIMEOUT must be positive, got %s", d.ConnectTimeout)
	}
	return nil
}

type OpenTelemetryOptions struct {
	Enabled     bool   `env:"OTEL_ENABLED" envDefault:"false"`
	TempoURL    string `env:"OTEL_TEMPO_URL" envDefault:"localhost:4318"`
	ServiceName string `env:"OTEL_SERVICE_NAME" envDefault:"greeting-store"`
}

type PrometheusOptions struct {
	Enabled bool   `env:"PROMETHEUS_METRICS_ENABLED" envDefault:"true"`
	Path    string `env:"PROMETHEUS_METRICS_PATH" envDefault:"/metrics"`
}

type LogGenerationOptions struct {
	Enabled      bool          `env:"LOG_GENERATION_ENABLED" envDefault:"true"`
	Interval     time.Duration `env:"LOG_GENERATION_INTERVAL" envDefault:"1s"`
	CycleTimeout time.Duration `env:"LOG_GENERATION_CYCLE_TIMEOUT" envDefault:"30s"`
	Procedure    string        `env:"LOG_GENERATION_PROCEDURE" envDefault:"generate_logg"`
}

// Validate checks the log generation configuration for errors
func (o *LogGenerationOptions) Validate() error {
	if o.Interval <= 0 {
		return fmt.Errorf("LOG_GENERATION_INTERVAL must be positive, got %s", o.Interval)
	}
	if o.CycleTimeout < 0 {
		return fmt.Errorf("LOG_GENERATION_CYCLE_TIMEOUT must be non-negative, got %s", o.CycleTimeout)
	}
	if strings.TrimSpace(o.Procedure) == "" {
		return fmt.Errorf("LOG_GENERATION_PROCEDURE is required")
	}
	return nil
}

type RateLimitOptions struct {
	Enabled   bool   `env:"RATE_LIMIT_ENABLED" envDefault:"false"`
	GlobalRPS int    `env:"RATE_LIMIT_GLOBAL_RPS" envDefault:"100"`
	Storage   string `env:"RATE_LIMIT_STORAGE" envDefault:"memory"` // memory or redis
	RedisURL  string `env:"RATE_LIMIT_REDIS_URL"`
}

// Validate checks the rate limit configuration for errors
func (r *RateLimitOptions) Validate() error {
	if r.GlobalRPS < 0 {
		return fmt.Errorf("rate limit GlobalRPS must be non-negative, got %d", r.GlobalRPS)
	}
	if r.Storage != "memory" && r.Storage != "redis" {
		return fmt.Errorf("rate limit Storage must be 'memory' or 'redis', got '%s'", r.Storage)
	}
	if r.Storage == "redis" && r.RedisURL == "" {
		return fmt.Errorf("rate limit RedisURL is required when Storage is 'redis'")
	}
	return nil
}

type Configuration struct {
	Database      DatabaseOptions
	OpenTelemetry OpenTelemetryOptions
	Prometheus    PrometheusOptions
	LogGeneration LogGenerationOptions
	RateLimit     RateLimitOptions

	GoAppEnvironment string `env:"GO_APP_ENV" envDefault:"development"`
	LogLevel         string `env:"LOG_LEVEL" envDefault:"error"`
	LogPath          string `env:"LOG_PATH" envDefault:"./logs/app.log"`
	MigrateOnStart   bool   `env:"MIGRATE_ON_START" envDefault:"false"`
	// Address of the /metrics and /health listener started by serve.
	OpsAddr string `env:"OPS_ADDR" envDefault:"localhost:9464"`
	// Empty disables CORS on the ops listener.
	OpsAllowedOrigins []string `env:"OPS_ALLOWED_ORIGINS" envSeparator:","`

	logFile *os.File
	logger  *logrus.Logger
}

func (c *Configuration) Logger() *logrus.Logger {
	return c.logger
}

func (c *Configuration) LogrusLogLevel() logrus.Level {
	switch c.LogLevel {
	case "silent":
		return logrus.PanicLevel
	case "error":
		return logrus.ErrorLevel
	case "warn":
		return logrus.WarnLevel
	case "info":
		return logrus.InfoLevel
	case "debug":
		return logrus.DebugLevel
	default:
		return logrus.ErrorLevel
	}
}

func Use() *Configuration {
	return singleton()
}

// Load reads configuration without touching the process-wide singleton.
func Load(envFiles ...string) (*Configuration, error) {
	c := &Configuration{}
	if err := c.load(envFiles); err != nil {
		c.Unload()
		return nil, err
	}
	return c, nil
}

func (c *Configuration) load(envFiles []string) error {
	n, err := LoadEnv(envFiles)
	if err != nil {
		return err
	}
	if n == 0 && len(envFiles) > 0 {
		wd, _ := os.Getwd()
		log.Println("No .env files found. Tried:")
		for _, file := range envFiles {
			log.Println(filepath.Join(wd, file))
		}
	}
	if err := env.Parse(c); err != nil {
		return err
	}

	if err := c.validate(); err != nil {
		return err
	}

	f, logger, err := logging.FileLogger(c.LogrusLogLevel(), c.LogPath)
	if err != nil {
		return err
	}
	c.logFile = f
	c.logger = logger

	c.Database.Opts = c.Database.ConnectionString()
	return nil
}

func (c *Configuration) validate() error {
	level := strings.ToLower(strings.TrimSpace(c.LogLevel))
	switch level {
	case "silent", "error", "warn", "info", "debug":
	default:
		return fmt.Errorf("invalid LOG_LEVEL=%q (expected silent|error|warn|info|debug)", c.LogLevel)
	}
	c.LogLevel = level

	if err := c.Database.Validate(); err != nil {
		return fmt.Errorf("database configuration error: %w", err)
	}
	if err := c.LogGeneration.Validate(); err != nil {
		return fmt.Errorf("log generation configuration error: %w", err)
	}
	if err := c.RateLimit.Validate(); err != nil {
		return fmt.Errorf("rate limit configuration error: %w", err)
	}
	if c.Prometheus.Enabled && !strings.HasPrefix(c.Prometheus.Path, "/") {
		return fmt.Errorf("invalid PROMETHEUS_METRICS_PATH=%q (must start with /)", c.Prometheus.Path)
	}
	return nil
}

// Unload handles a graceful shutdown.
func (c *Configuration) Unload() {
	if c.logFile != nil {
		if err := c.logFile.Close(); err != nil {
			log.Printf("Failed to close log file: %v", err)
		}
		c.logFile = nil
	}
}
