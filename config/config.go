package config

import (
	"fmt"
	"os"
	"reflect"
	"sync"
	"time"

	"cubeduel/database"

	"github.com/caarlos0/env/v11"
	"github.com/shopspring/decimal"
)

// Config holds all application configuration
type Config struct {
	// Telegram configuration
	TelegramToken    string  `env:"TELEGRAM_TOKEN"`
	AdminTelegramIDs []int64 `env:"ADMIN_TELEGRAM_IDS" envSeparator:","`

	// Database configuration
	DatabaseURL  string `env:"DATABASE_URL"`
	DatabaseName string `env:"DATABASE_NAME"`

	// Logging
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"`

	// Economy
	StartingStars decimal.Decimal `env:"STARTING_STARS" envDefault:"0"`

	// Cube duel tuning
	Cube CubeConfig

	// Guard storage: "memory" for a single process, "redis" when several bot processes share tables
	GuardBackend  string `env:"GUARD_BACKEND" envDefault:"memory"`
	RedisAddr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	// NATS configuration, empty disables event forwarding
	NATSServers string `env:"NATS_SERVERS"`

	// Ops API, port 0 disables it
	OpsAPIPort  int    `env:"OPS_API_PORT" envDefault:"0"`
	OpsAPIToken string `env:"OPS_API_TOKEN"`

	// OpenTelemetry configuration
	OTelEnabled              bool   `env:"OTEL_ENABLED" envDefault:"false"`
	OTelExporterType         string `env:"OTEL_EXPORTER_TYPE" envDefault:"console"`
	OTelOTLPEndpoint         string `env:"OTEL_OTLP_ENDPOINT" envDefault:"localhost:4317"`
	OTelServiceName          string `env:"OTEL_SERVICE_NAME" envDefault:"cubeduel"`
	OTelExportIntervalMillis int    `env:"OTEL_EXPORT_INTERVAL_MS" envDefault:"60000"`

	// Environment
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
}

// CubeConfig holds the duel timing and economy parameters
type CubeConfig struct {
	TableWagers       []decimal.Decimal `env:"CUBE_TABLE_WAGERS" envSeparator:"," envDefault:"1,5,10"`
	TurnTimeout       time.Duration     `env:"CUBE_TURN_TIMEOUT" envDefault:"30s"`
	RejoinCooldown    time.Duration     `env:"CUBE_REJOIN_COOLDOWN" envDefault:"15s"`
	ThrowPacing       time.Duration     `env:"CUBE_THROW_PACING" envDefault:"4s"`
	DefaultCommission decimal.Decimal   `env:"CUBE_DEFAULT_COMMISSION" envDefault:"20"`
	JoinRetries       int               `env:"CUBE_JOIN_RETRIES" envDefault:"3"`
	CanceledRetention time.Duration     `env:"CUBE_CANCELED_RETENTION" envDefault:"1h"`
	CleanupSchedule   string            `env:"CUBE_CLEANUP_SCHEDULE" envDefault:"@daily"`
}

var (
	instance *Config
	once     sync.Once
	mu       sync.Mutex // Protects instance for test setup
)

// Get returns the global configuration instance
func Get() *Config {
	mu.Lock()
	defer mu.Unlock()

	// If instance is already set (e.g., by tests), return it
	if instance != nil {
		return instance
	}

	once.Do(func() {
		var err error
		instance, err = load()
		if err != nil {
			if os.Getenv("ENVIRONMENT") == "test" {
				instance = NewTestConfig()
			} else {
				panic(fmt.Sprintf("failed to load config: %v", err))
			}
		}
	})
	return instance
}

// GetDatabaseURL constructs the full database URL by combining base URL and database name
func (c *Config) GetDatabaseURL() string {
	return database.ConstructDatabaseURL(c.DatabaseURL, c.DatabaseName)
}

// IsAdmin reports whether a Telegram account is listed as an administrator
func (c *Config) IsAdmin(telegramID int64) bool {
	for _, id := range c.AdminTelegramIDs {
		if id == telegramID {
			return true
		}
	}
	return false
}

// load loads configuration from environment variables
func load() (*Config, error) {
	config := &Config{}
	if err := env.ParseWithOptions(config, env.Options{FuncMap: parsers()}); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	if err := config.validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func parsers() map[reflect.Type]env.ParserFunc {
	return map[reflect.Type]env.ParserFunc{
		reflect.TypeOf(decimal.Decimal{}): func(v string) (interface{}, error) {
			return decimal.NewFromString(v)
		},
	}
}

func (c *Config) validate() error {
	if len(c.Cube.TableWagers) == 0 {
		return fmt.Errorf("CUBE_TABLE_WAGERS must list at least one wager")
	}
	for _, w := range c.Cube.TableWagers {
		if !w.IsPositive() {
			return fmt.Errorf("CUBE_TABLE_WAGERS entries must be positive, got %s", w)
		}
	}
	if c.Cube.DefaultCommission.IsNegative() || c.Cube.DefaultCommission.GreaterThan(decimal.NewFromInt(100)) {
		return fmt.Errorf("CUBE_DEFAULT_COMMISSION must be between 0 and 100")
	}
	if c.GuardBackend != "memory" && c.GuardBackend != "redis" {
		return fmt.Errorf("unknown GUARD_BACKEND: %s", c.GuardBackend)
	}

	if c.Environment != "test" {
		// Validate required configuration
		if c.TelegramToken == "" {
			return fmt.Errorf("TELEGRAM_TOKEN is required")
		}
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required")
		}
	}
	return nil
}

// SetTestConfig sets a custom config instance for testing
// This should only be called from test files
func SetTestConfig(testConfig *Config) {
	mu.Lock()
	defer mu.Unlock()
	instance = testConfig
}

// ResetConfig resets the global config instance and sync.Once for testing
// This should only be called from test files
func ResetConfig() {
	mu.Lock()
	defer mu.Unlock()
	instance = nil
	once = sync.Once{}
}

// NewTestConfig creates a minimal config suitable for unit tests
func NewTestConfig() *Config {
	return &Config{
		Environment:   "test",
		TelegramToken: "test-token",
		LogLevel:      "debug",
		StartingStars: decimal.Zero,
		GuardBackend:  "memory",
		Cube: CubeConfig{
			TableWagers:       []decimal.Decimal{decimal.NewFromInt(1), decimal.NewFromInt(5), decimal.NewFromInt(10)},
			TurnTimeout:       30 * time.Second,
			RejoinCooldown:    15 * time.Second,
			ThrowPacing:       0,
			DefaultCommission: decimal.NewFromInt(20),
			JoinRetries:       3,
			CanceledRetention: time.Hour,
			CleanupSchedule:   "@daily",
		},
	}
}
