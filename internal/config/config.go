package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/TraderInsightsLab/Sistem/internal/apperr"
)

// Conf holds the application configuration, making it accessible globally.
var Conf *Config

// Config struct is the top-level configuration structure.
type Config struct {
	Server       ServerConfig       `mapstructure:"server"`
	Database     DatabaseConfig     `mapstructure:"database"`
	Logging      LoggingConfig      `mapstructure:"logging"`
	Catalog      CatalogConfig      `mapstructure:"catalog"`
	Analysis     AnalysisConfig     `mapstructure:"analysis"`
	Payment      PaymentConfig      `mapstructure:"payment"`
	Email        EmailConfig        `mapstructure:"email"`
	Report       ReportConfig       `mapstructure:"report"`
	Housekeeping HousekeepingConfig `mapstructure:"housekeeping"`
	Games        GamesConfig        `mapstructure:"games"`
}

// ServerConfig holds server-related settings.
type ServerConfig struct {
	Port           string   `mapstructure:"port"`
	BaseURL        string   `mapstructure:"base_url"`
	SessionSecret  string   `mapstructure:"session_secret"`
	SecureCookies  bool     `mapstructure:"secure_cookies"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	RateLimit      uint     `mapstructure:"rate_limit"`
	// ShutdownTimeout bounds the graceful drain of in-flight requests and report deliveries.
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	Driver   string `mapstructure:"driver"`
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

// DSN renders the connection string for the postgres driver.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=UTC",
		d.Host, d.User, d.Password, d.DBName, d.Port, d.SSLMode)
}

// LoggingConfig holds settings for the logger.
type LoggingConfig struct {
	Directory  string `mapstructure:"directory"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
	Compress   bool   `mapstructure:"compress"`
	// SlowQuery is the threshold above which SQL statements are logged at WARN.
	SlowQuery time.Duration `mapstructure:"slow_query"`
}

type CatalogConfig struct {
	Path string `mapstructure:"path"`
}

// AnalysisConfig configures the OpenAI-compatible completion endpoint. With no API key
// the server falls back to the rule-based profile.
type AnalysisConfig struct {
	BaseURL     string        `mapstructure:"base_url"`
	APIKey      string        `mapstructure:"api_key"`
	Model       string        `mapstructure:"model"`
	Temperature float64       `mapstructure:"temperature"`
	TopP        float64       `mapstructure:"top_p"`
	MaxTokens   int           `mapstructure:"max_tokens"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

type PaymentConfig struct {
	SecretKey        string `mapstructure:"secret_key"`
	WebhookSecret    string `mapstructure:"webhook_secret"`
	AmountMinorUnits int64  `mapstructure:"amount_minor_units"`
	Currency         string `mapstructure:"currency"`
	ProductName      string `mapstructure:"product_name"`
	SuccessURL       string `mapstructure:"success_url"`
	CancelURL        string `mapstructure:"cancel_url"`
}

type EmailConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"`
	FromName string `mapstructure:"from_name"`
}

type ReportConfig struct {
	ChromePath    string        `mapstructure:"chrome_path"`
	RenderTimeout time.Duration `mapstructure:"render_timeout"`
}

type HousekeepingConfig struct {
	CleanupSchedule     string        `mapstructure:"cleanup_schedule"`
	ReportRetrySchedule string        `mapstructure:"report_retry_schedule"`
	StatsSchedule       string        `mapstructure:"stats_schedule"`
	StaleAfter          time.Duration `mapstructure:"stale_after"`
	BatchSize           int           `mapstructure:"batch_size"`
	RetryMaxElapsed     time.Duration `mapstructure:"retry_max_elapsed"`
}

// GamesConfig bounds the registry of games being played.
type GamesConfig struct {
	Capacity int           `mapstructure:"capacity"`
	TTL      time.Duration `mapstructure:"ttl"`
}

// setDefaults sets the default values for the configuration.
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", "5050")
	v.SetDefault("server.base_url", "http://localhost:5050")
	v.SetDefault("server.session_secret", "change-me")
	v.SetDefault("server.secure_cookies", false)
	v.SetDefault("server.allowed_origins", []string{})
	v.SetDefault("server.rate_limit", 5)
	v.SetDefault("server.shutdown_timeout", "30s")

	// Database defaults
	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.host", "db")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.user", "user")
	v.SetDefault("database.password", "password")
	v.SetDefault("database.dbname", "trader-insights")
	v.SetDefault("database.sslmode", "disable")

	// Logging defaults
	v.SetDefault("logging.directory", "logs")
	v.SetDefault("logging.max_size", 10)   // 10 MB
	v.SetDefault("logging.max_backups", 3) // Keep 3 backups
	v.SetDefault("logging.max_age", 7)     // 7 days
	v.SetDefault("logging.compress", true) // Compress old logs
	v.SetDefault("logging.slow_query", "200ms")

	v.SetDefault("catalog.path", "config/questions.yaml")

	v.SetDefault("analysis.base_url", "https://api.openai.com/v1")
	v.SetDefault("analysis.api_key", "")
	v.SetDefault("analysis.model", "gpt-4o-mini")
	v.SetDefault("analysis.temperature", 0.3)
	v.SetDefault("analysis.top_p", 0.8)
	v.SetDefault("analysis.max_tokens", 8192)
	v.SetDefault("analysis.timeout", "90s")

	v.SetDefault("payment.secret_key", "")
	v.SetDefault("payment.webhook_secret", "")
	v.SetDefault("payment.amount_minor_units", 4900)
	v.SetDefault("payment.currency", "ron")
	v.SetDefault("payment.product_name", "Raport complet de profil psihologic")
	v.SetDefault("payment.success_url", "http://localhost:3000/rezultate?session={sessionId}&paid=1")
	v.SetDefault("payment.cancel_url", "http://localhost:3000/rezultate?session={sessionId}")

	v.SetDefault("email.host", "localhost")
	v.SetDefault("email.port", 587)
	v.SetDefault("email.username", "")
	v.SetDefault("email.password", "")
	v.SetDefault("email.from", "raport@traderinsights.ro")
	v.SetDefault("email.from_name", "Trader Insights")

	v.SetDefault("report.chrome_path", "")
	v.SetDefault("report.render_timeout", "30s")

	v.SetDefault("housekeeping.cleanup_schedule", "@daily")
	v.SetDefault("housekeeping.report_retry_schedule", "@every 15m")
	v.SetDefault("housekeeping.stats_schedule", "@every 1m")
	v.SetDefault("housekeeping.stale_after", "168h")
	v.SetDefault("housekeeping.batch_size", 500)
	v.SetDefault("housekeeping.retry_max_elapsed", "10m")

	v.SetDefault("games.capacity", 10000)
	v.SetDefault("games.ttl", "30m")
}

// Validate rejects settings the server cannot run with.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "postgres", "memory":
	default:
		return apperr.Configuration("database.driver must be postgres or memory, got %q", c.Database.Driver)
	}
	if c.Catalog.Path == "" {
		return apperr.Configuration("catalog.path is required")
	}
	if c.Payment.AmountMinorUnits < 50 {
		return apperr.Configuration("payment.amount_minor_units must be at least 50, got %d", c.Payment.AmountMinorUnits)
	}
	if c.Payment.Currency == "" {
		return apperr.Configuration("payment.currency is required")
	}
	if c.Server.SessionSecret == "" {
		return apperr.Configuration("server.session_secret is required")
	}
	if c.Games.Capacity <= 0 {
		return apperr.Configuration("games.capacity must be positive")
	}
	return nil
}

// Init initializes the configuration with Viper.
func Init(projectRoot string, log *zap.Logger) error {
	v := viper.New()

	// Set default values
	setDefaults(v)

	// --- File Configuration ---
	v.AddConfigPath(filepath.Join(projectRoot, "config")) // Search for config file in the current directory
	v.SetConfigName("config")                             // Name of config file (without extension)
	v.SetConfigType("yaml")                               // Type of config file

	// --- Environment Variable Binding ---
	v.SetEnvPrefix("TIL") // e.g., TIL_SERVER_PORT
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read the initial configuration from the file.
	// It's okay if the file doesn't exist; defaults and env vars will be used.
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return apperr.Configuration("error reading config file: %v", err)
		}
	}

	loaded, err := decode(v)
	if err != nil {
		return err
	}
	Conf = loaded

	// Set up a watch for configuration changes for hot-reloading
	if v.ConfigFileUsed() != "" {
		v.WatchConfig()
		v.OnConfigChange(func(e fsnotify.Event) {
			log.Info("Configuration file changed, reloading.", zap.String("file", e.Name))
			next, err := decode(v)
			if err != nil {
				log.Error("Error reloading configuration, keeping the previous one", zap.Error(err))
				return
			}
			Conf = next
		})
	}

	log.Info("Configuration loaded successfully", zap.String("file", v.ConfigFileUsed()))
	return nil
}

func decode(v *viper.Viper) (*Config, error) {
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, apperr.Configuration("unable to decode config into struct: %v", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}
