package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/garyjia/billing-engine/internal/billing"
)

// Config holds all application configuration
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Billing  BillingConfig  `mapstructure:"billing"`
	Kafka    KafkaConfig    `mapstructure:"kafka"`
	Logger   LoggerConfig   `mapstructure:"logger"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Path            string        `mapstructure:"path"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	MigrationsDir   string        `mapstructure:"migrations_dir"`
}

// BillingConfig holds billing engine configuration
type BillingConfig struct {
	// BacklogPolicy controls invoicing of past windows: merge_backlog or
	// deferred
	BacklogPolicy    string        `mapstructure:"backlog_policy"`
	OrderingSchedule string        `mapstructure:"ordering_schedule"`
	OrderingTimeout  time.Duration `mapstructure:"ordering_timeout"`
	OrderingBatch    int           `mapstructure:"ordering_batch"`
}

// KafkaConfig holds Kafka producer configuration
type KafkaConfig struct {
	Brokers    []string `mapstructure:"brokers"`
	OrderTopic string   `mapstructure:"order_topic"`
}

// LoggerConfig holds logger configuration
type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	OutputPath string `mapstructure:"output_path"`
	Format     string `mapstructure:"format"`
}

// Load loads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	bindEnvVars()

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values
func setDefaults() {
	// Server defaults
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", 30*time.Second)
	viper.SetDefault("server.write_timeout", 30*time.Second)

	// Database defaults
	viper.SetDefault("database.path", "data/billing.db")
	viper.SetDefault("database.max_open_conns", 25)
	viper.SetDefault("database.max_idle_conns", 5)
	viper.SetDefault("database.conn_max_lifetime", 5*time.Minute)
	viper.SetDefault("database.migrations_dir", "migrations")

	// Billing defaults
	viper.SetDefault("billing.backlog_policy", "merge_backlog")
	viper.SetDefault("billing.ordering_schedule", "*/5 * * * *")
	viper.SetDefault("billing.ordering_timeout", 2*time.Minute)
	viper.SetDefault("billing.ordering_batch", 100)

	// Kafka defaults
	viper.SetDefault("kafka.brokers", []string{"localhost:9092"})
	viper.SetDefault("kafka.order_topic", "invoice-orders")

	// Logger defaults
	viper.SetDefault("logger.level", "info")
	viper.SetDefault("logger.output_path", "stdout")
	viper.SetDefault("logger.format", "json")
}

// bindEnvVars binds environment variables to configuration
func bindEnvVars() {
	viper.BindEnv("database.path", "DATABASE_PATH")
	viper.BindEnv("kafka.brokers", "KAFKA_BROKERS")
	viper.BindEnv("kafka.order_topic", "KAFKA_ORDER_TOPIC")
	viper.BindEnv("billing.backlog_policy", "BILLING_BACKLOG_POLICY")
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if !c.BacklogPolicyValue().Valid() {
		return fmt.Errorf("billing.backlog_policy must be merge_backlog or deferred")
	}
	if c.Billing.OrderingSchedule == "" {
		return fmt.Errorf("billing.ordering_schedule is required")
	}
	if c.Billing.OrderingBatch <= 0 {
		return fmt.Errorf("billing.ordering_batch must be positive")
	}
	if len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers is required")
	}
	if c.Kafka.OrderTopic == "" {
		return fmt.Errorf("kafka.order_topic is required")
	}
	return nil
}

// BacklogPolicyValue maps the configured policy name to the engine policy
func (c *Config) BacklogPolicyValue() billing.BacklogPolicy {
	switch c.Billing.BacklogPolicy {
	case "deferred":
		return billing.PolicyDeferred
	case "merge_backlog":
		return billing.PolicyMergeBacklog
	default:
		return billing.BacklogPolicy(c.Billing.BacklogPolicy)
	}
}
