package config

import "time"

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server   ServerConfig   `mapstructure:"server" validate:"required"`
	Database DatabaseConfig `mapstructure:"database" validate:"required"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Scoring  ScoringConfig  `mapstructure:"scoring" validate:"required"`
	Logging  LoggingConfig  `mapstructure:"logging" validate:"required"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Port            int           `mapstructure:"port" validate:"required,gt=0,lt=65536"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout" validate:"gt=0"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout" validate:"gt=0"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"gt=0"`
}

// DatabaseConfig contains all database-related configuration settings.
type DatabaseConfig struct {
	URL             string        `mapstructure:"url" validate:"required,url"`
	MaxOpenConns    int           `mapstructure:"max_open_conns" validate:"gte=1"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns" validate:"gte=0"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime" validate:"gte=0"`
}

// CacheConfig configures the Redis result cache. When disabled, results are
// always read from the session rows.
type CacheConfig struct {
	Enabled   bool          `mapstructure:"enabled"`
	Addr      string        `mapstructure:"addr" validate:"required_if=Enabled true"`
	Password  string        `mapstructure:"password"`
	DB        int           `mapstructure:"db" validate:"gte=0"`
	ResultTTL time.Duration `mapstructure:"result_ttl" validate:"gt=0"`
}

// ScoringConfig tunes the scoring engine and the session lifecycle.
type ScoringConfig struct {
	// QuestionBankPath overrides the embedded question bank.
	QuestionBankPath        string        `mapstructure:"question_bank_path" validate:"omitempty,file"`
	MaxTextLength           int           `mapstructure:"max_text_length" validate:"gt=0"`
	MinResponseTimeMS       int64         `mapstructure:"min_response_time_ms" validate:"gte=0"`
	LowReliabilityThreshold float64       `mapstructure:"low_reliability_threshold" validate:"gte=0,lte=1"`
	BatchConcurrency        int           `mapstructure:"batch_concurrency" validate:"gte=1,lte=64"`
	SessionTTL              time.Duration `mapstructure:"session_ttl" validate:"gt=0"`
	ExpirySweepInterval     time.Duration `mapstructure:"expiry_sweep_interval" validate:"gt=0"`
}

// LoggingConfig configures the application logger.
type LoggingConfig struct {
	Level string `mapstructure:"level" validate:"required,oneof=debug info warn error"`
	// File, when set, receives a copy of every log line with size-based rotation.
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb" validate:"gt=0"`
	MaxBackups int    `mapstructure:"max_backups" validate:"gte=0"`
	MaxAgeDays int    `mapstructure:"max_age_days" validate:"gte=0"`
	Compress   bool   `mapstructure:"compress"`
}
