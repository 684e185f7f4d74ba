// Package config assembles the service configuration from (in increasing
// priority) built-in defaults, a JSON config file, environment variables,
// and command-line flags. The result is validated before use.
package config

import (
	"encoding/json"
	"flag"
	"log"
	"os"
	"time"

	env "github.com/caarlos0/env/v6"
	validator "github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Config holds every runtime setting of the service.
type Config struct {
	RunAddr             string        `env:"SERVER_ADDRESS" json:"server_address" validate:"hostname_port"`
	LogLevel            string        `env:"LOG_LEVEL" json:"log_level" validate:"loglevel"`
	DatabaseDSN         string        `env:"DATABASE_DSN" json:"database_dsn"`
	DBFileName          string        `env:"FILE_STORAGE_PATH" json:"file_storage_path" validate:"filepath"`
	DBConnectionTimeout time.Duration `env:"DB_CONNECTION_TIMEOUT" json:"db_connection_timeout"`
	MigrationsDir       string        `env:"MIGRATIONS_DIR" json:"migrations_dir"`
	TokenSigningKey     string        `env:"JWT_SECRET" json:"jwt_secret"`
	TokenTTL            time.Duration `env:"TOKEN_TTL" json:"token_ttl"`
	StaticDir           string        `env:"STATIC_DIR" json:"static_dir"`
}

var defaultConfig = Config{
	RunAddr:             ":8080",
	LogLevel:            "info",
	DatabaseDSN:         "",
	DBFileName:          "music.db",
	DBConnectionTimeout: 10 * time.Second,
	MigrationsDir:       "cmd/musicbox/migrations",
	TokenSigningKey:     "defaultsecretkey",
	TokenTTL:            2 * time.Hour,
	StaticDir:           "public",
}

func validateFilePath(fieldLevel validator.FieldLevel) bool {
	path := fieldLevel.Field().String()
	if path == "" {
		return true
	}
	_, err := os.Stat(path)

	return err == nil || os.IsNotExist(err)
}

func validateLogLevel(fieldLevel validator.FieldLevel) bool {
	value := fieldLevel.Field().String()

	allowedLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
		"fatal": true,
	}

	return allowedLogLevels[value]
}

func (c *Config) validate() error {
	validate := validator.New()

	if err := validate.RegisterValidation("loglevel", validateLogLevel); err != nil {
		return err
	}

	if err := validate.RegisterValidation("filepath", validateFilePath); err != nil {
		return err
	}

	return validate.Struct(c)
}

func applyDefaults(target *Config, defaults Config) {
	*target = defaults
}

func (c *Config) applyJSONFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	return json.Unmarshal(data, c)
}

func (c *Config) applyEnv() error {
	fromEnv := Config{}
	if err := env.Parse(&fromEnv); err != nil {
		return err
	}

	if fromEnv.RunAddr != "" {
		c.RunAddr = fromEnv.RunAddr
	}
	if fromEnv.LogLevel != "" {
		c.LogLevel = fromEnv.LogLevel
	}
	if fromEnv.DatabaseDSN != "" {
		c.DatabaseDSN = fromEnv.DatabaseDSN
	}
	if fromEnv.DBFileName != "" {
		c.DBFileName = fromEnv.DBFileName
	}
	if fromEnv.DBConnectionTimeout != 0 {
		c.DBConnectionTimeout = fromEnv.DBConnectionTimeout
	}
	if fromEnv.MigrationsDir != "" {
		c.MigrationsDir = fromEnv.MigrationsDir
	}
	if fromEnv.TokenSigningKey != "" {
		c.TokenSigningKey = fromEnv.TokenSigningKey
	}
	if fromEnv.TokenTTL != 0 {
		c.TokenTTL = fromEnv.TokenTTL
	}
	if fromEnv.StaticDir != "" {
		c.StaticDir = fromEnv.StaticDir
	}

	return nil
}

// InitOption is a functional option for New.
type InitOption func(*initOptions)

type initOptions struct {
	disableFlagsParsing bool
}

// WithDisableFlagsParsing disables command-line flag parsing.
// Tests use it to keep the global flag set untouched.
func WithDisableFlagsParsing(disableFlagsParsing bool) InitOption {
	return func(options *initOptions) {
		options.disableFlagsParsing = disableFlagsParsing
	}
}

// New builds the configuration. Sources are applied in order of
// increasing priority: defaults, the JSON file named by the CONFIG
// environment variable, a .env file, environment variables, flags.
func New(optionsProto ...InitOption) (*Config, error) {
	options := &initOptions{}
	for _, protoOption := range optionsProto {
		protoOption(options)
	}

	if err := godotenv.Load(); err != nil {
		log.Printf("Unable to load .env file: %v", err)
	}

	cfg := &Config{}
	applyDefaults(cfg, defaultConfig)

	if configFile := os.Getenv("CONFIG"); configFile != "" {
		if err := cfg.applyJSONFile(configFile); err != nil {
			return nil, err
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	if !options.disableFlagsParsing {
		flags := flag.NewFlagSet(os.Args[0], flag.ContinueOnError)
		flags.StringVar(&cfg.RunAddr, "a", cfg.RunAddr, "address and port to run server")
		flags.StringVar(&cfg.LogLevel, "l", cfg.LogLevel, "logger level")
		flags.StringVar(&cfg.DatabaseDSN, "d", cfg.DatabaseDSN, "PostgreSQL connection string (uses SQLite when empty)")
		flags.StringVar(&cfg.DBFileName, "f", cfg.DBFileName, "SQLite database file name")
		flags.StringVar(&cfg.StaticDir, "s", cfg.StaticDir, "directory with the browser client and audio files")
		if err := flags.Parse(os.Args[1:]); err != nil {
			return nil, err
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}
