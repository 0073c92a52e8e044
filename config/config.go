// Package config loads the client configuration: defaults, then an
// optional YAML file, then JOBBOARD_* environment variables.
package config

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
)

const (
	DriverMemory = "memory"
	DriverSQLite = "sqlite"
	DriverRedis  = "redis"
)

type Config struct {
	API     API     `yaml:"api"`
	Storage Storage `yaml:"storage"`
	Logging Logging `yaml:"logging"`
	UI      UI      `yaml:"ui"`
	// PhoneRegion is the default region of phone numbers without prefix.
	PhoneRegion string `yaml:"phone_region"`
}

type API struct {
	BaseURL       string        `yaml:"base_url"`
	Timeout       time.Duration `yaml:"timeout"`
	UploadTimeout time.Duration `yaml:"upload_timeout"`
	UploadLimit   string        `yaml:"upload_limit"`
	// MetricsNamespace prefixes the pipeline counters.
	MetricsNamespace string `yaml:"metrics_namespace"`
}

type Storage struct {
	Driver string `yaml:"driver"`
	// DSN is the sqlite data source.
	DSN string `yaml:"dsn"`

	RedisAddr     string        `yaml:"redis_addr"`
	RedisPassword string        `yaml:"redis_password"`
	RedisDB       int           `yaml:"redis_db"`
	RedisPrefix   string        `yaml:"redis_prefix"`
	RedisTTL      time.Duration `yaml:"redis_ttl"`
}

type Logging struct {
	Level string `yaml:"level"`
	// Development switches zap to its console encoder.
	Development bool `yaml:"development"`
}

type UI struct {
	PublicLocations      []string `yaml:"public_locations"`
	LoginLocation        string   `yaml:"login_location"`
	AccessDeniedLocation string   `yaml:"access_denied_location"`
}

// Defaults returns the built in configuration.
func Defaults() Config {
	return Config{
		API: API{
			BaseURL:          "http://localhost:8000/api/",
			Timeout:          30 * time.Second,
			UploadTimeout:    180 * time.Second,
			UploadLimit:      "10 MB",
			MetricsNamespace: "jobboard",
		},
		Storage: Storage{
			Driver:      DriverMemory,
			DSN:         "file:jobboard.db?cache=shared",
			RedisAddr:   "localhost:6379",
			RedisPrefix: "jobboard:",
		},
		Logging: Logging{
			Level: "info",
		},
		UI: UI{
			LoginLocation:        "/connexion",
			AccessDeniedLocation: "/access-denied",
		},
		PhoneRegion: "FR",
	}
}

// Validate will run validation rules
func (c Config) Validate() error {
	return validation.Errors{
		"api":          c.API.Validate(),
		"storage":      c.Storage.Validate(),
		"logging":      c.Logging.Validate(),
		"phone_region": validation.Validate(c.PhoneRegion, validation.Required, validation.Length(2, 2)),
	}.Filter()
}

// Validate will run validation rules
func (a API) Validate() error {
	return validation.ValidateStruct(&a,
		validation.Field(&a.BaseURL, validation.Required, is.URL),
		validation.Field(&a.Timeout, validation.Required, validation.Min(time.Second)),
		validation.Field(&a.UploadTimeout, validation.Required, validation.Min(time.Second)),
		validation.Field(&a.UploadLimit, validation.Required),
	)
}

// Validate will run validation rules
func (s Storage) Validate() error {
	var dsn, addr []validation.Rule
	switch s.Driver {
	case DriverSQLite:
		dsn = append(dsn, validation.Required)
	case DriverRedis:
		addr = append(addr, validation.Required)
	}
	return validation.ValidateStruct(&s,
		validation.Field(&s.Driver, validation.Required, validation.In(DriverMemory, DriverSQLite, DriverRedis)),
		validation.Field(&s.DSN, dsn...),
		validation.Field(&s.RedisAddr, addr...),
		validation.Field(&s.RedisDB, validation.Min(0)),
	)
}

// Validate will run validation rules
func (l Logging) Validate() error {
	return validation.ValidateStruct(&l,
		validation.Field(&l.Level, validation.Required, validation.In("debug", "info", "warn", "error")),
	)
}
