package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the path checked for YAML configuration.
const DefaultConfigFile = "jobboard.yaml"

// EnvPrefix prefixes every environment override.
const EnvPrefix = "JOBBOARD_"

// Load reads DefaultConfigFile, or the file named by JOBBOARD_CONFIG.
func Load() (*Config, error) {
	path := os.Getenv(EnvPrefix + "CONFIG")
	if path == "" {
		path = DefaultConfigFile
	}
	return LoadFrom(path)
}

// LoadFrom returns the configuration with the precedence
// defaults < YAML < environment. A missing YAML file is not an error.
func LoadFrom(path string) (*Config, error) {
	cfg := Defaults()

	if err := loadYAML(&cfg, path); err != nil {
		return nil, fmt.Errorf("config yaml: %w", err)
	}

	if err := loadEnv(&cfg, os.LookupEnv); err != nil {
		return nil, fmt.Errorf("config env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validate: %w", err)
	}

	return &cfg, nil
}

func loadYAML(cfg *Config, path string) error {
	if path == "" {
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

type lookupFunc func(string) (string, bool)

// loadEnv overlays non-empty environment values onto cfg.
func loadEnv(cfg *Config, lookup lookupFunc) error {
	env := envReader{lookup: lookup}

	env.setString(&cfg.API.BaseURL, "API_URL")
	env.setDuration(&cfg.API.Timeout, "TIMEOUT")
	env.setDuration(&cfg.API.UploadTimeout, "UPLOAD_TIMEOUT")
	env.setString(&cfg.API.UploadLimit, "UPLOAD_LIMIT")
	env.setString(&cfg.API.MetricsNamespace, "METRICS_NAMESPACE")

	env.setString(&cfg.Storage.Driver, "STORAGE")
	env.setString(&cfg.Storage.DSN, "SQLITE_DSN")
	env.setString(&cfg.Storage.RedisAddr, "REDIS_ADDR")
	env.setString(&cfg.Storage.RedisPassword, "REDIS_PASSWORD")
	env.setInt(&cfg.Storage.RedisDB, "REDIS_DB")
	env.setString(&cfg.Storage.RedisPrefix, "REDIS_PREFIX")
	env.setDuration(&cfg.Storage.RedisTTL, "REDIS_TTL")

	env.setString(&cfg.Logging.Level, "LOG_LEVEL")
	env.setBool(&cfg.Logging.Development, "LOG_DEVELOPMENT")

	env.setList(&cfg.UI.PublicLocations, "PUBLIC_LOCATIONS")
	env.setString(&cfg.UI.LoginLocation, "LOGIN_LOCATION")
	env.setString(&cfg.UI.AccessDeniedLocation, "ACCESS_DENIED_LOCATION")

	env.setString(&cfg.PhoneRegion, "PHONE_REGION")

	return errors.Join(env.errs...)
}

type envReader struct {
	lookup lookupFunc
	errs   []error
}

func (e *envReader) get(key string) (string, bool) {
	v, ok := e.lookup(EnvPrefix + key)
	v = strings.TrimSpace(v)
	return v, ok && v != ""
}

func (e *envReader) setString(dst *string, key string) {
	if v, ok := e.get(key); ok {
		*dst = v
	}
}

func (e *envReader) setInt(dst *int, key string) {
	v, ok := e.get(key)
	if !ok {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s%s: %w", EnvPrefix, key, err))
		return
	}
	*dst = n
}

func (e *envReader) setBool(dst *bool, key string) {
	v, ok := e.get(key)
	if !ok {
		return
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s%s: %w", EnvPrefix, key, err))
		return
	}
	*dst = b
}

func (e *envReader) setDuration(dst *time.Duration, key string) {
	v, ok := e.get(key)
	if !ok {
		return
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s%s: %w", EnvPrefix, key, err))
		return
	}
	*dst = d
}

// setList splits a comma separated value.
func (e *envReader) setList(dst *[]string, key string) {
	v, ok := e.get(key)
	if !ok {
		return
	}
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	*dst = out
}
