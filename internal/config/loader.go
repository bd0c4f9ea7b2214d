package config

import (
	"fmt"
	"net"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"
)

// lookupFunc resolves an environment variable. It matches os.LookupEnv.
type lookupFunc func(key string) (string, bool)

var durationType = reflect.TypeOf(time.Duration(0))

// Load reads configuration from environment variables.
// It applies defaults for unset values and validates the result.
func Load() (*Config, error) {
	return load(os.LookupEnv)
}

func load(lookup lookupFunc) (*Config, error) {
	cfg := &Config{}

	if err := walkFields(reflect.ValueOf(cfg).Elem(), func(f reflect.StructField, v reflect.Value) error {
		return populate(f, v, lookup)
	}); err != nil {
		return nil, fmt.Errorf("config load: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

// walkFields calls fn for every tagged leaf field, descending into nested
// section structs.
func walkFields(v reflect.Value, fn func(reflect.StructField, reflect.Value) error) error {
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		field, fieldVal := t.Field(i), v.Field(i)
		if !fieldVal.CanSet() {
			continue
		}
		if field.Type.Kind() == reflect.Struct {
			if err := walkFields(fieldVal, fn); err != nil {
				return err
			}
			continue
		}
		if field.Tag.Get("env") == "" {
			continue
		}
		if err := fn(field, fieldVal); err != nil {
			return err
		}
	}
	return nil
}

// populate fills one field from env, envAlt or default, in that order.
// An empty variable counts as unset.
func populate(field reflect.StructField, v reflect.Value, lookup lookupFunc) error {
	name := field.Tag.Get("env")

	value, _ := lookup(name)
	if value == "" {
		if alt := field.Tag.Get("envAlt"); alt != "" {
			value, _ = lookup(alt)
		}
	}
	if value == "" {
		if field.Tag.Get("required") == "true" {
			return fmt.Errorf("required environment variable %s is not set", name)
		}
		value = field.Tag.Get("default")
	}
	if value == "" {
		return nil
	}

	if err := setField(v, value); err != nil {
		return fmt.Errorf("invalid value for %s=%q: %w", name, value, err)
	}
	return nil
}

// setField parses value into the field's kind.
func setField(field reflect.Value, value string) error {
	switch {
	case field.Type() == durationType:
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid duration: %w", err)
		}
		field.SetInt(int64(d))

	case field.Kind() == reflect.String:
		field.SetString(value)

	case field.Kind() == reflect.Int, field.Kind() == reflect.Int64:
		i, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid integer: %w", err)
		}
		field.SetInt(i)

	case field.Kind() == reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid boolean: %w", err)
		}
		field.SetBool(b)

	default:
		return fmt.Errorf("unsupported field type: %s", field.Kind())
	}
	return nil
}

// Validate checks every setting and reports all failures at once.
func (c *Config) Validate() error {
	var errs []string

	// Enumerated string settings carry their allowed values in a oneof tag.
	_ = walkFields(reflect.ValueOf(c).Elem(), func(f reflect.StructField, v reflect.Value) error {
		allowed := f.Tag.Get("oneof")
		if allowed == "" || v.Kind() != reflect.String {
			return nil
		}
		for _, opt := range strings.Split(allowed, ",") {
			if strings.EqualFold(v.String(), opt) {
				return nil
			}
		}
		errs = append(errs, fmt.Sprintf("%s (%q) must be one of: %s",
			f.Tag.Get("env"), v.String(), strings.ReplaceAll(allowed, ",", ", ")))
		return nil
	})

	if c.Decrypt.MaxFileSize <= 0 {
		errs = append(errs, "DECRYPT_MAX_FILE_SIZE must be positive")
	}
	if c.Decrypt.MaxConcurrent <= 0 {
		errs = append(errs, "DECRYPT_MAX_CONCURRENT must be positive")
	}
	if c.Decrypt.MaxWait <= 0 {
		errs = append(errs, "DECRYPT_MAX_WAIT must be positive")
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("SERVER_PORT (%d) must be 1-65535", c.Server.Port))
	}
	if !isLoopback(c.Server.Host) {
		errs = append(errs, fmt.Sprintf("SERVER_HOST (%q) must be a loopback address", c.Server.Host))
	}
	if c.Server.ReadTimeout < 0 {
		errs = append(errs, "SERVER_READ_TIMEOUT must be non-negative")
	}
	if c.Server.ShutdownTimeout <= 0 {
		errs = append(errs, "SERVER_SHUTDOWN_TIMEOUT must be positive")
	}

	if c.Database.MaxConns <= 0 {
		errs = append(errs, "DB_MAX_CONNS must be positive")
	}
	if c.Database.MinConns < 0 {
		errs = append(errs, "DB_MIN_CONNS must be non-negative")
	}
	if c.Database.MaxConns < c.Database.MinConns {
		errs = append(errs, fmt.Sprintf("DB_MAX_CONNS (%d) must be >= DB_MIN_CONNS (%d)",
			c.Database.MaxConns, c.Database.MinConns))
	}

	if len(errs) > 0 {
		return fmt.Errorf("validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// isLoopback reports whether host names the local machine.
func isLoopback(host string) bool {
	if strings.EqualFold(host, "localhost") {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

// String renders the config for logging with the database URL masked.
func (c *Config) String() string {
	dbURL := ""
	if c.Database.URL != "" {
		dbURL = "[MASKED]"
	}

	return fmt.Sprintf("Config{Logging: %+v, Decrypt: %+v, Export: %+v, Server: {Host: %q, Port: %d}, "+
		"Database: {URL: %s, MaxConns: %d, MinConns: %d}}",
		c.Logging, c.Decrypt, c.Export, c.Server.Host, c.Server.Port,
		dbURL, c.Database.MaxConns, c.Database.MinConns)
}
