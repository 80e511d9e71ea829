// Package config loads silat-watch settings.
//
// Settings come from three layers, later layers winning: built-in defaults, an
// optional json5 file, and environment variables (the same names the service has
// always used, e.g. SMTP_SERVER and APP_BASE_URL). Command-line flags are applied
// on top by the cli package.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"dario.cat/mergo"
	"github.com/titanous/json5"
)

// Duration is a time.Duration that reads "30m"-style strings from config files
type Duration time.Duration

// UnmarshalJSON accepts a duration string or a number of seconds
func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json5.Unmarshal(b, &s); err == nil {
		parsed, err := time.ParseDuration(s)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", s, err)
		}
		*d = Duration(parsed)
		return nil
	}

	var secs float64
	if err := json5.Unmarshal(b, &secs); err != nil {
		return fmt.Errorf("invalid duration %s", b)
	}
	*d = Duration(time.Duration(secs * float64(time.Second)))
	return nil
}

// MarshalJSON writes the duration in its string form
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// SMTP holds outgoing mail settings
type SMTP struct {
	Host        string `json:"host,omitempty"`
	Port        int    `json:"port,omitempty"`
	User        string `json:"user,omitempty"`
	Password    string `json:"password,omitempty"`
	SenderEmail string `json:"sender_email,omitempty"`
	SenderName  string `json:"sender_name,omitempty"`
}

// Log holds logging settings
type Log struct {
	Level  string `json:"level,omitempty"`
	Format string `json:"format,omitempty"`
}

// Config is the full application configuration
type Config struct {
	TargetURL  string   `json:"target_url,omitempty"`
	BaseURL    string   `json:"base_url,omitempty"`
	SecretKey  string   `json:"secret_key,omitempty"`
	DataDir    string   `json:"data_dir,omitempty"`
	ListenAddr string   `json:"listen_addr,omitempty"`
	Interval   Duration `json:"interval,omitempty"`
	SMTP       SMTP     `json:"smtp,omitempty"`
	Log        Log      `json:"log,omitempty"`
}

// Default returns the built-in configuration
func Default() Config {
	return Config{
		TargetURL:  "https://silat.fatisda.uns.ac.id/",
		BaseURL:    "http://localhost:5000",
		DataDir:    "data",
		ListenAddr: ":5000",
		Interval:   Duration(30 * time.Minute),
		SMTP: SMTP{
			Port:       587,
			SenderName: "SILAT Watch",
		},
		Log: Log{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load builds the configuration from defaults, the json5 file at path (skipped
// when path is empty) and the environment.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}

		var file Config
		if err := json5.Unmarshal(data, &file); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
		if err := mergo.Merge(&cfg, file, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("merging config file: %w", err)
		}
	}

	if err := applyEnv(&cfg, os.LookupEnv); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func applyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	strs := map[string]*string{
		"TARGET_URL":        &cfg.TargetURL,
		"APP_BASE_URL":      &cfg.BaseURL,
		"SECRET_KEY":        &cfg.SecretKey,
		"DATA_DIR":          &cfg.DataDir,
		"LISTEN_ADDR":       &cfg.ListenAddr,
		"SMTP_SERVER":       &cfg.SMTP.Host,
		"SMTP_USER":         &cfg.SMTP.User,
		"SMTP_PASSWORD":     &cfg.SMTP.Password,
		"SMTP_SENDER_EMAIL": &cfg.SMTP.SenderEmail,
		"SMTP_SENDER_NAME":  &cfg.SMTP.SenderName,
		"LOG_LEVEL":         &cfg.Log.Level,
		"LOG_FORMAT":        &cfg.Log.Format,
	}
	for key, dst := range strs {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}

	if v, ok := lookup("SMTP_PORT"); ok && v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("SMTP_PORT: %w", err)
		}
		cfg.SMTP.Port = port
	}

	if v, ok := lookup("CHECK_INTERVAL"); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("CHECK_INTERVAL: %w", err)
		}
		cfg.Interval = Duration(d)
	}

	return nil
}

// CheckInterval returns the polling interval
func (c *Config) CheckInterval() time.Duration {
	return time.Duration(c.Interval)
}

// Validate checks the settings every command needs
func (c *Config) Validate() error {
	var errs []error

	if _, err := url.ParseRequestURI(c.TargetURL); err != nil {
		errs = append(errs, fmt.Errorf("target URL: %w", err))
	}
	if u, err := url.ParseRequestURI(c.BaseURL); err != nil || u.Host == "" {
		errs = append(errs, fmt.Errorf("APP_BASE_URL must be an absolute URL, got %q", c.BaseURL))
	}
	if strings.TrimSpace(c.DataDir) == "" {
		errs = append(errs, errors.New("DATA_DIR must not be empty"))
	}
	if c.CheckInterval() < time.Minute {
		errs = append(errs, fmt.Errorf("CHECK_INTERVAL must be at least 1m, got %s", c.CheckInterval()))
	}

	return errors.Join(errs...)
}

// ValidateServe checks the settings needed to run the web form and watcher
func (c *Config) ValidateServe() error {
	var errs []error
	if err := c.Validate(); err != nil {
		errs = append(errs, err)
	}
	if c.SecretKey == "" {
		errs = append(errs, errors.New("SECRET_KEY is required"))
	}
	if c.ListenAddr == "" {
		errs = append(errs, errors.New("LISTEN_ADDR must not be empty"))
	}
	return errors.Join(errs...)
}

// ValidateSMTP checks the settings needed to send mail
func (c *Config) ValidateSMTP() error {
	var errs []error
	if c.SMTP.Host == "" {
		errs = append(errs, errors.New("SMTP_SERVER is required"))
	}
	if c.SMTP.Port <= 0 || c.SMTP.Port > 65535 {
		errs = append(errs, fmt.Errorf("SMTP_PORT out of range: %d", c.SMTP.Port))
	}
	if c.SMTP.SenderEmail == "" {
		errs = append(errs, errors.New("SMTP_SENDER_EMAIL is required"))
	}
	if c.SecretKey == "" {
		errs = append(errs, errors.New("SECRET_KEY is required to sign unsubscribe links"))
	}
	return errors.Join(errs...)
}
