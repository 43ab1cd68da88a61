// Package config loads pagetrack-server settings from flags, environment variables and a .env file.
package config

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Cover storage backends.
const (
	CoversBackendFS = "fs"
	CoversBackendS3 = "s3"
)

// Config holds the application configuration.
type Config struct {
	App     AppConfig
	Logger  LoggerConfig
	Data    DataConfig
	Server  ServerConfig
	Auth    AuthConfig
	Alarm   AlarmConfig
	Timer   TimerConfig
	Covers  CoversConfig
	Keyring KeyringConfig
}

// AppConfig holds application-level configuration.
type AppConfig struct {
	Environment string
}

// LoggerConfig holds logging configuration.
type LoggerConfig struct {
	Level string
}

// DataConfig locates the database, search index, auth key and local covers.
type DataConfig struct {
	BasePath string
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port         string        // default 8080
	PublicURL    string        // Prefix of generated cover URLs; default http://localhost:{port}
	ReadTimeout  time.Duration // default 15s
	WriteTimeout time.Duration // default 15s; the stream route extends it after every event
	IdleTimeout  time.Duration // default 60s
	CORSOrigins  []string      // default *
}

// AuthConfig holds authentication configuration.
type AuthConfig struct {
	// PASETO v4 symmetric key (32 bytes), set by auth.LoadOrGenerateKey in main.
	AccessTokenKey      []byte
	AccessTokenDuration time.Duration // default 720h; anonymous sessions are long-lived
}

// AlarmConfig holds the runtime permissions granted at start.
type AlarmConfig struct {
	ExactAlarms   bool // default true
	Notifications bool // default true
}

// TimerConfig holds countdown timer configuration.
type TimerConfig struct {
	TickInterval   time.Duration // default 1s
	AlertTimeout   time.Duration // default 20s
	AlarmSoundable bool          // Whether the alarm-class sound is available; default true
}

// CoversConfig selects where cover images live.
type CoversConfig struct {
	Backend     string // fs or s3; default fs
	S3Bucket    string
	S3Prefix    string
	S3Region    string
	S3Endpoint  string // Optional, e.g. a MinIO URL
	S3AccessKey string
	S3SecretKey string
}

// KeyringConfig configures the local keyring holding the last signed-in user.
type KeyringConfig struct {
	Dir      string // default {data}/keyring
	Password string // File backend passphrase
	System   bool   // Prefer the OS keychain when available; default false
}

// LoadConfig loads configuration with precedence:
// 1. Command-line flags (highest priority).
// 2. Environment variables.
// 3. .env file.
// 4. Default values (lowest priority).
func LoadConfig() (*Config, error) {
	return Load(os.Args[1:])
}

// Load is LoadConfig over an explicit argument list.
func Load(args []string) (*Config, error) {
	fs := flag.NewFlagSet("pagetrack-server", flag.ContinueOnError)

	env := fs.String("env", "", "Environment (development, staging, production)")
	logLevel := fs.String("log-level", "", "Log level (debug, info, warn, error)")
	dataPath := fs.String("data-path", "", "Base path for the database, index and covers")

	serverPort := fs.String("port", "", "Server port (default: 8080)")
	publicURL := fs.String("public-url", "", "Public base URL used in cover links")
	readTimeout := fs.String("read-timeout", "", "HTTP read timeout (default: 15s)")
	writeTimeout := fs.String("write-timeout", "", "HTTP write timeout (default: 15s)")
	idleTimeout := fs.String("idle-timeout", "", "HTTP idle timeout (default: 60s)")
	corsOrigins := fs.String("cors-origins", "", "Comma-separated allowed CORS origins (default: *)")

	accessTokenDuration := fs.String("access-token-duration", "", "Access token lifetime (default: 720h)")

	exactAlarms := fs.String("exact-alarms", "", "Grant the exact-alarm permission at start (default: true)")
	notifications := fs.String("notifications", "", "Grant the notification permission at start (default: true)")

	tickInterval := fs.String("timer-tick", "", "Countdown tick interval (default: 1s)")
	alertTimeout := fs.String("timer-alert-timeout", "", "How long the finished alert sounds (default: 20s)")
	alarmSound := fs.String("timer-alarm-sound", "", "Alarm-class sound available (default: true)")

	coversBackend := fs.String("covers-backend", "", "Cover storage backend: fs or s3 (default: fs)")
	s3Bucket := fs.String("s3-bucket", "", "S3 bucket for covers")
	s3Endpoint := fs.String("s3-endpoint", "", "S3 endpoint override")

	keyringDir := fs.String("keyring-dir", "", "Directory of the file keyring")

	envFile := fs.String("env-file", ".env", "Path to .env file")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	// Load .env file if it exists (silently ignore if not found).
	_ = loadEnvFile(*envFile)

	cfg := &Config{
		App: AppConfig{
			Environment: getConfigValue(*env, "ENV", "development"),
		},
		Logger: LoggerConfig{
			Level: getConfigValue(*logLevel, "LOG_LEVEL", "info"),
		},
		Data: DataConfig{
			BasePath: getConfigValue(*dataPath, "DATA_PATH", ""),
		},
		Server: ServerConfig{
			Port:        getConfigValue(*serverPort, "SERVER_PORT", "8080"),
			PublicURL:   getConfigValue(*publicURL, "SERVER_PUBLIC_URL", ""),
			CORSOrigins: splitList(getConfigValue(*corsOrigins, "CORS_ORIGINS", "*")),
		},
		Alarm: AlarmConfig{
			ExactAlarms:   getBoolConfigValue(*exactAlarms, "EXACT_ALARMS", true),
			Notifications: getBoolConfigValue(*notifications, "NOTIFICATIONS", true),
		},
		Timer: TimerConfig{
			AlarmSoundable: getBoolConfigValue(*alarmSound, "TIMER_ALARM_SOUND", true),
		},
		Covers: CoversConfig{
			Backend:     strings.ToLower(getConfigValue(*coversBackend, "COVERS_BACKEND", CoversBackendFS)),
			S3Bucket:    getConfigValue(*s3Bucket, "S3_BUCKET", ""),
			S3Prefix:    getConfigValue("", "S3_PREFIX", "covers/"),
			S3Region:    getConfigValue("", "S3_REGION", "us-east-1"),
			S3Endpoint:  getConfigValue(*s3Endpoint, "S3_ENDPOINT", ""),
			S3AccessKey: getConfigValue("", "S3_ACCESS_KEY", ""),
			S3SecretKey: getConfigValue("", "S3_SECRET_KEY", ""),
		},
		Keyring: KeyringConfig{
			Dir:      getConfigValue(*keyringDir, "KEYRING_DIR", ""),
			Password: getConfigValue("", "KEYRING_PASSWORD", "pagetrack"),
			System:   getBoolConfigValue("", "KEYRING_SYSTEM", false),
		},
	}

	durations := []struct {
		dst      *time.Duration
		flag     string
		envKey   string
		fallback string
	}{
		{&cfg.Server.ReadTimeout, *readTimeout, "SERVER_READ_TIMEOUT", "15s"},
		{&cfg.Server.WriteTimeout, *writeTimeout, "SERVER_WRITE_TIMEOUT", "15s"},
		{&cfg.Server.IdleTimeout, *idleTimeout, "SERVER_IDLE_TIMEOUT", "60s"},
		{&cfg.Auth.AccessTokenDuration, *accessTokenDuration, "ACCESS_TOKEN_DURATION", "720h"},
		{&cfg.Timer.TickInterval, *tickInterval, "TIMER_TICK_INTERVAL", "1s"},
		{&cfg.Timer.AlertTimeout, *alertTimeout, "TIMER_ALERT_TIMEOUT", "20s"},
	}
	for _, d := range durations {
		raw := getConfigValue(d.flag, d.envKey, d.fallback)
		parsed, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid %s %q: %w", d.envKey, raw, err)
		}
		*d.dst = parsed
	}

	if err := cfg.expandPaths(); err != nil {
		return nil, err
	}
	if cfg.Server.PublicURL == "" {
		cfg.Server.PublicURL = "http://localhost:" + cfg.Server.Port
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required config values are present and valid.
func (c *Config) Validate() error {
	if c.App.Environment == "" {
		return errors.New("ENV is required")
	}

	validEnvs := map[string]bool{
		"development": true,
		"staging":     true,
		"production":  true,
	}
	if !validEnvs[c.App.Environment] {
		return fmt.Errorf("invalid environment: %s (must be development, staging, or production)", c.App.Environment)
	}

	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[strings.ToLower(c.Logger.Level)] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logger.Level)
	}

	if c.Data.BasePath == "" {
		return errors.New("data base path cannot be empty after expansion")
	}

	if c.Auth.AccessTokenDuration <= 0 {
		return errors.New("access token duration must be positive")
	}
	if c.Timer.TickInterval <= 0 {
		return errors.New("timer tick interval must be positive")
	}
	if c.Timer.AlertTimeout <= 0 {
		return errors.New("timer alert timeout must be positive")
	}

	switch c.Covers.Backend {
	case CoversBackendFS:
	case CoversBackendS3:
		if c.Covers.S3Bucket == "" {
			return errors.New("S3_BUCKET is required when COVERS_BACKEND is s3")
		}
	default:
		return fmt.Errorf("invalid covers backend: %s (must be fs or s3)", c.Covers.Backend)
	}

	return nil
}

// IsProduction reports whether the server runs in production.
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

// expandPaths resolves the data and keyring directories.
func (c *Config) expandPaths() error {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to get home directory: %w", err)
	}

	dataPath, err := expandPath(c.Data.BasePath, filepath.Join(homeDir, "PageTrack", "data"))
	if err != nil {
		return fmt.Errorf("invalid data path: %w", err)
	}
	c.Data.BasePath = dataPath

	keyringDir, err := expandPath(c.Keyring.Dir, filepath.Join(dataPath, "keyring"))
	if err != nil {
		return fmt.Errorf("invalid keyring dir: %w", err)
	}
	c.Keyring.Dir = keyringDir

	return nil
}

// expandPath expands ~ and makes the path absolute.
// If path is empty, defaultPath is returned as is.
func expandPath(path, defaultPath string) (string, error) {
	if path == "" {
		return defaultPath, nil
	}

	if strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(homeDir, path[2:])
	}

	if !filepath.IsAbs(path) {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return "", fmt.Errorf("failed to get absolute path: %w", err)
		}
		path = absPath
	}

	return filepath.Clean(path), nil
}

// getConfigValue returns the first non-empty value from flag, env var, or default.
func getConfigValue(flagValue, envKey, defaultValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if envValue := os.Getenv(envKey); envValue != "" {
		return envValue
	}
	return defaultValue
}

// getBoolConfigValue returns a bool from flag, env var, or default.
// Accepts: "true", "1", "yes" (case-insensitive) as true; anything else is false.
func getBoolConfigValue(flagValue, envKey string, defaultValue bool) bool {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	strValue = strings.ToLower(strValue)
	return strValue == "true" || strValue == "1" || strValue == "yes"
}

func splitList(s string) []string {
	var out []string
	for part := range strings.SplitSeq(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// loadEnvFile loads environment variables from a .env file.
// Format: KEY=value (one per line, # for comments).
func loadEnvFile(path string) error {
	file, err := os.Open(path) //#nosec G304 -- Config file path from user input is expected
	if err != nil {
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, value, found := strings.Cut(line, "=")
		if !found {
			return fmt.Errorf("invalid format at line %d: %s", lineNum, line)
		}

		key = strings.TrimSpace(key)
		value = strings.Trim(strings.TrimSpace(value), `"'`)

		// Real environment variables win over the file.
		if os.Getenv(key) == "" {
			if err := os.Setenv(key, value); err != nil {
				return fmt.Errorf("failed to set env var %s: %w", key, err)
			}
		}
	}

	return scanner.Err()
}
