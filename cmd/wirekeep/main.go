package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	wirekeep "github.com/wirekeep/wirekeep-go"
)

// ============================================================================
// Config types
// ============================================================================

// Config represents the CLI configuration stored in ~/.wirekeep/config.toml.
type Config struct {
	Default ConfigDefault `toml:"default"`
	Session ConfigSession `toml:"session"`
}

// ConfigDefault holds general settings.
type ConfigDefault struct {
	URL string `toml:"url"`
}

// ConfigSession holds session tuning. Zero values fall back to the SDK
// defaults.
type ConfigSession struct {
	ReconnectLimit      int  `toml:"reconnect_limit"`
	ReconnectIntervalMS int  `toml:"reconnect_interval_ms"`
	MaxReconnectDelayMS int  `toml:"max_reconnect_delay_ms"`
	HeartbeatIntervalMS int  `toml:"heartbeat_interval_ms"`
	HeartbeatTimeoutMS  int  `toml:"heartbeat_timeout_ms"`
	ConnectionTimeoutMS int  `toml:"connection_timeout_ms"`
	NoAutoReconnect     bool `toml:"no_auto_reconnect"`
}

// ============================================================================
// Config helpers
// ============================================================================

// configDir returns the path to ~/.wirekeep, creating it if needed.
func configDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	dir := filepath.Join(home, ".wirekeep")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("cannot create config directory: %w", err)
	}
	return dir, nil
}

// configPath returns the full path to the config file.
func configPath() (string, error) {
	dir, err := configDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// loadConfig reads and parses the config file.
// If the file does not exist, it returns a zero-value Config.
func loadConfig() (*Config, error) {
	path, err := configPath()
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Config{}, nil
		}
		return nil, fmt.Errorf("cannot read config: %w", err)
	}
	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("cannot parse config: %w", err)
	}
	return &cfg, nil
}

// saveConfig writes the config struct back to disk as TOML.
func saveConfig(cfg *Config) error {
	path, err := configPath()
	if err != nil {
		return err
	}
	data, err := toml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("cannot marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("cannot write config: %w", err)
	}
	return nil
}

// newSessionClient builds a wirekeep client from config plus the --url
// flag override.
func newSessionClient(cfg *Config, urlOverride string, logger wirekeep.Logger) (*wirekeep.Client, error) {
	url := cfg.Default.URL
	if urlOverride != "" {
		url = urlOverride
	}
	if url == "" {
		return nil, fmt.Errorf("no URL configured; pass --url or run 'wirekeep init <url>'")
	}

	opts := []wirekeep.Option{wirekeep.WithLogger(logger)}
	s := cfg.Session
	if s.ReconnectLimit != 0 {
		opts = append(opts, wirekeep.WithReconnectLimit(s.ReconnectLimit))
	}
	if s.ReconnectIntervalMS != 0 {
		opts = append(opts, wirekeep.WithReconnectInterval(time.Duration(s.ReconnectIntervalMS)*time.Millisecond))
	}
	if s.MaxReconnectDelayMS != 0 {
		opts = append(opts, wirekeep.WithMaxReconnectDelay(time.Duration(s.MaxReconnectDelayMS)*time.Millisecond))
	}
	if s.HeartbeatIntervalMS != 0 || s.HeartbeatTimeoutMS != 0 {
		interval := time.Duration(s.HeartbeatIntervalMS) * time.Millisecond
		timeout := time.Duration(s.HeartbeatTimeoutMS) * time.Millisecond
		if interval == 0 {
			interval = wirekeep.DefaultHeartbeatInterval
		}
		if timeout == 0 {
			timeout = wirekeep.DefaultHeartbeatTimeout
		}
		opts = append(opts, wirekeep.WithHeartbeat(interval, timeout))
	}
	if s.ConnectionTimeoutMS != 0 {
		opts = append(opts, wirekeep.WithConnectionTimeout(time.Duration(s.ConnectionTimeoutMS)*time.Millisecond))
	}
	if s.NoAutoReconnect {
		opts = append(opts, wirekeep.WithAutoReconnect(false))
	}
	return wirekeep.New(url, opts...), nil
}

// newLogger builds the console logger shared by all commands.
func newLogger(verbose bool) wirekeep.Logger {
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	output := zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.RFC3339,
	}
	l := zerolog.New(output).Level(level).With().Timestamp().Str("app", "wirekeep").Logger()
	return wirekeep.NewZerologLogger(l)
}

// ============================================================================
// Root command
// ============================================================================

var (
	flagURL     string
	flagVerbose bool
)

var rootCmd = &cobra.Command{
	Use:   "wirekeep",
	Short: "Resilient WebSocket session CLI",
	Long: "Command-line interface for the wirekeep session engine.\n" +
		"Connect to an endpoint with auto-reconnect and heartbeats, stream\n" +
		"events, and send messages or files.",
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagURL, "url", "", "endpoint URL (overrides config)")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "debug logging")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// setConfigValue sets a config field using dot notation (e.g. "default.url").
func setConfigValue(cfg *Config, key, value string) error {
	parts := strings.SplitN(key, ".", 2)
	if len(parts) != 2 {
		return fmt.Errorf("key must use dot notation: section.field (e.g. default.url)")
	}
	section, field := parts[0], parts[1]

	switch section {
	case "default":
		switch field {
		case "url":
			cfg.Default.URL = value
		default:
			return fmt.Errorf("unknown field %q in section [default]", field)
		}
	case "session":
		n := 0
		if field != "no_auto_reconnect" {
			if _, err := fmt.Sscanf(value, "%d", &n); err != nil {
				return fmt.Errorf("field %q needs an integer value", field)
			}
		}
		switch field {
		case "reconnect_limit":
			cfg.Session.ReconnectLimit = n
		case "reconnect_interval_ms":
			cfg.Session.ReconnectIntervalMS = n
		case "max_reconnect_delay_ms":
			cfg.Session.MaxReconnectDelayMS = n
		case "heartbeat_interval_ms":
			cfg.Session.HeartbeatIntervalMS = n
		case "heartbeat_timeout_ms":
			cfg.Session.HeartbeatTimeoutMS = n
		case "connection_timeout_ms":
			cfg.Session.ConnectionTimeoutMS = n
		case "no_auto_reconnect":
			cfg.Session.NoAutoReconnect = value == "true" || value == "1"
		default:
			return fmt.Errorf("unknown field %q in section [session]", field)
		}
	default:
		return fmt.Errorf("unknown config section %q (valid: default, session)", section)
	}
	return nil
}
