// control/config.go
// Author: momentics <momentics@gmail.com>
//
// Typed server configuration: defaults, file/env/flag loading and validation.

package control

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes environment overrides, e.g. GRAINWS_SERVER_LISTEN.
const EnvPrefix = "GRAINWS"

// MaxMessageSizeLimit caps websocket.max_message_size.
const MaxMessageSizeLimit = 1 << 30

// Config is the root configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server" yaml:"server"`
	WebSocket WebSocketConfig `mapstructure:"websocket" yaml:"websocket"`
	Log       LogConfig       `mapstructure:"log" yaml:"log"`
}

// ServerConfig controls the listener and connection lifecycle.
type ServerConfig struct {
	Listen           string        `mapstructure:"listen" yaml:"listen"`
	ReadBufferSize   int           `mapstructure:"read_buffer_size" yaml:"read_buffer_size"`
	HandshakeTimeout time.Duration `mapstructure:"handshake_timeout" yaml:"handshake_timeout"`
	ShutdownTimeout  time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
	// CloseOnLivenessTimeout closes a connection whose peer missed a Pong.
	CloseOnLivenessTimeout bool          `mapstructure:"close_on_liveness_timeout" yaml:"close_on_liveness_timeout"`
	TCPNoDelay             bool          `mapstructure:"tcp_nodelay" yaml:"tcp_nodelay"`
	TCPKeepAlive           time.Duration `mapstructure:"tcp_keepalive" yaml:"tcp_keepalive"`
}

// WebSocketConfig controls framing and liveness.
type WebSocketConfig struct {
	PingInterval   time.Duration `mapstructure:"ping_interval" yaml:"ping_interval"`
	MaxMessageSize int           `mapstructure:"max_message_size" yaml:"max_message_size"`
	// LivenessPolicy is "fail" or "retry".
	LivenessPolicy string `mapstructure:"liveness_policy" yaml:"liveness_policy"`
}

// LogConfig defines logger settings.
type LogConfig struct {
	// Level: trace, debug, info, warn, error
	Level string `mapstructure:"level" yaml:"level"`
	// Format: console or json
	Format string `mapstructure:"format" yaml:"format"`
	// File enables a rotating log file in addition to stderr.
	File       string `mapstructure:"file" yaml:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb" yaml:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days" yaml:"max_age_days"`
	Compress   bool   `mapstructure:"compress" yaml:"compress"`
}

// DefaultConfig returns a Config populated with defaults.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Listen:           ":9000",
			ReadBufferSize:   4096,
			HandshakeTimeout: 5 * time.Second,
			ShutdownTimeout:  30 * time.Second,
			TCPNoDelay:       true,
			TCPKeepAlive:     30 * time.Second,
		},
		WebSocket: WebSocketConfig{
			PingInterval:   10 * time.Second,
			MaxMessageSize: 1 << 20,
			LivenessPolicy: "fail",
		},
		Log: LogConfig{
			Level:      "info",
			Format:     "console",
			MaxSizeMB:  50,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
	}
}

// Validate rejects unusable settings.
func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Server.Listen) == "" {
		errs = append(errs, errors.New("server.listen must not be empty"))
	}
	if c.Server.ReadBufferSize <= 0 {
		errs = append(errs, fmt.Errorf("server.read_buffer_size must be positive, got %d", c.Server.ReadBufferSize))
	}
	if c.Server.HandshakeTimeout <= 0 {
		errs = append(errs, fmt.Errorf("server.handshake_timeout must be positive, got %s", c.Server.HandshakeTimeout))
	}
	if c.Server.ShutdownTimeout < 0 {
		errs = append(errs, fmt.Errorf("server.shutdown_timeout must not be negative, got %s", c.Server.ShutdownTimeout))
	}
	if c.WebSocket.PingInterval <= 0 {
		errs = append(errs, fmt.Errorf("websocket.ping_interval must be positive, got %s", c.WebSocket.PingInterval))
	}
	if c.WebSocket.MaxMessageSize <= 0 || c.WebSocket.MaxMessageSize > MaxMessageSizeLimit {
		errs = append(errs, fmt.Errorf("websocket.max_message_size must be in (0, %d], got %d", MaxMessageSizeLimit, c.WebSocket.MaxMessageSize))
	}
	switch strings.ToLower(c.WebSocket.LivenessPolicy) {
	case "fail", "retry":
	default:
		errs = append(errs, fmt.Errorf("websocket.liveness_policy must be fail or retry, got %q", c.WebSocket.LivenessPolicy))
	}
	switch strings.ToLower(c.Log.Level) {
	case "trace", "debug", "info", "warn", "warning", "error":
	default:
		errs = append(errs, fmt.Errorf("invalid log.level: %q", c.Log.Level))
	}
	switch strings.ToLower(c.Log.Format) {
	case "console", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format must be console or json, got %q", c.Log.Format))
	}
	return errors.Join(errs...)
}

// flagKeys maps command-line flags to configuration keys.
var flagKeys = map[string]string{
	"listen":           "server.listen",
	"ping-interval":    "websocket.ping_interval",
	"max-message-size": "websocket.max_message_size",
	"liveness-policy":  "websocket.liveness_policy",
	"log-level":        "log.level",
	"log-format":       "log.format",
	"log-file":         "log.file",
}

// RegisterFlags declares the override flags on fs with defaults from DefaultConfig.
func RegisterFlags(fs *pflag.FlagSet) {
	d := DefaultConfig()
	fs.String("listen", d.Server.Listen, "listen address")
	fs.Duration("ping-interval", d.WebSocket.PingInterval, "delay between a ping and the pong check")
	fs.Int("max-message-size", d.WebSocket.MaxMessageSize, "maximum reassembled message size in bytes")
	fs.String("liveness-policy", d.WebSocket.LivenessPolicy, "missed pong policy: fail or retry")
	fs.String("log-level", d.Log.Level, "log level")
	fs.String("log-format", d.Log.Format, "log format: console or json")
	fs.String("log-file", d.Log.File, "rotating log file (empty for stderr only)")
}

// Loader reads Config from a file, the environment and flags, in
// increasing precedence.
type Loader struct {
	v *viper.Viper
}

// NewLoader prepares a loader. flags may be nil; only flags the user set
// override file and environment values.
func NewLoader(flags *pflag.FlagSet) (*Loader, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	setDefaults(v, DefaultConfig())

	if flags != nil {
		for name, key := range flagKeys {
			f := flags.Lookup(name)
			if f == nil {
				continue
			}
			if err := v.BindPFlag(key, f); err != nil {
				return nil, fmt.Errorf("bind flag %s: %w", name, err)
			}
		}
	}
	return &Loader{v: v}, nil
}

// seed defaults for viper so env-only configs work
func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("server.listen", d.Server.Listen)
	v.SetDefault("server.read_buffer_size", d.Server.ReadBufferSize)
	v.SetDefault("server.handshake_timeout", d.Server.HandshakeTimeout)
	v.SetDefault("server.shutdown_timeout", d.Server.ShutdownTimeout)
	v.SetDefault("server.close_on_liveness_timeout", d.Server.CloseOnLivenessTimeout)
	v.SetDefault("server.tcp_nodelay", d.Server.TCPNoDelay)
	v.SetDefault("server.tcp_keepalive", d.Server.TCPKeepAlive)
	v.SetDefault("websocket.ping_interval", d.WebSocket.PingInterval)
	v.SetDefault("websocket.max_message_size", d.WebSocket.MaxMessageSize)
	v.SetDefault("websocket.liveness_policy", d.WebSocket.LivenessPolicy)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
	v.SetDefault("log.file", d.Log.File)
	v.SetDefault("log.max_size_mb", d.Log.MaxSizeMB)
	v.SetDefault("log.max_backups", d.Log.MaxBackups)
	v.SetDefault("log.max_age_days", d.Log.MaxAgeDays)
	v.SetDefault("log.compress", d.Log.Compress)
}

// Load reads path (yaml, toml or json by extension) when non-empty, applies
// overrides and validates the result.
func (l *Loader) Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv(EnvPrefix + "_CONFIG")
	}
	if path != "" {
		l.v.SetConfigFile(path)
		if err := l.v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}
	return l.decode()
}

func (l *Loader) decode() (*Config, error) {
	cfg := DefaultConfig()
	if err := l.v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadConfig is the one-shot form of NewLoader + Load.
func LoadConfig(path string, flags *pflag.FlagSet) (*Config, error) {
	l, err := NewLoader(flags)
	if err != nil {
		return nil, err
	}
	return l.Load(path)
}

// WriteConfig serializes cfg as YAML.
func WriteConfig(w io.Writer, cfg *Config) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	return enc.Close()
}
