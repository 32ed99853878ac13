// Package config loads host settings from the environment, command-line
// flags and an optional YAML file.
package config

import (
	"errors"
	"flag"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// HostConfig holds configuration for the engine host.
type HostConfig struct {
	Port              int           `yaml:"port"`
	MetricsPort       int           `yaml:"metrics_port"`
	WSPath            string        `yaml:"ws_path"`
	EngineURL         string        `yaml:"engine_url"`
	LargeMessageLimit int           `yaml:"large_message_limit"`
	ReadLimit         int64         `yaml:"read_limit"`
	CallTimeout       time.Duration `yaml:"call_timeout"`
	InitTimeout       time.Duration `yaml:"init_timeout"`
	PingInterval      time.Duration `yaml:"ping_interval"`
	AllowedOrigins    []string      `yaml:"allowed_origins"`
	APIKey            string        `yaml:"api_key"`
	RedisAddr         string        `yaml:"redis_addr"`
	Reconnect         bool          `yaml:"reconnect"`
	LogLevel          string        `yaml:"log_level"`
	ConfigFile        string        `yaml:"-"`
}

// BindFlags populates the struct with defaults from environment variables and
// binds command line flags so main can call flag.Parse().
func (c *HostConfig) BindFlags() {
	c.BindFlagSet(flag.CommandLine)
}

// BindFlagSet is BindFlags for an explicit flag set.
func (c *HostConfig) BindFlagSet(fs *flag.FlagSet) {
	c.ConfigFile = getEnv("CONFIG_FILE", DefaultConfigPath("host.yaml"))
	c.LogLevel = getEnv("LOG_LEVEL", "info")

	c.Port, _ = strconv.Atoi(getEnv("PORT", "8080"))
	c.MetricsPort, _ = strconv.Atoi(getEnv("METRICS_PORT", "0"))
	c.WSPath = getEnv("ENGINE_WS_PATH", "/api/engine/connect")
	c.EngineURL = getEnv("ENGINE_URL", "")
	c.LargeMessageLimit, _ = strconv.Atoi(getEnv("LARGE_MESSAGE_LIMIT", "65536"))
	c.ReadLimit, _ = strconv.ParseInt(getEnv("READ_LIMIT", strconv.Itoa(16<<20)), 10, 64)
	c.CallTimeout = seconds(getEnv("CALL_TIMEOUT", "0"), 0)
	c.InitTimeout = seconds(getEnv("INIT_TIMEOUT", "30"), 30*time.Second)
	c.PingInterval = seconds(getEnv("PING_INTERVAL", "30"), 30*time.Second)
	c.AllowedOrigins = splitList(getEnv("ALLOWED_ORIGINS", "*"))
	c.APIKey = getEnv("API_KEY", "")
	c.RedisAddr = getEnv("REDIS_ADDR", "")
	if b, err := strconv.ParseBool(getEnv("RECONNECT", "false")); err == nil {
		c.Reconnect = b
	}

	fs.StringVar(&c.ConfigFile, "config", c.ConfigFile, "host config file path")
	fs.StringVar(&c.LogLevel, "log-level", c.LogLevel, "log verbosity (all, debug, info, warn, error, fatal, none)")
	fs.IntVar(&c.Port, "port", c.Port, "HTTP listen port")
	fs.IntVar(&c.MetricsPort, "metrics-port", c.MetricsPort, "Prometheus metrics listen port; served on --port when 0")
	fs.StringVar(&c.WSPath, "ws-path", c.WSPath, "path engine pages use to open their WebSocket")
	fs.StringVar(&c.EngineURL, "engine-url", c.EngineURL, "engine WebSocket URL to dial instead of accepting connections")
	fs.IntVar(&c.LargeMessageLimit, "large-message-limit", c.LargeMessageLimit, "envelope size in bytes above which frames are base64 encoded")
	fs.Int64Var(&c.ReadLimit, "read-limit", c.ReadLimit, "maximum inbound WebSocket message size in bytes")
	fs.Func("call-timeout", "seconds to wait for an engine response; 0 waits until the session ends", secondsFlag(&c.CallTimeout))
	fs.Func("init-timeout", "seconds to wait for the engine handshake", secondsFlag(&c.InitTimeout))
	fs.Func("ping-interval", "seconds between WebSocket pings; 0 disables", secondsFlag(&c.PingInterval))
	fs.Func("allowed-origins", "comma separated origins allowed to call the API and open engine sockets", func(v string) error {
		c.AllowedOrigins = splitList(v)
		return nil
	})
	fs.StringVar(&c.APIKey, "api-key", c.APIKey, "key required for the session call API; leave empty to disable auth")
	fs.StringVar(&c.RedisAddr, "redis-addr", c.RedisAddr, "Redis URL or host:port for publishing session state")
	fs.BoolVar(&c.Reconnect, "reconnect", c.Reconnect, "redial the engine when the connection drops")
	fs.BoolVar(&c.Reconnect, "r", c.Reconnect, "short for --reconnect")
}

// LoadFile populates the config from a YAML file. Fields already set remain
// unless overwritten by corresponding entries in the file.
func (c *HostConfig) LoadFile(path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(b, c)
}

// UnmarshalYAML decodes the file form of HostConfig. call_timeout,
// init_timeout and ping_interval accept seconds like their env and flag
// forms, or a Go duration such as "1m30s".
func (c *HostConfig) UnmarshalYAML(n *yaml.Node) error {
	if n.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: host config must be a mapping", n.Line)
	}
	durations := map[string]*time.Duration{
		"call_timeout":  &c.CallTimeout,
		"init_timeout":  &c.InitTimeout,
		"ping_interval": &c.PingInterval,
	}
	rest := *n
	rest.Content = nil
	for i := 0; i+1 < len(n.Content); i += 2 {
		k, v := n.Content[i], n.Content[i+1]
		dst, ok := durations[k.Value]
		if !ok {
			rest.Content = append(rest.Content, k, v)
			continue
		}
		d, err := parseSeconds(v.Value)
		if err != nil {
			return fmt.Errorf("line %d: %s: %w", v.Line, k.Value, err)
		}
		*dst = d
	}
	type plain HostConfig
	return rest.Decode((*plain)(c))
}

func parseSeconds(v string) (time.Duration, error) {
	if f, err := strconv.ParseFloat(v, 64); err == nil {
		return time.Duration(f * float64(time.Second)), nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%q is neither seconds nor a duration", v)
	}
	return d, nil
}

// Validate reports settings the host cannot run with.
func (c *HostConfig) Validate() error {
	var errs []error
	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("port %d out of range", c.Port))
	}
	if c.MetricsPort < 0 || c.MetricsPort > 65535 {
		errs = append(errs, fmt.Errorf("metrics port %d out of range", c.MetricsPort))
	}
	if !strings.HasPrefix(c.WSPath, "/") {
		errs = append(errs, fmt.Errorf("ws path %q must start with /", c.WSPath))
	}
	if c.LargeMessageLimit <= 0 {
		errs = append(errs, fmt.Errorf("large message limit must be positive"))
	}
	if c.CallTimeout < 0 || c.InitTimeout < 0 || c.PingInterval < 0 {
		errs = append(errs, errors.New("timeouts must not be negative"))
	}
	if c.EngineURL != "" {
		u, err := url.Parse(c.EngineURL)
		if err != nil || (u.Scheme != "ws" && u.Scheme != "wss") {
			errs = append(errs, fmt.Errorf("engine url %q must be a ws:// or wss:// URL", c.EngineURL))
		}
	}
	return errors.Join(errs...)
}

func seconds(v string, def time.Duration) time.Duration {
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return time.Duration(f * float64(time.Second))
}

func secondsFlag(dst *time.Duration) func(string) error {
	return func(v string) error {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return err
		}
		*dst = time.Duration(f * float64(time.Second))
		return nil
	}
}

func splitList(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// DefaultConfigPath returns where the host looks for name when CONFIG_FILE
// and --config are unset.
func DefaultConfigPath(name string) string {
	home, _ := os.UserHomeDir()
	return ResolveConfigPath(runtime.GOOS, home, os.Getenv("ProgramData"), name)
}

// ResolveConfigPath places name in the per-OS system config directory.
func ResolveConfigPath(goos, home, programData, name string) string {
	switch goos {
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "webmap3d", name)
	case "windows":
		if programData == "" {
			programData = "C:/ProgramData"
		}
		return filepath.Join(strings.TrimRight(programData, "\\/"), "webmap3d", name)
	default:
		return filepath.Join("/etc", "webmap3d", name)
	}
}

func getEnv(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}
