package config

import (
	"flag"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestResolveConfigPath(t *testing.T) {
	tests := []struct {
		name        string
		goos        string
		home        string
		programData string
		want        string
	}{
		{name: "linux", goos: "linux", home: "/home/user", want: "/etc/webmap3d/host.yaml"},
		{name: "darwin", goos: "darwin", home: "/Users/test", want: "/Users/test/Library/Application Support/webmap3d/host.yaml"},
		{name: "windows", goos: "windows", programData: "C:\\ProgramData\\", want: "C:/ProgramData/webmap3d/host.yaml"},
		{name: "windows default ProgramData", goos: "windows", want: "C:/ProgramData/webmap3d/host.yaml"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := strings.ReplaceAll(ResolveConfigPath(tt.goos, tt.home, tt.programData, "host.yaml"), "\\", "/")
			if got != tt.want {
				t.Errorf("got %q want %q", got, tt.want)
			}
		})
	}
}

func TestBindFlagsDefaults(t *testing.T) {
	for _, k := range []string{"PORT", "ENGINE_URL", "CALL_TIMEOUT", "LARGE_MESSAGE_LIMIT", "ALLOWED_ORIGINS"} {
		t.Setenv(k, "")
	}
	var c HostConfig
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	c.BindFlagSet(fs)
	if err := fs.Parse(nil); err != nil {
		t.Fatal(err)
	}
	if c.Port != 8080 || c.WSPath != "/api/engine/connect" || c.LargeMessageLimit != 65536 {
		t.Fatalf("defaults %+v", c)
	}
	if c.CallTimeout != 0 || c.InitTimeout != 30*time.Second {
		t.Fatalf("timeouts %v %v", c.CallTimeout, c.InitTimeout)
	}
	if len(c.AllowedOrigins) != 1 || c.AllowedOrigins[0] != "*" {
		t.Fatalf("origins %v", c.AllowedOrigins)
	}
	if err := c.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
}

func TestEnvThenFlags(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("CALL_TIMEOUT", "2.5")
	t.Setenv("ALLOWED_ORIGINS", "http://a.test, http://b.test")
	var c HostConfig
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	c.BindFlagSet(fs)
	if c.Port != 9000 || c.CallTimeout != 2500*time.Millisecond || len(c.AllowedOrigins) != 2 {
		t.Fatalf("env not applied: %+v", c)
	}
	if err := fs.Parse([]string{"--port", "9100", "--call-timeout", "1", "-r", "--engine-url", "ws://device.local:9000/bridge"}); err != nil {
		t.Fatal(err)
	}
	if c.Port != 9100 || c.CallTimeout != time.Second || !c.Reconnect || c.EngineURL == "" {
		t.Fatalf("flags not applied: %+v", c)
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "host.yaml")
	data := "port: 7070\ncall_timeout: 15s\nallowed_origins: [\"http://engine.local\"]\nredis_addr: redis://localhost:6379/2\n"
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}
	c := HostConfig{Port: 8080, WSPath: "/ws", LargeMessageLimit: 1024}
	if err := c.LoadFile(path); err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.Port != 7070 || c.CallTimeout != 15*time.Second || c.WSPath != "/ws" {
		t.Fatalf("loaded %+v", c)
	}
	if c.RedisAddr != "redis://localhost:6379/2" || c.AllowedOrigins[0] != "http://engine.local" {
		t.Fatalf("loaded %+v", c)
	}
}

func TestValidate(t *testing.T) {
	base := HostConfig{Port: 8080, WSPath: "/ws", LargeMessageLimit: 1}
	cases := map[string]func(*HostConfig){
		"port":      func(c *HostConfig) { c.Port = 0 },
		"path":      func(c *HostConfig) { c.WSPath = "ws" },
		"limit":     func(c *HostConfig) { c.LargeMessageLimit = 0 },
		"timeout":   func(c *HostConfig) { c.CallTimeout = -time.Second },
		"engineurl": func(c *HostConfig) { c.EngineURL = "http://device.local" },
	}
	for name, mutate := range cases {
		c := base
		mutate(&c)
		if err := c.Validate(); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}

func TestLoadFileDurations(t *testing.T) {
	cases := []struct {
		data       string
		call, init time.Duration
		ping       time.Duration
	}{
		{"call_timeout: 30\ninit_timeout: 10\n", 30 * time.Second, 10 * time.Second, 5 * time.Second},
		{"call_timeout: 2.5\nping_interval: 1m\n", 2500 * time.Millisecond, time.Second, time.Minute},
		{"init_timeout: 1m30s\nping_interval: 0\n", 0, 90 * time.Second, 0},
	}
	for i, tc := range cases {
		path := filepath.Join(t.TempDir(), "host.yaml")
		if err := os.WriteFile(path, []byte(tc.data), 0o600); err != nil {
			t.Fatal(err)
		}
		c := HostConfig{Port: 8080, InitTimeout: time.Second, PingInterval: 5 * time.Second}
		if err := c.LoadFile(path); err != nil {
			t.Fatalf("%d: load: %v", i, err)
		}
		if c.CallTimeout != tc.call || c.InitTimeout != tc.init || c.PingInterval != tc.ping {
			t.Fatalf("%d: got call=%v init=%v ping=%v", i, c.CallTimeout, c.InitTimeout, c.PingInterval)
		}
		if c.Port != 8080 {
			t.Fatalf("%d: unrelated field changed: %d", i, c.Port)
		}
	}

	path := filepath.Join(t.TempDir(), "host.yaml")
	if err := os.WriteFile(path, []byte("call_timeout: soon\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	var c HostConfig
	if err := c.LoadFile(path); err == nil || !strings.Contains(err.Error(), "call_timeout") {
		t.Fatalf("expected call_timeout error, got %v", err)
	}
}
