package control_test

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/momentics/grainws/control"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := control.DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.WebSocket.PingInterval != 10*time.Second || cfg.WebSocket.MaxMessageSize != 1<<20 {
		t.Errorf("unexpected websocket defaults: %+v", cfg.WebSocket)
	}
	if cfg.Server.Listen != ":9000" {
		t.Errorf("listen = %q", cfg.Server.Listen)
	}
}

func TestValidateRejects(t *testing.T) {
	cases := map[string]func(*control.Config){
		"empty listen":    func(c *control.Config) { c.Server.Listen = " " },
		"zero ping":       func(c *control.Config) { c.WebSocket.PingInterval = 0 },
		"zero max":        func(c *control.Config) { c.WebSocket.MaxMessageSize = 0 },
		"huge max":        func(c *control.Config) { c.WebSocket.MaxMessageSize = control.MaxMessageSizeLimit + 1 },
		"bad policy":      func(c *control.Config) { c.WebSocket.LivenessPolicy = "sometimes" },
		"bad log format":  func(c *control.Config) { c.Log.Format = "xml" },
		"bad log level":   func(c *control.Config) { c.Log.Level = "loud" },
		"zero read buf":   func(c *control.Config) { c.Server.ReadBufferSize = 0 },
		"zero handshake":  func(c *control.Config) { c.Server.HandshakeTimeout = 0 },
	}
	for name, mutate := range cases {
		cfg := control.DefaultConfig()
		mutate(cfg)
		if err := cfg.Validate(); err == nil {
			t.Errorf("%s: expected validation error", name)
		}
	}
}

func TestLoadFileEnvAndFlags(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "grainws.yaml")
	content := "server:\n  listen: \":7000\"\nwebsocket:\n  ping_interval: 3s\n  liveness_policy: retry\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("GRAINWS_LOG_LEVEL", "debug")

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	control.RegisterFlags(fs)
	if err := fs.Parse([]string{"--max-message-size=2048"}); err != nil {
		t.Fatal(err)
	}

	cfg, err := control.LoadConfig(path, fs)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Listen != ":7000" {
		t.Errorf("listen from file = %q", cfg.Server.Listen)
	}
	if cfg.WebSocket.PingInterval != 3*time.Second || cfg.WebSocket.LivenessPolicy != "retry" {
		t.Errorf("websocket from file = %+v", cfg.WebSocket)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("log level from env = %q", cfg.Log.Level)
	}
	if cfg.WebSocket.MaxMessageSize != 2048 {
		t.Errorf("max message size from flag = %d", cfg.WebSocket.MaxMessageSize)
	}
	if cfg.Server.ReadBufferSize != 4096 {
		t.Errorf("default read buffer lost: %d", cfg.Server.ReadBufferSize)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := control.LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"), nil); err == nil {
		t.Fatal("expected error for missing explicit file")
	}
}

func TestLoadInvalidFromEnv(t *testing.T) {
	t.Setenv("GRAINWS_WEBSOCKET_LIVENESS_POLICY", "never")
	if _, err := control.LoadConfig("", nil); err == nil || !strings.Contains(err.Error(), "liveness_policy") {
		t.Fatalf("err = %v", err)
	}
}

func TestWriteConfigRoundTrip(t *testing.T) {
	cfg := control.DefaultConfig()
	cfg.Server.CloseOnLivenessTimeout = true
	var buf bytes.Buffer
	if err := control.WriteConfig(&buf, cfg); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "ping_interval: 10s") {
		t.Errorf("dump missing duration:\n%s", buf.String())
	}

	var raw map[string]any
	if err := yaml.Unmarshal(buf.Bytes(), &raw); err != nil {
		t.Fatal(err)
	}

	path := filepath.Join(t.TempDir(), "dump.yaml")
	if err := os.WriteFile(path, buf.Bytes(), 0o600); err != nil {
		t.Fatal(err)
	}
	back, err := control.LoadConfig(path, nil)
	if err != nil {
		t.Fatal(err)
	}
	if *back != *cfg {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", back, cfg)
	}
}
