package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadFrom_Defaults(t *testing.T) {
	cfg, err := LoadFrom(t.TempDir())
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}

	if cfg.Server.Port != 8080 || cfg.Server.ShutdownTimeout != 10*time.Second {
		t.Fatalf("server defaults: %+v", cfg.Server)
	}
	if cfg.WebSocket.PingInterval != 30*time.Second || cfg.WebSocket.PongWait != 60*time.Second {
		t.Fatalf("websocket defaults: %+v", cfg.WebSocket)
	}
	if cfg.WebSocket.SendBuffer != 256 || cfg.WebSocket.MaxMessageSize != 65536 {
		t.Fatalf("websocket sizes: %+v", cfg.WebSocket)
	}
	if cfg.Registry.Driver != "memory" || cfg.Registry.IsDurable() {
		t.Fatalf("registry defaults: %+v", cfg.Registry)
	}
	if cfg.Events.Driver != "none" || cfg.Events.QueueSize != 1024 {
		t.Fatalf("events defaults: %+v", cfg.Events)
	}
	if cfg.Stats.ConnectionQuality != "good" {
		t.Fatalf("stats defaults: %+v", cfg.Stats)
	}
	if cfg.Cache.TTL != 30*time.Second || cfg.Cache.Enabled {
		t.Fatalf("cache defaults: %+v", cfg.Cache)
	}
}

func TestLoadFrom_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	yaml := []byte(`
server:
  port: 9000
registry:
  driver: sqlite
  database:
    file_path: /tmp/relay.db
websocket:
  ping_interval: 5s
events:
  driver: kafka
  kafka:
    brokers: kafka:9092
stats:
  connection_quality: excellent
`)
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), yaml, 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("PORT", "9100")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := LoadFrom(dir)
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}

	if cfg.Server.Port != 9100 {
		t.Fatalf("env override lost: port=%d", cfg.Server.Port)
	}
	if cfg.Log.Level != "debug" {
		t.Fatalf("log level %q", cfg.Log.Level)
	}
	if cfg.Registry.Driver != "sqlite" || !cfg.Registry.IsDurable() || cfg.Registry.Database.FilePath != "/tmp/relay.db" {
		t.Fatalf("registry from file: %+v", cfg.Registry)
	}
	if cfg.WebSocket.PingInterval != 5*time.Second {
		t.Fatalf("ping interval %v", cfg.WebSocket.PingInterval)
	}
	ps := cfg.Events.PubSub()
	if ps.Driver != "kafka" || ps.Kafka.Brokers != "kafka:9092" {
		t.Fatalf("pubsub config: %+v", ps)
	}
	if cfg.Stats.ConnectionQuality != "excellent" {
		t.Fatalf("connection quality %q", cfg.Stats.ConnectionQuality)
	}
}

func TestLoadFrom_RejectsInlineWritesToRemoteRegistry(t *testing.T) {
	cases := map[string]string{
		"durable": "registry:\n  driver: postgres\n  write_behind: false\n",
		"cached":  "registry:\n  write_behind: false\ncache:\n  enabled: true\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			dir := t.TempDir()
			if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(body), 0o644); err != nil {
				t.Fatal(err)
			}
			if _, err := LoadFrom(dir); !errors.Is(err, ErrInlineRemoteWrites) {
				t.Fatalf("expected ErrInlineRemoteWrites, got %v", err)
			}
		})
	}

	// Inline writes are fine for the in-process store.
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("registry:\n  write_behind: false\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFrom(dir); err != nil {
		t.Fatalf("memory registry with inline writes: %v", err)
	}
}
