// Copyright (C) 2019-2025, NewsGate Authors. All rights reserved.
// See the file LICENSE for licensing terms.

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/newsgate/rpc/segmentation"
)

func writeConfig(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadYAML(t *testing.T) {
	path := writeConfig(t, "newsgate.yaml", `
server:
  addr: 127.0.0.1:7000
  transport: grpc
  shutdown_timeout: 3s
metrics:
  addr: 127.0.0.1:9090
logging:
  level: debug
  pretty: true
segmentation:
  - name: uax29
    args: lower
  - name: whitespace
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:7000", cfg.Server.Addr)
	assert.Equal(t, "grpc", cfg.Server.Transport)
	assert.Equal(t, 3*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, "127.0.0.1:9090", cfg.Metrics.Addr)
	assert.Equal(t, "/metrics", cfg.Metrics.Path)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.True(t, cfg.Logging.Pretty)
	assert.Equal(t, 4, cfg.Moderation.PoolSize)
	assert.Equal(t, []segmentation.Spec{{Name: "uax29", Args: "lower"}, {Name: "whitespace"}}, cfg.Segmentation)
}

func TestLoadTOML(t *testing.T) {
	path := writeConfig(t, "newsgate.toml", `
[server]
addr = ":7100"
transport = "json"

[moderation]
path = "/var/lib/newsgate/moderation.db"
pool_size = 2

[[segmentation]]
name = "uax29"
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":7100", cfg.Server.Addr)
	assert.Equal(t, "json", cfg.Server.Transport)
	assert.Equal(t, 10*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, "/var/lib/newsgate/moderation.db", cfg.Moderation.Path)
	assert.Equal(t, 2, cfg.Moderation.PoolSize)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, []segmentation.Spec{{Name: "uax29"}}, cfg.Segmentation)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("NEWSGATE_TRANSPORT", "json")
	t.Setenv("NEWSGATE_LOG_LEVEL", "warn")

	cfg, err := Load(writeConfig(t, "newsgate.yml", "server:\n  transport: grpc\n"))
	require.NoError(t, err)
	assert.Equal(t, "json", cfg.Server.Transport)
	assert.Equal(t, "warn", cfg.Logging.Level)
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		file string
		body string
		want string
	}{
		{"unknown transport", "a.yaml", "server:\n  transport: carrier-pigeon\n", "unknown transport"},
		{"empty addr", "b.toml", "[server]\naddr = \"  \"\n", "addr is required"},
		{"bad metrics path", "c.yaml", "metrics:\n  addr: :9090\n  path: metrics\n", "path must start"},
		{"bad pool", "d.yaml", "moderation:\n  path: m.db\n  pool_size: 0\n", "pool_size"},
		{"unnamed plugin", "g.yaml", "segmentation:\n  - args: lower\n", "no name"},
		{"syntax", "e.toml", "[server\n", "config parse failed"},
		{"format", "f.ini", "addr=1", "unsupported file format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.file, tt.body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	assert.NoError(t, cfg.Validate())
}
