package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mklimuk/i2cctl/devmem"
)

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "i2cctl.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
backend: devmem
timeout: 250ms
devmem:
  path: /tmp/regs
  base: 0xF0001000
  csr: 0x0
  data: 0x4
  delay: 1us
mcp2221:
  response_wait: 20ms
  device: 1
nanopi:
  bus: 2
`), 0o600))

	cfg, err := loadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, backendDevmem, cfg.Backend)
	assert.Equal(t, 250*time.Millisecond, cfg.Timeout)
	assert.Equal(t, "/tmp/regs", cfg.Devmem.Path)
	assert.Equal(t, devmem.Layout{Base: 0xF0001000, CSR: 0, Data: 4}, cfg.Devmem.Layout)
	assert.Equal(t, time.Microsecond, cfg.Devmem.Delay)
	assert.Equal(t, 20*time.Millisecond, cfg.MCP2221.ResponseWait)
	require.NotNil(t, cfg.MCP2221.Device)
	assert.Equal(t, 1, *cfg.MCP2221.Device)
	require.NotNil(t, cfg.NanoPi.Bus)
	assert.Equal(t, 2, *cfg.NanoPi.Bus)
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := loadConfig("")
	require.NoError(t, err)
	assert.Equal(t, backendSim, cfg.Backend)
	assert.Equal(t, devmem.DefaultPath, cfg.Devmem.Path)
	assert.Equal(t, 5*time.Second, cfg.Timeout)
}

func TestLoadConfig_Empty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.yaml")
	require.NoError(t, os.WriteFile(path, nil, 0o600))
	cfg, err := loadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, defaultConfig(), cfg)
}

func TestLoadConfig_Errors(t *testing.T) {
	dir := t.TempDir()
	unknown := filepath.Join(dir, "unknown.yaml")
	require.NoError(t, os.WriteFile(unknown, []byte("backend: sim\nspeed: 400\n"), 0o600))
	_, err := loadConfig(unknown)
	assert.Error(t, err)

	badBackend := filepath.Join(dir, "backend.yaml")
	require.NoError(t, os.WriteFile(badBackend, []byte("backend: uart\n"), 0o600))
	_, err = loadConfig(badBackend)
	assert.ErrorContains(t, err, "unknown backend")

	_, err = loadConfig(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}
