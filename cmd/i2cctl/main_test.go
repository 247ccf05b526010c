package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"

	"github.com/mklimuk/i2cctl/cmd/i2cctl/console"
)

const testScenario = `
devices:
  - address: 0x50
    size: 32
    data: "00 01 02 03 04 05 06 07 08 09 0a 0b 0c 0d 0e 0f
           11 22 33 44"
  - address: 0x150
  - address: 0x21
    nack_at: 1
`

func runApp(t *testing.T, args ...string) (string, error) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "bus.yaml")
	require.NoError(t, os.WriteFile(path, []byte(testScenario), 0o600))

	var out bytes.Buffer
	console.SetOutput(&out, &out)
	t.Cleanup(func() { console.SetOutput(os.Stdout, os.Stderr) })

	app := newApp()
	app.ExitErrHandler = func(*cli.Context, error) {}
	argv := append([]string{"i2cctl", "--backend", "sim", "--scenario", path}, args...)
	err := app.Run(argv)
	return out.String(), err
}

func exitCode(err error) int {
	var exerr cli.ExitCoder
	if errors.As(err, &exerr) {
		return exerr.ExitCode()
	}
	return -1
}

func TestRead(t *testing.T) {
	out, err := runApp(t, "read", "0x50", "0x10", "4")
	require.NoError(t, err)
	assert.Contains(t, out, "11 22 33 44")
}

func TestRead_TenBit(t *testing.T) {
	_, err := runApp(t, "read", "0x150", "0", "2")
	assert.NoError(t, err)
}

func TestRead_Nack(t *testing.T) {
	_, err := runApp(t, "read", "0x33", "0", "2")
	require.Error(t, err)
	assert.Equal(t, 2, exitCode(err))
	assert.Contains(t, err.Error(), "no-ack")
	assert.Contains(t, err.Error(), "0xc0")
}

func TestRead_BadArguments(t *testing.T) {
	_, err := runApp(t, "read", "0x50")
	assert.Equal(t, 1, exitCode(err))
	_, err = runApp(t, "read", "0x400", "0", "1")
	assert.Equal(t, 1, exitCode(err))
	_, err = runApp(t, "read", "0x50", "0", "300")
	assert.Equal(t, 1, exitCode(err))
}

func TestWrite(t *testing.T) {
	out, err := runApp(t, "write", "--yes", "0x50", "00", "aa bb")
	require.NoError(t, err)
	assert.Contains(t, out, "wrote")

	_, err = runApp(t, "write", "--yes", "--pec", "0x50", "00aa")
	require.NoError(t, err)

	_, err = runApp(t, "write", "--yes", "0x21", "00")
	assert.Equal(t, 2, exitCode(err))

	_, err = runApp(t, "write", "--yes", "--pec", "0x150", "00")
	assert.Equal(t, 1, exitCode(err))
}

func TestScan(t *testing.T) {
	out, err := runApp(t, "scan")
	require.NoError(t, err)
	assert.Contains(t, out, "ADDRESS")
	assert.Contains(t, out, "0x050")
	assert.Contains(t, out, "0x021", "address phase is acknowledged")

	out, err = runApp(t, "scan", "--ten-bit")
	require.NoError(t, err)
	assert.Contains(t, out, "0x150")

	out, err = runApp(t, "scan", "--from", "0x60", "--to", "0x70")
	require.NoError(t, err)
	assert.Contains(t, out, "no device answered")
}

func TestUnknownBackend(t *testing.T) {
	_, err := runApp(t, "--backend", "uart", "scan")
	assert.Equal(t, 1, exitCode(err))
}

func TestSlave(t *testing.T) {
	out, err := runApp(t, "slave", "--inject", "0102", "--count", "3", "--reply", "0x5a", "0x42")
	require.NoError(t, err)
	assert.Contains(t, out, "listening on 0x42")
	assert.Contains(t, out, "ADDR_MATCH|DATA_READY data 0x01")
	assert.Contains(t, out, "ADDR_MATCH|DATA_READY data 0x02")
	assert.Contains(t, out, "ADDR_MATCH|DATA_REQ")

	_, err = runApp(t, "slave", "0x80")
	assert.Equal(t, 2, exitCode(err))
}
