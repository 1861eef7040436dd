package main

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/ashwini-cargo/internal/common"
)

func testConfig(t *testing.T) *common.Config {
	t.Helper()
	return &common.Config{
		Store:     common.StoreConfig{Driver: "sqlite", SQLitePath: filepath.Join(t.TempDir(), "numbering.db")},
		Server:    common.ServerConfig{HTTPAddr: ":0"},
		Numbering: common.NumberingConfig{Timezone: "UTC", LRSeed: 19984},
		Log:       common.LogConfig{Level: "error"},
	}
}

func runCmd(t *testing.T, cfg *common.Config, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	err := run(context.Background(), cfg, args, &out, io.Discard)
	return strings.TrimSpace(out.String()), err
}

func TestRun_IssuesAcrossInvocations(t *testing.T) {
	cfg := testConfig(t)

	// each call opens and closes the database, so the second sees the first's write
	out, err := runCmd(t, cfg, "enquiry", "--date=2025-03-14")
	require.NoError(t, err)
	assert.Equal(t, "ENQ-001/14-Mar-25", out)

	out, err = runCmd(t, cfg, "enquiry", "--date=2025-03-14")
	require.NoError(t, err)
	assert.Equal(t, "ENQ-002/14-Mar-25", out)

	out, err = runCmd(t, cfg, "daily", "--prefix=qt", "--date=2025-03-14")
	require.NoError(t, err)
	assert.Equal(t, "QT-001/14-Mar-25", out)

	out, err = runCmd(t, cfg, "lr", "--peek")
	require.NoError(t, err)
	assert.Equal(t, "19985", out)
}

func TestRun_ReturnsErrorsInsteadOfExiting(t *testing.T) {
	cfg := testConfig(t)

	tests := []struct {
		name string
		args []string
	}{
		{"bad date", []string{"order", "--date=14/03/2025"}},
		{"missing prefix", []string{"monthly"}},
		{"unknown flag", []string{"lr", "--bogus"}},
		{"import without file", []string{"import"}},
		{"bad created", []string{"expiry", "--created=yesterday"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := runCmd(t, cfg, tt.args...)
			require.Error(t, err)
		})
	}

	// the database was released after the failures above
	out, err := runCmd(t, cfg, "order", "--date=2025-03-14")
	require.NoError(t, err)
	assert.Equal(t, "ORD-001/Mar-25", out)
}

func TestRun_Usage(t *testing.T) {
	cfg := testConfig(t)

	_, err := runCmd(t, cfg)
	assert.ErrorIs(t, err, errUsage)
	_, err = runCmd(t, cfg, "frobnicate")
	assert.ErrorIs(t, err, errUsage)
}

func TestRun_Import(t *testing.T) {
	cfg := testConfig(t)
	in := filepath.Join(t.TempDir(), "dump.json")
	require.NoError(t, os.WriteFile(in, []byte(`{"enquiryCounter_14-Mar-25":"7","theme":"dark"}`), 0o600))

	out, err := runCmd(t, cfg, "import", "--in="+in)
	require.NoError(t, err)
	assert.Equal(t, "imported=1 skipped=0 ignored=1", out)

	out, err = runCmd(t, cfg, "enquiry", "--date=2025-03-14")
	require.NoError(t, err)
	assert.Equal(t, "ENQ-008/14-Mar-25", out)
}
