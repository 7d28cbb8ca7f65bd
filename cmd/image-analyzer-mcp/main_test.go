package main

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ironsheep/image-analyzer-mcp/internal/config"
	"github.com/ironsheep/image-analyzer-mcp/internal/transport"
)

func TestVersionCommand(t *testing.T) {
	var out bytes.Buffer
	cmd := newRootCommand()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"version"})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "image-analyzer-mcp dev")
	assert.Contains(t, out.String(), "Git commit: unknown")
}

func TestVersionFlag(t *testing.T) {
	var out bytes.Buffer
	cmd := newRootCommand()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--version"})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "Build time: unknown")
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, false)
	logger.Debug().Msg("hidden")
	logger.Info().Msg("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")

	buf.Reset()
	logger = newLogger(&buf, true)
	logger.Debug().Msg("visible")
	assert.Contains(t, buf.String(), "visible")
}

func TestRun_StopsAtEndOfInput(t *testing.T) {
	cfg := config.Config{DefaultModel: config.DefaultModel, BaseDir: t.TempDir(), RequestTimeout: time.Minute}
	var out, logs bytes.Buffer

	prevVersion, prevTransport := Version, transport.Version
	Version = "2.0.1"
	t.Cleanup(func() { Version, transport.Version = prevVersion, prevTransport })

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	in := strings.NewReader(`{"jsonrpc":"2.0","id":1,"method":"ping"}` + "\n")
	_ = run(ctx, cfg, in, &out, newLogger(&logs, false))

	assert.Contains(t, logs.String(), "Image Analyzer MCP Server starting")
	assert.Equal(t, "2.0.1", transport.Version, "outbound User-Agent uses the build version")
}
