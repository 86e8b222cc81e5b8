package config_test

import (
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rpipe-project/rpipe-server/internal/config"
)

const sampleYAML = `
version: "0.1"
debug: false
http:
  addr: ":7867"
limits:
  maxpipebytes: 1048576
  defaultttl: 1h
  maxttl: 24h
  pruneinterval: 30s
  requesttimeout: 60s
statefile: /var/lib/rpipe/state.snapshot
`

func TestParseValid(t *testing.T) {
	c, err := config.Parse(strings.NewReader(sampleYAML))
	require.NoError(t, err)
	assert.Equal(t, ":7867", c.HTTP.Addr)
	assert.Equal(t, 1048576, c.Limits.MaxPipeBytes)
	assert.False(t, c.TLSEnabled())
}

func TestParseRejectsUnsupportedVersion(t *testing.T) {
	_, err := config.Parse(strings.NewReader("version: \"9.9\"\n"))
	assert.Error(t, err)
}

func TestParseRejectsMissingAddr(t *testing.T) {
	_, err := config.Parse(strings.NewReader("version: \"0.1\"\nlimits:\n  maxpipebytes: 10\n  defaultttl: 1s\n  pruneinterval: 1s\n"))
	assert.Error(t, err)
}

func TestEnvOverride(t *testing.T) {
	t.Setenv("RPIPE_HTTP_ADDR", ":9999")
	defer os.Unsetenv("RPIPE_HTTP_ADDR")

	c, err := config.Parse(strings.NewReader(sampleYAML))
	require.NoError(t, err)
	assert.Equal(t, ":9999", c.HTTP.Addr)
}
