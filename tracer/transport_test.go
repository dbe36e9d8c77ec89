package tracer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Covers every row of §4.2's URL selection table.
func TestResolveAgentURL(t *testing.T) {
	cases := []struct {
		name           string
		host           string
		port           uint16
		urlOverride    string
		wantTarget     string
		wantUnixSocket string
	}{
		{
			name:       "no override falls back to host and port",
			host:       "tracelink-agent",
			port:       8126,
			wantTarget: "http://tracelink-agent:8126/v0.4/traces",
		},
		{
			name:        "http override replaces the target outright",
			urlOverride: "http://collector.internal:9999",
			wantTarget:  "http://collector.internal:9999/v0.4/traces",
		},
		{
			name:        "https override replaces the target outright",
			urlOverride: "https://collector.internal:9999/",
			wantTarget:  "https://collector.internal:9999/v0.4/traces",
		},
		{
			name:           "unix override dials the socket but still targets host:port over HTTP",
			host:           "localhost",
			port:           8126,
			urlOverride:    "unix:///var/run/tracelink/apm.sock",
			wantTarget:     "http://localhost:8126/v0.4/traces",
			wantUnixSocket: "/var/run/tracelink/apm.sock",
		},
		{
			name:           "bare path override is treated the same as a unix socket path",
			host:           "localhost",
			port:           8126,
			urlOverride:    "/var/run/tracelink/apm.sock",
			wantTarget:     "http://localhost:8126/v0.4/traces",
			wantUnixSocket: "/var/run/tracelink/apm.sock",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			target, unixSocketPath, err := resolveAgentURL(tc.host, tc.port, tc.urlOverride)
			require.NoError(t, err)
			assert.Equal(t, tc.wantTarget, target)
			assert.Equal(t, tc.wantUnixSocket, unixSocketPath)
		})
	}
}

func TestResolveAgentURLUnknownScheme(t *testing.T) {
	_, _, err := resolveAgentURL("localhost", 8126, "gopher://host:1/")
	var scheme *ErrInvalidURLScheme
	require.ErrorAs(t, err, &scheme)
	assert.Equal(t, "gopher", scheme.Scheme)
}
