package logging

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMaskHeaders(t *testing.T) {
	attr := MaskHeaders("headers", map[string]string{"x-api-key": "secret", "tenant": "", "auth": "token"})
	require.Equal(t, "headers", attr.Key)
	require.Equal(t, "auth=[REDACTED],tenant,x-api-key=[REDACTED]", attr.Value.String())
}

func TestMaskDSN(t *testing.T) {
	require.Equal(t, "postgres://quest:xxxxx@db:5432/events", MaskDSN("dsn", "postgres://quest:hunter2@db:5432/events").Value.String())
	require.Equal(t, "host=db user=quest password=[REDACTED] dbname=events",
		MaskDSN("dsn", "host=db user=quest password=hunter2 dbname=events").Value.String())
	require.Equal(t, "./questchain-data/events.db", MaskDSN("dsn", "./questchain-data/events.db").Value.String())
}

func TestParseLevel(t *testing.T) {
	require.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	require.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	require.Equal(t, slog.LevelInfo, ParseLevel(""))
}
