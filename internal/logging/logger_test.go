package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONLoggerCarriesComponent(t *testing.T) {
	var buf bytes.Buffer
	logger := Component(NewWithWriter(Config{Level: "debug", Format: "json"}, &buf), "api")

	logger.Debug().Str("route", "/healthz").Msg("request")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "api", entry["component"])
	assert.Equal(t, "/healthz", entry["route"])
	assert.Equal(t, "debug", entry["level"])
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zerolog.WarnLevel, ParseLevel("WARN"))
	assert.Equal(t, zerolog.InfoLevel, ParseLevel("bogus"))
	assert.Equal(t, zerolog.Disabled, ParseLevel("off"))
}

func TestContextRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(Config{Format: "json"}, &buf)
	ctx := WithContext(context.Background(), logger)

	FromContext(ctx).Info().Msg("hello")
	assert.Contains(t, buf.String(), "hello")
}
