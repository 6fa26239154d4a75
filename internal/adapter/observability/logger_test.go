package observability

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/ats-matcher/internal/config"
)

func TestNewLogger_AttachesServiceFields(t *testing.T) {
	var buf bytes.Buffer
	lg := NewLogger(config.Config{AppEnv: "prod", OTELServiceName: "svc"}, &buf)
	lg.Info("hello", slog.String("k", "v"))

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "svc", line["service"])
	assert.Equal(t, "prod", line["env"])
	assert.Equal(t, "v", line["k"])
}

func TestNewLogger_Levels(t *testing.T) {
	var buf bytes.Buffer
	NewLogger(config.Config{AppEnv: "prod"}, &buf).Debug("hidden")
	assert.Zero(t, buf.Len())

	buf.Reset()
	NewLogger(config.Config{AppEnv: "dev"}, &buf).Debug("shown")
	assert.NotZero(t, buf.Len())

	buf.Reset()
	NewLogger(config.Config{AppEnv: "dev", LogLevel: "warn"}, &buf).Info("hidden")
	assert.Zero(t, buf.Len())
}

func TestSetupLogger_NotNil(t *testing.T) {
	assert.NotNil(t, SetupLogger(config.Config{AppEnv: "dev", OTELServiceName: "svc"}))
}
