package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestSanitizeRedactsSecrets(t *testing.T) {
	out := sanitizeKVs([]interface{}{"apiKey", "sk-123", "model", "gpt-4o-mini", "db_password", "pw", "dangling"})

	assert.Equal(t, []interface{}{"apiKey", "[REDACTED]", "model", "gpt-4o-mini", "db_password", "[REDACTED]", "dangling"}, out)
}

func TestWithCarriesFields(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	l := &Logger{SugaredLogger: zap.New(core).Sugar()}

	l.With("component", "EvaluationService").Info("評估完成", "score", 7.5, "token", "abc")

	entries := logs.All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "EvaluationService", fields["component"])
	assert.Equal(t, 7.5, fields["score"])
	assert.Equal(t, "[REDACTED]", fields["token"])
}

func TestNewModes(t *testing.T) {
	for _, mode := range []string{"development", "production", ""} {
		l, err := New(mode)
		require.NoError(t, err)
		require.NotNil(t, l.SugaredLogger)
	}
	Nop().Info("ignored")
}
