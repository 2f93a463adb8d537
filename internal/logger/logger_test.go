package logger

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestSanitizeRedactsSecretsAndHashesIdentities(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	log := &Logger{SugaredLogger: zap.New(core).Sugar()}

	log.Info("call", "api_key", "sk-123", "Authorization", "Bearer x", "identity", "user-1", "provider", "openai")

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "[REDACTED]", fields["api_key"])
	assert.Equal(t, "[REDACTED]", fields["Authorization"])
	assert.True(t, strings.HasPrefix(fields["identity"].(string), "hash:"))
	assert.NotContains(t, fields["identity"], "user-1")
	assert.Equal(t, "openai", fields["provider"])
}

func TestWithCarriesSanitizedFields(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	log := (&Logger{SugaredLogger: zap.New(core).Sugar()}).With("component", "analyzer", "token", "abc")

	log.Warn("fallback")

	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "analyzer", fields["component"])
	assert.Equal(t, "[REDACTED]", fields["token"])
}

func TestHashValueIsStable(t *testing.T) {
	assert.Equal(t, hashValue("user-1"), hashValue("user-1"))
	assert.NotEqual(t, hashValue("user-1"), hashValue("user-2"))
	assert.Empty(t, hashValue(""))
}

func TestNewModes(t *testing.T) {
	for _, mode := range []string{"prod", "dev", ""} {
		log, err := New(mode)
		require.NoError(t, err, mode)
		require.NotNil(t, log.SugaredLogger)
	}
	Nop().Info("discarded", "k", "v")
}
