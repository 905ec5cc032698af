package logging

import (
	"testing"

	"github.com/l1jgo/entkit/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNew(t *testing.T) {
	log, err := New(config.LoggingConfig{Level: "debug", Format: "json"})
	require.NoError(t, err)
	assert.True(t, log.Core().Enabled(zap.DebugLevel))

	log, err = New(config.LoggingConfig{Level: "bogus", Format: "console"})
	require.NoError(t, err)
	assert.False(t, log.Core().Enabled(zap.DebugLevel))
	assert.True(t, log.Core().Enabled(zap.InfoLevel))
}
