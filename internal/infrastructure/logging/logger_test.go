package logging

import (
	"testing"

	"github.com/hilthontt/studyroom/internal/infrastructure/configs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewLogger_Backends(t *testing.T) {
	for _, name := range []string{"zap", "zerolog"} {
		t.Run(name, func(t *testing.T) {
			l, err := NewLogger(configs.LoggerConfig{Logger: name, Level: "error", Encoding: "json"})
			require.NoError(t, err)
			l.Info(General, Startup, "not emitted at error level", nil)
		})
	}

	_, err := NewLogger(configs.LoggerConfig{Logger: "logrus"})
	assert.Error(t, err)
}

func TestZapLogger_AddsCategoryFields(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	l := NewZap(zap.New(core))

	l.Warn(Connection, Dial, "dial failed", map[ExtraKey]any{RoomID: "42"})

	entries := logs.All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "Connection", fields["Category"])
	assert.Equal(t, "Dial", fields["SubCategory"])
	assert.Equal(t, "42", fields["RoomId"])
}
