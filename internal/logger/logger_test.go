package logger

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	charmlog "github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogLevel_ToCharmlogLevel(t *testing.T) {
	t.Run("Should map known levels and default to info", func(t *testing.T) {
		cases := map[LogLevel]charmlog.Level{
			DebugLevel: charmlog.DebugLevel,
			InfoLevel:  charmlog.InfoLevel,
			WarnLevel:  charmlog.WarnLevel,
			ErrorLevel: charmlog.ErrorLevel,
			"DEBUG":    charmlog.DebugLevel,
			"verbose":  charmlog.InfoLevel,
			"":         charmlog.InfoLevel,
		}
		for in, want := range cases {
			assert.Equal(t, want, in.ToCharmlogLevel(), "level %q", in)
		}
	})
}

func TestNewLogger(t *testing.T) {
	t.Run("Should write JSON lines with key values", func(t *testing.T) {
		var buf bytes.Buffer
		l := NewLogger(&Config{Level: InfoLevel, Output: &buf, JSON: true})

		l.Info("artifact written", "artifact_id", "a1", "bytes", 42)

		var line map[string]any
		require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &line))
		assert.Equal(t, "artifact written", line["msg"])
		assert.Equal(t, "a1", line["artifact_id"])
	})

	t.Run("Should drop messages below the configured level", func(t *testing.T) {
		var buf bytes.Buffer
		l := NewLogger(&Config{Level: WarnLevel, Output: &buf})

		l.Info("hidden")
		l.Warn("shown")

		assert.NotContains(t, buf.String(), "hidden")
		assert.Contains(t, buf.String(), "shown")
	})

	t.Run("Should carry fields added through With", func(t *testing.T) {
		var buf bytes.Buffer
		l := NewLogger(&Config{Level: InfoLevel, Output: &buf}).With("job_id", "j-1")

		l.Info("processing")

		assert.True(t, strings.Contains(buf.String(), "job_id=j-1"))
	})
}

func TestInit(t *testing.T) {
	t.Run("Should replace the default logger", func(t *testing.T) {
		prev := GetDefault()
		t.Cleanup(func() { defaultLogger = prev })

		var buf bytes.Buffer
		Init(&Config{Level: DebugLevel, Output: &buf})
		Debug("debug via package helper")

		assert.Contains(t, buf.String(), "debug via package helper")
	})
}
