package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnonymize(t *testing.T) {
	in := "login a@x.com token=eyJhbGciOiJIUzI1NiJ9.e30.sig user_id=65f1c0"
	out := Anonymize(in)

	assert.NotContains(t, out, "a@x.com")
	assert.NotContains(t, out, "eyJhbGci")
	assert.Contains(t, out, "[REDACTED_EMAIL]")
	assert.Contains(t, out, "[REDACTED_TOKEN]")
	assert.Contains(t, out, "user_id=[USER_ID]")
}

func TestLogger_ErrorEntry(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithOutput(&buf, "debug")

	l.Error("store", "insert failed for b@y.org", errors.New("dup key user_id=42"))

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "error", entry["level"])
	assert.Equal(t, "store", entry["module"])
	assert.Equal(t, "insert failed for [REDACTED_EMAIL]", entry["msg"])
	assert.Equal(t, "dup key user_id=[USER_ID]", entry["error"])
}

func TestLogger_LevelFilter(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithOutput(&buf, "warn")

	l.Info("server", "hidden")
	l.Debug("server", "hidden")
	assert.Zero(t, buf.Len())

	l.Warn("server", "shown")
	assert.Contains(t, buf.String(), "shown")
}

func TestSetLevel_AppliesToSharedLoggers(t *testing.T) {
	prevOut, prevLevel := std.Out, std.GetLevel()
	t.Cleanup(func() {
		std.SetOutput(prevOut)
		std.SetLevel(prevLevel)
	})

	var buf bytes.Buffer
	std.SetOutput(&buf)
	a, b := New(), New()

	SetLevel("error")
	a.Warn("store", "hidden")
	assert.Zero(t, buf.Len())

	SetLevel("debug")
	b.Debug("server", "shown")
	assert.Contains(t, buf.String(), "shown")

	SetLevel("nonsense")
	assert.Equal(t, logrus.InfoLevel, std.GetLevel())
}
