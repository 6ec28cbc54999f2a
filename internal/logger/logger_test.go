package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitialize(t *testing.T) {
	t.Cleanup(func() { Log = logrus.New() })

	require.NoError(t, Initialize("debug", "json"))
	assert.Equal(t, logrus.DebugLevel, Log.GetLevel())
	assert.IsType(t, &logrus.JSONFormatter{}, Log.Formatter)

	require.NoError(t, Initialize("warn", "text"))
	assert.Equal(t, logrus.WarnLevel, Log.GetLevel())
}

func TestInitialize_Invalid(t *testing.T) {
	t.Cleanup(func() { Log = logrus.New() })

	assert.Error(t, Initialize("loud", "text"))
	assert.Error(t, Initialize("info", "xml"))
}

func TestFieldsAreWritten(t *testing.T) {
	t.Cleanup(func() { Log = logrus.New() })
	require.NoError(t, Initialize("info", "json"))

	var buf bytes.Buffer
	Log.SetOutput(&buf)
	Info("room created", Fields{"roomID": "r1"})
	Debug("hidden", nil)

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "room created", line["msg"])
	assert.Equal(t, "r1", line["roomID"])
}

func TestNilFields(t *testing.T) {
	t.Cleanup(func() { Log = logrus.New() })
	require.NoError(t, Initialize("info", "json"))

	var buf bytes.Buffer
	Log.SetOutput(&buf)
	Warn("hub closed", nil)

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "hub closed", line["msg"])
	assert.Equal(t, "warning", line["level"])
}
