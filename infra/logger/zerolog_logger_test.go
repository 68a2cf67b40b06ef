package logger

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestZerologLoggerMethods(t *testing.T) {
	t.Setenv("APP_ENV", "dev")
	l := NewZerologLogger("test")
	if l == nil {
		t.Fatalf("nil logger")
	}
	l.Debugf("debug %d", 1)
	l.Debugw("debug", map[string]any{"k": 1})
	l.Infof("info %s", "test")
	l.Warnf("warn")
	l.Errorf("error")
}

func TestSetLevel(t *testing.T) {
	defer zerolog.SetGlobalLevel(zerolog.DebugLevel)
	assert.NoError(t, SetLevel("warn"))
	assert.Equal(t, zerolog.WarnLevel, zerolog.GlobalLevel())
	assert.NoError(t, SetLevel(""))
	assert.Equal(t, zerolog.WarnLevel, zerolog.GlobalLevel())
	assert.Error(t, SetLevel("loud"))
}

func TestZerologLoggerFields(t *testing.T) {
	var buf bytes.Buffer
	l := NewZerologLoggerTo(&buf, "scheduler").With("resource", "hub-1")
	l.Debugw("pass committed", map[string]any{"shipments": 3})
	var line map[string]any
	assert.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "scheduler", line["component"])
	assert.Equal(t, "hub-1", line["resource"])
	assert.Equal(t, float64(3), line["shipments"])
}

func TestSetOutputRedirectsExistingLoggers(t *testing.T) {
	l := NewZerologLogger("planstore")
	var buf bytes.Buffer
	SetOutput(&buf)
	defer SetOutput(nil)
	l.Infof("archived %d plans", 2)
	assert.Contains(t, buf.String(), "archived 2 plans")
}

func TestTeeToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lsp.log")
	closer := TeeToFile(FileOptions{Path: path, MaxSizeMB: 1})
	NewZerologLoggerTo(output, "cli").Infof("scheduled")
	assert.NoError(t, closer.Close())
	data, err := os.ReadFile(path)
	assert.NoError(t, err)
	assert.Contains(t, string(data), "scheduled")
}
