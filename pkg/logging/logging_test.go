package logging

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func TestDefaultIsSilent(t *testing.T) {
	if Logger().Enabled(context.Background(), slog.LevelError) {
		t.Error("default logger should be disabled at every level")
	}
}

func TestSetLogger(t *testing.T) {
	var buf bytes.Buffer
	SetLogger(slog.New(slog.NewTextHandler(&buf, nil)))
	defer SetLogger(nil)

	Logger().Info("planned", "op", "pocket")
	if !strings.Contains(buf.String(), "op=pocket") {
		t.Errorf("log output %q missing attribute", buf.String())
	}

	SetLogger(nil)
	Logger().Info("dropped")
	if strings.Contains(buf.String(), "dropped") {
		t.Error("SetLogger(nil) should restore the silent logger")
	}
}
