package cli

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"savings/internal/config"
)

func TestSetupLogger(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	var buf bytes.Buffer
	logger := SetupLogger(&buf, "warn", "test")

	logger.Info("hidden")
	logger.Warn("shown")
	out := buf.String()
	if strings.Contains(out, "hidden") || !strings.Contains(out, "shown") {
		t.Errorf("log output = %q", out)
	}
	if strings.Count(out, "component=test") != 1 {
		t.Errorf("want exactly one component attribute: %q", out)
	}

	buf.Reset()
	slog.Warn("from default", "component", "cache")
	if out := buf.String(); strings.Count(out, "component=") != 1 {
		t.Errorf("default logger output = %q", out)
	}
}

func TestLoadConfig(t *testing.T) {
	t.Setenv("PORT", "9999")
	cfg, err := LoadConfig(nil)
	if err != nil || cfg.Port != "9999" {
		t.Fatalf("LoadConfig() = %+v, %v", cfg, err)
	}

	boom := errors.New("invalid")
	if _, err := LoadConfig(func(*config.Config) error { return boom }); !errors.Is(err, boom) {
		t.Errorf("LoadConfig() error = %v, want %v", err, boom)
	}
}

func TestSignalContextCancel(t *testing.T) {
	var buf bytes.Buffer
	ctx, cancel := SignalContext(context.Background(), SetupLogger(&buf, "info", "test"))
	cancel()
	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
		t.Fatal("context not cancelled")
	}
}
