package shared

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
)

func TestErrorClasses(t *testing.T) {
	tc := []struct {
		name  string
		err   error
		kind  string
		fatal bool
	}{
		{name: "missing config", err: ErrMissingConfig, kind: "configuration", fatal: true},
		{name: "wrapped invalid config", err: fmt.Errorf("load: %w", ErrInvalidConfig), kind: "configuration", fatal: true},
		{name: "token expired", err: fmt.Errorf("%w: status 401", ErrTokenExpired), kind: "authentication", fatal: true},
		{name: "refresh failed", err: ErrRefreshFailed, kind: "authentication", fatal: true},
		{name: "unknown playlist", err: fmt.Errorf("%w: salsa", ErrUnknownPlaylist), kind: "unknown-playlist", fatal: true},
		{name: "transient", err: fmt.Errorf("%w: status 503", ErrTransient), kind: "transient", fatal: false},
		{name: "not found", err: ErrNotFound, kind: "not-found", fatal: false},
		{name: "api request", err: ErrAPIRequest, kind: "remote", fatal: false},
		{name: "canceled", err: fmt.Errorf("fetch: %w", context.Canceled), kind: "canceled", fatal: true},
		{name: "plain", err: errors.New("boom"), kind: "error", fatal: false},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			if got := Kind(tt.err); got != tt.kind {
				t.Errorf("Kind() = %q, want %q", got, tt.kind)
			}
			if got := IsFatal(tt.err); got != tt.fatal {
				t.Errorf("IsFatal() = %v, want %v", got, tt.fatal)
			}
		})
	}

	t.Run("sentinels stay distinct within a class", func(t *testing.T) {
		if errors.Is(ErrTokenExpired, ErrAuthFailed) {
			t.Error("ErrTokenExpired should not match ErrAuthFailed")
		}
		if !errors.Is(ErrTokenExpired, ErrAuthentication) {
			t.Error("ErrTokenExpired should match its class")
		}
		if Kind(nil) != "" || IsFatal(nil) {
			t.Error("nil error has no kind and is not fatal")
		}
	})
}

func TestGenerateState(t *testing.T) {
	a, err := GenerateState()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, _ := GenerateState()

	if a == "" || a == b {
		t.Errorf("expected distinct non-empty states, got %q and %q", a, b)
	}
}

func TestLoggerFromConfig(t *testing.T) {
	t.Run("file logger", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "logs", "likesort.log")
		logger, err := LoggerFromConfig(LogConfig{Level: "debug", File: path})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		logger.Info("hello")
	})

	t.Run("invalid level", func(t *testing.T) {
		if _, err := LoggerFromConfig(LogConfig{Level: "loud"}); !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("expected ErrInvalidConfig, got %v", err)
		}
	})
}

func TestBrowserCommand(t *testing.T) {
	for _, goos := range []string{"darwin", "linux", "windows"} {
		if cmd, err := browserCommand(goos, "https://example.com"); err != nil || cmd == nil {
			t.Errorf("%s: expected a command, got %v", goos, err)
		}
	}

	if _, err := browserCommand("plan9", "https://example.com"); !errors.Is(err, ErrNotImplemented) {
		t.Errorf("expected ErrNotImplemented, got %v", err)
	}
}
