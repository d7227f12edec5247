package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"testing"

	"nwksetup/modem"
	"nwksetup/setup"
)

func TestExitCode(t *testing.T) {
	interrupted := fmt.Errorf("%w before step 3: %w", setup.ErrInterrupted, context.Canceled)

	tests := []struct {
		name      string
		err       error
		want      int
		wantLevel string
		wantMsg   string
	}{
		{name: "success", err: nil, want: exitOK},
		{
			name:      "user exit",
			err:       modem.ErrSetupCancelled,
			want:      exitOK,
			wantLevel: "INFO",
			wantMsg:   "Configuration terminated by user",
		},
		{
			name:      "signal",
			err:       interrupted,
			want:      exitInterrupted,
			wantLevel: "WARN",
			wantMsg:   "Setup interrupted",
		},
		{
			name:      "port busy",
			err:       &modem.TransportError{Device: "COM3", Err: errors.New("access denied")},
			want:      exitFailed,
			wantLevel: "ERROR",
			wantMsg:   "Could not open modem port",
		},
		{
			name:      "other failure",
			err:       errors.New("no provider selector configured for nwk200"),
			want:      exitFailed,
			wantLevel: "ERROR",
			wantMsg:   "Setup failed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := slog.New(slog.NewTextHandler(&buf, nil))

			if got := exitCode(tt.err, logger); got != tt.want {
				t.Errorf("exitCode() = %d, want %d", got, tt.want)
			}

			out := buf.String()
			if tt.wantMsg == "" {
				if out != "" {
					t.Errorf("unexpected log output: %s", out)
				}
				return
			}
			if !strings.Contains(out, "level="+tt.wantLevel) || !strings.Contains(out, tt.wantMsg) {
				t.Errorf("log = %q, want level %s with %q", out, tt.wantLevel, tt.wantMsg)
			}
			if tt.want != exitFailed && strings.Contains(out, "Setup failed") {
				t.Errorf("non-failure logged as failure: %s", out)
			}
		})
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug": slog.LevelDebug,
		"info":  slog.LevelInfo,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
		"":      slog.LevelInfo,
	}
	for in, want := range tests {
		if got := parseLevel(in); got != want {
			t.Errorf("parseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}
