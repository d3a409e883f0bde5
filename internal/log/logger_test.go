package log

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{"debug", slog.LevelDebug, false},
		{"", slog.LevelInfo, false},
		{"WARN", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"trace", slog.LevelInfo, true},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, %v", tt.in, got, err)
		}
	}
}

func TestNewHandler_JSON(t *testing.T) {
	var buf bytes.Buffer
	h, err := NewHandler(&buf, "info", "json")
	if err != nil {
		t.Fatalf("NewHandler: %v", err)
	}
	logger := New(Config{Component: ComponentLedger, Handler: h})
	logger.Debug("hidden")
	logger.Info("visible", FieldKind, "voucher")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected one line, got %q", buf.String())
	}
	var rec map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &rec); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if rec[FieldComponent] != ComponentLedger || rec[FieldKind] != "voucher" {
		t.Errorf("unexpected record: %v", rec)
	}

	if _, err := NewHandler(&buf, "info", "xml"); err == nil {
		t.Error("expected error for unknown format")
	}
}

func TestStructuredLogger(t *testing.T) {
	var buf bytes.Buffer
	h, _ := NewHandler(&buf, "debug", "text")
	sl := NewStructuredLogger(New(Config{Component: ComponentHTTP, Handler: h}))
	ctx := context.Background()

	sl.LogMutation(ctx, "expense", OpDelete, "e1", 1250)
	sl.LogError(ctx, "Ledger mutation failed", errors.New("boom"), ComponentHTTP, OpCreate, NewFields().WithRecord("voucher", ""))

	out := buf.String()
	for _, want := range []string{"Ledger record saved", "level=ERROR", "error=boom", "record_id=e1", "amount_cents=1250"} {
		if !strings.Contains(out, want) {
			t.Errorf("log output missing %q:\n%s", want, out)
		}
	}
}

func TestFromContext_Default(t *testing.T) {
	if l := FromContext(context.Background()); l.Component() != "unknown" {
		t.Errorf("Component() = %q", l.Component())
	}
}

func TestNewContext(t *testing.T) {
	l := New(Config{Component: ComponentLedger, Handler: slog.NewTextHandler(io.Discard, nil)})
	if got := FromContext(NewContext(context.Background(), l)); got != l {
		t.Errorf("FromContext returned %p, want %p", got, l)
	}
}
