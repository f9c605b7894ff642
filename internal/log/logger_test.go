package log

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func TestNewJSONIncludesComponent(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: slog.LevelInfo, Format: "json", Component: ComponentBudget, Output: &buf})
	l.Info("expense added", FieldCategory, "Food")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("expected json output, got %q: %v", buf.String(), err)
	}
	if entry[FieldComponent] != ComponentBudget {
		t.Errorf("component = %v", entry[FieldComponent])
	}
	if entry[FieldCategory] != "Food" {
		t.Errorf("category = %v", entry[FieldCategory])
	}
}

func TestWithComponent(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Output: &buf}).WithComponent(ComponentStorage)
	if l.Component() != ComponentStorage {
		t.Fatalf("Component() = %q", l.Component())
	}
	l.Info("saved")
	if !strings.Contains(buf.String(), "component=storage") {
		t.Fatalf("missing component in %q", buf.String())
	}
}

func TestLevelFilters(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: slog.LevelWarn, Output: &buf})
	l.Info("hidden")
	l.Warn("shown")
	if strings.Contains(buf.String(), "hidden") || !strings.Contains(buf.String(), "shown") {
		t.Fatalf("unexpected output %q", buf.String())
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{"debug", slog.LevelDebug, false},
		{"INFO", slog.LevelInfo, false},
		{"", slog.LevelInfo, false},
		{"warning", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"loud", slog.LevelInfo, true},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, %v", tt.in, got, err)
		}
	}
}

func TestLogFields(t *testing.T) {
	f := NewFields().
		WithOperation("add_expense").
		WithPeriod("2024-02").
		WithExpense("id-1", "Food", "12.5").
		WithError(errors.New("boom")).
		WithError(nil)

	s := f.ToSlice()
	if len(s) != 12 {
		t.Fatalf("expected 6 pairs, got %v", s)
	}
	if s[0] != FieldAmount {
		t.Fatalf("expected sorted keys, got first %v", s[0])
	}

	var buf bytes.Buffer
	New(Config{Output: &buf}).WithFields(f).Info("x")
	for _, want := range []string{"operation=add_expense", "period=2024-02", "error=boom"} {
		if !strings.Contains(buf.String(), want) {
			t.Errorf("missing %q in %q", want, buf.String())
		}
	}
}
