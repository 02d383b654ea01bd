package log

import (
	"bytes"
	"context"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
)

func newBufferLogger(buf *bytes.Buffer) *Logger {
	return New(Config{Output: buf, Component: ComponentHTTP})
}

func TestLoggerStampsComponent(t *testing.T) {
	var buf bytes.Buffer
	logger := newBufferLogger(&buf)

	logger.Info("hello")
	logger.WithComponent(ComponentWorker).Warn("careful")

	out := buf.String()
	if !strings.Contains(out, "component=http") || !strings.Contains(out, "component=worker") {
		t.Fatalf("components missing: %s", out)
	}
}

func TestFromContext(t *testing.T) {
	var buf bytes.Buffer
	logger := newBufferLogger(&buf)

	if got := FromContext(WithLogger(context.Background(), logger)); got != logger {
		t.Fatal("expected the stored logger")
	}
	if got := FromContext(context.Background()); got.Component() != "unknown" {
		t.Fatalf("fallback component = %q", got.Component())
	}
	if got := FromContextOr(context.Background(), logger); got != logger {
		t.Fatal("expected the fallback logger")
	}
}

func TestToSliceIsSorted(t *testing.T) {
	got := NewFields().WithOperation(OpCreate).WithComponent(ComponentApp).ToSlice()
	if len(got) != 4 || got[0] != FieldComponent || got[2] != FieldOperation {
		t.Fatalf("unexpected order: %v", got)
	}
}

func TestLogExpenseChange(t *testing.T) {
	var buf bytes.Buffer
	sl := NewStructuredLogger(newBufferLogger(&buf))

	sl.LogExpenseChange(context.Background(), OpCreate, 7, "Coffee", 15000, "Food & Dining")
	sl.LogExpenseChange(context.Background(), OpDelete, 7, "", 0, "")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d: %s", len(lines), buf.String())
	}
	if !strings.Contains(lines[0], `msg="Expense created"`) || !strings.Contains(lines[0], "amount_cents=15000") {
		t.Errorf("create line: %s", lines[0])
	}
	if !strings.Contains(lines[1], `msg="Expense deleted"`) || strings.Contains(lines[1], "title=") {
		t.Errorf("delete line: %s", lines[1])
	}
	if !strings.Contains(lines[1], "component=expense") {
		t.Errorf("expense component missing: %s", lines[1])
	}
}

func TestLogHTTPEndLevels(t *testing.T) {
	tests := []struct {
		status int
		level  string
	}{
		{200, "level=INFO"},
		{404, "level=WARN"},
		{503, "level=ERROR"},
	}

	for _, tt := range tests {
		var buf bytes.Buffer
		sl := NewStructuredLogger(newBufferLogger(&buf))
		r := httptest.NewRequest("GET", "/dashboard", nil)
		sl.LogHTTPEnd(context.Background(), r, tt.status, 3, "10.0.0.1")
		if !strings.Contains(buf.String(), tt.level) {
			t.Errorf("status %d: expected %s in %s", tt.status, tt.level, buf.String())
		}
	}
}

func TestLogError(t *testing.T) {
	var buf bytes.Buffer
	sl := NewStructuredLogger(newBufferLogger(&buf))
	sl.LogError(context.Background(), "Export failed", errors.New("disk full"), ComponentExport, OpExport, nil)

	out := buf.String()
	for _, want := range []string{"level=ERROR", "component=export", `error="disk full"`, "operation=export"} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in %s", want, out)
		}
	}
}
