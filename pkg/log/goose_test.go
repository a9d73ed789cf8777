package log

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestGooseLogger_PrintfLogsAtInfo(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf).Level(zerolog.InfoLevel)
	ctx := logger.WithContext(context.Background())

	g := NewGooseLoggerFromCtx(ctx)
	g.Printf("OK   %s", "00001_create_messages.sql")

	out := buf.String()
	if !strings.Contains(out, `"level":"info"`) {
		t.Errorf("expected info level, got %q", out)
	}
	if !strings.Contains(out, "00001_create_messages.sql") {
		t.Errorf("expected migration name in output, got %q", out)
	}
}
