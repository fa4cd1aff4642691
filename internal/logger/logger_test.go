package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/sdk/trace"
)

// captureOutput redirects logger output to a buffer for testing.
// Returns the buffer and a cleanup function to restore original output.
func captureOutput() (*bytes.Buffer, func()) {
	buf := new(bytes.Buffer)

	mu.Lock()
	originalOutput := output
	originalColor := useColor
	output = buf
	useColor = false // Disable colors for easier testing
	mu.Unlock()

	reconfigure()

	cleanup := func() {
		mu.Lock()
		output = originalOutput
		useColor = originalColor
		mu.Unlock()
		reconfigure()
	}

	return buf, cleanup
}

func TestLevelFiltering(t *testing.T) {
	t.Run("DebugLevelShowsAllMessages", func(t *testing.T) {
		buf, cleanup := captureOutput()
		defer cleanup()

		SetLevel("DEBUG")

		Debug("debug message")
		Info("info message")
		Warn("warn message")
		Error("error message")

		out := buf.String()
		assert.Contains(t, out, "[DEBUG]")
		assert.Contains(t, out, "debug message")
		assert.Contains(t, out, "info message")
		assert.Contains(t, out, "warn message")
		assert.Contains(t, out, "error message")
	})

	t.Run("WarnLevelFiltersDebugAndInfo", func(t *testing.T) {
		buf, cleanup := captureOutput()
		defer cleanup()

		SetLevel("WARN")

		Debug("debug message")
		Info("info message")
		Warn("warn message")
		Error("error message")

		out := buf.String()
		assert.NotContains(t, out, "debug message")
		assert.NotContains(t, out, "info message")
		assert.Contains(t, out, "warn message")
		assert.Contains(t, out, "error message")
	})

	t.Run("SetLevelIgnoresInvalidValues", func(t *testing.T) {
		buf, cleanup := captureOutput()
		defer cleanup()

		SetLevel("INFO")
		SetLevel("BOGUS")

		Debug("debug message")
		Info("info message")

		out := buf.String()
		assert.NotContains(t, out, "debug message")
		assert.Contains(t, out, "info message")
	})
}

func TestLevelString(t *testing.T) {
	assert.Equal(t, "DEBUG", LevelDebug.String())
	assert.Equal(t, "INFO", LevelInfo.String())
	assert.Equal(t, "WARN", LevelWarn.String())
	assert.Equal(t, "ERROR", LevelError.String())
	assert.Equal(t, "UNKNOWN", Level(99).String())
}

func TestJSONFormat(t *testing.T) {
	buf, cleanup := captureOutput()
	defer cleanup()

	SetLevel("INFO")
	SetFormat("json")

	Info("test message", "key1", "value1", "key2", 42)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
	assert.Equal(t, "INFO", entry["level"])
	assert.Equal(t, "test message", entry["msg"])
	assert.Equal(t, "value1", entry["key1"])
	assert.Equal(t, float64(42), entry["key2"])
}

func TestFormatSwitching(t *testing.T) {
	buf, cleanup := captureOutput()
	defer cleanup()

	SetLevel("INFO")
	SetFormat("text")
	Info("text message")
	assert.Contains(t, buf.String(), "[INFO]")
	buf.Reset()

	SetFormat("json")
	Info("json message")
	assert.True(t, json.Valid(bytes.TrimSpace(buf.Bytes())))
	buf.Reset()

	SetFormat("xml") // invalid, ignored
	Info("still json")
	assert.True(t, json.Valid(bytes.TrimSpace(buf.Bytes())))
}

func TestWarnCtxInjectsTraceFields(t *testing.T) {
	buf, cleanup := captureOutput()
	defer cleanup()

	SetLevel("WARN")
	SetFormat("json")

	tp := trace.NewTracerProvider()
	ctx, span := tp.Tracer("test").Start(context.Background(), "op")
	defer span.End()

	WarnCtx(ctx, "rollback delete failed", "path", "sst/7.data")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
	assert.Equal(t, span.SpanContext().TraceID().String(), entry[KeyTraceID])
	assert.Equal(t, span.SpanContext().SpanID().String(), entry[KeySpanID])
	assert.Equal(t, "sst/7.data", entry["path"])
}

func TestWarnCtxWithoutSpanLeavesFieldsUntouched(t *testing.T) {
	buf, cleanup := captureOutput()
	defer cleanup()

	SetLevel("WARN")
	SetFormat("json")

	WarnCtx(context.Background(), "no active span", "path", "sst/7.data")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
	assert.NotContains(t, entry, KeyTraceID)
	assert.Equal(t, "sst/7.data", entry["path"])
}

func TestWarnCtxNilContextDoesNotPanic(t *testing.T) {
	buf, cleanup := captureOutput()
	defer cleanup()

	SetLevel("WARN")
	require.NotPanics(t, func() {
		WarnCtx(nil, "nil context")
	})
	assert.Contains(t, buf.String(), "nil context")
}

func TestErrorCtxInjectsTraceFields(t *testing.T) {
	buf, cleanup := captureOutput()
	defer cleanup()

	SetLevel("ERROR")
	SetFormat("json")

	tp := trace.NewTracerProvider()
	ctx, span := tp.Tracer("test").Start(context.Background(), "op")
	defer span.End()

	ErrorCtx(ctx, "fetch failed")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
	assert.Equal(t, span.SpanContext().TraceID().String(), entry[KeyTraceID])
}

func TestConcurrentLogging(t *testing.T) {
	InitWithWriter(io.Discard, "DEBUG", "text", false)
	defer func() {
		mu.Lock()
		output = os.Stdout
		mu.Unlock()
		reconfigure()
	}()

	const numGoroutines = 10
	const logsPerGoroutine = 100

	var wg sync.WaitGroup
	wg.Add(numGoroutines)
	for i := 0; i < numGoroutines; i++ {
		go func(id int) {
			defer wg.Done()
			for j := 0; j < logsPerGoroutine; j++ {
				Info("goroutine log", "id", id, "iteration", j)
			}
		}(i)
	}

	require.NotPanics(t, wg.Wait)
}

func TestInitConfiguresLevelAndFormat(t *testing.T) {
	buf := new(bytes.Buffer)
	InitWithWriter(buf, "", "", false)
	defer func() {
		mu.Lock()
		output = os.Stdout
		mu.Unlock()
		reconfigure()
	}()

	require.NoError(t, Init(Config{Level: "DEBUG", Format: "json"}))
	Debug("after init")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
	assert.Equal(t, "DEBUG", entry["level"])
}

func TestInitWithEmptyConfigIsNoop(t *testing.T) {
	require.NoError(t, Init(Config{}))
}

func TestInitWithFileOutput(t *testing.T) {
	path := t.TempDir() + "/sstablectl.log"
	require.NoError(t, Init(Config{Output: path, Level: "INFO", Format: "text"}))
	defer func() {
		mu.Lock()
		output = os.Stdout
		mu.Unlock()
		reconfigure()
	}()

	Info("wrote to file")

	contents, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, strings.TrimSpace(string(contents)), "wrote to file")
}
