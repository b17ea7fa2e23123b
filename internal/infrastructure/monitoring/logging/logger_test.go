package logging

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
)

// Helper to create a logger that writes to a buffer for verification
func newTestLogger(t *testing.T) (Logger, *zaptest.Buffer) {
	t.Helper()
	buf := &zaptest.Buffer{}
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoder := zapcore.NewJSONEncoder(encoderConfig)
	core := zapcore.NewCore(encoder, buf, zapcore.DebugLevel)
	z := zap.New(core)
	return &zapLogger{z: z}, buf
}

func TestNewLogger_JSONFormat(t *testing.T) {
	cfg := LogConfig{
		Level:       "info",
		Format:      "json",
		OutputPaths: []string{"stdout"},
	}
	l, err := NewLogger(cfg)
	require.NoError(t, err)
	assert.NotNil(t, l)
}

func TestNewLogger_ConsoleFormat(t *testing.T) {
	cfg := LogConfig{
		Level:       "debug",
		Format:      "console",
		OutputPaths: []string{"stdout"},
	}
	l, err := NewLogger(cfg)
	require.NoError(t, err)
	assert.NotNil(t, l)
}

func TestNewLogger_EmptyConfigUsesDefaults(t *testing.T) {
	l, err := NewLogger(LogConfig{})
	require.NoError(t, err)
	assert.NotNil(t, l)
}

func TestNewNopLogger_NotNil(t *testing.T) {
	l := NewNopLogger()
	assert.NotNil(t, l)
}

func TestNopLogger_AllMethodsNoOp(t *testing.T) {
	l := NewNopLogger()
	// Should not panic
	l.Debug("msg")
	l.Info("msg")
	l.Warn("msg")
	l.Error("msg")
	l.Fatal("msg")
}

func TestNopLogger_With_ReturnsSelf(t *testing.T) {
	l := NewNopLogger()
	l2 := l.With(String("k", "v"))
	assert.Equal(t, l, l2)
}

func TestNopLogger_WithContext_ReturnsSelf(t *testing.T) {
	l := NewNopLogger()
	l2 := l.WithContext(context.Background())
	assert.Equal(t, l, l2)
}

func TestNopLogger_Sync_ReturnsNil(t *testing.T) {
	l := NewNopLogger()
	assert.NoError(t, l.Sync())
}

func TestZapLogger_Debug_WritesLog(t *testing.T) {
	l, buf := newTestLogger(t)
	l.Debug("debug msg")
	assert.Contains(t, buf.String(), "debug msg")
	assert.Contains(t, buf.String(), "\"level\":\"debug\"")
}

func TestZapLogger_Info_WritesLog(t *testing.T) {
	l, buf := newTestLogger(t)
	l.Info("info msg")
	assert.Contains(t, buf.String(), "info msg")
	assert.Contains(t, buf.String(), "\"level\":\"info\"")
}

func TestZapLogger_Warn_WritesLog(t *testing.T) {
	l, buf := newTestLogger(t)
	l.Warn("warn msg")
	assert.Contains(t, buf.String(), "warn msg")
	assert.Contains(t, buf.String(), "\"level\":\"warn\"")
}

func TestZapLogger_Error_WritesLog(t *testing.T) {
	l, buf := newTestLogger(t)
	l.Error("error msg")
	assert.Contains(t, buf.String(), "error msg")
	assert.Contains(t, buf.String(), "\"level\":\"error\"")
}

func TestZapLogger_With_AddsFields(t *testing.T) {
	l, buf := newTestLogger(t)
	l.With(String("company", "abbott")).Info("msg")
	assert.Contains(t, buf.String(), "\"company\":\"abbott\"")
}

func TestZapLogger_WithContext_ExtractsRunID(t *testing.T) {
	l, buf := newTestLogger(t)
	ctx := WithRunID(context.Background(), "run-123")
	l.WithContext(ctx).Info("msg")
	assert.Contains(t, buf.String(), "\"run_id\":\"run-123\"")
}

func TestZapLogger_WithContext_ExtractsRequestID(t *testing.T) {
	l, buf := newTestLogger(t)
	ctx := WithRequestID(context.Background(), "req-123")
	l.WithContext(ctx).Info("msg")
	assert.Contains(t, buf.String(), "\"request_id\":\"req-123\"")
}

func TestZapLogger_WithContext_EmptyContextReturnsSame(t *testing.T) {
	l, _ := newTestLogger(t)
	l2 := l.WithContext(context.Background())
	assert.Equal(t, l, l2)
}

func TestZapLogger_Err_FieldFormatsError(t *testing.T) {
	l, buf := newTestLogger(t)
	l.Error("msg", Err(errors.New("db down")))
	assert.Contains(t, buf.String(), "\"error\":\"db down\"")
}

func TestZapLogger_Err_NilError(t *testing.T) {
	l, buf := newTestLogger(t)
	l.Info("msg", Err(nil))
	assert.Contains(t, buf.String(), "\"error\":\"<nil>\"")
}

func TestZapLogger_Named_PrefixesEntries(t *testing.T) {
	l, buf := newTestLogger(t)
	l.Named("pipeline").Info("msg")
	assert.Contains(t, buf.String(), "pipeline")
}

func TestSetDefault_UpdatesDefault(t *testing.T) {
	orig := Default()
	defer SetDefault(orig)

	l := NewNopLogger()
	SetDefault(l)
	assert.Equal(t, l, Default())
}

func TestSetDefault_IgnoresNil(t *testing.T) {
	orig := Default()
	defer SetDefault(orig)

	SetDefault(nil)
	assert.Equal(t, orig, Default())
}

func TestContextHelpers_MissingValuesReturnEmpty(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, RunIDFromContext(ctx))
	assert.Empty(t, RequestIDFromContext(ctx))
}

func TestFieldConstants_Values(t *testing.T) {
	assert.Equal(t, "run_id", FieldRunID)
	assert.Equal(t, "company", FieldCompany)
	assert.Equal(t, "year", FieldYear)
	assert.Equal(t, "patent_id", FieldPatent)
}
