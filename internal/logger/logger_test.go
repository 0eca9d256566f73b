package logger

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func newBufferedLogger(buf *bytes.Buffer) *zap.SugaredLogger {
	encoder := zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
	core := zapcore.NewCore(encoder, zapcore.AddSync(buf), zapcore.DebugLevel)
	return zap.New(core).Sugar()
}

func TestLogLevels(t *testing.T) {
	tests := []struct {
		name     string
		logFn    func()
		contains string
	}{
		{"Debug", func() { Debug("debug msg") }, "debug msg"},
		{"Debugf", func() { Debugf("debug %s", "formatted") }, "debug formatted"},
		{"Debugw", func() { Debugw("debug kv", "key", "val") }, "debug kv"},
		{"Info", func() { Info("info msg") }, "info msg"},
		{"Infof", func() { Infof("info %s", "formatted") }, "info formatted"},
		{"Infow", func() { Infow("info kv", "key", "val") }, "info kv"},
		{"Warn", func() { Warn("warn msg") }, "warn msg"},
		{"Error", func() { Error("error msg") }, "error msg"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var buf bytes.Buffer
			restore := SetForTest(newBufferedLogger(&buf))
			defer restore()

			tc.logFn()

			assert.Contains(t, buf.String(), tc.contains)
		})
	}
}

func TestWithAttachesFields(t *testing.T) {
	var buf bytes.Buffer
	restore := SetForTest(newBufferedLogger(&buf))
	defer restore()

	With("request_id", "abc-123").Info("handled request")

	assert.Contains(t, buf.String(), "abc-123")
	assert.Contains(t, buf.String(), "handled request")
}

func TestGetReturnsSingleton(t *testing.T) {
	var buf bytes.Buffer
	l := newBufferedLogger(&buf)
	restore := SetForTest(l)
	defer restore()

	assert.Same(t, l, Get())
}
