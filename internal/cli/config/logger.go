package config

import (
	"io"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ParseLevel maps a LOG_LEVEL style name to a zap level.
func ParseLevel(name string) (zapcore.Level, bool) {
	switch strings.ToUpper(name) {
	case "DEBUG":
		return zapcore.DebugLevel, true
	case "", "INFO":
		return zapcore.InfoLevel, true
	case "WARN", "WARNING":
		return zapcore.WarnLevel, true
	case "ERROR":
		return zapcore.ErrorLevel, true
	default:
		return zapcore.InfoLevel, false
	}
}

// NewLogger returns a console logger writing to w at the given level.
// Unknown levels fall back to info.
func NewLogger(level string, w io.Writer) *zap.Logger {
	lvl, _ := ParseLevel(level)
	enc := zap.NewDevelopmentEncoderConfig()
	enc.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(enc), zapcore.AddSync(w), lvl)
	return zap.New(core)
}
