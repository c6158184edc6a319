// Package logging builds the server's zap logger: a JSON file core with
// rotation for persistent logs, teed with a human-readable console core.
// The console core writes to stderr because stdout belongs to the MCP
// stdio transport and must carry nothing but protocol frames.
package logging

import (
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// New constructs the process logger. level uses the configured names
// (DEBUG, INFO, WARNING, ERROR, CRITICAL); debug lowers the console
// threshold to DEBUG and annotates entries with caller locations.
func New(level, filePath string, debug bool) *zap.Logger {
	rotator := &lumberjack.Logger{
		Filename:   filePath,
		MaxSize:    10, // megabytes
		MaxBackups: 5,
		MaxAge:     30, // days
		Compress:   true,
	}

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "timestamp"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.MessageKey = "message"
	encoderConfig.LevelKey = "level"
	encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder

	threshold := ParseLevel(level)

	fileCore := zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderConfig),
		zapcore.AddSync(rotator),
		threshold,
	)

	consoleLevel := threshold
	if debug {
		consoleLevel = zapcore.DebugLevel
	}
	consoleCore := zapcore.NewCore(
		zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig()),
		zapcore.Lock(os.Stderr),
		consoleLevel,
	)

	var opts []zap.Option
	if debug {
		opts = append(opts, zap.AddCaller())
	}

	return zap.New(zapcore.NewTee(fileCore, consoleCore), opts...)
}

// ParseLevel maps a configured level name onto a zap threshold.
// Unrecognized names fall back to INFO. CRITICAL maps onto zap's fatal
// threshold, its closest equivalent.
func ParseLevel(level string) zapcore.Level {
	switch strings.ToUpper(strings.TrimSpace(level)) {
	case "DEBUG":
		return zapcore.DebugLevel
	case "WARNING":
		return zapcore.WarnLevel
	case "ERROR":
		return zapcore.ErrorLevel
	case "CRITICAL":
		return zapcore.FatalLevel
	}
	return zapcore.InfoLevel
}
