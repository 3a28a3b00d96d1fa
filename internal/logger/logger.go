package logger

import (
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	lumberjack "gopkg.in/natefinch/lumberjack.v2"
)

// NewLogger creates a new logger based on environment
func NewLogger() (*zap.Logger, error) {
	env := strings.ToLower(os.Getenv("ENV"))
	if env == "" {
		env = "development"
	}

	level := ParseLevel(os.Getenv("LOG_LEVEL"))

	var consoleEncoder zapcore.Encoder
	if env == "production" {
		consoleEncoder = zapcore.NewJSONEncoder(encoderConfig(zapcore.LowercaseLevelEncoder, ""))
	} else {
		consoleEncoder = zapcore.NewConsoleEncoder(encoderConfig(zapcore.CapitalColorLevelEncoder, ""))
	}

	// Always add console output
	cores := []zapcore.Core{
		zapcore.NewCore(consoleEncoder, zapcore.AddSync(os.Stdout), level),
	}

	// File output if LOG_FILE is set
	if logFile := os.Getenv("LOG_FILE"); logFile != "" {
		rotator := &lumberjack.Logger{
			Filename:   logFile,
			MaxSize:    100, // megabytes
			MaxBackups: 3,
			MaxAge:     28, // days
			Compress:   true,
		}
		fileEncoder := zapcore.NewJSONEncoder(encoderConfig(zapcore.LowercaseLevelEncoder, "stacktrace"))
		cores = append(cores, zapcore.NewCore(fileEncoder, zapcore.AddSync(rotator), level))
	}

	core := zapcore.NewTee(cores...)
	return zap.New(core, zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel)), nil
}

// ParseLevel maps LOG_LEVEL values to a zap level; unknown values fall back to info.
func ParseLevel(s string) zapcore.Level {
	switch strings.ToLower(s) {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	case "fatal":
		return zapcore.FatalLevel
	default:
		return zapcore.InfoLevel
	}
}

func encoderConfig(levelEncoder zapcore.LevelEncoder, stacktraceKey string) zapcore.EncoderConfig {
	return zapcore.EncoderConfig{
		TimeKey:        "timestamp",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		FunctionKey:    zapcore.OmitKey,
		MessageKey:     "message",
		StacktraceKey:  stacktraceKey,
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    levelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.MillisDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}
}

// WithRule scopes a logger to one automation rule.
func WithRule(logger *zap.Logger, ruleID, userID uuid.UUID) *zap.Logger {
	return logger.With(
		zap.String("rule_id", ruleID.String()),
		zap.String("user_id", userID.String()),
	)
}

// LogDuration performance logging helper
func LogDuration(logger *zap.Logger, operation string, duration time.Duration, fields ...zap.Field) {
	fields = append(fields, zap.String("operation", operation), zap.Int64("duration_ms", duration.Milliseconds()))
	logger.Info("operation completed", fields...)
}
