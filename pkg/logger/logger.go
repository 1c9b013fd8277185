// Package logger builds the service's zap loggers and carries the request ID
// between HTTP, gRPC and the database layer.
package logger

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Config represents logger configuration
type Config struct {
	Level            string  // debug, info, warn, error
	Format           string  // json or console
	OutputPath       string  // stdout, stderr or a file rotated by lumberjack
	SlowQuerySeconds float64 // read by the gorm logger
	EnableSampling   bool
	ServiceName      string
	ServiceVersion   string
	Environment      string
}

// Rotation limits for file output.
const (
	rotateMaxSizeMB  = 100
	rotateMaxBackups = 3
	rotateMaxAgeDays = 28
)

// NewWithConfig builds the service logger. Every entry carries the service
// name, version and environment.
func NewWithConfig(cfg Config) (*zap.Logger, error) {
	encoder, err := newEncoder(cfg)
	if err != nil {
		return nil, err
	}

	core := zapcore.NewCore(encoder, newSink(cfg.OutputPath), parseLogLevel(cfg.Level))
	if cfg.EnableSampling {
		// First 100 identical entries per second, then every 10th
		core = zapcore.NewSamplerWithOptions(core, time.Second, 100, 10)
	}

	return zap.New(core, zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel)).With(
		zap.String("service", cfg.ServiceName),
		zap.String("version", cfg.ServiceVersion),
		zap.String("environment", cfg.Environment),
	), nil
}

func newEncoder(cfg Config) (zapcore.Encoder, error) {
	ec := zapcore.EncoderConfig{
		TimeKey:        "timestamp",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		FunctionKey:    zapcore.OmitKey,
		MessageKey:     "message",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.SecondsDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}

	switch strings.ToLower(cfg.Format) {
	case "json":
		return zapcore.NewJSONEncoder(ec), nil
	case "console", "":
		if cfg.Environment != "production" {
			ec.EncodeLevel = zapcore.CapitalColorLevelEncoder
		}
		return zapcore.NewConsoleEncoder(ec), nil
	default:
		return nil, fmt.Errorf("unknown log format %q", cfg.Format)
	}
}

// parseLogLevel falls back to info for unknown names.
func parseLogLevel(level string) zapcore.Level {
	switch strings.ToLower(level) {
	case "warning":
		return zapcore.WarnLevel
	case "":
		return zapcore.InfoLevel
	}
	l, err := zapcore.ParseLevel(strings.ToLower(level))
	if err != nil {
		return zapcore.InfoLevel
	}
	return l
}

func newSink(outputPath string) zapcore.WriteSyncer {
	switch outputPath {
	case "stdout", "":
		return zapcore.Lock(os.Stdout)
	case "stderr":
		return zapcore.Lock(os.Stderr)
	}
	return zapcore.AddSync(&lumberjack.Logger{
		Filename:   outputPath,
		MaxSize:    rotateMaxSizeMB,
		MaxBackups: rotateMaxBackups,
		MaxAge:     rotateMaxAgeDays,
		Compress:   true,
	})
}

type requestIDKey struct{}

// WithContext returns a logger carrying the request_id stored in ctx, if any
func WithContext(ctx context.Context, logger *zap.Logger) *zap.Logger {
	if id := GetRequestID(ctx); id != "" {
		return logger.With(zap.String("request_id", id))
	}
	return logger
}

// WithRequestID stores a request ID in the context
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

// GetRequestID extracts the request ID from ctx, or "" when there is none.
func GetRequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}
