package logger

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"activity-signup-service/pkg/metrics"
)

// maxSQLLength bounds the statement text written to a log line.
const maxSQLLength = 1000

// GormLogger routes gorm's statement and message logs through zap. Every
// statement also lands in the db query histogram, whatever the level.
type GormLogger struct {
	log   *zap.Logger
	slow  time.Duration
	level gormlogger.LogLevel
}

var _ gormlogger.Interface = (*GormLogger)(nil)

// NewGormLogger builds a gorm logger from the service log level. Statements
// slower than slowQuerySeconds are reported as warnings; zero disables that.
func NewGormLogger(log *zap.Logger, slowQuerySeconds float64, level string) *GormLogger {
	return &GormLogger{
		log:   log.Named("gorm"),
		slow:  time.Duration(slowQuerySeconds * float64(time.Second)),
		level: gormLevel(level),
	}
}

// gormLevel maps a zap level name onto gorm's coarser levels. Statement
// logging only happens at debug.
func gormLevel(level string) gormlogger.LogLevel {
	switch level {
	case "silent":
		return gormlogger.Silent
	case "error":
		return gormlogger.Error
	case "debug":
		return gormlogger.Info
	default:
		return gormlogger.Warn
	}
}

// LogMode implements gormlogger.Interface
func (g *GormLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	clone := *g
	clone.level = level
	return &clone
}

// Info implements gormlogger.Interface
func (g *GormLogger) Info(ctx context.Context, msg string, data ...any) {
	if g.level >= gormlogger.Info {
		WithContext(ctx, g.log).Sugar().Infof(msg, data...)
	}
}

// Warn implements gormlogger.Interface
func (g *GormLogger) Warn(ctx context.Context, msg string, data ...any) {
	if g.level >= gormlogger.Warn {
		WithContext(ctx, g.log).Sugar().Warnf(msg, data...)
	}
}

// Error implements gormlogger.Interface
func (g *GormLogger) Error(ctx context.Context, msg string, data ...any) {
	if g.level >= gormlogger.Error {
		WithContext(ctx, g.log).Sugar().Errorf(msg, data...)
	}
}

// Trace implements gormlogger.Interface. Missing rows and constraint
// violations are part of normal signup flow and never log as errors.
func (g *GormLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	elapsed := time.Since(begin)
	outcome := g.classify(elapsed, err)
	metrics.DBQueryDuration.WithLabelValues(outcome).Observe(elapsed.Seconds())

	if g.level <= gormlogger.Silent {
		return
	}

	var emit func(string, ...zap.Field)
	l := WithContext(ctx, g.log)
	switch {
	case outcome == "error" && g.level >= gormlogger.Error:
		emit = l.Error
	case (outcome == "slow" || outcome == "constraint") && g.level >= gormlogger.Warn:
		emit = l.Warn
	case g.level >= gormlogger.Info:
		emit = l.Debug
	default:
		return
	}

	sql, rows := fc()
	fields := []zap.Field{
		zap.String("outcome", outcome),
		zap.Int64("rows", rows),
		zap.Duration("elapsed", elapsed),
	}
	if len(sql) > maxSQLLength {
		sql = sql[:maxSQLLength] + "..."
		fields = append(fields, zap.Bool("sql_truncated", true))
	}
	fields = append(fields, zap.String("sql", sql))
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		fields = append(fields, zap.Error(err))
	}
	emit("sql statement", fields...)
}

func (g *GormLogger) classify(elapsed time.Duration, err error) string {
	switch {
	case err == nil, errors.Is(err, gorm.ErrRecordNotFound):
		if g.slow > 0 && elapsed > g.slow {
			return "slow"
		}
		return "ok"
	case errors.Is(err, gorm.ErrDuplicatedKey), errors.Is(err, gorm.ErrForeignKeyViolated):
		return "constraint"
	default:
		return "error"
	}
}
