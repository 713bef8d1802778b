package logger

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	gormlogger "gorm.io/gorm/logger"
)

// GormLoggerConfig configures the query logger installed on the store connection.
type GormLoggerConfig struct {
	Level         gormlogger.LogLevel
	SlowThreshold time.Duration
	// AppendOnlyTables are reported at error level when an UPDATE or DELETE touches them.
	AppendOnlyTables []string
}

func DefaultGormLoggerConfig() GormLoggerConfig {
	return GormLoggerConfig{
		Level:         gormlogger.Warn,
		SlowThreshold: 200 * time.Millisecond,
	}
}

// GormLogger routes gorm output through the request-scoped zap logger. Record-not-found
// is never logged: the read side treats it as an empty result.
type GormLogger struct {
	level         gormlogger.LogLevel
	slowThreshold time.Duration
	appendOnly    map[string]struct{}
}

func NewGormLogger(cfg GormLoggerConfig) *GormLogger {
	appendOnly := make(map[string]struct{}, len(cfg.AppendOnlyTables))
	for _, table := range cfg.AppendOnlyTables {
		appendOnly[strings.ToLower(table)] = struct{}{}
	}
	return &GormLogger{
		level:         cfg.Level,
		slowThreshold: cfg.SlowThreshold,
		appendOnly:    appendOnly,
	}
}

func (l *GormLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	copy := *l
	copy.level = level
	return &copy
}

func (l *GormLogger) Info(ctx context.Context, msg string, data ...interface{}) {
	l.message(ctx, gormlogger.Info, zapcore.InfoLevel, msg, data)
}

func (l *GormLogger) Warn(ctx context.Context, msg string, data ...interface{}) {
	l.message(ctx, gormlogger.Warn, zapcore.WarnLevel, msg, data)
}

func (l *GormLogger) Error(ctx context.Context, msg string, data ...interface{}) {
	l.message(ctx, gormlogger.Error, zapcore.ErrorLevel, msg, data)
}

func (l *GormLogger) message(ctx context.Context, min gormlogger.LogLevel, level zapcore.Level, msg string, data []interface{}) {
	if l.level < min {
		return
	}
	fields := []zap.Field{zap.String("component", "gorm")}
	if len(data) > 0 {
		fields = append(fields, zap.Any("data", data))
	}
	if ce := FromContext(ctx).Check(level, msg); ce != nil {
		ce.Write(fields...)
	}
}

func (l *GormLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.level <= gormlogger.Silent {
		return
	}

	elapsed := time.Since(begin)
	sql, rows := fc()
	op := operationFromSQL(sql)
	table := tableFromSQL(sql)

	switch {
	case err != nil && errors.Is(err, gormlogger.ErrRecordNotFound):
		return
	case err != nil && l.level >= gormlogger.Error:
		l.logQuery(ctx, sql, op, table, rows, elapsed, err, zapcore.ErrorLevel, "gorm.query")
	case l.mutatesAppendOnly(op, table):
		l.logQuery(ctx, sql, op, table, rows, elapsed, nil, zapcore.ErrorLevel, "gorm.append_only_mutation")
	case l.slowThreshold != 0 && elapsed > l.slowThreshold && l.level >= gormlogger.Warn:
		l.logQuery(ctx, sql, op, table, rows, elapsed, nil, zapcore.WarnLevel, "gorm.slow_query")
	case l.level >= gormlogger.Info:
		l.logQuery(ctx, sql, op, table, rows, elapsed, nil, zapcore.DebugLevel, "gorm.query")
	}
}

// ParamsFilter drops bound values; raw events and amounts stay out of the logs.
func (l *GormLogger) ParamsFilter(ctx context.Context, sql string, params ...interface{}) (string, []interface{}) {
	return sql, nil
}

// AppendOnly reports whether table is watched for mutations.
func (l *GormLogger) AppendOnly(table string) bool {
	_, ok := l.appendOnly[strings.ToLower(table)]
	return ok
}

func (l *GormLogger) mutatesAppendOnly(op, table string) bool {
	return (op == "UPDATE" || op == "DELETE") && l.AppendOnly(table)
}

func (l *GormLogger) logQuery(ctx context.Context, sql, op, table string, rows int64, elapsed time.Duration, err error, level zapcore.Level, msg string) {
	fields := []zap.Field{
		zap.String("component", "gorm"),
		zap.String("sql", strings.TrimSpace(sql)),
		zap.String("operation", op),
		zap.Int64("duration_ms", elapsed.Milliseconds()),
	}
	if table != "" {
		fields = append(fields, zap.String("table", table))
	}
	if rows >= 0 {
		fields = append(fields, zap.Int64("rows_affected", rows))
	}
	if err != nil {
		fields = append(fields, zap.Error(err))
	}
	if ce := FromContext(ctx).Check(level, msg); ce != nil {
		ce.Write(fields...)
	}
}

func operationFromSQL(sql string) string {
	for _, token := range strings.Fields(strings.ToUpper(sql)) {
		token = strings.Trim(token, "();")
		switch token {
		case "SELECT", "INSERT", "UPDATE", "DELETE":
			return token
		}
	}
	return "UNKNOWN"
}

var tablePattern = regexp.MustCompile(`(?i)\b(?:from|into|update)\s+["` + "`" + `]?([a-z_][a-z0-9_]*)`)

func tableFromSQL(sql string) string {
	m := tablePattern.FindStringSubmatch(sql)
	if len(m) < 2 {
		return ""
	}
	return strings.ToLower(m[1])
}

var _ gormlogger.Interface = (*GormLogger)(nil)
