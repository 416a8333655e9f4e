package observability

import (
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ServiceName is attached to every log line.
const ServiceName = "weatheretl"

// NewLogger builds the JSON process logger at the configured LOG_LEVEL.
// An unrecognised level runs at INFO and says so on the first line.
func NewLogger(level string) (*zap.Logger, error) {
	lvl, known := parseLogLevel(level)

	cfg := zap.NewProductionConfig()
	cfg.EncoderConfig.TimeKey = "timestamp"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.InitialFields = map[string]interface{}{"service": ServiceName}

	logger, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	if !known {
		logger.Warn("unknown LOG_LEVEL, using INFO", zap.String("log_level", level))
	}
	return logger, nil
}

// parseLogLevel accepts DEBUG, INFO, WARN/WARNING and ERROR in any case.
// Empty means INFO.
func parseLogLevel(s string) (zapcore.Level, bool) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "", "INFO":
		return zap.InfoLevel, true
	case "DEBUG":
		return zap.DebugLevel, true
	case "WARN", "WARNING":
		return zap.WarnLevel, true
	case "ERROR":
		return zap.ErrorLevel, true
	default:
		return zap.InfoLevel, false
	}
}
