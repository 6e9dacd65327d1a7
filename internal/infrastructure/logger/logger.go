// Package logger builds the zap loggers of the service and carries request
// and batch scoped loggers through contexts.
package logger

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// DefaultTimeFormat is the timestamp layout used when Config leaves it empty
const DefaultTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// Encodings accepted in Config.Format
const (
	FormatJSON    = "json"
	FormatConsole = "console"
)

// Config describes a logger
type Config struct {
	Level      string // debug, info, warn, error, fatal
	Format     string // json or console
	Output     string // stdout, stderr, or a file path
	TimeFormat string
}

// New builds a logger from cfg. Error and fatal entries carry a stack trace.
func New(cfg Config) (*zap.Logger, error) {
	format := strings.ToLower(cfg.Format)
	if format == "" {
		format = FormatJSON
	}
	if format != FormatJSON && format != FormatConsole {
		return nil, fmt.Errorf("unknown log format %q", cfg.Format)
	}
	output := cfg.Output
	if output == "" {
		output = "stdout"
	}
	timeFormat := cfg.TimeFormat
	if timeFormat == "" {
		timeFormat = DefaultTimeFormat
	}

	zc := zap.Config{
		Level:            zap.NewAtomicLevelAt(parseLevel(cfg.Level)),
		Encoding:         format,
		EncoderConfig:    encoderConfig(format, timeFormat),
		OutputPaths:      []string{output},
		ErrorOutputPaths: []string{"stderr"},
	}
	log, err := zc.Build(zap.AddStacktrace(zapcore.ErrorLevel))
	if err != nil {
		return nil, fmt.Errorf("build logger for %s: %w", output, err)
	}
	return log, nil
}

// parseLevel accepts zap level names in any case plus "warning". Anything
// else is info.
func parseLevel(level string) zapcore.Level {
	if strings.EqualFold(level, "warning") {
		return zapcore.WarnLevel
	}
	lvl, err := zapcore.ParseLevel(strings.ToLower(level))
	if err != nil {
		return zapcore.InfoLevel
	}
	return lvl
}

func encoderConfig(format, timeFormat string) zapcore.EncoderConfig {
	ec := zap.NewProductionEncoderConfig()
	ec.TimeKey = "time"
	ec.FunctionKey = zapcore.OmitKey
	ec.EncodeTime = zapcore.TimeEncoderOfLayout(timeFormat)
	ec.EncodeDuration = zapcore.MillisDurationEncoder
	if format == FormatConsole {
		ec.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	return ec
}
