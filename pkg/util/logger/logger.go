package logger

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	// FormatJSON is a machine-readable log format.
	FormatJSON = "json"
	// FormatConsole is a human-readable log format.
	FormatConsole = "console"
)

// Prm groups logger construction parameters.
type Prm struct {
	// Level is one of debug, info, warn, error. Defaults to info.
	Level string
	// Format is one of json, console. Defaults to console.
	Format string
	// Sampling enables zap sampling with 100/100 thresholds.
	Sampling bool
}

// ParseLevel converts string level into zap level. Empty string means info.
func ParseLevel(lvl string) (zapcore.Level, error) {
	switch strings.ToLower(lvl) {
	case "", "info":
		return zap.InfoLevel, nil
	case "debug":
		return zap.DebugLevel, nil
	case "warn":
		return zap.WarnLevel, nil
	case "error":
		return zap.ErrorLevel, nil
	default:
		return zap.InfoLevel, fmt.Errorf("unsupported log level %q", lvl)
	}
}

// NewLogger is a logger's constructor.
func NewLogger(p Prm) (*zap.Logger, error) {
	lvl, err := ParseLevel(p.Level)
	if err != nil {
		return nil, err
	}

	c := zap.NewProductionConfig()
	c.Level = zap.NewAtomicLevelAt(lvl)
	c.OutputPaths = []string{"stdout"}
	c.ErrorOutputPaths = []string{"stdout"}
	c.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	switch strings.ToLower(p.Format) {
	case "", FormatConsole:
		c.Encoding = FormatConsole
	case FormatJSON:
		c.Encoding = FormatJSON
	default:
		return nil, fmt.Errorf("unsupported log format %q", p.Format)
	}

	if !p.Sampling {
		c.Sampling = nil
	}

	return c.Build(zap.AddStacktrace(zap.NewAtomicLevelAt(zap.FatalLevel)))
}
