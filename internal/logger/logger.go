package logger

import (
	"io"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var zapLogger *zap.Logger

// level of the process logger, adjustable after initialization
var atomicLevel = zap.NewAtomicLevelAt(GetZapLevelFromEnv())

// Log is a no-op logger until InitLogger is called, so library code can log unconditionally.
var Log *zap.SugaredLogger = zap.NewNop().Sugar()

// InitLogger installs the process logger, writing JSON lines to stderr.
// Stdout is left to command results.
func InitLogger() (*zap.SugaredLogger, error) {
	if zapLogger == nil {
		zapLogger = NewLogger(os.Stderr, atomicLevel)
	}
	Log = zapLogger.Sugar()
	return Log, nil
}

// NewLogger builds a JSON logger on w, filtered by level
func NewLogger(w io.Writer, level zapcore.LevelEnabler) *zap.Logger {
	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "ts"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderCfg.LevelKey = "level"
	encoderCfg.EncodeLevel = zapcore.CapitalLevelEncoder
	return zap.New(zapcore.NewCore(zapcore.NewJSONEncoder(encoderCfg), zapcore.AddSync(w), level))
}

// SetLevel changes the level of the process logger; an empty name keeps it
func SetLevel(name string) {
	if name != "" {
		atomicLevel.SetLevel(ParseLevel(name))
	}
}

func GetZapLevelFromEnv() zapcore.Level {
	return ParseLevel(os.Getenv("LOG_LEVEL"))
}

// ParseLevel maps a level name to a zap level, defaulting to info
func ParseLevel(s string) zapcore.Level {
	switch strings.ToLower(s) {
	case "debug":
		return zapcore.DebugLevel
	case "info":
		return zapcore.InfoLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// SyncLogger ensures the logger is properly synced
func SyncLogger() {
	if Log != nil {
		_ = Log.Sync()
	}
}
