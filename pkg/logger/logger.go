// Package logger builds the zap loggers used by every binary.
//
// Development: colored console output at debug level.
// Production: JSON at info level, optionally teed into a rotated file.
package logger

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

type Options struct {
	Env   string // development | production
	Level string // debug | info | warn | error; empty picks the env default
	File  string // optional log file, rotated by lumberjack

	// Stderr moves console output off stdout, which CLI commands keep for results.
	Stderr bool
}

// New returns a logger named after the service.
func New(service string, opts Options) (*zap.Logger, error) {
	var (
		enc   zapcore.Encoder
		level zapcore.Level
	)
	if opts.Env == "production" {
		cfg := zap.NewProductionEncoderConfig()
		cfg.TimeKey = "timestamp"
		cfg.EncodeTime = zapcore.ISO8601TimeEncoder
		cfg.EncodeLevel = zapcore.CapitalLevelEncoder
		cfg.EncodeCaller = zapcore.ShortCallerEncoder
		enc = zapcore.NewJSONEncoder(cfg)
		level = parseLevel(opts.Level, zapcore.InfoLevel)
	} else {
		cfg := zap.NewDevelopmentEncoderConfig()
		cfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		cfg.EncodeTime = zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05.999")
		enc = zapcore.NewConsoleEncoder(cfg)
		level = parseLevel(opts.Level, zapcore.DebugLevel)
	}

	out := os.Stdout
	if opts.Stderr {
		out = os.Stderr
	}
	sink := zapcore.AddSync(out)
	if opts.File != "" {
		sink = zapcore.NewMultiWriteSyncer(sink, zapcore.AddSync(&lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    100, // MB
			MaxBackups: 5,
			MaxAge:     30, // days
			Compress:   true,
		}))
	}

	core := zapcore.NewCore(enc, sink, zap.NewAtomicLevelAt(level))
	return zap.New(core, zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel)).Named(service), nil
}

func parseLevel(s string, def zapcore.Level) zapcore.Level {
	if s == "" {
		return def
	}
	l, err := zapcore.ParseLevel(s)
	if err != nil {
		return def
	}
	return l
}
