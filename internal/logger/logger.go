package logger

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const serviceName = "getir-be"

var log *zap.Logger

// Init builds the global logger for env. level ("debug", "info", "warn",
// "error") overrides the environment default; empty or unknown keeps it.
func Init(env, level string) {
	l, err := newConfig(env, level).Build(zap.AddCaller())
	if err != nil {
		// the config is built in code, so this only trips on a broken stdout
		l = zap.NewNop()
	}
	log = l
}

// newConfig returns JSON output at info in production and colored console
// output at debug elsewhere. Every entry carries the service and env.
func newConfig(env, level string) zap.Config {
	var cfg zap.Config
	if env == "production" {
		cfg = zap.NewProductionConfig()
		cfg.EncoderConfig.TimeKey = "timestamp"
		cfg.EncoderConfig.MessageKey = "message"
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		cfg.OutputPaths = []string{"stdout"}
		// request logs are the audit trail for orders; keep them all
		cfg.Sampling = nil
	} else {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	if level != "" {
		if lvl, err := zapcore.ParseLevel(level); err == nil {
			cfg.Level = zap.NewAtomicLevelAt(lvl)
		}
	}

	if env == "" {
		env = "development"
	}
	cfg.InitialFields = map[string]any{"service": serviceName, "env": env}
	return cfg
}

// L returns the global logger, building one from the environment on first use.
func L() *zap.Logger {
	if log == nil {
		Init(os.Getenv("APP_ENV"), os.Getenv("LOG_LEVEL"))
	}
	return log
}

func Sync() {
	if log != nil {
		_ = log.Sync()
	}
}
