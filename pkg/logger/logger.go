package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	envLocal = "local"
	envDev   = "dev"
)

// New builds the process logger for the given environment. Local and dev get a
// human readable console logger at debug level, everything else JSON at info.
func New(env string) *zap.Logger {
	var cfg zap.Config

	switch env {
	case envLocal, envDev:
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	default:
		cfg = zap.NewProductionConfig()
		cfg.EncoderConfig.TimeKey = "ts"
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}

	log, err := cfg.Build()
	if err != nil {
		// Config is static, a build error means a broken binary.
		panic(err)
	}
	return log.With(zap.String("env", env))
}
