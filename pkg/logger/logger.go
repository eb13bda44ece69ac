package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds the root logger. Components receive a named SugaredLogger
// from this one instead of keeping package-level loggers.
func New(env string) (*zap.SugaredLogger, error) {
	cfg := zap.NewProductionConfig()
	if env == "local" {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	l, err := cfg.Build(zap.Fields(zap.String("service", "goodgains-bot")))
	if err != nil {
		return nil, err
	}
	return l.Sugar(), nil
}
