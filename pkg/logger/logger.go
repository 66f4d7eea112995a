package logger

import (
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds the process logger. LOG_LEVEL (debug|info|warn|error) and LOG_DEVELOPMENT are read from viper.
func New() (*zap.Logger, error) {
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("LOG_DEVELOPMENT", false)

	var cfg zap.Config
	if viper.GetBool("LOG_DEVELOPMENT") {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
	}
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	level, err := zapcore.ParseLevel(viper.GetString("LOG_LEVEL"))
	if err != nil {
		level = zapcore.InfoLevel
	}
	cfg.Level = zap.NewAtomicLevelAt(level)

	return cfg.Build()
}
