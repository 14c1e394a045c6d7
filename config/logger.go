package config

import (
	"go.uber.org/zap"
)

// NewLogger builds the process logger from APP_ENV and LOG_LEVEL.
func NewLogger() (*zap.Logger, error) {
	level := "info"
	if AppConfig != nil {
		level = AppConfig.LogLevel
	}

	var zapCfg zap.Config
	if AppConfig.IsProduction() {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
	}

	switch level {
	case "debug":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	case "warn":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	case "error":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.ErrorLevel)
	default:
		zapCfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}

	return zapCfg.Build()
}
