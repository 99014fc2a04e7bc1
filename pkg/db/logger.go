package db

import (
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm/logger"
)

// NewLogger routes gorm's logging through logrus at a level matching --log-level.
func NewLogger(logLevel string) logger.Interface {
	level := logger.Silent
	switch logLevel {
	case "trace", "debug":
		level = logger.Info
	case "info", "warn":
		level = logger.Warn
	case "error":
		level = logger.Error
	}

	return logger.New(logrus.StandardLogger(), logger.Config{
		SlowThreshold:             time.Second,
		LogLevel:                  level,
		IgnoreRecordNotFoundError: true,
	})
}
