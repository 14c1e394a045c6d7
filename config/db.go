package config

import (
	"fmt"
	"os"
	"time"

	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func NewDB(log *zap.Logger) (*gorm.DB, error) {
	logMode := logger.Warn
	if os.Getenv("GORM_LOG") == "off" {
		logMode = logger.Silent
	} else if os.Getenv("GORM_LOG") == "info" {
		logMode = logger.Info
	}

	gormLogger := logger.New(
		zap.NewStdLog(log.Named("gorm")),
		logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  logMode,
			IgnoreRecordNotFoundError: true,
		},
	)

	driver := "mysql"
	if AppConfig != nil && AppConfig.DBDriver != "" {
		driver = AppConfig.DBDriver
	}

	switch driver {
	case "sqlite":
		path := "cmms.db"
		if AppConfig != nil && AppConfig.SQLitePath != "" {
			path = AppConfig.SQLitePath
		}
		db, err := gorm.Open(sqlite.Open(path), &gorm.Config{Logger: gormLogger})
		if err != nil {
			return nil, err
		}
		db.Exec("PRAGMA journal_mode=WAL")
		db.Exec("PRAGMA busy_timeout=5000")
		db.Exec("PRAGMA foreign_keys=ON")
		return db, nil
	case "mysql":
		return gorm.Open(mysql.Open(mysqlDSN()), &gorm.Config{Logger: gormLogger})
	}
	return nil, fmt.Errorf("unsupported DB_DRIVER %q", driver)
}

func mysqlDSN() string {
	if dsn := os.Getenv("MYSQL_DSN"); dsn != "" {
		return dsn
	}
	user := os.Getenv("MYSQL_USER")
	pass := os.Getenv("MYSQL_PASS")
	host := os.Getenv("MYSQL_HOST")
	port := GetEnv("MYSQL_PORT", "3306")
	db := os.Getenv("MYSQL_DB")
	return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?parseTime=true&charset=utf8mb4&loc=UTC", user, pass, host, port, db)
}
