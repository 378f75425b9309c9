package database

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/driversheet/mailworker/config"
)

var ErrInvalidConfig = errors.New("invalid database config")

func NewConnection(dbConfig *config.DatabaseConfig) (*gorm.DB, error) {
	if err := validateConfig(dbConfig); err != nil {
		return nil, err
	}

	portInt, err := strconv.Atoi(dbConfig.Port)
	if err != nil {
		return nil, errors.Wrap(err, "invalid port number")
	}

	db, err := gorm.Open(postgres.Open(dsn(dbConfig, portInt)), &gorm.Config{
		Logger: gormlogger.Default.LogMode(logLevel(dbConfig.LogLevel)),
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to open postgres connection")
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxIdleConns(dbConfig.MaxIdleConn)
	sqlDB.SetMaxOpenConns(dbConfig.MaxConn)
	sqlDB.SetConnMaxLifetime(time.Duration(dbConfig.ConnMaxLifetime) * time.Minute)

	return db, nil
}

func dsn(dbConfig *config.DatabaseConfig, port int) string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		dbConfig.Host, port, dbConfig.User, dbConfig.Password, dbConfig.DBName, dbConfig.SSLMode,
	)
}

func logLevel(level string) gormlogger.LogLevel {
	switch strings.ToUpper(level) {
	case "SILENT":
		return gormlogger.Silent
	case "ERROR":
		return gormlogger.Error
	case "INFO":
		return gormlogger.Info
	default:
		return gormlogger.Warn
	}
}

func validateConfig(dbConfig *config.DatabaseConfig) error {
	switch {
	case dbConfig == nil:
		return errors.Wrap(ErrInvalidConfig, "config is nil")
	case dbConfig.Host == "":
		return errors.Wrap(ErrInvalidConfig, "host is empty")
	case dbConfig.Port == "":
		return errors.Wrap(ErrInvalidConfig, "port is empty")
	case dbConfig.User == "":
		return errors.Wrap(ErrInvalidConfig, "user is empty")
	case dbConfig.Password == "":
		return errors.Wrap(ErrInvalidConfig, "password is empty")
	case dbConfig.DBName == "":
		return errors.Wrap(ErrInvalidConfig, "database name is empty")
	case dbConfig.SSLMode == "":
		return errors.Wrap(ErrInvalidConfig, "ssl mode is empty")
	}
	return nil
}
