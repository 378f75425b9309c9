package repository

import (
	"time"

	"gorm.io/gorm"

	"github.com/driversheet/mailworker/config"
	"github.com/driversheet/mailworker/interfaces"
	"github.com/driversheet/mailworker/internal/models"
)

type Repositories struct {
	TenantRepository    interfaces.TenantRepository
	LogRecordRepository interfaces.LogRecordRepository
}

func InitRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		TenantRepository:    NewTenantRepository(db),
		LogRecordRepository: NewLogRecordRepository(db),
	}
}

func MigrateDB(dbConfig *config.DatabaseConfig, db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}

	sqlDB.SetMaxOpenConns(5)

	err = db.AutoMigrate(
		&models.Tenant{},
		&models.LogRecord{},
	)

	if dbConfig != nil {
		sqlDB.SetMaxIdleConns(dbConfig.MaxIdleConn)
		sqlDB.SetMaxOpenConns(dbConfig.MaxConn)
		sqlDB.SetConnMaxLifetime(time.Duration(dbConfig.ConnMaxLifetime) * time.Minute)
	}

	return err
}
