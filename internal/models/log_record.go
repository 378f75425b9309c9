package models

import (
	"time"

	"gorm.io/gorm"

	"github.com/driversheet/mailworker/internal/utils"
)

// LogRecord is one parsed earnings report. Rows are append-only.
type LogRecord struct {
	ID        int64     `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	TenantID  int64     `gorm:"column:tenant_id;index;not null" json:"userId"`
	OrderDate time.Time `gorm:"column:order_date;type:date;not null" json:"orderDate"`
	Gross     float64   `gorm:"column:gross;not null" json:"gross"`
	Tips      float64   `gorm:"column:tips;not null" json:"tips"`
	Mileage   *float64  `gorm:"column:mileage" json:"mileage"`
	ParsedAt  time.Time `gorm:"column:parsed_at;type:timestamp;index" json:"parsedAt"`
}

func (LogRecord) TableName() string {
	return "log_records"
}

func (l *LogRecord) BeforeCreate(tx *gorm.DB) error {
	if l.ParsedAt.IsZero() {
		l.ParsedAt = utils.Now()
	}
	return nil
}
