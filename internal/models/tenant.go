package models

import (
	"time"

	"gorm.io/gorm"

	"github.com/driversheet/mailworker/internal/utils"
)

const TrialPeriod = 7 * 24 * time.Hour

// Tenant is one account, keyed externally by GoogleID and addressed by mail through AliasKey.
type Tenant struct {
	ID        int64     `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	GoogleID  string    `gorm:"column:google_id;type:varchar(255);uniqueIndex;not null" json:"googleId"`
	Email     string    `gorm:"column:email;type:varchar(255);index;not null" json:"email"`
	SheetID   *string   `gorm:"column:sheet_id;type:varchar(255)" json:"sheetId"`
	AliasKey  string    `gorm:"column:alias_key;type:varchar(32);uniqueIndex;not null" json:"aliasKey"`
	Paid      bool      `gorm:"column:paid;type:boolean;not null;default:false" json:"paid"`
	CreatedAt time.Time `gorm:"column:created_at;type:timestamp;default:current_timestamp" json:"createdAt"`
}

func (Tenant) TableName() string {
	return "tenants"
}

func (t *Tenant) BeforeCreate(tx *gorm.DB) error {
	if t.CreatedAt.IsZero() {
		t.CreatedAt = utils.Now()
	}
	return nil
}

func (t *Tenant) HasSheet() bool {
	return t.SheetID != nil && *t.SheetID != ""
}

// TrialExpired reports whether the tenant is strictly older than TrialPeriod at now. Payment
// status is not considered; callers check Paid.
func (t *Tenant) TrialExpired(now time.Time) bool {
	return now.Sub(t.CreatedAt) > TrialPeriod
}
