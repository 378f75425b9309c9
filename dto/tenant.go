package dto

import "time"

type TenantUpsert struct {
	GoogleID string  `json:"googleId" binding:"required"`
	Email    string  `json:"email" binding:"required"`
	SheetID  *string `json:"sheetId"`
}

type TenantResponse struct {
	ID              int64     `json:"id"`
	GoogleID        string    `json:"googleId"`
	Email           string    `json:"email"`
	SheetID         *string   `json:"sheetId"`
	ForwardAddress  string    `json:"forwardAddress"`
	Paid            bool      `json:"paid"`
	Created         time.Time `json:"created"`
	TrialExpired    bool      `json:"trialExpired"`
	LemonPaymentURL string    `json:"lemonPaymentUrl"`
}
