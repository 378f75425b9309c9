package dto

import "time"

type LogEntryResponse struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"userId"`
	OrderDate string    `json:"orderDate"`
	Gross     float64   `json:"gross"`
	Tips      float64   `json:"tips"`
	Mileage   *float64  `json:"mileage"`
	ParsedAt  time.Time `json:"parsedAt"`
}
