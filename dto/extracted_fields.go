package dto

import "time"

const OrderDateLayout = "2006-01-02"

type ExtractedFields struct {
	OrderDate time.Time
	Gross     float64
	Tips      float64
	Mileage   *float64
}

// SheetRow renders the fields as one spreadsheet row: date, gross, tips, mileage.
// Absent mileage is rendered as an empty cell.
func (f *ExtractedFields) SheetRow() []interface{} {
	var mileage interface{} = ""
	if f.Mileage != nil {
		mileage = *f.Mileage
	}
	return []interface{}{f.OrderDate.Format(OrderDateLayout), f.Gross, f.Tips, mileage}
}
