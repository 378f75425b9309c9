package interfaces

import "context"

// SheetsService appends rows to a tenant's spreadsheet. Authentication is internal.
type SheetsService interface {
	AppendRow(ctx context.Context, sheetID string, values []interface{}) error
}
