package report

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	mwerrors "github.com/driversheet/mailworker/internal/errors"
)

func TestParseFields(t *testing.T) {
	fields, err := ParseFields("Daily summary Date 3/4/2024 Gross $1,234.56 Tips $12.00 Mileage 42.5 mi")
	require.NoError(t, err)

	assert.Equal(t, time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC), fields.OrderDate)
	assert.Equal(t, 1234.56, fields.Gross)
	assert.Equal(t, 12.00, fields.Tips)
	require.NotNil(t, fields.Mileage)
	assert.Equal(t, 42.5, *fields.Mileage)
}

func TestParseFields_WithoutDollarSignOrSpacing(t *testing.T) {
	fields, err := ParseFields("Gross88.10\nTips 0.00\nDate12/31/2023")
	require.NoError(t, err)

	assert.Equal(t, 88.10, fields.Gross)
	assert.Equal(t, 0.0, fields.Tips)
	assert.Equal(t, time.Date(2023, 12, 31, 0, 0, 0, 0, time.UTC), fields.OrderDate)
	assert.Nil(t, fields.Mileage)
}

func TestParseFields_FirstMatchWins(t *testing.T) {
	fields, err := ParseFields("Gross $10.00 Tips $1.00 Date 1/2/2024 Gross $99.99 Tips $9.99")
	require.NoError(t, err)

	assert.Equal(t, 10.0, fields.Gross)
	assert.Equal(t, 1.0, fields.Tips)
}

func TestParseFields_MileageWithoutNumber(t *testing.T) {
	fields, err := ParseFields("Gross $10.00 Tips $1.00 Date 1/2/2024 Mileage mi")
	require.NoError(t, err)
	assert.Nil(t, fields.Mileage)
}

func TestParseFields_MileageWithComma(t *testing.T) {
	fields, err := ParseFields("Gross $10.00 Tips $1.00 Date 1/2/2024 Mileage 1,204 mi")
	require.NoError(t, err)
	require.NotNil(t, fields.Mileage)
	assert.Equal(t, 1204.0, *fields.Mileage)
}

func TestParseFields_MissingRequired(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		field string
	}{
		{"no gross", "Tips $1.00 Date 1/2/2024", FieldGross},
		{"gross without cents", "Gross $10 Tips $1.00 Date 1/2/2024", FieldGross},
		{"no tips", "Gross $10.00 Date 1/2/2024", FieldTips},
		{"no date", "Gross $10.00 Tips $1.00", FieldDate},
		{"invalid date", "Gross $10.00 Tips $1.00 Date 13/45/2024", FieldDate},
		{"empty text", "", FieldGross},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fields, err := ParseFields(tt.text)
			assert.Nil(t, fields)

			var missing *mwerrors.MissingFieldError
			require.True(t, errors.As(err, &missing))
			assert.Equal(t, tt.field, missing.Field)
		})
	}
}

func TestParseFields_RoundTrip(t *testing.T) {
	fields, err := ParseFields("Date 7/15/2024 Gross $250.75 Tips $30.25 Mileage 18 mi")
	require.NoError(t, err)

	row := fields.SheetRow()
	assert.Equal(t, []interface{}{"2024-07-15", 250.75, 30.25, 18.0}, row)
}
