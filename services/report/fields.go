package report

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/driversheet/mailworker/dto"
	mwerrors "github.com/driversheet/mailworker/internal/errors"
)

const (
	FieldGross   = "gross"
	FieldTips    = "tips"
	FieldDate    = "date"
	FieldMileage = "mileage"

	reportDateLayout = "1/2/2006"
)

var (
	grossPattern   = regexp.MustCompile(`Gross\s*\$?([\d,]+\.\d{2})`)
	tipsPattern    = regexp.MustCompile(`Tips\s*\$?([\d,]+\.\d{2})`)
	mileagePattern = regexp.MustCompile(`Mileage\s*([\d,]+\.?\d*)?\s*mi`)
	datePattern    = regexp.MustCompile(`Date\s*(\d{1,2}/\d{1,2}/\d{4})`)
)

// ParseFields pulls the daily figures out of report text. Each pattern is matched
// independently and the first occurrence wins. Gross, tips and date are required; a
// missing or unparseable one fails the whole parse with a MissingFieldError.
func ParseFields(text string) (*dto.ExtractedFields, error) {
	gross, ok := parseAmount(grossPattern, text)
	if !ok {
		return nil, mwerrors.NewMissingFieldError(FieldGross)
	}

	tips, ok := parseAmount(tipsPattern, text)
	if !ok {
		return nil, mwerrors.NewMissingFieldError(FieldTips)
	}

	orderDate, ok := parseDate(text)
	if !ok {
		return nil, mwerrors.NewMissingFieldError(FieldDate)
	}

	fields := &dto.ExtractedFields{
		OrderDate: orderDate,
		Gross:     gross,
		Tips:      tips,
	}
	if mileage, ok := parseAmount(mileagePattern, text); ok {
		fields.Mileage = &mileage
	}

	return fields, nil
}

func parseAmount(pattern *regexp.Regexp, text string) (float64, bool) {
	match := pattern.FindStringSubmatch(text)
	if len(match) < 2 || match[1] == "" {
		return 0, false
	}
	value, err := strconv.ParseFloat(strings.ReplaceAll(match[1], ",", ""), 64)
	if err != nil || value < 0 {
		return 0, false
	}
	return value, true
}

func parseDate(text string) (time.Time, bool) {
	match := datePattern.FindStringSubmatch(text)
	if len(match) < 2 {
		return time.Time{}, false
	}
	orderDate, err := time.ParseInLocation(reportDateLayout, match[1], time.UTC)
	if err != nil {
		return time.Time{}, false
	}
	return orderDate, true
}
