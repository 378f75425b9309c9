package sheets

import (
	"context"
	"net/http"
	"strings"

	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	gsheets "google.golang.org/api/sheets/v4"

	"github.com/driversheet/mailworker/config"
	"github.com/driversheet/mailworker/interfaces"
	"github.com/driversheet/mailworker/internal/logger"
	"github.com/driversheet/mailworker/internal/tracing"
)

const (
	valueInputOption = "USER_ENTERED"
	defaultRange     = "Sheet1!A:D"
	sheetURLMarker   = "/spreadsheets/d/"
)

var ErrNotConfigured = errors.New("spreadsheet credentials not configured")

type sheetsService struct {
	log         logger.Logger
	srv         *gsheets.Service
	appendRange string
}

// NewSheetsService authenticates with the service account key from the config. Without a
// key every append fails with ErrNotConfigured.
func NewSheetsService(ctx context.Context, cfg *config.SheetsConfig, log logger.Logger) (interfaces.SheetsService, error) {
	if cfg == nil || cfg.ServiceAccountKey == "" {
		log.Warn("GOOGLE_SA_KEY not set, spreadsheet appends disabled")
		return &sheetsService{log: log}, nil
	}

	jwtConfig, err := google.JWTConfigFromJSON([]byte(cfg.ServiceAccountKey), gsheets.SpreadsheetsScope)
	if err != nil {
		return nil, errors.Wrap(err, "invalid service account key")
	}

	return newSheetsService(ctx, log, cfg.AppendRange, option.WithHTTPClient(jwtConfig.Client(ctx)))
}

// NewSheetsServiceWithClient talks to the given endpoint with an already authenticated client.
func NewSheetsServiceWithClient(ctx context.Context, client *http.Client, endpoint, appendRange string, log logger.Logger) (interfaces.SheetsService, error) {
	return newSheetsService(ctx, log, appendRange, option.WithHTTPClient(client), option.WithEndpoint(endpoint))
}

func newSheetsService(ctx context.Context, log logger.Logger, appendRange string, opts ...option.ClientOption) (*sheetsService, error) {
	srv, err := gsheets.NewService(ctx, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create sheets client")
	}
	if appendRange == "" {
		appendRange = defaultRange
	}
	return &sheetsService{
		log:         log,
		srv:         srv,
		appendRange: appendRange,
	}, nil
}

// AppendRow appends one row after the last row of the append range.
func (s *sheetsService) AppendRow(ctx context.Context, sheetID string, values []interface{}) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "sheetsService.AppendRow")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	span.SetTag("sheet_id", sheetID)

	if s.srv == nil {
		tracing.TraceErr(span, ErrNotConfigured)
		return ErrNotConfigured
	}
	if sheetID == "" {
		return errors.New("sheet id is empty")
	}

	valueRange := &gsheets.ValueRange{
		Values: [][]interface{}{values},
	}
	_, err := s.srv.Spreadsheets.Values.
		Append(sheetID, s.appendRange, valueRange).
		ValueInputOption(valueInputOption).
		Context(ctx).
		Do()
	if err != nil {
		tracing.TraceErr(span, err)
		return errors.Wrapf(err, "failed to append row to sheet %s", sheetID)
	}

	return nil
}

// NormalizeSheetID accepts either a bare spreadsheet id or a full spreadsheet URL and
// returns the id.
func NormalizeSheetID(input string) string {
	input = strings.TrimSpace(input)
	idx := strings.Index(input, sheetURLMarker)
	if idx < 0 {
		return input
	}
	id := input[idx+len(sheetURLMarker):]
	if end := strings.IndexAny(id, "/?#"); end >= 0 {
		id = id[:end]
	}
	return id
}
