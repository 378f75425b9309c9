package report

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/ledongthuc/pdf"
	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"

	"github.com/driversheet/mailworker/interfaces"
	mwerrors "github.com/driversheet/mailworker/internal/errors"
	"github.com/driversheet/mailworker/internal/logger"
	"github.com/driversheet/mailworker/internal/tracing"
)

type pdfTextExtractor struct {
	log logger.Logger
}

// NewPDFTextExtractor returns an extractor that reads the PDF from memory. Nothing is
// written to disk.
func NewPDFTextExtractor(log logger.Logger) interfaces.TextExtractor {
	return &pdfTextExtractor{log: log}
}

func (e *pdfTextExtractor) ExtractText(ctx context.Context, document []byte) (text string, err error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "pdfTextExtractor.ExtractText")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	span.LogKV("bytes", len(document))

	// the pdf reader panics on some malformed documents
	defer func() {
		if r := recover(); r != nil {
			err = errors.Wrap(mwerrors.ErrExtractionFailure, fmt.Sprintf("panic: %v", r))
			tracing.TraceErr(span, err)
			e.log.Warnf("Recovered from pdf reader panic: %v", r)
		}
	}()

	if len(document) == 0 {
		return "", errors.Wrap(mwerrors.ErrExtractionFailure, "empty document")
	}

	reader, err := pdf.NewReader(bytes.NewReader(document), int64(len(document)))
	if err != nil {
		tracing.TraceErr(span, err)
		return "", errors.Wrap(mwerrors.ErrExtractionFailure, err.Error())
	}

	plain, err := reader.GetPlainText()
	if err != nil {
		tracing.TraceErr(span, err)
		return "", errors.Wrap(mwerrors.ErrExtractionFailure, err.Error())
	}

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, plain); err != nil {
		tracing.TraceErr(span, err)
		return "", errors.Wrap(mwerrors.ErrExtractionFailure, err.Error())
	}

	return buf.String(), nil
}
