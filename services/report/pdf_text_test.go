package report

import (
	"bytes"
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	mwerrors "github.com/driversheet/mailworker/internal/errors"
	"github.com/driversheet/mailworker/internal/logger"
)

// buildPDF writes a single page PDF showing each line with the Helvetica base font.
func buildPDF(lines ...string) []byte {
	var content bytes.Buffer
	content.WriteString("BT\n/F1 12 Tf\n72 720 Td\n")
	for _, line := range lines {
		fmt.Fprintf(&content, "(%s) Tj\n0 -16 Td\n", line)
	}
	content.WriteString("ET")

	objects := []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		"<< /Type /Pages /Kids [3 0 R] /Count 1 >>",
		"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << /Font << /F1 4 0 R >> >> /Contents 5 0 R >>",
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>",
		fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", content.Len(), content.String()),
	}

	var doc bytes.Buffer
	doc.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = doc.Len()
		fmt.Fprintf(&doc, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}

	xref := doc.Len()
	fmt.Fprintf(&doc, "xref\n0 %d\n", len(objects)+1)
	doc.WriteString("0000000000 65535 f \n")
	for _, offset := range offsets {
		fmt.Fprintf(&doc, "%010d 00000 n \n", offset)
	}
	fmt.Fprintf(&doc, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)

	return doc.Bytes()
}

func TestPDFTextExtractor_ExtractText(t *testing.T) {
	extractor := NewPDFTextExtractor(logger.NewNopLogger())

	text, err := extractor.ExtractText(context.Background(), buildPDF("Gross $120.50", "Tips $15.00"))
	require.NoError(t, err)
	assert.Contains(t, text, "Gross $120.50")
	assert.Contains(t, text, "Tips $15.00")
}

func TestPDFTextExtractor_InvalidDocument(t *testing.T) {
	extractor := NewPDFTextExtractor(logger.NewNopLogger())

	_, err := extractor.ExtractText(context.Background(), []byte("definitely not a pdf"))
	assert.ErrorIs(t, err, mwerrors.ErrExtractionFailure)
}

func TestPDFTextExtractor_EmptyDocument(t *testing.T) {
	extractor := NewPDFTextExtractor(logger.NewNopLogger())

	_, err := extractor.ExtractText(context.Background(), nil)
	assert.ErrorIs(t, err, mwerrors.ErrExtractionFailure)
}
