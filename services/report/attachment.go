package report

import (
	"strings"

	"github.com/jhillyerd/enmime"

	mwerrors "github.com/driversheet/mailworker/internal/errors"
)

const pdfMediaType = "application/pdf"

// FindFirstPDF walks the part tree depth-first in pre-order and returns the decoded content
// of the first part typed application/pdf. Only the first match is used.
func FindFirstPDF(root *enmime.Part) ([]byte, error) {
	if part := firstPDFPart(root); part != nil {
		return part.Content, nil
	}
	return nil, mwerrors.ErrNoAttachment
}

func firstPDFPart(part *enmime.Part) *enmime.Part {
	for p := part; p != nil; p = p.NextSibling {
		if strings.EqualFold(p.ContentType, pdfMediaType) {
			return p
		}
		if found := firstPDFPart(p.FirstChild); found != nil {
			return found
		}
	}
	return nil
}
