package storage

import (
	"fmt"
	"time"

	"github.com/driversheet/mailworker/config"
	"github.com/driversheet/mailworker/interfaces"
	"github.com/driversheet/mailworker/internal/utils"
	"github.com/driversheet/mailworker/services/storage/aws_client"
)

const ContentTypePDF = "application/pdf"

// NewR2StorageService creates a StorageService configured for Cloudflare R2. It returns nil
// when the config does not enable archiving.
func NewR2StorageService(cfg *config.R2StorageConfig) (interfaces.StorageService, error) {
	if !cfg.Enabled() {
		return nil, nil
	}

	r2Client, err := aws_client.NewR2Client(aws_client.R2Config{
		AccountID:       cfg.AccountID,
		AccessKeyID:     cfg.AccessKeyID,
		AccessKeySecret: cfg.AccessKeySecret,
	})
	if err != nil {
		return nil, err
	}

	return NewStorageService(r2Client, cfg.BucketName), nil
}

// ReportKey names the archived document of one received report:
// reports/<alias key>/<yyyy>/<mm>/<dd>/<id>.pdf, dated by receipt.
func ReportKey(aliasKey string, receivedAt time.Time) string {
	return fmt.Sprintf("reports/%s/%s/%s.pdf", aliasKey, receivedAt.UTC().Format("2006/01/02"), utils.GenerateNanoID(16))
}
