package storage

import (
	"context"
	"errors"
	"io"
	"regexp"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/driversheet/mailworker/config"
)

type fakeS3Client struct {
	input s3manager.UploadInput
	body  []byte
	err   error
}

func (f *fakeS3Client) Upload(ctx context.Context, uploadContainer s3manager.UploadInput) error {
	f.input = uploadContainer
	f.body, _ = io.ReadAll(uploadContainer.Body)
	return f.err
}

func TestObjectStorageService_Upload(t *testing.T) {
	client := &fakeS3Client{}
	svc := NewStorageService(client, "reports-bucket")

	err := svc.Upload(context.Background(), "reports/abc/2024/03/04/x.pdf", []byte("%PDF-1.4"), ContentTypePDF)
	require.NoError(t, err)

	assert.Equal(t, "reports-bucket", aws.StringValue(client.input.Bucket))
	assert.Equal(t, "reports/abc/2024/03/04/x.pdf", aws.StringValue(client.input.Key))
	assert.Equal(t, ContentTypePDF, aws.StringValue(client.input.ContentType))
	assert.Equal(t, []byte("%PDF-1.4"), client.body)
}

func TestObjectStorageService_UploadErrors(t *testing.T) {
	client := &fakeS3Client{err: errors.New("access denied")}
	svc := NewStorageService(client, "reports-bucket")

	err := svc.Upload(context.Background(), "k", []byte("x"), ContentTypePDF)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "access denied")

	assert.Error(t, svc.Upload(context.Background(), "", []byte("x"), ContentTypePDF))
}

func TestReportKey(t *testing.T) {
	key := ReportKey("abc12345", time.Date(2024, 3, 4, 23, 0, 0, 0, time.UTC))
	assert.Regexp(t, regexp.MustCompile(`^reports/abc12345/2024/03/04/[0-9A-Za-z]{16}\.pdf$`), key)
	assert.NotEqual(t, key, ReportKey("abc12345", time.Date(2024, 3, 4, 23, 0, 0, 0, time.UTC)))
}

func TestNewR2StorageService_DisabledWithoutCredentials(t *testing.T) {
	svc, err := NewR2StorageService(&config.R2StorageConfig{BucketName: "b"})
	require.NoError(t, err)
	assert.Nil(t, svc)

	svc, err = NewR2StorageService(nil)
	require.NoError(t, err)
	assert.Nil(t, svc)
}
