package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"strings"

	"bontroc_backend/internal/common"
	"bontroc_backend/internal/config"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Bucket is a logical storage bucket.
type Bucket string

const (
	BucketListingMedia      Bucket = "listing-media"
	BucketProfileMedia      Bucket = "profile-media"
	BucketContractDocuments Bucket = "contract-documents"
)

// Object describes a stored object.
type Object struct {
	Bucket      Bucket `json:"bucket"`
	Key         string `json:"key"`
	URL         string `json:"url"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
}

// ObjectStore persists binary objects and hands out public URLs for them.
type ObjectStore interface {
	Put(ctx context.Context, bucket Bucket, key string, body io.Reader, size int64, contentType string) (*Object, error)
	Delete(ctx context.Context, bucket Bucket, key string) error
	PublicURL(bucket Bucket, key string) string
}

// ImageTypes are the media types accepted for listing and profile pictures.
var ImageTypes = []string{"image/jpeg", "image/png", "image/gif", "image/webp", "image/heic"}

// NewObjectStore returns the store selected by STORAGE_DRIVER.
func NewObjectStore(cfg *config.Config, logger *zap.Logger) (ObjectStore, error) {
	switch cfg.StorageDriver {
	case "s3":
		return NewS3Store(context.Background(), S3StoreConfig{
			Region:        cfg.S3Region,
			Endpoint:      cfg.S3Endpoint,
			BucketPrefix:  cfg.S3BucketPrefix,
			PublicBaseURL: cfg.StoragePublicBaseURL,
		}, logger.Named("S3Store"))
	default:
		return NewLocalStore(cfg.StorageLocalPath, cfg.StoragePublicBaseURL, logger.Named("LocalStore"))
	}
}

// NewObjectKey builds the "<owner>/<uuid><ext>" key used for uploads.
func NewObjectKey(owner uuid.UUID, ext string) string {
	return owner.String() + "/" + uuid.NewString() + ext
}

// UploadFile sniffs the content of an uploaded file, checks it against the
// allowed media types and the size limit, then stores it under a fresh key
// owned by owner.
func UploadFile(ctx context.Context, store ObjectStore, bucket Bucket, owner uuid.UUID, fh *multipart.FileHeader, allowed []string, maxBytes int64) (*Object, error) {
	if fh == nil {
		return nil, common.ErrBadRequest.WithDetails("A file is required.")
	}
	if maxBytes > 0 && fh.Size > maxBytes {
		return nil, common.ErrBadRequest.WithDetails(fmt.Sprintf("File exceeds the %d byte limit.", maxBytes))
	}

	src, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open uploaded file: %w", err)
	}
	defer src.Close()

	data, err := io.ReadAll(src)
	if err != nil {
		return nil, fmt.Errorf("failed to read uploaded file: %w", err)
	}

	mt := mimetype.Detect(data)
	if len(allowed) > 0 && !mimetype.EqualsAny(mt.String(), allowed...) {
		return nil, common.ErrBadRequest.WithDetails("Unsupported file type: " + mt.String())
	}

	contentType := strings.Split(mt.String(), ";")[0]
	key := NewObjectKey(owner, mt.Extension())
	return store.Put(ctx, bucket, key, bytes.NewReader(data), int64(len(data)), contentType)
}
