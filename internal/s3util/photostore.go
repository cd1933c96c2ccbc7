package s3util

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// PhotoStore bundles the S3 client, presigner, and bucket into the blob
// interface the save pipeline depends on.
type PhotoStore struct {
	client    *s3.Client
	presigner *s3.PresignClient
	bucket    string
}

// NewPhotoStore creates a PhotoStore for the given bucket.
func NewPhotoStore(client *s3.Client, presigner *s3.PresignClient, bucket string) *PhotoStore {
	return &PhotoStore{
		client:    client,
		presigner: presigner,
		bucket:    bucket,
	}
}

// UploadPhoto stores a normalized JPEG and returns its object key.
func (p *PhotoStore) UploadPhoto(ctx context.Context, userID, entryID string, data []byte) (string, error) {
	return UploadPhoto(ctx, p.client, p.bucket, userID, entryID, data)
}

// DownloadPhoto reads a photo back for the enrichment stages.
func (p *PhotoStore) DownloadPhoto(ctx context.Context, key string) ([]byte, error) {
	return DownloadPhoto(ctx, p.client, p.bucket, key)
}

// DeletePhoto removes an entry's photo.
func (p *PhotoStore) DeletePhoto(ctx context.Context, userID, entryID string) error {
	return DeletePhoto(ctx, p.client, p.bucket, userID, entryID)
}

// ViewURL returns a presigned GET URL for a stored photo key.
func (p *PhotoStore) ViewURL(ctx context.Context, key string, expiry time.Duration) (string, error) {
	return PresignGet(ctx, p.presigner, p.bucket, key, expiry)
}

// UploadURL returns a presigned PUT URL for direct client uploads.
func (p *PhotoStore) UploadURL(ctx context.Context, key string, expiry time.Duration) (string, error) {
	return PresignPut(ctx, p.presigner, p.bucket, key, expiry)
}

// TagUpload applies the cost-allocation tag to an object that arrived
// through a presigned PUT, which cannot carry tags itself.
func (p *PhotoStore) TagUpload(ctx context.Context, key string) error {
	return TagPhoto(ctx, p.client, p.bucket, key)
}

// DeleteUpload removes a claimed staging object.
func (p *PhotoStore) DeleteUpload(ctx context.Context, key string) error {
	return DeleteKey(ctx, p.client, p.bucket, key)
}
