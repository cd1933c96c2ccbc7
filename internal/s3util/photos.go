// Package s3util provides shared S3 helper functions for meal photo
// storage. Photos live under photos/{userId}/{entryId}.jpg and are
// served to clients through presigned GET URLs.
package s3util

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/rs/zerolog/log"
)

// projectTag is the URL-encoded S3 object tagging string for cost allocation.
const projectTag = "Project=forkful-lite"

// PhotoKey returns the canonical object key for an entry's photo.
func PhotoKey(userID, entryID string) string {
	return fmt.Sprintf("photos/%s/%s.jpg", userID, entryID)
}

// StagingKey returns the object key a presigned direct upload lands
// under before the save call claims it.
func StagingKey(userID, uploadID string) string {
	return fmt.Sprintf("staging/%s/%s.jpg", userID, uploadID)
}

var stagingKeyRe = regexp.MustCompile(`^staging/([a-zA-Z0-9_-]{1,64})/upload-[0-9a-f]{32}\.jpg$`)

// ValidStagingKey reports whether key is a well-formed staging key owned
// by userID. Save requests must not be able to reference another user's
// staged upload.
func ValidStagingKey(userID, key string) bool {
	m := stagingKeyRe.FindStringSubmatch(key)
	return m != nil && m[1] == userID
}

// UploadPhoto writes a normalized JPEG to the photo bucket and returns
// the object key.
func UploadPhoto(ctx context.Context, client *s3.Client, bucket, userID, entryID string, data []byte) (string, error) {
	key := PhotoKey(userID, entryID)

	log.Debug().
		Str("bucket", bucket).
		Str("key", key).
		Int("bytes", len(data)).
		Msg("Uploading photo to S3")

	_, err := client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      &bucket,
		Key:         &key,
		Body:        bytes.NewReader(data),
		ContentType: aws.String("image/jpeg"),
		Tagging:     aws.String(projectTag),
	})
	if err != nil {
		return "", fmt.Errorf("S3 PutObject %s: %w", key, err)
	}
	return key, nil
}

// DeletePhoto removes an entry's photo. Missing objects are not an
// error; S3 DeleteObject is idempotent.
func DeletePhoto(ctx context.Context, client *s3.Client, bucket, userID, entryID string) error {
	return DeleteKey(ctx, client, bucket, PhotoKey(userID, entryID))
}

// DeleteKey removes an arbitrary object, such as a claimed staging
// upload. Idempotent.
func DeleteKey(ctx context.Context, client *s3.Client, bucket, key string) error {
	_, err := client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: &bucket,
		Key:    &key,
	})
	if err != nil {
		return fmt.Errorf("S3 DeleteObject %s: %w", key, err)
	}

	log.Debug().Str("bucket", bucket).Str("key", key).Msg("Object deleted from S3")
	return nil
}

// PresignGet creates a pre-signed GET URL for a photo so clients can
// display it without bucket credentials.
func PresignGet(ctx context.Context, presignClient *s3.PresignClient, bucket, key string, expiry time.Duration) (string, error) {
	result, err := presignClient.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: &bucket,
		Key:    &key,
	}, func(opts *s3.PresignOptions) {
		opts.Expires = expiry
	})
	if err != nil {
		return "", fmt.Errorf("presign GetObject %s: %w", key, err)
	}
	return result.URL, nil
}

// PresignPut creates a pre-signed PUT URL for direct client uploads.
// Objects uploaded this way cannot be tagged at creation time, so
// TagPhoto is applied after the upload completes.
func PresignPut(ctx context.Context, presignClient *s3.PresignClient, bucket, key string, expiry time.Duration) (string, error) {
	result, err := presignClient.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:      &bucket,
		Key:         &key,
		ContentType: aws.String("image/jpeg"),
	}, func(opts *s3.PresignOptions) {
		opts.Expires = expiry
	})
	if err != nil {
		return "", fmt.Errorf("presign PutObject %s: %w", key, err)
	}
	return result.URL, nil
}

// TagPhoto applies the cost-allocation tag to a photo that was uploaded
// through a presigned URL.
func TagPhoto(ctx context.Context, client *s3.Client, bucket, key string) error {
	_, err := client.PutObjectTagging(ctx, &s3.PutObjectTaggingInput{
		Bucket: &bucket,
		Key:    &key,
		Tagging: &s3types.Tagging{
			TagSet: []s3types.Tag{
				{Key: aws.String("Project"), Value: aws.String("forkful-lite")},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("PutObjectTagging %s: %w", key, err)
	}
	return nil
}

// DownloadPhoto reads an entry's photo back into memory for the
// enrichment stages.
func DownloadPhoto(ctx context.Context, client *s3.Client, bucket, key string) ([]byte, error) {
	result, err := client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: &bucket,
		Key:    &key,
	})
	if err != nil {
		return nil, fmt.Errorf("S3 GetObject %s: %w", key, err)
	}
	defer result.Body.Close()

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(result.Body); err != nil {
		return nil, fmt.Errorf("reading %s body: %w", key, err)
	}
	return buf.Bytes(), nil
}
