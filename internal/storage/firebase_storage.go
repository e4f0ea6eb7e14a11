package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"

	gcs "cloud.google.com/go/storage"
	firebase "firebase.google.com/go/v4"
	"google.golang.org/api/option"

	"tripmeet-backend/internal/logger"
)

// FirebaseStorageService stores objects in the project's Firebase bucket.
type FirebaseStorageService struct {
	bucketName string
	bucket     *gcs.BucketHandle
}

// NewFirebaseStorageService initialises the Firebase app for bucket. An empty
// credentialsFile falls back to application default credentials.
func NewFirebaseStorageService(ctx context.Context, bucket, credentialsFile string) (*FirebaseStorageService, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	app, err := firebase.NewApp(ctx, &firebase.Config{StorageBucket: bucket}, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize firebase app: %w", err)
	}
	client, err := app.Storage(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}
	handle, err := client.DefaultBucket()
	if err != nil {
		return nil, fmt.Errorf("failed to open bucket %s: %w", bucket, err)
	}

	return &FirebaseStorageService{bucketName: bucket, bucket: handle}, nil
}

func (f *FirebaseStorageService) Upload(ctx context.Context, key, contentType string, reader io.Reader) (string, error) {
	key, err := cleanKey(key)
	if err != nil {
		return "", err
	}

	logger.ExternalServiceCall("firebase-storage", "Upload", "bucket", f.bucketName, "key", key)
	w := f.bucket.Object(key).NewWriter(ctx)
	w.ContentType = contentType
	w.CacheControl = "public, max-age=31536000"

	if _, err := io.Copy(w, reader); err != nil {
		w.Close()
		logger.ExternalServiceResult("firebase-storage", "Upload", err, "key", key)
		return "", fmt.Errorf("failed to upload object: %w", err)
	}
	if err := w.Close(); err != nil {
		logger.ExternalServiceResult("firebase-storage", "Upload", err, "key", key)
		return "", fmt.Errorf("failed to finalize object: %w", err)
	}

	logger.ExternalServiceResult("firebase-storage", "Upload", nil, "key", key)
	return f.PublicURL(key), nil
}

func (f *FirebaseStorageService) PublicURL(key string) string {
	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", f.bucketName, (&url.URL{Path: key}).EscapedPath())
}

func (f *FirebaseStorageService) FileExists(ctx context.Context, key string) (bool, int64, error) {
	attrs, err := f.bucket.Object(key).Attrs(ctx)
	if errors.Is(err, gcs.ErrObjectNotExist) {
		return false, 0, nil
	}
	if err != nil {
		return false, 0, err
	}
	return true, attrs.Size, nil
}

func (f *FirebaseStorageService) DeleteFile(ctx context.Context, key string) error {
	err := f.bucket.Object(key).Delete(ctx)
	if err != nil && !errors.Is(err, gcs.ErrObjectNotExist) {
		return fmt.Errorf("failed to delete object: %w", err)
	}
	return nil
}

func (f *FirebaseStorageService) ReadFile(ctx context.Context, key string) (io.ReadCloser, error) {
	r, err := f.bucket.Object(key).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to open object: %w", err)
	}
	return r, nil
}
