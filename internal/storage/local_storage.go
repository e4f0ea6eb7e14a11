package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"tripmeet-backend/internal/logger"
)

// LocalStorageService stores objects on the local filesystem. Files are
// served back by the API under baseURL.
type LocalStorageService struct {
	baseURL    string // Public URL prefix (e.g., "http://localhost:8080/files")
	uploadsDir string // Local directory for uploads (e.g., "./uploads")
}

// NewLocalStorageService creates the upload directory if needed
func NewLocalStorageService(baseURL, uploadsDir string) (*LocalStorageService, error) {
	if err := os.MkdirAll(uploadsDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create uploads directory: %w", err)
	}

	return &LocalStorageService{
		baseURL:    strings.TrimRight(baseURL, "/"),
		uploadsDir: uploadsDir,
	}, nil
}

func (m *LocalStorageService) path(key string) (string, error) {
	cleaned, err := cleanKey(key)
	if err != nil {
		return "", err
	}
	return filepath.Join(m.uploadsDir, filepath.FromSlash(cleaned)), nil
}

// Upload writes the object to disk and returns its public URL
func (m *LocalStorageService) Upload(ctx context.Context, key, contentType string, reader io.Reader) (string, error) {
	logger.ExternalServiceCall("local-storage", "Upload", "key", key, "contentType", contentType)
	fullPath, err := m.path(key)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return "", fmt.Errorf("failed to create directories: %w", err)
	}

	file, err := os.Create(fullPath)
	if err != nil {
		return "", fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	if _, err := io.Copy(file, reader); err != nil {
		os.Remove(fullPath)
		logger.ExternalServiceResult("local-storage", "Upload", err, "key", key)
		return "", fmt.Errorf("failed to write file: %w", err)
	}

	logger.ExternalServiceResult("local-storage", "Upload", nil, "key", key)
	return m.PublicURL(key), nil
}

func (m *LocalStorageService) PublicURL(key string) string {
	return m.baseURL + "/" + strings.TrimLeft(key, "/")
}

// FileExists checks if file exists in local filesystem
func (m *LocalStorageService) FileExists(ctx context.Context, key string) (bool, int64, error) {
	fullPath, err := m.path(key)
	if err != nil {
		return false, 0, err
	}

	info, err := os.Stat(fullPath)
	if err != nil {
		if os.IsNotExist(err) {
			return false, 0, nil
		}
		return false, 0, err
	}
	if info.IsDir() {
		return false, 0, nil
	}
	return true, info.Size(), nil
}

// DeleteFile deletes file from local filesystem
func (m *LocalStorageService) DeleteFile(ctx context.Context, key string) error {
	fullPath, err := m.path(key)
	if err != nil {
		return err
	}

	err = os.Remove(fullPath)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

// ReadFile reads file from local filesystem
func (m *LocalStorageService) ReadFile(ctx context.Context, key string) (io.ReadCloser, error) {
	fullPath, err := m.path(key)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(fullPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	return file, nil
}
