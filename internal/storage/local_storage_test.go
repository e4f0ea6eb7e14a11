package storage_test

import (
	"context"
	"io"
	"strings"
	"testing"

	"tripmeet-backend/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStorageService(t *testing.T) {
	dir := t.TempDir()
	svc, err := storage.NewLocalStorageService("http://localhost:8080/files/", dir)
	require.NoError(t, err)
	ctx := context.Background()

	t.Run("Upload and read back", func(t *testing.T) {
		url, err := svc.Upload(ctx, "chat/community/u1/01HX.txt", "text/plain", strings.NewReader("packing list"))
		require.NoError(t, err)
		assert.Equal(t, "http://localhost:8080/files/chat/community/u1/01HX.txt", url)

		exists, size, err := svc.FileExists(ctx, "chat/community/u1/01HX.txt")
		require.NoError(t, err)
		assert.True(t, exists)
		assert.Equal(t, int64(len("packing list")), size)

		rc, err := svc.ReadFile(ctx, "chat/community/u1/01HX.txt")
		require.NoError(t, err)
		defer rc.Close()
		data, _ := io.ReadAll(rc)
		assert.Equal(t, "packing list", string(data))
	})

	t.Run("Delete is idempotent", func(t *testing.T) {
		require.NoError(t, svc.DeleteFile(ctx, "chat/community/u1/01HX.txt"))
		require.NoError(t, svc.DeleteFile(ctx, "chat/community/u1/01HX.txt"))
		exists, _, err := svc.FileExists(ctx, "chat/community/u1/01HX.txt")
		require.NoError(t, err)
		assert.False(t, exists)
	})

	t.Run("Rejects traversal", func(t *testing.T) {
		_, err := svc.Upload(ctx, "../outside.txt", "text/plain", strings.NewReader("x"))
		assert.ErrorIs(t, err, storage.ErrInvalidKey)
		_, err = svc.ReadFile(ctx, "chat/../../etc/passwd")
		assert.ErrorIs(t, err, storage.ErrInvalidKey)
	})
}

func TestObjectKeys(t *testing.T) {
	key := storage.ChatAttachmentKey("meetup:abc", "u1", "Beach.JPEG", "image/jpeg")
	assert.True(t, strings.HasPrefix(key, "chat/meetup-abc/u1/"), key)
	assert.True(t, strings.HasSuffix(key, ".jpg"), key)

	other := storage.ChatAttachmentKey("meetup:abc", "u1", "Beach.JPEG", "image/jpeg")
	assert.NotEqual(t, key, other)

	avatar := storage.AvatarKey("u1", "me.png", "image/png")
	assert.True(t, strings.HasPrefix(avatar, "avatars/u1/"))
	assert.True(t, strings.HasSuffix(avatar, ".png"))

	assert.True(t, strings.HasSuffix(storage.ChatAttachmentKey("community", "u1", "notes.md", "text/markdown"), ".md"))
}
