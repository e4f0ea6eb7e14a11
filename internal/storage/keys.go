package storage

import (
	"mime"
	"path"
	"path/filepath"
	"strings"

	"github.com/oklog/ulid/v2"
)

// preferredExt pins the extension for types whose mime table entry is ambiguous.
var preferredExt = map[string]string{
	"image/jpeg":      ".jpg",
	"image/png":       ".png",
	"image/gif":       ".gif",
	"image/webp":      ".webp",
	"application/pdf": ".pdf",
	"text/plain":      ".txt",
}

// ChatAttachmentKey builds chat/<channel>/<author>/<ulid><ext>.
func ChatAttachmentKey(channel, authorID, fileName, contentType string) string {
	return path.Join("chat", sanitizeSegment(channel), sanitizeSegment(authorID), ulid.Make().String()+extension(fileName, contentType))
}

// AvatarKey builds avatars/<user>/<ulid><ext>.
func AvatarKey(userID, fileName, contentType string) string {
	return path.Join("avatars", sanitizeSegment(userID), ulid.Make().String()+extension(fileName, contentType))
}

func extension(fileName, contentType string) string {
	if ext, ok := preferredExt[contentType]; ok {
		return ext
	}
	if ext := strings.ToLower(filepath.Ext(fileName)); ext != "" && len(ext) <= 8 {
		return ext
	}
	if exts, err := mime.ExtensionsByType(contentType); err == nil && len(exts) > 0 {
		return exts[0]
	}
	return ""
}

// sanitizeSegment keeps a key segment free of separators ("meetup:<id>" -> "meetup-<id>").
func sanitizeSegment(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '.':
			return '-'
		}
		return r
	}, s)
}

// cleanKey rejects keys that would escape the storage root.
func cleanKey(key string) (string, error) {
	if key == "" || strings.HasPrefix(key, "/") || strings.Contains(key, "\\") {
		return "", ErrInvalidKey
	}
	cleaned := path.Clean(key)
	if cleaned == "." || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", ErrInvalidKey
	}
	return cleaned, nil
}
