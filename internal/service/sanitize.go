package service

import (
	"html"
	"net/url"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"mvdan.cc/xurls/v2"

	"tripmeet-backend/internal/domain"
	"tripmeet-backend/internal/utils"
)

var (
	stripPolicy = bluemonday.StrictPolicy()
	urlPattern  = xurls.Relaxed()
)

// maxSanitizePasses bounds the strip/decode rounds of SanitizeContent.
const maxSanitizePasses = 5

// SanitizeContent strips every HTML tag from s and trims the result.
// Entities are decoded so the stored text reads as typed; decoding runs
// again through the policy until nothing changes, so encoded markup cannot
// come back as tags. Input that does not settle stays entity-encoded.
func SanitizeContent(s string) string {
	for i := 0; i < maxSanitizePasses; i++ {
		clean := stripPolicy.Sanitize(s)
		decoded := html.UnescapeString(clean)
		if decoded == s {
			return strings.TrimSpace(decoded)
		}
		s = decoded
	}
	return strings.TrimSpace(stripPolicy.Sanitize(s))
}

// ClassifyContent marks text carrying a Google Maps link as a location message.
func ClassifyContent(text string) domain.MessageType {
	for _, raw := range urlPattern.FindAllString(text, -1) {
		if IsMapsLink(raw) {
			return domain.MessageTypeLocation
		}
	}
	return domain.MessageTypeText
}

// IsMapsLink recognises maps.google.*, google.*/maps, goo.gl/maps and maps.app.goo.gl.
func IsMapsLink(raw string) bool {
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	p := strings.ToLower(u.Path)

	switch {
	case host == "maps.app.goo.gl":
		return true
	case host == "goo.gl":
		return strings.HasPrefix(p, "/maps")
	case strings.HasPrefix(host, "maps.google."):
		return true
	case strings.HasPrefix(host, "google."):
		return p == "/maps" || strings.HasPrefix(p, "/maps/")
	}
	return false
}

// normalizeMessage applies the send-path checks to raw input and returns the
// stored content and type.
func normalizeMessage(raw string) (string, domain.MessageType, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", "", domain.NewValidationError("content", "message cannot be empty")
	}
	if utils.RuneLen(trimmed) > domain.MaxMessageLength {
		return "", "", domain.NewValidationError("content", "message cannot exceed %d characters", domain.MaxMessageLength)
	}
	clean := SanitizeContent(trimmed)
	if clean == "" {
		return "", "", domain.NewValidationError("content", "message cannot be empty")
	}
	return clean, ClassifyContent(clean), nil
}
