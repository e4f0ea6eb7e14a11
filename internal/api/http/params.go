package http

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"tripmeet-backend/internal/domain"
	"tripmeet-backend/internal/service"
)

// multipartMemory is how much of an upload is buffered in memory before
// spilling to a temp file.
const multipartMemory = 1 << 20

func actorID(r *http.Request) string {
	id, _ := UserIDFromContext(r.Context())
	return id
}

func pathVar(r *http.Request, name string) string {
	return mux.Vars(r)[name]
}

// channelFromPath resolves the chat channel: the community channel when the
// route has no meetup id.
func channelFromPath(r *http.Request) domain.ChannelKey {
	if id := pathVar(r, "id"); id != "" {
		return domain.MeetupChannel(id)
	}
	return domain.CommunityChannel
}

func queryInt(r *http.Request, name string, def int) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, domain.NewValidationError(name, "must be a number")
	}
	return n, nil
}

// readUpload parses a multipart form with a single "file" part. The caller
// must call the returned cleanup.
func readUpload(w http.ResponseWriter, r *http.Request, maxBytes int64) (service.Upload, string, func(), error) {
	noop := func() {}
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes+multipartMemory)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return service.Upload{}, "", noop, domain.NewValidationError("file", "must be at most %d MB", maxBytes/(1024*1024))
		}
		return service.Upload{}, "", noop, domain.NewValidationError("file", "invalid upload")
	}
	cleanup := func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		cleanup()
		return service.Upload{}, "", noop, domain.NewValidationError("file", "is required")
	}
	closeAll := func() {
		file.Close()
		cleanup()
	}

	upload := service.Upload{
		FileName:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		Reader:      file,
	}
	return upload, r.FormValue("client_token"), closeAll, nil
}
