package http

import (
	"net/http"

	"tripmeet-backend/internal/service"
)

type ChatHandler struct {
	chatSvc        service.ChatService
	maxUploadBytes int64
}

func NewChatHandler(chatSvc service.ChatService, maxUploadBytes int64) *ChatHandler {
	return &ChatHandler{chatSvc: chatSvc, maxUploadBytes: maxUploadBytes}
}

type sendMessageBody struct {
	Content     string `json:"content"`
	ClientToken string `json:"client_token"`
}

type editMessageBody struct {
	Content string `json:"content"`
}

// accepted is the body of a successful send. The row itself arrives on the
// realtime feed.
var accepted = map[string]string{"status": "accepted"}

func (h *ChatHandler) ListMessages(w http.ResponseWriter, r *http.Request) {
	messages, err := h.chatSvc.ListMessages(r.Context(), actorID(r), channelFromPath(r))
	if err != nil {
		respondError(w, r, "load messages", err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"messages": messages})
}

func (h *ChatHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	var body sendMessageBody
	if err := decodeJSON(w, r, &body); err != nil {
		respondError(w, r, "send message", err)
		return
	}
	if _, err := h.chatSvc.SendMessage(r.Context(), actorID(r), channelFromPath(r), body.Content, body.ClientToken); err != nil {
		respondError(w, r, "send message", err)
		return
	}
	respondJSON(w, http.StatusAccepted, accepted)
}

func (h *ChatHandler) UploadAttachment(w http.ResponseWriter, r *http.Request) {
	upload, clientToken, cleanup, err := readUpload(w, r, h.maxUploadBytes)
	if err != nil {
		respondError(w, r, "upload file", err)
		return
	}
	defer cleanup()

	if _, err := h.chatSvc.UploadAttachment(r.Context(), actorID(r), channelFromPath(r), upload, clientToken); err != nil {
		respondError(w, r, "upload file", err)
		return
	}
	respondJSON(w, http.StatusAccepted, accepted)
}

func (h *ChatHandler) GetMessage(w http.ResponseWriter, r *http.Request) {
	msg, err := h.chatSvc.GetMessage(r.Context(), actorID(r), pathVar(r, "id"))
	if err != nil {
		respondError(w, r, "load message", err)
		return
	}
	respondJSON(w, http.StatusOK, msg)
}

func (h *ChatHandler) EditMessage(w http.ResponseWriter, r *http.Request) {
	var body editMessageBody
	if err := decodeJSON(w, r, &body); err != nil {
		respondError(w, r, "edit message", err)
		return
	}
	msg, err := h.chatSvc.EditMessage(r.Context(), actorID(r), pathVar(r, "id"), body.Content)
	if err != nil {
		respondError(w, r, "edit message", err)
		return
	}
	respondJSON(w, http.StatusOK, msg)
}

func (h *ChatHandler) DeleteMessage(w http.ResponseWriter, r *http.Request) {
	if err := h.chatSvc.DeleteMessage(r.Context(), actorID(r), pathVar(r, "id")); err != nil {
		respondError(w, r, "delete message", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *ChatHandler) PinMessage(w http.ResponseWriter, r *http.Request) {
	h.setPinned(w, r, true, "pin message")
}

func (h *ChatHandler) UnpinMessage(w http.ResponseWriter, r *http.Request) {
	h.setPinned(w, r, false, "unpin message")
}

func (h *ChatHandler) setPinned(w http.ResponseWriter, r *http.Request, pinned bool, action string) {
	msg, err := h.chatSvc.PinMessage(r.Context(), actorID(r), pathVar(r, "id"), pinned)
	if err != nil {
		respondError(w, r, action, err)
		return
	}
	respondJSON(w, http.StatusOK, msg)
}
