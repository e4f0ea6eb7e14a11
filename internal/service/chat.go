package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"path/filepath"
	"strings"

	"tripmeet-backend/internal/domain"
	"tripmeet-backend/internal/logger"
	"tripmeet-backend/internal/repository"
	"tripmeet-backend/internal/storage"
	"tripmeet-backend/internal/utils"
)

const maxClientTokenLength = 64

var (
	imageMimeTypes = map[string]bool{
		"image/jpeg": true,
		"image/png":  true,
		"image/gif":  true,
		"image/webp": true,
	}
	documentMimeTypes = map[string]bool{
		"application/pdf": true,
		"text/plain":      true,
	}
)

type chatService struct {
	messageRepo    repository.MessageRepository
	meetupRepo     repository.MeetupRepository
	members        MembershipService
	storage        storage.StorageInterface
	publisher      Publisher
	maxUploadBytes int64
}

func NewChatService(messageRepo repository.MessageRepository, meetupRepo repository.MeetupRepository, members MembershipService,
	store storage.StorageInterface, publisher Publisher, maxUploadBytes int64) ChatService {
	return &chatService{
		messageRepo:    messageRepo,
		meetupRepo:     meetupRepo,
		members:        members,
		storage:        store,
		publisher:      publisher,
		maxUploadBytes: maxUploadBytes,
	}
}

// authorizeChannel lets any authenticated user into the community channel and
// only members into a meetup channel.
func (s *chatService) authorizeChannel(ctx context.Context, actorID string, key domain.ChannelKey) error {
	if key.IsGlobal() {
		return nil
	}
	return s.members.RequireMember(ctx, actorID, key.MeetupID)
}

// SendMessage validates, sanitizes and classifies text, then stores it as the
// actor's message in the channel. The change feed echoes it to subscribers.
func (s *chatService) SendMessage(ctx context.Context, actorID string, key domain.ChannelKey, text, clientToken string) (*domain.Message, error) {
	logger.EnterMethod("chatService.SendMessage", "actorID", actorID, "channel", key.String())

	content, msgType, err := normalizeMessage(text)
	if err != nil {
		logger.ExitMethodWithError("chatService.SendMessage", err, "actorID", actorID)
		return nil, err
	}
	if len(clientToken) > maxClientTokenLength {
		return nil, domain.NewValidationError("client_token", "must be at most %d characters", maxClientTokenLength)
	}
	if err := s.authorizeChannel(ctx, actorID, key); err != nil {
		logger.ExitMethodWithError("chatService.SendMessage", err, "actorID", actorID)
		return nil, err
	}

	msg := &domain.Message{
		MeetupID:    key.MeetupID,
		AuthorID:    actorID,
		Type:        msgType,
		Content:     content,
		ClientToken: clientToken,
	}
	if err := s.messageRepo.Create(ctx, msg); err != nil {
		logger.ExitMethodWithError("chatService.SendMessage", err, "actorID", actorID)
		return nil, fmt.Errorf("failed to store message: %w", err)
	}

	s.publishMessage(ctx, domain.ChangeInsert, msg)
	logger.ExitMethod("chatService.SendMessage", "messageID", msg.ID, "type", msg.Type)
	return msg, nil
}

// UploadAttachment stores the file and posts it as an image or file message.
func (s *chatService) UploadAttachment(ctx context.Context, actorID string, key domain.ChannelKey, file Upload, clientToken string) (*domain.Message, error) {
	logger.EnterMethod("chatService.UploadAttachment", "actorID", actorID, "channel", key.String(), "size", file.Size)

	contentType, err := checkUpload(file, s.maxUploadBytes, true)
	if err != nil {
		logger.ExitMethodWithError("chatService.UploadAttachment", err, "actorID", actorID)
		return nil, err
	}
	if len(clientToken) > maxClientTokenLength {
		return nil, domain.NewValidationError("client_token", "must be at most %d characters", maxClientTokenLength)
	}
	if err := s.authorizeChannel(ctx, actorID, key); err != nil {
		return nil, err
	}

	objectKey := storage.ChatAttachmentKey(key.Topic(), actorID, file.FileName, contentType)
	url, err := s.storage.Upload(ctx, objectKey, contentType, limitUpload(file.Reader, s.maxUploadBytes))
	if err != nil {
		logger.ExitMethodWithError("chatService.UploadAttachment", err, "key", objectKey)
		if errors.Is(err, errUploadTooLarge) {
			return nil, tooLarge(s.maxUploadBytes)
		}
		return nil, fmt.Errorf("failed to store attachment: %w", err)
	}

	name := displayFileName(file.FileName)
	msgType := domain.MessageTypeFile
	if strings.HasPrefix(contentType, "image/") {
		msgType = domain.MessageTypeImage
	}
	msg := &domain.Message{
		MeetupID:    key.MeetupID,
		AuthorID:    actorID,
		Type:        msgType,
		Content:     name,
		FileURL:     url,
		FileName:    name,
		FileSize:    file.Size,
		ClientToken: clientToken,
	}
	if err := s.messageRepo.Create(ctx, msg); err != nil {
		if delErr := s.storage.DeleteFile(ctx, objectKey); delErr != nil {
			logger.Warn("Failed to remove orphaned attachment", "key", objectKey, "error", delErr)
		}
		logger.ExitMethodWithError("chatService.UploadAttachment", err, "actorID", actorID)
		return nil, fmt.Errorf("failed to store message: %w", err)
	}

	s.publishMessage(ctx, domain.ChangeInsert, msg)
	logger.ExitMethod("chatService.UploadAttachment", "messageID", msg.ID, "type", msg.Type)
	return msg, nil
}

// EditMessage lets the author correct a text message.
func (s *chatService) EditMessage(ctx context.Context, actorID, messageID, text string) (*domain.Message, error) {
	if err := checkID(messageID); err != nil {
		return nil, err
	}
	msg, err := s.messageRepo.GetByID(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if msg.AuthorID != actorID {
		return nil, domain.ErrForbidden
	}
	if msg.Type == domain.MessageTypeImage || msg.Type == domain.MessageTypeFile {
		return nil, domain.NewValidationError("content", "attachments cannot be edited")
	}

	content, msgType, err := normalizeMessage(text)
	if err != nil {
		return nil, err
	}
	msg.Content = content
	msg.Type = msgType
	if err := s.messageRepo.UpdateContent(ctx, msg); err != nil {
		return nil, fmt.Errorf("failed to update message: %w", err)
	}

	s.publishMessage(ctx, domain.ChangeUpdate, msg)
	return msg, nil
}

func (s *chatService) DeleteMessage(ctx context.Context, actorID, messageID string) error {
	if err := checkID(messageID); err != nil {
		return err
	}
	msg, err := s.messageRepo.GetByID(ctx, messageID)
	if err != nil {
		return err
	}
	if msg.AuthorID != actorID {
		return domain.ErrForbidden
	}
	if err := s.messageRepo.Delete(ctx, messageID); err != nil {
		return err
	}
	publishDelete(ctx, s.publisher, domain.TableMessages, msg.Channel().Topic(), msg.ID)
	return nil
}

// PinMessage toggles the pin flag. Only the meetup creator may pin, and only
// in a meetup channel.
func (s *chatService) PinMessage(ctx context.Context, actorID, messageID string, pinned bool) (*domain.Message, error) {
	if err := checkID(messageID); err != nil {
		return nil, err
	}
	msg, err := s.messageRepo.GetByID(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if msg.Channel().IsGlobal() {
		return nil, domain.NewValidationError("", "messages can only be pinned in meetup chats")
	}
	meetup, err := s.meetupRepo.GetByID(ctx, msg.MeetupID)
	if err != nil {
		return nil, err
	}
	if !meetup.IsCreator(actorID) {
		return nil, domain.ErrForbidden
	}

	if err := s.messageRepo.SetPinned(ctx, messageID, pinned, actorID); err != nil {
		return nil, fmt.Errorf("failed to update pin: %w", err)
	}
	updated, err := s.messageRepo.GetByID(ctx, messageID)
	if err != nil {
		return nil, err
	}
	publishChange(ctx, s.publisher, domain.ChangeUpdate, domain.TableMessages, updated.Channel().Topic(), updated, true)
	return updated, nil
}

func (s *chatService) ListMessages(ctx context.Context, actorID string, key domain.ChannelKey) ([]domain.Message, error) {
	if err := s.authorizeChannel(ctx, actorID, key); err != nil {
		return nil, err
	}
	return s.messageRepo.ListByChannel(ctx, key)
}

func (s *chatService) GetMessage(ctx context.Context, actorID, messageID string) (*domain.Message, error) {
	if err := checkID(messageID); err != nil {
		return nil, err
	}
	msg, err := s.messageRepo.GetByID(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if err := s.authorizeChannel(ctx, actorID, msg.Channel()); err != nil {
		return nil, err
	}
	return msg, nil
}

// publishMessage re-reads the row so the event carries the author projection.
// If the read fails the bare row goes out unprojected and subscribers fetch it.
func (s *chatService) publishMessage(ctx context.Context, kind domain.ChangeKind, msg *domain.Message) {
	projected, err := s.messageRepo.GetByID(ctx, msg.ID)
	if err != nil {
		logger.Warn("Failed to load message projection", "messageID", msg.ID, "error", err)
		publishChange(ctx, s.publisher, kind, domain.TableMessages, msg.Channel().Topic(), msg, false)
		return
	}
	publishChange(ctx, s.publisher, kind, domain.TableMessages, msg.Channel().Topic(), projected, true)
}

var errUploadTooLarge = errors.New("upload exceeds size limit")

// checkUpload enforces the size ceiling and the mime allow-list. Documents
// are accepted only when allowDocuments is set.
func checkUpload(file Upload, maxBytes int64, allowDocuments bool) (string, error) {
	if file.Reader == nil || file.Size <= 0 {
		return "", domain.NewValidationError("file", "file is empty")
	}
	if file.Size > maxBytes {
		return "", tooLarge(maxBytes)
	}

	contentType, _, err := mime.ParseMediaType(file.ContentType)
	if err != nil {
		return "", domain.NewValidationError("file", "unsupported file type")
	}
	contentType = strings.ToLower(contentType)
	if imageMimeTypes[contentType] || (allowDocuments && documentMimeTypes[contentType]) {
		return contentType, nil
	}
	if !allowDocuments {
		return "", domain.NewValidationError("file", "only JPEG, PNG, GIF or WebP images are allowed")
	}
	return "", domain.NewValidationError("file", "only images, PDF or plain text files are allowed")
}

func tooLarge(maxBytes int64) error {
	return domain.NewValidationError("file", "file exceeds the %d MB limit", maxBytes/(1024*1024))
}

// displayFileName keeps the base name of a client file name, stripped of markup.
func displayFileName(name string) string {
	name = SanitizeContent(filepath.Base(strings.ReplaceAll(name, "\\", "/")))
	if name == "" || name == "." || name == "/" {
		return "attachment"
	}
	return utils.Truncate(name, 255)
}

// limitUpload fails the read once more than maxBytes arrive, guarding
// against a declared size that understates the body.
func limitUpload(r io.Reader, maxBytes int64) io.Reader {
	return &cappedReader{r: r, remaining: maxBytes}
}

type cappedReader struct {
	r         io.Reader
	remaining int64
}

func (c *cappedReader) Read(p []byte) (int, error) {
	if c.remaining < 0 {
		return 0, errUploadTooLarge
	}
	if int64(len(p)) > c.remaining+1 {
		p = p[:c.remaining+1]
	}
	n, err := c.r.Read(p)
	c.remaining -= int64(n)
	if c.remaining < 0 {
		return n, errUploadTooLarge
	}
	return n, err
}
