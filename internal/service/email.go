package service

import (
	"context"
	"fmt"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"tripmeet-backend/internal/logger"
)

type sendGridEmailService struct {
	client    *sendgrid.Client
	fromEmail string
	fromName  string
	appURL    string
}

// NewEmailService returns a SendGrid-backed sender, or a no-op sender when
// apiKey is empty.
func NewEmailService(apiKey, fromEmail, fromName, appURL string) EmailService {
	if apiKey == "" {
		return noopEmailService{}
	}
	return &sendGridEmailService{
		client:    sendgrid.NewSendClient(apiKey),
		fromEmail: fromEmail,
		fromName:  fromName,
		appURL:    appURL,
	}
}

func (s *sendGridEmailService) send(ctx context.Context, to, toName, subject, plainText, htmlContent string) error {
	from := mail.NewEmail(s.fromName, s.fromEmail)
	recipient := mail.NewEmail(toName, to)
	message := mail.NewSingleEmail(from, subject, recipient, plainText, htmlContent)

	logger.ExternalServiceCall("sendgrid", "Send", "subject", subject)
	response, err := s.client.SendWithContext(ctx, message)
	if err == nil && response.StatusCode >= 400 {
		err = fmt.Errorf("sendgrid error: status %d, body: %s", response.StatusCode, response.Body)
	}
	logger.ExternalServiceResult("sendgrid", "Send", err, "subject", subject)
	if err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}

func (s *sendGridEmailService) SendJoinRequest(ctx context.Context, to, toName, requesterName, meetupTitle string) error {
	subject := fmt.Sprintf("New join request for %s", meetupTitle)
	plainText := fmt.Sprintf("Hello %s,\n\n%s wants to join %s.\n\nReview the request in the app: %s", toName, requesterName, meetupTitle, s.appURL)
	htmlContent := fmt.Sprintf(`<html><body>
<h2>New join request</h2>
<p><strong>%s</strong> wants to join <strong>%s</strong>.</p>
<p><a href="%s">Review the request</a></p>
</body></html>`, requesterName, meetupTitle, s.appURL)
	return s.send(ctx, to, toName, subject, plainText, htmlContent)
}

func (s *sendGridEmailService) SendRequestAccepted(ctx context.Context, to, toName, meetupTitle string) error {
	subject := fmt.Sprintf("You're in: %s", meetupTitle)
	plainText := fmt.Sprintf("Hello %s,\n\nYour request was accepted. You are now a member of %s.\n\n%s", toName, meetupTitle, s.appURL)
	htmlContent := fmt.Sprintf(`<html><body>
<h2>Request accepted</h2>
<p>You are now a member of <strong>%s</strong>.</p>
<p><a href="%s">Open the meetup</a></p>
</body></html>`, meetupTitle, s.appURL)
	return s.send(ctx, to, toName, subject, plainText, htmlContent)
}

type noopEmailService struct{}

func (noopEmailService) SendJoinRequest(ctx context.Context, to, toName, requesterName, meetupTitle string) error {
	logger.Debug("Email disabled, skipping join request email", "meetupTitle", meetupTitle)
	return nil
}

func (noopEmailService) SendRequestAccepted(ctx context.Context, to, toName, meetupTitle string) error {
	logger.Debug("Email disabled, skipping acceptance email", "meetupTitle", meetupTitle)
	return nil
}
