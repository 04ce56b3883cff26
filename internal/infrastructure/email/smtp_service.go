package email

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"cleaning-backend/pkg/logger"
)

type Message struct {
	To      []string
	Subject string
	Body    string
}

type EmailService interface {
	Send(ctx context.Context, msg Message) error
}

type smtpEmailService struct {
	smtpAddr string
	smtpFrom string
}

// NewSMTPEmailService sends unauthenticated plain-text mail, suitable for a
// local relay or mailhog in development.
func NewSMTPEmailService(smtpHost, smtpPort, from string) EmailService {
	return &smtpEmailService{
		smtpAddr: smtpHost + ":" + smtpPort,
		smtpFrom: from,
	}
}

func (s *smtpEmailService) Send(ctx context.Context, msg Message) error {
	if len(msg.To) == 0 {
		return fmt.Errorf("email has no recipients")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	raw := []byte(fmt.Sprintf(
		"From: %s\r\nTo: %s\r\nSubject: %s\r\nContent-Type: text/plain; charset=UTF-8\r\n\r\n%s",
		s.smtpFrom, strings.Join(msg.To, ", "), msg.Subject, msg.Body))

	if err := smtp.SendMail(s.smtpAddr, nil, s.smtpFrom, msg.To, raw); err != nil {
		logger.Info("Failed to send email", map[string]interface{}{
			"error":     err.Error(),
			"to":        strings.Join(msg.To, ","),
			"smtp_addr": s.smtpAddr,
		})
		return fmt.Errorf("failed to send email: %w", err)
	}

	return nil
}
