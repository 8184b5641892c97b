package services

import (
	"context"
	"fmt"
	"net/smtp"
	"sort"
	"strings"
	"time"

	"github.com/mailgun/mailgun-go/v4"
	"github.com/svacron/metals/backend/src/config"
	"github.com/svacron/metals/backend/src/logger"
	"github.com/svacron/metals/backend/src/models"
)

func NewEmailService() EmailService {
	if config.Cfg == nil {
		logger.L.Error("Configuration (config.Cfg) is nil. Email service will default to mock.")
		return &MockEmailService{}
	}

	provider := strings.ToLower(config.Cfg.EmailServiceProvider)
	logger.L.Info("Initializing email service", "provider", provider)

	switch provider {
	case "mailgun":
		if config.Cfg.MailgunDomain == "" || config.Cfg.MailgunPrivateAPIKey == "" || config.Cfg.SenderEmail == "" || config.Cfg.AlertRecipient == "" {
			logger.L.Warn("Mailgun configuration incomplete (Domain, API Key, SenderEmail, or AlertRecipient missing). Falling back to MockEmailService.")
			return &MockEmailService{}
		}
		mg := mailgun.NewMailgun(config.Cfg.MailgunDomain, config.Cfg.MailgunPrivateAPIKey)
		logger.L.Info("Mailgun client initialized", "domain", config.Cfg.MailgunDomain)
		return &MailgunEmailService{
			mg:             mg,
			senderEmail:    config.Cfg.SenderEmail,
			senderName:     config.Cfg.SenderName,
			alertRecipient: config.Cfg.AlertRecipient,
		}
	case "smtp":
		if config.Cfg.SMTPServer == "" || config.Cfg.SMTPUser == "" || config.Cfg.SMTPPassword == "" || config.Cfg.SenderEmail == "" || config.Cfg.AlertRecipient == "" {
			logger.L.Warn("SMTP configuration incomplete. Falling back to MockEmailService.")
			return &MockEmailService{}
		}
		return &SMTPEmailService{
			SMTPServer:     config.Cfg.SMTPServer,
			SMTPPort:       config.Cfg.SMTPPort,
			SMTPUser:       config.Cfg.SMTPUser,
			SMTPPassword:   config.Cfg.SMTPPassword,
			SenderEmail:    config.Cfg.SenderEmail,
			AlertRecipient: config.Cfg.AlertRecipient,
		}
	default:
		logger.L.Info("Defaulting to MockEmailService.")
		return &MockEmailService{}
	}
}

// alertBody renders the per-metal failure list in a stable order.
func alertBody(source string, failures map[models.MetalKind]string) (subject, body string) {
	metals := make([]string, 0, len(failures))
	for metal := range failures {
		metals = append(metals, string(metal))
	}
	sort.Strings(metals)

	lines := make([]string, 0, len(metals))
	for _, metal := range metals {
		lines = append(lines, fmt.Sprintf("  %s: %s", metal, failures[models.MetalKind(metal)]))
	}

	subject = fmt.Sprintf("Metals price sync failed (source: %s)", source)
	body = fmt.Sprintf(`The scheduled price sync updated zero metals.

Source: %s

Failures:
%s

Prices were left at their last reconciled values. A manual update may be
needed from the admin dashboard.`, source, strings.Join(lines, "\n"))
	return subject, body
}

type SMTPEmailService struct {
	SMTPServer     string
	SMTPPort       int
	SMTPUser       string
	SMTPPassword   string
	SenderEmail    string
	AlertRecipient string
}

func (s *SMTPEmailService) SendSyncFailureAlert(source string, failures map[models.MetalKind]string) error {
	subject, body := alertBody(source, failures)

	header := make(map[string]string)
	header["From"] = s.SenderEmail
	header["To"] = s.AlertRecipient
	header["Subject"] = subject
	header["MIME-version"] = "1.0"
	header["Content-Type"] = "text/plain; charset=\"UTF-8\""
	message := ""
	for k, v := range header {
		message += fmt.Sprintf("%s: %s\r\n", k, v)
	}
	message += "\r\n" + body

	auth := smtp.PlainAuth("", s.SMTPUser, s.SMTPPassword, s.SMTPServer)
	addr := fmt.Sprintf("%s:%d", s.SMTPServer, s.SMTPPort)
	if err := smtp.SendMail(addr, auth, s.SenderEmail, []string{s.AlertRecipient}, []byte(message)); err != nil {
		logger.L.Error("Failed to send sync failure alert via SMTP", "error", err, "to", s.AlertRecipient)
		return fmt.Errorf("failed to send sync failure alert via SMTP: %w", err)
	}
	logger.L.Info("Sync failure alert sent via SMTP", "to", s.AlertRecipient)
	return nil
}

type MailgunEmailService struct {
	mg             mailgun.Mailgun
	senderEmail    string
	senderName     string
	alertRecipient string
}

func (s *MailgunEmailService) SendSyncFailureAlert(source string, failures map[models.MetalKind]string) error {
	subject, body := alertBody(source, failures)
	from := fmt.Sprintf("%s <%s>", s.senderName, s.senderEmail)

	message := mailgun.NewMessage(from, subject, body, s.alertRecipient)
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if _, _, err := s.mg.Send(ctx, message); err != nil {
		logger.L.Error("Failed to send sync failure alert via Mailgun", "error", err, "to", s.alertRecipient)
		return fmt.Errorf("failed to send sync failure alert via Mailgun: %w", err)
	}
	logger.L.Info("Sync failure alert sent via Mailgun", "to", s.alertRecipient)
	return nil
}

// MockEmailService logs alerts instead of sending them. Used in development
// and whenever the provider configuration is incomplete.
type MockEmailService struct{}

func (s *MockEmailService) SendSyncFailureAlert(source string, failures map[models.MetalKind]string) error {
	subject, _ := alertBody(source, failures)
	logger.L.Info("MOCK EMAIL: sync failure alert", "subject", subject, "failures", len(failures))
	return nil
}
