package notify

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/sla-tracker/internal/config"
)

// Notifier sends a notification to a single recipient. Transport failures
// are returned, never retried here; the alert engine decides whether a
// retry happens on a later reconciliation pass.
type Notifier interface {
	Send(ctx context.Context, to, subject, htmlBody string) error
}

// NewFromConfig returns an SMTP notifier when an SMTP address is
// configured, otherwise a log-only notifier.
func NewFromConfig(cfg config.MailConfig, logger *zap.Logger) Notifier {
	if strings.TrimSpace(cfg.SMTPAddr) == "" {
		logger.Warn("MAIL_SMTP_ADDR not provided; notifications are log-only")
		return &logNotifier{logger: logger}
	}
	return &smtpNotifier{cfg: cfg, logger: logger}
}

type smtpNotifier struct {
	cfg    config.MailConfig
	logger *zap.Logger
}

func (n *smtpNotifier) Send(ctx context.Context, to, subject, htmlBody string) error {
	if strings.TrimSpace(to) == "" {
		return fmt.Errorf("empty recipient")
	}

	msg := strings.Join([]string{
		"From: " + n.cfg.EmailFrom,
		"To: " + to,
		"Subject: " + subject,
		"MIME-Version: 1.0",
		"Content-Type: text/html; charset=UTF-8",
		"",
		htmlBody,
	}, "\r\n")

	var auth smtp.Auth
	if n.cfg.SMTPUsername != "" {
		host := n.cfg.SMTPAddr
		if idx := strings.LastIndex(host, ":"); idx >= 0 {
			host = host[:idx]
		}
		auth = smtp.PlainAuth("", n.cfg.SMTPUsername, n.cfg.SMTPPassword, host)
	}

	if err := smtp.SendMail(n.cfg.SMTPAddr, auth, n.cfg.EmailFrom, []string{to}, []byte(msg)); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	n.logger.Debug("email sent", zap.String("to", to), zap.String("subject", subject))
	return nil
}

type logNotifier struct {
	logger *zap.Logger
}

func (n *logNotifier) Send(ctx context.Context, to, subject, htmlBody string) error {
	n.logger.Info("notification (log-only)",
		zap.String("to", to),
		zap.String("subject", subject),
	)
	return nil
}
