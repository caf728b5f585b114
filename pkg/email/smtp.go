package email

import (
	"crypto/tls"
	"fmt"
	"net"
	"net/smtp"
	"strings"

	"github.com/traceyhq/tracey/backend/pkg/config"
)

// EmailService sends transactional mail over SMTP
type EmailService struct {
	cfg *config.Config
}

// NewEmailService creates a new EmailService
func NewEmailService(cfg *config.Config) *EmailService {
	return &EmailService{cfg: cfg}
}

// SendMatchEmail sends the "we found a match" email for a match with
// the given similarity score and item category
func (s *EmailService) SendMatchEmail(to string, score float64, matchID, itemCategory string) error {
	if s.cfg.EmailHost == "" || s.cfg.EmailUser == "" {
		return fmt.Errorf("email service not configured")
	}
	if to == "" || !strings.Contains(to, "@") {
		return fmt.Errorf("invalid recipient email address")
	}

	if itemCategory == "" {
		itemCategory = "item"
	}
	matchURL := fmt.Sprintf("%s/matches/%s", s.cfg.AppBaseURL, matchID)
	percent := fmt.Sprintf("%.0f%%", score*100)

	subject := fmt.Sprintf("We Found Your Lost %s!", itemCategory)
	body := fmt.Sprintf(`
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
</head>
<body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333;">
    <div style="max-width: 600px; margin: 0 auto; padding: 20px;">
        <h2 style="color: #667eea;">We Found a Match!</h2>
        <p>Someone reported finding an item that matches your lost <strong>%s</strong>.</p>
        <div style="background-color: #f4f4f4; padding: 20px; border-radius: 5px; text-align: center; margin: 20px 0;">
            <p style="margin: 0; font-size: 14px; color: #666;">Match Confidence</p>
            <h1 style="color: #667eea; font-size: 36px; margin: 0;">%s</h1>
        </div>
        <p>This is a high-confidence match based on AI analysis of the item descriptions and images.</p>
        <div style="text-align: center; margin: 30px 0;">
            <a href="%s" style="display: inline-block; background: #667eea; color: white; padding: 14px 32px; text-decoration: none; border-radius: 6px; font-weight: 600;">View Match Details</a>
        </div>
        <ol style="color: #555;">
            <li>Review the match details and photos</li>
            <li>Contact the finder to arrange pickup</li>
        </ol>
        <hr style="border: none; border-top: 1px solid #eee; margin: 30px 0;">
        <p style="color: #999; font-size: 12px;">
            This is an automated notification from <strong>Tracey</strong>.<br>
            Helping reunite people with their lost items.
        </p>
    </div>
</body>
</html>
`, itemCategory, percent, matchURL)

	return s.sendEmail(to, subject, body)
}

// sendEmail sends an email using SMTP
func (s *EmailService) sendEmail(to, subject, body string) error {
	from := s.cfg.EmailUser

	displayFrom := from
	if s.cfg.EmailFrom != "" {
		displayFrom = fmt.Sprintf("Tracey <%s>", from)
	}

	auth := smtp.PlainAuth("", s.cfg.EmailUser, s.cfg.EmailPassword, s.cfg.EmailHost)

	headers := make(map[string]string)
	headers["From"] = displayFrom
	headers["To"] = to
	headers["Subject"] = subject
	headers["MIME-Version"] = "1.0"
	headers["Content-Type"] = "text/html; charset=UTF-8"

	message := ""
	for k, v := range headers {
		message += fmt.Sprintf("%s: %s\r\n", k, v)
	}
	message += "\r\n" + body

	addr := fmt.Sprintf("%s:%d", s.cfg.EmailHost, s.cfg.EmailPort)

	if s.cfg.EmailUseTLS {
		return s.sendMailTLS(addr, auth, from, []string{to}, []byte(message))
	}

	return smtp.SendMail(addr, auth, from, []string{to}, []byte(message))
}

// sendMailTLS sends email with STARTTLS
func (s *EmailService) sendMailTLS(addr string, auth smtp.Auth, from string, to []string, msg []byte) error {
	host := strings.Split(addr, ":")[0]
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to dial: %w", err)
	}
	defer conn.Close()

	client, err := smtp.NewClient(conn, host)
	if err != nil {
		return fmt.Errorf("failed to create client: %w", err)
	}
	defer client.Close()

	tlsConfig := &tls.Config{
		ServerName: host,
	}
	if err = client.StartTLS(tlsConfig); err != nil {
		return fmt.Errorf("failed to start TLS: %w", err)
	}

	if auth != nil {
		if err = client.Auth(auth); err != nil {
			return fmt.Errorf("failed to authenticate: %w", err)
		}
	}

	if err = client.Mail(from); err != nil {
		return fmt.Errorf("failed to set sender: %w", err)
	}

	for _, addr := range to {
		if err = client.Rcpt(addr); err != nil {
			return fmt.Errorf("failed to set recipient: %w", err)
		}
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("failed to get data writer: %w", err)
	}

	if _, err = w.Write(msg); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}

	if err = w.Close(); err != nil {
		return fmt.Errorf("failed to close data writer: %w", err)
	}

	return client.Quit()
}
