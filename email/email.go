package email

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"net/mail"
	"net/smtp"

	"github.com/isaackogan/YorkUChats/config"

	"github.com/rs/zerolog/log"
)

// DeliveryOutcome classifies the result of a code delivery attempt.
type DeliveryOutcome int

const (
	// DeliveryAccepted means the provider took the message.
	DeliveryAccepted DeliveryOutcome = iota
	// DeliveryInvalidAddress means the recipient address is unusable; the
	// caller should surface this as a client error.
	DeliveryInvalidAddress
	// DeliveryProviderFailure means the SMTP call itself failed.
	DeliveryProviderFailure
)

// Sender dispatches verification codes to an address.
type Sender interface {
	SendCode(toEmail, code string) DeliveryOutcome
}

// Service sends emails over SMTP. When disabled it logs codes instead of
// sending, which keeps local development working without a mail server.
type Service struct {
	cfg config.EmailConfig
}

// NewService creates a new email service
func NewService(cfg config.EmailConfig) *Service {
	return &Service{cfg: cfg}
}

// SendCode delivers a one-time verification code via email.
func (es *Service) SendCode(toEmail, code string) DeliveryOutcome {
	if _, err := mail.ParseAddress(toEmail); err != nil {
		log.Warn().Str("email", toEmail).Msg("Refusing to send code to invalid address")
		return DeliveryInvalidAddress
	}

	if !es.cfg.Enabled {
		log.Warn().Msg("Email service disabled - code not sent")
		log.Info().Str("email", toEmail).Str("code", code).Msg("Verification code (email disabled)")
		return DeliveryAccepted
	}

	subject := "Your Verification Code"
	body := fmt.Sprintf(`
<!DOCTYPE html>
<html>
<head>
    <style>
        body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; }
        .container { max-width: 600px; margin: 0 auto; padding: 20px; }
        .header { background: #c8102e; color: white; padding: 30px; text-align: center; border-radius: 10px 10px 0 0; }
        .content { background: #f9f9f9; padding: 30px; border-radius: 0 0 10px 10px; }
        .code { background: #c8102e; color: white; font-size: 32px; font-weight: bold; padding: 20px; text-align: center; border-radius: 8px; letter-spacing: 8px; margin: 20px 0; }
        .footer { text-align: center; margin-top: 20px; font-size: 12px; color: #666; }
    </style>
</head>
<body>
    <div class="container">
        <div class="header">
            <h1>Email Verification</h1>
        </div>
        <div class="content">
            <p>Hello,</p>
            <p>Use the following code to verify your address and submit your course link:</p>
            <div class="code">%s</div>
            <p>This code will expire in <strong>15 minutes</strong>.</p>
            <p>If you didn't request this code, please ignore this email.</p>
        </div>
        <div class="footer">
            <p>Course Links - crowd-sourced course resources.</p>
        </div>
    </div>
</body>
</html>
`, code)

	if err := es.sendEmail(toEmail, subject, body); err != nil {
		return DeliveryProviderFailure
	}
	return DeliveryAccepted
}

// sendEmail sends an email using SMTP
func (es *Service) sendEmail(to, subject, body string) error {
	from := fmt.Sprintf("%s <%s>", es.cfg.FromName, es.cfg.FromEmail)

	msg := []byte(fmt.Sprintf(
		"From: %s\r\n"+
			"To: %s\r\n"+
			"Subject: %s\r\n"+
			"MIME-Version: 1.0\r\n"+
			"Content-Type: text/html; charset=UTF-8\r\n"+
			"\r\n"+
			"%s\r\n",
		from, to, subject, body,
	))

	auth := smtp.PlainAuth("", es.cfg.SMTPUsername, es.cfg.SMTPPassword, es.cfg.SMTPHost)
	addr := fmt.Sprintf("%s:%s", es.cfg.SMTPHost, es.cfg.SMTPPort)

	err := smtp.SendMail(addr, auth, es.cfg.FromEmail, []string{to}, msg)
	if err != nil {
		log.Error().Err(err).Str("to", to).Msg("Failed to send email")
		return err
	}

	log.Info().Str("to", to).Str("subject", subject).Msg("Email sent successfully")
	return nil
}

// GenerateCode generates a random 6-digit verification code
func GenerateCode() (string, error) {
	max := big.NewInt(1000000)
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", err
	}

	// Ensure it's always 6 digits by padding with zeros
	return fmt.Sprintf("%06d", n.Int64()), nil
}
