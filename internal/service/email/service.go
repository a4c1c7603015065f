// internal/service/email/service.go
package email

import (
	"crypto/tls"
	"fmt"
	"net/smtp"

	"github.com/oklog/ulid/v2"
)

// Sender is the delivery collaborator contract. Implementations return a
// provider message id on success.
type Sender interface {
	SendStructured(to, subject, htmlBody string) (string, error)
	SendRaw(to string, mime []byte) (string, error)
}

// SMTPSender delivers email over SMTP, either implicit TLS (465) or
// STARTTLS (587).
type SMTPSender struct {
	smtpHost string
	smtpPort string
	username string
	password string
	fromName string
	secure   bool
}

func NewSMTPSender(host, port, user, pass, fromName string, secure bool) *SMTPSender {
	return &SMTPSender{
		smtpHost: host,
		smtpPort: port,
		username: user,
		password: pass,
		fromName: fromName,
		secure:   secure,
	}
}

// SendStructured sends an HTML email with a subject and returns the
// message id assigned to the delivery.
func (e *SMTPSender) SendStructured(to, subject, htmlBody string) (string, error) {
	messageID := ulid.Make().String()
	from := fmt.Sprintf("%s <%s>", e.fromName, e.username)
	msg := []byte(
		fmt.Sprintf("From: %s\r\n", from) +
			fmt.Sprintf("To: %s\r\n", to) +
			fmt.Sprintf("Subject: %s\r\n", subject) +
			fmt.Sprintf("Message-ID: <%s@%s>\r\n", messageID, e.smtpHost) +
			"MIME-Version: 1.0\r\n" +
			"Content-Type: text/html; charset=\"utf-8\"\r\n" +
			"\r\n" +
			htmlBody,
	)

	if err := e.deliver(to, msg); err != nil {
		return "", err
	}
	return messageID, nil
}

// SendRaw sends a pre-built MIME message (used for PDF attachments) and
// returns the message id assigned to the delivery.
func (e *SMTPSender) SendRaw(to string, mime []byte) (string, error) {
	messageID := ulid.Make().String()
	if err := e.deliver(to, mime); err != nil {
		return "", err
	}
	return messageID, nil
}

func (e *SMTPSender) deliver(to string, msg []byte) error {
	serverAddr := e.smtpHost + ":" + e.smtpPort

	tlsConfig := &tls.Config{
		InsecureSkipVerify: false,
		ServerName:         e.smtpHost,
	}

	if e.secure {
		// Port 465 - implicit TLS
		conn, err := tls.Dial("tcp", serverAddr, tlsConfig)
		if err != nil {
			return fmt.Errorf("tls dial failed: %w", err)
		}
		defer conn.Close()

		client, err := smtp.NewClient(conn, e.smtpHost)
		if err != nil {
			return fmt.Errorf("smtp client failed: %w", err)
		}
		defer client.Quit()

		auth := smtp.PlainAuth("", e.username, e.password, e.smtpHost)
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("auth failed: %w", err)
		}

		return e.sendMail(client, to, msg)
	}

	// Port 587 - STARTTLS
	auth := smtp.PlainAuth("", e.username, e.password, e.smtpHost)
	if err := smtp.SendMail(serverAddr, auth, e.username, []string{to}, msg); err != nil {
		return fmt.Errorf("send mail failed: %w", err)
	}

	return nil
}

func (e *SMTPSender) sendMail(client *smtp.Client, to string, msg []byte) error {
	if err := client.Mail(e.username); err != nil {
		return fmt.Errorf("MAIL FROM failed: %w", err)
	}
	if err := client.Rcpt(to); err != nil {
		return fmt.Errorf("RCPT TO failed: %w", err)
	}
	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("DATA failed: %w", err)
	}
	if _, err := w.Write(msg); err != nil {
		return fmt.Errorf("write failed: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("close failed: %w", err)
	}
	return nil
}

// FromAddress returns the configured sender address with display name.
func (e *SMTPSender) FromAddress() string {
	return fmt.Sprintf("%s <%s>", e.fromName, e.username)
}
