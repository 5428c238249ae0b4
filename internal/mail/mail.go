// Package mail delivers invite links by email. Delivery is best-effort:
// callers treat failures as a degraded outcome, never as a fatal error.
package mail

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"net/smtp"

	"kbhub/internal/domain"
)

var inviteTemplate = template.Must(template.New("invite").Parse(`
<p>Hi {{.Name}},</p>
<p>You have been invited to join the workspace. Follow the link below to set
your password and activate your account:</p>
<p><a href="{{.Link}}">{{.Link}}</a></p>
<p>The invitation expires automatically. If you were not expecting this email
you can ignore it.</p>
`))

var _ domain.MailSender = (*SMTPSender)(nil)

// SMTPSender sends invite mail through a plain SMTP server.
type SMTPSender struct {
	host     string // e.g. smtp.example.com
	port     string
	from     string
	password string
}

// NewSMTPSender creates a sender authenticating as from against host:port.
func NewSMTPSender(host, port, from, password string) *SMTPSender {
	return &SMTPSender{host: host, port: port, from: from, password: password}
}

// SendInvite implements domain.MailSender.
func (s *SMTPSender) SendInvite(_ context.Context, email, name, link string) error {
	var body bytes.Buffer
	data := struct {
		Name string
		Link string
	}{Name: name, Link: link}
	if err := inviteTemplate.Execute(&body, data); err != nil {
		return fmt.Errorf("render invite mail: %w", err)
	}

	msg := []byte("To: " + email + "\r\n" +
		"From: " + s.from + "\r\n" +
		"Subject: You have been invited\r\n" +
		"MIME-Version: 1.0\r\n" +
		"Content-Type: text/html; charset=\"UTF-8\"\r\n" +
		"\r\n" + body.String())

	auth := smtp.PlainAuth("", s.from, s.password, s.host)
	if err := smtp.SendMail(s.host+":"+s.port, auth, s.from, []string{email}, msg); err != nil {
		return fmt.Errorf("send invite mail to %s: %w", email, err)
	}
	return nil
}

var _ domain.MailSender = (*MemorySender)(nil)

// MemorySender records sent mail in memory. Used in development mode and
// tests; can be told to fail to exercise the best-effort path.
type MemorySender struct {
	Sent []SentMail
	Fail bool
}

// SentMail is one recorded delivery.
type SentMail struct {
	Email string
	Name  string
	Link  string
}

// SendInvite implements domain.MailSender.
func (s *MemorySender) SendInvite(_ context.Context, email, name, link string) error {
	if s.Fail {
		return fmt.Errorf("mail delivery failed for %s", email)
	}
	s.Sent = append(s.Sent, SentMail{Email: email, Name: name, Link: link})
	return nil
}
