// Package mail is the outbound mail collaborator: recipient, subject,
// HTML body. Delivery goes through plain SMTP.
package mail

import (
	"net/smtp"

	"github.com/rs/zerolog/log"

	"workspace-app/config"
)

type Message struct {
	To      string
	Subject string
	HTML    string
}

type Mailer struct {
	host     string
	port     string
	from     string
	password string
}

func NewMailer() *Mailer {
	return &Mailer{
		host:     config.SMTP_HOST,
		port:     config.SMTP_PORT,
		from:     config.SMTP_FROM,
		password: config.SMTP_PASSWORD,
	}
}

func (m *Mailer) Send(msg Message) error {
	auth := smtp.PlainAuth("", m.from, m.password, m.host)

	payload := []byte("Subject: " + msg.Subject + "\r\n" +
		"From: " + m.from + "\r\n" +
		"To: " + msg.To + "\r\n" +
		"MIME-Version: 1.0\r\n" +
		"Content-Type: text/html; charset=UTF-8\r\n" +
		"\r\n" +
		msg.HTML + "\r\n")

	err := smtp.SendMail(m.host+":"+m.port, auth, m.from, []string{msg.To}, payload)
	if err != nil {
		log.Error().Err(err).Str("to", msg.To).Msg("failed to send mail")
	}
	return err
}

// BatchSend delivers each message, returning the first error after
// attempting all of them.
func (m *Mailer) BatchSend(msgs []Message) error {
	var firstErr error
	for _, msg := range msgs {
		if err := m.Send(msg); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
