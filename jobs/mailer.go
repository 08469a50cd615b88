package jobs

import (
	"context"
	"fmt"
	"net/smtp"
)

// SMTPMailer delivers verification codes over plain SMTP.
type SMTPMailer struct {
	addr string
	from string
}

// NewSMTPMailer constructs a mailer for the given host, port and sender.
func NewSMTPMailer(host string, port int, from string) *SMTPMailer {
	return &SMTPMailer{addr: fmt.Sprintf("%s:%d", host, port), from: from}
}

// Deliver sends the code to the recipient.
func (m *SMTPMailer) Deliver(_ context.Context, to, subject, code string) error {
	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\nYour verification code is %s\r\n", m.from, to, subject, code)
	if err := smtp.SendMail(m.addr, nil, m.from, []string{to}, []byte(msg)); err != nil {
		return fmt.Errorf("jobs: send mail to %s: %w", to, err)
	}
	return nil
}
