package export

import (
	"errors"
	"io"

	gomail "gopkg.in/gomail.v2"
)

// ErrMailNotConfigured means no SMTP host was provided at startup.
var ErrMailNotConfigured = errors.New("email transport not configured")

// Mailer sends workbook attachments over SMTP.
type Mailer struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	SSL      bool
}

// Configured reports whether the mailer has an SMTP host to dial.
func (m *Mailer) Configured() bool {
	return m != nil && m.Host != ""
}

// Send delivers an HTML message with a single xlsx attachment.
func (m *Mailer) Send(to, subject, htmlBody, filename string, attachment []byte) error {
	if !m.Configured() {
		return ErrMailNotConfigured
	}
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.From)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/html", htmlBody)
	msg.Attach(filename,
		gomail.SetCopyFunc(func(w io.Writer) error {
			_, err := w.Write(attachment)
			return err
		}),
		gomail.SetHeader(map[string][]string{"Content-Type": {ContentTypeXLSX}}),
	)

	dialer := gomail.NewDialer(m.Host, m.Port, m.Username, m.Password)
	dialer.SSL = m.SSL
	return dialer.DialAndSend(msg)
}
