package digest

import (
	"errors"
	"fmt"
	"net/smtp"
	"strings"
)

// Mailer sends the digest over SMTP with STARTTLS. Delivery reliability is
// out of scope; a failed send is just an error for the caller to log.
type Mailer struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

func (m *Mailer) Send(to, subject, htmlBody string) error {
	if m == nil || strings.TrimSpace(m.Username) == "" || strings.TrimSpace(m.Password) == "" {
		return errors.New("email credentials are not configured")
	}

	from := m.From
	if from == "" {
		from = m.Username
	}

	var msg strings.Builder
	fmt.Fprintf(&msg, "From: %s\r\n", from)
	fmt.Fprintf(&msg, "To: %s\r\n", to)
	fmt.Fprintf(&msg, "Subject: %s\r\n", subject)
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n")
	msg.WriteString("\r\n")
	msg.WriteString(htmlBody)

	addr := fmt.Sprintf("%s:%d", m.Host, m.Port)
	auth := smtp.PlainAuth("", m.Username, m.Password, m.Host)

	return smtp.SendMail(addr, auth, from, []string{to}, []byte(msg.String()))
}
