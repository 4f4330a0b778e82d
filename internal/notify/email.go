package notify

import (
	"bytes"
	"fmt"
	"html/template"

	"gopkg.in/gomail.v2"
)

const alertEmailTemplate = `
<html>
<body>
  <h2>{{.Title}}</h2>
  <p>{{.Body}}</p>
  <p>Open the Hearth app to respond.</p>
</body>
</html>`

type AlertMailer struct {
	dialer *gomail.Dialer
	from   string
	tmpl   *template.Template
}

func NewAlertMailer(host string, port int, username, password, from string) *AlertMailer {
	return &AlertMailer{
		dialer: gomail.NewDialer(host, port, username, password),
		from:   from,
		tmpl:   template.Must(template.New("alert").Parse(alertEmailTemplate)),
	}
}

func (m *AlertMailer) SendAlertEmail(to string, p Payload) error {
	buf := new(bytes.Buffer)
	if err := m.tmpl.Execute(buf, p); err != nil {
		return fmt.Errorf("failed to execute alert email template: %w", err)
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", p.Title)
	msg.SetBody("text/html", buf.String())

	return m.dialer.DialAndSend(msg)
}
