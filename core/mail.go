package core

import (
	"bytes"
	htmltmpl "html/template"
	"net/mail"
)

var htmlBody = htmltmpl.Must(htmltmpl.New("body").Parse(
	`<html><body>{{range .}}<p>{{.}}</p>{{end}}</body></html>`,
))

type (
	EmailMessage struct {
		To      []mail.Address
		Cc      []mail.Address
		Subject string
		Lines   []string // paragraphs of the plain body

		TextContent string
		HTMLContent string
	}

	// EmailService is any service that can send emails
	EmailService interface {
		// SendMessages sends messages concurrently
		SendMessages(messages ...*EmailMessage)
	}
)

// Render fills TextContent and HTMLContent from Lines.
func (m *EmailMessage) Render() error {
	var text bytes.Buffer
	for _, l := range m.Lines {
		text.WriteString(l)
		text.WriteString("\r\n")
	}
	m.TextContent = text.String()

	var html bytes.Buffer
	if err := htmlBody.Execute(&html, m.Lines); err != nil {
		return err
	}
	m.HTMLContent = html.String()
	return nil
}

func (m *EmailMessage) HasRecipients() bool { return len(m.To) > 0 }
func (m *EmailMessage) HasContent() bool    { return (m.TextContent != "") || (m.HTMLContent != "") }
