package services

import (
	"fmt"
	"net/smtp"
	"os"
	"strings"

	"backend/models"

	"golang.org/x/net/html"
)

// EmailService sends indent notifications over SMTP. Delivery is best-effort;
// callers treat failures as log-and-continue.
type EmailService struct {
	host     string
	port     string
	username string
	password string
	from     string
}

// NewEmailService reads the SMTP configuration from the environment.
func NewEmailService() *EmailService {
	return &EmailService{
		host:     os.Getenv("SMTP_HOST"),
		port:     os.Getenv("SMTP_PORT"),
		username: os.Getenv("SMTP_USERNAME"),
		password: os.Getenv("SMTP_PASSWORD"),
		from:     os.Getenv("SMTP_FROM"),
	}
}

// Configured reports whether enough SMTP settings are present to send.
func (es *EmailService) Configured() bool {
	return es.host != "" && es.port != "" && es.from != ""
}

const decisionTemplate = `
<html><body>
<p>Dear {{recipient_name}},</p>
<p>Indent <b>#{{serial_number}}</b> ({{route}}) is now <b>{{status}}</b>.</p>
<p>Decided by: {{actor_name}}</p>
{{reason_block}}
<p>This is an automated message from the transport indent system.</p>
</body></html>`

// SendIndentDecisionEmail notifies a requestor that their indent reached a
// terminal decision.
func (es *EmailService) SendIndentDecisionEmail(to string, data models.EmailData) error {
	reasonBlock := ""
	if data.Reason != "" {
		reasonBlock = "<p>Reason: " + data.Reason + "</p>"
	}
	body := strings.NewReplacer(
		"{{recipient_name}}", data.RecipientName,
		"{{serial_number}}", fmt.Sprintf("%d", data.SerialNumber),
		"{{route}}", data.Route,
		"{{status}}", data.Status,
		"{{actor_name}}", data.ActorName,
		"{{reason_block}}", reasonBlock,
	).Replace(decisionTemplate)

	subject := fmt.Sprintf("Indent #%d %s", data.SerialNumber, data.Status)
	return es.Send(to, subject, body)
}

// Send delivers one HTML email as multipart/alternative, with a plain-text
// rendering of the same body for clients that don't show HTML.
func (es *EmailService) Send(to, subject, htmlBody string) error {
	if !es.Configured() {
		return fmt.Errorf("smtp is not configured")
	}

	var auth smtp.Auth
	if es.username != "" {
		auth = smtp.PlainAuth("", es.username, es.password, es.host)
	}

	const boundary = "indent-mail-boundary"
	plain := convertHTMLToText(htmlBody)

	headers := []string{
		"From: " + es.from,
		"To: " + to,
		"Subject: " + subject,
		"MIME-Version: 1.0",
		"Content-Type: multipart/alternative; boundary=" + boundary,
		"",
		"--" + boundary,
		"Content-Type: text/plain; charset=UTF-8",
		"",
		plain,
		"--" + boundary,
		"Content-Type: text/html; charset=UTF-8",
		"",
		htmlBody,
		"--" + boundary + "--",
	}
	msg := []byte(strings.Join(headers, "\r\n") + "\r\n")

	return smtp.SendMail(es.host+":"+es.port, auth, es.from, []string{to}, msg)
}

// convertHTMLToText strips markup from an HTML body for the plain-text part.
func convertHTMLToText(htmlContent string) string {
	doc, err := html.Parse(strings.NewReader(htmlContent))
	if err != nil {
		return htmlContent
	}

	var text strings.Builder
	var extractText func(*html.Node)
	extractText = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			text.WriteString(n.Data)
		case html.ElementNode:
			switch n.Data {
			case "p", "div", "br", "table", "tr":
				text.WriteString("\n")
			case "li":
				text.WriteString("- ")
			case "td", "th":
				text.WriteString(" | ")
			}
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			extractText(child)
		}
	}
	extractText(doc)

	result := text.String()
	result = strings.ReplaceAll(result, "\n\n\n", "\n\n")
	return strings.TrimSpace(result)
}
