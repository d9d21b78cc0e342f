package autorespond

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"
)

const replySubjectPrefix = "Re: "

var emailReplyTemplate = template.Must(template.New("email_reply").Option("missingkey=error").Parse(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; color: #222;">
  <div>{{range .ReplyLines}}<p>{{.}}</p>{{end}}</div>
  {{if .BusinessName}}<p>{{.BusinessName}}</p>{{end}}
  <hr style="border: none; border-top: 1px solid #ddd;">
  <div style="color: #666;">
    <p>On {{.ReceivedAt}}, {{.From}} wrote:</p>
    <blockquote style="margin: 0 0 0 8px; padding-left: 8px; border-left: 2px solid #ccc;">{{range .OriginalLines}}{{.}}<br>{{end}}</blockquote>
  </div>
</body>
</html>`))

type emailReplyView struct {
	ReplyLines    []string
	OriginalLines []string
	BusinessName  string
	From          string
	ReceivedAt    string
}

// renderEmailReply wraps the reply and the quoted original in the HTML envelope.
func renderEmailReply(msg InboundMessage, reply, businessName string) (string, error) {
	received := msg.ReceivedAt
	view := emailReplyView{
		ReplyLines:    splitParagraphs(reply),
		OriginalLines: strings.Split(strings.TrimSpace(msg.Body), "\n"),
		BusinessName:  businessName,
		From:          msg.From,
		ReceivedAt:    received.Format("Mon, Jan 2, 2006 at 3:04 PM"),
	}
	var buf bytes.Buffer
	if err := emailReplyTemplate.Execute(&buf, view); err != nil {
		return "", fmt.Errorf("autorespond: render email: %w", err)
	}
	return buf.String(), nil
}

// replySubject prefixes the original subject with "Re: " once.
func replySubject(subject string) string {
	subject = strings.TrimSpace(subject)
	if strings.HasPrefix(strings.ToLower(subject), strings.ToLower(replySubjectPrefix)) {
		return subject
	}
	return replySubjectPrefix + subject
}

func splitParagraphs(text string) []string {
	var out []string
	for _, p := range strings.Split(strings.TrimSpace(text), "\n") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
