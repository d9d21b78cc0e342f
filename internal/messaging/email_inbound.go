package messaging

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/mail"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

const maxInboundEmailBytes = 10 << 20

// InboundEmail is a provider-neutral inbound email.
type InboundEmail struct {
	From      string `json:"from"`
	To        string `json:"to"`
	Subject   string `json:"subject"`
	Text      string `json:"text"`
	MessageID string `json:"message_id"`
}

// ParseInboundEmail reads either a SendGrid Inbound Parse form post or a JSON body.
// Addresses are reduced to the bare, lowercased address.
func ParseInboundEmail(r *http.Request) (*InboundEmail, error) {
	r.Body = http.MaxBytesReader(nil, r.Body, maxInboundEmailBytes)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	var (
		email *InboundEmail
		err   error
	)
	switch mediaType {
	case "application/json":
		email, err = parseJSONEmail(r.Body)
	case "multipart/form-data", "application/x-www-form-urlencoded":
		email, err = parseSendGridForm(r)
	default:
		return nil, fmt.Errorf("messaging: unsupported content type %q", mediaType)
	}
	if err != nil {
		return nil, err
	}

	if email.From, err = bareAddress(email.From); err != nil {
		return nil, fmt.Errorf("messaging: from: %w", err)
	}
	if email.To, err = bareAddress(email.To); err != nil {
		return nil, fmt.Errorf("messaging: to: %w", err)
	}
	email.Subject = strings.TrimSpace(email.Subject)
	email.MessageID = strings.TrimSpace(email.MessageID)
	return email, nil
}

func parseJSONEmail(body io.Reader) (*InboundEmail, error) {
	var email InboundEmail
	if err := json.NewDecoder(body).Decode(&email); err != nil {
		return nil, fmt.Errorf("messaging: decode email json: %w", err)
	}
	return &email, nil
}

func parseSendGridForm(r *http.Request) (*InboundEmail, error) {
	if err := r.ParseMultipartForm(maxInboundEmailBytes); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		return nil, fmt.Errorf("messaging: parse inbound form: %w", err)
	}
	email := &InboundEmail{
		From:    r.FormValue("from"),
		To:      r.FormValue("to"),
		Subject: r.FormValue("subject"),
		Text:    r.FormValue("text"),
	}
	if email.Text == "" {
		email.Text = htmlText(r.FormValue("html"))
	}
	email.MessageID = headerValue(r.FormValue("headers"), "Message-Id")
	return email, nil
}

// headerValue pulls one header out of the raw header block SendGrid forwards.
func headerValue(raw, key string) string {
	if strings.TrimSpace(raw) == "" {
		return ""
	}
	raw = strings.ReplaceAll(raw, "\r\n", "\n")
	msg, err := mail.ReadMessage(strings.NewReader(strings.TrimRight(raw, "\n") + "\n\n"))
	if err != nil {
		return ""
	}
	return msg.Header.Get(key)
}

// bareAddress takes the first address from a header value such as
// `"Jane Doe" <Jane@Example.com>, other@example.com`.
func bareAddress(value string) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", errors.New("address required")
	}
	list, err := mail.ParseAddressList(value)
	if err != nil || len(list) == 0 {
		return "", fmt.Errorf("invalid address %q", value)
	}
	return strings.ToLower(list[0].Address), nil
}

// inlineTags do not break words when stripped.
var inlineTags = map[atom.Atom]bool{
	atom.A: true, atom.Abbr: true, atom.B: true, atom.Em: true, atom.Font: true,
	atom.I: true, atom.Small: true, atom.Span: true, atom.Strong: true,
	atom.Sub: true, atom.Sup: true, atom.U: true,
}

// htmlText flattens HTML-only mail to plain text. Script, style and head content is
// dropped and entities are decoded.
func htmlText(doc string) string {
	var (
		b    strings.Builder
		skip int
	)
	z := html.NewTokenizer(strings.NewReader(doc))
	for {
		switch z.Next() {
		case html.ErrorToken:
			return strings.Join(strings.Fields(b.String()), " ")
		case html.TextToken:
			if skip == 0 {
				b.Write(z.Text())
			}
		case html.StartTagToken:
			tok := z.Token()
			if hiddenTag(tok.DataAtom) {
				skip++
			} else if !inlineTags[tok.DataAtom] {
				b.WriteByte(' ')
			}
		case html.EndTagToken:
			tok := z.Token()
			if hiddenTag(tok.DataAtom) {
				if skip > 0 {
					skip--
				}
			} else if !inlineTags[tok.DataAtom] {
				b.WriteByte(' ')
			}
		case html.SelfClosingTagToken:
			if tok := z.Token(); !inlineTags[tok.DataAtom] {
				b.WriteByte(' ')
			}
		}
	}
}

func hiddenTag(a atom.Atom) bool {
	switch a {
	case atom.Script, atom.Style, atom.Head, atom.Title, atom.Noscript, atom.Template:
		return true
	}
	return false
}

func tokensEqual(got, want string) bool {
	return subtle.ConstantTimeCompare([]byte(got), []byte(want)) == 1
}
