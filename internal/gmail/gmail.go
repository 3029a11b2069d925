// Package gmail exports outreach drafts into a Gmail drafts folder.
package gmail

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"html"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net/mail"
	"net/textproto"
	"strings"
	"time"

	gm "google.golang.org/api/gmail/v1"
)

// Message is an outgoing email built from a candidate draft.
type Message struct {
	From    string
	To      string
	Subject string
	Body    string
	HTML    string
}

// DraftRef identifies a draft created in Gmail.
type DraftRef struct {
	ID        string `json:"id"`
	MessageID string `json:"message_id"`
	ThreadID  string `json:"thread_id,omitempty"`
}

// CreateDraft stores m as a new draft in the authenticated user's mailbox.
func CreateDraft(ctx context.Context, svc *gm.Service, m Message) (*DraftRef, error) {
	raw, err := BuildRaw(m)
	if err != nil {
		return nil, err
	}
	d, err := svc.Users.Drafts.Create("me", &gm.Draft{
		Message: &gm.Message{Raw: base64.URLEncoding.EncodeToString(raw)},
	}).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("create draft: %w", err)
	}
	ref := &DraftRef{ID: d.Id}
	if d.Message != nil {
		ref.MessageID = d.Message.Id
		ref.ThreadID = d.Message.ThreadId
	}
	return ref, nil
}

// BuildRaw renders m as an RFC 5322 message. A message with HTML becomes
// multipart/alternative with the plain body first.
func BuildRaw(m Message) ([]byte, error) {
	if m.To != "" {
		if _, err := mail.ParseAddress(m.To); err != nil {
			return nil, fmt.Errorf("invalid recipient %q: %w", m.To, err)
		}
	}

	var buf bytes.Buffer
	header := func(k, v string) {
		fmt.Fprintf(&buf, "%s: %s\r\n", k, v)
	}
	if m.From != "" {
		header("From", m.From)
	}
	if m.To != "" {
		header("To", m.To)
	}
	header("Subject", mime.QEncoding.Encode("utf-8", m.Subject))
	header("Date", time.Now().Format(time.RFC1123Z))
	header("MIME-Version", "1.0")

	if m.HTML == "" {
		header("Content-Type", `text/plain; charset="utf-8"`)
		header("Content-Transfer-Encoding", "quoted-printable")
		buf.WriteString("\r\n")
		if err := writeQP(&buf, m.Body); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	}

	mw := multipart.NewWriter(&buf)
	header("Content-Type", fmt.Sprintf("multipart/alternative; boundary=%q", mw.Boundary()))
	buf.WriteString("\r\n")

	parts := []struct{ ctype, body string }{
		{`text/plain; charset="utf-8"`, m.Body},
		{`text/html; charset="utf-8"`, htmlBody(m)},
	}
	for _, p := range parts {
		w, err := mw.CreatePart(textproto.MIMEHeader{
			"Content-Type":              {p.ctype},
			"Content-Transfer-Encoding": {"quoted-printable"},
		})
		if err != nil {
			return nil, fmt.Errorf("create part: %w", err)
		}
		if err := writeQP(w, p.body); err != nil {
			return nil, err
		}
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("close multipart: %w", err)
	}
	return buf.Bytes(), nil
}

// htmlBody places the plain body above the HTML asset, paragraph by paragraph.
func htmlBody(m Message) string {
	var b strings.Builder
	for _, para := range strings.Split(strings.TrimSpace(m.Body), "\n\n") {
		if para == "" {
			continue
		}
		b.WriteString("<p>")
		b.WriteString(strings.ReplaceAll(html.EscapeString(para), "\n", "<br>"))
		b.WriteString("</p>\n")
	}
	b.WriteString(m.HTML)
	return b.String()
}

func writeQP(w interface{ Write([]byte) (int, error) }, s string) error {
	qp := quotedprintable.NewWriter(w)
	if _, err := qp.Write([]byte(s)); err != nil {
		return fmt.Errorf("encode body: %w", err)
	}
	return qp.Close()
}
