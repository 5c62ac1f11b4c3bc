package mail

import (
	"encoding/base64"
	"fmt"
	"mime"
	"strings"
	"time"
)

// threading carries the headers that keep a reply inside its thread.
type threading struct {
	inReplyTo  string
	references string
}

func (t threading) write(b *strings.Builder) {
	if t.inReplyTo == "" {
		return
	}
	fmt.Fprintf(b, "In-Reply-To: %s\r\n", t.inReplyTo)
	refs := strings.TrimSpace(t.references + " " + t.inReplyTo)
	fmt.Fprintf(b, "References: %s\r\n", refs)
}

// buildText assembles a plain-text RFC 5322 message and returns it
// base64url-encoded, ready for the messages.send raw field.
func buildText(to, subject, body string, th threading) string {
	var b strings.Builder
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", encodeHeader(subject))
	th.write(&b)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=\"UTF-8\"\r\n")
	b.WriteString("Content-Transfer-Encoding: base64\r\n")
	b.WriteString("\r\n")
	b.WriteString(wrapBase64(base64.StdEncoding.EncodeToString([]byte(body))))
	return base64.RawURLEncoding.EncodeToString([]byte(b.String()))
}

// buildWithPhoto assembles a multipart message with a text part and a
// JPEG attachment, base64url-encoded for messages.send.
func buildWithPhoto(to, subject, body string, th threading, photo []byte) string {
	if body == "" {
		body = "写真を送ります。"
	}
	boundary := fmt.Sprintf("=_necklace_%d", time.Now().UnixNano())
	filename := "photo_" + time.Now().Format("20060102_150405") + ".jpg"

	var b strings.Builder
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", encodeHeader(subject))
	th.write(&b)
	b.WriteString("MIME-Version: 1.0\r\n")
	fmt.Fprintf(&b, "Content-Type: multipart/mixed; boundary=\"%s\"\r\n", boundary)
	b.WriteString("\r\n")

	fmt.Fprintf(&b, "--%s\r\n", boundary)
	b.WriteString("Content-Type: text/plain; charset=\"UTF-8\"\r\n")
	b.WriteString("Content-Transfer-Encoding: base64\r\n")
	b.WriteString("\r\n")
	b.WriteString(wrapBase64(base64.StdEncoding.EncodeToString([]byte(body))))
	b.WriteString("\r\n")

	fmt.Fprintf(&b, "--%s\r\n", boundary)
	b.WriteString("Content-Type: image/jpeg\r\n")
	b.WriteString("Content-Transfer-Encoding: base64\r\n")
	fmt.Fprintf(&b, "Content-Disposition: attachment; filename=\"%s\"\r\n", filename)
	b.WriteString("\r\n")
	b.WriteString(wrapBase64(base64.StdEncoding.EncodeToString(photo)))
	b.WriteString("\r\n")

	fmt.Fprintf(&b, "--%s--\r\n", boundary)
	return base64.RawURLEncoding.EncodeToString([]byte(b.String()))
}

// encodeHeader RFC 2047 encodes a header value when it carries
// non-ASCII text, which Japanese subjects always do.
func encodeHeader(v string) string {
	return mime.BEncoding.Encode("UTF-8", v)
}

// wrapBase64 folds base64 text at 76 columns per RFC 2045.
func wrapBase64(s string) string {
	const width = 76
	var b strings.Builder
	for len(s) > width {
		b.WriteString(s[:width])
		b.WriteString("\r\n")
		s = s[width:]
	}
	b.WriteString(s)
	b.WriteString("\r\n")
	return b.String()
}
