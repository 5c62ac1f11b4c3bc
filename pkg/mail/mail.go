package mail

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// Wire types for the fraction of the Gmail message resource we touch.

type listResponse struct {
	Messages []struct {
		ID       string `json:"id"`
		ThreadID string `json:"threadId"`
	} `json:"messages"`
}

type message struct {
	ID       string   `json:"id"`
	ThreadID string   `json:"threadId"`
	Payload  *payload `json:"payload"`
}

type payload struct {
	MimeType string    `json:"mimeType"`
	Headers  []header  `json:"headers"`
	Body     *partBody `json:"body"`
	Parts    []payload `json:"parts"`
}

type header struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type partBody struct {
	Data string `json:"data"`
}

func (p *payload) header(name string) string {
	if p == nil {
		return ""
	}
	for _, h := range p.Headers {
		if strings.EqualFold(h.Name, name) {
			return h.Value
		}
	}
	return ""
}

// text finds the plain-text body: either the top-level body or the
// first text/plain part of a multipart message.
func (p *payload) text() string {
	if p == nil {
		return ""
	}
	if p.Body != nil && p.Body.Data != "" {
		if b, err := decodeBody(p.Body.Data); err == nil {
			return string(b)
		}
	}
	for i := range p.Parts {
		part := &p.Parts[i]
		if part.MimeType == "text/plain" && part.Body != nil && part.Body.Data != "" {
			if b, err := decodeBody(part.Body.Data); err == nil {
				return string(b)
			}
		}
	}
	return ""
}

// decodeBody decodes the base64url body data, which the API may return
// with or without padding.
func decodeBody(data string) ([]byte, error) {
	return base64.RawURLEncoding.DecodeString(strings.TrimRight(data, "="))
}

const readBodyLimit = 500

// List fetches message summaries matching query, captures them in the
// Rolodex, and returns a numbered listing for the assistant to speak.
// Empty query and non-positive maxResults fall back to the defaults.
func (c *Client) List(ctx context.Context, query string, maxResults int) (string, error) {
	if query == "" {
		query = DefaultQuery
	}
	if maxResults <= 0 {
		maxResults = DefaultMaxResults
	}

	q := url.Values{}
	q.Set("q", query)
	q.Set("maxResults", strconv.Itoa(maxResults))

	var list listResponse
	if err := c.http.request(ctx, http.MethodGet, "/gmail/v1/users/me/messages?"+q.Encode(), nil, &list); err != nil {
		return "", err
	}
	if len(list.Messages) == 0 {
		c.Rolodex.Replace(nil)
		return "該当するメールはありません", nil
	}

	var (
		entries []Summary
		lines   []string
	)
	for i, m := range list.Messages {
		meta, err := c.getMessage(ctx, m.ID, "metadata", "From", "Subject", "Date")
		if err != nil {
			return "", err
		}
		from := meta.Payload.header("From")
		if from == "" {
			from = "不明"
		}
		subject := meta.Payload.header("Subject")
		if subject == "" {
			subject = "(件名なし)"
		}
		s := Summary{
			ID:        m.ID,
			FromName:  DisplayName(from),
			FromEmail: from,
			Subject:   subject,
			Date:      meta.Payload.header("Date"),
		}
		entries = append(entries, s)
		lines = append(lines, fmt.Sprintf("%d. %sさんから: %s", i+1, s.FromName, s.Subject))
	}
	c.Rolodex.Replace(entries)

	return "メール一覧:\n" + strings.Join(lines, "\n"), nil
}

// Read fetches a message body by Gmail message ID and formats it for
// speech. The body is cut at 500 runes; spoken email does not need more.
func (c *Client) Read(ctx context.Context, messageID string) (string, error) {
	msg, err := c.getMessage(ctx, messageID, "full")
	if err != nil {
		return "", err
	}

	body := msg.Payload.text()
	if runes := []rune(body); len(runes) > readBodyLimit {
		body = string(runes[:readBodyLimit]) + "...(以下省略)"
	}

	from := msg.Payload.header("From")
	if from == "" {
		from = "不明"
	}
	subject := msg.Payload.header("Subject")
	if subject == "" {
		subject = "(件名なし)"
	}

	return fmt.Sprintf("送信者: %s\n件名: %s\n\n本文:\n%s", DisplayName(from), subject, body), nil
}

// Send sends a new plain-text message.
func (c *Client) Send(ctx context.Context, to, subject, body string) (string, error) {
	raw := buildText(to, subject, body, threading{})
	if err := c.send(ctx, raw, ""); err != nil {
		return "", err
	}
	return to + "にメールを送信しました", nil
}

// Reply sends a reply in the original message's thread. toEmail
// overrides the recipient; otherwise Reply-To then From is used.
// A non-nil photo is attached as a JPEG.
func (c *Client) Reply(ctx context.Context, messageID, body, toEmail string, photo []byte) (string, error) {
	original, err := c.getMessage(ctx, messageID, "metadata",
		"From", "Subject", "Message-ID", "References", "Reply-To")
	if err != nil {
		return "", err
	}

	toRaw := toEmail
	if toRaw == "" {
		toRaw = original.Payload.header("Reply-To")
	}
	if toRaw == "" {
		toRaw = original.Payload.header("From")
	}
	to := ExtractAddress(toRaw)
	if to == "" {
		return "返信先のメールアドレスが取得できませんでした", nil
	}

	subject := original.Payload.header("Subject")
	if !strings.HasPrefix(subject, "Re:") {
		subject = "Re: " + subject
	}

	th := threading{
		inReplyTo:  original.Payload.header("Message-ID"),
		references: original.Payload.header("References"),
	}

	var raw string
	if photo != nil {
		raw = buildWithPhoto(to, subject, body, th, photo)
	} else {
		raw = buildText(to, subject, body, th)
	}
	if err := c.send(ctx, raw, original.ThreadID); err != nil {
		return "", err
	}

	if photo != nil {
		return DisplayName(to) + "さんに写真付きで返信しました", nil
	}
	return DisplayName(to) + "さんに返信を送信しました", nil
}

// SendPhoto mails a JPEG. With no recipient it falls back to the sender
// of the most recently listed message, so "send them a photo" works
// right after "check my email".
func (c *Client) SendPhoto(ctx context.Context, to, subject, body string, photo []byte) (string, error) {
	if to == "" {
		first, ok := c.Rolodex.First()
		if !ok {
			return "送信先が指定されていません。先に「メールを確認して」と言うか、宛先を指定してください。", nil
		}
		to = ExtractAddress(first.FromEmail)
		if to == "" {
			return "直前のメール送信者のアドレスが取得できませんでした", nil
		}
	}
	if subject == "" {
		subject = "写真を送ります"
	}

	raw := buildWithPhoto(to, subject, body, threading{}, photo)
	if err := c.send(ctx, raw, ""); err != nil {
		return "", err
	}
	return DisplayName(to) + "さんに写真付きメールを送信しました", nil
}

func (c *Client) getMessage(ctx context.Context, id, format string, metadataHeaders ...string) (*message, error) {
	q := url.Values{}
	q.Set("format", format)
	for _, h := range metadataHeaders {
		q.Add("metadataHeaders", h)
	}

	var msg message
	if err := c.http.request(ctx, http.MethodGet, "/gmail/v1/users/me/messages/"+id+"?"+q.Encode(), nil, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

func (c *Client) send(ctx context.Context, raw, threadID string) error {
	body := map[string]string{"raw": raw}
	if threadID != "" {
		body["threadId"] = threadID
	}
	return c.http.request(ctx, http.MethodPost, "/gmail/v1/users/me/messages/send", body, nil)
}
