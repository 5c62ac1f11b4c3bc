package mail_test

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/necklaceai/necklace/go/pkg/mail"
)

// gmailStub serves the handful of Gmail endpoints the client touches.
type gmailStub struct {
	messages map[string]any // id -> message resource
	list     []string       // ids returned by the list endpoint
	sent     []sentMessage
}

type sentMessage struct {
	Raw      string `json:"raw"`
	ThreadID string `json:"threadId"`
}

func (g *gmailStub) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/gmail/v1/users/me/messages", func(w http.ResponseWriter, r *http.Request) {
		var ids []map[string]string
		for _, id := range g.list {
			ids = append(ids, map[string]string{"id": id, "threadId": "t-" + id})
		}
		json.NewEncoder(w).Encode(map[string]any{"messages": ids})
	})
	mux.HandleFunc("/gmail/v1/users/me/messages/send", func(w http.ResponseWriter, r *http.Request) {
		var m sentMessage
		json.NewDecoder(r.Body).Decode(&m)
		g.sent = append(g.sent, m)
		json.NewEncoder(w).Encode(map[string]string{"id": "sent-1"})
	})
	mux.HandleFunc("/gmail/v1/users/me/messages/", func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimPrefix(r.URL.Path, "/gmail/v1/users/me/messages/")
		msg, ok := g.messages[id]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			json.NewEncoder(w).Encode(map[string]any{
				"error": map[string]any{"code": 404, "message": "not found", "status": "NOT_FOUND"},
			})
			return
		}
		json.NewEncoder(w).Encode(msg)
	})
	return mux
}

func metaMessage(id, from, subject string, extra map[string]string) map[string]any {
	headers := []map[string]string{
		{"name": "From", "value": from},
		{"name": "Subject", "value": subject},
		{"name": "Date", "value": "Mon, 1 Sep 2025 09:00:00 +0900"},
	}
	for k, v := range extra {
		headers = append(headers, map[string]string{"name": k, "value": v})
	}
	return map[string]any{
		"id":       id,
		"threadId": "t-" + id,
		"payload":  map[string]any{"headers": headers},
	}
}

func newTestClient(t *testing.T, stub *gmailStub) *mail.Client {
	t.Helper()
	srv := httptest.NewServer(stub.handler())
	t.Cleanup(srv.Close)
	return mail.NewClient(mail.StaticToken("tok"),
		mail.WithBaseURL(srv.URL), mail.WithRetry(0))
}

func TestListCapturesRolodex(t *testing.T) {
	stub := &gmailStub{
		list: []string{"m1", "m2"},
		messages: map[string]any{
			"m1": metaMessage("m1", "田中太郎 <tanaka@example.com>", "会議の件", nil),
			"m2": metaMessage("m2", "suzuki@example.com", "(件名なし)", nil),
		},
	}
	c := newTestClient(t, stub)

	out, err := c.List(context.Background(), "", 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if !strings.Contains(out, "1. 田中太郎さんから: 会議の件") {
		t.Errorf("listing missing first entry: %q", out)
	}
	if !strings.Contains(out, "2. suzukiさんから:") {
		t.Errorf("bare address should fall back to local part: %q", out)
	}

	s, ok := c.Rolodex.At(1)
	if !ok || s.ID != "m1" || s.FromEmail != "田中太郎 <tanaka@example.com>" {
		t.Errorf("rolodex entry 1 = %+v, ok=%v", s, ok)
	}
	if _, ok := c.Rolodex.At(3); ok {
		t.Error("ordinal past the listing should not resolve")
	}
}

func TestListEmpty(t *testing.T) {
	c := newTestClient(t, &gmailStub{})
	out, err := c.List(context.Background(), "is:unread", 5)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if out != "該当するメールはありません" {
		t.Errorf("out = %q", out)
	}
	if c.Rolodex.Len() != 0 {
		t.Error("empty listing should clear the rolodex")
	}
}

func TestReadTruncatesBody(t *testing.T) {
	long := strings.Repeat("あ", 600)
	data := base64.RawURLEncoding.EncodeToString([]byte(long))
	msg := metaMessage("m1", "田中 <t@example.com>", "長文", nil)
	msg["payload"].(map[string]any)["body"] = map[string]string{"data": data}

	c := newTestClient(t, &gmailStub{messages: map[string]any{"m1": msg}})

	out, err := c.Read(context.Background(), "m1")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if !strings.HasPrefix(out, "送信者: 田中\n件名: 長文") {
		t.Errorf("header block wrong: %q", out[:60])
	}
	if !strings.HasSuffix(out, "...(以下省略)") {
		t.Error("long body should be truncated")
	}
	if n := strings.Count(out, "あ"); n != 500 {
		t.Errorf("kept %d runes of body, want 500", n)
	}
}

func TestReplyThreadsAndPrefixesSubject(t *testing.T) {
	stub := &gmailStub{
		messages: map[string]any{
			"m1": metaMessage("m1", "田中太郎 <tanaka@example.com>", "会議の件", map[string]string{
				"Message-ID": "<orig@example.com>",
			}),
		},
	}
	c := newTestClient(t, stub)

	out, err := c.Reply(context.Background(), "m1", "了解しました", "", nil)
	if err != nil {
		t.Fatalf("Reply: %v", err)
	}
	if out != "tanakaさんに返信を送信しました" {
		t.Errorf("out = %q", out)
	}
	if len(stub.sent) != 1 {
		t.Fatalf("sent %d messages, want 1", len(stub.sent))
	}
	if stub.sent[0].ThreadID != "t-m1" {
		t.Errorf("threadId = %q", stub.sent[0].ThreadID)
	}

	raw, err := base64.RawURLEncoding.DecodeString(stub.sent[0].Raw)
	if err != nil {
		t.Fatalf("decode raw: %v", err)
	}
	text := string(raw)
	if !strings.Contains(text, "To: tanaka@example.com\r\n") {
		t.Error("missing recipient header")
	}
	if !strings.Contains(text, "In-Reply-To: <orig@example.com>\r\n") {
		t.Error("missing In-Reply-To header")
	}
	if !strings.Contains(text, "References: <orig@example.com>\r\n") {
		t.Error("missing References header")
	}
	// Subject carries Japanese text, so it is RFC 2047 encoded.
	if !strings.Contains(text, "Subject: =?utf-8?") && !strings.Contains(text, "Subject: =?UTF-8?") {
		t.Errorf("subject not encoded: %q", text)
	}
}

func TestSendPhotoDefaultsToLastSender(t *testing.T) {
	stub := &gmailStub{
		list: []string{"m1"},
		messages: map[string]any{
			"m1": metaMessage("m1", "田中太郎 <tanaka@example.com>", "件名", nil),
		},
	}
	c := newTestClient(t, stub)

	// Without a listing there is no default recipient.
	out, err := c.SendPhoto(context.Background(), "", "", "", []byte{0xff, 0xd8})
	if err != nil {
		t.Fatalf("SendPhoto: %v", err)
	}
	if !strings.Contains(out, "送信先が指定されていません") {
		t.Errorf("out = %q", out)
	}

	if _, err := c.List(context.Background(), "", 0); err != nil {
		t.Fatalf("List: %v", err)
	}
	out, err = c.SendPhoto(context.Background(), "", "", "", []byte{0xff, 0xd8})
	if err != nil {
		t.Fatalf("SendPhoto: %v", err)
	}
	if out != "tanakaさんに写真付きメールを送信しました" {
		t.Errorf("out = %q", out)
	}

	raw, _ := base64.RawURLEncoding.DecodeString(stub.sent[len(stub.sent)-1].Raw)
	if !strings.Contains(string(raw), "Content-Type: multipart/mixed") {
		t.Error("photo mail should be multipart")
	}
	if !strings.Contains(string(raw), "Content-Disposition: attachment") {
		t.Error("photo mail should carry an attachment")
	}
}

func TestAPIErrorTyped(t *testing.T) {
	c := newTestClient(t, &gmailStub{})
	_, err := c.Read(context.Background(), "missing")
	if err == nil {
		t.Fatal("want error for missing message")
	}
	apiErr, ok := mail.AsError(err)
	if !ok {
		t.Fatalf("err = %v, want *mail.Error", err)
	}
	if !apiErr.IsNotFound() || apiErr.Retryable() {
		t.Errorf("unexpected classification: %+v", apiErr)
	}
}

func TestExtractAddress(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"田中太郎 <tanaka@example.com>", "tanaka@example.com"},
		{"tanaka@example.com", "tanaka@example.com"},
		{" suzuki@example.com ", "suzuki@example.com"},
		{"no address here", ""},
		{"", ""},
	}
	for _, tc := range cases {
		if got := mail.ExtractAddress(tc.in); got != tc.want {
			t.Errorf("ExtractAddress(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
