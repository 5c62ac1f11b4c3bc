package turn

import (
	"context"
	"fmt"

	"github.com/necklaceai/necklace/go/pkg/alarm"
	"github.com/necklaceai/necklace/go/pkg/camera"
	"github.com/necklaceai/necklace/go/pkg/mail"
	"github.com/necklaceai/necklace/go/pkg/mind"
)

// Tool argument shapes. The JSON field names are the wire names the
// model produces; schemas for the catalog are derived from these types.

type gmailListArgs struct {
	Query      string `json:"query,omitempty"`
	MaxResults int    `json:"max_results,omitempty"`
}

type gmailReadArgs struct {
	MessageID int `json:"message_id"`
}

type gmailSendArgs struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

type gmailReplyArgs struct {
	MessageID   int    `json:"message_id"`
	Body        string `json:"body"`
	AttachPhoto bool   `json:"attach_photo,omitempty"`
}

type gmailSendPhotoArgs struct {
	To      string `json:"to,omitempty"`
	Subject string `json:"subject,omitempty"`
	Body    string `json:"body,omitempty"`
}

type alarmSetArgs struct {
	Time    string `json:"time"`
	Label   string `json:"label,omitempty"`
	Message string `json:"message,omitempty"`
}

type alarmListArgs struct{}

type alarmDeleteArgs struct {
	AlarmID int `json:"alarm_id"`
}

type cameraCaptureArgs struct {
	Prompt string `json:"prompt,omitempty"`
}

type voiceRecordSendArgs struct{}

type translationOnArgs struct {
	SourceLang string `json:"source_lang,omitempty"`
	TargetLang string `json:"target_lang,omitempty"`
}

type translationOffArgs struct{}

// toolCall is the closed set of operations the model may invoke. A
// directive is decoded into exactly one variant before any side effect
// runs; a name outside the set becomes unknownTool, which is data, not
// an error.
type toolCall interface {
	isToolCall()
}

func (gmailListArgs) isToolCall()      {}
func (gmailReadArgs) isToolCall()      {}
func (gmailSendArgs) isToolCall()      {}
func (gmailReplyArgs) isToolCall()     {}
func (gmailSendPhotoArgs) isToolCall() {}
func (alarmSetArgs) isToolCall()       {}
func (alarmListArgs) isToolCall()      {}
func (alarmDeleteArgs) isToolCall()    {}
func (cameraCaptureArgs) isToolCall()  {}
func (voiceRecordSendArgs) isToolCall() {}
func (translationOnArgs) isToolCall()  {}
func (translationOffArgs) isToolCall() {}

type unknownTool struct{ name string }

func (unknownTool) isToolCall() {}

// decodeToolCall maps a function-call directive onto the closed set.
func decodeToolCall(fc *mind.FuncCall) (toolCall, error) {
	decode := func(v toolCall) (toolCall, error) {
		if err := fc.UnmarshalArgs(v); err != nil {
			return nil, err
		}
		return v, nil
	}
	switch fc.Name {
	case "gmail_list":
		return decode(&gmailListArgs{})
	case "gmail_read":
		return decode(&gmailReadArgs{})
	case "gmail_send":
		return decode(&gmailSendArgs{})
	case "gmail_reply":
		return decode(&gmailReplyArgs{})
	case "gmail_send_photo":
		return decode(&gmailSendPhotoArgs{})
	case "alarm_set":
		return decode(&alarmSetArgs{})
	case "alarm_list":
		return decode(&alarmListArgs{})
	case "alarm_delete":
		return decode(&alarmDeleteArgs{})
	case "camera_capture":
		return decode(&cameraCaptureArgs{})
	case "voice_record_send":
		return decode(&voiceRecordSendArgs{})
	case "translation_mode_on":
		return decode(&translationOnArgs{})
	case "translation_mode_off":
		return decode(&translationOffArgs{})
	default:
		return unknownTool{name: fc.Name}, nil
	}
}

// Catalog declares every tool to the reasoning backend.
func Catalog() []*mind.FuncTool {
	return []*mind.FuncTool{
		mind.MustNewFuncTool[gmailListArgs]("gmail_list", "メール一覧を取得する"),
		mind.MustNewFuncTool[gmailReadArgs]("gmail_read", "メール本文を読み取る。message_idは一覧の番号"),
		mind.MustNewFuncTool[gmailSendArgs]("gmail_send", "新規メールを送信する"),
		mind.MustNewFuncTool[gmailReplyArgs]("gmail_reply", "メールに返信する。message_idは一覧の番号"),
		mind.MustNewFuncTool[gmailSendPhotoArgs]("gmail_send_photo", "写真を撮影してメールで送信する"),
		mind.MustNewFuncTool[alarmSetArgs]("alarm_set", "アラームを設定する。timeはHH:MM形式"),
		mind.MustNewFuncTool[alarmListArgs]("alarm_list", "アラーム一覧を取得する"),
		mind.MustNewFuncTool[alarmDeleteArgs]("alarm_delete", "アラームを削除する"),
		mind.MustNewFuncTool[cameraCaptureArgs]("camera_capture", "カメラで撮影して画像を説明する"),
		mind.MustNewFuncTool[voiceRecordSendArgs]("voice_record_send", "スマホに音声メッセージを録音して送信する"),
		mind.MustNewFuncTool[translationOnArgs]("translation_mode_on", "翻訳モードを開始する"),
		mind.MustNewFuncTool[translationOffArgs]("translation_mode_off", "翻訳モードを終了する"),
	}
}

// ToolResult is what a dispatch produces: text for the summarization
// round, or the voice-message mode switch.
type ToolResult struct {
	// Text is the stringified tool outcome.
	Text string

	// StartVoiceMessage abandons the normal turn flow and begins the
	// record-and-send sequence.
	StartVoiceMessage bool
}

// Dispatcher executes tool calls against the collaborators. Nil
// collaborators degrade to spoken unavailability strings, never panics.
// All side effects run synchronously on the calling goroutine.
type Dispatcher struct {
	Mail      *mail.Client
	Book      *alarm.Book
	Camera    *camera.Camera
	Translate *TranslateMode

	// Describe answers a vision prompt about a JPEG. Backed by the
	// reasoning backend; split out so tests can fake it.
	Describe func(ctx context.Context, prompt string, jpeg []byte) (string, error)

	// CanSendVoice reports whether the push-voice collaborator is
	// configured.
	CanSendVoice bool
}

const defaultVisionPrompt = "この画像に何が写っていますか？簡潔に説明してください。"

// Dispatch resolves and executes one function-call directive.
func (d *Dispatcher) Dispatch(ctx context.Context, fc *mind.FuncCall) ToolResult {
	call, err := decodeToolCall(fc)
	if err != nil {
		return ToolResult{Text: fmt.Sprintf("ツール引数エラー: %v", err)}
	}

	switch c := call.(type) {
	case *gmailListArgs:
		if d.Mail == nil {
			return ToolResult{Text: "Gmail機能が初期化されていません"}
		}
		return d.mailResult(d.Mail.List(ctx, c.Query, c.MaxResults))

	case *gmailReadArgs:
		if d.Mail == nil {
			return ToolResult{Text: "Gmail機能が初期化されていません"}
		}
		entry, ok := d.Mail.Rolodex.At(c.MessageID)
		if !ok {
			return ToolResult{Text: "指定されたメールが見つかりません"}
		}
		return d.mailResult(d.Mail.Read(ctx, entry.ID))

	case *gmailSendArgs:
		if d.Mail == nil {
			return ToolResult{Text: "Gmail機能が初期化されていません"}
		}
		return d.mailResult(d.Mail.Send(ctx, c.To, c.Subject, c.Body))

	case *gmailReplyArgs:
		if d.Mail == nil {
			return ToolResult{Text: "Gmail機能が初期化されていません"}
		}
		entry, ok := d.Mail.Rolodex.At(c.MessageID)
		if !ok {
			return ToolResult{Text: "指定されたメールが見つかりません。先に「メールを確認して」と言ってください。"}
		}
		var photo []byte
		if c.AttachPhoto {
			photo, err = d.snapshot(ctx)
			if err != nil {
				return ToolResult{Text: fmt.Sprintf("写真の撮影に失敗しました: %v", err)}
			}
		}
		return d.mailResult(d.Mail.Reply(ctx, entry.ID, c.Body, entry.FromEmail, photo))

	case *gmailSendPhotoArgs:
		if d.Mail == nil {
			return ToolResult{Text: "Gmail機能が初期化されていません"}
		}
		photo, err := d.snapshot(ctx)
		if err != nil {
			return ToolResult{Text: fmt.Sprintf("写真の撮影に失敗しました: %v", err)}
		}
		return d.mailResult(d.Mail.SendPhoto(ctx, c.To, c.Subject, c.Body, photo))

	case *alarmSetArgs:
		return ToolResult{Text: d.Book.Set(ctx, c.Time, c.Label, c.Message)}

	case *alarmListArgs:
		return ToolResult{Text: d.Book.List()}

	case *alarmDeleteArgs:
		return ToolResult{Text: d.Book.Delete(ctx, c.AlarmID)}

	case *cameraCaptureArgs:
		prompt := c.Prompt
		if prompt == "" {
			prompt = defaultVisionPrompt
		}
		jpeg, err := d.snapshot(ctx)
		if err != nil {
			return ToolResult{Text: fmt.Sprintf("カメラでの撮影に失敗しました: %v", err)}
		}
		text, err := d.Describe(ctx, prompt, jpeg)
		if err != nil {
			return ToolResult{Text: fmt.Sprintf("画像解析エラー: %v", err)}
		}
		return ToolResult{Text: text}

	case *voiceRecordSendArgs:
		if !d.CanSendVoice {
			return ToolResult{Text: "音声メッセージ機能が無効です"}
		}
		return ToolResult{StartVoiceMessage: true}

	case *translationOnArgs:
		return ToolResult{Text: d.Translate.On(c.SourceLang, c.TargetLang)}

	case *translationOffArgs:
		return ToolResult{Text: d.Translate.Off()}

	case unknownTool:
		return ToolResult{Text: "不明なツール: " + c.name}

	default:
		// Unreachable: decodeToolCall covers the closed set.
		return ToolResult{Text: "不明なツール: " + fc.Name}
	}
}

func (d *Dispatcher) mailResult(text string, err error) ToolResult {
	if err != nil {
		return ToolResult{Text: fmt.Sprintf("メール操作エラー: %v", err)}
	}
	return ToolResult{Text: text}
}

func (d *Dispatcher) snapshot(ctx context.Context) ([]byte, error) {
	if d.Camera == nil {
		return nil, fmt.Errorf("カメラが設定されていません")
	}
	return d.Camera.Capture(ctx)
}
