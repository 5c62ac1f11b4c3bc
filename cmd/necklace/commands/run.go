package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/spf13/cobra"
	"google.golang.org/genai"

	"github.com/necklaceai/necklace/go/cmd/necklace/internal/config"
	"github.com/necklaceai/necklace/go/pkg/alarm"
	"github.com/necklaceai/necklace/go/pkg/audio/tone"
	"github.com/necklaceai/necklace/go/pkg/camera"
	"github.com/necklaceai/necklace/go/pkg/convo"
	"github.com/necklaceai/necklace/go/pkg/device"
	"github.com/necklaceai/necklace/go/pkg/kv"
	"github.com/necklaceai/necklace/go/pkg/mail"
	"github.com/necklaceai/necklace/go/pkg/mind"
	"github.com/necklaceai/necklace/go/pkg/pushvoice"
	"github.com/necklaceai/necklace/go/pkg/speak"
	"github.com/necklaceai/necklace/go/pkg/turn"
)

const triggerPollInterval = 50 * time.Millisecond

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the assistant daemon",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		if err := cfg.Validate(); err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		return run(ctx, cfg)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func run(ctx context.Context, cfg *config.Config) error {
	gen, err := newGenerator(ctx, cfg)
	if err != nil {
		return err
	}
	retry := mind.DefaultRetryPolicy()

	synth := speak.NewGoogleTTS(cfg.TTSAPIKey)

	store, err := kv.NewBadger(kv.BadgerOptions{Dir: cfg.AlarmDir})
	if err != nil {
		return fmt.Errorf("open alarm store: %w", err)
	}
	defer store.Close()

	book, err := alarm.Load(ctx, store)
	if err != nil {
		return fmt.Errorf("load alarms: %w", err)
	}

	lock := &device.Lock{}

	mic := device.NewMic()
	mic.DeviceIndex = cfg.InputDevice
	speaker := device.NewSpeaker()
	speaker.DeviceIndex = cfg.OutputDevice
	outputRate := speaker.Format.SampleRate()

	// Optional collaborators degrade to spoken unavailability instead
	// of failing startup.
	var trigger device.Trigger
	if cfg.UseButton {
		gpio, err := device.NewGPIOTrigger(cfg.ButtonPin)
		if err != nil {
			slog.Warn("button unavailable, using automatic capture", "pin", cfg.ButtonPin, "error", err)
		} else {
			trigger = gpio
			slog.Info("button ready", "pin", cfg.ButtonPin)
		}
	}

	var mailClient *mail.Client
	if cfg.GmailToken != "" {
		mailClient = mail.NewClient(mail.StaticToken(cfg.GmailToken))
		slog.Info("gmail ready")
	} else {
		slog.Warn("GMAIL_TOKEN not set, email tools disabled")
	}

	var messenger *pushvoice.Client
	if cfg.Relay.Enabled() {
		messenger = pushvoice.NewClient(cfg.Relay.BaseURL, cfg.Relay.DeviceID, cfg.Relay.Token)
		slog.Info("voice relay ready", "device", cfg.Relay.DeviceID)
	} else {
		slog.Warn("voice relay not configured, voice messaging disabled")
	}

	translate := &turn.TranslateMode{}
	cam := &camera.Camera{}

	engine := &turn.Engine{
		Gen:   gen,
		Retry: retry,
		Synth: synth,
		Capture: func(ctx context.Context) ([]byte, error) {
			if trigger != nil {
				return mic.Capture(ctx, trigger)
			}
			return mic.CaptureAuto(ctx)
		},
		Play:    speaker.Play,
		Trigger: trigger,
		Lock:    lock,
		History: convo.New(convo.DefaultLimit),
		Tools: &turn.Dispatcher{
			Mail:      mailClient,
			Book:      book,
			Camera:    cam,
			Translate: translate,
			Describe: func(ctx context.Context, prompt string, jpeg []byte) (string, error) {
				return describeImage(ctx, retry, gen, prompt, jpeg)
			},
			CanSendVoice: messenger != nil,
		},
		Translate:     translate,
		CaptureFormat: mic.Format,
		OutputRate:    outputRate,
	}
	if messenger != nil {
		engine.Messenger = messenger
	}

	monitor := &alarm.Monitor{
		Book: book,
		Lock: lock,
		Speak: func(ctx context.Context, text string) error {
			return engine.Say(ctx, text, "ja")
		},
	}
	go monitor.Run(ctx)

	if messenger != nil {
		listener := &pushvoice.Listener{
			Messenger:  messenger,
			Lock:       lock,
			Play:       speaker.Play,
			Chime:      tone.Chime(speaker.Format),
			OutputRate: outputRate,
			PushURL:    cfg.Relay.PushURL,
		}
		go listener.Run(ctx)
	}

	slog.Info("assistant ready", "backend", cfg.Backend, "model", cfg.Model,
		"button", trigger != nil)

	return mainLoop(ctx, engine, trigger)
}

// mainLoop waits for trigger presses and runs turns until shutdown. In
// the no-button configuration every loop iteration is a capture attempt.
func mainLoop(ctx context.Context, engine *turn.Engine, trigger device.Trigger) error {
	ticker := time.NewTicker(triggerPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("shutting down")
			return nil
		case <-ticker.C:
		}
		if trigger != nil && !trigger.Pressed() {
			continue
		}
		if err := engine.Turn(ctx); err != nil && ctx.Err() == nil {
			slog.Error("turn failed", "error", err)
		}
	}
}

func newGenerator(ctx context.Context, cfg *config.Config) (mind.Generator, error) {
	switch cfg.Backend {
	case "openai":
		client := openai.NewClient(option.WithAPIKey(cfg.OpenAIAPIKey))
		return &mind.OpenAIGenerator{Client: &client, Model: cfg.Model}, nil
	default:
		client, err := genai.NewClient(ctx, &genai.ClientConfig{
			APIKey:  cfg.GeminiAPIKey,
			Backend: genai.BackendGeminiAPI,
		})
		if err != nil {
			return nil, fmt.Errorf("create gemini client: %w", err)
		}
		return &mind.GeminiGenerator{Client: client, Model: cfg.Model}, nil
	}
}

// describeImage answers a vision prompt about a JPEG, phrased for a
// short spoken reply.
func describeImage(ctx context.Context, retry mind.RetryPolicy, gen mind.Generator, prompt string, jpeg []byte) (string, error) {
	reply, err := retry.Generate(ctx, gen, &mind.Request{
		Messages: []*mind.Message{{
			Role:  mind.RoleUser,
			Text:  prompt + "\n\n日本語で回答してください。音声で読み上げるため、1-2文程度の簡潔な説明をお願いします。",
			Blobs: []*mind.Blob{{MIMEType: "image/jpeg", Data: jpeg}},
		}},
	})
	if err != nil {
		return "", err
	}
	return reply.Text, nil
}
