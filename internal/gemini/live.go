// AngelaMos | 2026
// live.go

package gemini

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"google.golang.org/genai"

	"github.com/carterperez-dev/fortune-api/internal/core"
)

const liveInputMIMEType = "audio/pcm;rate=16000"

type LiveOptions struct {
	Model             string
	VoiceName         string
	SystemInstruction string
}

// LiveEvent flattens one server message into the parts the relay forwards.
type LiveEvent struct {
	Audio          [][]byte
	InputText      string
	InputFinished  bool
	OutputText     string
	OutputFinished bool
	TurnComplete   bool
	Interrupted    bool
}

type LiveSession interface {
	SendAudio(pcm []byte) error
	Receive() (*LiveEvent, error)
	Close() error
}

type LiveClient struct {
	client *genai.Client
}

func NewLiveClient(ctx context.Context, apiKey string) (*LiveClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("live api key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	return &LiveClient{client: client}, nil
}

func (c *LiveClient) Connect(ctx context.Context, opts LiveOptions) (LiveSession, error) {
	ctx, span := core.StartSpan(ctx, "gemini.live.connect",
		attribute.String("gemini.model", opts.Model),
		attribute.String("gemini.voice", opts.VoiceName),
	)
	defer span.End()

	cfg := &genai.LiveConnectConfig{
		ResponseModalities:       []genai.Modality{genai.ModalityAudio},
		InputAudioTranscription:  &genai.AudioTranscriptionConfig{},
		OutputAudioTranscription: &genai.AudioTranscriptionConfig{},
	}
	if opts.SystemInstruction != "" {
		cfg.SystemInstruction = genai.NewContentFromText(opts.SystemInstruction, genai.RoleUser)
	}
	if opts.VoiceName != "" {
		cfg.SpeechConfig = &genai.SpeechConfig{
			VoiceConfig: &genai.VoiceConfig{
				PrebuiltVoiceConfig: &genai.PrebuiltVoiceConfig{VoiceName: opts.VoiceName},
			},
		}
	}

	session, err := c.client.Live.Connect(ctx, opts.Model, cfg)
	if err != nil {
		core.SetSpanError(ctx, err)
		return nil, fmt.Errorf("connect live session: %w", err)
	}

	return &liveSession{session: session}, nil
}

type liveSession struct {
	session *genai.Session
}

func (s *liveSession) SendAudio(pcm []byte) error {
	return s.session.SendRealtimeInput(genai.LiveRealtimeInput{
		Audio: &genai.Blob{Data: pcm, MIMEType: liveInputMIMEType},
	})
}

func (s *liveSession) Receive() (*LiveEvent, error) {
	msg, err := s.session.Receive()
	if err != nil {
		return nil, err
	}

	ev := &LiveEvent{}
	content := msg.ServerContent
	if content == nil {
		return ev, nil
	}

	if content.ModelTurn != nil {
		for _, part := range content.ModelTurn.Parts {
			if part != nil && part.InlineData != nil && len(part.InlineData.Data) > 0 {
				ev.Audio = append(ev.Audio, part.InlineData.Data)
			}
		}
	}

	if t := content.InputTranscription; t != nil {
		ev.InputText = t.Text
		ev.InputFinished = t.Finished
	}
	if t := content.OutputTranscription; t != nil {
		ev.OutputText = t.Text
		ev.OutputFinished = t.Finished
	}

	ev.TurnComplete = content.TurnComplete
	ev.Interrupted = content.Interrupted
	return ev, nil
}

func (s *liveSession) Close() error {
	return s.session.Close()
}
