package utils

import (
	"bytes"
	"context"
	"fmt"
	"os"

	api "github.com/deepgram/deepgram-go-sdk/pkg/api/listen/v1/rest"
	"github.com/deepgram/deepgram-go-sdk/pkg/client/interfaces"
	listen "github.com/deepgram/deepgram-go-sdk/pkg/client/listen"
	"go.uber.org/zap"
)

// Transcriber turns a voice note into text so it can enter the food pipeline
// like any typed message.
type Transcriber struct {
	client *api.Client
	lang   string
}

func NewTranscriber(lang string) (*Transcriber, error) {
	apiKey := os.Getenv("DEEPGRAM_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("DEEPGRAM_API_KEY environment variable is not set")
	}
	if lang == "" {
		lang = "ru"
	}

	c := listen.NewREST(apiKey, &interfaces.ClientOptions{})
	return &Transcriber{client: api.New(c), lang: lang}, nil
}

// Transcribe runs pre-recorded transcription over a complete audio payload.
func (t *Transcriber) Transcribe(ctx context.Context, audio []byte) (string, error) {
	options := &interfaces.PreRecordedTranscriptionOptions{
		Model:       "nova-2",
		Language:    t.lang,
		SmartFormat: true,
	}

	res, err := t.client.FromStream(ctx, bytes.NewReader(audio), options)
	if err != nil {
		return "", fmt.Errorf("deepgram transcription failed: %w", err)
	}

	if len(res.Results.Channels) == 0 || len(res.Results.Channels[0].Alternatives) == 0 {
		return "", fmt.Errorf("no transcription alternatives in deepgram response")
	}

	transcript := res.Results.Channels[0].Alternatives[0].Transcript
	zap.L().Debug("transcribed voice note", zap.Int("audio_bytes", len(audio)), zap.String("transcript", transcript))
	return transcript, nil
}
