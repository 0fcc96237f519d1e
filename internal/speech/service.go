package speech

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"

	"github.com/Vovarama1992/scene_narrator/internal/domain"
	"github.com/Vovarama1992/scene_narrator/internal/textrules"
)

// Voice values accepted in the ?voice= query parameter.
const (
	VoiceDefault    = "default"
	VoiceGoodPerson = "good_person"
)

// === Интерфейсы ===

// TTSClient renders text into an MP3 file at outPath. voice is provider specific:
// a Google TLD, an ElevenLabs voice id or an OpenAI voice name.
type TTSClient interface {
	Synthesize(ctx context.Context, text, voice, outPath string) error
}

// Voices maps a voice parameter to the provider specific value.
type Voices map[string]string

// === Сервис ===

type Service struct {
	tts      TTSClient
	voices   Voices
	scrubber textrules.Service
	timeout  time.Duration
	log      *zap.SugaredLogger
}

func NewService(tts TTSClient, voices Voices, scrubber textrules.Service, timeout time.Duration, log *zap.SugaredLogger) *Service {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Service{
		tts:      tts,
		voices:   voices,
		scrubber: scrubber,
		timeout:  timeout,
		log:      log,
	}
}

// ResolveVoice falls back to the default voice for unknown or empty names.
func (s *Service) ResolveVoice(voice string) string {
	if v, ok := s.voices[strings.ToLower(strings.TrimSpace(voice))]; ok {
		return v
	}
	return s.voices[VoiceDefault]
}

// Synthesize writes spoken text to outPath. On any failure outPath is removed
// and the error wraps domain.ErrAudioGeneration.
func (s *Service) Synthesize(ctx context.Context, text, voice, outPath string) error {
	start := time.Now()

	clean, err := s.scrubber.Process(ctx, text)
	if err != nil {
		return fmt.Errorf("%w: text rules: %v", domain.ErrAudioGeneration, err)
	}
	if clean == "" {
		return fmt.Errorf("%w: nothing to speak", domain.ErrAudioGeneration)
	}

	ctxTTS, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if err := s.tts.Synthesize(ctxTTS, clean, s.ResolveVoice(voice), outPath); err != nil {
		_ = os.Remove(outPath)
		s.log.Errorw("tts failed", "voice", voice, "error", err)
		return fmt.Errorf("%w: %v", domain.ErrAudioGeneration, err)
	}

	info, err := os.Stat(outPath)
	if err != nil || info.Size() == 0 {
		_ = os.Remove(outPath)
		if err == nil {
			err = errors.New("empty audio")
		}
		return fmt.Errorf("%w: %v", domain.ErrAudioGeneration, err)
	}

	s.log.Infow("tts done",
		"voice", voice,
		"size", humanize.Bytes(uint64(info.Size())),
		"elapsed", time.Since(start).Round(time.Millisecond).String())
	return nil
}
