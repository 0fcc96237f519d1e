package domain

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Vovarama1992/scene_narrator/internal/audio"
	"github.com/Vovarama1992/scene_narrator/internal/ports"
)

// === Коллабораторы пайплайна ===

type CameraSource interface {
	Fetch(ctx context.Context) (*ImageBlob, error)
}

type ImageNormalizer interface {
	Normalize(blob *ImageBlob) (string, error)
}

type ImageDescriber interface {
	Describe(ctx context.Context, imageURL string) (string, error)
}

type SpeechSynthesizer interface {
	Synthesize(ctx context.Context, text, voice, outPath string) error
}

type AudioStore interface {
	NewID() string
	Path(id string) string
	TempPath() string
	Register(id string) (*audio.Artifact, error)
}

type ErrorNotifier interface {
	Notify(ctx context.Context, source string, err error, details string) error
}

// NarrationDeps wires the pipeline. S3, Repo and Notifier may be nil.
type NarrationDeps struct {
	Camera     CameraSource
	Normalizer ImageNormalizer
	Describer  ImageDescriber
	Speech     SpeechSynthesizer
	Store      AudioStore
	S3         ports.S3Service
	Repo       ports.DescriptionRepo
	Notifier   ErrorNotifier

	// PerRequestURLs makes local audio_url point at /get-audio/<id>
	// instead of the shared /get-audio. The shared path always serves the
	// newest artifact, so with it off two overlapping requests may download
	// each other's audio. Stored records always get the per-id URL.
	PerRequestURLs bool
	Log            *zap.SugaredLogger
}

const (
	localAudioPath = "/get-audio"
	notifyTimeout  = 10 * time.Second
)

type NarrationService struct {
	NarrationDeps

	notifications sync.WaitGroup
}

func NewNarrationService(deps NarrationDeps) *NarrationService {
	return &NarrationService{NarrationDeps: deps}
}

// DescribeCamera grabs a frame from the network camera and narrates it.
func (s *NarrationService) DescribeCamera(ctx context.Context, opts Options) (*Result, error) {
	const source = "describe-ip-camera"

	blob, err := s.Camera.Fetch(ctx)
	if err != nil {
		return nil, s.fail(ctx, source, err, opts)
	}
	return s.run(ctx, source, blob, opts)
}

// DescribeUpload narrates a user supplied JPEG or PNG.
func (s *NarrationService) DescribeUpload(ctx context.Context, blob *ImageBlob, opts Options) (*Result, error) {
	const source = "describe-image"

	if err := CheckContentType(blob.ContentType); err != nil {
		return nil, err
	}
	return s.run(ctx, source, blob, opts)
}

// ProcessUpload is DescribeUpload with the audio always published to object storage.
func (s *NarrationService) ProcessUpload(ctx context.Context, blob *ImageBlob, voice string) (*Result, error) {
	const source = "process-image"

	if err := CheckContentType(blob.ContentType); err != nil {
		return nil, err
	}
	return s.run(ctx, source, blob, Options{Voice: voice, Delivery: DeliveryCloud})
}

func (s *NarrationService) run(ctx context.Context, source string, blob *ImageBlob, opts Options) (*Result, error) {
	start := time.Now()

	dataURL, err := s.Normalizer.Normalize(blob)
	if err != nil {
		return nil, s.fail(ctx, source, err, opts)
	}

	description, err := s.Describer.Describe(ctx, dataURL)
	if err != nil {
		return nil, s.fail(ctx, source, err, opts)
	}

	// recordURL is what gets stored; for local delivery it names the artifact
	// even when the response uses the shared path.
	var audioURL, recordURL string
	switch opts.Delivery {
	case DeliveryCloud:
		audioURL, err = s.deliverCloud(ctx, description, opts.Voice)
		recordURL = audioURL
	default:
		audioURL, recordURL, err = s.deliverLocal(ctx, description, opts.Voice)
	}
	if err != nil {
		return nil, s.fail(ctx, source, err, opts)
	}

	s.persist(ctx, description, recordURL)

	s.Log.Infow("narration done",
		"source", source,
		"image_source", blob.Source,
		"elapsed", time.Since(start).Round(time.Millisecond).String())

	return &Result{Description: description, AudioURL: audioURL}, nil
}

// deliverLocal returns the URL for the response and the per-artifact URL.
func (s *NarrationService) deliverLocal(ctx context.Context, text, voice string) (string, string, error) {
	id := s.Store.NewID()
	path := s.Store.Path(id)

	if err := s.Speech.Synthesize(ctx, text, voice, path); err != nil {
		return "", "", err
	}
	if _, err := s.Store.Register(id); err != nil {
		_ = os.Remove(path)
		return "", "", fmt.Errorf("%w: %v", ErrStorage, err)
	}

	artifactURL := localAudioPath + "/" + id
	if s.PerRequestURLs {
		return artifactURL, artifactURL, nil
	}
	return localAudioPath, artifactURL, nil
}

func (s *NarrationService) deliverCloud(ctx context.Context, text, voice string) (string, error) {
	if s.S3 == nil {
		return "", fmt.Errorf("%w: object storage is not configured", ErrStorage)
	}

	tmp := s.Store.TempPath()
	defer func() {
		if err := os.Remove(tmp); err != nil && !os.IsNotExist(err) {
			s.Log.Warnw("failed to remove temp audio", "path", tmp, "error", err)
		}
	}()

	if err := s.Speech.Synthesize(ctx, text, voice, tmp); err != nil {
		return "", err
	}
	return s.S3.SaveAudio(ctx, tmp)
}

// persist is best effort: a failed write is logged and reported, never returned.
func (s *NarrationService) persist(ctx context.Context, description, audioURL string) {
	if s.Repo == nil {
		return
	}

	rec := ports.DescriptionRecord{
		ID:          uuid.NewString(),
		Description: description,
		AudioURL:    audioURL,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.Repo.Create(ctx, rec); err != nil {
		s.Log.Errorw("failed to persist description", "id", rec.ID, "error", err)
		s.notify(ctx, "persistence", err, "record "+rec.ID)
	}
}

func (s *NarrationService) fail(ctx context.Context, source string, err error, opts Options) error {
	if errors.Is(err, ErrInvalidInput) {
		return err
	}
	s.Log.Errorw("narration failed", "source", source, "error", err)
	s.notify(ctx, source, err, fmt.Sprintf("voice=%q delivery=%s", opts.Voice, opts.Delivery))
	return err
}

// notify reports to the admin in the background with its own deadline, so a
// slow notifier never holds up the response.
func (s *NarrationService) notify(ctx context.Context, source string, err error, details string) {
	if s.Notifier == nil {
		return
	}

	s.notifications.Add(1)
	go func() {
		defer s.notifications.Done()

		nctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
		defer cancel()

		done := make(chan error, 1)
		go func() { done <- s.Notifier.Notify(nctx, source, err, details) }()

		select {
		case nerr := <-done:
			if nerr != nil {
				s.Log.Warnw("notify failed", "source", source, "error", nerr)
			}
		case <-nctx.Done():
			s.Log.Warnw("notify timed out", "source", source)
		}
	}()
}

// Wait blocks until pending admin notifications have finished or timed out.
func (s *NarrationService) Wait() {
	s.notifications.Wait()
}
