package domain

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/Vovarama1992/scene_narrator/internal/ports"
)

type s3Service struct {
	client  ports.S3Client
	timeout time.Duration
	now     func() time.Time
}

func NewS3Service(client ports.S3Client, timeout time.Duration) ports.S3Service {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &s3Service{client: client, timeout: timeout, now: time.Now}
}

// путь в бакете: audio/<дата>/<файл>
func (s *s3Service) ObjectKey(filename string) string {
	date := s.now().UTC().Format("2006-01-02")
	return fmt.Sprintf("audio/%s/%s", date, filepath.Base(filename))
}

// SaveAudio uploads the file under a fresh unique name; the local copy is left
// for the caller to remove.
func (s *s3Service) SaveAudio(ctx context.Context, localPath string) (string, error) {
	f, err := os.Open(localPath)
	if err != nil {
		return "", fmt.Errorf("%w: open audio: %v", ErrStorage, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", fmt.Errorf("%w: stat audio: %v", ErrStorage, err)
	}

	ctxUp, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	key := s.ObjectKey("audio_" + uuid.NewString() + ".mp3")
	url, err := s.client.PutObject(ctxUp, key, f, info.Size(), "audio/mpeg")
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrStorage, err)
	}
	return url, nil
}
