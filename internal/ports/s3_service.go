package ports

import "context"

type S3Service interface {
	ObjectKey(filename string) string
	// SaveAudio uploads a local mp3 and returns its public URL.
	SaveAudio(ctx context.Context, localPath string) (string, error)
}
