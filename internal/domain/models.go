package domain

import "fmt"

type ImageSource string

const (
	SourceUpload ImageSource = "upload"
	SourceCamera ImageSource = "camera"
)

var allowedContentTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
}

// ImageBlob is the raw picture of one request. It is never shared.
type ImageBlob struct {
	Data        []byte
	ContentType string
	Source      ImageSource
}

// CheckContentType accepts exactly image/jpeg and image/png.
func CheckContentType(contentType string) error {
	if !allowedContentTypes[contentType] {
		return fmt.Errorf("%w: unsupported content type %q", ErrInvalidInput, contentType)
	}
	return nil
}

type Delivery int

const (
	// DeliveryLocal keeps the audio in the local artifact store.
	DeliveryLocal Delivery = iota
	// DeliveryCloud uploads the audio to object storage and returns its public URL.
	DeliveryCloud
)

func (d Delivery) String() string {
	if d == DeliveryCloud {
		return "cloud"
	}
	return "local"
}

type Options struct {
	Voice    string
	Delivery Delivery
}

type Result struct {
	Description string `json:"description"`
	AudioURL    string `json:"audio_url"`
}
