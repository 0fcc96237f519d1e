package domain

import "errors"

// Error kinds surfaced by the narration pipeline. Stage failures wrap one of
// these so delivery can pick the HTTP status with errors.Is.
var (
	ErrInvalidInput        = errors.New("invalid input")
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
	ErrDecode              = errors.New("image decode failed")
	ErrInference           = errors.New("inference failed")
	ErrAudioGeneration     = errors.New("audio generation failed")
	ErrStorage             = errors.New("storage failed")
	ErrNotFound            = errors.New("not found")
)
