package verify

import (
	"errors"
	"fmt"
)

// ErrNotConfigured is returned when no inference API key is configured.
// Verification then always rejects without touching the network.
var ErrNotConfigured = errors.New("API anahtarı yapılandırılmamış")

// ImageFetchError is returned when an image reference cannot be resolved.
type ImageFetchError struct {
	Ref string
	Err error
}

func (e *ImageFetchError) Error() string {
	return fmt.Sprintf("görsel alınamadı: %v", e.Err)
}

func (e *ImageFetchError) Unwrap() error { return e.Err }

// InferenceError is returned when the inference call itself fails.
type InferenceError struct {
	Model string
	Err   error
}

func (e *InferenceError) Error() string {
	return fmt.Sprintf("yapay zeka doğrulaması başarısız: %v", e.Err)
}

func (e *InferenceError) Unwrap() error { return e.Err }

// ResponseParseError is returned when no JSON object can be recovered from
// the model output.
type ResponseParseError struct {
	Text string
	Err  error
}

func (e *ResponseParseError) Error() string {
	return fmt.Sprintf("yanıt ayrıştırılamadı: %v", e.Err)
}

func (e *ResponseParseError) Unwrap() error { return e.Err }
