package verify

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog/log"
)

const (
	// DefaultFetchTimeout is the default timeout for image downloads
	DefaultFetchTimeout = 30 * time.Second
	// DefaultMaxImageSize is the default maximum image size (10MB)
	DefaultMaxImageSize = 10 * 1024 * 1024

	defaultMIMEType = "image/jpeg"
)

// Resolver turns image references into in-memory payloads.
type Resolver struct {
	client  *resty.Client
	baseURL string
	maxSize int64
}

// NewResolver creates a Resolver that resolves relative references against
// baseURL.
func NewResolver(baseURL string) *Resolver {
	return &Resolver{
		client: resty.New().
			SetDebug(false).
			SetTimeout(DefaultFetchTimeout).
			SetHeader("Accept", "image/*"),
		baseURL: strings.TrimRight(baseURL, "/"),
		maxSize: DefaultMaxImageSize,
	}
}

// WithTimeout sets a custom timeout for downloads.
func (r *Resolver) WithTimeout(timeout time.Duration) *Resolver {
	r.client.SetTimeout(timeout)
	return r
}

// WithMaxSize sets a custom maximum image size.
func (r *Resolver) WithMaxSize(maxSize int64) *Resolver {
	r.maxSize = maxSize
	return r
}

// Resolve produces the image payload for ref. Data URIs are decoded locally;
// every other kind is downloaded once, without retries.
func (r *Resolver) Resolve(ctx context.Context, ref string) (*ImagePayload, error) {
	imageRef := ClassifyImageRef(ref)

	if !imageRef.IsRemote() {
		payload, err := parseDataURI(imageRef.Raw)
		if err != nil {
			return nil, &ImageFetchError{Ref: ref, Err: err}
		}
		return payload, nil
	}

	url := imageRef.URL(r.baseURL)
	log.Debug().Str("kind", imageRef.Kind.String()).Str("url", url).Msg("fetching product image")

	payload, err := r.fetch(ctx, url)
	if err != nil {
		return nil, &ImageFetchError{Ref: ref, Err: err}
	}
	return payload, nil
}

func (r *Resolver) fetch(ctx context.Context, url string) (*ImagePayload, error) {
	resp, err := r.client.R().
		SetContext(ctx).
		SetDoNotParseResponse(true).
		Get(url)
	if err != nil {
		return nil, err
	}
	body := resp.RawBody()
	defer body.Close()

	if !resp.IsSuccess() {
		return nil, fmt.Errorf("download failed: status %d", resp.StatusCode())
	}

	if resp.RawResponse.ContentLength > r.maxSize {
		return nil, fmt.Errorf("image too large: %d bytes exceeds limit of %d bytes", resp.RawResponse.ContentLength, r.maxSize)
	}

	// LimitReader enforces the size limit even if Content-Length is missing or wrong
	data, err := io.ReadAll(io.LimitReader(body, r.maxSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read image data: %w", err)
	}
	if int64(len(data)) > r.maxSize {
		return nil, fmt.Errorf("image too large: exceeds limit of %d bytes", r.maxSize)
	}

	return &ImagePayload{
		Data:     base64.StdEncoding.EncodeToString(data),
		MIMEType: mediaType(resp.Header().Get("Content-Type")),
	}, nil
}

// mediaType strips parameters from a Content-Type header value and falls back
// to image/jpeg when the header is absent.
func mediaType(contentType string) string {
	mt, _, _ := strings.Cut(contentType, ";")
	mt = strings.TrimSpace(mt)
	if mt == "" {
		return defaultMIMEType
	}
	return mt
}

// parseDataURI splits "data:<mime>;base64,<payload>" into its parts.
func parseDataURI(uri string) (*ImagePayload, error) {
	header, data, ok := strings.Cut(uri, ",")
	if !ok {
		return nil, errors.New("data URI has no payload")
	}

	mimeType, _, _ := strings.Cut(strings.TrimPrefix(header, "data:"), ";")
	if mimeType == "" {
		mimeType = defaultMIMEType
	}

	if _, err := base64.StdEncoding.DecodeString(data); err != nil {
		return nil, fmt.Errorf("invalid base64 payload: %w", err)
	}

	return &ImagePayload{Data: data, MIMEType: mimeType}, nil
}
