package verify

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"
)

// Config holds everything a Verifier reads at call time.
type Config struct {
	APIKey           string // Gemini API key; empty means every listing is rejected
	BaseURL          string // Marketplace server base URL for relative image refs
	Model            string
	StructuredOutput bool
	FetchTimeout     time.Duration
	MaxImageSize     int64
}

// Verifier checks that a product image matches its listing.
//
// Each call runs Resolver, Inferencer and Interpret in sequence. Calls share no
// mutable state, so concurrent calls are independent.
type Verifier struct {
	cfg        Config
	resolver   *Resolver
	inferencer Inferencer
	cache      ResultCache
}

// New creates a Verifier backed by Gemini. Without an API key no client is
// created and every verification is rejected.
func New(ctx context.Context, cfg Config) (*Verifier, error) {
	var inferencer Inferencer
	if cfg.APIKey != "" {
		gemini, err := NewGeminiInferencer(ctx, cfg.APIKey, cfg.Model, cfg.StructuredOutput)
		if err != nil {
			return nil, err
		}
		inferencer = gemini
	}
	return NewWithInferencer(cfg, inferencer), nil
}

// NewWithInferencer creates a Verifier using the given inferencer.
func NewWithInferencer(cfg Config, inferencer Inferencer) *Verifier {
	resolver := NewResolver(cfg.BaseURL)
	if cfg.FetchTimeout > 0 {
		resolver.WithTimeout(cfg.FetchTimeout)
	}
	if cfg.MaxImageSize > 0 {
		resolver.WithMaxSize(cfg.MaxImageSize)
	}
	return &Verifier{
		cfg:        cfg,
		resolver:   resolver,
		inferencer: inferencer,
	}
}

// WithCache enables result caching.
func (v *Verifier) WithCache(cache ResultCache) *Verifier {
	v.cache = cache
	return v
}

// Configured reports whether an API key is present.
func (v *Verifier) Configured() bool {
	return v.cfg.APIKey != "" && v.inferencer != nil
}

// Verify checks a listing and always returns a result. Every failure becomes a
// rejection whose reason describes what went wrong.
func (v *Verifier) Verify(ctx context.Context, req Request) Result {
	result, err := v.Check(ctx, req)
	if err != nil {
		event := log.Warn()
		if errors.Is(err, ErrNotConfigured) {
			event = log.Debug()
		}
		event.Err(err).Str("product", req.ProductName).Msg("product verification failed")
	}
	return result
}

// Check is like Verify but also returns the error behind a failed
// verification. The Result is always usable.
func (v *Verifier) Check(ctx context.Context, req Request) (Result, error) {
	if !v.Configured() {
		return Rejection(ErrNotConfigured.Error()), ErrNotConfigured
	}

	image, err := v.resolver.Resolve(ctx, req.ImageRef)
	if err != nil {
		return Rejection(err.Error()), err
	}

	key := cacheKey(req, image)
	if v.cache != nil {
		cached, err := v.cache.GetVerificationCache(key)
		if err != nil {
			log.Warn().Err(err).Msg("failed to check verification cache")
		} else if cached != nil {
			log.Debug().Str("hash", key[:16]).Msg("verification cache hit")
			return resultFromCache(cached), nil
		}
	}

	resp, err := v.inferencer.Infer(ctx, BuildPrompt(req), image)
	if err != nil {
		var ierr *InferenceError
		if !errors.As(err, &ierr) {
			err = &InferenceError{Model: v.cfg.Model, Err: err}
		}
		return Rejection(err.Error()), err
	}

	result, err := Interpret(resp.Text)
	if err != nil {
		return result, err
	}

	if v.cache != nil {
		if err := v.cache.SetVerificationCache(key, cacheEntryFromResult(result)); err != nil {
			log.Warn().Err(err).Msg("failed to cache verification result")
		}
	}

	log.Info().
		Str("product", req.ProductName).
		Str("category", req.CategoryName).
		Bool("isValid", result.IsValid).
		Float64("confidence", result.Confidence).
		Bool("autoApproved", result.AutoApproved).
		Float64("costUSD", resp.Usage.CostUSD).
		Msg("product verified")

	return result, nil
}
