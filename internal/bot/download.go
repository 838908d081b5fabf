package bot

import (
	"context"
	"fmt"
	"strings"

	"github.com/raine/ciftci-pazari-bot/internal/verify"
	"github.com/rs/zerolog/log"
)

// ImageDownloader fetches Telegram photos with the same resolver that
// fetches marketplace images, so size limits and timeouts are shared.
type ImageDownloader struct {
	resolver *verify.Resolver
}

// NewImageDownloader creates a new ImageDownloader with default settings.
func NewImageDownloader() *ImageDownloader {
	return &ImageDownloader{resolver: verify.NewResolver("")}
}

// WithMaxSize sets a custom maximum file size.
func (d *ImageDownloader) WithMaxSize(maxSize int64) *ImageDownloader {
	d.resolver.WithMaxSize(maxSize)
	return d
}

// DownloadFromURL downloads image data from an absolute URL.
func (d *ImageDownloader) DownloadFromURL(ctx context.Context, imageURL string) (*verify.ImagePayload, error) {
	img, err := d.resolver.Resolve(ctx, imageURL)
	if err != nil {
		return nil, err
	}

	// Telegram serves photos as application/octet-stream, so only reject
	// explicitly non-image textual types.
	if strings.HasPrefix(img.MIMEType, "text/") || img.MIMEType == "application/json" {
		return nil, fmt.Errorf("invalid content type: expected image/*, got %s", img.MIMEType)
	}
	if !strings.HasPrefix(img.MIMEType, "image/") {
		img.MIMEType = "image/jpeg"
	}
	return img, nil
}

// DownloadFromTelegramFileID downloads an image from Telegram using a file ID.
// It uses the provided function to resolve the file ID to a direct URL.
func (d *ImageDownloader) DownloadFromTelegramFileID(
	ctx context.Context,
	getFileDirectURL func(fileID string) (string, error),
	fileID string,
) (*verify.ImagePayload, error) {
	log.Info().Str("fileID", fileID).Msg("downloading telegram file")

	url, err := getFileDirectURL(fileID)
	if err != nil {
		return nil, fmt.Errorf("failed to get file URL: %w", err)
	}

	return d.DownloadFromURL(ctx, url)
}
