package bot

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/raine/ciftci-pazari-bot/internal/verify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var jpegMagic = []byte{0xFF, 0xD8, 0xFF, 0xE0}

func TestDownloadFromTelegramFileID_Success(t *testing.T) {
	var handlerCalled bool
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/photos/foo.jpg" {
			handlerCalled = true
			w.Header().Set("Content-Type", "application/octet-stream")
			w.Write(jpegMagic)
		} else {
			t.Fatalf("invalid request to test server: %s %s", r.Method, r.URL.Path)
		}
	}))
	defer ts.Close()

	getFileDirectURL := func(fileID string) (string, error) {
		return fmt.Sprintf("%s/photos/%s.jpg", ts.URL, fileID), nil
	}

	img, err := NewImageDownloader().DownloadFromTelegramFileID(context.Background(), getFileDirectURL, "foo")
	require.NoError(t, err)

	assert.True(t, handlerCalled)
	data, err := img.Bytes()
	require.NoError(t, err)
	assert.Equal(t, jpegMagic, data)
	assert.Equal(t, "image/jpeg", img.MIMEType)
	assert.Equal(t, "data:image/jpeg;base64,/9j/4A==", img.DataURI())
}

func TestDownloadFromTelegramFileID_URLResolutionError(t *testing.T) {
	getFileDirectURL := func(fileID string) (string, error) {
		return "", fmt.Errorf("failed to get URL")
	}

	_, err := NewImageDownloader().DownloadFromTelegramFileID(context.Background(), getFileDirectURL, "test-file-id")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to get file URL")
}

func TestImageDownloader_DownloadFromURL_KeepsImageContentType(t *testing.T) {
	imageData := []byte{0x89, 0x50, 0x4E, 0x47} // PNG magic bytes
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		w.WriteHeader(http.StatusOK)
		w.Write(imageData)
	}))
	defer ts.Close()

	img, err := NewImageDownloader().DownloadFromURL(context.Background(), ts.URL)
	require.NoError(t, err)
	data, err := img.Bytes()
	require.NoError(t, err)
	assert.Equal(t, imageData, data)
	assert.Equal(t, "image/png", img.MIMEType)
}

func TestImageDownloader_DownloadFromURL_NotFound(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer ts.Close()

	_, err := NewImageDownloader().DownloadFromURL(context.Background(), ts.URL)
	var fetchErr *verify.ImageFetchError
	require.ErrorAs(t, err, &fetchErr)
	assert.Contains(t, err.Error(), "status 404")
}

func TestImageDownloader_DownloadFromURL_ContextCanceled(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("request should have been canceled")
	}))
	defer ts.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewImageDownloader().DownloadFromURL(ctx, ts.URL)
	assert.Error(t, err)
}

func TestImageDownloader_DownloadFromURL_SizeLimit(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/jpeg")
		w.WriteHeader(http.StatusOK)
		w.Write(make([]byte, 100))
	}))
	defer ts.Close()

	_, err := NewImageDownloader().WithMaxSize(50).DownloadFromURL(context.Background(), ts.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "too large")
}

func TestImageDownloader_DownloadFromURL_ContentLengthExceedsLimit(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/jpeg")
		w.Header().Set("Content-Length", "999999999")
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	_, err := NewImageDownloader().WithMaxSize(1000).DownloadFromURL(context.Background(), ts.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "too large")
}

func TestImageDownloader_DownloadFromURL_InvalidContentType(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("<html>not an image</html>"))
	}))
	defer ts.Close()

	_, err := NewImageDownloader().DownloadFromURL(context.Background(), ts.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid content type")
}
