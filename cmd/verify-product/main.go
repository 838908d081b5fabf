package main

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/raine/ciftci-pazari-bot/internal/config"
	"github.com/raine/ciftci-pazari-bot/internal/verify"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	if len(os.Args) < 3 {
		fmt.Fprintf(os.Stderr, "Usage: %s <image> <product-name> [description] [category]\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\n<image> is a local file, a URL, a data URI, or a path on the marketplace server.\n")
		fmt.Fprintf(os.Stderr, "\nEnvironment variables:\n")
		fmt.Fprintf(os.Stderr, "  GEMINI_API_KEY  - Required for a real verdict\n")
		fmt.Fprintf(os.Stderr, "  GEMINI_MODEL    - Model name (default %s)\n", verify.DefaultModel)
		fmt.Fprintf(os.Stderr, "  SERVER_BASE_URL - Base URL for relative image paths (default %s)\n", config.DefaultBaseURL)
		os.Exit(1)
	}

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	config.LoadEnvFile()

	imageRef, err := loadImageRef(os.Args[1])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to read image: %v\n", err)
		os.Exit(1)
	}

	req := verify.Request{
		ProductName: os.Args[2],
		ImageRef:    imageRef,
	}
	if len(os.Args) >= 4 {
		req.Description = os.Args[3]
	}
	if len(os.Args) >= 5 {
		req.CategoryName = os.Args[4]
	}

	ctx := context.Background()
	verifier, err := verify.New(ctx, verify.Config{
		APIKey:           os.Getenv("GEMINI_API_KEY"),
		BaseURL:          config.EnvOr("SERVER_BASE_URL", config.DefaultBaseURL),
		Model:            os.Getenv("GEMINI_MODEL"),
		StructuredOutput: true,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating verifier: %v\n", err)
		os.Exit(1)
	}

	result, err := verifier.Check(ctx, req)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Verification failed: %v\n", err)
	}

	out, _ := json.MarshalIndent(result, "", "  ")
	fmt.Println(string(out))
}

// loadImageRef turns a local file into a data URI. Data URIs, URLs and
// server paths such as /uploads/... are passed through unchanged, as is a
// bare filename that does not exist locally.
func loadImageRef(arg string) (string, error) {
	if verify.ClassifyImageRef(arg).Kind != verify.RefBareFilename {
		return arg, nil
	}
	info, err := os.Stat(arg)
	if err != nil || info.IsDir() {
		return arg, nil
	}
	data, err := os.ReadFile(arg)
	if err != nil {
		return "", err
	}
	return "data:" + getMimeType(arg) + ";base64," + base64.StdEncoding.EncodeToString(data), nil
}

func getMimeType(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	case ".webp":
		return "image/webp"
	default:
		return "image/jpeg"
	}
}
