package verify

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"

	"github.com/raine/ciftci-pazari-bot/internal/storage"
)

// ResultCache persists successful verification results keyed by a hash of the
// image and listing metadata.
type ResultCache interface {
	GetVerificationCache(key string) (*storage.VerificationCacheEntry, error)
	SetVerificationCache(key string, entry *storage.VerificationCacheEntry) error
}

// cacheKey hashes the resolved image together with the listing fields.
// Each field is length prefixed to prevent boundary collisions.
func cacheKey(req Request, image *ImagePayload) string {
	h := sha256.New()
	for _, field := range []string{
		req.ProductName,
		req.Description,
		req.CategoryName,
		image.MIMEType,
		image.Data,
	} {
		binary.Write(h, binary.LittleEndian, int64(len(field)))
		h.Write([]byte(field))
	}
	return hex.EncodeToString(h.Sum(nil))
}

func resultFromCache(entry *storage.VerificationCacheEntry) Result {
	return Result{
		IsValid:    entry.IsValid,
		Confidence: entry.Confidence,
		Reason:     entry.Reason,
	}.withAutoApproval()
}

func cacheEntryFromResult(r Result) *storage.VerificationCacheEntry {
	return &storage.VerificationCacheEntry{
		IsValid:      r.IsValid,
		Confidence:   r.Confidence,
		Reason:       r.Reason,
		AutoApproved: r.AutoApproved,
	}
}
