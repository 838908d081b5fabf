package reminder

import (
	"context"
	"time"

	"github.com/raine/ciftci-pazari-bot/internal/storage"
	"github.com/rs/zerolog/log"
)

const (
	// PollInterval is the time between pending product checks.
	PollInterval = 30 * time.Minute

	// StartDelay lets the bot finish starting before the first check.
	StartDelay = 5 * time.Second

	// PruneInterval is how often to prune old verification cache entries.
	PruneInterval = 24 * time.Hour

	// CacheMaxAge is how long to keep verification results before pruning.
	CacheMaxAge = 30 * 24 * time.Hour // 30 days
)

// Notifier delivers the pending product reminder to the moderator.
type Notifier interface {
	NotifyPendingCount(count int) error
}

// Store is the subset of storage the reminder needs.
type Store interface {
	CountProductsByStatus(status storage.ProductStatus) (int, error)
	PruneVerificationCache(olderThan time.Duration) (int64, error)
}

// Service is the background service that reminds the admin about products
// waiting for review and prunes the verification cache.
type Service struct {
	store    Store
	notifier Notifier

	pollInterval  time.Duration
	pruneInterval time.Duration
	startDelay    time.Duration

	// Pending count of the last reminder; the admin is pinged again only
	// when the queue changes.
	lastNotified int
}

// NewService creates a new reminder service. notifier may be nil, in which
// case only cache pruning runs.
func NewService(store Store, notifier Notifier) *Service {
	return &Service{
		store:         store,
		notifier:      notifier,
		pollInterval:  PollInterval,
		pruneInterval: PruneInterval,
		startDelay:    StartDelay,
	}
}

// Run starts the polling loop. It blocks until the context is cancelled.
func (s *Service) Run(ctx context.Context) {
	log.Info().Dur("interval", s.pollInterval).Bool("notify", s.notifier != nil).Msg("starting reminder service")

	select {
	case <-ctx.Done():
		return
	case <-time.After(s.startDelay):
	}
	s.checkPending()
	s.pruneCache()

	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	pruneTicker := time.NewTicker(s.pruneInterval)
	defer pruneTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("reminder service stopped")
			return
		case <-ticker.C:
			s.checkPending()
		case <-pruneTicker.C:
			s.pruneCache()
		}
	}
}

// checkPending notifies the admin when pending products exist and their
// count differs from the last reminder.
func (s *Service) checkPending() {
	if s.notifier == nil {
		return
	}

	count, err := s.store.CountProductsByStatus(storage.StatusPending)
	if err != nil {
		log.Error().Err(err).Msg("failed to count pending products")
		return
	}

	if count == 0 {
		s.lastNotified = 0
		return
	}
	if count == s.lastNotified {
		log.Debug().Int("pending", count).Msg("pending count unchanged, skipping reminder")
		return
	}

	if err := s.notifier.NotifyPendingCount(count); err != nil {
		log.Error().Err(err).Int("pending", count).Msg("failed to send pending reminder")
		return
	}
	s.lastNotified = count
	log.Info().Int("pending", count).Msg("sent pending reminder")
}

// pruneCache removes old verification results to prevent database bloat.
func (s *Service) pruneCache() {
	count, err := s.store.PruneVerificationCache(CacheMaxAge)
	if err != nil {
		log.Error().Err(err).Msg("failed to prune verification cache")
		return
	}
	if count > 0 {
		log.Info().Int64("pruned", count).Msg("pruned old verification cache entries")
	}
}
