package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/SAP-F-2025/randomization-service/internal/cache"
	"github.com/SAP-F-2025/randomization-service/internal/models"
	"github.com/SAP-F-2025/randomization-service/internal/utils"
)

const (
	exposureKeyPrefix       = "exposure:question:"
	exposureSessionCountKey = "exposure:total_sessions"
)

// ExposureTracker maintains process-wide, cache-backed counters of how often
// each question has been shown. The counters are advisory signals: reads fail
// closed to empty defaults when the cache backend is unreachable.
type ExposureTracker interface {
	RecordExposure(ctx context.Context, questionID, beneficiaryID, sessionID string) error
	IncrementSessionCount(ctx context.Context) error
	GetExposureRates(ctx context.Context, questionIDs []string) map[string]float64
	GetExposureRecord(ctx context.Context, questionID string) *models.ExposureRecord
}

type exposureTracker struct {
	cache  cache.CacheService
	logger *slog.Logger
	keys   *utils.KeyMutex
	now    func() time.Time
}

func NewExposureTracker(cacheService cache.CacheService, logger *slog.Logger) ExposureTracker {
	return &exposureTracker{
		cache:  cacheService,
		logger: logger,
		keys:   utils.NewKeyMutex(),
		now:    time.Now,
	}
}

// RecordExposure increments the question's counters after it has actually
// been served. The read-modify-write cycle is serialized per question key so
// concurrent sessions cannot lose updates.
func (t *exposureTracker) RecordExposure(ctx context.Context, questionID, beneficiaryID, sessionID string) error {
	key := exposureKeyPrefix + questionID

	t.keys.Lock(key)
	defer t.keys.Unlock(key)

	record := models.NewExposureRecord(questionID)
	if err := t.cache.Get(ctx, key, record); err != nil && !cache.IsMiss(err) {
		return fmt.Errorf("%w: load exposure record: %w", ErrCacheUnavailable, err)
	}

	now := t.now()
	record.Total++
	record.UniqueUsers[beneficiaryID] = true
	record.RecentSessions = append(record.RecentSessions, models.SessionExposure{
		SessionID:     sessionID,
		BeneficiaryID: beneficiaryID,
		Timestamp:     now,
	})
	record.RecentSessions = pruneSessionExposures(record.RecentSessions, now)

	if err := t.cache.Set(ctx, key, record, models.ExposureRecordTTL); err != nil {
		return fmt.Errorf("%w: store exposure record: %w", ErrCacheUnavailable, err)
	}

	return nil
}

// IncrementSessionCount bumps the global session counter used as the
// denominator for exposure rates. Called once per served session.
func (t *exposureTracker) IncrementSessionCount(ctx context.Context) error {
	t.keys.Lock(exposureSessionCountKey)
	defer t.keys.Unlock(exposureSessionCountKey)

	var count int
	if err := t.cache.Get(ctx, exposureSessionCountKey, &count); err != nil && !cache.IsMiss(err) {
		return fmt.Errorf("%w: load session counter: %w", ErrCacheUnavailable, err)
	}

	count++
	if err := t.cache.Set(ctx, exposureSessionCountKey, count, 0); err != nil {
		return fmt.Errorf("%w: store session counter: %w", ErrCacheUnavailable, err)
	}

	return nil
}

// GetExposureRates returns each question's total exposures as a fraction of
// the global session count. Missing records yield 0.0; a missing or zero
// counter defaults to 1 to avoid division by zero.
func (t *exposureTracker) GetExposureRates(ctx context.Context, questionIDs []string) map[string]float64 {
	var totalSessions int
	if err := t.cache.Get(ctx, exposureSessionCountKey, &totalSessions); err != nil && !cache.IsMiss(err) {
		t.logger.Warn("exposure rate denominator unavailable, assuming 1", "error", err)
	}
	if totalSessions < 1 {
		totalSessions = 1
	}

	rates := make(map[string]float64, len(questionIDs))
	for _, questionID := range questionIDs {
		rates[questionID] = 0.0

		record := t.GetExposureRecord(ctx, questionID)
		if record != nil {
			rates[questionID] = float64(record.Total) / float64(totalSessions)
		}
	}

	return rates
}

// GetExposureRecord returns the record for one question, or nil when no
// record exists or the cache is unreachable.
func (t *exposureTracker) GetExposureRecord(ctx context.Context, questionID string) *models.ExposureRecord {
	record := models.NewExposureRecord(questionID)
	if err := t.cache.Get(ctx, exposureKeyPrefix+questionID, record); err != nil {
		if !cache.IsMiss(err) {
			t.logger.Warn("exposure record unavailable, treating as unseen",
				"question_id", questionID,
				"error", err)
		}
		return nil
	}
	return record
}

// pruneSessionExposures drops entries older than the rolling window and caps
// the list length, keeping the most recent entries.
func pruneSessionExposures(sessions []models.SessionExposure, now time.Time) []models.SessionExposure {
	cutoff := now.Add(-models.ExposureSessionWindow)

	kept := sessions[:0]
	for _, s := range sessions {
		if s.Timestamp.After(cutoff) {
			kept = append(kept, s)
		}
	}

	if len(kept) > models.MaxRecentSessions {
		kept = kept[len(kept)-models.MaxRecentSessions:]
	}
	return kept
}
