package services

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/SAP-F-2025/randomization-service/internal/cache"
	"github.com/SAP-F-2025/randomization-service/internal/models"
	"github.com/SAP-F-2025/randomization-service/internal/repositories"
	"github.com/SAP-F-2025/randomization-service/internal/utils"
)

const (
	historyKeyPrefix = "history:beneficiary:"

	// neverSeenScore ranks questions with no recorded exposure ahead of
	// everything else in the repetition filter.
	neverSeenScore = 1000.0

	// freshnessOverride admits a question into the output even when it sits
	// inside the repetition window, provided its freshness score is high.
	freshnessOverride = 50.0
)

// HistoryTracker maintains the per-beneficiary exposure, recency and
// performance record backing adaptive scoring and anti-repetition filtering.
type HistoryTracker interface {
	RecordQuestionShown(ctx context.Context, question models.Question, beneficiaryID, sessionID string) error
	UpdatePerformance(ctx context.Context, beneficiaryID, questionID string, isCorrect bool, responseTime float64) error
	GetUserHistory(ctx context.Context, beneficiaryID string) *models.HistoryRecord
	GetRecentQuestions(ctx context.Context, beneficiaryID string, lookbackSessions int) (map[string]models.RecentExposure, error)
	PreventQuestionRepetition(ctx context.Context, questions []models.Question, beneficiaryID string, lookbackSessions, minGap int) []models.Question
}

type historyTracker struct {
	cache    cache.CacheService
	sessions repositories.SessionRepository
	logger   *slog.Logger
	keys     *utils.KeyMutex
	now      func() time.Time
}

func NewHistoryTracker(cacheService cache.CacheService, sessions repositories.SessionRepository, logger *slog.Logger) HistoryTracker {
	return &historyTracker{
		cache:    cacheService,
		sessions: sessions,
		logger:   logger,
		keys:     utils.NewKeyMutex(),
		now:      time.Now,
	}
}

// RecordQuestionShown updates exposure counts, last-seen timestamps and topic
// exposure. Answer performance is updated separately via UpdatePerformance.
func (t *historyTracker) RecordQuestionShown(ctx context.Context, question models.Question, beneficiaryID, sessionID string) error {
	key := historyKeyPrefix + beneficiaryID

	t.keys.Lock(key)
	defer t.keys.Unlock(key)

	record := t.loadRecord(ctx, key, beneficiaryID)
	record.Exposures[question.ID]++
	record.LastSeen[question.ID] = t.now()
	record.TopicExposure[question.Topic()]++

	if err := t.cache.Set(ctx, key, record, models.HistoryRecordTTL); err != nil {
		return fmt.Errorf("%w: store history record: %w", ErrCacheUnavailable, err)
	}
	return nil
}

// UpdatePerformance folds one answer into the beneficiary's per-question
// performance aggregate.
func (t *historyTracker) UpdatePerformance(ctx context.Context, beneficiaryID, questionID string, isCorrect bool, responseTime float64) error {
	key := historyKeyPrefix + beneficiaryID

	t.keys.Lock(key)
	defer t.keys.Unlock(key)

	record := t.loadRecord(ctx, key, beneficiaryID)

	perf, ok := record.Performance[questionID]
	if !ok {
		perf = &models.QuestionPerformance{}
		record.Performance[questionID] = perf
	}

	perf.Attempts++
	if isCorrect {
		perf.Correct++
	}
	perf.TotalTime += responseTime
	perf.Accuracy = float64(perf.Correct) / float64(perf.Attempts)

	if err := t.cache.Set(ctx, key, record, models.HistoryRecordTTL); err != nil {
		return fmt.Errorf("%w: store history record: %w", ErrCacheUnavailable, err)
	}
	return nil
}

// GetUserHistory returns the full record, or an empty-shaped default when no
// record exists or the cache backend is unreachable (advisory data fails
// closed, never propagates).
func (t *historyTracker) GetUserHistory(ctx context.Context, beneficiaryID string) *models.HistoryRecord {
	return t.loadRecord(ctx, historyKeyPrefix+beneficiaryID, beneficiaryID)
}

func (t *historyTracker) loadRecord(ctx context.Context, key, beneficiaryID string) *models.HistoryRecord {
	record := models.NewHistoryRecord(beneficiaryID)
	if err := t.cache.Get(ctx, key, record); err != nil {
		if !cache.IsMiss(err) {
			t.logger.Warn("history record unavailable, using empty default",
				"beneficiary_id", beneficiaryID,
				"error", err)
		}
		return models.NewHistoryRecord(beneficiaryID)
	}
	return record
}

// GetRecentQuestions reconstructs exposure counts and timestamps from the
// beneficiary's most recent completed sessions.
func (t *historyTracker) GetRecentQuestions(ctx context.Context, beneficiaryID string, lookbackSessions int) (map[string]models.RecentExposure, error) {
	sessions, err := t.sessions.GetRecentCompletedSessions(ctx, beneficiaryID, lookbackSessions)
	if err != nil {
		return nil, fmt.Errorf("failed to get recent sessions: %w", err)
	}

	recent := make(map[string]models.RecentExposure)
	for _, session := range sessions {
		responses, err := t.sessions.GetResponses(ctx, session.ID)
		if err != nil {
			if repositories.IsNotFoundError(err) {
				continue
			}
			return nil, fmt.Errorf("failed to get responses for session %s: %w", session.ID, err)
		}

		for _, response := range responses {
			entry := recent[response.QuestionID]
			entry.Count++
			if response.CreatedAt.After(entry.LastSeen) {
				entry.LastSeen = response.CreatedAt
			}
			recent[response.QuestionID] = entry
		}
	}

	return recent, nil
}

// PreventQuestionRepetition filters candidates a beneficiary has seen too
// recently. Unlike the ordering strategies this is an explicit filter: it
// may shrink the set, but never below half the original candidates.
func (t *historyTracker) PreventQuestionRepetition(ctx context.Context, questions []models.Question, beneficiaryID string, lookbackSessions, minGap int) []models.Question {
	if len(questions) == 0 {
		return questions
	}

	recent, err := t.GetRecentQuestions(ctx, beneficiaryID, lookbackSessions)
	if err != nil {
		t.logger.Warn("recent exposure data unavailable, skipping repetition filter",
			"beneficiary_id", beneficiaryID,
			"error", err)
		return questions
	}

	scored := make([]scoredQuestion, len(questions))
	for i, q := range questions {
		scored[i] = scoredQuestion{Question: q, Score: t.freshnessScore(q.ID, recent)}
	}
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	window := newAdmissionWindow(minGap, recent)

	var admitted, excluded []scoredQuestion
	for _, sq := range scored {
		if !window.contains(sq.Question.ID) || sq.Score > freshnessOverride {
			admitted = append(admitted, sq)
			window.push(sq.Question.ID)
		} else {
			excluded = append(excluded, sq)
		}
	}

	// Floor: retain at least half the original candidates, backfilling with
	// the highest-scoring excluded questions.
	required := (len(questions) + 1) / 2
	for len(admitted) < required && len(excluded) > 0 {
		admitted = append(admitted, excluded[0])
		excluded = excluded[1:]
	}

	result := make([]models.Question, len(admitted))
	for i, sq := range admitted {
		result[i] = sq.Question
	}
	return result
}

type scoredQuestion struct {
	Question models.Question
	Score    float64
}

// freshnessScore ranks never-seen questions highest, then favors questions
// seen long ago and rarely.
func (t *historyTracker) freshnessScore(questionID string, recent map[string]models.RecentExposure) float64 {
	entry, seen := recent[questionID]
	if !seen {
		return neverSeenScore
	}
	if !entry.LastSeen.IsZero() {
		days := t.now().Sub(entry.LastSeen).Hours() / 24
		return days / float64(entry.Count+1)
	}
	return 100.0 / float64(entry.Count+1)
}

// admissionWindow is the bounded set of recently admitted (or recently seen)
// question IDs enforcing the minimum gap between exposures.
type admissionWindow struct {
	capacity int
	order    []string
	members  map[string]bool
}

func newAdmissionWindow(capacity int, recent map[string]models.RecentExposure) *admissionWindow {
	w := &admissionWindow{
		capacity: capacity,
		members:  make(map[string]bool),
	}
	if capacity <= 0 {
		return w
	}

	// Seed with the most recently seen questions so the gap applies across
	// session boundaries, not just within this filtering pass.
	type seenEntry struct {
		id       string
		lastSeen time.Time
	}
	seeds := make([]seenEntry, 0, len(recent))
	for id, entry := range recent {
		seeds = append(seeds, seenEntry{id: id, lastSeen: entry.LastSeen})
	}
	sort.Slice(seeds, func(i, j int) bool {
		return seeds[i].lastSeen.Before(seeds[j].lastSeen)
	})
	for _, seed := range seeds {
		w.push(seed.id)
	}
	return w
}

func (w *admissionWindow) contains(id string) bool {
	return w.members[id]
}

func (w *admissionWindow) push(id string) {
	if w.capacity <= 0 || w.members[id] {
		return
	}
	w.order = append(w.order, id)
	w.members[id] = true
	for len(w.order) > w.capacity {
		delete(w.members, w.order[0])
		w.order = w.order[1:]
	}
}
