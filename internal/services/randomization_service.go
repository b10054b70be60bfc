package services

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/SAP-F-2025/randomization-service/internal/events"
	"github.com/SAP-F-2025/randomization-service/internal/models"
	"github.com/SAP-F-2025/randomization-service/internal/validator"
)

const (
	// adaptiveBrackets is the number of score brackets shuffled when a
	// randomness factor is set, so adaptive ordering never degenerates into
	// a fully predictable hardest-unseen-first pattern.
	adaptiveBrackets = 5

	// balancedSegmentSize is the window within which the balanced strategy
	// mixes difficulty tiers and topics.
	balancedSegmentSize = 3
)

// RandomizationService orchestrates strategy selection, consults the trackers
// for adaptive signals, and delegates anchor/blocking placement to the
// constraint resolver. Randomize never mutates its input and always returns a
// permutation of it.
type RandomizationService interface {
	Randomize(ctx context.Context, req *RandomizeRequest) ([]models.Question, error)
	TrackQuestionExposure(ctx context.Context, question models.Question, beneficiaryID, sessionID string) error
}

// RandomizeRequest carries one randomization invocation. BeneficiaryID and
// SessionID are optional except where a strategy needs them (Adaptive
// requires BeneficiaryID and silently downgrades without it).
type RandomizeRequest struct {
	Questions     []models.Question          `json:"questions" validate:"omitempty,dive"`
	Strategy      models.Strategy            `json:"strategy"`
	BeneficiaryID string                     `json:"beneficiary_id,omitempty"`
	SessionID     string                     `json:"session_id,omitempty"`
	Config        models.RandomizationConfig `json:"config"`
}

type randomizationService struct {
	exposure  ExposureTracker
	history   HistoryTracker
	resolver  *ConstraintResolver
	publisher events.EventPublisher
	logger    *slog.Logger
	validator *validator.Validator
	now       func() time.Time
}

func NewRandomizationService(
	exposure ExposureTracker,
	history HistoryTracker,
	resolver *ConstraintResolver,
	publisher events.EventPublisher,
	logger *slog.Logger,
	v *validator.Validator,
) RandomizationService {
	return &randomizationService{
		exposure:  exposure,
		history:   history,
		resolver:  resolver,
		publisher: publisher,
		logger:    logger,
		validator: v,
		now:       time.Now,
	}
}

// ===== CORE RANDOMIZATION =====

func (s *randomizationService) Randomize(ctx context.Context, req *RandomizeRequest) ([]models.Question, error) {
	if req == nil {
		return nil, fmt.Errorf("%w: nil request", ErrValidationFailed)
	}
	if err := s.validator.Validate(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}
	if len(req.Questions) == 0 {
		return []models.Question{}, nil
	}

	core, anchored := splitAnchored(req.Questions, req.Config.AnchorPositions)

	strategy := s.effectiveStrategy(req)

	var ordered []models.Question
	switch strategy {
	case models.StrategySimpleRandom:
		ordered = s.simpleRandom(core)
	case models.StrategyStratified:
		ordered = s.stratified(core, req.Config.StrataKey)
	case models.StrategyDeterministic:
		ordered = s.deterministic(core, req)
	case models.StrategyAdaptive:
		ordered = s.adaptive(ctx, core, req)
	case models.StrategyTemplateBased:
		ordered = s.applyTemplate(core, req.Config.Template)
	case models.StrategyBalanced:
		ordered = s.balanced(core)
	}

	result, report := s.resolver.Apply(ordered, anchored, req.Config.BlockingRules)
	for _, unsatisfied := range report.Unsatisfied() {
		s.logger.Warn("blocking rule left unsatisfied",
			"rule_type", unsatisfied.Rule.Type,
			"question_ids", unsatisfied.Rule.QuestionIDs,
			"reason", unsatisfied.Reason)
	}

	return result, nil
}

// effectiveStrategy resolves downgrades: unknown strategies and Adaptive
// without a beneficiary fall back to SimpleRandom, logged but never raised.
func (s *randomizationService) effectiveStrategy(req *RandomizeRequest) models.Strategy {
	strategy := req.Strategy
	if !strategy.IsValid() {
		s.logger.Warn("unknown strategy, falling back to simple random",
			"strategy", strategy,
			"error", ErrUnknownStrategy)
		return models.StrategySimpleRandom
	}
	if strategy == models.StrategyAdaptive && req.BeneficiaryID == "" {
		s.logger.Warn("adaptive strategy without beneficiary, falling back to simple random",
			"error", ErrBeneficiaryRequired)
		return models.StrategySimpleRandom
	}
	return strategy
}

// splitAnchored separates questions pinned by the anchor map from the core
// set the strategy is allowed to reorder.
func splitAnchored(questions []models.Question, anchors models.AnchorMap) ([]models.Question, []AnchoredQuestion) {
	core := make([]models.Question, 0, len(questions))
	var anchored []AnchoredQuestion
	for _, q := range questions {
		if pos, ok := anchors[q.ID]; ok {
			anchored = append(anchored, AnchoredQuestion{Question: q, Position: pos})
		} else {
			core = append(core, q)
		}
	}
	return core, anchored
}

// ===== STRATEGIES =====

func (s *randomizationService) simpleRandom(questions []models.Question) []models.Question {
	shuffled := make([]models.Question, len(questions))
	copy(shuffled, questions)
	rand.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})
	return shuffled
}

// stratified groups questions by the strata key, shuffles within each group,
// then interleaves groups round-robin in sorted key order so early positions
// hold one question per stratum before any stratum repeats.
func (s *randomizationService) stratified(questions []models.Question, key models.StrataKey) []models.Question {
	groups := make(map[string][]models.Question)
	for _, q := range questions {
		k := strataValue(q, key)
		groups[k] = append(groups[k], q)
	}

	keys := make([]string, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		group := groups[k]
		rand.Shuffle(len(group), func(i, j int) {
			group[i], group[j] = group[j], group[i]
		})
	}

	result := make([]models.Question, 0, len(questions))
	for len(result) < len(questions) {
		for _, k := range keys {
			if len(groups[k]) == 0 {
				continue
			}
			result = append(result, groups[k][0])
			groups[k] = groups[k][1:]
		}
	}
	return result
}

func strataValue(q models.Question, key models.StrataKey) string {
	switch key {
	case models.StrataTopic:
		return q.Topic()
	case models.StrataBoth:
		return string(q.Difficulty) + ":" + q.Topic()
	default:
		return string(q.Difficulty)
	}
}

// deterministic shuffles with a PRNG seeded from the invocation identity, so
// identical inputs always reproduce the same order.
func (s *randomizationService) deterministic(questions []models.Question, req *RandomizeRequest) []models.Question {
	parts := []string{
		req.BeneficiaryID,
		req.SessionID,
		req.Config.TestID,
		strconv.Itoa(req.Config.AttemptNumber),
	}
	if req.Config.TimeBasedSeed {
		parts = append(parts, timeBucket(s.now(), req.Config.TimeWindow))
	}

	rng := rand.New(rand.NewSource(int64(seedFromString(strings.Join(parts, ":")))))

	shuffled := make([]models.Question, len(questions))
	copy(shuffled, questions)
	rng.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})
	return shuffled
}

// seedFromString hashes the seed components to a 32-bit value: the first 8
// hex chars of the MD5 digest. MD5 is an identity hash here, not a security
// boundary.
func seedFromString(seed string) uint32 {
	sum := md5.Sum([]byte(seed))
	value, err := strconv.ParseUint(hex.EncodeToString(sum[:])[:8], 16, 32)
	if err != nil {
		return 0
	}
	return uint32(value)
}

func timeBucket(now time.Time, window models.TimeWindow) string {
	switch window {
	case models.WindowWeekly:
		year, week := now.ISOWeek()
		return fmt.Sprintf("%d-W%02d", year, week)
	case models.WindowMonthly:
		return now.Format("2006-01")
	default:
		return now.Format("2006-01-02")
	}
}

// adaptive orders questions by a per-beneficiary priority score, highest
// first. A non-zero randomness factor shuffles within score brackets so the
// ordering stays unpredictable while keeping its overall shape.
func (s *randomizationService) adaptive(ctx context.Context, questions []models.Question, req *RandomizeRequest) []models.Question {
	history := s.history.GetUserHistory(ctx, req.BeneficiaryID)

	scored := make([]scoredQuestion, len(questions))
	for i, q := range questions {
		scored[i] = scoredQuestion{Question: q, Score: s.adaptiveScore(q, history)}
	}
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	if req.Config.RandomnessFactor > 0 && len(scored) > 1 {
		bracketSize := (len(scored) + adaptiveBrackets - 1) / adaptiveBrackets
		for start := 0; start < len(scored); start += bracketSize {
			end := start + bracketSize
			if end > len(scored) {
				end = len(scored)
			}
			bracket := scored[start:end]
			rand.Shuffle(len(bracket), func(i, j int) {
				bracket[i], bracket[j] = bracket[j], bracket[i]
			})
		}
	}

	result := make([]models.Question, len(scored))
	for i, sq := range scored {
		result[i] = sq.Question
	}
	return result
}

// adaptiveScore starts at 100 and penalizes over-exposure, rewards staleness
// (capped so very old questions cannot dominate), prioritizes questions the
// beneficiary answers poorly, and balances topic coverage. Floored at 0.
func (s *randomizationService) adaptiveScore(q models.Question, history *models.HistoryRecord) float64 {
	score := 100.0

	score -= 20.0 * float64(history.Exposures[q.ID])

	if lastSeen, ok := history.LastSeen[q.ID]; ok {
		days := s.now().Sub(lastSeen).Hours() / 24
		score += math.Min(days*2, 50)
	}

	accuracy := 0.0
	if perf, ok := history.Performance[q.ID]; ok && perf.Attempts > 0 {
		accuracy = perf.Accuracy
	}
	score += (1 - accuracy) * 30

	if avg := averageTopicExposure(history.TopicExposure); avg > 0 {
		if float64(history.TopicExposure[q.Topic()]) < avg {
			score += 20
		}
	}

	if score < 0 {
		score = 0
	}
	return score
}

func averageTopicExposure(topicExposure map[string]int) float64 {
	if len(topicExposure) == 0 {
		return 0
	}
	total := 0
	for _, count := range topicExposure {
		total += count
	}
	return float64(total) / float64(len(topicExposure))
}

// balanced builds segments that each hold one question per difficulty tier
// where available, topped up with fillers from the least-represented topic,
// then shuffles within each segment.
func (s *randomizationService) balanced(questions []models.Question) []models.Question {
	remaining := make([]models.Question, len(questions))
	copy(remaining, questions)
	rand.Shuffle(len(remaining), func(i, j int) {
		remaining[i], remaining[j] = remaining[j], remaining[i]
	})

	result := make([]models.Question, 0, len(questions))
	for len(remaining) > 0 {
		segSize := balancedSegmentSize
		if len(remaining) < segSize {
			segSize = len(remaining)
		}

		segment := make([]models.Question, 0, segSize)

		// One per tier first.
		for _, tier := range models.DifficultyOrder {
			if len(segment) == segSize {
				break
			}
			if idx := indexOfDifficulty(remaining, tier); idx >= 0 {
				segment = append(segment, remaining[idx])
				remaining = append(remaining[:idx], remaining[idx+1:]...)
			}
		}

		// Topic-diverse fillers for the rest.
		for len(segment) < segSize && len(remaining) > 0 {
			idx := leastRepresentedTopic(remaining, segment)
			segment = append(segment, remaining[idx])
			remaining = append(remaining[:idx], remaining[idx+1:]...)
		}

		rand.Shuffle(len(segment), func(i, j int) {
			segment[i], segment[j] = segment[j], segment[i]
		})
		result = append(result, segment...)
	}
	return result
}

func indexOfDifficulty(questions []models.Question, tier models.DifficultyLevel) int {
	for idx, q := range questions {
		if q.Difficulty == tier {
			return idx
		}
	}
	return -1
}

// leastRepresentedTopic picks the candidate whose topic occurs least often in
// the segment so far, ties broken by the earliest candidate.
func leastRepresentedTopic(candidates, segment []models.Question) int {
	counts := make(map[string]int)
	for _, q := range segment {
		counts[q.Topic()]++
	}

	best := 0
	bestCount := counts[candidates[0].Topic()]
	for idx := 1; idx < len(candidates); idx++ {
		if c := counts[candidates[idx].Topic()]; c < bestCount {
			best = idx
			bestCount = c
		}
	}
	return best
}

// ===== EXPOSURE TRACKING =====

// TrackQuestionExposure updates both trackers after a question has actually
// been served, and emits an exposure event for the analytics pipeline.
// Tracker data is advisory, so every failure is attempted past; the joined
// error reports what went wrong without undoing anything.
func (s *randomizationService) TrackQuestionExposure(ctx context.Context, question models.Question, beneficiaryID, sessionID string) error {
	var errs []error

	if err := s.exposure.RecordExposure(ctx, question.ID, beneficiaryID, sessionID); err != nil {
		s.logger.Warn("failed to record exposure", "question_id", question.ID, "error", err)
		errs = append(errs, err)
	}

	if err := s.history.RecordQuestionShown(ctx, question, beneficiaryID, sessionID); err != nil {
		s.logger.Warn("failed to record history", "question_id", question.ID, "error", err)
		errs = append(errs, err)
	}

	if s.publisher != nil {
		event := events.NewExposureEvent(question.ID, beneficiaryID, sessionID)
		if err := s.publisher.PublishExposureEvent(ctx, event); err != nil {
			s.logger.Warn("failed to publish exposure event", "question_id", question.ID, "error", err)
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}
