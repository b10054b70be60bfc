package services

import (
	"log/slog"
	"math/rand"
	"sync"

	"github.com/SAP-F-2025/randomization-service/internal/models"
)

// defaultMaxShuffleAttempts bounds the pattern-avoidance retry loop. After
// the bound is hit the last arrangement is returned best-effort.
const defaultMaxShuffleAttempts = 5

// PatternDetector flags suspicious answer layouts across consecutive
// questions, e.g. the correct answer landing in the same slot for a whole
// test. Detectors may be stateful; Record is called once per accepted shuffle.
type PatternDetector interface {
	HasPattern(correctIndex, optionCount int) bool
	Record(correctIndex int)
}

// noopPatternDetector never reports a pattern.
type noopPatternDetector struct{}

func (noopPatternDetector) HasPattern(correctIndex, optionCount int) bool { return false }
func (noopPatternDetector) Record(correctIndex int)                      {}

// NewNoopPatternDetector returns a detector that accepts every arrangement.
func NewNoopPatternDetector() PatternDetector {
	return noopPatternDetector{}
}

// PositionBiasDetector reports a pattern when the correct answer would land
// in the same slot for streakLimit consecutive questions.
type PositionBiasDetector struct {
	mu          sync.Mutex
	streakLimit int
	lastIndex   int
	streak      int
}

func NewPositionBiasDetector(streakLimit int) *PositionBiasDetector {
	if streakLimit < 2 {
		streakLimit = 2
	}
	return &PositionBiasDetector{
		streakLimit: streakLimit,
		lastIndex:   -1,
	}
}

func (d *PositionBiasDetector) HasPattern(correctIndex, optionCount int) bool {
	if correctIndex < 0 || optionCount < 2 {
		return false
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	return correctIndex == d.lastIndex && d.streak+1 >= d.streakLimit
}

func (d *PositionBiasDetector) Record(correctIndex int) {
	if correctIndex < 0 {
		return
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if correctIndex == d.lastIndex {
		d.streak++
	} else {
		d.lastIndex = correctIndex
		d.streak = 1
	}
}

// AnswerShuffler reorders a single question's multiple-choice options while
// honoring pinned positions.
type AnswerShuffler struct {
	detector    PatternDetector
	logger      *slog.Logger
	maxAttempts int
}

func NewAnswerShuffler(detector PatternDetector, logger *slog.Logger) *AnswerShuffler {
	return NewAnswerShufflerWithAttempts(detector, logger, defaultMaxShuffleAttempts)
}

// NewAnswerShufflerWithAttempts overrides the retry bound, typically from
// config.RandomizationDefaults. Non-positive values fall back to the default.
func NewAnswerShufflerWithAttempts(detector PatternDetector, logger *slog.Logger, maxAttempts int) *AnswerShuffler {
	if detector == nil {
		detector = NewNoopPatternDetector()
	}
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxShuffleAttempts
	}
	return &AnswerShuffler{
		detector:    detector,
		logger:      logger,
		maxAttempts: maxAttempts,
	}
}

// ShuffleOptions permutes the question's options, keeping indices listed in
// preservePositions fixed. Non-multiple-choice questions and questions with
// no options are returned unchanged with an empty mapping.
func (s *AnswerShuffler) ShuffleOptions(question models.Question, preservePositions map[int]bool, avoidPatterns bool) models.ShuffleResult {
	if question.Type != models.MultipleChoice || len(question.Options) == 0 {
		return models.ShuffleResult{
			Options:            question.Options,
			Mapping:            map[int]int{},
			CorrectAnswerIndex: indexOfOption(question.Options, question.CorrectAnswer),
		}
	}

	var result models.ShuffleResult
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		result = s.shuffleOnce(question, preservePositions)

		if !avoidPatterns || !s.detector.HasPattern(result.CorrectAnswerIndex, len(result.Options)) {
			break
		}
		if attempt == s.maxAttempts {
			s.logger.Warn("no pattern-free option arrangement found within retry bound",
				"question_id", question.ID,
				"attempts", attempt)
		}
	}

	s.detector.Record(result.CorrectAnswerIndex)
	return result
}

func (s *AnswerShuffler) shuffleOnce(question models.Question, preservePositions map[int]bool) models.ShuffleResult {
	n := len(question.Options)

	fixed := make(map[int]bool, len(preservePositions))
	free := make([]int, 0, n)
	for i := 0; i < n; i++ {
		if preservePositions[i] {
			fixed[i] = true
		} else {
			free = append(free, i)
		}
	}

	shuffledFree := make([]int, len(free))
	copy(shuffledFree, free)
	rand.Shuffle(len(shuffledFree), func(i, j int) {
		shuffledFree[i], shuffledFree[j] = shuffledFree[j], shuffledFree[i]
	})

	// Reassemble: fixed items stay put, shuffled free items fill the
	// remaining slots in ascending index order.
	options := make([]string, n)
	mapping := make(map[int]int, n)
	freeCursor := 0
	for newIdx := 0; newIdx < n; newIdx++ {
		var oldIdx int
		if fixed[newIdx] {
			oldIdx = newIdx
		} else {
			oldIdx = shuffledFree[freeCursor]
			freeCursor++
		}
		options[newIdx] = question.Options[oldIdx]
		mapping[oldIdx] = newIdx
	}

	correctIndex := -1
	if oldCorrect := indexOfOption(question.Options, question.CorrectAnswer); oldCorrect >= 0 {
		correctIndex = mapping[oldCorrect]
	}

	return models.ShuffleResult{
		Options:            options,
		Mapping:            mapping,
		CorrectAnswerIndex: correctIndex,
	}
}

func indexOfOption(options []string, answer string) int {
	if answer == "" {
		return -1
	}
	for i, option := range options {
		if option == answer {
			return i
		}
	}
	return -1
}
