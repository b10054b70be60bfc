package services

import (
	"testing"

	"github.com/SAP-F-2025/randomization-service/internal/models"
	"github.com/SAP-F-2025/randomization-service/internal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func multipleChoiceQuestion() models.Question {
	return models.Question{
		ID:            "q1",
		Type:          models.MultipleChoice,
		Options:       []string{"red", "green", "blue", "yellow"},
		CorrectAnswer: "blue",
	}
}

func TestShuffleOptions_MultisetAndMappingInvariants(t *testing.T) {
	shuffler := NewAnswerShuffler(nil, utils.NewDevelopmentLogger())
	q := multipleChoiceQuestion()

	for i := 0; i < 50; i++ {
		result := shuffler.ShuffleOptions(q, nil, false)

		assert.ElementsMatch(t, q.Options, result.Options)

		// Mapping must be a bijection over the option indices.
		require.Len(t, result.Mapping, len(q.Options))
		seen := map[int]bool{}
		for oldIdx, newIdx := range result.Mapping {
			require.GreaterOrEqual(t, oldIdx, 0)
			require.Less(t, oldIdx, len(q.Options))
			require.GreaterOrEqual(t, newIdx, 0)
			require.Less(t, newIdx, len(q.Options))
			require.False(t, seen[newIdx], "duplicate target index %d", newIdx)
			seen[newIdx] = true

			assert.Equal(t, q.Options[oldIdx], result.Options[newIdx])
		}

		require.GreaterOrEqual(t, result.CorrectAnswerIndex, 0)
		assert.Equal(t, "blue", result.Options[result.CorrectAnswerIndex])
	}
}

func TestShuffleOptions_PreservedPositionsStayPut(t *testing.T) {
	shuffler := NewAnswerShuffler(nil, utils.NewDevelopmentLogger())
	q := models.Question{
		ID:            "q1",
		Type:          models.MultipleChoice,
		Options:       []string{"a", "b", "c", "all of the above"},
		CorrectAnswer: "all of the above",
	}

	preserve := map[int]bool{3: true}
	for i := 0; i < 50; i++ {
		result := shuffler.ShuffleOptions(q, preserve, false)

		assert.Equal(t, "all of the above", result.Options[3])
		assert.Equal(t, 3, result.Mapping[3])
		assert.Equal(t, 3, result.CorrectAnswerIndex)
		assert.ElementsMatch(t, q.Options, result.Options)
	}
}

func TestShuffleOptions_NonShuffleableQuestions(t *testing.T) {
	shuffler := NewAnswerShuffler(nil, utils.NewDevelopmentLogger())

	tests := []struct {
		name     string
		question models.Question
	}{
		{
			name: "true false",
			question: models.Question{
				ID:            "q1",
				Type:          models.TrueFalse,
				Options:       []string{"true", "false"},
				CorrectAnswer: "true",
			},
		},
		{
			name: "essay",
			question: models.Question{
				ID:   "q2",
				Type: models.Essay,
			},
		},
		{
			name: "multiple choice without options",
			question: models.Question{
				ID:   "q3",
				Type: models.MultipleChoice,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := shuffler.ShuffleOptions(tt.question, nil, true)

			assert.Equal(t, tt.question.Options, result.Options)
			assert.Empty(t, result.Mapping)
		})
	}
}

func TestShuffleOptions_UnknownCorrectAnswer(t *testing.T) {
	shuffler := NewAnswerShuffler(nil, utils.NewDevelopmentLogger())
	q := models.Question{
		ID:      "q1",
		Type:    models.MultipleChoice,
		Options: []string{"a", "b", "c"},
	}

	result := shuffler.ShuffleOptions(q, nil, false)
	assert.Equal(t, -1, result.CorrectAnswerIndex)
}

// alwaysPatternDetector rejects every arrangement, forcing the retry bound.
type alwaysPatternDetector struct {
	calls   int
	records int
}

func (d *alwaysPatternDetector) HasPattern(correctIndex, optionCount int) bool {
	d.calls++
	return true
}

func (d *alwaysPatternDetector) Record(correctIndex int) {
	d.records++
}

func TestShuffleOptions_PatternAvoidanceIsBounded(t *testing.T) {
	detector := &alwaysPatternDetector{}
	shuffler := NewAnswerShuffler(detector, utils.NewDevelopmentLogger())
	q := multipleChoiceQuestion()

	result := shuffler.ShuffleOptions(q, nil, true)

	// Best-effort: a valid arrangement comes back even when no pattern-free
	// one exists, after exactly maxAttempts tries.
	assert.ElementsMatch(t, q.Options, result.Options)
	assert.Equal(t, defaultMaxShuffleAttempts, detector.calls)
	assert.Equal(t, 1, detector.records)
}

func TestNewAnswerShufflerWithAttempts(t *testing.T) {
	detector := &alwaysPatternDetector{}
	shuffler := NewAnswerShufflerWithAttempts(detector, utils.NewDevelopmentLogger(), 2)

	shuffler.ShuffleOptions(multipleChoiceQuestion(), nil, true)
	assert.Equal(t, 2, detector.calls)
}

func TestNewAnswerShufflerWithAttempts_NonPositiveFallsBack(t *testing.T) {
	detector := &alwaysPatternDetector{}
	shuffler := NewAnswerShufflerWithAttempts(detector, utils.NewDevelopmentLogger(), 0)

	shuffler.ShuffleOptions(multipleChoiceQuestion(), nil, true)
	assert.Equal(t, defaultMaxShuffleAttempts, detector.calls)
}

func TestShuffleOptions_PatternAvoidanceDisabledSkipsDetector(t *testing.T) {
	detector := &alwaysPatternDetector{}
	shuffler := NewAnswerShuffler(detector, utils.NewDevelopmentLogger())

	shuffler.ShuffleOptions(multipleChoiceQuestion(), nil, false)

	assert.Equal(t, 0, detector.calls)
	assert.Equal(t, 1, detector.records)
}

func TestPositionBiasDetector(t *testing.T) {
	detector := NewPositionBiasDetector(3)

	// Two accepted shuffles with the correct answer in slot 1.
	detector.Record(1)
	assert.False(t, detector.HasPattern(1, 4))
	detector.Record(1)

	// A third consecutive slot-1 answer would complete the streak.
	assert.True(t, detector.HasPattern(1, 4))
	assert.False(t, detector.HasPattern(2, 4))

	// Breaking the streak resets it.
	detector.Record(2)
	assert.False(t, detector.HasPattern(1, 4))
}

func TestPositionBiasDetector_IgnoresUnknownIndex(t *testing.T) {
	detector := NewPositionBiasDetector(2)

	detector.Record(-1)
	assert.False(t, detector.HasPattern(-1, 4))
	assert.False(t, detector.HasPattern(0, 1))
}
