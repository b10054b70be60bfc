package validator

import (
	"testing"

	"github.com/SAP-F-2025/randomization-service/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate_Question(t *testing.T) {
	v := New()

	tests := []struct {
		name     string
		question models.Question
		valid    bool
	}{
		{
			name: "valid multiple choice",
			question: models.Question{
				ID:         "q1",
				Type:       models.MultipleChoice,
				Difficulty: models.DifficultyEasy,
			},
			valid: true,
		},
		{
			name: "optional fields may be empty",
			question: models.Question{
				ID: "q2",
			},
			valid: true,
		},
		{
			name:     "missing id",
			question: models.Question{Type: models.Essay},
			valid:    false,
		},
		{
			name: "invalid type",
			question: models.Question{
				ID:   "q3",
				Type: models.QuestionType("matching"),
			},
			valid: false,
		},
		{
			name: "invalid difficulty",
			question: models.Question{
				ID:         "q4",
				Difficulty: models.DifficultyLevel("extreme"),
			},
			valid: false,
		},
		{
			name: "invalid cognitive level",
			question: models.Question{
				ID:             "q5",
				CognitiveLevel: models.CognitiveLevel("memorize"),
			},
			valid: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(tt.question)
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestValidate_RandomizationConfig(t *testing.T) {
	v := New()

	tests := []struct {
		name   string
		config models.RandomizationConfig
		valid  bool
	}{
		{
			name:   "zero value",
			config: models.RandomizationConfig{},
			valid:  true,
		},
		{
			name: "full config",
			config: models.RandomizationConfig{
				StrataKey:        models.StrataBoth,
				RandomnessFactor: 0.3,
				TimeBasedSeed:    true,
				TimeWindow:       models.WindowWeekly,
				BlockingRules: []models.BlockingRule{
					{Type: models.BlockApart, QuestionIDs: []string{"q1", "q2"}, MinDistance: 2},
				},
			},
			valid: true,
		},
		{
			name:   "randomness factor above one",
			config: models.RandomizationConfig{RandomnessFactor: 1.5},
			valid:  false,
		},
		{
			name:   "unknown strata key",
			config: models.RandomizationConfig{StrataKey: models.StrataKey("chapter")},
			valid:  false,
		},
		{
			name:   "unknown time window",
			config: models.RandomizationConfig{TimeWindow: models.TimeWindow("hourly")},
			valid:  false,
		},
		{
			name: "blocking rule with one question",
			config: models.RandomizationConfig{
				BlockingRules: []models.BlockingRule{
					{Type: models.BlockTogether, QuestionIDs: []string{"q1"}},
				},
			},
			valid: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(tt.config)
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestValidate_ReturnsDomainErrors(t *testing.T) {
	v := New()

	err := v.Validate(models.RandomizationConfig{RandomnessFactor: 2})
	require.Error(t, err)

	errs, ok := err.(ValidationErrors)
	require.True(t, ok)
	require.Len(t, errs, 1)
	// Field names come from json tags.
	assert.Equal(t, "randomness_factor", errs[0].Field)
	assert.Equal(t, "lte", errs[0].Rule)
}
