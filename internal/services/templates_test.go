package services

import (
	"testing"

	"github.com/SAP-F-2025/randomization-service/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func templateFixture() []models.Question {
	return []models.Question{
		question("e1", models.DifficultyEasy),
		question("e2", models.DifficultyEasy),
		question("m1", models.DifficultyMedium),
		question("m2", models.DifficultyMedium),
		question("h1", models.DifficultyHard),
		question("h2", models.DifficultyHard),
	}
}

func difficultiesOf(questions []models.Question) []models.DifficultyLevel {
	out := make([]models.DifficultyLevel, len(questions))
	for i, q := range questions {
		out[i] = q.Difficulty
	}
	return out
}

func TestApplyTemplate_EasyToHard(t *testing.T) {
	svc, _ := newTestEngine(t)

	result := svc.applyTemplate(templateFixture(), models.TemplateEasyToHard)

	require.Len(t, result, 6)
	assert.Equal(t, []models.DifficultyLevel{
		models.DifficultyEasy, models.DifficultyEasy,
		models.DifficultyMedium, models.DifficultyMedium,
		models.DifficultyHard, models.DifficultyHard,
	}, difficultiesOf(result))
}

func TestApplyTemplate_HardToEasy(t *testing.T) {
	svc, _ := newTestEngine(t)

	result := svc.applyTemplate(templateFixture(), models.TemplateHardToEasy)

	require.Len(t, result, 6)
	assert.Equal(t, []models.DifficultyLevel{
		models.DifficultyHard, models.DifficultyHard,
		models.DifficultyMedium, models.DifficultyMedium,
		models.DifficultyEasy, models.DifficultyEasy,
	}, difficultiesOf(result))
}

func TestApplyTemplate_MixedDifficultyRoundRobins(t *testing.T) {
	svc, _ := newTestEngine(t)

	result := svc.applyTemplate(templateFixture(), models.TemplateMixedDifficulty)

	require.Len(t, result, 6)
	assert.Equal(t, []models.DifficultyLevel{
		models.DifficultyEasy, models.DifficultyMedium, models.DifficultyHard,
		models.DifficultyEasy, models.DifficultyMedium, models.DifficultyHard,
	}, difficultiesOf(result))
}

func TestApplyTemplate_TopicGroupedKeepsTopicsContiguous(t *testing.T) {
	svc, _ := newTestEngine(t)

	questions := []models.Question{
		questionWithTopic("a1", models.DifficultyEasy, "algebra"),
		questionWithTopic("g1", models.DifficultyEasy, "geometry"),
		questionWithTopic("a2", models.DifficultyMedium, "algebra"),
		questionWithTopic("g2", models.DifficultyHard, "geometry"),
		questionWithTopic("a3", models.DifficultyHard, "algebra"),
	}

	for i := 0; i < 20; i++ {
		result := svc.applyTemplate(questions, models.TemplateTopicGrouped)
		require.Len(t, result, 5)

		// Once a topic block ends, that topic never reappears.
		seen := map[string]bool{}
		current := ""
		for _, q := range result {
			topic := q.Topic()
			if topic != current {
				require.False(t, seen[topic], "topic %s split across blocks: %v", topic, idsOf(result))
				seen[topic] = true
				current = topic
			}
		}
	}
}

func TestApplyTemplate_AlternatingDifficulty(t *testing.T) {
	svc, _ := newTestEngine(t)

	questions := []models.Question{
		question("e1", models.DifficultyEasy),
		question("m1", models.DifficultyMedium),
		question("h1", models.DifficultyHard),
		question("m2", models.DifficultyMedium),
	}

	result := svc.applyTemplate(questions, models.TemplateAlternatingDifficulty)

	require.Len(t, result, 4)
	assert.Equal(t, []models.DifficultyLevel{
		models.DifficultyEasy,
		models.DifficultyMedium,
		models.DifficultyHard,
		models.DifficultyMedium,
	}, difficultiesOf(result))
}

func TestApplyTemplate_AlternatingDifficultyDrainsSurplus(t *testing.T) {
	svc, _ := newTestEngine(t)

	questions := []models.Question{
		question("e1", models.DifficultyEasy),
		question("e2", models.DifficultyEasy),
		question("e3", models.DifficultyEasy),
	}

	result := svc.applyTemplate(questions, models.TemplateAlternatingDifficulty)
	assert.Len(t, result, 3)
}

func TestApplyTemplate_CognitiveProgression(t *testing.T) {
	svc, _ := newTestEngine(t)

	mk := func(id string, level models.CognitiveLevel) models.Question {
		q := question(id, models.DifficultyMedium)
		q.CognitiveLevel = level
		return q
	}

	questions := []models.Question{
		mk("c1", models.CognitiveCreate),
		mk("r1", models.CognitiveRemember),
		mk("an1", models.CognitiveAnalyze),
		mk("u1", models.CognitiveUnderstand),
	}

	result := svc.applyTemplate(questions, models.TemplateCognitiveProgression)

	require.Len(t, result, 4)
	assert.Equal(t, []string{"r1", "u1", "an1", "c1"}, idsOf(result))
}

func TestApplyTemplate_CognitiveProgressionDefaultsToApply(t *testing.T) {
	svc, _ := newTestEngine(t)

	mk := func(id string, level models.CognitiveLevel) models.Question {
		q := question(id, models.DifficultyMedium)
		q.CognitiveLevel = level
		return q
	}

	questions := []models.Question{
		mk("c1", models.CognitiveCreate),
		mk("untagged", ""),
		mk("r1", models.CognitiveRemember),
	}

	result := svc.applyTemplate(questions, models.TemplateCognitiveProgression)

	// Untagged questions fold into the "apply" tier, between remember and create.
	assert.Equal(t, []string{"r1", "untagged", "c1"}, idsOf(result))
}

func TestApplyTemplate_UnknownFallsBackToMixed(t *testing.T) {
	svc, _ := newTestEngine(t)

	result := svc.applyTemplate(templateFixture(), models.TemplatePattern("zigzag"))

	require.Len(t, result, 6)
	assert.Equal(t, []models.DifficultyLevel{
		models.DifficultyEasy, models.DifficultyMedium, models.DifficultyHard,
		models.DifficultyEasy, models.DifficultyMedium, models.DifficultyHard,
	}, difficultiesOf(result))
}

func TestApplyTemplate_UnsetDifficultyFoldsToMedium(t *testing.T) {
	svc, _ := newTestEngine(t)

	questions := []models.Question{
		question("h1", models.DifficultyHard),
		{ID: "untagged", Type: models.MultipleChoice},
		question("e1", models.DifficultyEasy),
	}

	result := svc.applyTemplate(questions, models.TemplateEasyToHard)

	assert.Equal(t, []string{"e1", "untagged", "h1"}, idsOf(result))
}
