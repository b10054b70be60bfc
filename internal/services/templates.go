package services

import (
	"math/rand"
	"sort"

	"github.com/SAP-F-2025/randomization-service/internal/models"
)

// applyTemplate orders questions by a named fixed pattern. Unknown templates
// downgrade to mixed difficulty with a logged warning.
func (s *randomizationService) applyTemplate(questions []models.Question, template models.TemplatePattern) []models.Question {
	if !template.IsValid() {
		s.logger.Warn("unknown template, falling back to mixed difficulty",
			"template", template,
			"error", ErrUnknownTemplate)
		template = models.TemplateMixedDifficulty
	}

	switch template {
	case models.TemplateEasyToHard:
		return concatByDifficulty(questions, models.DifficultyOrder)
	case models.TemplateHardToEasy:
		return concatByDifficulty(questions, reversedDifficulty())
	case models.TemplateMixedDifficulty:
		return roundRobinDifficulty(questions)
	case models.TemplateTopicGrouped:
		return topicGrouped(questions)
	case models.TemplateAlternatingDifficulty:
		return alternatingDifficulty(questions)
	case models.TemplateCognitiveProgression:
		return cognitiveProgression(questions)
	}
	return questions
}

// difficultyOf folds unset or unrecognized difficulties into the middle tier
// so template grouping never drops a question.
func difficultyOf(q models.Question) models.DifficultyLevel {
	switch q.Difficulty {
	case models.DifficultyEasy, models.DifficultyMedium, models.DifficultyHard:
		return q.Difficulty
	}
	return models.DifficultyMedium
}

func groupByDifficulty(questions []models.Question) map[models.DifficultyLevel][]models.Question {
	groups := make(map[models.DifficultyLevel][]models.Question)
	for _, q := range questions {
		tier := difficultyOf(q)
		groups[tier] = append(groups[tier], q)
	}
	for _, group := range groups {
		rand.Shuffle(len(group), func(i, j int) {
			group[i], group[j] = group[j], group[i]
		})
	}
	return groups
}

func concatByDifficulty(questions []models.Question, order []models.DifficultyLevel) []models.Question {
	groups := groupByDifficulty(questions)

	result := make([]models.Question, 0, len(questions))
	for _, tier := range order {
		result = append(result, groups[tier]...)
	}
	return result
}

func reversedDifficulty() []models.DifficultyLevel {
	order := make([]models.DifficultyLevel, len(models.DifficultyOrder))
	for i, tier := range models.DifficultyOrder {
		order[len(order)-1-i] = tier
	}
	return order
}

// roundRobinDifficulty cycles easy, medium, hard, skipping exhausted tiers.
func roundRobinDifficulty(questions []models.Question) []models.Question {
	groups := groupByDifficulty(questions)

	result := make([]models.Question, 0, len(questions))
	for len(result) < len(questions) {
		for _, tier := range models.DifficultyOrder {
			if len(groups[tier]) == 0 {
				continue
			}
			result = append(result, groups[tier][0])
			groups[tier] = groups[tier][1:]
		}
	}
	return result
}

// topicGrouped shuffles the order of topics, then shuffles within each topic.
func topicGrouped(questions []models.Question) []models.Question {
	groups := make(map[string][]models.Question)
	var topics []string
	for _, q := range questions {
		topic := q.Topic()
		if _, ok := groups[topic]; !ok {
			topics = append(topics, topic)
		}
		groups[topic] = append(groups[topic], q)
	}

	rand.Shuffle(len(topics), func(i, j int) {
		topics[i], topics[j] = topics[j], topics[i]
	})

	result := make([]models.Question, 0, len(questions))
	for _, topic := range topics {
		group := groups[topic]
		rand.Shuffle(len(group), func(i, j int) {
			group[i], group[j] = group[j], group[i]
		})
		result = append(result, group...)
	}
	return result
}

// alternatingDifficulty follows the cyclic pattern easy, medium, hard,
// medium, skipping exhausted tiers.
func alternatingDifficulty(questions []models.Question) []models.Question {
	groups := groupByDifficulty(questions)
	cycle := []models.DifficultyLevel{
		models.DifficultyEasy,
		models.DifficultyMedium,
		models.DifficultyHard,
		models.DifficultyMedium,
	}

	result := make([]models.Question, 0, len(questions))
	cursor := 0
	for len(result) < len(questions) {
		took := false
		for range cycle {
			tier := cycle[cursor%len(cycle)]
			cursor++
			if len(groups[tier]) > 0 {
				result = append(result, groups[tier][0])
				groups[tier] = groups[tier][1:]
				took = true
				break
			}
		}
		if !took {
			// Every tier in the cycle is exhausted; drain what is left.
			for _, tier := range models.DifficultyOrder {
				result = append(result, groups[tier]...)
				groups[tier] = nil
			}
		}
	}
	return result
}

// cognitiveProgression concatenates Bloom-level groups in taxonomy order,
// remember through create. Unrecognized levels sort after the taxonomy.
func cognitiveProgression(questions []models.Question) []models.Question {
	groups := make(map[models.CognitiveLevel][]models.Question)
	for _, q := range questions {
		level := q.Bloom()
		groups[level] = append(groups[level], q)
	}
	for _, group := range groups {
		rand.Shuffle(len(group), func(i, j int) {
			group[i], group[j] = group[j], group[i]
		})
	}

	result := make([]models.Question, 0, len(questions))
	for _, level := range models.CognitiveOrder {
		result = append(result, groups[level]...)
		delete(groups, level)
	}

	if len(groups) > 0 {
		var leftover []models.CognitiveLevel
		for level := range groups {
			leftover = append(leftover, level)
		}
		sort.Slice(leftover, func(i, j int) bool { return leftover[i] < leftover[j] })
		for _, level := range leftover {
			result = append(result, groups[level]...)
		}
	}
	return result
}
