package models

// Strategy selects the ordering algorithm for a single randomization call.
// The set is closed: unknown values are downgraded to StrategySimpleRandom by
// the engine rather than rejected.
type Strategy string

const (
	StrategySimpleRandom  Strategy = "simple_random"
	StrategyStratified    Strategy = "stratified"
	StrategyDeterministic Strategy = "deterministic"
	StrategyAdaptive      Strategy = "adaptive"
	StrategyTemplateBased Strategy = "template_based"
	StrategyBalanced      Strategy = "balanced"
)

func (s Strategy) IsValid() bool {
	switch s {
	case StrategySimpleRandom, StrategyStratified, StrategyDeterministic,
		StrategyAdaptive, StrategyTemplateBased, StrategyBalanced:
		return true
	}
	return false
}

// TemplatePattern names a fixed ordering pattern for StrategyTemplateBased.
type TemplatePattern string

const (
	TemplateEasyToHard            TemplatePattern = "easy_to_hard"
	TemplateHardToEasy            TemplatePattern = "hard_to_easy"
	TemplateMixedDifficulty       TemplatePattern = "mixed_difficulty"
	TemplateTopicGrouped          TemplatePattern = "topic_grouped"
	TemplateAlternatingDifficulty TemplatePattern = "alternating_difficulty"
	TemplateCognitiveProgression  TemplatePattern = "cognitive_progression"
)

func (t TemplatePattern) IsValid() bool {
	switch t {
	case TemplateEasyToHard, TemplateHardToEasy, TemplateMixedDifficulty,
		TemplateTopicGrouped, TemplateAlternatingDifficulty, TemplateCognitiveProgression:
		return true
	}
	return false
}

// StrataKey selects the grouping dimension for StrategyStratified.
type StrataKey string

const (
	StrataDifficulty StrataKey = "difficulty"
	StrataTopic      StrataKey = "topic"
	StrataBoth       StrataKey = "both"
)

// TimeWindow selects the bucket size for time-based deterministic seeds.
type TimeWindow string

const (
	WindowDaily   TimeWindow = "daily"
	WindowWeekly  TimeWindow = "weekly"
	WindowMonthly TimeWindow = "monthly"
)

// AnchorMap pins question IDs to fixed output positions regardless of strategy.
type AnchorMap map[string]int

type BlockingRuleType string

const (
	BlockTogether BlockingRuleType = "together"
	BlockApart    BlockingRuleType = "apart"
)

// BlockingRule constrains placement of a set of questions: "together" rules
// keep them contiguous, "apart" rules enforce a minimum pairwise distance.
// Rules are applied in list order; a later rule may perturb an earlier one.
type BlockingRule struct {
	Type        BlockingRuleType `json:"type" validate:"required,oneof=together apart"`
	QuestionIDs []string         `json:"question_ids" validate:"required,min=2"`
	MinDistance int              `json:"min_distance,omitempty" validate:"omitempty,min=1"`
}

// RandomizationConfig carries the per-invocation configuration keys recognized
// by the engine. Unrecognized concerns simply have their zero value.
type RandomizationConfig struct {
	StrataKey        StrataKey       `json:"strata_key,omitempty" validate:"omitempty,oneof=difficulty topic both"`
	AnchorPositions  AnchorMap       `json:"anchor_positions,omitempty"`
	Template         TemplatePattern `json:"template,omitempty"`
	RandomnessFactor float64         `json:"randomness_factor,omitempty" validate:"gte=0,lte=1"`
	TimeBasedSeed    bool            `json:"time_based_seed,omitempty"`
	TimeWindow       TimeWindow      `json:"time_window,omitempty" validate:"omitempty,oneof=daily weekly monthly"`
	TestID           string          `json:"test_id,omitempty"`
	AttemptNumber    int             `json:"attempt_number,omitempty"`
	BlockingRules    []BlockingRule  `json:"blocking_rules,omitempty" validate:"omitempty,dive"`
}

// ShuffleResult is the outcome of shuffling one question's answer options.
// Mapping is a bijection from original option index to shuffled index; it is
// empty when the question was not eligible for shuffling.
type ShuffleResult struct {
	Options            []string    `json:"options"`
	Mapping            map[int]int `json:"mapping"`
	CorrectAnswerIndex int         `json:"correct_answer_index"` // -1 when unknown
}
