package models

type QuestionType string

const (
	MultipleChoice QuestionType = "multiple_choice"
	TrueFalse      QuestionType = "true_false"
	ShortAnswer    QuestionType = "short_answer"
	Essay          QuestionType = "essay"
)

type DifficultyLevel string

const (
	DifficultyEasy   DifficultyLevel = "easy"
	DifficultyMedium DifficultyLevel = "medium"
	DifficultyHard   DifficultyLevel = "hard"
)

// DifficultyOrder lists difficulty tiers from easiest to hardest.
var DifficultyOrder = []DifficultyLevel{DifficultyEasy, DifficultyMedium, DifficultyHard}

// CognitiveLevel follows Bloom's taxonomy, from lowest to highest cognitive demand.
type CognitiveLevel string

const (
	CognitiveRemember   CognitiveLevel = "remember"
	CognitiveUnderstand CognitiveLevel = "understand"
	CognitiveApply      CognitiveLevel = "apply"
	CognitiveAnalyze    CognitiveLevel = "analyze"
	CognitiveEvaluate   CognitiveLevel = "evaluate"
	CognitiveCreate     CognitiveLevel = "create"
)

// CognitiveOrder lists Bloom levels in taxonomy order.
var CognitiveOrder = []CognitiveLevel{
	CognitiveRemember,
	CognitiveUnderstand,
	CognitiveApply,
	CognitiveAnalyze,
	CognitiveEvaluate,
	CognitiveCreate,
}

const (
	DefaultCategory       = "general"
	DefaultCognitiveLevel = CognitiveApply
)

// Question is a read-only input to the randomization engine. It is owned by the
// question repository; the engine never mutates it.
type Question struct {
	ID             string          `json:"id" validate:"required"`
	Text           string          `json:"text"`
	Type           QuestionType    `json:"type" validate:"omitempty,question_type"`
	Difficulty     DifficultyLevel `json:"difficulty" validate:"omitempty,difficulty_level"`
	Category       string          `json:"category"`
	Options        []string        `json:"options,omitempty"`
	CorrectAnswer  string          `json:"correct_answer,omitempty"`
	CognitiveLevel CognitiveLevel  `json:"cognitive_level,omitempty" validate:"omitempty,cognitive_level"`
}

// Topic returns the question category, defaulting to "general" when unset.
func (q Question) Topic() string {
	if q.Category == "" {
		return DefaultCategory
	}
	return q.Category
}

// Bloom returns the cognitive level, defaulting to "apply" when unset.
func (q Question) Bloom() CognitiveLevel {
	if q.CognitiveLevel == "" {
		return DefaultCognitiveLevel
	}
	return q.CognitiveLevel
}
