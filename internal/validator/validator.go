package validator

import (
	"reflect"
	"strings"

	"github.com/SAP-F-2025/randomization-service/internal/models"
	"github.com/go-playground/validator/v10"
)

// Validator wraps struct-tag validation with the engine's custom rules.
type Validator struct {
	structValidator *validator.Validate
}

// New creates a new validator instance with all custom rules registered.
func New() *Validator {
	structValidator := validator.New()
	registerCustomValidators(structValidator)

	return &Validator{
		structValidator: structValidator,
	}
}

// Validate validates struct tags and returns domain-shaped errors.
func (v *Validator) Validate(s interface{}) error {
	if err := v.structValidator.Struct(s); err != nil {
		if errs := ToValidationErrors(err); len(errs) > 0 {
			return errs
		}
		return err
	}
	return nil
}

// registerCustomValidators registers all custom validation functions
func registerCustomValidators(validate *validator.Validate) {
	validate.RegisterValidation("question_type", validateQuestionType)
	validate.RegisterValidation("difficulty_level", validateDifficultyLevel)
	validate.RegisterValidation("cognitive_level", validateCognitiveLevel)

	// Custom tag name function for better error messages
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
}

func validateQuestionType(fl validator.FieldLevel) bool {
	validTypes := []models.QuestionType{
		models.MultipleChoice,
		models.TrueFalse,
		models.ShortAnswer,
		models.Essay,
	}

	value := fl.Field().String()
	for _, validType := range validTypes {
		if string(validType) == value {
			return true
		}
	}
	return false
}

func validateDifficultyLevel(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	for _, validLevel := range models.DifficultyOrder {
		if string(validLevel) == value {
			return true
		}
	}
	return false
}

func validateCognitiveLevel(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	for _, validLevel := range models.CognitiveOrder {
		if string(validLevel) == value {
			return true
		}
	}
	return false
}

