package study

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// CreateTaskInput captures the fields accepted when planning a task.
type CreateTaskInput struct {
	Title           string `json:"title" validate:"required,max=200"`
	Subject         string `json:"subject" validate:"required,max=100"`
	Description     string `json:"description" validate:"max=2000"`
	Priority        string `json:"priority" validate:"omitempty,oneof=low medium high"`
	Date            string `json:"date" validate:"required,datetime=2006-01-02"`
	DurationMinutes int    `json:"duration_minutes" validate:"gte=0,max=1440"`
}

func (i *CreateTaskInput) normalize() {
	i.Title = strings.TrimSpace(i.Title)
	i.Subject = strings.TrimSpace(i.Subject)
	i.Description = strings.TrimSpace(i.Description)
	i.Priority = strings.TrimSpace(i.Priority)
	i.Date = strings.TrimSpace(i.Date)
	if i.Priority == "" {
		i.Priority = PriorityMedium
	}
	if i.DurationMinutes == 0 {
		i.DurationMinutes = defaultTaskMinutes
	}
}

// LogSessionInput captures a finished pomodoro interval. Date defaults to today.
type LogSessionInput struct {
	DurationMinutes int    `json:"duration_minutes" validate:"gt=0,max=1440"`
	SessionType     string `json:"session_type" validate:"required,oneof=work break"`
	Subject         string `json:"subject" validate:"max=100"`
	Completed       *bool  `json:"completed"`
	MoodAfter       string `json:"mood_after" validate:"omitempty,oneof=happy neutral tired"`
	Date            string `json:"date" validate:"omitempty,datetime=2006-01-02"`
}

func (i *LogSessionInput) normalize() {
	i.SessionType = strings.TrimSpace(i.SessionType)
	i.Subject = strings.TrimSpace(i.Subject)
	i.MoodAfter = strings.TrimSpace(i.MoodAfter)
	i.Date = strings.TrimSpace(i.Date)
}

// RecordStatInput captures practice results for one subject and day.
type RecordStatInput struct {
	Subject          string `json:"subject" validate:"required,max=100"`
	QuestionsSolved  int    `json:"questions_solved" validate:"gte=0"`
	CorrectAnswers   int    `json:"correct_answers" validate:"gte=0"`
	TimeSpentMinutes int    `json:"time_spent_minutes" validate:"gte=0"`
	Date             string `json:"date" validate:"required,datetime=2006-01-02"`
}

func (i *RecordStatInput) normalize() {
	i.Subject = strings.TrimSpace(i.Subject)
	i.Date = strings.TrimSpace(i.Date)
}

// PlantTreeInput captures the outcome of a focus-tree session. Date defaults to today.
type PlantTreeInput struct {
	TreeType        string `json:"tree_type" validate:"omitempty,oneof=oak pine cherry cactus"`
	DurationMinutes int    `json:"duration_minutes" validate:"gt=0,max=1440"`
	Status          string `json:"status" validate:"required,oneof=grown withered"`
	Subject         string `json:"subject" validate:"max=100"`
	Date            string `json:"date" validate:"omitempty,datetime=2006-01-02"`
}

func (i *PlantTreeInput) normalize() {
	i.TreeType = strings.TrimSpace(i.TreeType)
	i.Status = strings.TrimSpace(i.Status)
	i.Subject = strings.TrimSpace(i.Subject)
	i.Date = strings.TrimSpace(i.Date)
	if i.TreeType == "" {
		i.TreeType = defaultTreeType
	}
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// validateInput runs the struct tags and wraps failures in ErrInvalidInput.
func validateInput(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %s", ErrInvalidInput, err.Error())
	}
	problems := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		problems = append(problems, describe(fe))
	}
	return fmt.Errorf("%w: %s", ErrInvalidInput, strings.Join(problems, "; "))
}

func describe(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, strings.ReplaceAll(fe.Param(), " ", ", "))
	case "datetime":
		return field + " must be a YYYY-MM-DD date"
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "min":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	default:
		return fmt.Sprintf("%s failed %q", field, fe.Tag())
	}
}
