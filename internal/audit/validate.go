package audit

import (
	"errors"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

// CreateTaskForm is the input to Service.CreateTask.
type CreateTaskForm struct {
	AssetName  string   `json:"assetName" yaml:"assetName" validate:"required"`
	Type       TaskType `json:"type" yaml:"type" validate:"omitempty,oneof=Compliance Security Financial 'IT Assets' Inventory"`
	Priority   Priority `json:"priority" yaml:"priority" validate:"omitempty,oneof=Critical High Medium Low"`
	AssignedTo string   `json:"assignedTo" yaml:"assignedTo" validate:"required"`
	DueDate    string   `json:"dueDate" yaml:"dueDate" validate:"required,datetime=2006-01-02"`
	Notes      string   `json:"notes" yaml:"notes"`

	// WithChecklist seeds the checklist from the template for Type.
	WithChecklist bool `json:"withChecklist" yaml:"withChecklist"`
}

var requiredMessages = map[string]string{
	"assetName":  "Asset name is required",
	"assignedTo": "Assignee is required",
	"dueDate":    "Due date is required",
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func formValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
	})
	return validate
}

// Normalize trims whitespace and applies the form defaults
// (type "IT Assets", priority "Medium").
func (f CreateTaskForm) Normalize() CreateTaskForm {
	f.AssetName = strings.TrimSpace(f.AssetName)
	f.AssignedTo = strings.TrimSpace(f.AssignedTo)
	f.DueDate = strings.TrimSpace(f.DueDate)
	f.Notes = strings.TrimSpace(f.Notes)
	if f.Type == "" {
		f.Type = TypeITAssets
	}
	if f.Priority == "" {
		f.Priority = PriorityMedium
	}
	return f
}

// Validate checks the normalized form and returns a validation Error naming
// every offending field, or nil.
func (f CreateTaskForm) Validate() error {
	err := formValidator().Struct(f)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fe.Field()] = fieldMessage(fe)
	}
	return NewValidationError(fields)
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		if msg, ok := requiredMessages[fe.Field()]; ok {
			return msg
		}
		return fe.Field() + " is required"
	case "datetime":
		return "Due date must be formatted as YYYY-MM-DD"
	case "oneof":
		return fe.Field() + " must be one of: " + fe.Param()
	default:
		return fe.Field() + " is invalid"
	}
}
