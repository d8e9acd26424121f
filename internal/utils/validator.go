package utils

import (
	"errors"
	"reflect"
	"strings"

	"civicconnect/internal/domain"
	"civicconnect/internal/models"

	"github.com/go-playground/validator/v10"
)

var validate *validator.Validate

func init() {
	validate = validator.New()

	// Report fields by their JSON name
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})

	// Register custom validators
	validate.RegisterValidation("complaint_status", validateComplaintStatus)
	validate.RegisterValidation("priority", validatePriority)
	validate.RegisterValidation("post_tag", validatePostTag)
	validate.RegisterValidation("feedback_action", validateFeedbackAction)
	validate.RegisterValidation("user_role", validateUserRole)
	validate.RegisterValidation("notification_type", validateNotificationType)
}

// ValidateStruct validates s and returns a *domain.ValidationError listing every
// failing field, or nil.
func ValidateStruct(s interface{}) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	fields := make([]domain.FieldError, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, domain.FieldError{
			Field:   fieldPath(fe),
			Message: getErrorMessage(fe),
		})
	}
	return domain.NewValidationErrors(fields)
}

// fieldPath drops the top-level struct name from the namespace.
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

// Custom validators for go-playground/validator

func validateComplaintStatus(fl validator.FieldLevel) bool {
	return models.IsValidStatus(fl.Field().String())
}

func validatePriority(fl validator.FieldLevel) bool {
	return models.IsValidPriority(fl.Field().String())
}

func validatePostTag(fl validator.FieldLevel) bool {
	return models.IsValidPostTag(fl.Field().String())
}

func validateFeedbackAction(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case models.FeedbackAccept, models.FeedbackReopen, models.FeedbackGeneral:
		return true
	}
	return false
}

func validateUserRole(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case models.RoleCitizen, models.RoleAuthority:
		return true
	}
	return false
}

func validateNotificationType(fl validator.FieldLevel) bool {
	return models.IsValidNotificationType(fl.Field().String())
}

// getErrorMessage returns user-friendly error messages
func getErrorMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required"
	case "email":
		return "Please enter a valid email address"
	case "min":
		return "This field must be at least " + fe.Param() + " characters long"
	case "max":
		return "This field must be no more than " + fe.Param() + " characters long"
	case "gte":
		return "This field must be at least " + fe.Param()
	case "complaint_status":
		return "Status must be one of: pending, In Progress, Resolved, Rejected"
	case "priority":
		return "Priority must be one of: Low, Medium, High, Emergency"
	case "post_tag":
		return "Tag must be one of: Alert, Event, Update, News, Notice"
	case "feedback_action":
		return "Action must be one of: Accept, Reopen, General"
	case "user_role":
		return "Role must be Citizen or Authority"
	case "notification_type":
		return "Type must be one of: info, success, warning, error, Emergency"
	default:
		return "This field is invalid"
	}
}
