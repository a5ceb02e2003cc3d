package handlers

import (
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"

	apperrors "github.com/tmusaev/feedline/pkg/errors"
	"github.com/tmusaev/feedline/pkg/response"
	appvalidator "github.com/tmusaev/feedline/pkg/validator"
)

// bindAndValidate binds the JSON payload into dest and runs struct validation rules.
// When validation fails, an error response is automatically written and false is returned.
func bindAndValidate[T any](c *gin.Context, dest *T) bool {
	if err := c.ShouldBindJSON(dest); err != nil {
		response.Error(c, apperrors.NewBadRequest("invalid JSON payload"))
		return false
	}

	if err := appvalidator.ValidateStruct(dest); err != nil {
		response.Error(c, apperrors.NewBadRequest(formatValidationError(err)))
		return false
	}

	return true
}

func formatValidationError(err error) string {
	if err == nil {
		return "invalid request payload"
	}

	ve, ok := err.(appvalidator.ValidationErrors)
	if !ok || len(ve) == 0 {
		return "invalid request payload"
	}

	messages := make([]string, 0, len(ve))
	for _, failure := range ve {
		field := prettifyFieldName(failure.Field)
		switch failure.Tag {
		case "required":
			messages = append(messages, fmt.Sprintf("%s is required", field))
		case "email":
			messages = append(messages, fmt.Sprintf("%s must be a valid email address", field))
		case "min":
			messages = append(messages, fmt.Sprintf("%s must be at least %s characters", field, failure.Param))
		case "max":
			messages = append(messages, fmt.Sprintf("%s must be at most %s characters", field, failure.Param))
		case "eqfield":
			messages = append(messages, fmt.Sprintf("%s must match %s", field, prettifyFieldName(failure.Param)))
		default:
			if failure.Param != "" {
				messages = append(messages, fmt.Sprintf("%s failed validation: %s=%s", field, failure.Tag, failure.Param))
			} else {
				messages = append(messages, fmt.Sprintf("%s failed validation: %s", field, failure.Tag))
			}
		}
	}
	return strings.Join(messages, "; ")
}

func prettifyFieldName(name string) string {
	if name == "" {
		return "field"
	}
	name = strings.ReplaceAll(name, "_", " ")
	return strings.ToLower(name)
}
