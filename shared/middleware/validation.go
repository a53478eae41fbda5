package middleware

import (
	"net/http"
	"regexp"
	"time"

	"github.com/eaglebank/user-service/shared/models"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

var emailPattern = regexp.MustCompile("^[a-zA-Z0-9_!#$%&'*+/=?`{|}~^.-]+@[a-zA-Z0-9.-]+$")

var validate = newValidator()

// now is the clock behind the pastdate tag.
var now = time.Now

func newValidator() *validator.Validate {
	v := validator.New()
	// useremail: the email shape accepted for user records.
	_ = v.RegisterValidation("useremail", func(fl validator.FieldLevel) bool {
		return emailPattern.MatchString(fl.Field().String())
	})
	// pastdate: a yyyy-MM-dd string strictly before today's UTC date.
	_ = v.RegisterValidation("pastdate", func(fl validator.FieldLevel) bool {
		date, err := models.ParseDate(fl.Field().String())
		if err != nil {
			return false
		}
		return date.Before(models.DateOf(now().UTC()))
	})
	return v
}

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Type    string `json:"type"`
}

type BadRequestErrorResponse struct {
	Message string            `json:"message"`
	Details []ValidationError `json:"details"`
}

func ValidateRequest(obj any) []ValidationError {
	var validationErrors []ValidationError

	err := validate.Struct(obj)
	if err == nil {
		return nil
	}

	fieldErrors, ok := err.(validator.ValidationErrors)
	if !ok {
		return []ValidationError{{Message: err.Error(), Type: "invalid"}}
	}

	for _, err := range fieldErrors {
		validationErrors = append(validationErrors, ValidationError{
			Field:   err.Field(),
			Message: getErrorMsg(err),
			Type:    err.Tag(),
		})
	}

	return validationErrors
}

func getErrorMsg(err validator.FieldError) string {
	switch err.Tag() {
	case "required":
		return "This field is required"
	case "email", "useremail":
		return "Email is not valid"
	case "alpha":
		return "Invalid Input"
	case "min":
		return "Value is too short"
	case "max":
		return "Value is too long"
	case "datetime", "pastdate":
		return "Invalid birth date"
	default:
		return "Invalid value"
	}
}

func RespondWithValidationError(c *gin.Context, validationErrors []ValidationError) {
	c.JSON(http.StatusBadRequest, BadRequestErrorResponse{
		Message: "Invalid request data",
		Details: validationErrors,
	})
}

func RespondWithError(c *gin.Context, code int, message string) {
	c.JSON(code, gin.H{
		"message": message,
	})
}
