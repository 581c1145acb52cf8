package middleware

import (
	"errors"
	"net/http"
	"reflect"
	"regexp"
	"strings"

	"github.com/erp/fincalc/internal/domain/finance"
	"github.com/erp/fincalc/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// ptkpCodePattern accepts the shape of a PTKP code. Well-formed codes that
// are missing from the configured table fall back to TK/0 in the calculator.
var ptkpCodePattern = regexp.MustCompile(`(?i)^(TK|K)/[0-9]$`)

// SetupValidator configures the validator with custom tags
func SetupValidator() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		// Use JSON tag names for field names in errors
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name == "" {
				name = strings.SplitN(fld.Tag.Get("form"), ",", 2)[0]
			}
			return name
		})
		_ = v.RegisterValidation("period", validatePeriod)
		_ = v.RegisterValidation("ptkp_code", validatePTKPCode)
	}
}

// validatePeriod accepts YYYY-MM
func validatePeriod(fl validator.FieldLevel) bool {
	_, err := finance.ParsePeriod(fl.Field().String())
	return err == nil
}

func validatePTKPCode(fl validator.FieldLevel) bool {
	return ptkpCodePattern.MatchString(strings.TrimSpace(fl.Field().String()))
}

// FormatValidationErrors formats binding errors into a standard response.
// Validator errors carry one detail per field; decoding errors do not.
func FormatValidationErrors(err error, requestID string) dto.Response {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return dto.NewErrorResponse(dto.ErrCodeInvalidJSON, err.Error()).WithRequestID(requestID)
	}

	details := make(map[string]interface{}, len(validationErrors))
	for _, e := range validationErrors {
		details[fieldPath(e)] = getValidationMessage(e)
	}
	return dto.NewErrorResponse(dto.ErrCodeValidation, "Request validation failed").
		WithRequestID(requestID).
		WithDetails(details)
}

// HandleValidationError returns a validation error response
func HandleValidationError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, FormatValidationErrors(err, GetRequestID(c)))
}

// fieldPath drops the top-level struct name, e.g. "transactions[0].amount"
func fieldPath(e validator.FieldError) string {
	ns := e.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return e.Field()
}

// getValidationMessage returns a human-readable validation message
func getValidationMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "This field is required"
	case "min":
		if e.Kind() == reflect.String {
			return "Must be at least " + e.Param() + " characters"
		}
		if e.Kind() == reflect.Slice {
			return "Must contain at least " + e.Param() + " items"
		}
		return "Must be at least " + e.Param()
	case "max":
		if e.Kind() == reflect.String {
			return "Must be at most " + e.Param() + " characters"
		}
		if e.Kind() == reflect.Slice {
			return "Must contain at most " + e.Param() + " items"
		}
		return "Must be at most " + e.Param()
	case "uuid":
		return "Invalid UUID format"
	case "oneof":
		return "Must be one of: " + e.Param()
	case "period":
		return "Must be a period in YYYY-MM format"
	case "ptkp_code":
		return "Must be a PTKP code such as TK/0 or K/1"
	case "gte":
		return "Must be greater than or equal to " + e.Param()
	case "lte":
		return "Must be less than or equal to " + e.Param()
	default:
		return "Invalid value"
	}
}
