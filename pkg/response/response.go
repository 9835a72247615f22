// Package response defines the JSON envelope shared by every API endpoint.
package response

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

type Response struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
	Data    any    `json:"data,omitempty"`
}

func ErrorResponse(msg string, details ...any) Response {
	resp := Response{
		Status:  StatusError,
		Message: msg,
	}

	if len(details) > 0 && details[0] != nil {
		resp.Details = details[0]
	}

	return resp
}

func SuccessResponse(msg string, data ...any) Response {
	resp := Response{
		Status:  StatusSuccess,
		Message: msg,
	}

	if len(data) > 0 && data[0] != nil {
		resp.Data = data[0]
	}

	return resp
}

var (
	EmptyRequestBodyResponse   = ErrorResponse("Request body is empty. Please provide necessary data.")
	BadRequestResponse         = ErrorResponse("Invalid request body. Please check your input.")
	ResourceNotFoundResponse   = ErrorResponse("The requested resource was not found.")
	TooManyRequestsResponse    = ErrorResponse("Too many requests. Please slow down and retry later.")
	ServiceUnavailableResponse = ErrorResponse("The service is temporarily unable to handle the request. Please retry later.")
	ServerErrorResponse        = ErrorResponse("An internal server error occurred. Please try again later.")
)

type validationError struct {
	Field string `json:"field"`
	Value any    `json:"value"`
	Issue string `json:"issue"`
}

func issueFor(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required."
	case "url", "http_url":
		return "Invalid url."
	case "max":
		return fmt.Sprintf("Must be at most %s characters long.", fe.Param())
	default:
		return fmt.Sprintf("Failed on the '%s' rule.", fe.Tag())
	}
}

func getValidationErrors(err error) []validationError {
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return nil
	}

	errs := make([]validationError, 0, len(ve))
	for _, fe := range ve {
		errs = append(errs, validationError{
			Field: fe.Field(),
			Value: fe.Value(),
			Issue: issueFor(fe),
		})
	}

	return errs
}

// ValidationErrorResponse lists every failed field rule in Details.
func ValidationErrorResponse(err error) Response {
	return ErrorResponse("The request contains invalid fields.", getValidationErrors(err))
}
