package models

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
)

// ErrorResponse represents a standardized API error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

// AppError represents a custom application error
type AppError struct {
	Code    string
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Is matches any AppError carrying the same code, so callers can use
// errors.Is against the exported sentinels below.
func (e *AppError) Is(target error) bool {
	var t *AppError
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// WithMessage returns a copy of e with a more specific message.
func (e *AppError) WithMessage(msg string) *AppError {
	return &AppError{Code: e.Code, Message: msg, Err: e.Err}
}

// Error codes
const (
	CodeNotFound                         = "NOT_FOUND"
	CodeValidation                       = "VALIDATION_ERROR"
	CodeUnauthorized                     = "UNAUTHORIZED"
	CodeForbidden                        = "FORBIDDEN"
	CodeInternal                         = "INTERNAL_ERROR"
	CodeUnknownUser                      = "UNKNOWN_USER"
	CodeUnknownCelestialBody             = "UNKNOWN_CELESTIAL_BODY"
	CodeUnknownObservation               = "UNKNOWN_OBSERVATION"
	CodeUsernameAlreadyUsed              = "USERNAME_ALREADY_USED"
	CodeCelestialBodyNameAlreadyUsed     = "CELESTIAL_BODY_NAME_ALREADY_USED"
	CodeInvalidUsername                  = "INVALID_USERNAME"
	CodeInvalidPassword                  = "INVALID_PASSWORD"
	CodeInvalidBiography                 = "INVALID_BIOGRAPHY"
	CodeInvalidRadius                    = "INVALID_RADIUS"
	CodeInvalidCoordinates               = "INVALID_COORDINATES"
	CodeInvalidCelestialBodyName         = "INVALID_CELESTIAL_BODY_NAME"
	CodeInvalidCelestialBodyValidityTime = "INVALID_CELESTIAL_BODY_VALIDITY_TIME"
	CodeInvalidPagination                = "INVALID_PAGINATION"
	CodeInvalidOrientation               = "INVALID_ORIENTATION"
	CodeInvalidVisibility                = "INVALID_VISIBILITY"
	CodeInvalidDescription               = "INVALID_DESCRIPTION"
	CodeInvalidTimestamp                 = "INVALID_TIMESTAMP"
	CodeInvalidVote                      = "INVALID_VOTE"
	CodePasswordMismatch                 = "PASSWORD_MISMATCH"
	CodeInvalidCredentials               = "INVALID_CREDENTIALS"
	CodeUnavailableUser                  = "UNAVAILABLE_USER"
	CodeUserNotVisible                   = "USER_NOT_VISIBLE"
	CodeUserNotEditable                  = "USER_NOT_EDITABLE"
	CodeObservationNotEditable           = "OBSERVATION_NOT_EDITABLE"
)

// Domain errors
var (
	ErrUnknownUser                      = &AppError{Code: CodeUnknownUser, Message: "Unknown user"}
	ErrUnknownCelestialBody             = &AppError{Code: CodeUnknownCelestialBody, Message: "Unknown celestial body"}
	ErrUnknownObservation               = &AppError{Code: CodeUnknownObservation, Message: "Unknown observation"}
	ErrUsernameAlreadyUsed              = &AppError{Code: CodeUsernameAlreadyUsed, Message: "Username is already used"}
	ErrCelestialBodyNameAlreadyUsed     = &AppError{Code: CodeCelestialBodyNameAlreadyUsed, Message: "Celestial body name is already used"}
	ErrInvalidUsername                  = &AppError{Code: CodeInvalidUsername, Message: "Username must be 3-32 characters of letters, digits, '_' or '-'"}
	ErrInvalidPassword                  = &AppError{Code: CodeInvalidPassword, Message: "Password must be 8-128 characters and contain a letter and a digit"}
	ErrInvalidBiography                 = &AppError{Code: CodeInvalidBiography, Message: "Biography must be at most 500 characters"}
	ErrInvalidRadius                    = &AppError{Code: CodeInvalidRadius, Message: "Radius must be between 1 and 50 km"}
	ErrInvalidCoordinates               = &AppError{Code: CodeInvalidCoordinates, Message: "Coordinates are out of range"}
	ErrInvalidCelestialBodyName         = &AppError{Code: CodeInvalidCelestialBodyName, Message: "Celestial body name must be 2-64 characters"}
	ErrInvalidCelestialBodyValidityTime = &AppError{Code: CodeInvalidCelestialBodyValidityTime, Message: "Validity time must be between 1 and 12 hours"}
	ErrInvalidPagination                = &AppError{Code: CodeInvalidPagination, Message: "Page must be >= 0 and items per page between 1 and 100"}
	ErrInvalidOrientation               = &AppError{Code: CodeInvalidOrientation, Message: "Orientation must be between 0 and 359 degrees"}
	ErrInvalidVisibility                = &AppError{Code: CodeInvalidVisibility, Message: "Unknown observation visibility"}
	ErrInvalidDescription               = &AppError{Code: CodeInvalidDescription, Message: "Description must be at most 512 characters"}
	ErrInvalidTimestamp                 = &AppError{Code: CodeInvalidTimestamp, Message: "Observation timestamp cannot be in the future"}
	ErrInvalidVote                      = &AppError{Code: CodeInvalidVote, Message: "Vote must be UPVOTE, DOWNVOTE or null"}
	ErrPasswordMismatch                 = &AppError{Code: CodePasswordMismatch, Message: "Old password does not match"}
	ErrInvalidCredentials               = &AppError{Code: CodeInvalidCredentials, Message: "Invalid credentials"}
	ErrUnavailableUser                  = &AppError{Code: CodeUnavailableUser, Message: "Authenticated user is no longer available"}
	ErrUserNotVisible                   = &AppError{Code: CodeUserNotVisible, Message: "User profile is private"}
	ErrUserNotEditable                  = &AppError{Code: CodeUserNotEditable, Message: "You cannot edit this user"}
	ErrObservationNotEditable           = &AppError{Code: CodeObservationNotEditable, Message: "You cannot edit this observation"}
)

// Predefined error constructors
func NewNotFoundError(resource string, id interface{}) *AppError {
	return &AppError{
		Code:    CodeNotFound,
		Message: fmt.Sprintf("%s with ID %v not found", resource, id),
	}
}

func NewValidationError(message string) *AppError {
	return &AppError{
		Code:    CodeValidation,
		Message: message,
	}
}

func NewUnauthorizedError(message string) *AppError {
	return &AppError{
		Code:    CodeUnauthorized,
		Message: message,
	}
}

func NewForbiddenError(message string) *AppError {
	return &AppError{
		Code:    CodeForbidden,
		Message: message,
	}
}

func NewInternalError(err error) *AppError {
	return &AppError{
		Code:    CodeInternal,
		Message: "Internal server error",
		Err:     err,
	}
}

// RespondWithError creates a standardized error response
func RespondWithError(c *fiber.Ctx, status int, err error) error {
	var response ErrorResponse

	var appErr *AppError
	if errors.As(err, &appErr) {
		response = ErrorResponse{
			Error: appErr.Message,
			Code:  appErr.Code,
		}
		// Internal details stay in the logs.
		if appErr.Err != nil && status < fiber.StatusInternalServerError {
			response.Details = appErr.Err.Error()
		}
	} else {
		response = ErrorResponse{
			Error: err.Error(),
		}
	}

	return c.Status(status).JSON(response)
}
