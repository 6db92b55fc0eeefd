package auth

import (
	"errors"
	"net/http"
	"sort"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
	goerrors "github.com/goliatone/go-errors"
)

// ErrTokenMalformed is returned when a bearer token cannot be decoded into claims
var ErrTokenMalformed = goerrors.New("token is malformed", goerrors.CategoryAuth).
	WithCode(goerrors.CodeUnauthorized).
	WithTextCode("TOKEN_MALFORMED")

// ErrTokenMissingSegment the token has no payload segment
var ErrTokenMissingSegment = goerrors.New("token is malformed: missing payload segment", goerrors.CategoryAuth).
	WithCode(goerrors.CodeUnauthorized).
	WithTextCode("TOKEN_MALFORMED")

// ErrNoSession is returned when an operation needs a live session
var ErrNoSession = goerrors.New("no active session", goerrors.CategoryAuth).
	WithCode(goerrors.CodeUnauthorized).
	WithTextCode("NO_SESSION")

// ErrProfileWithoutToken a profile can only be stored together with a token
var ErrProfileWithoutToken = goerrors.New("profile requires a token", goerrors.CategoryBadInput).
	WithCode(goerrors.CodeBadRequest).
	WithTextCode("PROFILE_WITHOUT_TOKEN")

// ErrBackupExists a preview session is already active
var ErrBackupExists = goerrors.New("a parent session backup already exists", goerrors.CategoryConflict).
	WithCode(goerrors.CodeConflict).
	WithTextCode("PREVIEW_ACTIVE")

// ErrNoBackup there is no parent session to restore
var ErrNoBackup = goerrors.New("no parent session backup to restore", goerrors.CategoryNotFound).
	WithCode(goerrors.CodeNotFound).
	WithTextCode("NO_PREVIEW")

// ErrNotParent only parent sessions can preview a child account
var ErrNotParent = goerrors.New("session role is not parent", goerrors.CategoryAuthz).
	WithCode(goerrors.CodeForbidden).
	WithTextCode("NOT_PARENT")

// ErrMissingToken the backend response did not include an access token
var ErrMissingToken = goerrors.New("response did not include an access token", goerrors.CategoryExternal).
	WithCode(http.StatusBadGateway).
	WithTextCode("MISSING_TOKEN")

// IsMalformedError will check for malformed token errors
func IsMalformedError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrTokenMalformed) || errors.Is(err, ErrTokenMissingSegment) {
		return true
	}
	return strings.Contains(err.Error(), "token is malformed")
}

// IsUnauthorizedError reports whether the backend, or the session itself,
// refused the request.
func IsUnauthorizedError(err error) bool {
	return goerrors.IsAuth(err) || goerrors.IsCategory(err, goerrors.CategoryAuthz)
}

// IsNotFoundError reports a 404 from the backend
func IsNotFoundError(err error) bool {
	return goerrors.IsNotFound(err)
}

// IsValidationError reports input that was refused before or by the backend
func IsValidationError(err error) bool {
	return goerrors.IsValidation(err)
}

// StatusCode is the HTTP status an error maps to, 500 when it carries none.
func StatusCode(err error) int {
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		return http.StatusInternalServerError
	}
	if richErr.Code != 0 {
		return richErr.Code
	}
	switch richErr.Category {
	case goerrors.CategoryValidation:
		return http.StatusUnprocessableEntity
	case goerrors.CategoryBadInput:
		return http.StatusBadRequest
	case goerrors.CategoryAuth:
		return http.StatusUnauthorized
	case goerrors.CategoryAuthz:
		return http.StatusForbidden
	case goerrors.CategoryNotFound:
		return http.StatusNotFound
	case goerrors.CategoryConflict:
		return http.StatusConflict
	case goerrors.CategoryExternal:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// categoryForStatus follows the backend convention of 422 for request
// validation failures.
func categoryForStatus(status int) goerrors.Category {
	if status == http.StatusUnprocessableEntity {
		return goerrors.CategoryValidation
	}
	if status >= 500 {
		return goerrors.CategoryExternal
	}
	return goerrors.HTTPStatusToCategory(status)
}

// validationError turns form validation failures into a categorized error.
// The field errors stay reachable through errors.As.
func validationError(err error, message string) error {
	var verrs validation.Errors
	if !errors.As(err, &verrs) {
		return err
	}

	fields := make([]string, 0, len(verrs))
	for field := range verrs {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	fieldErrors := make([]goerrors.FieldError, 0, len(fields))
	for _, field := range fields {
		if verrs[field] == nil {
			continue
		}
		fieldErrors = append(fieldErrors, goerrors.FieldError{
			Field:   field,
			Message: verrs[field].Error(),
		})
	}

	richErr := goerrors.NewValidation(message, fieldErrors...).
		WithCode(http.StatusUnprocessableEntity).
		WithTextCode("VALIDATION_FAILED")
	richErr.Source = err
	return richErr
}
