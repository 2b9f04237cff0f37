package errs

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	log "github.com/sirupsen/logrus"
)

// Application error codes. They are independent of the transport, the http package
// maps them to status codes in ReturnError.
const (
	ECONFLICT = "conflict"
	EINTERNAL = "internal"
	EINVALID  = "invalid"
	ENOTFOUND = "not_found"
)

// Error represents an application-specific error. Its Message is meant to be shown
// to the end user, so it should never contain internal details.
type Error struct {
	Code    string
	Message string
}

// Error implements the error interface. Not used by the application otherwise.
func (e *Error) Error() string {
	return fmt.Sprintf("app error: code=%s message=%s", e.Code, e.Message)
}

// Errorf is a helper function to return an Error with a given code and formatted message.
func Errorf(code string, format string, args ...interface{}) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// ErrorCode unwraps an application error and returns its code.
// Non-application errors always return EINTERNAL.
func ErrorCode(err error) string {
	var e *Error
	if err == nil {
		return ""
	} else if errors.As(err, &e) {
		return e.Code
	}
	return EINTERNAL
}

// ErrorMessage unwraps an application error and returns its message.
// Non-application errors always return "Internal error".
func ErrorMessage(err error) string {
	var e *Error
	if err == nil {
		return ""
	} else if errors.As(err, &e) {
		return e.Message
	}
	return "Internal error."
}

// Errors that are not meant to reach the end user. They signal a bug in the caller.
const (
	IdInvalid         privateError = "errs: ID provided was invalid"
	AuthorIdInvalid   privateError = "errs: author ID is required"
	RememberTooShort  privateError = "errs: remember token must be at least 32 bytes"
	RememberHashEmpty privateError = "errs: remember token hash is required"
)

type privateError string

func (e privateError) Error() string {
	return string(e)
}

// codes maps application error codes to http status codes.
var codes = map[string]int{
	ECONFLICT: http.StatusConflict,
	EINVALID:  http.StatusBadRequest,
	ENOTFOUND: http.StatusNotFound,
	EINTERNAL: http.StatusInternalServerError,
}

// ErrorStatusCode returns the http status code for an application error code.
func ErrorStatusCode(code string) int {
	if v, ok := codes[code]; ok {
		return v
	}
	return http.StatusInternalServerError
}

// ReturnError writes an error as a json response. Internal errors are logged
// and replaced by a generic message.
func ReturnError(w http.ResponseWriter, r *http.Request, err error) {
	code, message := ErrorCode(err), ErrorMessage(err)
	if code == EINTERNAL {
		LogError(r, err)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(ErrorStatusCode(code))
	if err := json.NewEncoder(w).Encode(&ErrorResponse{Error: message}); err != nil {
		LogError(r, err)
	}
}

// ErrorResponse is the json body of every error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// LogError logs an error together with the request it occurred in.
func LogError(r *http.Request, err error) {
	log.WithFields(log.Fields{
		"method": r.Method,
		"path":   r.URL.Path,
	}).WithError(err).Error("request failed")
}
