package errors

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Code identifies the failure kind of a pipeline stage. The values are
// stable strings surfaced verbatim in the top-level error record.
type Code string

const (
	CodeUnsupportedExtension Code = "UNSUPPORTED_EXTENSION"
	CodeVideoTooLarge        Code = "VIDEO_TOO_LARGE"
	CodeZipTooLarge          Code = "ZIP_TOO_LARGE"
	CodeLimitExceeded        Code = "LIMIT_EXCEEDED"
	CodeUploadURLFailed      Code = "UPLOAD_URL_FAILED"
	CodeOSSPutFailed         Code = "OSS_PUT_FAILED"
	CodeRepairCreateFailed   Code = "REPAIR_CREATE_FAILED"
	CodeJobTimeout           Code = "JOB_TIMEOUT"
	CodeJobError             Code = "JOB_ERROR"
	CodeWSError              Code = "WS_ERROR"
	CodeDownloadFailed       Code = "DOWNLOAD_FAILED"
	CodeArgError             Code = "ARG_ERROR"

	// CodeInternal tags errors that escaped the pipeline taxonomy.
	CodeInternal Code = "INTERNAL"
)

// Error is a tagged pipeline error. Context fields are populated only where
// they apply: HTTPStatus/Body for remote failures, Extension/SizeBytes for
// validation failures, Progress for job failures.
type Error struct {
	Code    Code
	Message string

	HTTPStatus int
	Body       string
	Extension  string
	SizeBytes  int64
	Progress   *float64

	cause error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.cause
}

// Is matches pipeline errors by code so callers can probe with
// errors.Is(err, &Error{Code: CodeLimitExceeded}).
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return e.Code == t.Code
}

func New(code Code, format string, args ...interface{}) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

func Wrap(code Code, cause error, format string, args ...interface{}) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), cause: cause}
}

// WithHTTP attaches the remote status and raw body for diagnostics.
func (e *Error) WithHTTP(status int, body string) *Error {
	e.HTTPStatus = status
	e.Body = body
	return e
}

func (e *Error) WithFile(extension string, sizeBytes int64) *Error {
	e.Extension = extension
	e.SizeBytes = sizeBytes
	return e
}

func (e *Error) WithProgress(progress *float64) *Error {
	e.Progress = progress
	return e
}

// MarshalJSON renders the error as the final structured record the
// top-level handler writes to stderr.
func (e *Error) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Code       Code     `json:"error"`
		Message    string   `json:"message"`
		HTTPStatus int      `json:"http_status,omitempty"`
		Body       string   `json:"body,omitempty"`
		Extension  string   `json:"extension,omitempty"`
		SizeBytes  int64    `json:"size_bytes,omitempty"`
		Progress   *float64 `json:"progress,omitempty"`
		Cause      string   `json:"cause,omitempty"`
	}{
		Code:       e.Code,
		Message:    e.Message,
		HTTPStatus: e.HTTPStatus,
		Body:       e.Body,
		Extension:  e.Extension,
		SizeBytes:  e.SizeBytes,
		Progress:   e.Progress,
		Cause:      causeString(e.cause),
	})
}

func causeString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

// CodeOf extracts the pipeline code from an error chain. Returns an empty
// code for errors raised outside the taxonomy.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// AsError returns the tagged error in the chain, or wraps a plain error so
// the top-level handler always has structured context to emit.
func AsError(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return &Error{Code: CodeInternal, Message: err.Error(), cause: err}
}
