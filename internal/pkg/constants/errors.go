package constants

import (
	"errors"
	"net/http"
)

type CodedError struct {
	code int
	err  error
}

func NewCodedError(code int, msg string) *CodedError {
	return &CodedError{code: code, err: errors.New(msg)}
}

func (e *CodedError) Error() string {
	return e.err.Error()
}

func (e *CodedError) Unwrap() error {
	return e.err
}

func (e *CodedError) Code() int {
	return e.code
}

var (
	ErrInvalidInput      = NewCodedError(http.StatusBadRequest, "invalid input")
	ErrEmptySelection    = NewCodedError(http.StatusBadRequest, "no practices selected")
	ErrDuplicateLabel    = NewCodedError(http.StatusConflict, "place label already exists")
	ErrNotFound          = NewCodedError(http.StatusNotFound, "not found")
	ErrMalformedDocument = NewCodedError(http.StatusBadRequest, "malformed places document")
	ErrDivisionByZero    = NewCodedError(http.StatusUnprocessableEntity, "division by zero")
	ErrUnknownMetric     = NewCodedError(http.StatusInternalServerError, "unknown metric")
	ErrUnknownPractice   = NewCodedError(http.StatusBadRequest, "unknown practice")
	ErrCrossRegion       = NewCodedError(http.StatusBadRequest, "practice outside of place ICB")
	ErrMemberOverlap     = NewCodedError(http.StatusConflict, "practice already belongs to another place")

	ErrDBNotFound      = NewCodedError(http.StatusNotFound, "not found in db")
	ErrUnauthorized    = NewCodedError(http.StatusUnauthorized, "unauthorized")
	ErrSessionNotFound = NewCodedError(http.StatusNotFound, "session not found")
	ErrSessionBusy     = NewCodedError(http.StatusConflict, "session is busy")
	ErrDatasetNotReady = NewCodedError(http.StatusServiceUnavailable, "dataset is not loaded")
)
