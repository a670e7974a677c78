package main

import (
	"errors"
	"fmt"
	"log"
	"net/http"
)

// Domain error taxonomy. Handlers return these from the core paths and
// map them to HTTP exactly once, in writeDomainError.
var (
	errNotFound         = errors.New("not_found")
	errForbidden        = errors.New("forbidden")
	errSelfReference    = errors.New("invalid_target")
	errDuplicateRequest = errors.New("duplicate_request")
	errValidation       = errors.New("validation_error")
)

// validationError wraps errValidation with a reason that is safe to show
// to the client.
func validationError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", errValidation, fmt.Sprintf(format, args...))
}

// writeDomainError maps a domain error to its HTTP status. Anything
// outside the taxonomy is an internal error: logged, never echoed.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, errNotFound):
		writeError(w, http.StatusNotFound, "not_found")
	case errors.Is(err, errForbidden):
		writeError(w, http.StatusForbidden, "forbidden")
	case errors.Is(err, errSelfReference):
		writeError(w, http.StatusBadRequest, "invalid_target")
	case errors.Is(err, errDuplicateRequest):
		writeError(w, http.StatusConflict, "duplicate_request")
	case errors.Is(err, errValidation):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		log.Println("internal error:", err)
		writeError(w, http.StatusInternalServerError, "internal_error")
	}
}
