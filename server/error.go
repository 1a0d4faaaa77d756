package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/cyp0633/libslots/storage"
)

// HTTPError represents an HTTP error with status code and message
type HTTPError struct {
	Status  int
	Message string
	Err     error
}

// Error implements the error interface
func (e *HTTPError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

// Unwrap returns the underlying error
func (e *HTTPError) Unwrap() error {
	return e.Err
}

// Common HTTP errors
var (
	ErrNotFound        = &HTTPError{Status: http.StatusNotFound, Message: "Resource not found"}
	ErrUnsupportedType = &HTTPError{Status: http.StatusUnsupportedMediaType, Message: "Content-Type must be application/json"}
)

func badRequest(message string, err error) *HTTPError {
	return &HTTPError{Status: http.StatusBadRequest, Message: message, Err: err}
}

// errorResponse is the JSON body of every non-GraphQL error.
type errorResponse struct {
	Error string `json:"error"`
}

// storageStatus maps storage error types to HTTP status codes.
func storageStatus(err error) int {
	var storageErr *storage.Error
	if !errors.As(err, &storageErr) {
		return http.StatusInternalServerError
	}
	switch storageErr.Type {
	case storage.ErrNotFound:
		return http.StatusNotFound
	case storage.ErrAlreadyExists:
		return http.StatusConflict
	case storage.ErrInvalidInput:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) sendError(w http.ResponseWriter, err error) {
	var httpErr *HTTPError
	if !errors.As(err, &httpErr) {
		httpErr = &HTTPError{Status: storageStatus(err), Message: err.Error(), Err: err}
	}

	if httpErr.Status >= http.StatusInternalServerError {
		s.logger.Error("error response",
			"status", httpErr.Status,
			"message", httpErr.Message,
			"error", httpErr.Err)
	} else {
		s.logger.Debug("error response",
			"status", httpErr.Status,
			"message", httpErr.Message,
			"error", httpErr.Err)
	}

	message := httpErr.Message
	if httpErr.Err != nil && httpErr.Status < http.StatusInternalServerError {
		message = httpErr.Error()
	}
	s.writeJSON(w, httpErr.Status, errorResponse{Error: message})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set(headerContentType, mimeTypeJSON)
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Error("failed to encode response", "error", err)
	}
}
