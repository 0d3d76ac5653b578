package http

import (
	"errors"
	"net/http"

	"github.com/garyjia/driveindex/internal/domain/entity"
)

// Response is the JSON envelope of every API answer. Code mirrors the HTTP status.
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// statusFor maps an error to the HTTP status reported to the client
func statusFor(err error) int {
	switch {
	case errors.Is(err, entity.ErrValidation), errors.Is(err, entity.ErrDecode):
		return http.StatusBadRequest
	case errors.Is(err, entity.ErrIO):
		return http.StatusInternalServerError
	case errors.Is(err, entity.ErrRemote):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// userMessage is the operator-facing text for err
func userMessage(err error) string {
	var validationErr *entity.ValidationError
	var remoteErr *entity.RemoteError

	switch {
	case errors.As(err, &validationErr):
		return validationErr.Error()
	case errors.Is(err, entity.ErrValidation):
		return err.Error()
	case errors.Is(err, entity.ErrDecode):
		return "the link or form parameter is invalid or has been tampered with"
	case errors.Is(err, entity.ErrIO):
		return "the uploaded file could not be read"
	case errors.As(err, &remoteErr):
		if remoteErr.IsPreconditionFailed() {
			return "the file has changed since this link was issued"
		}
		if remoteErr.IsNotFound() {
			return "the file no longer exists"
		}
		if remoteErr.Message != "" {
			return "storage provider error: " + remoteErr.Message
		}
		return "storage provider error"
	case errors.Is(err, entity.ErrRemote):
		return "storage provider error"
	default:
		return "internal error"
	}
}
