package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/MrWong99/mouthsync/internal/observe"
)

// Error codes carried in the error envelope.
const (
	CodeBadRequest           = "BAD_REQUEST"
	CodeNotFound             = "NOT_FOUND"
	CodePayloadTooLarge      = "PAYLOAD_TOO_LARGE"
	CodeUnsupportedMediaType = "UNSUPPORTED_MEDIA_TYPE"
	CodeModelNotReady        = "MODEL_NOT_READY"
	CodeServerError          = "SERVER_ERROR"
)

// maxJSONBody bounds JSON request bodies.
const maxJSONBody = 1 << 20

// Error is an API failure. It is rendered as
// {"error":{"code","message","hint","details"}} with Status as the HTTP
// status.
type Error struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Hint    *string        `json:"hint"`
	Details map[string]any `json:"details"`
	Status  int            `json:"-"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

type errorEnvelope struct {
	Error *Error `json:"error"`
}

func badRequest(format string, args ...any) *Error {
	return &Error{Code: CodeBadRequest, Message: fmt.Sprintf(format, args...), Status: http.StatusBadRequest}
}

func notFound(format string, args ...any) *Error {
	return &Error{Code: CodeNotFound, Message: fmt.Sprintf(format, args...), Status: http.StatusNotFound}
}

func tooLarge(format string, args ...any) *Error {
	return &Error{Code: CodePayloadTooLarge, Message: fmt.Sprintf(format, args...), Status: http.StatusRequestEntityTooLarge}
}

func unsupportedMedia(message, hint string) *Error {
	e := &Error{Code: CodeUnsupportedMediaType, Message: message, Status: http.StatusUnsupportedMediaType}
	if hint != "" {
		e.Hint = &hint
	}
	return e
}

func notReady(message string) *Error {
	return &Error{Code: CodeModelNotReady, Message: message, Status: http.StatusServiceUnavailable}
}

func serverError(err error) *Error {
	return &Error{Code: CodeServerError, Message: "Unexpected server error: " + err.Error(), Status: http.StatusInternalServerError}
}

// writeError renders err as an error envelope. Errors that are not an
// [*Error] become SERVER_ERROR and are logged.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var apiErr *Error
	if !errors.As(err, &apiErr) {
		observe.Logger(r.Context()).Error("server: request failed", "path", r.URL.Path, "err", err)
		apiErr = serverError(err)
	}
	writeJSON(w, apiErr.Status, errorEnvelope{Error: apiErr})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Debug("server: write response", "err", err)
	}
}

// decodeJSON reads a single JSON object from the request body into dst.
// Unknown fields are rejected.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	body := http.MaxBytesReader(w, r.Body, maxJSONBody)
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.As(err, &maxErr):
			return tooLarge("JSON body exceeds %d bytes", maxErr.Limit)
		case errors.Is(err, io.EOF):
			return badRequest("request body is empty")
		default:
			return badRequest("invalid JSON body: %v", err)
		}
	}
	return nil
}
