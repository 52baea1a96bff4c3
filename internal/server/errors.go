package server

import (
	"encoding/json"
	stderrors "errors"
	"net/http"

	"github.com/matzehuels/engrave/pkg/errors"
	"github.com/matzehuels/engrave/pkg/observability"
)

// errorBody is the JSON form of a failed request.
type errorBody struct {
	Code      errors.Code `json:"code"`
	Message   string      `json:"message"`
	Line      int         `json:"line,omitempty"`
	Column    int         `json:"column,omitempty"`
	RequestID string      `json:"request_id,omitempty"`
}

// statusFor maps an error code to an HTTP status.
func statusFor(err error) int {
	var tooLarge *http.MaxBytesError
	if stderrors.As(err, &tooLarge) {
		return http.StatusRequestEntityTooLarge
	}
	switch errors.GetCode(err) {
	case errors.ErrCodeInvalidInput, errors.ErrCodeInvalidSyntax, errors.ErrCodeInvalidKeySignature,
		errors.ErrCodeInvalidFormat, errors.ErrCodeInvalidPolicy, errors.ErrCodeInvalidPath:
		return http.StatusBadRequest
	case errors.ErrCodeEmptyChord, errors.ErrCodeUnrepresentableDuration, errors.ErrCodeDegenerateConfiguration:
		return http.StatusUnprocessableEntity
	case errors.ErrCodeNotFound:
		return http.StatusNotFound
	case errors.ErrCodeUnsupported:
		return http.StatusUnsupportedMediaType
	default:
		return http.StatusInternalServerError
	}
}

// writeError reports err as JSON. Internal errors hide their message.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	body := errorBody{
		Code:      errors.GetCode(err),
		Message:   errors.UserMessage(err),
		RequestID: requestIDFrom(r.Context()),
	}
	var pe *errors.PositionError
	if stderrors.As(err, &pe) {
		body.Line, body.Column, body.Message = pe.Line, pe.Column, pe.Message
	}
	switch {
	case status == http.StatusRequestEntityTooLarge:
		body.Code, body.Message = errors.ErrCodeInvalidInput, "request body too large"
	case status == http.StatusInternalServerError:
		observability.HTTP().OnError(r.Context(), r.Method, r.URL.Path, err)
		body.Code, body.Message = errors.ErrCodeInternal, "internal error"
	}
	writeJSON(w, status, body)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func errNotFound(r *http.Request) error {
	return errors.New(errors.ErrCodeNotFound, "no route for %s %s", r.Method, r.URL.Path)
}
