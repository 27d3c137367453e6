package dispatch

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"net/http"
)

// ErrorBody is the JSON shape of every failed command response.
type ErrorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// WriteError writes an ErrorBody with the given status.
func WriteError(w http.ResponseWriter, status int, kind, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(ErrorBody{Error: kind, Message: message})
}

// ErrorKind maps a dispatch error to its HTTP status and wire kind.
func ErrorKind(err error) (int, string) {
	var tooLarge *http.MaxBytesError
	switch {
	case errors.Is(err, ErrMissingPayload):
		return http.StatusBadRequest, "missing_payload"
	case errors.Is(err, ErrUnparseableCommand):
		return http.StatusBadRequest, "unparseable_command"
	case errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge, "payload_too_large"
	case errors.Is(err, errInvalidRequest):
		return http.StatusBadRequest, "invalid_request"
	case errors.Is(err, ErrNoResponse):
		return http.StatusInternalServerError, "no_response"
	default:
		return http.StatusInternalServerError, "handler_failed"
	}
}

// ServeHTTP accepts POST requests carrying the command in the "json" field,
// either form/query encoded or inside a JSON object body.
func (d *Dispatcher) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		WriteError(w, http.StatusMethodNotAllowed, "method_not_allowed", "commands must be sent with POST")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, d.cfg.maxPayload)

	payload, err := d.payload(r)
	if err == nil {
		var body []byte
		body, err = d.Dispatch(r.Context(), payload)
		if err == nil {
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("Cache-Control", "no-store")
			w.WriteHeader(http.StatusOK)
			w.Write(body)
			return
		}
	}

	status, kind := ErrorKind(err)
	level := slog.LevelWarn
	if status >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	d.cfg.logger.Log(r.Context(), level, "command failed",
		slog.String("kind", kind),
		slog.Int("status", status),
		slog.Any("error", err))
	WriteError(w, status, kind, err.Error())
}

func (d *Dispatcher) payload(r *http.Request) (string, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/json" {
		var body map[string]json.RawMessage
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				return "", err
			}
			return "", fmt.Errorf("%w: body is not a json object", errInvalidRequest)
		}
		raw, ok := body[d.cfg.field]
		if !ok {
			return "", ErrMissingPayload
		}
		var payload string
		if err := json.Unmarshal(raw, &payload); err != nil {
			return "", fmt.Errorf("%w: field %q must be a string", errInvalidRequest, d.cfg.field)
		}
		return payload, nil
	}

	if err := r.ParseForm(); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return "", err
		}
		return "", fmt.Errorf("%w: %v", errInvalidRequest, err)
	}
	values, ok := r.Form[d.cfg.field]
	if !ok || len(values) == 0 {
		return "", ErrMissingPayload
	}
	return values[0], nil
}
