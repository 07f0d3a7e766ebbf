package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/olegrjumin/urlrisk/internal/message"
	"github.com/olegrjumin/urlrisk/internal/service"
	"github.com/olegrjumin/urlrisk/internal/urlnorm"
)

// Scanner is the part of the service layer the handlers call
type Scanner interface {
	Scan(ctx context.Context, raw string) *service.Verdict
	QuickCheck(raw string) *service.Verdict
}

// inputError is a request the handlers refuse with a 4xx status
type inputError struct {
	status int
	msg    string
}

func (e *inputError) Error() string { return e.msg }

func badRequest(msg string) *inputError {
	return &inputError{status: http.StatusBadRequest, msg: msg}
}

// decodeField reads a JSON object body and returns the named field as a string.
// Missing, null, non-string and blank values are all refused.
func decodeField(w http.ResponseWriter, r *http.Request, field, label string) (string, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	var body map[string]json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return "", &inputError{status: http.StatusRequestEntityTooLarge, msg: "Request body too large"}
		}
		return "", badRequest("Invalid JSON")
	}

	raw, ok := body[field]
	if !ok || string(raw) == "null" {
		return "", badRequest(label + " is required")
	}
	var value string
	if err := json.Unmarshal(raw, &value); err != nil {
		return "", badRequest(label + " must be a string")
	}
	if strings.TrimSpace(value) == "" {
		return "", badRequest(label + " is required")
	}
	return value, nil
}

// decodeURL reads {url} and checks it is an absolute URL
func decodeURL(w http.ResponseWriter, r *http.Request) (string, error) {
	raw, err := decodeField(w, r, "url", "URL")
	if err != nil {
		return "", err
	}
	raw = strings.TrimSpace(raw)
	if err := urlnorm.ValidateAbsolute(raw); err != nil {
		return "", badRequest("Invalid URL format")
	}
	return raw, nil
}

func writeInputError(w http.ResponseWriter, err error) {
	var inErr *inputError
	if errors.As(err, &inErr) {
		writeError(w, inErr.status, inErr.msg)
		return
	}
	writeError(w, http.StatusBadRequest, err.Error())
}

// scanHandler handles POST /api/scanner/scan-url
func scanHandler(svc Scanner) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw, err := decodeURL(w, r)
		if err != nil {
			writeInputError(w, err)
			return
		}

		v := svc.Scan(r.Context(), raw)
		w.Header().Set("X-Scan-ID", v.ScanID)
		writeJSON(w, http.StatusOK, v)
	}
}

// quickCheckHandler handles POST /api/scanner/quick-check
func quickCheckHandler(svc Scanner) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw, err := decodeURL(w, r)
		if err != nil {
			writeInputError(w, err)
			return
		}

		v := svc.QuickCheck(raw)
		w.Header().Set("X-Scan-ID", v.ScanID)
		writeJSON(w, http.StatusOK, v)
	}
}

// analyzeMessageHandler handles POST /api/scanner/analyze-message
func analyzeMessageHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		text, err := decodeField(w, r, "text", "Text")
		if err != nil {
			writeInputError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, message.Analyze(text))
	}
}

// pingHandler handles GET /api/ping
func pingHandler(msg string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"message":   msg,
			"timestamp": time.Now().UTC().Format("2006-01-02T15:04:05.000Z07:00"),
		})
	}
}
