// Package response writes JSON bodies and structured errors for HTTP handlers.
package response

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

type errorBody struct {
	Error   string `json:"error"`
	Code    string `json:"code"`
	Details any    `json:"details,omitempty"`
}

// JSON writes data with status 200.
func JSON(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusOK, data)
}

// Error writes {"error": message, "code": code}. The message is human-readable
// and safe to show to clients.
func Error(w http.ResponseWriter, status int, code, message string, details any) {
	writeJSON(w, status, errorBody{
		Error:   message,
		Code:    code,
		Details: details,
	})
}

// Attachment writes body as a downloadable file.
func Attachment(w http.ResponseWriter, contentType, filename string, body []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		slog.Warn("write attachment", "filename", filename, "error", err)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("encode response", "error", err)
	}
}
