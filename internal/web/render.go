package web

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/hpungsan/lanequote/internal/errors"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// renderJSON writes a JSON response.
func renderJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// renderError writes {"error": {code, message, status}}. Internal errors
// are reported without their cause.
func renderError(w http.ResponseWriter, err error) {
	qErr := errors.As(err)

	errorObj := map[string]any{
		"code":    string(qErr.Code),
		"message": qErr.Message,
		"status":  qErr.Status,
	}
	if qErr.Code == errors.ErrInternal {
		errorObj["message"] = "an internal error occurred"
	} else if qErr.Details != nil {
		errorObj["details"] = qErr.Details
	}
	renderJSON(w, qErr.Status, map[string]any{"error": errorObj})
}

// renderAttachment writes a downloadable file.
func renderAttachment(w http.ResponseWriter, contentType, name string, body []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename*=UTF-8''%s", url.PathEscape(name)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}
