package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/evinta/rsvpd/internal/models"
)

// fallbackErrorResponse is marshaled once at startup so a response whose
// payload fails to encode can still be answered with a valid JSON error body.
var fallbackErrorResponse = mustMarshal(models.Error("Internal server error"))

func mustMarshal(v interface{}) []byte {
	data, err := json.Marshal(v)
	if err != nil {
		panic("api: failed to marshal fallback response: " + err.Error())
	}
	return data
}

// writeJSONResponse marshals the payload before touching the ResponseWriter,
// so an encoding failure downgrades to the fallback error body instead of
// producing a half-written response.
func writeJSONResponse(w http.ResponseWriter, statusCode int, response interface{}) {
	jsonData, err := json.Marshal(response)
	if err != nil {
		slog.Error("Server.writeJSONResponse: failed to marshal response", "error", err)
		jsonData = fallbackErrorResponse
		statusCode = http.StatusInternalServerError
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if _, err := w.Write(jsonData); err != nil {
		slog.Error("Server.writeJSONResponse: failed to write response", "error", err)
	}
}
