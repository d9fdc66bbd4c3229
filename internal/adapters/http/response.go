package http

import (
	"encoding/json"
	"net/http"
)

// apiError is the error envelope for every failed privacy-request call.
// Code carries the machine-readable reason (STEP_OUT_OF_RANGE, SOURCE_FAILED,
// ILLEGAL_TRANSITION and friends) so clients never parse Message.
type apiError struct {
	Status  string `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

// writeSuccess wraps request, list and step payloads in the standard
// {"status":"success","data":...} envelope.
func writeSuccess(w http.ResponseWriter, statusCode int, data any) {
	writeJSON(w, statusCode, map[string]any{
		"status": "success",
		"data":   data,
	})
}

// writeMessage answers data-free operations such as confirm and resend.
func writeMessage(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]any{
		"status":  "success",
		"message": message,
	})
}

func writeError(w http.ResponseWriter, statusCode int, code, message string) {
	writeJSON(w, statusCode, apiError{
		Status:  "error",
		Code:    code,
		Message: message,
	})
}
