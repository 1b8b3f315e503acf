package app

import (
	"encoding/json"
	"net/http"
)

type envelope map[string]interface{}

func (app *Application) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		app.Logger.Error("Failed to encode response", "error", err)
	}
}

func (app *Application) errorResponse(w http.ResponseWriter, r *http.Request, status int, message string, extra envelope) {
	body := envelope{"error": message}
	for k, v := range extra {
		body[k] = v
	}
	app.Logger.Info("Request failed", "method", r.Method, "path", r.URL.Path, "status", status, "error", message)
	app.writeJSON(w, status, body)
}
