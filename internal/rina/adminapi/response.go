package adminapi

import (
	"bytes"
	"encoding/json"
	"net/http"

	"github.com/rinacore/ipcpd/internal/logger"
)

// writeJSON encodes data to a buffer first, so an encoding failure never
// leaves a partially-written response on the wire.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(data); err != nil {
		logger.Error("adminapi: failed to encode response", logger.Err(err))
		http.Error(w, `{"error":"failed to encode response"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
