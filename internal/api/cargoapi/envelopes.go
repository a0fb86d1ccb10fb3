package cargoapi

import (
	"encoding/json"
	"net/http"
)

// MessageEnvelope — общий конверт ответа.
type MessageEnvelope struct {
	Status string `json:"status,omitempty"`
	Error  string `json:"error,omitempty"`
}

// SyncEnvelope — ответ на синхронизацию заказа.
type SyncEnvelope struct {
	Status      string `json:"status"`
	Result      string `json:"result"`
	OrderID     uint64 `json:"order_id"`
	OrderNumber string `json:"order_number"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, MessageEnvelope{Status: "error", Error: msg})
}
