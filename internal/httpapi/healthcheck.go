package httpapi

import (
	"log/slog"
	"net/http"

	"aqdash-server/internal/utils"
)

// StoreStatus reports on the in-memory measurement snapshot.
type StoreStatus interface {
	Loaded() bool
	Stale() bool
}

type Pinger interface {
	Ping() error
}

type ConnectionStatus interface {
	IsConnected() bool
}

type healthchecker interface {
	handleHealthz(w http.ResponseWriter, r *http.Request)
}

type healthcheckerImpl struct {
	store StoreStatus
	db    Pinger
	mqtt  ConnectionStatus
}

func NewHealthchecker(store StoreStatus, db Pinger, mqtt ConnectionStatus) healthchecker {
	return &healthcheckerImpl{store: store, db: db, mqtt: mqtt}
}

func (h *healthcheckerImpl) handleHealthz(w http.ResponseWriter, r *http.Request) {
	if h.db != nil {
		if err := h.db.Ping(); err != nil {
			slog.Error("failed to check database connectivity", "error", err)
			utils.WriteError(w, http.StatusInternalServerError, "failed to check database connectivity")
			return
		}
	}
	if !h.store.Loaded() {
		utils.WriteError(w, http.StatusServiceUnavailable, "measurement store not loaded")
		return
	}

	body := map[string]any{"status": "ok", "stale": h.store.Stale()}
	// A broker outage degrades live ingestion only.
	if h.mqtt != nil {
		body["mqtt"] = h.mqtt.IsConnected()
	}
	utils.WriteJSON(w, http.StatusOK, body)
}

func registerHealthcheck(mux *http.ServeMux, deps Deps) {
	healthchecker := NewHealthchecker(deps.Store, deps.DB, deps.MQTT)
	mux.HandleFunc("GET /healthz", healthchecker.handleHealthz)
}
