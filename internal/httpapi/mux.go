package httpapi

import (
	"net/http"
)

type Deps struct {
	Store StoreStatus
	// DB and MQTT are nil when the csv source is used.
	DB        Pinger
	MQTT      ConnectionStatus
	Metrics   http.Handler
	StaticDir string
}

func NewMux(deps Deps) *http.ServeMux {
	mux := http.NewServeMux()
	registerHealthcheck(mux, deps)
	if deps.Metrics != nil {
		mux.Handle("GET /metrics", deps.Metrics)
	}
	if deps.StaticDir != "" {
		mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServer(http.Dir(deps.StaticDir))))
	}
	return mux
}
