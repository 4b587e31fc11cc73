package httpapi

import (
	"log/slog"
	"net/http"
	"time"

	"aqdash-server/internal/config"
)

func NewServer(cfg config.Config, handler http.Handler, logger *slog.Logger) *http.Server {
	return &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           requestLogger(logger, handler),
		ReadHeaderTimeout: 5 * time.Second,
		// Workbook exports over the full series can take a while.
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  2 * time.Minute,
	}
}
