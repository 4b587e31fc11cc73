package app

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"aqdash-server/internal/config"
	httpapi "aqdash-server/internal/httpapi"
	"aqdash-server/internal/metrics"
	"aqdash-server/internal/modules/airquality/controller"
	"aqdash-server/internal/modules/airquality/service"
	"aqdash-server/internal/modules/airquality/views"
	"aqdash-server/internal/mqtt"
)

// Run serves the dashboard until ctx is cancelled.
func Run(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	logger.Info("config loaded",
		"appEnv", cfg.AppEnv,
		"logLevel", cfg.LogLevel.String(),
		"httpAddr", cfg.HTTPAddr,
		"staticDir", cfg.StaticDir,
		"dataSource", cfg.DataSource,
		"dataPath", cfg.DataPath,
		"reloadInterval", cfg.ReloadInterval,
		"sqlitePath", cfg.SQLitePath,
		"mqttEnabled", cfg.MQTTEnabled,
		"mqttBroker", cfg.MQTTBroker,
		"mqttPort", cfg.MQTTPort,
		"mqttTopic", cfg.MQTTTopic,
	)

	b, err := openBackend(cfg, logger)
	if err != nil {
		return err
	}
	defer b.close(logger)

	m := metrics.New()
	opts := []service.Option{service.WithMetrics(m)}
	if b.repo != nil {
		opts = append(opts, service.WithRepository(b.repo))
	}
	svc := service.NewService(b.source, logger, opts...)

	// A bad data file must stop startup; later reload failures keep the old snapshot.
	if err := svc.Reload(); err != nil {
		return err
	}
	if err := views.LoadTemplates(); err != nil {
		return err
	}

	deps := httpapi.Deps{Store: svc, Metrics: m.Handler(), StaticDir: cfg.StaticDir}
	if b.repo != nil {
		deps.DB = b.repo
	}

	var subscriber *mqtt.Subscriber
	if cfg.MQTTEnabled {
		subscriber, err = mqtt.NewSubscriber(cfg, logger)
		if err != nil {
			return err
		}
		// Handler must be set before Connect: the broker may deliver right after CONNACK.
		svc.RegisterMQTTHandler(subscriber, logger)
		subscriber.OnRejected(svc.CountRejected)
		deps.MQTT = subscriber

		connectCtx, connectCancel := context.WithTimeout(ctx, 5*time.Second)
		err = subscriber.Connect(connectCtx)
		connectCancel()
		if err != nil {
			// Dashboard and /healthz still work without the broker.
			logger.Warn("mqtt connection failed (continuing without mqtt)", "error", err)
		}
	}

	mux := httpapi.NewMux(deps)
	dashboard := views.DashboardPresenter{
		Title:   cfg.DashboardTitle,
		Caption: cfg.DashboardCaption,
		LogoURL: logoURL(cfg.StaticDir),
	}
	controller.NewAirQualityController(svc, dashboard, logger).RegisterRoutes(mux)

	refreshCtx, stopRefresh := context.WithCancel(ctx)
	defer stopRefresh()
	go svc.RefreshLoop(refreshCtx, cfg.ReloadInterval)

	srv := httpapi.NewServer(cfg, mux, logger)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http listening", "addr", cfg.HTTPAddr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if subscriber != nil {
		logger.Info("mqtt disconnecting")
		subscriber.Disconnect()
	}

	logger.Info("http shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}

	err = <-errCh
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return ctx.Err()
}
