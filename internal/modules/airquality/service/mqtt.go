package service

import (
	"log/slog"

	"aqdash-server/internal/metrics"
	"aqdash-server/internal/modules/airquality/types"
	"aqdash-server/internal/mqtt"
)

// RegisterMQTTHandler routes live readings into Ingest.
func (s *ReportService) RegisterMQTTHandler(subscriber mqtt.MQTTSubscriber, logger *slog.Logger) {
	subscriber.SetMessageHandler(func(r mqtt.Reading) error {
		logger.Debug("processing measurement message", "timestamp", r.Timestamp)

		err := s.Ingest(types.Measurement{
			Time:      r.Timestamp.UTC(),
			PM25:      r.PM25,
			WindSpeed: r.WindSpeed,
		})
		if err != nil {
			s.countMessage(metrics.OutcomeError)
			logger.Error("failed to store measurement", "timestamp", r.Timestamp, "error", err)
			return err
		}
		s.countMessage(metrics.OutcomeOK)
		return nil
	})
}

// CountRejected records a payload the subscriber refused.
func (s *ReportService) CountRejected(error) {
	s.countMessage(metrics.OutcomeInvalid)
}

func (s *ReportService) countMessage(outcome string) {
	if s.metrics != nil {
		s.metrics.ObserveMessage(outcome)
	}
}
