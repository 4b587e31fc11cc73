package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"aqdash-server/internal/config"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// Reading is the JSON payload published by monitoring stations.
type Reading struct {
	Timestamp time.Time `json:"timestamp"`
	PM25      *float64  `json:"pm25"`
	WindSpeed *float64  `json:"wspm"`
}

type Subscriber struct {
	client    mqtt.Client
	cfg       config.Config
	logger    *slog.Logger
	mu        sync.RWMutex
	connected bool

	stopCh   chan struct{}
	stopOnce sync.Once

	handlerMu sync.RWMutex
	handler   func(Reading) error
	rejected  func(error)
}

// MQTTSubscriber interface for attaching message handlers
type MQTTSubscriber interface {
	SetMessageHandler(handler func(Reading) error)
}

// SetMessageHandler sets the handler called for each valid reading.
func (s *Subscriber) SetMessageHandler(handler func(Reading) error) {
	s.handlerMu.Lock()
	s.handler = handler
	s.handlerMu.Unlock()
}

// OnRejected is called for payloads that fail to parse or validate.
func (s *Subscriber) OnRejected(fn func(error)) {
	s.handlerMu.Lock()
	s.rejected = fn
	s.handlerMu.Unlock()
}

func NewSubscriber(cfg config.Config, logger *slog.Logger) (*Subscriber, error) {
	if cfg.MQTTBroker == "" {
		return nil, fmt.Errorf("mqtt broker is required")
	}
	s := &Subscriber{
		cfg:    cfg,
		logger: logger,
		stopCh: make(chan struct{}),
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://%s:%d", cfg.MQTTBroker, cfg.MQTTPort))
	opts.SetClientID(cfg.MQTTClientID)

	opts.SetCleanSession(true)

	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(5 * time.Second)
	opts.SetMaxReconnectInterval(60 * time.Second)

	opts.SetKeepAlive(30 * time.Second)
	opts.SetPingTimeout(10 * time.Second)

	opts.SetOnConnectHandler(func(_ mqtt.Client) {
		s.setConnected(true)
		logger.Info("mqtt connected", "broker", cfg.MQTTBroker, "port", cfg.MQTTPort)
	})

	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		s.setConnected(false)
		logger.Warn("mqtt connection lost", "error", err)
	})

	s.client = mqtt.NewClient(opts)
	return s, nil
}

// Connect establishes connection to the MQTT broker and subscribes to the configured topic.
func (s *Subscriber) Connect(ctx context.Context) error {
	select {
	case <-s.stopCh:
		return fmt.Errorf("subscriber stopped")
	default:
	}

	if s.IsConnected() {
		return nil
	}

	token := s.client.Connect()

	const poll = 200 * time.Millisecond
	for {
		if token.WaitTimeout(poll) {
			if err := token.Error(); err != nil {
				return fmt.Errorf("mqtt connect: %w", err)
			}
			break
		}

		select {
		case <-ctx.Done():
			s.client.Disconnect(0)
			return ctx.Err()
		case <-s.stopCh:
			s.client.Disconnect(0)
			return fmt.Errorf("subscriber stopped")
		default:
		}
	}

	if err := s.subscribe(); err != nil {
		s.client.Disconnect(0)
		return fmt.Errorf("subscribe: %w", err)
	}

	return nil
}

func (s *Subscriber) subscribe() error {
	if !s.IsConnected() {
		return fmt.Errorf("mqtt client not connected")
	}

	topic := s.cfg.MQTTTopic
	qos := byte(1) // at least once

	token := s.client.Subscribe(topic, qos, func(_ mqtt.Client, msg mqtt.Message) {
		s.handleMessage(msg.Topic(), msg.Payload())
	})
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("subscribe timeout for topic %s", topic)
	}
	if token.Error() != nil {
		return fmt.Errorf("subscribe to %s: %w", topic, token.Error())
	}

	s.logger.Info("subscribed to mqtt topic", "topic", topic, "qos", qos)
	return nil
}

func (s *Subscriber) handleMessage(topic string, payload []byte) {
	s.logger.Debug("received mqtt message", "topic", topic, "size", len(payload))

	s.handlerMu.RLock()
	handler, rejected := s.handler, s.rejected
	s.handlerMu.RUnlock()

	reading, err := DecodeReading(payload)
	if err != nil {
		s.logger.Warn("invalid measurement message",
			"topic", topic,
			"error", err,
			"payload", string(payload),
		)
		if rejected != nil {
			rejected(err)
		}
		return
	}

	if handler == nil {
		return
	}
	if err := handler(reading); err != nil {
		s.logger.Error("message handler failed",
			"topic", topic,
			"timestamp", reading.Timestamp,
			"error", err,
		)
		return
	}
	s.logger.Debug("processed measurement message", "timestamp", reading.Timestamp)
}

// DecodeReading parses and validates one payload.
func DecodeReading(payload []byte) (Reading, error) {
	var r Reading
	if err := json.Unmarshal(payload, &r); err != nil {
		return Reading{}, fmt.Errorf("parse payload: %w", err)
	}
	if err := validateReading(r); err != nil {
		return Reading{}, err
	}
	return r, nil
}

func validateReading(r Reading) error {
	if r.Timestamp.IsZero() {
		return fmt.Errorf("timestamp is required")
	}
	if r.PM25 == nil && r.WindSpeed == nil {
		return fmt.Errorf("at least one of pm25 or wspm is required")
	}
	if r.PM25 != nil && (*r.PM25 < 0 || math.IsNaN(*r.PM25) || math.IsInf(*r.PM25, 0)) {
		return fmt.Errorf("pm25 must be a non-negative number: %f", *r.PM25)
	}
	if r.WindSpeed != nil && (*r.WindSpeed < 0 || math.IsNaN(*r.WindSpeed) || math.IsInf(*r.WindSpeed, 0)) {
		return fmt.Errorf("wspm must be a non-negative number: %f", *r.WindSpeed)
	}
	return nil
}

// IsConnected returns whether the client is connected.
func (s *Subscriber) IsConnected() bool {
	s.mu.RLock()
	connected := s.connected
	s.mu.RUnlock()
	return connected && s.client.IsConnected()
}

// Disconnect stops the subscriber and closes the MQTT connection.
// Idempotent and safe to call multiple times.
func (s *Subscriber) Disconnect() {
	s.stopOnce.Do(func() { close(s.stopCh) })

	if s.client != nil && s.IsConnected() {
		token := s.client.Unsubscribe(s.cfg.MQTTTopic)
		token.WaitTimeout(2 * time.Second)
	}

	// Not under s.mu; paho callbacks take it.
	if s.client != nil {
		s.client.Disconnect(250)
	}

	s.setConnected(false)
	s.logger.Info("mqtt subscriber disconnected")
}

func (s *Subscriber) setConnected(v bool) {
	s.mu.Lock()
	s.connected = v
	s.mu.Unlock()
}
