package mqtt

import (
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"aqdash-server/internal/config"
)

func testSubscriber(t *testing.T) *Subscriber {
	t.Helper()
	s, err := NewSubscriber(config.Config{
		MQTTBroker:   "localhost",
		MQTTPort:     1883,
		MQTTTopic:    "aqdash/measurements",
		MQTTClientID: "test",
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("NewSubscriber: %v", err)
	}
	return s
}

func TestNewSubscriber_RequiresBroker(t *testing.T) {
	if _, err := NewSubscriber(config.Config{}, slog.Default()); err == nil {
		t.Fatal("NewSubscriber without broker = nil error")
	}
}

func TestDecodeReading(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		wantErr bool
	}{
		{"both values", `{"timestamp":"2013-03-01T00:00:00Z","pm25":4,"wspm":4.4}`, false},
		{"pm25 only", `{"timestamp":"2013-03-01T00:00:00Z","pm25":4}`, false},
		{"explicit null wind", `{"timestamp":"2013-03-01T00:00:00Z","pm25":4,"wspm":null}`, false},
		{"wind only", `{"timestamp":"2013-03-01T00:00:00+08:00","wspm":1.2}`, false},
		{"no timestamp", `{"pm25":4}`, true},
		{"no values", `{"timestamp":"2013-03-01T00:00:00Z"}`, true},
		{"negative pm25", `{"timestamp":"2013-03-01T00:00:00Z","pm25":-1}`, true},
		{"negative wind", `{"timestamp":"2013-03-01T00:00:00Z","wspm":-0.5}`, true},
		{"bad json", `{"timestamp":`, true},
		{"bad timestamp", `{"timestamp":"yesterday","pm25":4}`, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeReading([]byte(tt.payload))
			if (err != nil) != tt.wantErr {
				t.Errorf("DecodeReading() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestHandleMessage_CallsHandler(t *testing.T) {
	s := testSubscriber(t)
	var got []Reading
	s.SetMessageHandler(func(r Reading) error {
		got = append(got, r)
		return nil
	})

	s.handleMessage("aqdash/measurements", []byte(`{"timestamp":"2013-03-01T01:00:00Z","pm25":8,"wspm":4.7}`))

	if len(got) != 1 {
		t.Fatalf("handler called %d times; want 1", len(got))
	}
	if !got[0].Timestamp.Equal(time.Date(2013, 3, 1, 1, 0, 0, 0, time.UTC)) {
		t.Errorf("Timestamp = %v", got[0].Timestamp)
	}
	if got[0].PM25 == nil || *got[0].PM25 != 8 {
		t.Errorf("PM25 = %v", got[0].PM25)
	}
}

func TestHandleMessage_Rejected(t *testing.T) {
	s := testSubscriber(t)
	called := false
	s.SetMessageHandler(func(Reading) error {
		called = true
		return nil
	})
	var rejected error
	s.OnRejected(func(err error) { rejected = err })

	s.handleMessage("aqdash/measurements", []byte(`not json`))

	if called {
		t.Error("handler called for invalid payload")
	}
	if rejected == nil {
		t.Error("OnRejected not called")
	}
}

func TestHandleMessage_HandlerError(t *testing.T) {
	s := testSubscriber(t)
	s.SetMessageHandler(func(Reading) error { return errors.New("db down") })
	// Must not panic.
	s.handleMessage("aqdash/measurements", []byte(`{"timestamp":"2013-03-01T00:00:00Z","pm25":1}`))
}

func TestDisconnect_Idempotent(t *testing.T) {
	s := testSubscriber(t)
	s.Disconnect()
	s.Disconnect()
	if s.IsConnected() {
		t.Error("IsConnected after Disconnect")
	}
}
