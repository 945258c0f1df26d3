package telemetry

import (
	"context"
	"encoding/json"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/pkg/errors"

	"go.viam.com/swerve/input/mqtt"
	"go.viam.com/swerve/logging"
)

// A Sink receives every record a collector captures.
type Sink interface {
	Publish(ctx context.Context, rec Record) error
	Close() error
}

// LogSink writes records to a logger at debug level.
type LogSink struct {
	logger logging.Logger
}

// NewLogSink returns a sink logging to logger.
func NewLogSink(logger logging.Logger) *LogSink {
	return &LogSink{logger: logger}
}

// Publish logs a summary of the record.
func (s *LogSink) Publish(ctx context.Context, rec Record) error {
	s.logger.Debugw("telemetry",
		"seq", rec.Seq,
		"state", rec.Status.State,
		"field_relative", rec.Status.FieldRelative,
		"heading_deg", rec.Status.HeadingDeg,
		"commanded", rec.Status.Commanded,
		"saturated", rec.Status.Saturated,
		"stale", rec.Status.Stale(),
	)
	return nil
}

// Close is a no-op.
func (s *LogSink) Close() error {
	return nil
}

// mqttPublishTimeout bounds how long Publish waits on the broker.
const mqttPublishTimeout = time.Second

// MQTTSink publishes records as JSON on a topic.
type MQTTSink struct {
	client paho.Client
	topic  string
}

// NewMQTTSink connects to broker and publishes on topic.
func NewMQTTSink(broker, topic, clientID string, logger logging.Logger) (*MQTTSink, error) {
	opts := paho.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectTimeout(mqtt.ConnectTimeout)
	opts.OnConnectionLost = func(_ paho.Client, err error) {
		logger.Warnw("telemetry connection lost", "broker", broker, "error", err)
	}
	client := paho.NewClient(opts)
	if err := mqtt.Connect(client, broker, mqtt.ConnectTimeout); err != nil {
		return nil, err
	}
	logger.Infow("publishing telemetry", "broker", broker, "topic", topic)
	return newMQTTSink(client, topic), nil
}

func newMQTTSink(client paho.Client, topic string) *MQTTSink {
	return &MQTTSink{client: client, topic: topic}
}

// Publish sends the record, retained so late subscribers see the latest state.
func (s *MQTTSink) Publish(ctx context.Context, rec Record) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	token := s.client.Publish(s.topic, 0, true, payload)
	if !token.WaitTimeout(mqttPublishTimeout) {
		return errors.Errorf("timed out publishing to %s", s.topic)
	}
	return token.Error()
}

// Close disconnects from the broker.
func (s *MQTTSink) Close() error {
	s.client.Disconnect(250)
	return nil
}
