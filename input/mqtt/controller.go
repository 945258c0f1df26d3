// Package mqtt implements an input controller fed by JSON snapshots published on an MQTT topic,
// for driving the robot from a remote operator station.
package mqtt

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/pkg/errors"

	"go.viam.com/swerve/input"
	"go.viam.com/swerve/logging"
)

const (
	// DefaultTimeout is how long a snapshot stays valid without a newer one.
	DefaultTimeout = 500 * time.Millisecond
	// ConnectTimeout bounds the first connection to a broker.
	ConnectTimeout = 5 * time.Second
)

// Config describes the broker connection.
type Config struct {
	Broker   string        `json:"broker"`
	Topic    string        `json:"topic"`
	ClientID string        `json:"client_id"`
	Timeout  time.Duration `json:"timeout"`
}

// Controller caches the latest snapshot received on the topic.
// When the operator link goes quiet for longer than the timeout, Snapshot reports a centered
// controller so the robot stops instead of repeating the last command.
type Controller struct {
	client  paho.Client
	topic   string
	timeout time.Duration
	clk     clock.Clock
	logger  logging.Logger

	mu       sync.RWMutex
	last     input.Snapshot
	received time.Time
	have     bool
}

// NewController connects to the broker and subscribes to the configured topic.
func NewController(cfg Config, logger logging.Logger) (*Controller, error) {
	opts := paho.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID).
		SetAutoReconnect(true).
		SetConnectTimeout(ConnectTimeout)
	opts.OnConnectionLost = func(_ paho.Client, err error) {
		logger.Warnw("input connection lost", "broker", cfg.Broker, "error", err)
	}

	c := newController(cfg, clock.New(), logger)
	c.client = paho.NewClient(opts)
	if err := Connect(c.client, cfg.Broker, ConnectTimeout); err != nil {
		return nil, err
	}
	token := c.client.Subscribe(cfg.Topic, 0, c.handleMessage)
	token.Wait()
	if token.Error() != nil {
		c.client.Disconnect(250)
		return nil, errors.Wrapf(token.Error(), "subscribing to %s", cfg.Topic)
	}
	logger.Infow("subscribed to operator input", "broker", cfg.Broker, "topic", cfg.Topic)
	return c, nil
}

// Connect makes the first connection to broker and gives up after timeout. Connections lost
// later are re-established by the client's auto reconnect.
func Connect(client paho.Client, broker string, timeout time.Duration) error {
	token := client.Connect()
	if !token.WaitTimeout(timeout) {
		client.Disconnect(0)
		return errors.Errorf("timed out after %v connecting to %s", timeout, broker)
	}
	return errors.Wrapf(token.Error(), "connecting to %s", broker)
}

func newController(cfg Config, clk clock.Clock, logger logging.Logger) *Controller {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Controller{topic: cfg.Topic, timeout: timeout, clk: clk, logger: logger}
}

func (c *Controller) handleMessage(_ paho.Client, msg paho.Message) {
	var snap input.Snapshot
	if err := json.Unmarshal(msg.Payload(), &snap); err != nil {
		c.logger.Debugw("dropping malformed input payload", "topic", msg.Topic(), "error", err)
		return
	}
	c.mu.Lock()
	c.last = snap
	c.received = c.clk.Now()
	c.have = true
	c.mu.Unlock()
}

// Snapshot returns the latest snapshot, or a centered one when none arrived within the timeout.
func (c *Controller) Snapshot(ctx context.Context) (input.Snapshot, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	now := c.clk.Now()
	if !c.have || now.Sub(c.received) > c.timeout {
		return input.Snapshot{Time: now}, nil
	}
	return c.last, nil
}

// Close disconnects from the broker.
func (c *Controller) Close(ctx context.Context) error {
	if c.client != nil {
		c.client.Disconnect(250)
	}
	return nil
}
