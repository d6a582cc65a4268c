// Package publisher owns the MQTT session and the topic scheme.
package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"

	"github.com/signalbeam-io/signalbeam-collector/internal/config"
)

const keepAlive = 60 * time.Second

// Publisher sends telemetry over one long-lived MQTT session. The session
// is safe for concurrent Send calls from the metric and heartbeat cycles;
// Connect and Close bracket the cycles' lifetime and are supervisor-only.
type Publisher struct {
	cfg      config.MQTTConfig
	deviceID string
	logger   *zap.Logger
	client   mqtt.Client
}

// New configures the MQTT client for the given connection settings.
// Reconnection after a connection loss is delegated to the client's
// built-in keep-alive and auto-reconnect; the publisher only logs the
// transitions.
func New(cfg config.MQTTConfig, deviceID string, logger *zap.Logger) *Publisher {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(cfg.ClientID)
	opts.SetUsername(cfg.Username)
	opts.SetPassword(cfg.Password)
	opts.SetConnectTimeout(cfg.Timeout)
	opts.SetKeepAlive(keepAlive)
	opts.SetAutoReconnect(true)
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		logger.Error("mqtt connection lost", zap.Error(err))
	})
	opts.SetOnConnectHandler(func(_ mqtt.Client) {
		logger.Info("mqtt connected", zap.String("broker", cfg.Broker))
	})

	return &Publisher{
		cfg:      cfg,
		deviceID: deviceID,
		logger:   logger,
		client:   mqtt.NewClient(opts),
	}
}

// Connect establishes the session, blocking up to the configured connect
// timeout or until the context is cancelled. A failure here is fatal to
// startup; the collector never proceeds with a broken session.
func (p *Publisher) Connect(ctx context.Context) error {
	token := p.client.Connect()

	select {
	case <-ctx.Done():
		return fmt.Errorf("connect to %s: %w", p.cfg.Broker, ctx.Err())
	case <-token.Done():
	}

	if err := token.Error(); err != nil {
		return fmt.Errorf("connect to %s: %w", p.cfg.Broker, err)
	}
	return nil
}

// Send serializes the payload to JSON and publishes it at the configured
// QoS and retained flag, waiting for the broker acknowledgment. On any
// failure the payload is dropped; there is no retry queue.
func (p *Publisher) Send(dataType string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", dataType, err)
	}

	topic := p.Topic(dataType)
	token := p.client.Publish(topic, p.cfg.QoS, p.cfg.Retained, data)
	if token.Wait() && token.Error() != nil {
		return fmt.Errorf("publish to %s: %w", topic, token.Error())
	}

	p.logger.Debug("published",
		zap.String("topic", topic),
		zap.String("type", dataType),
		zap.Int("bytes", len(data)),
	)
	return nil
}

// Topic builds the four-segment topic for a data type:
//
//	{prefix}/{device_id}/{suffix}/{type}
//
// A wildcard at the second segment selects a device, one at the third
// selects a data type. Unconfigured suffixes default to the type name.
func (p *Publisher) Topic(dataType string) string {
	var suffix string
	switch dataType {
	case "metrics":
		suffix = p.cfg.Topics.Metrics
	case "logs":
		suffix = p.cfg.Topics.Logs
	case "events":
		suffix = p.cfg.Topics.Events
	case "heartbeat":
		suffix = p.cfg.Topics.Heartbeat
	}
	if suffix == "" {
		suffix = dataType
	}

	return fmt.Sprintf("%s/%s/%s/%s", p.cfg.Topics.Prefix, p.deviceID, suffix, dataType)
}

// Close disconnects the session if it is still up. Idempotent.
func (p *Publisher) Close() {
	if p.client.IsConnected() {
		p.client.Disconnect(1000)
		p.logger.Info("mqtt disconnected")
	}
}
