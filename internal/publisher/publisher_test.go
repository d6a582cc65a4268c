package publisher

import (
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/signalbeam-io/signalbeam-collector/internal/config"
)

func defaultMQTTConfig() config.MQTTConfig {
	return config.MQTTConfig{
		Broker:   "tcp://localhost:1883",
		ClientID: "signalbeam-dev-1",
		QoS:      1,
		Timeout:  time.Second,
		Topics: config.TopicsConfig{
			Prefix:    "signalbeam",
			Metrics:   "metrics",
			Logs:      "logs",
			Events:    "events",
			Heartbeat: "heartbeat",
		},
	}
}

func TestTopicDefaults(t *testing.T) {
	p := New(defaultMQTTConfig(), "dev-1", zap.NewNop())

	tests := []struct {
		dataType string
		want     string
	}{
		{"metrics", "signalbeam/dev-1/metrics/metrics"},
		{"heartbeat", "signalbeam/dev-1/heartbeat/heartbeat"},
		{"logs", "signalbeam/dev-1/logs/logs"},
		{"events", "signalbeam/dev-1/events/events"},
	}

	for _, tt := range tests {
		if got := p.Topic(tt.dataType); got != tt.want {
			t.Errorf("Topic(%q) = %q, want %q", tt.dataType, got, tt.want)
		}
	}
}

func TestTopicCustomSuffix(t *testing.T) {
	cfg := defaultMQTTConfig()
	cfg.Topics.Prefix = "fleet"
	cfg.Topics.Metrics = "telemetry"
	p := New(cfg, "gw-7", zap.NewNop())

	if got, want := p.Topic("metrics"), "fleet/gw-7/telemetry/metrics"; got != want {
		t.Errorf("Topic(metrics) = %q, want %q", got, want)
	}
}

func TestTopicUnknownTypeUsesTypeAsSuffix(t *testing.T) {
	p := New(defaultMQTTConfig(), "dev-1", zap.NewNop())

	if got, want := p.Topic("diagnostics"), "signalbeam/dev-1/diagnostics/diagnostics"; got != want {
		t.Errorf("Topic(diagnostics) = %q, want %q", got, want)
	}
}

func TestTopicEmptySuffixFallsBack(t *testing.T) {
	cfg := defaultMQTTConfig()
	cfg.Topics.Heartbeat = ""
	p := New(cfg, "dev-1", zap.NewNop())

	if got, want := p.Topic("heartbeat"), "signalbeam/dev-1/heartbeat/heartbeat"; got != want {
		t.Errorf("Topic(heartbeat) = %q, want %q", got, want)
	}
}

func TestSendWhileDisconnected(t *testing.T) {
	// Never connected: the client reports disconnected and Send must
	// surface an error instead of blocking or panicking.
	cfg := defaultMQTTConfig()
	cfg.Broker = "tcp://127.0.0.1:1"
	p := New(cfg, "dev-1", zap.NewNop())

	err := p.Send("metrics", map[string]string{"k": "v"})
	if err == nil {
		t.Fatal("Send() on a disconnected session should return an error")
	}
}

func TestSendUnmarshalablePayload(t *testing.T) {
	p := New(defaultMQTTConfig(), "dev-1", zap.NewNop())

	err := p.Send("metrics", map[string]any{"bad": make(chan int)})
	if err == nil {
		t.Fatal("Send() should fail on an unserializable payload")
	}
}

func TestCloseIdempotentWhenNeverConnected(t *testing.T) {
	p := New(defaultMQTTConfig(), "dev-1", zap.NewNop())

	// Must not panic or block on a session that was never established.
	p.Close()
	p.Close()
}
