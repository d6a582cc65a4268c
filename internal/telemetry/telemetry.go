// Package telemetry defines the wire types the collector publishes.
package telemetry

import "time"

// Data type tags carried in the Envelope Type field and used as the final
// topic segment.
const (
	TypeMetrics = "metrics"
	TypeLogs    = "logs"
	TypeEvents  = "events"
)

// StatusOnline is the fixed status reported by the liveness heartbeat.
const StatusOnline = "online"

// Envelope carries one sampled snapshot from edge to cloud. It is built
// fresh on every tick and consumed exactly once by the publisher.
type Envelope struct {
	DeviceID  string            `json:"device_id"`
	Timestamp time.Time         `json:"timestamp"`
	Type      string            `json:"type"`
	Data      map[string]any    `json:"data"`
	Tags      map[string]string `json:"tags"`
}

// NewEnvelope builds an envelope around a snapshot, stamping it with the
// current UTC time. The device tags are copied so later mutation of the
// source map cannot reach an envelope already handed to the publisher.
func NewEnvelope(deviceID, dataType string, data map[string]any, tags map[string]string) Envelope {
	copied := make(map[string]string, len(tags))
	for k, v := range tags {
		copied[k] = v
	}
	return Envelope{
		DeviceID:  deviceID,
		Timestamp: time.Now().UTC(),
		Type:      dataType,
		Data:      data,
		Tags:      copied,
	}
}

// Heartbeat is the fixed-cadence liveness message, independent of metric
// sampling.
type Heartbeat struct {
	DeviceID   string `json:"device_id"`
	DeviceName string `json:"device_name"`
	Location   string `json:"location"`
	Timestamp  int64  `json:"timestamp"`
	Status     string `json:"status"`
	Version    string `json:"version"`
}

// NewHeartbeat builds an online heartbeat stamped with the current unix
// time.
func NewHeartbeat(deviceID, deviceName, location, version string) Heartbeat {
	return Heartbeat{
		DeviceID:   deviceID,
		DeviceName: deviceName,
		Location:   location,
		Timestamp:  time.Now().UTC().Unix(),
		Status:     StatusOnline,
		Version:    version,
	}
}
