// Package scheduler drives the periodic metric and heartbeat cycles.
package scheduler

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/signalbeam-io/signalbeam-collector/internal/config"
	"github.com/signalbeam-io/signalbeam-collector/internal/telemetry"
	"github.com/signalbeam-io/signalbeam-collector/internal/version"
)

// State is the scheduler lifecycle state.
type State int32

const (
	StateIdle State = iota
	StateRunning
	StateStopping
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Heartbeats fire on a fixed cadence, independent of the metrics interval.
const heartbeatInterval = 60 * time.Second

// Sampler produces one host snapshot per metric tick.
type Sampler interface {
	Collect(ctx context.Context) map[string]any
}

// Publisher delivers one payload per call. Failures are reported to the
// caller and the payload is dropped; the scheduler never retries.
type Publisher interface {
	Send(dataType string, payload any) error
}

// Scheduler runs the metric and heartbeat cycles until its context is
// cancelled. The cycles are independently timed and share only the
// cancellation signal and the publisher session; their publishes may
// interleave in any order.
type Scheduler struct {
	cfg       *config.Config
	logger    *zap.Logger
	sampler   Sampler
	publisher Publisher

	heartbeatEvery time.Duration
	state          atomic.Int32
	wg             sync.WaitGroup
}

// New creates an idle scheduler.
func New(cfg *config.Config, sampler Sampler, publisher Publisher, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		cfg:            cfg,
		logger:         logger,
		sampler:        sampler,
		publisher:      publisher,
		heartbeatEvery: heartbeatInterval,
	}
}

// State reports the current lifecycle state.
func (s *Scheduler) State() State {
	return State(s.state.Load())
}

// Run sends the startup heartbeat synchronously, starts both cycles, and
// blocks until the context is cancelled and both cycles have returned.
func (s *Scheduler) Run(ctx context.Context) {
	s.state.Store(int32(StateRunning))

	s.sendHeartbeat()

	if s.cfg.Collection.Metrics.Enabled {
		s.wg.Add(1)
		go s.metricsLoop(ctx)
	} else {
		s.logger.Info("metrics collection disabled")
	}

	s.wg.Add(1)
	go s.heartbeatLoop(ctx)

	<-ctx.Done()
	s.state.Store(int32(StateStopping))
	s.logger.Info("scheduler stopping")

	s.wg.Wait()
	s.state.Store(int32(StateStopped))
}

// metricsLoop fires every collection interval. Each tick handler runs to
// completion on this goroutine, so ticks never pile up: a slow handler
// simply drops the intervening timer events.
func (s *Scheduler) metricsLoop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.cfg.Collection.Interval)
	defer ticker.Stop()

	s.logger.Info("metrics cycle started",
		zap.Duration("interval", s.cfg.Collection.Interval),
	)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.collectAndSend(ctx)
		}
	}
}

// collectAndSend performs one metric tick: sample, envelope, publish.
func (s *Scheduler) collectAndSend(ctx context.Context) {
	snapshot := s.sampler.Collect(ctx)

	envelope := telemetry.NewEnvelope(
		s.cfg.Device.ID,
		telemetry.TypeMetrics,
		snapshot,
		s.cfg.Device.Tags,
	)

	if err := s.publisher.Send(telemetry.TypeMetrics, envelope); err != nil {
		s.logger.Error("failed to send metrics", zap.Error(err))
	}
}

func (s *Scheduler) heartbeatLoop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.heartbeatEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sendHeartbeat()
		}
	}
}

// sendHeartbeat publishes one liveness message. A failed heartbeat is
// logged and the cadence continues unchanged; there is no escalation on
// consecutive failures.
func (s *Scheduler) sendHeartbeat() {
	heartbeat := telemetry.NewHeartbeat(
		s.cfg.Device.ID,
		s.cfg.Device.Name,
		s.cfg.Device.Location,
		version.Short(),
	)

	if err := s.publisher.Send("heartbeat", heartbeat); err != nil {
		s.logger.Error("failed to send heartbeat", zap.Error(err))
	}
}
