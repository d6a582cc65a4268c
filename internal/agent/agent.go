// Package agent supervises the collector lifecycle: startup order,
// the scheduler's lifetime, and bounded two-phase shutdown.
package agent

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/signalbeam-io/signalbeam-collector/internal/config"
	"github.com/signalbeam-io/signalbeam-collector/internal/sampler"
	"github.com/signalbeam-io/signalbeam-collector/internal/scheduler"
)

// Transport is the publisher session as seen by the supervisor. Connect
// and Close are supervisor-exclusive; Send is shared with the scheduler's
// cycles.
type Transport interface {
	Connect(ctx context.Context) error
	Send(dataType string, payload any) error
	Close()
}

// Agent is the process supervisor. The stop and done channels are created
// at construction, before any goroutine exists, so Run and Stop may be
// called from different goroutines without further synchronization.
type Agent struct {
	cfg       *config.Config
	logger    *zap.Logger
	transport Transport
	sched     *scheduler.Scheduler

	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}
}

// New wires the sampler, transport and scheduler together.
func New(cfg *config.Config, transport Transport, logger *zap.Logger) *Agent {
	return newAgent(cfg, transport, sampler.New(cfg.Collection.Metrics, logger), logger)
}

func newAgent(cfg *config.Config, transport Transport, smp scheduler.Sampler, logger *zap.Logger) *Agent {
	return &Agent{
		cfg:       cfg,
		logger:    logger,
		transport: transport,
		sched:     scheduler.New(cfg, smp, transport, logger),
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
}

// Run connects the transport and runs the scheduler until the context is
// cancelled or startup fails. A connect failure is fatal; the agent never
// runs in a connected-but-broken state.
func (a *Agent) Run(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Relay the stop signal into the run context. Stop may fire before,
	// during, or after startup; a closed stop channel is observed in all
	// three cases.
	go func() {
		select {
		case <-a.stop:
			cancel()
		case <-runCtx.Done():
		}
	}()

	if err := a.transport.Connect(runCtx); err != nil {
		close(a.done)
		return fmt.Errorf("connect transport: %w", err)
	}
	a.logger.Info("connected to broker", zap.String("broker", a.cfg.MQTT.Broker))

	go func() {
		a.sched.Run(runCtx)
		close(a.done)
	}()

	<-runCtx.Done()
	return nil
}

// Stop signals cancellation to the scheduler, waits for both cycles up to
// the context deadline, and closes the transport. If the grace period
// elapses first, shutdown proceeds anyway: a stuck sampling or publish
// call can never prevent process exit.
func (a *Agent) Stop(ctx context.Context) error {
	a.stopOnce.Do(func() {
		close(a.stop)
	})

	select {
	case <-a.done:
		a.logger.Info("collection cycles stopped")
	case <-ctx.Done():
		a.logger.Warn("shutdown grace period elapsed with cycles still running")
	}

	a.transport.Close()
	return nil
}
