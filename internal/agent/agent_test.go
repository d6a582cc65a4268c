package agent

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/signalbeam-io/signalbeam-collector/internal/config"
	"github.com/signalbeam-io/signalbeam-collector/internal/testutil"
)

// stubTransport records connect/send/close activity.
type stubTransport struct {
	mu         sync.Mutex
	connectErr error
	connected  bool
	closed     bool
	sends      map[string]int
}

func (s *stubTransport) Connect(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.connectErr != nil {
		return s.connectErr
	}
	s.connected = true
	return nil
}

func (s *stubTransport) Send(dataType string, _ any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sends == nil {
		s.sends = make(map[string]int)
	}
	s.sends[dataType]++
	return nil
}

func (s *stubTransport) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
}

func (s *stubTransport) sendCount(dataType string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sends[dataType]
}

func (s *stubTransport) wasClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// fastSampler returns immediately.
type fastSampler struct{}

func (fastSampler) Collect(context.Context) map[string]any {
	return map[string]any{"system": map[string]any{}}
}

// stuckSampler simulates a hung OS query that ignores cancellation.
type stuckSampler struct{ delay time.Duration }

func (s stuckSampler) Collect(context.Context) map[string]any {
	time.Sleep(s.delay)
	return map[string]any{"system": map[string]any{}}
}

func testConfig(interval time.Duration) *config.Config {
	return &config.Config{
		Device: config.DeviceConfig{ID: "dev-1", Name: "Test Device"},
		MQTT:   config.MQTTConfig{Broker: "tcp://localhost:1883"},
		Collection: config.CollectionConfig{
			Interval: interval,
			Metrics:  config.MetricsConfig{Enabled: true},
		},
	}
}

func TestRunConnectFailure(t *testing.T) {
	transport := &stubTransport{connectErr: errors.New("broker unreachable")}
	a := newAgent(testConfig(time.Second), transport, fastSampler{}, zap.NewNop())

	err := a.Run(context.Background())
	if err == nil {
		t.Fatal("Run() should fail when the transport cannot connect")
	}

	// Stop after a failed startup must not hang on the never-started
	// scheduler.
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	start := time.Now()
	if err := a.Stop(ctx); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
		t.Errorf("Stop() after failed startup took %v", elapsed)
	}
}

func TestRunAndCleanStop(t *testing.T) {
	transport := &stubTransport{}
	a := newAgent(testConfig(50*time.Millisecond), transport, fastSampler{}, zap.NewNop())

	runErr := make(chan error, 1)
	go func() {
		runErr <- a.Run(context.Background())
	}()

	time.Sleep(150 * time.Millisecond)

	if hb := transport.sendCount("heartbeat"); hb < 1 {
		t.Error("startup heartbeat was not sent")
	}
	if m := transport.sendCount("metrics"); m < 1 {
		t.Error("no metric envelope was published")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := a.Stop(ctx); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}

	select {
	case err := <-runErr:
		if err != nil {
			t.Errorf("Run() error = %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Run() did not return after Stop()")
	}

	if !transport.wasClosed() {
		t.Error("transport was not closed on shutdown")
	}
}

func TestStopConcurrentWithStartup(t *testing.T) {
	// Run starts on its own goroutine while Stop arrives from the main
	// goroutine, exactly as the binary wires them. Stop must reach the
	// scheduler no matter how the two interleave, including a stop signal
	// that lands before Run has done any work.
	transport := &stubTransport{}
	a := newAgent(testConfig(50*time.Millisecond), transport, fastSampler{}, zap.NewNop())

	runErr := make(chan error, 1)
	go func() {
		runErr <- a.Run(context.Background())
	}()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	start := time.Now()
	if err := a.Stop(ctx); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
		t.Errorf("Stop() took %v; cancellation should reach the scheduler, not wait out the grace period", elapsed)
	}

	select {
	case <-runErr:
	case <-time.After(time.Second):
		t.Fatal("Run() did not return after Stop()")
	}

	if !transport.wasClosed() {
		t.Error("transport was not closed on shutdown")
	}
}

func TestStopBoundedWithStuckSampler(t *testing.T) {
	transport := &stubTransport{}
	a := newAgent(testConfig(30*time.Millisecond), transport, stuckSampler{delay: 2 * time.Second}, zap.NewNop())

	go func() { _ = a.Run(context.Background()) }()

	// Let the first metric tick start and get stuck inside the sampler.
	time.Sleep(100 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	start := time.Now()
	if err := a.Stop(ctx); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	elapsed := time.Since(start)

	// The grace period plus scheduling margin, not the sampler's delay.
	if elapsed > time.Second {
		t.Errorf("Stop() took %v with a stuck sampler, want bounded by the grace period", elapsed)
	}
	if !transport.wasClosed() {
		t.Error("transport was not closed despite the stuck cycle")
	}
}

func TestStopTimeoutIsLogged(t *testing.T) {
	logger, logs := testutil.Observed()
	transport := &stubTransport{}
	a := newAgent(testConfig(30*time.Millisecond), transport, stuckSampler{delay: 2 * time.Second}, logger)

	go func() { _ = a.Run(context.Background()) }()
	time.Sleep(100 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	if err := a.Stop(ctx); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}

	found := false
	for _, entry := range logs.All() {
		if entry.Message == "shutdown grace period elapsed with cycles still running" {
			found = true
		}
	}
	if !found {
		t.Error("shutdown timeout should be logged as a warning")
	}
}
