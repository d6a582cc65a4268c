// Package sampler reads host subsystems into one flat telemetry snapshot.
//
// Each metric category (cpu, memory, disk, network, load) is an
// independent probe with a uniform sample contract. A failing probe is
// logged and its key omitted from the snapshot; it never blocks the other
// probes or fails the collection as a whole.
package sampler

import (
	"context"
	"runtime"

	"github.com/shirou/gopsutil/v4/host"
	"go.uber.org/zap"

	"github.com/signalbeam-io/signalbeam-collector/internal/config"
)

// probe is one independently-collectible metric category.
type probe struct {
	name    string
	enabled bool
	sample  func(ctx context.Context) (map[string]any, error)
}

// Sampler collects host metrics category by category.
type Sampler struct {
	logger *zap.Logger
	probes []probe
}

// New creates a sampler with the standard probe set, filtered by the
// per-category enable flags.
func New(cfg config.MetricsConfig, logger *zap.Logger) *Sampler {
	return &Sampler{
		logger: logger,
		probes: []probe{
			{name: "cpu", enabled: cfg.CPU, sample: sampleCPU},
			{name: "memory", enabled: cfg.Memory, sample: sampleMemory},
			{name: "disk", enabled: cfg.Disk, sample: sampleDisk},
			{name: "network", enabled: cfg.Network, sample: sampleNetwork},
			{name: "load", enabled: cfg.Load, sample: sampleLoad},
		},
	}
}

// Collect gathers one snapshot. The system section is always present;
// every enabled probe is attempted and merged on success or logged and
// omitted on failure. Collect never fails as a whole.
func (s *Sampler) Collect(ctx context.Context) map[string]any {
	snapshot := map[string]any{
		"system": s.systemInfo(ctx),
	}

	for _, p := range s.probes {
		if !p.enabled {
			continue
		}
		section, err := p.sample(ctx)
		if err != nil {
			s.logger.Warn("metric category collection failed",
				zap.String("category", p.name),
				zap.Error(err),
			)
			continue
		}
		snapshot[p.name] = section
	}

	return snapshot
}

// systemInfo returns host identity and uptime, falling back to
// process-level facts if the host query fails.
func (s *Sampler) systemInfo(ctx context.Context) map[string]any {
	info, err := host.InfoWithContext(ctx)
	if err != nil {
		s.logger.Warn("failed to get host info", zap.Error(err))
		return fallbackSystemInfo()
	}

	return map[string]any{
		"hostname":              info.Hostname,
		"uptime":                info.Uptime,
		"boot_time":             info.BootTime,
		"procs":                 info.Procs,
		"os":                    info.OS,
		"platform":              info.Platform,
		"platform_family":       info.PlatformFamily,
		"platform_version":      info.PlatformVersion,
		"kernel_version":        info.KernelVersion,
		"kernel_arch":           info.KernelArch,
		"virtualization_system": info.VirtualizationSystem,
		"virtualization_role":   info.VirtualizationRole,
		"host_id":               info.HostID,
	}
}

// fallbackSystemInfo is the minimal snapshot built from the running
// process when the host subsystem itself cannot be queried.
func fallbackSystemInfo() map[string]any {
	return map[string]any{
		"os":   runtime.GOOS,
		"arch": runtime.GOARCH,
		"cpus": runtime.NumCPU(),
	}
}
