package sampler

import (
	"context"
	"fmt"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/disk"
	"github.com/shirou/gopsutil/v4/load"
	"github.com/shirou/gopsutil/v4/mem"
	"github.com/shirou/gopsutil/v4/net"
)

// sampleCPU returns aggregate usage, the CPU time breakdown, and static
// CPU identification facts.
func sampleCPU(ctx context.Context) (map[string]any, error) {
	percentages, err := cpu.PercentWithContext(ctx, 0, false)
	if err != nil {
		return nil, fmt.Errorf("cpu percent: %w", err)
	}

	times, err := cpu.TimesWithContext(ctx, false)
	if err != nil {
		return nil, fmt.Errorf("cpu times: %w", err)
	}

	info, err := cpu.InfoWithContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("cpu info: %w", err)
	}

	section := map[string]any{
		"usage_percent": 0.0,
		"count":         len(info),
	}

	if len(percentages) > 0 {
		section["usage_percent"] = percentages[0]
	}

	if len(times) > 0 {
		t := times[0]
		section["times"] = map[string]any{
			"user":       t.User,
			"system":     t.System,
			"idle":       t.Idle,
			"nice":       t.Nice,
			"iowait":     t.Iowait,
			"irq":        t.Irq,
			"softirq":    t.Softirq,
			"steal":      t.Steal,
			"guest":      t.Guest,
			"guest_nice": t.GuestNice,
		}
	}

	if len(info) > 0 {
		i := info[0]
		section["info"] = map[string]any{
			"vendor_id":  i.VendorID,
			"family":     i.Family,
			"model":      i.Model,
			"model_name": i.ModelName,
			"stepping":   i.Stepping,
			"mhz":        i.Mhz,
			"cache_size": i.CacheSize,
			"cores":      i.Cores,
			"flags":      i.Flags,
		}
	}

	return section, nil
}

// sampleMemory returns virtual memory and swap usage.
func sampleMemory(ctx context.Context) (map[string]any, error) {
	vmem, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("virtual memory: %w", err)
	}

	swap, err := mem.SwapMemoryWithContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("swap memory: %w", err)
	}

	return map[string]any{
		"virtual": map[string]any{
			"total":        vmem.Total,
			"available":    vmem.Available,
			"used":         vmem.Used,
			"used_percent": vmem.UsedPercent,
			"free":         vmem.Free,
			"active":       vmem.Active,
			"inactive":     vmem.Inactive,
			"buffers":      vmem.Buffers,
			"cached":       vmem.Cached,
			"shared":       vmem.Shared,
		},
		"swap": map[string]any{
			"total":        swap.Total,
			"used":         swap.Used,
			"used_percent": swap.UsedPercent,
			"free":         swap.Free,
		},
	}, nil
}

// sampleDisk returns root filesystem usage plus per-device cumulative IO
// counters.
func sampleDisk(ctx context.Context) (map[string]any, error) {
	usage, err := disk.UsageWithContext(ctx, "/")
	if err != nil {
		return nil, fmt.Errorf("disk usage: %w", err)
	}

	ioStats, err := disk.IOCountersWithContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("disk io counters: %w", err)
	}

	io := make(map[string]any, len(ioStats))
	for name, stat := range ioStats {
		io[name] = map[string]any{
			"read_count":  stat.ReadCount,
			"read_bytes":  stat.ReadBytes,
			"read_time":   stat.ReadTime,
			"write_count": stat.WriteCount,
			"write_bytes": stat.WriteBytes,
			"write_time":  stat.WriteTime,
		}
	}

	return map[string]any{
		"usage": map[string]any{
			"path":         usage.Path,
			"fstype":       usage.Fstype,
			"total":        usage.Total,
			"free":         usage.Free,
			"used":         usage.Used,
			"used_percent": usage.UsedPercent,
		},
		"io": io,
	}, nil
}

// sampleNetwork returns per-interface cumulative traffic counters.
func sampleNetwork(ctx context.Context) (map[string]any, error) {
	ioStats, err := net.IOCountersWithContext(ctx, true)
	if err != nil {
		return nil, fmt.Errorf("network io counters: %w", err)
	}

	interfaces := make(map[string]any, len(ioStats))
	for _, stat := range ioStats {
		interfaces[stat.Name] = map[string]any{
			"bytes_sent":   stat.BytesSent,
			"bytes_recv":   stat.BytesRecv,
			"packets_sent": stat.PacketsSent,
			"packets_recv": stat.PacketsRecv,
			"errin":        stat.Errin,
			"errout":       stat.Errout,
			"dropin":       stat.Dropin,
			"dropout":      stat.Dropout,
		}
	}

	return map[string]any{
		"interfaces": interfaces,
	}, nil
}

// sampleLoad returns the 1/5/15-minute load averages. Platforms without
// load averages report an error here, so the category is omitted there
// like any other failed probe.
func sampleLoad(ctx context.Context) (map[string]any, error) {
	loadAvg, err := load.AvgWithContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("load average: %w", err)
	}

	return map[string]any{
		"load1":  loadAvg.Load1,
		"load5":  loadAvg.Load5,
		"load15": loadAvg.Load15,
	}, nil
}
