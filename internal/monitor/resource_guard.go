package monitor

import (
	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/mem"
)

// MemoryUsageFunc reports system memory use in percent.
type MemoryUsageFunc func() (float64, error)

// SystemMemoryUsage reads memory use from the operating system.
func SystemMemoryUsage() (float64, error) {
	vm, err := mem.VirtualMemory()
	if err != nil {
		return 0, err
	}
	return vm.UsedPercent, nil
}

// ResourceGuard holds back dispatching while the host is short of memory.
type ResourceGuard struct {
	maxPercent float64
	usage      MemoryUsageFunc
	logger     zerolog.Logger
}

// NewResourceGuard creates a guard. A non-positive maxPercent disables it.
func NewResourceGuard(maxPercent float64, usage MemoryUsageFunc, logger zerolog.Logger) *ResourceGuard {
	if usage == nil {
		usage = SystemMemoryUsage
	}
	return &ResourceGuard{
		maxPercent: maxPercent,
		usage:      usage,
		logger:     logger.With().Str("component", "ResourceGuard").Logger(),
	}
}

// Allow reports whether a tick may dispatch checks. Errors reading memory
// usage do not block dispatching.
func (g *ResourceGuard) Allow() bool {
	if g == nil || g.maxPercent <= 0 {
		return true
	}
	used, err := g.usage()
	if err != nil {
		g.logger.Debug().Err(err).Msg("Could not read memory usage")
		return true
	}
	if used > g.maxPercent {
		g.logger.Warn().
			Float64("used_percent", used).
			Float64("max_percent", g.maxPercent).
			Msg("Memory usage above limit, skipping dispatch this tick")
		return false
	}
	return true
}
