package scheduler

import (
	"runtime"
	"time"

	"github.com/docker/go-units"
)

// Config enumerates the Scheduler's tunables: maxConcurrency defaults
// to 2x logical CPUs, maxMemoryUsage to 8 GiB, monitoringInterval to
// 500ms.
type Config struct {
	MaxConcurrency           int
	MaxMemoryUsage           int64
	EnableWorkStealing       bool
	EnablePriorityScheduling bool
	MonitoringInterval       time.Duration
	FailFast                 bool
	EnableProgressReporting  bool
}

// DefaultConfig returns a Config with the documented defaults.
func DefaultConfig() Config {
	maxMem, _ := units.RAMInBytes("8GiB")
	return Config{
		MaxConcurrency:           runtime.NumCPU() * 2,
		MaxMemoryUsage:           maxMem,
		EnableWorkStealing:       true,
		EnablePriorityScheduling: true,
		MonitoringInterval:       500 * time.Millisecond,
		FailFast:                 true,
		EnableProgressReporting:  true,
	}
}

// ParseMemoryLimit parses a human-readable memory size (e.g. "512MiB",
// "2GB") the way the rest of the platform's CLI flags do, for
// Configuration sources that carry MaxMemoryUsage as a string.
func ParseMemoryLimit(s string) (int64, error) {
	return units.RAMInBytes(s)
}
