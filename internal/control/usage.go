package control

import (
	"fmt"
	"os"

	"github.com/shirou/gopsutil/v3/process"
)

// Usage is a snapshot of the recorder process resource consumption.
type Usage struct {
	CPUPercent float64
	RSS        uint64
}

// UsageSampler reports process resource usage.
type UsageSampler interface {
	Sample() (Usage, error)
}

// ProcessUsage samples the current process through gopsutil.
type ProcessUsage struct {
	proc *process.Process
}

func NewProcessUsage() (*ProcessUsage, error) {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return nil, fmt.Errorf("inspect process: %w", err)
	}
	return &ProcessUsage{proc: proc}, nil
}

// Sample returns CPU usage since process start and the resident set size.
func (p *ProcessUsage) Sample() (Usage, error) {
	cpu, err := p.proc.CPUPercent()
	if err != nil {
		return Usage{}, fmt.Errorf("cpu percent: %w", err)
	}
	mem, err := p.proc.MemoryInfo()
	if err != nil {
		return Usage{}, fmt.Errorf("memory info: %w", err)
	}
	return Usage{CPUPercent: cpu, RSS: mem.RSS}, nil
}
