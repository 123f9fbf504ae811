package sidecar

import (
	"github.com/shirou/gopsutil/v3/process"
)

// processCreateTime returns the OS creation time of pid in ms since epoch,
// or 0 if it cannot be read.
func processCreateTime(pid int) int64 {
	p, err := process.NewProcess(int32(pid))
	if err != nil {
		return 0
	}
	ct, err := p.CreateTime()
	if err != nil {
		return 0
	}
	return ct
}

// processUsage returns resident memory and CPU usage for pid. Zero values
// mean the numbers were unavailable.
func processUsage(pid int) (rss uint64, cpu float64) {
	p, err := process.NewProcess(int32(pid))
	if err != nil {
		return 0, 0
	}
	if mem, err := p.MemoryInfo(); err == nil && mem != nil {
		rss = mem.RSS
	}
	if pct, err := p.CPUPercent(); err == nil {
		cpu = pct
	}
	return rss, cpu
}

// staleProcess adapts a gopsutil process to Handle.
type staleProcess struct {
	p *process.Process
}

func (s staleProcess) Pid() int    { return int(s.p.Pid) }
func (s staleProcess) Kill() error { return s.p.Kill() }

// findStale returns a handle for pid if it is still running and was created
// at createTime, guarding against pid reuse.
func findStale(pid int, createTime int64) (Handle, bool) {
	p, err := process.NewProcess(int32(pid))
	if err != nil {
		return nil, false
	}
	running, err := p.IsRunning()
	if err != nil || !running {
		return nil, false
	}
	ct, err := p.CreateTime()
	if err != nil || ct != createTime {
		return nil, false
	}
	return staleProcess{p: p}, true
}
