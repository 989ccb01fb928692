package server

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/Somnusochi/auto-novel/logger"
	"github.com/Somnusochi/auto-novel/version"
)

// HealthResponse is the /health payload
type HealthResponse struct {
	Status  string  `json:"status"`
	Version string  `json:"version"`
	Commit  string  `json:"commit"`
	Uptime  string  `json:"uptime"`
	State   string  `json:"state"`
	Jobs    int     `json:"jobs"`
	Queued  int     `json:"queued"`
	Workers int     `json:"workers"`
	Active  int     `json:"active_workers"`
	System  *System `json:"system,omitempty"`
}

// System describes the host; absent when gopsutil cannot read it
type System struct {
	CPUs          int     `json:"cpus"`
	MemoryUsedGB  float64 `json:"memory_used_gb"`
	MemoryTotalGB float64 `json:"memory_total_gb"`
	MemoryPercent float64 `json:"memory_percent"`
	Goroutines    int     `json:"goroutines"`
}

// HandleHealth reports liveness plus queue and host figures.
// GET /health
func (s *Server) HandleHealth(w http.ResponseWriter, r *http.Request) {
	info := version.Get()
	resp := HealthResponse{
		Status:  "ok",
		Version: info.Version,
		Commit:  info.Short(),
		Uptime:  time.Since(s.startTime).Round(time.Second).String(),
		State:   stateString(s.getState()),
	}

	status, err := s.facade.Status(r.Context(), nil)
	if err != nil {
		s.logger.Warnw("Health check could not read status", logger.FieldError, err)
		resp.Status = "degraded"
	} else {
		resp.Jobs = len(status.Jobs)
		for _, job := range status.Jobs {
			if !job.Assigned() {
				resp.Queued++
			}
		}
		resp.Workers = len(status.Workers)
		for _, worker := range status.Workers {
			if worker.Active {
				resp.Active++
			}
		}
	}

	resp.System = systemStats(r.Context())
	writeJSON(w, http.StatusOK, resp)
}

func systemStats(ctx context.Context) *System {
	ctx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()

	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return nil
	}
	cpus, err := cpu.CountsWithContext(ctx, true)
	if err != nil {
		cpus = runtime.NumCPU()
	}

	const gb = 1024 * 1024 * 1024
	return &System{
		CPUs:          cpus,
		MemoryUsedGB:  float64(vm.Used) / gb,
		MemoryTotalGB: float64(vm.Total) / gb,
		MemoryPercent: vm.UsedPercent,
		Goroutines:    runtime.NumGoroutine(),
	}
}
