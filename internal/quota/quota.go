// Package quota computes whether a workspace request fits within per-user
// resource ceilings. It is pure: callers fetch the user's active workspaces
// fresh and pass them in, and nothing here mutates state or reserves
// capacity. The check-then-provision window this leaves open is an accepted
// race (see DESIGN.md).
package quota

import (
	"fmt"

	"github.com/redlattice/wsm/internal/core"
)

// Limits are the per-deployment resource ceilings, fixed at manager
// construction and read-only during evaluation.
type Limits struct {
	MaxWorkspacesPerUser  int     `json:"max_workspaces_per_user"`
	MaxCPUPerWorkspace    float64 `json:"max_cpu_per_workspace"`
	MaxMemoryPerWorkspace int64   `json:"max_memory_per_workspace_bytes"`
	MaxTotalCPUPerUser    float64 `json:"max_total_cpu_per_user"`
	MaxTotalMemoryPerUser int64   `json:"max_total_memory_per_user_bytes"`
}

// Usage is a user's current consumption across non-terminated workspaces.
type Usage struct {
	WorkspaceCount   int     `json:"workspace_count"`
	TotalCPU         float64 `json:"total_cpu"`
	TotalMemoryBytes int64   `json:"total_memory_bytes"`
}

type Evaluator struct {
	limits Limits
}

func NewEvaluator(limits Limits) *Evaluator {
	return &Evaluator{limits: limits}
}

func (e *Evaluator) Limits() Limits { return e.limits }

// Check evaluates a request for cpuLimit/memoryLimit against the given set
// of the user's active (non-terminated) workspaces. The first failing check
// is surfaced as a QuotaExceeded AppError.
func (e *Evaluator) Check(active []core.Workspace, cpuLimit, memoryLimit string) error {
	reqCPU, err := core.ParseCPU(cpuLimit)
	if err != nil {
		return core.NewAppError(core.ErrBadRequest, err.Error())
	}
	reqMem, err := core.ParseMemory(memoryLimit)
	if err != nil {
		return core.NewAppError(core.ErrBadRequest, err.Error())
	}

	if len(active) >= e.limits.MaxWorkspacesPerUser {
		return core.NewAppError(core.ErrQuotaExceeded,
			fmt.Sprintf("workspace limit reached (%d/%d)", len(active), e.limits.MaxWorkspacesPerUser))
	}
	if reqCPU > e.limits.MaxCPUPerWorkspace {
		return core.NewAppError(core.ErrQuotaExceeded,
			fmt.Sprintf("requested cpu %s exceeds per-workspace limit %g", cpuLimit, e.limits.MaxCPUPerWorkspace))
	}
	if reqMem > e.limits.MaxMemoryPerWorkspace {
		return core.NewAppError(core.ErrQuotaExceeded,
			fmt.Sprintf("requested memory %s exceeds per-workspace limit %d bytes", memoryLimit, e.limits.MaxMemoryPerWorkspace))
	}

	usage := Sum(active)
	if usage.TotalCPU+reqCPU > e.limits.MaxTotalCPUPerUser {
		return core.NewAppError(core.ErrQuotaExceeded,
			fmt.Sprintf("total cpu would exceed user limit %g", e.limits.MaxTotalCPUPerUser))
	}
	if usage.TotalMemoryBytes+reqMem > e.limits.MaxTotalMemoryPerUser {
		return core.NewAppError(core.ErrQuotaExceeded,
			fmt.Sprintf("total memory would exceed user limit %d bytes", e.limits.MaxTotalMemoryPerUser))
	}
	return nil
}

// Sum aggregates resource grants across workspaces. Grants that fail to
// parse were validated at provisioning time and are counted as zero.
func Sum(workspaces []core.Workspace) Usage {
	var u Usage
	u.WorkspaceCount = len(workspaces)
	for _, ws := range workspaces {
		if cpu, err := core.ParseCPU(ws.CPULimit); err == nil {
			u.TotalCPU += cpu
		}
		if mem, err := core.ParseMemory(ws.MemoryLimit); err == nil {
			u.TotalMemoryBytes += mem
		}
	}
	return u
}
