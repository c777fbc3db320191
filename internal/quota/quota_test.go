package quota

import (
	"testing"

	"github.com/redlattice/wsm/internal/core"
)

func limits() Limits {
	return Limits{
		MaxWorkspacesPerUser:  3,
		MaxCPUPerWorkspace:    4,
		MaxMemoryPerWorkspace: 8 << 30,
		MaxTotalCPUPerUser:    8,
		MaxTotalMemoryPerUser: 16 << 30,
	}
}

func active(n int, cpu, mem string) []core.Workspace {
	out := make([]core.Workspace, n)
	for i := range out {
		out[i] = core.Workspace{CPULimit: cpu, MemoryLimit: mem}
	}
	return out
}

func TestCheckAccepts(t *testing.T) {
	e := NewEvaluator(limits())

	if err := e.Check(nil, "2", "4G"); err != nil {
		t.Errorf("empty usage: %v", err)
	}
	if err := e.Check(active(2, "1", "1G"), "2", "4G"); err != nil {
		t.Errorf("under every ceiling: %v", err)
	}
	// Exactly at the per-workspace and total ceilings is allowed.
	if err := e.Check(active(1, "4", "8G"), "4", "8G"); err != nil {
		t.Errorf("at the ceiling: %v", err)
	}
}

func TestCheckWorkspaceCount(t *testing.T) {
	e := NewEvaluator(limits())

	err := e.Check(active(3, "1", "1G"), "1", "1G")
	if !core.IsCode(err, core.ErrQuotaExceeded) {
		t.Errorf("err = %v, want %s", err, core.ErrQuotaExceeded)
	}
}

func TestCheckPerWorkspaceCeilings(t *testing.T) {
	e := NewEvaluator(limits())

	if err := e.Check(nil, "5", "1G"); !core.IsCode(err, core.ErrQuotaExceeded) {
		t.Errorf("cpu over ceiling err = %v, want %s", err, core.ErrQuotaExceeded)
	}
	if err := e.Check(nil, "1", "9G"); !core.IsCode(err, core.ErrQuotaExceeded) {
		t.Errorf("memory over ceiling err = %v, want %s", err, core.ErrQuotaExceeded)
	}
}

func TestCheckTotalCeilings(t *testing.T) {
	e := NewEvaluator(limits())

	// Each request fits alone but would push the user's total over.
	if err := e.Check(active(2, "3", "1G"), "3", "1G"); !core.IsCode(err, core.ErrQuotaExceeded) {
		t.Errorf("total cpu err = %v, want %s", err, core.ErrQuotaExceeded)
	}
	if err := e.Check(active(2, "1", "7G"), "1", "4G"); !core.IsCode(err, core.ErrQuotaExceeded) {
		t.Errorf("total memory err = %v, want %s", err, core.ErrQuotaExceeded)
	}
}

func TestCheckUnparseableRequest(t *testing.T) {
	e := NewEvaluator(limits())

	if err := e.Check(nil, "lots", "1G"); !core.IsCode(err, core.ErrBadRequest) {
		t.Errorf("bad cpu err = %v, want %s", err, core.ErrBadRequest)
	}
	if err := e.Check(nil, "1", "plenty"); !core.IsCode(err, core.ErrBadRequest) {
		t.Errorf("bad memory err = %v, want %s", err, core.ErrBadRequest)
	}
}

func TestSum(t *testing.T) {
	workspaces := []core.Workspace{
		{CPULimit: "2", MemoryLimit: "4G"},
		{CPULimit: "500m", MemoryLimit: "512M"},
		{CPULimit: "garbage", MemoryLimit: "garbage"}, // counted as zero
	}
	u := Sum(workspaces)
	if u.WorkspaceCount != 3 {
		t.Errorf("workspace_count = %d, want 3", u.WorkspaceCount)
	}
	if u.TotalCPU != 2.5 {
		t.Errorf("total_cpu = %v, want 2.5", u.TotalCPU)
	}
	if want := int64(4<<30 + 512<<20); u.TotalMemoryBytes != want {
		t.Errorf("total_memory_bytes = %d, want %d", u.TotalMemoryBytes, want)
	}
}
