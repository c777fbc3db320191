package observability

import "github.com/prometheus/client_golang/prometheus"

var (
	// wsm-api metrics
	HTTPRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "wsm_http_requests_total",
		Help: "Total HTTP requests",
	}, []string{"route", "method", "code"})

	HTTPRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "wsm_http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"route", "method"})

	ActiveRequests = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "wsm_active_requests",
		Help: "Current in-flight requests",
	})

	// lifecycle metrics
	ProvisionTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "wsm_provision_total",
		Help: "Provisioning attempts by workspace type and outcome",
	}, []string{"type", "outcome"})

	StartupDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "wsm_startup_duration_seconds",
		Help:    "Time from provisioning to the remote session reporting running",
		Buckets: []float64{1, 3, 5, 10, 20, 30, 60, 120},
	})

	StartupTimeoutTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "wsm_startup_timeout_total",
		Help: "Startup monitors that exhausted their poll budget",
	})

	WorkspaceStateTransitions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "wsm_workspace_state_transitions_total",
		Help: "Workspace state transition count",
	}, []string{"from", "to"})

	ReclaimedWorkspacesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "wsm_reclaimed_workspaces_total",
		Help: "Workspaces terminated by the expiry sweep",
	})

	ReclaimedSessionsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "wsm_reclaimed_sessions_total",
		Help: "Sessions terminated by the expiry sweep",
	})

	SweepDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "wsm_sweep_duration_seconds",
		Help:    "Reclamation sweep duration",
		Buckets: []float64{0.01, 0.1, 0.5, 1, 5, 10, 30, 60},
	}, []string{"kind"})

	// orchestrator client metrics
	OrchestratorRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "wsm_orchestrator_request_duration_seconds",
		Help:    "Orchestration API call latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"op"})

	OrchestratorErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "wsm_orchestrator_errors_total",
		Help: "Orchestration API call failures",
	}, []string{"op"})
)

func RegisterAll(reg prometheus.Registerer) {
	reg.MustRegister(
		HTTPRequestsTotal, HTTPRequestDuration, ActiveRequests,
		ProvisionTotal, StartupDuration, StartupTimeoutTotal,
		WorkspaceStateTransitions, ReclaimedWorkspacesTotal,
		ReclaimedSessionsTotal, SweepDuration,
		OrchestratorRequestDuration, OrchestratorErrorsTotal,
	)
}
