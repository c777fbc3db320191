package api

import "time"

type Config struct {
	HTTPAddr        string        `envconfig:"WSM_HTTP_ADDR" default:"0.0.0.0:8080"`
	DBDSN           string        `envconfig:"WSM_DB_DSN" required:"true"`
	MetricsAddr     string        `envconfig:"WSM_METRICS_ADDR" default:"0.0.0.0:9090"`
	LogLevel        string        `envconfig:"WSM_LOG_LEVEL" default:"info"`
	ShutdownTimeout time.Duration `envconfig:"WSM_SHUTDOWN_TIMEOUT" default:"30s"`

	// Orchestration API
	OrchestratorURL     string        `envconfig:"WSM_ORCHESTRATOR_URL" required:"true"`
	OrchestratorAPIKey  string        `envconfig:"WSM_ORCHESTRATOR_API_KEY" required:"true"`
	OrchestratorTimeout time.Duration `envconfig:"WSM_ORCHESTRATOR_TIMEOUT" default:"30s"`

	// Workspace lifecycle
	AccessURLBase  string        `envconfig:"WSM_ACCESS_URL_BASE" default:"https://ws.redlattice.local/"`
	DefaultExpiry  time.Duration `envconfig:"WSM_DEFAULT_EXPIRY" default:"24h"`
	SessionTTL     time.Duration `envconfig:"WSM_SESSION_TTL" default:"8h"`
	SweepInterval  time.Duration `envconfig:"WSM_SWEEP_INTERVAL" default:"5m"`
	EditorImage    string        `envconfig:"WSM_IMAGE_EDITOR" default:"registry.redlattice.local/ws/editor:latest"`
	BrowserImage   string        `envconfig:"WSM_IMAGE_BROWSER" default:"registry.redlattice.local/ws/browser:latest"`
	DesktopImage   string        `envconfig:"WSM_IMAGE_DESKTOP" default:"registry.redlattice.local/ws/desktop:latest"`
	ProxyImage     string        `envconfig:"WSM_IMAGE_PROXY" default:"registry.redlattice.local/ws/proxy:latest"`
	C2ClientImage  string        `envconfig:"WSM_IMAGE_C2CLIENT" default:"registry.redlattice.local/ws/c2client:latest"`

	// Quota ceilings
	MaxWorkspacesPerUser  int    `envconfig:"WSM_MAX_WORKSPACES_PER_USER" default:"5"`
	MaxCPUPerWorkspace    string `envconfig:"WSM_MAX_CPU_PER_WORKSPACE" default:"4"`
	MaxMemoryPerWorkspace string `envconfig:"WSM_MAX_MEMORY_PER_WORKSPACE" default:"8G"`
	MaxTotalCPUPerUser    string `envconfig:"WSM_MAX_TOTAL_CPU_PER_USER" default:"8"`
	MaxTotalMemoryPerUser string `envconfig:"WSM_MAX_TOTAL_MEMORY_PER_USER" default:"16G"`
}
