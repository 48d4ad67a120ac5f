package middleware

import (
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	mwopts "github.com/kart-io/sentinel-kb/pkg/options/middleware"
)

// HealthStatus represents the health status.
type HealthStatus string

const (
	HealthStatusUp   HealthStatus = "UP"
	HealthStatusDown HealthStatus = "DOWN"
)

// HealthResponse is the health endpoint payload.
type HealthResponse struct {
	Status  HealthStatus           `json:"status"`
	Checks  map[string]CheckResult `json:"checks,omitempty"`
	Version string                 `json:"version,omitempty"`
}

// CheckResult is the outcome of one named check.
type CheckResult struct {
	Status  HealthStatus `json:"status"`
	Message string       `json:"message,omitempty"`
}

// HealthChecker is a function that performs a health check.
type HealthChecker func() error

// HealthManager aggregates named health checkers and a readiness flag.
type HealthManager struct {
	mu       sync.RWMutex
	checkers map[string]HealthChecker
	ready    bool
	version  string
}

// NewHealthManager creates a new health manager, ready by default.
func NewHealthManager() *HealthManager {
	return &HealthManager{
		checkers: make(map[string]HealthChecker),
		ready:    true,
	}
}

var globalHealthManager = NewHealthManager()

// GetHealthManager returns the global health manager.
func GetHealthManager() *HealthManager {
	return globalHealthManager
}

// SetVersion sets the service version reported by the health endpoint.
func (h *HealthManager) SetVersion(version string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.version = version
}

// RegisterChecker registers a named health checker, such as a storage ping.
func (h *HealthManager) RegisterChecker(name string, checker HealthChecker) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checkers[name] = checker
}

// SetReady flips the readiness flag. Set false during draining so the
// readiness probe takes the instance out of rotation.
func (h *HealthManager) SetReady(ready bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.ready = ready
}

// IsReady returns the readiness status.
func (h *HealthManager) IsReady() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.ready
}

// Check runs every registered checker. One failing check marks the whole
// response DOWN.
func (h *HealthManager) Check() HealthResponse {
	h.mu.RLock()
	defer h.mu.RUnlock()

	resp := HealthResponse{
		Status:  HealthStatusUp,
		Version: h.version,
	}
	if len(h.checkers) == 0 {
		return resp
	}

	resp.Checks = make(map[string]CheckResult, len(h.checkers))
	for name, checker := range h.checkers {
		if err := checker(); err != nil {
			resp.Status = HealthStatusDown
			resp.Checks[name] = CheckResult{
				Status:  HealthStatusDown,
				Message: err.Error(),
			}
			continue
		}
		resp.Checks[name] = CheckResult{Status: HealthStatusUp}
	}

	return resp
}

func writeHealthResponse(c *gin.Context, resp HealthResponse) {
	status := http.StatusOK
	if resp.Status == HealthStatusDown {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, resp)
}

// RegisterHealthRoutesWithOptions 注册健康检查路由。
// checker 为可选的自定义检查函数,配置里留空的路径不注册。
//
//	opts := mwopts.NewHealthOptions()
//	RegisterHealthRoutesWithOptions(engine, *opts, func() error {
//	    return storageManager.AllHealthyErr(ctx)
//	})
func RegisterHealthRoutesWithOptions(engine *gin.Engine, opts mwopts.HealthOptions, checker func() error) {
	manager := GetHealthManager()

	if checker != nil {
		manager.RegisterChecker("custom", checker)
	}

	if opts.Path != "" {
		engine.GET(opts.Path, func(c *gin.Context) {
			writeHealthResponse(c, manager.Check())
		})
	}

	// liveness 只反映进程存活
	if opts.LivenessPath != "" {
		engine.GET(opts.LivenessPath, func(c *gin.Context) {
			c.JSON(http.StatusOK, HealthResponse{Status: HealthStatusUp})
		})
	}

	// readiness 综合 ready 标志与各项检查
	if opts.ReadinessPath != "" {
		engine.GET(opts.ReadinessPath, func(c *gin.Context) {
			if !manager.IsReady() {
				c.JSON(http.StatusServiceUnavailable, HealthResponse{Status: HealthStatusDown})
				return
			}
			writeHealthResponse(c, manager.Check())
		})
	}
}
