package health

import (
	"context"
	"net/http"
	"sync"
	"time"

	"helpdesk-inbox/backend/pkg/logger"

	"github.com/gin-gonic/gin"
)

// Status represents the health status of a component
type Status string

const (
	// StatusUp indicates a component is working correctly
	StatusUp Status = "up"
	// StatusDown indicates a component is not working
	StatusDown Status = "down"
)

// Component represents a system component that can be health-checked
type Component struct {
	Name        string    `json:"name"`
	Status      Status    `json:"status"`
	Critical    bool      `json:"critical"`
	Error       string    `json:"error,omitempty"`
	LastChecked time.Time `json:"last_checked"`
}

// Check probes one dependency. A nil error means the dependency is up.
type Check func(ctx context.Context) error

type registration struct {
	check    Check
	critical bool
}

// Checker runs registered probes on demand.
type Checker struct {
	mu      sync.RWMutex
	checks  map[string]registration
	timeout time.Duration
	log     *logger.Logger
	started time.Time
}

// NewChecker creates a new health checker
func NewChecker(log *logger.Logger, timeout time.Duration) *Checker {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &Checker{
		checks:  make(map[string]registration),
		timeout: timeout,
		log:     log,
		started: time.Now(),
	}
}

// Register adds a probe. A critical probe that fails turns the overall status into 503.
func (c *Checker) Register(name string, critical bool, check Check) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.checks[name] = registration{check: check, critical: critical}
}

// Run executes every probe and reports whether all critical ones passed.
func (c *Checker) Run(ctx context.Context) (map[string]Component, bool) {
	c.mu.RLock()
	checks := make(map[string]registration, len(c.checks))
	for k, v := range c.checks {
		checks[k] = v
	}
	c.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	healthy := true
	result := make(map[string]Component, len(checks))
	for name, reg := range checks {
		comp := Component{Name: name, Status: StatusUp, Critical: reg.critical, LastChecked: time.Now()}
		if err := reg.check(ctx); err != nil {
			comp.Status = StatusDown
			comp.Error = err.Error()
			c.log.Error("Health check failed", "component", name, "error", err.Error())
			if reg.critical {
				healthy = false
			}
		}
		result[name] = comp
	}
	return result, healthy
}

// Handler serves the aggregated status as JSON.
func (c *Checker) Handler() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		components, healthy := c.Run(ctx.Request.Context())

		status, code := "ok", http.StatusOK
		if !healthy {
			status, code = "degraded", http.StatusServiceUnavailable
		}
		ctx.JSON(code, gin.H{
			"status":     status,
			"timestamp":  time.Now().Format(time.RFC3339),
			"uptime":     time.Since(c.started).Round(time.Second).String(),
			"components": components,
		})
	}
}
