package observability

import (
	"context"
	"sync"
	"time"
)

// HealthStatus represents the health state of a component or service.
type HealthStatus string

const (
	HealthStatusUp       HealthStatus = "up"
	HealthStatusDown     HealthStatus = "down"
	HealthStatusDegraded HealthStatus = "degraded"
)

// Health describes the health of an individual component.
type Health struct {
	Name      string            `json:"name"`
	Status    HealthStatus      `json:"status"`
	Message   string            `json:"message,omitempty"`
	LatencyMs int64             `json:"latency_ms"`
	Details   map[string]string `json:"details,omitempty"`
}

// ServiceHealth describes the overall health of a service and its components.
type ServiceHealth struct {
	Service    string       `json:"service"`
	Status     HealthStatus `json:"status"`
	Version    string       `json:"version,omitempty"`
	Components []Health     `json:"components,omitempty"`
}

// HealthChecker is implemented by components that can report their health.
type HealthChecker interface {
	CheckHealth(ctx context.Context) Health
}

// CheckFunc adapts a probe function to HealthChecker. A nil error reports
// up; an error reports status with the error message.
type CheckFunc struct {
	Name   string
	Status HealthStatus
	Probe  func(ctx context.Context) error
}

// CheckHealth implements HealthChecker.
func (f CheckFunc) CheckHealth(ctx context.Context) Health {
	start := time.Now()
	err := f.Probe(ctx)
	h := Health{Name: f.Name, Status: HealthStatusUp, LatencyMs: time.Since(start).Milliseconds()}
	if err != nil {
		h.Status = f.Status
		if h.Status == "" {
			h.Status = HealthStatusDown
		}
		h.Message = err.Error()
	}
	return h
}

// NewServiceHealth creates a ServiceHealth with status up.
func NewServiceHealth(service, version string) *ServiceHealth {
	return &ServiceHealth{
		Service: service,
		Status:  HealthStatusUp,
		Version: version,
	}
}

// AddComponent adds a component health result and degrades overall status if needed.
func (sh *ServiceHealth) AddComponent(ch Health) {
	sh.Components = append(sh.Components, ch)

	switch ch.Status {
	case HealthStatusDown:
		sh.Status = HealthStatusDown
	case HealthStatusDegraded:
		if sh.Status != HealthStatusDown {
			sh.Status = HealthStatusDegraded
		}
	}
}

// Check runs the checkers concurrently and adds their results in the
// order given.
func (sh *ServiceHealth) Check(ctx context.Context, checkers ...HealthChecker) *ServiceHealth {
	results := make([]Health, len(checkers))
	var wg sync.WaitGroup
	for i, c := range checkers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = c.CheckHealth(ctx)
		}()
	}
	wg.Wait()

	for _, h := range results {
		sh.AddComponent(h)
	}
	return sh
}
