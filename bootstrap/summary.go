package bootstrap

import (
	"sync"
	"time"

	"github.com/snackbase/snackbase-go/logger"
)

// ClientInfo describes an outbound client connection.
type ClientInfo struct {
	Name   string `json:"name"`
	Target string `json:"target"`
	Type   string `json:"type"`
}

// InfrastructureInfo describes a backing component such as a session store.
type InfrastructureInfo struct {
	Name    string `json:"name"`
	Type    string `json:"type"`
	Details string `json:"details,omitempty"`
}

// Summary records what a command wired up during startup. It is logged,
// never printed, so stdout stays free for protocol traffic.
type Summary struct {
	serviceName     string
	version         string
	mu              sync.Mutex
	startupDuration time.Duration
	clients         []ClientInfo
	infrastructure  []InfrastructureInfo
	tools           []string
}

// NewSummary creates a startup summary for a service.
func NewSummary(serviceName, version string) *Summary {
	return &Summary{serviceName: serviceName, version: version}
}

// SetStartupDuration records the total startup time.
func (s *Summary) SetStartupDuration(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.startupDuration = d
}

// TrackClient records an outbound client.
func (s *Summary) TrackClient(name, target, clientType string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clients = append(s.clients, ClientInfo{Name: name, Target: target, Type: clientType})
}

// TrackInfrastructure records a backing component.
func (s *Summary) TrackInfrastructure(name, componentType, details string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.infrastructure = append(s.infrastructure, InfrastructureInfo{Name: name, Type: componentType, Details: details})
}

// TrackTools records the names of exposed tools.
func (s *Summary) TrackTools(names ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tools = append(s.tools, names...)
}

// Fields returns the summary as log fields.
func (s *Summary) Fields() map[string]interface{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	f := logger.Fields(
		"name", s.serviceName,
		"version", s.version,
		"startup_ms", s.startupDuration.Milliseconds(),
	)
	if len(s.clients) > 0 {
		f["clients"] = append([]ClientInfo(nil), s.clients...)
	}
	if len(s.infrastructure) > 0 {
		f["infrastructure"] = append([]InfrastructureInfo(nil), s.infrastructure...)
	}
	if len(s.tools) > 0 {
		f["tools"] = append([]string(nil), s.tools...)
	}
	return f
}

// Log writes the summary as one structured info line.
func (s *Summary) Log(log *logger.Logger) {
	log.Info("Started", s.Fields())
}
