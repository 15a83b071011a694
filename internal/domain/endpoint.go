package domain

import "time"

// EndpointInfo tracks one discovered REST endpoint and its observed
// availability across repeated probes. Mutated in place; accumulated in a
// map keyed by "METHOD path".
type EndpointInfo struct {
	Path              string    `json:"path"`
	Method            string    `json:"method"`
	Description       string    `json:"description,omitempty"`
	Successes         int       `json:"successes"`
	Failures          int       `json:"failures"`
	AvgResponseTimeMS float64   `json:"avg_response_time_ms"`
	LastTested        time.Time `json:"last_tested"`
}

// Key returns the map key for this endpoint.
func (e *EndpointInfo) Key() string {
	return e.Method + " " + e.Path
}

// AvailabilityScore is successes/(successes+failures), or 0 when untested.
func (e *EndpointInfo) AvailabilityScore() float64 {
	total := e.Successes + e.Failures
	if total == 0 {
		return 0
	}
	return float64(e.Successes) / float64(total)
}

// RecordProbe folds one probe outcome into the running availability score
// and average response time.
func (e *EndpointInfo) RecordProbe(ok bool, elapsed time.Duration, at time.Time) {
	prior := e.Successes + e.Failures
	if ok {
		e.Successes++
	} else {
		e.Failures++
	}
	ms := float64(elapsed.Milliseconds())
	e.AvgResponseTimeMS = (e.AvgResponseTimeMS*float64(prior) + ms) / float64(prior+1)
	e.LastTested = at
}

// ImplementationStatus classifies how much of a functional group of
// endpoints is already implemented by the service.
type ImplementationStatus string

const (
	StatusImplemented ImplementationStatus = "implemented"
	StatusPartial     ImplementationStatus = "partial"
	StatusMissing     ImplementationStatus = "missing"
)

// EndpointGroup is one of the five fixed functional buckets endpoints are
// sorted into by substring match against Patterns.
type EndpointGroup struct {
	Name      string               `json:"name"`
	Patterns  []string             `json:"patterns"`
	Endpoints []*EndpointInfo      `json:"endpoints"`
	Status    ImplementationStatus `json:"implementation_status"`
}

// EndpointReport is the full outcome of one discovery run.
type EndpointReport struct {
	BaseURL    string                   `json:"base_url"`
	Timestamp  time.Time                `json:"timestamp"`
	DeepScan   bool                     `json:"deep_scan"`
	Discovered map[string]*EndpointInfo `json:"discovered"`
	Groups     []EndpointGroup          `json:"groups"`
}
