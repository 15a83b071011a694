package domain

import "time"

// HealthStatus is the verdict of one health check against the memos service.
// A fresh value is produced on every check; IsHealthy is the AND of the three
// component booleans.
type HealthStatus struct {
	IsHealthy          bool      `json:"is_healthy"`
	APIResponding      bool      `json:"api_responding"`
	ServiceRunning     bool      `json:"service_running"`
	DatabaseAccessible bool      `json:"database_accessible"`
	LastCheck          time.Time `json:"last_check"`
	ResponseTimeMS     int64     `json:"response_time_ms"`
	Warnings           []string  `json:"warnings,omitempty"`
}

// Age returns how old this status is relative to now.
func (h HealthStatus) Age(now time.Time) time.Duration {
	return now.Sub(h.LastCheck)
}
