package models

import "time"

// Facility is the panel's view of a backend worker subsystem.
type Facility struct {
	Name          string `json:"name"`
	BackendID     string `json:"backend_id"`
	CountKey      string `json:"count_key"`
	DefaultAmount int    `json:"default_amount"`
	Count         int    `json:"count"`
}

// BeaconStatus describes the outcome of the latest liveness check.
type BeaconStatus struct {
	Alive     bool      `json:"alive"`
	Suspended bool      `json:"suspended"`
	Text      string    `json:"text"`
	Hostname  string    `json:"hostname,omitempty"`
	Timestamp string    `json:"timestamp,omitempty"`
	CheckedAt time.Time `json:"checked_at"`
}
