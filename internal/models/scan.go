package models

import "time"

type ScanHost struct {
	Name    string
	Address string
}

// ScanResult is a single reply the backend's scanner got from a host.
type ScanResult struct {
	Host  ScanHost
	Stamp time.Time
	Reply string
}

// ScanRow is the display form of a ScanResult.
type ScanRow struct {
	Host  string    `json:"host"`
	Stamp time.Time `json:"stamp"`
	Reply string    `json:"reply"`
}

// PortResults is the panel's view of one port's results.
type PortResults struct {
	Port  uint16    `json:"port"`
	Count int64     `json:"count"`
	Rows  []ScanRow `json:"rows"`
}
