package dto

import (
	"time"

	"github.com/Alwanly/guang-panel/internal/models"
	"github.com/Alwanly/guang-panel/pkg/msglog"
)

// WorkerRequest starts or stops workers of a facility. A missing amount
// falls back to the facility's default amount.
type WorkerRequest struct {
	Amount *int `json:"amount" validate:"omitempty,min=0" example:"5"`
}

// WorkerResponse reports the facility after the backend applied the change
type WorkerResponse struct {
	Facility models.Facility `json:"facility"`
}

// FacilitiesResponse lists the registry
type FacilitiesResponse struct {
	Facilities []models.Facility `json:"facilities"`
}

// PostMessageRequest adds a message to the log
type PostMessageRequest struct {
	Level   string `json:"level" validate:"omitempty,oneof=DEBUG INFO WARN ERROR debug info warn error" example:"DEBUG"`
	Message string `json:"message" validate:"required" example:"hello"`
}

// CapacityRequest changes how many messages are kept
type CapacityRequest struct {
	Capacity *int `json:"capacity" validate:"required,min=0" example:"50"`
}

// PostMessageResponse is the posted row. Accepted is false when an
// identical message was already in the log and this one was dropped.
type PostMessageResponse struct {
	msglog.Row
	Accepted bool `json:"accepted"`
}

// SettingResponse is one persisted panel setting
type SettingResponse struct {
	Category  string    `json:"category" example:"beacon"`
	Key       string    `json:"key" example:"interval"`
	Value     string    `json:"value" example:"5000"`
	UpdatedAt time.Time `json:"updated_at"`
}

// MessagesResponse is the rendered message log
type MessagesResponse struct {
	Rows     []msglog.Row `json:"rows"`
	Count    int          `json:"count"`
	Capacity int          `json:"capacity"`
	Visible  bool         `json:"visible"`
}

// TestMessagesRequest asks the backend to generate synthetic messages
type TestMessagesRequest struct {
	Count  int `json:"count" validate:"min=0" example:"10"`
	Rounds int `json:"rounds" validate:"min=0" example:"1"`
	Delay  int `json:"delay" validate:"min=0" example:"0"`
}

// PollerUpdateRequest toggles a poll task or changes its interval
type PollerUpdateRequest struct {
	Enabled    *bool  `json:"enabled,omitempty" example:"true"`
	IntervalMs *int64 `json:"interval_ms,omitempty" validate:"omitempty,gt=0" example:"5000"`
}

// PollerResponse describes one poll task
type PollerResponse struct {
	Name       string    `json:"name"`
	Enabled    bool      `json:"enabled"`
	IntervalMs int64     `json:"interval_ms"`
	Cycles     uint64    `json:"cycles"`
	Failures   uint64    `json:"failures"`
	LastRun    time.Time `json:"last_run"`
	LastError  string    `json:"last_error,omitempty"`
}

// ScanBoardResponse is the accumulated scan results
type ScanBoardResponse struct {
	Total  int64                `json:"total"`
	Cursor int64                `json:"cursor"`
	Ports  []models.PortResults `json:"ports"`
}

// ShutdownRequest must carry confirm=true
type ShutdownRequest struct {
	Confirm bool `json:"confirm" example:"true"`
}
