package dto

import (
	"encoding/json"
	"time"

	"github.com/Alwanly/guang-panel/internal/models"
)

// Envelope is the wrapper shared by every /ajax response of the backend
type Envelope struct {
	Status    bool
	Message   string
	Timestamp time.Time
}

// Env gives generic code access to the embedded envelope.
func (e *Envelope) Env() *Envelope {
	return e
}

// WorkerControlResponse is returned by spawn_worker and stop_worker
type WorkerControlResponse struct {
	Envelope
	NewCnt int
}

// BeaconResponse is returned by the liveness check
type BeaconResponse struct {
	Envelope
	Hostname string
}

// PortRecentResponse carries scan results newer than the requested cursor
type PortRecentResponse struct {
	Envelope
	Count   int64
	Results map[uint16][]models.ScanResult
}

// WorkerCountResponse holds one count per facility, keyed by the
// facility's name as the backend reports it.
type WorkerCountResponse struct {
	Envelope
	Counts map[string]int
}

func (r *WorkerCountResponse) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	r.Counts = make(map[string]int, len(raw))
	for key, value := range raw {
		var err error
		switch key {
		case "Status":
			err = json.Unmarshal(value, &r.Status)
		case "Message":
			err = json.Unmarshal(value, &r.Message)
		case "Timestamp":
			err = json.Unmarshal(value, &r.Timestamp)
		default:
			var n int
			if json.Unmarshal(value, &n) == nil {
				r.Counts[key] = n
			}
		}
		if err != nil {
			return err
		}
	}
	return nil
}
