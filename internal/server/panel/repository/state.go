package repository

import (
	"slices"
	"sync"
	"time"

	"github.com/Alwanly/guang-panel/internal/models"
)

// BeaconState holds the latest liveness check result
type BeaconState struct {
	mu     sync.RWMutex
	status models.BeaconStatus
}

func NewBeaconState() *BeaconState {
	return &BeaconState{status: models.BeaconStatus{Text: "Waiting for first beacon"}}
}

func (b *BeaconState) Get() models.BeaconStatus {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.status
}

func (b *BeaconState) Set(status models.BeaconStatus) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.status = status
}

// ScanBoard accumulates scan results per port. Counters keep growing;
// only the newest maxRows rows of each port are retained.
type ScanBoard struct {
	mu      sync.RWMutex
	maxRows int
	ports   map[uint16]*models.PortResults
	total   int64
	cursor  time.Time
}

// NewScanBoard creates a board whose first fetch starts at cursor
func NewScanBoard(maxRows int, cursor time.Time) *ScanBoard {
	return &ScanBoard{
		maxRows: maxRows,
		ports:   make(map[uint16]*models.PortResults),
		cursor:  cursor,
	}
}

// Add records a batch of results and returns how many were added
func (s *ScanBoard) Add(results map[uint16][]models.ScanResult) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	added := 0
	for port, replies := range results {
		p, ok := s.ports[port]
		if !ok {
			p = &models.PortResults{Port: port}
			s.ports[port] = p
		}
		for _, r := range replies {
			p.Rows = append(p.Rows, models.ScanRow{
				Host:  r.Host.Name + " (" + r.Host.Address + ")",
				Stamp: r.Stamp,
				Reply: r.Reply,
			})
		}
		p.Count += int64(len(replies))
		if s.maxRows > 0 && len(p.Rows) > s.maxRows {
			p.Rows = slices.Clone(p.Rows[len(p.Rows)-s.maxRows:])
		}
		added += len(replies)
	}
	s.total += int64(added)
	return added
}

func (s *ScanBoard) Cursor() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cursor
}

func (s *ScanBoard) SetCursor(t time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cursor = t
}

func (s *ScanBoard) Total() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.total
}

// Ports returns a copy of every port's results, ordered by port number
func (s *ScanBoard) Ports() []models.PortResults {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.PortResults, 0, len(s.ports))
	for _, p := range s.ports {
		cp := *p
		cp.Rows = slices.Clone(p.Rows)
		out = append(out, cp)
	}
	slices.SortFunc(out, func(a, b models.PortResults) int { return int(a.Port) - int(b.Port) })
	return out
}
