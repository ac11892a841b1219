package repository

import (
	"testing"
	"time"

	"github.com/Alwanly/guang-panel/internal/config"
	"github.com/Alwanly/guang-panel/internal/models"
)

func TestRegistry(t *testing.T) {
	r, err := NewRegistry(config.DefaultFacilities())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	f, ok := r.Lookup("GeneratorAddress")
	if !ok || f.BackendID != "2" || f.CountKey != "GeneratorAddr" {
		t.Fatalf("unexpected facility %+v", f)
	}
	if _, ok := r.Lookup("Toaster"); ok {
		t.Fatalf("unknown facility must not be found")
	}

	updated := r.ApplyCounts(map[string]int{"GeneratorAddr": 4, "Unrelated": 9})
	if len(updated) != 1 || updated[0] != "GeneratorAddress" {
		t.Fatalf("unexpected updates %v", updated)
	}
	if f, _ := r.SetCount("Scanner", 6); f.Count != 6 {
		t.Fatalf("expected count 6, got %d", f.Count)
	}

	list := r.List()
	if len(list) != 4 || list[0].Name != "GeneratorAddress" || list[0].Count != 4 {
		t.Fatalf("unexpected list %+v", list)
	}
}

func TestRegistry_RejectsDuplicates(t *testing.T) {
	_, err := NewRegistry([]config.FacilityConfig{
		{Name: "XFR", BackendID: "4"},
		{Name: "XFR", BackendID: "5"},
	})
	if err == nil {
		t.Fatalf("expected duplicate error")
	}
}

func TestScanBoard_KeepsNewestRows(t *testing.T) {
	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	b := NewScanBoard(2, start)

	result := func(name string) models.ScanResult {
		return models.ScanResult{Host: models.ScanHost{Name: name, Address: "10.0.0.1"}, Reply: "ok"}
	}
	added := b.Add(map[uint16][]models.ScanResult{
		80: {result("a"), result("b"), result("c")},
		22: {result("d")},
	})
	if added != 4 || b.Total() != 4 {
		t.Fatalf("expected 4 results, got added=%d total=%d", added, b.Total())
	}

	ports := b.Ports()
	if len(ports) != 2 || ports[0].Port != 22 || ports[1].Port != 80 {
		t.Fatalf("ports must be sorted, got %+v", ports)
	}
	if ports[1].Count != 3 || len(ports[1].Rows) != 2 || ports[1].Rows[0].Host != "b (10.0.0.1)" {
		t.Fatalf("unexpected port 80 %+v", ports[1])
	}

	if !b.Cursor().Equal(start) {
		t.Fatalf("cursor must only move through SetCursor")
	}
}

func TestBeaconState(t *testing.T) {
	b := NewBeaconState()
	if b.Get().Alive {
		t.Fatalf("beacon must start as not alive")
	}
	b.Set(models.BeaconStatus{Alive: true, Text: "up"})
	if s := b.Get(); !s.Alive || s.Text != "up" {
		t.Fatalf("unexpected status %+v", s)
	}
}
