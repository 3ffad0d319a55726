package location

import (
	"testing"

	"moto/internal/types"
)

func TestNearbyEntries(t *testing.T) {
	origin := types.Point{Lat: 40.7128, Lng: -74.0060}
	data := map[string]rtdbDriverEntry{
		"far":     {Lat: 41.5, Lng: -74.0, Status: statusOnline},
		"near":    {Lat: 40.7130, Lng: -74.0062, Status: statusOnline},
		"mid":     {Lat: 40.7300, Lng: -74.0060, Status: statusOnline},
		"offline": {Lat: 40.7128, Lng: -74.0060, Status: "offline"},
	}

	got := nearbyEntries(data, origin, 5, 0)
	if len(got) != 2 {
		t.Fatalf("got %d drivers, want 2: %+v", len(got), got)
	}
	if got[0].DriverID != "near" || got[1].DriverID != "mid" {
		t.Errorf("order = %s, %s", got[0].DriverID, got[1].DriverID)
	}
	if got[0].DistanceKm > got[1].DistanceKm {
		t.Error("results not nearest first")
	}

	if got := nearbyEntries(data, origin, 500, 1); len(got) != 1 || got[0].DriverID != "near" {
		t.Errorf("limit 1 = %+v", got)
	}
	if got := nearbyEntries(nil, origin, 5, 10); len(got) != 0 {
		t.Errorf("empty node = %+v", got)
	}
}
