package activity

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func strPtr(s string) *string { return &s }

func TestSportLabel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		sportType *string
		want      string
	}{
		{"nil", nil, UnknownSport},
		{"blank", strPtr("  "), UnknownSport},
		{"ride", strPtr("Ride"), "Ride"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			a := NormalizedActivity{SportType: tt.sportType}
			if got := a.SportLabel(); got != tt.want {
				t.Errorf("SportLabel() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestIsRunning(t *testing.T) {
	t.Parallel()

	for _, s := range []string{"Run", "TrailRun", "VirtualRun"} {
		if !(NormalizedActivity{SportType: strPtr(s)}).IsRunning() {
			t.Errorf("expected %s to be running", s)
		}
	}
	for _, s := range []string{"Ride", "Walk", "run"} {
		if (NormalizedActivity{SportType: strPtr(s)}).IsRunning() {
			t.Errorf("expected %s not to be running", s)
		}
	}
	if (NormalizedActivity{}).IsRunning() {
		t.Error("expected activity without sport type not to be running")
	}
}

func TestJSONOmitsOffset(t *testing.T) {
	t.Parallel()

	a := NormalizedActivity{
		ID:         7,
		Name:       "Lunch Run",
		SportType:  strPtr("Run"),
		StartLocal: time.Date(2025, 1, 15, 4, 0, 0, 0, time.UTC),
	}

	b, err := json.Marshal(a)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(b), `"start_local":"2025-01-15T04:00:00"`) {
		t.Errorf("unexpected JSON: %s", b)
	}
	if !strings.Contains(string(b), `"timezone_id":null`) {
		t.Errorf("expected null timezone_id: %s", b)
	}

	var back NormalizedActivity
	if err := json.Unmarshal(b, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !back.StartLocal.Equal(a.StartLocal) {
		t.Errorf("StartLocal = %v, want %v", back.StartLocal, a.StartLocal)
	}
}

func TestDate(t *testing.T) {
	t.Parallel()

	a := NormalizedActivity{StartLocal: time.Date(2025, 3, 9, 23, 59, 59, 0, time.UTC)}
	if got := a.Date(); !got.Equal(time.Date(2025, 3, 9, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("Date() = %v", got)
	}
}
