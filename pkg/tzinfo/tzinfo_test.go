package tzinfo

import (
	"testing"
	"time"
)

func TestOffsetAt(t *testing.T) {
	// A mid-winter and a mid-summer instant pin DST on both hemispheres.
	winter := time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)
	summer := time.Date(2026, 7, 15, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		tz   string
		at   time.Time
		want string
	}{
		{"UTC itself", "UTC", winter, "UTC+0"},
		{"London winter", "Europe/London", winter, "UTC+0"},
		{"London summer", "Europe/London", summer, "UTC+1"},
		{"New York winter", "America/New_York", winter, "UTC-5"},
		{"New York summer", "America/New_York", summer, "UTC-4"},
		{"India half hour", "Asia/Kolkata", winter, "UTC+5:30"},
		{"Nepal three quarters", "Asia/Kathmandu", winter, "UTC+5:45"},
		{"Tokyo no DST", "Asia/Tokyo", summer, "UTC+9"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := OffsetAt(tt.tz, tt.at)
			if err != nil {
				t.Fatalf("OffsetAt(%q): %v", tt.tz, err)
			}
			if got != tt.want {
				t.Errorf("OffsetAt(%q) = %q, want %q", tt.tz, got, tt.want)
			}
		})
	}
}

func TestOffsetUnknownZone(t *testing.T) {
	if _, err := Offset("Europe/Atlantis"); err == nil {
		t.Error("expected error for unknown timezone")
	}
}

func TestLocalTime(t *testing.T) {
	at := time.Date(2026, 3, 1, 23, 30, 0, 0, time.UTC)

	got, err := LocalTime("Asia/Tokyo", at)
	if err != nil {
		t.Fatalf("LocalTime: %v", err)
	}
	// UTC+9 pushes the clock into the next day
	if got != "2026-03-02 08:30" {
		t.Errorf("LocalTime = %q, want 2026-03-02 08:30", got)
	}

	if _, err := LocalTime("Not/AZone", at); err == nil {
		t.Error("expected error for unknown timezone")
	}
}
