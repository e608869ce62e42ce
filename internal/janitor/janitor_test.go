package janitor

import (
	"testing"
	"time"
)

func TestValidateSchedule(t *testing.T) {
	tests := []struct {
		name    string
		expr    string
		wantErr bool
	}{
		{"every minute", "* * * * *", false},
		{"daily at 3am", "0 3 * * *", false},
		{"every 10 minutes", "*/10 * * * *", false},
		{"weekday mornings", "30 8 * * 1-5", false},
		{"six fields rejected", "0 * * * * *", true},
		{"garbage", "not a cron", true},
		{"empty", "", true},
		{"out of range minute", "61 * * * *", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateSchedule(tt.expr)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateSchedule(%q) error = %v, wantErr %v", tt.expr, err, tt.wantErr)
			}
		})
	}
}

func TestNew_Defaults(t *testing.T) {
	j, err := New(Config{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if j.staleThreshold != 5*time.Minute {
		t.Errorf("staleThreshold = %v", j.staleThreshold)
	}
	if j.eventRetention != 30*24*time.Hour {
		t.Errorf("eventRetention = %v", j.eventRetention)
	}
	if j.executionRetention != 90*24*time.Hour {
		t.Errorf("executionRetention = %v", j.executionRetention)
	}
}

func TestNew_InvalidSchedule(t *testing.T) {
	_, err := New(Config{RequeueSchedule: "bogus"})
	if err == nil {
		t.Error("invalid schedule should be rejected at construction")
	}
}
