package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestEventStatus_IsTerminal(t *testing.T) {
	tests := []struct {
		status EventStatus
		want   bool
	}{
		{EventStatusPending, false},
		{EventStatusProcessing, false},
		{EventStatusProcessed, true},
		{EventStatusFailed, true},
	}

	for _, tt := range tests {
		if got := tt.status.IsTerminal(); got != tt.want {
			t.Errorf("%s.IsTerminal() = %v, want %v", tt.status, got, tt.want)
		}
	}
}

func TestEvent_Lifecycle(t *testing.T) {
	// Событие могло долго ждать в PENDING — отметка захвата ставится
	// только при переходе в PROCESSING, не при поступлении
	e := &Event{ID: uuid.New(), Status: EventStatusPending, OccurredAt: time.Now().Add(-time.Hour)}
	if e.ClaimedAt != nil {
		t.Fatal("ClaimedAt must be nil while PENDING")
	}

	e.MarkProcessing()
	if e.Status != EventStatusProcessing {
		t.Fatalf("status = %s", e.Status)
	}
	if e.IsFinished() {
		t.Error("PROCESSING is not terminal")
	}
	if e.ClaimedAt == nil {
		t.Fatal("MarkProcessing should stamp ClaimedAt")
	}
	if e.ClaimedAt.Before(e.OccurredAt) {
		t.Error("ClaimedAt should reflect claim time, not ingestion time")
	}

	e.MarkProcessed(2, 3)
	if e.Status != EventStatusProcessed {
		t.Fatalf("status = %s", e.Status)
	}
	if e.RulesTriggered != 2 || e.NotificationsCreated != 3 {
		t.Errorf("counters = (%d, %d)", e.RulesTriggered, e.NotificationsCreated)
	}
	if e.ProcessedAt == nil {
		t.Error("ProcessedAt should be set")
	}
	if !e.IsFinished() {
		t.Error("PROCESSED is terminal")
	}
}

func TestEvent_MarkFailed(t *testing.T) {
	e := &Event{ID: uuid.New(), Status: EventStatusProcessing}

	e.MarkFailed("rules lookup failed")
	if e.Status != EventStatusFailed {
		t.Fatalf("status = %s", e.Status)
	}
	if e.ProcessingError != "rules lookup failed" {
		t.Errorf("processing error = %q", e.ProcessingError)
	}
	if e.ProcessedAt == nil {
		t.Error("ProcessedAt should be set even on failure")
	}
}

func TestEvent_Key(t *testing.T) {
	e := &Event{Type: "stock", Event: "stock_low", Source: "inventory-service"}
	if e.Key() != "stock/stock_low/inventory-service" {
		t.Errorf("Key() = %q", e.Key())
	}
}

func TestNotification_IsExpired(t *testing.T) {
	past := time.Now().Add(-time.Hour)
	future := time.Now().Add(time.Hour)

	tests := []struct {
		name string
		n    Notification
		want bool
	}{
		{"no expiry", Notification{}, false},
		{"expired", Notification{ExpiresAt: &past}, true},
		{"not yet", Notification{ExpiresAt: &future}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.n.IsExpired(time.Now()); got != tt.want {
				t.Errorf("IsExpired() = %v, want %v", got, tt.want)
			}
		})
	}
}
