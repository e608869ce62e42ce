package domain

import (
	"testing"
	"time"
)

func TestTrigger_Matches(t *testing.T) {
	event := &Event{Type: "stock", Event: "stock_low", Source: "inventory-service"}

	tests := []struct {
		name    string
		trigger Trigger
		want    bool
	}{
		{
			name:    "exact match",
			trigger: Trigger{Type: "stock", Event: "stock_low", Source: "inventory-service"},
			want:    true,
		},
		{
			name:    "empty source matches any",
			trigger: Trigger{Type: "stock", Event: "stock_low"},
			want:    true,
		},
		{
			name:    "different source",
			trigger: Trigger{Type: "stock", Event: "stock_low", Source: "other-service"},
			want:    false,
		},
		{
			name:    "different event",
			trigger: Trigger{Type: "stock", Event: "stock_high", Source: "inventory-service"},
			want:    false,
		},
		{
			name:    "different type",
			trigger: Trigger{Type: "production", Event: "stock_low", Source: "inventory-service"},
			want:    false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.trigger.Matches(event); got != tt.want {
				t.Errorf("Matches() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRule_CanExecute(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name string
		rule Rule
		want bool
	}{
		{"active", Rule{IsActive: true}, true},
		{"inactive", Rule{IsActive: false}, false},
		{"soft-deleted", Rule{IsActive: true, DeletedAt: &now}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.rule.CanExecute(); got != tt.want {
				t.Errorf("CanExecute() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRule_MarkDeleted(t *testing.T) {
	r := Rule{IsActive: true}
	r.MarkDeleted()

	if r.DeletedAt == nil {
		t.Fatal("DeletedAt should be set")
	}
	if r.CanExecute() {
		t.Error("deleted rule must not be executable")
	}
}

func TestKnownOperator(t *testing.T) {
	for _, op := range []Operator{
		OpEquals, OpNotEquals, OpGreaterThan, OpGreaterEqual, OpLessThan, OpLessEqual,
		OpContains, OpNotContains, OpStartsWith, OpEndsWith,
		OpIn, OpNotIn, OpIsNull, OpIsNotNull, OpRegex,
	} {
		if !KnownOperator(op) {
			t.Errorf("operator %q should be known", op)
		}
	}
	if KnownOperator("fuzzy_match") {
		t.Error("unknown operator should be rejected")
	}
	if KnownOperator("") {
		t.Error("empty operator should be rejected")
	}
}
