package api

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shaiso/Notiflow/internal/domain"
)

func validTestRule() *domain.Rule {
	return &domain.Rule{
		Name: "stock-critical",
		Trigger: domain.Trigger{
			Type:  "stock",
			Event: "stock_low",
		},
		Conditions: []domain.Condition{
			{Field: "quantity", Operator: domain.OpLessThan, Value: float64(10), Logic: domain.LogicAnd},
		},
		Notification: domain.NotificationSpec{
			Type:            "warning",
			TitleTemplate:   "Stock critique: {{material_name}}",
			MessageTemplate: "{{quantity}} unités restantes",
			Priority:        domain.PriorityHigh,
			RecipientType:   domain.RecipientAll,
		},
	}
}

func TestValidateRule(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*domain.Rule)
		wantErr string
	}{
		{
			name:   "valid rule",
			mutate: func(*domain.Rule) {},
		},
		{
			name:    "missing name",
			mutate:  func(r *domain.Rule) { r.Name = "" },
			wantErr: "name",
		},
		{
			name:    "missing trigger type",
			mutate:  func(r *domain.Rule) { r.Trigger.Type = "" },
			wantErr: "trigger",
		},
		{
			name:    "missing trigger event",
			mutate:  func(r *domain.Rule) { r.Trigger.Event = "" },
			wantErr: "trigger",
		},
		{
			name:    "missing title template",
			mutate:  func(r *domain.Rule) { r.Notification.TitleTemplate = "" },
			wantErr: "title_template",
		},
		{
			name:    "missing message template",
			mutate:  func(r *domain.Rule) { r.Notification.MessageTemplate = "" },
			wantErr: "message_template",
		},
		{
			name:    "negative expires_in",
			mutate:  func(r *domain.Rule) { r.Notification.ExpiresIn = -1 },
			wantErr: "expires_in",
		},
		{
			name:    "unknown priority",
			mutate:  func(r *domain.Rule) { r.Notification.Priority = "CRITICAL" },
			wantErr: "priority",
		},
		{
			name:    "unknown recipient type",
			mutate:  func(r *domain.Rule) { r.Notification.RecipientType = "everyone" },
			wantErr: "recipient_type",
		},
		{
			name:    "condition without field",
			mutate:  func(r *domain.Rule) { r.Conditions[0].Field = "" },
			wantErr: "conditions[0]",
		},
		{
			name:    "condition with unknown operator",
			mutate:  func(r *domain.Rule) { r.Conditions[0].Operator = "approximates" },
			wantErr: "conditions[0]",
		},
		{
			name:    "condition with unknown logic",
			mutate:  func(r *domain.Rule) { r.Conditions[0].Logic = "XOR" },
			wantErr: "conditions[0]",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rule := validTestRule()
			tt.mutate(rule)

			err := validateRule(rule)
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q should mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestApplyNotificationDefaults(t *testing.T) {
	spec := &domain.NotificationSpec{}
	applyNotificationDefaults(spec)

	if spec.Type != "info" {
		t.Errorf("type = %q", spec.Type)
	}
	if spec.Priority != domain.PriorityNormal {
		t.Errorf("priority = %q", spec.Priority)
	}
	if spec.RecipientType != domain.RecipientAll {
		t.Errorf("recipient_type = %q", spec.RecipientType)
	}

	// Явные значения не перетираются
	spec = &domain.NotificationSpec{
		Type:          "error",
		Priority:      domain.PriorityUrgent,
		RecipientType: domain.RecipientRole,
	}
	applyNotificationDefaults(spec)
	if spec.Type != "error" || spec.Priority != domain.PriorityUrgent || spec.RecipientType != domain.RecipientRole {
		t.Errorf("explicit values must survive: %+v", spec)
	}
}

func TestQueryInt(t *testing.T) {
	tests := []struct {
		url  string
		want int
	}{
		{"/x?limit=25", 25},
		{"/x", 50},
		{"/x?limit=abc", 50},
		{"/x?limit=", 50},
	}

	for _, tt := range tests {
		r := httptest.NewRequest("GET", tt.url, nil)
		if got := queryInt(r, "limit", 50); got != tt.want {
			t.Errorf("queryInt(%q) = %d, want %d", tt.url, got, tt.want)
		}
	}
}

func TestQueryTime(t *testing.T) {
	r := httptest.NewRequest("GET", "/x?from=2026-08-01T00:00:00Z", nil)
	ts, ok := queryTime(r, "from")
	if !ok || ts == nil {
		t.Fatal("valid RFC3339 value should parse")
	}
	if ts.Year() != 2026 {
		t.Errorf("year = %d", ts.Year())
	}

	r = httptest.NewRequest("GET", "/x", nil)
	ts, ok = queryTime(r, "from")
	if !ok || ts != nil {
		t.Error("absent value should be (nil, true)")
	}

	r = httptest.NewRequest("GET", "/x?from=yesterday", nil)
	_, ok = queryTime(r, "from")
	if ok {
		t.Error("garbage value should be rejected")
	}
}
