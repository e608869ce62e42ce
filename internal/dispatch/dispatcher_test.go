package dispatch

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/Notiflow/internal/domain"
	"github.com/shaiso/Notiflow/internal/engine"
)

type fakeStore struct {
	created []*domain.Notification
	err     error
}

func (s *fakeStore) Create(_ context.Context, n *domain.Notification) error {
	if s.err != nil {
		return s.err
	}
	s.created = append(s.created, n)
	return nil
}

func testRule() *domain.Rule {
	return &domain.Rule{
		ID:   uuid.New(),
		Name: "stock-critical",
		Notification: domain.NotificationSpec{
			Type:            "warning",
			Category:        "stock",
			TitleTemplate:   "Stock critique: {{material_name}}",
			MessageTemplate: "Le stock de {{material_name}} est maintenant de {{quantity}} unités (seuil: {{threshold}})",
			Priority:        domain.PriorityHigh,
			RecipientType:   domain.RecipientAll,
		},
	}
}

func testEvent() *domain.Event {
	return &domain.Event{
		ID:     uuid.New(),
		Type:   "stock",
		Event:  "stock_low",
		Source: "inventory-service",
		Payload: map[string]any{
			"material_name": "Acier C45",
			"quantity":      float64(5),
			"threshold":     float64(10),
		},
		OccurredAt: time.Now(),
	}
}

func TestBuildVariables(t *testing.T) {
	event := testEvent()
	event.UserID = "u-1"
	event.EntityType = "material"
	event.EntityID = "m-42"

	vars := BuildVariables(event)

	if vars["material_name"] != "Acier C45" {
		t.Error("payload keys should be flattened into variables")
	}
	if vars["event_type"] != "stock" || vars["event_name"] != "stock_low" || vars["event_source"] != "inventory-service" {
		t.Error("event metadata should be present")
	}
	if vars["user_id"] != "u-1" || vars["entity_id"] != "m-42" {
		t.Error("correlation fields should be present")
	}
	if vars["event_id"] != event.ID.String() {
		t.Error("event_id should be the string form of the UUID")
	}
}

func TestBuildVariables_EntityURL(t *testing.T) {
	tests := []struct {
		eventType string
		key       string
		want      string
	}{
		{"stock", "stock_url", "/inventory/materials/m-42"},
		{"production", "machine_url", "/production/machines/m-42"},
		{"project", "project_url", "/projects/m-42"},
		{"account", "user_profile_url", "/users/m-42"},
	}

	for _, tt := range tests {
		t.Run(tt.eventType, func(t *testing.T) {
			event := testEvent()
			event.Type = tt.eventType
			event.EntityID = "m-42"

			vars := BuildVariables(event)
			if vars[tt.key] != tt.want {
				t.Errorf("%s = %v, want %q", tt.key, vars[tt.key], tt.want)
			}
		})
	}

	// Без entity_id ссылок нет
	vars := BuildVariables(testEvent())
	if _, ok := vars["stock_url"]; ok {
		t.Error("no entity, no URL variable")
	}
}

func TestAddRuleContext(t *testing.T) {
	rule := testRule()
	vars := map[string]any{}

	AddRuleContext(vars, rule)
	if vars["rule_id"] != rule.ID.String() || vars["rule_name"] != "stock-critical" {
		t.Errorf("rule context missing: %v", vars)
	}
}

func TestBuildVariables_MetaWinsOnCollision(t *testing.T) {
	event := testEvent()
	event.Payload["event_type"] = "spoofed"

	vars := BuildVariables(event)
	if vars["event_type"] != "stock" {
		t.Errorf("metadata must win on name collision, got %v", vars["event_type"])
	}
}

func TestDispatcher_Build(t *testing.T) {
	d := New(&fakeStore{}, nil, &engine.Renderer{}, nil)
	rule := testRule()
	event := testEvent()

	n, res, err := d.Build(rule, event, BuildVariables(event))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if n.Title != "Stock critique: Acier C45" {
		t.Errorf("title = %q", n.Title)
	}
	want := "Le stock de Acier C45 est maintenant de 5 unités (seuil: 10)"
	if n.Message != want {
		t.Errorf("message = %q, want %q", n.Message, want)
	}
	if n.Priority != domain.PriorityHigh {
		t.Errorf("priority = %q", n.Priority)
	}
	if n.RuleID != rule.ID || n.EventID != event.ID {
		t.Error("notification should reference rule and event")
	}
	if n.Source != "rule:"+rule.ID.String() {
		t.Errorf("source = %q", n.Source)
	}
	if n.ExpiresAt != nil {
		t.Error("no expiry configured, ExpiresAt should be nil")
	}
	if len(res.Warnings) != 0 {
		t.Errorf("unexpected warnings: %v", res.Warnings)
	}
}

func TestDispatcher_Build_ExpiresAt(t *testing.T) {
	d := New(&fakeStore{}, nil, &engine.Renderer{}, nil)
	rule := testRule()
	rule.Notification.ExpiresIn = 24
	event := testEvent()

	before := time.Now()
	n, _, err := d.Build(rule, event, BuildVariables(event))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n.ExpiresAt == nil {
		t.Fatal("ExpiresAt should be set")
	}
	lo := before.Add(24 * time.Hour)
	hi := time.Now().Add(24 * time.Hour)
	if n.ExpiresAt.Before(lo) || n.ExpiresAt.After(hi) {
		t.Errorf("ExpiresAt = %v, want ~%v", n.ExpiresAt, lo)
	}
}

func TestDispatcher_Build_MissingVariableWarns(t *testing.T) {
	d := New(&fakeStore{}, nil, &engine.Renderer{}, nil)
	rule := testRule()
	rule.Notification.TitleTemplate = "Stock de {{unknown_field}}"
	event := testEvent()

	n, res, err := d.Build(rule, event, BuildVariables(event))
	if err != nil {
		t.Fatalf("soft mode must not fail: %v", err)
	}
	if n.Title != "Stock de " {
		t.Errorf("title = %q", n.Title)
	}
	if len(res.Warnings) == 0 {
		t.Error("expected a warning for the unresolved variable")
	}
}

func TestDispatcher_Build_StrictModeFails(t *testing.T) {
	d := New(&fakeStore{}, nil, &engine.Renderer{Strict: true}, nil)
	rule := testRule()
	rule.Notification.TitleTemplate = "Stock de {{unknown_field}}"
	event := testEvent()

	_, _, err := d.Build(rule, event, BuildVariables(event))
	if err == nil {
		t.Fatal("strict renderer must fail on unresolved variable")
	}
}

func TestDispatcher_Dispatch(t *testing.T) {
	store := &fakeStore{}
	d := New(store, nil, &engine.Renderer{}, nil)
	rule := testRule()
	event := testEvent()

	n, _, err := d.Dispatch(context.Background(), rule, event, BuildVariables(event))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(store.created) != 1 || store.created[0].ID != n.ID {
		t.Error("notification should be persisted")
	}
}

func TestRecipients(t *testing.T) {
	event := testEvent()
	event.UserID = "u-7"

	tests := []struct {
		name string
		spec domain.NotificationSpec
		want []string
	}{
		{
			name: "explicit ids win",
			spec: domain.NotificationSpec{RecipientType: domain.RecipientUser, RecipientIDs: []string{"a", "b"}},
			want: []string{"a", "b"},
		},
		{
			name: "user recipient falls back to event user",
			spec: domain.NotificationSpec{RecipientType: domain.RecipientUser},
			want: []string{"u-7"},
		},
		{
			name: "broadcast has no ids",
			spec: domain.NotificationSpec{RecipientType: domain.RecipientAll},
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := recipients(tt.spec, event)
			if len(got) != len(tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("got %v, want %v", got, tt.want)
				}
			}
		})
	}
}
