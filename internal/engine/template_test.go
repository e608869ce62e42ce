package engine

import (
	"errors"
	"strings"
	"testing"
)

func TestRenderer_Render(t *testing.T) {
	vars := map[string]any{
		"material_name": "Acier C45",
		"quantity":      float64(5),
		"threshold":     float64(10),
		"meta": map[string]any{
			"warehouse": "Lyon",
		},
	}

	r := &Renderer{}

	tests := []struct {
		name     string
		template string
		expected string
	}{
		{
			name:     "plain text",
			template: "No variables here",
			expected: "No variables here",
		},
		{
			name:     "single variable",
			template: "Stock critique: {{material_name}}",
			expected: "Stock critique: Acier C45",
		},
		{
			name:     "multiple variables",
			template: "Le stock de {{material_name}} est maintenant de {{quantity}} unités (seuil: {{threshold}})",
			expected: "Le stock de Acier C45 est maintenant de 5 unités (seuil: 10)",
		},
		{
			name:     "spaces inside braces",
			template: "{{ material_name }}",
			expected: "Acier C45",
		},
		{
			name:     "dot path into nested document",
			template: "Entrepôt: {{meta.warehouse}}",
			expected: "Entrepôt: Lyon",
		},
		{
			name:     "number without trailing zeros",
			template: "{{quantity}}",
			expected: "5",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := r.Render(tt.template, vars)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if res.Output != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, res.Output)
			}
		})
	}
}

func TestRenderer_MissingVariable(t *testing.T) {
	r := &Renderer{}

	res, err := r.Render("Hello {{nobody}}", map[string]any{"name": "x"})
	if err != nil {
		t.Fatalf("soft mode must not fail: %v", err)
	}
	if res.Output != "Hello " {
		t.Errorf("missing token should render as empty string, got %q", res.Output)
	}
	if len(res.Warnings) != 1 || !strings.Contains(res.Warnings[0], "nobody") {
		t.Errorf("expected warning about %q, got %v", "nobody", res.Warnings)
	}
}

func TestRenderer_StrictMode(t *testing.T) {
	r := &Renderer{Strict: true}

	_, err := r.Render("Hello {{nobody}}", map[string]any{})
	if err == nil {
		t.Fatal("strict mode must fail on unresolved variable")
	}
	if !errors.Is(err, ErrTemplateRender) {
		t.Errorf("error should wrap ErrTemplateRender, got %v", err)
	}
	if !errors.Is(err, ErrUnresolvedVariable) {
		t.Errorf("error should wrap ErrUnresolvedVariable, got %v", err)
	}

	// Разрешённые переменные strict не ломают
	res, err := r.Render("Hello {{name}}", map[string]any{"name": "x"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Output != "Hello x" {
		t.Errorf("got %q", res.Output)
	}
}

func TestRenderer_Consumed(t *testing.T) {
	r := &Renderer{}

	res, err := r.Render("{{a}} {{b}} {{a}}", map[string]any{"a": "1", "b": "2"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Consumed) != 3 {
		t.Errorf("expected 3 consumed tokens, got %v", res.Consumed)
	}
}

func TestRenderer_RenderInto(t *testing.T) {
	r := &Renderer{}
	acc := &RenderResult{}

	title, err := r.RenderInto("T {{a}}", map[string]any{"a": "1"}, acc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	msg, err := r.RenderInto("M {{missing}}", map[string]any{"a": "1"}, acc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if title != "T 1" || msg != "M " {
		t.Errorf("got title %q, msg %q", title, msg)
	}
	if len(acc.Consumed) != 1 || len(acc.Warnings) != 1 {
		t.Errorf("accumulator should merge results: %+v", acc)
	}
}
