package engine

import (
	"testing"

	"github.com/shaiso/Notiflow/internal/domain"
)

func TestEvaluateConditions_Empty(t *testing.T) {
	passed, trace := EvaluateConditions(nil, map[string]any{"x": 1})
	if !passed {
		t.Error("empty condition list should pass")
	}
	if trace != nil {
		t.Error("empty condition list should produce no trace")
	}
}

func TestEvaluateConditions_Operators(t *testing.T) {
	payload := map[string]any{
		"quantity": float64(5),
		"status":   "active",
		"name":     "Acier C45",
		"tags":     []any{"a", "b"},
		"deleted":  nil,
	}

	tests := []struct {
		name string
		cond domain.Condition
		want bool
	}{
		{
			name: "equals string",
			cond: domain.Condition{Field: "status", Operator: domain.OpEquals, Value: "active"},
			want: true,
		},
		{
			name: "not_equals string",
			cond: domain.Condition{Field: "status", Operator: domain.OpNotEquals, Value: "closed"},
			want: true,
		},
		{
			name: "less_than number",
			cond: domain.Condition{Field: "quantity", Operator: domain.OpLessThan, Value: float64(10)},
			want: true,
		},
		{
			name: "greater_than fails",
			cond: domain.Condition{Field: "quantity", Operator: domain.OpGreaterThan, Value: float64(10)},
			want: false,
		},
		{
			name: "greater_equal boundary",
			cond: domain.Condition{Field: "quantity", Operator: domain.OpGreaterEqual, Value: float64(5)},
			want: true,
		},
		{
			name: "less_equal boundary",
			cond: domain.Condition{Field: "quantity", Operator: domain.OpLessEqual, Value: float64(5)},
			want: true,
		},
		{
			name: "contains",
			cond: domain.Condition{Field: "name", Operator: domain.OpContains, Value: "C45"},
			want: true,
		},
		{
			name: "not_contains",
			cond: domain.Condition{Field: "name", Operator: domain.OpNotContains, Value: "Inox"},
			want: true,
		},
		{
			name: "starts_with",
			cond: domain.Condition{Field: "name", Operator: domain.OpStartsWith, Value: "Acier"},
			want: true,
		},
		{
			name: "ends_with",
			cond: domain.Condition{Field: "name", Operator: domain.OpEndsWith, Value: "C45"},
			want: true,
		},
		{
			name: "in list",
			cond: domain.Condition{Field: "status", Operator: domain.OpIn, Value: []any{"active", "paused"}},
			want: true,
		},
		{
			name: "not_in list",
			cond: domain.Condition{Field: "status", Operator: domain.OpNotIn, Value: []any{"closed", "archived"}},
			want: true,
		},
		{
			name: "is_null on explicit null",
			cond: domain.Condition{Field: "deleted", Operator: domain.OpIsNull},
			want: true,
		},
		{
			name: "is_null on absent field",
			cond: domain.Condition{Field: "missing", Operator: domain.OpIsNull},
			want: true,
		},
		{
			name: "is_not_null",
			cond: domain.Condition{Field: "status", Operator: domain.OpIsNotNull},
			want: true,
		},
		{
			name: "regex",
			cond: domain.Condition{Field: "name", Operator: domain.OpRegex, Value: `^Acier\s+C\d+$`},
			want: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			passed, trace := EvaluateConditions([]domain.Condition{tt.cond}, payload)
			if passed != tt.want {
				t.Errorf("expected %v, got %v (reason: %s)", tt.want, passed, trace[0].Reason)
			}
		})
	}
}

func TestEvaluateConditions_LeftToRightFold(t *testing.T) {
	payload := map[string]any{
		"quantity": float64(5),
		"status":   "active",
		"priority": "low",
	}

	tests := []struct {
		name  string
		conds []domain.Condition
		want  bool
	}{
		{
			name: "true AND true",
			conds: []domain.Condition{
				{Field: "status", Operator: domain.OpEquals, Value: "active"},
				{Field: "quantity", Operator: domain.OpLessThan, Value: float64(10), Logic: domain.LogicAnd},
			},
			want: true,
		},
		{
			name: "true AND false",
			conds: []domain.Condition{
				{Field: "status", Operator: domain.OpEquals, Value: "active"},
				{Field: "quantity", Operator: domain.OpGreaterThan, Value: float64(10), Logic: domain.LogicAnd},
			},
			want: false,
		},
		{
			name: "false OR true",
			conds: []domain.Condition{
				{Field: "status", Operator: domain.OpEquals, Value: "closed"},
				{Field: "quantity", Operator: domain.OpLessThan, Value: float64(10), Logic: domain.LogicOr},
			},
			want: true,
		},
		{
			// (false OR true) AND false — fold без приоритета операторов
			name: "fold without precedence",
			conds: []domain.Condition{
				{Field: "status", Operator: domain.OpEquals, Value: "closed"},
				{Field: "quantity", Operator: domain.OpLessThan, Value: float64(10), Logic: domain.LogicOr},
				{Field: "priority", Operator: domain.OpEquals, Value: "high", Logic: domain.LogicAnd},
			},
			want: false,
		},
		{
			// у первого условия Logic игнорируется
			name: "first condition logic ignored",
			conds: []domain.Condition{
				{Field: "status", Operator: domain.OpEquals, Value: "closed", Logic: domain.LogicOr},
			},
			want: false,
		},
		{
			// пустой Logic трактуется как AND
			name: "empty logic defaults to AND",
			conds: []domain.Condition{
				{Field: "status", Operator: domain.OpEquals, Value: "active"},
				{Field: "quantity", Operator: domain.OpGreaterThan, Value: float64(10)},
			},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			passed, trace := EvaluateConditions(tt.conds, payload)
			if passed != tt.want {
				t.Errorf("expected %v, got %v", tt.want, passed)
			}
			if len(trace) != len(tt.conds) {
				t.Errorf("trace should cover every condition: got %d, want %d", len(trace), len(tt.conds))
			}
		})
	}
}

func TestEvaluateConditions_Coercion(t *testing.T) {
	tests := []struct {
		name    string
		payload map[string]any
		cond    domain.Condition
		want    bool
	}{
		{
			name:    "string number vs number",
			payload: map[string]any{"quantity": "5"},
			cond:    domain.Condition{Field: "quantity", Operator: domain.OpLessThan, Value: float64(10)},
			want:    true,
		},
		{
			name:    "declared number type coerces both sides",
			payload: map[string]any{"quantity": "5"},
			cond:    domain.Condition{Field: "quantity", Operator: domain.OpEquals, Value: "5.0", Type: domain.TypeNumber},
			want:    true,
		},
		{
			name:    "declared boolean type",
			payload: map[string]any{"urgent": "true"},
			cond:    domain.Condition{Field: "urgent", Operator: domain.OpEquals, Value: true, Type: domain.TypeBoolean},
			want:    true,
		},
		{
			name:    "number equals via inferred type",
			payload: map[string]any{"quantity": float64(5)},
			cond:    domain.Condition{Field: "quantity", Operator: domain.OpEquals, Value: 5},
			want:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			passed, trace := EvaluateConditions([]domain.Condition{tt.cond}, tt.payload)
			if passed != tt.want {
				t.Errorf("expected %v, got %v (reason: %s)", tt.want, passed, trace[0].Reason)
			}
		})
	}
}

func TestEvaluateConditions_Degradation(t *testing.T) {
	payload := map[string]any{"name": "steel", "quantity": "not-a-number"}

	tests := []struct {
		name string
		cond domain.Condition
	}{
		{
			name: "missing field",
			cond: domain.Condition{Field: "absent", Operator: domain.OpEquals, Value: "x"},
		},
		{
			name: "non-numeric field for numeric operator",
			cond: domain.Condition{Field: "quantity", Operator: domain.OpLessThan, Value: float64(10)},
		},
		{
			name: "invalid regex",
			cond: domain.Condition{Field: "name", Operator: domain.OpRegex, Value: "["},
		},
		{
			name: "unknown operator",
			cond: domain.Condition{Field: "name", Operator: "matches_fuzzy", Value: "steel"},
		},
		{
			name: "empty field path",
			cond: domain.Condition{Field: "", Operator: domain.OpEquals, Value: "x"},
		},
		{
			name: "in with non-array value",
			cond: domain.Condition{Field: "name", Operator: domain.OpIn, Value: "steel"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			passed, trace := EvaluateConditions([]domain.Condition{tt.cond}, payload)
			if passed {
				t.Error("degraded condition must evaluate to false")
			}
			if trace[0].Reason == "" {
				t.Error("degraded condition must carry a reason in the trace")
			}
		})
	}
}

func TestEvaluateConditions_TraceContents(t *testing.T) {
	payload := map[string]any{"quantity": float64(5)}
	conds := []domain.Condition{
		{Field: "quantity", Operator: domain.OpLessThan, Value: float64(10)},
		{Field: "missing", Operator: domain.OpEquals, Value: "x", Logic: domain.LogicAnd},
	}

	_, trace := EvaluateConditions(conds, payload)

	if !trace[0].Passed || trace[0].FieldValue != float64(5) || !trace[0].FieldFound {
		t.Errorf("first trace entry wrong: %+v", trace[0])
	}
	if trace[1].Passed || trace[1].FieldFound || trace[1].Reason != "field not found" {
		t.Errorf("second trace entry wrong: %+v", trace[1])
	}
}
