package repo

import (
	"encoding/json"
	"reflect"
	"testing"
)

func TestMarshalErrorDetails(t *testing.T) {
	tests := []struct {
		name    string
		details map[string]any
	}{
		{
			name:    "nil map",
			details: nil,
		},
		{
			name:    "empty map",
			details: map[string]any{},
		},
		{
			name: "dispatch error details",
			details: map[string]any{
				"stage":   "render",
				"missing": []any{"material_name"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := marshalErrorDetails(tt.details)
			if err != nil {
				t.Fatalf("marshalErrorDetails() error = %v", err)
			}

			// Пустые детали должны стать NULL в jsonb колонке
			if len(tt.details) == 0 {
				if data != nil {
					t.Fatalf("expected nil for empty details, got %s", data)
				}
				return
			}

			// Непустые должны восстанавливаться как в scanExecution
			var restored map[string]any
			if err := json.Unmarshal(data, &restored); err != nil {
				t.Fatalf("unmarshal round trip: %v", err)
			}
			if !reflect.DeepEqual(restored, tt.details) {
				t.Errorf("round trip = %v, want %v", restored, tt.details)
			}
		})
	}
}
