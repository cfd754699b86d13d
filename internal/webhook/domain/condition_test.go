package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"gorm.io/datatypes"
)

func TestConditionMatches(t *testing.T) {
	data := map[string]any{
		"status": "completed",
		"amount": float64(150),
		"tags":   []any{"urgent", "billing"},
		"user": map[string]any{
			"plan": "growth",
		},
	}

	tests := []struct {
		name string
		cond Condition
		want bool
	}{
		{"equals string", Condition{Field: "status", Op: OpEquals, Value: "completed"}, true},
		{"equals mismatch", Condition{Field: "status", Op: OpEquals, Value: "pending"}, false},
		{"equals numeric json widening", Condition{Field: "amount", Op: OpEquals, Value: 150}, true},
		{"greater_than", Condition{Field: "amount", Op: OpGreaterThan, Value: 100}, true},
		{"greater_than equal is false", Condition{Field: "amount", Op: OpGreaterThan, Value: 150}, false},
		{"less_than", Condition{Field: "amount", Op: OpLessThan, Value: 200}, true},
		{"greater_than non-numeric field", Condition{Field: "status", Op: OpGreaterThan, Value: 1}, false},
		{"contains string", Condition{Field: "status", Op: OpContains, Value: "complete"}, true},
		{"contains slice", Condition{Field: "tags", Op: OpContains, Value: "urgent"}, true},
		{"contains slice miss", Condition{Field: "tags", Op: OpContains, Value: "spam"}, false},
		{"exists", Condition{Field: "status", Op: OpExists}, true},
		{"exists missing", Condition{Field: "missing", Op: OpExists}, false},
		{"dotted path", Condition{Field: "user.plan", Op: OpEquals, Value: "growth"}, true},
		{"dotted path through scalar", Condition{Field: "status.inner", Op: OpEquals, Value: "x"}, false},
		{"missing field never matches", Condition{Field: "missing", Op: OpEquals, Value: "x"}, false},
		{"unknown op never matches", Condition{Field: "status", Op: "regex", Value: "x"}, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.cond.Matches(data))
		})
	}
}

func TestEvaluateTrigger(t *testing.T) {
	event := Event{
		Name: "data.received",
		Data: map[string]any{"status": "completed", "amount": float64(150)},
	}

	t.Run("empty trigger list never fires", func(t *testing.T) {
		w := &Webhook{}
		fire, matched := EvaluateTrigger(w, event)
		assert.False(t, fire)
		assert.Nil(t, matched)
	})

	t.Run("event name mismatch", func(t *testing.T) {
		w := &Webhook{TriggerEvents: datatypes.JSON(`["other.event"]`)}
		fire, _ := EvaluateTrigger(w, event)
		assert.False(t, fire)
	})

	t.Run("no conditions fires on name alone", func(t *testing.T) {
		w := &Webhook{TriggerEvents: datatypes.JSON(`["data.received"]`)}
		fire, matched := EvaluateTrigger(w, event)
		assert.True(t, fire)
		assert.Empty(t, matched)
	})

	t.Run("all conditions must hold", func(t *testing.T) {
		w := &Webhook{
			TriggerEvents: datatypes.JSON(`["data.received"]`),
			Conditions: datatypes.JSON(
				`[{"field":"status","op":"equals","value":"completed"},
				  {"field":"amount","op":"greater_than","value":100}]`),
		}
		fire, matched := EvaluateTrigger(w, event)
		assert.True(t, fire)
		assert.Len(t, matched, 2)
	})

	t.Run("one failing condition vetoes", func(t *testing.T) {
		w := &Webhook{
			TriggerEvents: datatypes.JSON(`["data.received"]`),
			Conditions: datatypes.JSON(
				`[{"field":"status","op":"equals","value":"completed"},
				  {"field":"amount","op":"less_than","value":100}]`),
		}
		fire, matched := EvaluateTrigger(w, event)
		assert.False(t, fire)
		assert.Nil(t, matched)
	})

	t.Run("malformed conditions decode as none", func(t *testing.T) {
		w := &Webhook{
			TriggerEvents: datatypes.JSON(`["data.received"]`),
			Conditions:    datatypes.JSON(`{"not":"a list"}`),
		}
		fire, _ := EvaluateTrigger(w, event)
		assert.True(t, fire)
	})

	t.Run("deterministic", func(t *testing.T) {
		w := &Webhook{
			TriggerEvents: datatypes.JSON(`["data.received"]`),
			Conditions:    datatypes.JSON(`[{"field":"status","op":"exists"}]`),
		}
		first, _ := EvaluateTrigger(w, event)
		for i := 0; i < 10; i++ {
			again, _ := EvaluateTrigger(w, event)
			assert.Equal(t, first, again)
		}
	})
}
