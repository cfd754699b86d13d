package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// ConditionOp enumerates the supported predicate operators. Conditions are a
// closed set of tagged variants, not a free-form expression tree, so
// evaluation is exhaustive and malformed configuration cannot change meaning
// silently.
type ConditionOp string

const (
	OpEquals      ConditionOp = "equals"
	OpContains    ConditionOp = "contains"
	OpGreaterThan ConditionOp = "greater_than"
	OpLessThan    ConditionOp = "less_than"
	OpExists      ConditionOp = "exists"
)

// Condition is one predicate over a field of the event payload. Field is a
// dot-separated path into the payload object.
type Condition struct {
	Field string      `json:"field"`
	Op    ConditionOp `json:"op"`
	Value any         `json:"value,omitempty"`
}

// Matches evaluates the condition against the event payload. A missing field
// is a non-match, never an error.
func (c Condition) Matches(data map[string]any) bool {
	value, ok := lookup(data, c.Field)
	if c.Op == OpExists {
		return ok
	}
	if !ok {
		return false
	}

	switch c.Op {
	case OpEquals:
		if a, b, ok := bothNumeric(value, c.Value); ok {
			return a == b
		}
		return fmt.Sprintf("%v", value) == fmt.Sprintf("%v", c.Value)
	case OpContains:
		return contains(value, c.Value)
	case OpGreaterThan:
		a, b, ok := bothNumeric(value, c.Value)
		return ok && a > b
	case OpLessThan:
		a, b, ok := bothNumeric(value, c.Value)
		return ok && a < b
	default:
		return false
	}
}

// EvaluateTrigger decides whether the webhook fires for the event and returns
// the conditions that matched, attached to the envelope for observability.
// Evaluation is pure: the same webhook and event always produce the same
// decision and matched list.
func EvaluateTrigger(w *Webhook, event Event) (bool, []Condition) {
	events := w.TriggerEventList()
	if len(events) == 0 {
		return false, nil
	}
	found := false
	for _, name := range events {
		if name == event.Name {
			found = true
			break
		}
	}
	if !found {
		return false, nil
	}

	conditions := w.ConditionList()
	if len(conditions) == 0 {
		return true, nil
	}

	matched := make([]Condition, 0, len(conditions))
	for _, c := range conditions {
		if !c.Matches(event.Data) {
			return false, nil
		}
		matched = append(matched, c)
	}
	return true, matched
}

func lookup(data map[string]any, path string) (any, bool) {
	if path == "" {
		return nil, false
	}
	parts := strings.Split(path, ".")
	var current any = data
	for _, part := range parts {
		m, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		current, ok = m[part]
		if !ok {
			return nil, false
		}
	}
	return current, true
}

func contains(haystack, needle any) bool {
	switch h := haystack.(type) {
	case string:
		return strings.Contains(h, fmt.Sprintf("%v", needle))
	case []any:
		for _, item := range h {
			if fmt.Sprintf("%v", item) == fmt.Sprintf("%v", needle) {
				return true
			}
		}
		return false
	default:
		return false
	}
}

func bothNumeric(a, b any) (float64, float64, bool) {
	fa, ok := toFloat(a)
	if !ok {
		return 0, 0, false
	}
	fb, ok := toFloat(b)
	if !ok {
		return 0, 0, false
	}
	return fa, fb, true
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	default:
		return 0, false
	}
}
