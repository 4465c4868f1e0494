package pagination

import (
	"encoding/json"
	"testing"
)

func sizes(values ...float64) []Item {
	items := make([]Item, len(values))
	for i, v := range values {
		items[i] = Item{"id": float64(i + 1), "size": v}
	}
	return items
}

func TestCollectAll(t *testing.T) {
	agg := NewCollectAll()
	agg.Consume(sizes(1, 2))
	agg.Consume(nil)
	agg.Consume(sizes(3))

	result := agg.Finalize()

	if len(result.Items) != 3 {
		t.Fatalf("len(Items) = %d, want 3", len(result.Items))
	}
	if result.Examined != 3 {
		t.Errorf("Examined = %d, want 3", result.Examined)
	}

	expected := []float64{1, 2, 3}
	for i, want := range expected {
		if got := result.Items[i]["size"]; got != want {
			t.Errorf("Items[%d].size = %v, want %v (order must be preserved)", i, got, want)
		}
	}
}

func TestCollectAll_Empty(t *testing.T) {
	result := NewCollectAll().Finalize()

	if result.Items == nil {
		t.Error("Items should be an empty slice, not nil")
	}
	if len(result.Items) != 0 {
		t.Errorf("len(Items) = %d, want 0", len(result.Items))
	}
}

func TestMaxByField(t *testing.T) {
	tests := []struct {
		name       string
		pages      [][]Item
		expectedID float64
		expectedV  float64
		examined   int
	}{
		{
			name:       "single page",
			pages:      [][]Item{sizes(10, 55)},
			expectedID: 2,
			expectedV:  55,
			examined:   2,
		},
		{
			name:       "max on first item",
			pages:      [][]Item{sizes(99, 5, 7)},
			expectedID: 1,
			expectedV:  99,
			examined:   3,
		},
		{
			name:       "tie keeps first seen",
			pages:      [][]Item{sizes(3, 8, 8, 1)},
			expectedID: 2,
			expectedV:  8,
			examined:   4,
		},
		{
			name:       "all zero still reports an item",
			pages:      [][]Item{sizes(0, 0, 0)},
			expectedID: 1,
			expectedV:  0,
			examined:   3,
		},
		{
			name: "tie across pages keeps earlier page",
			pages: [][]Item{
				{{"id": float64(1), "size": float64(40)}},
				{{"id": float64(2), "size": float64(40)}},
			},
			expectedID: 1,
			expectedV:  40,
			examined:   2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			agg := NewMaxByField("size")
			for _, page := range tt.pages {
				agg.Consume(page)
			}

			result := agg.Finalize()
			if result.Best == nil {
				t.Fatal("Best is nil")
			}
			if result.Best["id"] != tt.expectedID {
				t.Errorf("Best.id = %v, want %v", result.Best["id"], tt.expectedID)
			}
			if result.BestValue != tt.expectedV {
				t.Errorf("BestValue = %v, want %v", result.BestValue, tt.expectedV)
			}
			if result.Examined != tt.examined {
				t.Errorf("Examined = %d, want %d", result.Examined, tt.examined)
			}
		})
	}
}

func TestMaxByField_Monotonic(t *testing.T) {
	agg := NewMaxByField("size")
	values := []float64{5, 3, 9, 9, 2, 11, 0, 11, 4}

	last := -1.0
	for _, v := range values {
		agg.Consume(sizes(v))
		current := agg.Finalize().BestValue
		if current < last {
			t.Fatalf("best value decreased from %v to %v", last, current)
		}
		last = current
	}

	if last != 11 {
		t.Errorf("final best = %v, want 11", last)
	}
}

func TestMaxByField_NoCandidates(t *testing.T) {
	agg := NewMaxByField("size")
	agg.Consume([]Item{{"name": "no-size"}, {"size": "huge"}})

	result := agg.Finalize()
	if result.Best != nil {
		t.Errorf("Best = %v, want nil", result.Best)
	}
	if result.Examined != 2 {
		t.Errorf("Examined = %d, want 2", result.Examined)
	}
}

func TestNumericField(t *testing.T) {
	tests := []struct {
		name     string
		value    any
		expected float64
		ok       bool
	}{
		{"float64", float64(12.5), 12.5, true},
		{"int", 7, 7, true},
		{"int64", int64(1 << 40), float64(1 << 40), true},
		{"json number", json.Number("42"), 42, true},
		{"bad json number", json.Number("x"), 0, false},
		{"string", "42", 0, false},
		{"nil", nil, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := NumericField(Item{"size": tt.value}, "size")
			if ok != tt.ok || got != tt.expected {
				t.Errorf("NumericField() = (%v, %v), want (%v, %v)", got, ok, tt.expected, tt.ok)
			}
		})
	}
}
