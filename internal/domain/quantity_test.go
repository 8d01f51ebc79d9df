package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseQuantity(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  Quantity
	}{
		{"value and unit", "10 kg", Quantity{Value: 10, Unit: "kg"}},
		{"decimal value", "2.5 litros", Quantity{Value: 2.5, Unit: "litros"}},
		{"bare number", "5", Quantity{Value: 5}},
		{"unit only", "unidad", Quantity{Value: 0, Unit: "unidad"}},
		{"empty", "", Quantity{}},
		{"whitespace", "   ", Quantity{}},
		{"multi-word unit", "3 bultos grandes", Quantity{Value: 3, Unit: "bultos grandes"}},
		{"garbage keeps text as unit", "diez kg", Quantity{Value: 0, Unit: "diez kg"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseQuantity(tt.input))
		})
	}
}

func TestQuantityString(t *testing.T) {
	assert.Equal(t, "10 kg", Quantity{Value: 10, Unit: "kg"}.String())
	assert.Equal(t, "2.5 litros", Quantity{Value: 2.5, Unit: "litros"}.String())
	assert.Equal(t, "5", Quantity{Value: 5}.String())
}

func TestQuantityWholeUnits(t *testing.T) {
	n, ok := Quantity{Value: 10, Unit: "kg"}.WholeUnits()
	assert.True(t, ok)
	assert.Equal(t, 10, n)

	_, ok = Quantity{Value: 2.5, Unit: "kg"}.WholeUnits()
	assert.False(t, ok)

	n, ok = Quantity{}.WholeUnits()
	assert.True(t, ok)
	assert.Equal(t, 0, n)
}
