package domain

import (
	"strconv"
	"strings"
)

// Quantity is a structured amount with a measurement unit ("10 kg",
// "3 litros"). Proposal line items always snapshot a Quantity, never a
// free-text string, so the exchange executor reconciles against live stock
// without re-parsing.
type Quantity struct {
	Value float64 `json:"value"`
	Unit  string  `json:"unit"`
}

// ParseQuantity converts a legacy textual quantity into a Quantity.
// It fails soft: degenerate input never returns an error.
//
//	"10 kg"  -> {10, "kg"}
//	"5"      -> {5, ""}
//	"unidad" -> {0, "unidad"}
//	""       -> {0, ""}
func ParseQuantity(text string) Quantity {
	parts := strings.Fields(strings.TrimSpace(text))
	if len(parts) == 0 {
		return Quantity{}
	}

	value, err := strconv.ParseFloat(parts[0], 64)
	if len(parts) == 1 {
		if err != nil {
			// Not a number: keep the whole text as the unit.
			return Quantity{Value: 0, Unit: text}
		}
		return Quantity{Value: value}
	}

	if err != nil {
		return Quantity{Value: 0, Unit: text}
	}
	return Quantity{Value: value, Unit: strings.Join(parts[1:], " ")}
}

// String formats the quantity back into its textual form. Round-trips with
// ParseQuantity for well-formed inputs only; the parse fallback is lossy on
// purpose.
func (q Quantity) String() string {
	value := strconv.FormatFloat(q.Value, 'f', -1, 64)
	if q.Unit == "" {
		return value
	}
	return value + " " + q.Unit
}

// WholeUnits returns the quantity as a whole number of units. Stock is kept
// as an integer, so a fractional snapshot cannot be applied to the ledger.
func (q Quantity) WholeUnits() (int, bool) {
	n := int(q.Value)
	if float64(n) != q.Value {
		return 0, false
	}
	return n, true
}
