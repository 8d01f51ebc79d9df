package domain

import (
	"fmt"
	"math"
)

// EquityResult classifies the fairness of a two-sided trade. It is stored on
// the proposal as a snapshot and returned by the value-comparison endpoint.
type EquityResult struct {
	IsFair              bool    `json:"isFair"`
	Blocked             bool    `json:"blocked"`
	Comparable          bool    `json:"comparable"`
	Message             string  `json:"message"`
	DifferencePct       float64 `json:"differencePercentage"`
	SuggestedDifference float64 `json:"suggestedDifference"`
	OfferedValue        float64 `json:"offeredValue"`
	RequestedValue      float64 `json:"requestedValue"`
}

// EquityEvaluator classifies trades by aggregate monetary value. Thresholds
// are injected from configuration so they stay tunable; this evaluator is the
// single source of truth for fairness wherever it is displayed.
type EquityEvaluator struct {
	fairMaxPct    float64
	blockedMinPct float64
}

// NewEquityEvaluator creates an evaluator with the given thresholds
// (percent difference: fair up to fairMaxPct, blocked above blockedMinPct).
func NewEquityEvaluator(fairMaxPct, blockedMinPct float64) *EquityEvaluator {
	return &EquityEvaluator{
		fairMaxPct:    fairMaxPct,
		blockedMinPct: blockedMinPct,
	}
}

// Evaluate classifies the trade given the aggregate values of both sides.
// A side worth 0 (with the other side non-zero) cannot be compared; two
// zero-value sides are considered an even trade.
func (e *EquityEvaluator) Evaluate(offeredValue, requestedValue float64) EquityResult {
	result := EquityResult{
		OfferedValue:   offeredValue,
		RequestedValue: requestedValue,
	}

	if (offeredValue == 0) != (requestedValue == 0) {
		result.Message = "fairness cannot be computed: one side of the trade has no defined value"
		return result
	}

	min := math.Min(offeredValue, requestedValue)
	max := math.Max(offeredValue, requestedValue)

	result.Comparable = true
	if min == 0 {
		// Both sides zero: nothing to balance.
		result.IsFair = true
		result.Message = "fair trade"
		return result
	}

	result.DifferencePct = (max - min) / min * 100
	result.SuggestedDifference = math.Abs(requestedValue - offeredValue)

	switch {
	case result.DifferencePct <= e.fairMaxPct:
		result.IsFair = true
		result.SuggestedDifference = 0
		result.Message = "fair trade"
	case result.DifferencePct <= e.blockedMinPct:
		result.Message = fmt.Sprintf("trade values differ by %.1f%%; consider compensating %.2f", result.DifferencePct, result.SuggestedDifference)
	default:
		result.Blocked = true
		result.Message = fmt.Sprintf("trade values differ by %.1f%%, above the allowed maximum", result.DifferencePct)
	}

	return result
}
