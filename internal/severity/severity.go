// Package severity classifies forecast samples against fixed hazard
// thresholds. Both classifiers are pure functions: no I/O, no state, and no
// failure mode beyond degrading invalid input to the neutral class.
package severity

import (
	"math"

	"tanaw/internal/types"
)

// Heat-index tier thresholds in degrees Celsius. Each is an inclusive lower
// bound; classification evaluates from the highest threshold down and the
// first match wins.
const (
	ThresholdExtremeDanger = 52.0
	ThresholdDanger        = 42.0
	ThresholdHot           = 33.0
	ThresholdWarm          = 27.0
)

// ClassifyHeatIndex maps a heat-index value to its severity tier.
// NaN (the stand-in for a missing heat_index) classifies as Normal.
func ClassifyHeatIndex(heatIndex float64) types.Tier {
	switch {
	case math.IsNaN(heatIndex):
		return types.TierNormal
	case heatIndex >= ThresholdExtremeDanger:
		return types.TierExtremeDanger
	case heatIndex >= ThresholdDanger:
		return types.TierDanger
	case heatIndex >= ThresholdHot:
		return types.TierHot
	case heatIndex >= ThresholdWarm:
		return types.TierWarm
	default:
		return types.TierNormal
	}
}

// hazardConditions is the exact-match table for condition labels. Matching is
// deliberately case-sensitive: "Thunderstorm" (capitalized) does NOT match.
// Upstream data that capitalizes condition labels therefore produces
// HazardNone; see the package tests documenting this mismatch.
var hazardConditions = map[string]types.Hazard{
	"thunderstorm":  types.HazardThunderstorm,
	"rain":          types.HazardRain,
	"shower rain":   types.HazardShowerRain,
	"broken clouds": types.HazardBrokenClouds,
}

// ClassifyCondition maps a weather condition label to its hazard category.
// Unknown or empty labels classify as HazardNone.
func ClassifyCondition(condition string) types.Hazard {
	if h, ok := hazardConditions[condition]; ok {
		return h
	}
	return types.HazardNone
}
