// Package forecast defines the upstream forecast payload consumed by the
// alerting pipeline and the client that retrieves it. The payload shape is
// the narrow contract this service needs from the weather provider; anything
// else the provider returns is ignored.
package forecast

import (
	"encoding/json"
	"math"
	"time"

	"tanaw/internal/severity"
	"tanaw/internal/types"
)

// WindowSize bounds the forward-looking evaluation window to the next 12
// hourly points, matching what the data source provides.
const WindowSize = 12

// Point is one hourly forecast sample as delivered by the provider.
// HeatIndex is a pointer so a missing field can be distinguished from 0 and
// downgraded instead of misclassified.
type Point struct {
	Time      string   `json:"time"`
	HeatIndex *float64 `json:"heat_index"`
	Weather   struct {
		Condition string `json:"condition"`
	} `json:"weather"`
}

// Payload is the hourly forecast series for one location.
type Payload struct {
	Hourly []Point `json:"hourly"`
}

// ParsePayload decodes a raw provider response body into a Payload.
func ParsePayload(data []byte) (*Payload, error) {
	var p Payload
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, types.NewAppError(types.ErrCodeUpstreamWeather, "malformed forecast payload", err)
	}
	return &p, nil
}

// Candidates projects every point in the forward window through both
// classifiers and returns the resulting alert candidates in input
// (chronological) order. No filtering happens here; every point is a
// candidate and notification-worthiness is the decision engine's call.
//
// Malformed points degrade rather than fail: a missing heat_index classifies
// as Normal, an unknown condition as HazardNone, and an unparseable time
// yields a candidate with a zero At and its raw EventTime preserved.
//
// The method is restartable; calling it again re-produces the same sequence.
func (p *Payload) Candidates() []types.AlertCandidate {
	hourly := p.Hourly
	if len(hourly) > WindowSize {
		hourly = hourly[:WindowSize]
	}

	candidates := make([]types.AlertCandidate, 0, len(hourly))
	for _, pt := range hourly {
		heatIndex := math.NaN()
		if pt.HeatIndex != nil {
			heatIndex = *pt.HeatIndex
		}

		var at time.Time
		if pt.Time != "" {
			if parsed, err := time.Parse(time.RFC3339, pt.Time); err == nil {
				at = parsed
			}
		}

		candidates = append(candidates, types.AlertCandidate{
			EventTime: pt.Time,
			At:        at,
			Tier:      severity.ClassifyHeatIndex(heatIndex),
			Hazard:    severity.ClassifyCondition(pt.Weather.Condition),
			HeatIndex: heatIndex,
			Condition: pt.Weather.Condition,
		})
	}

	return candidates
}
