package alerting

import (
	"fmt"
	"math"
	"time"

	"tanaw/internal/types"
)

// Rule is one independent predicate-to-intent mapping. Rules are evaluated
// in order against every candidate and are NON-exclusive: a single candidate
// can satisfy several rules and produce several intents. In particular, an
// ExtremeDanger candidate fires both the extreme-danger and danger rules;
// that cascade is part of the contract and must not be collapsed into a
// first-match dispatch.
type Rule struct {
	Name    string
	Matches func(c types.AlertCandidate) bool
	Build   func(c types.AlertCandidate, now time.Time) types.NotificationIntent
}

// heatBody templates the rounded heat-index value with the event time.
func heatBody(c types.AlertCandidate, now time.Time) string {
	rounded := int(math.Round(c.HeatIndex))
	if c.At.IsZero() {
		return fmt.Sprintf("Heat index of %d°C expected.", rounded)
	}
	return fmt.Sprintf("Heat index of %d°C expected %s.", rounded, FormatEventTime(c.At, now))
}

// hazardBody templates the event time alone.
func hazardBody(c types.AlertCandidate, now time.Time) string {
	if c.At.IsZero() {
		return "Expected in your area. Stay alert and take precautions."
	}
	return fmt.Sprintf("Expected %s. Stay alert and take precautions.", FormatEventTime(c.At, now))
}

func heatIntent(title string, kind types.IntentKind, c types.AlertCandidate, now time.Time) types.NotificationIntent {
	return types.NotificationIntent{
		Title:          title,
		Body:           heatBody(c, now),
		Classification: types.Classification{Kind: kind, Weather: types.WeatherHeat},
		EventTime:      c.EventTime,
	}
}

func hazardIntent(title string, kind types.IntentKind, c types.AlertCandidate, now time.Time) types.NotificationIntent {
	return types.NotificationIntent{
		Title:          title,
		Body:           hazardBody(c, now),
		Classification: types.Classification{Kind: kind, Weather: types.WeatherRain},
		EventTime:      c.EventTime,
	}
}

// DefaultRules returns the ordered rule table. Order matters only for the
// order of emitted intents; every rule is always evaluated.
func DefaultRules() []Rule {
	return []Rule{
		{
			Name: "extreme_danger_heat",
			Matches: func(c types.AlertCandidate) bool {
				return c.Tier == types.TierExtremeDanger
			},
			Build: func(c types.AlertCandidate, now time.Time) types.NotificationIntent {
				return heatIntent("Extreme Danger Heat Alert!", types.IntentAlert, c, now)
			},
		},
		{
			// Fires for Danger AND ExtremeDanger, alongside the rule above.
			Name: "danger_heat",
			Matches: func(c types.AlertCandidate) bool {
				return c.Tier >= types.TierDanger
			},
			Build: func(c types.AlertCandidate, now time.Time) types.NotificationIntent {
				return heatIntent("Danger Heat Alert!", types.IntentAlert, c, now)
			},
		},
		{
			Name: "warm_heat",
			Matches: func(c types.AlertCandidate) bool {
				return c.Tier == types.TierWarm
			},
			Build: func(c types.AlertCandidate, now time.Time) types.NotificationIntent {
				return heatIntent("Caution High Heat Index!", types.IntentNotification, c, now)
			},
		},
		{
			Name: "thunderstorm",
			Matches: func(c types.AlertCandidate) bool {
				return c.Hazard == types.HazardThunderstorm
			},
			Build: func(c types.AlertCandidate, now time.Time) types.NotificationIntent {
				return hazardIntent("Thunderstorm Alert!", types.IntentAlert, c, now)
			},
		},
		{
			Name: "rain",
			Matches: func(c types.AlertCandidate) bool {
				return c.Hazard == types.HazardRain
			},
			Build: func(c types.AlertCandidate, now time.Time) types.NotificationIntent {
				return hazardIntent("Rain Alert!", types.IntentAlert, c, now)
			},
		},
		{
			Name: "shower_rain",
			Matches: func(c types.AlertCandidate) bool {
				return c.Hazard == types.HazardShowerRain
			},
			Build: func(c types.AlertCandidate, now time.Time) types.NotificationIntent {
				return hazardIntent("Caution Shower Rain!", types.IntentNotification, c, now)
			},
		},
		{
			Name: "broken_clouds",
			Matches: func(c types.AlertCandidate) bool {
				return c.Hazard == types.HazardBrokenClouds
			},
			Build: func(c types.AlertCandidate, now time.Time) types.NotificationIntent {
				return hazardIntent("Caution Broken Clouds!", types.IntentNotification, c, now)
			},
		},
	}
}
