// Package types defines the shared domain types for the Tanaw hazard
// notification service: severity tiers, hazard conditions, alert candidates,
// notification intents, and the persisted/reported entities the repositories
// and handlers exchange.
package types

import "time"

// Tier is the ordered severity classification of a heat-index value.
// The ordering is total: TierNormal < TierWarm < TierHot < TierDanger <
// TierExtremeDanger, so tiers can be compared with the usual operators.
type Tier int

const (
	TierNormal Tier = iota
	TierWarm
	TierHot
	TierDanger
	TierExtremeDanger
)

// String returns the lowercase label used in logs and push metadata.
func (t Tier) String() string {
	switch t {
	case TierWarm:
		return "warm"
	case TierHot:
		return "hot"
	case TierDanger:
		return "danger"
	case TierExtremeDanger:
		return "extreme_danger"
	default:
		return "normal"
	}
}

// Hazard is a weather condition category derived from the upstream condition
// label by exact, case-sensitive string match. HazardNone means the label
// matched none of the known categories.
type Hazard string

const (
	HazardThunderstorm Hazard = "thunderstorm"
	HazardRain         Hazard = "rain"
	HazardShowerRain   Hazard = "shower rain"
	HazardBrokenClouds Hazard = "broken clouds"
	HazardNone         Hazard = ""
)

// IntentKind distinguishes full-screen alerts from passive notifications.
// The receiving client routes on this value.
type IntentKind string

const (
	IntentAlert        IntentKind = "alert"
	IntentNotification IntentKind = "notification"
)

// WeatherKind identifies which hazard family produced a notification.
type WeatherKind string

const (
	WeatherHeat WeatherKind = "heat"
	WeatherRain WeatherKind = "rain"
)

// Classification is the opaque routing metadata carried on every scheduled
// delivery. It is not interpreted by the scheduler or dispatcher.
type Classification struct {
	Kind    IntentKind  `json:"type"`
	Weather WeatherKind `json:"weatherType"`
}

// AlertCandidate is one forecast point after classification, before any
// notification-worthiness decision has been made. EventTime carries the raw
// upstream timestamp; At is its parsed form, zero when the raw value was
// missing or unparseable; a bad timestamp is never an error at this stage.
type AlertCandidate struct {
	EventTime string
	At        time.Time
	Tier      Tier
	Hazard    Hazard
	HeatIndex float64
	Condition string
}

// NotificationIntent is the outcome of a decision rule: what to say, how to
// classify it, and when the underlying event occurs. EventTime is the raw
// ISO 8601 timestamp ("" = no event time, degrade to immediate dispatch);
// the scheduler validates it and subtracts LeadOffsetHours to compute the
// trigger time.
type NotificationIntent struct {
	Title           string
	Body            string
	Classification  Classification
	EventTime       string
	LeadOffsetHours int
}

// DefaultLeadOffsetHours is the lead time applied when the caller does not
// supply one: warnings fire two hours ahead of the event.
const DefaultLeadOffsetHours = 2

// StoredNotification is one row of the notification history log. Timestamp
// is the computed trigger time as ISO 8601 text, exactly as persisted; it is
// set once at append time and never mutated.
type StoredNotification struct {
	ID        int64  `json:"id"`
	Title     string `json:"title"`
	Body      string `json:"body"`
	Timestamp string `json:"timestamp"`
}

// PendingDelivery describes a one-shot delivery registered with the platform
// dispatcher that has not fired yet.
type PendingDelivery struct {
	ID             string         `json:"id"`
	Title          string         `json:"title"`
	Body           string         `json:"body"`
	Classification Classification `json:"classification"`
	TriggerAt      time.Time      `json:"trigger_at"`
}

// HazardReport is a user-submitted hazard observation (flood, road blockage,
// fire, ...) with an optional photo. Saving a report triggers the push
// fan-out queue so other registered devices are notified.
type HazardReport struct {
	ID          string    `json:"id"`
	DeviceID    string    `json:"device_id"`
	HazardType  string    `json:"hazard_type"`
	Description string    `json:"description"`
	ImageURL    string    `json:"image_url,omitempty"`
	Latitude    float64   `json:"latitude"`
	Longitude   float64   `json:"longitude"`
	CreatedAt   time.Time `json:"created_at"`
}

// DeviceRegistration maps a device to its push token and last known
// location. The evaluation worker reads registrations to know which
// locations to evaluate; there is no process-wide "latest location" state.
type DeviceRegistration struct {
	DeviceID  string    `json:"device_id"`
	PushToken string    `json:"push_token"`
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	UpdatedAt time.Time `json:"updated_at"`
}

// PushMessage is the payload published to the push fan-out queue. The
// fan-out worker that consumes it (and talks to the push provider) is an
// external collaborator; this type is the trigger contract only.
type PushMessage struct {
	MessageID      string          `json:"message_id"`
	Kind           string          `json:"kind"` // "report" or "alert"
	Title          string          `json:"title"`
	Body           string          `json:"body"`
	ReportID       string          `json:"report_id,omitempty"`
	Classification *Classification `json:"classification,omitempty"`
	SentAt         time.Time       `json:"sent_at"`
}

// Push message kinds.
const (
	PushKindReport = "report"
	PushKindAlert  = "alert"
)
