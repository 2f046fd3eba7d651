package strava

import (
	"encoding/json"
	"fmt"

	"mkoval/runcoach-app/internal/domain"
)

// Webhook event constants as Strava sends them.
const (
	ObjectTypeActivity = "activity"
	ObjectTypeAthlete  = "athlete"

	AspectCreate = "create"
	AspectUpdate = "update"
	AspectDelete = "delete"
)

// WebhookEvent is the push payload Strava delivers for activity and athlete
// changes. OwnerID is the provider-side athlete id.
type WebhookEvent struct {
	ObjectType     string            `json:"object_type"`
	ObjectID       int64             `json:"object_id"`
	AspectType     string            `json:"aspect_type"`
	OwnerID        int64             `json:"owner_id"`
	SubscriptionID int64             `json:"subscription_id"`
	EventTime      int64             `json:"event_time"`
	Updates        map[string]string `json:"updates,omitempty"`
}

// ParseWebhookEvent decodes and validates an inbound webhook body. Malformed
// payloads are rejected as validation errors and must never crash the
// handler.
func ParseWebhookEvent(body []byte) (WebhookEvent, error) {
	var event WebhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return WebhookEvent{}, fmt.Errorf("%w: malformed webhook payload", domain.ErrValidation)
	}
	if event.ObjectType != ObjectTypeActivity && event.ObjectType != ObjectTypeAthlete {
		return WebhookEvent{}, fmt.Errorf("%w: unknown webhook object type %q", domain.ErrValidation, event.ObjectType)
	}
	switch event.AspectType {
	case AspectCreate, AspectUpdate, AspectDelete:
	default:
		return WebhookEvent{}, fmt.Errorf("%w: unknown webhook aspect type %q", domain.ErrValidation, event.AspectType)
	}
	if event.OwnerID == 0 {
		return WebhookEvent{}, fmt.Errorf("%w: webhook payload missing owner id", domain.ErrValidation)
	}
	return event, nil
}
