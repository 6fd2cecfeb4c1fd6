// Package events provides domain event definitions for decoupled,
// event-driven communication between modules.
// Infrastructure (Bus, Handler) is in platform/events.
package events

import (
	"time"

	"foodbridge_backend/platform/events"

	"github.com/google/uuid"
)

// Re-export platform types for convenience
type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
)

// Re-export platform functions
var NewBaseEvent = events.NewBaseEvent

// ActorContact carries the contact data of a party affected by a listing
// transition. A nil *ActorContact means no such party exists (e.g., a claim
// that never had a delivery scheduled).
type ActorContact struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Email string    `json:"email"`
}

// =============================================================================
// Listing Lifecycle Events
// =============================================================================

// ListingUnclaimed is published after a receiver releases their claim.
// The donor is always notified; the deliverer only if a delivery existed.
type ListingUnclaimed struct {
	BaseEvent
	ListingID uuid.UUID     `json:"listingId"`
	FoodTitle string        `json:"foodTitle"`
	Reason    string        `json:"reason"`
	Donor     ActorContact  `json:"donor"`
	Deliverer *ActorContact `json:"deliverer,omitempty"`
}

func (e ListingUnclaimed) EventName() string { return "listings.unclaimed" }

// ClaimRemovalNotice is the per-claim slice of a listing removal: the receiver
// who loses the claim and, if transport was arranged, the deliverer who loses
// the delivery.
type ClaimRemovalNotice struct {
	Receiver  ActorContact  `json:"receiver"`
	Deliverer *ActorContact `json:"deliverer,omitempty"`
}

// ListingRemoved is published after a donor removes their listing.
// Carries one notice per active claim that was destroyed by the removal.
type ListingRemoved struct {
	BaseEvent
	ListingID uuid.UUID            `json:"listingId"`
	FoodTitle string               `json:"foodTitle"`
	Reason    string               `json:"reason"`
	Claims    []ClaimRemovalNotice `json:"claims"`
}

func (e ListingRemoved) EventName() string { return "listings.removed" }

// =============================================================================
// Delivery Lifecycle Events
// =============================================================================

// DeliveryScheduled is published after a deliverer schedules (or immediately
// starts) transport for a claim. Donor and receiver are both notified.
type DeliveryScheduled struct {
	BaseEvent
	DeliveryID     uuid.UUID    `json:"deliveryId"`
	ClaimID        uuid.UUID    `json:"claimId"`
	FoodTitle      string       `json:"foodTitle"`
	DelivererName  string       `json:"delivererName"`
	ScheduledStart *time.Time   `json:"scheduledStart,omitempty"`
	StartedNow     bool         `json:"startedNow"`
	Donor          ActorContact `json:"donor"`
	Receiver       ActorContact `json:"receiver"`
}

func (e DeliveryScheduled) EventName() string { return "deliveries.scheduled" }

// DeliveryCancelled is published after a deliverer cancels their delivery.
// The claim survives; donor and receiver are both notified.
type DeliveryCancelled struct {
	BaseEvent
	DeliveryID    uuid.UUID    `json:"deliveryId"`
	FoodTitle     string       `json:"foodTitle"`
	Reason        string       `json:"reason"`
	FoodRejected  bool         `json:"foodRejected"`
	DelivererName string       `json:"delivererName"`
	Donor         ActorContact `json:"donor"`
	Receiver      ActorContact `json:"receiver"`
}

func (e DeliveryCancelled) EventName() string { return "deliveries.cancelled" }

// DeliveryReminderDue is published by the scheduler worker when a scheduled
// delivery's start time is approaching.
type DeliveryReminderDue struct {
	BaseEvent
	DeliveryID uuid.UUID `json:"deliveryId"`
}

func (e DeliveryReminderDue) EventName() string { return "deliveries.reminder_due" }
