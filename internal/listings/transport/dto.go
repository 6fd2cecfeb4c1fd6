package transport

import (
	"time"

	"github.com/google/uuid"
)

// Enum values

// ListingStatus selects which slice of the marketplace a query returns.
type ListingStatus string

const (
	StatusUnclaimedListings     ListingStatus = "UnclaimedListings"
	StatusMyClaimedListings     ListingStatus = "MyClaimedListings"
	StatusMyDonatedListings     ListingStatus = "MyDonatedListings"
	StatusUnscheduledDeliveries ListingStatus = "UnscheduledDeliveries"
	StatusMyScheduledDeliveries ListingStatus = "MyScheduledDeliveries"
)

// ActorRole is the marketplace role a query or transition acts as.
type ActorRole string

const (
	// RoleAny places no role constraint on the query.
	RoleAny       ActorRole = ""
	RoleDonor     ActorRole = "Donor"
	RoleReceiver  ActorRole = "Receiver"
	RoleDeliverer ActorRole = "Deliverer"
)

// RoleForStatus derives the querying role from the requested listing status.
func RoleForStatus(status ListingStatus) ActorRole {
	switch status {
	case StatusUnclaimedListings, StatusMyClaimedListings:
		return RoleReceiver
	case StatusMyDonatedListings:
		return RoleDonor
	case StatusUnscheduledDeliveries, StatusMyScheduledDeliveries:
		return RoleDeliverer
	default:
		return RoleAny
	}
}

// DeliveryState is the delivery lifecycle state machine.
type DeliveryState string

const (
	DeliveryUnscheduled DeliveryState = "Unscheduled"
	DeliveryScheduled   DeliveryState = "Scheduled"
	DeliveryStarted     DeliveryState = "Started"
	DeliveryPickedUp    DeliveryState = "PickedUp"
	DeliveryDroppedOff  DeliveryState = "DroppedOff"
)

// ValidDeliveryState reports whether s is a known delivery state value.
// Forward-only transition order is not enforced here; the datastore accepts
// any known state.
func ValidDeliveryState(s DeliveryState) bool {
	switch s {
	case DeliveryUnscheduled, DeliveryScheduled, DeliveryStarted, DeliveryPickedUp, DeliveryDroppedOff:
		return true
	default:
		return false
	}
}

// AvailabilityWindow is a time range during which a pickup/handoff can happen.
type AvailabilityWindow struct {
	StartsAt time.Time `json:"startsAt" validate:"required"`
	EndsAt   time.Time `json:"endsAt" validate:"required"`
}

// Request DTOs

// GetListingsRequest carries the raw, unsanitized query parameters.
type GetListingsRequest struct {
	Status                   ListingStatus `form:"status" binding:"required"`
	Offset                   int           `form:"offset"`
	Amount                   int           `form:"amount"`
	FoodTypes                []string      `form:"foodTypes"`
	NeedsRefrigeration       bool          `form:"needsRefrigeration"`
	NotNeedsRefrigeration    bool          `form:"notNeedsRefrigeration"`
	MatchRegularAvailability bool          `form:"matchRegularAvailability"`
	MatchAvailableNow        bool          `form:"matchAvailableNow"`
	MaxDistance              *float64      `form:"maxDistance"`
	ListingID                *uuid.UUID    `form:"listingId"`
	ClaimID                  *uuid.UUID    `form:"claimId"`
	DeliveryID               *uuid.UUID    `form:"deliveryId"`
	Latitude                 float64       `form:"lat"`
	Longitude                float64       `form:"lng"`
}

// Filters converts the request into the filter value handed to the sanitizer.
func (r GetListingsRequest) Filters() FoodListingFilters {
	return FoodListingFilters{
		Status:                   r.Status,
		Offset:                   r.Offset,
		Amount:                   r.Amount,
		FoodTypes:                r.FoodTypes,
		NeedsRefrigeration:       r.NeedsRefrigeration,
		NotNeedsRefrigeration:    r.NotNeedsRefrigeration,
		MatchRegularAvailability: r.MatchRegularAvailability,
		MatchAvailableNow:        r.MatchAvailableNow,
		MaxDistance:              r.MaxDistance,
		ListingID:                r.ListingID,
		ClaimID:                  r.ClaimID,
		DeliveryID:               r.DeliveryID,
	}
}

type ClaimListingRequest struct {
	AvailabilityTimes []AvailabilityWindow `json:"availabilityTimes" validate:"dive"`
}

type UnclaimListingRequest struct {
	Reason string `json:"reason" validate:"required,min=1,max=500"`
}

type RemoveListingRequest struct {
	Reason string `json:"reason" validate:"required,min=1,max=500"`
}

type ScheduleDeliveryRequest struct {
	ClaimID          uuid.UUID  `json:"claimId" validate:"required"`
	StartImmediately bool       `json:"startImmediately"`
	ScheduledStart   *time.Time `json:"scheduledStart,omitempty"`
}

type CancelDeliveryRequest struct {
	Reason       string `json:"reason" validate:"required,min=1,max=500"`
	FoodRejected bool   `json:"foodRejected"`
}

type UpdateDeliveryStateRequest struct {
	State DeliveryState `json:"state" validate:"required"`
}

// Response DTOs

// UserContact is the contact slice of an app user attached to listing results.
// DistanceMiles/DurationMinutes are populated by distance enrichment for the
// roles where travel matters, and omitted otherwise.
type UserContact struct {
	ID              uuid.UUID `json:"id"`
	Name            string    `json:"name"`
	Email           string    `json:"email"`
	Phone           *string   `json:"phone,omitempty"`
	Street          string    `json:"street"`
	City            string    `json:"city"`
	ZipCode         string    `json:"zipCode"`
	Latitude        float64   `json:"latitude"`
	Longitude       float64   `json:"longitude"`
	DistanceMiles   *float64  `json:"distanceMiles,omitempty"`
	DurationMinutes *float64  `json:"durationMinutes,omitempty"`
}

// DeliveryInfo describes the active delivery bound to a claim.
type DeliveryInfo struct {
	ID             uuid.UUID     `json:"id"`
	DelivererID    uuid.UUID     `json:"delivererId"`
	DelivererName  string        `json:"delivererName"`
	State          DeliveryState `json:"state"`
	ScheduledStart *time.Time    `json:"scheduledStart,omitempty"`
}

// ClaimInfo describes the active claim bound to a listing.
type ClaimInfo struct {
	ID                   uuid.UUID            `json:"id"`
	Receiver             UserContact          `json:"receiver"`
	SpecificAvailability []AvailabilityWindow `json:"specificAvailability,omitempty"`
	Delivery             *DeliveryInfo        `json:"delivery,omitempty"`
}

// FoodListing is a marketplace listing with its claim/delivery chain.
type FoodListing struct {
	ID                 uuid.UUID            `json:"id"`
	Title              string               `json:"title"`
	Description        string               `json:"description,omitempty"`
	FoodTypes          []string             `json:"foodTypes"`
	NeedsRefrigeration bool                 `json:"needsRefrigeration"`
	Availability       []AvailabilityWindow `json:"availability,omitempty"`
	Donor              UserContact          `json:"donor"`
	Claim              *ClaimInfo           `json:"claim,omitempty"`
	CreatedAt          time.Time            `json:"createdAt"`
}
