package transport

import (
	"foodbridge_backend/platform/apperr"

	"github.com/google/uuid"
)

// DefaultMaxDistanceMiles is applied when a distance-relevant query arrives
// without an explicit radius.
const DefaultMaxDistanceMiles = 30.0

// FoodListingFilters is the filter value handed to the listings search.
// Raw flag pairs (refrigeration, availability modes) arrive as the caller sent
// them; Refrigeration is the derived single-field view populated by
// SanitizeFilters. Only sanitized filter values may reach the repository.
type FoodListingFilters struct {
	Status ListingStatus

	Offset int
	Amount int

	// FoodTypes restricts results to listings tagged with at least one of the
	// given types. Nil means no type filter.
	FoodTypes []string

	// Raw refrigeration flags as submitted. Both set or both clear means the
	// caller does not care.
	NeedsRefrigeration    bool
	NotNeedsRefrigeration bool
	// Refrigeration is the derived filter: nil = don't care, true = only
	// refrigerated, false = only non-refrigerated.
	Refrigeration *bool

	MatchRegularAvailability bool
	MatchAvailableNow        bool

	// MaxDistance is the search radius in miles. Nil means distance is ignored.
	MaxDistance *float64

	// Optional point-lookup keys.
	ListingID  *uuid.UUID
	ClaimID    *uuid.UUID
	DeliveryID *uuid.UUID
}

// SanitizeFilters normalizes a raw filter request into a safe, role-consistent
// value. It corrects rather than rejects, except for pagination bounds. The
// function is pure and idempotent: sanitizing an already-sanitized value is a
// no-op.
func SanitizeFilters(f FoodListingFilters) (FoodListingFilters, error) {
	if f.Offset < 0 {
		return FoodListingFilters{}, apperr.Validation("offset must not be negative")
	}
	if f.Amount <= 0 {
		return FoodListingFilters{}, apperr.Validation("amount must be positive")
	}

	// Empty food-type set means no type filter at all.
	if len(f.FoodTypes) == 0 {
		f.FoodTypes = nil
	}

	// Both refrigeration flags agreeing means the caller does not care.
	switch {
	case f.NeedsRefrigeration == f.NotNeedsRefrigeration:
		f.Refrigeration = nil
	case f.NeedsRefrigeration:
		f.Refrigeration = boolPtr(true)
	default:
		f.Refrigeration = boolPtr(false)
	}

	// Cart views never filter by availability. Everywhere else, asking for
	// neither availability mode defaults to matching regular availability.
	if isCartStatus(f.Status) {
		f.MatchRegularAvailability = false
	} else {
		f.MatchRegularAvailability = f.MatchRegularAvailability || !f.MatchAvailableNow
	}

	// Distance is meaningless in a user's own donated/claimed cart.
	switch f.Status {
	case StatusMyDonatedListings, StatusMyClaimedListings:
		f.MaxDistance = nil
	default:
		if f.MaxDistance == nil {
			d := DefaultMaxDistanceMiles
			f.MaxDistance = &d
		}
	}

	return f, nil
}

func isCartStatus(status ListingStatus) bool {
	switch status {
	case StatusMyClaimedListings, StatusMyDonatedListings, StatusMyScheduledDeliveries:
		return true
	default:
		return false
	}
}

func boolPtr(v bool) *bool { return &v }
