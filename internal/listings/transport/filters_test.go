package transport

import (
	"reflect"
	"testing"

	"foodbridge_backend/platform/apperr"
)

func validFilters(status ListingStatus) FoodListingFilters {
	return FoodListingFilters{
		Status: status,
		Offset: 0,
		Amount: 25,
	}
}

func TestSanitizeFiltersPaginationBounds(t *testing.T) {
	cases := []struct {
		name   string
		offset int
		amount int
		wantOK bool
	}{
		{"valid", 0, 1, true},
		{"large page", 100, 50, true},
		{"negative offset", -1, 10, false},
		{"zero amount", 0, 0, false},
		{"negative amount", 0, -5, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := validFilters(StatusUnclaimedListings)
			f.Offset = tc.offset
			f.Amount = tc.amount

			_, err := SanitizeFilters(f)
			if tc.wantOK && err != nil {
				t.Fatalf("SanitizeFilters returned unexpected error: %v", err)
			}
			if !tc.wantOK {
				if err == nil {
					t.Fatal("SanitizeFilters accepted invalid pagination")
				}
				if !apperr.Is(err, apperr.KindValidation) {
					t.Errorf("error kind = %v, want KindValidation", apperr.GetKind(err))
				}
			}
		})
	}
}

func TestSanitizeFiltersEmptyFoodTypesBecomesNil(t *testing.T) {
	f := validFilters(StatusUnclaimedListings)
	f.FoodTypes = []string{}

	got, err := SanitizeFilters(f)
	if err != nil {
		t.Fatalf("SanitizeFilters: %v", err)
	}
	if got.FoodTypes != nil {
		t.Errorf("FoodTypes = %v, want nil", got.FoodTypes)
	}
}

func TestSanitizeFiltersRefrigeration(t *testing.T) {
	cases := []struct {
		name     string
		needs    bool
		notNeeds bool
		want     *bool
	}{
		{"both false", false, false, nil},
		{"both true", true, true, nil},
		{"only needs", true, false, boolPtr(true)},
		{"only not-needs", false, true, boolPtr(false)},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := validFilters(StatusUnclaimedListings)
			f.NeedsRefrigeration = tc.needs
			f.NotNeedsRefrigeration = tc.notNeeds

			got, err := SanitizeFilters(f)
			if err != nil {
				t.Fatalf("SanitizeFilters: %v", err)
			}
			if (got.Refrigeration == nil) != (tc.want == nil) {
				t.Fatalf("Refrigeration = %v, want %v", got.Refrigeration, tc.want)
			}
			if got.Refrigeration != nil && *got.Refrigeration != *tc.want {
				t.Errorf("Refrigeration = %v, want %v", *got.Refrigeration, *tc.want)
			}
		})
	}
}

func TestSanitizeFiltersAvailabilityMatching(t *testing.T) {
	cartStatuses := []ListingStatus{
		StatusMyClaimedListings,
		StatusMyDonatedListings,
		StatusMyScheduledDeliveries,
	}
	for _, status := range cartStatuses {
		f := validFilters(status)
		f.MatchRegularAvailability = true
		f.MatchAvailableNow = true

		got, err := SanitizeFilters(f)
		if err != nil {
			t.Fatalf("SanitizeFilters(%s): %v", status, err)
		}
		if got.MatchRegularAvailability {
			t.Errorf("status %s: MatchRegularAvailability = true, want false", status)
		}
	}

	// Asking for neither mode defaults to matching regular availability.
	f := validFilters(StatusUnclaimedListings)
	f.MatchRegularAvailability = false
	f.MatchAvailableNow = false
	got, err := SanitizeFilters(f)
	if err != nil {
		t.Fatalf("SanitizeFilters: %v", err)
	}
	if !got.MatchRegularAvailability {
		t.Error("neither mode requested: MatchRegularAvailability = false, want true")
	}

	// Available-now only stays available-now only.
	f = validFilters(StatusUnclaimedListings)
	f.MatchAvailableNow = true
	got, err = SanitizeFilters(f)
	if err != nil {
		t.Fatalf("SanitizeFilters: %v", err)
	}
	if got.MatchRegularAvailability {
		t.Error("available-now only: MatchRegularAvailability = true, want false")
	}
	if !got.MatchAvailableNow {
		t.Error("available-now only: MatchAvailableNow = false, want true")
	}
}

func TestSanitizeFiltersMaxDistance(t *testing.T) {
	cases := []struct {
		name   string
		status ListingStatus
		input  *float64
		want   *float64
	}{
		{"donated cart forces nil", StatusMyDonatedListings, float64Ptr(10), nil},
		{"claimed cart forces nil", StatusMyClaimedListings, float64Ptr(10), nil},
		{"unclaimed defaults to 30", StatusUnclaimedListings, nil, float64Ptr(30)},
		{"unclaimed passes through", StatusUnclaimedListings, float64Ptr(12), float64Ptr(12)},
		{"unscheduled deliveries defaults to 30", StatusUnscheduledDeliveries, nil, float64Ptr(30)},
		{"scheduled deliveries defaults to 30", StatusMyScheduledDeliveries, nil, float64Ptr(30)},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := validFilters(tc.status)
			f.MaxDistance = tc.input

			got, err := SanitizeFilters(f)
			if err != nil {
				t.Fatalf("SanitizeFilters: %v", err)
			}
			if (got.MaxDistance == nil) != (tc.want == nil) {
				t.Fatalf("MaxDistance = %v, want %v", got.MaxDistance, tc.want)
			}
			if got.MaxDistance != nil && *got.MaxDistance != *tc.want {
				t.Errorf("MaxDistance = %v, want %v", *got.MaxDistance, *tc.want)
			}
		})
	}
}

func TestSanitizeFiltersIdempotent(t *testing.T) {
	inputs := []FoodListingFilters{
		validFilters(StatusUnclaimedListings),
		validFilters(StatusMyDonatedListings),
		validFilters(StatusMyScheduledDeliveries),
		{
			Status:                StatusUnclaimedListings,
			Offset:                5,
			Amount:                10,
			FoodTypes:             []string{"Produce", "Dairy"},
			NeedsRefrigeration:    true,
			NotNeedsRefrigeration: false,
			MatchAvailableNow:     true,
			MaxDistance:           float64Ptr(5),
		},
		{
			Status:                StatusUnscheduledDeliveries,
			Amount:                1,
			FoodTypes:             []string{},
			NeedsRefrigeration:    true,
			NotNeedsRefrigeration: true,
		},
	}

	for i, f := range inputs {
		once, err := SanitizeFilters(f)
		if err != nil {
			t.Fatalf("case %d: first sanitize: %v", i, err)
		}
		twice, err := SanitizeFilters(once)
		if err != nil {
			t.Fatalf("case %d: second sanitize: %v", i, err)
		}
		if !reflect.DeepEqual(once, twice) {
			t.Errorf("case %d: sanitize not idempotent:\nonce:  %+v\ntwice: %+v", i, once, twice)
		}
	}
}

func TestRoleForStatus(t *testing.T) {
	cases := []struct {
		status ListingStatus
		want   ActorRole
	}{
		{StatusUnclaimedListings, RoleReceiver},
		{StatusMyClaimedListings, RoleReceiver},
		{StatusMyDonatedListings, RoleDonor},
		{StatusUnscheduledDeliveries, RoleDeliverer},
		{StatusMyScheduledDeliveries, RoleDeliverer},
		{ListingStatus("Bogus"), RoleAny},
	}

	for _, tc := range cases {
		if got := RoleForStatus(tc.status); got != tc.want {
			t.Errorf("RoleForStatus(%s) = %s, want %s", tc.status, got, tc.want)
		}
	}
}

func TestValidDeliveryState(t *testing.T) {
	for _, s := range []DeliveryState{DeliveryUnscheduled, DeliveryScheduled, DeliveryStarted, DeliveryPickedUp, DeliveryDroppedOff} {
		if !ValidDeliveryState(s) {
			t.Errorf("ValidDeliveryState(%s) = false, want true", s)
		}
	}
	if ValidDeliveryState(DeliveryState("InTransit")) {
		t.Error("ValidDeliveryState accepted an unknown state")
	}
}

func float64Ptr(v float64) *float64 { return &v }
