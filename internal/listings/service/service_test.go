package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"foodbridge_backend/internal/events"
	"foodbridge_backend/internal/listings/repository"
	"foodbridge_backend/internal/listings/transport"
	"foodbridge_backend/internal/maps"
	"foodbridge_backend/platform/apperr"
	"foodbridge_backend/platform/logger"

	"github.com/google/uuid"
)

type fakeStore struct {
	searchFn   func(ctx context.Context, filters transport.FoodListingFilters, role transport.ActorRole, userID uuid.UUID, userLat, userLon float64) ([]transport.FoodListing, error)
	claimFn    func(ctx context.Context, listingID, receiverID uuid.UUID, times []transport.AvailabilityWindow) error
	unclaimFn  func(ctx context.Context, listingID, receiverID uuid.UUID) (*repository.UnclaimPayload, error)
	removeFn   func(ctx context.Context, listingID, donorID uuid.UUID) (*repository.RemoveResult, error)
	scheduleFn func(ctx context.Context, claimID, delivererID uuid.UUID, state transport.DeliveryState, scheduledStart *time.Time) (*repository.DeliveryPayload, error)
	cancelFn   func(ctx context.Context, deliveryID, delivererID uuid.UUID, foodRejected bool) (*repository.DeliveryPayload, error)
	updateFn   func(ctx context.Context, deliveryID, delivererID uuid.UUID, state transport.DeliveryState) error
}

func (f *fakeStore) SearchListings(ctx context.Context, filters transport.FoodListingFilters, role transport.ActorRole, userID uuid.UUID, userLat, userLon float64) ([]transport.FoodListing, error) {
	return f.searchFn(ctx, filters, role, userID, userLat, userLon)
}

func (f *fakeStore) Claim(ctx context.Context, listingID, receiverID uuid.UUID, times []transport.AvailabilityWindow) error {
	return f.claimFn(ctx, listingID, receiverID, times)
}

func (f *fakeStore) Unclaim(ctx context.Context, listingID, receiverID uuid.UUID) (*repository.UnclaimPayload, error) {
	return f.unclaimFn(ctx, listingID, receiverID)
}

func (f *fakeStore) Remove(ctx context.Context, listingID, donorID uuid.UUID) (*repository.RemoveResult, error) {
	return f.removeFn(ctx, listingID, donorID)
}

func (f *fakeStore) ScheduleDelivery(ctx context.Context, claimID, delivererID uuid.UUID, state transport.DeliveryState, scheduledStart *time.Time) (*repository.DeliveryPayload, error) {
	return f.scheduleFn(ctx, claimID, delivererID, state, scheduledStart)
}

func (f *fakeStore) CancelDelivery(ctx context.Context, deliveryID, delivererID uuid.UUID, foodRejected bool) (*repository.DeliveryPayload, error) {
	return f.cancelFn(ctx, deliveryID, delivererID, foodRejected)
}

func (f *fakeStore) UpdateDeliveryState(ctx context.Context, deliveryID, delivererID uuid.UUID, state transport.DeliveryState) error {
	return f.updateFn(ctx, deliveryID, delivererID, state)
}

type enrichCall struct {
	origin       maps.Coordinate
	destinations []maps.Coordinate
}

type fakeEnricher struct {
	mu    sync.Mutex
	calls []enrichCall
	fn    func(origin maps.Coordinate, destinations []maps.Coordinate) ([]maps.DriveResult, error)
}

func (f *fakeEnricher) DrivingDistanceTime(ctx context.Context, origin maps.Coordinate, destinations []maps.Coordinate) ([]maps.DriveResult, error) {
	f.mu.Lock()
	f.calls = append(f.calls, enrichCall{origin: origin, destinations: destinations})
	f.mu.Unlock()
	if f.fn != nil {
		return f.fn(origin, destinations)
	}
	results := make([]maps.DriveResult, len(destinations))
	for i := range results {
		results[i] = maps.DriveResult{DistanceMiles: float64(i + 1), DurationMinutes: float64((i + 1) * 10)}
	}
	return results, nil
}

type fakeBus struct {
	mu        sync.Mutex
	published []events.Event
}

func (f *fakeBus) Publish(ctx context.Context, event events.Event) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.published = append(f.published, event)
}

func (f *fakeBus) PublishSync(ctx context.Context, event events.Event) error {
	f.Publish(ctx, event)
	return nil
}

func (f *fakeBus) Subscribe(eventName string, handler events.Handler) {}

type fakeReminders struct {
	scheduled []uuid.UUID
	remindAt  []time.Time
}

func (f *fakeReminders) ScheduleDeliveryReminder(ctx context.Context, deliveryID uuid.UUID, remindAt time.Time) error {
	f.scheduled = append(f.scheduled, deliveryID)
	f.remindAt = append(f.remindAt, remindAt)
	return nil
}

func newTestService(store *fakeStore, enricher *fakeEnricher, bus *fakeBus, reminders ReminderScheduler) *Service {
	return New(store, enricher, bus, reminders, logger.New("test"))
}

func receiverFilters() transport.FoodListingFilters {
	return transport.FoodListingFilters{Status: transport.StatusUnclaimedListings, Amount: 10}
}

func listingWith(donorLat, donorLon float64) transport.FoodListing {
	return transport.FoodListing{
		ID: uuid.New(),
		Donor: transport.UserContact{
			ID:        uuid.New(),
			Latitude:  donorLat,
			Longitude: donorLon,
		},
	}
}

func TestGetListingsSearchFailureIsGeneric(t *testing.T) {
	store := &fakeStore{
		searchFn: func(ctx context.Context, filters transport.FoodListingFilters, role transport.ActorRole, userID uuid.UUID, userLat, userLon float64) ([]transport.FoodListing, error) {
			return nil, errors.New("connection refused on host db-7")
		},
	}
	svc := newTestService(store, &fakeEnricher{}, &fakeBus{}, nil)

	_, err := svc.GetListings(context.Background(), receiverFilters(), uuid.New(), maps.Coordinate{})
	if err == nil {
		t.Fatal("expected an error")
	}
	if err.Error() != "search failed" {
		t.Errorf("error = %q, want generic %q", err.Error(), "search failed")
	}
	if !apperr.Is(err, apperr.KindInternal) {
		t.Errorf("error kind = %v, want KindInternal", apperr.GetKind(err))
	}
}

func TestGetListingsValidationErrorPassesThrough(t *testing.T) {
	svc := newTestService(&fakeStore{}, &fakeEnricher{}, &fakeBus{}, nil)

	f := receiverFilters()
	f.Amount = 0
	_, err := svc.GetListings(context.Background(), f, uuid.New(), maps.Coordinate{})
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("error = %v, want validation error", err)
	}
}

func TestGetListingsReceiverEnrichmentByIndex(t *testing.T) {
	listings := []transport.FoodListing{listingWith(1, 1), listingWith(2, 2), listingWith(3, 3)}
	store := &fakeStore{
		searchFn: func(ctx context.Context, filters transport.FoodListingFilters, role transport.ActorRole, userID uuid.UUID, userLat, userLon float64) ([]transport.FoodListing, error) {
			if role != transport.RoleReceiver {
				t.Errorf("role = %s, want Receiver", role)
			}
			return listings, nil
		},
	}
	enricher := &fakeEnricher{}
	svc := newTestService(store, enricher, &fakeBus{}, nil)

	got, err := svc.GetListings(context.Background(), receiverFilters(), uuid.New(), maps.Coordinate{Latitude: 40, Longitude: -75})
	if err != nil {
		t.Fatalf("GetListings: %v", err)
	}

	if len(enricher.calls) != 1 {
		t.Fatalf("enricher called %d times, want 1 batch call", len(enricher.calls))
	}
	if len(enricher.calls[0].destinations) != 3 {
		t.Fatalf("batch had %d destinations, want 3", len(enricher.calls[0].destinations))
	}
	for i := range got {
		if got[i].Donor.DistanceMiles == nil || *got[i].Donor.DistanceMiles != float64(i+1) {
			t.Errorf("listing %d distance = %v, want %v", i, got[i].Donor.DistanceMiles, float64(i+1))
		}
	}
}

func TestGetListingsDonorViewSkipsEnrichment(t *testing.T) {
	store := &fakeStore{
		searchFn: func(ctx context.Context, filters transport.FoodListingFilters, role transport.ActorRole, userID uuid.UUID, userLat, userLon float64) ([]transport.FoodListing, error) {
			return []transport.FoodListing{listingWith(1, 1)}, nil
		},
	}
	enricher := &fakeEnricher{}
	svc := newTestService(store, enricher, &fakeBus{}, nil)

	got, err := svc.GetListings(context.Background(),
		transport.FoodListingFilters{Status: transport.StatusMyDonatedListings, Amount: 10},
		uuid.New(), maps.Coordinate{})
	if err != nil {
		t.Fatalf("GetListings: %v", err)
	}
	if len(enricher.calls) != 0 {
		t.Errorf("enricher called %d times for donor view, want 0", len(enricher.calls))
	}
	if got[0].Donor.DistanceMiles != nil {
		t.Error("donor view listing carries distance data")
	}
}

func TestGetListingsDelivererTwoLegs(t *testing.T) {
	listing := listingWith(10, 10)
	listing.Claim = &transport.ClaimInfo{
		ID:       uuid.New(),
		Receiver: transport.UserContact{ID: uuid.New(), Latitude: 20, Longitude: 20},
	}
	store := &fakeStore{
		searchFn: func(ctx context.Context, filters transport.FoodListingFilters, role transport.ActorRole, userID uuid.UUID, userLat, userLon float64) ([]transport.FoodListing, error) {
			return []transport.FoodListing{listing}, nil
		},
	}
	enricher := &fakeEnricher{}
	svc := newTestService(store, enricher, &fakeBus{}, nil)

	got, err := svc.GetListings(context.Background(),
		transport.FoodListingFilters{Status: transport.StatusUnscheduledDeliveries, Amount: 10},
		uuid.New(), maps.Coordinate{Latitude: 5, Longitude: 5})
	if err != nil {
		t.Fatalf("GetListings: %v", err)
	}

	if len(enricher.calls) != 2 {
		t.Fatalf("enricher called %d times, want 2 (requester->donor, donor->receiver)", len(enricher.calls))
	}
	if got[0].Donor.DistanceMiles == nil {
		t.Error("donor leg not attached")
	}
	if got[0].Claim.Receiver.DistanceMiles == nil {
		t.Error("receiver leg not attached")
	}
}

func TestGetListingsEnrichmentFailureIsAllOrNothing(t *testing.T) {
	store := &fakeStore{
		searchFn: func(ctx context.Context, filters transport.FoodListingFilters, role transport.ActorRole, userID uuid.UUID, userLat, userLon float64) ([]transport.FoodListing, error) {
			return []transport.FoodListing{listingWith(1, 1)}, nil
		},
	}
	enricher := &fakeEnricher{
		fn: func(origin maps.Coordinate, destinations []maps.Coordinate) ([]maps.DriveResult, error) {
			return nil, errors.New("osrm timeout")
		},
	}
	svc := newTestService(store, enricher, &fakeBus{}, nil)

	got, err := svc.GetListings(context.Background(), receiverFilters(), uuid.New(), maps.Coordinate{})
	if err == nil {
		t.Fatal("expected an error")
	}
	if err.Error() != "search failed" {
		t.Errorf("error = %q, want %q", err.Error(), "search failed")
	}
	if got != nil {
		t.Error("partial results returned despite enrichment failure")
	}
}

func TestUnclaimPublishesDonorAndDeliverer(t *testing.T) {
	listingID := uuid.New()
	deliverer := repository.Contact{ID: uuid.New(), Name: "Dana", Email: "dana@example.com"}
	store := &fakeStore{
		unclaimFn: func(ctx context.Context, lid, rid uuid.UUID) (*repository.UnclaimPayload, error) {
			return &repository.UnclaimPayload{
				FoodTitle: "Bread",
				Donor:     repository.Contact{ID: uuid.New(), Name: "Don", Email: "don@example.com"},
				Deliverer: &deliverer,
			}, nil
		},
	}
	bus := &fakeBus{}
	svc := newTestService(store, &fakeEnricher{}, bus, nil)

	if err := svc.Unclaim(context.Background(), listingID, uuid.New(), "plans changed"); err != nil {
		t.Fatalf("Unclaim: %v", err)
	}

	if len(bus.published) != 1 {
		t.Fatalf("published %d events, want 1", len(bus.published))
	}
	evt, ok := bus.published[0].(events.ListingUnclaimed)
	if !ok {
		t.Fatalf("published %T, want ListingUnclaimed", bus.published[0])
	}
	if evt.ListingID != listingID || evt.FoodTitle != "Bread" || evt.Reason != "plans changed" {
		t.Errorf("event payload mismatch: %+v", evt)
	}
	if evt.Deliverer == nil || evt.Deliverer.Email != "dana@example.com" {
		t.Errorf("deliverer contact missing from event: %+v", evt.Deliverer)
	}
}

func TestUnclaimFailurePublishesNothing(t *testing.T) {
	store := &fakeStore{
		unclaimFn: func(ctx context.Context, lid, rid uuid.UUID) (*repository.UnclaimPayload, error) {
			return nil, apperr.Internal("unexpected error")
		},
	}
	bus := &fakeBus{}
	svc := newTestService(store, &fakeEnricher{}, bus, nil)

	err := svc.Unclaim(context.Background(), uuid.New(), uuid.New(), "reason")
	if err == nil {
		t.Fatal("expected an error")
	}
	if len(bus.published) != 0 {
		t.Errorf("published %d events after failed transition, want 0", len(bus.published))
	}
}

func TestRemovePublishesPerClaimNotices(t *testing.T) {
	deliverer := repository.Contact{ID: uuid.New(), Name: "Dana", Email: "dana@example.com"}
	store := &fakeStore{
		removeFn: func(ctx context.Context, lid, did uuid.UUID) (*repository.RemoveResult, error) {
			return &repository.RemoveResult{
				FoodTitle: "Apples",
				Claims: []repository.RemovedClaim{
					{Receiver: repository.Contact{Email: "r1@example.com"}},
					{Receiver: repository.Contact{Email: "r2@example.com"}, Deliverer: &deliverer},
					{Receiver: repository.Contact{Email: "r3@example.com"}},
				},
			}, nil
		},
	}
	bus := &fakeBus{}
	svc := newTestService(store, &fakeEnricher{}, bus, nil)

	if err := svc.Remove(context.Background(), uuid.New(), uuid.New(), "expired"); err != nil {
		t.Fatalf("Remove: %v", err)
	}

	evt, ok := bus.published[0].(events.ListingRemoved)
	if !ok {
		t.Fatalf("published %T, want ListingRemoved", bus.published[0])
	}
	if len(evt.Claims) != 3 {
		t.Fatalf("event carries %d claims, want 3", len(evt.Claims))
	}
	delivererCount := 0
	for _, notice := range evt.Claims {
		if notice.Deliverer != nil {
			delivererCount++
		}
	}
	if delivererCount != 1 {
		t.Errorf("event carries %d deliverer notices, want 1", delivererCount)
	}
}

func TestScheduleDeliveryImmediateStart(t *testing.T) {
	var gotState transport.DeliveryState
	var gotStart *time.Time
	store := &fakeStore{
		scheduleFn: func(ctx context.Context, claimID, delivererID uuid.UUID, state transport.DeliveryState, scheduledStart *time.Time) (*repository.DeliveryPayload, error) {
			gotState = state
			gotStart = scheduledStart
			return &repository.DeliveryPayload{DeliveryID: uuid.New(), ClaimID: claimID}, nil
		},
	}
	bus := &fakeBus{}
	reminders := &fakeReminders{}
	svc := newTestService(store, &fakeEnricher{}, bus, reminders)

	future := time.Now().Add(4 * time.Hour)
	if err := svc.ScheduleDelivery(context.Background(), uuid.New(), uuid.New(), true, &future); err != nil {
		t.Fatalf("ScheduleDelivery: %v", err)
	}

	if gotState != transport.DeliveryStarted {
		t.Errorf("state = %s, want Started", gotState)
	}
	if gotStart != nil {
		t.Error("immediate start should discard the scheduled time")
	}
	evt, ok := bus.published[0].(events.DeliveryScheduled)
	if !ok || !evt.StartedNow {
		t.Errorf("event = %+v, want DeliveryScheduled with StartedNow", bus.published[0])
	}
	if len(reminders.scheduled) != 0 {
		t.Error("immediate start should not enqueue a reminder")
	}
}

func TestScheduleDeliveryFutureStartEnqueuesReminder(t *testing.T) {
	deliveryID := uuid.New()
	store := &fakeStore{
		scheduleFn: func(ctx context.Context, claimID, delivererID uuid.UUID, state transport.DeliveryState, scheduledStart *time.Time) (*repository.DeliveryPayload, error) {
			if state != transport.DeliveryScheduled {
				t.Errorf("state = %s, want Scheduled", state)
			}
			return &repository.DeliveryPayload{DeliveryID: deliveryID, ClaimID: claimID, ScheduledStart: scheduledStart}, nil
		},
	}
	reminders := &fakeReminders{}
	svc := newTestService(store, &fakeEnricher{}, &fakeBus{}, reminders)

	future := time.Now().Add(4 * time.Hour)
	if err := svc.ScheduleDelivery(context.Background(), uuid.New(), uuid.New(), false, &future); err != nil {
		t.Fatalf("ScheduleDelivery: %v", err)
	}

	if len(reminders.scheduled) != 1 || reminders.scheduled[0] != deliveryID {
		t.Fatalf("reminders = %v, want one for %s", reminders.scheduled, deliveryID)
	}
	if !reminders.remindAt[0].Before(future) {
		t.Error("reminder should fire before the scheduled start")
	}
}

func TestScheduleDeliveryRequiresStartTime(t *testing.T) {
	svc := newTestService(&fakeStore{}, &fakeEnricher{}, &fakeBus{}, nil)

	err := svc.ScheduleDelivery(context.Background(), uuid.New(), uuid.New(), false, nil)
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("error = %v, want validation error", err)
	}
}

func TestCancelDeliveryForwardsExactArguments(t *testing.T) {
	deliveryID := uuid.New()
	delivererID := uuid.New()
	var gotDelivery, gotDeliverer uuid.UUID
	var gotRejected bool
	store := &fakeStore{
		cancelFn: func(ctx context.Context, did, wid uuid.UUID, foodRejected bool) (*repository.DeliveryPayload, error) {
			gotDelivery, gotDeliverer, gotRejected = did, wid, foodRejected
			return &repository.DeliveryPayload{
				DeliveryID: did,
				FoodTitle:  "Soup",
				Donor:      repository.Contact{Email: "don@example.com"},
				Receiver:   repository.Contact{Email: "rec@example.com"},
			}, nil
		},
	}
	bus := &fakeBus{}
	svc := newTestService(store, &fakeEnricher{}, bus, nil)

	if err := svc.CancelDelivery(context.Background(), deliveryID, delivererID, "spoiled", true); err != nil {
		t.Fatalf("CancelDelivery: %v", err)
	}

	if gotDelivery != deliveryID || gotDeliverer != delivererID || !gotRejected {
		t.Errorf("datastore got (%s, %s, %v), want (%s, %s, true)", gotDelivery, gotDeliverer, gotRejected, deliveryID, delivererID)
	}
	evt, ok := bus.published[0].(events.DeliveryCancelled)
	if !ok {
		t.Fatalf("published %T, want DeliveryCancelled", bus.published[0])
	}
	if evt.Reason != "spoiled" || !evt.FoodRejected {
		t.Errorf("event payload mismatch: %+v", evt)
	}
	if evt.Donor.Email != "don@example.com" || evt.Receiver.Email != "rec@example.com" {
		t.Errorf("event contacts mismatch: %+v", evt)
	}
}

func TestUpdateDeliveryStateRejectsUnknownValue(t *testing.T) {
	storeCalled := false
	store := &fakeStore{
		updateFn: func(ctx context.Context, did, wid uuid.UUID, state transport.DeliveryState) error {
			storeCalled = true
			return nil
		},
	}
	svc := newTestService(store, &fakeEnricher{}, &fakeBus{}, nil)

	err := svc.UpdateDeliveryState(context.Background(), uuid.New(), uuid.New(), transport.DeliveryState("Teleported"))
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("error = %v, want validation error", err)
	}
	if storeCalled {
		t.Error("datastore called despite invalid state value")
	}
}

func TestUpdateDeliveryStatePublishesNothing(t *testing.T) {
	store := &fakeStore{
		updateFn: func(ctx context.Context, did, wid uuid.UUID, state transport.DeliveryState) error {
			return nil
		},
	}
	bus := &fakeBus{}
	svc := newTestService(store, &fakeEnricher{}, bus, nil)

	if err := svc.UpdateDeliveryState(context.Background(), uuid.New(), uuid.New(), transport.DeliveryPickedUp); err != nil {
		t.Fatalf("UpdateDeliveryState: %v", err)
	}
	if len(bus.published) != 0 {
		t.Errorf("published %d events, want 0", len(bus.published))
	}
}

func TestTransitionErrorIsGeneric(t *testing.T) {
	store := &fakeStore{
		claimFn: func(ctx context.Context, lid, rid uuid.UUID, times []transport.AvailabilityWindow) error {
			return errors.New("duplicate key value violates unique constraint idx_claims_one_per_listing")
		},
	}
	svc := newTestService(store, &fakeEnricher{}, &fakeBus{}, nil)

	err := svc.Claim(context.Background(), uuid.New(), uuid.New(), nil)
	if err == nil {
		t.Fatal("expected an error")
	}
	if err.Error() != "unexpected error" {
		t.Errorf("error = %q, constraint detail must not leak", err.Error())
	}
}
