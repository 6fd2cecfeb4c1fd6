// Package service implements the listing lifecycle and the role-aware query
// orchestration.
package service

import (
	"context"
	"time"

	"foodbridge_backend/internal/events"
	"foodbridge_backend/internal/listings/repository"
	"foodbridge_backend/internal/listings/transport"
	"foodbridge_backend/internal/maps"
	"foodbridge_backend/platform/apperr"
	"foodbridge_backend/platform/logger"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// reminderLead is how far before a scheduled start the deliverer is reminded.
const reminderLead = time.Hour

// ListingStore is the atomic datastore collaborator behind the lifecycle
// operations and the listing search.
type ListingStore interface {
	SearchListings(ctx context.Context, filters transport.FoodListingFilters, role transport.ActorRole, userID uuid.UUID, userLat, userLon float64) ([]transport.FoodListing, error)
	Claim(ctx context.Context, listingID, receiverID uuid.UUID, times []transport.AvailabilityWindow) error
	Unclaim(ctx context.Context, listingID, receiverID uuid.UUID) (*repository.UnclaimPayload, error)
	Remove(ctx context.Context, listingID, donorID uuid.UUID) (*repository.RemoveResult, error)
	ScheduleDelivery(ctx context.Context, claimID, delivererID uuid.UUID, state transport.DeliveryState, scheduledStart *time.Time) (*repository.DeliveryPayload, error)
	CancelDelivery(ctx context.Context, deliveryID, delivererID uuid.UUID, foodRejected bool) (*repository.DeliveryPayload, error)
	UpdateDeliveryState(ctx context.Context, deliveryID, delivererID uuid.UUID, state transport.DeliveryState) error
}

// DistanceEnricher is the geocoding collaborator. Order-preserving and
// all-or-nothing.
type DistanceEnricher interface {
	DrivingDistanceTime(ctx context.Context, origin maps.Coordinate, destinations []maps.Coordinate) ([]maps.DriveResult, error)
}

// ReminderScheduler enqueues a delivery-start reminder for future processing.
type ReminderScheduler interface {
	ScheduleDeliveryReminder(ctx context.Context, deliveryID uuid.UUID, remindAt time.Time) error
}

// Service provides business logic for food listings.
type Service struct {
	store     ListingStore
	enricher  DistanceEnricher
	eventBus  events.Bus
	reminders ReminderScheduler
	log       *logger.Logger
}

// New creates a new listings service. reminders may be nil when no scheduler
// backend is configured.
func New(store ListingStore, enricher DistanceEnricher, eventBus events.Bus, reminders ReminderScheduler, log *logger.Logger) *Service {
	return &Service{
		store:     store,
		enricher:  enricher,
		eventBus:  eventBus,
		reminders: reminders,
		log:       log,
	}
}

// GetListings sanitizes the filters, derives the querying role from the
// requested status, runs the search, and applies role-specific distance
// enrichment. Search and enrichment failures surface as one generic error;
// the detail is only logged.
func (s *Service) GetListings(ctx context.Context, filters transport.FoodListingFilters, userID uuid.UUID, userCoord maps.Coordinate) ([]transport.FoodListing, error) {
	sanitized, err := transport.SanitizeFilters(filters)
	if err != nil {
		return nil, err
	}

	role := transport.RoleForStatus(sanitized.Status)

	listings, err := s.store.SearchListings(ctx, sanitized, role, userID, userCoord.Latitude, userCoord.Longitude)
	if err != nil {
		s.log.Error("listing search failed", "status", sanitized.Status, "error", err)
		return nil, apperr.Internal("search failed")
	}

	switch role {
	case transport.RoleReceiver:
		err = s.enrichReceiverView(ctx, listings, userCoord)
	case transport.RoleDeliverer:
		err = s.enrichDelivererView(ctx, listings, userCoord)
	default:
		// Donor cart: distance is meaningless in the donor's own listings.
	}
	if err != nil {
		s.log.Error("distance enrichment failed", "status", sanitized.Status, "error", err)
		return nil, apperr.Internal("search failed")
	}

	return listings, nil
}

// enrichReceiverView attaches requester-to-donor distance to every result
// with a single batch lookup.
func (s *Service) enrichReceiverView(ctx context.Context, listings []transport.FoodListing, userCoord maps.Coordinate) error {
	destinations := make([]maps.Coordinate, len(listings))
	for i := range listings {
		destinations[i] = maps.Coordinate{
			Latitude:  listings[i].Donor.Latitude,
			Longitude: listings[i].Donor.Longitude,
		}
	}

	results, err := s.enricher.DrivingDistanceTime(ctx, userCoord, destinations)
	if err != nil {
		return err
	}

	for i := range listings {
		attachDrive(&listings[i].Donor, results[i])
	}
	return nil
}

// enrichDelivererView attaches two legs per result: requester-to-donor and
// donor-to-receiver. The legs run concurrently; either failure fails the call.
func (s *Service) enrichDelivererView(ctx context.Context, listings []transport.FoodListing, userCoord maps.Coordinate) error {
	if len(listings) == 0 {
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)

	donorLeg := make([]maps.DriveResult, len(listings))
	g.Go(func() error {
		destinations := make([]maps.Coordinate, len(listings))
		for i := range listings {
			destinations[i] = maps.Coordinate{
				Latitude:  listings[i].Donor.Latitude,
				Longitude: listings[i].Donor.Longitude,
			}
		}
		results, err := s.enricher.DrivingDistanceTime(gctx, userCoord, destinations)
		if err != nil {
			return err
		}
		copy(donorLeg, results)
		return nil
	})

	receiverLeg := make([]*maps.DriveResult, len(listings))
	for i := range listings {
		if listings[i].Claim == nil {
			continue
		}
		g.Go(func() error {
			origin := maps.Coordinate{
				Latitude:  listings[i].Donor.Latitude,
				Longitude: listings[i].Donor.Longitude,
			}
			destination := maps.Coordinate{
				Latitude:  listings[i].Claim.Receiver.Latitude,
				Longitude: listings[i].Claim.Receiver.Longitude,
			}
			results, err := s.enricher.DrivingDistanceTime(gctx, origin, []maps.Coordinate{destination})
			if err != nil {
				return err
			}
			receiverLeg[i] = &results[0]
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	for i := range listings {
		attachDrive(&listings[i].Donor, donorLeg[i])
		if receiverLeg[i] != nil {
			attachDrive(&listings[i].Claim.Receiver, *receiverLeg[i])
		}
	}
	return nil
}

func attachDrive(contact *transport.UserContact, drive maps.DriveResult) {
	distance := drive.DistanceMiles
	duration := drive.DurationMinutes
	contact.DistanceMiles = &distance
	contact.DurationMinutes = &duration
}

// Claim binds the calling receiver to a listing. No notification is produced.
func (s *Service) Claim(ctx context.Context, listingID, receiverID uuid.UUID, times []transport.AvailabilityWindow) error {
	if err := s.store.Claim(ctx, listingID, receiverID, times); err != nil {
		return s.transitionErr("claim", err)
	}
	return nil
}

// Unclaim releases the caller's claim and notifies the donor, plus the
// deliverer when a delivery existed.
func (s *Service) Unclaim(ctx context.Context, listingID, receiverID uuid.UUID, reason string) error {
	payload, err := s.store.Unclaim(ctx, listingID, receiverID)
	if err != nil {
		return s.transitionErr("unclaim", err)
	}

	evt := events.ListingUnclaimed{
		BaseEvent: events.NewBaseEvent(),
		ListingID: listingID,
		FoodTitle: payload.FoodTitle,
		Reason:    reason,
		Donor:     toActorContact(payload.Donor),
	}
	if payload.Deliverer != nil {
		deliverer := toActorContact(*payload.Deliverer)
		evt.Deliverer = &deliverer
	}
	s.eventBus.Publish(ctx, evt)

	return nil
}

// Remove deletes the caller's listing and notifies every receiver whose claim
// was destroyed, plus any deliverer whose delivery went with it.
func (s *Service) Remove(ctx context.Context, listingID, donorID uuid.UUID, reason string) error {
	res, err := s.store.Remove(ctx, listingID, donorID)
	if err != nil {
		return s.transitionErr("remove", err)
	}

	evt := events.ListingRemoved{
		BaseEvent: events.NewBaseEvent(),
		ListingID: listingID,
		FoodTitle: res.FoodTitle,
		Reason:    reason,
		Claims:    make([]events.ClaimRemovalNotice, 0, len(res.Claims)),
	}
	for _, claim := range res.Claims {
		notice := events.ClaimRemovalNotice{Receiver: toActorContact(claim.Receiver)}
		if claim.Deliverer != nil {
			deliverer := toActorContact(*claim.Deliverer)
			notice.Deliverer = &deliverer
		}
		evt.Claims = append(evt.Claims, notice)
	}
	s.eventBus.Publish(ctx, evt)

	return nil
}

// ScheduleDelivery binds the calling deliverer to a claim, either starting
// immediately or at a scheduled time, and notifies donor and receiver. A
// future scheduled start also enqueues a reminder for the deliverer.
func (s *Service) ScheduleDelivery(ctx context.Context, claimID, delivererID uuid.UUID, startImmediately bool, scheduledStart *time.Time) error {
	if !startImmediately && scheduledStart == nil {
		return apperr.Validation("scheduledStart is required unless starting immediately")
	}

	state := transport.DeliveryScheduled
	if startImmediately {
		state = transport.DeliveryStarted
		scheduledStart = nil
	}

	payload, err := s.store.ScheduleDelivery(ctx, claimID, delivererID, state, scheduledStart)
	if err != nil {
		return s.transitionErr("schedule delivery", err)
	}

	s.eventBus.Publish(ctx, events.DeliveryScheduled{
		BaseEvent:      events.NewBaseEvent(),
		DeliveryID:     payload.DeliveryID,
		ClaimID:        payload.ClaimID,
		FoodTitle:      payload.FoodTitle,
		DelivererName:  payload.DelivererName,
		ScheduledStart: payload.ScheduledStart,
		StartedNow:     startImmediately,
		Donor:          toActorContact(payload.Donor),
		Receiver:       toActorContact(payload.Receiver),
	})

	if s.reminders != nil && scheduledStart != nil {
		remindAt := scheduledStart.Add(-reminderLead)
		if remindAt.After(time.Now()) {
			if err := s.reminders.ScheduleDeliveryReminder(ctx, payload.DeliveryID, remindAt); err != nil {
				s.log.Error("failed to enqueue delivery reminder", "deliveryId", payload.DeliveryID, "error", err)
			}
		}
	}

	return nil
}

// CancelDelivery destroys the caller's delivery, leaving the claim intact, and
// notifies donor and receiver.
func (s *Service) CancelDelivery(ctx context.Context, deliveryID, delivererID uuid.UUID, reason string, foodRejected bool) error {
	payload, err := s.store.CancelDelivery(ctx, deliveryID, delivererID, foodRejected)
	if err != nil {
		return s.transitionErr("cancel delivery", err)
	}

	s.eventBus.Publish(ctx, events.DeliveryCancelled{
		BaseEvent:     events.NewBaseEvent(),
		DeliveryID:    payload.DeliveryID,
		FoodTitle:     payload.FoodTitle,
		Reason:        reason,
		FoodRejected:  foodRejected,
		DelivererName: payload.DelivererName,
		Donor:         toActorContact(payload.Donor),
		Receiver:      toActorContact(payload.Receiver),
	})

	return nil
}

// UpdateDeliveryState advances the caller's delivery. The state value is
// validated locally; forward-only progression is not enforced, and no
// notification is produced.
func (s *Service) UpdateDeliveryState(ctx context.Context, deliveryID, delivererID uuid.UUID, state transport.DeliveryState) error {
	if !transport.ValidDeliveryState(state) {
		return apperr.Validation("invalid delivery state")
	}

	if err := s.store.UpdateDeliveryState(ctx, deliveryID, delivererID, state); err != nil {
		return s.transitionErr("update delivery state", err)
	}
	return nil
}

// transitionErr keeps typed domain errors intact and collapses everything else
// into one generic message, logging the detail.
func (s *Service) transitionErr(op string, err error) error {
	if apperr.GetKind(err) != apperr.KindUnknown {
		s.log.Error("transition rejected", "op", op, "error", err)
		return err
	}
	s.log.Error("transition failed", "op", op, "error", err)
	return apperr.Internal("unexpected error")
}

func toActorContact(c repository.Contact) events.ActorContact {
	return events.ActorContact{ID: c.ID, Name: c.Name, Email: c.Email}
}
