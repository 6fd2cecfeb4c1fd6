package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"foodbridge_backend/internal/listings/transport"
	"foodbridge_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Precondition failures and identity mismatches all surface as this one
// message. The underlying constraint detail stays in the wrapped error for
// logging and never reaches the caller.
const transitionFailedMsg = "unexpected error"

func transitionFailed(detail string) *apperr.Error {
	return apperr.Wrap(apperr.KindInternal, transitionFailedMsg, errors.New(detail))
}

// Contact is the notification-relevant slice of an app user.
type Contact struct {
	ID    uuid.UUID
	Name  string
	Email string
}

// UnclaimPayload is returned by Unclaim. Deliverer is nil when the claim had
// no delivery.
type UnclaimPayload struct {
	FoodTitle string
	Donor     Contact
	Deliverer *Contact
}

// RemovedClaim is the per-claim slice of a Remove result.
type RemovedClaim struct {
	Receiver  Contact
	Deliverer *Contact
}

// RemoveResult is returned by Remove: the listing title plus one entry per
// active claim destroyed by the removal.
type RemoveResult struct {
	FoodTitle string
	Claims    []RemovedClaim
}

// DeliveryPayload is returned by ScheduleDelivery and CancelDelivery.
type DeliveryPayload struct {
	DeliveryID     uuid.UUID
	ClaimID        uuid.UUID
	FoodTitle      string
	DelivererName  string
	ScheduledStart *time.Time
	Donor          Contact
	Receiver       Contact
}

// Claim binds a receiver to a listing. Fails if the listing does not exist or
// already has an active claim; the unique index on claims(listing_id) also
// guards the race between two concurrent claimers.
func (r *Repository) Claim(ctx context.Context, listingID, receiverID uuid.UUID, times []transport.AvailabilityWindow) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin claim: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	var claimID uuid.UUID
	err = tx.QueryRow(ctx, `
		INSERT INTO claims (listing_id, receiver_id)
		SELECT $1, $2
		WHERE EXISTS (SELECT 1 FROM food_listings WHERE id = $1)
		  AND NOT EXISTS (SELECT 1 FROM claims WHERE listing_id = $1)
		RETURNING id`,
		listingID, receiverID,
	).Scan(&claimID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return transitionFailed("listing missing or already claimed")
		}
		return fmt.Errorf("failed to create claim: %w", err)
	}

	for _, window := range times {
		if _, err := tx.Exec(ctx, `
			INSERT INTO claim_availability (claim_id, starts_at, ends_at) VALUES ($1, $2, $3)`,
			claimID, window.StartsAt, window.EndsAt,
		); err != nil {
			return fmt.Errorf("failed to record claim availability: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit claim: %w", err)
	}

	return nil
}

// Unclaim releases the caller's claim on a listing and returns the contacts to
// notify. The claim's availability windows and any delivery go with it via
// cascade.
func (r *Repository) Unclaim(ctx context.Context, listingID, receiverID uuid.UUID) (*UnclaimPayload, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin unclaim: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	var payload UnclaimPayload
	var delivererID *uuid.UUID
	var delivererName, delivererEmail *string
	err = tx.QueryRow(ctx, `
		SELECT l.title, du.id, du.name, du.email, wu.id, wu.name, wu.email
		FROM claims c
		JOIN food_listings l ON l.id = c.listing_id
		JOIN app_users du ON du.id = l.donor_id
		LEFT JOIN deliveries d ON d.claim_id = c.id
		LEFT JOIN app_users wu ON wu.id = d.deliverer_id
		WHERE c.listing_id = $1 AND c.receiver_id = $2`,
		listingID, receiverID,
	).Scan(
		&payload.FoodTitle,
		&payload.Donor.ID, &payload.Donor.Name, &payload.Donor.Email,
		&delivererID, &delivererName, &delivererEmail,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, transitionFailed("no active claim for caller")
		}
		return nil, fmt.Errorf("failed to load unclaim payload: %w", err)
	}

	if delivererID != nil {
		payload.Deliverer = &Contact{ID: *delivererID, Name: deref(delivererName), Email: deref(delivererEmail)}
	}

	result, err := tx.Exec(ctx, `DELETE FROM claims WHERE listing_id = $1 AND receiver_id = $2`,
		listingID, receiverID)
	if err != nil {
		return nil, fmt.Errorf("failed to delete claim: %w", err)
	}
	if result.RowsAffected() != 1 {
		return nil, transitionFailed(fmt.Sprintf("unclaim affected %d rows", result.RowsAffected()))
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit unclaim: %w", err)
	}

	return &payload, nil
}

// Remove deletes a donor's listing and returns one RemovedClaim per active
// claim the deletion destroyed.
func (r *Repository) Remove(ctx context.Context, listingID, donorID uuid.UUID) (*RemoveResult, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin remove: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	var res RemoveResult
	err = tx.QueryRow(ctx, `SELECT title FROM food_listings WHERE id = $1 AND donor_id = $2`,
		listingID, donorID).Scan(&res.FoodTitle)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, transitionFailed("listing missing or not owned by caller")
		}
		return nil, fmt.Errorf("failed to load listing for removal: %w", err)
	}

	rows, err := tx.Query(ctx, `
		SELECT ru.id, ru.name, ru.email, wu.id, wu.name, wu.email
		FROM claims c
		JOIN app_users ru ON ru.id = c.receiver_id
		LEFT JOIN deliveries d ON d.claim_id = c.id
		LEFT JOIN app_users wu ON wu.id = d.deliverer_id
		WHERE c.listing_id = $1`,
		listingID)
	if err != nil {
		return nil, fmt.Errorf("failed to load affected claims: %w", err)
	}

	for rows.Next() {
		var claim RemovedClaim
		var delivererID *uuid.UUID
		var delivererName, delivererEmail *string
		if err := rows.Scan(
			&claim.Receiver.ID, &claim.Receiver.Name, &claim.Receiver.Email,
			&delivererID, &delivererName, &delivererEmail,
		); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan affected claim: %w", err)
		}
		if delivererID != nil {
			claim.Deliverer = &Contact{ID: *delivererID, Name: deref(delivererName), Email: deref(delivererEmail)}
		}
		res.Claims = append(res.Claims, claim)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate affected claims: %w", err)
	}

	result, err := tx.Exec(ctx, `DELETE FROM food_listings WHERE id = $1 AND donor_id = $2`,
		listingID, donorID)
	if err != nil {
		return nil, fmt.Errorf("failed to delete listing: %w", err)
	}
	if result.RowsAffected() != 1 {
		return nil, transitionFailed(fmt.Sprintf("remove affected %d rows", result.RowsAffected()))
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit remove: %w", err)
	}

	return &res, nil
}

// ScheduleDelivery binds a deliverer to a claim. state must already be a valid
// delivery state (Started when the deliverer leaves immediately, Scheduled
// otherwise). Fails if the claim is missing or already has a delivery; the
// unique index on deliveries(claim_id) guards the race.
func (r *Repository) ScheduleDelivery(ctx context.Context, claimID, delivererID uuid.UUID, state transport.DeliveryState, scheduledStart *time.Time) (*DeliveryPayload, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin schedule delivery: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	var deliveryID uuid.UUID
	err = tx.QueryRow(ctx, `
		INSERT INTO deliveries (claim_id, deliverer_id, state, scheduled_start)
		SELECT $1, $2, $3, $4
		WHERE EXISTS (SELECT 1 FROM claims WHERE id = $1)
		  AND NOT EXISTS (SELECT 1 FROM deliveries WHERE claim_id = $1)
		RETURNING id`,
		claimID, delivererID, string(state), scheduledStart,
	).Scan(&deliveryID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, transitionFailed("claim missing or already has a delivery")
		}
		return nil, fmt.Errorf("failed to create delivery: %w", err)
	}

	payload := DeliveryPayload{
		DeliveryID:     deliveryID,
		ClaimID:        claimID,
		ScheduledStart: scheduledStart,
	}
	err = tx.QueryRow(ctx, `
		SELECT l.title, wu.name, du.id, du.name, du.email, ru.id, ru.name, ru.email
		FROM claims c
		JOIN food_listings l ON l.id = c.listing_id
		JOIN app_users du ON du.id = l.donor_id
		JOIN app_users ru ON ru.id = c.receiver_id
		JOIN app_users wu ON wu.id = $2
		WHERE c.id = $1`,
		claimID, delivererID,
	).Scan(
		&payload.FoodTitle, &payload.DelivererName,
		&payload.Donor.ID, &payload.Donor.Name, &payload.Donor.Email,
		&payload.Receiver.ID, &payload.Receiver.Name, &payload.Receiver.Email,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load delivery payload: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit schedule delivery: %w", err)
	}

	return &payload, nil
}

// CancelDelivery destroys the caller's delivery and records whether the food
// was rejected on the surviving claim.
func (r *Repository) CancelDelivery(ctx context.Context, deliveryID, delivererID uuid.UUID, foodRejected bool) (*DeliveryPayload, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin cancel delivery: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	payload := DeliveryPayload{DeliveryID: deliveryID}
	err = tx.QueryRow(ctx, `
		SELECT d.claim_id, d.scheduled_start, l.title, wu.name,
		       du.id, du.name, du.email, ru.id, ru.name, ru.email
		FROM deliveries d
		JOIN claims c ON c.id = d.claim_id
		JOIN food_listings l ON l.id = c.listing_id
		JOIN app_users du ON du.id = l.donor_id
		JOIN app_users ru ON ru.id = c.receiver_id
		JOIN app_users wu ON wu.id = d.deliverer_id
		WHERE d.id = $1 AND d.deliverer_id = $2`,
		deliveryID, delivererID,
	).Scan(
		&payload.ClaimID, &payload.ScheduledStart, &payload.FoodTitle, &payload.DelivererName,
		&payload.Donor.ID, &payload.Donor.Name, &payload.Donor.Email,
		&payload.Receiver.ID, &payload.Receiver.Name, &payload.Receiver.Email,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, transitionFailed("delivery missing or not owned by caller")
		}
		return nil, fmt.Errorf("failed to load cancel payload: %w", err)
	}

	result, err := tx.Exec(ctx, `UPDATE claims SET food_rejected = $2 WHERE id = $1`,
		payload.ClaimID, foodRejected)
	if err != nil {
		return nil, fmt.Errorf("failed to record food rejection: %w", err)
	}
	if result.RowsAffected() != 1 {
		return nil, transitionFailed(fmt.Sprintf("food rejection update affected %d rows", result.RowsAffected()))
	}

	result, err = tx.Exec(ctx, `DELETE FROM deliveries WHERE id = $1 AND deliverer_id = $2`,
		deliveryID, delivererID)
	if err != nil {
		return nil, fmt.Errorf("failed to delete delivery: %w", err)
	}
	if result.RowsAffected() != 1 {
		return nil, transitionFailed(fmt.Sprintf("cancel delivery affected %d rows", result.RowsAffected()))
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit cancel delivery: %w", err)
	}

	return &payload, nil
}

// UpdateDeliveryState moves the caller's delivery to the given state. Forward
// progression is not enforced; skip-ahead transitions are accepted.
func (r *Repository) UpdateDeliveryState(ctx context.Context, deliveryID, delivererID uuid.UUID, state transport.DeliveryState) error {
	result, err := r.pool.Exec(ctx, `
		UPDATE deliveries SET state = $3, updated_at = now()
		WHERE id = $1 AND deliverer_id = $2`,
		deliveryID, delivererID, string(state))
	if err != nil {
		return fmt.Errorf("failed to update delivery state: %w", err)
	}
	if result.RowsAffected() != 1 {
		return transitionFailed(fmt.Sprintf("state update affected %d rows", result.RowsAffected()))
	}

	return nil
}
