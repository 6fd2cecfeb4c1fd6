// Package repository provides database operations for food listings and their
// claim/delivery chains.
package repository

import (
	"context"
	"fmt"
	"time"

	"foodbridge_backend/internal/listings/transport"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository provides database operations for food listings.
type Repository struct {
	pool *pgxpool.Pool
}

// New creates a new listings repository.
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const listingSelectColumns = `
	l.id, l.title, l.description, l.needs_refrigeration, l.created_at,
	du.id, du.name, du.email, du.phone, du.address_street, du.address_city,
	du.address_zip_code, du.latitude, du.longitude,
	c.id,
	ru.id, ru.name, ru.email, ru.phone, ru.address_street, ru.address_city,
	ru.address_zip_code, ru.latitude, ru.longitude,
	d.id, d.deliverer_id, wu.name, d.state, d.scheduled_start`

const listingFromClause = `
	FROM food_listings l
	JOIN app_users du ON du.id = l.donor_id
	LEFT JOIN claims c ON c.listing_id = l.id
	LEFT JOIN app_users ru ON ru.id = c.receiver_id
	LEFT JOIN deliveries d ON d.claim_id = c.id
	LEFT JOIN app_users wu ON wu.id = d.deliverer_id`

// SearchListings runs the role-aware listing search with sanitized filters.
// Filters must have passed through transport.SanitizeFilters first.
func (r *Repository) SearchListings(ctx context.Context, filters transport.FoodListingFilters, role transport.ActorRole, userID uuid.UUID, userLat, userLon float64) ([]transport.FoodListing, error) {
	where, args := buildSearchWhere(filters, userID, userLat, userLon)

	query := fmt.Sprintf(`SELECT %s %s %s ORDER BY l.created_at DESC LIMIT $%d OFFSET $%d`,
		listingSelectColumns, listingFromClause, where, len(args)+1, len(args)+2)
	args = append(args, filters.Amount, filters.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to search listings: %w", err)
	}
	defer rows.Close()

	var listings []transport.FoodListing
	var listingIDs []uuid.UUID
	var claimIDs []uuid.UUID
	claimIndex := make(map[uuid.UUID]int)

	for rows.Next() {
		var (
			listing transport.FoodListing
			donor   transport.UserContact

			claimID *uuid.UUID

			recvID      *uuid.UUID
			recvName    *string
			recvEmail   *string
			recvPhone   *string
			recvStreet  *string
			recvCity    *string
			recvZipCode *string
			recvLat     *float64
			recvLon     *float64

			deliveryID     *uuid.UUID
			delivererID    *uuid.UUID
			delivererName  *string
			deliveryState  *string
			scheduledStart *time.Time
		)

		if err := rows.Scan(
			&listing.ID, &listing.Title, &listing.Description, &listing.NeedsRefrigeration, &listing.CreatedAt,
			&donor.ID, &donor.Name, &donor.Email, &donor.Phone, &donor.Street, &donor.City,
			&donor.ZipCode, &donor.Latitude, &donor.Longitude,
			&claimID,
			&recvID, &recvName, &recvEmail, &recvPhone, &recvStreet, &recvCity,
			&recvZipCode, &recvLat, &recvLon,
			&deliveryID, &delivererID, &delivererName, &deliveryState, &scheduledStart,
		); err != nil {
			return nil, fmt.Errorf("failed to scan listing: %w", err)
		}

		listing.Donor = donor

		if claimID != nil && recvID != nil {
			claim := &transport.ClaimInfo{
				ID: *claimID,
				Receiver: transport.UserContact{
					ID:        *recvID,
					Name:      deref(recvName),
					Email:     deref(recvEmail),
					Phone:     recvPhone,
					Street:    deref(recvStreet),
					City:      deref(recvCity),
					ZipCode:   deref(recvZipCode),
					Latitude:  derefFloat(recvLat),
					Longitude: derefFloat(recvLon),
				},
			}
			if deliveryID != nil && delivererID != nil {
				claim.Delivery = &transport.DeliveryInfo{
					ID:             *deliveryID,
					DelivererID:    *delivererID,
					DelivererName:  deref(delivererName),
					State:          transport.DeliveryState(deref(deliveryState)),
					ScheduledStart: scheduledStart,
				}
			}
			listing.Claim = claim
			claimIndex[*claimID] = len(listings)
			claimIDs = append(claimIDs, *claimID)
		}

		listingIDs = append(listingIDs, listing.ID)
		listings = append(listings, listing)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate listings: %w", err)
	}

	if len(listings) == 0 {
		return []transport.FoodListing{}, nil
	}

	if err := r.attachListingDetails(ctx, listings, listingIDs); err != nil {
		return nil, err
	}
	if err := r.attachClaimAvailability(ctx, listings, claimIDs, claimIndex); err != nil {
		return nil, err
	}

	return listings, nil
}

// buildSearchWhere assembles the WHERE clause for a sanitized filter set. The
// status already encodes the querying role, so no separate role predicate is
// needed.
func buildSearchWhere(filters transport.FoodListingFilters, userID uuid.UUID, userLat, userLon float64) (string, []interface{}) {
	where := "WHERE 1=1"
	args := []interface{}{}
	argIndex := 1

	add := func(clause string, values ...interface{}) {
		placeholders := make([]interface{}, len(values))
		for i := range values {
			placeholders[i] = argIndex
			args = append(args, values[i])
			argIndex++
		}
		where += fmt.Sprintf(clause, placeholders...)
	}

	switch filters.Status {
	case transport.StatusUnclaimedListings:
		where += " AND c.id IS NULL"
	case transport.StatusMyClaimedListings:
		add(" AND c.receiver_id = $%d", userID)
	case transport.StatusMyDonatedListings:
		add(" AND l.donor_id = $%d", userID)
	case transport.StatusUnscheduledDeliveries:
		where += " AND c.id IS NOT NULL AND d.id IS NULL"
	case transport.StatusMyScheduledDeliveries:
		add(" AND d.deliverer_id = $%d", userID)
	}

	if filters.FoodTypes != nil {
		add(" AND EXISTS (SELECT 1 FROM food_listing_types flt WHERE flt.listing_id = l.id AND flt.food_type = ANY($%d))", filters.FoodTypes)
	}

	if filters.Refrigeration != nil {
		add(" AND l.needs_refrigeration = $%d", *filters.Refrigeration)
	}

	availability := buildAvailabilityClause(filters)
	if availability != "" {
		where += availability
	}

	if filters.MaxDistance != nil {
		add(` AND `+haversineExpr+` <= $%d`, userLat, userLon, userLat, *filters.MaxDistance)
	}

	if filters.ListingID != nil {
		add(" AND l.id = $%d", *filters.ListingID)
	}
	if filters.ClaimID != nil {
		add(" AND c.id = $%d", *filters.ClaimID)
	}
	if filters.DeliveryID != nil {
		add(" AND d.id = $%d", *filters.DeliveryID)
	}

	return where, args
}

// haversineExpr computes great-circle miles between the requester (args:
// lat, lon, lat) and the donor coordinates. 3958.8 is the earth radius in miles.
const haversineExpr = `(3958.8 * acos(LEAST(1.0,
	cos(radians($%d)) * cos(radians(du.latitude)) * cos(radians(du.longitude) - radians($%d)) +
	sin(radians($%d)) * sin(radians(du.latitude)))))`

func buildAvailabilityClause(filters transport.FoodListingFilters) string {
	var clauses []string
	if filters.MatchRegularAvailability {
		clauses = append(clauses, `EXISTS (SELECT 1 FROM food_listing_availability fla
			WHERE fla.listing_id = l.id AND fla.ends_at > now())`)
	}
	if filters.MatchAvailableNow {
		clauses = append(clauses, `EXISTS (SELECT 1 FROM food_listing_availability fla
			WHERE fla.listing_id = l.id AND fla.starts_at <= now() AND fla.ends_at > now())`)
	}
	switch len(clauses) {
	case 0:
		return ""
	case 1:
		return " AND " + clauses[0]
	default:
		return " AND (" + clauses[0] + " OR " + clauses[1] + ")"
	}
}

// attachListingDetails batch-loads food types and availability windows.
func (r *Repository) attachListingDetails(ctx context.Context, listings []transport.FoodListing, listingIDs []uuid.UUID) error {
	index := make(map[uuid.UUID]int, len(listings))
	for i := range listings {
		index[listings[i].ID] = i
		listings[i].FoodTypes = []string{}
	}

	typeRows, err := r.pool.Query(ctx,
		`SELECT listing_id, food_type FROM food_listing_types WHERE listing_id = ANY($1) ORDER BY food_type`,
		listingIDs)
	if err != nil {
		return fmt.Errorf("failed to load listing food types: %w", err)
	}
	defer typeRows.Close()

	for typeRows.Next() {
		var listingID uuid.UUID
		var foodType string
		if err := typeRows.Scan(&listingID, &foodType); err != nil {
			return fmt.Errorf("failed to scan listing food type: %w", err)
		}
		if i, ok := index[listingID]; ok {
			listings[i].FoodTypes = append(listings[i].FoodTypes, foodType)
		}
	}
	if err := typeRows.Err(); err != nil {
		return fmt.Errorf("failed to iterate listing food types: %w", err)
	}

	availRows, err := r.pool.Query(ctx,
		`SELECT listing_id, starts_at, ends_at FROM food_listing_availability WHERE listing_id = ANY($1) ORDER BY starts_at`,
		listingIDs)
	if err != nil {
		return fmt.Errorf("failed to load listing availability: %w", err)
	}
	defer availRows.Close()

	for availRows.Next() {
		var listingID uuid.UUID
		var window transport.AvailabilityWindow
		if err := availRows.Scan(&listingID, &window.StartsAt, &window.EndsAt); err != nil {
			return fmt.Errorf("failed to scan listing availability: %w", err)
		}
		if i, ok := index[listingID]; ok {
			listings[i].Availability = append(listings[i].Availability, window)
		}
	}
	if err := availRows.Err(); err != nil {
		return fmt.Errorf("failed to iterate listing availability: %w", err)
	}

	return nil
}

// attachClaimAvailability batch-loads receiver-submitted availability windows.
func (r *Repository) attachClaimAvailability(ctx context.Context, listings []transport.FoodListing, claimIDs []uuid.UUID, claimIndex map[uuid.UUID]int) error {
	if len(claimIDs) == 0 {
		return nil
	}

	rows, err := r.pool.Query(ctx,
		`SELECT claim_id, starts_at, ends_at FROM claim_availability WHERE claim_id = ANY($1) ORDER BY starts_at`,
		claimIDs)
	if err != nil {
		return fmt.Errorf("failed to load claim availability: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var claimID uuid.UUID
		var window transport.AvailabilityWindow
		if err := rows.Scan(&claimID, &window.StartsAt, &window.EndsAt); err != nil {
			return fmt.Errorf("failed to scan claim availability: %w", err)
		}
		if i, ok := claimIndex[claimID]; ok && listings[i].Claim != nil {
			listings[i].Claim.SpecificAvailability = append(listings[i].Claim.SpecificAvailability, window)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to iterate claim availability: %w", err)
	}

	return nil
}

func deref(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}

func derefFloat(value *float64) float64 {
	if value == nil {
		return 0
	}
	return *value
}
