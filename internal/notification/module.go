// Package notification subscribes to listing lifecycle events and fans out
// role-specific emails to every affected actor. Domain modules publish events
// and never talk to email providers directly.
package notification

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"foodbridge_backend/internal/email"
	"foodbridge_backend/internal/events"
	apphttp "foodbridge_backend/internal/http"
	"foodbridge_backend/platform/logger"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const startLineTimeFormat = "Monday, Jan 2 2006 at 3:04 PM"

// Module handles all notification-related event subscriptions.
type Module struct {
	pool   *pgxpool.Pool
	sender email.Sender
	log    *logger.Logger
}

// New creates a new notification module. pool may be nil in tests; it is only
// used to resolve reminder details.
func New(pool *pgxpool.Pool, sender email.Sender, log *logger.Logger) *Module {
	return &Module{
		pool:   pool,
		sender: sender,
		log:    log,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string { return "notification" }

// RegisterRoutes is a no-op: this module has no HTTP surface.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {}

// RegisterHandlers subscribes to all relevant domain events on the event bus.
func (m *Module) RegisterHandlers(bus *events.InMemoryBus) {
	bus.Subscribe(events.ListingUnclaimed{}.EventName(), m)
	bus.Subscribe(events.ListingRemoved{}.EventName(), m)
	bus.Subscribe(events.DeliveryScheduled{}.EventName(), m)
	bus.Subscribe(events.DeliveryCancelled{}.EventName(), m)
	bus.Subscribe(events.DeliveryReminderDue{}.EventName(), m)

	m.log.Info("notification module registered event handlers")
}

// Handle routes events to the appropriate handler method.
func (m *Module) Handle(ctx context.Context, event events.Event) error {
	switch e := event.(type) {
	case events.ListingUnclaimed:
		return m.handleListingUnclaimed(ctx, e)
	case events.ListingRemoved:
		return m.handleListingRemoved(ctx, e)
	case events.DeliveryScheduled:
		return m.handleDeliveryScheduled(ctx, e)
	case events.DeliveryCancelled:
		return m.handleDeliveryCancelled(ctx, e)
	case events.DeliveryReminderDue:
		return m.handleDeliveryReminderDue(ctx, e)
	default:
		m.log.Warn("unhandled event type", "event", event.EventName())
		return nil
	}
}

// sendJob is one recipient's send within a fanout batch.
type sendJob struct {
	recipientRole  string
	recipientEmail string
	send           func(ctx context.Context) error
}

// runJobs dispatches every job concurrently and waits for all of them. Each
// failure is logged in isolation and then discarded: one failing recipient
// never skips a sibling send, and nothing propagates to the publisher of the
// triggering event.
func (m *Module) runJobs(ctx context.Context, event string, jobs []sendJob) {
	var wg sync.WaitGroup
	for _, job := range jobs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := job.send(ctx); err != nil {
				m.log.NotificationFailure(event, job.recipientRole, job.recipientEmail, err)
			}
		}()
	}
	wg.Wait()
}

func (m *Module) handleListingUnclaimed(ctx context.Context, e events.ListingUnclaimed) error {
	jobs := []sendJob{{
		recipientRole:  "donor",
		recipientEmail: e.Donor.Email,
		send: func(ctx context.Context) error {
			return m.sender.SendClaimReleasedEmail(ctx, e.Donor.Email, e.Donor.Name, e.FoodTitle, e.Reason)
		},
	}}
	if e.Deliverer != nil {
		deliverer := *e.Deliverer
		jobs = append(jobs, sendJob{
			recipientRole:  "deliverer",
			recipientEmail: deliverer.Email,
			send: func(ctx context.Context) error {
				return m.sender.SendDeliveryCalledOffEmail(ctx, deliverer.Email, deliverer.Name, e.FoodTitle)
			},
		})
	}

	m.runJobs(ctx, e.EventName(), jobs)
	return nil
}

func (m *Module) handleListingRemoved(ctx context.Context, e events.ListingRemoved) error {
	var jobs []sendJob
	for _, notice := range e.Claims {
		receiver := notice.Receiver
		jobs = append(jobs, sendJob{
			recipientRole:  "receiver",
			recipientEmail: receiver.Email,
			send: func(ctx context.Context) error {
				return m.sender.SendListingRemovedEmail(ctx, receiver.Email, receiver.Name, e.FoodTitle, e.Reason)
			},
		})
		if notice.Deliverer != nil {
			deliverer := *notice.Deliverer
			jobs = append(jobs, sendJob{
				recipientRole:  "deliverer",
				recipientEmail: deliverer.Email,
				send: func(ctx context.Context) error {
					return m.sender.SendListingRemovedDeliveryEmail(ctx, deliverer.Email, deliverer.Name, e.FoodTitle)
				},
			})
		}
	}

	m.runJobs(ctx, e.EventName(), jobs)
	return nil
}

func (m *Module) handleDeliveryScheduled(ctx context.Context, e events.DeliveryScheduled) error {
	startLine := "The deliverer is on their way now."
	if !e.StartedNow && e.ScheduledStart != nil {
		startLine = fmt.Sprintf("The delivery is scheduled to start on %s.", e.ScheduledStart.Format(startLineTimeFormat))
	}

	jobs := []sendJob{
		{
			recipientRole:  "donor",
			recipientEmail: e.Donor.Email,
			send: func(ctx context.Context) error {
				return m.sender.SendDeliveryScheduledEmail(ctx, e.Donor.Email, e.Donor.Name, e.FoodTitle, e.DelivererName, startLine)
			},
		},
		{
			recipientRole:  "receiver",
			recipientEmail: e.Receiver.Email,
			send: func(ctx context.Context) error {
				return m.sender.SendDeliveryScheduledEmail(ctx, e.Receiver.Email, e.Receiver.Name, e.FoodTitle, e.DelivererName, startLine)
			},
		},
	}

	m.runJobs(ctx, e.EventName(), jobs)
	return nil
}

func (m *Module) handleDeliveryCancelled(ctx context.Context, e events.DeliveryCancelled) error {
	jobs := []sendJob{
		{
			recipientRole:  "donor",
			recipientEmail: e.Donor.Email,
			send: func(ctx context.Context) error {
				return m.sender.SendDeliveryCancelledEmail(ctx, e.Donor.Email, e.Donor.Name, e.FoodTitle, e.DelivererName, e.Reason, e.FoodRejected)
			},
		},
		{
			recipientRole:  "receiver",
			recipientEmail: e.Receiver.Email,
			send: func(ctx context.Context) error {
				return m.sender.SendDeliveryCancelledEmail(ctx, e.Receiver.Email, e.Receiver.Name, e.FoodTitle, e.DelivererName, e.Reason, e.FoodRejected)
			},
		},
	}

	m.runJobs(ctx, e.EventName(), jobs)
	return nil
}

// handleDeliveryReminderDue resolves the delivery's current details before
// mailing. A delivery cancelled between enqueue and fire simply has no row
// anymore and the reminder is dropped.
func (m *Module) handleDeliveryReminderDue(ctx context.Context, e events.DeliveryReminderDue) error {
	if m.pool == nil {
		return nil
	}

	var foodTitle, delivererName, delivererEmail string
	var scheduledStart *time.Time
	err := m.pool.QueryRow(ctx, `
		SELECT l.title, wu.name, wu.email, d.scheduled_start
		FROM deliveries d
		JOIN claims c ON c.id = d.claim_id
		JOIN food_listings l ON l.id = c.listing_id
		JOIN app_users wu ON wu.id = d.deliverer_id
		WHERE d.id = $1`,
		e.DeliveryID,
	).Scan(&foodTitle, &delivererName, &delivererEmail, &scheduledStart)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			m.log.Info("delivery gone before reminder fired", "deliveryId", e.DeliveryID)
			return nil
		}
		m.log.Error("failed to resolve delivery reminder", "deliveryId", e.DeliveryID, "error", err)
		return nil
	}

	startLine := "Your delivery starts soon."
	if scheduledStart != nil {
		startLine = fmt.Sprintf("It is scheduled to start on %s.", scheduledStart.Format(startLineTimeFormat))
	}

	m.runJobs(ctx, e.EventName(), []sendJob{{
		recipientRole:  "deliverer",
		recipientEmail: delivererEmail,
		send: func(ctx context.Context) error {
			return m.sender.SendDeliveryReminderEmail(ctx, delivererEmail, delivererName, foodTitle, startLine)
		},
	}})
	return nil
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
