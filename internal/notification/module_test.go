package notification

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"foodbridge_backend/internal/events"
	"foodbridge_backend/platform/logger"

	"github.com/google/uuid"
)

// testSender counts every send per method and can be told to fail specific
// recipients.
type testSender struct {
	mu sync.Mutex

	claimReleased     int
	deliveryCalledOff int
	listingRemoved    int
	removedDelivery   int
	scheduled         int
	cancelled         int
	reminder          int

	failFor map[string]error

	scheduledStartLines []string
	cancelledRejected   []bool
}

func newTestSender() *testSender {
	return &testSender{failFor: map[string]error{}}
}

func (s *testSender) failing(email string) {
	s.failFor[email] = errors.New("smtp unavailable")
}

func (s *testSender) record(counter *int, toEmail string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	*counter++
	return s.failFor[toEmail]
}

func (s *testSender) SendClaimReleasedEmail(ctx context.Context, toEmail, recipientName, foodTitle, reason string) error {
	return s.record(&s.claimReleased, toEmail)
}

func (s *testSender) SendDeliveryCalledOffEmail(ctx context.Context, toEmail, recipientName, foodTitle string) error {
	return s.record(&s.deliveryCalledOff, toEmail)
}

func (s *testSender) SendListingRemovedEmail(ctx context.Context, toEmail, recipientName, foodTitle, reason string) error {
	return s.record(&s.listingRemoved, toEmail)
}

func (s *testSender) SendListingRemovedDeliveryEmail(ctx context.Context, toEmail, recipientName, foodTitle string) error {
	return s.record(&s.removedDelivery, toEmail)
}

func (s *testSender) SendDeliveryScheduledEmail(ctx context.Context, toEmail, recipientName, foodTitle, delivererName, startLine string) error {
	s.mu.Lock()
	s.scheduledStartLines = append(s.scheduledStartLines, startLine)
	s.mu.Unlock()
	return s.record(&s.scheduled, toEmail)
}

func (s *testSender) SendDeliveryCancelledEmail(ctx context.Context, toEmail, recipientName, foodTitle, delivererName, reason string, foodRejected bool) error {
	s.mu.Lock()
	s.cancelledRejected = append(s.cancelledRejected, foodRejected)
	s.mu.Unlock()
	return s.record(&s.cancelled, toEmail)
}

func (s *testSender) SendDeliveryReminderEmail(ctx context.Context, toEmail, delivererName, foodTitle, startLine string) error {
	return s.record(&s.reminder, toEmail)
}

func newTestModule(sender *testSender) *Module {
	return New(nil, sender, logger.New("test"))
}

func contact(name, email string) events.ActorContact {
	return events.ActorContact{ID: uuid.New(), Name: name, Email: email}
}

func TestListingUnclaimedNotifiesDonorAndDeliverer(t *testing.T) {
	sender := newTestSender()
	m := newTestModule(sender)

	deliverer := contact("Dana Driver", "dana@example.com")
	err := m.Handle(context.Background(), events.ListingUnclaimed{
		ListingID: uuid.New(),
		FoodTitle: "Bread",
		Reason:    "plans changed",
		Donor:     contact("Dom Donor", "dom@example.com"),
		Deliverer: &deliverer,
	})
	if err != nil {
		t.Fatalf("Handle returned error: %v", err)
	}

	if sender.claimReleased != 1 {
		t.Errorf("claim released emails = %d, want 1", sender.claimReleased)
	}
	if sender.deliveryCalledOff != 1 {
		t.Errorf("delivery called off emails = %d, want 1", sender.deliveryCalledOff)
	}
}

func TestListingUnclaimedWithoutDeliverySendsOnlyDonor(t *testing.T) {
	sender := newTestSender()
	m := newTestModule(sender)

	err := m.Handle(context.Background(), events.ListingUnclaimed{
		ListingID: uuid.New(),
		FoodTitle: "Soup",
		Donor:     contact("Dom Donor", "dom@example.com"),
	})
	if err != nil {
		t.Fatalf("Handle returned error: %v", err)
	}

	if sender.claimReleased != 1 {
		t.Errorf("claim released emails = %d, want 1", sender.claimReleased)
	}
	if sender.deliveryCalledOff != 0 {
		t.Errorf("delivery called off emails = %d, want 0", sender.deliveryCalledOff)
	}
}

func TestListingUnclaimedDelivererFailureDoesNotSkipDonor(t *testing.T) {
	sender := newTestSender()
	sender.failing("dana@example.com")
	m := newTestModule(sender)

	deliverer := contact("Dana Driver", "dana@example.com")
	err := m.Handle(context.Background(), events.ListingUnclaimed{
		ListingID: uuid.New(),
		FoodTitle: "Bread",
		Donor:     contact("Dom Donor", "dom@example.com"),
		Deliverer: &deliverer,
	})
	if err != nil {
		t.Fatalf("Handle must swallow send failures, got: %v", err)
	}

	if sender.claimReleased != 1 {
		t.Errorf("claim released emails = %d, want 1", sender.claimReleased)
	}
	if sender.deliveryCalledOff != 1 {
		t.Errorf("delivery called off attempts = %d, want 1", sender.deliveryCalledOff)
	}
}

func TestListingRemovedFansOutPerClaim(t *testing.T) {
	sender := newTestSender()
	m := newTestModule(sender)

	deliverer := contact("Dana Driver", "dana@example.com")
	err := m.Handle(context.Background(), events.ListingRemoved{
		ListingID: uuid.New(),
		FoodTitle: "Apples",
		Reason:    "spoiled",
		Claims: []events.ClaimRemovalNotice{
			{Receiver: contact("Rae One", "rae1@example.com"), Deliverer: &deliverer},
			{Receiver: contact("Rae Two", "rae2@example.com")},
			{Receiver: contact("Rae Three", "rae3@example.com")},
		},
	})
	if err != nil {
		t.Fatalf("Handle returned error: %v", err)
	}

	if sender.listingRemoved != 3 {
		t.Errorf("receiver emails = %d, want 3", sender.listingRemoved)
	}
	if sender.removedDelivery != 1 {
		t.Errorf("deliverer emails = %d, want 1", sender.removedDelivery)
	}
}

func TestListingRemovedWithoutClaimsSendsNothing(t *testing.T) {
	sender := newTestSender()
	m := newTestModule(sender)

	err := m.Handle(context.Background(), events.ListingRemoved{
		ListingID: uuid.New(),
		FoodTitle: "Apples",
	})
	if err != nil {
		t.Fatalf("Handle returned error: %v", err)
	}

	if sender.listingRemoved != 0 || sender.removedDelivery != 0 {
		t.Errorf("got %d receiver and %d deliverer emails, want none",
			sender.listingRemoved, sender.removedDelivery)
	}
}

func TestDeliveryScheduledNotifiesBothParties(t *testing.T) {
	start := time.Date(2026, time.March, 14, 15, 0, 0, 0, time.UTC)

	tests := []struct {
		name       string
		startedNow bool
		start      *time.Time
		wantLine   string
	}{
		{
			name:       "immediate start",
			startedNow: true,
			wantLine:   "The deliverer is on their way now.",
		},
		{
			name:     "future start",
			start:    &start,
			wantLine: "The delivery is scheduled to start on Saturday, Mar 14 2026 at 3:00 PM.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sender := newTestSender()
			m := newTestModule(sender)

			err := m.Handle(context.Background(), events.DeliveryScheduled{
				DeliveryID:     uuid.New(),
				ClaimID:        uuid.New(),
				FoodTitle:      "Rice",
				DelivererName:  "Dana Driver",
				StartedNow:     tt.startedNow,
				ScheduledStart: tt.start,
				Donor:          contact("Dom Donor", "dom@example.com"),
				Receiver:       contact("Rae Receiver", "rae@example.com"),
			})
			if err != nil {
				t.Fatalf("Handle returned error: %v", err)
			}

			if sender.scheduled != 2 {
				t.Fatalf("scheduled emails = %d, want 2", sender.scheduled)
			}
			for _, line := range sender.scheduledStartLines {
				if line != tt.wantLine {
					t.Errorf("start line = %q, want %q", line, tt.wantLine)
				}
			}
		})
	}
}

func TestDeliveryCancelledNotifiesBothParties(t *testing.T) {
	sender := newTestSender()
	m := newTestModule(sender)

	err := m.Handle(context.Background(), events.DeliveryCancelled{
		DeliveryID:    uuid.New(),
		FoodTitle:     "Rice",
		Reason:        "van broke down",
		FoodRejected:  true,
		DelivererName: "Dana Driver",
		Donor:         contact("Dom Donor", "dom@example.com"),
		Receiver:      contact("Rae Receiver", "rae@example.com"),
	})
	if err != nil {
		t.Fatalf("Handle returned error: %v", err)
	}

	if sender.cancelled != 2 {
		t.Fatalf("cancelled emails = %d, want 2", sender.cancelled)
	}
	for _, rejected := range sender.cancelledRejected {
		if !rejected {
			t.Error("foodRejected flag not forwarded to email")
		}
	}
}

func TestReminderWithoutPoolIsSkipped(t *testing.T) {
	sender := newTestSender()
	m := newTestModule(sender)

	err := m.Handle(context.Background(), events.DeliveryReminderDue{DeliveryID: uuid.New()})
	if err != nil {
		t.Fatalf("Handle returned error: %v", err)
	}
	if sender.reminder != 0 {
		t.Errorf("reminder emails = %d, want 0 without a database", sender.reminder)
	}
}
