// Package email renders and delivers the lifecycle notification emails.
package email

import (
	"context"

	"foodbridge_backend/platform/config"
)

// Sender delivers one email per call. Each method maps to a single
// recipient-role pairing of a lifecycle transition.
type Sender interface {
	// SendClaimReleasedEmail tells the donor their listing is up for grabs again.
	SendClaimReleasedEmail(ctx context.Context, toEmail, recipientName, foodTitle, reason string) error
	// SendDeliveryCalledOffEmail tells the deliverer their delivery evaporated
	// because the receiver released the claim.
	SendDeliveryCalledOffEmail(ctx context.Context, toEmail, recipientName, foodTitle string) error
	// SendListingRemovedEmail tells a receiver the donor withdrew the listing
	// they had claimed.
	SendListingRemovedEmail(ctx context.Context, toEmail, recipientName, foodTitle, reason string) error
	// SendListingRemovedDeliveryEmail tells a deliverer their delivery evaporated
	// because the donor withdrew the listing.
	SendListingRemovedDeliveryEmail(ctx context.Context, toEmail, recipientName, foodTitle string) error
	// SendDeliveryScheduledEmail tells a donor or receiver that transport is
	// arranged. startLine is a human-readable rendering of the start time.
	SendDeliveryScheduledEmail(ctx context.Context, toEmail, recipientName, foodTitle, delivererName, startLine string) error
	// SendDeliveryCancelledEmail tells a donor or receiver the deliverer backed
	// out. The claim itself survives.
	SendDeliveryCancelledEmail(ctx context.Context, toEmail, recipientName, foodTitle, delivererName, reason string, foodRejected bool) error
	// SendDeliveryReminderEmail reminds a deliverer of an upcoming start.
	SendDeliveryReminderEmail(ctx context.Context, toEmail, delivererName, foodTitle, startLine string) error
}

// NoopSender satisfies Sender without delivering anything. Used when email is
// disabled in configuration.
type NoopSender struct{}

func (NoopSender) SendClaimReleasedEmail(ctx context.Context, toEmail, recipientName, foodTitle, reason string) error {
	return nil
}

func (NoopSender) SendDeliveryCalledOffEmail(ctx context.Context, toEmail, recipientName, foodTitle string) error {
	return nil
}

func (NoopSender) SendListingRemovedEmail(ctx context.Context, toEmail, recipientName, foodTitle, reason string) error {
	return nil
}

func (NoopSender) SendListingRemovedDeliveryEmail(ctx context.Context, toEmail, recipientName, foodTitle string) error {
	return nil
}

func (NoopSender) SendDeliveryScheduledEmail(ctx context.Context, toEmail, recipientName, foodTitle, delivererName, startLine string) error {
	return nil
}

func (NoopSender) SendDeliveryCancelledEmail(ctx context.Context, toEmail, recipientName, foodTitle, delivererName, reason string, foodRejected bool) error {
	return nil
}

func (NoopSender) SendDeliveryReminderEmail(ctx context.Context, toEmail, delivererName, foodTitle, startLine string) error {
	return nil
}

// NewSender returns an SMTP-backed sender, or a NoopSender when email is
// disabled.
func NewSender(cfg config.EmailConfig) Sender {
	if !cfg.GetEmailEnabled() {
		return NoopSender{}
	}
	return NewSMTPSender(
		cfg.GetSMTPHost(),
		cfg.GetSMTPPort(),
		cfg.GetSMTPUsername(),
		cfg.GetSMTPPassword(),
		cfg.GetEmailFromAddress(),
		cfg.GetEmailFromName(),
	)
}
