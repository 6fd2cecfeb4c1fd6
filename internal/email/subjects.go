package email

const (
	subjectClaimReleasedFmt     = "Your listing %q is available again"
	subjectDeliveryCalledOffFmt = "Delivery for %q was called off"
	subjectListingRemovedFmt    = "Listing %q was removed by the donor"
	subjectDeliveryScheduledFmt = "Delivery arranged for %q"
	subjectDeliveryCancelledFmt = "Delivery for %q was cancelled"
	subjectDeliveryReminderFmt  = "Reminder: your delivery of %q starts soon"
)
