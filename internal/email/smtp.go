package email

import (
	"context"
	"fmt"
	"net"
	"time"

	gomail "github.com/wneessen/go-mail"
)

// SMTPSender implements Sender over a direct SMTP connection via go-mail.
type SMTPSender struct {
	host      string
	port      int
	username  string
	password  string
	fromName  string
	fromEmail string
}

// NewSMTPSender creates a new SMTPSender with the given SMTP credentials.
func NewSMTPSender(host string, port int, username, password, fromEmail, fromName string) *SMTPSender {
	return &SMTPSender{
		host:      host,
		port:      port,
		username:  username,
		password:  password,
		fromName:  fromName,
		fromEmail: fromEmail,
	}
}

func (s *SMTPSender) send(ctx context.Context, toEmail, subject, htmlContent string) error {
	msg := gomail.NewMsg()
	if err := msg.FromFormat(s.fromName, s.fromEmail); err != nil {
		return fmt.Errorf("smtp from: %w", err)
	}
	if err := msg.To(toEmail); err != nil {
		return fmt.Errorf("smtp to: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(gomail.TypeTextHTML, htmlContent)

	client, err := gomail.NewClient(s.host,
		gomail.WithPort(s.port),
		gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
		gomail.WithUsername(s.username),
		gomail.WithPassword(s.password),
		gomail.WithTLSPortPolicy(gomail.TLSOpportunistic),
		gomail.WithTimeout(15*time.Second),
		gomail.WithDialContextFunc(func(dctx context.Context, _ string, addr string) (net.Conn, error) {
			return (&net.Dialer{}).DialContext(dctx, "tcp4", addr)
		}),
	)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}

	return nil
}

func (s *SMTPSender) SendClaimReleasedEmail(ctx context.Context, toEmail, recipientName, foodTitle, reason string) error {
	content, err := renderEmailTemplate("claim_released.html", claimReleasedEmailData{
		baseEmailData: baseEmailData{
			Title:   "Listing available again",
			Heading: "Your listing is available again",
		},
		RecipientName: recipientName,
		FoodTitle:     foodTitle,
		Reason:        reason,
	})
	if err != nil {
		return err
	}
	return s.send(ctx, toEmail, fmt.Sprintf(subjectClaimReleasedFmt, foodTitle), content)
}

func (s *SMTPSender) SendDeliveryCalledOffEmail(ctx context.Context, toEmail, recipientName, foodTitle string) error {
	content, err := renderEmailTemplate("delivery_called_off.html", deliveryCalledOffEmailData{
		baseEmailData: baseEmailData{
			Title:   "Delivery called off",
			Heading: "Your delivery was called off",
		},
		RecipientName: recipientName,
		FoodTitle:     foodTitle,
	})
	if err != nil {
		return err
	}
	return s.send(ctx, toEmail, fmt.Sprintf(subjectDeliveryCalledOffFmt, foodTitle), content)
}

func (s *SMTPSender) SendListingRemovedEmail(ctx context.Context, toEmail, recipientName, foodTitle, reason string) error {
	content, err := renderEmailTemplate("listing_removed.html", listingRemovedEmailData{
		baseEmailData: baseEmailData{
			Title:   "Listing removed",
			Heading: "A listing you claimed was removed",
		},
		RecipientName: recipientName,
		FoodTitle:     foodTitle,
		Reason:        reason,
	})
	if err != nil {
		return err
	}
	return s.send(ctx, toEmail, fmt.Sprintf(subjectListingRemovedFmt, foodTitle), content)
}

func (s *SMTPSender) SendListingRemovedDeliveryEmail(ctx context.Context, toEmail, recipientName, foodTitle string) error {
	content, err := renderEmailTemplate("listing_removed_delivery.html", listingRemovedDeliveryEmailData{
		baseEmailData: baseEmailData{
			Title:   "Delivery called off",
			Heading: "Your delivery was called off",
		},
		RecipientName: recipientName,
		FoodTitle:     foodTitle,
	})
	if err != nil {
		return err
	}
	return s.send(ctx, toEmail, fmt.Sprintf(subjectDeliveryCalledOffFmt, foodTitle), content)
}

func (s *SMTPSender) SendDeliveryScheduledEmail(ctx context.Context, toEmail, recipientName, foodTitle, delivererName, startLine string) error {
	content, err := renderEmailTemplate("delivery_scheduled.html", deliveryScheduledEmailData{
		baseEmailData: baseEmailData{
			Title:   "Delivery arranged",
			Heading: "Transport has been arranged",
		},
		RecipientName: recipientName,
		FoodTitle:     foodTitle,
		DelivererName: delivererName,
		StartLine:     startLine,
	})
	if err != nil {
		return err
	}
	return s.send(ctx, toEmail, fmt.Sprintf(subjectDeliveryScheduledFmt, foodTitle), content)
}

func (s *SMTPSender) SendDeliveryCancelledEmail(ctx context.Context, toEmail, recipientName, foodTitle, delivererName, reason string, foodRejected bool) error {
	content, err := renderEmailTemplate("delivery_cancelled.html", deliveryCancelledEmailData{
		baseEmailData: baseEmailData{
			Title:   "Delivery cancelled",
			Heading: "The delivery was cancelled",
		},
		RecipientName: recipientName,
		FoodTitle:     foodTitle,
		DelivererName: delivererName,
		Reason:        reason,
		FoodRejected:  foodRejected,
	})
	if err != nil {
		return err
	}
	return s.send(ctx, toEmail, fmt.Sprintf(subjectDeliveryCancelledFmt, foodTitle), content)
}

func (s *SMTPSender) SendDeliveryReminderEmail(ctx context.Context, toEmail, delivererName, foodTitle, startLine string) error {
	content, err := renderEmailTemplate("delivery_reminder.html", deliveryReminderEmailData{
		baseEmailData: baseEmailData{
			Title:   "Delivery reminder",
			Heading: "Your delivery starts soon",
		},
		DelivererName: delivererName,
		FoodTitle:     foodTitle,
		StartLine:     startLine,
	})
	if err != nil {
		return err
	}
	return s.send(ctx, toEmail, fmt.Sprintf(subjectDeliveryReminderFmt, foodTitle), content)
}
