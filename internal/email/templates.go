package email

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
)

//go:embed templates/*.html
var templateFS embed.FS

type baseEmailData struct {
	Title   string
	Heading string
}

type claimReleasedEmailData struct {
	baseEmailData
	RecipientName string
	FoodTitle     string
	Reason        string
}

type deliveryCalledOffEmailData struct {
	baseEmailData
	RecipientName string
	FoodTitle     string
}

type listingRemovedEmailData struct {
	baseEmailData
	RecipientName string
	FoodTitle     string
	Reason        string
}

type listingRemovedDeliveryEmailData struct {
	baseEmailData
	RecipientName string
	FoodTitle     string
}

type deliveryScheduledEmailData struct {
	baseEmailData
	RecipientName string
	FoodTitle     string
	DelivererName string
	StartLine     string
}

type deliveryCancelledEmailData struct {
	baseEmailData
	RecipientName string
	FoodTitle     string
	DelivererName string
	Reason        string
	FoodRejected  bool
}

type deliveryReminderEmailData struct {
	baseEmailData
	DelivererName string
	FoodTitle     string
	StartLine     string
}

func renderEmailTemplate(name string, data any) (string, error) {
	templates := []string{"templates/base.html", "templates/" + name}
	tmpl, err := template.New("base.html").ParseFS(templateFS, templates...)
	if err != nil {
		return "", fmt.Errorf("parse email template %s: %w", name, err)
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "email", data); err != nil {
		return "", fmt.Errorf("execute email template %s: %w", name, err)
	}
	return buf.String(), nil
}
