// AngelaMos | 2026
// provider.go

package billing

import (
	"context"
	"time"
)

const (
	EventCheckoutCompleted       = "checkout.session.completed"
	EventSubscriptionUpdated     = "customer.subscription.updated"
	EventSubscriptionDeleted     = "customer.subscription.deleted"
	EventInvoicePaymentSucceeded = "invoice.payment_succeeded"
	EventInvoicePaymentFailed    = "invoice.payment_failed"
)

// PaymentProvider is the slice of the payment processor the service needs.
type PaymentProvider interface {
	CreateCustomer(ctx context.Context, userID, email string) (string, error)
	CreateCheckoutSession(ctx context.Context, params CheckoutParams) (string, error)
	CreatePortalSession(ctx context.Context, customerID, returnURL string) (string, error)
	ParseWebhook(payload []byte, signature string) (*WebhookEvent, error)
}

type CheckoutParams struct {
	UserID     string
	CustomerID string
	PriceID    string
	SuccessURL string
	CancelURL  string
}

// WebhookEvent is a verified provider event reduced to the fields the
// subscription lifecycle reads. Exactly one payload pointer is set for the
// event types handled; unknown types carry none.
type WebhookEvent struct {
	ID           string
	Type         string
	Checkout     *CheckoutPayload
	Subscription *SubscriptionPayload
	Invoice      *InvoicePayload
}

type CheckoutPayload struct {
	CustomerID     string
	SubscriptionID string
	UserID         string
	PriceID        string
}

type SubscriptionPayload struct {
	ID                 string
	CustomerID         string
	Status             string
	PriceID            string
	CurrentPeriodStart time.Time
	CurrentPeriodEnd   time.Time
	CancelAtPeriodEnd  bool
	CanceledAt         *time.Time
}

type InvoicePayload struct {
	CustomerID     string
	SubscriptionID string
	BillingReason  string
}
