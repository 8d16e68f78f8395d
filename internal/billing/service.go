// AngelaMos | 2026
// service.go

package billing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/taskispace/api/internal/config"
	"github.com/taskispace/api/internal/core"
	"github.com/taskispace/api/internal/events"
)

var ErrBillingDisabled = fmt.Errorf("billing not configured: %w", core.ErrUnavailable)

// UsageResetter clears the monthly metered counters once a billing period
// has been paid for.
type UsageResetter interface {
	ResetPeriodicUsage(ctx context.Context, userID string) error
}

// EmailLookup resolves the address a new payment customer is created with.
type EmailLookup func(ctx context.Context, userID string) (string, error)

type Service struct {
	repo     Repository
	cache    PlanCache
	payments PaymentProvider
	usage    UsageResetter
	emails   EmailLookup
	bus      *events.Bus
	cfg      config.BillingConfig
	logger   *slog.Logger
	now      func() time.Time
}

func NewService(
	repo Repository,
	cache PlanCache,
	payments PaymentProvider,
	bus *events.Bus,
	cfg config.BillingConfig,
	logger *slog.Logger,
) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:     repo,
		cache:    cache,
		payments: payments,
		bus:      bus,
		cfg:      cfg,
		logger:   logger,
		now:      time.Now,
	}
}

// SetUsageResetter wires the limiter after construction. The limiter reads
// plans through this service, so it cannot exist before it.
func (s *Service) SetUsageResetter(usage UsageResetter) {
	s.usage = usage
}

func (s *Service) SetEmailLookup(lookup EmailLookup) {
	s.emails = lookup
}

func (s *Service) ListPlans(ctx context.Context) ([]Plan, error) {
	return s.repo.ListPlans(ctx)
}

// GetPlan reads through the plan cache. Cache failures fall back to the
// database.
func (s *Service) GetPlan(ctx context.Context, id string) (*Plan, error) {
	if s.cache != nil {
		plan, err := s.cache.Get(ctx, id)
		if err == nil {
			return plan, nil
		}
		if !errors.Is(err, core.ErrNotFound) {
			s.logger.Warn("plan cache read failed", "plan_id", id, "error", err)
		}
	}

	plan, err := s.repo.GetPlanByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, plan); err != nil {
			s.logger.Warn("plan cache write failed", "plan_id", id, "error", err)
		}
	}

	return plan, nil
}

// EnsureSubscription returns the user's subscription, provisioning one on
// the free plan when none exists yet.
func (s *Service) EnsureSubscription(
	ctx context.Context,
	userID string,
) (*Subscription, error) {
	sub, err := s.repo.GetSubscriptionByUserID(ctx, userID)
	if err == nil {
		return sub, nil
	}
	if !errors.Is(err, core.ErrNotFound) {
		return nil, err
	}

	free, err := s.repo.GetPlanByName(ctx, PlanFree)
	if err != nil {
		return nil, fmt.Errorf("ensure subscription: %w", err)
	}

	sub = &Subscription{
		UserID: userID,
		PlanID: free.ID,
		Status: StatusActive,
	}
	if err := s.repo.CreateSubscription(ctx, sub); err != nil {
		// a concurrent request may have committed the row first
		existing, readErr := s.repo.GetSubscriptionByUserID(ctx, userID)
		if readErr != nil {
			return nil, err
		}
		return existing, nil
	}

	s.logger.Info("subscription provisioned", "user_id", userID, "plan", free.Name)
	return sub, nil
}

// GetSubscriptionWithPlan returns ErrNotFound when the user has no
// subscription row. It never provisions one.
func (s *Service) GetSubscriptionWithPlan(
	ctx context.Context,
	userID string,
) (*SubscriptionWithPlan, error) {
	ctx, span := core.StartSpan(ctx, "billing.GetSubscriptionWithPlan",
		attribute.String("user.id", userID),
	)
	defer span.End()

	sub, err := s.repo.GetSubscriptionByUserID(ctx, userID)
	if err != nil {
		if !errors.Is(err, core.ErrNotFound) {
			core.SetSpanError(ctx, err)
		}
		return nil, err
	}

	plan, err := s.GetPlan(ctx, sub.PlanID)
	if err != nil {
		core.SetSpanError(ctx, err)
		return nil, fmt.Errorf("load plan %s: %w", sub.PlanID, err)
	}

	span.SetAttributes(attribute.String("plan.name", plan.Name))
	return &SubscriptionWithPlan{Subscription: sub, Plan: plan}, nil
}

// AssignPlan moves a user onto a plan by name without touching the payment
// processor. Used by admins and by the webhook lifecycle.
func (s *Service) AssignPlan(
	ctx context.Context,
	userID, planName string,
) (*SubscriptionWithPlan, error) {
	plan, err := s.repo.GetPlanByName(ctx, planName)
	if errors.Is(err, core.ErrNotFound) {
		return nil, fmt.Errorf("assign plan: unknown plan %q: %w",
			planName, core.ErrInvalidInput)
	}
	if err != nil {
		return nil, err
	}

	sub, err := s.EnsureSubscription(ctx, userID)
	if err != nil {
		return nil, err
	}

	changed := sub.PlanID != plan.ID
	sub.PlanID = plan.ID
	sub.Status = StatusActive
	if err := s.repo.UpdateSubscription(ctx, sub); err != nil {
		return nil, err
	}

	if changed {
		s.publishPlanChange(userID, plan.Name)
	}
	return &SubscriptionWithPlan{Subscription: sub, Plan: plan}, nil
}

func (s *Service) CreateCheckoutSession(
	ctx context.Context,
	userID, interval string,
) (string, error) {
	if s.payments == nil {
		return "", ErrBillingDisabled
	}

	pro, err := s.repo.GetPlanByName(ctx, PlanPro)
	if err != nil {
		return "", fmt.Errorf("checkout: %w", err)
	}

	priceID := pro.PriceIDFor(interval)
	if priceID == "" {
		return "", fmt.Errorf("checkout: no price for interval %q: %w",
			interval, core.ErrInvalidInput)
	}

	sub, err := s.EnsureSubscription(ctx, userID)
	if err != nil {
		return "", err
	}

	if sub.PlanID == pro.ID && sub.Status == StatusActive &&
		sub.StripeSubscriptionID != nil {
		return "", fmt.Errorf("checkout: already subscribed: %w",
			core.ErrInvalidInput)
	}

	customerID, err := s.ensureCustomer(ctx, sub)
	if err != nil {
		return "", err
	}

	frontend := strings.TrimRight(s.cfg.FrontendURL, "/")
	return s.payments.CreateCheckoutSession(ctx, CheckoutParams{
		UserID:     userID,
		CustomerID: customerID,
		PriceID:    priceID,
		SuccessURL: frontend + "/billing/success",
		CancelURL:  frontend + "/billing/cancel",
	})
}

func (s *Service) CreatePortalSession(
	ctx context.Context,
	userID string,
) (string, error) {
	if s.payments == nil {
		return "", ErrBillingDisabled
	}

	sub, err := s.repo.GetSubscriptionByUserID(ctx, userID)
	if err != nil {
		return "", err
	}
	if sub.CustomerID() == "" {
		return "", fmt.Errorf("portal: no billing account: %w", core.ErrInvalidInput)
	}

	returnURL := strings.TrimRight(s.cfg.FrontendURL, "/") + "/settings/billing"
	return s.payments.CreatePortalSession(ctx, sub.CustomerID(), returnURL)
}

func (s *Service) ensureCustomer(
	ctx context.Context,
	sub *Subscription,
) (string, error) {
	if id := sub.CustomerID(); id != "" {
		return id, nil
	}
	if s.emails == nil {
		return "", fmt.Errorf("create customer: no email lookup: %w", core.ErrUnavailable)
	}

	email, err := s.emails(ctx, sub.UserID)
	if err != nil {
		return "", fmt.Errorf("create customer: %w", err)
	}

	customerID, err := s.payments.CreateCustomer(ctx, sub.UserID, email)
	if err != nil {
		return "", err
	}

	sub.StripeCustomerID = &customerID
	if err := s.repo.UpdateSubscription(ctx, sub); err != nil {
		return "", err
	}
	return customerID, nil
}

// HandleWebhook verifies and applies a payment processor event. Events for
// customers this service does not know report ErrNotFound.
func (s *Service) HandleWebhook(
	ctx context.Context,
	payload []byte,
	signature string,
) error {
	if s.payments == nil {
		return ErrBillingDisabled
	}

	event, err := s.payments.ParseWebhook(payload, signature)
	if err != nil {
		return fmt.Errorf("%w: %w", core.ErrInvalidInput, err)
	}

	return s.ApplyEvent(ctx, event)
}

func (s *Service) ApplyEvent(ctx context.Context, event *WebhookEvent) error {
	ctx, span := core.StartSpan(ctx, "billing.ApplyEvent",
		attribute.String("event.type", event.Type),
		attribute.String("event.id", event.ID),
	)
	defer span.End()

	var err error
	switch {
	case event.Type == EventCheckoutCompleted && event.Checkout != nil:
		err = s.onCheckoutCompleted(ctx, event.Checkout)
	case event.Type == EventSubscriptionUpdated && event.Subscription != nil:
		err = s.onSubscriptionUpdated(ctx, event.Subscription)
	case event.Type == EventSubscriptionDeleted && event.Subscription != nil:
		err = s.onSubscriptionDeleted(ctx, event.Subscription)
	case event.Type == EventInvoicePaymentSucceeded && event.Invoice != nil:
		err = s.onPaymentSucceeded(ctx, event.Invoice)
	case event.Type == EventInvoicePaymentFailed && event.Invoice != nil:
		err = s.onPaymentFailed(ctx, event.Invoice)
	default:
		s.logger.Debug("ignoring billing event", "type", event.Type, "id", event.ID)
		return nil
	}

	if err != nil {
		core.SetSpanError(ctx, err)
		return fmt.Errorf("apply %s: %w", event.Type, err)
	}

	s.logger.Info("billing event applied", "type", event.Type, "id", event.ID)
	return nil
}

func (s *Service) onCheckoutCompleted(
	ctx context.Context,
	p *CheckoutPayload,
) error {
	var (
		sub *Subscription
		err error
	)
	if p.UserID != "" {
		sub, err = s.EnsureSubscription(ctx, p.UserID)
	} else {
		sub, err = s.repo.GetSubscriptionByCustomerID(ctx, p.CustomerID)
	}
	if err != nil {
		return err
	}

	plan, err := s.planForPrice(ctx, p.PriceID)
	if err != nil {
		return err
	}

	if p.CustomerID != "" {
		sub.StripeCustomerID = &p.CustomerID
	}
	if p.SubscriptionID != "" {
		sub.StripeSubscriptionID = &p.SubscriptionID
	}
	changed := sub.PlanID != plan.ID
	sub.PlanID = plan.ID
	sub.Status = StatusActive
	sub.CancelAtPeriodEnd = false
	sub.CanceledAt = nil

	if err := s.repo.UpdateSubscription(ctx, sub); err != nil {
		return err
	}
	if changed {
		s.publishPlanChange(sub.UserID, plan.Name)
	}
	return nil
}

func (s *Service) onSubscriptionUpdated(
	ctx context.Context,
	p *SubscriptionPayload,
) error {
	sub, err := s.repo.GetSubscriptionByCustomerID(ctx, p.CustomerID)
	if err != nil {
		return err
	}

	changedTo := ""
	if p.PriceID != "" {
		plan, err := s.repo.GetPlanByPriceID(ctx, p.PriceID)
		switch {
		case err == nil:
			if sub.PlanID != plan.ID {
				changedTo = plan.Name
			}
			sub.PlanID = plan.ID
		case errors.Is(err, core.ErrNotFound):
			s.logger.Warn("subscription price matches no plan",
				"price_id", p.PriceID,
				"user_id", sub.UserID,
			)
		default:
			return err
		}
	}

	sub.Status = normalizeStatus(p.Status)
	sub.StripeSubscriptionID = &p.ID
	sub.CurrentPeriodStart = timePtr(p.CurrentPeriodStart)
	sub.CurrentPeriodEnd = timePtr(p.CurrentPeriodEnd)
	sub.CancelAtPeriodEnd = p.CancelAtPeriodEnd
	sub.CanceledAt = p.CanceledAt

	if err := s.repo.UpdateSubscription(ctx, sub); err != nil {
		return err
	}
	if changedTo != "" {
		s.publishPlanChange(sub.UserID, changedTo)
	}
	return nil
}

func (s *Service) onSubscriptionDeleted(
	ctx context.Context,
	p *SubscriptionPayload,
) error {
	sub, err := s.repo.GetSubscriptionByCustomerID(ctx, p.CustomerID)
	if err != nil {
		return err
	}

	free, err := s.repo.GetPlanByName(ctx, PlanFree)
	if err != nil {
		return err
	}

	canceledAt := p.CanceledAt
	if canceledAt == nil {
		now := s.now().UTC()
		canceledAt = &now
	}

	changed := sub.PlanID != free.ID
	sub.PlanID = free.ID
	sub.Status = StatusCanceled
	sub.StripeSubscriptionID = nil
	sub.CancelAtPeriodEnd = false
	sub.CanceledAt = canceledAt

	if err := s.repo.UpdateSubscription(ctx, sub); err != nil {
		return err
	}
	if changed {
		s.publishPlanChange(sub.UserID, free.Name)
	}
	return nil
}

func (s *Service) onPaymentSucceeded(
	ctx context.Context,
	p *InvoicePayload,
) error {
	sub, err := s.repo.GetSubscriptionByCustomerID(ctx, p.CustomerID)
	if err != nil {
		return err
	}

	if sub.Status != StatusActive {
		sub.Status = StatusActive
		if err := s.repo.UpdateSubscription(ctx, sub); err != nil {
			return err
		}
	}

	if s.usage != nil {
		if err := s.usage.ResetPeriodicUsage(ctx, sub.UserID); err != nil {
			s.logger.Error("reset periodic usage failed",
				"user_id", sub.UserID,
				"error", err,
			)
		}
	}
	return nil
}

func (s *Service) onPaymentFailed(
	ctx context.Context,
	p *InvoicePayload,
) error {
	sub, err := s.repo.GetSubscriptionByCustomerID(ctx, p.CustomerID)
	if err != nil {
		return err
	}

	sub.Status = StatusPastDue
	return s.repo.UpdateSubscription(ctx, sub)
}

// planForPrice falls back to the pro plan when the price is unknown, since
// the only paid checkout offered is pro.
func (s *Service) planForPrice(ctx context.Context, priceID string) (*Plan, error) {
	if priceID != "" {
		plan, err := s.repo.GetPlanByPriceID(ctx, priceID)
		if err == nil {
			return plan, nil
		}
		if !errors.Is(err, core.ErrNotFound) {
			return nil, err
		}
	}
	return s.repo.GetPlanByName(ctx, PlanPro)
}

// SyncPrices writes the configured price ids onto the pro plan.
func (s *Service) SyncPrices(ctx context.Context) error {
	if s.cfg.ProPriceMonthly == "" && s.cfg.ProPriceYearly == "" {
		return fmt.Errorf("sync prices: no price ids configured: %w",
			core.ErrInvalidInput)
	}

	if err := s.repo.UpdatePlanPriceIDs(ctx, PlanPro,
		s.cfg.ProPriceMonthly,
		s.cfg.ProPriceYearly,
	); err != nil {
		return err
	}

	pro, err := s.repo.GetPlanByName(ctx, PlanPro)
	if err != nil {
		return err
	}
	if s.cache != nil {
		if err := s.cache.Invalidate(ctx, pro.ID); err != nil {
			s.logger.Warn("plan cache invalidate failed", "plan_id", pro.ID, "error", err)
		}
	}
	return nil
}

func (s *Service) SubscriptionCounts(ctx context.Context) (map[string]int, error) {
	return s.repo.CountSubscriptionsByPlan(ctx)
}

func (s *Service) publishPlanChange(userID, plan string) {
	s.bus.Publish(events.TopicPlanChanged, events.PlanChanged{
		UserID: userID,
		Plan:   plan,
	})
}

func normalizeStatus(status string) string {
	switch status {
	case StatusActive, StatusTrialing, StatusPastDue, StatusCanceled, StatusIncomplete:
		return status
	case "unpaid", "paused":
		return StatusPastDue
	case "incomplete_expired":
		return StatusCanceled
	default:
		return StatusIncomplete
	}
}

func timePtr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
