package billing

import (
	"fmt"
	"sync"
	"time"

	stripe "github.com/stripe/stripe-go/v82"
	portalsession "github.com/stripe/stripe-go/v82/billingportal/session"
	checksession "github.com/stripe/stripe-go/v82/checkout/session"
	"github.com/stripe/stripe-go/v82/customer"
	"github.com/stripe/stripe-go/v82/subscription"
)

// Status is the subscription state of a user, as reported by Stripe.
type Status string

const (
	StatusActive   Status = "active"
	StatusTrialing Status = "trialing"
	StatusPastDue  Status = "past_due"
	StatusCanceled Status = "canceled"
	StatusNone     Status = "none"
)

// Premium reports whether the status grants access to premium features.
// Past-due subscriptions keep access until Stripe cancels them.
func (s Status) Premium() bool {
	switch s {
	case StatusActive, StatusTrialing, StatusPastDue:
		return true
	}
	return false
}

const statusCacheTTL = 5 * time.Minute

type Config struct {
	SecretKey  string
	PriceID    string
	SuccessURL string
	CancelURL  string
}

type cachedStatus struct {
	status  Status
	fetched time.Time
}

// Client wraps the Stripe API for subscription management.
type Client struct {
	cfg Config

	mu    sync.Mutex
	cache map[string]cachedStatus
}

func NewClient(cfg Config) *Client {
	stripe.Key = cfg.SecretKey
	return &Client{
		cfg:   cfg,
		cache: make(map[string]cachedStatus),
	}
}

// Configured returns true if a secret key is set.
func (c *Client) Configured() bool {
	return c.cfg.SecretKey != ""
}

// CreateCustomer creates a Stripe customer and returns the customer ID.
func (c *Client) CreateCustomer(email, name string) (string, error) {
	params := &stripe.CustomerParams{
		Email: stripe.String(email),
		Name:  stripe.String(name),
	}
	cust, err := customer.New(params)
	if err != nil {
		return "", fmt.Errorf("create stripe customer: %w", err)
	}
	return cust.ID, nil
}

// CreateCheckoutSession creates a Stripe checkout session and returns the URL.
func (c *Client) CreateCheckoutSession(customerID string) (string, error) {
	params := &stripe.CheckoutSessionParams{
		Customer: stripe.String(customerID),
		Mode:     stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(c.cfg.PriceID),
				Quantity: stripe.Int64(1),
			},
		},
		AllowPromotionCodes: stripe.Bool(true),
		SuccessURL:          stripe.String(c.cfg.SuccessURL),
		CancelURL:           stripe.String(c.cfg.CancelURL),
	}
	sess, err := checksession.New(params)
	if err != nil {
		return "", fmt.Errorf("create checkout session: %w", err)
	}
	return sess.URL, nil
}

// CreateBillingPortalSession creates a Stripe billing portal session and returns the URL.
func (c *Client) CreateBillingPortalSession(customerID, returnURL string) (string, error) {
	params := &stripe.BillingPortalSessionParams{
		Customer:  stripe.String(customerID),
		ReturnURL: stripe.String(returnURL),
	}
	sess, err := portalsession.New(params)
	if err != nil {
		return "", fmt.Errorf("create billing portal session: %w", err)
	}
	return sess.URL, nil
}

// SubscriptionStatus returns the status of the customer's most recent
// subscription. Results are cached briefly to keep handler paths off the
// Stripe API.
func (c *Client) SubscriptionStatus(customerID string) (Status, error) {
	if customerID == "" {
		return StatusNone, nil
	}

	c.mu.Lock()
	if cached, ok := c.cache[customerID]; ok && time.Since(cached.fetched) < statusCacheTTL {
		c.mu.Unlock()
		return cached.status, nil
	}
	c.mu.Unlock()

	params := &stripe.SubscriptionListParams{
		Customer: stripe.String(customerID),
		Status:   stripe.String("all"),
	}
	params.Limit = stripe.Int64(1)

	status := StatusNone
	iter := subscription.List(params)
	for iter.Next() {
		status = mapStripeStatus(iter.Subscription().Status)
		break
	}
	if err := iter.Err(); err != nil {
		return StatusNone, fmt.Errorf("list subscriptions: %w", err)
	}

	c.mu.Lock()
	c.cache[customerID] = cachedStatus{status: status, fetched: time.Now()}
	c.mu.Unlock()

	return status, nil
}

// Invalidate drops the cached status for a customer, forcing the next
// SubscriptionStatus call to hit Stripe.
func (c *Client) Invalidate(customerID string) {
	c.mu.Lock()
	delete(c.cache, customerID)
	c.mu.Unlock()
}

func mapStripeStatus(s stripe.SubscriptionStatus) Status {
	switch s {
	case stripe.SubscriptionStatusActive:
		return StatusActive
	case stripe.SubscriptionStatusTrialing:
		return StatusTrialing
	case stripe.SubscriptionStatusPastDue:
		return StatusPastDue
	case stripe.SubscriptionStatusCanceled, stripe.SubscriptionStatusUnpaid,
		stripe.SubscriptionStatusIncomplete, stripe.SubscriptionStatusIncompleteExpired:
		return StatusCanceled
	}
	return StatusNone
}
