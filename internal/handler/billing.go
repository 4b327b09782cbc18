package handler

import (
	"log/slog"
	"net/http"

	"github.com/jbickell/laneway/internal/auth"
	"github.com/jbickell/laneway/internal/billing"
	"github.com/jbickell/laneway/internal/store"
)

type BillingHandler struct {
	userStore *store.UserStore
	billing   *billing.Client
	logger    *slog.Logger
}

func NewBillingHandler(us *store.UserStore, bc *billing.Client, logger *slog.Logger) *BillingHandler {
	return &BillingHandler{userStore: us, billing: bc, logger: logger}
}

func (h *BillingHandler) Status(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	user, err := h.userStore.GetByID(userID)
	if err != nil || user == nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get user"})
		return
	}

	status, err := h.billing.SubscriptionStatus(user.StripeCustomerID)
	if err != nil {
		h.logger.Error("subscription status", "error", err)
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": "failed to check subscription"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":  status,
		"premium": status.Premium(),
	})
}

// Checkout starts a Stripe checkout session, creating the Stripe customer
// on first use.
func (h *BillingHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	if !h.billing.Configured() {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "billing is not configured"})
		return
	}

	user, err := h.userStore.GetByID(userID)
	if err != nil || user == nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get user"})
		return
	}

	customerID := user.StripeCustomerID
	if customerID == "" {
		customerID, err = h.billing.CreateCustomer(user.Email, user.Name)
		if err != nil {
			h.logger.Error("create stripe customer", "error", err)
			writeJSON(w, http.StatusBadGateway, map[string]string{"error": "failed to start checkout"})
			return
		}
		if err := h.userStore.SetStripeCustomerID(user.ID, customerID); err != nil {
			h.logger.Error("save stripe customer id", "error", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to start checkout"})
			return
		}
	}

	url, err := h.billing.CreateCheckoutSession(customerID)
	if err != nil {
		h.logger.Error("create checkout session", "error", err)
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": "failed to start checkout"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"url": url})
}

// Portal returns a billing portal URL for subscription self-management.
func (h *BillingHandler) Portal(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	user, err := h.userStore.GetByID(userID)
	if err != nil || user == nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get user"})
		return
	}
	if user.StripeCustomerID == "" {
		writeJSON(w, http.StatusConflict, map[string]string{"error": "no billing account"})
		return
	}

	returnURL := r.URL.Query().Get("return_url")
	if returnURL == "" {
		returnURL = "/"
	}

	url, err := h.billing.CreateBillingPortalSession(user.StripeCustomerID, returnURL)
	if err != nil {
		h.logger.Error("create portal session", "error", err)
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": "failed to open billing portal"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"url": url})
}
