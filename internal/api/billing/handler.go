package billing

import (
	"net/http"

	"github.com/gin-gonic/gin"

	billingdomain "workspace-app/internal/domain/billing"
	"workspace-app/internal/app/http/middleware"
	"workspace-app/internal/svcerr"
)

type Handler struct {
	svc     *Service
	adapter Adapter
}

func NewHandler(svc *Service, adapter Adapter) *Handler {
	return &Handler{svc: svc, adapter: adapter}
}

// ListPlans returns the active plan catalog. Public.
func (h *Handler) ListPlans(c *gin.Context) {
	plans, err := h.svc.ListPlans()
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, plans)
}

// GetAccount returns the workspace's billing account including its
// subscription.
func (h *Handler) GetAccount(c *gin.Context) {
	workspace := middleware.Workspace(c)

	account, err := h.svc.GetAccount(workspace.ID)
	if err != nil {
		c.Error(err)
		return
	}
	if account == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Account not found"})
		return
	}

	c.JSON(http.StatusOK, account)
}

// UpdateBillingDetails changes the billing email, creating the provider
// customer on first use when the adapter supports it.
func (h *Handler) UpdateBillingDetails(c *gin.Context) {
	var body struct {
		Email string `json:"email" binding:"required,email"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing or invalid email"})
		return
	}

	workspace := middleware.Workspace(c)

	account, err := h.svc.GetAccount(workspace.ID)
	if err != nil {
		c.Error(err)
		return
	}
	if account == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Account not found"})
		return
	}

	if account.CustomerID == nil {
		if creator, ok := h.adapter.(CustomerCreator); ok {
			customerID, err := creator.CreateCustomer(CreateCustomerParams{
				AccountID: workspace.ID,
				Name:      workspace.Name,
				Email:     body.Email,
			})
			if err != nil {
				c.Error(err)
				return
			}

			if err := h.svc.UpsertAccount(workspace.ID, &customerID, &body.Email); err != nil {
				c.Error(err)
				return
			}

			c.JSON(http.StatusOK, gin.H{"customerId": customerID})
			return
		}
	}

	if err := h.svc.UpdateAccount(workspace.ID, nil, &body.Email); err != nil {
		c.Error(err)
		return
	}

	if updater, ok := h.adapter.(CustomerUpdater); ok && account.CustomerID != nil {
		err := updater.UpdateCustomer(UpdateCustomerParams{
			CustomerID: *account.CustomerID,
			AccountID:  account.ID,
			Name:       workspace.Name,
			Email:      body.Email,
		})
		if err != nil {
			c.Error(err)
			return
		}
	}

	c.Status(http.StatusNoContent)
}

// ListInvoices returns the provider invoices for the workspace's
// customer. Empty list when no customer exists yet.
func (h *Handler) ListInvoices(c *gin.Context) {
	lister, ok := h.adapter.(InvoiceLister)
	if !ok {
		c.Error(svcerr.NotImplemented("billing", "listing invoices"))
		return
	}

	workspace := middleware.Workspace(c)

	account, err := h.svc.GetAccount(workspace.ID)
	if err != nil {
		c.Error(err)
		return
	}
	if account == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Account not found"})
		return
	}
	if account.CustomerID == nil {
		c.JSON(http.StatusOK, []Invoice{})
		return
	}

	invoices, err := lister.ListInvoices(*account.CustomerID)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, invoices)
}

// SetSubscriptionPlan moves the live subscription to another plan,
// passing the current feature counts along so per-unit quantities stay
// in sync.
func (h *Handler) SetSubscriptionPlan(c *gin.Context) {
	updater, ok := h.adapter.(SubscriptionUpdater)
	if !ok {
		c.Error(svcerr.NotImplemented("billing", "updating subscriptions"))
		return
	}

	var body struct {
		PlanID string `json:"planId" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing or invalid planId"})
		return
	}

	workspace := middleware.Workspace(c)

	account, err := h.svc.GetAccount(workspace.ID)
	if err != nil {
		c.Error(err)
		return
	}
	if account == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Account not found"})
		return
	}
	if account.CustomerID == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Customer ID not found"})
		return
	}
	if account.Subscription == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Account has no subscription"})
		return
	}

	counts, err := h.svc.GetFeatureCounts(workspace.ID)
	if err != nil {
		c.Error(err)
		return
	}

	err = updater.UpdateSubscription(UpdateSubscriptionParams{
		SubscriptionID: account.Subscription.ID,
		PlanID:         body.PlanID,
		Counts:         counts,
	})
	if err != nil {
		c.Error(err)
		return
	}

	c.Status(http.StatusNoContent)
}

// CreateCheckoutSession starts a provider checkout for the given plan
// and returns the redirect URL.
func (h *Handler) CreateCheckoutSession(c *gin.Context) {
	if h.adapter == nil {
		c.Error(svcerr.NotImplemented("billing", "checkout"))
		return
	}

	var body struct {
		PlanID     string `json:"planId" binding:"required"`
		SuccessURL string `json:"successUrl" binding:"required"`
		CancelURL  string `json:"cancelUrl" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing or invalid checkout parameters"})
		return
	}

	workspace := middleware.Workspace(c)

	account, err := h.svc.GetAccount(workspace.ID)
	if err != nil {
		c.Error(err)
		return
	}

	email := middleware.UserEmail(c)
	if account != nil && account.Email != nil {
		email = *account.Email
	}

	customerID, err := h.svc.ResolveCustomerID(h.adapter, workspace, account, email)
	if err != nil {
		c.Error(err)
		return
	}

	counts, err := h.svc.GetFeatureCounts(workspace.ID)
	if err != nil {
		c.Error(err)
		return
	}

	session, err := h.adapter.CreateCheckoutSession(CheckoutParams{
		CustomerID: customerID,
		PlanID:     body.PlanID,
		Counts:     counts,
		SuccessURL: body.SuccessURL,
		CancelURL:  body.CancelURL,
	})
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, session)
}

// CreateBillingPortalSession returns a provider self-service portal URL.
func (h *Handler) CreateBillingPortalSession(c *gin.Context) {
	portal, ok := h.adapter.(PortalProvider)
	if !ok {
		c.Error(svcerr.NotImplemented("billing", "billing portal"))
		return
	}

	var body struct {
		ReturnURL string `json:"returnUrl" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing or invalid returnUrl"})
		return
	}

	workspace := middleware.Workspace(c)

	account, err := h.svc.GetAccount(workspace.ID)
	if err != nil {
		c.Error(err)
		return
	}
	if account == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Account not found"})
		return
	}

	email := middleware.UserEmail(c)
	if account.Email != nil {
		email = *account.Email
	}

	customerID, err := h.svc.ResolveCustomerID(h.adapter, workspace, account, email)
	if err != nil {
		c.Error(err)
		return
	}

	url, err := portal.CreateBillingPortalSession(customerID, body.ReturnURL)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"url": url})
}

// ReportUsage pushes the current counts of metered plan features to the
// provider.
func (h *Handler) ReportUsage(c *gin.Context) {
	registrar, ok := h.adapter.(UsageRegistrar)
	if !ok {
		c.Error(svcerr.NotImplemented("billing", "usage metering"))
		return
	}

	workspace := middleware.Workspace(c)
	subscription := middleware.Subscription(c)
	if subscription == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Account has no subscription"})
		return
	}

	account, err := h.svc.GetAccount(workspace.ID)
	if err != nil {
		c.Error(err)
		return
	}
	if account == nil || account.CustomerID == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Customer ID not found"})
		return
	}

	plan, err := h.svc.GetPlan(subscription.PlanID)
	if err != nil {
		c.Error(err)
		return
	}
	if plan == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Plan not found"})
		return
	}

	counts, err := h.svc.GetFeatureCounts(workspace.ID)
	if err != nil {
		c.Error(err)
		return
	}

	reported := map[string]int64{}
	for _, feature := range plan.Features {
		if feature.Type != billingdomain.FeatureTypeMetered {
			continue
		}
		if err := registrar.RegisterUsage(*account.CustomerID, feature.ID, counts[feature.ID]); err != nil {
			c.Error(err)
			return
		}
		reported[feature.ID] = counts[feature.ID]
	}

	c.JSON(http.StatusOK, gin.H{"reported": reported})
}
