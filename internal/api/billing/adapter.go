package billing

import "time"

// Adapter abstracts the external payment provider. Only customer lookup
// and checkout are required; everything else is an optional capability
// discovered with a type assertion. Callers must branch on capability
// presence and surface a not_implemented service error, never panic on
// a missing method.
type Adapter interface {
	// FindCustomerID resolves a provider customer id, trying the stored
	// id first, then the account id or email. Returns "" when no
	// customer exists yet.
	FindCustomerID(params FindCustomerParams) (string, error)

	// CreateCheckoutSession returns the checkout URL to redirect the
	// user to.
	CreateCheckoutSession(params CheckoutParams) (*CheckoutSession, error)
}

type CustomerCreator interface {
	CreateCustomer(params CreateCustomerParams) (string, error)
}

type CustomerUpdater interface {
	UpdateCustomer(params UpdateCustomerParams) error
}

type PortalProvider interface {
	CreateBillingPortalSession(customerID, returnURL string) (string, error)
}

type SubscriptionUpdater interface {
	// UpdateSubscription changes the plan or the feature quantities of a
	// live subscription.
	UpdateSubscription(params UpdateSubscriptionParams) error
}

type InvoiceLister interface {
	ListInvoices(customerID string) ([]Invoice, error)
}

type UsageRegistrar interface {
	RegisterUsage(customerID, featureID string, quantity int64) error
}

type FindCustomerParams struct {
	ID        string
	AccountID string
	Email     string
}

type CreateCustomerParams struct {
	AccountID string
	Name      string
	Email     string
}

type UpdateCustomerParams struct {
	CustomerID string
	AccountID  string
	Name       string
	Email      string
}

type CheckoutParams struct {
	CustomerID string
	PlanID     string
	Counts     map[string]int64
	SuccessURL string
	CancelURL  string
}

type CheckoutSession struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

type UpdateSubscriptionParams struct {
	SubscriptionID string
	PlanID         string
	Status         string
	Counts         map[string]int64
}

type Invoice struct {
	Number   string    `json:"number"`
	Date     time.Time `json:"date"`
	Status   string    `json:"status"`
	Total    float64   `json:"total"`
	Currency string    `json:"currency"`
	URL      string    `json:"url,omitempty"`
}
