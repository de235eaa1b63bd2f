package stripe

import (
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/stripe/stripe-go/v75"
	portalsession "github.com/stripe/stripe-go/v75/billingportal/session"
	checkoutsession "github.com/stripe/stripe-go/v75/checkout/session"
	"github.com/stripe/stripe-go/v75/customer"
	"github.com/stripe/stripe-go/v75/invoice"
	"github.com/stripe/stripe-go/v75/subscription"
	"github.com/stripe/stripe-go/v75/usagerecord"

	"workspace-app/internal/api/billing"
	billingdomain "workspace-app/internal/domain/billing"
)

const (
	metaAccountID = "accountId"
	metaPlanID    = "planId"
)

// Adapter talks to Stripe and keeps the local billing tables in sync.
// It implements every optional billing capability.
type Adapter struct {
	billing *billing.Service
	log     zerolog.Logger
}

func NewAdapter(apiKey string, billingSvc *billing.Service, log zerolog.Logger) *Adapter {
	stripe.Key = apiKey
	return &Adapter{billing: billingSvc, log: log}
}

var _ billing.Adapter = (*Adapter)(nil)
var _ billing.CustomerCreator = (*Adapter)(nil)
var _ billing.CustomerUpdater = (*Adapter)(nil)
var _ billing.PortalProvider = (*Adapter)(nil)
var _ billing.SubscriptionUpdater = (*Adapter)(nil)
var _ billing.InvoiceLister = (*Adapter)(nil)
var _ billing.UsageRegistrar = (*Adapter)(nil)

// FindCustomerID tries the stored id first, then searches by the
// account id stamped into customer metadata, then by email. Deleted
// customers are skipped so a checkout can re-create them.
func (a *Adapter) FindCustomerID(params billing.FindCustomerParams) (string, error) {
	if params.ID != "" {
		cust, err := customer.Get(params.ID, nil)
		if err == nil && !cust.Deleted {
			return cust.ID, nil
		}
		if err != nil && !isNotFound(err) {
			return "", err
		}
	}

	if params.AccountID != "" {
		search := customer.Search(&stripe.CustomerSearchParams{
			SearchParams: stripe.SearchParams{
				Query: fmt.Sprintf("metadata['%s']:'%s'", metaAccountID, params.AccountID),
			},
		})
		for search.Next() {
			cust := search.Customer()
			if !cust.Deleted {
				return cust.ID, nil
			}
		}
		if err := search.Err(); err != nil {
			return "", err
		}
	}

	if params.Email != "" {
		list := customer.List(&stripe.CustomerListParams{Email: stripe.String(params.Email)})
		for list.Next() {
			cust := list.Customer()
			if !cust.Deleted {
				return cust.ID, nil
			}
		}
		if err := list.Err(); err != nil {
			return "", err
		}
	}

	return "", nil
}

func (a *Adapter) CreateCustomer(params billing.CreateCustomerParams) (string, error) {
	cust, err := customer.New(&stripe.CustomerParams{
		Name:  stripe.String(params.Name),
		Email: stripe.String(params.Email),
		Params: stripe.Params{
			Metadata: map[string]string{metaAccountID: params.AccountID},
		},
	})
	if err != nil {
		return "", err
	}
	return cust.ID, nil
}

func (a *Adapter) UpdateCustomer(params billing.UpdateCustomerParams) error {
	update := &stripe.CustomerParams{}
	if params.Name != "" {
		update.Name = stripe.String(params.Name)
	}
	if params.Email != "" {
		update.Email = stripe.String(params.Email)
	}
	if params.AccountID != "" {
		update.Params = stripe.Params{
			Metadata: map[string]string{metaAccountID: params.AccountID},
		}
	}

	_, err := customer.Update(params.CustomerID, update)
	return err
}

// CreateCheckoutSession builds one line item per plan feature that
// carries a price. Per-unit features get their current count as the
// starting quantity; metered features carry no quantity at all.
func (a *Adapter) CreateCheckoutSession(params billing.CheckoutParams) (*billing.CheckoutSession, error) {
	plan, err := a.billing.GetPlan(params.PlanID)
	if err != nil {
		return nil, err
	}
	if plan == nil {
		return nil, fmt.Errorf("stripe: unknown plan %q", params.PlanID)
	}

	lineItems, err := planLineItems(plan, params.Counts)
	if err != nil {
		return nil, err
	}

	session, err := checkoutsession.New(&stripe.CheckoutSessionParams{
		Customer:   stripe.String(params.CustomerID),
		Mode:       stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		LineItems:  lineItems,
		SuccessURL: stripe.String(params.SuccessURL),
		CancelURL:  stripe.String(params.CancelURL),
		SubscriptionData: &stripe.CheckoutSessionSubscriptionDataParams{
			Metadata: map[string]string{metaPlanID: plan.ID},
		},
	})
	if err != nil {
		return nil, err
	}

	return &billing.CheckoutSession{ID: session.ID, URL: session.URL}, nil
}

func (a *Adapter) CreateBillingPortalSession(customerID, returnURL string) (string, error) {
	session, err := portalsession.New(&stripe.BillingPortalSessionParams{
		Customer:  stripe.String(customerID),
		ReturnURL: stripe.String(returnURL),
	})
	if err != nil {
		return "", err
	}
	return session.URL, nil
}

// UpdateSubscription moves a live subscription onto the target plan's
// prices. Items whose price is not part of the plan are removed;
// matching per-unit items only get their quantity adjusted.
func (a *Adapter) UpdateSubscription(params billing.UpdateSubscriptionParams) error {
	if params.Status == billingdomain.StatusCanceled {
		_, err := subscription.Cancel(params.SubscriptionID, nil)
		return err
	}

	plan, err := a.billing.GetPlan(params.PlanID)
	if err != nil {
		return err
	}
	if plan == nil {
		return fmt.Errorf("stripe: unknown plan %q", params.PlanID)
	}

	sub, err := subscription.Get(params.SubscriptionID, nil)
	if err != nil {
		return err
	}

	existing := map[string]*stripe.SubscriptionItem{}
	for _, item := range sub.Items.Data {
		existing[item.Price.ID] = item
	}

	var items []*stripe.SubscriptionItemsParams
	wanted := map[string]bool{}
	for _, feature := range plan.Features {
		if feature.PriceID == "" {
			continue
		}
		wanted[feature.PriceID] = true

		item := &stripe.SubscriptionItemsParams{Price: stripe.String(feature.PriceID)}
		if current, ok := existing[feature.PriceID]; ok {
			item.ID = stripe.String(current.ID)
		}
		if feature.Type == billingdomain.FeatureTypePerUnit {
			quantity := params.Counts[feature.ID]
			if quantity < 1 {
				quantity = 1
			}
			item.Quantity = stripe.Int64(quantity)
		}
		items = append(items, item)
	}
	for priceID, item := range existing {
		if !wanted[priceID] {
			items = append(items, &stripe.SubscriptionItemsParams{
				ID:      stripe.String(item.ID),
				Deleted: stripe.Bool(true),
			})
		}
	}

	_, err = subscription.Update(params.SubscriptionID, &stripe.SubscriptionParams{
		Items:             items,
		ProrationBehavior: stripe.String("create_prorations"),
		Params: stripe.Params{
			Metadata: map[string]string{metaPlanID: plan.ID},
		},
	})
	return err
}

func (a *Adapter) ListInvoices(customerID string) ([]billing.Invoice, error) {
	invoices := []billing.Invoice{}

	list := invoice.List(&stripe.InvoiceListParams{Customer: stripe.String(customerID)})
	for list.Next() {
		inv := list.Invoice()
		invoices = append(invoices, billing.Invoice{
			Number:   inv.Number,
			Date:     time.Unix(inv.Created, 0),
			Status:   string(inv.Status),
			Total:    float64(inv.Total) / 100,
			Currency: string(inv.Currency),
			URL:      inv.HostedInvoiceURL,
		})
	}
	if err := list.Err(); err != nil {
		return nil, err
	}

	return invoices, nil
}

// RegisterUsage reports metered consumption against the subscription
// item whose price matches the feature on the subscriber's plan.
func (a *Adapter) RegisterUsage(customerID, featureID string, quantity int64) error {
	list := subscription.List(&stripe.SubscriptionListParams{Customer: stripe.String(customerID)})
	for list.Next() {
		sub := list.Subscription()

		plan, err := a.billing.GetPlan(sub.Metadata[metaPlanID])
		if err != nil {
			return err
		}
		if plan == nil {
			continue
		}
		feature := plan.Feature(featureID)
		if feature == nil || feature.Type != billingdomain.FeatureTypeMetered {
			continue
		}

		for _, item := range sub.Items.Data {
			if item.Price.ID != feature.PriceID {
				continue
			}
			_, err := usagerecord.New(&stripe.UsageRecordParams{
				SubscriptionItem: stripe.String(item.ID),
				Quantity:         stripe.Int64(quantity),
				Timestamp:        stripe.Int64(time.Now().Unix()),
				Action:           stripe.String(stripe.UsageRecordActionSet),
			})
			return err
		}
	}
	if err := list.Err(); err != nil {
		return err
	}

	return fmt.Errorf("stripe: no metered subscription item for feature %q on customer %s", featureID, customerID)
}

// SyncSubscriptionStatus re-fetches the subscription from Stripe and
// upserts the authoritative state locally. Webhook payloads are only a
// trigger; they can arrive out of order, so the provider is always
// asked for the current truth. With initial set the freshly learned
// customer id is also written back onto the account.
func (a *Adapter) SyncSubscriptionStatus(subscriptionID string, initial bool) error {
	params := &stripe.SubscriptionParams{}
	params.AddExpand("customer")

	sub, err := subscription.Get(subscriptionID, params)
	if err != nil {
		return err
	}

	accountID, err := a.resolveAccountID(sub)
	if err != nil {
		return err
	}
	if accountID == "" {
		a.log.Warn().
			Str("subscription_id", sub.ID).
			Msg("subscription has no resolvable billing account, skipping sync")
		return nil
	}

	planID, quantity := a.planAndQuantity(sub)

	record := billingdomain.Subscription{
		ID:                 sub.ID,
		AccountID:          accountID,
		PlanID:             planID,
		Status:             subscriptionStatus(sub.Status),
		Quantity:           float64(quantity),
		StartedAt:          time.Unix(sub.StartDate, 0),
		CancelAtPeriodEnd:  sub.CancelAtPeriodEnd,
		CurrentPeriodStart: time.Unix(sub.CurrentPeriodStart, 0),
		CurrentPeriodEnd:   time.Unix(sub.CurrentPeriodEnd, 0),
		Metadata:           sub.Metadata,
	}
	if sub.CancelAt > 0 {
		t := time.Unix(sub.CancelAt, 0)
		record.CancelAt = &t
	}
	if sub.CanceledAt > 0 {
		t := time.Unix(sub.CanceledAt, 0)
		record.CanceledAt = &t
	}
	if sub.EndedAt > 0 {
		t := time.Unix(sub.EndedAt, 0)
		record.EndedAt = &t
	}
	if sub.TrialEnd > 0 {
		t := time.Unix(sub.TrialEnd, 0)
		record.TrialEndsAt = &t
	}

	if err := a.billing.UpsertSubscription(record); err != nil {
		return err
	}

	if initial && sub.Customer != nil {
		customerID := sub.Customer.ID
		var email *string
		if sub.Customer.Email != "" {
			email = &sub.Customer.Email
		}
		if err := a.billing.UpsertAccount(accountID, &customerID, email); err != nil {
			return err
		}
	}

	a.log.Info().
		Str("subscription_id", sub.ID).
		Str("account_id", accountID).
		Str("status", record.Status).
		Msg("synced subscription")

	return nil
}

// resolveAccountID finds the workspace the subscription belongs to:
// subscription metadata, then customer metadata, then the local account
// already holding this customer id.
func (a *Adapter) resolveAccountID(sub *stripe.Subscription) (string, error) {
	if id := sub.Metadata[metaAccountID]; id != "" {
		return id, nil
	}
	if sub.Customer != nil {
		if id := sub.Customer.Metadata[metaAccountID]; id != "" {
			return id, nil
		}
		account, err := a.billing.GetAccountByCustomerID(sub.Customer.ID)
		if err != nil {
			return "", err
		}
		if account != nil {
			return account.ID, nil
		}
	}
	return "", nil
}

// planAndQuantity derives the local plan id (metadata first, then a
// price match against the catalog) and the per-unit quantity.
func (a *Adapter) planAndQuantity(sub *stripe.Subscription) (string, int64) {
	planID := sub.Metadata[metaPlanID]

	if planID == "" {
		plans, err := a.billing.ListPlans()
		if err == nil {
		match:
			for _, plan := range plans {
				for _, feature := range plan.Features {
					if feature.PriceID == "" {
						continue
					}
					for _, item := range sub.Items.Data {
						if item.Price.ID == feature.PriceID {
							planID = plan.ID
							break match
						}
					}
				}
			}
		}
	}

	var quantity int64
	for _, item := range sub.Items.Data {
		if item.Quantity > 0 {
			quantity += item.Quantity
		}
	}

	return planID, quantity
}

func isNotFound(err error) bool {
	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) {
		return stripeErr.HTTPStatusCode == 404 || stripeErr.Code == stripe.ErrorCodeResourceMissing
	}
	return false
}
