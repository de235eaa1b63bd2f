package billing

import (
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	billingdomain "workspace-app/internal/domain/billing"
	"workspace-app/internal/domain/workspaces"
	"workspace-app/internal/svcerr"
)

// Service owns the billing tables. No other component writes accounts,
// subscriptions or plans.
type Service struct {
	db  *gorm.DB
	log zerolog.Logger
}

func NewService(db *gorm.DB, log zerolog.Logger) *Service {
	return &Service{db: db, log: log}
}

// SyncPlans mirrors a static plan catalog into the store. Idempotent:
// one upsert per plan, keyed on the plan id, inside one transaction.
func (s *Service) SyncPlans(plans []billingdomain.Plan) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		for i := range plans {
			plan := plans[i]
			err := tx.Clauses(clause.OnConflict{
				Columns: []clause.Column{{Name: "id"}},
				DoUpdates: clause.AssignmentColumns([]string{
					"name", "description", "active", "price", "currency",
					"interval", "trial_period_days", "features", "metadata", "updated_at",
				}),
			}).Create(&plan).Error
			if err != nil {
				return fmt.Errorf("sync plan %s: %w", plan.ID, err)
			}
		}
		return nil
	})
}

func (s *Service) GetPlan(id string) (*billingdomain.Plan, error) {
	var plan billingdomain.Plan
	err := s.db.Where("id = ?", id).First(&plan).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &plan, nil
}

func (s *Service) ListPlans() ([]billingdomain.Plan, error) {
	var plans []billingdomain.Plan
	err := s.db.Where("active = ?", true).Order("price ASC").Find(&plans).Error
	return plans, err
}

// GetAccount fetches a billing account with its subscription, if any.
// Returns nil when the account does not exist.
func (s *Service) GetAccount(id string) (*billingdomain.Account, error) {
	var account billingdomain.Account
	err := s.db.Preload("Subscription").Where("id = ?", id).First(&account).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &account, nil
}

// GetAccountByCustomerID resolves an account from the provider customer
// reference. Returns nil when no account carries that customer id.
func (s *Service) GetAccountByCustomerID(customerID string) (*billingdomain.Account, error) {
	var account billingdomain.Account
	err := s.db.Where("customer_id = ?", customerID).First(&account).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &account, nil
}

// UpsertAccount creates the account row or updates the provided fields.
func (s *Service) UpsertAccount(id string, customerID, email *string) error {
	account := billingdomain.Account{ID: id, CustomerID: customerID, Email: email}

	set := map[string]interface{}{"updated_at": time.Now()}
	if customerID != nil {
		set["customer_id"] = *customerID
	}
	if email != nil {
		set["email"] = *email
	}

	return s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.Assignments(set),
	}).Create(&account).Error
}

func (s *Service) UpdateAccount(id string, customerID, email *string) error {
	set := map[string]interface{}{}
	if customerID != nil {
		set["customer_id"] = *customerID
	}
	if email != nil {
		set["email"] = *email
	}
	if len(set) == 0 {
		return nil
	}
	return s.db.Model(&billingdomain.Account{}).Where("id = ?", id).Updates(set).Error
}

// UpsertSubscription is the sole write path for subscription state.
// Keyed on the provider subscription id, it is safe to call repeatedly
// with the same or evolving data (webhook replay safety).
func (s *Service) UpsertSubscription(sub billingdomain.Subscription) error {
	if !billingdomain.ValidStatus(sub.Status) {
		return svcerr.New("billing.invalid_status", fmt.Sprintf("unknown subscription status %q", sub.Status))
	}

	return s.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"account_id", "plan_id", "status", "quantity", "started_at",
			"cancel_at", "cancel_at_period_end", "canceled_at",
			"current_period_start", "current_period_end", "ended_at",
			"trial_ends_at", "metadata", "updated_at",
		}),
	}).Create(&sub).Error
}

func (s *Service) GetSubscription(id string) (*billingdomain.Subscription, error) {
	var sub billingdomain.Subscription
	err := s.db.Where("id = ?", id).First(&sub).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

type featureCountRow struct {
	Feature string
	Count   int64
}

// GetFeatureCounts computes current usage for the known feature ids in
// one unioned aggregate query: active members, and contacts updated
// since the start of the current calendar month. Both keys are always
// present in the result.
func (s *Service) GetFeatureCounts(accountID string) (map[string]int64, error) {
	now := time.Now()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())

	var rows []featureCountRow
	err := s.db.Raw(`
		SELECT 'users' AS feature, COUNT(*) AS count
		FROM workspace_members
		WHERE workspace_id = ? AND status = ?
		UNION ALL
		SELECT 'contacts' AS feature, COUNT(*) AS count
		FROM contacts
		WHERE workspace_id = ? AND updated_at >= ?`,
		accountID, workspaces.MemberStatusActive, accountID, monthStart,
	).Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := map[string]int64{
		billingdomain.FeatureUsers:    0,
		billingdomain.FeatureContacts: 0,
	}
	for _, row := range rows {
		counts[row.Feature] = row.Count
	}
	return counts, nil
}

// LimitReached reports whether quantity exhausts the plan's limit for a
// feature. False when the plan, the feature or its limit is absent
// (zero counts as no limit). The bound is inclusive: a quantity equal
// to the limit is already reached, so the (n+1)-th unit is blocked.
func (s *Service) LimitReached(planID, featureID string, quantity int64) (bool, error) {
	plan, err := s.GetPlan(planID)
	if err != nil {
		return false, err
	}
	if plan == nil {
		return false, nil
	}

	feature := plan.Feature(featureID)
	if feature == nil || feature.Limit == nil || *feature.Limit == 0 {
		return false, nil
	}

	return float64(quantity) >= *feature.Limit, nil
}

// ErrIfLimitReached runs the same check and returns a service error
// with code billing.limit_reached on violation. Guard for any
// quantity-increasing operation; quantity must be the prospective total
// including the operation about to be performed.
func (s *Service) ErrIfLimitReached(planID, featureID string, quantity int64) error {
	reached, err := s.LimitReached(planID, featureID, quantity)
	if err != nil {
		return err
	}
	if reached {
		return svcerr.New("billing.limit_reached", fmt.Sprintf("Limit for %s reached", featureID))
	}
	return nil
}

// ResolveCustomerID implements the customer-resolution protocol used by
// the checkout and portal flows: stored id, then account id or email,
// then creation when the adapter supports it. Adapters without customer
// support fall back to the workspace id as a pass-through reference,
// which is logged since downstream calls then receive a non-native id.
func (s *Service) ResolveCustomerID(adapter Adapter, workspace *workspaces.Workspace, account *billingdomain.Account, email string) (string, error) {
	params := FindCustomerParams{AccountID: workspace.ID, Email: email}
	if account != nil && account.CustomerID != nil {
		params.ID = *account.CustomerID
	}

	customerID, err := adapter.FindCustomerID(params)
	if err != nil {
		return "", err
	}
	if customerID != "" {
		return customerID, nil
	}

	if creator, ok := adapter.(CustomerCreator); ok {
		customerID, err = creator.CreateCustomer(CreateCustomerParams{
			AccountID: workspace.ID,
			Name:      workspace.Name,
			Email:     email,
		})
		if err != nil {
			return "", err
		}

		if err := s.UpsertAccount(workspace.ID, &customerID, nil); err != nil {
			return "", err
		}
		return customerID, nil
	}

	s.log.Debug().
		Str("workspace_id", workspace.ID).
		Msg("adapter does not support customer creation, using workspace id as checkout reference")

	return workspace.ID, nil
}
