package billing

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"workspace-app/database"
	billingdomain "workspace-app/internal/domain/billing"
	contactsdomain "workspace-app/internal/domain/contacts"
	wsdomain "workspace-app/internal/domain/workspaces"
	"workspace-app/internal/svcerr"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	return db
}

func newTestService(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()
	db := newTestDB(t)
	return NewService(db, zerolog.Nop()), db
}

func testPlan(id string, userLimit float64) billingdomain.Plan {
	return billingdomain.Plan{
		ID:       id,
		Name:     id,
		Active:   true,
		Currency: "USD",
		Interval: "month",
		Features: billingdomain.FeatureList{
			{ID: billingdomain.FeatureUsers, Limit: &userLimit},
		},
	}
}

func TestSyncPlansIdempotent(t *testing.T) {
	svc, db := newTestService(t)

	require.NoError(t, svc.SyncPlans([]billingdomain.Plan{testPlan("free", 3), testPlan("pro", 10)}))
	require.NoError(t, svc.SyncPlans([]billingdomain.Plan{testPlan("free", 5), testPlan("pro", 10)}))

	var count int64
	require.NoError(t, db.Model(&billingdomain.Plan{}).Count(&count).Error)
	assert.EqualValues(t, 2, count)

	plan, err := svc.GetPlan("free")
	require.NoError(t, err)
	require.NotNil(t, plan)
	require.NotNil(t, plan.Feature(billingdomain.FeatureUsers))
	assert.EqualValues(t, 5, *plan.Feature(billingdomain.FeatureUsers).Limit)
}

func TestGetPlanUnknown(t *testing.T) {
	svc, _ := newTestService(t)

	plan, err := svc.GetPlan("nope")
	require.NoError(t, err)
	assert.Nil(t, plan)
}

func TestUpsertSubscription(t *testing.T) {
	svc, _ := newTestService(t)
	require.NoError(t, svc.UpsertAccount("ws-1", nil, nil))

	sub := billingdomain.Subscription{
		ID:        "sub_123",
		AccountID: "ws-1",
		PlanID:    "pro",
		Status:    billingdomain.StatusActive,
		Quantity:  2,
	}
	require.NoError(t, svc.UpsertSubscription(sub))

	// Replayed with newer data: same row, updated fields.
	sub.Status = billingdomain.StatusPastDue
	sub.Quantity = 3
	require.NoError(t, svc.UpsertSubscription(sub))

	stored, err := svc.GetSubscription("sub_123")
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, billingdomain.StatusPastDue, stored.Status)
	assert.EqualValues(t, 3, stored.Quantity)

	account, err := svc.GetAccount("ws-1")
	require.NoError(t, err)
	require.NotNil(t, account)
	require.NotNil(t, account.Subscription)
	assert.Equal(t, "sub_123", account.Subscription.ID)
}

func TestUpsertSubscriptionRejectsUnknownStatus(t *testing.T) {
	svc, _ := newTestService(t)

	err := svc.UpsertSubscription(billingdomain.Subscription{
		ID:        "sub_456",
		AccountID: "ws-1",
		PlanID:    "pro",
		Status:    "definitely-not-a-status",
	})
	require.Error(t, err)

	svcErr := svcerr.As(err)
	require.NotNil(t, svcErr)
	assert.Equal(t, "billing.invalid_status", svcErr.Code)
}

func TestUpsertAccountKeepsExistingFields(t *testing.T) {
	svc, _ := newTestService(t)

	customerID := "cus_123"
	require.NoError(t, svc.UpsertAccount("ws-1", &customerID, nil))

	email := "billing@example.com"
	require.NoError(t, svc.UpsertAccount("ws-1", nil, &email))

	account, err := svc.GetAccount("ws-1")
	require.NoError(t, err)
	require.NotNil(t, account)
	require.NotNil(t, account.CustomerID)
	assert.Equal(t, "cus_123", *account.CustomerID)
	require.NotNil(t, account.Email)
	assert.Equal(t, "billing@example.com", *account.Email)
}

func TestGetFeatureCounts(t *testing.T) {
	svc, db := newTestDBWithMembers(t)

	counts, err := svc.GetFeatureCounts("ws-1")
	require.NoError(t, err)
	assert.EqualValues(t, 2, counts[billingdomain.FeatureUsers])
	assert.EqualValues(t, 1, counts[billingdomain.FeatureContacts])

	// A contact last touched before this month does not count.
	lastYear := time.Now().AddDate(-1, 0, 0)
	require.NoError(t, db.Model(&contactsdomain.Contact{}).
		Where("id = ?", "contact-1").
		UpdateColumn("updated_at", lastYear).Error)

	counts, err = svc.GetFeatureCounts("ws-1")
	require.NoError(t, err)
	assert.EqualValues(t, 0, counts[billingdomain.FeatureContacts])
}

func newTestDBWithMembers(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()
	svc, db := newTestService(t)

	require.NoError(t, db.Create(&wsdomain.Workspace{ID: "ws-1", Slug: "acme", Name: "Acme"}).Error)
	members := []wsdomain.Member{
		{UserID: "user-1", WorkspaceID: "ws-1", Role: wsdomain.RoleAdmin, Status: wsdomain.MemberStatusActive},
		{UserID: "user-2", WorkspaceID: "ws-1", Role: wsdomain.RoleMember, Status: wsdomain.MemberStatusActive},
		{UserID: "user-3", WorkspaceID: "ws-1", Role: wsdomain.RoleMember, Status: wsdomain.MemberStatusSuspended},
	}
	for _, member := range members {
		require.NoError(t, db.Create(&member).Error)
	}
	require.NoError(t, db.Create(&contactsdomain.Contact{
		ID: "contact-1", WorkspaceID: "ws-1", Email: "lead@example.com", Status: "new", Type: "lead",
	}).Error)

	return svc, db
}

func TestLimitReached(t *testing.T) {
	svc, _ := newTestService(t)
	require.NoError(t, svc.SyncPlans([]billingdomain.Plan{testPlan("free", 3)}))

	cases := []struct {
		name     string
		planID   string
		quantity int64
		reached  bool
	}{
		{"below limit", "free", 2, false},
		{"at limit", "free", 3, true},
		{"over limit", "free", 4, true},
		{"unknown plan", "nope", 100, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			reached, err := svc.LimitReached(tc.planID, billingdomain.FeatureUsers, tc.quantity)
			require.NoError(t, err)
			assert.Equal(t, tc.reached, reached)
		})
	}
}

func TestLimitReachedZeroLimitMeansUnlimited(t *testing.T) {
	svc, _ := newTestService(t)
	require.NoError(t, svc.SyncPlans([]billingdomain.Plan{testPlan("enterprise", 0)}))

	reached, err := svc.LimitReached("enterprise", billingdomain.FeatureUsers, 100000)
	require.NoError(t, err)
	assert.False(t, reached)
}

func TestErrIfLimitReached(t *testing.T) {
	svc, _ := newTestService(t)
	require.NoError(t, svc.SyncPlans([]billingdomain.Plan{testPlan("free", 3)}))

	require.NoError(t, svc.ErrIfLimitReached("free", billingdomain.FeatureUsers, 2))

	err := svc.ErrIfLimitReached("free", billingdomain.FeatureUsers, 3)
	require.Error(t, err)
	svcErr := svcerr.As(err)
	require.NotNil(t, svcErr)
	assert.Equal(t, "billing.limit_reached", svcErr.Code)
}

// fakeAdapter implements only the required adapter surface.
type fakeAdapter struct {
	foundCustomerID string
	findParams      []FindCustomerParams
}

func (f *fakeAdapter) FindCustomerID(params FindCustomerParams) (string, error) {
	f.findParams = append(f.findParams, params)
	return f.foundCustomerID, nil
}

func (f *fakeAdapter) CreateCheckoutSession(params CheckoutParams) (*CheckoutSession, error) {
	return &CheckoutSession{ID: "cs_test", URL: "https://checkout.example.com/cs_test"}, nil
}

// creatorAdapter adds the customer creation capability.
type creatorAdapter struct {
	fakeAdapter
	created []CreateCustomerParams
}

func (f *creatorAdapter) CreateCustomer(params CreateCustomerParams) (string, error) {
	f.created = append(f.created, params)
	return "cus_new", nil
}

func TestResolveCustomerIDStored(t *testing.T) {
	svc, _ := newTestService(t)

	workspace := &wsdomain.Workspace{ID: "ws-1", Name: "Acme"}
	customerID := "cus_stored"
	account := &billingdomain.Account{ID: "ws-1", CustomerID: &customerID}

	adapter := &fakeAdapter{foundCustomerID: "cus_stored"}

	resolved, err := svc.ResolveCustomerID(adapter, workspace, account, "owner@example.com")
	require.NoError(t, err)
	assert.Equal(t, "cus_stored", resolved)
	require.Len(t, adapter.findParams, 1)
	assert.Equal(t, "cus_stored", adapter.findParams[0].ID)
}

func TestResolveCustomerIDCreatesAndPersists(t *testing.T) {
	svc, _ := newTestService(t)
	require.NoError(t, svc.UpsertAccount("ws-1", nil, nil))

	workspace := &wsdomain.Workspace{ID: "ws-1", Name: "Acme"}
	adapter := &creatorAdapter{}

	resolved, err := svc.ResolveCustomerID(adapter, workspace, nil, "owner@example.com")
	require.NoError(t, err)
	assert.Equal(t, "cus_new", resolved)
	require.Len(t, adapter.created, 1)
	assert.Equal(t, "ws-1", adapter.created[0].AccountID)

	account, err := svc.GetAccount("ws-1")
	require.NoError(t, err)
	require.NotNil(t, account)
	require.NotNil(t, account.CustomerID)
	assert.Equal(t, "cus_new", *account.CustomerID)
}

func TestResolveCustomerIDFallsBackToWorkspaceID(t *testing.T) {
	svc, _ := newTestService(t)

	workspace := &wsdomain.Workspace{ID: "ws-1", Name: "Acme"}
	adapter := &fakeAdapter{}

	resolved, err := svc.ResolveCustomerID(adapter, workspace, nil, "owner@example.com")
	require.NoError(t, err)
	assert.Equal(t, "ws-1", resolved)
}
