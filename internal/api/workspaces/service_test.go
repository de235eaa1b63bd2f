package workspaces

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"workspace-app/database"
	billingdomain "workspace-app/internal/domain/billing"
	tagsdomain "workspace-app/internal/domain/tags"
	"workspace-app/internal/domain/users"
	wsdomain "workspace-app/internal/domain/workspaces"
	"workspace-app/internal/svcerr"
)

func newTestService(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	return NewService(db, "free"), db
}

func TestCreateProvisionsEverything(t *testing.T) {
	svc, db := newTestService(t)

	require.NoError(t, db.Create(&users.User{ID: "owner-1", Email: "owner@example.com"}).Error)

	workspace, err := svc.Create(CreateArgs{OwnerID: "owner-1", Name: "Acme Inc"})
	require.NoError(t, err)
	assert.NotEmpty(t, workspace.ID)
	assert.Equal(t, "acme-inc", workspace.Slug)

	var member wsdomain.Member
	require.NoError(t, db.Where("workspace_id = ? AND user_id = ?", workspace.ID, "owner-1").First(&member).Error)
	assert.Equal(t, wsdomain.RoleAdmin, member.Role)
	assert.Equal(t, wsdomain.MemberStatusActive, member.Status)

	var account billingdomain.Account
	require.NoError(t, db.Where("id = ?", workspace.ID).First(&account).Error)
	assert.Nil(t, account.CustomerID)

	var tagCount int64
	require.NoError(t, db.Model(&tagsdomain.Tag{}).Where("workspace_id = ?", workspace.ID).Count(&tagCount).Error)
	assert.EqualValues(t, len(defaultTags), tagCount)
}

func TestCreateUnknownOwnerRollsBack(t *testing.T) {
	svc, db := newTestService(t)

	_, err := svc.Create(CreateArgs{OwnerID: "ghost", Name: "Acme"})
	require.Error(t, err)
	assert.Equal(t, "workspace.owner_not_found", svcerr.As(err).Code)

	// Nothing from the failed transaction is observable.
	var count int64
	require.NoError(t, db.Model(&wsdomain.Workspace{}).Count(&count).Error)
	assert.EqualValues(t, 0, count)
	require.NoError(t, db.Model(&billingdomain.Account{}).Count(&count).Error)
	assert.EqualValues(t, 0, count)
}

func TestIsSlugAvailable(t *testing.T) {
	svc, db := newTestService(t)

	require.NoError(t, db.Create(&wsdomain.Workspace{ID: "ws-1", Slug: "taken", Name: "Taken"}).Error)

	available, err := svc.IsSlugAvailable("taken")
	require.NoError(t, err)
	assert.False(t, available)

	available, err = svc.IsSlugAvailable("open")
	require.NoError(t, err)
	assert.True(t, available)
}

func TestGetDetailSyntheticSubscription(t *testing.T) {
	svc, db := newTestService(t)

	require.NoError(t, db.Create(&users.User{ID: "owner-1", Email: "owner@example.com"}).Error)
	workspace, err := svc.Create(CreateArgs{OwnerID: "owner-1", Name: "Acme"})
	require.NoError(t, err)

	detail, err := svc.GetDetail(workspace, nil)
	require.NoError(t, err)
	require.NotNil(t, detail.Subscription)
	assert.Empty(t, detail.Subscription.ID)
	assert.Equal(t, "free", detail.Subscription.PlanID)
	assert.Equal(t, billingdomain.StatusActive, detail.Subscription.Status)

	// The owner's membership carries an extra owner role on the wire.
	require.Len(t, detail.Members, 1)
	assert.Equal(t, []string{wsdomain.RoleOwner, wsdomain.RoleAdmin}, detail.Members[0].Roles)
	assert.Len(t, detail.Tags, len(defaultTags))
}

func TestGetDetailRealSubscription(t *testing.T) {
	svc, db := newTestService(t)

	require.NoError(t, db.Create(&users.User{ID: "owner-1", Email: "owner@example.com"}).Error)
	workspace, err := svc.Create(CreateArgs{OwnerID: "owner-1", Name: "Acme"})
	require.NoError(t, err)

	subscription := &billingdomain.Subscription{
		ID: "sub_123", AccountID: workspace.ID, PlanID: "pro", Status: billingdomain.StatusTrialing,
	}

	detail, err := svc.GetDetail(workspace, subscription)
	require.NoError(t, err)
	require.NotNil(t, detail.Subscription)
	assert.Equal(t, "sub_123", detail.Subscription.ID)
	assert.Equal(t, "pro", detail.Subscription.PlanID)
	assert.Equal(t, billingdomain.StatusTrialing, detail.Subscription.Status)
}

func TestMakeSlug(t *testing.T) {
	assert.Equal(t, "acme-inc", wsdomain.MakeSlug("Acme Inc"))
	assert.Equal(t, "hello-world", wsdomain.MakeSlug("  Hello,  World!  "))
}
