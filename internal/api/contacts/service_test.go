package contacts

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"workspace-app/database"
	activitydomain "workspace-app/internal/domain/activity"
	tagsdomain "workspace-app/internal/domain/tags"
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
	require.NoError(t, db.Create(&wsdomain.Workspace{ID: "ws-1", Slug: "acme", Name: "Acme"}).Error)

	return NewService(db), db
}

func TestCreateSplitsName(t *testing.T) {
	svc, db := newTestService(t)

	contact, err := svc.Create(CreateArgs{
		WorkspaceID: "ws-1",
		UserID:      "user-1",
		Email:       "ada@example.com",
		Name:        "Ada Lovelace",
	})
	require.NoError(t, err)
	require.NotNil(t, contact.FirstName)
	assert.Equal(t, "Ada", *contact.FirstName)
	require.NotNil(t, contact.LastName)
	assert.Equal(t, "Lovelace", *contact.LastName)
	assert.Equal(t, "new", contact.Status)
	assert.Equal(t, "lead", contact.Type)

	var entry activitydomain.Log
	require.NoError(t, db.Where("workspace_id = ? AND subject_id = ?", "ws-1", contact.ID).First(&entry).Error)
	assert.Equal(t, activitydomain.TypeContactCreated, entry.Type)
	require.NotNil(t, entry.ActorID)
	assert.Equal(t, "user-1", *entry.ActorID)
}

func TestUpdateTags(t *testing.T) {
	svc, db := newTestService(t)

	contact, err := svc.Create(CreateArgs{
		WorkspaceID: "ws-1", UserID: "user-1", Email: "ada@example.com", Name: "Ada",
	})
	require.NoError(t, err)

	require.NoError(t, svc.UpdateTags("ws-1", contact.ID, "user-1", []string{"VIP Customer", "Beta Tester"}))

	updated, err := svc.GetByID("ws-1", contact.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"vip-customer", "beta-tester"}, []string(updated.Tags))

	// Unknown tags are created on the fly.
	var tagCount int64
	require.NoError(t, db.Model(&tagsdomain.Tag{}).Where("workspace_id = ?", "ws-1").Count(&tagCount).Error)
	assert.EqualValues(t, 2, tagCount)

	var entry activitydomain.Log
	err = db.Where("workspace_id = ? AND subject_id = ? AND type = ?",
		"ws-1", contact.ID, activitydomain.TypeTagsUpdated).First(&entry).Error
	require.NoError(t, err)
	assert.ElementsMatch(t, []interface{}{"vip-customer", "beta-tester"}, entry.Metadata["added"])

	// Replacing the list records the removal diff.
	require.NoError(t, svc.UpdateTags("ws-1", contact.ID, "user-1", []string{"VIP Customer"}))

	updated, err = svc.GetByID("ws-1", contact.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"vip-customer"}, []string(updated.Tags))

	var entries []activitydomain.Log
	err = db.Where("workspace_id = ? AND subject_id = ? AND type = ?",
		"ws-1", contact.ID, activitydomain.TypeTagsUpdated).
		Order("created_at DESC").Find(&entries).Error
	require.NoError(t, err)
	require.Len(t, entries, 2)
}

func TestUpdateTagsUnknownContact(t *testing.T) {
	svc, _ := newTestService(t)

	err := svc.UpdateTags("ws-1", "missing", "user-1", []string{"VIP"})
	require.Error(t, err)
	assert.Equal(t, "contacts.not_found", svcerr.As(err).Code)
}

func TestListFiltersByType(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Create(CreateArgs{WorkspaceID: "ws-1", Email: "lead@example.com", Type: "lead"})
	require.NoError(t, err)
	_, err = svc.Create(CreateArgs{WorkspaceID: "ws-1", Email: "cust@example.com", Type: "customer"})
	require.NoError(t, err)

	leads, err := svc.List(ListArgs{WorkspaceID: "ws-1", Type: "lead"})
	require.NoError(t, err)
	require.Len(t, leads, 1)
	assert.Equal(t, "lead@example.com", leads[0].Email)

	all, err := svc.List(ListArgs{WorkspaceID: "ws-1"})
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestComments(t *testing.T) {
	svc, _ := newTestService(t)

	contact, err := svc.Create(CreateArgs{WorkspaceID: "ws-1", Email: "ada@example.com"})
	require.NoError(t, err)

	entry, err := svc.CreateComment("ws-1", contact.ID, "user-1", "Called back, very interested")
	require.NoError(t, err)
	assert.Equal(t, activitydomain.TypeCommentAdded, entry.Type)
	assert.Equal(t, "Called back, very interested", entry.Metadata["comment"])

	require.NoError(t, svc.DeleteComment("ws-1", entry.ID))

	remaining, err := svc.GetByID("ws-1", contact.ID)
	require.NoError(t, err)
	require.NotNil(t, remaining)
}
