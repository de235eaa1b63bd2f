package workspacemembers

import (
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"workspace-app/database"
	"workspace-app/internal/api/billing"
	billingdomain "workspace-app/internal/domain/billing"
	"workspace-app/internal/domain/users"
	"workspace-app/internal/domain/workspaces"
	"workspace-app/internal/svcerr"
)

func newTestService(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	billingSvc := billing.NewService(db, zerolog.Nop())
	userLimit := 3.0
	require.NoError(t, billingSvc.SyncPlans([]billingdomain.Plan{{
		ID:       "free",
		Name:     "Free",
		Active:   true,
		Currency: "USD",
		Interval: "month",
		Features: billingdomain.FeatureList{
			{ID: billingdomain.FeatureUsers, Limit: &userLimit},
		},
	}}))

	svc := NewService(db, billingSvc, nil, "free", 7*24*time.Hour, zerolog.Nop())
	return svc, db
}

func seedWorkspace(t *testing.T, db *gorm.DB) {
	t.Helper()

	require.NoError(t, db.Create(&users.User{
		ID: "owner-1", Email: "owner@example.com", Name: "Olive Owner", FirstName: "Olive",
	}).Error)
	require.NoError(t, db.Create(&workspaces.Workspace{
		ID: "ws-1", OwnerID: "owner-1", Slug: "acme", Name: "Acme",
	}).Error)
	require.NoError(t, db.Create(&workspaces.Member{
		UserID: "owner-1", WorkspaceID: "ws-1",
		Role: workspaces.RoleAdmin, Status: workspaces.MemberStatusActive,
	}).Error)
	require.NoError(t, db.Create(&billingdomain.Account{ID: "ws-1"}).Error)
}

func TestInviteMembersCreatesInvitations(t *testing.T) {
	svc, db := newTestService(t)
	seedWorkspace(t, db)

	created, err := svc.InviteMembers(InviteArgs{
		WorkspaceID: "ws-1",
		Emails:      []string{"new@example.com"},
		InvitedBy:   "owner-1",
	})
	require.NoError(t, err)
	require.Len(t, created, 1)
	assert.Equal(t, "new@example.com", created[0].Email)
	assert.Equal(t, workspaces.RoleMember, created[0].Role)
	require.NotNil(t, created[0].ExpiresAt)
	assert.True(t, created[0].ExpiresAt.After(time.Now()))
}

func TestInviteMembersDuplicateIsNoOp(t *testing.T) {
	svc, db := newTestService(t)
	seedWorkspace(t, db)

	created, err := svc.InviteMembers(InviteArgs{WorkspaceID: "ws-1", Emails: []string{"new@example.com"}})
	require.NoError(t, err)
	require.Len(t, created, 1)

	created, err = svc.InviteMembers(InviteArgs{WorkspaceID: "ws-1", Emails: []string{"new@example.com"}})
	require.NoError(t, err)
	assert.Empty(t, created)

	var count int64
	require.NoError(t, db.Model(&workspaces.Invitation{}).Where("workspace_id = ?", "ws-1").Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestInviteMembersExistingMemberSkipped(t *testing.T) {
	svc, db := newTestService(t)
	seedWorkspace(t, db)

	created, err := svc.InviteMembers(InviteArgs{WorkspaceID: "ws-1", Emails: []string{"owner@example.com"}})
	require.NoError(t, err)
	assert.Empty(t, created)
}

func TestInviteMembersLimitBlocksBeforeWriting(t *testing.T) {
	svc, db := newTestService(t)
	seedWorkspace(t, db)

	// One active member on a limit of three: two more invitees land
	// exactly on the limit and must be blocked with zero rows written.
	_, err := svc.InviteMembers(InviteArgs{
		WorkspaceID: "ws-1",
		Emails:      []string{"a@example.com", "b@example.com"},
	})
	require.Error(t, err)
	svcErr := svcerr.As(err)
	require.NotNil(t, svcErr)
	assert.Equal(t, "billing.limit_reached", svcErr.Code)

	var count int64
	require.NoError(t, db.Model(&workspaces.Invitation{}).Where("workspace_id = ?", "ws-1").Count(&count).Error)
	assert.EqualValues(t, 0, count)

	// A single invitee stays below the limit.
	created, err := svc.InviteMembers(InviteArgs{WorkspaceID: "ws-1", Emails: []string{"a@example.com"}})
	require.NoError(t, err)
	require.Len(t, created, 1)

	// Pending invitations count toward the next check.
	_, err = svc.InviteMembers(InviteArgs{WorkspaceID: "ws-1", Emails: []string{"b@example.com"}})
	require.Error(t, err)
}

func TestInviteMembersBoundaryAtLimitFive(t *testing.T) {
	svc, db := newTestService(t)
	seedWorkspace(t, db)

	userLimit := 5.0
	require.NoError(t, svc.billing.SyncPlans([]billingdomain.Plan{{
		ID:       "free",
		Name:     "Free",
		Active:   true,
		Currency: "USD",
		Interval: "month",
		Features: billingdomain.FeatureList{
			{ID: billingdomain.FeatureUsers, Limit: &userLimit},
		},
	}}))

	for i := 2; i <= 4; i++ {
		require.NoError(t, db.Create(&workspaces.Member{
			UserID: fmt.Sprintf("user-%d", i), WorkspaceID: "ws-1",
			Role: workspaces.RoleMember, Status: workspaces.MemberStatusActive,
		}).Error)
	}

	// Four active members: two invitees land on 6, over the limit.
	_, err := svc.InviteMembers(InviteArgs{
		WorkspaceID: "ws-1",
		Emails:      []string{"e@example.com", "f@example.com"},
	})
	require.Error(t, err)
	assert.Equal(t, "billing.limit_reached", svcerr.As(err).Code)

	// One fewer member: two invitees land exactly on 5, still blocked.
	require.NoError(t, db.Where("workspace_id = ? AND user_id = ?", "ws-1", "user-4").
		Delete(&workspaces.Member{}).Error)
	_, err = svc.InviteMembers(InviteArgs{
		WorkspaceID: "ws-1",
		Emails:      []string{"e@example.com", "f@example.com"},
	})
	require.Error(t, err)

	// A single invitee stays at 4 and goes through.
	created, err := svc.InviteMembers(InviteArgs{WorkspaceID: "ws-1", Emails: []string{"e@example.com"}})
	require.NoError(t, err)
	assert.Len(t, created, 1)
}

func TestInviteMembersUnknownWorkspace(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.InviteMembers(InviteArgs{WorkspaceID: "nope", Emails: []string{"a@example.com"}})
	require.Error(t, err)
	svcErr := svcerr.As(err)
	require.NotNil(t, svcErr)
	assert.Equal(t, "workspace.not_found", svcErr.Code)
}

func TestValidatedInvitation(t *testing.T) {
	svc, db := newTestService(t)
	seedWorkspace(t, db)

	past := time.Now().Add(-time.Hour)
	invitations := []workspaces.Invitation{
		{ID: "tok-open", WorkspaceID: "ws-1", Email: "open@example.com", Role: "member"},
		{ID: "tok-accepted", WorkspaceID: "ws-1", Email: "done@example.com", Role: "member", Accepted: true, ExpiresAt: &past},
		{ID: "tok-expired", WorkspaceID: "ws-1", Email: "late@example.com", Role: "member", ExpiresAt: &past},
	}
	for _, invitation := range invitations {
		require.NoError(t, db.Create(&invitation).Error)
	}

	// No expiry means never expires.
	invitation, err := svc.ValidatedInvitation("tok-open")
	require.NoError(t, err)
	assert.Equal(t, "open@example.com", invitation.Email)

	_, err = svc.ValidatedInvitation("missing")
	require.Error(t, err)
	assert.Equal(t, "invitation.not_found", svcerr.As(err).Code)

	// Accepted wins over expired.
	_, err = svc.ValidatedInvitation("tok-accepted")
	require.Error(t, err)
	assert.Equal(t, "invitation.already_accepted", svcerr.As(err).Code)

	_, err = svc.ValidatedInvitation("tok-expired")
	require.Error(t, err)
	assert.Equal(t, "invitation.expired", svcerr.As(err).Code)
}

func TestAcceptInvitation(t *testing.T) {
	svc, db := newTestService(t)
	seedWorkspace(t, db)

	require.NoError(t, db.Create(&users.User{ID: "user-2", Email: "new@example.com"}).Error)
	require.NoError(t, db.Create(&workspaces.Invitation{
		ID: "tok-1", WorkspaceID: "ws-1", Email: "new@example.com", Role: workspaces.RoleMember,
	}).Error)

	member, err := svc.AcceptInvitation("tok-1", "user-2")
	require.NoError(t, err)
	assert.Equal(t, workspaces.MemberStatusActive, member.Status)
	assert.Equal(t, workspaces.RoleMember, member.Role)

	var count int64
	require.NoError(t, db.Model(&workspaces.Invitation{}).Where("id = ?", "tok-1").Count(&count).Error)
	assert.EqualValues(t, 0, count)

	// Exactly once: the second accept fails the state machine.
	_, err = svc.AcceptInvitation("tok-1", "user-2")
	require.Error(t, err)
	assert.Equal(t, "invitation.not_found", svcerr.As(err).Code)
}

func TestAcceptInvitationUserMismatch(t *testing.T) {
	svc, db := newTestService(t)
	seedWorkspace(t, db)

	invitee := "user-2"
	require.NoError(t, db.Create(&workspaces.Invitation{
		ID: "tok-1", WorkspaceID: "ws-1", Email: "new@example.com",
		Role: workspaces.RoleMember, UserID: &invitee,
	}).Error)

	_, err := svc.AcceptInvitation("tok-1", "someone-else")
	require.Error(t, err)
	assert.Equal(t, "invitation.user_mismatch", svcerr.As(err).Code)
}

func TestAcceptInvitationReactivatesSuspendedMember(t *testing.T) {
	svc, db := newTestService(t)
	seedWorkspace(t, db)

	require.NoError(t, db.Create(&users.User{ID: "user-2", Email: "back@example.com"}).Error)
	require.NoError(t, db.Create(&workspaces.Member{
		UserID: "user-2", WorkspaceID: "ws-1",
		Role: workspaces.RoleMember, Status: workspaces.MemberStatusSuspended,
	}).Error)
	require.NoError(t, db.Create(&workspaces.Invitation{
		ID: "tok-1", WorkspaceID: "ws-1", Email: "back@example.com", Role: workspaces.RoleAdmin,
	}).Error)

	_, err := svc.AcceptInvitation("tok-1", "user-2")
	require.NoError(t, err)

	var member workspaces.Member
	require.NoError(t, db.Where("workspace_id = ? AND user_id = ?", "ws-1", "user-2").First(&member).Error)
	assert.Equal(t, workspaces.MemberStatusActive, member.Status)
	assert.Equal(t, workspaces.RoleAdmin, member.Role)
}

func TestRemoveMemberSuspends(t *testing.T) {
	svc, db := newTestService(t)
	seedWorkspace(t, db)

	require.NoError(t, svc.RemoveMember("ws-1", "owner-1"))

	var member workspaces.Member
	require.NoError(t, db.Where("workspace_id = ? AND user_id = ?", "ws-1", "owner-1").First(&member).Error)
	assert.Equal(t, workspaces.MemberStatusSuspended, member.Status)
}

func TestRemoveMemberDeletesPendingInvitation(t *testing.T) {
	svc, db := newTestService(t)
	seedWorkspace(t, db)

	require.NoError(t, db.Create(&workspaces.Invitation{
		ID: "tok-1", WorkspaceID: "ws-1", Email: "new@example.com", Role: workspaces.RoleMember,
	}).Error)

	require.NoError(t, svc.RemoveMember("ws-1", "tok-1"))

	var count int64
	require.NoError(t, db.Model(&workspaces.Invitation{}).Where("id = ?", "tok-1").Count(&count).Error)
	assert.EqualValues(t, 0, count)
}

func TestUpdateRoles(t *testing.T) {
	svc, db := newTestService(t)
	seedWorkspace(t, db)

	err := svc.UpdateRoles("ws-1", "owner-1", nil)
	require.Error(t, err)
	assert.Equal(t, "member.invalid_roles", svcerr.As(err).Code)

	// Single role persisted; extra entries are ignored.
	require.NoError(t, svc.UpdateRoles("ws-1", "owner-1", []string{workspaces.RoleMember, workspaces.RoleAdmin}))

	var member workspaces.Member
	require.NoError(t, db.Where("workspace_id = ? AND user_id = ?", "ws-1", "owner-1").First(&member).Error)
	assert.Equal(t, workspaces.RoleMember, member.Role)
}

func TestListMembersIncludesInvitations(t *testing.T) {
	svc, db := newTestService(t)
	seedWorkspace(t, db)

	require.NoError(t, db.Create(&workspaces.Invitation{
		ID: "tok-1", WorkspaceID: "ws-1", Email: "new@example.com", Role: workspaces.RoleMember,
	}).Error)

	views, err := svc.ListMembers("ws-1")
	require.NoError(t, err)
	require.Len(t, views, 2)

	byEmail := map[string]MemberView{}
	for _, view := range views {
		byEmail[view.Email] = view
	}
	assert.Equal(t, workspaces.MemberStatusActive, byEmail["owner@example.com"].Status)
	assert.Equal(t, workspaces.MemberStatusInvited, byEmail["new@example.com"].Status)
	assert.Equal(t, []string{workspaces.RoleMember}, byEmail["new@example.com"].Roles)
}
