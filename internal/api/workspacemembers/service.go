package workspacemembers

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"workspace-app/internal/api/billing"
	billingdomain "workspace-app/internal/domain/billing"
	"workspace-app/internal/domain/users"
	"workspace-app/internal/domain/workspaces"
	"workspace-app/internal/svcerr"
)

// Service owns membership and invitation rows. Members are never hard
// deleted; removal suspends them so billing and audit history survives.
type Service struct {
	db            *gorm.DB
	billing       *billing.Service
	adapter       billing.Adapter
	defaultPlanID string
	invitationTTL time.Duration
	log           zerolog.Logger
}

func NewService(db *gorm.DB, billingSvc *billing.Service, adapter billing.Adapter, defaultPlanID string, invitationTTL time.Duration, log zerolog.Logger) *Service {
	return &Service{
		db:            db,
		billing:       billingSvc,
		adapter:       adapter,
		defaultPlanID: defaultPlanID,
		invitationTTL: invitationTTL,
		log:           log,
	}
}

// MemberView is the wire shape for members and invitees alike. Roles is
// a list for API compatibility; memberships store a single role.
type MemberView struct {
	ID        string   `json:"id"`
	Email     string   `json:"email"`
	Name      string   `json:"name,omitempty"`
	FirstName string   `json:"firstName,omitempty"`
	LastName  string   `json:"lastName,omitempty"`
	Avatar    *string  `json:"avatar,omitempty"`
	Status    string   `json:"status"`
	Roles     []string `json:"roles"`
}

// ListMembers returns the workspace members plus its open invitations,
// the latter with status "invited".
func (s *Service) ListMembers(workspaceID string) ([]MemberView, error) {
	var members []workspaces.Member
	err := s.db.Preload("User").Where("workspace_id = ?", workspaceID).Find(&members).Error
	if err != nil {
		return nil, err
	}

	var invitations []workspaces.Invitation
	err = s.db.Where("workspace_id = ? AND accepted = ?", workspaceID, false).Find(&invitations).Error
	if err != nil {
		return nil, err
	}

	views := make([]MemberView, 0, len(members)+len(invitations))
	for _, member := range members {
		views = append(views, MemberView{
			ID:        member.UserID,
			Email:     member.User.Email,
			Name:      member.User.Name,
			FirstName: member.User.FirstName,
			LastName:  member.User.LastName,
			Avatar:    member.User.Avatar,
			Status:    member.Status,
			Roles:     []string{member.Role},
		})
	}
	for _, invitation := range invitations {
		view := MemberView{
			ID:     invitation.ID,
			Email:  invitation.Email,
			Status: workspaces.MemberStatusInvited,
			Roles:  []string{invitation.Role},
		}
		if invitation.UserID != nil {
			view.ID = *invitation.UserID
		}
		views = append(views, view)
	}

	return views, nil
}

// Invitation details exposed to the (public) acceptance page.
type InvitationView struct {
	Token     string               `json:"token"`
	Workspace workspaces.Workspace `json:"workspace"`
	InvitedBy string               `json:"invitedBy,omitempty"`
}

func (s *Service) getInvitation(token string) (*workspaces.Invitation, error) {
	var invitation workspaces.Invitation
	err := s.db.Preload("Workspace").Where("id = ?", token).First(&invitation).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &invitation, nil
}

// ValidatedInvitation fetches an invitation and walks the validation
// state machine in order: not found, already accepted, expired.
// Invitations without an expiry never expire.
func (s *Service) ValidatedInvitation(token string) (*workspaces.Invitation, error) {
	invitation, err := s.getInvitation(token)
	if err != nil {
		return nil, err
	}

	if invitation == nil {
		return nil, svcerr.New("invitation.not_found", "The provided token is invalid")
	}
	if invitation.Accepted {
		return nil, svcerr.New("invitation.already_accepted", "The provided token has already been accepted")
	}
	if invitation.ExpiresAt != nil && invitation.ExpiresAt.UnixMilli() < time.Now().UnixMilli() {
		return nil, svcerr.New("invitation.expired", "The provided token is expired")
	}

	return invitation, nil
}

// InvitationDetails resolves the inviter's name for display.
func (s *Service) InvitationDetails(token string) (*InvitationView, error) {
	invitation, err := s.ValidatedInvitation(token)
	if err != nil {
		return nil, err
	}

	view := &InvitationView{Token: invitation.ID, Workspace: invitation.Workspace}
	if invitation.InvitedBy != nil {
		var inviter users.User
		if err := s.db.Select("first_name", "name").Where("id = ?", *invitation.InvitedBy).First(&inviter).Error; err == nil {
			view.InvitedBy = inviter.FirstName
			if view.InvitedBy == "" {
				view.InvitedBy = inviter.Name
			}
		}
	}
	return view, nil
}

type InviteArgs struct {
	WorkspaceID string
	Emails      []string
	Role        string
	InvitedBy   string
}

// InviteMembers checks the prospective member total against the plan
// limit, then records invitations for addresses that are not members
// yet. The prospective total counts active members, open invitations
// and the new invitees, so an invite that would land on or past the
// limit is blocked before any row is written. Duplicate invites to the
// same email are no-ops; only newly created invitations are returned,
// so callers mail each invitee at most once.
func (s *Service) InviteMembers(args InviteArgs) ([]workspaces.Invitation, error) {
	var workspace workspaces.Workspace
	err := s.db.Where("id = ?", args.WorkspaceID).First(&workspace).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, svcerr.New("workspace.not_found", "Could not find workspace "+args.WorkspaceID)
	}
	if err != nil {
		return nil, err
	}

	planID := s.defaultPlanID
	account, err := s.billing.GetAccount(workspace.ID)
	if err != nil {
		return nil, err
	}
	if account != nil && account.Subscription != nil {
		planID = account.Subscription.PlanID
	}

	role := args.Role
	if role == "" {
		role = workspaces.RoleMember
	}

	var existingUsers []users.User
	if len(args.Emails) > 0 {
		err = s.db.Select("id", "email").Where("email IN ?", args.Emails).Find(&existingUsers).Error
		if err != nil {
			return nil, err
		}
	}

	userByEmail := map[string]string{}
	userIDs := make([]string, 0, len(existingUsers))
	for _, user := range existingUsers {
		userByEmail[user.Email] = user.ID
		userIDs = append(userIDs, user.ID)
	}

	// Existing users who already hold a membership row are skipped.
	memberIDs := map[string]bool{}
	if len(userIDs) > 0 {
		var members []workspaces.Member
		err = s.db.Select("user_id").
			Where("workspace_id = ? AND user_id IN ?", workspace.ID, userIDs).
			Find(&members).Error
		if err != nil {
			return nil, err
		}
		for _, member := range members {
			memberIDs[member.UserID] = true
		}
	}

	// Already invited addresses are no-ops, not errors.
	invitedEmails := map[string]bool{}
	var openInvitations []workspaces.Invitation
	err = s.db.Select("email").Where("workspace_id = ?", workspace.ID).Find(&openInvitations).Error
	if err != nil {
		return nil, err
	}
	for _, invitation := range openInvitations {
		invitedEmails[invitation.Email] = true
	}

	expiresAt := time.Now().Add(s.invitationTTL)

	var created []workspaces.Invitation
	for _, email := range args.Emails {
		if invitedEmails[email] {
			continue
		}
		if userID, ok := userByEmail[email]; ok && memberIDs[userID] {
			continue
		}

		invitation := workspaces.Invitation{
			ID:          uuid.NewString(),
			WorkspaceID: workspace.ID,
			Email:       email,
			Role:        role,
			ExpiresAt:   &expiresAt,
		}
		if userID, ok := userByEmail[email]; ok {
			invitation.UserID = &userID
		}
		if args.InvitedBy != "" {
			invitedBy := args.InvitedBy
			invitation.InvitedBy = &invitedBy
		}
		created = append(created, invitation)
	}

	if len(created) == 0 {
		return nil, nil
	}

	var activeMembers int64
	err = s.db.Model(&workspaces.Member{}).
		Where("workspace_id = ? AND status = ?", workspace.ID, workspaces.MemberStatusActive).
		Count(&activeMembers).Error
	if err != nil {
		return nil, err
	}

	var pendingInvitations int64
	err = s.db.Model(&workspaces.Invitation{}).
		Where("workspace_id = ? AND accepted = ?", workspace.ID, false).
		Count(&pendingInvitations).Error
	if err != nil {
		return nil, err
	}

	// Prospective total: everyone already in, everyone already invited,
	// plus the invitees being added now. Inclusive bound, so landing
	// exactly on the limit blocks the invite.
	prospective := activeMembers + pendingInvitations + int64(len(created))
	if err := s.billing.ErrIfLimitReached(planID, billingdomain.FeatureUsers, prospective); err != nil {
		return nil, err
	}

	err = s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "workspace_id"}, {Name: "email"}},
		DoNothing: true,
	}).Create(&created).Error
	if err != nil {
		return nil, err
	}

	return created, nil
}

// AcceptInvitation validates the token and, in one transaction, upserts
// an active membership and deletes the invitation row. A prior
// suspended membership is reactivated with the invited role. Exactly
// once: the second accept of the same token fails the state machine.
func (s *Service) AcceptInvitation(token, userID string) (*workspaces.Member, error) {
	invitation, err := s.ValidatedInvitation(token)
	if err != nil {
		return nil, err
	}

	if invitation.UserID != nil && *invitation.UserID != userID {
		return nil, svcerr.New("invitation.user_mismatch", "The provided token does not match the user")
	}

	member := workspaces.Member{
		UserID:      userID,
		WorkspaceID: invitation.WorkspaceID,
		Role:        invitation.Role,
		Status:      workspaces.MemberStatusActive,
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "workspace_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"role", "status", "updated_at"}),
		}).Create(&member).Error
		if err != nil {
			return err
		}

		return tx.Where("id = ?", invitation.ID).Delete(&workspaces.Invitation{}).Error
	})
	if err != nil {
		return nil, err
	}

	s.resyncSubscriptionQuantity(invitation.WorkspaceID)

	return &member, nil
}

// RemoveMember suspends the membership matching id, or, when id only
// matches a pending invitation, deletes that invitation. Membership
// rows are never deleted.
func (s *Service) RemoveMember(workspaceID, id string) error {
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var member workspaces.Member
		err := tx.Where("workspace_id = ? AND user_id = ?", workspaceID, id).First(&member).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return tx.Where("workspace_id = ? AND id = ?", workspaceID, id).
				Delete(&workspaces.Invitation{}).Error
		}
		if err != nil {
			return err
		}

		return tx.Model(&workspaces.Member{}).
			Where("workspace_id = ? AND user_id = ?", workspaceID, id).
			Update("status", workspaces.MemberStatusSuspended).Error
	})
	if err != nil {
		return err
	}

	s.resyncSubscriptionQuantity(workspaceID)
	return nil
}

// UpdateRoles persists the member's role. Memberships are single-role;
// only the first element is stored.
func (s *Service) UpdateRoles(workspaceID, userID string, roles []string) error {
	if len(roles) == 0 {
		return svcerr.New("member.invalid_roles", "At least one role is required")
	}

	return s.db.Model(&workspaces.Member{}).
		Where("workspace_id = ? AND user_id = ?", workspaceID, userID).
		Update("role", roles[0]).Error
}

// resyncSubscriptionQuantity pushes the current feature counts to the
// provider after the member set changed. Skipped when the workspace has
// no subscription or the adapter cannot update subscriptions.
func (s *Service) resyncSubscriptionQuantity(workspaceID string) {
	account, err := s.billing.GetAccount(workspaceID)
	if err != nil {
		s.log.Error().Err(err).Str("workspace_id", workspaceID).Msg("failed to load billing account for resync")
		return
	}
	if account == nil || account.Subscription == nil {
		return
	}

	updater, ok := s.adapter.(billing.SubscriptionUpdater)
	if !ok {
		s.log.Debug().Str("workspace_id", workspaceID).Msg("adapter does not support subscription updates, skipping resync")
		return
	}

	counts, err := s.billing.GetFeatureCounts(workspaceID)
	if err != nil {
		s.log.Error().Err(err).Str("workspace_id", workspaceID).Msg("failed to compute feature counts for resync")
		return
	}

	err = updater.UpdateSubscription(billing.UpdateSubscriptionParams{
		SubscriptionID: account.Subscription.ID,
		PlanID:         account.Subscription.PlanID,
		Counts:         counts,
	})
	if err != nil {
		s.log.Error().Err(err).Str("workspace_id", workspaceID).Msg("failed to resync subscription quantity")
	}
}
