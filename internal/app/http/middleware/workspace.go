package middleware

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	billingdomain "workspace-app/internal/domain/billing"
	"workspace-app/internal/domain/workspaces"
)

const (
	ctxWorkspace    = "workspace"
	ctxMember       = "workspace_member"
	ctxSubscription = "workspace_subscription"
)

type workspaceRow struct {
	ID        string
	OwnerID   string
	Slug      string
	Name      string
	Logo      *string
	CreatedAt time.Time
	UpdatedAt time.Time

	SubID                 *string
	SubAccountID          *string
	SubPlanID             *string
	SubStatus             *string
	SubCancelAtPeriodEnd  *bool
	SubCurrentPeriodStart *time.Time
	SubCurrentPeriodEnd   *time.Time
	SubTrialEndsAt        *time.Time

	MemberUserID *string
	MemberRole   *string
	MemberStatus *string
}

// WorkspaceScoped resolves the :workspaceId path segment, which may
// hold either the workspace id or its slug, in a single left-joined
// lookup together with the caller's own membership row and the
// workspace subscription. On success the canonical workspace, the
// membership and the subscription (if any) are injected into the
// request context, so nothing downstream re-resolves slugs.
//
// Suspended and invited members fail exactly like non-members.
func WorkspaceScoped(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		ref := c.Param("workspaceId")
		if ref == "" {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Workspace ID is required"})
			return
		}

		userID := UserID(c)

		var row workspaceRow
		err := db.Table("workspaces").
			Select(`workspaces.id, workspaces.owner_id, workspaces.slug, workspaces.name, workspaces.logo,
				workspaces.created_at, workspaces.updated_at,
				bs.id AS sub_id, bs.account_id AS sub_account_id, bs.plan_id AS sub_plan_id,
				bs.status AS sub_status, bs.cancel_at_period_end AS sub_cancel_at_period_end,
				bs.current_period_start AS sub_current_period_start,
				bs.current_period_end AS sub_current_period_end, bs.trial_ends_at AS sub_trial_ends_at,
				wm.user_id AS member_user_id, wm.role AS member_role, wm.status AS member_status`).
			Joins("LEFT JOIN billing_subscriptions bs ON bs.account_id = workspaces.id").
			Joins("LEFT JOIN workspace_members wm ON wm.workspace_id = workspaces.id AND wm.user_id = ?", userID).
			Where("workspaces.id = ? OR workspaces.slug = ?", ref, ref).
			Limit(1).
			Take(&row).Error

		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "Workspace not found"})
			return
		}
		if err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to resolve workspace"})
			return
		}

		if row.MemberUserID == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Not a member of this workspace"})
			return
		}
		if *row.MemberStatus != workspaces.MemberStatusActive {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Not an active member of this workspace"})
			return
		}

		c.Set(ctxWorkspace, &workspaces.Workspace{
			ID:        row.ID,
			OwnerID:   row.OwnerID,
			Slug:      row.Slug,
			Name:      row.Name,
			Logo:      row.Logo,
			CreatedAt: row.CreatedAt,
			UpdatedAt: row.UpdatedAt,
		})
		c.Set(ctxMember, &workspaces.Member{
			UserID:      *row.MemberUserID,
			WorkspaceID: row.ID,
			Role:        *row.MemberRole,
			Status:      *row.MemberStatus,
		})

		if row.SubID != nil {
			sub := &billingdomain.Subscription{
				ID:        *row.SubID,
				AccountID: *row.SubAccountID,
				PlanID:    *row.SubPlanID,
				Status:    *row.SubStatus,
			}
			if row.SubCancelAtPeriodEnd != nil {
				sub.CancelAtPeriodEnd = *row.SubCancelAtPeriodEnd
			}
			if row.SubCurrentPeriodStart != nil {
				sub.CurrentPeriodStart = *row.SubCurrentPeriodStart
			}
			if row.SubCurrentPeriodEnd != nil {
				sub.CurrentPeriodEnd = *row.SubCurrentPeriodEnd
			}
			sub.TrialEndsAt = row.SubTrialEndsAt
			c.Set(ctxSubscription, sub)
		}

		c.Next()
	}
}

// RequireWorkspaceRole refines the workspace tier: the caller's
// membership role must be one of the given roles.
func RequireWorkspaceRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		member := Member(c)
		if member == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Not a member of this workspace"})
			return
		}

		for _, role := range roles {
			if member.Role == role {
				c.Next()
				return
			}
		}

		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
			"error": "You do not have the required role to access this resource",
		})
	}
}

// Workspace returns the canonical workspace resolved by
// WorkspaceScoped. Nil outside the workspace tier.
func Workspace(c *gin.Context) *workspaces.Workspace {
	if v, ok := c.Get(ctxWorkspace); ok {
		return v.(*workspaces.Workspace)
	}
	return nil
}

func Member(c *gin.Context) *workspaces.Member {
	if v, ok := c.Get(ctxMember); ok {
		return v.(*workspaces.Member)
	}
	return nil
}

// Subscription returns the workspace's subscription, or nil when the
// workspace has none.
func Subscription(c *gin.Context) *billingdomain.Subscription {
	if v, ok := c.Get(ctxSubscription); ok {
		return v.(*billingdomain.Subscription)
	}
	return nil
}
