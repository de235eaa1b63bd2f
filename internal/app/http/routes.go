package http

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"workspace-app/config"
	"workspace-app/internal/api/activitylog"
	"workspace-app/internal/api/auth"
	"workspace-app/internal/api/billing"
	"workspace-app/internal/api/contacts"
	"workspace-app/internal/api/dashboard"
	"workspace-app/internal/api/notifications"
	"workspace-app/internal/api/stripewebhook"
	"workspace-app/internal/api/tags"
	"workspace-app/internal/api/workspacemembers"
	"workspace-app/internal/api/workspaces"
	"workspace-app/internal/app/http/middleware"
	wsdomain "workspace-app/internal/domain/workspaces"
	"workspace-app/internal/infra/mail"
	"workspace-app/internal/infra/stripe"
)

// RegisterRoutes wires every endpoint into its authorization tier:
// public, authenticated, workspace-scoped, and workspace admin.
func RegisterRoutes(r *gin.Engine, db *gorm.DB, log zerolog.Logger) {
	mailer := mail.NewMailer()

	billingSvc := billing.NewService(db, log)

	var adapter billing.Adapter
	var syncer stripewebhook.SubscriptionSyncer
	if config.STRIPE_SECRET_KEY != "" {
		stripeAdapter := stripe.NewAdapter(config.STRIPE_SECRET_KEY, billingSvc, log)
		adapter = stripeAdapter
		syncer = stripeAdapter
	}

	invitationTTL := time.Duration(config.INVITATION_TTL_DAYS) * 24 * time.Hour

	authHandler := auth.NewHandler(db, mailer, log)
	workspacesHandler := workspaces.NewHandler(workspaces.NewService(db, config.DEFAULT_PLAN_ID))
	membersSvc := workspacemembers.NewService(db, billingSvc, adapter, config.DEFAULT_PLAN_ID, invitationTTL, log)
	membersHandler := workspacemembers.NewHandler(membersSvc, mailer, log)
	contactsHandler := contacts.NewHandler(contacts.NewService(db), billingSvc)
	tagsHandler := tags.NewHandler(db)
	notificationsHandler := notifications.NewHandler(db)
	activityHandler := activitylog.NewHandler(db)
	dashboardHandler := dashboard.NewHandler(db)
	billingHandler := billing.NewHandler(billingSvc, adapter)

	r.Use(middleware.ErrorHandler())

	// Public tier. All JSON bodies pass through the sanitizer.
	public := r.Group("/")
	public.Use(middleware.SanitizeInput())
	{
		public.POST("/auth/register", authHandler.Register)
		public.POST("/auth/login", authHandler.Login)
		public.GET("/auth/verify", authHandler.VerifyEmail)
		public.POST("/auth/resend-verification", authHandler.ResendVerification)
		public.POST("/auth/request-password-reset", authHandler.RequestPasswordReset)
		public.POST("/auth/reset-password", authHandler.ResetPassword)
		public.GET("/auth/google", authHandler.GoogleStart)
		public.GET("/auth/google/callback", authHandler.GoogleCallback)

		public.GET("/plans", billingHandler.ListPlans)
		public.GET("/invitations/:token", membersHandler.GetInvitation)
	}

	// Signed payloads must not be rewritten, so the webhook skips the
	// sanitizer.
	if syncer != nil {
		r.POST("/webhooks/stripe", stripewebhook.NewHandler(config.STRIPE_WEBHOOK_SECRET, syncer, log).Handle)
	}

	// Authenticated tier.
	authed := r.Group("/")
	authed.Use(middleware.SanitizeInput(), middleware.Auth())
	{
		authed.GET("/me", authHandler.Me)
		authed.POST("/auth/change-password", authHandler.ChangePassword)

		authed.POST("/workspaces", workspacesHandler.Create)
		authed.GET("/workspaces/slug-available", workspacesHandler.SlugAvailable)
		authed.POST("/invitations/:token/accept", membersHandler.Accept)
	}

	// Workspace tier: membership resolved once, workspace, member and
	// subscription injected for everything below.
	ws := authed.Group("/workspaces/:workspaceId")
	ws.Use(middleware.WorkspaceScoped(db))
	{
		ws.GET("", workspacesHandler.Get)
		ws.GET("/dashboard", dashboardHandler.Summary)

		ws.GET("/members", membersHandler.List)

		ws.GET("/contacts", contactsHandler.List)
		ws.POST("/contacts", contactsHandler.Create)
		ws.GET("/contacts/:contactId", contactsHandler.Get)
		ws.PATCH("/contacts/:contactId", contactsHandler.Update)
		ws.PUT("/contacts/:contactId/tags", contactsHandler.UpdateTags)
		ws.POST("/contacts/:contactId/comments", contactsHandler.CreateComment)
		ws.DELETE("/comments/:commentId", contactsHandler.DeleteComment)

		ws.GET("/tags", tagsHandler.List)
		ws.POST("/tags", tagsHandler.Create)

		ws.GET("/notifications", notificationsHandler.List)
		ws.POST("/notifications/:notificationId/read", notificationsHandler.MarkRead)
		ws.POST("/notifications/read-all", notificationsHandler.MarkAllRead)

		ws.GET("/activity", activityHandler.List)

		ws.GET("/billing", billingHandler.GetAccount)
	}

	// Admin tier.
	admin := ws.Group("")
	admin.Use(middleware.RequireWorkspaceRole(wsdomain.RoleOwner, wsdomain.RoleAdmin))
	{
		admin.PATCH("", workspacesHandler.Update)

		admin.POST("/members/invite", membersHandler.Invite)
		admin.DELETE("/members/:id", membersHandler.Remove)
		admin.PATCH("/members/:id/roles", membersHandler.UpdateRoles)

		admin.PATCH("/tags/:tagId", tagsHandler.Update)
		admin.DELETE("/tags/:tagId", tagsHandler.Delete)

		admin.PATCH("/billing", billingHandler.UpdateBillingDetails)
		admin.GET("/billing/invoices", billingHandler.ListInvoices)
		admin.POST("/billing/subscription", billingHandler.SetSubscriptionPlan)
		admin.POST("/billing/checkout", billingHandler.CreateCheckoutSession)
		admin.POST("/billing/portal", billingHandler.CreateBillingPortalSession)
		admin.POST("/billing/usage", billingHandler.ReportUsage)
	}
}
