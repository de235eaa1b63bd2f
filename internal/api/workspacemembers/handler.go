package workspacemembers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"workspace-app/config"
	"workspace-app/internal/app/http/middleware"
	"workspace-app/internal/infra/mail"
)

// Mailer is the outbound mail collaborator used for invitation emails.
type Mailer interface {
	BatchSend(msgs []mail.Message) error
}

type Handler struct {
	svc    *Service
	mailer Mailer
	log    zerolog.Logger
}

func NewHandler(svc *Service, mailer Mailer, log zerolog.Logger) *Handler {
	return &Handler{svc: svc, mailer: mailer, log: log}
}

// GetInvitation returns the invitation behind a token for the public
// acceptance page.
func (h *Handler) GetInvitation(c *gin.Context) {
	view, err := h.svc.InvitationDetails(c.Param("token"))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// List returns all members and open invitations of the workspace.
func (h *Handler) List(c *gin.Context) {
	views, err := h.svc.ListMembers(middleware.Workspace(c).ID)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, views)
}

// Invite creates invitations for the given emails and mails each new
// invitee an acceptance link. Addresses that are already members or
// already invited are skipped silently.
func (h *Handler) Invite(c *gin.Context) {
	var body struct {
		Emails []string `json:"emails" binding:"required,min=1,dive,email"`
		Role   string   `json:"role"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing or invalid emails"})
		return
	}

	workspace := middleware.Workspace(c)

	invitations, err := h.svc.InviteMembers(InviteArgs{
		WorkspaceID: workspace.ID,
		Emails:      body.Emails,
		Role:        body.Role,
		InvitedBy:   middleware.UserID(c),
	})
	if err != nil {
		c.Error(err)
		return
	}

	if len(invitations) == 0 {
		h.log.Debug().Str("workspace_id", workspace.ID).Msg("no users to invite")
		c.JSON(http.StatusOK, gin.H{"invited": 0})
		return
	}

	inviterName := middleware.UserName(c)
	msgs := make([]mail.Message, 0, len(invitations))
	for _, invitation := range invitations {
		subject := fmt.Sprintf("You have been invited to join %s", workspace.Name)
		if inviterName != "" {
			subject = fmt.Sprintf("%s has invited you to join %s", inviterName, workspace.Name)
		}

		msgs = append(msgs, mail.Message{
			To:      invitation.Email,
			Subject: subject,
			HTML:    inviteEmailHTML(workspace.Name, inviterName, config.APP_URL+"/accept-invite/"+invitation.ID),
		})
	}

	if err := h.mailer.BatchSend(msgs); err != nil {
		h.log.Error().Err(err).Str("workspace_id", workspace.ID).Msg("failed to send invitation emails")
	}

	c.JSON(http.StatusOK, gin.H{"invited": len(invitations)})
}

// Accept turns a valid invitation into an active membership for the
// calling user.
func (h *Handler) Accept(c *gin.Context) {
	member, err := h.svc.AcceptInvitation(c.Param("token"), middleware.UserID(c))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, member)
}

// Remove suspends a member; when the id belongs to a pending
// invitation instead, the invitation is cancelled.
func (h *Handler) Remove(c *gin.Context) {
	err := h.svc.RemoveMember(middleware.Workspace(c).ID, c.Param("id"))
	if err != nil {
		c.Error(err)
		return
	}
	c.Status(http.StatusNoContent)
}

// UpdateRoles sets the member's role. The list shape matches the wire
// format; only the first role is persisted.
func (h *Handler) UpdateRoles(c *gin.Context) {
	var body struct {
		Roles []string `json:"roles" binding:"required,min=1"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing or invalid roles"})
		return
	}

	err := h.svc.UpdateRoles(middleware.Workspace(c).ID, c.Param("id"), body.Roles)
	if err != nil {
		c.Error(err)
		return
	}
	c.Status(http.StatusNoContent)
}

func inviteEmailHTML(workspaceName, inviterName, confirmURL string) string {
	intro := "You have been invited to join " + workspaceName + "."
	if inviterName != "" {
		intro = inviterName + " has invited you to join " + workspaceName + "."
	}
	return "<html><body>" +
		"<p>" + intro + "</p>" +
		`<p><a href="` + confirmURL + `">Accept invitation</a></p>` +
		"</body></html>"
}
