package dashboard

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"workspace-app/internal/app/http/middleware"
	contactsdomain "workspace-app/internal/domain/contacts"
	wsdomain "workspace-app/internal/domain/workspaces"
)

type Handler struct {
	db *gorm.DB
}

func NewHandler(db *gorm.DB) *Handler {
	return &Handler{db: db}
}

type statusCount struct {
	Status string `json:"status"`
	Count  int64  `json:"count"`
}

// Summary aggregates the headline numbers for the workspace overview
// page.
func (h *Handler) Summary(c *gin.Context) {
	workspace := middleware.Workspace(c)

	var totalContacts int64
	err := h.db.Model(&contactsdomain.Contact{}).
		Where("workspace_id = ?", workspace.ID).
		Count(&totalContacts).Error
	if err != nil {
		c.Error(err)
		return
	}

	var byStatus []statusCount
	err = h.db.Model(&contactsdomain.Contact{}).
		Select("status, COUNT(*) AS count").
		Where("workspace_id = ?", workspace.ID).
		Group("status").
		Scan(&byStatus).Error
	if err != nil {
		c.Error(err)
		return
	}
	if byStatus == nil {
		byStatus = []statusCount{}
	}

	var members int64
	err = h.db.Model(&wsdomain.Member{}).
		Where("workspace_id = ? AND status = ?", workspace.ID, wsdomain.MemberStatusActive).
		Count(&members).Error
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"contacts": gin.H{
			"total":    totalContacts,
			"byStatus": byStatus,
		},
		"members": members,
	})
}
