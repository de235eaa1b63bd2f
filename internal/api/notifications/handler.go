package notifications

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"workspace-app/internal/app/http/middleware"
	notifdomain "workspace-app/internal/domain/notifications"
)

type Handler struct {
	db *gorm.DB
}

func NewHandler(db *gorm.DB) *Handler {
	return &Handler{db: db}
}

// List returns the caller's notifications in the workspace, unread
// first, newest first.
func (h *Handler) List(c *gin.Context) {
	workspace := middleware.Workspace(c)
	userID := middleware.UserID(c)

	query := h.db.Where(
		"workspace_id = ? AND target_type = ? AND target_id = ?",
		workspace.ID, notifdomain.TargetUser, userID,
	)
	if c.Query("unread") == "true" {
		query = query.Where("read_at IS NULL")
	}

	var notifications []notifdomain.Notification
	err := query.Order("read_at IS NULL DESC").Order("created_at DESC").Limit(100).Find(&notifications).Error
	if err != nil {
		c.Error(err)
		return
	}
	if notifications == nil {
		notifications = []notifdomain.Notification{}
	}

	c.JSON(http.StatusOK, gin.H{"notifications": notifications})
}

func (h *Handler) MarkRead(c *gin.Context) {
	workspace := middleware.Workspace(c)
	userID := middleware.UserID(c)
	now := time.Now()

	result := h.db.Model(&notifdomain.Notification{}).
		Where("workspace_id = ? AND id = ? AND target_type = ? AND target_id = ?",
			workspace.ID, c.Param("notificationId"), notifdomain.TargetUser, userID).
		Updates(map[string]interface{}{"read_at": now, "read_by_id": userID})
	if result.Error != nil {
		c.Error(result.Error)
		return
	}
	if result.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Notification not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"read": true})
}

func (h *Handler) MarkAllRead(c *gin.Context) {
	workspace := middleware.Workspace(c)
	userID := middleware.UserID(c)
	now := time.Now()

	err := h.db.Model(&notifdomain.Notification{}).
		Where("workspace_id = ? AND target_type = ? AND target_id = ? AND read_at IS NULL",
			workspace.ID, notifdomain.TargetUser, userID).
		Updates(map[string]interface{}{"read_at": now, "read_by_id": userID}).Error
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"read": true})
}
