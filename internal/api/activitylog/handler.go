package activitylog

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"workspace-app/internal/app/http/middleware"
	activitydomain "workspace-app/internal/domain/activity"
)

type Handler struct {
	db *gorm.DB
}

func NewHandler(db *gorm.DB) *Handler {
	return &Handler{db: db}
}

// List returns the workspace activity feed, optionally narrowed to one
// subject (e.g. a single contact's timeline).
func (h *Handler) List(c *gin.Context) {
	workspace := middleware.Workspace(c)

	query := h.db.Where("workspace_id = ?", workspace.ID)
	if subjectID := c.Query("subjectId"); subjectID != "" {
		query = query.Where("subject_id = ?", subjectID)
	}
	if logType := c.Query("type"); logType != "" {
		query = query.Where("type = ?", logType)
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	var entries []activitydomain.Log
	err := query.Order("created_at DESC").Limit(limit).Find(&entries).Error
	if err != nil {
		c.Error(err)
		return
	}
	if entries == nil {
		entries = []activitydomain.Log{}
	}

	c.JSON(http.StatusOK, gin.H{"activity": entries})
}
