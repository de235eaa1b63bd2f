package tags

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"workspace-app/internal/app/http/middleware"
	contactsdomain "workspace-app/internal/domain/contacts"
	tagsdomain "workspace-app/internal/domain/tags"
	wsdomain "workspace-app/internal/domain/workspaces"
)

type Handler struct {
	db *gorm.DB
}

func NewHandler(db *gorm.DB) *Handler {
	return &Handler{db: db}
}

func (h *Handler) List(c *gin.Context) {
	workspace := middleware.Workspace(c)

	var tags []tagsdomain.Tag
	err := h.db.Where("workspace_id = ?", workspace.ID).Order("name ASC").Find(&tags).Error
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"tags": tags})
}

type createRequest struct {
	Name  string  `json:"name" binding:"required"`
	Color *string `json:"color"`
}

func (h *Handler) Create(c *gin.Context) {
	var req createRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload"})
		return
	}

	workspace := middleware.Workspace(c)

	tag := tagsdomain.Tag{
		ID:          wsdomain.MakeSlug(req.Name),
		WorkspaceID: workspace.ID,
		Name:        req.Name,
		Color:       req.Color,
	}

	err := h.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}, {Name: "workspace_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "color", "updated_at"}),
	}).Create(&tag).Error
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, tag)
}

type updateRequest struct {
	Name  *string `json:"name"`
	Color *string `json:"color"`
}

func (h *Handler) Update(c *gin.Context) {
	var req updateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload"})
		return
	}

	workspace := middleware.Workspace(c)

	set := map[string]interface{}{}
	if req.Name != nil {
		set["name"] = *req.Name
	}
	if req.Color != nil {
		set["color"] = *req.Color
	}
	if len(set) == 0 {
		c.JSON(http.StatusOK, gin.H{"updated": false})
		return
	}

	result := h.db.Model(&tagsdomain.Tag{}).
		Where("workspace_id = ? AND id = ?", workspace.ID, c.Param("tagId")).
		Updates(set)
	if result.Error != nil {
		c.Error(result.Error)
		return
	}
	if result.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Tag not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"updated": true})
}

// Delete removes the tag and strips its id from every contact that
// carries it.
func (h *Handler) Delete(c *gin.Context) {
	workspace := middleware.Workspace(c)
	tagID := c.Param("tagId")

	err := h.db.Transaction(func(tx *gorm.DB) error {
		result := tx.Where("workspace_id = ? AND id = ?", workspace.ID, tagID).
			Delete(&tagsdomain.Tag{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}

		var contacts []contactsdomain.Contact
		err := tx.Where("workspace_id = ?", workspace.ID).Find(&contacts).Error
		if err != nil {
			return err
		}
		for i := range contacts {
			if !contacts[i].Tags.Contains(tagID) {
				continue
			}
			remaining := make(contactsdomain.TagIDs, 0, len(contacts[i].Tags))
			for _, id := range contacts[i].Tags {
				if id != tagID {
					remaining = append(remaining, id)
				}
			}
			err = tx.Model(&contactsdomain.Contact{}).
				Where("workspace_id = ? AND id = ?", workspace.ID, contacts[i].ID).
				Update("tags", remaining).Error
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err == gorm.ErrRecordNotFound {
		c.JSON(http.StatusNotFound, gin.H{"error": "Tag not found"})
		return
	}
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"deleted": true})
}
