package workspaces

import (
	"net/http"
	"regexp"

	"github.com/gin-gonic/gin"

	"workspace-app/internal/app/http/middleware"
)

var slugPattern = regexp.MustCompile(`^[a-z0-9-]+$`)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// Create provisions a new workspace owned by the caller. The slug must
// be unique; the check runs before creation so the transaction only
// starts for valid input.
func (h *Handler) Create(c *gin.Context) {
	var body struct {
		Name string `json:"name" binding:"required,min=2,max=50"`
		Slug string `json:"slug" binding:"required,min=2,max=50"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing or invalid workspace name or slug"})
		return
	}
	if !slugPattern.MatchString(body.Slug) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "The URL should only contain lowercase letters, numbers, and dashes"})
		return
	}

	available, err := h.svc.IsSlugAvailable(body.Slug)
	if err != nil {
		c.Error(err)
		return
	}
	if !available {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Workspace url is already taken"})
		return
	}

	workspace, err := h.svc.Create(CreateArgs{
		OwnerID: middleware.UserID(c),
		Slug:    body.Slug,
		Name:    body.Name,
	})
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, workspace)
}

// SlugAvailable checks whether a workspace URL is still free.
func (h *Handler) SlugAvailable(c *gin.Context) {
	var body struct {
		Slug string `json:"slug" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing or invalid slug"})
		return
	}

	available, err := h.svc.IsSlugAvailable(body.Slug)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"available": available})
}

// Get returns the workspace detail for the already-resolved workspace.
func (h *Handler) Get(c *gin.Context) {
	detail, err := h.svc.GetDetail(middleware.Workspace(c), middleware.Subscription(c))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, detail)
}

// Update changes the workspace name and slug.
func (h *Handler) Update(c *gin.Context) {
	var body struct {
		Name string `json:"name" binding:"required,min=2,max=50"`
		Slug string `json:"slug" binding:"required,min=2,max=50"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing or invalid workspace name or slug"})
		return
	}
	if !slugPattern.MatchString(body.Slug) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "The URL should only contain lowercase letters, numbers, and dashes"})
		return
	}

	workspace := middleware.Workspace(c)

	if body.Slug != workspace.Slug {
		available, err := h.svc.IsSlugAvailable(body.Slug)
		if err != nil {
			c.Error(err)
			return
		}
		if !available {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Workspace url is already taken"})
			return
		}
	}

	updated, err := h.svc.Update(workspace.ID, body.Name, body.Slug)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, updated)
}
