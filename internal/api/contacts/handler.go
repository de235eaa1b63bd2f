package contacts

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"workspace-app/config"
	"workspace-app/internal/api/billing"
	"workspace-app/internal/app/http/middleware"
	billingdomain "workspace-app/internal/domain/billing"
	contactsdomain "workspace-app/internal/domain/contacts"
)

type Handler struct {
	svc     *Service
	billing *billing.Service
}

func NewHandler(svc *Service, billingSvc *billing.Service) *Handler {
	return &Handler{svc: svc, billing: billingSvc}
}

type createRequest struct {
	Email     string `json:"email" binding:"required,email"`
	Name      string `json:"name"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Type      string `json:"type"`
}

func (h *Handler) Create(c *gin.Context) {
	var req createRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload"})
		return
	}

	workspace := middleware.Workspace(c)

	account, err := h.billing.GetAccount(workspace.ID)
	if err != nil {
		c.Error(err)
		return
	}
	planID := config.DEFAULT_PLAN_ID
	if account != nil && account.Subscription != nil {
		planID = account.Subscription.PlanID
	}
	counts, err := h.billing.GetFeatureCounts(workspace.ID)
	if err != nil {
		c.Error(err)
		return
	}
	// One more contact is about to be written, so the prospective
	// total is what must stay within the plan limit.
	err = h.billing.ErrIfLimitReached(planID, billingdomain.FeatureContacts, counts[billingdomain.FeatureContacts]+1)
	if err != nil {
		c.Error(err)
		return
	}

	contact, err := h.svc.Create(CreateArgs{
		WorkspaceID: workspace.ID,
		UserID:      middleware.UserID(c),
		Email:       req.Email,
		Name:        req.Name,
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		Type:        req.Type,
	})
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, contact)
}

func (h *Handler) List(c *gin.Context) {
	workspace := middleware.Workspace(c)

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("pageSize", "50"))

	contacts, err := h.svc.List(ListArgs{
		WorkspaceID: workspace.ID,
		Type:        c.Query("type"),
		Page:        page,
		PageSize:    pageSize,
	})
	if err != nil {
		c.Error(err)
		return
	}
	if contacts == nil {
		contacts = []contactsdomain.Contact{}
	}

	c.JSON(http.StatusOK, gin.H{"contacts": contacts, "page": page})
}

func (h *Handler) Get(c *gin.Context) {
	workspace := middleware.Workspace(c)

	contact, err := h.svc.GetByID(workspace.ID, c.Param("contactId"))
	if err != nil {
		c.Error(err)
		return
	}
	if contact == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Contact not found"})
		return
	}

	c.JSON(http.StatusOK, contact)
}

type updateRequest struct {
	Email     *string `json:"email" binding:"omitempty,email"`
	Name      *string `json:"name"`
	FirstName *string `json:"firstName"`
	LastName  *string `json:"lastName"`
	Status    *string `json:"status"`
	Type      *string `json:"type"`
}

func (h *Handler) Update(c *gin.Context) {
	var req updateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload"})
		return
	}

	workspace := middleware.Workspace(c)

	err := h.svc.Update(UpdateArgs{
		WorkspaceID: workspace.ID,
		ID:          c.Param("contactId"),
		Email:       req.Email,
		Name:        req.Name,
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		Status:      req.Status,
		Type:        req.Type,
	})
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"updated": true})
}

type commentRequest struct {
	Comment string `json:"comment" binding:"required"`
}

func (h *Handler) CreateComment(c *gin.Context) {
	var req commentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload"})
		return
	}

	workspace := middleware.Workspace(c)

	entry, err := h.svc.CreateComment(workspace.ID, c.Param("contactId"), middleware.UserID(c), req.Comment)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, entry)
}

func (h *Handler) DeleteComment(c *gin.Context) {
	workspace := middleware.Workspace(c)

	if err := h.svc.DeleteComment(workspace.ID, c.Param("commentId")); err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

type updateTagsRequest struct {
	Tags []string `json:"tags" binding:"required"`
}

func (h *Handler) UpdateTags(c *gin.Context) {
	var req updateTagsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload"})
		return
	}

	workspace := middleware.Workspace(c)

	err := h.svc.UpdateTags(workspace.ID, c.Param("contactId"), middleware.UserID(c), req.Tags)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"updated": true})
}
