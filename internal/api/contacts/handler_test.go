package contacts

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"workspace-app/internal/api/billing"
	"workspace-app/internal/app/http/middleware"
	billingdomain "workspace-app/internal/domain/billing"
	contactsdomain "workspace-app/internal/domain/contacts"
	wsdomain "workspace-app/internal/domain/workspaces"
)

func newTestRouter(t *testing.T, contactLimit float64) (*gin.Engine, *Service) {
	t.Helper()

	svc, db := newTestService(t)

	billingSvc := billing.NewService(db, zerolog.Nop())
	require.NoError(t, billingSvc.SyncPlans([]billingdomain.Plan{{
		ID:       "free",
		Name:     "Free",
		Active:   true,
		Currency: "USD",
		Interval: "month",
		Features: billingdomain.FeatureList{
			{ID: billingdomain.FeatureContacts, Limit: &contactLimit},
		},
	}}))
	require.NoError(t, db.Create(&billingdomain.Account{ID: "ws-1"}).Error)
	require.NoError(t, db.Create(&billingdomain.Subscription{
		ID: "sub-1", AccountID: "ws-1", PlanID: "free", Status: billingdomain.StatusActive,
	}).Error)

	handler := NewHandler(svc, billingSvc)

	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(middleware.ErrorHandler())
	r.Use(func(c *gin.Context) {
		c.Set("workspace", &wsdomain.Workspace{ID: "ws-1", Slug: "acme", Name: "Acme"})
		c.Set("user_id", "user-1")
	})
	r.POST("/contacts", handler.Create)

	return r, svc
}

func postContact(r *gin.Engine, email string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/contacts",
		strings.NewReader(`{"email": "`+email+`", "name": "Ada Lovelace"}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	return w
}

func TestCreateBlockedWhenProspectiveCountHitsLimit(t *testing.T) {
	r, svc := newTestRouter(t, 2)

	_, err := svc.Create(CreateArgs{WorkspaceID: "ws-1", Email: "first@example.com", Name: "First"})
	require.NoError(t, err)

	// One contact this month, limit 2: the second would land exactly
	// on the limit and must be refused.
	w := postContact(r, "second@example.com")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "billing.limit_reached")

	var count int64
	require.NoError(t, svc.db.Model(&contactsdomain.Contact{}).
		Where("workspace_id = ?", "ws-1").Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestCreateAllowedUnderLimit(t *testing.T) {
	r, _ := newTestRouter(t, 2)

	w := postContact(r, "only@example.com")
	assert.Equal(t, http.StatusCreated, w.Code)
}
