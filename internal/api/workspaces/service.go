package workspaces

import (
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	billingdomain "workspace-app/internal/domain/billing"
	tagsdomain "workspace-app/internal/domain/tags"
	"workspace-app/internal/domain/users"
	wsdomain "workspace-app/internal/domain/workspaces"
	"workspace-app/internal/svcerr"
)

func strptr(s string) *string { return &s }

// Tags every new workspace starts with.
var defaultTags = []tagsdomain.Tag{
	{ID: "developer", Name: "Developer", Color: strptr("purple")},
	{ID: "designer", Name: "Designer", Color: strptr("green")},
	{ID: "partner", Name: "Partner", Color: strptr("blue")},
	{ID: "prospect", Name: "Prospect", Color: strptr("gray")},
}

type Service struct {
	db            *gorm.DB
	defaultPlanID string
}

func NewService(db *gorm.DB, defaultPlanID string) *Service {
	return &Service{db: db, defaultPlanID: defaultPlanID}
}

type CreateArgs struct {
	ID      string
	OwnerID string
	Slug    string
	Name    string
}

// Create provisions a workspace in one transaction: the workspace row,
// the owner's admin membership, its billing account and the default
// tags. Partial creation is never observable.
func (s *Service) Create(args CreateArgs) (*wsdomain.Workspace, error) {
	workspace := wsdomain.Workspace{
		ID:      args.ID,
		OwnerID: args.OwnerID,
		Slug:    args.Slug,
		Name:    args.Name,
	}
	if workspace.ID == "" {
		workspace.ID = uuid.NewString()
	}
	if workspace.Slug == "" {
		workspace.Slug = wsdomain.MakeSlug(args.Name)
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&workspace).Error; err != nil {
			return err
		}

		if args.OwnerID != "" {
			var owner users.User
			err := tx.Select("id").Where("id = ?", args.OwnerID).First(&owner).Error
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return svcerr.New("workspace.owner_not_found", "Could not find owner "+args.OwnerID)
			}
			if err != nil {
				return err
			}

			member := wsdomain.Member{
				UserID:      owner.ID,
				WorkspaceID: workspace.ID,
				Role:        wsdomain.RoleAdmin,
				Status:      wsdomain.MemberStatusActive,
			}
			if err := tx.Create(&member).Error; err != nil {
				return err
			}
		}

		// The billing account exists from day one, not linked to the
		// provider until the first checkout or portal interaction.
		account := billingdomain.Account{ID: workspace.ID}
		if err := tx.Create(&account).Error; err != nil {
			return err
		}

		for _, tag := range defaultTags {
			tag.WorkspaceID = workspace.ID
			if err := tx.Create(&tag).Error; err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return &workspace, nil
}

func (s *Service) IsSlugAvailable(slug string) (bool, error) {
	var workspace wsdomain.Workspace
	err := s.db.Select("id").Where("slug = ?", slug).First(&workspace).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return true, nil
	}
	if err != nil {
		return false, err
	}
	return false, nil
}

func (s *Service) Update(id, name, slug string) (*wsdomain.Workspace, error) {
	err := s.db.Model(&wsdomain.Workspace{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"name": name, "slug": slug}).Error
	if err != nil {
		return nil, err
	}

	var workspace wsdomain.Workspace
	if err := s.db.Where("id = ?", id).First(&workspace).Error; err != nil {
		return nil, err
	}
	return &workspace, nil
}

// Detail is the full workspace view: subscription (a synthetic default
// plan subscription when none exists), members and tags.
type Detail struct {
	wsdomain.Workspace
	Subscription *SubscriptionView `json:"subscription"`
	Members      []MemberDetail    `json:"members"`
	Tags         []tagsdomain.Tag  `json:"tags"`
}

type SubscriptionView struct {
	ID     string `json:"id,omitempty"`
	PlanID string `json:"planId"`
	Status string `json:"status"`
}

type MemberDetail struct {
	ID        string   `json:"id"`
	Email     string   `json:"email"`
	Name      string   `json:"name,omitempty"`
	FirstName string   `json:"firstName,omitempty"`
	LastName  string   `json:"lastName,omitempty"`
	Avatar    *string  `json:"avatar,omitempty"`
	Status    string   `json:"status"`
	Roles     []string `json:"roles"`
}

func (s *Service) GetDetail(workspace *wsdomain.Workspace, subscription *billingdomain.Subscription) (*Detail, error) {
	detail := &Detail{Workspace: *workspace}

	if subscription != nil {
		detail.Subscription = &SubscriptionView{
			ID:     subscription.ID,
			PlanID: subscription.PlanID,
			Status: subscription.Status,
		}
	} else if s.defaultPlanID != "" {
		// Workspaces without a subscription run on the default plan.
		detail.Subscription = &SubscriptionView{
			PlanID: s.defaultPlanID,
			Status: billingdomain.StatusActive,
		}
	}

	var members []wsdomain.Member
	err := s.db.Preload("User").Where("workspace_id = ?", workspace.ID).Find(&members).Error
	if err != nil {
		return nil, err
	}
	for _, member := range members {
		roles := []string{member.Role}
		if member.UserID == workspace.OwnerID {
			roles = append([]string{wsdomain.RoleOwner}, roles...)
		}
		detail.Members = append(detail.Members, MemberDetail{
			ID:        member.UserID,
			Email:     member.User.Email,
			Name:      member.User.Name,
			FirstName: member.User.FirstName,
			LastName:  member.User.LastName,
			Avatar:    member.User.Avatar,
			Status:    member.Status,
			Roles:     roles,
		})
	}

	err = s.db.Where("workspace_id = ?", workspace.ID).Find(&detail.Tags).Error
	if err != nil {
		return nil, err
	}

	return detail, nil
}
