package contacts

import (
	"errors"
	"math/rand"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	activitydomain "workspace-app/internal/domain/activity"
	contactsdomain "workspace-app/internal/domain/contacts"
	tagsdomain "workspace-app/internal/domain/tags"
	wsdomain "workspace-app/internal/domain/workspaces"
	"workspace-app/internal/svcerr"
)

type Service struct {
	db *gorm.DB
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

type CreateArgs struct {
	ID          string
	WorkspaceID string
	UserID      string
	Email       string
	Name        string
	FirstName   string
	LastName    string
	Type        string
}

// Create inserts the contact and its creation activity entry in one
// transaction. A name without explicit first/last parts is split on the
// first space.
func (s *Service) Create(args CreateArgs) (*contactsdomain.Contact, error) {
	contact := contactsdomain.Contact{
		ID:          args.ID,
		WorkspaceID: args.WorkspaceID,
		Email:       args.Email,
		Status:      contactsdomain.StatusNew,
		Type:        args.Type,
	}
	if contact.ID == "" {
		contact.ID = uuid.NewString()
	}
	if contact.Type == "" {
		contact.Type = contactsdomain.TypeLead
	}
	if args.Name != "" {
		name := args.Name
		contact.Name = &name
	}
	if args.FirstName != "" {
		firstName := args.FirstName
		contact.FirstName = &firstName
	} else if args.Name != "" {
		first, last, _ := strings.Cut(args.Name, " ")
		contact.FirstName = &first
		if last != "" {
			contact.LastName = &last
		}
	}
	if args.LastName != "" {
		lastName := args.LastName
		contact.LastName = &lastName
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&contact).Error; err != nil {
			return err
		}

		actorID := args.UserID
		return tx.Create(&activitydomain.Log{
			ID:          uuid.NewString(),
			WorkspaceID: args.WorkspaceID,
			ActorID:     &actorID,
			ActorType:   activitydomain.ActorUser,
			SubjectID:   contact.ID,
			SubjectType: activitydomain.SubjectContact,
			Type:        activitydomain.TypeContactCreated,
		}).Error
	})
	if err != nil {
		return nil, err
	}

	return &contact, nil
}

type UpdateArgs struct {
	WorkspaceID string
	ID          string
	Email       *string
	Name        *string
	FirstName   *string
	LastName    *string
	Status      *string
	Type        *string
}

func (s *Service) Update(args UpdateArgs) error {
	set := map[string]interface{}{}
	if args.Email != nil {
		set["email"] = *args.Email
	}
	if args.Name != nil {
		set["name"] = *args.Name
	}
	if args.FirstName != nil {
		set["first_name"] = *args.FirstName
	}
	if args.LastName != nil {
		set["last_name"] = *args.LastName
	}
	if args.Status != nil {
		set["status"] = *args.Status
	}
	if args.Type != nil {
		set["type"] = *args.Type
	}
	if len(set) == 0 {
		return nil
	}

	return s.db.Model(&contactsdomain.Contact{}).
		Where("workspace_id = ? AND id = ?", args.WorkspaceID, args.ID).
		Updates(set).Error
}

func (s *Service) GetByID(workspaceID, id string) (*contactsdomain.Contact, error) {
	var contact contactsdomain.Contact
	err := s.db.Where("workspace_id = ? AND id = ?", workspaceID, id).First(&contact).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &contact, nil
}

type ListArgs struct {
	WorkspaceID string
	Type        string
	Page        int
	PageSize    int
}

func (s *Service) List(args ListArgs) ([]contactsdomain.Contact, error) {
	if args.PageSize <= 0 || args.PageSize > 100 {
		args.PageSize = 50
	}
	if args.Page < 1 {
		args.Page = 1
	}

	query := s.db.Where("workspace_id = ?", args.WorkspaceID)
	if args.Type != "" {
		query = query.Where("type = ?", args.Type)
	}

	var contacts []contactsdomain.Contact
	err := query.Order("id DESC").
		Offset((args.Page - 1) * args.PageSize).
		Limit(args.PageSize).
		Find(&contacts).Error
	return contacts, err
}

// CreateComment records a comment as a contact activity entry.
func (s *Service) CreateComment(workspaceID, contactID, userID, comment string) (*activitydomain.Log, error) {
	actorID := userID
	entry := activitydomain.Log{
		ID:          uuid.NewString(),
		WorkspaceID: workspaceID,
		ActorID:     &actorID,
		ActorType:   activitydomain.ActorUser,
		SubjectID:   contactID,
		SubjectType: activitydomain.SubjectContact,
		Type:        activitydomain.TypeCommentAdded,
		Metadata:    activitydomain.Metadata{"comment": comment},
	}
	if err := s.db.Create(&entry).Error; err != nil {
		return nil, err
	}
	return &entry, nil
}

func (s *Service) DeleteComment(workspaceID, commentID string) error {
	return s.db.Where("workspace_id = ? AND id = ?", workspaceID, commentID).
		Delete(&activitydomain.Log{}).Error
}

// UpdateTags replaces the contact's tag list in one transaction: tags
// that don't exist yet are created with a random color, the contact row
// is updated, and a tags_updated activity entry records the
// added/removed diff.
func (s *Service) UpdateTags(workspaceID, contactID, userID string, tagNames []string) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var contact contactsdomain.Contact
		err := tx.Where("workspace_id = ? AND id = ?", workspaceID, contactID).First(&contact).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return svcerr.New("contacts.not_found", "Could not find contact "+contactID)
		}
		if err != nil {
			return err
		}

		// Slug the names into ids and drop duplicates.
		seen := map[string]bool{}
		ids := make(contactsdomain.TagIDs, 0, len(tagNames))
		names := map[string]string{}
		for _, name := range tagNames {
			id := wsdomain.MakeSlug(name)
			if seen[id] {
				continue
			}
			seen[id] = true
			ids = append(ids, id)
			names[id] = name
		}

		if len(ids) > 0 {
			var existing []tagsdomain.Tag
			err = tx.Where("workspace_id = ? AND id IN ?", workspaceID, []string(ids)).Find(&existing).Error
			if err != nil {
				return err
			}

			existingIDs := map[string]bool{}
			for _, tag := range existing {
				existingIDs[tag.ID] = true
			}

			for _, id := range ids {
				if existingIDs[id] {
					continue
				}
				color := tagsdomain.Colors[rand.Intn(len(tagsdomain.Colors))]
				tag := tagsdomain.Tag{
					ID:          id,
					WorkspaceID: workspaceID,
					Name:        names[id],
					Color:       &color,
				}
				if err := tx.Create(&tag).Error; err != nil {
					return err
				}
			}
		}

		err = tx.Model(&contactsdomain.Contact{}).
			Where("workspace_id = ? AND id = ?", workspaceID, contactID).
			Update("tags", ids).Error
		if err != nil {
			return err
		}

		var added []string
		for _, id := range ids {
			if !contact.Tags.Contains(id) {
				added = append(added, id)
			}
		}
		var removed []string
		for _, id := range contact.Tags {
			if !ids.Contains(id) {
				removed = append(removed, id)
			}
		}

		entry := activitydomain.Log{
			ID:          uuid.NewString(),
			WorkspaceID: workspaceID,
			ActorType:   activitydomain.ActorSystem,
			SubjectID:   contactID,
			SubjectType: activitydomain.SubjectContact,
			Type:        activitydomain.TypeTagsUpdated,
			Metadata:    activitydomain.Metadata{"added": added, "removed": removed},
		}
		if userID != "" {
			entry.ActorID = &userID
			entry.ActorType = activitydomain.ActorUser
		}
		return tx.Create(&entry).Error
	})
}
