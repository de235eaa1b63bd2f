package contacts

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

const (
	StatusNew      = "new"
	StatusActive   = "active"
	StatusInactive = "inactive"
)

const (
	TypeLead     = "lead"
	TypeCustomer = "customer"
)

// TagIDs is the contact's tag id list, stored as jsonb.
type TagIDs []string

func (t TagIDs) Value() (driver.Value, error) {
	if t == nil {
		return json.Marshal([]string{})
	}
	return json.Marshal(t)
}

func (t *TagIDs) Scan(value interface{}) error {
	if value == nil {
		*t = nil
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, t)
	case string:
		return json.Unmarshal([]byte(v), t)
	}
	return errors.New("contacts: unsupported tags column type")
}

func (t TagIDs) Contains(id string) bool {
	for _, v := range t {
		if v == id {
			return true
		}
	}
	return false
}

type Contact struct {
	ID          string  `gorm:"type:varchar(36);primaryKey"`
	WorkspaceID string  `gorm:"type:varchar(36);not null;index:idx_contacts_workspace;uniqueIndex:idx_contacts_workspace_email"`
	Email       string  `gorm:"type:varchar(255);not null;uniqueIndex:idx_contacts_workspace_email"`
	FirstName   *string `gorm:"type:varchar(255)"`
	LastName    *string `gorm:"type:varchar(255)"`
	Name        *string `gorm:"type:varchar(255)"`
	Avatar      *string `gorm:"type:varchar(255)"`
	Status      string  `gorm:"type:varchar(20);not null;default:'new'"`
	Type        string  `gorm:"type:varchar(20);not null"`
	Tags        TagIDs  `gorm:"type:jsonb"`
	SortOrder   float64

	CreatedAt time.Time
	UpdatedAt time.Time
}
