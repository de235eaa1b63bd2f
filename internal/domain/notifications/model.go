package notifications

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

// Only user targets and contact subjects exist today; the columns are
// free-text so teams, tasks etc. can be added without a migration.
const (
	TargetUser = "user"

	SubjectContact = "contact"

	ActorUser   = "user"
	ActorSystem = "system"
)

type Metadata map[string]interface{}

func (m Metadata) Value() (driver.Value, error) {
	if m == nil {
		return json.Marshal(map[string]interface{}{})
	}
	return json.Marshal(m)
}

func (m *Metadata) Scan(value interface{}) error {
	if value == nil {
		*m = nil
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, m)
	case string:
		return json.Unmarshal([]byte(v), m)
	}
	return errors.New("notifications: unsupported metadata column type")
}

type Notification struct {
	ID          string  `gorm:"type:varchar(36);primaryKey"`
	WorkspaceID string  `gorm:"type:varchar(36);not null;index:idx_notifications_workspace"`
	Type        string  `gorm:"type:varchar(255)"`
	TargetID    string  `gorm:"type:varchar(36);not null"`
	TargetType  string  `gorm:"type:varchar(20);not null"`
	ActorID     *string `gorm:"type:varchar(36)"`
	ActorType   string  `gorm:"type:varchar(20);not null;default:'system'"`
	SubjectID   string  `gorm:"type:varchar(36);not null"`
	SubjectType string  `gorm:"type:varchar(20);not null"`
	Metadata    Metadata `gorm:"type:jsonb"`
	ReadAt      *time.Time
	ReadByID    *string `gorm:"type:varchar(36)"`

	CreatedAt time.Time
	UpdatedAt time.Time
}
