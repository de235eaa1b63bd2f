package activity

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

const (
	TypeContactCreated = "contact_created"
	TypeCommentAdded   = "comment_added"
	TypeTagsUpdated    = "tags_updated"
)

const (
	ActorUser   = "user"
	ActorSystem = "system"

	SubjectContact = "contact"
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
	return errors.New("activity: unsupported metadata column type")
}

type Log struct {
	ID          string  `gorm:"type:varchar(36);primaryKey"`
	WorkspaceID string  `gorm:"type:varchar(36);not null;index:idx_activity_logs_workspace"`
	ActorID     *string `gorm:"type:varchar(36)"`
	ActorType   string  `gorm:"type:varchar(20);not null;default:'system'"`
	SubjectID   string  `gorm:"type:varchar(36);not null;index:idx_activity_logs_subject"`
	SubjectType string  `gorm:"type:varchar(20);not null"`
	Type        string  `gorm:"type:varchar(64);not null"`
	Metadata    Metadata `gorm:"type:jsonb"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (Log) TableName() string { return "activity_logs" }
