package tags

import "time"

// Colors assignable to tags created on the fly.
var Colors = []string{"gray", "red", "orange", "yellow", "green", "blue", "purple", "pink"}

type Tag struct {
	ID          string `gorm:"type:varchar(40);primaryKey"`
	WorkspaceID string `gorm:"type:varchar(36);primaryKey"`
	Name        string `gorm:"type:varchar(255);not null"`
	Color       *string `gorm:"type:varchar(255)"`

	CreatedAt time.Time
	UpdatedAt time.Time
}
