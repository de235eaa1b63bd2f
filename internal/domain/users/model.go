package users

import "time"

type User struct {
	ID           string  `gorm:"type:varchar(36);primaryKey"`
	Email        string  `gorm:"not null;uniqueIndex:idx_users_email"`
	Name         string  `gorm:"type:varchar(255)"`
	FirstName    string  `gorm:"type:varchar(255)"`
	LastName     string  `gorm:"type:varchar(255)"`
	Avatar       *string `gorm:"type:varchar(255)"`
	Password     *string
	AuthProvider string  `gorm:"type:varchar(20);not null;default:'local'"`
	GoogleSub    *string `gorm:"uniqueIndex:idx_users_google_sub"`
	IsVerified   bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

type VerificationToken struct {
	ID        uint   `gorm:"primaryKey"`
	UserID    string `gorm:"type:varchar(36);uniqueIndex"`
	User      User   `gorm:"constraint:OnDelete:CASCADE"`
	Token     string `gorm:"uniqueIndex"`
	Type      string `gorm:"index"`
	ExpiresAt time.Time
	CreatedAt time.Time
}
