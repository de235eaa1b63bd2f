package database

import (
	"log"
	"os"

	"workspace-app/internal/domain/activity"
	"workspace-app/internal/domain/billing"
	"workspace-app/internal/domain/contacts"
	"workspace-app/internal/domain/notifications"
	"workspace-app/internal/domain/tags"
	"workspace-app/internal/domain/users"
	"workspace-app/internal/domain/workspaces"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var DB *gorm.DB

func InitDB() {
	dsn := os.Getenv("DB_URL")
	if dsn == "" {
		log.Fatal("DB_URL not set")
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}

	DB = db

	if err := Migrate(DB); err != nil {
		log.Fatal("AutoMigrate error:", err)
	}
}

// Migrate creates or updates the schema for all domain models. Exposed
// separately so tests can run it against their own database handle.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&users.User{},
		&users.VerificationToken{},

		&workspaces.Workspace{},
		&workspaces.Member{},
		&workspaces.Invitation{},

		&billing.Plan{},
		&billing.Account{},
		&billing.Subscription{},

		&tags.Tag{},
		&contacts.Contact{},
		&notifications.Notification{},
		&activity.Log{},
	)
}
