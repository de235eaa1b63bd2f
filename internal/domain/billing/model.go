package billing

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

// Subscription statuses mirror the payment provider's subscription
// lifecycle and form a closed enum.
// See https://stripe.com/docs/api/subscriptions/object#subscription_object-status
const (
	StatusIncomplete        = "incomplete"
	StatusIncompleteExpired = "incomplete_expired"
	StatusTrialing          = "trialing"
	StatusActive            = "active"
	StatusPastDue           = "past_due"
	StatusCanceled          = "canceled"
	StatusUnpaid            = "unpaid"
	StatusPaused            = "paused"
)

var validStatuses = map[string]bool{
	StatusIncomplete:        true,
	StatusIncompleteExpired: true,
	StatusTrialing:          true,
	StatusActive:            true,
	StatusPastDue:           true,
	StatusCanceled:          true,
	StatusUnpaid:            true,
	StatusPaused:            true,
}

func ValidStatus(s string) bool { return validStatuses[s] }

const (
	FeatureTypePerUnit = "per_unit"
	FeatureTypeMetered = "metered"
)

// Known feature ids with live usage counts.
const (
	FeatureUsers    = "users"
	FeatureContacts = "contacts"
)

type Feature struct {
	ID      string   `json:"id"`
	PriceID string   `json:"priceId,omitempty"`
	Type    string   `json:"type,omitempty"`
	Limit   *float64 `json:"limit,omitempty"`
}

// FeatureList is stored as a jsonb column on billing_plans.
type FeatureList []Feature

func (f FeatureList) Value() (driver.Value, error) {
	return json.Marshal(f)
}

func (f *FeatureList) Scan(value interface{}) error {
	if value == nil {
		*f = nil
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, f)
	case string:
		return json.Unmarshal([]byte(v), f)
	}
	return errors.New("billing: unsupported feature list column type")
}

// Metadata is a jsonb string map column.
type Metadata map[string]string

func (m Metadata) Value() (driver.Value, error) {
	if m == nil {
		return json.Marshal(map[string]string{})
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
	return errors.New("billing: unsupported metadata column type")
}

// Plan is a catalog entry, not tenant-scoped. Synced from static
// configuration and read-only at request time.
type Plan struct {
	ID              string `gorm:"type:varchar(255);primaryKey"`
	Name            string `gorm:"type:varchar(64);not null"`
	Description     string `gorm:"type:varchar(255)"`
	Active          bool   `gorm:"not null;default:true"`
	Price           float64
	Currency        string `gorm:"type:varchar(20);not null;default:'USD'"`
	Interval        string `gorm:"type:varchar(20);not null;default:'month'"`
	TrialPeriodDays int
	Features        FeatureList `gorm:"type:jsonb"`
	Metadata        Metadata    `gorm:"type:jsonb"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (Plan) TableName() string { return "billing_plans" }

// Feature returns the plan feature with the given id, or nil.
func (p *Plan) Feature(id string) *Feature {
	for i := range p.Features {
		if p.Features[i].ID == id {
			return &p.Features[i]
		}
	}
	return nil
}

// Account links a workspace to the external payment provider. The id is
// the workspace id; CustomerID stays nil until the first checkout or
// portal interaction.
type Account struct {
	ID         string  `gorm:"type:varchar(36);primaryKey"`
	CustomerID *string `gorm:"type:varchar(255);uniqueIndex:idx_billing_accounts_customer_id"`
	Email      *string `gorm:"type:varchar(255)"`

	Subscription *Subscription `gorm:"foreignKey:AccountID"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (Account) TableName() string { return "billing_accounts" }

// Subscription mirrors the provider's subscription state. Keyed by the
// provider subscription id and only ever written through an upsert.
type Subscription struct {
	ID                 string `gorm:"type:varchar(255);primaryKey"`
	AccountID          string `gorm:"type:varchar(36);not null;index"`
	PlanID             string `gorm:"type:varchar(255);not null"`
	Status             string `gorm:"type:varchar(32);not null"`
	Quantity           float64
	StartedAt          time.Time
	CancelAt           *time.Time
	CancelAtPeriodEnd  bool `gorm:"not null;default:false"`
	CanceledAt         *time.Time
	CurrentPeriodStart time.Time
	CurrentPeriodEnd   time.Time
	EndedAt            *time.Time
	TrialEndsAt        *time.Time
	Metadata           Metadata `gorm:"type:jsonb"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (Subscription) TableName() string { return "billing_subscriptions" }
