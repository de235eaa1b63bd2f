package billing

import (
	"os"

	billingdomain "workspace-app/internal/domain/billing"
)

func limit(v float64) *float64 { return &v }

// DefaultCatalog is the static plan configuration mirrored into the
// store at startup. Price ids come from the environment so the same
// catalog works across Stripe accounts.
func DefaultCatalog() []billingdomain.Plan {
	return []billingdomain.Plan{
		{
			ID:       "free",
			Name:     "Free",
			Active:   true,
			Price:    0,
			Currency: "USD",
			Interval: "month",
			Features: billingdomain.FeatureList{
				{ID: billingdomain.FeatureUsers, Limit: limit(3)},
				{ID: billingdomain.FeatureContacts, Limit: limit(100)},
			},
		},
		{
			ID:              "pro",
			Name:            "Pro",
			Active:          true,
			Price:           29,
			Currency:        "USD",
			Interval:        "month",
			TrialPeriodDays: 14,
			Features: billingdomain.FeatureList{
				{
					ID:      billingdomain.FeatureUsers,
					PriceID: os.Getenv("STRIPE_PRICE_PRO_USERS"),
					Type:    billingdomain.FeatureTypePerUnit,
					Limit:   limit(10),
				},
				{
					ID:      billingdomain.FeatureContacts,
					PriceID: os.Getenv("STRIPE_PRICE_PRO_CONTACTS"),
					Type:    billingdomain.FeatureTypeMetered,
				},
			},
		},
		{
			ID:       "enterprise",
			Name:     "Enterprise",
			Active:   true,
			Price:    99,
			Currency: "USD",
			Interval: "month",
			Features: billingdomain.FeatureList{
				{
					ID:      billingdomain.FeatureUsers,
					PriceID: os.Getenv("STRIPE_PRICE_ENTERPRISE_USERS"),
					Type:    billingdomain.FeatureTypePerUnit,
				},
				{
					ID:      billingdomain.FeatureContacts,
					PriceID: os.Getenv("STRIPE_PRICE_ENTERPRISE_CONTACTS"),
					Type:    billingdomain.FeatureTypeMetered,
				},
			},
		},
	}
}
