package stripe

import (
	"github.com/stripe/stripe-go/v75"

	billingdomain "workspace-app/internal/domain/billing"
)

// subscriptionStatus maps the provider status onto the stored enum.
// Stripe's lifecycle values match ours one to one; anything unexpected
// is treated as canceled so a bad payload can never resurrect access.
func subscriptionStatus(s stripe.SubscriptionStatus) string {
	if billingdomain.ValidStatus(string(s)) {
		return string(s)
	}
	return billingdomain.StatusCanceled
}
