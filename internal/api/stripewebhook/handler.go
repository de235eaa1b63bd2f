package stripewebhook

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stripe/stripe-go/v75"
	"github.com/stripe/stripe-go/v75/webhook"
)

// SubscriptionSyncer pulls the current subscription state from the
// provider and persists it. The webhook never writes state itself.
type SubscriptionSyncer interface {
	SyncSubscriptionStatus(subscriptionID string, initial bool) error
}

type Handler struct {
	secret string
	syncer SubscriptionSyncer
	log    zerolog.Logger
}

func NewHandler(secret string, syncer SubscriptionSyncer, log zerolog.Logger) *Handler {
	return &Handler{secret: secret, syncer: syncer, log: log}
}

// Handle verifies the event signature and reacts to the subscription
// lifecycle events. Payloads are treated as triggers only: the syncer
// re-fetches the subscription from the provider, so replays and
// out-of-order delivery converge on the same stored state. Every
// verified event is acknowledged so the provider stops retrying.
func (h *Handler) Handle(c *gin.Context) {
	payload, err := readBody(c, 65536)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Error reading request body"})
		return
	}

	event, err := webhook.ConstructEventWithOptions(
		payload,
		c.GetHeader("Stripe-Signature"),
		h.secret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true},
	)
	if err != nil {
		h.log.Warn().Err(err).Msg("stripe signature verification failed")
		c.JSON(http.StatusBadRequest, gin.H{"error": "Signature verification failed"})
		return
	}

	switch event.Type {
	case "checkout.session.completed":
		var session stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
			h.log.Error().Err(err).Str("event_id", event.ID).Msg("malformed checkout session payload")
			break
		}
		// One-time payment checkouts carry no subscription.
		if session.Mode != stripe.CheckoutSessionModeSubscription || session.Subscription == nil {
			break
		}
		h.sync(event.ID, session.Subscription.ID, true)

	case "customer.subscription.created",
		"customer.subscription.updated",
		"customer.subscription.deleted":
		var sub stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			h.log.Error().Err(err).Str("event_id", event.ID).Msg("malformed subscription payload")
			break
		}
		h.sync(event.ID, sub.ID, false)
	}

	c.JSON(http.StatusOK, gin.H{"received": true})
}

// sync failures are logged, not returned: a 5xx would make the
// provider retry an event whose payload we already discarded in favor
// of a fresh fetch.
func (h *Handler) sync(eventID, subscriptionID string, initial bool) {
	if err := h.syncer.SyncSubscriptionStatus(subscriptionID, initial); err != nil {
		h.log.Error().Err(err).
			Str("event_id", eventID).
			Str("subscription_id", subscriptionID).
			Msg("subscription sync failed")
	}
}

func readBody(c *gin.Context, maxBytes int64) ([]byte, error) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
	return io.ReadAll(c.Request.Body)
}
