package handlers

import (
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/adyx-fashion/storefront/internal/idempotency"
	"github.com/adyx-fashion/storefront/internal/logging"
)

// HeaderStripeSignature carries the webhook signature.
const HeaderStripeSignature = "Stripe-Signature"

const (
	maxWebhookBody           = 64 << 10
	defaultWebhookClaimLease = 2 * time.Minute
)

// RegisterWebhookRoutes registers the payment provider webhook.
//
// Verified events are claimed by event id and handed to the worker queue.
// The provider retries on any non-2xx, so a failed enqueue answers 500 and
// leaves the claim FAILED for the retry to pick up. A redelivery that finds
// the claim IN_PROGRESS answers 409 while the lease holds and takes the claim
// over once it lapses, so a crash between claim and enqueue is not fatal.
func RegisterWebhookRoutes(r *gin.Engine, cfg HandlerConfig) {
	r.POST("/webhooks/stripe", func(c *gin.Context) {
		ctx := c.Request.Context()
		log := logging.FromContext(c, cfg.Logger)

		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBody)
		payload, err := io.ReadAll(c.Request.Body)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid webhook"})
			return
		}

		evt, err := cfg.Webhooks.ParseWebhook(payload, c.GetHeader(HeaderStripeSignature))
		if err != nil {
			log.Warn("rejected webhook", zap.Error(err))
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid webhook"})
			return
		}
		log = log.With(zap.String("event_id", evt.ID), zap.String("event_type", evt.Type))

		// no queue configured: apply the event in the request
		if cfg.Events == nil {
			if err := cfg.Checkout.HandleProviderEvent(ctx, evt); err != nil {
				log.Error("handle webhook event", zap.Error(err))
				c.JSON(http.StatusInternalServerError, gin.H{"error": "event_processing_failed"})
				return
			}
			c.JSON(http.StatusOK, gin.H{"received": true})
			return
		}

		if cfg.EventClaims != nil {
			key := idempotency.EventKey(evt.ID)
			created, err := cfg.EventClaims.CreateIfNotExists(ctx, key, "")
			if err != nil {
				log.Error("claim webhook event", zap.Error(err))
				c.JSON(http.StatusInternalServerError, gin.H{"error": "idempotency_check_failed"})
				return
			}
			if !created {
				rec, err := cfg.EventClaims.Get(ctx, key)
				if err != nil {
					log.Error("read webhook claim", zap.Error(err))
					c.JSON(http.StatusInternalServerError, gin.H{"error": "idempotency_check_failed"})
					return
				}
				if rec != nil {
					switch {
					case rec.Status == idempotency.StatusDone:
						log.Info("duplicate webhook event", zap.String("claim_status", rec.Status))
						c.JSON(http.StatusOK, gin.H{"received": true, "duplicate": true})
						return
					case rec.Status == idempotency.StatusInProgress && time.Since(rec.UpdatedAt) < cfg.WebhookClaimLease:
						log.Info("webhook event in flight", zap.Time("claimed_at", rec.UpdatedAt))
						c.JSON(http.StatusConflict, gin.H{"error": "event_in_progress"})
						return
					}
					taken, err := cfg.EventClaims.Reclaim(ctx, key, rec)
					if err != nil {
						log.Error("reclaim webhook event", zap.Error(err))
						c.JSON(http.StatusInternalServerError, gin.H{"error": "idempotency_check_failed"})
						return
					}
					if !taken {
						c.JSON(http.StatusConflict, gin.H{"error": "event_in_progress"})
						return
					}
					log.Info("reclaimed webhook event", zap.String("claim_status", rec.Status))
				}
			}
		}

		attrs := map[string]string{
			"event_type":     evt.Type,
			"event_id":       evt.ID,
			"correlation_id": c.GetString(logging.RequestIDKey),
		}
		if err := cfg.Events.SendJSON(ctx, evt, attrs); err != nil {
			log.Error("enqueue webhook event", zap.Error(err))
			if cfg.EventClaims != nil {
				_ = cfg.EventClaims.MarkFailed(ctx, idempotency.EventKey(evt.ID), fmt.Sprintf("sqs_send_failed: %v", err))
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "enqueue_failed"})
			return
		}
		if cfg.EventClaims != nil {
			if err := cfg.EventClaims.MarkDone(ctx, idempotency.EventKey(evt.ID), "", http.StatusAccepted); err != nil {
				log.Warn("mark webhook claim done", zap.Error(err))
			}
		}
		c.JSON(http.StatusOK, gin.H{"received": true})
	})
}
