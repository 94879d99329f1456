package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-lambda-go/events"
	"go.uber.org/zap"

	"github.com/adyx-fashion/storefront/internal/checkout"
)

// EventHandler applies one provider event.
type EventHandler interface {
	HandleProviderEvent(ctx context.Context, evt checkout.ProviderEvent) error
}

// Processor drains the provider event queue.
type Processor struct {
	handler EventHandler
	log     *zap.Logger
}

// NewProcessor returns a Processor that applies events through h.
func NewProcessor(h EventHandler, log *zap.Logger) *Processor {
	return &Processor{handler: h, log: log}
}

// Handle processes a batch and reports failed messages individually, so
// only those are redelivered. Events are idempotent on the checkout side.
func (p *Processor) Handle(ctx context.Context, ev events.SQSEvent) (events.SQSEventResponse, error) {
	var resp events.SQSEventResponse
	for _, rec := range ev.Records {
		if err := p.processMessage(ctx, rec); err != nil {
			p.log.Error("provider event failed",
				zap.String("message_id", rec.MessageId),
				zap.String("event_id", stringAttr(rec, attrEventID)),
				zap.String("event_type", stringAttr(rec, attrEventType)),
				zap.Error(err))
			resp.BatchItemFailures = append(resp.BatchItemFailures, events.SQSBatchItemFailure{ItemIdentifier: rec.MessageId})
		}
	}
	return resp, nil
}

func (p *Processor) processMessage(ctx context.Context, rec events.SQSMessage) error {
	var evt checkout.ProviderEvent
	if err := json.Unmarshal([]byte(rec.Body), &evt); err != nil {
		return fmt.Errorf("invalid message body: %w", err)
	}
	if evt.ID == "" || evt.Type == "" {
		return fmt.Errorf("invalid message body: missing event id or type")
	}

	log := p.log.With(
		zap.String("event_id", evt.ID),
		zap.String("event_type", evt.Type),
		zap.String("session_id", evt.SessionID),
		zap.String("correlation_id", stringAttr(rec, attrCorrelationID)),
	)
	if attrType := stringAttr(rec, attrEventType); attrType != "" && attrType != evt.Type {
		log.Warn("message attribute disagrees with event body", zap.String("attribute_event_type", attrType))
	}
	log.Info("processing provider event")

	if err := p.handler.HandleProviderEvent(ctx, evt); err != nil {
		return fmt.Errorf("handle %s %s: %w", evt.Type, evt.ID, err)
	}
	log.Info("provider event applied")
	return nil
}
