package main

import "github.com/aws/aws-lambda-go/events"

// Message attributes set by the webhook handler when it enqueues an event.
const (
	attrEventType     = "event_type"
	attrEventID       = "event_id"
	attrCorrelationID = "correlation_id"
)

func stringAttr(rec events.SQSMessage, name string) string {
	if v, ok := rec.MessageAttributes[name]; ok && v.StringValue != nil {
		return *v.StringValue
	}
	return ""
}
