package aws

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/sns"
	snstypes "github.com/aws/aws-sdk-go-v2/service/sns/types"
)

// Notifier publishes domain events to an SNS topic.
type Notifier struct {
	SNS      SNSAPI
	TopicArn string
}

func NewNotifier(client SNSAPI, topicArn string) *Notifier {
	return &Notifier{SNS: client, TopicArn: topicArn}
}

// Publish marshals event and publishes it with an event_type attribute so
// subscribers can filter without parsing the body.
func (n *Notifier) Publish(ctx context.Context, eventType string, event interface{}) error {
	if n.TopicArn == "" {
		return fmt.Errorf("empty topicArn")
	}
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	_, err = n.SNS.Publish(ctx, &sns.PublishInput{
		TopicArn: &n.TopicArn,
		Message:  awsString(string(body)),
		MessageAttributes: map[string]snstypes.MessageAttributeValue{
			"event_type": {DataType: awsString("String"), StringValue: awsString(eventType)},
		},
	})
	if err != nil {
		return fmt.Errorf("sns publish failed for topic %s: %w", n.TopicArn, err)
	}
	return nil
}
