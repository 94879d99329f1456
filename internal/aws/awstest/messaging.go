package awstest

import (
	"context"
	"fmt"
	"sync"

	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
)

// SQS records every SendMessage call.
type SQS struct {
	mu       sync.Mutex
	Messages []*sqs.SendMessageInput
	Err      error
}

func (f *SQS) SendMessage(ctx context.Context, in *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return nil, f.Err
	}
	f.Messages = append(f.Messages, in)
	return &sqs.SendMessageOutput{MessageId: str(fmt.Sprintf("msg-%d", len(f.Messages)))}, nil
}

// SNS records every Publish call.
type SNS struct {
	mu        sync.Mutex
	Published []*sns.PublishInput
	Err       error
}

func (f *SNS) Publish(ctx context.Context, in *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return nil, f.Err
	}
	f.Published = append(f.Published, in)
	return &sns.PublishOutput{}, nil
}

// CloudWatch records metric batches.
type CloudWatch struct {
	mu   sync.Mutex
	Data []*cloudwatch.PutMetricDataInput
}

func (f *CloudWatch) PutMetricData(ctx context.Context, in *cloudwatch.PutMetricDataInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Data = append(f.Data, in)
	return &cloudwatch.PutMetricDataOutput{}, nil
}

// MetricNames lists recorded metric names in call order.
func (f *CloudWatch) MetricNames() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var names []string
	for _, in := range f.Data {
		for _, d := range in.MetricData {
			if d.MetricName != nil {
				names = append(names, *d.MetricName)
			}
		}
	}
	return names
}
