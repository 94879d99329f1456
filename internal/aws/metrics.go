package aws

import (
	"context"
	"fmt"
	"time"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
)

// Metric names emitted by the checkout flow.
const (
	MetricCheckoutSessionsCreated = "CheckoutSessionsCreated"
	MetricCheckoutFailures        = "CheckoutFailures"
	MetricOrdersConfirmed         = "OrdersConfirmed"
	MetricConfirmationReplays     = "ConfirmationReplays"
	MetricSessionsClosed          = "CheckoutSessionsClosed"
	MetricProviderLatency         = "PaymentProviderLatency"
)

// Metrics writes data points to CloudWatch. A disabled or nil Metrics is a no-op.
type Metrics struct {
	client    CloudWatchAPI
	namespace string
	enabled   bool
	nowFunc   func() time.Time
}

func NewMetrics(client CloudWatchAPI, namespace string, enabled bool) *Metrics {
	if namespace == "" {
		namespace = "AdyX/Storefront"
	}
	return &Metrics{
		client:    client,
		namespace: namespace,
		enabled:   enabled && client != nil,
		nowFunc:   time.Now,
	}
}

func (m *Metrics) put(ctx context.Context, name string, value float64, unit cwtypes.StandardUnit, dimensions map[string]string) error {
	if m == nil || !m.enabled {
		return nil
	}
	dims := make([]cwtypes.Dimension, 0, len(dimensions))
	for k, v := range dimensions {
		dims = append(dims, cwtypes.Dimension{Name: sdkaws.String(k), Value: sdkaws.String(v)})
	}
	_, err := m.client.PutMetricData(ctx, &cloudwatch.PutMetricDataInput{
		Namespace: sdkaws.String(m.namespace),
		MetricData: []cwtypes.MetricDatum{{
			MetricName: sdkaws.String(name),
			Value:      sdkaws.Float64(value),
			Unit:       unit,
			Timestamp:  sdkaws.Time(m.nowFunc()),
			Dimensions: dims,
		}},
	})
	if err != nil {
		return fmt.Errorf("put metric %s: %w", name, err)
	}
	return nil
}

// Count records a single occurrence of name.
func (m *Metrics) Count(ctx context.Context, name string, dimensions map[string]string) error {
	return m.put(ctx, name, 1, cwtypes.StandardUnitCount, dimensions)
}

// Latency records d in milliseconds.
func (m *Metrics) Latency(ctx context.Context, name string, d time.Duration, dimensions map[string]string) error {
	return m.put(ctx, name, float64(d.Milliseconds()), cwtypes.StandardUnitMilliseconds, dimensions)
}
