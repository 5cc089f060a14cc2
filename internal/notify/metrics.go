package notify

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"

	"tanaw/internal/types"
)

// MetricResult labels the outcome dimension of a scheduling attempt.
type MetricResult string

const (
	MetricResultSuccess  MetricResult = "success"
	MetricResultFailure  MetricResult = "failure"
	MetricResultRejected MetricResult = "rejected"
)

// MetricNamespace is the CloudWatch namespace for all notification metrics.
const MetricNamespace = "Tanaw/Notifications"

// NotificationMetrics records scheduling outcomes. Emission failures are
// logged, never propagated; metrics must not affect the scheduling path.
type NotificationMetrics interface {
	RecordScheduleOutcome(ctx context.Context, result MetricResult)
	RecordLeadTime(ctx context.Context, lead time.Duration)
}

// NoopMetrics discards all metrics.
type NoopMetrics struct{}

var _ NotificationMetrics = NoopMetrics{}

func (NoopMetrics) RecordScheduleOutcome(context.Context, MetricResult) {}
func (NoopMetrics) RecordLeadTime(context.Context, time.Duration)      {}

// CloudWatchClient abstracts the CloudWatch PutMetricData operation for
// testability.
type CloudWatchClient interface {
	PutMetricData(ctx context.Context, params *cloudwatch.PutMetricDataInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error)
}

// CloudWatchMetrics emits notification metrics to AWS CloudWatch.
//
// Metrics emitted:
//   - ScheduleAttempt: Dims {Result} -- on every Schedule outcome
//   - NotificationLeadTime: No dims -- trigger time minus now, in seconds
type CloudWatchMetrics struct {
	client    CloudWatchClient
	namespace string
	logger    types.Logger
}

var _ NotificationMetrics = (*CloudWatchMetrics)(nil)

// NewCloudWatchMetrics creates a metrics sink publishing to the
// MetricNamespace namespace.
func NewCloudWatchMetrics(client CloudWatchClient, logger types.Logger) *CloudWatchMetrics {
	return &CloudWatchMetrics{
		client:    client,
		namespace: MetricNamespace,
		logger:    logger,
	}
}

func (m *CloudWatchMetrics) RecordScheduleOutcome(ctx context.Context, result MetricResult) {
	input := &cloudwatch.PutMetricDataInput{
		Namespace: aws.String(m.namespace),
		MetricData: []cwtypes.MetricDatum{
			{
				MetricName: aws.String("ScheduleAttempt"),
				Value:      aws.Float64(1),
				Unit:       cwtypes.StandardUnitCount,
				Dimensions: []cwtypes.Dimension{
					{
						Name:  aws.String("Result"),
						Value: aws.String(string(result)),
					},
				},
			},
		},
	}

	if _, err := m.client.PutMetricData(ctx, input); err != nil {
		m.logger.Error("failed to record schedule metric",
			"error", err.Error(),
			"result", string(result),
		)
	}
}

// RecordLeadTime emits how far ahead of delivery a notification was armed.
// Negative lead times (event already closer than the offset) are emitted
// as-is so the dashboard surfaces late scheduling.
func (m *CloudWatchMetrics) RecordLeadTime(ctx context.Context, lead time.Duration) {
	input := &cloudwatch.PutMetricDataInput{
		Namespace: aws.String(m.namespace),
		MetricData: []cwtypes.MetricDatum{
			{
				MetricName: aws.String("NotificationLeadTime"),
				Value:      aws.Float64(lead.Seconds()),
				Unit:       cwtypes.StandardUnitSeconds,
			},
		},
	}

	if _, err := m.client.PutMetricData(ctx, input); err != nil {
		m.logger.Error("failed to record lead time metric",
			"error", err.Error(),
			"lead_seconds", lead.Seconds(),
		)
	}
}
