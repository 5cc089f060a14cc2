package notify

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tanaw/internal/types"
)

type mockCloudWatch struct {
	inputs   []*cloudwatch.PutMetricDataInput
	failWith error
}

func (m *mockCloudWatch) PutMetricData(_ context.Context, params *cloudwatch.PutMetricDataInput, _ ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error) {
	m.inputs = append(m.inputs, params)
	if m.failWith != nil {
		return nil, m.failWith
	}
	return &cloudwatch.PutMetricDataOutput{}, nil
}

type nopLogger struct{}

func (nopLogger) Info(string, ...any)      {}
func (nopLogger) Error(string, ...any)     {}
func (nopLogger) Warn(string, ...any)      {}
func (nopLogger) With(...any) types.Logger { return nopLogger{} }

func TestCloudWatchMetrics_RecordScheduleOutcome(t *testing.T) {
	cw := &mockCloudWatch{}
	m := NewCloudWatchMetrics(cw, nopLogger{})

	m.RecordScheduleOutcome(context.Background(), MetricResultSuccess)

	require.Len(t, cw.inputs, 1)
	in := cw.inputs[0]
	assert.Equal(t, MetricNamespace, *in.Namespace)
	require.Len(t, in.MetricData, 1)
	assert.Equal(t, "ScheduleAttempt", *in.MetricData[0].MetricName)
	assert.Equal(t, float64(1), *in.MetricData[0].Value)
	require.Len(t, in.MetricData[0].Dimensions, 1)
	assert.Equal(t, "Result", *in.MetricData[0].Dimensions[0].Name)
	assert.Equal(t, "success", *in.MetricData[0].Dimensions[0].Value)
}

func TestCloudWatchMetrics_RecordLeadTime(t *testing.T) {
	cw := &mockCloudWatch{}
	m := NewCloudWatchMetrics(cw, nopLogger{})

	m.RecordLeadTime(context.Background(), 2*time.Hour)

	require.Len(t, cw.inputs, 1)
	in := cw.inputs[0]
	require.Len(t, in.MetricData, 1)
	assert.Equal(t, "NotificationLeadTime", *in.MetricData[0].MetricName)
	assert.Equal(t, float64(7200), *in.MetricData[0].Value)
}

func TestCloudWatchMetrics_EmissionFailureIsSwallowed(t *testing.T) {
	cw := &mockCloudWatch{failWith: errors.New("throttled")}
	m := NewCloudWatchMetrics(cw, nopLogger{})

	// Must not panic or propagate.
	m.RecordScheduleOutcome(context.Background(), MetricResultFailure)
	m.RecordLeadTime(context.Background(), time.Minute)
	assert.Len(t, cw.inputs, 2)
}
