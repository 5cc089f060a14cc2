package queue

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tanaw/internal/config"
	"tanaw/internal/types"
)

type mockSQS struct {
	inputs   []*sqs.SendMessageInput
	failWith error
}

func (m *mockSQS) SendMessage(_ context.Context, params *sqs.SendMessageInput, _ ...func(*sqs.Options)) (*sqs.SendMessageOutput, error) {
	m.inputs = append(m.inputs, params)
	if m.failWith != nil {
		return nil, m.failWith
	}
	return &sqs.SendMessageOutput{}, nil
}

type stubClock struct {
	now time.Time
}

func (c stubClock) Now() time.Time { return c.now }

func newTestTrigger(client SQSSender) *PushTrigger {
	return NewPushTrigger(client,
		config.AWSConfig{PushQueueURL: "https://sqs.test/push"},
		stubClock{now: time.Date(2026, 8, 27, 10, 0, 0, 0, time.UTC)},
		slog.New(slog.DiscardHandler),
	)
}

func TestTriggerReportFanout(t *testing.T) {
	client := &mockSQS{}
	trigger := newTestTrigger(client)

	report := types.HazardReport{
		ID:          "r-1",
		DeviceID:    "d-1",
		HazardType:  "flood",
		Description: "Knee-deep water on the main road",
	}

	require.NoError(t, trigger.TriggerReportFanout(context.Background(), report))
	require.Len(t, client.inputs, 1)

	in := client.inputs[0]
	assert.Equal(t, "https://sqs.test/push", *in.QueueUrl)
	assert.Equal(t, "report_submitted", *in.MessageAttributes["reason"].StringValue)
	assert.Equal(t, types.PushKindReport, *in.MessageAttributes["kind"].StringValue)

	var msg types.PushMessage
	require.NoError(t, json.Unmarshal([]byte(*in.MessageBody), &msg))
	assert.Equal(t, "Hazard Reported: flood", msg.Title)
	assert.Equal(t, "Knee-deep water on the main road", msg.Body)
	assert.Equal(t, "r-1", msg.ReportID)
	assert.NotEmpty(t, msg.MessageID)
	assert.Equal(t, time.Date(2026, 8, 27, 10, 0, 0, 0, time.UTC), msg.SentAt)
}

func TestTriggerAlertFanout(t *testing.T) {
	client := &mockSQS{}
	trigger := newTestTrigger(client)

	intent := types.NotificationIntent{
		Title:          "Rain Alert!",
		Body:           "Expected Today, 2:00PM. Stay alert and take precautions.",
		Classification: types.Classification{Kind: types.IntentAlert, Weather: types.WeatherRain},
	}

	require.NoError(t, trigger.TriggerAlertFanout(context.Background(), intent))
	require.Len(t, client.inputs, 1)

	var msg types.PushMessage
	require.NoError(t, json.Unmarshal([]byte(*client.inputs[0].MessageBody), &msg))
	assert.Equal(t, types.PushKindAlert, msg.Kind)
	require.NotNil(t, msg.Classification)
	assert.Equal(t, types.IntentAlert, msg.Classification.Kind)
	assert.Equal(t, types.WeatherRain, msg.Classification.Weather)
}

func TestTriggerReportFanout_SendFailure(t *testing.T) {
	client := &mockSQS{failWith: errors.New("sqs unavailable")}
	trigger := newTestTrigger(client)

	err := trigger.TriggerReportFanout(context.Background(), types.HazardReport{ID: "r-2", HazardType: "fire"})

	require.Error(t, err)
	var appErr *types.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, types.ErrCodeUpstreamQueue, appErr.Code)
}
