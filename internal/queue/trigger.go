// Package queue provides the SQS producer that triggers push fan-out for
// hazard reports and weather alerts. The consumer that talks to the push
// provider is a separate worker; this package only publishes the trigger
// messages.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqsTypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/google/uuid"

	"tanaw/internal/config"
	"tanaw/internal/types"
)

// SQSSender abstracts the SQS SendMessage operation for testability.
// Production code uses the *sqs.Client from aws-sdk-go-v2.
type SQSSender interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

// PushTrigger publishes PushMessage payloads to the push fan-out queue.
type PushTrigger struct {
	client   SQSSender
	queueURL string
	clock    types.Clock
	logger   *slog.Logger
}

// NewPushTrigger creates a PushTrigger reading the queue URL from the AWS
// configuration.
func NewPushTrigger(client SQSSender, awsCfg config.AWSConfig, clock types.Clock, logger *slog.Logger) *PushTrigger {
	if clock == nil {
		clock = types.RealClock{}
	}
	return &PushTrigger{
		client:   client,
		queueURL: awsCfg.PushQueueURL,
		clock:    clock,
		logger:   logger,
	}
}

// TriggerReportFanout enqueues a push message announcing a newly submitted
// hazard report to other registered devices.
func (t *PushTrigger) TriggerReportFanout(ctx context.Context, report types.HazardReport) error {
	msg := types.PushMessage{
		MessageID: uuid.New().String(),
		Kind:      types.PushKindReport,
		Title:     fmt.Sprintf("Hazard Reported: %s", report.HazardType),
		Body:      report.Description,
		ReportID:  report.ID,
		SentAt:    t.clock.Now(),
	}
	return t.send(ctx, msg, "report_submitted")
}

// TriggerAlertFanout enqueues a push message for a weather alert so devices
// without an armed local delivery still receive it.
func (t *PushTrigger) TriggerAlertFanout(ctx context.Context, intent types.NotificationIntent) error {
	classification := intent.Classification
	msg := types.PushMessage{
		MessageID:      uuid.New().String(),
		Kind:           types.PushKindAlert,
		Title:          intent.Title,
		Body:           intent.Body,
		Classification: &classification,
		SentAt:         t.clock.Now(),
	}
	return t.send(ctx, msg, "weather_alert")
}

// send serializes the message and dispatches it to the push queue.
func (t *PushTrigger) send(ctx context.Context, msg types.PushMessage, reason string) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("queue: failed to marshal PushMessage: %w", err)
	}

	input := &sqs.SendMessageInput{
		QueueUrl:    aws.String(t.queueURL),
		MessageBody: aws.String(string(body)),
		MessageAttributes: map[string]sqsTypes.MessageAttributeValue{
			"reason": {
				DataType:    aws.String("String"),
				StringValue: aws.String(reason),
			},
			"kind": {
				DataType:    aws.String("String"),
				StringValue: aws.String(msg.Kind),
			},
		},
	}

	if _, err := t.client.SendMessage(ctx, input); err != nil {
		return types.NewAppError(types.ErrCodeUpstreamQueue,
			fmt.Sprintf("failed to send push message to %s", t.queueURL), err)
	}

	t.logger.InfoContext(ctx, "push message sent",
		"queue_url", t.queueURL,
		"message_id", msg.MessageID,
		"kind", msg.Kind,
		"reason", reason,
	)

	return nil
}
