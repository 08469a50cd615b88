// Package jobs runs background work over Asynq: verification-code email
// delivery is enqueued by the user service and consumed by cmd/worker.
package jobs

import (
	"context"
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskTypeSendCode is the task type for delivering verification codes.
	TaskTypeSendCode = "email:send_code"
)

// SendCodePayload describes a verification-code delivery.
type SendCodePayload struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Code    string `json:"code"`
}

// NewSendCodeTask constructs an Asynq task.
func NewSendCodeTask(payload SendCodePayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeSendCode, data), nil
}

// CodeDeliverer performs the actual delivery, normally over SMTP.
type CodeDeliverer interface {
	Deliver(ctx context.Context, to, subject, code string) error
}

// SendCodeHandler returns the Asynq handler for TaskTypeSendCode.
func SendCodeHandler(deliverer CodeDeliverer) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var payload SendCodePayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
		return deliverer.Deliver(ctx, payload.To, payload.Subject, payload.Code)
	}
}
