package jobs

import (
	"context"
	"errors"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/require"
)

type memDeliverer struct {
	to, subject, code string
	err               error
}

func (d *memDeliverer) Deliver(_ context.Context, to, subject, code string) error {
	d.to, d.subject, d.code = to, subject, code
	return d.err
}

func TestSendCodeHandlerDeliversPayload(t *testing.T) {
	task, err := NewSendCodeTask(SendCodePayload{To: "a@b.test", Subject: "Verification Code", Code: "482913"})
	require.NoError(t, err)
	require.Equal(t, TaskTypeSendCode, task.Type())

	deliverer := &memDeliverer{}
	require.NoError(t, SendCodeHandler(deliverer)(context.Background(), task))
	require.Equal(t, "a@b.test", deliverer.to)
	require.Equal(t, "Verification Code", deliverer.subject)
	require.Equal(t, "482913", deliverer.code)
}

func TestSendCodeHandlerSkipsRetryOnBadPayload(t *testing.T) {
	task := asynq.NewTask(TaskTypeSendCode, []byte("not json"))

	err := SendCodeHandler(&memDeliverer{})(context.Background(), task)
	require.ErrorIs(t, err, asynq.SkipRetry)
}

func TestSendCodeHandlerPropagatesDeliveryError(t *testing.T) {
	task, err := NewSendCodeTask(SendCodePayload{To: "a@b.test", Code: "111111"})
	require.NoError(t, err)

	delivery := errors.New("smtp down")
	err = SendCodeHandler(&memDeliverer{err: delivery})(context.Background(), task)
	require.ErrorIs(t, err, delivery)
}
