package jobs

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestMailJobDeliversPayload(t *testing.T) {
	job := NewMailJob(SMTPConfig{Host: "127.0.0.1", Port: 1025, From: "no-reply@leasedesk.local"}, discardLogger(), nil)
	var gotAddr, gotFrom string
	var gotTo []string
	var gotMsg []byte
	job.send = func(addr, from string, to []string, msg []byte) error {
		gotAddr, gotFrom, gotTo, gotMsg = addr, from, to, msg
		return nil
	}

	task, err := NewSendEmailTask(SendEmailPayload{To: "tenant@example.com", Subject: "Hello", Body: "Hi"})
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), task))

	assert.Equal(t, "127.0.0.1:1025", gotAddr)
	assert.Equal(t, "no-reply@leasedesk.local", gotFrom)
	assert.Equal(t, []string{"tenant@example.com"}, gotTo)
	assert.Contains(t, string(gotMsg), "Subject: Hello")
}

func TestMailJobSkipsRetryOnBadPayload(t *testing.T) {
	job := NewMailJob(SMTPConfig{}, discardLogger(), nil)
	err := job.Handle(context.Background(), asynq.NewTask(TaskTypeSendEmail, []byte("{not json")))
	assert.ErrorIs(t, err, asynq.SkipRetry)
}

type stubExpirer struct {
	count int
	err   error
}

func (s stubExpirer) ExpireDue(ctx context.Context) (int, error) { return s.count, s.err }

func TestExpiryScanReportsFailures(t *testing.T) {
	boom := errors.New("db down")
	job := NewExpiryScanJob(stubExpirer{err: boom}, discardLogger(), nil)
	err := job.Handle(context.Background(), NewExpiryScanTask())
	assert.ErrorIs(t, err, boom)
}

func TestExpiryScanSucceeds(t *testing.T) {
	job := NewExpiryScanJob(stubExpirer{count: 3}, discardLogger(), nil)
	assert.NoError(t, job.Handle(context.Background(), NewExpiryScanTask()))
}
