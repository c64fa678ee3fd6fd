package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/smtp"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/leasedesk/leasedesk/internal/jobs"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskTypeSendEmail is the task type for sending transactional emails.
	TaskTypeSendEmail = "mail:send"
	// TaskTypeExpiryScan is the task type for the agreement expiry scan.
	TaskTypeExpiryScan = "agreement:expiry_scan"
)

// SendEmailPayload describes the information required to send an email.
type SendEmailPayload struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// NewSendEmailTask constructs an Asynq task.
func NewSendEmailTask(payload SendEmailPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeSendEmail, data), nil
}

// NewExpiryScanTask constructs the periodic expiry scan task.
func NewExpiryScanTask() *asynq.Task {
	return asynq.NewTask(TaskTypeExpiryScan, nil)
}

// SMTPConfig holds mail relay settings.
type SMTPConfig struct {
	Host string
	Port int
	From string
}

// MailJob delivers queued transactional emails over SMTP.
type MailJob struct {
	cfg     SMTPConfig
	logger  *slog.Logger
	metrics *jobmetrics.Metrics
	send    func(addr, from string, to []string, msg []byte) error
}

// NewMailJob initialises the mail delivery handler.
func NewMailJob(cfg SMTPConfig, logger *slog.Logger, metrics *jobmetrics.Metrics) *MailJob {
	return &MailJob{
		cfg:     cfg,
		logger:  logger,
		metrics: metrics,
		send: func(addr, from string, to []string, msg []byte) error {
			return smtp.SendMail(addr, nil, from, to, msg)
		},
	}
}

// Handle processes TaskTypeSendEmail tasks.
func (j *MailJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil {
		return errors.New("mail job: handler not configured")
	}
	var payload SendEmailPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	if payload.To == "" {
		return asynq.SkipRetry
	}

	tracker := j.metrics.Track(TaskTypeSendEmail)
	addr := fmt.Sprintf("%s:%d", j.cfg.Host, j.cfg.Port)
	msg := []byte("From: " + j.cfg.From + "\r\n" +
		"To: " + payload.To + "\r\n" +
		"Subject: " + payload.Subject + "\r\n" +
		"\r\n" + payload.Body + "\r\n")
	err := j.send(addr, j.cfg.From, []string{payload.To}, msg)
	j.metrics.RecordMail(err)
	if err != nil {
		j.logger.Warn("mail delivery failed", slog.String("to", payload.To), slog.Any("error", err))
		return tracker.End(err)
	}
	j.logger.Info("mail sent", slog.String("to", payload.To), slog.String("subject", payload.Subject))
	return tracker.End(nil)
}
