package jobs

import (
	"context"
	"fmt"

	"github.com/leasedesk/leasedesk/internal/agreements"
	"github.com/leasedesk/leasedesk/internal/templates"
)

// Notifier turns agreement lifecycle events into queued mail tasks. It
// satisfies the agreements service's notifier port.
type Notifier struct {
	client *Client
}

// NewNotifier constructs a Notifier backed by the queue client.
func NewNotifier(client *Client) *Notifier {
	return &Notifier{client: client}
}

// AgreementNotarized queues the notarization notice for the tenant.
func (n *Notifier) AgreementNotarized(ctx context.Context, agreement agreements.Agreement) error {
	_, err := n.client.EnqueueSendEmail(ctx, SendEmailPayload{
		To:      agreement.TenantEmail,
		Subject: fmt.Sprintf("Agreement %s has been notarized", agreement.Number),
		Body: fmt.Sprintf("Dear %s,\n\nYour rental agreement %s was notarized and is now final.\nYou can download the document from the portal.\n",
			agreement.TenantName, agreement.Number),
	})
	return err
}

// AgreementExpired queues the expiry reminder for the tenant.
func (n *Notifier) AgreementExpired(ctx context.Context, agreement agreements.Agreement) error {
	_, err := n.client.EnqueueSendEmail(ctx, SendEmailPayload{
		To:      agreement.TenantEmail,
		Subject: fmt.Sprintf("Agreement %s has expired", agreement.Number),
		Body: fmt.Sprintf("Dear %s,\n\nYour rental agreement %s ended on %s and has been marked expired.\nPlease contact the office to renew.\n",
			agreement.TenantName, agreement.Number, templates.FormatDate(agreement.EndDate)),
	})
	return err
}
