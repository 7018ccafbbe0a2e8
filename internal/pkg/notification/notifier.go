package notification

import (
	"context"
	"log"
)

// Kind identifies a fulfillment milestone that triggers a templated message.
type Kind string

const (
	KindLicenseIssued      Kind = "license_issued"
	KindTrialCreated       Kind = "trial_created"
	KindOrderPendingReview Kind = "order_pending_review"
	KindRenewalReminder    Kind = "renewal_reminder"
	KindContactMessage     Kind = "contact_message"
)

// Notifier delivers a templated message for a fulfillment milestone. The
// pipeline only guarantees when this is invoked and with what data; rendering
// and delivery mechanics live behind this interface.
type Notifier interface {
	Notify(ctx context.Context, kind Kind, recipient string, data map[string]string) error
}

// Dispatch fires a notification in the background. Delivery failure is logged
// and never escalates to the caller; fulfillment success is independent of
// email deliverability.
func Dispatch(n Notifier, kind Kind, recipient string, data map[string]string) {
	if n == nil {
		return
	}
	go func() {
		if err := n.Notify(context.Background(), kind, recipient, data); err != nil {
			log.Printf("notification %s to %s failed: %v", kind, recipient, err)
		}
	}()
}
