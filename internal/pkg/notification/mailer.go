package notification

import (
	"context"
	"fmt"
	"html"

	"github.com/smartapplypro/backend/internal/pkg/env"
	"github.com/smartapplypro/backend/internal/pkg/mail"
)

// MailNotifier renders fulfillment notifications as HTML emails and delivers
// them over SMTP.
type MailNotifier struct {
	WebsiteURL   string
	SupportEmail string
}

// NewMailNotifierFromEnv builds the notifier with site links from the
// environment.
func NewMailNotifierFromEnv() *MailNotifier {
	return &MailNotifier{
		WebsiteURL:   env.GetEnv("WEBSITE_URL", "https://smartapplypro.com"),
		SupportEmail: env.GetEnv("SUPPORT_EMAIL", "support@smartapplypro.com"),
	}
}

func (m *MailNotifier) Notify(ctx context.Context, kind Kind, recipient string, data map[string]string) error {
	_ = ctx
	switch kind {
	case KindLicenseIssued:
		return mail.SendMail(recipient,
			"Your SmartApply License Key – Welcome to Smart Job Matching!",
			m.licenseIssuedBody(data))
	case KindTrialCreated:
		return mail.SendMail(recipient,
			"Welcome to SmartApply - Your Trial Account is Ready!",
			m.trialCreatedBody(data))
	case KindOrderPendingReview:
		return mail.SendMail(recipient,
			"Order Confirmation - SmartApply Pro",
			m.orderPendingBody(data))
	case KindRenewalReminder:
		return mail.SendMail(recipient,
			"SmartApply Pro License Renewal Reminder",
			m.renewalReminderBody(data))
	case KindContactMessage:
		return mail.SendMail(recipient,
			"Contact Form: "+data["subject"],
			m.contactMessageBody(data))
	default:
		return fmt.Errorf("unknown notification kind: %s", kind)
	}
}

func (m *MailNotifier) licenseIssuedBody(data map[string]string) string {
	return wrap(fmt.Sprintf(`
		<h1>Welcome to SmartApply!</h1>
		<p>Hi %s,</p>
		<p>Thank you for purchasing the SmartApply %s plan! Your payment has been processed successfully.</p>
		<p><strong>Your License Key:</strong></p>
		<div class="license-key">%s</div>
		<p><strong>How to activate your license:</strong></p>
		<ol>
			<li>Open the SmartApply Chrome extension</li>
			<li>Go to the Settings or Premium tab</li>
			<li>Enter your license key and click Verify</li>
		</ol>
		<p>Order number: %s</p>
		<p><a href="%s">Visit SmartApply Pro</a></p>`,
		html.EscapeString(data["customerName"]), data["planType"], data["licenseKey"], data["orderNumber"], m.WebsiteURL))
}

func (m *MailNotifier) trialCreatedBody(data map[string]string) string {
	return wrap(fmt.Sprintf(`
		<h1>Your Trial Account is Ready</h1>
		<p>Hi %s,</p>
		<p>Your SmartApply trial account has been created.</p>
		<p><strong>License Key:</strong></p>
		<div class="license-key">%s</div>
		<p><strong>Login credentials</strong> (shown only in this email):</p>
		<p>Username: <code>%s</code><br>Password: <code>%s</code></p>
		<p><a href="%s">Get started</a></p>`,
		html.EscapeString(data["customerName"]), data["licenseKey"], data["username"], data["password"], m.WebsiteURL))
}

func (m *MailNotifier) orderPendingBody(data map[string]string) string {
	return wrap(fmt.Sprintf(`
		<h1>We Received Your Order</h1>
		<p>Hi %s,</p>
		<p>Your %s order <strong>%s</strong> (%s %s via %s) has been received and will be
		reviewed within 24-48 hours. We will email your license key once the payment is confirmed.</p>`,
		html.EscapeString(data["customerName"]), data["planType"], data["orderNumber"],
		data["amount"], data["currency"], data["paymentMethod"]))
}

func (m *MailNotifier) renewalReminderBody(data map[string]string) string {
	return wrap(fmt.Sprintf(`
		<h1>License Renewal Reminder</h1>
		<p>Hi %s,</p>
		<p>Your SmartApply Pro license <code>%s</code> expires on %s.
		Renew now to keep your premium features active.</p>
		<p><a href="%s">Renew your license</a></p>`,
		html.EscapeString(data["customerName"]), data["licenseKey"], data["expiryDate"], m.WebsiteURL))
}

func (m *MailNotifier) contactMessageBody(data map[string]string) string {
	return wrap(fmt.Sprintf(`
		<h1>New Contact Form Submission</h1>
		<p><strong>From:</strong> %s (%s)</p>
		<p><strong>Subject:</strong> %s</p>
		<p><strong>Message:</strong></p>
		<p>%s</p>`,
		html.EscapeString(data["name"]), html.EscapeString(data["email"]),
		html.EscapeString(data["subject"]), html.EscapeString(data["message"])))
}

func wrap(content string) string {
	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<head>
	<meta charset="UTF-8">
	<style>
		body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; }
		.container { max-width: 600px; margin: 0 auto; padding: 20px; }
		.license-key { background: #fff; border: 2px solid #3b82f6; padding: 15px; margin: 20px 0; text-align: center; font-size: 18px; font-weight: bold; font-family: monospace; }
	</style>
</head>
<body>
	<div class="container">%s</div>
</body>
</html>`, content)
}
