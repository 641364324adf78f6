package templates

import "github.com/auraknotphoto-afk/akmsincomenew/internal/domain"

const defaultSingle = `Hi {customer_name},

This is a friendly reminder from *Aura Knot Photography* regarding your pending payment.

{service_icon} Service: {service_type}
📅 Date: {date}
💰 Total Amount: Rs.{total_amount}
✅ Amount Paid: Rs.{amount_paid}
⏳ *Balance Due: Rs.{balance}*

Please complete the payment at your earliest convenience.

Thank you for choosing us! 🙏

- Aura Knot Photography`

const defaultConsolidated = `Hi {customer_name},

This is a friendly reminder from *Aura Knot Photography* regarding your pending payments.

📝 *Pending Services ({count}):*
{jobs_list}
━━━━━━━━━━━━━━━
💵 *TOTAL BALANCE DUE: Rs.{total_balance}*

Please complete the payment at your earliest convenience.

Thank you for choosing us! 🙏

- Aura Knot Photography`

var categoryPresets = map[domain.Category]string{
	domain.CategoryEditing: `Hi {customer_name},

This is a reminder from *Aura Knot Photography* about your {service_type} (Editing).

{service_icon} Service: {service_type}
📅 Date: {date}
💰 Total Amount: Rs.{total_amount}
⏳ *Balance Due: Rs.{balance}*

Please complete payment or confirm details.

Thank you! - Aura Knot Photography`,
	domain.CategoryExposing: `Hi {customer_name},

Reminder from *Aura Knot Photography* for your {service_type} (Exposing).

{service_icon} Service: {service_type}
📅 Date: {date}
💰 Total Amount: Rs.{total_amount}
⏳ *Balance Due: Rs.{balance}*

Please get in touch to confirm the session.

Thank you! - Aura Knot Photography`,
	domain.CategoryOther: `Hi {customer_name},

This is about your payment for {service_type} (Other).

{service_icon} Service: {service_type}
📅 Date: {date}
💰 Total Amount: Rs.{total_amount}
⏳ *Balance Due: Rs.{balance}*

Please complete the payment when convenient.

Thank you! - Aura Knot Photography`,
}

var defaultJobStatus = map[string]string{
	string(domain.JobPending): `Hi {customer_name},

Your {service_type} job has been *received* and is currently *PENDING*.

📋 *Job Details:*
{service_icon} Service: {service_type}
📅 Date: {date}

We will start working on it soon and keep you updated.

Thank you for choosing *Aura Knot Photography*! 🙏`,
	string(domain.JobInProgress): `Hi {customer_name},

Great news! Your {service_type} is now *IN PROGRESS*.

📋 *Job Details:*
{service_icon} Service: {service_type}
📅 Date: {date}

Our team is working on it. We'll notify you once completed.

Thank you for your patience! 🙏

- Aura Knot Photography`,
	string(domain.JobCompleted): `Hi {customer_name},

🎉 Your {service_type} is now *COMPLETED*!

📋 *Job Details:*
{service_icon} Service: {service_type}
📅 Date: {date}

{balance_message}

Thank you for choosing *Aura Knot Photography*! 🙏

We hope you love the results! ❤️`,
}

var defaultPaymentStatus = map[string]string{
	string(domain.PaymentPending): `Hi {customer_name},

This is a reminder about your *PENDING PAYMENT*.

📋 *Payment Details:*
{service_icon} Service: {service_type}
📅 Date: {date}
💰 Total Amount: Rs.{total_amount}
⏳ *Balance Due: Rs.{balance}*

Please complete the payment at your earliest convenience.

Thank you! 🙏

- Aura Knot Photography`,
	string(domain.PaymentPartial): `Hi {customer_name},

Thank you for your partial payment! 🙏

📋 *Payment Details:*
{service_icon} Service: {service_type}
📅 Date: {date}
💰 Total Amount: Rs.{total_amount}
✅ Amount Paid: Rs.{amount_paid}
⏳ *Remaining Balance: Rs.{balance}*

Please clear the remaining balance when convenient.

Thank you for choosing *Aura Knot Photography*!`,
	string(domain.PaymentCompleted): `Hi {customer_name},

✅ *PAYMENT RECEIVED*

Thank you for completing your payment!

📋 *Payment Details:*
{service_icon} Service: {service_type}
📅 Date: {date}
💰 Total Amount: Rs.{total_amount}
✅ *Fully Paid*

We appreciate your trust in *Aura Knot Photography*! 🙏

Thank you for choosing us! ❤️`,
}

// Builtin returns the hard-coded content for kind. Status maps are copies.
func Builtin(kind domain.TemplateKind) domain.TemplateContent {
	switch kind {
	case domain.KindSingle:
		return domain.TextContent(defaultSingle)
	case domain.KindConsolidated:
		return domain.TextContent(defaultConsolidated)
	case domain.KindJobStatus:
		return domain.StatusContent(copyMap(defaultJobStatus))
	case domain.KindPaymentStatus:
		return domain.StatusContent(copyMap(defaultPaymentStatus))
	}
	return domain.TemplateContent{}
}

// Preset returns the suggested starting text for an override at (kind, category).
// Only single reminders have per-category presets; presets are never resolved
// implicitly.
func Preset(kind domain.TemplateKind, category domain.Category) domain.TemplateContent {
	if kind == domain.KindSingle {
		if text, ok := categoryPresets[category]; ok {
			return domain.TextContent(text)
		}
	}
	return Builtin(kind)
}

func copyMap(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
