package templates

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/ttacon/libphonenumber"

	"github.com/auraknotphoto-afk/akmsincomenew/internal/domain"
)

// Icon is the emoji shown next to a service of category c.
func Icon(c domain.Category) string {
	switch domain.Category(strings.ToUpper(string(c))) {
	case domain.CategoryEditing:
		return "✨"
	case domain.CategoryExposing:
		return "📷"
	case domain.CategoryOther:
		return "📋"
	}
	return "📌"
}

// Message is a rendered customer message and its click-to-chat link.
type Message struct {
	Text  string `json:"text"`
	Link  string `json:"link,omitempty"`
	Phone string `json:"phone,omitempty"`
	Scope Scope  `json:"scope"`
}

// Composer turns jobs into customer messages.
type Composer struct {
	Resolver    Resolver
	Format      Formatter
	Region      string
	CountryCode string
}

// JobValues binds the per-job placeholders.
func (c Composer) JobValues(j domain.Job) Values {
	balance := j.Balance()
	v := Values{
		CustomerName: j.CustomerName,
		ServiceType:  j.ServiceLabel(),
		ServiceIcon:  Icon(j.Category),
		Date:         c.Format.Date(j.StartDate),
		TotalAmount:  c.Format.Amount(j.TotalPrice),
		AmountPaid:   c.Format.Amount(j.AmountPaid),
		Balance:      c.Format.Amount(balance),
	}
	if balance.IsPositive() {
		v[BalanceMessage] = "💰 Pending Balance: " + c.currency() + c.Format.Amount(balance)
	} else {
		v[BalanceMessage] = "✅ All payments are complete."
	}
	return v
}

func (c Composer) currency() string {
	if c.Format.Currency == "" {
		return "Rs."
	}
	return c.Format.Currency
}

// Single renders the payment reminder for one job.
func (c Composer) Single(ctx context.Context, j domain.Job) (Message, error) {
	resolved, err := c.Resolver.Resolve(ctx, domain.KindSingle, j.Category)
	if err != nil {
		return Message{}, err
	}
	return c.message(resolved.Content.Text, c.JobValues(j), j.CustomerPhone, resolved.Scope), nil
}

// Status renders the job-status or payment-status message for status.
func (c Composer) Status(ctx context.Context, kind domain.TemplateKind, status string, j domain.Job) (Message, error) {
	if !kind.IsStatusSet() {
		return Message{}, fmt.Errorf("%s is not a status template kind", kind)
	}
	resolved, err := c.Resolver.Resolve(ctx, kind, j.Category)
	if err != nil {
		return Message{}, err
	}
	text, err := resolved.Text(status)
	if err != nil {
		return Message{}, err
	}
	return c.message(text, c.JobValues(j), j.CustomerPhone, resolved.Scope), nil
}

// ConsolidatedItems lists jobs in the given order and sums their balances.
func (c Composer) ConsolidatedItems(jobs []domain.Job) (string, decimal.Decimal) {
	items := make([]string, 0, len(jobs))
	total := decimal.Zero
	for i, j := range jobs {
		balance := j.Balance()
		total = total.Add(balance)
		items = append(items, fmt.Sprintf("%d. %s %s (%s)\n   Balance: %s%s",
			i+1, Icon(j.Category), j.ServiceLabel(), c.Format.ShortDate(j.StartDate), c.currency(), c.Format.Amount(balance)))
	}
	return strings.Join(items, "\n\n"), total
}

// Consolidated renders one reminder covering every job given.
func (c Composer) Consolidated(ctx context.Context, customerName, phone string, jobs []domain.Job) (Message, decimal.Decimal, error) {
	resolved, err := c.Resolver.Resolve(ctx, domain.KindConsolidated, "")
	if err != nil {
		return Message{}, decimal.Zero, err
	}
	list, total := c.ConsolidatedItems(jobs)
	v := Values{
		CustomerName: customerName,
		Count:        strconv.Itoa(len(jobs)),
		JobsList:     list,
		TotalBalance: c.Format.Amount(total),
	}
	return c.message(resolved.Content.Text, v, phone, resolved.Scope), total, nil
}

func (c Composer) message(text string, v Values, phone string, scope Scope) Message {
	m := Message{Text: Render(text, v), Scope: scope}
	if strings.TrimSpace(phone) != "" {
		m.Phone = c.NormalizePhone(phone)
		m.Link = WhatsAppLink(m.Phone, m.Text)
	}
	return m
}

// NormalizePhone returns the international number as digits only. Numbers the
// phone library cannot validate get the default country code prefixed unless
// they already carry one.
func (c Composer) NormalizePhone(phone string) string {
	region := c.Region
	if region == "" {
		region = "IN"
	}
	if num, err := libphonenumber.Parse(phone, region); err == nil && libphonenumber.IsValidNumber(num) {
		return strings.TrimPrefix(libphonenumber.Format(num, libphonenumber.E164), "+")
	}
	cc := c.CountryCode
	if cc == "" {
		cc = strconv.Itoa(libphonenumber.GetCountryCodeForRegion(region))
	}
	clean := strings.NewReplacer(" ", "", "-", "").Replace(phone)
	if !strings.HasPrefix(clean, "+") && !strings.HasPrefix(clean, cc) {
		clean = cc + clean
	}
	return domain.Digits(clean)
}

// WhatsAppLink builds the wa.me click-to-chat URL for digits.
func WhatsAppLink(digits, text string) string {
	return "https://wa.me/" + digits + "?text=" + strings.ReplaceAll(url.QueryEscape(text), "+", "%20")
}
