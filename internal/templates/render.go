package templates

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"github.com/auraknotphoto-afk/akmsincomenew/internal/domain"
)

// Placeholder is one of the names a template may reference as {name}.
type Placeholder string

const (
	CustomerName   Placeholder = "customer_name"
	ServiceType    Placeholder = "service_type"
	ServiceIcon    Placeholder = "service_icon"
	Date           Placeholder = "date"
	TotalAmount    Placeholder = "total_amount"
	AmountPaid     Placeholder = "amount_paid"
	Balance        Placeholder = "balance"
	BalanceMessage Placeholder = "balance_message"
	Count          Placeholder = "count"
	JobsList       Placeholder = "jobs_list"
	TotalBalance   Placeholder = "total_balance"
)

var placeholders = map[string]Placeholder{}

func init() {
	for _, p := range []Placeholder{CustomerName, ServiceType, ServiceIcon, Date, TotalAmount, AmountPaid, Balance, BalanceMessage, Count, JobsList, TotalBalance} {
		placeholders[string(p)] = p
	}
}

// Values binds placeholders for one render.
type Values map[Placeholder]string

// Render substitutes bound placeholders in one left-to-right pass. Substituted
// text is never scanned again; unknown or unbound tokens are kept as written.
func Render(text string, v Values) string {
	var b strings.Builder
	b.Grow(len(text))
	for {
		open := strings.IndexByte(text, '{')
		if open < 0 {
			b.WriteString(text)
			return b.String()
		}
		end := strings.IndexByte(text[open+1:], '}')
		if end < 0 {
			b.WriteString(text)
			return b.String()
		}
		name := text[open+1 : open+1+end]
		b.WriteString(text[:open])
		if p, ok := placeholders[name]; ok {
			if val, bound := v[p]; bound {
				b.WriteString(val)
				text = text[open+end+2:]
				continue
			}
		}
		// keep the brace and rescan after it so "{{name}" still resolves the inner token
		b.WriteByte('{')
		text = text[open+1:]
	}
}

// Formatter renders amounts and dates for customer messages.
type Formatter struct {
	printer  *message.Printer
	Currency string
}

// NewFormatter formats amounts with the grouping rules of tag.
func NewFormatter(tag language.Tag, currency string) Formatter {
	if currency == "" {
		currency = "Rs."
	}
	return Formatter{printer: message.NewPrinter(tag), Currency: currency}
}

func (f Formatter) p() *message.Printer {
	if f.printer == nil {
		return message.NewPrinter(language.MustParse("en-IN"))
	}
	return f.printer
}

// Amount prints d with thousands separators and at most two decimals.
func (f Formatter) Amount(d decimal.Decimal) string {
	return f.p().Sprint(number.Decimal(d.Round(2).InexactFloat64(), number.MaxFractionDigits(2)))
}

// Date prints "D Mon YYYY"; unparseable input is returned unchanged.
func (f Formatter) Date(s string) string {
	d, err := domain.ParseDate(s)
	if err != nil {
		return s
	}
	return f.ShortDate(s) + " " + strconv.Itoa(d.Year)
}

// ShortDate prints "D Mon".
func (f Formatter) ShortDate(s string) string {
	d, err := domain.ParseDate(s)
	if err != nil {
		return s
	}
	return strconv.Itoa(d.Day) + " " + d.Month.String()[:3]
}
