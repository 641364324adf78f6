package report

import (
	"sort"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/auraknotphoto-afk/akmsincomenew/internal/domain"
)

// Totals are the money sums of a job set. Pending is Income - Paid.
type Totals struct {
	Jobs    int             `json:"jobs"`
	Income  decimal.Decimal `json:"income"`
	Paid    decimal.Decimal `json:"paid"`
	Pending decimal.Decimal `json:"pending"`
}

func (t *Totals) add(j domain.Job) {
	t.Jobs++
	t.Income = t.Income.Add(j.TotalPrice)
	t.Paid = t.Paid.Add(j.AmountPaid)
	t.Pending = t.Income.Sub(t.Paid)
}

func newTotals() Totals {
	return Totals{Income: decimal.Zero, Paid: decimal.Zero, Pending: decimal.Zero}
}

type CategoryTotals struct {
	Category domain.Category `json:"category"`
	Totals
}

type StatusCounts struct {
	Pending    int `json:"pending"`
	InProgress int `json:"in_progress"`
	Completed  int `json:"completed"`
}

type PaymentCounts struct {
	Pending   int `json:"pending"`
	Partial   int `json:"partial"`
	Completed int `json:"completed"`
}

// Summary is the fold shown on the dashboard.
type Summary struct {
	Totals     Totals           `json:"totals"`
	ByCategory []CategoryTotals `json:"by_category"`
	Status     StatusCounts     `json:"status"`
	Payment    PaymentCounts    `json:"payment"`
}

// Category returns the totals for c.
func (s Summary) Category(c domain.Category) Totals {
	for _, ct := range s.ByCategory {
		if ct.Category == c {
			return ct.Totals
		}
	}
	return newTotals()
}

// Summarize folds jobs into overall and per-category totals plus status counts.
// Every known category is present even when it has no jobs.
func Summarize(jobs []domain.Job) Summary {
	s := Summary{Totals: newTotals()}
	idx := make(map[domain.Category]int, len(domain.Categories))
	for i, c := range domain.Categories {
		s.ByCategory = append(s.ByCategory, CategoryTotals{Category: c, Totals: newTotals()})
		idx[c] = i
	}
	for _, j := range jobs {
		s.Totals.add(j)
		if i, ok := idx[j.Category]; ok {
			s.ByCategory[i].add(j)
		}
		switch j.Status {
		case domain.JobPending:
			s.Status.Pending++
		case domain.JobInProgress:
			s.Status.InProgress++
		case domain.JobCompleted:
			s.Status.Completed++
		}
		switch j.PaymentStatus {
		case domain.PaymentPending:
			s.Payment.Pending++
		case domain.PaymentPartial:
			s.Payment.Partial++
		case domain.PaymentCompleted:
			s.Payment.Completed++
		}
	}
	return s
}

// MonthTotals is one calendar month of a monthly breakdown.
type MonthTotals struct {
	Year  int        `json:"year"`
	Month time.Month `json:"month"`
	Label string     `json:"label"`
	Totals
}

// Monthly is the per-month breakdown, newest month first, with its grand total.
type Monthly struct {
	Months []MonthTotals `json:"months"`
	Total  Totals        `json:"total"`
}

// MonthlyBreakdown buckets jobs by the year and month of their effective date.
// Jobs without a usable date are left out of both the buckets and the total.
func MonthlyBreakdown(jobs []domain.Job) Monthly {
	type key struct {
		y int
		m time.Month
	}
	buckets := map[key]*MonthTotals{}
	total := newTotals()
	for _, j := range jobs {
		d, err := j.EffectiveDate()
		if err != nil {
			continue
		}
		k := key{d.Year, d.Month}
		b, ok := buckets[k]
		if !ok {
			b = &MonthTotals{Year: d.Year, Month: d.Month, Label: d.Month.String()[:3] + " " + strconv.Itoa(d.Year), Totals: newTotals()}
			buckets[k] = b
		}
		b.add(j)
		total.add(j)
	}
	out := Monthly{Months: make([]MonthTotals, 0, len(buckets)), Total: total}
	for _, b := range buckets {
		out.Months = append(out.Months, *b)
	}
	sort.Slice(out.Months, func(a, b int) bool {
		if out.Months[a].Year != out.Months[b].Year {
			return out.Months[a].Year > out.Months[b].Year
		}
		return out.Months[a].Month > out.Months[b].Month
	})
	return out
}

// Dashboard is the summary of one period.
type Dashboard struct {
	Range   Range   `json:"range"`
	Summary Summary `json:"summary"`
}

// Report adds the monthly breakdown and the matching jobs to a period summary.
type Report struct {
	Range    Range           `json:"range"`
	Category domain.Category `json:"category,omitempty"`
	Summary  Summary         `json:"summary"`
	Monthly  Monthly         `json:"monthly"`
	Jobs     []domain.Job    `json:"jobs"`
}

func BuildDashboard(jobs []domain.Job, r Range) Dashboard {
	return Dashboard{Range: r, Summary: Summarize(Filter(jobs, r))}
}

// BuildReport filters jobs to r and, when category is set, to that category.
func BuildReport(jobs []domain.Job, r Range, category domain.Category) Report {
	in := Filter(jobs, r)
	if category != "" {
		kept := in[:0]
		for _, j := range in {
			if j.Category == category {
				kept = append(kept, j)
			}
		}
		in = kept
	}
	return Report{Range: r, Category: category, Summary: Summarize(in), Monthly: MonthlyBreakdown(in), Jobs: in}
}
