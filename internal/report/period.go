// Package report folds job lists into the dashboard and report views.
// Everything here is pure: callers fetch the jobs and pass in the clock.
package report

import (
	"errors"
	"fmt"
	"time"

	"github.com/auraknotphoto-afk/akmsincomenew/internal/domain"
)

type Period string

const (
	ThisMonth   Period = "this_month"
	LastMonth   Period = "last_month"
	ThisQuarter Period = "this_quarter"
	LastQuarter Period = "last_quarter"
	SixMonths   Period = "six_months"
	ThisYear    Period = "this_year"
	LastYear    Period = "last_year"
	AllTime     Period = "all_time"
	Custom      Period = "custom"
)

var Periods = []Period{ThisMonth, LastMonth, ThisQuarter, LastQuarter, SixMonths, ThisYear, LastYear, AllTime, Custom}

var (
	ErrUnknownPeriod = errors.New("unknown period")
	ErrBadRange      = errors.New("invalid custom range")
)

// Range is an inclusive calendar-date interval.
type Range struct {
	Period Period      `json:"period"`
	Start  domain.Date `json:"start"`
	End    domain.Date `json:"end"`
	Label  string      `json:"label"`
}

// Contains reports whether d lies in the range, bounds included.
func (r Range) Contains(d domain.Date) bool {
	return d.Between(r.Start, r.End)
}

// Resolve maps a period token to its date range as seen from now in loc. start
// and end are only read for Custom. An empty token means ThisMonth.
func Resolve(p Period, now time.Time, loc *time.Location, start, end string) (Range, error) {
	if loc == nil {
		loc = time.Local
	}
	now = now.In(loc)
	y, m := now.Year(), now.Month()
	q := (int(m) - 1) / 3
	first := func(year int, month time.Month) domain.Date {
		return domain.DateOf(time.Date(year, month, 1, 0, 0, 0, 0, loc))
	}
	// day 0 of the following month normalises to the last day of month
	last := func(year int, month time.Month) domain.Date {
		return domain.DateOf(time.Date(year, month+1, 0, 0, 0, 0, 0, loc))
	}

	switch p {
	case ThisMonth, "":
		return Range{Period: ThisMonth, Start: first(y, m), End: last(y, m), Label: "This Month"}, nil
	case LastMonth:
		return Range{Period: p, Start: first(y, m-1), End: last(y, m-1), Label: "Last Month"}, nil
	case ThisQuarter:
		qm := time.Month(q*3 + 1)
		return Range{Period: p, Start: first(y, qm), End: last(y, qm+2), Label: fmt.Sprintf("Q%d %d", q+1, y)}, nil
	case LastQuarter:
		lq, ly := q-1, y
		if q == 0 {
			lq, ly = 3, y-1
		}
		qm := time.Month(lq*3 + 1)
		return Range{Period: p, Start: first(ly, qm), End: last(ly, qm+2), Label: fmt.Sprintf("Q%d %d", lq+1, ly)}, nil
	case SixMonths:
		return Range{Period: p, Start: first(y, m-5), End: last(y, m), Label: "Last 6 Months"}, nil
	case ThisYear:
		return Range{Period: p, Start: first(y, time.January), End: last(y, time.December), Label: fmt.Sprintf("Year %d", y)}, nil
	case LastYear:
		return Range{Period: p, Start: first(y-1, time.January), End: last(y-1, time.December), Label: fmt.Sprintf("Year %d", y-1)}, nil
	case AllTime:
		return Range{Period: p, Start: first(2000, time.January), End: last(y+10, time.December), Label: "All Time"}, nil
	case Custom:
		s, err := domain.ParseDate(start)
		if err != nil {
			return Range{}, fmt.Errorf("%w: start: %v", ErrBadRange, err)
		}
		e, err := domain.ParseDate(end)
		if err != nil {
			return Range{}, fmt.Errorf("%w: end: %v", ErrBadRange, err)
		}
		if s.After(e) {
			return Range{}, fmt.Errorf("%w: start %s is after end %s", ErrBadRange, s, e)
		}
		return Range{Period: p, Start: s, End: e, Label: s.String() + " to " + e.String()}, nil
	}
	return Range{}, fmt.Errorf("%w %q", ErrUnknownPeriod, p)
}

// Filter keeps jobs whose effective date falls in r. Jobs without a usable date are dropped.
func Filter(jobs []domain.Job, r Range) []domain.Job {
	out := make([]domain.Job, 0, len(jobs))
	for _, j := range jobs {
		d, err := j.EffectiveDate()
		if err != nil {
			continue
		}
		if r.Contains(d) {
			out = append(out, j)
		}
	}
	return out
}
