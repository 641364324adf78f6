package report_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/auraknotphoto-afk/akmsincomenew/internal/domain"
	"github.com/auraknotphoto-afk/akmsincomenew/internal/report"
)

func date(s string) domain.Date {
	d, err := domain.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

func job(id string, cat domain.Category, start, end string, total, paid int64) domain.Job {
	return domain.Job{
		ID: id, Category: cat, StartDate: start, EndDate: end,
		TotalPrice: decimal.NewFromInt(total), AmountPaid: decimal.NewFromInt(paid),
		Status: domain.JobPending, PaymentStatus: domain.PaymentPending,
	}
}

func TestResolvePeriods(t *testing.T) {
	now := time.Date(2024, 2, 14, 12, 0, 0, 0, time.UTC)
	cases := []struct {
		period     report.Period
		start, end string
		label      string
	}{
		{report.ThisMonth, "2024-02-01", "2024-02-29", "This Month"},
		{report.LastMonth, "2024-01-01", "2024-01-31", "Last Month"},
		{report.ThisQuarter, "2024-01-01", "2024-03-31", "Q1 2024"},
		{report.LastQuarter, "2023-10-01", "2023-12-31", "Q4 2023"},
		{report.SixMonths, "2023-09-01", "2024-02-29", "Last 6 Months"},
		{report.ThisYear, "2024-01-01", "2024-12-31", "Year 2024"},
		{report.LastYear, "2023-01-01", "2023-12-31", "Year 2023"},
		{report.AllTime, "2000-01-01", "2034-12-31", "All Time"},
	}
	for _, tc := range cases {
		t.Run(string(tc.period), func(t *testing.T) {
			r, err := report.Resolve(tc.period, now, time.UTC, "", "")
			require.NoError(t, err)
			assert.Equal(t, tc.start, r.Start.String())
			assert.Equal(t, tc.end, r.End.String())
			assert.Equal(t, tc.label, r.Label)
		})
	}
}

func TestLastMonthCrossesYear(t *testing.T) {
	r, err := report.Resolve(report.LastMonth, time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC), time.UTC, "", "")
	require.NoError(t, err)
	assert.Equal(t, "2023-12-01", r.Start.String())
	assert.Equal(t, "2023-12-31", r.End.String())
}

func TestThisMonthIsStableWithinMonth(t *testing.T) {
	a, err := report.Resolve(report.ThisMonth, time.Date(2024, 3, 1, 0, 0, 1, 0, time.UTC), time.UTC, "", "")
	require.NoError(t, err)
	b, err := report.Resolve(report.ThisMonth, time.Date(2024, 3, 31, 23, 59, 59, 0, time.UTC), time.UTC, "", "")
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestResolveUsesLocalCalendar(t *testing.T) {
	kolkata := time.FixedZone("IST", 5*3600+1800)
	// 20:00 UTC on Jan 31 is already Feb 1 in India
	r, err := report.Resolve(report.ThisMonth, time.Date(2024, 1, 31, 20, 0, 0, 0, time.UTC), kolkata, "", "")
	require.NoError(t, err)
	assert.Equal(t, "2024-02-01", r.Start.String())
}

func TestResolveCustom(t *testing.T) {
	now := time.Now()
	r, err := report.Resolve(report.Custom, now, time.UTC, "2024-01-05", "2024-01-31")
	require.NoError(t, err)
	assert.Equal(t, "2024-01-05", r.Start.String())

	_, err = report.Resolve(report.Custom, now, time.UTC, "2024-02-01", "2024-01-31")
	assert.ErrorIs(t, err, report.ErrBadRange)
	_, err = report.Resolve(report.Custom, now, time.UTC, "", "2024-01-31")
	assert.ErrorIs(t, err, report.ErrBadRange)
	_, err = report.Resolve("fortnight", now, time.UTC, "", "")
	assert.ErrorIs(t, err, report.ErrUnknownPeriod)
}

func TestFilterIncludesBoundaryDay(t *testing.T) {
	r := report.Range{Start: date("2024-01-01"), End: date("2024-01-31")}
	jobs := []domain.Job{
		job("edge", domain.CategoryEditing, "2024-01-31", "", 1, 0),
		job("stamp", domain.CategoryEditing, "2024-01-31T23:30:00-05:00", "", 1, 0),
		job("ended-later", domain.CategoryEditing, "2024-01-20", "2024-02-02", 1, 0),
		job("ended-inside", domain.CategoryEditing, "2023-12-20", "2024-01-02", 1, 0),
		job("garbage", domain.CategoryEditing, "someday", "", 1, 0),
	}
	got := report.Filter(jobs, r)
	ids := make([]string, 0, len(got))
	for _, j := range got {
		ids = append(ids, j.ID)
	}
	assert.Equal(t, []string{"edge", "stamp", "ended-inside"}, ids)
}

func TestSummarizePendingEqualsIncomeMinusPaid(t *testing.T) {
	jobs := []domain.Job{
		job("a", domain.CategoryEditing, "2024-01-02", "", 10000, 4000),
		job("b", domain.CategoryExposing, "2024-01-03", "", 2500, 2500),
		job("c", domain.CategoryOther, "2024-01-04", "", 700, 0),
		job("d", domain.CategoryEditing, "2024-01-05", "", 300, 500),
	}
	jobs[1].Status = domain.JobCompleted
	jobs[1].PaymentStatus = domain.PaymentCompleted
	jobs[2].Status = domain.JobInProgress

	s := report.Summarize(jobs)
	assert.Equal(t, 4, s.Totals.Jobs)
	assert.True(t, s.Totals.Income.Equal(decimal.NewFromInt(13500)))
	assert.True(t, s.Totals.Paid.Equal(decimal.NewFromInt(7000)))

	sumBalances := decimal.Zero
	for _, j := range jobs {
		sumBalances = sumBalances.Add(j.Balance())
	}
	assert.True(t, s.Totals.Pending.Equal(s.Totals.Income.Sub(s.Totals.Paid)))
	assert.True(t, s.Totals.Pending.Equal(sumBalances))

	editing := s.Category(domain.CategoryEditing)
	assert.Equal(t, 2, editing.Jobs)
	assert.True(t, editing.Pending.Equal(decimal.NewFromInt(5800)))
	assert.Equal(t, report.StatusCounts{Pending: 2, InProgress: 1, Completed: 1}, s.Status)
	assert.Equal(t, report.PaymentCounts{Pending: 3, Completed: 1}, s.Payment)
}

func TestSummarizeEmptyKeepsCategories(t *testing.T) {
	s := report.Summarize(nil)
	require.Len(t, s.ByCategory, 3)
	assert.True(t, s.Totals.Pending.IsZero())
}

func TestMonthlyBreakdownDescending(t *testing.T) {
	jobs := []domain.Job{
		job("a", domain.CategoryEditing, "2023-12-30", "", 100, 0),
		job("b", domain.CategoryEditing, "2024-02-01", "", 200, 50),
		job("c", domain.CategoryOther, "2024-01-10", "2024-02-10", 300, 300),
		job("d", domain.CategoryOther, "bad", "", 999, 0),
	}
	m := report.MonthlyBreakdown(jobs)
	require.Len(t, m.Months, 2)
	assert.Equal(t, "Feb 2024", m.Months[0].Label)
	assert.Equal(t, 2, m.Months[0].Jobs)
	assert.True(t, m.Months[0].Pending.Equal(decimal.NewFromInt(150)))
	assert.Equal(t, "Dec 2023", m.Months[1].Label)
	assert.Equal(t, 3, m.Total.Jobs)
	assert.True(t, m.Total.Income.Equal(decimal.NewFromInt(600)))
}

func TestBuildReportFiltersCategory(t *testing.T) {
	r, err := report.Resolve(report.ThisYear, time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), time.UTC, "", "")
	require.NoError(t, err)
	jobs := []domain.Job{
		job("a", domain.CategoryEditing, "2024-01-02", "", 100, 0),
		job("b", domain.CategoryExposing, "2024-03-02", "", 200, 0),
		job("c", domain.CategoryEditing, "2023-03-02", "", 400, 0),
	}
	rep := report.BuildReport(jobs, r, domain.CategoryEditing)
	require.Len(t, rep.Jobs, 1)
	assert.Equal(t, "a", rep.Jobs[0].ID)
	assert.True(t, rep.Summary.Totals.Income.Equal(decimal.NewFromInt(100)))

	dash := report.BuildDashboard(jobs, r)
	assert.Equal(t, 2, dash.Summary.Totals.Jobs)
}
