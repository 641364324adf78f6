package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDateIgnoresTimePart(t *testing.T) {
	d, err := ParseDate("2024-01-31T23:30:00+05:30")
	require.NoError(t, err)
	assert.Equal(t, Date{Year: 2024, Month: time.January, Day: 31}, d)

	d, err = ParseDate("2024-01-31T00:00:00Z")
	require.NoError(t, err)
	assert.Equal(t, 31, d.Day)
}

func TestParseDateRejectsInvalid(t *testing.T) {
	for _, s := range []string{"", "2024-1-1", "2024-02-30", "2024-13-01", "abcd-01-01"} {
		_, err := ParseDate(s)
		assert.Error(t, err, s)
	}
}

func TestDateBetweenIsInclusive(t *testing.T) {
	start := Date{2024, time.January, 1}
	end := Date{2024, time.January, 31}
	assert.True(t, Date{2024, time.January, 31}.Between(start, end))
	assert.True(t, start.Between(start, end))
	assert.False(t, Date{2024, time.February, 1}.Between(start, end))
}

func TestEffectiveDatePrefersEndDate(t *testing.T) {
	j := Job{StartDate: "2024-01-10", EndDate: "2024-02-02"}
	d, err := j.EffectiveDate()
	require.NoError(t, err)
	assert.Equal(t, "2024-02-02", d.String())

	j.EndDate = ""
	d, err = j.EffectiveDate()
	require.NoError(t, err)
	assert.Equal(t, "2024-01-10", d.String())
}

func TestServiceLabelFallbacks(t *testing.T) {
	assert.Equal(t, "Wedding", Job{EventType: "Wedding", TypeOfWork: "Album"}.ServiceLabel())
	assert.Equal(t, "Album", Job{TypeOfWork: "Album"}.ServiceLabel())
	assert.Equal(t, "Service", Job{}.ServiceLabel())
}

func TestBalance(t *testing.T) {
	j := Job{TotalPrice: decimal.NewFromInt(10000), AmountPaid: decimal.NewFromInt(4000)}
	assert.True(t, j.Balance().Equal(decimal.NewFromInt(6000)))
}

func TestTemplateContentJSON(t *testing.T) {
	var c TemplateContent
	require.NoError(t, json.Unmarshal([]byte(`"hello"`), &c))
	assert.Equal(t, "hello", c.Text)

	require.NoError(t, json.Unmarshal([]byte(`{"PENDING":"p"}`), &c))
	assert.Equal(t, map[string]string{"PENDING": "p"}, c.Statuses)
	assert.Empty(t, c.Text)

	out, err := json.Marshal(StatusContent(map[string]string{"PARTIAL": "x"}))
	require.NoError(t, err)
	assert.JSONEq(t, `{"PARTIAL":"x"}`, string(out))

	assert.Error(t, json.Unmarshal([]byte(`12`), &c))
}

func TestTemplateValidate(t *testing.T) {
	assert.NoError(t, Template{Kind: KindSingle, Content: TextContent("hi")}.Validate())
	assert.Error(t, Template{Kind: KindSingle, Content: StatusContent(map[string]string{})}.Validate())
	assert.Error(t, Template{Kind: KindJobStatus, Content: TextContent("hi")}.Validate())
	assert.Error(t, Template{Kind: KindJobStatus, Content: StatusContent(map[string]string{"PARTIAL": "x"})}.Validate())
	assert.NoError(t, Template{Kind: KindPaymentStatus, Category: CategoryOther, Content: StatusContent(map[string]string{"PARTIAL": "x"})}.Validate())
	assert.Error(t, Template{Kind: "weekly", Content: TextContent("x")}.Validate())
}
