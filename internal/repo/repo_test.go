package repo_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/auraknotphoto-afk/akmsincomenew/internal/db"
	"github.com/auraknotphoto-afk/akmsincomenew/internal/domain"
	"github.com/auraknotphoto-afk/akmsincomenew/internal/events"
	"github.com/auraknotphoto-afk/akmsincomenew/internal/migrate"
	"github.com/auraknotphoto-afk/akmsincomenew/internal/repo"
)

func openRepo(t *testing.T) repo.Repo {
	t.Helper()
	conn, err := db.Open(db.Config{Workspace: t.TempDir()})
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	require.NoError(t, migrate.Migrate(conn))
	return repo.Repo{DB: conn}
}

func sampleJob(id, created string) domain.Job {
	cams := 2
	rate := decimal.NewFromInt(1500)
	return domain.Job{
		ID:              id,
		UserID:          "owner-1",
		Category:        domain.CategoryExposing,
		CustomerName:    "Asha",
		CustomerPhone:   "98765 43210",
		EventType:       "Wedding",
		NumberOfCameras: &cams,
		RatePerHour:     &rate,
		StartDate:       "2024-01-31",
		TotalPrice:      decimal.NewFromInt(10000),
		AmountPaid:      decimal.RequireFromString("4000.50"),
		PaymentStatus:   domain.PaymentPartial,
		Status:          domain.JobPending,
		CreatedAt:       created,
		UpdatedAt:       created,
	}
}

func TestJobRoundTrip(t *testing.T) {
	r := openRepo(t)
	ctx := context.Background()
	in := sampleJob("job-1", "2024-01-01T10:00:00.000Z")
	require.NoError(t, r.InsertJob(ctx, r.DB, in))

	got, err := r.GetJob(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, in.CustomerName, got.CustomerName)
	assert.True(t, in.AmountPaid.Equal(got.AmountPaid))
	assert.True(t, in.RatePerHour.Equal(*got.RatePerHour))
	assert.Equal(t, 2, *got.NumberOfCameras)
	assert.Nil(t, got.DurationHours)
	assert.Empty(t, got.EndDate)

	got.Notes = "album delivered"
	got.AmountPaid = decimal.NewFromInt(10000)
	require.NoError(t, r.UpdateJob(ctx, r.DB, got))
	again, err := r.GetJob(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, "album delivered", again.Notes)
	assert.True(t, again.Balance().IsZero())

	require.NoError(t, r.DeleteJob(ctx, r.DB, "job-1"))
	_, err = r.GetJob(ctx, "job-1")
	assert.ErrorIs(t, err, repo.ErrNotFound)
	assert.ErrorIs(t, r.DeleteJob(ctx, r.DB, "job-1"), repo.ErrNotFound)
}

func TestListJobsNewestFirstAndFiltered(t *testing.T) {
	r := openRepo(t)
	ctx := context.Background()
	a := sampleJob("a", "2024-01-01T10:00:00.000Z")
	b := sampleJob("b", "2024-03-01T10:00:00.000Z")
	b.Category = domain.CategoryEditing
	c := sampleJob("c", "2024-02-01T10:00:00.000Z")
	c.UserID = "someone-else"
	for _, j := range []domain.Job{a, b, c} {
		require.NoError(t, r.InsertJob(ctx, r.DB, j))
	}

	all, err := r.ListJobs(ctx, repo.JobFilters{UserID: "owner-1"})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "b", all[0].ID)
	assert.Equal(t, "a", all[1].ID)

	editing, err := r.ListJobs(ctx, repo.JobFilters{UserID: "owner-1", Category: domain.CategoryEditing})
	require.NoError(t, err)
	require.Len(t, editing, 1)
	assert.Equal(t, "b", editing[0].ID)
}

func TestUpsertJobReplaces(t *testing.T) {
	r := openRepo(t)
	ctx := context.Background()
	j := sampleJob("a", "2024-01-01T10:00:00.000Z")
	require.NoError(t, r.UpsertJob(ctx, r.DB, j))
	j.CustomerName = "Asha K"
	require.NoError(t, r.UpsertJob(ctx, r.DB, j))
	got, err := r.GetJob(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "Asha K", got.CustomerName)
	n, err := r.CountJobs(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestTemplateUpsertPerScope(t *testing.T) {
	r := openRepo(t)
	ctx := context.Background()
	global := domain.Template{Kind: domain.KindSingle, Content: domain.TextContent("global"), UpdatedAt: "2024-01-01T00:00:00.000Z"}
	editing := domain.Template{Kind: domain.KindSingle, Category: domain.CategoryEditing, Content: domain.TextContent("editing"), UpdatedAt: "2024-01-01T00:00:00.000Z"}
	require.NoError(t, r.UpsertTemplate(ctx, r.DB, global))
	require.NoError(t, r.UpsertTemplate(ctx, r.DB, editing))
	editing.Content = domain.TextContent("editing v2")
	require.NoError(t, r.UpsertTemplate(ctx, r.DB, editing))

	got, err := r.GetTemplate(ctx, domain.KindSingle, "")
	require.NoError(t, err)
	assert.Equal(t, "global", got.Content.Text)
	got, err = r.GetTemplate(ctx, domain.KindSingle, domain.CategoryEditing)
	require.NoError(t, err)
	assert.Equal(t, "editing v2", got.Content.Text)
	_, err = r.GetTemplate(ctx, domain.KindSingle, domain.CategoryOther)
	assert.ErrorIs(t, err, repo.ErrNotFound)

	statuses := domain.Template{Kind: domain.KindJobStatus, Content: domain.StatusContent(map[string]string{"PENDING": "p"}), UpdatedAt: "2024-01-01T00:00:00.000Z"}
	require.NoError(t, r.UpsertTemplate(ctx, r.DB, statuses))
	list, err := r.ListTemplates(ctx, domain.KindJobStatus)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "p", list[0].Content.Statuses["PENDING"])

	require.NoError(t, r.DeleteTemplate(ctx, r.DB, domain.KindSingle, ""))
	all, err := r.ListTemplates(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func enqueue(t *testing.T, r repo.Repo, w events.Writer, in events.Intent) int64 {
	t.Helper()
	ctx := context.Background()
	tx, err := r.DB.BeginTx(ctx, nil)
	require.NoError(t, err)
	defer func(tx *sql.Tx) { _ = tx.Rollback() }(tx)
	id, err := w.Enqueue(ctx, tx, in)
	require.NoError(t, err)
	require.NoError(t, tx.Commit())
	return id
}

func TestOutboxCoalescesAndSchedules(t *testing.T) {
	r := openRepo(t)
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	w := events.Writer{DB: r.DB, Now: func() time.Time { return now }}

	enqueue(t, r, w, events.Intent{Entity: domain.EntityJob, EntityKey: "a", Op: domain.OpUpsert, Payload: map[string]string{"id": "a"}})
	delID := enqueue(t, r, w, events.Intent{Entity: domain.EntityJob, EntityKey: "a", Op: domain.OpDelete})
	enqueue(t, r, w, events.Intent{Entity: domain.EntityJob, EntityKey: "b", Op: domain.OpUpsert})

	due, err := r.DueOutbox(ctx, domain.Timestamp(now), 10)
	require.NoError(t, err)
	require.Len(t, due, 2)
	assert.Equal(t, delID, due[0].ID)
	assert.Equal(t, domain.OpDelete, due[0].Op)

	next := now.Add(time.Minute)
	require.NoError(t, r.MarkOutboxFailed(ctx, due[1].ID, 1, domain.Timestamp(next), "boom", false, domain.Timestamp(now)))
	due, err = r.DueOutbox(ctx, domain.Timestamp(now), 10)
	require.NoError(t, err)
	require.Len(t, due, 1)

	status, err := r.OutboxSyncStatus(ctx, domain.EntityJob)
	require.NoError(t, err)
	assert.Equal(t, domain.SyncPending, status["a"])
	assert.Equal(t, domain.SyncFailed, status["b"])

	require.NoError(t, r.MarkOutboxFailed(ctx, delID, 5, domain.Timestamp(next), "gone", true, domain.Timestamp(now)))
	counts, err := r.OutboxCounts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, counts[domain.OutboxDead])
	assert.Equal(t, 1, counts[domain.OutboxPending])

	n, err := r.RequeueDead(ctx, domain.Timestamp(now))
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	require.NoError(t, r.DeleteOutbox(ctx, delID))
	left, err := r.ListOutbox(ctx, "", 0)
	require.NoError(t, err)
	require.Len(t, left, 1)
	assert.Equal(t, "b", left[0].EntityKey)
}
