package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/auraknotphoto-afk/akmsincomenew/internal/db"
	"github.com/auraknotphoto-afk/akmsincomenew/internal/domain"
	"github.com/auraknotphoto-afk/akmsincomenew/internal/events"
	"github.com/auraknotphoto-afk/akmsincomenew/internal/migrate"
	"github.com/auraknotphoto-afk/akmsincomenew/internal/mirror"
	"github.com/auraknotphoto-afk/akmsincomenew/internal/remote/remotetest"
	"github.com/auraknotphoto-afk/akmsincomenew/internal/repo"
	"github.com/auraknotphoto-afk/akmsincomenew/internal/store"
)

type fixture struct {
	repo      repo.Repo
	fake      *remotetest.Fake
	syncer    *mirror.Syncer
	jobs      store.Jobs
	templates store.Templates
	now       time.Time
}

func setup(t *testing.T, withRemote bool) *fixture {
	t.Helper()
	conn, err := db.Open(db.Config{Workspace: t.TempDir()})
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	require.NoError(t, migrate.Migrate(conn))

	f := &fixture{repo: repo.Repo{DB: conn}, now: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)}
	clock := func() time.Time {
		f.now = f.now.Add(time.Millisecond)
		return f.now
	}
	w := events.Writer{DB: conn, Now: clock}
	f.jobs = store.Jobs{Repo: f.repo, Events: w, Now: clock}
	f.templates = store.Templates{Repo: f.repo, Events: w, Now: clock}
	if withRemote {
		f.fake = remotetest.New()
		f.syncer = &mirror.Syncer{Repo: f.repo, Remote: f.fake, Now: clock, MaxAttempts: 5, BaseBackoff: time.Second}
		f.jobs.Remote, f.jobs.Syncer = f.fake, f.syncer
		f.templates.Remote, f.templates.Syncer = f.fake, f.syncer
	}
	return f
}

func newJob(name string) domain.Job {
	return domain.Job{
		UserID: "owner-1", Category: domain.CategoryExposing, CustomerName: name, StartDate: "2024-02-10",
		TotalPrice: decimal.NewFromInt(10000), AmountPaid: decimal.NewFromInt(4000),
		PaymentStatus: domain.PaymentPartial, Status: domain.JobPending,
	}
}

func TestCreateWithoutRemoteIsLocalOnly(t *testing.T) {
	f := setup(t, false)
	ctx := context.Background()
	j, err := f.jobs.Create(ctx, newJob("Asha"))
	require.NoError(t, err)
	assert.NotEmpty(t, j.ID)
	assert.Equal(t, domain.SyncLocalOnly, j.SyncStatus)

	entries, err := f.repo.ListOutbox(ctx, "", 0)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestCreateMirrorsToRemote(t *testing.T) {
	f := setup(t, true)
	ctx := context.Background()
	j, err := f.jobs.Create(ctx, newJob("Asha"))
	require.NoError(t, err)
	assert.Equal(t, domain.SyncSynced, j.SyncStatus)
	got, ok := f.fake.Job(j.ID)
	require.True(t, ok)
	assert.Equal(t, "Asha", got.CustomerName)
}

func TestLocalWriteSurvivesRemoteOutage(t *testing.T) {
	f := setup(t, true)
	ctx := context.Background()
	f.fake.SetDown(true)

	j, err := f.jobs.Create(ctx, newJob("Asha"))
	require.NoError(t, err)
	assert.Equal(t, domain.SyncFailed, j.SyncStatus)

	list, err := f.jobs.List(ctx, "owner-1", "")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, j.ID, list[0].ID)
	assert.Equal(t, domain.SyncFailed, list[0].SyncStatus)

	// recovery drains the outbox once the retry is due
	f.fake.SetDown(false)
	f.now = f.now.Add(time.Minute)
	res, err := f.syncer.Flush(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Pushed)
	_, ok := f.fake.Job(j.ID)
	assert.True(t, ok)
}

func TestListMergesWithoutDuplicates(t *testing.T) {
	f := setup(t, true)
	ctx := context.Background()

	both, err := f.jobs.Create(ctx, newJob("Both"))
	require.NoError(t, err)
	f.fake.SetDown(true)
	localOnly, err := f.jobs.Create(ctx, newJob("Local"))
	require.NoError(t, err)
	f.fake.SetDown(false)

	remoteOnly := newJob("Remote")
	remoteOnly.ID = "remote-1"
	remoteOnly.CreatedAt = "2024-01-01T00:00:00.000Z"
	remoteOnly.UpdatedAt = remoteOnly.CreatedAt
	f.fake.Seed(remoteOnly)

	list, err := f.jobs.List(ctx, "owner-1", "")
	require.NoError(t, err)
	require.Len(t, list, 3)
	statuses := map[string]domain.SyncStatus{}
	for _, j := range list {
		statuses[j.ID] = j.SyncStatus
	}
	assert.Equal(t, domain.SyncSynced, statuses[both.ID])
	assert.Equal(t, domain.SyncFailed, statuses[localOnly.ID])
	assert.Equal(t, domain.SyncRemote, statuses["remote-1"])
	assert.Equal(t, "remote-1", list[2].ID, "oldest record sorts last")
}

func TestListFallsBackToLocalWhenRemoteReadFails(t *testing.T) {
	f := setup(t, true)
	ctx := context.Background()
	_, err := f.jobs.Create(ctx, newJob("Asha"))
	require.NoError(t, err)
	f.fake.SetFailReads(true)

	list, err := f.jobs.List(ctx, "owner-1", "")
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestListFiltersByCategory(t *testing.T) {
	f := setup(t, true)
	ctx := context.Background()
	_, err := f.jobs.Create(ctx, newJob("Asha"))
	require.NoError(t, err)
	other := newJob("Ravi")
	other.ID = "editing-1"
	other.Category = domain.CategoryEditing
	other.CreatedAt = "2024-01-01T00:00:00.000Z"
	f.fake.Seed(other)

	list, err := f.jobs.List(ctx, "owner-1", domain.CategoryEditing)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "editing-1", list[0].ID)
}

func TestUpdatePreservesCategoryAndCreatedAt(t *testing.T) {
	f := setup(t, true)
	ctx := context.Background()
	j, err := f.jobs.Create(ctx, newJob("Asha"))
	require.NoError(t, err)

	edit := j
	edit.Category = domain.CategoryOther
	edit.CreatedAt = ""
	edit.AmountPaid = decimal.NewFromInt(10000)
	edit.PaymentStatus = domain.PaymentCompleted
	got, err := f.jobs.Update(ctx, edit)
	require.NoError(t, err)
	assert.Equal(t, domain.CategoryExposing, got.Category)
	assert.Equal(t, j.CreatedAt, got.CreatedAt)
	assert.True(t, got.AmountPaid.Equal(decimal.NewFromInt(10000)))

	mirrored, ok := f.fake.Job(j.ID)
	require.True(t, ok)
	assert.Equal(t, domain.CategoryExposing, mirrored.Category)
	assert.Equal(t, domain.PaymentCompleted, mirrored.PaymentStatus)
}

func TestUpdateUnknownJobLocalOnly(t *testing.T) {
	f := setup(t, false)
	j := newJob("Ghost")
	j.ID = "missing"
	_, err := f.jobs.Update(context.Background(), j)
	assert.ErrorIs(t, err, repo.ErrNotFound)
}

func TestDeleteRemovesBothSides(t *testing.T) {
	f := setup(t, true)
	ctx := context.Background()
	j, err := f.jobs.Create(ctx, newJob("Asha"))
	require.NoError(t, err)

	require.NoError(t, f.jobs.Delete(ctx, j.ID))
	_, err = f.jobs.Get(ctx, j.ID)
	assert.ErrorIs(t, err, repo.ErrNotFound)
	assert.Equal(t, 0, f.fake.JobCount())

	assert.ErrorIs(t, f.jobs.Delete(ctx, "nope"), repo.ErrNotFound)
}

func TestQueuedDeleteHidesRemoteCopy(t *testing.T) {
	f := setup(t, true)
	ctx := context.Background()
	j, err := f.jobs.Create(ctx, newJob("Asha"))
	require.NoError(t, err)
	require.Equal(t, domain.SyncSynced, j.SyncStatus)

	f.fake.SetFailWrites(true)
	require.NoError(t, f.jobs.Delete(ctx, j.ID))
	_, stillRemote := f.fake.Job(j.ID)
	require.True(t, stillRemote)

	list, err := f.jobs.List(ctx, "owner-1", "")
	require.NoError(t, err)
	assert.Empty(t, list)

	_, err = f.jobs.Get(ctx, j.ID)
	assert.ErrorIs(t, err, repo.ErrNotFound)

	edit := j
	edit.CustomerName = "Asha K"
	_, err = f.jobs.Update(ctx, edit)
	assert.ErrorIs(t, err, repo.ErrNotFound)

	n, err := f.syncer.Pull(ctx, "owner-1")
	require.NoError(t, err)
	assert.Zero(t, n)

	entries, err := f.repo.ListOutbox(ctx, "", 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, domain.OpDelete, entries[0].Op)

	f.fake.SetFailWrites(false)
	res, err := f.syncer.Push(ctx, entries[0].ID)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Pushed)
	assert.Equal(t, 0, f.fake.JobCount())
}

func TestQueuedResetHidesRemoteOverride(t *testing.T) {
	f := setup(t, true)
	ctx := context.Background()
	_, err := f.templates.Set(ctx, domain.Template{Kind: domain.KindSingle, Content: domain.TextContent("custom")})
	require.NoError(t, err)
	_, err = f.fake.GetTemplate(ctx, domain.KindSingle, "")
	require.NoError(t, err)

	f.fake.SetFailWrites(true)
	require.NoError(t, f.templates.Reset(ctx, domain.KindSingle, ""))

	_, ok, err := f.templates.Lookup(ctx, domain.KindSingle, "")
	require.NoError(t, err)
	assert.False(t, ok)

	list, err := f.templates.List(ctx, domain.KindSingle)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestGetFallsBackToRemote(t *testing.T) {
	f := setup(t, true)
	r := newJob("Remote")
	r.ID = "remote-1"
	f.fake.Seed(r)
	got, err := f.jobs.Get(context.Background(), "remote-1")
	require.NoError(t, err)
	assert.Equal(t, domain.SyncRemote, got.SyncStatus)
}

func TestMergePrefersUnsyncedLocalCopy(t *testing.T) {
	local := newJob("Local edit")
	local.ID = "a"
	local.CreatedAt = "2024-02-01T00:00:00.000Z"
	remoteCopy := local
	remoteCopy.CustomerName = "Remote"

	merged := store.Merge([]domain.Job{local}, []domain.Job{remoteCopy}, map[string]domain.SyncStatus{"a": domain.SyncPending}, nil)
	require.Len(t, merged, 1)
	assert.Equal(t, "Local edit", merged[0].CustomerName)
	assert.Equal(t, domain.SyncPending, merged[0].SyncStatus)

	merged = store.Merge([]domain.Job{local}, []domain.Job{remoteCopy}, nil, nil)
	require.Len(t, merged, 1)
	assert.Equal(t, "Remote", merged[0].CustomerName)
	assert.Equal(t, domain.SyncSynced, merged[0].SyncStatus)
}

func TestMergeOrdersNewestFirst(t *testing.T) {
	a := domain.Job{ID: "a", CreatedAt: "2024-01-01T00:00:00Z"}
	b := domain.Job{ID: "b", CreatedAt: "2024-03-01T00:00:00.000Z"}
	c := domain.Job{ID: "c", CreatedAt: "2024-02-01T00:00:00+05:30"}
	merged := store.Merge([]domain.Job{a, c}, []domain.Job{b}, nil, nil)
	ids := []string{merged[0].ID, merged[1].ID, merged[2].ID}
	assert.Equal(t, []string{"b", "c", "a"}, ids)
}

func TestTemplateOverrideLifecycle(t *testing.T) {
	f := setup(t, true)
	ctx := context.Background()

	_, ok, err := f.templates.Lookup(ctx, domain.KindSingle, domain.CategoryEditing)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = f.templates.Set(ctx, domain.Template{Kind: domain.KindSingle, Category: domain.CategoryEditing, Content: domain.TextContent("Hi {customer_name}")})
	require.NoError(t, err)
	content, ok, err := f.templates.Lookup(ctx, domain.KindSingle, domain.CategoryEditing)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Hi {customer_name}", content.Text)

	list, err := f.templates.List(ctx, "")
	require.NoError(t, err)
	assert.Len(t, list, 1)

	require.NoError(t, f.templates.Reset(ctx, domain.KindSingle, domain.CategoryEditing))
	_, ok, err = f.templates.Lookup(ctx, domain.KindSingle, domain.CategoryEditing)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestTemplateLookupUsesRemoteOverride(t *testing.T) {
	f := setup(t, true)
	ctx := context.Background()
	_, err := f.fake.UpsertTemplates(ctx, []domain.Template{{Kind: domain.KindConsolidated, Content: domain.TextContent("remote text")}})
	require.NoError(t, err)

	content, ok, err := f.templates.Lookup(ctx, domain.KindConsolidated, "")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "remote text", content.Text)

	f.fake.SetFailReads(true)
	_, ok, err = f.templates.Lookup(ctx, domain.KindConsolidated, "")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestTemplateSetRejectsWrongShape(t *testing.T) {
	f := setup(t, false)
	_, err := f.templates.Set(context.Background(), domain.Template{Kind: domain.KindJobStatus, Content: domain.TextContent("x")})
	assert.Error(t, err)
}
