package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/auraknotphoto-afk/akmsincomenew/internal/domain"
	"github.com/auraknotphoto-afk/akmsincomenew/internal/mirror"
	"github.com/auraknotphoto-afk/akmsincomenew/internal/remote"
)

// MigrateInput is a batch of legacy records to copy into the remote store.
type MigrateInput struct {
	Jobs      []domain.Job      `json:"jobs"`
	Templates []domain.Template `json:"templates"`
}

// Migrate bulk-upserts the given records into the remote store. Money checks
// are skipped so legacy data goes through as recorded. Jobs without a user_id
// are stamped with owner; jobs of another owner, or overwriting another
// owner's remote job, are rejected. An empty owner imports as recorded but
// still requires user_id.
func (e Engine) Migrate(ctx context.Context, owner string, in MigrateInput) (mirror.MigrateResult, error) {
	if !e.RemoteEnabled() {
		return mirror.MigrateResult{}, mirror.ErrRemoteDisabled
	}
	for i, j := range in.Jobs {
		if j.ID == "" {
			return mirror.MigrateResult{}, invalid(fmt.Sprintf("jobs[%d].id", i), "required")
		}
		if !j.Category.Valid() {
			return mirror.MigrateResult{}, invalid(fmt.Sprintf("jobs[%d].category", i), "oneof=EDITING EXPOSING OTHER")
		}
		switch {
		case j.UserID == "" && owner == "":
			return mirror.MigrateResult{}, invalid(fmt.Sprintf("jobs[%d].user_id", i), "required")
		case j.UserID == "":
			in.Jobs[i].UserID = owner
		case owner != "" && j.UserID != owner:
			return mirror.MigrateResult{}, invalid(fmt.Sprintf("jobs[%d].user_id", i), "belongs to another owner")
		}
		existing, err := e.Syncer.Remote.GetJob(ctx, j.ID)
		switch {
		case err == nil && existing.UserID != in.Jobs[i].UserID:
			return mirror.MigrateResult{}, invalid(fmt.Sprintf("jobs[%d].id", i), "belongs to another owner")
		case err != nil && !errors.Is(err, remote.ErrNotFound):
			return mirror.MigrateResult{}, fmt.Errorf("check job %s: %w", j.ID, err)
		}
		if j.CreatedAt == "" {
			in.Jobs[i].CreatedAt = domain.Timestamp(e.now())
		}
		if j.UpdatedAt == "" {
			in.Jobs[i].UpdatedAt = in.Jobs[i].CreatedAt
		}
	}
	for i, t := range in.Templates {
		if err := t.Validate(); err != nil {
			return mirror.MigrateResult{}, invalid(fmt.Sprintf("templates[%d]", i), err.Error())
		}
		if t.UpdatedAt == "" {
			in.Templates[i].UpdatedAt = domain.Timestamp(e.now())
		}
	}
	return e.Syncer.Migrate(ctx, in.Jobs, in.Templates)
}

// MigrateLocal pushes every local record of owner to the remote store.
func (e Engine) MigrateLocal(ctx context.Context, owner string) (mirror.MigrateResult, error) {
	return e.Syncer.MigrateLocal(ctx, owner)
}

// Pull copies remote-only jobs of owner into the local store.
func (e Engine) Pull(ctx context.Context, owner string) (int, error) {
	return e.Syncer.Pull(ctx, owner)
}

func (e Engine) SyncStatus(ctx context.Context, verbose bool) (mirror.Status, error) {
	return e.Syncer.Status(ctx, verbose)
}

func (e Engine) FlushSync(ctx context.Context) (mirror.Result, error) {
	return e.Syncer.Flush(ctx)
}

// RetrySync requeues dead outbox entries and flushes.
func (e Engine) RetrySync(ctx context.Context) (int64, mirror.Result, error) {
	if !e.RemoteEnabled() {
		return 0, mirror.Result{}, mirror.ErrRemoteDisabled
	}
	return e.Syncer.Retry(ctx)
}
