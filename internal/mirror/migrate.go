package mirror

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/auraknotphoto-afk/akmsincomenew/internal/domain"
	"github.com/auraknotphoto-afk/akmsincomenew/internal/repo"
)

// MigrateResult counts the remote rows affected by a bulk migration.
type MigrateResult struct {
	Jobs      int64 `json:"jobs"`
	Templates int64 `json:"templates"`
}

// Migrate upserts jobs by id and templates by (kind, category) straight into the
// remote store. It is best effort: the job and template batches are written
// independently and the first failure is returned alongside what succeeded.
func (s *Syncer) Migrate(ctx context.Context, jobs []domain.Job, templates []domain.Template) (MigrateResult, error) {
	var res MigrateResult
	if !s.Enabled() {
		return res, ErrRemoteDisabled
	}
	var firstErr error
	if len(jobs) > 0 {
		clean := make([]domain.Job, len(jobs))
		for i, j := range jobs {
			j.SyncStatus = ""
			clean[i] = j
		}
		n, err := s.Remote.UpsertJobs(ctx, clean)
		if err != nil {
			firstErr = fmt.Errorf("migrate jobs: %w", err)
			s.log().WithError(err).WithField("count", len(jobs)).Warn("sync: job migration failed")
		} else {
			res.Jobs = n
			migratedTotal.WithLabelValues(domain.EntityJob).Add(float64(n))
		}
	}
	if len(templates) > 0 {
		n, err := s.Remote.UpsertTemplates(ctx, templates)
		if err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("migrate templates: %w", err)
			}
			s.log().WithError(err).WithField("count", len(templates)).Warn("sync: template migration failed")
		} else {
			res.Templates = n
			migratedTotal.WithLabelValues(domain.EntityTemplate).Add(float64(n))
		}
	}
	s.log().WithFields(logrus.Fields{"jobs": res.Jobs, "templates": res.Templates}).Info("sync: bulk migration finished")
	return res, firstErr
}

// MigrateLocal pushes every local job of owner (all owners when empty) and every
// local template override to the remote store.
func (s *Syncer) MigrateLocal(ctx context.Context, owner string) (MigrateResult, error) {
	if !s.Enabled() {
		return MigrateResult{}, ErrRemoteDisabled
	}
	jobs, err := s.Repo.ListJobs(ctx, repo.JobFilters{UserID: owner})
	if err != nil {
		return MigrateResult{}, err
	}
	templates, err := s.Repo.ListTemplates(ctx, "")
	if err != nil {
		return MigrateResult{}, err
	}
	return s.Migrate(ctx, jobs, templates)
}

// Pull copies jobs that exist only remotely into the local store so they stay
// available offline. Local rows are never overwritten.
func (s *Syncer) Pull(ctx context.Context, owner string) (int, error) {
	if !s.Enabled() {
		return 0, ErrRemoteDisabled
	}
	remoteJobs, err := s.Remote.ListJobs(ctx, owner, "")
	if err != nil {
		return 0, fmt.Errorf("list remote jobs: %w", err)
	}
	deleted, err := s.Repo.PendingDeletes(ctx, nil, domain.EntityJob)
	if err != nil {
		return 0, err
	}
	pulled := 0
	for _, j := range remoteJobs {
		if deleted[j.ID] {
			continue
		}
		if _, err := s.Repo.GetJob(ctx, j.ID); err == nil {
			continue
		} else if !errors.Is(err, repo.ErrNotFound) {
			return pulled, err
		}
		j.SyncStatus = ""
		if err := s.Repo.InsertJob(ctx, s.Repo.DB, j); err != nil {
			return pulled, fmt.Errorf("store pulled job %s: %w", j.ID, err)
		}
		pulled++
	}
	return pulled, nil
}
