// Package store presents the local and remote job stores as one logical store.
// Writes commit locally first and mirror through the outbox; reads merge both sides.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sirupsen/logrus"

	"github.com/auraknotphoto-afk/akmsincomenew/internal/config"
	"github.com/auraknotphoto-afk/akmsincomenew/internal/domain"
	"github.com/auraknotphoto-afk/akmsincomenew/internal/events"
	"github.com/auraknotphoto-afk/akmsincomenew/internal/mirror"
	"github.com/auraknotphoto-afk/akmsincomenew/internal/remote"
	"github.com/auraknotphoto-afk/akmsincomenew/internal/repo"
)

const defaultReadTimeout = 5 * time.Second

var remoteReads = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "akms",
	Subsystem: "remote",
	Name:      "reads_total",
	Help:      "Reads against the remote store, by entity and result.",
}, []string{"entity", "result"})

// Jobs is the merged job store. Remote and Syncer are nil in local-only mode.
type Jobs struct {
	Repo        repo.Repo
	Events      events.Writer
	Remote      remote.Store
	Syncer      *mirror.Syncer
	Log         *logrus.Logger
	Now         func() time.Time
	ReadTimeout time.Duration
}

func (s Jobs) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s Jobs) log() *logrus.Logger {
	if s.Log == nil {
		return config.DiscardLogger()
	}
	return s.Log
}

func (s Jobs) readCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	timeout := s.ReadTimeout
	if timeout <= 0 {
		timeout = defaultReadTimeout
	}
	return context.WithTimeout(ctx, timeout)
}

// Create stores a new job. The id is generated when empty.
func (s Jobs) Create(ctx context.Context, j domain.Job) (domain.Job, error) {
	if j.ID == "" {
		j.ID = uuid.NewString()
	}
	ts := domain.Timestamp(s.now())
	j.CreatedAt = ts
	j.UpdatedAt = ts
	j.SyncStatus = ""
	return s.write(ctx, j, domain.OpUpsert, func(tx *sql.Tx) error {
		return s.Repo.InsertJob(ctx, tx, j)
	})
}

// Update replaces the editable fields of an existing job. A job only known
// remotely is adopted into the local store.
func (s Jobs) Update(ctx context.Context, j domain.Job) (domain.Job, error) {
	j.UpdatedAt = domain.Timestamp(s.now())
	j.SyncStatus = ""
	return s.write(ctx, j, domain.OpUpsert, func(tx *sql.Tx) error {
		existing, err := s.Repo.GetJobTx(ctx, tx, j.ID)
		if errors.Is(err, repo.ErrNotFound) {
			if s.Remote == nil {
				return repo.ErrNotFound
			}
			// a queued delete must not be turned back into an upsert
			deleted, derr := s.Repo.PendingDelete(ctx, tx, domain.EntityJob, j.ID)
			if derr != nil {
				return derr
			}
			if deleted {
				return repo.ErrNotFound
			}
			if j.CreatedAt == "" {
				j.CreatedAt = j.UpdatedAt
			}
			return s.Repo.UpsertJob(ctx, tx, j)
		}
		if err != nil {
			return err
		}
		j.Category = existing.Category
		j.UserID = existing.UserID
		j.CreatedAt = existing.CreatedAt
		return s.Repo.UpdateJob(ctx, tx, j)
	})
}

// Delete removes a job locally and mirrors the deletion.
func (s Jobs) Delete(ctx context.Context, id string) error {
	j := domain.Job{ID: id}
	_, err := s.write(ctx, j, domain.OpDelete, func(tx *sql.Tx) error {
		err := s.Repo.DeleteJob(ctx, tx, id)
		if !errors.Is(err, repo.ErrNotFound) || s.Remote == nil {
			return err
		}
		rctx, cancel := s.readCtx(ctx)
		defer cancel()
		if _, rerr := s.Remote.GetJob(rctx, id); errors.Is(rerr, remote.ErrNotFound) {
			return repo.ErrNotFound
		}
		// remote-only or remote unreachable: record the delete intent anyway
		return nil
	})
	return err
}

func (s Jobs) write(ctx context.Context, j domain.Job, op string, apply func(tx *sql.Tx) error) (domain.Job, error) {
	tx, err := s.Repo.DB.BeginTx(ctx, nil)
	if err != nil {
		return j, err
	}
	defer tx.Rollback()
	if err := apply(tx); err != nil {
		return j, err
	}
	if op == domain.OpUpsert {
		// the stored row carries the columns apply preserved
		if j, err = s.Repo.GetJobTx(ctx, tx, j.ID); err != nil {
			return j, err
		}
	}
	var outboxID int64
	if s.Remote != nil {
		var payload any
		if op == domain.OpUpsert {
			payload = j
		}
		if outboxID, err = s.Events.Enqueue(ctx, tx, events.Intent{Entity: domain.EntityJob, EntityKey: j.ID, Op: op, Payload: payload}); err != nil {
			return j, fmt.Errorf("record sync intent: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return j, err
	}
	j.SyncStatus = s.pushNow(ctx, outboxID, j.ID, op)
	return j, nil
}

// pushNow makes the one immediate remote attempt. Failures stay in the outbox.
func (s Jobs) pushNow(ctx context.Context, outboxID int64, id, op string) domain.SyncStatus {
	if s.Remote == nil || outboxID == 0 {
		return domain.SyncLocalOnly
	}
	if s.Syncer == nil {
		return domain.SyncPending
	}
	res, err := s.Syncer.Push(ctx, outboxID)
	if err != nil {
		s.log().WithFields(logrus.Fields{"job_id": id, "op": op}).WithError(err).Error("store: sync push failed locally")
		return domain.SyncPending
	}
	switch {
	case res.Pushed > 0:
		return domain.SyncSynced
	case res.Failed > 0 || res.Dead > 0:
		return domain.SyncFailed
	}
	return domain.SyncPending
}

// Get returns one job, local copy first.
func (s Jobs) Get(ctx context.Context, id string) (domain.Job, error) {
	j, err := s.Repo.GetJob(ctx, id)
	if err == nil {
		statuses, serr := s.Repo.OutboxSyncStatus(ctx, domain.EntityJob)
		if serr != nil {
			return j, serr
		}
		j.SyncStatus = s.localStatus(ctx, j.ID, statuses)
		return j, nil
	}
	if !errors.Is(err, repo.ErrNotFound) || s.Remote == nil {
		return j, err
	}
	deleted, err := s.Repo.PendingDelete(ctx, nil, domain.EntityJob, id)
	if err != nil {
		return domain.Job{}, err
	}
	if deleted {
		return domain.Job{}, repo.ErrNotFound
	}
	rctx, cancel := s.readCtx(ctx)
	defer cancel()
	rj, rerr := s.Remote.GetJob(rctx, id)
	if rerr != nil {
		if !errors.Is(rerr, remote.ErrNotFound) {
			remoteReads.WithLabelValues(domain.EntityJob, "error").Inc()
			s.log().WithField("job_id", id).WithError(rerr).Warn("store: remote lookup failed")
		}
		return domain.Job{}, repo.ErrNotFound
	}
	remoteReads.WithLabelValues(domain.EntityJob, "ok").Inc()
	rj.SyncStatus = domain.SyncRemote
	return rj, nil
}

func (s Jobs) localStatus(ctx context.Context, id string, outbox map[string]domain.SyncStatus) domain.SyncStatus {
	if st, ok := outbox[id]; ok {
		return st
	}
	if s.Remote == nil {
		return domain.SyncLocalOnly
	}
	rctx, cancel := s.readCtx(ctx)
	defer cancel()
	if _, err := s.Remote.GetJob(rctx, id); err == nil {
		return domain.SyncSynced
	}
	return domain.SyncLocalOnly
}

// List returns the merged view for owner, newest first, optionally limited to one category.
func (s Jobs) List(ctx context.Context, owner string, category domain.Category) ([]domain.Job, error) {
	local, err := s.Repo.ListJobs(ctx, repo.JobFilters{UserID: owner, Category: category})
	if err != nil {
		return nil, err
	}
	outbox, err := s.Repo.OutboxSyncStatus(ctx, domain.EntityJob)
	if err != nil {
		return nil, err
	}
	var remoteJobs []domain.Job
	if s.Remote != nil {
		rctx, cancel := s.readCtx(ctx)
		remoteJobs, err = s.Remote.ListJobs(rctx, owner, category)
		cancel()
		if err != nil {
			remoteReads.WithLabelValues(domain.EntityJob, "error").Inc()
			s.log().WithError(err).Warn("store: remote read failed, using local records")
			remoteJobs = nil
		} else {
			remoteReads.WithLabelValues(domain.EntityJob, "ok").Inc()
		}
	}
	if len(remoteJobs) > 0 {
		deleted, err := s.Repo.PendingDeletes(ctx, nil, domain.EntityJob)
		if err != nil {
			return nil, err
		}
		remoteJobs = WithoutDeleted(remoteJobs, deleted)
	}
	merged := Merge(local, remoteJobs, outbox, s.log())
	if category != "" {
		filtered := merged[:0]
		for _, j := range merged {
			if j.Category == category {
				filtered = append(filtered, j)
			}
		}
		merged = filtered
	}
	return merged, nil
}

// Merge combines remote and local records. Every remote record is kept, plus
// local records whose id the remote does not have. When both sides hold an id
// the remote copy wins unless the local one still has an unsynced change.
// The result is ordered by created_at descending.
func Merge(local, remoteJobs []domain.Job, outbox map[string]domain.SyncStatus, log *logrus.Logger) []domain.Job {
	localByID := make(map[string]domain.Job, len(local))
	for _, j := range local {
		localByID[j.ID] = j
	}
	seen := make(map[string]bool, len(remoteJobs)+len(local))
	out := make([]domain.Job, 0, len(remoteJobs)+len(local))
	for _, r := range remoteJobs {
		if seen[r.ID] {
			continue
		}
		seen[r.ID] = true
		l, ok := localByID[r.ID]
		if !ok {
			r.SyncStatus = domain.SyncRemote
			out = append(out, r)
			continue
		}
		if st, pending := outbox[r.ID]; pending {
			l.SyncStatus = st
			out = append(out, l)
			continue
		}
		if l.UpdatedAt != r.UpdatedAt && log != nil {
			log.WithFields(logrus.Fields{"job_id": r.ID, "local_updated_at": l.UpdatedAt, "remote_updated_at": r.UpdatedAt}).
				Debug("store: local and remote copies differ, using remote")
		}
		r.SyncStatus = domain.SyncSynced
		out = append(out, r)
	}
	for _, l := range local {
		if seen[l.ID] {
			continue
		}
		seen[l.ID] = true
		if st, ok := outbox[l.ID]; ok {
			l.SyncStatus = st
		} else {
			l.SyncStatus = domain.SyncLocalOnly
		}
		out = append(out, l)
	}
	SortNewestFirst(out)
	return out
}

// WithoutDeleted drops remote records whose deletion is still queued locally.
func WithoutDeleted(remoteJobs []domain.Job, deleted map[string]bool) []domain.Job {
	if len(deleted) == 0 {
		return remoteJobs
	}
	out := make([]domain.Job, 0, len(remoteJobs))
	for _, j := range remoteJobs {
		if !deleted[j.ID] {
			out = append(out, j)
		}
	}
	return out
}

// SortNewestFirst orders jobs by created_at descending, id descending on ties.
func SortNewestFirst(jobs []domain.Job) {
	sort.SliceStable(jobs, func(a, b int) bool {
		ta, tb := createdAt(jobs[a]), createdAt(jobs[b])
		if !ta.Equal(tb) {
			return ta.After(tb)
		}
		return jobs[a].ID > jobs[b].ID
	})
}

func createdAt(j domain.Job) time.Time {
	t, err := time.Parse(time.RFC3339Nano, j.CreatedAt)
	if err != nil {
		return time.Time{}
	}
	return t
}
