// Package mirror pushes locally committed changes to the remote store.
package mirror

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/auraknotphoto-afk/akmsincomenew/internal/config"
	"github.com/auraknotphoto-afk/akmsincomenew/internal/domain"
	"github.com/auraknotphoto-afk/akmsincomenew/internal/remote"
	"github.com/auraknotphoto-afk/akmsincomenew/internal/repo"
)

const (
	defaultInterval    = 30 * time.Second
	defaultBatch       = 50
	defaultMaxAttempts = 8
	defaultBaseBackoff = 5 * time.Second
	defaultMaxBackoff  = 30 * time.Minute
	defaultPushTimeout = 10 * time.Second
)

// ErrRemoteDisabled is returned by operations that need a configured remote.
var ErrRemoteDisabled = errors.New("remote store not configured")

// Syncer drains the outbox into the remote store.
type Syncer struct {
	Repo        repo.Repo
	Remote      remote.Store
	Log         *logrus.Logger
	Now         func() time.Time
	Interval    time.Duration
	BatchSize   int
	MaxAttempts int
	BaseBackoff time.Duration
	MaxBackoff  time.Duration
	PushTimeout time.Duration

	mu sync.Mutex
}

// New builds a Syncer from the studio sync settings. store may be nil.
func New(r repo.Repo, store remote.Store, cfg *config.Config, log *logrus.Logger) *Syncer {
	s := &Syncer{Repo: r, Remote: store, Log: log, Now: time.Now}
	if cfg != nil {
		s.Interval = cfg.Sync.Interval
		s.BatchSize = cfg.Sync.BatchSize
		s.MaxAttempts = cfg.Sync.MaxAttempts
		s.BaseBackoff = cfg.Sync.BaseBackoff
		s.MaxBackoff = cfg.Sync.MaxBackoff
		s.PushTimeout = cfg.Sync.PushTimeout
	}
	return s
}

// Enabled reports whether a remote store is attached.
func (s *Syncer) Enabled() bool {
	return s != nil && s.Remote != nil
}

func (s *Syncer) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *Syncer) log() *logrus.Logger {
	if s.Log == nil {
		return config.DiscardLogger()
	}
	return s.Log
}

func (s *Syncer) batch() int {
	if s.BatchSize > 0 {
		return s.BatchSize
	}
	return defaultBatch
}

func (s *Syncer) maxAttempts() int {
	if s.MaxAttempts > 0 {
		return s.MaxAttempts
	}
	return defaultMaxAttempts
}

// Backoff returns the delay before retry number attempt (1-based): base*2^(attempt-1), capped.
func (s *Syncer) Backoff(attempt int) time.Duration {
	base, ceiling := s.BaseBackoff, s.MaxBackoff
	if base <= 0 {
		base = defaultBaseBackoff
	}
	if ceiling <= 0 {
		ceiling = defaultMaxBackoff
	}
	if attempt < 1 {
		attempt = 1
	}
	d := base
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= ceiling {
			return ceiling
		}
	}
	if d > ceiling {
		return ceiling
	}
	return d
}

// Result summarises one flush.
type Result struct {
	Pushed int `json:"pushed"`
	Failed int `json:"failed"`
	Dead   int `json:"dead"`
}

func (r *Result) add(o Result) {
	r.Pushed += o.Pushed
	r.Failed += o.Failed
	r.Dead += o.Dead
}

// Push attempts the given outbox entries immediately, ignoring their schedule.
// Failures are recorded on the entries; the error only reports local problems.
func (s *Syncer) Push(ctx context.Context, ids ...int64) (Result, error) {
	if !s.Enabled() || len(ids) == 0 {
		return Result{}, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	entries, err := s.Repo.OutboxByIDs(ctx, ids)
	if err != nil {
		return Result{}, err
	}
	return s.process(ctx, entries)
}

// Flush pushes every due entry, batch by batch.
func (s *Syncer) Flush(ctx context.Context) (Result, error) {
	var total Result
	if !s.Enabled() {
		return total, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for {
		entries, err := s.Repo.DueOutbox(ctx, domain.Timestamp(s.now()), s.batch())
		if err != nil {
			return total, err
		}
		if len(entries) == 0 {
			break
		}
		res, err := s.process(ctx, entries)
		total.add(res)
		if err != nil {
			return total, err
		}
		if res.Pushed == 0 {
			// everything in this batch was rescheduled; the next batch would repeat it
			break
		}
	}
	s.observe(ctx)
	return total, nil
}

// Run flushes on every interval tick until ctx is cancelled.
func (s *Syncer) Run(ctx context.Context) error {
	if !s.Enabled() {
		<-ctx.Done()
		return nil
	}
	interval := s.Interval
	if interval <= 0 {
		interval = defaultInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		if res, err := s.Flush(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			s.log().WithError(err).Error("sync: flush failed")
		} else if res.Pushed+res.Failed+res.Dead > 0 {
			s.log().WithFields(logrus.Fields{"pushed": res.Pushed, "failed": res.Failed, "dead": res.Dead}).Info("sync: flushed outbox")
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func (s *Syncer) process(ctx context.Context, entries []domain.OutboxEntry) (Result, error) {
	var res Result
	for _, e := range entries {
		if ctx.Err() != nil {
			return res, ctx.Err()
		}
		pushErr := s.pushOne(ctx, e)
		if pushErr == nil {
			if err := s.Repo.DeleteOutbox(ctx, e.ID); err != nil {
				return res, fmt.Errorf("clear outbox %d: %w", e.ID, err)
			}
			pushesTotal.WithLabelValues(e.Entity, e.Op, "ok").Inc()
			res.Pushed++
			continue
		}
		attempts := e.Attempts + 1
		dead := attempts >= s.maxAttempts() || remote.IsPermanent(pushErr)
		now := s.now()
		next := now.Add(s.Backoff(attempts))
		if err := s.Repo.MarkOutboxFailed(ctx, e.ID, attempts, domain.Timestamp(next), pushErr.Error(), dead, domain.Timestamp(now)); err != nil {
			return res, fmt.Errorf("record outbox failure %d: %w", e.ID, err)
		}
		fields := logrus.Fields{
			"outbox_id": e.ID,
			"entity":    e.Entity,
			"key":       e.EntityKey,
			"op":        e.Op,
			"attempts":  attempts,
		}
		if dead {
			pushesTotal.WithLabelValues(e.Entity, e.Op, "dead").Inc()
			s.log().WithFields(fields).WithError(pushErr).Error("sync: giving up on remote write")
			res.Dead++
			continue
		}
		pushesTotal.WithLabelValues(e.Entity, e.Op, "retry").Inc()
		fields["next_attempt_at"] = domain.Timestamp(next)
		s.log().WithFields(fields).WithError(pushErr).Warn("sync: remote write failed, will retry")
		res.Failed++
	}
	return res, nil
}

func (s *Syncer) pushOne(ctx context.Context, e domain.OutboxEntry) error {
	timeout := s.PushTimeout
	if timeout <= 0 {
		timeout = defaultPushTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	switch e.Entity + "/" + e.Op {
	case domain.EntityJob + "/" + domain.OpUpsert:
		var j domain.Job
		if err := json.Unmarshal([]byte(e.Payload), &j); err != nil {
			return fmt.Errorf("decode job payload: %w", err)
		}
		j.SyncStatus = ""
		_, err := s.Remote.UpsertJobs(ctx, []domain.Job{j})
		return err
	case domain.EntityJob + "/" + domain.OpDelete:
		return s.Remote.DeleteJob(ctx, e.EntityKey)
	case domain.EntityTemplate + "/" + domain.OpUpsert:
		var t domain.Template
		if err := json.Unmarshal([]byte(e.Payload), &t); err != nil {
			return fmt.Errorf("decode template payload: %w", err)
		}
		_, err := s.Remote.UpsertTemplates(ctx, []domain.Template{t})
		return err
	case domain.EntityTemplate + "/" + domain.OpDelete:
		kind, category, _ := strings.Cut(e.EntityKey, "|")
		return s.Remote.DeleteTemplate(ctx, domain.TemplateKind(kind), domain.Category(category))
	}
	return fmt.Errorf("unknown outbox entry %s/%s", e.Entity, e.Op)
}

func (s *Syncer) observe(ctx context.Context) {
	counts, err := s.Repo.OutboxCounts(ctx)
	if err != nil {
		return
	}
	for state, n := range counts {
		outboxEntries.WithLabelValues(state).Set(float64(n))
	}
}

// Status describes the outbox for operators.
type Status struct {
	RemoteEnabled bool                 `json:"remote_enabled"`
	Pending       int                  `json:"pending"`
	Dead          int                  `json:"dead"`
	Entries       []domain.OutboxEntry `json:"entries,omitempty"`
}

// Status reports outbox counts and, when verbose, the outstanding entries.
func (s *Syncer) Status(ctx context.Context, verbose bool) (Status, error) {
	counts, err := s.Repo.OutboxCounts(ctx)
	if err != nil {
		return Status{}, err
	}
	st := Status{RemoteEnabled: s.Enabled(), Pending: counts[domain.OutboxPending], Dead: counts[domain.OutboxDead]}
	if verbose {
		if st.Entries, err = s.Repo.ListOutbox(ctx, "", 200); err != nil {
			return Status{}, err
		}
	}
	return st, nil
}

// Retry requeues dead entries and flushes.
func (s *Syncer) Retry(ctx context.Context) (int64, Result, error) {
	n, err := s.Repo.RequeueDead(ctx, domain.Timestamp(s.now()))
	if err != nil {
		return 0, Result{}, err
	}
	res, err := s.Flush(ctx)
	return n, res, err
}
