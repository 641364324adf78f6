package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/auraknotphoto-afk/akmsincomenew/internal/config"
	"github.com/auraknotphoto-afk/akmsincomenew/internal/domain"
	"github.com/auraknotphoto-afk/akmsincomenew/internal/events"
	"github.com/auraknotphoto-afk/akmsincomenew/internal/mirror"
	"github.com/auraknotphoto-afk/akmsincomenew/internal/remote"
	"github.com/auraknotphoto-afk/akmsincomenew/internal/repo"
)

// Templates stores template overrides locally and mirrors them like jobs.
type Templates struct {
	Repo        repo.Repo
	Events      events.Writer
	Remote      remote.Store
	Syncer      *mirror.Syncer
	Log         *logrus.Logger
	Now         func() time.Time
	ReadTimeout time.Duration
}

func (s Templates) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s Templates) log() *logrus.Logger {
	if s.Log == nil {
		return config.DiscardLogger()
	}
	return s.Log
}

// Lookup returns the override stored for exactly (kind, category), local copy
// first. An unreachable remote counts as no override.
func (s Templates) Lookup(ctx context.Context, kind domain.TemplateKind, category domain.Category) (domain.TemplateContent, bool, error) {
	t, err := s.Repo.GetTemplate(ctx, kind, category)
	if err == nil {
		return t.Content, true, nil
	}
	if !errors.Is(err, repo.ErrNotFound) {
		return domain.TemplateContent{}, false, err
	}
	if s.Remote == nil {
		return domain.TemplateContent{}, false, nil
	}
	deleted, err := s.Repo.PendingDelete(ctx, nil, domain.EntityTemplate, domain.TemplateKey(kind, category))
	if err != nil {
		return domain.TemplateContent{}, false, err
	}
	if deleted {
		return domain.TemplateContent{}, false, nil
	}
	timeout := s.ReadTimeout
	if timeout <= 0 {
		timeout = defaultReadTimeout
	}
	rctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	rt, rerr := s.Remote.GetTemplate(rctx, kind, category)
	if rerr != nil {
		if !errors.Is(rerr, remote.ErrNotFound) {
			remoteReads.WithLabelValues(domain.EntityTemplate, "error").Inc()
			s.log().WithFields(logrus.Fields{"kind": kind, "category": category}).WithError(rerr).Warn("store: remote template lookup failed")
		}
		return domain.TemplateContent{}, false, nil
	}
	remoteReads.WithLabelValues(domain.EntityTemplate, "ok").Inc()
	return rt.Content, true, nil
}

// Set validates and stores an override, replacing any previous one for the scope.
func (s Templates) Set(ctx context.Context, t domain.Template) (domain.Template, error) {
	if err := t.Validate(); err != nil {
		return t, err
	}
	t.UpdatedAt = domain.Timestamp(s.now())
	err := s.write(ctx, t.Kind, t.Category, domain.OpUpsert, t, func(tx *sql.Tx) error {
		return s.Repo.UpsertTemplate(ctx, tx, t)
	})
	return t, err
}

// Reset removes the override for a scope so resolution falls back again.
func (s Templates) Reset(ctx context.Context, kind domain.TemplateKind, category domain.Category) error {
	return s.write(ctx, kind, category, domain.OpDelete, nil, func(tx *sql.Tx) error {
		err := s.Repo.DeleteTemplate(ctx, tx, kind, category)
		if errors.Is(err, repo.ErrNotFound) && s.Remote != nil {
			// may exist remotely only
			return nil
		}
		return err
	})
}

func (s Templates) write(ctx context.Context, kind domain.TemplateKind, category domain.Category, op string, payload any, apply func(tx *sql.Tx) error) error {
	tx, err := s.Repo.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if err := apply(tx); err != nil {
		return err
	}
	var outboxID int64
	if s.Remote != nil {
		in := events.Intent{Entity: domain.EntityTemplate, EntityKey: domain.TemplateKey(kind, category), Op: op, Payload: payload}
		if outboxID, err = s.Events.Enqueue(ctx, tx, in); err != nil {
			return fmt.Errorf("record sync intent: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	if outboxID != 0 && s.Syncer != nil {
		if _, err := s.Syncer.Push(ctx, outboxID); err != nil {
			s.log().WithFields(logrus.Fields{"kind": kind, "category": category, "op": op}).WithError(err).Error("store: sync push failed locally")
		}
	}
	return nil
}

// List returns stored overrides from both sides, optionally limited to one
// kind. A local override shadows the remote one for the same scope.
func (s Templates) List(ctx context.Context, kind domain.TemplateKind) ([]domain.Template, error) {
	local, err := s.Repo.ListTemplates(ctx, kind)
	if err != nil {
		return nil, err
	}
	byScope := make(map[string]domain.Template, len(local))
	for _, t := range local {
		byScope[domain.TemplateKey(t.Kind, t.Category)] = t
	}
	if s.Remote != nil {
		timeout := s.ReadTimeout
		if timeout <= 0 {
			timeout = defaultReadTimeout
		}
		rctx, cancel := context.WithTimeout(ctx, timeout)
		remoteTemplates, rerr := s.Remote.ListTemplates(rctx, kind)
		cancel()
		if rerr != nil {
			remoteReads.WithLabelValues(domain.EntityTemplate, "error").Inc()
			s.log().WithError(rerr).Warn("store: remote template read failed, using local overrides")
		} else {
			remoteReads.WithLabelValues(domain.EntityTemplate, "ok").Inc()
			deleted, err := s.Repo.PendingDeletes(ctx, nil, domain.EntityTemplate)
			if err != nil {
				return nil, err
			}
			for _, t := range remoteTemplates {
				key := domain.TemplateKey(t.Kind, t.Category)
				if deleted[key] {
					continue
				}
				if _, ok := byScope[key]; !ok {
					byScope[key] = t
				}
			}
		}
	}
	out := make([]domain.Template, 0, len(byScope))
	for _, t := range byScope {
		out = append(out, t)
	}
	sort.Slice(out, func(a, b int) bool {
		if out[a].Kind != out[b].Kind {
			return out[a].Kind < out[b].Kind
		}
		return out[a].Category < out[b].Category
	})
	return out, nil
}
